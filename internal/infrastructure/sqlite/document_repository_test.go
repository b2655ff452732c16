package sqlite

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GraphiteEditor/graphdoc/internal/document"
	"github.com/GraphiteEditor/graphdoc/internal/graph"
	"github.com/GraphiteEditor/graphdoc/internal/registry"
)

func newTestStore(t *testing.T) document.Store {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db.DocumentStore()
}

func fixtureRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	network := graph.NewNetwork(graph.NodeRef{NodeID: 1})
	network.Nodes[0] = graph.NewNode("graphene_core::structural::ConsNode",
		graph.ValueInput{Value: graph.U32Value(2)},
		graph.ValueInput{Value: graph.U32Value(3)},
	)
	network.Nodes[1] = graph.NewNode("graphene_core::ops::AddPairNode",
		graph.NodeRef{NodeID: 0},
	)
	reg, err := registry.FromNetwork(network)
	require.NoError(t, err)
	return reg
}

func TestDocumentRepository_SaveAssignsIDAndGUID(t *testing.T) {
	store := newTestStore(t)
	record := &document.Record{Name: "untitled", Registry: fixtureRegistry(t)}

	require.NoError(t, store.Save(record))
	require.NotZero(t, record.ID)
	require.NotEmpty(t, record.GUID)
	require.False(t, record.CreatedAt.IsZero())
}

func TestDocumentRepository_FindByGUIDRoundTripsRegistry(t *testing.T) {
	store := newTestStore(t)
	record := &document.Record{Name: "untitled", Registry: fixtureRegistry(t)}
	require.NoError(t, store.Save(record))

	found, err := store.FindByGUID(record.GUID)
	require.NoError(t, err)
	require.Equal(t, record.ID, found.ID)
	require.Equal(t, "untitled", found.Name)
	require.Equal(t, record.Registry, found.Registry)
}

func TestDocumentRepository_FindByGUIDNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.FindByGUID("no-such-document")
	var notFound *document.NotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, "no-such-document", notFound.GUID)
}

func TestDocumentRepository_SaveUpdatesExisting(t *testing.T) {
	store := newTestStore(t)
	record := &document.Record{Name: "first", Registry: fixtureRegistry(t)}
	require.NoError(t, store.Save(record))
	guid := record.GUID

	record.Name = "renamed"
	require.NoError(t, store.Save(record))

	found, err := store.FindByGUID(guid)
	require.NoError(t, err)
	require.Equal(t, "renamed", found.Name)
	require.Equal(t, record.ID, found.ID)
}

func TestDocumentRepository_List(t *testing.T) {
	store := newTestStore(t)
	first := &document.Record{Name: "first", Registry: fixtureRegistry(t)}
	second := &document.Record{Name: "second", Registry: fixtureRegistry(t)}
	require.NoError(t, store.Save(first))
	require.NoError(t, store.Save(second))

	records, err := store.List()
	require.NoError(t, err)
	require.Len(t, records, 2)
	// Newest first.
	require.Equal(t, "second", records[0].Name)
	require.Equal(t, "first", records[1].Name)
}

func TestDocumentRepository_Delete(t *testing.T) {
	store := newTestStore(t)
	record := &document.Record{Registry: fixtureRegistry(t)}
	require.NoError(t, store.Save(record))

	require.NoError(t, store.Delete(record.GUID))

	_, err := store.FindByGUID(record.GUID)
	var notFound *document.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestDocumentRepository_DeleteNotFound(t *testing.T) {
	store := newTestStore(t)

	err := store.Delete("no-such-document")
	var notFound *document.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestDocumentRepository_DeltaRoundTrip(t *testing.T) {
	store := newTestStore(t)
	reg := fixtureRegistry(t)
	record := &document.Record{Registry: reg}
	require.NoError(t, store.Save(record))

	doc := document.New(reg)
	firstRev, err := doc.Commit(document.ChangeNodeAttribute{
		NodeID: 0,
		Delta: document.SetAttribute{
			AttrKey: registry.AttrVisible,
			Value:   registry.Attribute{Value: json.RawMessage(`false`), Timestamp: 3},
		},
	}, 3)
	require.NoError(t, err)
	secondRev, err := doc.Commit(document.RemoveNode{NodeID: 0}, 4)
	require.NoError(t, err)

	require.NoError(t, store.AppendDelta(record.GUID, doc.History[firstRev]))
	require.NoError(t, store.AppendDelta(record.GUID, doc.History[secondRev]))

	deltas, err := store.Deltas(record.GUID)
	require.NoError(t, err)
	require.Len(t, deltas, 2)
	require.Equal(t, doc.History[firstRev], deltas[0])
	require.Equal(t, doc.History[secondRev], deltas[1])
}

func TestDocumentRepository_DeltasReplayOntoSnapshot(t *testing.T) {
	store := newTestStore(t)
	reg := fixtureRegistry(t)
	record := &document.Record{Registry: reg}
	require.NoError(t, store.Save(record))

	doc := document.New(reg)
	rev, err := doc.Commit(document.RemoveNode{NodeID: 0}, 1)
	require.NoError(t, err)
	require.NoError(t, store.AppendDelta(record.GUID, doc.History[rev]))

	// A fresh load of the snapshot plus its delta log converges on the same
	// registry as the live document.
	found, err := store.FindByGUID(record.GUID)
	require.NoError(t, err)
	replayed := document.New(found.Registry)
	deltas, err := store.Deltas(record.GUID)
	require.NoError(t, err)
	for _, delta := range deltas {
		require.NoError(t, replayed.ApplyDelta(delta))
	}
	require.Equal(t, doc.Registry, replayed.Registry)
}

func TestDocumentRepository_AppendDeltaUnknownDocument(t *testing.T) {
	store := newTestStore(t)
	doc := document.New(fixtureRegistry(t))
	rev, err := doc.Commit(document.RemoveNode{NodeID: 0}, 1)
	require.NoError(t, err)

	err = store.AppendDelta("no-such-document", doc.History[rev])
	var notFound *document.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestDocumentRepository_DeleteCascadesDeltas(t *testing.T) {
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()
	store := db.DocumentStore()

	reg := fixtureRegistry(t)
	record := &document.Record{Registry: reg}
	require.NoError(t, store.Save(record))

	doc := document.New(reg)
	rev, err := doc.Commit(document.RemoveNode{NodeID: 0}, 1)
	require.NoError(t, err)
	require.NoError(t, store.AppendDelta(record.GUID, doc.History[rev]))

	require.NoError(t, store.Delete(record.GUID))

	var count int
	require.NoError(t, db.Connection().QueryRow("SELECT COUNT(*) FROM deltas").Scan(&count))
	require.Zero(t, count, "deltas should be removed with their document")
}
