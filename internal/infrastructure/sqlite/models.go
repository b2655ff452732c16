package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/GraphiteEditor/graphdoc/internal/document"
	"github.com/GraphiteEditor/graphdoc/internal/registry"
)

// DocumentModel represents the database row for the documents table.
// The registry snapshot is stored as its canonical JSON encoding; times are
// Unix timestamps.
type DocumentModel struct {
	ID        int64
	GUID      string
	Name      *string // nullable
	Registry  string  // JSON encoded
	CreatedAt int64   // Unix timestamp
	UpdatedAt int64   // Unix timestamp
}

// toDocumentModel converts a store record to a database DocumentModel.
func toDocumentModel(record *document.Record) (*DocumentModel, error) {
	raw, err := json.Marshal(record.Registry)
	if err != nil {
		return nil, fmt.Errorf("failed to encode registry: %w", err)
	}
	m := &DocumentModel{
		ID:        record.ID,
		GUID:      record.GUID,
		Registry:  string(raw),
		CreatedAt: record.CreatedAt.Unix(),
		UpdatedAt: record.UpdatedAt.Unix(),
	}
	if record.Name != "" {
		name := record.Name
		m.Name = &name
	}
	return m, nil
}

// toRecord converts a database DocumentModel to a store record.
func (m *DocumentModel) toRecord() (*document.Record, error) {
	reg := registry.NewRegistry()
	if err := json.Unmarshal([]byte(m.Registry), reg); err != nil {
		return nil, fmt.Errorf("failed to decode registry: %w", err)
	}
	record := &document.Record{
		ID:        m.ID,
		GUID:      m.GUID,
		Registry:  reg,
		CreatedAt: time.Unix(m.CreatedAt, 0),
		UpdatedAt: time.Unix(m.UpdatedAt, 0),
	}
	if m.Name != nil {
		record.Name = *m.Name
	}
	return record, nil
}
