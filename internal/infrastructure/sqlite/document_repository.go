package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/GraphiteEditor/graphdoc/internal/document"
)

// documentColumns is the list of columns to select for document queries.
const documentColumns = `id, guid, name, registry, created_at, updated_at`

// documentRepository implements document.Store using SQLite.
type documentRepository struct {
	db *sql.DB
}

// newDocumentRepository creates a new documentRepository instance.
func newDocumentRepository(db *sql.DB) *documentRepository {
	return &documentRepository{db: db}
}

// Ensure documentRepository implements document.Store.
var _ document.Store = (*documentRepository)(nil)

// scanDocument scans a row into a DocumentModel.
func scanDocument(scanner interface{ Scan(...any) error }) (*DocumentModel, error) {
	var model DocumentModel
	err := scanner.Scan(
		&model.ID, &model.GUID, &model.Name, &model.Registry,
		&model.CreatedAt, &model.UpdatedAt,
	)
	return &model, err
}

// Save persists a document.
// For new documents (ID == 0), inserts a new row and sets the record's ID,
// generating a GUID when the record carries none.
// For existing documents (ID > 0), updates the existing row.
func (r *documentRepository) Save(record *document.Record) error {
	now := time.Now()
	if record.ID == 0 {
		if record.GUID == "" {
			record.GUID = uuid.NewString()
		}
		record.CreatedAt = now
		record.UpdatedAt = now
		model, err := toDocumentModel(record)
		if err != nil {
			return err
		}
		result, err := r.db.Exec(
			`INSERT INTO documents (guid, name, registry, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?)`,
			model.GUID, model.Name, model.Registry, model.CreatedAt, model.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert document: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		record.ID = id
		return nil
	}

	record.UpdatedAt = now
	model, err := toDocumentModel(record)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(
		`UPDATE documents SET name = ?, registry = ?, updated_at = ? WHERE id = ?`,
		model.Name, model.Registry, model.UpdatedAt, model.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	return nil
}

// FindByGUID retrieves a document by its GUID.
// Returns NotFoundError if no matching document exists.
func (r *documentRepository) FindByGUID(guid string) (*document.Record, error) {
	row := r.db.QueryRow(
		`SELECT `+documentColumns+` FROM documents WHERE guid = ?`,
		guid,
	)
	model, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &document.NotFoundError{GUID: guid}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find document by guid: %w", err)
	}
	return model.toRecord()
}

// List retrieves all documents, ordered by created_at descending (newest
// first).
func (r *documentRepository) List() ([]*document.Record, error) {
	rows, err := r.db.Query(
		`SELECT ` + documentColumns + ` FROM documents ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*document.Record
	for rows.Next() {
		model, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		record, err := model.toRecord()
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating document rows: %w", err)
	}
	return records, nil
}

// Delete removes a document. The foreign key cascade removes its deltas.
// Returns NotFoundError if no matching document exists.
func (r *documentRepository) Delete(guid string) error {
	result, err := r.db.Exec(`DELETE FROM documents WHERE guid = ?`, guid)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return &document.NotFoundError{GUID: guid}
	}
	return nil
}

// AppendDelta records one history delta for a document.
func (r *documentRepository) AppendDelta(guid string, delta *document.Delta) error {
	documentID, err := r.documentID(guid)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(delta)
	if err != nil {
		return fmt.Errorf("failed to encode delta: %w", err)
	}
	_, err = r.db.Exec(
		`INSERT INTO deltas (document_id, rev, timestamp, payload) VALUES (?, ?, ?, ?)`,
		documentID, fmt.Sprintf("%016x", uint64(delta.ID)), int64(delta.Timestamp), string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to insert delta: %w", err)
	}
	return nil
}

// Deltas retrieves a document's history in append order.
func (r *documentRepository) Deltas(guid string) ([]*document.Delta, error) {
	documentID, err := r.documentID(guid)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(
		`SELECT payload FROM deltas WHERE document_id = ? ORDER BY id ASC`,
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list deltas: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var deltas []*document.Delta
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan delta row: %w", err)
		}
		var delta document.Delta
		if err := json.Unmarshal([]byte(payload), &delta); err != nil {
			return nil, fmt.Errorf("failed to decode delta: %w", err)
		}
		deltas = append(deltas, &delta)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating delta rows: %w", err)
	}
	return deltas, nil
}

func (r *documentRepository) documentID(guid string) (int64, error) {
	var id int64
	err := r.db.QueryRow(`SELECT id FROM documents WHERE guid = ?`, guid).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, &document.NotFoundError{GUID: guid}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to resolve document id: %w", err)
	}
	return id, nil
}
