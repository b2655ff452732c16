package document

import (
	"fmt"
	"time"

	"github.com/GraphiteEditor/graphdoc/internal/registry"
)

// Record is a stored document: the registry snapshot plus store metadata.
type Record struct {
	ID        int64
	GUID      string
	Name      string
	Registry  *registry.Registry
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NotFoundError reports a lookup for a document the store does not hold.
type NotFoundError struct {
	GUID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("document %q not found", e.GUID)
}

// Store persists documents and their delta history.
type Store interface {
	// Save inserts the record when its ID is zero, assigning ID and GUID,
	// and updates the existing row otherwise.
	Save(record *Record) error

	// FindByGUID retrieves a document by GUID. Returns NotFoundError when
	// no such document exists.
	FindByGUID(guid string) (*Record, error)

	// List retrieves all documents, newest first.
	List() ([]*Record, error)

	// Delete removes a document and its delta history.
	Delete(guid string) error

	// AppendDelta records one history delta for a document.
	AppendDelta(guid string, delta *Delta) error

	// Deltas retrieves a document's history in append order.
	Deltas(guid string) ([]*Delta, error)
}
