package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("document not found")

// Store is the query/mutation surface the cascade requires from the
// underlying document database. Each mutation is atomic at single-document
// granularity; no cross-document transactions are assumed.
type Store interface {
	// QueryByUser returns up to limit documents in table whose indexed
	// user-reference field equals userID, resolved through the named index.
	QueryByUser(ctx context.Context, table, index string, userID uuid.UUID, limit int) ([]Document, error)
	// Update applies a field patch to one document.
	Update(ctx context.Context, table, docID string, patch map[string]any) error
	// Delete removes one document.
	Delete(ctx context.Context, table, docID string) error
	// Get fetches one document, ErrNotFound when absent.
	Get(ctx context.Context, table, docID string) (Document, error)
	// Insert adds a document, assigning an id when the document has none.
	Insert(ctx context.Context, table string, doc Document) (Document, error)
}

// IndexRegistry maps (table, index name) pairs to the document field the
// index covers. Store implementations consult it to resolve index lookups;
// it mirrors what the hosted database would derive from its schema.
type IndexRegistry struct {
	fields map[string]string
}

func NewIndexRegistry() *IndexRegistry {
	return &IndexRegistry{fields: make(map[string]string)}
}

func (r *IndexRegistry) Register(table, index, field string) *IndexRegistry {
	r.fields[table+"."+index] = field
	return r
}

// Resolve returns the field an index covers for a table.
func (r *IndexRegistry) Resolve(table, index string) (string, error) {
	field, ok := r.fields[table+"."+index]
	if !ok {
		return "", fmt.Errorf("no index %q registered for table %q", index, table)
	}
	return field, nil
}
