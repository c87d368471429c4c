package docstore

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/meridianhq/meridian/modules/core/domain/entities/document"
)

// MemoryStore is an in-process document.Store used by tests and local
// development. Query results follow insertion order so cascade runs are
// reproducible.
type MemoryStore struct {
	mu      sync.RWMutex
	indexes *document.IndexRegistry
	tables  map[string]*memoryTable
}

type memoryTable struct {
	order []string
	docs  map[string]document.Document
}

func NewMemoryStore(indexes *document.IndexRegistry) *MemoryStore {
	return &MemoryStore{
		indexes: indexes,
		tables:  make(map[string]*memoryTable),
	}
}

func (s *MemoryStore) table(name string) *memoryTable {
	t, ok := s.tables[name]
	if !ok {
		t = &memoryTable{docs: make(map[string]document.Document)}
		s.tables[name] = t
	}
	return t
}

func (s *MemoryStore) QueryByUser(ctx context.Context, table, index string, userID uuid.UUID, limit int) ([]document.Document, error) {
	field, err := s.indexes.Resolve(table, index)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[table]
	if !ok {
		return nil, nil
	}

	var out []document.Document
	for _, id := range t.order {
		doc, ok := t.docs[id]
		if !ok {
			continue
		}
		if v, _ := doc.StringField(field); v != userID.String() {
			continue
		}
		out = append(out, doc.Clone())
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) Get(ctx context.Context, table, docID string) (document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[table]
	if !ok {
		return nil, document.ErrNotFound
	}
	doc, ok := t.docs[docID]
	if !ok {
		return nil, document.ErrNotFound
	}
	return doc.Clone(), nil
}

func (s *MemoryStore) Insert(ctx context.Context, table string, doc document.Document) (document.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := doc.Clone()
	if stored.ID() == "" {
		stored[document.IDField] = uuid.NewString()
	}
	t := s.table(table)
	if _, exists := t.docs[stored.ID()]; !exists {
		t.order = append(t.order, stored.ID())
	}
	t.docs[stored.ID()] = stored
	return stored.Clone(), nil
}

func (s *MemoryStore) Update(ctx context.Context, table, docID string, patch map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[table]
	if !ok {
		return document.ErrNotFound
	}
	doc, ok := t.docs[docID]
	if !ok {
		return document.ErrNotFound
	}
	for k, v := range patch {
		doc[k] = v
	}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, table, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[table]
	if !ok {
		return nil
	}
	delete(t.docs, docID)
	return nil
}

// Count reports how many documents a table holds, for tests and tooling.
func (s *MemoryStore) Count(table string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[table]
	if !ok {
		return 0
	}
	return len(t.docs)
}
