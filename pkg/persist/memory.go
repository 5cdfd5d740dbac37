package persist

import (
	"context"
	"sync"

	"github.com/modata-dev/modata/pkg/schema"
)

// MemoryStore keeps documents in memory. It is used in tests and by hosts
// that disable built-in persistence but still want slot semantics.
type MemoryStore struct {
	mu    sync.Mutex
	docs  map[string]schema.Diagram
	metas []Meta
	last  string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]schema.Diagram)}
}

// List returns saved metadata, most recently saved first.
func (s *MemoryStore) List(ctx context.Context) ([]Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Meta, len(s.metas))
	copy(out, s.metas)
	return out, nil
}

// Save stores a document under its name.
func (s *MemoryStore) Save(ctx context.Context, d schema.Diagram) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[d.Name] = d.Clone()
	s.metas = promote(s.metas, Meta{Name: d.Name, UpdatedAt: d.UpdatedAt})
	s.last = d.Name
	return nil
}

// Load returns the named document.
func (s *MemoryStore) Load(ctx context.Context, name string) (schema.Diagram, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[name]
	if !ok {
		return schema.Diagram{}, ErrNotFound
	}
	return d.Clone(), nil
}

// Delete removes the named document.
func (s *MemoryStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, name)
	s.metas = remove(s.metas, name)
	if s.last == name {
		s.last = ""
	}
	return nil
}

// SetLastOpened records the last-opened name.
func (s *MemoryStore) SetLastOpened(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = name
	return nil
}

// LastOpened returns the last-opened name.
func (s *MemoryStore) LastOpened(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == "" {
		return "", ErrNotFound
	}
	return s.last, nil
}

// Close does nothing for the memory store.
func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
