package checklist

import (
	"fmt"
	"sync"
)

// MemoryRepository is an in-memory Repository for tests. It preserves
// insertion order (newest first) like the file driver and counts writes so
// debounce coalescing can be asserted.
type MemoryRepository struct {
	mu     sync.Mutex
	items  []Checklist
	writes int
}

// NewMemoryRepository returns an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// ListAll implements Repository.
func (r *MemoryRepository) ListAll() ([]Checklist, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Checklist, len(r.items))
	for i, c := range r.items {
		out[i] = c.Clone()
	}
	return out, nil
}

// Get implements Repository.
func (r *MemoryRepository) Get(id string) (Checklist, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.items {
		if c.ID == id {
			return c.Clone(), nil
		}
	}
	return Checklist{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Upsert implements Repository.
func (r *MemoryRepository) Upsert(c Checklist) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	stored := c.Clone()
	for i := range r.items {
		if r.items[i].ID == c.ID {
			r.items[i] = stored
			return nil
		}
	}
	r.items = append([]Checklist{stored}, r.items...)
	return nil
}

// DeleteByID implements Repository.
func (r *MemoryRepository) DeleteByID(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.items[:0]
	for _, c := range r.items {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	r.items = kept
	return nil
}

// Writes reports how many Upsert calls the repository has absorbed.
func (r *MemoryRepository) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}
