package sop

import (
	"fmt"
	"sync"
)

// MemoryProvider is an in-memory Provider for tests and embedding callers.
// Put replaces by ID, so it also models the authoring side editing a
// procedure out from under running checklists.
type MemoryProvider struct {
	mu   sync.RWMutex
	sops map[string]SOP
}

// NewMemoryProvider seeds an in-memory provider.
func NewMemoryProvider(sops ...SOP) *MemoryProvider {
	p := &MemoryProvider{sops: make(map[string]SOP, len(sops))}
	for _, s := range sops {
		p.sops[s.ID] = s
	}
	return p
}

// Get implements Provider.
func (p *MemoryProvider) Get(id string) (SOP, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.sops[id]
	if !ok {
		return SOP{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

// Put stores or replaces a procedure.
func (p *MemoryProvider) Put(s SOP) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sops[s.ID] = s
}

// Delete removes a procedure, modelling the owner deleting the source SOP.
func (p *MemoryProvider) Delete(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.sops, id)
}
