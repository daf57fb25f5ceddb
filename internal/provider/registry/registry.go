package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/davidbz/synthd/internal/domain"
)

type entry struct {
	candidate domain.Candidate
	seq       int
}

// Registry implements the ProviderRegistry interface. Providers are listed in
// ascending priority; equal priorities keep registration order.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
	ordered []domain.Candidate
	nextSeq int
}

// NewRegistry creates a new provider registry.
func NewRegistry() *Registry {
	return &Registry{
		mu:      sync.RWMutex{},
		entries: make(map[string]entry),
	}
}

// Register adds a provider to the registry under its descriptor.
func (r *Registry) Register(_ context.Context, descriptor domain.ProviderDescriptor, provider domain.Provider) error {
	if provider == nil {
		return errors.New("provider cannot be nil")
	}

	name := descriptor.Name
	if name == "" {
		return errors.New("provider name cannot be empty")
	}

	if provider.Name() != name {
		return fmt.Errorf("provider name %q does not match descriptor %q", provider.Name(), name)
	}

	if descriptor.Timeout < 0 {
		return fmt.Errorf("provider %s timeout cannot be negative", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("provider %s already registered", name)
	}

	r.entries[name] = entry{
		candidate: domain.Candidate{Descriptor: descriptor, Provider: provider},
		seq:       r.nextSeq,
	}
	r.nextSeq++
	r.reorder()

	return nil
}

// reorder rebuilds the fallback order. Callers hold the write lock.
func (r *Registry) reorder() {
	all := make([]entry, 0, len(r.entries))
	for _, e := range r.entries {
		all = append(all, e)
	}

	sort.Slice(all, func(i, j int) bool {
		pi, pj := all[i].candidate.Descriptor.Priority, all[j].candidate.Descriptor.Priority
		if pi != pj {
			return pi < pj
		}
		return all[i].seq < all[j].seq
	})

	r.ordered = make([]domain.Candidate, len(all))
	for i, e := range all {
		r.ordered[i] = e.candidate
	}
}

// Get retrieves a provider by name.
func (r *Registry) Get(_ context.Context, providerName string) (domain.Candidate, error) {
	if providerName == "" {
		return domain.Candidate{}, errors.New("provider name cannot be empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.entries[providerName]
	if !exists {
		return domain.Candidate{}, fmt.Errorf("provider %s not found", providerName)
	}

	return e.candidate, nil
}

// List returns all registered providers in fallback order.
func (r *Registry) List(_ context.Context) ([]domain.Candidate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	candidates := make([]domain.Candidate, len(r.ordered))
	copy(candidates, r.ordered)

	return candidates, nil
}
