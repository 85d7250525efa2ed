package provider

import (
	"sync"

	apperrors "github.com/GuiSantosdev/clivus-dev-sub000/internal/shared/errors"
)

// Registry manages the configured payment adapters. Registration order
// doubles as selection priority.
type Registry struct {
	mu       sync.RWMutex
	order    []string
	adapters map[string]Adapter
}

// NewRegistry creates a new adapter registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[string]Adapter),
	}
}

// Register registers an adapter. Re-registering a name replaces the
// adapter but keeps its original priority slot.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.adapters[a.Name()]; !ok {
		r.order = append(r.order, a.Name())
	}
	r.adapters[a.Name()] = a
}

// Get returns an adapter by name.
func (r *Registry) Get(name string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[name]
	if !ok {
		return nil, apperrors.Validation("unknown payment provider: " + name)
	}
	return a, nil
}

// All returns all adapters in registration (priority) order.
func (r *Registry) All() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Adapter, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.adapters[name])
	}
	return out
}

// Names returns all registered provider names in priority order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}
