package ocr

import (
	"fmt"
	"slices"
	"sync"
)

// Factory creates a fresh engine for one request.
type Factory func() (Engine, error)

// Registry maps engine names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds or replaces the factory for name.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// Names lists registered engines alphabetically.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// New instantiates the named engine. Nothing is started.
func (r *Registry) New(name string) (Engine, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEngine, name)
	}
	e, err := f()
	if err != nil {
		return nil, &EngineError{Engine: name, Phase: "create", Err: err}
	}
	return e, nil
}

// Check verifies that every name is registered.
func (r *Registry) Check(names ...string) error {
	for _, n := range names {
		if !r.Has(n) {
			return fmt.Errorf("%w: %q", ErrUnsupportedEngine, n)
		}
	}
	return nil
}
