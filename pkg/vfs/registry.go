package vfs

import (
	"fmt"
	"sync"
)

// Factory constructs the backend serving one scheme. Factories close over
// whatever they need (a credential registry, tuning options); construction is
// lazy and happens at most once per scheme per Registry.
type Factory func() (Backend, error)

// Registry maps URL schemes to backends. It is a closed, explicit enumeration
// assembled by the caller (typically config.NewBackendRegistry) and injected where
// needed, not a mutable global: tests swap backends by building their own
// Registry.
//
// A backend instance is process-wide per scheme and reused across calls;
// whatever sessions it holds are lazily established on first use and torn
// down best-effort at process exit.
type Registry struct {
	mu        sync.Mutex
	factories map[string]Factory
	backends  map[string]Backend
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		backends:  make(map[string]Backend),
	}
}

// Register binds a scheme to a backend factory. Later registrations replace
// earlier ones; intended for startup wiring and test substitution only.
func (r *Registry) Register(scheme string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[scheme] = factory
	delete(r.backends, scheme)
}

// Resolve returns the backend serving the URL's scheme, constructing it on
// first use.
func (r *Registry) Resolve(u URL) (Backend, error) {
	scheme := u.Scheme()

	r.mu.Lock()
	defer r.mu.Unlock()
	if be, ok := r.backends[scheme]; ok {
		return be, nil
	}
	factory, ok := r.factories[scheme]
	if !ok {
		return nil, fmt.Errorf("%s: no backend registered for scheme %q: %w",
			u, scheme, ErrInvalidConfiguration)
	}
	be, err := factory()
	if err != nil {
		return nil, fmt.Errorf("%s: constructing %q backend: %w", u, scheme, err)
	}
	r.backends[scheme] = be
	return be, nil
}

// Schemes returns the registered schemes, for diagnostics.
func (r *Registry) Schemes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.factories))
	for s := range r.factories {
		out = append(out, s)
	}
	return out
}
