// Package site abstracts container discovery. A Site owns the containers
// physically present at one location and enumerates them, with their
// labels, in a stable discovery order.
//
// The original "find the annotation next to the container" lookup is
// spatial logic owned by the host environment; any scheme that yields a
// deterministic binding list satisfies the contract. [Registry] is the
// explicit registration-list implementation.
package site

import (
	"context"
	"sync"

	"github.com/Spiderbuttons/autosort/container"
	"github.com/Spiderbuttons/autosort/label"
)

// Site enumerates the routable containers present at a location.
type Site interface {
	// ID returns a stable identifier for the site, used as the
	// serialization key for sorts.
	ID() string

	// Enumerate returns the site's containers and their labels in
	// discovery order. The order becomes the fill priority within each
	// tag, so it must be deterministic across calls.
	Enumerate(ctx context.Context) ([]label.Binding, error)
}

// Registry is an in-memory Site backed by an explicit registration list.
// Safe for concurrent use.
type Registry struct {
	id string

	mu       sync.RWMutex
	bindings []label.Binding
}

var _ Site = (*Registry)(nil)

// NewRegistry creates an empty registry site.
func NewRegistry(id string) *Registry {
	return &Registry{id: id}
}

// ID implements Site.
func (r *Registry) ID() string { return r.id }

// Enumerate implements Site. Bindings are returned in registration order.
func (r *Registry) Enumerate(_ context.Context) ([]label.Binding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]label.Binding, len(r.bindings))
	copy(out, r.bindings)
	return out, nil
}

// Add registers a container with the given label.
func (r *Registry) Add(c container.Container, l label.Label) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings = append(r.bindings, label.Binding{Container: c, Label: &l})
}

// AddUnlabeled registers a container with no label. It is enumerated but
// never indexed, matching how a site reports every container it holds.
func (r *Registry) AddUnlabeled(c container.Container) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings = append(r.bindings, label.Binding{Container: c})
}

// Remove drops a container from the registry.
func (r *Registry) Remove(c container.Container) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.bindings[:0]
	for _, b := range r.bindings {
		if b.Container != c {
			kept = append(kept, b)
		}
	}
	r.bindings = kept
}

// Len returns the number of registered containers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bindings)
}
