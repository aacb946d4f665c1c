// Package persona provides the static catalog of simulated customers and
// the handoff graph between them.
package persona

import (
	"errors"
	"fmt"

	"github.com/repcoach/repcoach/internal/domain"
)

// ErrNotFound is returned when a persona ID is not in the catalog.
var ErrNotFound = errors.New("persona not found")

// Registry is an immutable catalog of personas plus their handoff
// adjacency. It is built once at startup; lookups are side-effect free.
type Registry struct {
	order    []string
	personas map[string]domain.Persona
}

// NewRegistry builds a registry from catalog entries. Entries that declare
// no handoffs get the full mesh: every other persona in the catalog. The
// adjacency is resolved here, in one pass, so personas never change after
// construction.
func NewRegistry(entries []domain.Persona) (*Registry, error) {
	if len(entries) == 0 {
		return nil, errors.New("persona catalog is empty")
	}

	r := &Registry{
		order:    make([]string, 0, len(entries)),
		personas: make(map[string]domain.Persona, len(entries)),
	}

	for _, e := range entries {
		if e.ID == "" {
			return nil, errors.New("persona with empty ID in catalog")
		}
		if _, dup := r.personas[e.ID]; dup {
			return nil, fmt.Errorf("duplicate persona ID %q in catalog", e.ID)
		}
		r.order = append(r.order, e.ID)
		r.personas[e.ID] = e
	}

	for id, p := range r.personas {
		if len(p.Handoffs) == 0 {
			p.Handoffs = r.fullMesh(id)
		} else {
			for _, target := range p.Handoffs {
				if target == id {
					return nil, fmt.Errorf("persona %q lists itself as a handoff target", id)
				}
				if _, ok := r.personas[target]; !ok {
					return nil, fmt.Errorf("persona %q hands off to unknown persona %q", id, target)
				}
			}
		}
		r.personas[id] = p
	}

	return r, nil
}

// fullMesh returns every catalog ID except self, in catalog order.
func (r *Registry) fullMesh(self string) []string {
	targets := make([]string, 0, len(r.order)-1)
	for _, id := range r.order {
		if id != self {
			targets = append(targets, id)
		}
	}
	return targets
}

// List returns all personas in stable catalog order.
func (r *Registry) List() []domain.Persona {
	out := make([]domain.Persona, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.personas[id])
	}
	return out
}

// Get returns the persona with the given ID.
func (r *Registry) Get(id string) (domain.Persona, error) {
	p, ok := r.personas[id]
	if !ok {
		return domain.Persona{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return p, nil
}

// HandoffTargets returns the IDs the given persona may transfer control to.
func (r *Registry) HandoffTargets(id string) ([]string, error) {
	p, ok := r.personas[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	targets := make([]string, len(p.Handoffs))
	copy(targets, p.Handoffs)
	return targets, nil
}

// Reorder returns the full catalog with rootID moved to the front. The
// runtime treats the first persona of a connect request as the conversation
// root, so the selected customer must lead the list.
func (r *Registry) Reorder(rootID string) ([]domain.Persona, error) {
	if _, ok := r.personas[rootID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, rootID)
	}
	out := make([]domain.Persona, 0, len(r.order))
	out = append(out, r.personas[rootID])
	for _, id := range r.order {
		if id != rootID {
			out = append(out, r.personas[id])
		}
	}
	return out, nil
}

// Next returns the catalog-cyclic successor of the given persona. Used to
// advance the trainee to the next customer type after a pass.
func (r *Registry) Next(id string) (domain.Persona, error) {
	for i, candidate := range r.order {
		if candidate == id {
			return r.personas[r.order[(i+1)%len(r.order)]], nil
		}
	}
	return domain.Persona{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Default returns the first persona in catalog order. Unknown persona keys
// in requests are redirected here instead of surfacing an error.
func (r *Registry) Default() domain.Persona {
	return r.personas[r.order[0]]
}
