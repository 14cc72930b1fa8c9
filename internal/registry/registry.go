// Package registry maps logical store names to the runner responsible for
// each store. Iteration order is declaration order so that cross-store
// operations are reproducible.
package registry

import (
	"errors"
	"fmt"

	"github.com/Kode-Rex/insight-mesh-sub001/internal/migration"
	"github.com/Kode-Rex/insight-mesh-sub001/internal/runner"
)

// Binding ties a logical store name to its runner. Connection parameters are
// owned by the store executor inside the runner; the registry never parses
// them.
type Binding struct {
	Name   string
	Kind   string // postgres, sqlite, neo4j, elasticsearch
	Runner runner.Runner
}

// Registry holds store bindings in declaration order.
type Registry struct {
	order  []string
	byName map[string]Binding
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{byName: make(map[string]Binding)}
}

// Register adds a binding. Registering a name twice fails with
// ErrDuplicateStore and the first registration is retained.
func (r *Registry) Register(b Binding) error {
	if b.Name == "" {
		return errors.New("store name is required")
	}
	if _, exists := r.byName[b.Name]; exists {
		return fmt.Errorf("%w: %s", migration.ErrDuplicateStore, b.Name)
	}
	r.byName[b.Name] = b
	r.order = append(r.order, b.Name)
	return nil
}

// Resolve returns the binding for a logical store name.
func (r *Registry) Resolve(name string) (Binding, error) {
	b, ok := r.byName[name]
	if !ok {
		return Binding{}, fmt.Errorf("%w: %s", migration.ErrUnknownStore, name)
	}
	return b, nil
}

// All returns every binding in declaration order.
func (r *Registry) All() []Binding {
	out := make([]Binding, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Len returns the number of registered stores.
func (r *Registry) Len() int { return len(r.order) }
