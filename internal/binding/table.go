package binding

import (
	"context"
	"sync"
)

// DimensionResolver reports the vector dimensionality a provider
// identity actually produces. Implemented by the provider registry.
type DimensionResolver interface {
	ResolveDimension(ctx context.Context, kind, model string, params map[string]string) (int, error)
}

// Table holds the bindings for all known collections and a process-wide
// default used for collections with no explicit entry.
//
// Reads are concurrent; registration takes the write lock only after
// provider validation completes, so no lock is held across provider I/O.
type Table struct {
	mu             sync.RWMutex
	bindings       map[string]CollectionBinding
	defaultBinding CollectionBinding
	resolver       DimensionResolver
}

// NewTable creates a binding table with the given default binding. The
// default is assumed valid; explicit registrations are validated against
// the resolver.
func NewTable(defaultBinding CollectionBinding, resolver DimensionResolver) *Table {
	return &Table{
		bindings:       make(map[string]CollectionBinding),
		defaultBinding: defaultBinding,
		resolver:       resolver,
	}
}

// Register validates a binding against its provider and inserts it.
// Returns a *ConfigurationError when the binding is malformed, its
// provider kind is unknown, its declared dimensionality does not match
// what the provider produces, or it conflicts with an existing entry.
// A rejected binding is never stored.
func (t *Table) Register(ctx context.Context, b CollectionBinding) error {
	if b.Collection == "" {
		return &ConfigurationError{Collection: b.Collection, Reason: "collection name is empty"}
	}
	if b.ProviderKind == "" || b.Model == "" {
		return &ConfigurationError{Collection: b.Collection, Reason: "provider kind and model are required"}
	}
	if b.VectorField == "" {
		return &ConfigurationError{Collection: b.Collection, Reason: "vector field name is required"}
	}
	if b.Dimension <= 0 {
		return &ConfigurationError{Collection: b.Collection, Reason: "vector dimensionality must be positive"}
	}

	t.mu.RLock()
	existing, exists := t.bindings[b.Collection]
	t.mu.RUnlock()
	if exists && existing.Dimension != b.Dimension {
		return &ConfigurationError{
			Collection: b.Collection,
			Reason:     "conflicting dimensionality with existing binding",
		}
	}

	// Provider I/O happens outside any lock.
	dim, err := t.resolver.ResolveDimension(ctx, b.ProviderKind, b.Model, b.Params)
	if err != nil {
		return &ConfigurationError{Collection: b.Collection, Reason: "provider validation failed", Err: err}
	}
	if dim != b.Dimension {
		return &ConfigurationError{
			Collection: b.Collection,
			Reason:     "declared dimensionality does not match provider output",
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	// Re-check under the write lock: a concurrent Register may have won.
	if cur, ok := t.bindings[b.Collection]; ok && cur.Dimension != b.Dimension {
		return &ConfigurationError{
			Collection: b.Collection,
			Reason:     "conflicting dimensionality with existing binding",
		}
	}
	t.bindings[b.Collection] = b
	return nil
}

// Resolve returns the binding for a collection. It never fails: a
// collection with no explicit entry receives the default binding,
// materialized for that name on first reference and immutable afterwards.
func (t *Table) Resolve(collection string) CollectionBinding {
	t.mu.RLock()
	b, ok := t.bindings[collection]
	t.mu.RUnlock()
	if ok {
		return b
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if b, ok := t.bindings[collection]; ok {
		return b
	}
	b = t.defaultBinding
	b.Collection = collection
	t.bindings[collection] = b
	return b
}

// Default returns the process-wide default binding.
func (t *Table) Default() CollectionBinding {
	return t.defaultBinding
}

// List returns all materialized bindings keyed by collection name.
func (t *Table) List() map[string]CollectionBinding {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]CollectionBinding, len(t.bindings))
	for name, b := range t.bindings {
		out[name] = b
	}
	return out
}
