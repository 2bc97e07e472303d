// Package router resolves store and search requests to the embedding
// provider and vector field the target collection was built with.
package router

import (
	"context"
	"fmt"

	"github.com/knoguchi/qbridge/internal/binding"
	"github.com/knoguchi/qbridge/internal/provider"
)

// DimensionMismatchError reports a provider producing a vector whose
// length differs from the binding's declared dimensionality. Fatal to
// the triggering call; nothing is written.
type DimensionMismatchError struct {
	Collection string
	Declared   int
	Produced   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("vector dimension mismatch for collection %q: binding declares %d, provider produced %d",
		e.Collection, e.Declared, e.Produced)
}

// Router routes embedding requests through the binding table and
// provider registry, guaranteeing dimension and field-name consistency
// for every store and search.
type Router struct {
	table    *binding.Table
	registry *provider.Registry
}

// New creates a router over the given binding table and provider registry.
func New(table *binding.Table, registry *provider.Registry) *Router {
	return &Router{table: table, registry: registry}
}

// EmbedForStore embeds text for writing into a collection. Returns the
// vector and the exact vector field name the collection's binding
// specifies; callers must write under that field name.
func (r *Router) EmbedForStore(ctx context.Context, collection, text string) ([]float32, string, error) {
	return r.embed(ctx, collection, text)
}

// EmbedForSearch embeds a query for searching a collection. Returns the
// same vector field name EmbedForStore returns for that collection.
func (r *Router) EmbedForSearch(ctx context.Context, collection, query string) ([]float32, string, error) {
	return r.embed(ctx, collection, query)
}

func (r *Router) embed(ctx context.Context, collection, text string) ([]float32, string, error) {
	b := r.table.Resolve(collection)

	h, err := r.registry.GetOrCreate(ctx, b.ProviderKind, b.Model, b.Params)
	if err != nil {
		return nil, "", err
	}

	vector, err := h.Embed(ctx, text)
	if err != nil {
		return nil, "", fmt.Errorf("failed to embed for collection %q: %w", collection, err)
	}

	if len(vector) != b.Dimension {
		return nil, "", &DimensionMismatchError{
			Collection: collection,
			Declared:   b.Dimension,
			Produced:   len(vector),
		}
	}

	return vector, b.VectorField, nil
}

// Binding exposes the resolved binding for a collection, for callers
// that need the schema without embedding anything.
func (r *Router) Binding(collection string) binding.CollectionBinding {
	return r.table.Resolve(collection)
}
