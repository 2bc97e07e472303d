// Package vectorstore provides interfaces and implementations for vector storage and similarity search.
package vectorstore

import (
	"context"
)

const (
	// bytesPerDimension is the storage cost of one vector component
	// (float32).
	bytesPerDimension = 4

	// collectionOverheadBytes is a flat allowance per collection for
	// index and payload structures on top of raw vector data.
	collectionOverheadBytes = 1 << 20
)

// Entry is one stored document with optional metadata.
type Entry struct {
	Document string
	Metadata map[string]string
}

// SearchResult represents a search result from the vector store.
type SearchResult struct {
	ID       string
	Document string
	Score    float32
	Metadata map[string]string
}

// CollectionStats summarizes one collection's size and index state.
type CollectionStats struct {
	Name                 string
	PointsCount          uint64
	IndexedVectorsCount  uint64
	Dimension            uint64
	Status               string
	OptimizerOK          bool
	OptimizerError       string
	EstimatedMemoryBytes uint64
}

// VectorStore defines the interface for vector storage operations.
// Store and Search take the vector field name resolved from the
// collection's binding; callers must never substitute a hardcoded field.
type VectorStore interface {
	// Store upserts one entry under the given named vector field,
	// creating the collection with that field on first write.
	Store(ctx context.Context, collection, vectorField string, vector []float32, entry Entry) (string, error)

	// Search performs similarity search using the given named vector
	// field. A missing collection yields an empty result, not an error.
	Search(ctx context.Context, collection, vectorField string, vector []float32, topK int) ([]SearchResult, error)

	// ListCollections returns all collection names.
	ListCollections(ctx context.Context) ([]string, error)

	// Stats retrieves point/vector counts and index status for a collection.
	Stats(ctx context.Context, collection string) (CollectionStats, error)

	// HealthCheck verifies the database is reachable and returns its version.
	HealthCheck(ctx context.Context) (string, error)
}

// EstimateMemoryBytes estimates a collection's resident memory from its
// point count and dimensionality: points x dim x 4 bytes (float32
// components) plus a fixed 1 MiB overhead for index and payload
// structures. A theoretical value, not a measurement.
func EstimateMemoryBytes(points, dimension uint64) uint64 {
	if dimension == 0 {
		return 0
	}
	return points*dimension*bytesPerDimension + collectionOverheadBytes
}
