package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/knoguchi/qbridge/internal/vectorstore"
)

// DatabaseCollector queries Qdrant for per-collection statistics.
type DatabaseCollector struct {
	store vectorstore.VectorStore
}

// NewDatabaseCollector creates a collector over the given vector store.
func NewDatabaseCollector(store vectorstore.VectorStore) *DatabaseCollector {
	return &DatabaseCollector{store: store}
}

// Name returns the collector's source tag.
func (c *DatabaseCollector) Name() string {
	return SourceDatabase
}

// Collect retrieves point counts, index state and estimated memory for
// every collection. A single unreadable collection degrades to an error
// label for that collection; an unreachable database fails the collector.
func (c *DatabaseCollector) Collect(ctx context.Context) (Sample, error) {
	sample := Sample{Source: SourceDatabase, TakenAt: time.Now().UTC()}

	version, err := c.store.HealthCheck(ctx)
	if err != nil {
		return sample, &CollectorError{Source: SourceDatabase, Err: err}
	}
	sample.Metrics = append(sample.Metrics, Metric{Entity: "qdrant", Name: "version", Label: version})

	names, err := c.store.ListCollections(ctx)
	if err != nil {
		return sample, &CollectorError{Source: SourceDatabase, Err: err}
	}
	sample.Metrics = append(sample.Metrics, Metric{Entity: "qdrant", Name: "collections_count", Value: float64(len(names))})

	for _, name := range names {
		stats, err := c.store.Stats(ctx, name)
		if err != nil {
			sample.Metrics = append(sample.Metrics, Metric{Entity: name, Name: "status", Label: "error"})
			if sample.Note != "" {
				sample.Note += "; "
			}
			sample.Note += fmt.Sprintf("stats for %s: %v", name, err)
			continue
		}

		optimizerOK := 0.0
		if stats.OptimizerOK {
			optimizerOK = 1.0
		}
		sample.Metrics = append(sample.Metrics,
			Metric{Entity: name, Name: "points_count", Value: float64(stats.PointsCount)},
			Metric{Entity: name, Name: "indexed_vectors_count", Value: float64(stats.IndexedVectorsCount)},
			Metric{Entity: name, Name: "vector_dimension", Value: float64(stats.Dimension)},
			Metric{Entity: name, Name: "estimated_memory_bytes", Value: float64(stats.EstimatedMemoryBytes)},
			Metric{Entity: name, Name: "status", Label: stats.Status},
			Metric{Entity: name, Name: "optimizer_ok", Value: optimizerOK},
		)
		if stats.OptimizerError != "" {
			sample.Metrics = append(sample.Metrics, Metric{Entity: name, Name: "optimizer_error", Label: stats.OptimizerError})
		}
	}

	return sample, nil
}
