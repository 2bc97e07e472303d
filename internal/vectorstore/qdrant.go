package vectorstore

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// QdrantStore implements VectorStore using Qdrant
type QdrantStore struct {
	client *qdrant.Client
}

// NewQdrantStore creates a new Qdrant vector store client
// url should be in format "host:port" (e.g., "localhost:6334")
func NewQdrantStore(ctx context.Context, url string) (*QdrantStore, error) {
	host, portStr, err := net.SplitHostPort(url)
	if err != nil {
		// If no port specified, assume default
		host = url
		portStr = "6334"
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid port in qdrant url: %w", err)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &QdrantStore{client: client}, nil
}

// Close closes the Qdrant client connection
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// ensureCollection creates the collection with the named vector field
// if it does not exist yet.
func (s *QdrantStore) ensureCollection(ctx context.Context, collection, vectorField string, dimension int) error {
	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			vectorField: {
				Size:     uint64(dimension),
				Distance: qdrant.Distance_Cosine,
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return nil
}

// Store upserts one entry under the given named vector field, creating
// the collection on first write.
func (s *QdrantStore) Store(ctx context.Context, collection, vectorField string, vector []float32, entry Entry) (string, error) {
	if err := s.ensureCollection(ctx, collection, vectorField, len(vector)); err != nil {
		return "", err
	}

	payload := map[string]*qdrant.Value{
		"document": qdrant.NewValueString(entry.Document),
	}
	for k, v := range entry.Metadata {
		payload[k] = qdrant.NewValueString(v)
	}

	id := uuid.NewString()
	point := &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(id),
		Payload: payload,
		Vectors: &qdrant.Vectors{
			VectorsOptions: &qdrant.Vectors_Vectors{
				Vectors: &qdrant.NamedVectors{
					Vectors: map[string]*qdrant.Vector{
						vectorField: {
							Data: vector,
						},
					},
				},
			},
		},
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upsert point: %w", err)
	}

	return id, nil
}

// Search performs similarity search using the given named vector field.
func (s *QdrantStore) Search(ctx context.Context, collection, vectorField string, vector []float32, topK int) ([]SearchResult, error) {
	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to check collection existence: %w", err)
	}
	if !exists {
		return []SearchResult{}, nil
	}

	response, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Using:          qdrant.PtrOf(vectorField),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	results := make([]SearchResult, 0, len(response))
	for _, point := range response {
		result := SearchResult{
			ID:       point.Id.GetUuid(),
			Score:    point.Score,
			Metadata: make(map[string]string),
		}

		if payload := point.Payload; payload != nil {
			if doc, ok := payload["document"]; ok {
				result.Document = doc.GetStringValue()
			}
			for k, v := range payload {
				if k != "document" {
					result.Metadata[k] = v.GetStringValue()
				}
			}
		}

		results = append(results, result)
	}

	return results, nil
}

// ListCollections returns all collection names
func (s *QdrantStore) ListCollections(ctx context.Context) ([]string, error) {
	names, err := s.client.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	return names, nil
}

// Stats retrieves point/vector counts and index status for a collection
func (s *QdrantStore) Stats(ctx context.Context, collection string) (CollectionStats, error) {
	info, err := s.client.GetCollectionInfo(ctx, collection)
	if err != nil {
		return CollectionStats{}, fmt.Errorf("failed to get collection info: %w", err)
	}

	stats := CollectionStats{
		Name:                collection,
		PointsCount:         info.GetPointsCount(),
		IndexedVectorsCount: info.GetIndexedVectorsCount(),
		Status:              info.GetStatus().String(),
	}

	if opt := info.GetOptimizerStatus(); opt != nil {
		stats.OptimizerOK = opt.GetOk()
		stats.OptimizerError = opt.GetError()
	}

	stats.Dimension = vectorDimension(info.GetConfig().GetParams().GetVectorsConfig())
	stats.EstimatedMemoryBytes = EstimateMemoryBytes(stats.PointsCount, stats.Dimension)

	return stats, nil
}

// vectorDimension extracts the vector size from either a plain or a
// named-vector configuration. Named configs report the first field's
// size, which is the only field for collections this bridge creates.
func vectorDimension(cfg *qdrant.VectorsConfig) uint64 {
	if cfg == nil {
		return 0
	}
	if params := cfg.GetParams(); params != nil {
		return params.GetSize()
	}
	if m := cfg.GetParamsMap(); m != nil {
		for _, params := range m.GetMap() {
			return params.GetSize()
		}
	}
	return 0
}

// HealthCheck verifies the database is reachable and returns its version
func (s *QdrantStore) HealthCheck(ctx context.Context) (string, error) {
	reply, err := s.client.HealthCheck(ctx)
	if err != nil {
		return "", fmt.Errorf("qdrant health check failed: %w", err)
	}
	return reply.GetVersion(), nil
}

// Ensure QdrantStore implements VectorStore
var _ VectorStore = (*QdrantStore)(nil)
