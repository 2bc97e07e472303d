package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
)

// fakeOllama serves the two endpoints the registry touches: /api/tags
// for the reachability check and /api/embeddings for embedding.
func fakeOllama(t *testing.T, dimension int, tagCalls *atomic.Int64, healthy *atomic.Bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		tagCalls.Add(1)
		if !healthy.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"models": []map[string]string{
				{"name": "nomic-embed-text:latest"},
				{"name": "custom-model:latest"},
			},
		})
	})
	mux.HandleFunc("/api/embeddings", func(w http.ResponseWriter, r *http.Request) {
		embedding := make([]float64, dimension)
		json.NewEncoder(w).Encode(map[string]any{"embedding": embedding})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRegistry_GetOrCreateCachesHandle(t *testing.T) {
	var tagCalls atomic.Int64
	var healthy atomic.Bool
	healthy.Store(true)
	srv := fakeOllama(t, 768, &tagCalls, &healthy)

	registry := NewRegistry(Options{OllamaBaseURL: srv.URL})

	h1, err := registry.GetOrCreate(context.Background(), KindOllama, "nomic-embed-text", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h2, err := registry.GetOrCreate(context.Background(), KindOllama, "nomic-embed-text", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h1 != h2 {
		t.Error("expected the same handle on repeated GetOrCreate")
	}
	if got := tagCalls.Load(); got != 1 {
		t.Errorf("expected exactly 1 reachability check, got %d", got)
	}
}

func TestRegistry_ConcurrentGetOrCreateInitializesOnce(t *testing.T) {
	var tagCalls atomic.Int64
	var healthy atomic.Bool
	healthy.Store(true)
	srv := fakeOllama(t, 768, &tagCalls, &healthy)

	registry := NewRegistry(Options{OllamaBaseURL: srv.URL})

	const n = 16
	handles := make([]*Handle, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := registry.GetOrCreate(context.Background(), KindOllama, "nomic-embed-text", nil)
			if err != nil {
				t.Errorf("goroutine %d: unexpected error: %v", i, err)
				return
			}
			handles[i] = h
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if handles[i] != handles[0] {
			t.Fatalf("goroutine %d received a different handle", i)
		}
	}
	if got := tagCalls.Load(); got != 1 {
		t.Errorf("expected exactly 1 reachability check across %d callers, got %d", n, got)
	}
}

func TestRegistry_FailureNotCached(t *testing.T) {
	var tagCalls atomic.Int64
	var healthy atomic.Bool
	srv := fakeOllama(t, 768, &tagCalls, &healthy)

	registry := NewRegistry(Options{OllamaBaseURL: srv.URL})

	_, err := registry.GetOrCreate(context.Background(), KindOllama, "nomic-embed-text", nil)
	if err == nil {
		t.Fatal("expected error while provider is unhealthy")
	}
	var initErr *InitializationError
	if !errors.As(err, &initErr) {
		t.Fatalf("expected *InitializationError, got %T", err)
	}
	if initErr.Kind != KindOllama || initErr.Model != "nomic-embed-text" {
		t.Errorf("expected error to name the provider identity, got %+v", initErr)
	}

	// Provider recovers; a fresh attempt must succeed.
	healthy.Store(true)
	h, err := registry.GetOrCreate(context.Background(), KindOllama, "nomic-embed-text", nil)
	if err != nil {
		t.Fatalf("expected success after recovery, got %v", err)
	}
	if h == nil {
		t.Fatal("expected a handle after recovery")
	}
}

func TestRegistry_UnknownKind(t *testing.T) {
	registry := NewRegistry(Options{})

	_, err := registry.GetOrCreate(context.Background(), "cohere", "embed-v3", nil)
	if err == nil {
		t.Fatal("expected error for unknown provider kind")
	}
}

func TestRegistry_ResolveDimension(t *testing.T) {
	var tagCalls atomic.Int64
	var healthy atomic.Bool
	healthy.Store(true)
	srv := fakeOllama(t, 768, &tagCalls, &healthy)

	registry := NewRegistry(Options{OllamaBaseURL: srv.URL})

	dim, err := registry.ResolveDimension(context.Background(), KindOllama, "nomic-embed-text", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dim != 768 {
		t.Errorf("expected dimension 768, got %d", dim)
	}

	// An explicit dimension param overrides the model default.
	dim, err = registry.ResolveDimension(context.Background(), KindOllama, "custom-model", map[string]string{"dimension": "512"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dim != 512 {
		t.Errorf("expected dimension 512, got %d", dim)
	}
}
