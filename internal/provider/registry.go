// Package provider constructs and caches embedding provider handles
// keyed by provider identity.
package provider

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/knoguchi/qbridge/internal/embedder"
)

// Supported provider kinds. Dispatch is a closed switch over this set.
const (
	KindOllama = "ollama"
	KindOpenAI = "openai"
)

// InitializationError reports a provider that could not be initialized.
// Recoverable: failures are never cached and a later retry may succeed.
type InitializationError struct {
	Kind  string
	Model string
	Err   error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("failed to initialize %s provider for model %q: %v", e.Kind, e.Model, e.Err)
}

func (e *InitializationError) Unwrap() error {
	return e.Err
}

// Handle is a ready-to-use embedding provider. Owned by the Registry and
// shared read-only by callers. Identity is (Kind, Model).
type Handle struct {
	Kind  string
	Model string

	embedder.Embedder
}

// Options configures the registry's provider construction defaults.
type Options struct {
	// OllamaBaseURL is used when a binding does not carry its own base_url.
	OllamaBaseURL string

	// OpenAIBaseURL and OpenAIAPIKey are used when a binding does not
	// carry its own base_url / api_key.
	OpenAIBaseURL string
	OpenAIAPIKey  string

	// InitTimeout bounds the reachability check performed when a handle
	// is first constructed. Zero means 10 seconds.
	InitTimeout time.Duration

	// HTTPClient is an optional shared HTTP client for all providers.
	HTTPClient *http.Client
}

// Registry constructs and caches provider handles. Concurrent requests
// for the same identity share a single in-flight initialization; exactly
// one reachability check runs no matter how many callers race.
type Registry struct {
	opts  Options
	group singleflight.Group

	mu      sync.RWMutex
	handles map[string]*Handle
}

// NewRegistry creates an empty provider registry.
func NewRegistry(opts Options) *Registry {
	if opts.InitTimeout <= 0 {
		opts.InitTimeout = 10 * time.Second
	}
	return &Registry{
		opts:    opts,
		handles: make(map[string]*Handle),
	}
}

// GetOrCreate returns the cached handle for (kind, model), constructing
// and validating it on first use. Initialization failures surface as
// *InitializationError and are not cached.
func (r *Registry) GetOrCreate(ctx context.Context, kind, model string, params map[string]string) (*Handle, error) {
	key := kind + "/" + model

	r.mu.RLock()
	h, ok := r.handles[key]
	r.mu.RUnlock()
	if ok {
		return h, nil
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		// Another caller may have finished between the cache miss and
		// the singleflight slot.
		r.mu.RLock()
		h, ok := r.handles[key]
		r.mu.RUnlock()
		if ok {
			return h, nil
		}

		emb, err := r.build(kind, model, params)
		if err != nil {
			return nil, err
		}

		pingCtx, cancel := context.WithTimeout(ctx, r.opts.InitTimeout)
		defer cancel()
		if err := emb.Ping(pingCtx); err != nil {
			return nil, &InitializationError{Kind: kind, Model: model, Err: err}
		}

		h = &Handle{Kind: kind, Model: model, Embedder: emb}
		r.mu.Lock()
		r.handles[key] = h
		r.mu.Unlock()
		return h, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Handle), nil
}

// ResolveDimension reports the dimensionality the provider identity
// produces. Implements binding.DimensionResolver.
func (r *Registry) ResolveDimension(ctx context.Context, kind, model string, params map[string]string) (int, error) {
	h, err := r.GetOrCreate(ctx, kind, model, params)
	if err != nil {
		return 0, err
	}
	return h.Dimension(), nil
}

// build constructs the embedder for a provider kind. Unknown kinds fail
// here, before any network I/O.
func (r *Registry) build(kind, model string, params map[string]string) (embedder.Embedder, error) {
	dimension := 0
	if v, ok := params["dimension"]; ok {
		d, err := strconv.Atoi(v)
		if err != nil {
			return nil, &InitializationError{Kind: kind, Model: model,
				Err: fmt.Errorf("invalid dimension param %q: %w", v, err)}
		}
		dimension = d
	}

	switch kind {
	case KindOllama:
		baseURL := params["base_url"]
		if baseURL == "" {
			baseURL = r.opts.OllamaBaseURL
		}
		return embedder.NewOllamaEmbedder(embedder.OllamaConfig{
			BaseURL:    baseURL,
			Model:      model,
			Dimension:  dimension,
			HTTPClient: r.opts.HTTPClient,
		}), nil
	case KindOpenAI:
		baseURL := params["base_url"]
		if baseURL == "" {
			baseURL = r.opts.OpenAIBaseURL
		}
		apiKey := params["api_key"]
		if apiKey == "" {
			apiKey = r.opts.OpenAIAPIKey
		}
		return embedder.NewOpenAIEmbedder(embedder.OpenAIConfig{
			BaseURL:    baseURL,
			APIKey:     apiKey,
			Model:      model,
			Dimension:  dimension,
			HTTPClient: r.opts.HTTPClient,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider kind: %q", kind)
	}
}
