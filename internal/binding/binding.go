// Package binding maps collection names to the embedding provider and
// vector schema each collection was created with.
package binding

import "fmt"

// CollectionBinding associates a collection with the embedding provider
// and vector schema it was built with. Immutable once registered for the
// lifetime of the process.
type CollectionBinding struct {
	// Collection is the unique collection name.
	Collection string `json:"collection"`

	// ProviderKind selects the embedding provider ("ollama", "openai").
	ProviderKind string `json:"embedding_provider"`

	// Model is the embedding model identifier.
	Model string `json:"embedding_model"`

	// VectorField is the named vector field the collection stores
	// embeddings under. Store and search must both use this name.
	VectorField string `json:"vector_name"`

	// Dimension is the vector dimensionality the collection was created
	// with. Must match what the bound provider actually produces.
	Dimension int `json:"vector_size"`

	// Params carries provider-specific settings (base_url, api_key, ...).
	Params map[string]string `json:"params,omitempty"`
}

// ConfigurationError reports a bad or conflicting binding. Fatal to that
// binding only; other bindings are unaffected.
type ConfigurationError struct {
	Collection string
	Reason     string
	Err        error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid binding for collection %q: %s: %v", e.Collection, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid binding for collection %q: %s", e.Collection, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
