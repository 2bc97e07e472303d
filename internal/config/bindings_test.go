package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/knoguchi/qbridge/internal/binding"
)

func writeBindingsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bindings.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write bindings file: %v", err)
	}
	return path
}

func TestLoadBindings(t *testing.T) {
	path := writeBindingsFile(t, `{
		"collections": {
			"docs": {
				"embedding_provider": "ollama",
				"embedding_model": "nomic-embed-text",
				"vector_name": "ollama-nomic-embed-text",
				"vector_size": 768
			},
			"notes": {
				"embedding_provider": "openai",
				"embedding_model": "text-embedding-3-small",
				"vector_name": "openai-small",
				"vector_size": 1536
			}
		}
	}`)

	bindings, err := LoadBindings(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bindings) != 2 {
		t.Fatalf("expected 2 bindings, got %d", len(bindings))
	}

	byName := make(map[string]binding.CollectionBinding)
	for _, b := range bindings {
		byName[b.Collection] = b
	}
	docs, ok := byName["docs"]
	if !ok {
		t.Fatal("expected binding for docs")
	}
	if docs.ProviderKind != "ollama" || docs.Model != "nomic-embed-text" {
		t.Errorf("unexpected docs binding: %+v", docs)
	}
	if docs.VectorField != "ollama-nomic-embed-text" || docs.Dimension != 768 {
		t.Errorf("unexpected docs vector config: %+v", docs)
	}
	notes := byName["notes"]
	if notes.Dimension != 1536 {
		t.Errorf("expected notes dimension 1536, got %d", notes.Dimension)
	}
}

func TestLoadBindings_MissingFile(t *testing.T) {
	bindings, err := LoadBindings(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if bindings != nil {
		t.Errorf("expected nil bindings, got %v", bindings)
	}
}

func TestLoadBindings_MalformedJSON(t *testing.T) {
	path := writeBindingsFile(t, `{"collections": {`)

	_, err := LoadBindings(path)
	if err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestLoadBindings_EntryNamesDifferentCollection(t *testing.T) {
	path := writeBindingsFile(t, `{
		"collections": {
			"docs": {
				"collection": "other",
				"embedding_provider": "ollama",
				"embedding_model": "nomic-embed-text",
				"vector_name": "f",
				"vector_size": 768
			}
		}
	}`)

	_, err := LoadBindings(path)
	if err == nil {
		t.Fatal("expected error for mismatched collection name")
	}
	var cfgErr *binding.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigurationError, got %T", err)
	}
	if cfgErr.Collection != "docs" {
		t.Errorf("expected error to name collection docs, got %s", cfgErr.Collection)
	}
}
