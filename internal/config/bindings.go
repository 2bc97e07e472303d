package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/knoguchi/qbridge/internal/binding"
)

// bindingsFile is the on-disk shape of the bindings file: a single
// "collections" object keyed by collection name.
type bindingsFile struct {
	Collections map[string]binding.CollectionBinding `json:"collections"`
}

// LoadBindings reads collection bindings from a JSON file. A missing
// file is not an error; the service then runs on the default binding
// alone. A present but unreadable or malformed file is.
func LoadBindings(path string) ([]binding.CollectionBinding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read bindings file %s: %w", path, err)
	}

	var file bindingsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse bindings file %s: %w", path, err)
	}

	bindings := make([]binding.CollectionBinding, 0, len(file.Collections))
	for name, b := range file.Collections {
		if b.Collection != "" && b.Collection != name {
			return nil, &binding.ConfigurationError{
				Collection: name,
				Reason:     fmt.Sprintf("entry names collection %q under key %q", b.Collection, name),
			}
		}
		b.Collection = name
		bindings = append(bindings, b)
	}
	return bindings, nil
}
