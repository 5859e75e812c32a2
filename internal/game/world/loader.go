package world

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// yamlItemFile is the top-level YAML structure for item files.
type yamlItemFile struct {
	Items []Item `yaml:"items"`
}

// LoadItemsFromBytes parses item definitions from YAML bytes.
//
// Precondition: data must be valid YAML conforming to the item schema.
// Postcondition: Returns the parsed items or a non-nil error.
func LoadItemsFromBytes(data []byte) ([]Item, error) {
	var file yamlItemFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing item YAML: %w", err)
	}
	return file.Items, nil
}

// LoadItemsFromFile reads item definitions from a single YAML file.
//
// Precondition: path must point to a valid YAML item file.
// Postcondition: Returns the parsed items or a non-nil error.
func LoadItemsFromFile(path string) ([]Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading item file %s: %w", path, err)
	}
	items, err := LoadItemsFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return items, nil
}

// LoadCatalogFromDir loads all YAML files in a directory into a Catalog.
// Non-YAML files are skipped.
//
// Precondition: dir must be a valid directory path.
// Postcondition: Returns a validated Catalog or the first error encountered.
func LoadCatalogFromDir(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading item directory %s: %w", dir, err)
	}

	var all []Item
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		items, err := LoadItemsFromFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
	}

	return NewCatalog(all)
}
