// Package world provides the world-data lookups the combat core consumes:
// item definitions used to resolve reward display names and icons.
package world

import (
	"fmt"
	"strings"
)

// Item is a world-data item definition.
type Item struct {
	// Key is the unique item key referenced by loot tables.
	Key string `yaml:"key"`
	// Name is the display name shown in reward notifications.
	Name string `yaml:"name"`
	// Icon is the client icon identifier.
	Icon string `yaml:"icon"`
	// Level is the item's level; informational.
	Level int `yaml:"level"`
}

// Validate checks the item's invariants.
//
// Postcondition: Returns nil iff Key and Name are non-empty.
func (i Item) Validate() error {
	if strings.TrimSpace(i.Key) == "" {
		return fmt.Errorf("item must have a non-empty key")
	}
	if strings.TrimSpace(i.Name) == "" {
		return fmt.Errorf("item %q must have a non-empty name", i.Key)
	}
	return nil
}

// Catalog is an in-memory item lookup keyed by item key.
// The catalog is built once at load time and read-only afterwards, so it
// needs no locking.
type Catalog struct {
	items map[string]Item
}

// NewCatalog builds a Catalog from the given items.
//
// Precondition: every item must pass Validate.
// Postcondition: Returns a Catalog or an error naming the first invalid or
// duplicated item.
func NewCatalog(items []Item) (*Catalog, error) {
	byKey := make(map[string]Item, len(items))
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return nil, err
		}
		key := normalizeKey(item.Key)
		if _, exists := byKey[key]; exists {
			return nil, fmt.Errorf("duplicate item key %q", item.Key)
		}
		byKey[key] = item
	}
	return &Catalog{items: byKey}, nil
}

// Lookup resolves an item key to its definition.
// Keys are matched case-insensitively.
//
// Postcondition: Returns (item, true) if found, or (zero Item, false) otherwise.
func (c *Catalog) Lookup(key string) (Item, bool) {
	item, ok := c.items[normalizeKey(key)]
	return item, ok
}

// Len returns the number of items in the catalog.
func (c *Catalog) Len() int {
	return len(c.items)
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
