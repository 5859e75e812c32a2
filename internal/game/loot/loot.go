// Package loot — loot table schema and drop generation for defeated characters.
package loot

import (
	"fmt"
	"math/rand"
)

// Drop is a single awarded item stack: the shape the combat core receives
// from a defeated character's loot provider.
type Drop struct {
	// ItemKey references an item definition in the world catalog.
	ItemKey string
	// Level is the item's level at drop time.
	Level int
	// Quantity is the stack size; always >= 1.
	Quantity int
}

// TableEntry defines a single item entry in a loot table with a drop chance.
type TableEntry struct {
	ItemKey string  `yaml:"item"`
	Level   int     `yaml:"level"`
	Chance  float64 `yaml:"chance"`
	MinQty  int     `yaml:"min_qty"`
	MaxQty  int     `yaml:"max_qty"`
}

// Table defines the possible drops for a character template.
type Table struct {
	Entries []TableEntry `yaml:"entries"`
}

// Validate checks that the loot table satisfies its invariants.
//
// Postcondition: Returns nil iff all entry constraints hold; an empty table
// (no entries) is valid.
func (t Table) Validate() error {
	for i, e := range t.Entries {
		if e.ItemKey == "" {
			return fmt.Errorf("loot table: entry[%d] must have a non-empty item key", i)
		}
		if e.Chance <= 0 || e.Chance > 1.0 {
			return fmt.Errorf("loot table: entry[%d] chance must be in (0, 1.0], got %f", i, e.Chance)
		}
		if e.Level < 0 {
			return fmt.Errorf("loot table: entry[%d] level must be >= 0, got %d", i, e.Level)
		}
		if e.MinQty < 1 {
			return fmt.Errorf("loot table: entry[%d] min_qty must be >= 1, got %d", i, e.MinQty)
		}
		if e.MinQty > e.MaxQty {
			return fmt.Errorf("loot table: entry[%d] min_qty (%d) must be <= max_qty (%d)", i, e.MinQty, e.MaxQty)
		}
	}
	return nil
}

// Generate rolls drops from the table using the package-level math/rand source.
//
// Precondition: t must have passed Validate().
// Postcondition: Each returned Drop's Quantity is in [MinQty, MaxQty] for
// entries that pass the chance roll.
func Generate(t Table) []Drop {
	return GenerateWith(t, nil)
}

// GenerateWith rolls drops using the given source; a nil source falls back to
// the package-level math/rand functions. Tests pass a seeded source for
// reproducible rolls.
//
// Precondition: t must have passed Validate().
func GenerateWith(t Table, r *rand.Rand) []Drop {
	float := rand.Float64
	intn := rand.Intn
	if r != nil {
		float = r.Float64
		intn = r.Intn
	}

	var drops []Drop
	for _, e := range t.Entries {
		if float() >= e.Chance {
			continue
		}
		qty := e.MinQty
		if spread := e.MaxQty - e.MinQty; spread > 0 {
			qty += intn(spread + 1)
		}
		drops = append(drops, Drop{
			ItemKey:  e.ItemKey,
			Level:    e.Level,
			Quantity: qty,
		})
	}
	return drops
}
