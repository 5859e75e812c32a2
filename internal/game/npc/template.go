// Package npc provides NPC template definitions and live combatant instances.
package npc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/arena/internal/game/loot"
	"github.com/cory-johannsen/arena/internal/game/session"
)

// Template defines a reusable NPC archetype loaded from YAML.
type Template struct {
	ID          string          `yaml:"id"`
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	Level       int             `yaml:"level"`
	MaxHP       int             `yaml:"max_hp"`
	// ExpValue is the experience the NPC yields to each victor when defeated.
	ExpValue int             `yaml:"exp_value"`
	Skills   []session.Skill `yaml:"skills"`
	// DefaultSkill is the key cast by the automatic combat loop; must be
	// present in Skills when Skills is non-empty.
	DefaultSkill string     `yaml:"default_skill"`
	Loot         loot.Table `yaml:"loot"`
}

// Validate checks that the template satisfies basic invariants.
//
// Postcondition: Returns nil iff ID and Name are non-empty, Level >= 1,
// MaxHP >= 1, DefaultSkill resolves, and the loot table is valid; returns an
// error on the first violation otherwise.
func (t *Template) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("npc template: id must not be empty")
	}
	if t.Name == "" {
		return fmt.Errorf("npc template %q: name must not be empty", t.ID)
	}
	if t.Level < 1 {
		return fmt.Errorf("npc template %q: level must be >= 1", t.ID)
	}
	if t.MaxHP < 1 {
		return fmt.Errorf("npc template %q: max_hp must be >= 1", t.ID)
	}
	if t.ExpValue < 0 {
		return fmt.Errorf("npc template %q: exp_value must be >= 0", t.ID)
	}
	if len(t.Skills) > 0 {
		found := false
		for _, s := range t.Skills {
			if s.Key == "" {
				return fmt.Errorf("npc template %q: skill key must not be empty", t.ID)
			}
			if s.Key == t.DefaultSkill {
				found = true
			}
		}
		if !found {
			return fmt.Errorf("npc template %q: default_skill %q not in skills", t.ID, t.DefaultSkill)
		}
	}
	if err := t.Loot.Validate(); err != nil {
		return fmt.Errorf("npc template %q: %w", t.ID, err)
	}
	return nil
}

// LoadTemplateFromBytes parses a single NPC template from raw YAML bytes.
//
// Precondition: data must be valid YAML for a single Template.
// Postcondition: Returns a validated *Template, or an error.
func LoadTemplateFromBytes(data []byte) (*Template, error) {
	var tmpl Template
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return nil, fmt.Errorf("parsing template YAML: %w", err)
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// LoadTemplates reads all *.yaml files in dir and returns the parsed templates.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all templates or an error on the first parse or
// validate failure; on error, the partial result is discarded.
func LoadTemplates(dir string) ([]*Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading npc dir %q: %w", dir, err)
	}

	var templates []*Template
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}

		tmpl, err := LoadTemplateFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		templates = append(templates, tmpl)
	}
	return templates, nil
}
