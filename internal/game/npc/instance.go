package npc

import (
	"fmt"
	"sync"

	"github.com/cory-johannsen/arena/internal/game/combat"
	"github.com/cory-johannsen/arena/internal/game/dice"
	"github.com/cory-johannsen/arena/internal/game/loot"
	"github.com/cory-johannsen/arena/internal/game/session"
)

// Instance is a live NPC combatant spawned from a template. It implements
// combat.Character; all methods are safe for concurrent use.
type Instance struct {
	id           string
	templateID   string
	name         string
	level        int
	maxHP        int
	expValue     int
	skills       map[string]session.Skill
	defaultSkill string
	lootTable    loot.Table
	rng          dice.Source

	mu        sync.Mutex
	currentHP int
	auto      bool
}

// NewInstance creates a live NPC combatant from a template.
//
// Precondition: id must be non-empty; tmpl must have passed Validate().
// Postcondition: The instance starts at full health.
func NewInstance(id string, tmpl *Template) *Instance {
	skills := make(map[string]session.Skill, len(tmpl.Skills))
	for _, s := range tmpl.Skills {
		skills[s.Key] = s
	}
	return &Instance{
		id:           id,
		templateID:   tmpl.ID,
		name:         tmpl.Name,
		level:        tmpl.Level,
		maxHP:        tmpl.MaxHP,
		currentHP:    tmpl.MaxHP,
		expValue:     tmpl.ExpValue,
		skills:       skills,
		defaultSkill: tmpl.DefaultSkill,
		lootTable:    tmpl.Loot,
		rng:          dice.NewCryptoSource(),
	}
}

// SetDiceSource replaces the damage roll source. Tests use a seeded source
// for reproducible rolls.
func (i *Instance) SetDiceSource(src dice.Source) {
	i.rng = src
}

// UID returns the instance's unique identifier.
func (i *Instance) UID() string { return i.id }

// TemplateID returns the source template's ID.
func (i *Instance) TemplateID() string { return i.templateID }

// Name returns the instance's display name.
func (i *Instance) Name() string { return i.name }

// Level returns the instance's level.
func (i *Instance) Level() int { return i.level }

// IsAlive reports whether the instance has hit points remaining.
func (i *Instance) IsAlive() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.currentHP > 0
}

// IsPlayer always reports false.
func (i *Instance) IsPlayer() bool { return false }

// CurrentHP returns the instance's current hit points.
func (i *Instance) CurrentHP() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.currentHP
}

// ApplyDamage reduces hit points by amount, floored at 0.
func (i *Instance) ApplyDamage(amount int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.currentHP -= amount
	if i.currentHP < 0 {
		i.currentHP = 0
	}
}

// CastSkill applies the named skill against target. An empty skillKey casts
// the default skill. A nil target is a whiff, not an error.
func (i *Instance) CastSkill(skillKey string, target combat.Character) error {
	if skillKey == "" {
		skillKey = i.defaultSkill
	}
	skill, ok := i.skills[skillKey]
	if !ok {
		return fmt.Errorf("npc %s has no skill %q", i.id, skillKey)
	}
	if !i.IsAlive() {
		return fmt.Errorf("npc %s cannot cast while dead", i.id)
	}
	if target == nil {
		return nil
	}
	damage, err := session.SkillDamage(skill, i.level, i.rng)
	if err != nil {
		return err
	}
	if taker, ok := target.(session.DamageTaker); ok {
		taker.ApplyDamage(damage)
	}
	return nil
}

// ProvideExp returns the template's experience value.
func (i *Instance) ProvideExp(_ combat.Character) int {
	return i.expValue
}

// Loot rolls the template's loot table.
func (i *Instance) Loot(_ combat.Character) []loot.Drop {
	return loot.Generate(i.lootTable)
}

// Msg discards the payload: NPCs have no client to notify.
func (i *Instance) Msg(_ combat.Payload) {}

// StartAutoCombatSkill flags the automatic skill loop active. The game tick
// drives the actual casting.
func (i *Instance) StartAutoCombatSkill() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.auto = true
}

// StopAutoCombatSkill halts the automatic skill loop. Idempotent.
func (i *Instance) StopAutoCombatSkill() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.auto = false
}

// AutoCombatActive reports whether the automatic skill loop is active.
func (i *Instance) AutoCombatActive() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.auto
}

// HealthDescription returns a visible health state string for examine output.
//
// Postcondition: Returns a non-empty string.
func (i *Instance) HealthDescription() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.currentHP <= 0 {
		return "dead"
	}
	pct := float64(i.currentHP) / float64(i.maxHP)
	switch {
	case pct >= 1.0:
		return "unharmed"
	case pct >= 0.85:
		return "barely scratched"
	case pct >= 0.60:
		return "lightly wounded"
	case pct >= 0.40:
		return "moderately wounded"
	case pct >= 0.20:
		return "heavily wounded"
	default:
		return "critically wounded"
	}
}
