package session

import (
	"fmt"
	"sync"

	"github.com/cory-johannsen/arena/internal/game/combat"
	"github.com/cory-johannsen/arena/internal/game/dice"
	"github.com/cory-johannsen/arena/internal/game/loot"
)

// Skill is a castable combat skill. Damage, when set, is a dice expression
// (e.g. "2d6+1") rolled per cast; otherwise the flat Power value applies.
// The caster's level is added either way.
type Skill struct {
	Key    string `yaml:"key"`
	Name   string `yaml:"name"`
	Power  int    `yaml:"power"`
	Damage string `yaml:"damage"`
}

// SkillDamage resolves the damage one cast of s deals for a caster of the
// given level.
//
// Precondition: src must be non-nil when s.Damage is set.
// Postcondition: Returns a value >= the caster's level, or a parse error for
// a malformed damage expression.
func SkillDamage(s Skill, level int, src dice.Source) (int, error) {
	if s.Damage == "" {
		return s.Power + level, nil
	}
	result, err := dice.RollExpr(s.Damage, src)
	if err != nil {
		return 0, fmt.Errorf("rolling damage for skill %q: %w", s.Key, err)
	}
	return result.Total() + level, nil
}

// DamageTaker is implemented by any character that can receive skill damage.
type DamageTaker interface {
	// ApplyDamage reduces the character's hit points by amount, floored at 0.
	ApplyDamage(amount int)
}

// PlayerCharacter is a connected player's runtime character. It implements
// combat.Character; all methods are safe for concurrent use.
type PlayerCharacter struct {
	uid          string
	name         string
	level        int
	maxHP        int
	entity       *BridgeEntity
	skills       map[string]Skill
	defaultSkill string
	rng          dice.Source

	mu        sync.Mutex
	currentHP int
	auto      bool
}

// NewPlayerCharacter creates a player character at full health.
//
// Precondition: uid and name must be non-empty; level and maxHP must be >= 1;
// defaultSkill must be a key present in skills when skills is non-empty.
func NewPlayerCharacter(uid, name string, level, maxHP int, skills []Skill, defaultSkill string, entity *BridgeEntity) *PlayerCharacter {
	byKey := make(map[string]Skill, len(skills))
	for _, s := range skills {
		byKey[s.Key] = s
	}
	return &PlayerCharacter{
		uid:          uid,
		name:         name,
		level:        level,
		maxHP:        maxHP,
		currentHP:    maxHP,
		entity:       entity,
		skills:       byKey,
		defaultSkill: defaultSkill,
		rng:          dice.NewCryptoSource(),
	}
}

// SetDiceSource replaces the damage roll source. Tests use a seeded source
// for reproducible rolls.
func (p *PlayerCharacter) SetDiceSource(src dice.Source) {
	p.rng = src
}

// UID returns the character's unique identifier.
func (p *PlayerCharacter) UID() string { return p.uid }

// Name returns the character's display name.
func (p *PlayerCharacter) Name() string { return p.name }

// Level returns the character's level.
func (p *PlayerCharacter) Level() int { return p.level }

// IsAlive reports whether the character has hit points remaining.
func (p *PlayerCharacter) IsAlive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentHP > 0
}

// IsPlayer always reports true: a human controls this character.
func (p *PlayerCharacter) IsPlayer() bool { return true }

// CurrentHP returns the character's current hit points.
func (p *PlayerCharacter) CurrentHP() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentHP
}

// ApplyDamage reduces hit points by amount, floored at 0.
func (p *PlayerCharacter) ApplyDamage(amount int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.currentHP -= amount
	if p.currentHP < 0 {
		p.currentHP = 0
	}
}

// Restore refills the character to full health. Used between matches.
func (p *PlayerCharacter) Restore() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.currentHP = p.maxHP
}

// CastSkill applies the named skill against target. An empty skillKey casts
// the character's default skill. A nil target is a whiff, not an error.
//
// Postcondition: If target takes damage, the amount comes from SkillDamage.
func (p *PlayerCharacter) CastSkill(skillKey string, target combat.Character) error {
	if skillKey == "" {
		skillKey = p.defaultSkill
	}
	skill, ok := p.skills[skillKey]
	if !ok {
		return fmt.Errorf("character %s has no skill %q", p.uid, skillKey)
	}
	if !p.IsAlive() {
		return fmt.Errorf("character %s cannot cast while dead", p.uid)
	}
	if target == nil {
		return nil
	}
	damage, err := SkillDamage(skill, p.level, p.rng)
	if err != nil {
		return err
	}
	if taker, ok := target.(DamageTaker); ok {
		taker.ApplyDamage(damage)
	}
	return nil
}

// ProvideExp returns the experience this character yields when defeated.
func (p *PlayerCharacter) ProvideExp(_ combat.Character) int {
	return p.level * 5
}

// Loot returns nil: players never drop items.
func (p *PlayerCharacter) Loot(_ combat.Character) []loot.Drop {
	return nil
}

// Msg pushes a payload to the character's event bridge. Delivery failures
// (closed entity, full buffer) are dropped.
func (p *PlayerCharacter) Msg(payload combat.Payload) {
	if p.entity == nil {
		return
	}
	_ = p.entity.Push(payload)
}

// StartAutoCombatSkill flags the character's automatic skill loop active.
// The game tick drives the actual casting.
func (p *PlayerCharacter) StartAutoCombatSkill() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.auto = true
}

// StopAutoCombatSkill halts the automatic skill loop. Idempotent.
func (p *PlayerCharacter) StopAutoCombatSkill() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.auto = false
}

// AutoCombatActive reports whether the automatic skill loop is active.
func (p *PlayerCharacter) AutoCombatActive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.auto
}

// Entity returns the character's event bridge.
func (p *PlayerCharacter) Entity() *BridgeEntity {
	return p.entity
}
