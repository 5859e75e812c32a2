package combat

import "github.com/cory-johannsen/arena/internal/game/loot"

// Payload is a structured key-value notification message. The engine does not
// prescribe a wire format; the transport serializes payloads however it needs.
type Payload map[string]any

// Character is the engine's view of a character object. Characters are owned
// by the surrounding game server; the engine only calls across this interface
// and must tolerate any call taking arbitrarily long.
type Character interface {
	// UID returns the character's unique identifier.
	UID() string
	// Name returns the character's display name.
	Name() string
	// IsAlive reports whether the character can still fight. Aliveness is
	// always queried live, never cached by the engine.
	IsAlive() bool
	// IsPlayer reports whether a human controls this character.
	IsPlayer() bool
	// CastSkill applies a skill against the target. The skill math lives in
	// the character's own logic; target may be nil when the intended target
	// could not be resolved.
	CastSkill(skillKey string, target Character) error
	// ProvideExp returns the experience this character yields to receiver
	// when defeated.
	ProvideExp(receiver Character) int
	// Loot returns the candidate drops this character yields to receiver
	// when defeated.
	Loot(receiver Character) []loot.Drop
	// Msg delivers a notification payload. Fire and forget: delivery failures
	// are the transport's problem, never the engine's.
	Msg(payload Payload)
	// StartAutoCombatSkill begins the character's automatic skill loop.
	StartAutoCombatSkill()
	// StopAutoCombatSkill halts the character's automatic skill loop.
	// Must be idempotent.
	StopAutoCombatSkill()
}

// ItemCatalog resolves item keys to display data for reward notifications.
type ItemCatalog interface {
	// Lookup returns the item definition for key, or ok=false if unknown.
	Lookup(key string) (ItemInfo, bool)
}

// ItemInfo is the display data the engine needs for one reward item.
type ItemInfo struct {
	// Name is the item's display name.
	Name string
	// Icon is the client icon identifier.
	Icon string
}
