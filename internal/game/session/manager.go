package session

import (
	"fmt"
	"sync"

	"github.com/cory-johannsen/arena/internal/game/combat"
)

// Manager tracks every live runtime character: connected players and spawned
// NPCs. It is the directory the matchmaking queue and command layer resolve
// character IDs through. All methods are safe for concurrent use.
type Manager struct {
	mu         sync.RWMutex
	characters map[string]combat.Character // uid → character
	players    map[string]*PlayerCharacter // uid → player subset
}

// NewManager creates an empty character Manager.
func NewManager() *Manager {
	return &Manager{
		characters: make(map[string]combat.Character),
		players:    make(map[string]*PlayerCharacter),
	}
}

// AddPlayer creates a player character with an event bridge and registers it.
//
// Precondition: uid and name must be non-empty; level and maxHP must be >= 1.
// Postcondition: Returns the created PlayerCharacter, or an error if the UID
// is already registered.
func (m *Manager) AddPlayer(uid, name string, level, maxHP int, skills []Skill, defaultSkill string) (*PlayerCharacter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.characters[uid]; exists {
		return nil, fmt.Errorf("character %q already connected", uid)
	}

	entity := NewBridgeEntity(uid, 64)
	player := NewPlayerCharacter(uid, name, level, maxHP, skills, defaultSkill, entity)

	m.characters[uid] = player
	m.players[uid] = player
	return player, nil
}

// Register adds an externally built character, typically an NPC instance.
//
// Postcondition: The character resolves via Lookup, or an error if the UID
// is already registered.
func (m *Manager) Register(c combat.Character) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.characters[c.UID()]; exists {
		return fmt.Errorf("character %q already registered", c.UID())
	}
	m.characters[c.UID()] = c
	return nil
}

// Remove unregisters a character. A player's event bridge is closed.
//
// Postcondition: The character no longer resolves. Returns an error if not found.
func (m *Manager) Remove(uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.characters[uid]; !exists {
		return fmt.Errorf("character %q not found", uid)
	}
	if player, ok := m.players[uid]; ok {
		_ = player.Entity().Close()
		delete(m.players, uid)
	}
	delete(m.characters, uid)
	return nil
}

// Lookup resolves a character by UID. Satisfies the matchmaking queue's
// directory contract.
//
// Postcondition: Returns (character, true) if found, or (nil, false) otherwise.
func (m *Manager) Lookup(uid string) (combat.Character, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.characters[uid]
	return c, ok
}

// GetPlayer returns the player character for the given UID.
//
// Postcondition: Returns (player, true) if found and a player, or (nil, false).
func (m *Manager) GetPlayer(uid string) (*PlayerCharacter, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.players[uid]
	return p, ok
}

// GetByName returns the first character with the given display name.
//
// Postcondition: Returns (character, true) if found, or (nil, false) otherwise.
func (m *Manager) GetByName(name string) (combat.Character, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.characters {
		if c.Name() == name {
			return c, true
		}
	}
	return nil, false
}

// Count returns the total number of registered characters.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.characters)
}

// PlayerCount returns the number of connected players.
func (m *Manager) PlayerCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.players)
}
