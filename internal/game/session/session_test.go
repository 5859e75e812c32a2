package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/arena/internal/game/combat"
)

func testSkills() []Skill {
	return []Skill{
		{Key: "slash", Name: "Slash", Power: 5},
		{Key: "lunge", Name: "Lunge", Power: 9},
	}
}

func TestBridgeEntity_PushAndReceive(t *testing.T) {
	e := NewBridgeEntity("alice", 4)

	require.NoError(t, e.Push(combat.Payload{"type": "test"}))
	got := <-e.Events()
	assert.Equal(t, "test", got["type"])
}

func TestBridgeEntity_PushAfterCloseFails(t *testing.T) {
	e := NewBridgeEntity("alice", 4)
	require.NoError(t, e.Close())

	assert.Error(t, e.Push(combat.Payload{"type": "test"}))
	assert.True(t, e.IsClosed())
}

func TestBridgeEntity_CloseIdempotent(t *testing.T) {
	e := NewBridgeEntity("alice", 4)
	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
}

func TestBridgeEntity_FullBufferRejects(t *testing.T) {
	e := NewBridgeEntity("alice", 1)
	require.NoError(t, e.Push(combat.Payload{"n": 1}))
	assert.Error(t, e.Push(combat.Payload{"n": 2}))
}

func TestPlayerCharacter_CastSkillDamagesTarget(t *testing.T) {
	attacker := NewPlayerCharacter("a", "Alice", 3, 50, testSkills(), "slash", nil)
	defender := NewPlayerCharacter("b", "Bob", 1, 50, testSkills(), "slash", nil)

	require.NoError(t, attacker.CastSkill("lunge", defender))

	// power 9 + level 3
	assert.Equal(t, 38, defender.CurrentHP())
}

// fixedSource always rolls the same face for reproducible damage.
type fixedSource struct{ v int }

func (f fixedSource) Intn(n int) int { return f.v % n }

func TestPlayerCharacter_DiceDamageSkill(t *testing.T) {
	skills := []Skill{{Key: "volley", Name: "Volley", Damage: "2d6+1"}}
	attacker := NewPlayerCharacter("a", "Alice", 2, 50, skills, "volley", nil)
	attacker.SetDiceSource(fixedSource{v: 2})
	defender := NewPlayerCharacter("b", "Bob", 1, 50, testSkills(), "slash", nil)

	require.NoError(t, attacker.CastSkill("volley", defender))

	// two dice at face 3, +1 modifier, +2 level
	assert.Equal(t, 41, defender.CurrentHP())
}

func TestPlayerCharacter_MalformedDamageExpressionFails(t *testing.T) {
	skills := []Skill{{Key: "volley", Name: "Volley", Damage: "2x6"}}
	attacker := NewPlayerCharacter("a", "Alice", 2, 50, skills, "volley", nil)
	defender := NewPlayerCharacter("b", "Bob", 1, 50, testSkills(), "slash", nil)

	assert.Error(t, attacker.CastSkill("volley", defender))
	assert.Equal(t, 50, defender.CurrentHP())
}

func TestPlayerCharacter_EmptyKeyCastsDefaultSkill(t *testing.T) {
	attacker := NewPlayerCharacter("a", "Alice", 2, 50, testSkills(), "slash", nil)
	defender := NewPlayerCharacter("b", "Bob", 1, 50, testSkills(), "slash", nil)

	require.NoError(t, attacker.CastSkill("", defender))
	assert.Equal(t, 43, defender.CurrentHP())
}

func TestPlayerCharacter_UnknownSkillFails(t *testing.T) {
	attacker := NewPlayerCharacter("a", "Alice", 2, 50, testSkills(), "slash", nil)
	assert.Error(t, attacker.CastSkill("fireball", nil))
}

func TestPlayerCharacter_DeadCannotCast(t *testing.T) {
	attacker := NewPlayerCharacter("a", "Alice", 2, 10, testSkills(), "slash", nil)
	attacker.ApplyDamage(10)

	require.False(t, attacker.IsAlive())
	assert.Error(t, attacker.CastSkill("slash", nil))
}

func TestPlayerCharacter_NilTargetIsWhiff(t *testing.T) {
	attacker := NewPlayerCharacter("a", "Alice", 2, 10, testSkills(), "slash", nil)
	assert.NoError(t, attacker.CastSkill("slash", nil))
}

func TestPlayerCharacter_DamageFlooredAtZero(t *testing.T) {
	p := NewPlayerCharacter("a", "Alice", 1, 10, testSkills(), "slash", nil)
	p.ApplyDamage(99)
	assert.Equal(t, 0, p.CurrentHP())
	assert.False(t, p.IsAlive())
}

func TestPlayerCharacter_RestoreRefillsHealth(t *testing.T) {
	p := NewPlayerCharacter("a", "Alice", 1, 10, testSkills(), "slash", nil)
	p.ApplyDamage(7)
	p.Restore()
	assert.Equal(t, 10, p.CurrentHP())
}

func TestPlayerCharacter_AutoCombatFlag(t *testing.T) {
	p := NewPlayerCharacter("a", "Alice", 1, 10, testSkills(), "slash", nil)

	assert.False(t, p.AutoCombatActive())
	p.StartAutoCombatSkill()
	assert.True(t, p.AutoCombatActive())
	p.StopAutoCombatSkill()
	p.StopAutoCombatSkill()
	assert.False(t, p.AutoCombatActive())
}

func TestPlayerCharacter_MsgDeliversToEntity(t *testing.T) {
	e := NewBridgeEntity("a", 4)
	p := NewPlayerCharacter("a", "Alice", 1, 10, testSkills(), "slash", e)

	p.Msg(combat.Payload{"type": "combat_over"})
	got := <-e.Events()
	assert.Equal(t, "combat_over", got["type"])
}

func TestManager_AddAndLookup(t *testing.T) {
	m := NewManager()

	p, err := m.AddPlayer("a", "Alice", 2, 50, testSkills(), "slash")
	require.NoError(t, err)
	require.NotNil(t, p.Entity())

	got, ok := m.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, "Alice", got.Name())
	assert.Equal(t, 1, m.Count())
	assert.Equal(t, 1, m.PlayerCount())
}

func TestManager_DuplicateUIDRejected(t *testing.T) {
	m := NewManager()
	_, err := m.AddPlayer("a", "Alice", 2, 50, testSkills(), "slash")
	require.NoError(t, err)

	_, err = m.AddPlayer("a", "Impostor", 2, 50, testSkills(), "slash")
	assert.Error(t, err)
}

func TestManager_RemoveClosesEntity(t *testing.T) {
	m := NewManager()
	p, err := m.AddPlayer("a", "Alice", 2, 50, testSkills(), "slash")
	require.NoError(t, err)

	require.NoError(t, m.Remove("a"))
	assert.True(t, p.Entity().IsClosed())
	_, ok := m.Lookup("a")
	assert.False(t, ok)

	assert.Error(t, m.Remove("a"))
}

func TestManager_GetByName(t *testing.T) {
	m := NewManager()
	_, err := m.AddPlayer("a", "Alice", 2, 50, testSkills(), "slash")
	require.NoError(t, err)

	got, ok := m.GetByName("Alice")
	require.True(t, ok)
	assert.Equal(t, "a", got.UID())

	_, ok = m.GetByName("Nobody")
	assert.False(t, ok)
}
