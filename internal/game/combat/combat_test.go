package combat_test

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/combat"
	"github.com/cory-johannsen/arena/internal/game/loot"
	"github.com/cory-johannsen/arena/internal/observability"
)

// testChar is a scriptable Character double.
type testChar struct {
	mu        sync.Mutex
	uid       string
	name      string
	alive     bool
	player    bool
	exp       int
	drops     []loot.Drop
	castErr   error
	onCast    func(skillKey string, target combat.Character)
	payloads  []combat.Payload
	autoOn    int
	autoOff   int
	castCalls int
}

func newTestChar(uid string, player bool) *testChar {
	return &testChar{uid: uid, name: uid, alive: true, player: player}
}

func (c *testChar) UID() string  { return c.uid }
func (c *testChar) Name() string { return c.name }

func (c *testChar) IsAlive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alive
}

func (c *testChar) IsPlayer() bool { return c.player }

func (c *testChar) CastSkill(skillKey string, target combat.Character) error {
	c.mu.Lock()
	c.castCalls++
	err := c.castErr
	onCast := c.onCast
	c.mu.Unlock()
	if err != nil {
		return err
	}
	if onCast != nil {
		onCast(skillKey, target)
	}
	return nil
}

func (c *testChar) ProvideExp(combat.Character) int { return c.exp }

func (c *testChar) Loot(combat.Character) []loot.Drop { return c.drops }

func (c *testChar) Msg(payload combat.Payload) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payloads = append(c.payloads, payload)
}

func (c *testChar) StartAutoCombatSkill() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autoOn++
}

func (c *testChar) StopAutoCombatSkill() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autoOff++
}

func (c *testChar) kill() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alive = false
}

func (c *testChar) messages() []combat.Payload {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]combat.Payload, len(c.payloads))
	copy(out, c.payloads)
	return out
}

// outcomes returns the "outcome" field of every combat_result payload received.
func (c *testChar) outcomes() []string {
	var out []string
	for _, p := range c.messages() {
		if p["type"] != "combat_result" {
			continue
		}
		if o, ok := p["outcome"].(string); ok {
			out = append(out, o)
		}
	}
	return out
}

// fakeCatalog resolves item keys from a fixed map.
type fakeCatalog struct {
	items map[string]combat.ItemInfo
}

func (f *fakeCatalog) Lookup(key string) (combat.ItemInfo, bool) {
	info, ok := f.items[key]
	return info, ok
}

// fakeAdjuster records Adjust calls and returns canned deltas.
type fakeAdjuster struct {
	mu      sync.Mutex
	winners []string
	losers  []string
	deltas  map[string]int
	err     error
	calls   int
}

func (f *fakeAdjuster) Adjust(_ context.Context, winnerIDs, loserIDs []string) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.winners = winnerIDs
	f.losers = loserIDs
	if f.err != nil {
		return nil, f.err
	}
	return f.deltas, nil
}

// newTestCalculator builds a Calculator over the given item definitions.
func newTestCalculator(items map[string]combat.ItemInfo) *combat.Calculator {
	return combat.NewCalculator(&fakeCatalog{items: items}, zap.NewNop())
}

// newTestSession builds a populated, started session for state machine tests.
func newTestSession(t combat.Type, ratings combat.RatingAdjuster, teams ...combat.Team) *combat.Session {
	calc := newTestCalculator(nil)
	sess := combat.NewSession(t, calc, ratings, zap.NewNop(), observability.NewTestMetrics(), nil)
	if err := sess.SetCombat(teams, "test fight", 0); err != nil {
		panic(err)
	}
	sess.Start()
	return sess
}
