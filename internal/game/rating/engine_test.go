package rating

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/arena/internal/observability"
)

// memStore is an in-memory Store for tests.
type memStore struct {
	mu      sync.Mutex
	ratings map[string]int
	failSet error
	failGet error
	failAll error
}

func newMemStore(ratings map[string]int) *memStore {
	if ratings == nil {
		ratings = make(map[string]int)
	}
	return &memStore{ratings: ratings}
}

func (s *memStore) Get(_ context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGet != nil {
		return 0, s.failGet
	}
	r, ok := s.ratings[id]
	if !ok {
		return 0, ErrNotFound
	}
	return r, nil
}

func (s *memStore) SetMany(_ context.Context, ratings map[string]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSet != nil {
		return s.failSet
	}
	for id, r := range ratings {
		s.ratings[id] = r
	}
	return nil
}

func (s *memStore) All(_ context.Context) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll != nil {
		return nil, s.failAll
	}
	out := make(map[string]int, len(s.ratings))
	for id, r := range s.ratings {
		out[id] = r
	}
	return out, nil
}

func newTestEngine(t *testing.T, ratings map[string]int) (*Engine, *memStore) {
	t.Helper()
	store := newMemStore(ratings)
	eng := NewEngine(store, 1000, zap.NewNop(), observability.NewTestMetrics())
	require.NoError(t, eng.Reload(context.Background()))
	return eng, store
}

// TestAdjust_EqualRatings verifies the diff=0 band: winner +10, loser -10.
func TestAdjust_EqualRatings(t *testing.T) {
	eng, store := newTestEngine(t, map[string]int{"w": 1000, "l": 1000})

	deltas, err := eng.Adjust(context.Background(), []string{"w"}, []string{"l"})
	require.NoError(t, err)

	assert.Equal(t, 10, deltas["w"])
	assert.Equal(t, -10, deltas["l"])
	assert.Equal(t, 1010, store.ratings["w"])
	assert.Equal(t, 990, store.ratings["l"])
}

// TestAdjust_UnevenMatch verifies the published 1200-vs-1000 outcome:
// the favoured winner gains only 5 while the loser drops 10.
func TestAdjust_UnevenMatch(t *testing.T) {
	eng, store := newTestEngine(t, map[string]int{"a": 1200, "b": 1000})

	deltas, err := eng.Adjust(context.Background(), []string{"a"}, []string{"b"})
	require.NoError(t, err)

	assert.Equal(t, 5, deltas["a"])
	assert.Equal(t, -10, deltas["b"])
	assert.Equal(t, 1205, store.ratings["a"])
	assert.Equal(t, 990, store.ratings["b"])
}

// TestAdjust_FlooredAtZero verifies a loser with rating 5 lands at 0, not -5.
func TestAdjust_FlooredAtZero(t *testing.T) {
	eng, store := newTestEngine(t, map[string]int{"w": 10, "l": 5})

	deltas, err := eng.Adjust(context.Background(), []string{"w"}, []string{"l"})
	require.NoError(t, err)

	assert.Equal(t, 0, store.ratings["l"])
	assert.Equal(t, -5, deltas["l"])
}

// TestAdjust_UnknownCharactersUseInitialRating verifies characters with no
// stored rating are treated as holding the configured initial value.
func TestAdjust_UnknownCharactersUseInitialRating(t *testing.T) {
	eng, store := newTestEngine(t, nil)

	deltas, err := eng.Adjust(context.Background(), []string{"w"}, []string{"l"})
	require.NoError(t, err)

	assert.Equal(t, 10, deltas["w"])
	assert.Equal(t, 1010, store.ratings["w"])
	assert.Equal(t, 990, store.ratings["l"])
}

// TestAdjust_EmptyLosers verifies the losers' average is 0 when there are no
// losers, pushing a high-rated winner into the no-gain band.
func TestAdjust_EmptyLosers(t *testing.T) {
	eng, store := newTestEngine(t, map[string]int{"w": 1000})

	deltas, err := eng.Adjust(context.Background(), []string{"w"}, nil)
	require.NoError(t, err)

	// diff = 0 - 1000, below every band.
	assert.Equal(t, 0, deltas["w"])
	assert.Equal(t, 1000, store.ratings["w"])
}

// TestAdjust_TeamAverages verifies winner deltas are keyed off the losers'
// mean, not any individual loser.
func TestAdjust_TeamAverages(t *testing.T) {
	eng, store := newTestEngine(t, map[string]int{
		"w1": 1000, "w2": 1000,
		"l1": 1400, "l2": 1000, // mean 1200
	})

	_, err := eng.Adjust(context.Background(), []string{"w1", "w2"}, []string{"l1", "l2"})
	require.NoError(t, err)

	// diff = 1200 - 1000 = 200: gain 15 for both winners.
	assert.Equal(t, 1015, store.ratings["w1"])
	assert.Equal(t, 1015, store.ratings["w2"])
	// Losers against winners' mean 1000: l1 diff -400 (no band), l2 diff 0 (-10).
	assert.Equal(t, 1400, store.ratings["l1"])
	assert.Equal(t, 990, store.ratings["l2"])
}

func TestAdjust_PersistFailurePropagates(t *testing.T) {
	eng, store := newTestEngine(t, map[string]int{"w": 1000, "l": 1000})
	store.failSet = errors.New("connection reset")

	_, err := eng.Adjust(context.Background(), []string{"w"}, []string{"l"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persisting ratings")
	// Nothing changed.
	assert.Equal(t, 1000, store.ratings["w"])
}

func TestGetRating_DefaultOnMissing(t *testing.T) {
	eng, _ := newTestEngine(t, map[string]int{"a": 1234})

	r, err := eng.GetRating(context.Background(), "a", 0)
	require.NoError(t, err)
	assert.Equal(t, 1234, r)

	r, err = eng.GetRating(context.Background(), "missing", 777)
	require.NoError(t, err)
	assert.Equal(t, 777, r)
}

func TestReload_TieOrdinalsCollapse(t *testing.T) {
	eng, _ := newTestEngine(t, map[string]int{
		"a": 1500, "b": 1200, "c": 1200, "d": 900,
	})

	top := eng.TopN(10)
	require.Len(t, top, 4)
	assert.Equal(t, []int{0, 1, 2, 3}, []int{top[0].RankIndex, top[1].RankIndex, top[2].RankIndex, top[3].RankIndex})
	// Tied 1200s share ordinal 2 and the next distinct rating takes 3:
	// ordinals are dense, never skipped past a tie.
	assert.Equal(t, 1, top[0].RankOrdinal)
	assert.Equal(t, 2, top[1].RankOrdinal)
	assert.Equal(t, 2, top[2].RankOrdinal)
	assert.Equal(t, 3, top[3].RankOrdinal)
}

func TestReload_TieOrdinalsNeverSkip(t *testing.T) {
	eng, _ := newTestEngine(t, map[string]int{
		"a": 1200, "b": 1200, "c": 900,
	})

	top := eng.TopN(10)
	require.Len(t, top, 3)
	assert.Equal(t, 1, top[0].RankOrdinal)
	assert.Equal(t, 1, top[1].RankOrdinal)
	assert.Equal(t, 2, top[2].RankOrdinal)
}

func TestReload_ExcludesNegativeSentinels(t *testing.T) {
	eng, _ := newTestEngine(t, map[string]int{"a": 1000, "banned": -1})

	top := eng.TopN(10)
	require.Len(t, top, 1)
	assert.Equal(t, "a", top[0].CharacterID)

	_, ok := eng.RankOf("banned")
	assert.False(t, ok)
}

func TestNearest_WindowClamping(t *testing.T) {
	eng, _ := newTestEngine(t, map[string]int{
		"r1": 1500, "r2": 1400, "r3": 1300, "r4": 1200, "r5": 1100,
	})

	// Centered window in the middle.
	mid := eng.Nearest("r3", 3)
	require.Len(t, mid, 3)
	assert.Equal(t, "r2", mid[0].CharacterID)
	assert.Equal(t, "r4", mid[2].CharacterID)

	// Clamped at the top.
	top := eng.Nearest("r1", 3)
	require.Len(t, top, 3)
	assert.Equal(t, "r1", top[0].CharacterID)

	// Clamped at the bottom.
	bottom := eng.Nearest("r5", 3)
	require.Len(t, bottom, 3)
	assert.Equal(t, "r5", bottom[2].CharacterID)

	// Window larger than the list returns everything.
	all := eng.Nearest("r3", 10)
	assert.Len(t, all, 5)

	// Unranked character yields nothing.
	assert.Nil(t, eng.Nearest("stranger", 3))
}

func TestTopN_Bounds(t *testing.T) {
	eng, _ := newTestEngine(t, map[string]int{"a": 1000, "b": 900})

	assert.Len(t, eng.TopN(1), 1)
	assert.Len(t, eng.TopN(5), 2)
	assert.Nil(t, eng.TopN(0))
}

// TestPropertyRatingNeverNegative verifies no adjustment ever produces a
// negative rating.
func TestPropertyRatingNeverNegative(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		wr := rapid.IntRange(0, 3000).Draw(t, "winner_rating")
		lr := rapid.IntRange(0, 3000).Draw(t, "loser_rating")
		store := newMemStore(map[string]int{"w": wr, "l": lr})
		eng := NewEngine(store, 1000, zap.NewNop(), observability.NewTestMetrics())
		if err := eng.Reload(context.Background()); err != nil {
			t.Fatalf("reload: %v", err)
		}

		_, err := eng.Adjust(context.Background(), []string{"w"}, []string{"l"})
		if err != nil {
			t.Fatalf("adjust: %v", err)
		}
		if store.ratings["w"] < 0 || store.ratings["l"] < 0 {
			t.Fatalf("negative rating after adjust: w=%d l=%d", store.ratings["w"], store.ratings["l"])
		}
	})
}

// TestPropertyWinnerBandLookup pins the exact winner band boundaries.
func TestPropertyWinnerBandLookup(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		diff := rapid.IntRange(-1000, 1000).Draw(t, "diff")
		got := winnerBandDelta(diff)
		var want int
		switch {
		case diff >= 201:
			want = 20
		case diff >= 101:
			want = 15
		case diff >= -100:
			want = 10
		case diff >= -200:
			want = 5
		default:
			want = 0
		}
		if got != want {
			t.Fatalf("winnerBandDelta(%d) = %d, want %d", diff, got, want)
		}
	})
}

func TestLoserBandBoundaries(t *testing.T) {
	tests := []struct {
		diff int
		want int
	}{
		{diff: 201, want: 20},
		{diff: 200, want: 10}, // no 15 rung on the loser side
		{diff: 150, want: 10},
		{diff: 0, want: 10},
		{diff: -100, want: 10},
		{diff: -101, want: 5},
		{diff: -200, want: 5},
		{diff: -201, want: 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, loserBandDelta(tt.diff), "diff=%d", tt.diff)
	}
}
