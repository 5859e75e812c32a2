package rating

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/observability"
)

// Record is one character's position on the honour leaderboard.
type Record struct {
	// CharacterID identifies the character.
	CharacterID string
	// Rating is the character's current honour rating.
	Rating int
	// RankIndex is the 0-based position in the sorted leaderboard.
	RankIndex int
	// RankOrdinal is the user-facing rank; tied ratings share the ordinal of
	// the first entry in the tie.
	RankOrdinal int
}

// Engine computes honour adjustments for finished ranked matches and maintains
// the leaderboard. All methods are safe for concurrent use.
type Engine struct {
	mu      sync.RWMutex
	store   Store
	initial int
	// rankings is sorted by rating descending; characters with negative
	// sentinel ratings are excluded.
	rankings []Record
	byID     map[string]int // character ID → index into rankings
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewEngine creates an Engine backed by the given store.
// initial is the rating assumed for characters with no stored value.
//
// Precondition: store, logger, and metrics must be non-nil; initial must be >= 0.
// Postcondition: Returns an Engine with an empty ranking cache; call Reload to
// populate it from the store.
func NewEngine(store Store, initial int, logger *zap.Logger, metrics *observability.Metrics) *Engine {
	return &Engine{
		store:   store,
		initial: initial,
		byID:    make(map[string]int),
		logger:  logger,
		metrics: metrics,
	}
}

// winnerBandDelta returns the fixed rating gain for a winner, keyed off the
// gap between the losers' average and the winner's own rating. The bands are
// deliberately discrete rather than a continuous Elo-style curve.
//
// Postcondition: Returns one of 20, 15, 10, 5, 0.
func winnerBandDelta(diff int) int {
	switch {
	case diff > 200:
		return 20
	case diff > 100:
		return 15
	case diff >= -100:
		return 10
	case diff >= -200:
		return 5
	default:
		return 0
	}
}

// loserBandDelta returns the fixed rating loss magnitude for a loser, keyed
// off the gap between the winners' average and the loser's own rating. The
// loser ladder has no 15 rung: gaps in (100, 200] fall through to 10.
//
// Postcondition: Returns one of 20, 10, 5, 0.
func loserBandDelta(diff int) int {
	switch {
	case diff > 200:
		return 20
	case diff >= -100:
		return 10
	case diff >= -200:
		return 5
	default:
		return 0
	}
}

// GetRating returns the stored rating for a character, or def when the
// character has no stored value.
//
// Postcondition: Returns the stored rating, def on ErrNotFound, or an error
// for any other store failure.
func (e *Engine) GetRating(ctx context.Context, characterID string, def int) (int, error) {
	r, err := e.store.Get(ctx, characterID)
	if errors.Is(err, ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return 0, fmt.Errorf("getting rating for %s: %w", characterID, err)
	}
	return r, nil
}

// Adjust applies the banded symmetric rating update for a finished ranked
// match and persists all changed ratings in one batch. It returns the signed
// change (new minus old) per character so callers can display honour feedback.
//
// Winners gain by the band of (losers' average - own rating); losers lose by
// the band of (winners' average - own rating). Ratings never drop below zero.
//
// Precondition: a character must not appear in both winnerIDs and loserIDs.
// Postcondition: On success every changed rating is persisted and the ranking
// cache is rebuilt from store truth. On error nothing is guaranteed persisted
// and the caller decides whether to retry or degrade.
func (e *Engine) Adjust(ctx context.Context, winnerIDs, loserIDs []string) (map[string]int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	current := make(map[string]int, len(winnerIDs)+len(loserIDs))
	for _, id := range append(append([]string{}, winnerIDs...), loserIDs...) {
		r, err := e.store.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			r = e.initial
		} else if err != nil {
			return nil, fmt.Errorf("loading rating for %s: %w", id, err)
		}
		current[id] = r
	}

	avgWinners := average(current, winnerIDs)
	avgLosers := average(current, loserIDs)

	updated := make(map[string]int, len(current))
	deltas := make(map[string]int, len(current))

	for _, id := range winnerIDs {
		old := current[id]
		next := old + winnerBandDelta(avgLosers-old)
		if next < 0 {
			next = 0
		}
		updated[id] = next
		deltas[id] = next - old
	}
	for _, id := range loserIDs {
		old := current[id]
		next := old - loserBandDelta(avgWinners-old)
		if next < 0 {
			next = 0
		}
		updated[id] = next
		deltas[id] = next - old
	}

	if err := e.store.SetMany(ctx, updated); err != nil {
		return nil, fmt.Errorf("persisting ratings: %w", err)
	}
	e.metrics.RatingAdjustments.Add(float64(len(updated)))

	if err := e.reloadLocked(ctx); err != nil {
		// Ratings are persisted; the cache is stale until the next rebuild.
		e.logger.Error("rebuilding honour rankings", zap.Error(err))
	}

	e.logger.Info("honour ratings adjusted",
		zap.Int("winners", len(winnerIDs)),
		zap.Int("losers", len(loserIDs)),
		zap.Int("avg_winners", avgWinners),
		zap.Int("avg_losers", avgLosers),
	)
	return deltas, nil
}

// Reload rebuilds the ranking cache from store truth.
//
// Postcondition: On success the cache reflects every stored rating >= 0,
// sorted by rating descending with tie-collapsed ordinals.
func (e *Engine) Reload(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reloadLocked(ctx)
}

func (e *Engine) reloadLocked(ctx context.Context) error {
	all, err := e.store.All(ctx)
	if err != nil {
		return fmt.Errorf("loading ratings: %w", err)
	}

	records := make([]Record, 0, len(all))
	for id, r := range all {
		if r < 0 {
			// Negative sentinel: stored but not publicly ranked.
			continue
		}
		records = append(records, Record{CharacterID: id, Rating: r})
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Rating != records[j].Rating {
			return records[i].Rating > records[j].Rating
		}
		return records[i].CharacterID < records[j].CharacterID
	})

	byID := make(map[string]int, len(records))
	for i := range records {
		records[i].RankIndex = i
		switch {
		case i == 0:
			records[i].RankOrdinal = 1
		case records[i].Rating == records[i-1].Rating:
			records[i].RankOrdinal = records[i-1].RankOrdinal
		default:
			// Dense ranking: ties collapse forward, no ordinals are skipped.
			records[i].RankOrdinal = records[i-1].RankOrdinal + 1
		}
		byID[records[i].CharacterID] = i
	}

	e.rankings = records
	e.byID = byID
	return nil
}

// TopN returns the n highest-rated records.
//
// Postcondition: Returns at most n records; fewer if the leaderboard is shorter.
func (e *Engine) TopN(n int) []Record {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if n <= 0 {
		return nil
	}
	if n > len(e.rankings) {
		n = len(e.rankings)
	}
	out := make([]Record, n)
	copy(out, e.rankings[:n])
	return out
}

// Nearest returns a window of n records centered on the given character's
// leaderboard position, clamped to the list bounds.
//
// Postcondition: Returns at most n records containing the character, or nil
// if the character is not ranked.
func (e *Engine) Nearest(characterID string, n int) []Record {
	e.mu.RLock()
	defer e.mu.RUnlock()
	idx, ok := e.byID[characterID]
	if !ok || n <= 0 {
		return nil
	}
	if n >= len(e.rankings) {
		out := make([]Record, len(e.rankings))
		copy(out, e.rankings)
		return out
	}
	start := idx - n/2
	if start < 0 {
		start = 0
	}
	if start+n > len(e.rankings) {
		start = len(e.rankings) - n
	}
	out := make([]Record, n)
	copy(out, e.rankings[start:start+n])
	return out
}

// RankOf returns the leaderboard record for a character.
//
// Postcondition: Returns (record, true) if the character is ranked, or
// (zero Record, false) otherwise.
func (e *Engine) RankOf(characterID string) (Record, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	idx, ok := e.byID[characterID]
	if !ok {
		return Record{}, false
	}
	return e.rankings[idx], true
}

// average returns the mean of the given characters' ratings, 0 for no ids.
func average(ratings map[string]int, ids []string) int {
	if len(ids) == 0 {
		return 0
	}
	sum := 0
	for _, id := range ids {
		sum += ratings[id]
	}
	return sum / len(ids)
}
