// Package match implements the ranked matchmaking queue: waiting characters
// are paired by rating proximity, confirm within a window, and on mutual
// confirmation an honour combat session starts.
package match

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/config"
	"github.com/cory-johannsen/arena/internal/game/combat"
	"github.com/cory-johannsen/arena/internal/observability"
)

// Entry is one character waiting in the queue.
type Entry struct {
	// CharacterID identifies the waiting character.
	CharacterID string
	// EnqueuedAt is when the character joined the queue.
	EnqueuedAt time.Time
}

// preparingPair is two characters tentatively matched, pending mutual
// confirmation before a session is created.
type preparingPair struct {
	a, b       string
	confirmedA bool
	confirmedB bool
	timer      *combat.DeadlineTimer
}

func (p *preparingPair) other(characterID string) string {
	if characterID == p.a {
		return p.b
	}
	return p.a
}

// Directory resolves character IDs to live character objects. A character
// that disconnected resolves to ok=false.
type Directory interface {
	Lookup(characterID string) (combat.Character, bool)
}

// RatingSource reads a character's current honour rating. Satisfied by
// *rating.Engine.
type RatingSource interface {
	GetRating(ctx context.Context, characterID string, def int) (int, error)
}

// Queue pairs waiting characters by rating proximity and spins up honour
// combat sessions. All methods are safe for concurrent use.
type Queue struct {
	directory  Directory
	ratings    RatingSource
	sessions   *combat.Manager
	combatType combat.Type
	initial    int
	reload     func() config.MatchmakingConfig
	logger     *zap.Logger
	metrics    *observability.Metrics

	mu        sync.Mutex
	cfg       config.MatchmakingConfig
	waiting   []Entry
	preparing map[string]*preparingPair // character ID → pair (two keys per pair)
}

// NewQueue creates a matchmaking queue. combatType must be TypeHonour or
// TypeHonourAuto. reload supplies fresh tuning on Reset; nil keeps the
// current tuning.
//
// Precondition: directory, ratings, sessions, logger, and metrics must be
// non-nil; cfg must have passed validation.
func NewQueue(
	directory Directory,
	ratings RatingSource,
	sessions *combat.Manager,
	combatType combat.Type,
	initialRating int,
	cfg config.MatchmakingConfig,
	reload func() config.MatchmakingConfig,
	logger *zap.Logger,
	metrics *observability.Metrics,
) *Queue {
	return &Queue{
		directory:  directory,
		ratings:    ratings,
		sessions:   sessions,
		combatType: combatType,
		initial:    initialRating,
		reload:     reload,
		logger:     logger,
		metrics:    metrics,
		cfg:        cfg,
		preparing:  make(map[string]*preparingPair),
	}
}

// Enqueue adds a character to the waiting queue. Idempotent: a character
// already queued is not appended again.
//
// Postcondition: The character is in the waiting queue and has been notified.
func (q *Queue) Enqueue(characterID string) {
	q.mu.Lock()
	if q.waitingIndexLocked(characterID) >= 0 {
		q.mu.Unlock()
		return
	}
	q.waiting = append(q.waiting, Entry{CharacterID: characterID, EnqueuedAt: time.Now()})
	q.metrics.QueueWaiting.Set(float64(len(q.waiting)))
	q.mu.Unlock()

	q.notify(characterID, combat.Payload{"type": "match_queue", "status": "queued"})
	q.logger.Info("character enqueued for ranked match", zap.String("character", characterID))
}

// Dequeue removes a character from the queue. Any tentative pairing is
// canceled: the confirmation timer stops and both sides are told the match
// was rejected, but the opponent stays in the waiting queue.
//
// Postcondition: The character is in neither collection and has been notified.
func (q *Queue) Dequeue(characterID string) {
	q.mu.Lock()
	removed := q.removeWaitingLocked(characterID)

	var opponent string
	if p, ok := q.preparing[characterID]; ok {
		p.timer.Stop()
		opponent = p.other(characterID)
		delete(q.preparing, p.a)
		delete(q.preparing, p.b)
		removed = true
	}
	q.metrics.QueueWaiting.Set(float64(len(q.waiting)))
	q.mu.Unlock()

	if !removed {
		return
	}
	if opponent != "" {
		q.metrics.QueueRejections.Inc()
		q.notify(characterID, combat.Payload{"type": "match_rejected"})
		q.notify(opponent, combat.Payload{"type": "match_rejected"})
	}
	q.notify(characterID, combat.Payload{"type": "match_queue", "status": "left"})
	q.logger.Info("character left ranked queue", zap.String("character", characterID))
}

// Confirm marks a tentatively paired character as confirmed. No immediate
// effect: the match starts, or not, when the confirmation timer fires.
func (q *Queue) Confirm(characterID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	p, ok := q.preparing[characterID]
	if !ok {
		return
	}
	if characterID == p.a {
		p.confirmedA = true
	} else {
		p.confirmedB = true
	}
}

// Reject cancels a tentative pairing immediately: the timer stops, both
// sides are notified, and both leave the waiting queue.
func (q *Queue) Reject(characterID string) {
	q.mu.Lock()
	p, ok := q.preparing[characterID]
	if !ok {
		q.mu.Unlock()
		return
	}
	p.timer.Stop()
	delete(q.preparing, p.a)
	delete(q.preparing, p.b)
	q.removeWaitingLocked(p.a)
	q.removeWaitingLocked(p.b)
	q.metrics.QueueWaiting.Set(float64(len(q.waiting)))
	q.mu.Unlock()

	q.metrics.QueueRejections.Inc()
	q.notify(p.a, combat.Payload{"type": "match_rejected"})
	q.notify(p.b, combat.Payload{"type": "match_rejected"})
	q.logger.Info("ranked pairing rejected",
		zap.String("character", characterID),
		zap.String("opponent", p.other(characterID)),
	)
}

// Tick scans the waiting queue in order and greedily pairs characters whose
// rating gap is within the limit (a limit of 0 means unlimited). A character
// paired within a tick is skipped for the rest of that tick. First-fit by
// queue order: low latency beats perfect balance.
func (q *Queue) Tick(ctx context.Context) {
	q.mu.Lock()
	cfg := q.cfg
	candidates := make([]string, 0, len(q.waiting))
	for _, e := range q.waiting {
		if _, busy := q.preparing[e.CharacterID]; busy {
			continue
		}
		candidates = append(candidates, e.CharacterID)
	}
	q.mu.Unlock()

	ratings := make(map[string]int, len(candidates))
	eligible := candidates[:0]
	for _, id := range candidates {
		r, err := q.ratings.GetRating(ctx, id, q.initial)
		if err != nil {
			// Unreadable rating: skip this tick, keep the character queued.
			q.logger.Warn("skipping unpairable character",
				zap.String("character", id), zap.Error(err))
			continue
		}
		ratings[id] = r
		eligible = append(eligible, id)
	}

	paired := make(map[string]bool)
	for i := 0; i < len(eligible); i++ {
		a := eligible[i]
		if paired[a] {
			continue
		}
		for j := i + 1; j < len(eligible); j++ {
			b := eligible[j]
			if paired[b] {
				continue
			}
			if cfg.MaxRatingDiff > 0 && abs(ratings[a]-ratings[b]) > cfg.MaxRatingDiff {
				continue
			}
			paired[a] = true
			paired[b] = true
			q.prepare(a, b, cfg.PreparingTime)
			break
		}
	}
}

// prepare tentatively pairs two characters and arms the confirmation window.
func (q *Queue) prepare(a, b string, window time.Duration) {
	p := &preparingPair{a: a, b: b}
	p.timer = combat.NewDeadlineTimer(window, func() { q.fight(p) })

	q.mu.Lock()
	if _, busyA := q.preparing[a]; busyA {
		q.mu.Unlock()
		p.timer.Stop()
		return
	}
	if _, busyB := q.preparing[b]; busyB {
		q.mu.Unlock()
		p.timer.Stop()
		return
	}
	q.preparing[a] = p
	q.preparing[b] = p
	q.mu.Unlock()

	q.metrics.QueuePairs.Inc()
	pending := combat.Payload{"type": "match_pending", "window_seconds": int(window.Seconds())}
	q.notify(a, pending)
	q.notify(b, pending)
	q.logger.Info("tentative ranked pair formed",
		zap.String("a", a), zap.String("b", b))
}

// fight is the confirmation-window callback. With both sides confirmed it
// builds the honour session; otherwise both sides are notified of rejection.
// Either way both characters leave the waiting queue. A stale fire after the
// pair was canceled is a silent no-op.
func (q *Queue) fight(p *preparingPair) {
	q.mu.Lock()
	if q.preparing[p.a] != p {
		q.mu.Unlock()
		return
	}
	delete(q.preparing, p.a)
	delete(q.preparing, p.b)
	q.removeWaitingLocked(p.a)
	q.removeWaitingLocked(p.b)
	q.metrics.QueueWaiting.Set(float64(len(q.waiting)))
	confirmed := p.confirmedA && p.confirmedB
	q.mu.Unlock()

	if !confirmed {
		// A half-confirmed match never starts.
		q.metrics.QueueRejections.Inc()
		q.notify(p.a, combat.Payload{"type": "match_rejected"})
		q.notify(p.b, combat.Payload{"type": "match_rejected"})
		q.logger.Info("ranked pair expired unconfirmed",
			zap.String("a", p.a), zap.String("b", p.b))
		return
	}

	charA, okA := q.directory.Lookup(p.a)
	charB, okB := q.directory.Lookup(p.b)
	if !okA || !okB {
		q.metrics.QueueRejections.Inc()
		q.notify(p.a, combat.Payload{"type": "match_rejected"})
		q.notify(p.b, combat.Payload{"type": "match_rejected"})
		q.logger.Warn("ranked pair lost a participant before start",
			zap.String("a", p.a), zap.String("b", p.b))
		return
	}

	_, err := q.sessions.StartSession(q.combatType, []combat.Team{
		{ID: p.a, Members: []combat.Character{charA}},
		{ID: p.b, Members: []combat.Character{charB}},
	}, "Fight of Honour", combat.UseDefaultTimeout)
	if err != nil {
		q.metrics.QueueRejections.Inc()
		q.notify(p.a, combat.Payload{"type": "match_rejected"})
		q.notify(p.b, combat.Payload{"type": "match_rejected"})
		q.logger.Error("starting honour session", zap.Error(err))
		return
	}
	q.logger.Info("honour session started from queue",
		zap.String("a", p.a), zap.String("b", p.b))
}

// Reset cancels every timer, drains both collections notifying every affected
// character, and reloads the matchmaking tuning. Used when an administrator
// changes tuning at runtime.
func (q *Queue) Reset() {
	q.mu.Lock()
	pairs := make(map[*preparingPair]bool)
	for _, p := range q.preparing {
		pairs[p] = true
	}
	var affected []string
	for p := range pairs {
		p.timer.Stop()
		affected = append(affected, p.a, p.b)
	}
	seen := make(map[string]bool, len(affected))
	for _, id := range affected {
		seen[id] = true
	}
	for _, e := range q.waiting {
		if !seen[e.CharacterID] {
			affected = append(affected, e.CharacterID)
		}
	}
	q.preparing = make(map[string]*preparingPair)
	q.waiting = nil
	if q.reload != nil {
		q.cfg = q.reload()
	}
	q.metrics.QueueWaiting.Set(0)
	q.mu.Unlock()

	for _, id := range affected {
		q.notify(id, combat.Payload{"type": "match_queue", "status": "reset"})
	}
	q.logger.Info("matchmaking queue reset", zap.Int("affected", len(affected)))
}

// Run ticks the queue until ctx is canceled.
func (q *Queue) Run(ctx context.Context) {
	for {
		q.mu.Lock()
		interval := q.cfg.TickInterval
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
			q.Tick(ctx)
		}
	}
}

// WaitingCount returns the number of characters in the waiting queue.
func (q *Queue) WaitingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiting)
}

// PreparingCount returns the number of characters in tentative pairs.
func (q *Queue) PreparingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.preparing)
}

// notify delivers a payload to a character if it still resolves. Fire and
// forget: a vanished character is simply skipped.
func (q *Queue) notify(characterID string, payload combat.Payload) {
	if c, ok := q.directory.Lookup(characterID); ok {
		c.Msg(payload)
	}
}

func (q *Queue) waitingIndexLocked(characterID string) int {
	for i, e := range q.waiting {
		if e.CharacterID == characterID {
			return i
		}
	}
	return -1
}

func (q *Queue) removeWaitingLocked(characterID string) bool {
	idx := q.waitingIndexLocked(characterID)
	if idx < 0 {
		return false
	}
	q.waiting = append(q.waiting[:idx], q.waiting[idx+1:]...)
	return true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
