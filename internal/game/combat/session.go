package combat

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/observability"
)

// Outcome classifies a participant's terminal result in a session.
type Outcome int

const (
	// OutcomePending means the session has not resolved for this participant.
	OutcomePending Outcome = iota
	// OutcomeWin means the participant's team won decisively.
	OutcomeWin
	// OutcomeLose means the participant lost, by defeat or by fleeing a
	// ranked match.
	OutcomeLose
	// OutcomeDraw means the session ended without a winning team.
	OutcomeDraw
	// OutcomeEscaped means the participant withdrew from an unranked match.
	OutcomeEscaped
)

// String returns a human-readable outcome label.
func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeWin:
		return "win"
	case OutcomeLose:
		return "lose"
	case OutcomeDraw:
		return "draw"
	case OutcomeEscaped:
		return "escaped"
	default:
		return "unknown"
	}
}

// Result is one participant's terminal result, including any reward and
// honour change. Reward is nil for non-winners.
type Result struct {
	Outcome     Outcome
	Reward      *RewardEntry
	HonourDelta int
}

// RatingAdjuster applies honour rating changes for a finished ranked match.
// Satisfied by *rating.Engine.
type RatingAdjuster interface {
	Adjust(ctx context.Context, winnerIDs, loserIDs []string) (map[string]int, error)
}

// Session is the per-match state machine. It owns the participant roster,
// team bookkeeping, the deadline timer, and the finish/escape/leave
// transitions. Character logic stays behind the Character interface.
//
// Every transition re-checks finished/status state under the session lock, so
// a collaborator call that suspends arbitrarily long can never corrupt the
// state machine, and duplicate or stale events degrade to no-ops.
type Session struct {
	id         string
	combatType Type
	policy     Policy
	calc       *Calculator
	ratings    RatingAdjuster
	logger     *zap.Logger
	metrics    *observability.Metrics
	onTeardown func(*Session)

	mu           sync.Mutex
	desc         string
	participants map[string]*Participant
	started      bool
	finished     bool
	tornDown     bool
	winners      map[string]Character
	losers       map[string]Character // decisive losers: the loot-paying set
	rewards      map[string]*RewardEntry
	results      map[string]Result
	timer        *DeadlineTimer
}

// NewSession creates an empty session of the given type. ratings may be nil
// for combat types that never apply rating; onTeardown may be nil.
//
// Precondition: calc, logger, and metrics must be non-nil.
// Postcondition: Returns a session with a unique ID and no participants;
// call SetCombat to populate it.
func NewSession(t Type, calc *Calculator, ratings RatingAdjuster, logger *zap.Logger, metrics *observability.Metrics, onTeardown func(*Session)) *Session {
	return &Session{
		id:           uuid.New().String(),
		combatType:   t,
		policy:       policyFor(t),
		calc:         calc,
		ratings:      ratings,
		logger:       logger,
		metrics:      metrics,
		onTeardown:   onTeardown,
		participants: make(map[string]*Participant),
		results:      make(map[string]Result),
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// CombatType returns the session's variant.
func (s *Session) CombatType() Type { return s.combatType }

// Finished reports whether the session has reached a terminal outcome.
func (s *Session) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

// SetCombat populates the roster, assigns teams, and arms the deadline timer.
// Every human-controlled participant is notified with the session's
// descriptive appearance. A timeout of 0 means unlimited.
//
// Precondition: the session must not have been populated or started.
// Postcondition: All participants are Joined; the deadline timer is armed iff
// timeout > 0.
func (s *Session) SetCombat(teams []Team, desc string, timeout time.Duration) error {
	s.mu.Lock()
	if s.started || s.finished {
		s.mu.Unlock()
		return fmt.Errorf("session %s already started", s.id)
	}
	if len(s.participants) > 0 {
		s.mu.Unlock()
		return fmt.Errorf("session %s already populated", s.id)
	}

	for _, team := range teams {
		for _, member := range team.Members {
			if _, dup := s.participants[member.UID()]; dup {
				s.participants = make(map[string]*Participant)
				s.mu.Unlock()
				return fmt.Errorf("character %s assigned twice", member.UID())
			}
			s.participants[member.UID()] = &Participant{
				Character: member,
				TeamID:    team.ID,
				Status:    StatusJoined,
			}
		}
	}
	s.desc = desc

	if timeout > 0 {
		s.timer = NewDeadlineTimer(timeout, s.atTimeout)
	}

	appearance := s.appearanceLocked()
	var humans []Character
	for _, p := range s.participants {
		if p.Character.IsPlayer() {
			humans = append(humans, p.Character)
		}
	}
	s.mu.Unlock()

	for _, h := range humans {
		h.Msg(Payload{
			"type":       "combat_appearance",
			"session_id": s.id,
			"desc":       appearance,
		})
	}
	return nil
}

// Start flips every Joined participant to Active and begins the automatic
// skill loop for participants the policy drives. Idempotent.
//
// Postcondition: No participant remains Joined.
func (s *Session) Start() {
	s.mu.Lock()
	if s.started || s.finished {
		s.mu.Unlock()
		return
	}
	s.started = true

	var auto []Character
	for _, p := range s.participants {
		if p.Status == StatusJoined {
			p.Status = StatusActive
		}
		if s.policy.AutoCast(p.Character) {
			auto = append(auto, p.Character)
		}
	}
	s.mu.Unlock()

	for _, c := range auto {
		c.StartAutoCombatSkill()
	}
	s.metrics.SessionsStarted.WithLabelValues(s.combatType.String()).Inc()
	s.logger.Info("combat session started",
		zap.String("session_id", s.id),
		zap.String("combat_type", s.combatType.String()),
	)
}

// PrepareSkill resolves the target and delegates the skill application to the
// caller's character object; the engine does not simulate damage math. After
// a successful cast the session re-evaluates whether the match is decided and
// finishes it if so.
//
// A finished session, an unknown caller, or an inactive caller makes this a
// no-op. An unresolvable target is passed to the character as nil.
func (s *Session) PrepareSkill(ctx context.Context, skillKey, callerID, targetID string) error {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return nil
	}
	p, ok := s.participants[callerID]
	if !ok || p.Status != StatusActive {
		s.mu.Unlock()
		return nil
	}
	caller := p.Character

	// Resolve the target to a live reference, or none. A disconnected or
	// escaped target is "no target", not an error.
	var target Character
	if tp, ok := s.participants[targetID]; ok && tp.Status == StatusActive {
		target = tp.Character
	}
	s.mu.Unlock()

	// Suspension point: the character's skill logic may take arbitrarily long.
	if err := caller.CastSkill(skillKey, target); err != nil {
		return fmt.Errorf("casting %s for %s: %w", skillKey, callerID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.finished && s.canFinishLocked() {
		s.finishLocked(ctx)
	}
	return nil
}

// CanFinish reports whether the match is decided: at most one distinct team
// remains among Active participants that are still alive. Aliveness is
// queried from the characters, never cached.
//
// Postcondition: Returns false for a session with no participants.
func (s *Session) CanFinish() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canFinishLocked()
}

func (s *Session) canFinishLocked() bool {
	if len(s.participants) == 0 {
		return false
	}
	teams := make(map[string]struct{})
	for _, p := range s.participants {
		if p.Status == StatusActive && p.Character.IsAlive() {
			teams[p.TeamID] = struct{}{}
		}
	}
	return len(teams) <= 1
}

// EscapeCombat withdraws the caller from the fight and reports an escaped
// result to them. Escape is a personal withdrawal: it deliberately does not
// re-evaluate whether the match is decided, so the fight continues until a
// later skill cast or the deadline settles it.
//
// A finished session or a non-Active caller makes this a no-op.
func (s *Session) EscapeCombat(callerID string) {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return
	}
	p, ok := s.participants[callerID]
	if !ok || p.Status != StatusActive {
		s.mu.Unlock()
		return
	}
	p.Status = StatusEscaped
	s.results[callerID] = Result{Outcome: OutcomeEscaped}
	char := p.Character
	stopAuto := s.policy.AutoCast(char)
	s.mu.Unlock()

	if stopAuto {
		char.StopAutoCombatSkill()
	}
	char.Msg(Payload{
		"type":       "combat_result",
		"session_id": s.id,
		"outcome":    OutcomeEscaped.String(),
	})
	s.logger.Info("participant escaped combat",
		zap.String("session_id", s.id),
		zap.String("character", callerID),
	)
}

// LeaveCombat releases a participant from the session. Idempotent: repeated
// calls are no-ops. When the last human-controlled participant has left, the
// session is torn down immediately regardless of whether it finished: any
// remaining participants are forced to Left and their character objects
// notified.
func (s *Session) LeaveCombat(characterID string) {
	s.mu.Lock()
	p, ok := s.participants[characterID]
	if !ok || p.Status == StatusLeft {
		s.mu.Unlock()
		return
	}
	p.Status = StatusLeft

	var stops []Character
	if s.policy.AutoCast(p.Character) {
		stops = append(stops, p.Character)
	}

	playersRemain := false
	for _, other := range s.participants {
		if other.Character.IsPlayer() && other.Status != StatusLeft {
			playersRemain = true
			break
		}
	}

	var evicted []Character
	teardown := !playersRemain && !s.tornDown
	if teardown {
		s.tornDown = true
		if s.timer != nil {
			s.timer.Stop()
		}
		for _, other := range s.participants {
			if other.Status == StatusLeft {
				continue
			}
			other.Status = StatusLeft
			evicted = append(evicted, other.Character)
			if s.policy.AutoCast(other.Character) {
				stops = append(stops, other.Character)
			}
		}
	}
	s.mu.Unlock()

	for _, c := range stops {
		c.StopAutoCombatSkill()
	}
	for _, c := range evicted {
		c.Msg(Payload{
			"type":       "combat_over",
			"session_id": s.id,
		})
	}
	if teardown {
		s.logger.Info("combat session torn down",
			zap.String("session_id", s.id),
			zap.String("combat_type", s.combatType.String()),
		)
		if s.onTeardown != nil {
			s.onTeardown(s)
		}
	}
}

// Finish resolves winners and losers, computes rewards, applies rating for
// ranked variants, and notifies every participant. No-op if already finished.
func (s *Session) Finish(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return
	}
	s.finishLocked(ctx)
}

// finishLocked runs the decisive-finish sequence. Caller holds s.mu.
//
// Ordering: winner/loser resolution, then reward computation, then rating,
// then notification, so no participant ever sees a win notification whose
// reward is not yet computed.
func (s *Session) finishLocked(ctx context.Context) {
	s.finished = true
	if s.timer != nil {
		s.timer.Stop()
	}

	s.winners, s.losers = s.resolveWinnersLocked()
	ratingLosers := s.policy.RatingLosers(s.participants, s.winners)

	for _, p := range s.participants {
		if p.Status == StatusJoined || p.Status == StatusActive {
			p.Status = StatusFinished
		}
	}

	s.rewards = s.calc.Compute(s.winners, s.losers)

	var deltas map[string]int
	if s.policy.AppliesRating() && s.ratings != nil && len(s.winners) > 0 {
		var err error
		deltas, err = s.ratings.Adjust(ctx, ids(s.winners), ids(ratingLosers))
		if err != nil {
			// Degrade: the outcome is still delivered, without honour change.
			s.logger.Error("adjusting honour ratings",
				zap.String("session_id", s.id),
				zap.Error(err),
			)
			deltas = nil
		}
	}

	decided := len(s.winners) > 0
	type note struct {
		char    Character
		payload Payload
	}
	var notes []note
	var stops []Character

	for uid, p := range s.participants {
		if s.policy.AutoCast(p.Character) {
			stops = append(stops, p.Character)
		}
		if p.Status == StatusLeft {
			continue
		}

		var res Result
		switch {
		case s.winners[uid] != nil:
			res = Result{Outcome: OutcomeWin, Reward: s.rewards[uid], HonourDelta: deltas[uid]}
		case decided && (ratingLosers[uid] != nil || s.losers[uid] != nil):
			res = Result{Outcome: OutcomeLose, HonourDelta: deltas[uid]}
		case p.Status == StatusEscaped:
			// An escape that carries no rating loss keeps its own terminal
			// outcome; the escaped ack already served as this participant's
			// terminal notification, even when the remaining side finished
			// without a winner.
			s.results[uid] = Result{Outcome: OutcomeEscaped}
			continue
		default:
			res = Result{Outcome: OutcomeDraw}
		}
		s.results[uid] = res

		payload := Payload{
			"type":       "combat_result",
			"session_id": s.id,
			"outcome":    res.Outcome.String(),
		}
		if res.Reward != nil {
			payload["exp"] = res.Reward.Exp
			payload["loots"] = res.Reward.Loots
		}
		if deltas != nil {
			if delta, ok := deltas[uid]; ok {
				payload["honour"] = delta
			}
		}
		notes = append(notes, note{char: p.Character, payload: payload})
	}

	outcome := "draw"
	if decided {
		outcome = "decided"
	}
	s.metrics.SessionsFinished.WithLabelValues(s.combatType.String(), outcome).Inc()
	s.logger.Info("combat session finished",
		zap.String("session_id", s.id),
		zap.String("combat_type", s.combatType.String()),
		zap.String("outcome", outcome),
		zap.Int("winners", len(s.winners)),
		zap.Int("losers", len(s.losers)),
	)

	for _, c := range stops {
		c.StopAutoCombatSkill()
	}
	// Each participant receives one atomic batch; delivery is fire and
	// forget, so one unreachable participant never blocks the others.
	for _, n := range notes {
		n.char.Msg(n.payload)
	}
}

// resolveWinnersLocked applies the decisive-finish rule: the winning team is
// the team of any Active participant still alive; winners are all Active
// participants on that team, decisive losers all Active participants on other
// teams. Escaped participants appear in neither set.
func (s *Session) resolveWinnersLocked() (winners, losers map[string]Character) {
	winners = make(map[string]Character)
	losers = make(map[string]Character)

	winningTeam := ""
	found := false
	for _, p := range s.participants {
		if p.Status == StatusActive && p.Character.IsAlive() {
			winningTeam = p.TeamID
			found = true
			break
		}
	}
	if !found {
		return winners, losers
	}

	for uid, p := range s.participants {
		if p.Status != StatusActive {
			continue
		}
		if p.TeamID == winningTeam {
			winners[uid] = p.Character
		} else {
			losers[uid] = p.Character
		}
	}
	return winners, losers
}

// atTimeout is the deadline callback: the match ends in a draw. Participants
// keep their current statuses; there are no winners, losers, or rewards. A
// timer that fires after the session finished or tore down is a silent no-op.
func (s *Session) atTimeout() {
	s.mu.Lock()
	if s.finished || s.tornDown {
		s.mu.Unlock()
		return
	}
	s.finished = true

	var notify []Character
	var stops []Character
	for uid, p := range s.participants {
		if s.policy.AutoCast(p.Character) {
			stops = append(stops, p.Character)
		}
		if p.Status == StatusLeft || p.Status == StatusEscaped {
			continue
		}
		s.results[uid] = Result{Outcome: OutcomeDraw}
		notify = append(notify, p.Character)
	}
	s.mu.Unlock()

	for _, c := range stops {
		c.StopAutoCombatSkill()
	}
	for _, c := range notify {
		c.Msg(Payload{
			"type":       "combat_result",
			"session_id": s.id,
			"outcome":    OutcomeDraw.String(),
		})
	}
	s.metrics.SessionsFinished.WithLabelValues(s.combatType.String(), "draw").Inc()
	s.logger.Info("combat session timed out",
		zap.String("session_id", s.id),
		zap.String("combat_type", s.combatType.String()),
	)
}

// Appearance returns the session's descriptive appearance: the description
// followed by the team rosters.
func (s *Session) Appearance() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appearanceLocked()
}

func (s *Session) appearanceLocked() string {
	members := make(map[string][]string)
	for _, p := range s.participants {
		members[p.TeamID] = append(members[p.TeamID], p.Character.Name())
	}
	teamIDs := make([]string, 0, len(members))
	for id := range members {
		teamIDs = append(teamIDs, id)
	}
	sort.Strings(teamIDs)

	sides := make([]string, 0, len(teamIDs))
	for _, id := range teamIDs {
		names := members[id]
		sort.Strings(names)
		sides = append(sides, strings.Join(names, ", "))
	}
	if s.desc == "" {
		return strings.Join(sides, " vs ")
	}
	return fmt.Sprintf("%s: %s", s.desc, strings.Join(sides, " vs "))
}

// CombatResult returns the terminal result for a character, or a pending
// result if the session has not resolved for them.
//
// Postcondition: Returns ok=false iff the character is not a participant.
func (s *Session) CombatResult(characterID string) (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if res, ok := s.results[characterID]; ok {
		return res, true
	}
	if _, ok := s.participants[characterID]; ok {
		return Result{Outcome: OutcomePending}, true
	}
	return Result{}, false
}

// Participants returns a snapshot of the roster statuses, keyed by character ID.
func (s *Session) Participants() map[string]Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Status, len(s.participants))
	for uid, p := range s.participants {
		out[uid] = p.Status
	}
	return out
}

// Winners returns the decisive winners; empty until the session finishes.
func (s *Session) Winners() map[string]Character {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyChars(s.winners)
}

// Losers returns the decisive losers used for loot; empty until the session
// finishes.
func (s *Session) Losers() map[string]Character {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyChars(s.losers)
}

func copyChars(m map[string]Character) map[string]Character {
	out := make(map[string]Character, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ids returns the keys of a character map.
func ids(m map[string]Character) []string {
	out := make([]string, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
