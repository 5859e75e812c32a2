package combat

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/observability"
)

// UseDefaultTimeout asks StartSession to apply the manager's configured
// default timeout instead of an explicit deadline. An explicit 0 still means
// unlimited regardless of the configured default.
const UseDefaultTimeout time.Duration = -1

// Manager creates and tracks active combat sessions. It is the collaborator
// that enforces the one-active-session-per-character invariant; the sessions
// themselves do not. All methods are safe for concurrent use.
type Manager struct {
	calc           *Calculator
	ratings        RatingAdjuster
	defaultTimeout time.Duration
	logger         *zap.Logger
	metrics        *observability.Metrics

	mu       sync.RWMutex
	sessions map[string]*Session // session ID → session
	byChar   map[string]string   // character ID → session ID
}

// NewManager creates an empty session Manager. ratings may be nil when no
// ranked combat will be created through this manager. defaultTimeout is the
// deadline applied to sessions started with UseDefaultTimeout; 0 means such
// sessions run unlimited.
//
// Precondition: calc, logger, and metrics must be non-nil; defaultTimeout
// must not be negative.
func NewManager(calc *Calculator, ratings RatingAdjuster, defaultTimeout time.Duration, logger *zap.Logger, metrics *observability.Metrics) *Manager {
	return &Manager{
		calc:           calc,
		ratings:        ratings,
		defaultTimeout: defaultTimeout,
		logger:         logger,
		metrics:        metrics,
		sessions:       make(map[string]*Session),
		byChar:         make(map[string]string),
	}
}

// StartSession builds, populates, and starts a new session of the given type.
// Passing UseDefaultTimeout as the timeout applies the manager's configured
// default; 0 means unlimited.
//
// Precondition: teams must contain at least one member overall.
// Postcondition: Returns the running session, or an error if any member is
// already in an active session.
func (m *Manager) StartSession(t Type, teams []Team, desc string, timeout time.Duration) (*Session, error) {
	if timeout == UseDefaultTimeout {
		timeout = m.defaultTimeout
	}
	m.mu.Lock()
	for _, team := range teams {
		for _, member := range team.Members {
			if sid, busy := m.byChar[member.UID()]; busy {
				m.mu.Unlock()
				return nil, fmt.Errorf("character %s already in session %s", member.UID(), sid)
			}
		}
	}

	sess := NewSession(t, m.calc, m.ratings, m.logger, m.metrics, m.release)
	m.sessions[sess.ID()] = sess
	for _, team := range teams {
		for _, member := range team.Members {
			m.byChar[member.UID()] = sess.ID()
		}
	}
	m.mu.Unlock()

	if err := sess.SetCombat(teams, desc, timeout); err != nil {
		m.release(sess)
		return nil, err
	}
	sess.Start()
	return sess, nil
}

// Get returns the session with the given ID.
//
// Postcondition: Returns (session, true) if found, or (nil, false) otherwise.
func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[sessionID]
	return sess, ok
}

// SessionFor returns the active session containing the given character.
//
// Postcondition: Returns (session, true) if the character is in a session.
func (m *Manager) SessionFor(characterID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sid, ok := m.byChar[characterID]
	if !ok {
		return nil, false
	}
	sess, ok := m.sessions[sid]
	return sess, ok
}

// InCombat reports whether the character is currently in an active session.
func (m *Manager) InCombat(characterID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.byChar[characterID]
	return ok
}

// ActiveCount returns the number of tracked sessions.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// release drops a torn-down session and frees its participants for new
// sessions. Invoked by the session itself once every participant has left.
func (m *Manager) release(sess *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sess.ID())
	for uid, sid := range m.byChar {
		if sid == sess.ID() {
			delete(m.byChar, uid)
		}
	}
}
