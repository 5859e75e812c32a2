package combat

import (
	"sync"
	"time"
)

// DeadlineTimer fires a callback after a configurable duration unless stopped.
// Sessions and matchmaking pairs own one per armed deadline; every transition
// that makes the deadline stale must Stop it. A fire that races a Stop is a
// silent no-op. It is safe for concurrent use.
type DeadlineTimer struct {
	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// NewDeadlineTimer creates and starts a timer that calls onFire after duration.
// onFire is called in a separate goroutine.
//
// Precondition: duration > 0; onFire must not be nil.
// Postcondition: Returns a running DeadlineTimer; onFire will be called unless
// Stop is called first.
func NewDeadlineTimer(duration time.Duration, onFire func()) *DeadlineTimer {
	dt := &DeadlineTimer{}
	dt.timer = time.AfterFunc(duration, func() {
		dt.mu.Lock()
		stopped := dt.stopped
		dt.mu.Unlock()
		if !stopped {
			onFire()
		}
	})
	return dt
}

// Stop prevents the callback from firing. Safe to call multiple times.
//
// Postcondition: onFire will not be called after Stop returns.
func (dt *DeadlineTimer) Stop() {
	dt.mu.Lock()
	defer dt.mu.Unlock()
	dt.stopped = true
	dt.timer.Stop()
}
