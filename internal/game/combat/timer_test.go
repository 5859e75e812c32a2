package combat_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/cory-johannsen/arena/internal/game/combat"
)

func TestDeadlineTimer_Fires(t *testing.T) {
	var called atomic.Int32
	dt := combat.NewDeadlineTimer(20*time.Millisecond, func() {
		called.Add(1)
	})
	_ = dt
	time.Sleep(50 * time.Millisecond)
	if called.Load() != 1 {
		t.Fatalf("expected callback called once, got %d", called.Load())
	}
}

func TestDeadlineTimer_Stop_PreventsCallback(t *testing.T) {
	var called atomic.Int32
	dt := combat.NewDeadlineTimer(50*time.Millisecond, func() {
		called.Add(1)
	})
	dt.Stop()
	time.Sleep(80 * time.Millisecond)
	if called.Load() != 0 {
		t.Fatalf("expected callback not called, got %d", called.Load())
	}
}

func TestDeadlineTimer_StopIdempotent(t *testing.T) {
	dt := combat.NewDeadlineTimer(50*time.Millisecond, func() {})
	// Multiple Stop() calls must not panic
	dt.Stop()
	dt.Stop()
	dt.Stop()
}
