package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus instruments exported by the arena subsystem.
// A single Metrics value is constructed at startup and shared by reference.
type Metrics struct {
	// SessionsStarted counts combat sessions started, labelled by combat type.
	SessionsStarted *prometheus.CounterVec
	// SessionsFinished counts combat sessions finished, labelled by combat type
	// and outcome ("decided" or "draw").
	SessionsFinished *prometheus.CounterVec
	// QueuePairs counts tentative matchmaking pairs formed.
	QueuePairs prometheus.Counter
	// QueueRejections counts pairs that never started (explicit reject or
	// confirmation window elapsed).
	QueueRejections prometheus.Counter
	// QueueWaiting tracks the current number of characters in the waiting queue.
	QueueWaiting prometheus.Gauge
	// RatingAdjustments counts characters whose honour rating was adjusted.
	RatingAdjustments prometheus.Counter
}

// NewMetrics creates and registers the arena metrics on the given registerer.
//
// Precondition: reg must be non-nil; passing prometheus.DefaultRegisterer is fine.
// Postcondition: Returns a Metrics value with all instruments registered, or an
// error if a collector with the same name is already registered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		SessionsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arena",
			Name:      "combat_sessions_started_total",
			Help:      "Combat sessions started, by combat type.",
		}, []string{"combat_type"}),
		SessionsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arena",
			Name:      "combat_sessions_finished_total",
			Help:      "Combat sessions finished, by combat type and outcome.",
		}, []string{"combat_type", "outcome"}),
		QueuePairs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "arena",
			Name:      "matchmaking_pairs_total",
			Help:      "Tentative matchmaking pairs formed.",
		}),
		QueueRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "arena",
			Name:      "matchmaking_rejections_total",
			Help:      "Matchmaking pairs that did not start a session.",
		}),
		QueueWaiting: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "arena",
			Name:      "matchmaking_waiting",
			Help:      "Characters currently waiting in the matchmaking queue.",
		}),
		RatingAdjustments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "arena",
			Name:      "honour_rating_adjustments_total",
			Help:      "Characters whose honour rating was adjusted after a match.",
		}),
	}

	collectors := []prometheus.Collector{
		m.SessionsStarted, m.SessionsFinished,
		m.QueuePairs, m.QueueRejections, m.QueueWaiting,
		m.RatingAdjustments,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// NewTestMetrics creates a Metrics value on a private registry for tests.
//
// Postcondition: Returns a non-nil Metrics; never fails.
func NewTestMetrics() *Metrics {
	m, err := NewMetrics(prometheus.NewRegistry())
	if err != nil {
		panic(err)
	}
	return m
}
