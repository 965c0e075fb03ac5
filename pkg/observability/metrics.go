package observability

import (
	"context"

	"github.com/aretw0/bookflow/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bookflow"

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	reg          prometheus.Registerer
	turns        *prometheus.CounterVec
	stateVisits  *prometheus.CounterVec
	turnDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg uses a private registry, which is handy in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		reg: reg,
		turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "turns_total",
				Help:      "Total number of conversation turns by intent and outcome",
			},
			[]string{"intent", "outcome"},
		),
		stateVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "state_visits_total",
				Help:      "Total number of times a turn entered each graph state",
			},
			[]string{"state"},
		),
		turnDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "turn_duration_seconds",
				Help:      "Duration of conversation turns",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"outcome"},
		),
	}
	reg.MustRegister(m.turns, m.stateVisits, m.turnDuration)
	return m
}

// Hooks returns lifecycle hooks that feed the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStateEnter: func(ctx context.Context, e *domain.StateEvent) {
			m.stateVisits.WithLabelValues(string(e.State)).Inc()
		},
		OnTurnComplete: func(ctx context.Context, e *domain.TurnEvent) {
			intent := string(e.Intent)
			if intent == "" {
				intent = string(domain.IntentUnknown)
			}
			m.turns.WithLabelValues(intent, e.Outcome).Inc()
			m.turnDuration.WithLabelValues(e.Outcome).Observe(e.Duration.Seconds())
		},
	}
}

// TrackActiveSessions exposes bookflow_active_sessions, read from count on every scrape.
func (m *Metrics) TrackActiveSessions(count func() float64) {
	m.reg.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of sessions currently held by the session store",
		},
		count,
	))
}
