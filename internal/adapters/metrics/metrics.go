// Package metrics exposes conversation turns as Prometheus metrics.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bnema/meeting-assistant-cli/internal/ports"
)

const namespace = "meeting_assistant"

var (
	defaultMetrics *TurnMetrics
	defaultOnce    sync.Once
)

// TurnMetrics records one observation per conversation turn.
//
// Metrics:
//   - meeting_assistant_turns_total{action,state,outcome}
//   - meeting_assistant_turn_duration_seconds{outcome}
//   - meeting_assistant_field_changes_total{field}
//   - meeting_assistant_normalization_failures_total
//   - meeting_assistant_sessions_reopened_total
type TurnMetrics struct {
	turns            *prometheus.CounterVec
	duration         *prometheus.HistogramVec
	fieldChanges     *prometheus.CounterVec
	normalizeFailure prometheus.Counter
	reopened         prometheus.Counter
}

var _ ports.TurnObserver = (*TurnMetrics)(nil)

// Default registers the metrics with the default registerer once per process.
func Default() *TurnMetrics {
	defaultOnce.Do(func() {
		defaultMetrics = NewTurnMetrics(prometheus.DefaultRegisterer)
	})

	return defaultMetrics
}

func NewTurnMetrics(reg prometheus.Registerer) *TurnMetrics {
	factory := promauto.With(reg)

	return &TurnMetrics{
		turns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Conversation turns by resulting action and state.",
		}, []string{"action", "state", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Time to handle one conversation turn, including model and calendar calls.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"outcome"}),
		fieldChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "field_changes_total",
			Help:      "Meeting fields changed by a merge.",
		}, []string{"field"}),
		normalizeFailure: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "normalization_failures_total",
			Help:      "Candidate values that could not be normalized.",
		}),
		reopened: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_reopened_total",
			Help:      "Finished sessions restarted by a new request.",
		}),
	}
}

func (m *TurnMetrics) ObserveTurn(outcome ports.TurnOutcome) {
	result := "ok"
	if outcome.Err != nil {
		result = "error"
	}
	action := string(outcome.Action)
	if action == "" {
		action = "none"
	}
	state := string(outcome.State)
	if state == "" {
		state = "none"
	}

	m.turns.WithLabelValues(action, state, result).Inc()
	m.duration.WithLabelValues(result).Observe(outcome.Duration.Seconds())
	for _, field := range outcome.Changed {
		m.fieldChanges.WithLabelValues(string(field)).Inc()
	}
	if outcome.Failures > 0 {
		m.normalizeFailure.Add(float64(outcome.Failures))
	}
	if outcome.Reopened {
		m.reopened.Inc()
	}
}
