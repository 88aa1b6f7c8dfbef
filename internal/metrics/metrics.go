// Package metrics exposes Prometheus instrumentation for interview sessions.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds the Prometheus collectors shared by the orchestrator and transport.
type Metrics struct {
	TurnsTotal            *prometheus.CounterVec
	TurnDuration          *prometheus.HistogramVec
	PhaseTransitionsTotal *prometheus.CounterVec
	UpstreamFailuresTotal *prometheus.CounterVec
	MarkerAnomaliesTotal  *prometheus.CounterVec

	ActiveSessions    prometheus.Gauge
	ActiveConnections prometheus.Gauge
}

// New returns the process-wide metrics, registering them on first use.
//
// Registration goes through sync.Once so repeated construction in tests never
// triggers a duplicate collector panic.
//
// Metrics:
//   - interview_turns_total{phase,result}
//   - interview_turn_duration_seconds{phase}
//   - interview_phase_transitions_total{from,to}
//   - interview_upstream_failures_total{capability} - stt, llm or tts
//   - interview_marker_anomalies_total{kind} - stray or out_of_phase
//   - interview_active_sessions
//   - interview_active_connections
func New() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			TurnsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "interview",
					Name:      "turns_total",
					Help:      "Total number of handled turns",
				},
				[]string{"phase", "result"},
			),

			TurnDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: "interview",
					Name:      "turn_duration_seconds",
					Help:      "Duration of a turn including generation",
					Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
				},
				[]string{"phase"},
			),

			PhaseTransitionsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "interview",
					Name:      "phase_transitions_total",
					Help:      "Total number of phase transitions",
				},
				[]string{"from", "to"},
			),

			UpstreamFailuresTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "interview",
					Name:      "upstream_failures_total",
					Help:      "Total number of failed calls to external capabilities",
				},
				[]string{"capability"},
			),

			MarkerAnomaliesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "interview",
					Name:      "marker_anomalies_total",
					Help:      "Completion markers that were stripped without transitioning",
				},
				[]string{"kind"},
			),

			ActiveSessions: promauto.NewGauge(
				prometheus.GaugeOpts{
					Namespace: "interview",
					Name:      "active_sessions",
					Help:      "Current number of interview sessions",
				},
			),

			ActiveConnections: promauto.NewGauge(
				prometheus.GaugeOpts{
					Namespace: "interview",
					Name:      "active_connections",
					Help:      "Current number of open WebSocket connections",
				},
			),
		}
	})

	return globalMetrics
}

// Capability labels for UpstreamFailuresTotal.
const (
	CapabilitySTT = "stt"
	CapabilityLLM = "llm"
	CapabilityTTS = "tts"
)

// RecordTurn records a finished turn with its outcome and duration.
func (m *Metrics) RecordTurn(phase, result string, durationSeconds float64) {
	m.TurnsTotal.WithLabelValues(phase, result).Inc()
	m.TurnDuration.WithLabelValues(phase).Observe(durationSeconds)
}

// RecordTransition records a phase change.
func (m *Metrics) RecordTransition(from, to string) {
	m.PhaseTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordUpstreamFailure records a failed STT, generation or TTS call.
func (m *Metrics) RecordUpstreamFailure(capability string) {
	m.UpstreamFailuresTotal.WithLabelValues(capability).Inc()
}

// RecordMarkerAnomaly records a marker that was stripped but ignored.
func (m *Metrics) RecordMarkerAnomaly(kind string) {
	m.MarkerAnomaliesTotal.WithLabelValues(kind).Inc()
}

// SetActiveSessions updates the session gauge.
func (m *Metrics) SetActiveSessions(n int) {
	m.ActiveSessions.Set(float64(n))
}

// ConnectionOpened increments the connection gauge.
func (m *Metrics) ConnectionOpened() {
	m.ActiveConnections.Inc()
}

// ConnectionClosed decrements the connection gauge.
func (m *Metrics) ConnectionClosed() {
	m.ActiveConnections.Dec()
}
