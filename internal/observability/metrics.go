// Package observability holds the Prometheus metrics and OpenTelemetry tracing
// setup for the chat server.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "judee"

// Upstream names used as the "upstream" label.
const (
	UpstreamContext    = "context"
	UpstreamGeneration = "generation"
)

// Metrics is nil-safe: every method on a nil *Metrics is a no-op, so
// components can be built without a registry in tests.
type Metrics struct {
	requests         *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	contextDocuments prometheus.Histogram
	droppedDocuments prometheus.Counter
	activeStreams    prometheus.Gauge
	relayedBytes     prometheus.Counter
	malformedFrames  prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "requests_total",
			Help:      "Chat turns by relay mode and final status",
		}, []string{"mode", "status"}),
		upstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_duration_seconds",
			Help:      "Latency of calls to the context service and the generation backend",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"upstream", "outcome"}),
		contextDocuments: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "context_documents",
			Help:      "Documents placed in the prompt per turn",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		}),
		droppedDocuments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "context_documents_dropped_total",
			Help:      "Documents removed by the distance filter",
		}),
		activeStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_streams",
			Help:      "Streamed responses currently being relayed",
		}),
		relayedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relayed_bytes_total",
			Help:      "Bytes of generation output relayed to clients",
		}),
		malformedFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_frames_total",
			Help:      "NDJSON lines that could not be decoded",
		}),
	}

	reg.MustRegister(
		m.requests,
		m.upstreamDuration,
		m.contextDocuments,
		m.droppedDocuments,
		m.activeStreams,
		m.relayedBytes,
		m.malformedFrames,
	)
	return m
}

func (m *Metrics) ObserveRequest(mode, status string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(mode, status).Inc()
}

func (m *Metrics) ObserveUpstream(upstream string, err error, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.upstreamDuration.WithLabelValues(upstream, outcome).Observe(d.Seconds())
}

func (m *Metrics) ObserveContext(documents, dropped int) {
	if m == nil {
		return
	}
	m.contextDocuments.Observe(float64(documents))
	m.droppedDocuments.Add(float64(dropped))
}

// StreamStarted increments the active stream gauge and returns the matching
// decrement.
func (m *Metrics) StreamStarted() func() {
	if m == nil {
		return func() {}
	}
	m.activeStreams.Inc()
	return m.activeStreams.Dec
}

func (m *Metrics) AddRelayedBytes(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.relayedBytes.Add(float64(n))
}

func (m *Metrics) MalformedFrame() {
	if m == nil {
		return
	}
	m.malformedFrames.Inc()
}
