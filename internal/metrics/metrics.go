// Package metrics exposes prometheus collectors for the catalog. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "reelshelf"

type Metrics struct {
	registry *prometheus.Registry

	ticks         *prometheus.CounterVec
	uploads       *prometheus.CounterVec
	storeFailures *prometheus.CounterVec
	progressFlush prometheus.Counter
	entries       prometheus.Gauge
	sessions      prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "progress_ticks_total",
			Help:      "Playback progress ticks by outcome.",
		}, []string{"result"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Upload attempts by outcome.",
		}, []string{"result"}),
		storeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_failures_total",
			Help:      "Swallowed persistence failures by operation.",
		}, []string{"op"}),
		progressFlush: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "progress_writes_total",
			Help:      "Watch time writes sent to the store.",
		}),
		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_entries",
			Help:      "Entries in the in-memory catalog.",
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "player_sessions",
			Help:      "Open player sessions.",
		}),
	}

	m.registry.MustRegister(m.ticks, m.uploads, m.storeFailures, m.progressFlush, m.entries, m.sessions)
	m.registry.MustRegister(prometheus.NewGoCollector())
	m.registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	return m
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) TickApplied() {
	if m != nil {
		m.ticks.WithLabelValues("applied").Inc()
	}
}

func (m *Metrics) TickRejected() {
	if m != nil {
		m.ticks.WithLabelValues("stale").Inc()
	}
}

func (m *Metrics) Upload(result string) {
	if m != nil {
		m.uploads.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) StoreFailure(op string) {
	if m != nil {
		m.storeFailures.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) ProgressWrite() {
	if m != nil {
		m.progressFlush.Inc()
	}
}

func (m *Metrics) SetEntries(n int) {
	if m != nil {
		m.entries.Set(float64(n))
	}
}

func (m *Metrics) SetSessions(n int) {
	if m != nil {
		m.sessions.Set(float64(n))
	}
}
