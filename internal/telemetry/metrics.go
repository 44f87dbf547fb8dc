package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instruments for the refresh pipeline.
type Metrics struct {
	registry *prometheus.Registry

	// Refresh pipeline
	RefreshTotal    *prometheus.CounterVec
	RefreshDuration prometheus.Histogram
	RefreshSkipped  prometheus.Counter // triggers ignored while a fetch was in flight
	BatchSize       prometheus.Gauge
	BatchAge        prometheus.Gauge

	// Upstream adapter
	RecordsSkipped prometheus.Counter
	UpstreamErrors *prometheus.CounterVec

	// Presentation
	WSClients prometheus.Gauge
}

// NewMetrics creates and registers all voltracker metrics on a private
// registry so tests can construct as many instances as they like.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		RefreshTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voltracker_refresh_total",
				Help: "Total refresh attempts by result",
			},
			[]string{"result"},
		),

		RefreshDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "voltracker_refresh_duration_seconds",
				Help:    "Duration of a full fetch+enrich refresh in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
		),

		RefreshSkipped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "voltracker_refresh_skipped_total",
				Help: "Refresh triggers ignored because a fetch was already in flight",
			},
		),

		BatchSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "voltracker_batch_size",
				Help: "Number of records in the currently displayed batch",
			},
		),

		BatchAge: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "voltracker_batch_age_seconds",
				Help: "Age of the currently displayed batch in seconds",
			},
		),

		RecordsSkipped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "voltracker_records_skipped_total",
				Help: "Upstream records dropped for missing or malformed required fields",
			},
		),

		UpstreamErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voltracker_upstream_errors_total",
				Help: "Upstream fetch errors by kind",
			},
			[]string{"kind"},
		),

		WSClients: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "voltracker_ws_clients",
				Help: "Currently connected websocket clients",
			},
		),
	}

	m.registry.MustRegister(
		m.RefreshTotal,
		m.RefreshDuration,
		m.RefreshSkipped,
		m.BatchSize,
		m.BatchAge,
		m.RecordsSkipped,
		m.UpstreamErrors,
		m.WSClients,
	)

	return m
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
