package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	renders     prometheus.Histogram
	missing     *prometheus.CounterVec
	rows        *prometheus.GaugeVec
	errorsTotal *prometheus.CounterVec
	wsClients   prometheus.Gauge
}

// New creates a recorder registered on the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the collectors on reg. Tests pass a fresh
// prometheus.NewRegistry() to avoid duplicate registration.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		renders: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "stockdash_render_duration_seconds",
				Help:    "Time spent building one full dashboard",
				Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
			},
		),
		missing: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockdash_missing_data_total",
				Help: "Charts rendered with a placeholder because the ticker had no rows",
			},
			[]string{"chart"},
		),
		rows: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stockdash_table_rows",
				Help: "Rows held per table after load",
			},
			[]string{"table"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockdash_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		wsClients: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "stockdash_ws_connections",
				Help: "Open websocket dashboard sessions",
			},
		),
	}
}

// RecordRender observes one dashboard render in seconds.
func (r *Recorder) RecordRender(seconds float64) {
	r.renders.Observe(seconds)
}

// RecordMissing counts a placeholder chart.
func (r *Recorder) RecordMissing(chart string) {
	r.missing.WithLabelValues(chart).Inc()
}

func (r *Recorder) RecordRows(table string, n int) {
	r.rows.WithLabelValues(table).Set(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) WSConnected()    { r.wsClients.Inc() }
func (r *Recorder) WSDisconnected() { r.wsClients.Dec() }
