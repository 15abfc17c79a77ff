package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the pipeline's operational surface: per-phase run results
// and per-user outcome counts, scrapeable from /metrics.
type Metrics struct {
	registry *prometheus.Registry

	runs     *prometheus.CounterVec
	outcomes *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flareweather_runs_total",
			Help: "Batch runs by phase and result.",
		}, []string{"phase", "result"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flareweather_users_total",
			Help: "Per-user work units by phase and outcome.",
		}, []string{"phase", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flareweather_run_duration_seconds",
			Help:    "Batch run duration by phase.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"phase"}),
	}
	reg.MustRegister(m.runs, m.outcomes, m.duration)
	return m
}

// ObserveRun records one batch run's summary.
func (m *Metrics) ObserveRun(phase string, succeeded, skipped, failed int, dur time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.runs.WithLabelValues(phase, result).Inc()
	m.duration.WithLabelValues(phase).Observe(dur.Seconds())
	m.outcomes.WithLabelValues(phase, "succeeded").Add(float64(succeeded))
	m.outcomes.WithLabelValues(phase, "skipped").Add(float64(skipped))
	m.outcomes.WithLabelValues(phase, "failed").Add(float64(failed))
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
