// Package metrics exposes Prometheus counters for scans and quote lookups
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "insider_radar"

// Registry holds all radar metrics on a private prometheus registry
type Registry struct {
	reg *prometheus.Registry

	Lookups       *prometheus.CounterVec
	LookupLatency *prometheus.HistogramVec
	Scans         *prometheus.CounterVec
	ScanDuration  prometheus.Histogram
	Candidates    *prometheus.CounterVec
	ActiveScans   prometheus.Gauge
}

// NewRegistry creates and registers every radar metric. withRuntime adds the
// Go runtime and process collectors.
func NewRegistry(withRuntime bool) *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		Lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lookups_total",
				Help:      "Fundamentals lookups by source and outcome",
			},
			[]string{"source", "outcome"},
		),

		LookupLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "lookup_duration_seconds",
				Help:      "Fundamentals lookup latency in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
			},
			[]string{"source"},
		),

		Scans: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scans_total",
				Help:      "Pipeline runs by outcome",
			},
			[]string{"outcome"},
		),

		ScanDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "scan_duration_seconds",
				Help:      "Wall time of a pipeline run in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
			},
		),

		Candidates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "candidates_total",
				Help:      "Screened candidates by verdict",
			},
			[]string{"verdict"},
		),

		ActiveScans: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_scans",
				Help:      "Scans currently running in the server",
			},
		),
	}

	r.reg.MustRegister(r.Lookups, r.LookupLatency, r.Scans, r.ScanDuration, r.Candidates, r.ActiveScans)
	if withRuntime {
		r.reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return r
}

// ObserveLookup records one provider attempt. Cached answers carry no latency.
func (r *Registry) ObserveLookup(source, outcome string, d time.Duration) {
	r.Lookups.WithLabelValues(source, outcome).Inc()
	if d > 0 {
		r.LookupLatency.WithLabelValues(source).Observe(d.Seconds())
	}
}

// ObserveScan records a finished pipeline run
func (r *Registry) ObserveScan(outcome string, d time.Duration) {
	r.Scans.WithLabelValues(outcome).Inc()
	r.ScanDuration.Observe(d.Seconds())
}

// ObserveVerdicts adds gate results to the candidate counters
func (r *Registry) ObserveVerdicts(accepted, rejected int) {
	r.Candidates.WithLabelValues("accepted").Add(float64(accepted))
	r.Candidates.WithLabelValues("rejected").Add(float64(rejected))
}

// Handler serves the registry in the Prometheus exposition format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

