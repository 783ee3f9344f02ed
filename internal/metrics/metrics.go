// Package metrics exposes Prometheus instrumentation for report passes and
// their upstream collaborators. A nil *Registry is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds every collector the service exports.
type Registry struct {
	reg *prometheus.Registry

	Analyses         *prometheus.CounterVec
	ScorerCalls      *prometheus.CounterVec
	ReportDuration   *prometheus.HistogramVec
	CacheLookups     *prometheus.CounterVec
	UpstreamRequests *prometheus.CounterVec
	IntradayTags     *prometheus.CounterVec
}

// New creates a registry with all metrics registered.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		Analyses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendsentinel_daily_analyses_total",
				Help: "Daily trend analyses by resulting status",
			},
			[]string{"status"},
		),
		ScorerCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendsentinel_scorer_calls_total",
				Help: "Scorer invocations by outcome",
			},
			[]string{"outcome"},
		),
		ReportDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trendsentinel_report_duration_seconds",
				Help:    "Wall time of one report pass",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"pool", "mode"},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendsentinel_snapshot_cache_lookups_total",
				Help: "Realtime snapshot cache lookups by result",
			},
			[]string{"layer", "result"},
		),
		UpstreamRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendsentinel_upstream_requests_total",
				Help: "Requests to market data sources by outcome",
			},
			[]string{"source", "outcome"},
		),
		IntradayTags: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendsentinel_intraday_tags_total",
				Help: "Intraday tags emitted",
			},
			[]string{"tag"},
		),
	}
	r.reg.MustRegister(
		r.Analyses, r.ScorerCalls, r.ReportDuration,
		r.CacheLookups, r.UpstreamRequests, r.IntradayTags,
	)
	return r
}

// Gatherer returns the underlying registry for exposition.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

func (r *Registry) ObserveAnalysis(status string) {
	if r == nil {
		return
	}
	r.Analyses.WithLabelValues(status).Inc()
}

func (r *Registry) ObserveScorer(err error) {
	if r == nil {
		return
	}
	r.ScorerCalls.WithLabelValues(outcome(err)).Inc()
}

func (r *Registry) ObserveReport(pool, mode string, d time.Duration) {
	if r == nil {
		return
	}
	r.ReportDuration.WithLabelValues(pool, mode).Observe(d.Seconds())
}

func (r *Registry) ObserveCache(layer string, hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.CacheLookups.WithLabelValues(layer, result).Inc()
}

func (r *Registry) ObserveUpstream(source string, err error) {
	if r == nil {
		return
	}
	r.UpstreamRequests.WithLabelValues(source, outcome(err)).Inc()
}

func (r *Registry) ObserveTags(tags []string) {
	if r == nil {
		return
	}
	for _, t := range tags {
		r.IntradayTags.WithLabelValues(t).Inc()
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
