// Package metrics exposes Prometheus instrumentation for the sync,
// recommendation, and report engines, grounded on the teacher's use of
// prometheus/client_golang.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry bundles the counters and histograms emitted by the HTTP layer.
type Registry struct {
	PushItemsTotal      *prometheus.CounterVec
	PushDuration        prometheus.Histogram
	PullDuration        prometheus.Histogram
	RecommendDuration   prometheus.Histogram
	ReportDuration      prometheus.Histogram
	DerivationFailures  *prometheus.CounterVec
	ReportCacheHitTotal *prometheus.CounterVec
}

// New builds and registers the registry's metrics against prometheus's
// default registerer.
func New() *Registry {
	r := &Registry{
		PushItemsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "synapse_sync_push_items_total",
			Help: "Count of sync push items by entity type and status.",
		}, []string{"entity_type", "status"}),
		PushDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "synapse_sync_push_duration_seconds",
			Help:    "Duration of sync push batch handling.",
			Buckets: prometheus.DefBuckets,
		}),
		PullDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "synapse_sync_pull_duration_seconds",
			Help:    "Duration of sync pull requests.",
			Buckets: prometheus.DefBuckets,
		}),
		RecommendDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "synapse_recommend_duration_seconds",
			Help:    "Duration of recommendation requests.",
			Buckets: prometheus.DefBuckets,
		}),
		ReportDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "synapse_report_duration_seconds",
			Help:    "Duration of weekly report generation.",
			Buckets: prometheus.DefBuckets,
		}),
		DerivationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "synapse_derivation_failures_total",
			Help: "Count of embedding/keyword derivation failures by stage.",
		}, []string{"stage"}),
		ReportCacheHitTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "synapse_report_cache_result_total",
			Help: "Weekly report cache lookups by result.",
		}, []string{"result"}),
	}

	prometheus.MustRegister(
		r.PushItemsTotal,
		r.PushDuration,
		r.PullDuration,
		r.RecommendDuration,
		r.ReportDuration,
		r.DerivationFailures,
		r.ReportCacheHitTotal,
	)
	return r
}
