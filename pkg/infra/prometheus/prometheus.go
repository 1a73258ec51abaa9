package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var registry = prometheus.NewRegistry()

var registerer = prometheus.WrapRegistererWith(nil, registry)

var (
	// Latency buckets in milliseconds. Inspection is CPU only, so most
	// observations land in the low buckets.
	latencyBuckets = []float64{
		0.5, 1, 2.5,
		5, 10, 25,
		50, 100, 250,
		500, 1000,
	}

	DecisionsTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "careguard_decisions_total",
			Help: "Moderation decisions by message role, action and risk category",
		},
		[]string{"role", "action", "category"},
	)

	InspectLatency = promauto.With(registerer).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "careguard_inspect_latency_ms",
			Help:    "Time spent scanning and classifying one message",
			Buckets: latencyBuckets,
		},
		[]string{"role"},
	)

	FailClosedTotal = promauto.With(registerer).NewCounter(
		prometheus.CounterOpts{
			Name: "careguard_fail_closed_total",
			Help: "Inspections that failed internally and were blocked",
		},
	)

	AlertsTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "careguard_alerts_total",
			Help: "Crisis alert operations by outcome (created, absorbed, claimed, resolved, escalated)",
		},
		[]string{"outcome"},
	)

	AlertSLABreaches = promauto.With(registerer).NewCounter(
		prometheus.CounterOpts{
			Name: "careguard_alert_sla_breaches_total",
			Help: "Crisis alerts not claimed within their SLA",
		},
	)

	BoundaryViolationsTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "careguard_boundary_violations_total",
			Help: "Scope of practice substitutions in assistant replies",
		},
		[]string{"type"},
	)

	DictionaryGeneration = promauto.With(registerer).NewGauge(
		prometheus.GaugeOpts{
			Name: "careguard_dictionary_generation",
			Help: "Generation of the dictionary snapshot currently served",
		},
	)

	DictionaryEntries = promauto.With(registerer).NewGauge(
		prometheus.GaugeOpts{
			Name: "careguard_dictionary_entries",
			Help: "Active pattern entries in the served snapshot",
		},
	)

	DictionaryLoadFailures = promauto.With(registerer).NewCounter(
		prometheus.CounterOpts{
			Name: "careguard_dictionary_load_failures_total",
			Help: "Dictionary refreshes that kept the last known good snapshot",
		},
	)

	RetryQueueDepth = promauto.With(registerer).NewGauge(
		prometheus.GaugeOpts{
			Name: "careguard_retry_queue_depth",
			Help: "Deferred writes waiting for storage to come back",
		},
	)

	RetryJobsTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "careguard_retry_jobs_total",
			Help: "Deferred writes by job kind and outcome (succeeded, dropped, abandoned)",
		},
		[]string{"kind", "outcome"},
	)

	AuditPending = promauto.With(registerer).NewGauge(
		prometheus.GaugeOpts{
			Name: "careguard_audit_pending",
			Help: "Audit records written to the WAL but not yet stored",
		},
	)

	FeedDropped = promauto.With(registerer).NewCounter(
		prometheus.CounterOpts{
			Name: "careguard_alert_feed_dropped_total",
			Help: "Alert feed events dropped for slow dashboard connections",
		},
	)

	VerdictsTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "careguard_verdicts_total",
			Help: "Reviewer verdicts ingested by kind",
		},
		[]string{"verdict"},
	)

	HTTPRequestsTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "careguard_http_requests_total",
			Help: "HTTP requests served, by server, route and status code",
		},
		[]string{"server", "route", "status"},
	)

	HTTPRequestLatency = promauto.With(registerer).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "careguard_http_request_latency_ms",
			Help:    "HTTP request latency in milliseconds",
			Buckets: latencyBuckets,
		},
		[]string{"server", "route"},
	)

	ProposalsTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "careguard_weight_proposals_total",
			Help: "Weight proposals by status",
		},
		[]string{"status"},
	)
)

type MetricsConfig struct {
	EnableLatency bool
}

func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		EnableLatency: true,
	}
}

var Config = DefaultMetricsConfig()

func Initialize(cfg MetricsConfig) {
	Config = cfg
	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	prometheus.DefaultRegisterer = registry
	prometheus.DefaultGatherer = registry
}

func Gatherer() prometheus.Gatherer {
	return registry
}
