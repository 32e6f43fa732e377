package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheRequests counts volatile-cache lookups by registry and outcome (hit|miss|error).
	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ukfood_cache_requests_total",
			Help: "Total number of volatile cache lookups",
		},
		[]string{"registry", "outcome"},
	)

	// ResolverSource counts resolved requests by registry and answering tier
	// (cache|store|upstream).
	ResolverSource = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ukfood_resolver_source_total",
			Help: "Requests resolved, labelled by the tier that answered",
		},
		[]string{"registry", "source"},
	)

	// UpstreamRequests counts registry API calls by operation and outcome
	// (success|not_found|error).
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ukfood_upstream_requests_total",
			Help: "Total number of upstream registry calls",
		},
		[]string{"registry", "operation", "outcome"},
	)

	// UpstreamRetries counts retry attempts performed against upstream registries.
	UpstreamRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ukfood_upstream_retries_total",
			Help: "Total number of upstream retry attempts",
		},
		[]string{"registry"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ukfood_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
