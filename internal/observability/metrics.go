package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// total requests per endpoint, method and status code
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adkit_requests_total",
			Help: "Total API requests received",
		},
		[]string{"endpoint", "method", "status"},
	)

	// request latency in seconds per endpoint/method
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adkit_request_duration_seconds",
			Help:    "Histogram of request latencies",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method"},
	)

	// rate limit checks per action
	RateLimitRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adkit_ratelimit_requests_total",
			Help: "Total rate limit checks per action",
		},
		[]string{"action"},
	)

	// rate limit hits per action
	RateLimitHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adkit_ratelimit_hits_total",
			Help: "Total rate limited calls per action",
		},
		[]string{"action"},
	)

	// counter store failures; the limiter fails open when these happen
	RateLimitErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "adkit_ratelimit_store_errors_total",
			Help: "Total rate limit store errors",
		},
	)

	// geolocation lookups labelled by outcome (found, not_found, error, invalid)
	GeoLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adkit_geo_lookups_total",
			Help: "Total GeoIP lookups",
		},
		[]string{"outcome"},
	)

	GeoLookupLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "adkit_geo_lookup_duration_seconds",
			Help:    "Duration of GeoIP lookups",
			Buckets: prometheus.ExponentialBuckets(0.00005, 2, 12),
		},
	)

	// analytics events labelled by outcome (sent, failed, dropped, skipped)
	AnalyticsEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adkit_analytics_events_total",
			Help: "Total analytics events by dispatch outcome",
		},
		[]string{"outcome"},
	)

	// user agents matched by the blacklist
	BlacklistedUserAgents = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "adkit_blacklisted_user_agents_total",
			Help: "Total requests from blacklisted user agents",
		},
	)
)

func init() {
	// register all metrics
	prometheus.MustRegister(
		RequestCount,
		RequestLatency,
		RateLimitRequests,
		RateLimitHits,
		RateLimitErrors,
		GeoLookups,
		GeoLookupLatency,
		AnalyticsEvents,
		BlacklistedUserAgents,
	)
}
