package observability

import "time"

// MetricsRegistry provides an interface for recording application metrics.
// Components receive it through dependency injection instead of touching the
// global Prometheus collectors directly.
type MetricsRegistry interface {
	// HTTP Request metrics
	IncrementRequests(endpoint, method, status string)
	RecordRequestLatency(endpoint, method string, duration time.Duration)

	// Rate limiting metrics
	IncrementRateLimitRequests(action string)
	IncrementRateLimitHits(action string)
	IncrementRateLimitErrors()

	// Geolocation metrics
	IncrementGeoLookups(outcome string)
	RecordGeoLookupLatency(duration time.Duration)

	// Analytics dispatch metrics
	IncrementAnalyticsEvents(outcome string)

	// User agent filtering
	IncrementBlacklistedUserAgents()
}

// PrometheusRegistry implements MetricsRegistry using the global Prometheus metrics
type PrometheusRegistry struct{}

// NewPrometheusRegistry creates a new PrometheusRegistry
func NewPrometheusRegistry() *PrometheusRegistry {
	return &PrometheusRegistry{}
}

// HTTP Request metrics
func (r *PrometheusRegistry) IncrementRequests(endpoint, method, status string) {
	RequestCount.WithLabelValues(endpoint, method, status).Inc()
}

func (r *PrometheusRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {
	RequestLatency.WithLabelValues(endpoint, method).Observe(duration.Seconds())
}

// Rate limiting metrics
func (r *PrometheusRegistry) IncrementRateLimitRequests(action string) {
	RateLimitRequests.WithLabelValues(action).Inc()
}

func (r *PrometheusRegistry) IncrementRateLimitHits(action string) {
	RateLimitHits.WithLabelValues(action).Inc()
}

func (r *PrometheusRegistry) IncrementRateLimitErrors() {
	RateLimitErrors.Inc()
}

// Geolocation metrics
func (r *PrometheusRegistry) IncrementGeoLookups(outcome string) {
	GeoLookups.WithLabelValues(outcome).Inc()
}

func (r *PrometheusRegistry) RecordGeoLookupLatency(duration time.Duration) {
	GeoLookupLatency.Observe(duration.Seconds())
}

// Analytics dispatch metrics
func (r *PrometheusRegistry) IncrementAnalyticsEvents(outcome string) {
	AnalyticsEvents.WithLabelValues(outcome).Inc()
}

func (r *PrometheusRegistry) IncrementBlacklistedUserAgents() {
	BlacklistedUserAgents.Inc()
}

// NoOpRegistry implements MetricsRegistry with no-op methods for testing
type NoOpRegistry struct{}

// NewNoOpRegistry creates a new NoOpRegistry
func NewNoOpRegistry() *NoOpRegistry {
	return &NoOpRegistry{}
}

// HTTP Request metrics
func (r *NoOpRegistry) IncrementRequests(endpoint, method, status string)                    {}
func (r *NoOpRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {}

// Rate limiting metrics
func (r *NoOpRegistry) IncrementRateLimitRequests(action string) {}
func (r *NoOpRegistry) IncrementRateLimitHits(action string)     {}
func (r *NoOpRegistry) IncrementRateLimitErrors()                {}

// Geolocation metrics
func (r *NoOpRegistry) IncrementGeoLookups(outcome string)            {}
func (r *NoOpRegistry) RecordGeoLookupLatency(duration time.Duration) {}

// Analytics dispatch metrics
func (r *NoOpRegistry) IncrementAnalyticsEvents(outcome string) {}
func (r *NoOpRegistry) IncrementBlacklistedUserAgents()         {}
