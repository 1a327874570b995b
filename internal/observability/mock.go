package observability

import (
	"sync"
	"time"
)

var _ MetricsRegistry = (*MockMetricsRegistry)(nil)

// MockMetricsRegistry records counter increments so tests can assert on them.
type MockMetricsRegistry struct {
	mu       sync.Mutex
	counters map[string]int
}

// NewMockMetricsRegistry creates an empty MockMetricsRegistry.
func NewMockMetricsRegistry() *MockMetricsRegistry {
	return &MockMetricsRegistry{counters: make(map[string]int)}
}

func (m *MockMetricsRegistry) inc(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = make(map[string]int)
	}
	m.counters[name]++
}

// Count returns how often the named counter was incremented. Names follow
// "<metric>" or "<metric>:<label>", e.g. "ratelimit_hits:click".
func (m *MockMetricsRegistry) Count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name]
}

// HTTP Request metrics
func (m *MockMetricsRegistry) IncrementRequests(endpoint, method, status string) {
	m.inc("requests:" + endpoint + ":" + status)
}
func (m *MockMetricsRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {}

// Rate limiting metrics
func (m *MockMetricsRegistry) IncrementRateLimitRequests(action string) {
	m.inc("ratelimit_requests:" + action)
}
func (m *MockMetricsRegistry) IncrementRateLimitHits(action string) {
	m.inc("ratelimit_hits:" + action)
}
func (m *MockMetricsRegistry) IncrementRateLimitErrors() { m.inc("ratelimit_errors") }

// Geolocation metrics
func (m *MockMetricsRegistry) IncrementGeoLookups(outcome string)            { m.inc("geo_lookups:" + outcome) }
func (m *MockMetricsRegistry) RecordGeoLookupLatency(duration time.Duration) {}

// Analytics dispatch metrics
func (m *MockMetricsRegistry) IncrementAnalyticsEvents(outcome string) {
	m.inc("analytics_events:" + outcome)
}
func (m *MockMetricsRegistry) IncrementBlacklistedUserAgents() { m.inc("blacklisted_user_agents") }
