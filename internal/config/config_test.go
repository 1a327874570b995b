package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8787", cfg.Port)
	assert.Equal(t, "redis", cfg.RateLimitBackend)
	assert.Equal(t, []string{"1/m", "3/h", "10/d"}, cfg.ClickRateLimits)
	assert.Empty(t, cfg.AnalyticsID)
	assert.Equal(t, 8, cfg.IPv4AnonymizeBits)
	assert.Equal(t, 16, cfg.IPv6AnonymizeBits)
	assert.Equal(t, 2*time.Second, cfg.AnalyticsTimeout)
	assert.Equal(t, time.UTC, cfg.AdDayLocation())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CLICK_RATELIMITS", " 1/s , 1/m ,")
	t.Setenv("BLACKLISTED_USER_AGENTS", "curl,python-requests")
	t.Setenv("ADSERVER_ANALYTICS_ID", "FAKE-XXXXX-1")
	t.Setenv("ANALYTICS_TIMEOUT", "3")
	t.Setenv("RATE_LIMIT_BACKEND", "Memory")
	t.Setenv("AD_DAY_TIMEZONE", "America/New_York")

	cfg := Load()

	assert.Equal(t, []string{"1/s", "1/m"}, cfg.ClickRateLimits)
	assert.Equal(t, []string{"curl", "python-requests"}, cfg.BlacklistedUserAgents)
	assert.Equal(t, "FAKE-XXXXX-1", cfg.AnalyticsID)
	assert.Equal(t, 3*time.Second, cfg.AnalyticsTimeout)
	assert.Equal(t, "memory", cfg.RateLimitBackend)
	assert.Equal(t, "America/New_York", cfg.AdDayLocation().String())
}

func TestEnvListDisable(t *testing.T) {
	t.Setenv("CLICK_RATELIMITS", "-")
	cfg := Load()
	assert.NotNil(t, cfg.ClickRateLimits)
	assert.Empty(t, cfg.ClickRateLimits)
}

func TestAdDayLocationUnknownZone(t *testing.T) {
	cfg := Config{AdDayTimezone: "Nowhere/Special"}
	assert.Equal(t, time.UTC, cfg.AdDayLocation())
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("ANONYMIZE_IPV4_BITS", "lots")
	t.Setenv("TRACING_ENABLED", "maybe")
	t.Setenv("TRACING_SAMPLE_RATE", "half")

	cfg := Load()
	assert.Equal(t, 8, cfg.IPv4AnonymizeBits)
	assert.False(t, cfg.TracingEnabled)
	assert.Equal(t, 1.0, cfg.TracingSampleRate)
}
