package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration derived from environment variables.
type Config struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	ServiceName  string

	// Rate limiting
	RedisAddr        string
	RateLimitBackend string
	ClickRateLimits  []string

	// Visitor handling
	GeoIPDB               string
	TrustedProxyHops      int
	AllowForwardedVisitor bool
	ClientIDSecret        string
	BlacklistedUserAgents []string
	CommonUserAgents      []string
	IPv4AnonymizeBits     int
	IPv6AnonymizeBits     int
	AdDayTimezone         string

	// Analytics dispatch
	AnalyticsID            string
	AnalyticsEndpoint      string
	AnalyticsClickHouseDSN string
	AnalyticsTimeout       time.Duration
	AnalyticsQueueSize     int
	AnalyticsWorkers       int
	// ClickHouse connection pooling configuration
	CHMaxOpenConns    int
	CHMaxIdleConns    int
	CHConnMaxLifetime time.Duration

	// Tracing configuration
	TracingEnabled    bool
	TempoEndpoint     string
	TracingSampleRate float64
}

// Load parses environment variables and returns a Config populated with
// defaults when variables are absent.
func Load() Config {
	cfg := Config{}

	cfg.Port = getenv("PORT", "8787")
	cfg.ReadTimeout = envDuration("READ_TIMEOUT", 5*time.Second)
	cfg.WriteTimeout = envDuration("WRITE_TIMEOUT", 10*time.Second)
	cfg.ServiceName = getenv("SERVICE_NAME", "adkit")

	cfg.RedisAddr = getenv("REDIS_ADDR", "localhost:6379")
	cfg.RateLimitBackend = strings.ToLower(getenv("RATE_LIMIT_BACKEND", "redis"))
	cfg.ClickRateLimits = envList("CLICK_RATELIMITS", []string{"1/m", "3/h", "10/d"})

	cfg.GeoIPDB = getenv("GEOIP_DB", "internal/geoip/testdata/GeoLite2-City.mmdb")
	cfg.TrustedProxyHops = envInt("TRUSTED_PROXY_HOPS", 0)
	cfg.AllowForwardedVisitor = envBool("ALLOW_FORWARDED_VISITOR", false)
	cfg.ClientIDSecret = getenv("CLIENT_ID_SECRET", "")
	cfg.BlacklistedUserAgents = envList("BLACKLISTED_USER_AGENTS", nil)
	cfg.CommonUserAgents = envList("COMMON_USER_AGENTS", nil)
	cfg.IPv4AnonymizeBits = envInt("ANONYMIZE_IPV4_BITS", 8)
	cfg.IPv6AnonymizeBits = envInt("ANONYMIZE_IPV6_BITS", 16)
	cfg.AdDayTimezone = getenv("AD_DAY_TIMEZONE", "UTC")

	// an empty analytics ID disables event dispatch entirely
	cfg.AnalyticsID = getenv("ADSERVER_ANALYTICS_ID", "")
	cfg.AnalyticsEndpoint = getenv("ANALYTICS_ENDPOINT", "https://www.google-analytics.com/collect")
	cfg.AnalyticsClickHouseDSN = getenv("ANALYTICS_CLICKHOUSE_DSN", "")
	cfg.AnalyticsTimeout = envDuration("ANALYTICS_TIMEOUT", 2*time.Second)
	cfg.AnalyticsQueueSize = envInt("ANALYTICS_QUEUE_SIZE", 1024)
	cfg.AnalyticsWorkers = envInt("ANALYTICS_WORKERS", 2)

	cfg.CHMaxOpenConns = envInt("CH_MAX_OPEN_CONNS", 25)
	cfg.CHMaxIdleConns = envInt("CH_MAX_IDLE_CONNS", 5)
	cfg.CHConnMaxLifetime = envDuration("CH_CONN_MAX_LIFETIME", 5*time.Minute)

	// Tracing configuration
	cfg.TracingEnabled = envBool("TRACING_ENABLED", false)
	cfg.TempoEndpoint = getenv("TEMPO_ENDPOINT", "tempo:4317")
	cfg.TracingSampleRate = envFloat("TRACING_SAMPLE_RATE", 1.0)

	return cfg
}

// AdDayLocation resolves AdDayTimezone. Unknown zones fall back to UTC.
func (c Config) AdDayLocation() *time.Location {
	if c.AdDayTimezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.AdDayTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// getenv returns the value of the environment variable if set, otherwise def.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envDuration parses an environment variable into a time.Duration.
// The value can be a duration string (e.g. "5s") or a number of seconds.
// If the variable is unset or invalid, def is returned.
func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}

// envBool parses a boolean environment variable. Accepted values are those
// supported by strconv.ParseBool. When unset or invalid, def is returned.
func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return def
}

// envInt parses an integer environment variable. When unset or invalid, def is returned.
func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if i, err := strconv.Atoi(v); err == nil {
		return i
	}
	return def
}

// envFloat parses a float64 environment variable. When unset or invalid, def is returned.
func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return def
}

// envList splits a comma separated environment variable, trimming blanks.
// A variable set to "-" yields an empty list, which lets operators disable
// list settings that have non-empty defaults.
func envList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if v == "-" {
		return []string{}
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
