package api

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const pingTimeout = time.Second

// HealthResponse reports overall status and the state of each dependency.
// Status is "degraded" when the rate limit store is unreachable; clicks are
// still served then, just without limits.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthHandler reports whether the rate limit store, GeoIP database and
// analytics dispatch are available.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "health"

	resp := HealthResponse{Status: "ok", Checks: map[string]string{}}

	switch {
	case s.Limiter == nil:
		resp.Checks["ratelimit_store"] = "disabled"
	default:
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		err := s.Limiter.Ping(ctx)
		cancel()
		if err != nil {
			resp.Status = "degraded"
			resp.Checks["ratelimit_store"] = "error"
			s.Logger.Warn("rate limit store unreachable", zap.Error(err))
		} else {
			resp.Checks["ratelimit_store"] = "ok"
		}
	}

	resp.Checks["geoip"] = "disabled"
	if s.Geo != nil {
		resp.Checks["geoip"] = "ok"
	}
	resp.Checks["analytics"] = "disabled"
	if s.Analytics.Enabled() {
		resp.Checks["analytics"] = "enabled"
	}

	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		s.Logger.Error("failed to encode health response", zap.Error(err))
	}
	s.observe(endpoint, r.Method, http.StatusOK, start)
}
