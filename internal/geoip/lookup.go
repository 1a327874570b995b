package geoip

import (
	"errors"
	"net"
	"time"

	"github.com/patrickwarner/adkit/internal/logic"
	"github.com/patrickwarner/adkit/internal/observability"

	"go.uber.org/zap"
)

// GetGeolocation returns the location of ip, or nil when ip is invalid, the
// locator is missing, or the lookup fails for any reason.
func GetGeolocation(l Locator, ip string) *Location {
	parsed := net.ParseIP(ip)
	if parsed == nil || l == nil {
		return nil
	}
	loc, err := l.City(parsed)
	if err != nil {
		if !errors.Is(err, ErrAddressNotFound) {
			zap.L().Debug("geoip lookup failed", zap.Error(err))
		}
		return nil
	}
	return loc
}

// Resolver wraps a Locator with lookup metrics.
type Resolver struct {
	Locator Locator
	Metrics observability.MetricsRegistry
}

// NewResolver creates a Resolver. A nil metrics registry records nothing.
func NewResolver(l Locator, metrics observability.MetricsRegistry) *Resolver {
	if metrics == nil {
		metrics = observability.NewNoOpRegistry()
	}
	return &Resolver{Locator: l, Metrics: metrics}
}

// Lookup is GetGeolocation with an outcome and latency recorded per call.
// Outcomes are "found", "not_found", "invalid" and "error".
func (r *Resolver) Lookup(ip string) *Location {
	parsed := net.ParseIP(ip)
	if parsed == nil || r.Locator == nil {
		r.Metrics.IncrementGeoLookups("invalid")
		return nil
	}

	start := time.Now()
	loc, err := r.Locator.City(parsed)
	r.Metrics.RecordGeoLookupLatency(time.Since(start))

	switch {
	case err == nil:
		r.Metrics.IncrementGeoLookups("found")
		return loc
	case errors.Is(err, ErrAddressNotFound):
		r.Metrics.IncrementGeoLookups("not_found")
	default:
		r.Metrics.IncrementGeoLookups("error")
		anon, _ := logic.AnonymizeIP(ip)
		zap.L().Warn("geoip lookup failed", zap.String("ip", anon), zap.Error(err))
	}
	return nil
}
