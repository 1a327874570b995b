package api

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/patrickwarner/adkit/internal/analytics"
	"github.com/patrickwarner/adkit/internal/config"
	"github.com/patrickwarner/adkit/internal/geoip"
	"github.com/patrickwarner/adkit/internal/logic"
	"github.com/patrickwarner/adkit/internal/logic/ratelimit"
	"github.com/patrickwarner/adkit/internal/observability"

	"go.uber.org/zap"
)

var tracer = observability.GetTracer("adkit/api")

// Server groups dependencies for HTTP handlers.
type Server struct {
	Logger     *zap.Logger
	Metrics    observability.MetricsRegistry
	Config     config.Config
	Limiter    *ratelimit.Limiter
	ClickRates []ratelimit.Rate
	Geo        *geoip.Resolver
	Analytics  *analytics.Dispatcher
	Blacklist  []*regexp.Regexp
	IPs        logic.IPAnonymizer
	UAs        logic.UserAgentAnonymizer
	AdDay      *time.Location
}

// NewServer constructs a Server. Optional dependencies may be nil: without a
// limiter clicks are never rate limited, without geo no location is
// reported, and a nil dispatcher sends no analytics.
func NewServer(logger *zap.Logger, metrics observability.MetricsRegistry, cfg config.Config, limiter *ratelimit.Limiter, rates []ratelimit.Rate, geo *geoip.Resolver, dispatcher *analytics.Dispatcher) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.NewNoOpRegistry()
	}
	ips := logic.IPAnonymizer{IPv4Bits: cfg.IPv4AnonymizeBits, IPv6Bits: cfg.IPv6AnonymizeBits}
	if ips == (logic.IPAnonymizer{}) {
		ips = logic.DefaultIPAnonymizer
	}
	return &Server{
		Logger:     logger,
		Metrics:    metrics,
		Config:     cfg,
		Limiter:    limiter,
		ClickRates: rates,
		Geo:        geo,
		Analytics:  dispatcher,
		IPs:        ips,
		AdDay:      cfg.AdDayLocation(),
	}
}

func (s *Server) observe(endpoint, method string, status int, start time.Time) {
	s.Metrics.IncrementRequests(endpoint, method, strconv.Itoa(status))
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}
