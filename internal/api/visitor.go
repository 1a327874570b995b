package api

import (
	"net/http"
	"time"

	"github.com/patrickwarner/adkit/internal/geoip"
	"github.com/patrickwarner/adkit/internal/logic"
	"github.com/patrickwarner/adkit/internal/middleware"
	"github.com/patrickwarner/adkit/internal/visitor"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// VisitorResponse is what the service knows about the caller, after
// anonymization.
type VisitorResponse struct {
	ClientID    string                 `json:"client_id"`
	IP          string                 `json:"ip,omitempty"`
	UserAgent   string                 `json:"user_agent"`
	Blacklisted bool                   `json:"blacklisted"`
	Profile     logic.UserAgentProfile `json:"profile"`
	Geo         *geoip.Location        `json:"geo,omitempty"`
	AdDay       string                 `json:"ad_day"`
}

// VisitorHandler handles GET /api/v1/visitor.
func (s *Server) VisitorHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "VisitorHandler")
	defer span.End()

	logger := middleware.LoggerFromRequest(r, s.Logger)
	start := time.Now()
	const endpoint = "/api/v1/visitor"

	info := middleware.VisitorFromRequest(r.WithContext(ctx))
	ua := visitor.GetClientUserAgent(info)
	anonIP, _ := s.IPs.Anonymize(info.IP)

	resp := VisitorResponse{
		ClientID:    visitor.GetClientID(info),
		IP:          anonIP,
		UserAgent:   s.UAs.Anonymize(ua),
		Blacklisted: logic.IsBlacklistedUserAgent(ua, s.Blacklist...),
		Profile:     logic.ResolveUserAgentProfile(ua),
		AdDay:       logic.GetAdDay(s.AdDay).Format(logic.DateLayout),
	}
	if s.Geo != nil {
		resp.Geo = s.Geo.Lookup(info.IP)
	}
	span.SetAttributes(
		attribute.Bool("visitor.blacklisted", resp.Blacklisted),
		attribute.Bool("visitor.geolocated", resp.Geo != nil),
	)

	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		logger.Error("encode visitor response", zap.Error(err))
	}
	s.observe(endpoint, r.Method, http.StatusOK, start)
}
