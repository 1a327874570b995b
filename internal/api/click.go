package api

import (
	"net/http"
	"time"

	"github.com/patrickwarner/adkit/internal/logic"
	"github.com/patrickwarner/adkit/internal/logic/ratelimit"
	"github.com/patrickwarner/adkit/internal/middleware"
	"github.com/patrickwarner/adkit/internal/visitor"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Reasons a click is not counted.
const (
	ReasonBlacklisted = "blacklisted user agent"
	ReasonRatelimited = "ratelimited"
)

// ClickResponse reports whether a click was counted.
type ClickResponse struct {
	Counted bool   `json:"counted"`
	Reason  string `json:"reason,omitempty"`
}

// ClickHandler handles POST /api/v1/clicks. A click is counted unless the
// user agent is blacklisted or the visitor exceeds the click rate limits;
// counted clicks are sent to analytics. Query parameters "action" (default
// "click") and "ad" become the event action and label.
func (s *Server) ClickHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "ClickHandler")
	defer span.End()

	logger := middleware.LoggerFromRequest(r, s.Logger)
	start := time.Now()
	const endpoint = "/api/v1/clicks"

	info := middleware.VisitorFromRequest(r)
	ua := visitor.GetClientUserAgent(info)
	action := r.URL.Query().Get("action")
	if action == "" {
		action = ratelimit.ClickAction
	}

	var resp ClickResponse
	switch {
	case logic.IsBlacklistedUserAgent(ua, s.Blacklist...):
		s.Metrics.IncrementBlacklistedUserAgents()
		resp.Reason = ReasonBlacklisted
	case ratelimit.IsClickRatelimited(ctx, s.Limiter, info, s.ClickRates):
		resp.Reason = ReasonRatelimited
	default:
		resp.Counted = true
		s.Analytics.Event(info.IP, ua, map[string]string{
			"ec":  "advertising",
			"ea":  action,
			"el":  r.URL.Query().Get("ad"),
			"cid": visitor.GetClientID(info),
		})
	}

	span.SetAttributes(
		attribute.Bool("click.counted", resp.Counted),
		attribute.String("click.reason", resp.Reason),
	)
	if !resp.Counted {
		logger.Debug("click not counted", zap.String("reason", resp.Reason))
	}

	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		logger.Error("encode click response", zap.Error(err))
	}
	s.observe(endpoint, r.Method, http.StatusOK, start)
}
