package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickwarner/adkit/internal/observability"
	"github.com/patrickwarner/adkit/internal/visitor"

	"go.uber.org/zap"
)

// ClickAction is the action name used for ad click limits.
const ClickAction = "click"

// Limiter checks visitor actions against configured rates.
//
// Example usage:
//
//	limiter := NewLimiter(NewMemoryStore(), observability.NewNoOpRegistry())
//	rates := MustParseRates("1/s", "1/m")
//	if limiter.IsRatelimited(ctx, ClickAction, clientKey, rates) {
//	    // don't count the click
//	}
type Limiter struct {
	store   Store
	metrics observability.MetricsRegistry
	now     func() time.Time
}

// NewLimiter creates a Limiter backed by store.
func NewLimiter(store Store, metrics observability.MetricsRegistry) *Limiter {
	if metrics == nil {
		metrics = observability.NewNoOpRegistry()
	}
	return &Limiter{store: store, metrics: metrics, now: time.Now}
}

// IsRatelimited counts one call of action for key and reports whether any
// rate is exceeded. With no rates nothing is counted and the call is never
// limited. Store failures fail open.
func (l *Limiter) IsRatelimited(ctx context.Context, action, key string, rates []Rate) bool {
	if len(rates) == 0 || l == nil || l.store == nil {
		return false
	}
	l.metrics.IncrementRateLimitRequests(action)

	limited, err := l.store.IncrementAndCheck(ctx, l.windows(action, key, rates, l.now()))
	if err != nil {
		l.metrics.IncrementRateLimitErrors()
		zap.L().Warn("rate limit store unavailable, allowing",
			zap.String("action", action),
			zap.Error(err))
		return false
	}
	if limited {
		l.metrics.IncrementRateLimitHits(action)
	}
	return limited
}

// Ping reports whether the backing store is reachable. Stores without a
// Ping method, such as MemoryStore, are always reachable.
func (l *Limiter) Ping(ctx context.Context) error {
	if l == nil || l.store == nil {
		return nil
	}
	if p, ok := l.store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// windows builds one fixed window per distinct rate. Count and period are both
// part of the key, so rates sharing a period keep separate counters. The window
// start is part of the key so a new window always starts from zero, even
// before the old key expires.
func (l *Limiter) windows(action, key string, rates []Rate, now time.Time) []Window {
	out := make([]Window, 0, len(rates))
	seen := make(map[string]struct{}, len(rates))
	for _, r := range rates {
		start := now.Truncate(r.Period)
		k := fmt.Sprintf("ratelimit:%s:%s:%d/%s:%d", action, key, r.Count, r.Period, start.Unix())
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, Window{
			Key:   k,
			Limit: r.Count,
			TTL:   start.Add(r.Period).Sub(now),
		})
	}
	return out
}

// IsClickRatelimited counts a click from v and reports whether it exceeds
// any of rates. Visitors are keyed by their explicit client id when one was
// supplied, otherwise by IP.
func IsClickRatelimited(ctx context.Context, l *Limiter, v visitor.Info, rates []Rate) bool {
	return l.IsRatelimited(ctx, ClickAction, v.RatelimitKey(), rates)
}
