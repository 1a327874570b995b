// Package visitor carries the per-request facts about the client that the ad
// helpers need: IP, user agent and optional publisher-supplied overrides.
package visitor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// ClientIDHeader lets publishers forward their own stable client identifier.
const ClientIDHeader = "X-Advertising-Client-ID"

// Secret is mixed into generated client ids. Set once at startup.
var Secret string

// Info describes the visitor behind one request.
type Info struct {
	IP        string
	UserAgent string
	// ClientID overrides the generated client id when non-empty.
	ClientID string
	// ForcedUserAgent overrides UserAgent when non-empty, e.g. when a
	// publisher forwards the real visitor's UA server to server.
	ForcedUserAgent string
}

// RatelimitKey identifies the visitor for rate limiting: the explicit client
// id when supplied, otherwise the IP.
func (i Info) RatelimitKey() string {
	if i.ClientID != "" {
		return i.ClientID
	}
	return i.IP
}

// GenerateClientID returns a hex SHA-256 digest of ip, ua and a random nonce.
// Two calls with the same inputs return different ids.
func GenerateClientID(ip, ua string) string {
	h := sha256.New()
	h.Write([]byte(Secret))
	h.Write([]byte(ip))
	h.Write([]byte(ua))
	h.Write([]byte(uuid.NewString()))
	return hex.EncodeToString(h.Sum(nil))
}

// GetClientID returns the visitor's explicit client id or a newly generated one.
func GetClientID(info Info) string {
	if info.ClientID != "" {
		return info.ClientID
	}
	return GenerateClientID(info.IP, info.UserAgent)
}

// GetClientUserAgent returns the forced user agent if set, else the request's.
func GetClientUserAgent(info Info) string {
	if info.ForcedUserAgent != "" {
		return info.ForcedUserAgent
	}
	return info.UserAgent
}

// Options controls how FromRequest trusts forwarded data.
type Options struct {
	// TrustedHops is the number of reverse proxies in front of the server.
	// 0 ignores X-Forwarded-For, 1 takes the rightmost entry, and so on.
	TrustedHops int
	// AllowForwardedVisitor accepts user_ip/user_ua query parameters and the
	// client id header from publishers calling server to server.
	AllowForwardedVisitor bool
}

// FromRequest builds the Info for r.
func FromRequest(r *http.Request, opts Options) Info {
	info := Info{
		IP:        clientIP(r, opts.TrustedHops),
		UserAgent: r.UserAgent(),
	}
	if !opts.AllowForwardedVisitor {
		return info
	}

	q := r.URL.Query()
	if ip := strings.TrimSpace(q.Get("user_ip")); net.ParseIP(ip) != nil {
		info.IP = ip
	}
	if ua := strings.TrimSpace(q.Get("user_ua")); ua != "" {
		info.ForcedUserAgent = ua
	}
	info.ClientID = strings.TrimSpace(r.Header.Get(ClientIDHeader))
	return info
}

// clientIP resolves the caller's address. X-Forwarded-For is only read when
// trustedHops > 0, taking the Nth entry from the right. Too few entries fall
// back to RemoteAddr.
func clientIP(r *http.Request, trustedHops int) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if trustedHops <= 0 {
		return host
	}

	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" {
		return host
	}
	parts := strings.Split(xff, ",")
	idx := len(parts) - trustedHops
	if idx < 0 {
		return host
	}
	if candidate := strings.TrimSpace(parts[idx]); net.ParseIP(candidate) != nil {
		return candidate
	}
	return host
}

type contextKey struct{}

// WithInfo stores info in ctx.
func WithInfo(ctx context.Context, info Info) context.Context {
	return context.WithValue(ctx, contextKey{}, info)
}

// FromContext returns the Info stored by WithInfo.
func FromContext(ctx context.Context) (Info, bool) {
	info, ok := ctx.Value(contextKey{}).(Info)
	return info, ok
}
