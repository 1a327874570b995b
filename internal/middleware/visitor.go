package middleware

import (
	"net/http"

	"github.com/patrickwarner/adkit/internal/visitor"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Visitor resolves the request's visitor.Info once and stores it in the
// context for handlers (see visitor.FromContext).
func Visitor(opts visitor.Options) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info := visitor.FromRequest(r, opts)
			trace.SpanFromContext(r.Context()).SetAttributes(
				attribute.Bool("visitor.forwarded", info.ForcedUserAgent != "" || info.ClientID != ""),
			)
			next.ServeHTTP(w, r.WithContext(visitor.WithInfo(r.Context(), info)))
		})
	}
}

// VisitorFromRequest returns the Info stored by Visitor, resolving it from r
// with default options when the middleware was not installed.
func VisitorFromRequest(r *http.Request) visitor.Info {
	if info, ok := visitor.FromContext(r.Context()); ok {
		return info
	}
	return visitor.FromRequest(r, visitor.Options{})
}
