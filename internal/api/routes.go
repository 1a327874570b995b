package api

import (
	"net/http"

	"github.com/patrickwarner/adkit/internal/middleware"
	"github.com/patrickwarner/adkit/internal/visitor"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Router returns the service's HTTP handler with tracing, request logging and
// visitor resolution installed.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(
		middleware.WithTraceLogger(s.Logger),
		middleware.Visitor(visitor.Options{
			TrustedHops:           s.Config.TrustedProxyHops,
			AllowForwardedVisitor: s.Config.AllowForwardedVisitor,
		}),
	)

	r.HandleFunc("/health", s.HealthHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler())

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/visitor", s.VisitorHandler).Methods(http.MethodGet)
	v1.HandleFunc("/clicks", s.ClickHandler).Methods(http.MethodPost)

	return otelhttp.NewHandler(r, s.Config.ServiceName)
}
