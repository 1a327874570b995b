package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/patrickwarner/adkit/internal/analytics"
	"github.com/patrickwarner/adkit/internal/api"
	"github.com/patrickwarner/adkit/internal/config"
	"github.com/patrickwarner/adkit/internal/db"
	"github.com/patrickwarner/adkit/internal/geoip"
	"github.com/patrickwarner/adkit/internal/logic"
	"github.com/patrickwarner/adkit/internal/logic/ratelimit"
	"github.com/patrickwarner/adkit/internal/observability"
	"github.com/patrickwarner/adkit/internal/visitor"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logger, err := observability.InitLoggerWithService(cfg.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	defer func() {
		if err := logger.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to sync logger: %v\n", err)
		}
	}()

	if err := run(logger, cfg); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}

func run(logger *zap.Logger, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdown, err := observability.InitTracing(ctx, logger, cfg.ServiceName, cfg.TempoEndpoint, cfg.TracingSampleRate)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer shutdown()
	}

	metricsRegistry := observability.NewPrometheusRegistry()

	blacklist, err := logic.CompileUserAgentPatterns(cfg.BlacklistedUserAgents)
	if err != nil {
		return err
	}
	logic.DefaultBlacklistedUserAgents = blacklist
	common, err := logic.CompileUserAgentPatterns(cfg.CommonUserAgents)
	if err != nil {
		return err
	}
	visitor.Secret = cfg.ClientIDSecret

	rates, err := ratelimit.ParseRates(cfg.ClickRateLimits)
	if err != nil {
		return fmt.Errorf("parse CLICK_RATELIMITS: %w", err)
	}
	var store ratelimit.Store
	switch cfg.RateLimitBackend {
	case "memory":
		store = ratelimit.NewMemoryStore()
	case "redis":
		redisStore, err := db.InitRedis(cfg.RedisAddr)
		if err != nil {
			return fmt.Errorf("failed to connect redis: %w", err)
		}
		defer redisStore.Close()
		store = ratelimit.NewRedisStore(redisStore)
	default:
		return fmt.Errorf("unknown RATE_LIMIT_BACKEND %q", cfg.RateLimitBackend)
	}
	limiter := ratelimit.NewLimiter(store, metricsRegistry)

	var resolver *geoip.Resolver
	geoSvc, err := geoip.Init(cfg.GeoIPDB)
	if err != nil {
		logger.Warn("geoip database unavailable, geolocation disabled", zap.String("path", cfg.GeoIPDB), zap.Error(err))
	} else {
		defer func() { _ = geoSvc.Close() }()
		resolver = geoip.NewResolver(geoSvc, metricsRegistry)
	}

	ips := logic.IPAnonymizer{IPv4Bits: cfg.IPv4AnonymizeBits, IPv6Bits: cfg.IPv6AnonymizeBits}
	uas := logic.UserAgentAnonymizer{Common: common}
	dispatcher, closeProviders, err := newDispatcher(ctx, cfg, ips, uas, metricsRegistry, logger)
	if err != nil {
		return err
	}
	defer closeProviders()

	srvDeps := api.NewServer(logger, metricsRegistry, cfg, limiter, rates, resolver, dispatcher)
	srvDeps.Blacklist = blacklist
	srvDeps.UAs = uas

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      srvDeps.Router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	logger.Info("adkit server running",
		zap.String("addr", addr),
		zap.String("rate_limit_backend", cfg.RateLimitBackend),
		zap.Strings("click_ratelimits", cfg.ClickRateLimits),
		zap.Bool("analytics_enabled", dispatcher.Enabled()))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("listen: %w", err)
		}
	}()
	go logSamplingStats(ctx, logger, samplingStatsInterval)

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}
	return stopServer(srv, dispatcher, logger, serveErr)
}

const samplingStatsInterval = 5 * time.Minute

// stopServer shuts the HTTP server down and drains queued analytics events.
// A serve error takes precedence over shutdown errors.
func stopServer(srv *http.Server, dispatcher *analytics.Dispatcher, logger *zap.Logger, serveErr error) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var shutdownErr error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		shutdownErr = fmt.Errorf("server shutdown failed: %w", err)
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		logger.Warn("analytics queue not drained", zap.Error(err))
	}
	if serveErr != nil {
		return serveErr
	}
	return shutdownErr
}

// logSamplingStats reports log sampling ratios every interval until ctx ends.
func logSamplingStats(ctx context.Context, logger *zap.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			observability.LogSamplingStats(logger)
		}
	}
}

// newDispatcher wires the configured analytics providers. The returned func
// releases provider connections.
func newDispatcher(ctx context.Context, cfg config.Config, ips logic.IPAnonymizer, uas logic.UserAgentAnonymizer, metrics observability.MetricsRegistry, logger *zap.Logger) (*analytics.Dispatcher, func(), error) {
	closeFn := func() {}
	opts := analytics.Options{
		TrackingID: cfg.AnalyticsID,
		QueueSize:  cfg.AnalyticsQueueSize,
		Workers:    cfg.AnalyticsWorkers,
		Timeout:    cfg.AnalyticsTimeout,
		IPs:        ips,
		UAs:        uas,
	}
	if cfg.AnalyticsID == "" {
		return analytics.NewDispatcher(opts, nil, metrics, logger), closeFn, nil
	}

	var providers analytics.Multi
	if cfg.AnalyticsEndpoint != "" {
		providers = append(providers, analytics.NewMeasurementProtocol(cfg.AnalyticsEndpoint, cfg.AnalyticsTimeout, logger))
	}
	if cfg.AnalyticsClickHouseDSN != "" {
		ch, err := analytics.InitClickHouse(ctx, cfg.AnalyticsClickHouseDSN, analytics.PoolConfig{
			MaxOpenConns:    cfg.CHMaxOpenConns,
			MaxIdleConns:    cfg.CHMaxIdleConns,
			ConnMaxLifetime: cfg.CHConnMaxLifetime,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect clickhouse: %w", err)
		}
		closeFn = ch.Close
		providers = append(providers, ch)
	}

	var provider analytics.Provider
	switch len(providers) {
	case 0:
		logger.Warn("analytics ID set but no provider configured")
	case 1:
		provider = providers[0]
	default:
		provider = providers
	}
	return analytics.NewDispatcher(opts, provider, metrics, logger), closeFn, nil
}
