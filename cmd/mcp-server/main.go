package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/patrickwarner/adkit/internal/config"
	"github.com/patrickwarner/adkit/internal/geoip"
	"github.com/patrickwarner/adkit/internal/logic"
	"github.com/patrickwarner/adkit/internal/observability"
	"go.uber.org/zap"
)

func newToolServer(cfg config.Config, logger *zap.Logger) (*ToolServer, error) {
	blacklist, err := logic.CompileUserAgentPatterns(cfg.BlacklistedUserAgents)
	if err != nil {
		return nil, err
	}
	common, err := logic.CompileUserAgentPatterns(cfg.CommonUserAgents)
	if err != nil {
		return nil, err
	}
	return &ToolServer{
		ips:       logic.IPAnonymizer{IPv4Bits: cfg.IPv4AnonymizeBits, IPv6Bits: cfg.IPv6AnonymizeBits},
		uas:       logic.UserAgentAnonymizer{Common: common},
		blacklist: blacklist,
		adDay:     cfg.AdDayLocation(),
		logger:    logger,
	}, nil
}

func main() {
	// stdout carries the MCP protocol, so logs go to stderr
	zcfg := observability.ProductionConfig(observability.LogLevel())
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := zcfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger = logger.Named("adkit-mcp").With(zap.String("service", "adkit-mcp"))
	zap.ReplaceGlobals(logger)

	cfg := config.Load()
	tools, err := newToolServer(cfg, logger)
	if err != nil {
		logger.Fatal("Invalid user agent patterns", zap.Error(err))
	}

	if cfg.GeoIPDB != "" {
		geo, err := geoip.Init(cfg.GeoIPDB)
		if err != nil {
			logger.Warn("GeoIP database unavailable, geolocate tool disabled", zap.Error(err))
		} else {
			defer func() { _ = geo.Close() }()
			tools.geo = geo
		}
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "adkit",
		Version: "0.3.0",
	}, nil)
	tools.register(server)

	var logBuffer bytes.Buffer
	transport := &mcp.LoggingTransport{
		Transport: &mcp.StdioTransport{},
		Writer:    &logBuffer,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("MCP server running via stdio")
	if err := server.Run(ctx, transport); err != nil && ctx.Err() == nil {
		logger.Fatal("Server error", zap.Error(err), zap.String("mcp_logs", logBuffer.String()))
	}
}
