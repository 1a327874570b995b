package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/patrickwarner/adkit/internal/analytics"
	"github.com/patrickwarner/adkit/internal/config"
	"github.com/patrickwarner/adkit/internal/observability"
)

func main() {
	logger, err := observability.InitLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	var clientID string
	var dsn string
	var limit int
	flag.StringVar(&clientID, "client", "", "client ID")
	flag.StringVar(&dsn, "dsn", "", "ClickHouse DSN (defaults to ANALYTICS_CLICKHOUSE_DSN)")
	flag.IntVar(&limit, "limit", 100, "maximum events to return")
	flag.Parse()

	if clientID == "" {
		fmt.Fprintln(os.Stderr, "client required")
		os.Exit(1)
	}
	if dsn == "" {
		dsn = config.Load().AnalyticsClickHouseDSN
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ch, err := analytics.InitClickHouse(ctx, dsn, analytics.PoolConfig{MaxOpenConns: 2, MaxIdleConns: 1})
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect clickhouse: %v\n", err)
		os.Exit(1)
	}
	defer ch.Close()

	events, err := ch.EventsByClientID(ctx, clientID, limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "query events: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(events); err != nil {
		fmt.Fprintf(os.Stderr, "encode events: %v\n", err)
		os.Exit(1)
	}
}
