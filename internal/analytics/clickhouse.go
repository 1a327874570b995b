package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/XSAM/otelsql"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const createEventsTable = `CREATE TABLE IF NOT EXISTS analytics_events (
       timestamp   DateTime,
       tracking_id String,
       client_id   String,
       ip          String,
       user_agent  String,
       category    String,
       action      String,
       label       String,
       params      Map(String, String)
   ) ENGINE=MergeTree() ORDER BY (tracking_id, timestamp)`

const insertEvent = `INSERT INTO analytics_events (timestamp, tracking_id, client_id, ip, user_agent, category, action, label, params) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

// PoolConfig sizes the ClickHouse connection pool.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// ClickHouse stores events in the analytics_events table.
type ClickHouse struct {
	DB *sql.DB
}

// InitClickHouse connects to ClickHouse through an otelsql-instrumented
// driver and ensures the events table exists.
func InitClickHouse(ctx context.Context, dsn string, pool PoolConfig) (*ClickHouse, error) {
	db, err := otelsql.Open("clickhouse", dsn,
		otelsql.WithAttributes(attribute.String("db.system", "clickhouse")),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	ch := &ClickHouse{DB: db}
	if err := ch.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	zap.L().Info("Connected to ClickHouse", zap.Int("max_open_conns", pool.MaxOpenConns))
	return ch, nil
}

func (c *ClickHouse) ensureSchema(ctx context.Context) error {
	if _, err := c.DB.ExecContext(ctx, createEventsTable); err != nil {
		return fmt.Errorf("clickhouse create table: %w", err)
	}
	return nil
}

// Send implements Provider by inserting one row.
func (c *ClickHouse) Send(ctx context.Context, ev Event) error {
	if c == nil || c.DB == nil {
		return ErrUnavailable
	}
	params := ev.Params
	if params == nil {
		params = map[string]string{}
	}
	if _, err := c.DB.ExecContext(ctx, insertEvent,
		ev.Time, ev.TrackingID, ev.ClientID, ev.IP, ev.UserAgent,
		params["ec"], params["ea"], params["el"], params,
	); err != nil {
		return fmt.Errorf("insert analytics event: %w", err)
	}
	return nil
}

// EventRecord mirrors a row in the analytics_events table.
type EventRecord struct {
	Timestamp  time.Time         `json:"timestamp"`
	TrackingID string            `json:"tracking_id"`
	ClientID   string            `json:"client_id"`
	IP         string            `json:"ip"`
	UserAgent  string            `json:"user_agent"`
	Category   string            `json:"category"`
	Action     string            `json:"action"`
	Label      string            `json:"label"`
	Params     map[string]string `json:"params,omitempty"`
}

// EventsByClientID returns up to limit events for a client, newest first.
func (c *ClickHouse) EventsByClientID(ctx context.Context, clientID string, limit int) ([]EventRecord, error) {
	if c == nil || c.DB == nil {
		return nil, ErrUnavailable
	}
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT timestamp, tracking_id, client_id, ip, user_agent, category, action, label, params FROM analytics_events WHERE client_id=? ORDER BY timestamp DESC LIMIT ?`
	rows, err := c.DB.QueryContext(ctx, query, clientID, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			zap.L().Warn("rows close", zap.Error(err))
		}
	}()

	var events []EventRecord
	for rows.Next() {
		var ev EventRecord
		if err := rows.Scan(&ev.Timestamp, &ev.TrackingID, &ev.ClientID, &ev.IP, &ev.UserAgent, &ev.Category, &ev.Action, &ev.Label, &ev.Params); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return events, nil
}

// Close terminates the ClickHouse connection.
func (c *ClickHouse) Close() {
	if c != nil && c.DB != nil {
		if err := c.DB.Close(); err != nil {
			zap.L().Error("clickhouse close", zap.Error(err))
		}
	}
}
