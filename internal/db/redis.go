package db

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore wraps a redis client and context for operations.
type RedisStore struct {
	Client *redis.Client
	Ctx    context.Context
}

// WindowCounter names one fixed-window counter and how long it lives.
type WindowCounter struct {
	Key string
	TTL time.Duration
}

// incrWindowsScript increments every key and arms its expiry on the first
// hit. ARGV[i] is the TTL of KEYS[i] in milliseconds.
var incrWindowsScript = redis.NewScript(`
local counts = {}
for i, key in ipairs(KEYS) do
	local n = redis.call('INCR', key)
	if n == 1 then
		redis.call('PEXPIRE', key, ARGV[i])
	end
	counts[i] = n
end
return counts
`)

// InitRedis initializes a Redis client and returns a RedisStore.
func InitRedis(addr string) (*RedisStore, error) {
	rs := &RedisStore{
		Client: redis.NewClient(&redis.Options{Addr: addr}),
		Ctx:    context.Background(),
	}

	// Add OpenTelemetry instrumentation to Redis client
	if err := redisotel.InstrumentTracing(rs.Client); err != nil {
		return nil, fmt.Errorf("failed to instrument redis tracing: %w", err)
	}

	if err := rs.Client.Ping(rs.Ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	zap.L().Info("Connected to Redis", zap.String("addr", addr))
	return rs, nil
}

// IncrementWindows atomically increments each counter, applying its TTL when
// the counter is created. It returns the post-increment counts in order.
func (r *RedisStore) IncrementWindows(ctx context.Context, counters []WindowCounter) ([]int64, error) {
	if len(counters) == 0 {
		return nil, nil
	}
	if ctx == nil {
		ctx = r.Ctx
	}

	keys := make([]string, len(counters))
	args := make([]interface{}, len(counters))
	for i, c := range counters {
		keys[i] = c.Key
		ttl := c.TTL.Milliseconds()
		if ttl <= 0 {
			ttl = 1
		}
		args[i] = strconv.FormatInt(ttl, 10)
	}

	counts, err := incrWindowsScript.Run(ctx, r.Client, keys, args...).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("increment windows: %w", err)
	}
	return counts, nil
}

// DeleteByPattern removes every key matching pattern using SCAN and returns
// how many were deleted.
func (r *RedisStore) DeleteByPattern(ctx context.Context, pattern string) (int, error) {
	deleted := 0
	iter := r.Client.Scan(ctx, 0, pattern, 500).Iterator()
	batch := make([]string, 0, 500)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := r.Client.Del(ctx, batch...).Result()
		if err != nil {
			return fmt.Errorf("delete keys: %w", err)
		}
		deleted += int(n)
		batch = batch[:0]
		return nil
	}
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := flush(); err != nil {
				return deleted, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("scan %s: %w", pattern, err)
	}
	return deleted, flush()
}

// Close shuts down the Redis client.
func (r *RedisStore) Close() {
	if r != nil && r.Client != nil {
		if err := r.Client.Close(); err != nil {
			zap.L().Error("redis close", zap.Error(err))
		}
	}
}
