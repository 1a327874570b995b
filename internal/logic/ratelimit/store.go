package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/patrickwarner/adkit/internal/db"
	"github.com/patrickwarner/adkit/internal/logic"
)

// Window is one counter slot: Key is unique per (action, client, rate,
// window start) and expires after TTL.
type Window struct {
	Key   string
	Limit int64
	TTL   time.Duration
}

// Store increments every window and reports whether any of them is now over
// its limit. Implementations must make the increment and the check atomic.
type Store interface {
	IncrementAndCheck(ctx context.Context, windows []Window) (bool, error)
}

// MemoryStore is a single-process Store. Counters live in a map guarded by one
// mutex and expired entries are swept lazily.
type MemoryStore struct {
	mu            sync.Mutex
	counters      map[string]*counter
	now           func() time.Time
	lastSweep     time.Time
	sweepInterval time.Duration
}

type counter struct {
	count   int64
	expires time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		counters:      make(map[string]*counter),
		now:           time.Now,
		sweepInterval: time.Minute,
	}
}

// IncrementAndCheck implements Store.
func (m *MemoryStore) IncrementAndCheck(_ context.Context, windows []Window) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweepLocked(now)

	limited := false
	for _, w := range windows {
		c, ok := m.counters[w.Key]
		if !ok || !now.Before(c.expires) {
			c = &counter{expires: now.Add(w.TTL)}
			m.counters[w.Key] = c
		}
		c.count++
		if c.count > w.Limit {
			limited = true
		}
	}
	return limited, nil
}

// Len returns the number of live counters.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.counters)
}

func (m *MemoryStore) sweepLocked(now time.Time) {
	if now.Sub(m.lastSweep) < m.sweepInterval {
		return
	}
	for k, c := range m.counters {
		if !now.Before(c.expires) {
			delete(m.counters, k)
		}
	}
	m.lastSweep = now
}

// RedisStore keeps counters in Redis so every server instance shares them.
type RedisStore struct {
	redis *db.RedisStore
}

// NewRedisStore wraps an initialized db.RedisStore.
func NewRedisStore(store *db.RedisStore) *RedisStore {
	return &RedisStore{redis: store}
}

// Ping checks that Redis is reachable.
func (r *RedisStore) Ping(ctx context.Context) error {
	if r == nil || r.redis == nil || r.redis.Client == nil {
		return logic.ErrNilRedisStore
	}
	return r.redis.Client.Ping(ctx).Err()
}

// IncrementAndCheck implements Store with a single atomic script call.
func (r *RedisStore) IncrementAndCheck(ctx context.Context, windows []Window) (bool, error) {
	if r == nil || r.redis == nil || r.redis.Client == nil {
		return false, logic.ErrNilRedisStore
	}
	counters := make([]db.WindowCounter, len(windows))
	for i, w := range windows {
		counters[i] = db.WindowCounter{Key: w.Key, TTL: w.TTL}
	}
	counts, err := r.redis.IncrementWindows(ctx, counters)
	if err != nil {
		return false, err
	}
	for i, n := range counts {
		if i < len(windows) && n > windows[i].Limit {
			return true, nil
		}
	}
	return false, nil
}
