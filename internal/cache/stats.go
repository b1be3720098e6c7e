package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/geocoder89/taskmaster/internal/domain/task"
	"github.com/redis/go-redis/v9"
)

// StatsCache holds per-user task statistics between mutations.
//
// Every Invalidate bumps the user's generation. Callers read Version before
// computing stats and pass it to Set; a Set whose generation has moved on is
// dropped, so a slow reader cannot overwrite the result of a newer mutation.
type StatsCache interface {
	Get(ctx context.Context, userID string) (task.Stats, bool)
	// Version returns the user's current generation. ok is false when the
	// generation cannot be read and the caller should skip Set.
	Version(ctx context.Context, userID string) (v uint64, ok bool)
	Set(ctx context.Context, userID string, version uint64, s task.Stats)
	Invalidate(ctx context.Context, userID string)
}

func StatsKey(userID string) string {
	return "tasks:stats:v1:user=" + userID
}

func StatsGenKey(userID string) string {
	return "tasks:stats:v1:gen:user=" + userID
}

// MemoryStats keeps stats in process.
type MemoryStats struct {
	c *Cache[task.Stats]

	mu   sync.Mutex
	gens map[string]uint64
}

func NewMemoryStats(ttl time.Duration) *MemoryStats {
	return &MemoryStats{c: New[task.Stats](ttl), gens: make(map[string]uint64)}
}

func (m *MemoryStats) Get(_ context.Context, userID string) (task.Stats, bool) {
	return m.c.Get(StatsKey(userID))
}

func (m *MemoryStats) Version(_ context.Context, userID string) (uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gens[userID], true
}

func (m *MemoryStats) Set(_ context.Context, userID string, version uint64, s task.Stats) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.gens[userID] != version {
		return
	}
	m.c.Set(StatsKey(userID), s)
}

func (m *MemoryStats) Invalidate(_ context.Context, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.gens[userID]++
	m.c.Delete(StatsKey(userID))
}

// RedisStats shares stats between API instances. Redis failures degrade to
// cache misses; they are logged and never surface to the caller.
type RedisStats struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStats(c *RedisClient, ttl time.Duration) *RedisStats {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisStats{rdb: c.Raw(), ttl: ttl}
}

func (r *RedisStats) Get(ctx context.Context, userID string) (task.Stats, bool) {
	var s task.Stats

	raw, err := r.rdb.Get(ctx, StatsKey(userID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.WarnContext(ctx, "stats_cache_get_failed", "user_id", userID, "err", err)
		}
		return s, false
	}

	if err := json.Unmarshal(raw, &s); err != nil {
		slog.WarnContext(ctx, "stats_cache_decode_failed", "user_id", userID, "err", err)
		return task.Stats{}, false
	}

	return s, true
}

func (r *RedisStats) Version(ctx context.Context, userID string) (uint64, bool) {
	v, err := r.rdb.Get(ctx, StatsGenKey(userID)).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, true
	}
	if err != nil {
		slog.WarnContext(ctx, "stats_cache_version_failed", "user_id", userID, "err", err)
		return 0, false
	}
	return v, true
}

// Set writes under WATCH on the generation key; an Invalidate from another
// instance between the check and EXEC aborts the write.
func (r *RedisStats) Set(ctx context.Context, userID string, version uint64, s task.Stats) {
	raw, err := json.Marshal(s)
	if err != nil {
		return
	}

	genKey := StatsGenKey(userID)
	err = r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey).Uint64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != version {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, StatsKey(userID), raw, r.ttl)
			return nil
		})
		return err
	}, genKey)

	if err != nil && !errors.Is(err, redis.TxFailedErr) {
		slog.WarnContext(ctx, "stats_cache_set_failed", "user_id", userID, "err", err)
	}
}

// genTTL outlives any single stats computation by a wide margin.
const genTTL = 24 * time.Hour

func (r *RedisStats) Invalidate(ctx context.Context, userID string) {
	genKey := StatsGenKey(userID)

	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, genKey)
		p.Expire(ctx, genKey, genTTL)
		p.Del(ctx, StatsKey(userID))
		return nil
	})
	if err != nil {
		slog.WarnContext(ctx, "stats_cache_invalidate_failed", "user_id", userID, "err", err)
	}
}

type instrumented struct {
	StatsCache
	observe func(hit bool)
}

// Instrument reports every Get outcome to observe.
func Instrument(c StatsCache, observe func(hit bool)) StatsCache {
	if c == nil || observe == nil {
		return c
	}
	return &instrumented{StatsCache: c, observe: observe}
}

func (i *instrumented) Get(ctx context.Context, userID string) (task.Stats, bool) {
	s, ok := i.StatsCache.Get(ctx, userID)
	i.observe(ok)
	return s, ok
}
