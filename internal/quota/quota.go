// Package quota counts hits per key over a fixed window. It backs the daily
// submission quota per anonymous visitor.
package quota

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type Store interface {
	// Hit records one hit for key and returns the count in the current
	// window, including this hit.
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
}

var redisQuotaPrefix = "quota/"

type RedisStore struct {
	Client *redis.Client
}

func NewRedisStore(redisURL string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	if _, err := rdb.Ping(context.TODO()).Result(); err != nil {
		return nil, err
	}
	return &RedisStore{Client: rdb}, nil
}

// Hit increments and arms the expiry in one round-trip. ExpireNX keeps the
// window anchored at the first hit.
func (s *RedisStore) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	key = redisQuotaPrefix + key
	multi := s.Client.TxPipeline()
	incr := multi.Incr(ctx, key)
	multi.ExpireNX(ctx, key, window)
	if _, err := multi.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

type memEntry struct {
	count   int64
	expires time.Time
}

// MemStore is a single-process Store for development and tests.
type MemStore struct {
	mu      sync.Mutex
	entries map[string]*memEntry
	now     func() time.Time
}

func NewMemStore() *MemStore {
	return &MemStore{
		entries: make(map[string]*memEntry),
		now:     time.Now,
	}
}

func (s *MemStore) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.entries[key]
	if !ok || !now.Before(e.expires) {
		e = &memEntry{expires: now.Add(window)}
		s.entries[key] = e
	}
	e.count++
	return e.count, nil
}

// Sweep drops expired windows.
func (s *MemStore) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, e := range s.entries {
		if !now.Before(e.expires) {
			delete(s.entries, k)
		}
	}
}
