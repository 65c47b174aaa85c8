// Package redis implements store.Store using Redis for multi-process
// deployments. Reports live in Sorted Sets scored by finish time so
// newest-first listing is a range read, and all entities are stored as
// JSON strings.
//
// Usage:
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	s := redisstore.New(client)
//	if err := s.Ping(ctx); err != nil { ... }
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Spiderbuttons/autosort/report"
	"github.com/Spiderbuttons/autosort/schedule"
)

// Compile-time interface checks.
var (
	_ report.Store   = (*Store)(nil)
	_ schedule.Store = (*Store)(nil)
)

// Option configures the Store.
type Option func(*Store)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Store implements the composite store.Store interface backed by Redis.
type Store struct {
	rdb    redis.Cmdable
	logger *slog.Logger
}

// New creates a new Redis-backed store. The caller owns the Redis client
// lifecycle.
func New(rdb redis.Cmdable, opts ...Option) *Store {
	s := &Store{rdb: rdb, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Client returns the underlying Redis client.
func (s *Store) Client() redis.Cmdable { return s.rdb }

// Migrate is a no-op for Redis (schemaless).
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping verifies the Redis connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close is a no-op; the caller owns the Redis client lifecycle.
func (s *Store) Close() error { return nil }

// ── Entity helpers ──

var errNotFound = errors.New("autosort/redis: entity not found")

func (s *Store) setEntity(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key, data, 0).Err()
}

func (s *Store) getEntity(ctx context.Context, key string, v any) error {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if isRedisNil(err) {
			return errNotFound
		}
		return err
	}
	return json.Unmarshal(data, v)
}

func (s *Store) entityExists(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func isNotFound(err error) bool { return errors.Is(err, errNotFound) }

func isRedisNil(err error) bool { return errors.Is(err, redis.Nil) }

func now() time.Time { return time.Now().UTC() }
