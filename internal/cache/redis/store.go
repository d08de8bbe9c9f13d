// Package redis persists status records as one JSON value per site in Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/JakeFAU/gsc-deindexer/internal/cache"
)

// Config holds the connection settings for the Redis store.
type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	// TTL expires the whole site entry; zero keeps it forever.
	TTL time.Duration
}

type kv interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd
	Close() error
}

// Store reads and writes site entries in Redis.
type Store struct {
	client kv
	prefix string
	ttl    time.Duration
}

// New connects to Redis and verifies the server answers.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewWithClient(rdb, cfg.KeyPrefix, cfg.TTL)
}

// NewWithClient wraps an existing client (primarily for testing).
func NewWithClient(client kv, prefix string, ttl time.Duration) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return &Store{client: client, prefix: prefix, ttl: ttl}, nil
}

// Key returns the Redis key used for site.
func (s *Store) Key(site string) string {
	return s.prefix + cache.SiteKey(site)
}

// Load fetches the entry for site. A missing key yields an empty map.
func (s *Store) Load(ctx context.Context, site string) (cache.Records, error) {
	data, err := s.client.Get(ctx, s.Key(site)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return cache.Records{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return cache.Decode(data)
}

// Save overwrites the entry for site.
func (s *Store) Save(ctx context.Context, site string, records cache.Records) error {
	data, err := cache.Encode(records)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.Key(site), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close releases the client connection pool.
func (s *Store) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close redis client: %w", err)
	}
	return nil
}
