package store

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	// Host is the Redis server host.
	Host string

	// Port is the Redis server port.
	Port int

	// Username is the ACL user name. Empty means no AUTH user.
	Username string

	// Password is the ACL password.
	Password string

	// DB is the logical database index.
	DB int

	// DialTimeout bounds connection establishment.
	// Default: 2 seconds
	DialTimeout time.Duration

	// ReadTimeout bounds a single command read.
	// Default: 1 second
	ReadTimeout time.Duration

	// WriteTimeout bounds a single command write.
	// Default: 1 second
	WriteTimeout time.Duration

	// PoolSize is the maximum number of pooled connections.
	// Default: 10
	PoolSize int

	// MaxRetries is the number of retries per command. -1 disables
	// retries. A degraded server costs callers one timeout per attempt.
	// Default: 1
	MaxRetries int

	// ScanCount is the COUNT hint passed to SCAN.
	// Default: 100
	ScanCount int64
}

// RedisStore implements Store on top of a Redis server.
// Expiry is delegated to Redis, so RedisStore does not implement Purger.
type RedisStore struct {
	client    *redis.Client
	scanCount int64
}

// NewRedisClient creates a Redis client from cfg.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 2 * time.Second
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = time.Second
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = 10
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 1
	}

	// AUTH is only sent when a password is configured.
	username := cfg.Username
	if cfg.Password == "" {
		username = ""
	}

	return redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Username:     username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
		MaxRetries:   cfg.MaxRetries,
	})
}

// NewRedisStore creates a Redis-backed Store from cfg.
func NewRedisStore(cfg RedisConfig) *RedisStore {
	return NewRedisStoreWithClient(NewRedisClient(cfg), cfg.ScanCount)
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, scanCount int64) *RedisStore {
	if scanCount <= 0 {
		scanCount = 100
	}
	return &RedisStore{client: client, scanCount: scanCount}
}

// Put stores value with SET key value EX ttl.
func (s *RedisStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return wrapRedisError("put", fmt.Errorf("redis set %s: %w", key, err))
	}
	return nil
}

// Get returns the value stored under key.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, wrapRedisError("get", fmt.Errorf("redis get %s: %w", key, err))
	}
	return data, nil
}

// Scan walks the keyspace with SCAN MATCH and fetches each matching key.
// Keys that expire between SCAN and GET are skipped.
func (s *RedisStore) Scan(ctx context.Context, prefix string, limit int) ([]Entry, error) {
	if limit <= 0 {
		return nil, nil
	}

	entries := make([]Entry, 0, min(limit, int(s.scanCount)))
	iter := s.client.Scan(ctx, 0, escapeGlob(prefix)+"*", s.scanCount).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		data, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, wrapRedisError("scan", fmt.Errorf("redis get %s: %w", key, err))
		}
		entries = append(entries, Entry{Key: key, Value: data})
		if len(entries) >= limit {
			break
		}
	}
	if err := iter.Err(); err != nil {
		return nil, wrapRedisError("scan", fmt.Errorf("redis scan %s*: %w", prefix, err))
	}

	return entries, nil
}

// Ping issues PING.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return wrapRedisError("ping", err)
	}
	return nil
}

// Close closes the client connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// wrapRedisError marks network and timeout failures as UnavailableError.
// Protocol-level errors such as WRONGTYPE are returned unchanged.
func wrapRedisError(op string, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) ||
		errors.Is(err, redis.ErrClosed) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return &UnavailableError{Op: op, Err: err}
	}
	var redisErr redis.Error
	if errors.As(err, &redisErr) {
		return err
	}
	return &UnavailableError{Op: op, Err: err}
}

// escapeGlob escapes the characters SCAN MATCH treats as glob syntax.
func escapeGlob(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
