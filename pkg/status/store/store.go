// Package store provides key-value backends with per-key expiry for task
// status events.
//
// Backends hold opaque byte values. They know nothing about task states or
// event encoding; the status package owns both.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by Get when a key is absent or has expired.
var ErrNotFound = errors.New("key not found")

// Entry is a single key-value pair returned by Scan.
type Entry struct {
	Key   string
	Value []byte
}

// Store is a key-value store with per-key expiry.
//
// Put overwrites unconditionally. Scan returns live entries only, in
// whatever order the backend produces them. All methods are safe for
// concurrent use.
type Store interface {
	// Put stores value under key, replacing any previous value, and sets
	// the key to expire after ttl.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get returns the value stored under key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Scan returns up to limit live entries whose key starts with prefix.
	Scan(ctx context.Context, prefix string, limit int) ([]Entry, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// Purger is implemented by backends that need expired entries removed
// actively rather than relying on the backend to expire them.
type Purger interface {
	// Purge deletes every expired entry and returns how many were removed.
	Purge(ctx context.Context) (int64, error)
}

// UnavailableError reports that the backend could not be reached.
type UnavailableError struct {
	// Op is the store operation that failed ("put", "get", "scan", "ping").
	Op string

	// Err is the underlying connectivity error.
	Err error
}

// Error returns the error message.
func (e *UnavailableError) Error() string {
	return fmt.Sprintf("store unavailable during %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// IsUnavailable reports whether err is or wraps an UnavailableError.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}
