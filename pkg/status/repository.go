package status

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mercator-hq/taskgate/pkg/status/store"
)

// DefaultKeyPrefix is the key namespace for task status entries.
const DefaultKeyPrefix = "ts:ollama:"

// TTLPolicy chooses how long a status entry lives.
type TTLPolicy struct {
	// Active applies to PENDING and RUNNING entries.
	Active time.Duration

	// Terminal applies to SUCCESS and FAILED entries.
	Terminal time.Duration
}

// For returns the TTL for state.
func (p TTLPolicy) For(state State) time.Duration {
	if state.IsTerminal() {
		return p.Terminal
	}
	return p.Active
}

// TaskNotFoundError is returned when no live status exists for a task.
type TaskNotFoundError struct {
	TaskID string
}

// Error returns the error message.
func (e *TaskNotFoundError) Error() string {
	return fmt.Sprintf("task %s not found", e.TaskID)
}

// Repository stores one status event per task, keyed by task id.
type Repository struct {
	store  store.Store
	prefix string
	ttl    TTLPolicy
	logger *slog.Logger
}

// NewRepository creates a repository over s. An empty prefix selects
// DefaultKeyPrefix.
func NewRepository(s store.Store, prefix string, ttl TTLPolicy, logger *slog.Logger) *Repository {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		store:  s,
		prefix: prefix,
		ttl:    ttl,
		logger: logger,
	}
}

// Key returns the store key for taskID.
func (r *Repository) Key(taskID string) string {
	return r.prefix + taskID
}

// Prefix returns the key namespace.
func (r *Repository) Prefix() string {
	return r.prefix
}

// Save overwrites the current event for its task, with a TTL chosen by
// the event state.
func (r *Repository) Save(ctx context.Context, event *Event) error {
	data, err := event.Encode()
	if err != nil {
		return err
	}
	return r.store.Put(ctx, r.Key(event.TaskID), data, r.ttl.For(event.State))
}

// Get returns the current event for taskID.
func (r *Repository) Get(ctx context.Context, taskID string) (*Event, error) {
	data, err := r.store.Get(ctx, r.Key(taskID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &TaskNotFoundError{TaskID: taskID}
		}
		return nil, err
	}
	return DecodeEvent(data)
}

// List returns up to limit current events in store order. Entries that
// cannot be decoded are logged and skipped.
func (r *Repository) List(ctx context.Context, limit int) ([]*Event, error) {
	entries, err := r.store.Scan(ctx, r.prefix, limit)
	if err != nil {
		return nil, err
	}

	events := make([]*Event, 0, len(entries))
	for _, entry := range entries {
		event, err := DecodeEvent(entry.Value)
		if err != nil {
			r.logger.Warn("skipping undecodable status entry",
				"key", entry.Key,
				"error", err,
			)
			continue
		}
		if event.TaskID == "" {
			event.TaskID = strings.TrimPrefix(entry.Key, r.prefix)
		}
		events = append(events, event)
	}

	return events, nil
}

// Ping checks the underlying store.
func (r *Repository) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}
