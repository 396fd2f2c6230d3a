package status

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Messages written with each lifecycle step.
const (
	MessageAccepted   = "request accepted"
	MessageForwarding = "forwarding to upstream"
	MessageAlive      = "stream alive"
	MessageCompleted  = "completed"
)

// Observer receives notifications about status writes. Implementations
// must be safe for concurrent use.
type Observer interface {
	RecordStatusWrite(state string)
	RecordStoreError(op string)
}

type noopObserver struct{}

func (noopObserver) RecordStatusWrite(string) {}
func (noopObserver) RecordStoreError(string)  {}

// TrackerConfig configures a Tracker.
type TrackerConfig struct {
	// Repository persists events. Required.
	Repository *Repository

	// Builder constructs events. Required.
	Builder *Builder

	// WriteTimeout bounds each store write.
	// Default: 5 seconds
	WriteTimeout time.Duration

	// HeartbeatTimeout bounds heartbeat writes. They run between chunks of
	// an open stream, so a slow store delays the caller by up to this much.
	// Default: 1 second, capped at WriteTimeout
	HeartbeatTimeout time.Duration

	// Logger receives store failures. Defaults to slog.Default().
	Logger *slog.Logger

	// Observer is notified of writes and store errors. Optional.
	Observer Observer

	// Clock overrides time.Now for LastWrite bookkeeping.
	Clock func() time.Time
}

// Tracker drives the status lifecycle of tasks.
//
// Store writes are best effort. A failed write is logged and reported to
// the observer, the task still advances in memory, and the caller keeps
// proxying.
type Tracker struct {
	repo             *Repository
	builder          *Builder
	writeTimeout     time.Duration
	heartbeatTimeout time.Duration
	logger           *slog.Logger
	observer         Observer
	clock            func() time.Time
}

// NewTracker creates a Tracker.
func NewTracker(cfg TrackerConfig) (*Tracker, error) {
	if cfg.Repository == nil {
		return nil, fmt.Errorf("tracker requires a repository")
	}
	if cfg.Builder == nil {
		return nil, fmt.Errorf("tracker requires an event builder")
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if cfg.HeartbeatTimeout <= 0 {
		cfg.HeartbeatTimeout = min(time.Second, cfg.WriteTimeout)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Observer == nil {
		cfg.Observer = noopObserver{}
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	return &Tracker{
		repo:             cfg.Repository,
		builder:          cfg.Builder,
		writeTimeout:     cfg.WriteTimeout,
		heartbeatTimeout: cfg.HeartbeatTimeout,
		logger:           cfg.Logger,
		observer:         cfg.Observer,
		clock:            cfg.Clock,
	}, nil
}

// Repository returns the repository the tracker writes to.
func (t *Tracker) Repository() *Repository {
	return t.repo
}

// Begin registers a new task and writes PENDING followed by RUNNING.
func (t *Tracker) Begin(ctx context.Context, taskID string, ext Extensions) *Task {
	task := &Task{
		tracker: t,
		id:      taskID,
		ext:     ext,
	}

	// Both transitions are legal from a fresh task; errors are impossible
	// here apart from an empty task id, which advance logs.
	_ = task.advance(ctx, StatePending, StageQueued, MessageAccepted, t.writeTimeout)
	_ = task.advance(ctx, StateRunning, StageForwarding, MessageForwarding, t.writeTimeout)

	return task
}

// Task is the lifecycle handle for one proxied request. Its methods are
// safe for concurrent use, but the forwarding engine drives each task
// from a single goroutine.
type Task struct {
	tracker *Tracker
	id      string
	ext     Extensions

	mu        sync.Mutex
	state     State
	lastWrite time.Time
}

// ID returns the task id.
func (t *Task) ID() string {
	return t.id
}

// State returns the last state the task moved to.
func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// LastWrite returns when the task last attempted a status write.
func (t *Task) LastWrite() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastWrite
}

// Done reports whether the task reached a terminal state.
func (t *Task) Done() bool {
	return t.State().IsTerminal()
}

// Heartbeat writes RUNNING with the streaming stage.
func (t *Task) Heartbeat(ctx context.Context) error {
	return t.advance(ctx, StateRunning, StageStreaming, MessageAlive, t.tracker.heartbeatTimeout)
}

// Complete writes the terminal state for an upstream status code:
// SUCCESS for 2xx, FAILED otherwise.
func (t *Task) Complete(ctx context.Context, statusCode int) error {
	if statusCode >= 200 && statusCode < 300 {
		return t.advance(ctx, StateSuccess, StageDone, MessageCompleted, t.tracker.writeTimeout)
	}
	return t.advance(ctx, StateFailed, StageError, fmt.Sprintf("upstream status %d", statusCode), t.tracker.writeTimeout)
}

// Fail writes FAILED with message.
func (t *Task) Fail(ctx context.Context, message string) error {
	return t.advance(ctx, StateFailed, StageError, message, t.tracker.writeTimeout)
}

// advance validates and performs one transition. Illegal transitions are
// refused without writing.
func (t *Task) advance(ctx context.Context, to State, stage, message string, timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	tr := t.tracker
	if !CanTransition(t.state, to) {
		err := &TransitionError{TaskID: t.id, From: t.state, To: to}
		tr.logger.WarnContext(ctx, "refusing status transition",
			"from", string(t.state),
			"to", string(to),
		)
		return err
	}

	ext := t.ext
	event, err := tr.builder.Build(t.id, to, Fields{
		Stage:      stage,
		Message:    message,
		Extensions: &ext,
	})
	if err != nil {
		tr.logger.ErrorContext(ctx, "failed to build status event",
			"state", string(to),
			"error", err,
		)
		return err
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	if err := tr.repo.Save(writeCtx, event); err != nil {
		tr.observer.RecordStoreError("put")
		tr.logger.WarnContext(ctx, "status write failed",
			"state", string(to),
			"stage", stage,
			"error", err,
		)
	} else {
		tr.observer.RecordStatusWrite(string(to))
		tr.logger.DebugContext(ctx, "status written",
			"state", string(to),
			"stage", stage,
		)
	}

	t.state = to
	t.lastWrite = tr.clock()

	return nil
}
