// Package status models the lifecycle of a proxied task and persists its
// status events to a key-value store.
package status

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersion is the version field of every event.
	SchemaVersion = "1.0"

	// EventType is the event_type field of every event.
	EventType = "task.status.update"
)

// State is a task lifecycle state.
type State string

const (
	// StatePending means the request was accepted and not yet forwarded.
	StatePending State = "PENDING"
	// StateRunning means the request is being forwarded or streamed.
	StateRunning State = "RUNNING"
	// StateSuccess means the upstream answered with a 2xx status and the
	// response was relayed in full.
	StateSuccess State = "SUCCESS"
	// StateFailed means the task ended without success.
	StateFailed State = "FAILED"
)

// Valid reports whether s is one of the four known states.
func (s State) Valid() bool {
	switch s {
	case StatePending, StateRunning, StateSuccess, StateFailed:
		return true
	}
	return false
}

// IsTerminal reports whether s is SUCCESS or FAILED.
func (s State) IsTerminal() bool {
	return s == StateSuccess || s == StateFailed
}

// Stage names written alongside states.
const (
	StageQueued     = "queued"
	StageForwarding = "forwarding"
	StageStreaming  = "streaming"
	StageDone       = "done"
	StageError      = "error"
)

// Extensions carries request metadata attached to every event of a task.
type Extensions struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Query  string `json:"query"`
	Stream bool   `json:"stream"`
}

// Event is a single status record. Optional fields are omitted from the
// JSON encoding when unset.
type Event struct {
	Version     string      `json:"version"`
	EventType   string      `json:"event_type"`
	EventID     string      `json:"event_id"`
	AlgorithmID string      `json:"algorithm_id"`
	TaskID      string      `json:"task_id"`
	State       State       `json:"state"`
	Timestamp   int64       `json:"timestamp"`
	Stage       string      `json:"stage,omitempty"`
	Message     string      `json:"message,omitempty"`
	Progress    *float64    `json:"progress,omitempty"`
	Extensions  *Extensions `json:"extensions,omitempty"`
}

// Fields holds the optional parts of an event.
type Fields struct {
	Stage      string
	Message    string
	Progress   *float64
	Extensions *Extensions
}

// Errors returned by Build for malformed input.
var (
	ErrEmptyTaskID     = errors.New("task id is required")
	ErrInvalidState    = errors.New("invalid state")
	ErrInvalidProgress = errors.New("progress must be within [0, 1]")
)

// Builder constructs events. The zero value is not usable; call NewBuilder.
type Builder struct {
	algorithmID string
	clock       func() time.Time
	newID       func() string
}

// BuilderOption customises a Builder.
type BuilderOption func(*Builder)

// WithClock overrides the time source.
func WithClock(clock func() time.Time) BuilderOption {
	return func(b *Builder) { b.clock = clock }
}

// WithIDGenerator overrides the event id source.
func WithIDGenerator(gen func() string) BuilderOption {
	return func(b *Builder) { b.newID = gen }
}

// NewBuilder creates a Builder stamping events with algorithmID.
func NewBuilder(algorithmID string, opts ...BuilderOption) *Builder {
	b := &Builder{
		algorithmID: algorithmID,
		clock:       time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// AlgorithmID returns the identifier stamped on events.
func (b *Builder) AlgorithmID() string {
	return b.algorithmID
}

// Build returns a fully populated event with a fresh event id and the
// current Unix time in seconds.
func (b *Builder) Build(taskID string, state State, fields Fields) (*Event, error) {
	if taskID == "" {
		return nil, ErrEmptyTaskID
	}
	if !state.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidState, state)
	}
	if p := fields.Progress; p != nil && (*p < 0 || *p > 1) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProgress, *p)
	}

	event := &Event{
		Version:     SchemaVersion,
		EventType:   EventType,
		EventID:     b.newID(),
		AlgorithmID: b.algorithmID,
		TaskID:      taskID,
		State:       state,
		Timestamp:   b.clock().Unix(),
		Stage:       fields.Stage,
		Message:     fields.Message,
		Progress:    fields.Progress,
	}
	if fields.Extensions != nil {
		ext := *fields.Extensions
		event.Extensions = &ext
	}

	return event, nil
}

// Encode serialises the event as compact JSON without HTML escaping.
func (e *Event) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(e); err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// DecodeEvent parses an encoded event.
func DecodeEvent(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return &e, nil
}
