package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "defaults", config: Config{}},
		{name: "json debug", config: Config{Level: "debug", Format: "json"}},
		{name: "text warn", config: Config{Level: "warn", Format: "text"}},
		{name: "console maps to text", config: Config{Format: "console"}},
		{name: "invalid level", config: Config{Level: "verbose"}, wantErr: true},
		{name: "invalid format", config: Config{Format: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.config.Writer = &bytes.Buffer{}
			logger, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && logger.Slog() == nil {
				t.Error("Slog() returned nil")
			}
		})
	}
}

func TestLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	child := logger.Slog().With("component", "test")

	child.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug record written at info level: %s", buf.String())
	}

	if err := logger.SetLevel("debug"); err != nil {
		t.Fatalf("SetLevel() error = %v", err)
	}
	child.Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("derived logger did not pick up new level: %s", buf.String())
	}
	if logger.Level() != slog.LevelDebug {
		t.Errorf("Level() = %v, want debug", logger.Level())
	}

	if err := logger.SetLevel("loud"); err == nil {
		t.Error("SetLevel(invalid) should fail")
	}
}

func TestLogger_TaskIDFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "info", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := WithTaskID(context.Background(), "abc123")
	logger.Slog().InfoContext(ctx, "forwarding", "path", "/v1/models")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("invalid JSON log line: %v", err)
	}
	if record["task_id"] != "abc123" {
		t.Errorf("task_id = %v, want abc123", record["task_id"])
	}
	if record["path"] != "/v1/models" {
		t.Errorf("path = %v", record["path"])
	}

	buf.Reset()
	logger.Slog().Info("no context")
	if strings.Contains(buf.String(), "task_id") {
		t.Errorf("task_id added without context value: %s", buf.String())
	}
}

func TestGetTaskID_Empty(t *testing.T) {
	if got := GetTaskID(context.Background()); got != "" {
		t.Errorf("GetTaskID() = %q, want empty", got)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
}
