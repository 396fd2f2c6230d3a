package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mercator-hq/taskgate/pkg/cli"
	"mercator-hq/taskgate/pkg/config"
	"mercator-hq/taskgate/pkg/status"
)

// runCLI executes the root command with args and returns stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		cfgFile = ""
		statusFlags.output = string(cli.FormatJSON)
		statusFlags.limit = config.DefaultListDefaultLimit
		serveFlags.dryRun = false
	})
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// sqliteConfig writes a config file pointing at a fresh SQLite store and
// seeds it with events.
func sqliteConfig(t *testing.T, events ...*status.Event) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "store:\n  backend: sqlite\n  sqlite:\n    path: " + filepath.Join(dir, "status.db") + "\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	repo, closer, err := openRepository(cfg, nil)
	if err != nil {
		t.Fatalf("openRepository() error = %v", err)
	}
	defer closer.Close()
	for _, e := range events {
		if err := repo.Save(context.Background(), e); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}
	return path
}

func buildEvent(t *testing.T, taskID string, state status.State) *status.Event {
	t.Helper()
	e, err := status.NewBuilder("ollama-openai").Build(taskID, state, status.Fields{Stage: status.StageDone})
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.Contains(out, "Taskgate "+Version) || !strings.Contains(out, "Go Version:") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestServeDryRun(t *testing.T) {
	path := sqliteConfig(t)
	out, err := runCLI(t, "serve", "--config", path, "--dry-run")
	if err != nil {
		t.Fatalf("serve --dry-run error = %v", err)
	}
	if !strings.Contains(out, "Configuration valid") {
		t.Errorf("output = %q", out)
	}
}

func TestServeInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("store:\n  backend: etcd\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := runCLI(t, "serve", "--config", path, "--dry-run")
	if err == nil {
		t.Fatal("expected a configuration error")
	}
	if cli.ExitCode(err) != cli.ExitUsage {
		t.Errorf("ExitCode = %d, want %d", cli.ExitCode(err), cli.ExitUsage)
	}
}

func TestStatusGet(t *testing.T) {
	path := sqliteConfig(t, buildEvent(t, "task-1", status.StateSuccess))

	out, err := runCLI(t, "status", "get", "task-1", "--config", path)
	if err != nil {
		t.Fatalf("status get error = %v", err)
	}

	var got status.Event
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not an event: %v\n%s", err, out)
	}
	if got.TaskID != "task-1" || got.State != status.StateSuccess {
		t.Errorf("event = %+v", got)
	}
}

func TestStatusGet_NotFound(t *testing.T) {
	path := sqliteConfig(t)

	_, err := runCLI(t, "status", "get", "missing", "--config", path)
	if err == nil {
		t.Fatal("expected an error for an unknown task")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("error = %v", err)
	}
	if cli.ExitCode(err) != cli.ExitFailure {
		t.Errorf("ExitCode = %d, want %d", cli.ExitCode(err), cli.ExitFailure)
	}
}

func TestStatusList(t *testing.T) {
	path := sqliteConfig(t,
		buildEvent(t, "task-1", status.StateSuccess),
		buildEvent(t, "task-2", status.StateFailed),
	)

	out, err := runCLI(t, "status", "list", "--config", path, "--output", "text")
	if err != nil {
		t.Fatalf("status list error = %v", err)
	}
	if !strings.Contains(out, "task-1") || !strings.Contains(out, "task-2") || !strings.HasPrefix(out, "TASK_ID") {
		t.Errorf("unexpected table:\n%s", out)
	}
}

func TestStatusList_InvalidLimit(t *testing.T) {
	path := sqliteConfig(t)

	_, err := runCLI(t, "status", "list", "--config", path, "--limit", "0")
	if cli.ExitCode(err) != cli.ExitUsage {
		t.Errorf("ExitCode = %d, want %d (err = %v)", cli.ExitCode(err), cli.ExitUsage, err)
	}
}

func TestOpenStore_UnknownBackend(t *testing.T) {
	if _, err := openStore(&config.StoreConfig{Backend: "etcd"}); err == nil {
		t.Error("openStore should reject unknown backends")
	}
}
