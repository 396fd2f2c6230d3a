package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig(\"\") error = %v", err)
	}

	if cfg.Proxy.ListenAddress != DefaultListenAddress {
		t.Errorf("ListenAddress = %q, want %q", cfg.Proxy.ListenAddress, DefaultListenAddress)
	}
	if cfg.Upstream.BaseURL != DefaultUpstreamBaseURL {
		t.Errorf("BaseURL = %q, want %q", cfg.Upstream.BaseURL, DefaultUpstreamBaseURL)
	}
	if cfg.Status.KeyPrefix != "ts:ollama:" {
		t.Errorf("KeyPrefix = %q, want ts:ollama:", cfg.Status.KeyPrefix)
	}
	if cfg.Status.ActiveTTL != time.Hour {
		t.Errorf("ActiveTTL = %v, want 1h", cfg.Status.ActiveTTL)
	}
	if cfg.Status.TerminalTTL != 24*time.Hour {
		t.Errorf("TerminalTTL = %v, want 24h", cfg.Status.TerminalTTL)
	}
	if cfg.Status.HeartbeatInterval != 10*time.Second {
		t.Errorf("HeartbeatInterval = %v, want 10s", cfg.Status.HeartbeatInterval)
	}
	if cfg.Status.HeartbeatWriteTimeout != time.Second {
		t.Errorf("HeartbeatWriteTimeout = %v, want 1s", cfg.Status.HeartbeatWriteTimeout)
	}
	if cfg.Store.Backend != BackendRedis {
		t.Errorf("Backend = %q, want redis", cfg.Store.Backend)
	}
	if !cfg.Telemetry.Metrics.IsEnabled() {
		t.Error("metrics should be enabled by default")
	}
	if cfg.Proxy.CORS.Enabled {
		t.Error("CORS should be disabled by default")
	}
	if cfg.Proxy.WriteTimeout != 0 {
		t.Errorf("WriteTimeout = %v, want 0", cfg.Proxy.WriteTimeout)
	}
}

func TestLoadConfig_File(t *testing.T) {
	path := writeFile(t, t.TempDir(), "taskgate.yaml", `
proxy:
  listen_address: "127.0.0.1:9000"
upstream:
  base_url: "http://ollama:11434"
status:
  algorithm_id: "custom"
  ttl_running: 30m
  heartbeat_interval: 2s
store:
  backend: memory
  memory:
    max_entries: 10
telemetry:
  metrics:
    enabled: false
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Proxy.ListenAddress != "127.0.0.1:9000" {
		t.Errorf("ListenAddress = %q", cfg.Proxy.ListenAddress)
	}
	if cfg.Upstream.BaseURL != "http://ollama:11434" {
		t.Errorf("BaseURL = %q", cfg.Upstream.BaseURL)
	}
	if cfg.Status.AlgorithmID != "custom" {
		t.Errorf("AlgorithmID = %q", cfg.Status.AlgorithmID)
	}
	if cfg.Status.ActiveTTL != 30*time.Minute {
		t.Errorf("ActiveTTL = %v, want 30m", cfg.Status.ActiveTTL)
	}
	if cfg.Status.TerminalTTL != DefaultTerminalTTL {
		t.Errorf("TerminalTTL = %v, want default", cfg.Status.TerminalTTL)
	}
	if cfg.Status.HeartbeatInterval != 2*time.Second {
		t.Errorf("HeartbeatInterval = %v, want 2s", cfg.Status.HeartbeatInterval)
	}
	if cfg.Store.Backend != BackendMemory || cfg.Store.Memory.MaxEntries != 10 {
		t.Errorf("Store = %+v", cfg.Store)
	}
	if cfg.Telemetry.Metrics.IsEnabled() {
		t.Error("metrics should be disabled")
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{
			name:    "missing file",
			path:    filepath.Join(dir, "missing.yaml"),
			wantErr: "failed to read",
		},
		{
			name:    "malformed yaml",
			path:    writeFile(t, dir, "bad.yaml", "proxy: [unterminated"),
			wantErr: "failed to parse",
		},
		{
			name:    "invalid values",
			path:    writeFile(t, dir, "invalid.yaml", "store:\n  backend: etcd\n"),
			wantErr: "store.backend",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(tt.path)
			if err == nil {
				t.Fatal("LoadConfig() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	env := map[string]string{
		"UPSTREAM_BASE":    "http://10.0.0.5:11434",
		"ALGORITHM_ID":     "alt",
		"REDIS_HOST":       "redis.internal",
		"REDIS_PORT":       "6380",
		"REDIS_USER":       "gateway",
		"REDIS_PASSWORD":   "secret",
		"REDIS_DB":         "3",
		"TTL_RUNNING":      "120",
		"TTL_DONE":         "600",
		"HEARTBEAT_SEC":    "0.5",
		"STORE_BACKEND":    "SQLite",
		"SQLITE_PATH":      "/tmp/status.db",
		"LISTEN_ADDRESS":   ":9999",
		"LOG_LEVEL":        "DEBUG",
		"LOG_FORMAT":       "text",
		"METRICS_ENABLED":  "false",
		"TRACING_ENABLED":  "true",
		"TRACING_ENDPOINT": "otel:4317",
	}

	cfg := Default()
	applyEnvOverrides(cfg, func(k string) string { return env[k] })

	if cfg.Upstream.BaseURL != "http://10.0.0.5:11434" {
		t.Errorf("BaseURL = %q", cfg.Upstream.BaseURL)
	}
	if cfg.Status.AlgorithmID != "alt" {
		t.Errorf("AlgorithmID = %q", cfg.Status.AlgorithmID)
	}
	r := cfg.Store.Redis
	if r.Host != "redis.internal" || r.Port != 6380 || r.Username != "gateway" || r.Password != "secret" || r.DB != 3 {
		t.Errorf("Redis = %+v", r)
	}
	if cfg.Status.ActiveTTL != 120*time.Second {
		t.Errorf("ActiveTTL = %v", cfg.Status.ActiveTTL)
	}
	if cfg.Status.TerminalTTL != 600*time.Second {
		t.Errorf("TerminalTTL = %v", cfg.Status.TerminalTTL)
	}
	if cfg.Status.HeartbeatInterval != 500*time.Millisecond {
		t.Errorf("HeartbeatInterval = %v, want 500ms", cfg.Status.HeartbeatInterval)
	}
	if cfg.Store.Backend != BackendSQLite || cfg.Store.SQLite.Path != "/tmp/status.db" {
		t.Errorf("Store = %+v", cfg.Store)
	}
	if cfg.Proxy.ListenAddress != ":9999" {
		t.Errorf("ListenAddress = %q", cfg.Proxy.ListenAddress)
	}
	if cfg.Telemetry.Logging.Level != "debug" || cfg.Telemetry.Logging.Format != "text" {
		t.Errorf("Logging = %+v", cfg.Telemetry.Logging)
	}
	if cfg.Telemetry.Metrics.IsEnabled() {
		t.Error("metrics should be disabled")
	}
	if !cfg.Telemetry.Tracing.Enabled || cfg.Telemetry.Tracing.Endpoint != "otel:4317" {
		t.Errorf("Tracing = %+v", cfg.Telemetry.Tracing)
	}
}

func TestApplyEnvOverrides_InvalidValuesIgnored(t *testing.T) {
	env := map[string]string{
		"REDIS_PORT":      "not-a-port",
		"TTL_RUNNING":     "1h",
		"HEARTBEAT_SEC":   "fast",
		"METRICS_ENABLED": "maybe",
	}

	cfg := Default()
	applyEnvOverrides(cfg, func(k string) string { return env[k] })

	if cfg.Store.Redis.Port != DefaultRedisPort {
		t.Errorf("Port = %d, want default", cfg.Store.Redis.Port)
	}
	if cfg.Status.ActiveTTL != DefaultActiveTTL {
		t.Errorf("ActiveTTL = %v, want default", cfg.Status.ActiveTTL)
	}
	if cfg.Status.HeartbeatInterval != DefaultHeartbeatInterval {
		t.Errorf("HeartbeatInterval = %v, want default", cfg.Status.HeartbeatInterval)
	}
	if !cfg.Telemetry.Metrics.IsEnabled() {
		t.Error("metrics should stay enabled")
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeFile(t, t.TempDir(), "taskgate.yaml", "status:\n  algorithm_id: from-file\n")
	t.Setenv("ALGORITHM_ID", "from-env")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() error = %v", err)
	}
	if cfg.Status.AlgorithmID != "from-env" {
		t.Errorf("AlgorithmID = %q, want from-env", cfg.Status.AlgorithmID)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"valid defaults", func(*Config) {}, ""},
		{"bad scheme", func(c *Config) { c.Upstream.BaseURL = "ftp://host" }, "upstream.base_url"},
		{"missing host", func(c *Config) { c.Upstream.BaseURL = "http://" }, "upstream.base_url"},
		{"query on base", func(c *Config) { c.Upstream.BaseURL = "http://host?x=1" }, "upstream.base_url"},
		{"zero ttl", func(c *Config) { c.Status.ActiveTTL = -time.Second }, "status.ttl_running"},
		{"heartbeat above ttl", func(c *Config) { c.Status.HeartbeatInterval = 2 * time.Hour }, "status.heartbeat_interval"},
		{"default limit above max", func(c *Config) { c.Status.ListDefaultLimit = 5000 }, "status.list_default_limit"},
		{"unknown backend", func(c *Config) { c.Store.Backend = "etcd" }, "store.backend"},
		{"negative heartbeat write timeout", func(c *Config) { c.Status.HeartbeatWriteTimeout = -time.Second }, "status.heartbeat_write_timeout"},
		{"redis retries below -1", func(c *Config) { c.Store.Redis.MaxRetries = -2 }, "store.redis.max_retries"},
		{"redis port", func(c *Config) { c.Store.Redis.Port = 70000 }, "store.redis.port"},
		{"bad schedule", func(c *Config) { c.Store.SweepSchedule = "every now and then" }, "store.sweep_schedule"},
		{"route prefix", func(c *Config) { c.Proxy.RoutePrefix = "/v1" }, "proxy.route_prefix"},
		{"route prefix overlaps tasks", func(c *Config) { c.Proxy.RoutePrefix = "/tasks/x/" }, "proxy.route_prefix"},
		{"log level", func(c *Config) { c.Telemetry.Logging.Level = "verbose" }, "telemetry.logging.level"},
		{"log format", func(c *Config) { c.Telemetry.Logging.Format = "xml" }, "telemetry.logging.format"},
		{"sampler", func(c *Config) {
			c.Telemetry.Tracing.Enabled = true
			c.Telemetry.Tracing.Sampler = "sometimes"
		}, "telemetry.tracing.sampler"},
		{"sample ratio", func(c *Config) {
			c.Telemetry.Tracing.Enabled = true
			c.Telemetry.Tracing.SampleRatio = 1.5
		}, "telemetry.tracing.sample_ratio"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}

			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error = %v, want ValidationError", err)
			}
			found := false
			for _, fe := range verr.Errors {
				if fe.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("Validate() errors = %v, want field %s", verr.Errors, tt.wantField)
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	single := ValidationError{Errors: []FieldError{{Field: "a", Message: "bad"}}}
	if got := single.Error(); got != "configuration validation failed: a: bad" {
		t.Errorf("Error() = %q", got)
	}

	multi := ValidationError{Errors: []FieldError{{Field: "a", Message: "bad"}, {Field: "b", Message: "worse"}}}
	if got := multi.Error(); !strings.Contains(got, "2 errors") || !strings.Contains(got, "b: worse") {
		t.Errorf("Error() = %q", got)
	}
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "taskgate.yaml", "telemetry:\n  logging:\n    level: info\n")

	w, err := NewWatcher(path, 20*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	w.load = LoadConfig

	levels := make(chan string, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = w.Watch(ctx, func(cfg *Config) { levels <- cfg.Telemetry.Logging.Level })
	}()
	// Give fsnotify time to register the directory.
	time.Sleep(50 * time.Millisecond)

	writeFile(t, dir, "taskgate.yaml", "telemetry:\n  logging:\n    level: debug\n")

	select {
	case level := <-levels:
		if level != "debug" {
			t.Errorf("reloaded level = %q, want debug", level)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no reload observed")
	}

	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestWatcher_InvalidFileKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "taskgate.yaml", "store:\n  backend: memory\n")

	w, err := NewWatcher(path, 20*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	w.load = LoadConfig

	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = w.Watch(ctx, func(*Config) { calls.Add(1) })
	}()
	time.Sleep(50 * time.Millisecond)

	writeFile(t, dir, "taskgate.yaml", "store:\n  backend: etcd\n")
	// Unrelated files in the same directory are ignored.
	writeFile(t, dir, "other.yaml", "proxy: {}\n")
	time.Sleep(200 * time.Millisecond)

	if got := calls.Load(); got != 0 {
		t.Errorf("onChange called %d times, want 0", got)
	}

	_ = w.Stop()
}

func TestDebouncer_CoalescesTriggers(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	var count atomic.Int32
	for i := 0; i < 5; i++ {
		d.Trigger(func() { count.Add(1) })
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)

	if got := count.Load(); got != 1 {
		t.Errorf("callback ran %d times, want 1", got)
	}
}

func TestDebouncer_StopCancelsPending(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)

	var count atomic.Int32
	d.Trigger(func() { count.Add(1) })
	d.Stop()
	d.Stop()
	time.Sleep(60 * time.Millisecond)

	if got := count.Load(); got != 0 {
		t.Errorf("callback ran %d times after Stop, want 0", got)
	}
}
