package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file, applies defaults and
// validates the result. An empty path yields the defaults. Environment
// variables are not consulted; use LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	return load(path, nil)
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies environment variable overrides. Environment variables always take
// precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file (optional)
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	return load(path, os.Getenv)
}

func load(path string, getenv func(string) string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	ApplyDefaults(&cfg)
	if getenv != nil {
		applyEnvOverrides(&cfg, getenv)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides. Values that do
// not parse are ignored and the existing value is kept.
//
// The Redis, upstream, TTL and heartbeat variables keep the names used by
// existing deployments of the gateway.
func applyEnvOverrides(cfg *Config, getenv func(string) string) {
	// Upstream
	if val := getenv("UPSTREAM_BASE"); val != "" {
		cfg.Upstream.BaseURL = val
	}

	// Status
	if val := getenv("ALGORITHM_ID"); val != "" {
		cfg.Status.AlgorithmID = val
	}
	if val := getenv("TTL_RUNNING"); val != "" {
		if secs, err := strconv.Atoi(val); err == nil {
			cfg.Status.ActiveTTL = time.Duration(secs) * time.Second
		}
	}
	if val := getenv("TTL_DONE"); val != "" {
		if secs, err := strconv.Atoi(val); err == nil {
			cfg.Status.TerminalTTL = time.Duration(secs) * time.Second
		}
	}
	if val := getenv("HEARTBEAT_SEC"); val != "" {
		if secs, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Status.HeartbeatInterval = time.Duration(secs * float64(time.Second))
		}
	}

	// Store
	if val := getenv("STORE_BACKEND"); val != "" {
		cfg.Store.Backend = strings.ToLower(val)
	}
	if val := getenv("REDIS_HOST"); val != "" {
		cfg.Store.Redis.Host = val
	}
	if val := getenv("REDIS_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			cfg.Store.Redis.Port = port
		}
	}
	if val, ok := lookup(getenv, "REDIS_USER"); ok {
		cfg.Store.Redis.Username = val
	}
	if val, ok := lookup(getenv, "REDIS_PASSWORD"); ok {
		cfg.Store.Redis.Password = val
	}
	if val := getenv("REDIS_DB"); val != "" {
		if db, err := strconv.Atoi(val); err == nil {
			cfg.Store.Redis.DB = db
		}
	}
	if val := getenv("SQLITE_PATH"); val != "" {
		cfg.Store.SQLite.Path = val
	}

	// Proxy
	if val := getenv("LISTEN_ADDRESS"); val != "" {
		cfg.Proxy.ListenAddress = val
	}

	// Telemetry
	if val := getenv("LOG_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = strings.ToLower(val)
	}
	if val := getenv("LOG_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = strings.ToLower(val)
	}
	if val := getenv("METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = &b
		}
	}
	if val := getenv("TRACING_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Tracing.Enabled = b
		}
	}
	if val := getenv("TRACING_ENDPOINT"); val != "" {
		cfg.Telemetry.Tracing.Endpoint = val
	}
}

// lookup reports a variable as set when it is non-empty. getenv cannot
// distinguish unset from empty, so an empty REDIS_PASSWORD keeps the file
// value.
func lookup(getenv func(string) string, key string) (string, bool) {
	val := getenv(key)
	return val, val != ""
}
