// Package config loads and validates taskgate configuration.
//
// Configuration is layered: an optional YAML file, then defaults for every
// unset field, then environment overrides, then validation.
package config

import "time"

// Config is the root configuration structure.
type Config struct {
	// Proxy contains HTTP server configuration for the inbound side.
	Proxy ProxyConfig `yaml:"proxy"`

	// Upstream describes the inference backend requests are forwarded to.
	Upstream UpstreamConfig `yaml:"upstream"`

	// Status controls how task status events are built and retained.
	Status StatusConfig `yaml:"status"`

	// Store selects and configures the status store backend.
	Store StoreConfig `yaml:"store"`

	// Telemetry contains logging, metrics and tracing configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ProxyConfig contains configuration for the inbound HTTP server.
type ProxyConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "0.0.0.0:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body. Zero means no timeout.
	// Default: 0
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// ReadHeaderTimeout is the maximum duration for reading request headers.
	// Default: 10s
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. Streams can run for a long time, so zero (no timeout) is
	// the default.
	// Default: 0
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for in-flight
	// requests during graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits request header size.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// MaxBodyBytes limits the inbound request body. Zero means unlimited.
	// Default: 0
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// RoutePrefix is the path prefix that is forwarded upstream.
	// Default: "/v1/"
	RoutePrefix string `yaml:"route_prefix"`

	// CORS contains Cross-Origin Resource Sharing configuration.
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig contains CORS configuration. It is disabled by default so
// OPTIONS requests are forwarded upstream untouched.
type CORSConfig struct {
	// Enabled controls whether CORS is handled by the gateway.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins is a list of allowed origins. Use ["*"] for any.
	// Default: ["*"]
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods is a list of allowed HTTP methods.
	// Default: ["GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"]
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders is a list of allowed request headers.
	// Default: ["Authorization", "Content-Type", "X-Task-Id"]
	AllowedHeaders []string `yaml:"allowed_headers"`

	// ExposedHeaders is a list of headers exposed to browsers.
	// Default: ["X-Task-Id"]
	ExposedHeaders []string `yaml:"exposed_headers"`

	// MaxAge is the preflight cache lifetime in seconds.
	// Default: 3600
	MaxAge int `yaml:"max_age"`

	// AllowCredentials controls whether credentials are allowed.
	// Default: false
	AllowCredentials bool `yaml:"allow_credentials"`
}

// UpstreamConfig describes the inference backend.
type UpstreamConfig struct {
	// BaseURL is the scheme, host and optional path prefix of the backend.
	// Default: "http://127.0.0.1:11434"
	BaseURL string `yaml:"base_url"`

	// DialTimeout bounds TCP connection establishment. There is no overall
	// request timeout.
	// Default: 10s
	DialTimeout time.Duration `yaml:"dial_timeout"`

	// MaxIdleConns is the total idle connection pool size.
	// Default: 100
	MaxIdleConns int `yaml:"max_idle_conns"`

	// MaxIdleConnsPerHost is the idle pool size for the backend host.
	// Default: 32
	MaxIdleConnsPerHost int `yaml:"max_idle_conns_per_host"`

	// IdleConnTimeout closes idle pooled connections.
	// Default: 90s
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}

// StatusConfig controls status events.
type StatusConfig struct {
	// AlgorithmID is stamped into every event.
	// Default: "ollama-openai"
	AlgorithmID string `yaml:"algorithm_id"`

	// KeyPrefix namespaces status keys in the store.
	// Default: "ts:ollama:"
	KeyPrefix string `yaml:"key_prefix"`

	// ActiveTTL is the expiry for PENDING and RUNNING entries.
	// Default: 1h
	ActiveTTL time.Duration `yaml:"ttl_running"`

	// TerminalTTL is the expiry for SUCCESS and FAILED entries.
	// Default: 24h
	TerminalTTL time.Duration `yaml:"ttl_done"`

	// HeartbeatInterval is the minimum gap between status writes while a
	// stream is open.
	// Default: 10s
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`

	// WriteTimeout bounds each status write.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// HeartbeatWriteTimeout bounds heartbeat writes, which hold up the
	// stream while they run.
	// Default: 1s
	HeartbeatWriteTimeout time.Duration `yaml:"heartbeat_write_timeout"`

	// ListDefaultLimit is the number of events returned by the list
	// endpoint when no limit is given.
	// Default: 50
	ListDefaultLimit int `yaml:"list_default_limit"`

	// ListMaxLimit is the largest accepted list limit.
	// Default: 1000
	ListMaxLimit int `yaml:"list_max_limit"`
}

// StoreConfig selects the status store backend.
type StoreConfig struct {
	// Backend is one of "redis", "memory", "sqlite".
	// Default: "redis"
	Backend string `yaml:"backend"`

	// Redis configures the Redis backend.
	Redis RedisConfig `yaml:"redis"`

	// SQLite configures the SQLite backend.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Memory configures the in-process backend.
	Memory MemoryConfig `yaml:"memory"`

	// SweepSchedule is the cron schedule for purging expired entries on
	// backends without native expiry. Empty disables sweeping.
	// Default: "@every 1m"
	SweepSchedule string `yaml:"sweep_schedule"`
}

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	// Host is the Redis host.
	// Default: "127.0.0.1"
	Host string `yaml:"host"`

	// Port is the Redis port.
	// Default: 6379
	Port int `yaml:"port"`

	// Username is the ACL user.
	// Default: "default"
	Username string `yaml:"username"`

	// Password is the ACL password.
	Password string `yaml:"password"`

	// DB is the logical database index.
	// Default: 0
	DB int `yaml:"db"`

	// DialTimeout bounds connection establishment.
	// Default: 2s
	DialTimeout time.Duration `yaml:"dial_timeout"`

	// ReadTimeout bounds a single command read.
	// Default: 1s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout bounds a single command write.
	// Default: 1s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// PoolSize is the connection pool size.
	// Default: 10
	PoolSize int `yaml:"pool_size"`

	// MaxRetries is the number of command retries. Zero keeps the store
	// default of one retry, -1 disables retries.
	MaxRetries int `yaml:"max_retries"`
}

// SQLiteConfig configures the SQLite backend.
type SQLiteConfig struct {
	// Path is the database file.
	// Default: "data/status.db"
	Path string `yaml:"path"`

	// BusyTimeout is the lock wait timeout.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// MemoryConfig configures the in-process backend.
type MemoryConfig struct {
	// MaxEntries bounds the number of stored keys.
	// Default: 100000
	MaxEntries int `yaml:"max_entries"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and exposed.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "taskgate"
	Namespace string `yaml:"namespace"`

	// RequestDurationBuckets are histogram buckets in seconds.
	// Default: [0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300]
	RequestDurationBuckets []float64 `yaml:"request_duration_buckets"`
}

// IsEnabled reports whether metrics are enabled, treating unset as true.
func (m MetricsConfig) IsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler is "always", "never" or "ratio".
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the sampled fraction for the ratio sampler.
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector address.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS towards the collector.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// Timeout bounds a single export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`

	// ServiceName is the service.name resource attribute.
	// Default: "taskgate"
	ServiceName string `yaml:"service_name"`
}
