package config

import "time"

// Default values for configuration fields.
const (
	// Proxy defaults
	DefaultListenAddress     = "0.0.0.0:8080"
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultIdleTimeout       = 120 * time.Second
	DefaultShutdownTimeout   = 30 * time.Second
	DefaultMaxHeaderBytes    = 1048576 // 1MB
	DefaultRoutePrefix       = "/v1/"

	// CORS defaults
	DefaultCORSMaxAge = 3600 // 1 hour

	// Upstream defaults
	DefaultUpstreamBaseURL             = "http://127.0.0.1:11434"
	DefaultUpstreamDialTimeout         = 10 * time.Second
	DefaultUpstreamMaxIdleConns        = 100
	DefaultUpstreamMaxIdleConnsPerHost = 32
	DefaultUpstreamIdleConnTimeout     = 90 * time.Second

	// Status defaults
	DefaultAlgorithmID        = "ollama-openai"
	DefaultKeyPrefix          = "ts:ollama:"
	DefaultActiveTTL          = time.Hour
	DefaultTerminalTTL        = 24 * time.Hour
	DefaultHeartbeatInterval  = 10 * time.Second
	DefaultStatusWriteTimeout = 5 * time.Second
	DefaultHeartbeatTimeout   = time.Second
	DefaultListDefaultLimit   = 50
	DefaultListMaxLimit       = 1000

	// Store defaults
	DefaultStoreBackend      = "redis"
	DefaultRedisHost         = "127.0.0.1"
	DefaultRedisPort         = 6379
	DefaultRedisUsername     = "default"
	DefaultRedisDialTimeout  = 2 * time.Second
	DefaultRedisReadTimeout  = time.Second
	DefaultRedisWriteTimeout = time.Second
	DefaultRedisPoolSize     = 10
	DefaultSQLitePath        = "data/status.db"
	DefaultSQLiteBusyTimeout = 5 * time.Second
	DefaultMemoryMaxEntries  = 100000
	DefaultSweepSchedule     = "@every 1m"

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "json"
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "taskgate"
	DefaultTracingSampler     = "ratio"
	DefaultTracingSampleRatio = 0.1
	DefaultTracingEndpoint    = "localhost:4317"
	DefaultTracingTimeout     = 10 * time.Second
	DefaultTracingServiceName = "taskgate"
)

// Backend names accepted by store.backend.
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// DefaultRequestDurationBuckets covers short buffered calls through
// multi-minute streams.
var DefaultRequestDurationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills every zero-valued field with its default.
func ApplyDefaults(cfg *Config) {
	// Proxy defaults
	if cfg.Proxy.ListenAddress == "" {
		cfg.Proxy.ListenAddress = DefaultListenAddress
	}
	if cfg.Proxy.ReadHeaderTimeout == 0 {
		cfg.Proxy.ReadHeaderTimeout = DefaultReadHeaderTimeout
	}
	if cfg.Proxy.IdleTimeout == 0 {
		cfg.Proxy.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Proxy.ShutdownTimeout == 0 {
		cfg.Proxy.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Proxy.MaxHeaderBytes == 0 {
		cfg.Proxy.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if cfg.Proxy.RoutePrefix == "" {
		cfg.Proxy.RoutePrefix = DefaultRoutePrefix
	}

	// CORS defaults
	if len(cfg.Proxy.CORS.AllowedOrigins) == 0 {
		cfg.Proxy.CORS.AllowedOrigins = []string{"*"}
	}
	if len(cfg.Proxy.CORS.AllowedMethods) == 0 {
		cfg.Proxy.CORS.AllowedMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	}
	if len(cfg.Proxy.CORS.AllowedHeaders) == 0 {
		cfg.Proxy.CORS.AllowedHeaders = []string{"Authorization", "Content-Type", "X-Task-Id"}
	}
	if len(cfg.Proxy.CORS.ExposedHeaders) == 0 {
		cfg.Proxy.CORS.ExposedHeaders = []string{"X-Task-Id"}
	}
	if cfg.Proxy.CORS.MaxAge == 0 {
		cfg.Proxy.CORS.MaxAge = DefaultCORSMaxAge
	}

	// Upstream defaults
	if cfg.Upstream.BaseURL == "" {
		cfg.Upstream.BaseURL = DefaultUpstreamBaseURL
	}
	if cfg.Upstream.DialTimeout == 0 {
		cfg.Upstream.DialTimeout = DefaultUpstreamDialTimeout
	}
	if cfg.Upstream.MaxIdleConns == 0 {
		cfg.Upstream.MaxIdleConns = DefaultUpstreamMaxIdleConns
	}
	if cfg.Upstream.MaxIdleConnsPerHost == 0 {
		cfg.Upstream.MaxIdleConnsPerHost = DefaultUpstreamMaxIdleConnsPerHost
	}
	if cfg.Upstream.IdleConnTimeout == 0 {
		cfg.Upstream.IdleConnTimeout = DefaultUpstreamIdleConnTimeout
	}

	// Status defaults
	if cfg.Status.AlgorithmID == "" {
		cfg.Status.AlgorithmID = DefaultAlgorithmID
	}
	if cfg.Status.KeyPrefix == "" {
		cfg.Status.KeyPrefix = DefaultKeyPrefix
	}
	if cfg.Status.ActiveTTL == 0 {
		cfg.Status.ActiveTTL = DefaultActiveTTL
	}
	if cfg.Status.TerminalTTL == 0 {
		cfg.Status.TerminalTTL = DefaultTerminalTTL
	}
	if cfg.Status.HeartbeatInterval == 0 {
		cfg.Status.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if cfg.Status.WriteTimeout == 0 {
		cfg.Status.WriteTimeout = DefaultStatusWriteTimeout
	}
	if cfg.Status.HeartbeatWriteTimeout == 0 {
		cfg.Status.HeartbeatWriteTimeout = min(DefaultHeartbeatTimeout, cfg.Status.WriteTimeout)
	}
	if cfg.Status.ListDefaultLimit == 0 {
		cfg.Status.ListDefaultLimit = DefaultListDefaultLimit
	}
	if cfg.Status.ListMaxLimit == 0 {
		cfg.Status.ListMaxLimit = DefaultListMaxLimit
	}

	// Store defaults
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = DefaultStoreBackend
	}
	if cfg.Store.Redis.Host == "" {
		cfg.Store.Redis.Host = DefaultRedisHost
	}
	if cfg.Store.Redis.Port == 0 {
		cfg.Store.Redis.Port = DefaultRedisPort
	}
	if cfg.Store.Redis.Username == "" {
		cfg.Store.Redis.Username = DefaultRedisUsername
	}
	if cfg.Store.Redis.DialTimeout == 0 {
		cfg.Store.Redis.DialTimeout = DefaultRedisDialTimeout
	}
	if cfg.Store.Redis.ReadTimeout == 0 {
		cfg.Store.Redis.ReadTimeout = DefaultRedisReadTimeout
	}
	if cfg.Store.Redis.WriteTimeout == 0 {
		cfg.Store.Redis.WriteTimeout = DefaultRedisWriteTimeout
	}
	if cfg.Store.Redis.PoolSize == 0 {
		cfg.Store.Redis.PoolSize = DefaultRedisPoolSize
	}
	if cfg.Store.SQLite.Path == "" {
		cfg.Store.SQLite.Path = DefaultSQLitePath
	}
	if cfg.Store.SQLite.BusyTimeout == 0 {
		cfg.Store.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}
	if cfg.Store.Memory.MaxEntries == 0 {
		cfg.Store.Memory.MaxEntries = DefaultMemoryMaxEntries
	}
	if cfg.Store.SweepSchedule == "" {
		cfg.Store.SweepSchedule = DefaultSweepSchedule
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Enabled == nil {
		enabled := true
		cfg.Telemetry.Metrics.Enabled = &enabled
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(cfg.Telemetry.Metrics.RequestDurationBuckets) == 0 {
		cfg.Telemetry.Metrics.RequestDurationBuckets = append([]float64(nil), DefaultRequestDurationBuckets...)
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Telemetry.Tracing.Endpoint == "" {
		cfg.Telemetry.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if cfg.Telemetry.Tracing.Timeout == 0 {
		cfg.Telemetry.Tracing.Timeout = DefaultTracingTimeout
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}
}
