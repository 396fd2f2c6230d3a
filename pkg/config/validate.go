package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "proxy.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration. All validation errors are
// collected and returned together as a ValidationError.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateProxy(&cfg.Proxy)...)
	errs = append(errs, validateUpstream(&cfg.Upstream)...)
	errs = append(errs, validateStatus(&cfg.Status)...)
	errs = append(errs, validateStore(&cfg.Store)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validateProxy(cfg *ProxyConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "proxy.listen_address",
			Message: "listen address is required",
		})
	}

	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{Field: "proxy.read_timeout", Message: "read timeout must not be negative"})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{Field: "proxy.write_timeout", Message: "write timeout must not be negative"})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{Field: "proxy.idle_timeout", Message: "idle timeout must not be negative"})
	}
	if cfg.MaxBodyBytes < 0 {
		errs = append(errs, FieldError{Field: "proxy.max_body_bytes", Message: "max body bytes must not be negative"})
	}

	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.max_header_bytes",
			Message: "max header bytes must be non-negative",
		})
	}
	if cfg.MaxHeaderBytes > 10*1024*1024 {
		errs = append(errs, FieldError{
			Field:   "proxy.max_header_bytes",
			Message: "max header bytes exceeds reasonable limit (10MB)",
		})
	}

	if !strings.HasPrefix(cfg.RoutePrefix, "/") || !strings.HasSuffix(cfg.RoutePrefix, "/") {
		errs = append(errs, FieldError{
			Field:   "proxy.route_prefix",
			Message: fmt.Sprintf("route prefix %q must start and end with /", cfg.RoutePrefix),
		})
	}
	if strings.HasPrefix(cfg.RoutePrefix, "/tasks/") {
		errs = append(errs, FieldError{
			Field:   "proxy.route_prefix",
			Message: "route prefix must not overlap the /tasks/ status routes",
		})
	}

	return errs
}

func validateUpstream(cfg *UpstreamConfig) []FieldError {
	var errs []FieldError

	u, err := url.Parse(cfg.BaseURL)
	switch {
	case err != nil:
		errs = append(errs, FieldError{
			Field:   "upstream.base_url",
			Message: fmt.Sprintf("invalid URL: %v", err),
		})
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, FieldError{
			Field:   "upstream.base_url",
			Message: fmt.Sprintf("scheme must be http or https, got %q", u.Scheme),
		})
	case u.Host == "":
		errs = append(errs, FieldError{
			Field:   "upstream.base_url",
			Message: "host is required",
		})
	case u.RawQuery != "" || u.Fragment != "":
		errs = append(errs, FieldError{
			Field:   "upstream.base_url",
			Message: "base URL must not carry a query or fragment",
		})
	}

	if cfg.DialTimeout < 0 {
		errs = append(errs, FieldError{Field: "upstream.dial_timeout", Message: "dial timeout must not be negative"})
	}
	if cfg.MaxIdleConns < 0 {
		errs = append(errs, FieldError{Field: "upstream.max_idle_conns", Message: "must not be negative"})
	}
	if cfg.MaxIdleConnsPerHost < 0 {
		errs = append(errs, FieldError{Field: "upstream.max_idle_conns_per_host", Message: "must not be negative"})
	}

	return errs
}

func validateStatus(cfg *StatusConfig) []FieldError {
	var errs []FieldError

	if cfg.AlgorithmID == "" {
		errs = append(errs, FieldError{Field: "status.algorithm_id", Message: "algorithm id is required"})
	}
	if cfg.KeyPrefix == "" {
		errs = append(errs, FieldError{Field: "status.key_prefix", Message: "key prefix is required"})
	}
	if cfg.ActiveTTL <= 0 {
		errs = append(errs, FieldError{Field: "status.ttl_running", Message: "TTL must be positive"})
	}
	if cfg.TerminalTTL <= 0 {
		errs = append(errs, FieldError{Field: "status.ttl_done", Message: "TTL must be positive"})
	}
	if cfg.HeartbeatInterval <= 0 {
		errs = append(errs, FieldError{Field: "status.heartbeat_interval", Message: "heartbeat interval must be positive"})
	}
	if cfg.ActiveTTL > 0 && cfg.HeartbeatInterval >= cfg.ActiveTTL {
		errs = append(errs, FieldError{
			Field:   "status.heartbeat_interval",
			Message: fmt.Sprintf("heartbeat interval %v must be shorter than ttl_running %v", cfg.HeartbeatInterval, cfg.ActiveTTL),
		})
	}
	if cfg.WriteTimeout <= 0 {
		errs = append(errs, FieldError{Field: "status.write_timeout", Message: "write timeout must be positive"})
	}
	if cfg.HeartbeatWriteTimeout <= 0 {
		errs = append(errs, FieldError{Field: "status.heartbeat_write_timeout", Message: "must be positive"})
	}
	if cfg.ListMaxLimit <= 0 {
		errs = append(errs, FieldError{Field: "status.list_max_limit", Message: "must be positive"})
	}
	if cfg.ListDefaultLimit <= 0 || cfg.ListDefaultLimit > cfg.ListMaxLimit {
		errs = append(errs, FieldError{
			Field:   "status.list_default_limit",
			Message: fmt.Sprintf("must be between 1 and list_max_limit (%d)", cfg.ListMaxLimit),
		})
	}

	return errs
}

func validateStore(cfg *StoreConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case BackendRedis:
		if cfg.Redis.Host == "" {
			errs = append(errs, FieldError{Field: "store.redis.host", Message: "host is required"})
		}
		if cfg.Redis.Port <= 0 || cfg.Redis.Port > 65535 {
			errs = append(errs, FieldError{
				Field:   "store.redis.port",
				Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Redis.Port),
			})
		}
		if cfg.Redis.DB < 0 {
			errs = append(errs, FieldError{Field: "store.redis.db", Message: "db must not be negative"})
		}
		if cfg.Redis.PoolSize < 0 {
			errs = append(errs, FieldError{Field: "store.redis.pool_size", Message: "must not be negative"})
		}
		if cfg.Redis.MaxRetries < -1 {
			errs = append(errs, FieldError{Field: "store.redis.max_retries", Message: "must be -1 or greater"})
		}
	case BackendSQLite:
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{Field: "store.sqlite.path", Message: "path is required"})
		}
	case BackendMemory:
		if cfg.Memory.MaxEntries < 0 {
			errs = append(errs, FieldError{Field: "store.memory.max_entries", Message: "must not be negative"})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "store.backend",
			Message: fmt.Sprintf("unsupported backend %q (valid: redis, memory, sqlite)", cfg.Backend),
		})
	}

	if cfg.SweepSchedule != "" {
		if _, err := cron.ParseStandard(cfg.SweepSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "store.sweep_schedule",
				Message: fmt.Sprintf("invalid schedule: %v", err),
			})
		}
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", cfg.Logging.Level),
		})
	}

	switch cfg.Logging.Format {
	case "json", "text", "console":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid log format %q (valid: json, text)", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.IsEnabled() && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with /",
		})
	}

	if cfg.Tracing.Enabled {
		switch cfg.Tracing.Sampler {
		case "always", "never":
		case "ratio":
			if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
				errs = append(errs, FieldError{
					Field:   "telemetry.tracing.sample_ratio",
					Message: "sample ratio must be between 0.0 and 1.0",
				})
			}
		default:
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sampler",
				Message: fmt.Sprintf("unknown sampler %q (valid: always, never, ratio)", cfg.Tracing.Sampler),
			})
		}
		if cfg.Tracing.Endpoint == "" {
			errs = append(errs, FieldError{Field: "telemetry.tracing.endpoint", Message: "endpoint is required when tracing is enabled"})
		}
	}

	return errs
}
