// Package telemetry groups taskgate's observability packages.
//
//   - logging: log/slog loggers with a live-adjustable level and task_id
//     stamped from the request context
//   - metrics: Prometheus collector on a private registry
//   - tracing: OpenTelemetry tracer, noop when disabled
//   - health: liveness and readiness endpoints
//
// Each subpackage is configured from config.TelemetryConfig and wired
// together by the serve command.
package telemetry
