// Package server wires the gateway routes and manages the HTTP server
// lifecycle.
//
// # Routes
//
//   - <route prefix> (default /v1/), any method: forwarded upstream
//   - GET /tasks/status/{task_id}: current status event
//   - GET /tasks/status?limit=N: current status events
//   - GET /health: liveness probe
//   - GET /ready: readiness probe (status store ping)
//   - GET /version: build information
//   - GET <metrics path> (default /metrics): Prometheus metrics when enabled
//
// # Middleware Chain
//
// Every route passes through, outermost first:
//  1. Recovery: converts panics to 500 and re-raises connection aborts
//  2. Logging: one structured record per request
//  3. CORS: only when proxy.cors.enabled is set
//
// The proxy route additionally extracts inbound trace context and assigns
// the task id.
//
// # Graceful Shutdown
//
// Start returns once its context is cancelled or Stop is called, after
// in-flight requests finish or proxy.shutdown_timeout elapses. Connections
// still open at the deadline are closed, which cancels their requests and
// records their tasks as FAILED.
package server
