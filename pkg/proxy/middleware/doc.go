// Package middleware provides HTTP middleware for cross-cutting concerns.
//
// # Middleware Chain
//
// The server wraps every route in the same chain, outermost first:
//
//	handler = Recovery(Logging(CORS(mux)))
//
// TaskIDMiddleware wraps only the proxy route, so status and health
// endpoints never allocate task ids.
//
// # Task ID
//
// TaskIDMiddleware adopts a non-blank X-Task-Id request header or
// generates a UUID, stores it in the request context for loggers, and sets
// X-Task-Id on the response before the handler runs.
//
// # Logging
//
// LoggingMiddleware records method, path, status, latency and response
// size for every request. Its response writer supports Flush and Unwrap
// so streamed responses are not buffered by the wrapper.
//
// # CORS
//
// CORSMiddleware is disabled by default. While disabled OPTIONS requests
// are proxied like any other method.
//
// # Recovery
//
// RecoveryMiddleware converts panics into a 500 JSON error. The
// http.ErrAbortHandler sentinel is re-raised so the server can drop the
// connection of a stream that failed mid-flight.
package middleware
