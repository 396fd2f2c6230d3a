package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// responseWriter wraps http.ResponseWriter to capture status code and
// response size.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
	bytes      int64
}

// newResponseWriter creates a new response writer wrapper.
func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK, // Default to 200
	}
}

// WriteHeader captures the status code before writing.
func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

// Write ensures WriteHeader is called if not already done.
func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += int64(n)
	return n, err
}

// Flush forwards to the underlying writer so streamed chunks are not held
// back by the wrapper.
func (rw *responseWriter) Flush() {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// LoggingMiddleware logs HTTP requests and responses with structured logging.
// It records method, path, status code, latency and response size. The
// task id is attached by the logging handler when the request carries one.
//
// Log format (JSON):
//
//	{
//	  "time": "2026-03-02T10:30:00Z",
//	  "level": "INFO",
//	  "msg": "request completed",
//	  "method": "POST",
//	  "path": "/v1/chat/completions",
//	  "status": 200,
//	  "latency_ms": 1250,
//	  "bytes": 5120,
//	  "task_id": "9f1c2d7e-...",
//	  "user_agent": "openai-python/1.0.0",
//	  "remote_addr": "192.168.1.100:54321"
//	}
//
// A handler that aborts the response still produces a completion record
// before the panic continues to the server.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()
		ctx := context.WithValue(r.Context(), StartTimeKey, startTime)

		rw := newResponseWriter(w)

		slog.DebugContext(ctx, "request started",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"user_agent", r.UserAgent(),
		)

		aborted := true
		defer func() {
			latency := time.Since(startTime)

			logLevel := slog.LevelInfo
			switch {
			case aborted || rw.statusCode >= 500:
				logLevel = slog.LevelError
			case rw.statusCode >= 400:
				logLevel = slog.LevelWarn
			}

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", rw.statusCode,
				"latency_ms", latency.Milliseconds(),
				"bytes", rw.bytes,
				"aborted", aborted,
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			}
			// The task id is set in the handler's context, which is not
			// visible here, so it is read back from the response header.
			if taskID := rw.Header().Get(TaskIDHeader); taskID != "" {
				attrs = append(attrs, "task_id", taskID)
			}
			slog.Log(ctx, logLevel, "request completed", attrs...)
		}()

		next.ServeHTTP(rw, r.WithContext(ctx))
		aborted = false
	})
}

// GetStartTime extracts the request start time from the context.
// Returns zero time if not found.
func GetStartTime(ctx context.Context) time.Time {
	if startTime, ok := ctx.Value(StartTimeKey).(time.Time); ok {
		return startTime
	}
	return time.Time{}
}
