package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"

	"mercator-hq/taskgate/pkg/proxy/types"
)

// RecoveryMiddleware recovers from panics in HTTP handlers and returns a 500
// Internal Server Error response in the gateway error format. It logs the
// panic with stack trace for debugging but does not expose internal details
// to clients.
//
// http.ErrAbortHandler is re-raised so the server drops the connection;
// the proxy handler uses it to truncate a stream that failed after its
// status line was sent.
//
// Example usage:
//
//	handler = RecoveryMiddleware(handler)
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			err := recover()
			if err == nil {
				return
			}
			if err == http.ErrAbortHandler {
				panic(err)
			}

			slog.ErrorContext(r.Context(), "panic in handler",
				"error", err,
				"method", r.Method,
				"path", r.URL.Path,
				"stack", string(debug.Stack()),
			)

			errResp := types.NewServerError(
				"An internal error occurred. Please try again later.",
			)

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)

			// Encode error response (ignore encoding errors at this point)
			_ = json.NewEncoder(w).Encode(errResp)
		}()

		next.ServeHTTP(w, r)
	})
}
