package middleware

import (
	"context"
	"net/http"
	"strings"

	"mercator-hq/taskgate/pkg/telemetry/logging"

	"github.com/google/uuid"
)

// TaskIDHeader carries the task id on requests and responses.
const TaskIDHeader = "X-Task-Id"

// TaskIDMiddleware assigns every proxied request a task id. A non-blank
// X-Task-Id request header is adopted after trimming surrounding
// whitespace; otherwise a random UUID is generated.
//
// The task id is:
//   - Added to the request context, where loggers pick it up
//   - Set on the X-Task-Id response header before the handler runs
//
// Example usage:
//
//	handler = TaskIDMiddleware(handler)
func TaskIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		taskID := strings.TrimSpace(r.Header.Get(TaskIDHeader))
		if taskID == "" {
			taskID = uuid.NewString()
		}

		ctx := logging.WithTaskID(r.Context(), taskID)
		w.Header().Set(TaskIDHeader, taskID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetTaskID extracts the task id from the context.
// Returns empty string if not found.
func GetTaskID(ctx context.Context) string {
	return logging.GetTaskID(ctx)
}
