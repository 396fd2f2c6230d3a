package logging

import "context"

// Context keys for common log fields.
type contextKey string

// TaskIDKey is the context key for task ids.
const TaskIDKey contextKey = "task_id"

// WithTaskID adds a task id to the context.
func WithTaskID(ctx context.Context, taskID string) context.Context {
	return context.WithValue(ctx, TaskIDKey, taskID)
}

// GetTaskID retrieves the task id from the context.
func GetTaskID(ctx context.Context) string {
	if taskID, ok := ctx.Value(TaskIDKey).(string); ok {
		return taskID
	}
	return ""
}
