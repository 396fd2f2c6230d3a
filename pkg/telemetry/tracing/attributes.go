package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for forwarding spans. HTTP keys follow the OpenTelemetry
// semantic conventions; gateway-specific keys use the taskgate namespace.
const (
	AttrTaskID        = "taskgate.task_id"
	AttrStream        = "taskgate.stream"
	AttrTaskState     = "taskgate.task_state"
	AttrErrorCategory = "taskgate.error.category"
	AttrHeartbeats    = "taskgate.heartbeats"

	AttrHTTPMethod         = "http.request.method"
	AttrURLPath            = "url.path"
	AttrUpstreamStatusCode = "http.response.status_code"
)

// ForwardAttributes returns the attributes set when a forwarding span starts.
func ForwardAttributes(taskID, method, path string, stream bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrTaskID, taskID),
		attribute.String(AttrHTTPMethod, method),
		attribute.String(AttrURLPath, path),
		attribute.Bool(AttrStream, stream),
	}
}

// SetUpstreamStatus records the upstream response status on span.
func SetUpstreamStatus(span trace.Span, code int) {
	span.SetAttributes(attribute.Int(AttrUpstreamStatusCode, code))
}

// SetOutcome records the final task state, heartbeat count and, for
// failures, the error category.
func SetOutcome(span trace.Span, state string, heartbeats int, category string) {
	attrs := []attribute.KeyValue{
		attribute.String(AttrTaskState, state),
		attribute.Int(AttrHeartbeats, heartbeats),
	}
	if category != "" {
		attrs = append(attrs, attribute.String(AttrErrorCategory, category))
	}
	span.SetAttributes(attrs...)
}
