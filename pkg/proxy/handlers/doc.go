// Package handlers provides the HTTP handlers behind the gateway routes.
//
// ProxyHandler hands each request on the proxy route to the forwarding
// engine under the task id chosen by middleware.TaskIDMiddleware, and
// aborts the connection when a stream fails after its status line was
// sent.
//
// StatusHandler serves the read path:
//
//	GET /tasks/status/{task_id}   current event, or 404
//	GET /tasks/status?limit=N     {"items": [...], "count": n}
//
// Store connectivity failures on the read path answer 503.
package handlers
