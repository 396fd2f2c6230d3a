package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"mercator-hq/taskgate/pkg/proxy"
	"mercator-hq/taskgate/pkg/proxy/middleware"

	"github.com/google/uuid"
)

// Forwarder forwards one request under a task id. *proxy.Engine is the
// production implementation.
type Forwarder interface {
	Forward(w http.ResponseWriter, r *http.Request, taskID string) error
}

// ProxyHandler passes every request on the proxy route to the forwarding
// engine.
type ProxyHandler struct {
	forwarder Forwarder
	logger    *slog.Logger
}

// NewProxyHandler creates a proxy handler.
func NewProxyHandler(forwarder Forwarder, logger *slog.Logger) *ProxyHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProxyHandler{
		forwarder: forwarder,
		logger:    logger.With("component", "proxy.handler"),
	}
}

// ServeHTTP implements http.Handler. A failure after the upstream status
// line was relayed aborts the connection so the caller observes a
// truncated response instead of a clean end of stream.
func (h *ProxyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	taskID := middleware.GetTaskID(r.Context())
	if taskID == "" {
		taskID = uuid.NewString()
		w.Header().Set(proxy.HeaderTaskID, taskID)
	}

	err := h.forwarder.Forward(w, r, taskID)
	if err == nil {
		return
	}

	var fe *proxy.ForwardError
	if errors.As(err, &fe) && fe.Committed {
		h.logger.DebugContext(r.Context(), "aborting committed response", "category", string(fe.Category))
		panic(http.ErrAbortHandler)
	}
}
