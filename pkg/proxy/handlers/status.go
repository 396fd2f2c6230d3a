package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"mercator-hq/taskgate/pkg/proxy"
	"mercator-hq/taskgate/pkg/proxy/types"
	"mercator-hq/taskgate/pkg/status"
	"mercator-hq/taskgate/pkg/status/store"
)

// StatusReader reads current task events. *status.Repository is the
// production implementation.
type StatusReader interface {
	Get(ctx context.Context, taskID string) (*status.Event, error)
	List(ctx context.Context, limit int) ([]*status.Event, error)
}

// ListResponse is the body of the list endpoint.
type ListResponse struct {
	Items []*status.Event `json:"items"`
	Count int             `json:"count"`
}

// StatusHandler serves the task status read path.
type StatusHandler struct {
	reader       StatusReader
	defaultLimit int
	maxLimit     int
	logger       *slog.Logger
}

// NewStatusHandler creates a status handler. List requests without a limit
// use defaultLimit; limits outside 1..maxLimit are rejected.
func NewStatusHandler(reader StatusReader, defaultLimit, maxLimit int, logger *slog.Logger) *StatusHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusHandler{
		reader:       reader,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
		logger:       logger.With("component", "status.handler"),
	}
}

// Get handles GET /tasks/status/{task_id}.
func (h *StatusHandler) Get(w http.ResponseWriter, r *http.Request) {
	taskID := r.PathValue("task_id")
	if taskID == "" {
		_ = proxy.WriteErrorResponse(w, types.NewNotFoundError("task_id not found", types.CodeTaskNotFound))
		return
	}

	event, err := h.reader.Get(r.Context(), taskID)
	if err != nil {
		var nf *status.TaskNotFoundError
		if errors.As(err, &nf) {
			_ = proxy.WriteErrorResponse(w, types.NewNotFoundError("task_id not found", types.CodeTaskNotFound))
			return
		}
		h.writeReadError(w, r, "get", err)
		return
	}

	_ = proxy.WriteJSONResponse(w, http.StatusOK, event)
}

// List handles GET /tasks/status?limit=N.
func (h *StatusHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := h.defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > h.maxLimit {
			_ = proxy.WriteErrorResponse(w, types.NewInvalidRequestError(
				fmt.Sprintf("limit must be an integer between 1 and %d", h.maxLimit),
				"limit",
				types.CodeInvalidValue,
			))
			return
		}
		limit = n
	}

	events, err := h.reader.List(r.Context(), limit)
	if err != nil {
		h.writeReadError(w, r, "list", err)
		return
	}
	if events == nil {
		events = []*status.Event{}
	}

	_ = proxy.WriteJSONResponse(w, http.StatusOK, ListResponse{Items: events, Count: len(events)})
}

// writeReadError maps store failures to 503 and anything else, such as an
// undecodable entry, to 500.
func (h *StatusHandler) writeReadError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if store.IsUnavailable(err) {
		h.logger.WarnContext(r.Context(), "status store unavailable", "op", op, "error", err)
		_ = proxy.WriteErrorResponse(w, types.NewServiceUnavailableError("status store unavailable"))
		return
	}
	h.logger.ErrorContext(r.Context(), "status read failed", "op", op, "error", err)
	_ = proxy.WriteErrorResponse(w, types.NewServerError("failed to read task status"))
}
