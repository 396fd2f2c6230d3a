package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

// Category classifies a forwarding failure. Categories appear in FAILED
// status messages, the upstream error metric and span attributes.
type Category string

// Failure categories.
const (
	CategoryConnectionRefused  Category = "connection_refused"
	CategoryDNS                Category = "dns_error"
	CategoryConnect            Category = "connect_error"
	CategoryTimeout            Category = "timeout"
	CategoryTransport          Category = "transport_error"
	CategoryUnexpectedEOF      Category = "unexpected_eof"
	CategoryRead               Category = "read_error"
	CategoryWrite              Category = "write_error"
	CategoryClientDisconnected Category = "client_disconnected"
	CategoryRequestRead        Category = "request_read_error"
)

// Phase is the step of a forward in which a failure happened.
type Phase string

// Forwarding phases.
const (
	PhaseRequest  Phase = "request"
	PhaseDispatch Phase = "dispatch"
	PhaseRead     Phase = "read"
	PhaseStream   Phase = "stream"
	PhaseRelay    Phase = "relay"
)

// ForwardError describes a failed forward. Committed is true once the
// upstream status line has been sent to the caller, after which no error
// response can be written and the response must be aborted instead.
type ForwardError struct {
	TaskID    string
	Phase     Phase
	Category  Category
	Committed bool
	Err       error
}

// Error returns the error message.
func (e *ForwardError) Error() string {
	return fmt.Sprintf("task %s: %s failed (%s): %v", e.TaskID, e.Phase, e.Category, e.Err)
}

// Unwrap returns the underlying error.
func (e *ForwardError) Unwrap() error {
	return e.Err
}

// StatusMessage returns the message written with the FAILED event.
func (e *ForwardError) StatusMessage() string {
	if e.Category == CategoryClientDisconnected || e.Phase == PhaseRelay {
		return "gateway error: " + string(e.Category)
	}
	switch e.Phase {
	case PhaseDispatch:
		return "upstream request error: " + string(e.Category)
	case PhaseRead:
		return "upstream read error: " + string(e.Category)
	case PhaseStream:
		return "stream error: " + string(e.Category)
	default:
		return "gateway error: " + string(e.Category)
	}
}

// classifyDispatchError maps an error from sending the upstream request.
// A cancelled caller context wins over whatever the transport reported.
func classifyDispatchError(ctx context.Context, err error) Category {
	if ctx.Err() != nil {
		return CategoryClientDisconnected
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return CategoryConnectionRefused
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return CategoryDNS
	}
	if isTimeout(err) {
		return CategoryTimeout
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return CategoryConnect
	}
	return CategoryTransport
}

// classifyReadError maps an error from reading the upstream body.
func classifyReadError(ctx context.Context, err error) Category {
	if ctx.Err() != nil {
		return CategoryClientDisconnected
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return CategoryUnexpectedEOF
	}
	if isTimeout(err) {
		return CategoryTimeout
	}
	return CategoryRead
}

// classifyWriteError maps an error from writing or flushing to the caller.
func classifyWriteError(ctx context.Context, err error) Category {
	if ctx.Err() != nil ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, net.ErrClosed) {
		return CategoryClientDisconnected
	}
	return CategoryWrite
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
