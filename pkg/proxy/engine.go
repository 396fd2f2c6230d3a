package proxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mercator-hq/taskgate/pkg/config"
	"mercator-hq/taskgate/pkg/proxy/types"
	"mercator-hq/taskgate/pkg/status"
	"mercator-hq/taskgate/pkg/telemetry/tracing"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// DefaultReadBufferSize is the largest chunk read from a streaming
// upstream body before it is relayed.
const DefaultReadBufferSize = 32 * 1024

// Recorder receives forwarding metrics. Implementations must be safe for
// concurrent use.
type Recorder interface {
	ForwardStarted(stream bool)
	ForwardFinished(stream bool, state string, duration time.Duration)
	RecordUpstreamError(category string)
	RecordHeartbeat()
}

type noopRecorder struct{}

func (noopRecorder) ForwardStarted(bool)                          {}
func (noopRecorder) ForwardFinished(bool, string, time.Duration) {}
func (noopRecorder) RecordUpstreamError(string)                   {}
func (noopRecorder) RecordHeartbeat()                             {}

// SpanStarter starts spans. Both *tracing.Tracer and trace.Tracer satisfy it.
type SpanStarter interface {
	Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span)
}

// EngineConfig configures an Engine.
type EngineConfig struct {
	// UpstreamBaseURL is the scheme, host and optional path prefix every
	// request path is appended to. Required.
	UpstreamBaseURL string

	// Tracker records task status. Required.
	Tracker *status.Tracker

	// Client sends upstream requests. Defaults to NewUpstreamClient with
	// default settings.
	Client *http.Client

	// HeartbeatInterval is the minimum gap between status writes while a
	// stream is open.
	// Default: 10 seconds
	HeartbeatInterval time.Duration

	// MaxBodyBytes limits the inbound body. Zero means unlimited.
	MaxBodyBytes int64

	// ReadBufferSize bounds each chunk read from a streaming body.
	// Default: 32KiB
	ReadBufferSize int

	Logger  *slog.Logger
	Metrics Recorder
	Tracer  SpanStarter
}

// Engine forwards requests to the upstream and drives each task through
// its status lifecycle.
type Engine struct {
	baseURL           string
	tracker           *status.Tracker
	client            *http.Client
	heartbeatInterval time.Duration
	maxBodyBytes      int64
	readBufferSize    int
	logger            *slog.Logger
	metrics           Recorder
	tracer            SpanStarter
}

// NewEngine creates an Engine.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Tracker == nil {
		return nil, errors.New("engine requires a status tracker")
	}
	base, err := url.Parse(cfg.UpstreamBaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid upstream base URL %q: scheme and host are required", cfg.UpstreamBaseURL)
	}

	if cfg.Client == nil {
		cfg.Client = NewUpstreamClient(config.UpstreamConfig{})
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = config.DefaultHeartbeatInterval
	}
	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = DefaultReadBufferSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = noopRecorder{}
	}
	if cfg.Tracer == nil {
		cfg.Tracer = noop.NewTracerProvider().Tracer("")
	}

	return &Engine{
		baseURL:           strings.TrimRight(base.String(), "/"),
		tracker:           cfg.Tracker,
		client:            cfg.Client,
		heartbeatInterval: cfg.HeartbeatInterval,
		maxBodyBytes:      cfg.MaxBodyBytes,
		readBufferSize:    cfg.ReadBufferSize,
		logger:            cfg.Logger.With("component", "proxy.engine"),
		metrics:           cfg.Metrics,
		tracer:            cfg.Tracer,
	}, nil
}

// NewUpstreamClient returns the client used for upstream requests. There
// is no overall request timeout since streams may run for a long time.
// Redirects are returned to the caller rather than followed, and
// transparent decompression is disabled so bodies pass through
// byte-for-byte.
func NewUpstreamClient(cfg config.UpstreamConfig) *http.Client {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = config.DefaultUpstreamDialTimeout
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = config.DefaultUpstreamMaxIdleConns
	}
	if cfg.MaxIdleConnsPerHost <= 0 {
		cfg.MaxIdleConnsPerHost = config.DefaultUpstreamMaxIdleConnsPerHost
	}
	if cfg.IdleConnTimeout <= 0 {
		cfg.IdleConnTimeout = config.DefaultUpstreamIdleConnTimeout
	}

	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: 30 * time.Second,
	}

	return &http.Client{
		Transport: &http.Transport{
			DialContext:         dialer.DialContext,
			MaxIdleConns:        cfg.MaxIdleConns,
			MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
			IdleConnTimeout:     cfg.IdleConnTimeout,
			TLSHandshakeTimeout: 10 * time.Second,
			DisableCompression:  true,
			ForceAttemptHTTP2:   true,
		},
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// Forward proxies r to the upstream under taskID and writes the outcome
// to the status store.
//
// A non-nil error is always a *ForwardError. When its Committed field is
// false an error response has already been written; when true the
// upstream status line was already relayed and the caller must abort the
// response.
func (e *Engine) Forward(w http.ResponseWriter, r *http.Request, taskID string) error {
	start := time.Now()

	body, err := e.readBody(w, r)
	if err != nil {
		e.logger.WarnContext(r.Context(), "failed to read request body", "error", err)
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			_ = WriteErrorResponse(w, types.NewInvalidRequestError(
				fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit), "", types.CodeRequestTooLarge))
		} else {
			_ = WriteErrorResponse(w, types.NewInvalidRequestError(
				"failed to read request body", "", types.CodeRequestRead))
		}
		return &ForwardError{TaskID: taskID, Phase: PhaseRequest, Category: CategoryRequestRead, Err: err}
	}

	stream := IsStreamRequest(body)

	ctx, span := e.tracer.Start(r.Context(), "proxy.forward",
		trace.WithAttributes(tracing.ForwardAttributes(taskID, r.Method, r.URL.Path, stream)...))
	defer span.End()

	e.metrics.ForwardStarted(stream)
	task := e.tracker.Begin(ctx, taskID, status.Extensions{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Stream: stream,
	})

	heartbeats, ferr := e.forward(ctx, w, r, task, body, stream)

	state := string(task.State())
	e.metrics.ForwardFinished(stream, state, time.Since(start))

	if ferr != nil {
		tracing.SetError(span, ferr)
		tracing.SetOutcome(span, state, heartbeats, string(ferr.Category))
		return ferr
	}

	tracing.SetStatus(span, nil)
	tracing.SetOutcome(span, state, heartbeats, "")
	e.logger.DebugContext(ctx, "forward completed",
		"state", state,
		"stream", stream,
		"heartbeats", heartbeats,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// forward runs the upstream exchange. The upstream body is closed by a
// single deferred Close on every path.
func (e *Engine) forward(ctx context.Context, w http.ResponseWriter, r *http.Request, task *status.Task, body []byte, stream bool) (int, *ForwardError) {
	outReq, err := e.newUpstreamRequest(ctx, r, body)
	if err != nil {
		return 0, e.fail(ctx, w, task, &ForwardError{Phase: PhaseDispatch, Category: CategoryTransport, Err: err})
	}

	resp, err := e.client.Do(outReq)
	if err != nil {
		return 0, e.fail(ctx, w, task, &ForwardError{
			Phase:    PhaseDispatch,
			Category: classifyDispatchError(ctx, err),
			Err:      err,
		})
	}
	defer resp.Body.Close()

	tracing.SetUpstreamStatus(trace.SpanFromContext(ctx), resp.StatusCode)

	if stream {
		return e.relayStream(ctx, w, task, resp)
	}
	return 0, e.relayBuffered(ctx, w, task, resp)
}

// relayBuffered reads the whole upstream body, records the terminal state
// and only then relays status, headers and body.
func (e *Engine) relayBuffered(ctx context.Context, w http.ResponseWriter, task *status.Task, resp *http.Response) *ForwardError {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return e.fail(ctx, w, task, &ForwardError{
			Phase:    PhaseRead,
			Category: classifyReadError(ctx, err),
			Err:      err,
		})
	}

	_ = task.Complete(ctx, resp.StatusCode)

	e.writeHead(w, resp, task.ID())
	if _, err := w.Write(data); err != nil {
		e.logger.DebugContext(ctx, "caller went away after terminal status", "error", err)
	}
	return nil
}

// writeHead relays the filtered upstream headers and status line.
func (e *Engine) writeHead(w http.ResponseWriter, resp *http.Response, taskID string) {
	copyHeader(w.Header(), FilterHopByHop(resp.Header))
	if _, ok := resp.Header["Content-Type"]; !ok {
		// A nil value keeps net/http from sniffing one.
		w.Header()["Content-Type"] = nil
	}
	w.Header().Set(HeaderTaskID, taskID)
	w.WriteHeader(resp.StatusCode)
}

// fail records a FAILED status for fe and, when nothing has been relayed
// yet, answers the caller with 502.
func (e *Engine) fail(ctx context.Context, w http.ResponseWriter, task *status.Task, fe *ForwardError) *ForwardError {
	fe.TaskID = task.ID()
	_ = task.Fail(ctx, fe.StatusMessage())
	e.metrics.RecordUpstreamError(string(fe.Category))

	level := slog.LevelWarn
	if fe.Category == CategoryClientDisconnected {
		level = slog.LevelInfo
	}
	e.logger.Log(ctx, level, "forward failed",
		"phase", string(fe.Phase),
		"category", string(fe.Category),
		"committed", fe.Committed,
		"error", fe.Err,
	)

	if !fe.Committed {
		_ = WriteErrorResponse(w, types.NewBadGatewayError(
			fmt.Sprintf("upstream %s failed: %s", fe.Phase, fe.Category)))
	}
	return fe
}

// newUpstreamRequest builds the outbound request: same method, escaped
// path and raw query appended to the base URL, same body bytes, and a
// clone of every inbound header. The Host header is the upstream's.
func (e *Engine) newUpstreamRequest(ctx context.Context, r *http.Request, body []byte) (*http.Request, error) {
	target := e.baseURL + r.URL.EscapedPath()
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	out, err := http.NewRequestWithContext(ctx, r.Method, target, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}

	out.Header = r.Header.Clone()
	if out.Header == nil {
		out.Header = make(http.Header)
	}
	// An explicit empty User-Agent stops net/http from adding its own.
	if _, ok := out.Header["User-Agent"]; !ok {
		out.Header.Set("User-Agent", "")
	}

	return out, nil
}

func (e *Engine) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	var body io.Reader = r.Body
	if e.maxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, e.maxBodyBytes)
	}
	return io.ReadAll(body)
}
