package proxy

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"mercator-hq/taskgate/pkg/status"
)

// chunk is one read from the upstream body. err is set on the final read.
type chunk struct {
	data []byte
	err  error
}

// pump reads body into out until a read returns an error, which is sent
// as the last chunk. It stops early when done is closed.
func pump(body io.Reader, size int, out chan<- chunk, done <-chan struct{}) {
	defer close(out)
	for {
		buf := make([]byte, size)
		n, err := body.Read(buf)
		if n > 0 {
			select {
			case out <- chunk{data: buf[:n]}:
			case <-done:
				return
			}
		}
		if err != nil {
			select {
			case out <- chunk{err: err}:
			case <-done:
			}
			return
		}
	}
}

// relayStream commits the upstream head, then relays body chunks as they
// arrive while keeping the task alive with heartbeats. Every status write
// happens on this goroutine, so no heartbeat can follow the terminal write.
// It returns the number of heartbeats written.
func (e *Engine) relayStream(ctx context.Context, w http.ResponseWriter, task *status.Task, resp *http.Response) (int, *ForwardError) {
	rc := http.NewResponseController(w)

	e.writeHead(w, resp, task.ID())
	if err := flush(rc); err != nil {
		return 0, e.fail(ctx, w, task, &ForwardError{
			Phase:     PhaseRelay,
			Category:  classifyWriteError(ctx, err),
			Committed: true,
			Err:       err,
		})
	}

	chunks := make(chan chunk)
	done := make(chan struct{})
	defer close(done)
	go pump(resp.Body, e.readBufferSize, chunks, done)

	heartbeats := 0
	timer := time.NewTimer(e.untilHeartbeat(task))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return heartbeats, e.fail(ctx, w, task, &ForwardError{
				Phase:     PhaseRelay,
				Category:  CategoryClientDisconnected,
				Committed: true,
				Err:       ctx.Err(),
			})

		case <-timer.C:
			if time.Since(task.LastWrite()) >= e.heartbeatInterval {
				_ = task.Heartbeat(ctx)
				heartbeats++
				e.metrics.RecordHeartbeat()
			}
			timer.Reset(e.untilHeartbeat(task))

		case c, ok := <-chunks:
			if !ok {
				// pump always sends a final error chunk before closing.
				return heartbeats, e.fail(ctx, w, task, &ForwardError{
					Phase:     PhaseStream,
					Category:  CategoryRead,
					Committed: true,
					Err:       io.ErrUnexpectedEOF,
				})
			}

			if c.err != nil {
				if errors.Is(c.err, io.EOF) {
					_ = task.Complete(ctx, resp.StatusCode)
					return heartbeats, nil
				}
				return heartbeats, e.fail(ctx, w, task, &ForwardError{
					Phase:     PhaseStream,
					Category:  classifyReadError(ctx, c.err),
					Committed: true,
					Err:       c.err,
				})
			}

			if len(c.data) == 0 {
				continue
			}
			if _, err := w.Write(c.data); err != nil {
				return heartbeats, e.fail(ctx, w, task, &ForwardError{
					Phase:     PhaseRelay,
					Category:  classifyWriteError(ctx, err),
					Committed: true,
					Err:       err,
				})
			}
			if err := flush(rc); err != nil {
				return heartbeats, e.fail(ctx, w, task, &ForwardError{
					Phase:     PhaseRelay,
					Category:  classifyWriteError(ctx, err),
					Committed: true,
					Err:       err,
				})
			}
		}
	}
}

// untilHeartbeat returns how long until the next heartbeat is due.
func (e *Engine) untilHeartbeat(task *status.Task) time.Duration {
	d := e.heartbeatInterval - time.Since(task.LastWrite())
	if d <= 0 {
		return time.Millisecond
	}
	return d
}

// flush pushes buffered bytes to the caller. Writers that cannot flush
// are tolerated.
func flush(rc *http.ResponseController) error {
	if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}
