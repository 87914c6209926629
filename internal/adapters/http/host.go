package http

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/jsamuelsen11/showexceptions/internal/adapters/http/dto"
	"github.com/jsamuelsen11/showexceptions/internal/adapters/http/middleware"
	"github.com/jsamuelsen11/showexceptions/internal/pipeline"
	"github.com/jsamuelsen11/showexceptions/internal/platform/logging"
)

type phase int

const (
	phasePending   phase = iota
	phaseCommitted       // status line and headers written, body streaming
	phaseCompleted       // body terminated
	phaseAnswered        // problem response written for a pre-commit failure
)

// Host returns an http.Handler that serves each request through next.
//
// The request becomes a pipeline.Environment carrying the request ID from
// context. ServeHTTP blocks until next has answered and the body stream has
// terminated, or until the request context is done. A failure reported before
// anything was committed is answered with an RFC 9457 problem response. A
// failure after commit, including a failed body stream, aborts the response
// with http.ErrAbortHandler so the client sees an interrupted transfer.
//
// Events arriving after ServeHTTP returned are dropped.
func Host(next pipeline.Handler) http.Handler {
	return &host{next: next}
}

type host struct {
	next pipeline.Handler
}

func (h *host) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.RequestIDFromContext(ctx)

	x := &exchange{
		w:         w,
		r:         r,
		requestID: requestID,
		logger:    logging.FromContext(ctx),
		done:      make(chan struct{}),
	}

	h.next.Serve(pipeline.FromRequest(r, requestID), x)

	select {
	case <-x.done:
	case <-ctx.Done():
	}

	if x.finish() {
		panic(http.ErrAbortHandler)
	}
}

// exchange is the Responder handed to the pipeline for one request. All
// writes to w happen under mu and stop once closed is set.
type exchange struct {
	w         http.ResponseWriter
	r         *http.Request
	requestID string
	logger    *slog.Logger

	mu      sync.Mutex
	phase   phase
	aborted bool
	closed  bool
	cancel  pipeline.CancelFunc

	done     chan struct{}
	doneOnce sync.Once
}

// Respond implements pipeline.Responder.
func (x *exchange) Respond(resp pipeline.Response) {
	x.mu.Lock()
	if x.closed || x.phase != phasePending {
		x.mu.Unlock()
		x.logger.Warn("late respond dropped", slog.String("status", resp.Status))
		return
	}

	code, err := parseFinalStatus(resp.Status)
	if err != nil {
		x.phase = phaseAnswered
		dto.WriteErrorResponse(x.w, x.r, x.requestID, err)
		x.mu.Unlock()
		x.logger.Error("invalid response status", slog.Any("error", err))
		x.signal()
		return
	}

	hdr := x.w.Header()
	for name, value := range resp.Headers {
		hdr.Set(name, value)
	}
	x.w.WriteHeader(code)
	x.phase = phaseCommitted
	x.mu.Unlock()

	body := resp.Body
	if body == nil {
		body = pipeline.EmptyBody()
	}
	cancel := body.Stream(sink{x})

	x.mu.Lock()
	running := x.phase == phaseCommitted && !x.closed && !x.aborted
	if running {
		x.cancel = cancel
	}
	x.mu.Unlock()

	if !running && cancel != nil {
		cancel()
	}
}

// Fail implements pipeline.Responder.
func (x *exchange) Fail(err error) {
	x.mu.Lock()
	switch {
	case x.closed || x.phase == phaseAnswered:
		x.mu.Unlock()
		x.logger.Warn("late fail dropped", slog.Any("error", err))

	case x.phase == phasePending:
		x.phase = phaseAnswered
		dto.WriteErrorResponse(x.w, x.r, x.requestID, err)
		x.mu.Unlock()
		x.logger.Error("request failed before response", slog.Any("error", err))
		x.signal()

	default:
		cancel := x.abortLocked()
		x.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		x.logger.Error("request failed after response committed", slog.Any("error", err))
		x.signal()
	}
}

// finish closes the exchange and reports whether the response must be
// aborted. A body still streaming is cancelled.
func (x *exchange) finish() bool {
	x.mu.Lock()
	x.closed = true
	aborted := x.aborted
	cancel := x.cancel
	x.cancel = nil
	x.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return aborted
}

func (x *exchange) abortLocked() pipeline.CancelFunc {
	x.aborted = true
	cancel := x.cancel
	x.cancel = nil
	return cancel
}

func (x *exchange) signal() {
	x.doneOnce.Do(func() { close(x.done) })
}

// sink writes the body of a committed response. Writes are synchronous and
// flushed one by one, so Write never asks for back-pressure.
type sink struct {
	x *exchange
}

func (s sink) Write(chunk []byte, _ func()) bool {
	x := s.x
	x.mu.Lock()
	if x.closed || x.aborted || x.phase != phaseCommitted {
		x.mu.Unlock()
		return false
	}

	_, err := x.w.Write(chunk)
	if err == nil {
		err = flush(x.w)
	}
	if err == nil {
		x.mu.Unlock()
		return false
	}

	cancel := x.abortLocked()
	x.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	x.logger.Warn("writing response body failed", slog.Any("error", err))
	x.signal()
	return false
}

func (s sink) Fail(err error) {
	x := s.x
	x.mu.Lock()
	if x.closed || x.aborted || x.phase != phaseCommitted {
		x.mu.Unlock()
		return
	}
	x.phase = phaseCompleted
	x.abortLocked()
	x.mu.Unlock()

	x.logger.Error("response body failed", slog.Any("error", err))
	x.signal()
}

func (s sink) Complete() {
	x := s.x
	x.mu.Lock()
	if x.phase == phaseCommitted {
		x.phase = phaseCompleted
		x.cancel = nil
	}
	x.mu.Unlock()
	x.signal()
}

func flush(w http.ResponseWriter) error {
	err := http.NewResponseController(w).Flush()
	if errors.Is(err, http.ErrNotSupported) {
		return nil
	}
	return err
}

// parseFinalStatus parses a status line into a code usable as a final
// response status.
func parseFinalStatus(status string) (int, error) {
	code, err := pipeline.ParseStatus(status)
	if err != nil {
		return 0, err
	}
	if code < http.StatusOK {
		return 0, errors.Newf("status %q is not a final response status", status)
	}
	return code, nil
}
