package middleware

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/jsamuelsen11/showexceptions/internal/pipeline"
)

// TimeoutError is reported when a handler neither responds nor fails within
// the response timeout.
type TimeoutError struct {
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("no response within %s", e.After)
}

// TypeName is shown as the exception type on diagnostic pages.
func (e *TimeoutError) TypeName() string { return "ResponseTimeout" }

// HTTPStatus is used when the failure reaches the host unhandled.
func (e *TimeoutError) HTTPStatus() int { return http.StatusGatewayTimeout }

const (
	timeoutPending int32 = iota
	timeoutResponded
	timeoutFailed
	timeoutExpired
)

// ResponseTimeout returns pipeline middleware that fails the request with a
// *TimeoutError when the wrapped handler has not responded within d. It only
// bounds the time to the first Respond; a body that is already streaming is
// never interrupted. The handler's context is cancelled with the TimeoutError
// as cause when the deadline passes, and otherwise once the response body
// has terminated or been cancelled. Outcomes arriving after the timeout are
// discarded. d <= 0 disables the timeout.
//
// The timer and the handler race through a single state transition, so
// exactly one of them decides the response.
func ResponseTimeout(d time.Duration) pipeline.Middleware {
	return func(next pipeline.Handler) pipeline.Handler {
		if d <= 0 {
			return next
		}
		return pipeline.HandlerFunc(func(env pipeline.Environment, r pipeline.Responder) {
			ctx, cancel := context.WithCancelCause(env.Context())
			inner := maps.Clone(env)
			inner[pipeline.KeyContext] = ctx

			var state atomic.Int32
			timer := time.AfterFunc(d, func() {
				if state.CompareAndSwap(timeoutPending, timeoutExpired) {
					err := &TimeoutError{After: d}
					cancel(err)
					r.Fail(err)
				}
			})

			next.Serve(inner, pipeline.ResponderFuncs{
				OnRespond: func(resp pipeline.Response) {
					if state.CompareAndSwap(timeoutPending, timeoutResponded) {
						timer.Stop()
						resp.Body = cancelOnEnd(resp.Body, cancel)
						r.Respond(resp)
					}
				},
				OnFail: func(err error) {
					switch {
					case state.CompareAndSwap(timeoutPending, timeoutFailed):
						timer.Stop()
						cancel(err)
						r.Fail(err)
					case state.Load() == timeoutResponded:
						cancel(err)
						r.Fail(err)
					}
				},
			})
		})
	}
}

// cancelOnEnd releases the handler context once body terminates or is
// cancelled. A nil body releases it right away.
func cancelOnEnd(body pipeline.BodyStream, cancel context.CancelCauseFunc) pipeline.BodyStream {
	if body == nil {
		cancel(nil)
		return nil
	}
	return pipeline.BodyStreamFunc(func(sink pipeline.Sink) pipeline.CancelFunc {
		stop := body.Stream(pipeline.SinkFuncs{
			OnWrite: sink.Write,
			OnFail: func(err error) {
				sink.Fail(err)
				cancel(err)
			},
			OnComplete: func() {
				sink.Complete()
				cancel(nil)
			},
		})
		return func() {
			if stop != nil {
				stop()
			}
			cancel(nil)
		}
	})
}
