package showexceptions

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"

	"github.com/jsamuelsen11/showexceptions/internal/fault"
	"github.com/jsamuelsen11/showexceptions/internal/pipeline"
)

// New returns middleware that intercepts faults of the wrapped handler.
//
// Per request the outer Responder sees Respond at most once and Fail at most
// once, and Fail only after Respond.
func New(opts ...Option) pipeline.Middleware {
	cfg := newConfig(opts)
	return func(next pipeline.Handler) pipeline.Handler {
		return pipeline.HandlerFunc(func(env pipeline.Environment, r pipeline.Responder) {
			x := &exchange{cfg: cfg, env: env, outer: r}
			x.serve(next)
		})
	}
}

// exchange is the shadow Responder handed to the wrapped handler. One per
// request.
type exchange struct {
	cfg   *config
	env   pipeline.Environment
	outer pipeline.Responder

	state         streamState
	failed        atomic.Bool
	outerPanicked atomic.Bool

	// committed is set once outer.Respond has returned. A post-commit
	// failure seen before that waits in pendingFail.
	committed   atomic.Bool
	pendingFail atomic.Pointer[error]
}

func (x *exchange) serve(next pipeline.Handler) {
	defer func() {
		v := recover()
		if v == nil {
			return
		}
		if x.outerPanicked.Load() {
			panic(v)
		}
		x.fault(fault.FromPanic(v, fault.Callers(2)), panicCause(v))
	}()

	next.Serve(x.env, x)
}

// Respond implements pipeline.Responder.
func (x *exchange) Respond(resp pipeline.Response) {
	if !x.state.leave(stateStarted) {
		x.cfg.dropped(x.env, "respond")
		return
	}

	body := x.cfg.intercept(x.env, resp.Body, resp.Headers.Get(pipeline.ContentType))
	x.toOuter(func() {
		x.outer.Respond(pipeline.Response{
			Status:  resp.Status,
			Headers: resp.Headers,
			Body:    body,
		})
	})

	x.committed.Store(true)
	x.flushFail()
}

// Fail implements pipeline.Responder.
func (x *exchange) Fail(err error) {
	if err == nil {
		err = errors.New("handler failed without an error")
	}
	x.fault(fault.FromError(err), err)
}

func (x *exchange) fault(rec fault.Record, cause error) {
	if x.state.leave(stateFaulted) {
		x.cfg.report(x.env, KindPreResponse, rec)
		resp := x.cfg.errorResponse(x.env, rec)
		x.toOuter(func() { x.outer.Respond(resp) })
		return
	}

	if x.state.load() == stateStarted && x.failed.CompareAndSwap(false, true) {
		x.cfg.report(x.env, KindPostCommit, rec)
		x.pendingFail.Store(&cause)
		if x.committed.Load() {
			x.flushFail()
		}
		return
	}

	x.cfg.dropped(x.env, "fail")
}

// flushFail hands a waiting post-commit failure to the outer Responder.
// Respond and fault may both call it; only one takes the failure.
func (x *exchange) flushFail() {
	if p := x.pendingFail.Swap(nil); p != nil {
		x.toOuter(func() { x.outer.Fail(*p) })
	}
}

// toOuter calls the outer Responder and remembers whether it panicked, so
// serve re-raises host failures instead of treating them as handler faults.
func (x *exchange) toOuter(call func()) {
	ok := false
	defer func() {
		if !ok {
			x.outerPanicked.Store(true)
		}
	}()
	call()
	ok = true
}

// panicCause returns the error to hand to the outer Fail for a recovered
// panic value.
func panicCause(v any) error {
	if err, ok := v.(error); ok {
		return err
	}
	return &PanicError{Value: v}
}
