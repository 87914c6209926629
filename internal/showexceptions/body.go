package showexceptions

import (
	"sync/atomic"

	"github.com/jsamuelsen11/showexceptions/internal/fault"
	"github.com/jsamuelsen11/showexceptions/internal/pipeline"
)

// InterceptBody wraps body so that a fault on its error channel is written
// to the consumer as diagnostic content followed by Complete, instead of
// being forwarded. contentType is the committed Content-Type and selects an
// HTML fragment or plain text. Writes, back-pressure, completion and
// cancellation pass through unchanged. A fault that arrives while the
// consumer still owes a resume is written once that resume is called.
func InterceptBody(body pipeline.BodyStream, contentType string, opts ...Option) pipeline.BodyStream {
	return newConfig(opts).intercept(pipeline.Environment{}, body, contentType)
}

func (c *config) intercept(env pipeline.Environment, body pipeline.BodyStream, contentType string) pipeline.BodyStream {
	return &interceptedBody{
		inner:  body,
		format: formatFor(contentType),
		cfg:    c,
		env:    env,
	}
}

type interceptedBody struct {
	inner  pipeline.BodyStream
	format fault.Format
	cfg    *config
	env    pipeline.Environment
}

func (b *interceptedBody) Stream(sink pipeline.Sink) pipeline.CancelFunc {
	s := &interceptSink{body: b, outer: sink}
	s.setInnerCancel(s.run())
	return s.cancel
}

// interceptSink sits between the inner producer and the outer consumer.
type interceptSink struct {
	body  *interceptedBody
	outer pipeline.Sink

	terminal         atomic.Bool
	cancelled        atomic.Bool
	consumerPanicked atomic.Bool
	innerCancel      atomic.Pointer[pipeline.CancelFunc]

	// awaiting is set while a forwarded Write has not been acknowledged.
	// A diagnostic produced meanwhile waits in deferred until it is.
	awaiting atomic.Bool
	deferred atomic.Pointer[[]byte]
}

// run starts the inner producer. A panic raised by the producer itself is
// handled as a mid-stream fault; a panic raised by the consumer while the
// producer was writing propagates.
func (s *interceptSink) run() (cancel pipeline.CancelFunc) {
	inner := s.body.inner
	if inner == nil {
		inner = pipeline.EmptyBody()
	}

	defer func() {
		v := recover()
		if v == nil {
			return
		}
		if s.consumerPanicked.Load() {
			panic(v)
		}
		s.fault(fault.FromPanic(v, fault.Callers(2)))
	}()

	return inner.Stream(s)
}

func (s *interceptSink) Write(chunk []byte, resume func()) bool {
	if s.terminal.Load() {
		s.body.cfg.dropped(s.body.env, "write")
		return false
	}

	s.awaiting.Store(true)
	var pending bool
	s.toConsumer(func() {
		pending = s.outer.Write(chunk, func() {
			if s.release() {
				return
			}
			resume()
		})
	})
	if !pending {
		s.release()
	}
	return pending
}

func (s *interceptSink) Fail(err error) {
	s.fault(fault.FromError(err))
}

func (s *interceptSink) Complete() {
	if !s.terminal.CompareAndSwap(false, true) {
		s.body.cfg.dropped(s.body.env, "complete")
		return
	}
	s.toConsumer(s.outer.Complete)
}

func (s *interceptSink) fault(rec fault.Record) {
	if !s.terminal.CompareAndSwap(false, true) {
		s.body.cfg.dropped(s.body.env, "fail")
		return
	}

	cfg := s.body.cfg
	cfg.report(s.body.env, KindMidStream, rec)

	if s.cancelled.Load() {
		s.toConsumer(s.outer.Complete)
		return
	}

	payload := fault.Render(rec.Limit(cfg.maxFrames), s.body.format)
	s.deferred.Store(&payload)
	if !s.awaiting.Load() {
		s.flushDeferred()
	}
}

// release acknowledges the outstanding Write and emits a diagnostic that was
// waiting for it. It reports whether one was emitted.
func (s *interceptSink) release() bool {
	s.awaiting.Store(false)
	return s.flushDeferred()
}

// flushDeferred writes the pending diagnostic, if any, and completes the
// stream. Only one caller can take it.
func (s *interceptSink) flushDeferred() bool {
	p := s.deferred.Swap(nil)
	if p == nil {
		return false
	}
	s.toConsumer(func() {
		if !s.outer.Write(*p, s.outer.Complete) {
			s.outer.Complete()
		}
	})
	return true
}

// toConsumer calls into the outer sink and remembers whether it panicked, so
// run does not mistake a consumer failure for a producer fault.
func (s *interceptSink) toConsumer(call func()) {
	ok := false
	defer func() {
		if !ok {
			s.consumerPanicked.Store(true)
		}
	}()
	call()
	ok = true
}

func (s *interceptSink) cancel() {
	s.cancelled.Store(true)
	if c := s.innerCancel.Load(); c != nil && *c != nil {
		(*c)()
	}
}

// setInnerCancel publishes the producer's cancel. A cancel that raced ahead
// of it is replayed.
func (s *interceptSink) setInnerCancel(c pipeline.CancelFunc) {
	s.innerCancel.Store(&c)
	if s.cancelled.Load() && c != nil {
		c()
	}
}
