// Package pipeline defines the request-processing contract shared by
// applications, middleware and hosts.
//
// A Handler receives the request Environment and a Responder. It answers
// exactly once, either with Respond (status line, headers and a streamed
// body) or with Fail. The body is a push stream: the host passes a Sink to
// BodyStream.Stream and receives write, fail and complete events.
//
//	h := pipeline.HandlerFunc(func(env pipeline.Environment, r pipeline.Responder) {
//	    r.Respond(pipeline.Response{
//	        Status:  pipeline.StatusLine(http.StatusOK),
//	        Headers: pipeline.Headers{"Content-Type": "text/plain"},
//	        Body:    pipeline.StringBody("hello"),
//	    })
//	})
//
// Handler and Middleware have the same shape on both sides of a wrapper, so
// any number of middleware compose with Chain.
package pipeline

// CancelFunc stops a running body stream. It may be called more than once.
type CancelFunc func()

// Sink consumes the events of a body stream.
type Sink interface {
	// Write delivers a chunk. It returns true when the sink cannot accept
	// more data yet; the producer must then wait until resume is called.
	// When it returns false, resume is never called.
	Write(chunk []byte, resume func()) bool

	// Fail terminates the stream with an error.
	Fail(err error)

	// Complete terminates the stream normally.
	Complete()
}

// BodyStream produces a response body into a Sink.
type BodyStream interface {
	Stream(sink Sink) CancelFunc
}

// BodyStreamFunc allows a function to be used as a BodyStream.
type BodyStreamFunc func(sink Sink) CancelFunc

// Stream implements BodyStream.
func (f BodyStreamFunc) Stream(sink Sink) CancelFunc {
	return f(sink)
}

// Response describes a committed response.
type Response struct {
	Status  string
	Headers Headers
	Body    BodyStream
}

// Responder receives the outcome of a Handler.
type Responder interface {
	// Respond commits the status line and headers and hands over the body.
	Respond(resp Response)

	// Fail reports that the handler could not produce a response.
	Fail(err error)
}

// Handler processes one request.
type Handler interface {
	Serve(env Environment, r Responder)
}

// HandlerFunc allows a function to be used as a Handler.
type HandlerFunc func(env Environment, r Responder)

// Serve implements Handler.
func (f HandlerFunc) Serve(env Environment, r Responder) {
	f(env, r)
}

// Middleware wraps a Handler.
type Middleware func(Handler) Handler

// Chain wraps h with the given middleware. The first middleware is the
// outermost one:
//
//	Chain(h, a, b) == a(b(h))
func Chain(h Handler, m ...Middleware) Handler {
	for i := len(m) - 1; i >= 0; i-- {
		h = m[i](h)
	}
	return h
}

// SinkFuncs adapts three functions to a Sink. Nil functions are no-ops and a
// nil OnWrite consumes chunks synchronously.
type SinkFuncs struct {
	OnWrite    func(chunk []byte, resume func()) bool
	OnFail     func(err error)
	OnComplete func()
}

// Write implements Sink.
func (s SinkFuncs) Write(chunk []byte, resume func()) bool {
	if s.OnWrite == nil {
		return false
	}
	return s.OnWrite(chunk, resume)
}

// Fail implements Sink.
func (s SinkFuncs) Fail(err error) {
	if s.OnFail != nil {
		s.OnFail(err)
	}
}

// Complete implements Sink.
func (s SinkFuncs) Complete() {
	if s.OnComplete != nil {
		s.OnComplete()
	}
}

// ResponderFuncs adapts two functions to a Responder.
type ResponderFuncs struct {
	OnRespond func(resp Response)
	OnFail    func(err error)
}

// Respond implements Responder.
func (r ResponderFuncs) Respond(resp Response) {
	if r.OnRespond != nil {
		r.OnRespond(resp)
	}
}

// Fail implements Responder.
func (r ResponderFuncs) Fail(err error) {
	if r.OnFail != nil {
		r.OnFail(err)
	}
}
