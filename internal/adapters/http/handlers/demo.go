package handlers

import (
	"net/http"

	"github.com/cockroachdb/errors"

	"github.com/jsamuelsen11/showexceptions/internal/pipeline"
)

// Messages raised by the fault demo applications.
const (
	MsgKaboom            = "Kaboom"
	MsgFailedSendingBody = "failed sending body"
	MsgSoFarSoGood       = "<p>so far so good</p>"
)

// ApplicationError is the error raised by the fault demo applications.
type ApplicationError struct {
	Message string
}

func (e *ApplicationError) Error() string { return e.Message }

func newApplicationError(msg string) error {
	return errors.WithStack(&ApplicationError{Message: msg})
}

func ok(contentType string, body pipeline.BodyStream) pipeline.Response {
	return pipeline.Response{
		Status:  pipeline.StatusLine(http.StatusOK),
		Headers: pipeline.Headers{pipeline.ContentType: contentType},
		Body:    body,
	}
}

// Hello answers every request with a short plain-text greeting.
func Hello() pipeline.Handler {
	return pipeline.HandlerFunc(func(_ pipeline.Environment, r pipeline.Responder) {
		r.Respond(ok("text/plain", pipeline.StringBody("Hello from the pipeline\n")))
	})
}

// Fault reports an ApplicationError before responding.
func Fault() pipeline.Handler {
	return pipeline.HandlerFunc(func(_ pipeline.Environment, r pipeline.Responder) {
		r.Fail(newApplicationError(MsgKaboom))
	})
}

// Panic panics with an ApplicationError before responding.
func Panic() pipeline.Handler {
	return pipeline.HandlerFunc(func(pipeline.Environment, pipeline.Responder) {
		panic(&ApplicationError{Message: MsgKaboom})
	})
}

// StreamFault responds with an HTML body that writes one paragraph and then
// fails.
func StreamFault() pipeline.Handler {
	return pipeline.HandlerFunc(func(_ pipeline.Environment, r pipeline.Responder) {
		body := pipeline.BodyStreamFunc(func(sink pipeline.Sink) pipeline.CancelFunc {
			fail := func() { sink.Fail(newApplicationError(MsgFailedSendingBody)) }
			if !sink.Write([]byte(MsgSoFarSoGood), fail) {
				fail()
			}
			return func() {}
		})
		r.Respond(ok("text/html", body))
	})
}

// LatePanic responds and then panics. The response is already committed, so
// the host aborts it.
func LatePanic() pipeline.Handler {
	return pipeline.HandlerFunc(func(_ pipeline.Environment, r pipeline.Responder) {
		r.Respond(ok("text/plain", pipeline.StringBody("partial")))
		panic(&ApplicationError{Message: MsgKaboom})
	})
}

// Stall returns without answering, leaving the request to a response
// timeout.
func Stall() pipeline.Handler {
	return pipeline.HandlerFunc(func(pipeline.Environment, pipeline.Responder) {})
}
