package pipelinetest

import (
	"net/http"

	"github.com/jsamuelsen11/showexceptions/internal/pipeline"
)

// App is a configurable fake application.
//
// Faults are applied in order: Panic and Err fire before a response is
// committed, PanicAfterRespond after it.
type App struct {
	Status  string
	Headers pipeline.Headers
	Text    string
	Body    pipeline.BodyStream

	Err               error
	Panic             any
	PanicAfterRespond any
}

// NewApp returns an App that answers status with a text/plain body.
func NewApp(status, text string) *App {
	return &App{
		Status:  status,
		Headers: pipeline.Headers{pipeline.ContentType: "text/plain"},
		Text:    text,
	}
}

// FailingApp returns an App that reports err before responding.
func FailingApp(err error) *App {
	return &App{Err: err}
}

// Serve implements pipeline.Handler.
func (a *App) Serve(_ pipeline.Environment, r pipeline.Responder) {
	if a.Panic != nil {
		panic(a.Panic)
	}
	if a.Err != nil {
		r.Fail(a.Err)
		return
	}

	status := a.Status
	if status == "" {
		status = pipeline.StatusLine(http.StatusOK)
	}
	body := a.Body
	if body == nil {
		body = pipeline.StringBody(a.Text)
	}

	r.Respond(pipeline.Response{
		Status:  status,
		Headers: a.Headers.Clone(),
		Body:    body,
	})

	if a.PanicAfterRespond != nil {
		panic(a.PanicAfterRespond)
	}
}

// FailingBody writes chunks, honoring back-pressure, and then fails with err
// instead of completing.
func FailingBody(err error, chunks ...string) pipeline.BodyStream {
	raw := make([][]byte, len(chunks))
	for i, c := range chunks {
		raw[i] = []byte(c)
	}

	return pipeline.BodyStreamFunc(func(sink pipeline.Sink) pipeline.CancelFunc {
		return pipeline.BytesBody(raw...).Stream(pipeline.SinkFuncs{
			OnWrite:    sink.Write,
			OnFail:     sink.Fail,
			OnComplete: func() { sink.Fail(err) },
		})
	})
}
