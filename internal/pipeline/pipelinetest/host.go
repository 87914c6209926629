// Package pipelinetest provides a fake host, consumer and application for
// exercising pipeline handlers and middleware without a network.
package pipelinetest

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jsamuelsen11/showexceptions/internal/pipeline"
)

const defaultTimeout = 2 * time.Second

// Result is what the fake host observed for one call.
type Result struct {
	Status   string
	Headers  pipeline.Headers
	Body     []byte
	BodyText string // set only for text/* content types
	Err      error  // passed to the outer Fail

	BodyXML    *XMLNode // set only for text/xml and application/xml bodies
	BodyXMLErr error    // why an XML body could not be decoded

	Completed bool  // body stream completed normally
	BodyErr   error // body stream failed

	Responds     int
	Fails        int
	Terminations int
	Consumer     *Consumer
}

type callConfig struct {
	async   bool
	timeout time.Duration
	env     map[string]any
}

// Option configures Call.
type Option func(*callConfig)

// WithAsyncConsumer makes the consumer signal back-pressure on every write.
func WithAsyncConsumer() Option {
	return func(c *callConfig) { c.async = true }
}

// WithTimeout bounds how long Call waits for the outcome and the body.
func WithTimeout(d time.Duration) Option {
	return func(c *callConfig) { c.timeout = d }
}

// WithEnv sets an additional environment entry before dispatch.
func WithEnv(key string, value any) Option {
	return func(c *callConfig) { c.env[key] = value }
}

type recorder struct {
	mu       sync.Mutex
	res      Result
	consumer *Consumer
	decided  chan struct{}
	once     sync.Once
}

func (r *recorder) Respond(resp pipeline.Response) {
	r.mu.Lock()
	r.res.Responds++
	first := r.res.Responds == 1
	if first {
		r.res.Status = resp.Status
		r.res.Headers = resp.Headers
	}
	r.mu.Unlock()

	if first {
		r.once.Do(func() { close(r.decided) })
		r.consumer.Consume(resp.Body)
	}
}

func (r *recorder) Fail(err error) {
	r.mu.Lock()
	r.res.Fails++
	if r.res.Fails == 1 {
		r.res.Err = err
	}
	r.mu.Unlock()

	r.once.Do(func() { close(r.decided) })
}

// Call dispatches a GET of path to h and waits for the outcome. When the
// handler responds, Call also waits for the body to terminate or the timeout
// to expire, whichever comes first.
func Call(t testing.TB, h pipeline.Handler, path string, opts ...Option) Result {
	t.Helper()

	cfg := callConfig{timeout: defaultTimeout, env: map[string]any{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	env := pipeline.NewEnvironment(path)
	for k, v := range cfg.env {
		env[k] = v
	}

	rec := &recorder{
		consumer: NewConsumer(cfg.async),
		decided:  make(chan struct{}),
	}

	h.Serve(env, rec)

	select {
	case <-rec.decided:
	case <-time.After(cfg.timeout):
		t.Fatalf("handler for %q neither responded nor failed within %s", path, cfg.timeout)
	}

	rec.mu.Lock()
	responded := rec.res.Responds > 0
	rec.mu.Unlock()

	if responded {
		select {
		case <-rec.consumer.Done():
		case <-time.After(cfg.timeout):
		}
	}

	rec.mu.Lock()
	res := rec.res
	rec.mu.Unlock()

	c := rec.consumer
	res.Consumer = c
	res.Body = c.Data()
	res.Completed = c.Completed()
	res.BodyErr = c.Err()
	res.Terminations = c.Terminations()
	if strings.HasPrefix(res.Headers.Get(pipeline.ContentType), "text/") {
		res.BodyText = string(res.Body)
	}
	if isXML(res.Headers.Get(pipeline.ContentType)) {
		res.BodyXML, res.BodyXMLErr = decodeXML(res.Body)
	}
	return res
}
