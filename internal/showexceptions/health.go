package showexceptions

import (
	"bytes"
	"context"
	"net/http"

	"github.com/cockroachdb/errors"

	"github.com/jsamuelsen11/showexceptions/internal/pipeline"
	"github.com/jsamuelsen11/showexceptions/internal/ports"
)

var _ ports.HealthChecker = (*Checker)(nil)

const probeMessage = "diagnostics readiness probe"

// Checker verifies that a pre-response fault still renders as a 500 page.
// Probes are neither logged nor counted.
type Checker struct {
	mw pipeline.Middleware
}

// NewChecker returns a Checker for a middleware built with opts.
func NewChecker(opts ...Option) *Checker {
	opts = append(opts[:len(opts):len(opts)], WithLogger(nil), WithFaultCounter(nil))
	return &Checker{mw: New(opts...)}
}

// Name implements ports.HealthChecker.
func (c *Checker) Name() string { return "showexceptions" }

// HealthCheck implements ports.HealthChecker.
func (c *Checker) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	failing := pipeline.HandlerFunc(func(_ pipeline.Environment, r pipeline.Responder) {
		r.Fail(errors.New(probeMessage))
	})

	var (
		status    string
		body      bytes.Buffer
		completed bool
		failure   error
	)
	c.mw(failing).Serve(pipeline.NewEnvironment("/"), pipeline.ResponderFuncs{
		OnRespond: func(resp pipeline.Response) {
			status = resp.Status
			resp.Body.Stream(pipeline.SinkFuncs{
				OnWrite:    func(chunk []byte, _ func()) bool { body.Write(chunk); return false },
				OnFail:     func(err error) { failure = err },
				OnComplete: func() { completed = true },
			})
		},
		OnFail: func(err error) { failure = err },
	})

	switch {
	case failure != nil:
		return errors.Wrap(failure, "probe failed")
	case status != pipeline.StatusLine(http.StatusInternalServerError):
		return errors.Newf("probe answered %q", status)
	case !completed:
		return errors.New("probe body did not complete")
	case !bytes.Contains(body.Bytes(), []byte(probeMessage)):
		return errors.New("probe body is missing the fault message")
	}
	return nil
}
