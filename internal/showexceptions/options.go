package showexceptions

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen11/showexceptions/internal/fault"
	"github.com/jsamuelsen11/showexceptions/internal/pipeline"
)

const (
	contentTypeHTML = "text/html"
	redacted        = "[REDACTED]"
)

// Option configures the middleware.
type Option func(*config)

// WithLogger sets the Logger. The default discards events.
func WithLogger(l Logger) Option {
	return func(c *config) {
		if l == nil {
			l = nopLogger{}
		}
		c.logger = l
	}
}

// WithFaultCounter counts every fault by kind on counter. A nil counter
// disables counting.
func WithFaultCounter(counter metric.Int64Counter) Option {
	return func(c *config) { c.faults = counter }
}

// WithRequestDetails adds the request method, path, query, id and headers to
// the 500 page. Headers named in redact (case-insensitive) are masked.
func WithRequestDetails(redact ...string) Option {
	return func(c *config) {
		c.showRequest = true
		for _, name := range redact {
			c.redact[strings.ToLower(name)] = struct{}{}
		}
	}
}

// WithMaxFrames caps the number of frames rendered. n <= 0 renders all.
func WithMaxFrames(n int) Option {
	return func(c *config) { c.maxFrames = n }
}

type config struct {
	logger      Logger
	faults      metric.Int64Counter
	showRequest bool
	redact      map[string]struct{}
	maxFrames   int
}

func newConfig(opts []Option) *config {
	c := &config{
		logger: nopLogger{},
		redact: map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *config) event(env pipeline.Environment, kind Kind, rec fault.Record) Event {
	return Event{
		Kind:      kind,
		RequestID: env.RequestID(),
		Method:    env.Method(),
		Path:      env.PathBase() + env.Path(),
		Record:    rec,
	}
}

// report logs, counts and traces a handled fault.
func (c *config) report(env pipeline.Environment, kind Kind, rec fault.Record) {
	ctx := env.Context()
	c.logger.LogFault(ctx, c.event(env, kind, rec))
	c.count(ctx, kind)

	span := trace.SpanFromContext(ctx)
	span.RecordError(rec, trace.WithAttributes(AttrFaultKind.String(string(kind))))
	span.SetStatus(codes.Error, rec.Message())
}

// dropped logs and counts a callback that arrived after the exchange was
// decided.
func (c *config) dropped(env pipeline.Environment, callback string) {
	ctx := env.Context()
	ev := c.event(env, KindDropped, fault.Record{})
	ev.Callback = callback
	c.logger.LogDropped(ctx, ev)
	c.count(ctx, KindDropped)
}

func (c *config) count(ctx context.Context, kind Kind) {
	if c.faults == nil {
		return
	}
	c.faults.Add(ctx, 1, metric.WithAttributes(AttrFaultKind.String(string(kind))))
}

// errorResponse builds the synthesized 500 response for rec.
func (c *config) errorResponse(env pipeline.Environment, rec fault.Record) pipeline.Response {
	doc := fault.Render(rec.Limit(c.maxFrames), fault.FormatHTMLDocument, c.details(env)...)
	return pipeline.Response{
		Status:  pipeline.StatusLine(http.StatusInternalServerError),
		Headers: pipeline.Headers{pipeline.ContentType: contentTypeHTML},
		Body:    pipeline.BytesBody(doc),
	}
}

func (c *config) details(env pipeline.Environment) []fault.Detail {
	if !c.showRequest {
		return nil
	}

	details := []fault.Detail{
		{Key: "Method", Value: env.Method()},
		{Key: "Path", Value: env.PathBase() + env.Path()},
		{Key: "Query", Value: env.QueryString()},
		{Key: "Request ID", Value: env.RequestID()},
	}

	headers := env.Headers()
	names := lo.Keys(headers)
	slices.Sort(names)
	for _, name := range names {
		value := headers[name]
		if _, ok := c.redact[strings.ToLower(name)]; ok {
			value = redacted
		}
		details = append(details, fault.Detail{Key: name, Value: value})
	}

	return lo.Filter(details, func(d fault.Detail, _ int) bool { return d.Value != "" })
}

// formatFor picks the inline rendering for a committed content type.
func formatFor(contentType string) fault.Format {
	if strings.HasPrefix(strings.ToLower(contentType), contentTypeHTML) {
		return fault.FormatHTMLFragment
	}
	return fault.FormatText
}
