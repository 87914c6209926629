package pipeline

import (
	"context"
	"io"
	"maps"
	"net/http"
	"strings"
)

// Well-known Environment keys.
const (
	KeyVersion     = "pipeline.Version"
	KeyContext     = "pipeline.Context"
	KeyRequestID   = "pipeline.RequestID"
	KeyMethod      = "request.Method"
	KeyScheme      = "request.Scheme"
	KeyPathBase    = "request.PathBase"
	KeyPath        = "request.Path"
	KeyQueryString = "request.QueryString"
	KeyProtocol    = "request.Protocol"
	KeyHeaders     = "request.Headers"
	KeyBody        = "request.Body"
)

// Version is the contract version advertised under KeyVersion.
const Version = "1.0"

// Environment carries per-request metadata. Only the outermost caller writes
// to it, before dispatch.
type Environment map[string]any

// NewEnvironment returns an Environment for a GET of path with the version
// key set and an empty header map.
func NewEnvironment(path string) Environment {
	return Environment{
		KeyVersion:     Version,
		KeyContext:     context.Background(),
		KeyMethod:      http.MethodGet,
		KeyScheme:      "http",
		KeyPathBase:    "",
		KeyPath:        path,
		KeyQueryString: "",
		KeyProtocol:    "HTTP/1.1",
		KeyHeaders:     Headers{},
	}
}

// FromRequest builds an Environment from an inbound HTTP request. Multi-value
// request headers are joined with a comma.
func FromRequest(r *http.Request, requestID string) Environment {
	headers := make(Headers, len(r.Header))
	for name, vals := range r.Header {
		headers[name] = strings.Join(vals, ",")
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	return Environment{
		KeyVersion:     Version,
		KeyContext:     r.Context(),
		KeyRequestID:   requestID,
		KeyMethod:      r.Method,
		KeyScheme:      scheme,
		KeyPathBase:    "",
		KeyPath:        r.URL.Path,
		KeyQueryString: r.URL.RawQuery,
		KeyProtocol:    r.Proto,
		KeyHeaders:     headers,
		KeyBody:        r.Body,
	}
}

// Context returns the request context, or context.Background when absent.
func (e Environment) Context() context.Context {
	if ctx, ok := e[KeyContext].(context.Context); ok && ctx != nil {
		return ctx
	}
	return context.Background()
}

// Method returns the request method.
func (e Environment) Method() string { return e.str(KeyMethod) }

// Path returns the request path.
func (e Environment) Path() string { return e.str(KeyPath) }

// PathBase returns the part of the path consumed by an outer router.
func (e Environment) PathBase() string { return e.str(KeyPathBase) }

// QueryString returns the raw query string without the leading '?'.
func (e Environment) QueryString() string { return e.str(KeyQueryString) }

// Protocol returns the request protocol, e.g. "HTTP/1.1".
func (e Environment) Protocol() string { return e.str(KeyProtocol) }

// Scheme returns "http" or "https".
func (e Environment) Scheme() string { return e.str(KeyScheme) }

// RequestID returns the request id assigned by the host, if any.
func (e Environment) RequestID() string { return e.str(KeyRequestID) }

// Headers returns the request headers. The map must not be modified.
func (e Environment) Headers() Headers {
	if h, ok := e[KeyHeaders].(Headers); ok {
		return h
	}
	return Headers{}
}

// Body returns the request body, or nil when the request has none.
func (e Environment) Body() io.Reader {
	if b, ok := e[KeyBody].(io.Reader); ok {
		return b
	}
	return nil
}

func (e Environment) str(key string) string {
	s, _ := e[key].(string)
	return s
}

// Headers maps header names to values. Names are compared case-sensitively.
type Headers map[string]string

// Get returns the value stored under the exact name, or "".
func (h Headers) Get(name string) string {
	return h[name]
}

// Clone returns a shallow copy. Cloning a nil map yields an empty map.
func (h Headers) Clone() Headers {
	out := make(Headers, len(h))
	maps.Copy(out, h)
	return out
}
