// Package logging provides structured logger construction and context propagation
// using the standard library slog package, with an optional zap logger for
// components configured with the zap backend.
//
// Logger construction:
//
//	logger := logging.New("info", "json", os.Stderr)
//	zl, err := logging.NewZap("info", "json")
//
// Context propagation (used by middleware to enrich with request metadata):
//
//	ctx = logging.WithLogger(ctx, logger)
//	logger = logging.FromContext(ctx)
//
// Fault logging convention:
//
//	logger.ErrorContext(ctx, "request fault intercepted",
//	    slog.String("kind", "pre_response"),
//	    slog.String("exception_type", rec.TypeName()),
//	    slog.String("error", rec.Message()),
//	)
//
// Header values are never logged raw: use RedactHeaders, which masks every
// name in SensitiveHeaders. The same set drives the masq ReplaceAttr layer
// and the request details on diagnostic pages.
package logging

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/samber/lo"
)

// Redacted replaces sensitive values in logs and diagnostic pages.
const Redacted = "[REDACTED]"

// contextKey is the unexported key type for storing loggers in context.
type contextKey struct{}

// New creates a configured *slog.Logger.
//
// The level parameter sets the minimum log level. Valid values are "debug",
// "info", "warn", and "error". Unrecognized values default to info.
//
// The format parameter selects the output handler. "text" uses
// slog.NewTextHandler; all other values (including "json") use
// slog.NewJSONHandler.
//
// When level is "debug", source code location is included in log output.
func New(level, format string, w io.Writer) *slog.Logger {
	lvl := parseLevel(level)

	opts := &slog.HandlerOptions{
		Level:       lvl,
		AddSource:   lvl == slog.LevelDebug,
		ReplaceAttr: newRedactAttr(),
	}

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler)
}

// WithLogger returns a new context with the given logger stored in it.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext extracts a *slog.Logger from the context.
// If no logger is stored, it returns slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(contextKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// RedactHeaders converts an http.Header map into slog attributes sorted by
// name. Sensitive headers are replaced with Redacted; multi-value headers are
// joined with a comma.
func RedactHeaders(headers http.Header) []slog.Attr {
	names := lo.Keys(headers)
	slices.Sort(names)

	attrs := make([]slog.Attr, 0, len(names))
	for _, name := range names {
		value := strings.Join(headers[name], ",")
		if IsSensitiveHeader(name) {
			value = Redacted
		}
		attrs = append(attrs, slog.String(name, value))
	}
	return attrs
}

// IsSensitiveHeader reports whether name (any case) is in SensitiveHeaders.
func IsSensitiveHeader(name string) bool {
	return SensitiveHeaders[strings.ToLower(name)]
}

// SensitiveHeaderNames returns the SensitiveHeaders set as a sorted slice.
func SensitiveHeaderNames() []string {
	names := lo.Keys(SensitiveHeaders)
	slices.Sort(names)
	return names
}

// parseLevel converts a level string to slog.Level.
// Unrecognized values default to slog.LevelInfo.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
