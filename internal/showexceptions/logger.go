package showexceptions

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"github.com/jsamuelsen11/showexceptions/internal/fault"
)

// Event describes one observed fault or dropped callback.
type Event struct {
	Kind      Kind
	RequestID string
	Method    string
	Path      string
	Record    fault.Record

	// Callback names the late callback for KindDropped events.
	Callback string
}

// Logger is informed about every fault the middleware handles and every
// callback it ignores.
type Logger interface {
	LogFault(ctx context.Context, ev Event)
	LogDropped(ctx context.Context, ev Event)
}

type slogLogger struct{ *slog.Logger }

// NewSlogLogger returns a Logger writing to l. A nil l uses slog.Default.
func NewSlogLogger(l *slog.Logger) Logger {
	if l == nil {
		l = slog.Default()
	}
	return slogLogger{l}
}

func (l slogLogger) LogFault(ctx context.Context, ev Event) {
	l.ErrorContext(ctx, "request fault intercepted",
		slog.String("kind", string(ev.Kind)),
		slog.String("request_id", ev.RequestID),
		slog.String("method", ev.Method),
		slog.String("path", ev.Path),
		slog.String("exception_type", ev.Record.TypeName()),
		slog.String("error", ev.Record.Message()),
		slog.Int("frames", len(ev.Record.Frames())),
	)
}

func (l slogLogger) LogDropped(ctx context.Context, ev Event) {
	l.WarnContext(ctx, "late callback dropped",
		slog.String("callback", ev.Callback),
		slog.String("request_id", ev.RequestID),
		slog.String("method", ev.Method),
		slog.String("path", ev.Path),
	)
}

type zapLogger struct{ *zap.Logger }

// NewZapLogger returns a Logger writing to a child of l named
// "showexceptions".
func NewZapLogger(l *zap.Logger) Logger {
	return zapLogger{l.Named("showexceptions")}
}

func (l zapLogger) LogFault(_ context.Context, ev Event) {
	l.Error("request fault intercepted",
		zap.String("kind", string(ev.Kind)),
		zap.String("request_id", ev.RequestID),
		zap.String("method", ev.Method),
		zap.String("path", ev.Path),
		zap.String("exception_type", ev.Record.TypeName()),
		zap.String("error", ev.Record.Message()),
		zap.Int("frames", len(ev.Record.Frames())),
	)
}

func (l zapLogger) LogDropped(_ context.Context, ev Event) {
	l.Warn("late callback dropped",
		zap.String("callback", ev.Callback),
		zap.String("request_id", ev.RequestID),
		zap.String("method", ev.Method),
		zap.String("path", ev.Path),
	)
}

type nopLogger struct{}

func (nopLogger) LogFault(context.Context, Event)   {}
func (nopLogger) LogDropped(context.Context, Event) {}

// TestLogger counts events and forwards them to the test log.
type TestLogger struct {
	tb testing.TB

	NumFaults  int64
	NumDropped int64

	mu     sync.Mutex
	events []Event
}

// NewTestLogger returns a TestLogger bound to tb.
func NewTestLogger(tb testing.TB) *TestLogger {
	return &TestLogger{tb: tb}
}

func (l *TestLogger) LogFault(_ context.Context, ev Event) {
	atomic.AddInt64(&l.NumFaults, 1)
	l.record(ev)
	l.tb.Logf("showexceptions: %s fault: %s", ev.Kind, ev.Record.Error())
}

func (l *TestLogger) LogDropped(_ context.Context, ev Event) {
	atomic.AddInt64(&l.NumDropped, 1)
	l.record(ev)
	l.tb.Logf("showexceptions: dropped late %s", ev.Callback)
}

func (l *TestLogger) record(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

// Events returns a copy of everything logged so far.
func (l *TestLogger) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

var _ Logger = &TestLogger{}
