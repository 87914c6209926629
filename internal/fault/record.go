package fault

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/cockroachdb/errors"
)

// panicTypeName is the type name used for panics whose value is not an error.
const panicTypeName = "panic"

// Tracer is implemented by errors that carry a textual stack trace, one
// frame per line, e.g. faults relayed from another process.
type Tracer interface {
	TraceLines() []string
}

// TypeNamer lets an error choose the type name shown in diagnostics.
type TypeNamer interface {
	TypeName() string
}

// Record is an immutable snapshot of a fault.
type Record struct {
	typeName string
	message  string
	frames   []StackFrame
}

// New builds a Record. The frames slice is copied.
func New(typeName, message string, frames []StackFrame) Record {
	return Record{
		typeName: typeName,
		message:  message,
		frames:   slices.Clone(frames),
	}
}

// FromError builds a Record from err. The type name is taken from a
// TypeNamer in the chain, or else from the dynamic type of the root cause.
// The message is the full err.Error() text.
func FromError(err error) Record {
	if err == nil {
		return Record{typeName: "error"}
	}
	return Record{
		typeName: typeNameOf(err),
		message:  err.Error(),
		frames:   framesOf(err),
	}
}

// FromPanic builds a Record from a recovered panic value. captured is used
// when the value does not carry frames of its own.
func FromPanic(v any, captured []StackFrame) Record {
	if err, ok := v.(error); ok {
		rec := FromError(err)
		if len(rec.frames) == 0 {
			rec.frames = slices.Clone(captured)
		}
		return rec
	}
	return Record{
		typeName: panicTypeName,
		message:  fmt.Sprint(v),
		frames:   slices.Clone(captured),
	}
}

// TypeName returns the exception type name.
func (r Record) TypeName() string { return r.typeName }

// Message returns the exception message.
func (r Record) Message() string { return r.message }

// Frames returns a copy of the frames, most recent call first.
func (r Record) Frames() []StackFrame { return slices.Clone(r.frames) }

// Limit returns a Record keeping at most n frames. n <= 0 keeps all.
func (r Record) Limit(n int) Record {
	if n <= 0 || len(r.frames) <= n {
		return r
	}
	return Record{
		typeName: r.typeName,
		message:  r.message,
		frames:   slices.Clone(r.frames[:n]),
	}
}

// Error makes a Record usable where an error is expected.
func (r Record) Error() string {
	if r.message == "" {
		return r.typeName
	}
	return r.typeName + ": " + r.message
}

func typeNameOf(err error) string {
	var namer TypeNamer
	if errors.As(err, &namer) {
		if name := namer.TypeName(); name != "" {
			return name
		}
	}

	t := reflect.TypeOf(errors.UnwrapAll(err))
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.String()
}

func framesOf(err error) []StackFrame {
	var tracer Tracer
	if errors.As(err, &tracer) {
		return slices.Collect(Frames(slices.Values(tracer.TraceLines())))
	}

	// The innermost attached stack is the one closest to the origin.
	var deepest *errors.ReportableStackTrace
	for e := err; e != nil; e = errors.UnwrapOnce(e) {
		if st := errors.GetReportableStackTrace(e); st != nil && len(st.Frames) > 0 {
			deepest = st
		}
	}
	if deepest == nil {
		return nil
	}

	// Reportable traces list the outermost call first.
	out := make([]StackFrame, 0, len(deepest.Frames))
	for i := len(deepest.Frames) - 1; i >= 0; i-- {
		fr := deepest.Frames[i]
		fn := fr.Function
		if fr.Module != "" {
			fn = fr.Module + "." + fn
		}
		file := fr.AbsPath
		if file == "" {
			file = fr.Filename
		}
		out = append(out, StackFrame{Function: fn, File: file, Line: fr.Lineno})
	}
	return out
}
