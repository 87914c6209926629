// Package fault captures errors as immutable records and renders them as
// human-readable diagnostics.
//
// A Record holds the error's type name, its message and the stack frames
// that led to it. Frames come from one of three sources, in order of
// preference: textual trace lines exposed through Tracer, a stack attached by
// github.com/cockroachdb/errors or github.com/pkg/errors, or frames captured
// with runtime.Callers at the point the fault was observed.
package fault

import (
	"iter"
	"runtime"
	"strconv"
	"strings"
)

const (
	framePrefix  = "  at "
	fileMarker   = " in "
	lineMarker   = ":line "
	maxCaptured  = 64
	lineBreakSet = "\r\n"
)

// StackFrame is one call site of a stack trace. File is empty and Line is
// zero when unknown.
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// String renders the frame as "<Function> in <File>:line <Line>", or just
// the function when the file is unknown.
func (f StackFrame) String() string {
	if f.File == "" {
		return f.Function
	}
	return f.Function + fileMarker + f.File + lineMarker + strconv.Itoa(f.Line)
}

// ParseFrame parses a single trace line of the form
//
//	  at <function> in <file>:line <n>
//
// Lines without the file and line suffix yield a frame holding only the
// function. ParseFrame never fails.
func ParseFrame(line string) StackFrame {
	line = strings.TrimPrefix(line, framePrefix)
	line = strings.TrimRight(line, lineBreakSet)

	in := strings.Index(line, fileMarker)
	if in < 0 {
		return StackFrame{Function: line}
	}

	rest := line[in+len(fileMarker):]
	at := strings.LastIndex(rest, lineMarker)
	if at < 0 {
		return StackFrame{Function: line}
	}

	n, err := strconv.Atoi(rest[at+len(lineMarker):])
	if err != nil {
		return StackFrame{Function: line}
	}

	return StackFrame{
		Function: line[:in],
		File:     rest[:at],
		Line:     n,
	}
}

// Frames lazily parses each line into a StackFrame, preserving order.
func Frames(lines iter.Seq[string]) iter.Seq[StackFrame] {
	return func(yield func(StackFrame) bool) {
		for line := range lines {
			if !yield(ParseFrame(line)) {
				return
			}
		}
	}
}

// Callers captures the calling goroutine's stack, most recent call first.
// skip=0 starts at the caller of Callers.
func Callers(skip int) []StackFrame {
	pc := make([]uintptr, maxCaptured)
	n := runtime.Callers(skip+2, pc)
	if n == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pc[:n])
	out := make([]StackFrame, 0, n)
	for {
		fr, more := frames.Next()
		out = append(out, StackFrame{
			Function: fr.Function,
			File:     fr.File,
			Line:     fr.Line,
		})
		if !more {
			break
		}
	}
	return out
}
