package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/samber/lo"

	"github.com/jsamuelsen11/showexceptions/internal/adapters/http/dto"
	"github.com/jsamuelsen11/showexceptions/internal/fault"
)

// errInternalServer is the generic error returned to clients when a panic is
// recovered. The panic value and frames are logged but never exposed.
var errInternalServer = errors.New("internal server error")

// Recovery returns middleware that recovers from panics that escape the
// pipeline host. The panic is logged with its captured frames and an RFC 9457
// 500 response is written if nothing was committed yet.
//
// http.ErrAbortHandler is re-panicked untouched: the host uses it to abort a
// response whose body failed after the status line was sent.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := newResponseWriter(w)

			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if err, ok := v.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(v)
				}

				rec := fault.FromPanic(v, fault.Callers(2))
				logger.ErrorContext(r.Context(), "panic recovered",
					slog.String("exception_type", rec.TypeName()),
					slog.String("panic", rec.Message()),
					slog.Any("frames", lo.Map(rec.Frames(), func(fr fault.StackFrame, _ int) string {
						return fr.String()
					})),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				)

				if !rw.headerWritten {
					dto.WriteErrorResponse(rw, r, RequestIDFromContext(r.Context()), errInternalServer)
				}
			}()

			next.ServeHTTP(rw, r)
		})
	}
}
