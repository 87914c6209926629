package pipeline

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/cockroachdb/errors"
)

// ContentType is the canonical header name for the media type.
const ContentType = "Content-Type"

// StatusLine renders code as "<code> <reason>", e.g. "500 Internal Server Error".
// Codes without a registered reason get "Unknown".
func StatusLine(code int) string {
	reason := http.StatusText(code)
	if reason == "" {
		reason = "Unknown"
	}
	return fmt.Sprintf("%03d %s", code, reason)
}

// ParseStatus extracts the numeric code from a status line.
func ParseStatus(status string) (int, error) {
	raw, _, _ := strings.Cut(strings.TrimSpace(status), " ")
	if len(raw) != 3 {
		return 0, errors.Newf("status %q does not start with a 3-digit code", status)
	}
	code, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Wrapf(err, "parsing status %q", status)
	}
	return code, nil
}

// BytesBody returns a BodyStream that writes each chunk in order and then
// completes. Back-pressure from the sink is honored: after a Write that
// returns true, the next chunk is only written from resume.
func BytesBody(chunks ...[]byte) BodyStream {
	return BodyStreamFunc(func(sink Sink) CancelFunc {
		var cancelled atomic.Bool
		var next func(i int)
		next = func(i int) {
			for ; i < len(chunks); i++ {
				if cancelled.Load() {
					return
				}
				resumeAt := i + 1
				if sink.Write(chunks[i], func() { next(resumeAt) }) {
					return
				}
			}
			if !cancelled.Load() {
				sink.Complete()
			}
		}
		next(0)
		return func() { cancelled.Store(true) }
	})
}

// StringBody is BytesBody for a single string.
func StringBody(s string) BodyStream {
	return BytesBody([]byte(s))
}

// EmptyBody completes immediately.
func EmptyBody() BodyStream {
	return BytesBody()
}
