// Package dto provides RFC 9457 Problem Details responses for the inbound
// HTTP adapter. They are written only when a failure reaches the host before
// any response was committed, i.e. when no exception page was produced.
package dto

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/cockroachdb/errors"
)

// ProblemContentType is the media type of every ErrorResponse.
const ProblemContentType = "application/problem+json"

// ErrorResponse represents an RFC 9457 Problem Details response.
type ErrorResponse struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Detail    string `json:"detail,omitempty"`
	Instance  string `json:"instance,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// StatusCoder is implemented by errors that carry their own HTTP status.
type StatusCoder interface {
	HTTPStatus() int
}

// NewErrorResponse creates an RFC 9457 ErrorResponse from err. The status
// comes from the first StatusCoder in the chain and defaults to 500. Details
// of 5xx errors are not exposed.
func NewErrorResponse(r *http.Request, err error) ErrorResponse {
	status := StatusOf(err)

	resp := ErrorResponse{
		Type:     "about:blank",
		Title:    http.StatusText(status),
		Status:   status,
		Instance: r.RequestURI,
	}
	if status < http.StatusInternalServerError && err != nil {
		resp.Detail = err.Error()
	}
	return resp
}

// StatusOf maps err to an HTTP status code.
func StatusOf(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		if code := sc.HTTPStatus(); code >= http.StatusBadRequest && code <= 599 {
			return code
		}
	}
	return http.StatusInternalServerError
}

// WriteErrorResponse writes an RFC 9457 error response for err. requestID is
// echoed in the body when not empty.
func WriteErrorResponse(w http.ResponseWriter, r *http.Request, requestID string, err error) {
	resp := NewErrorResponse(r, err)
	resp.RequestID = requestID

	w.Header().Set("Content-Type", ProblemContentType)
	w.WriteHeader(resp.Status)

	if encErr := json.NewEncoder(w).Encode(resp); encErr != nil {
		slog.ErrorContext(r.Context(), "failed to encode error response",
			slog.Any("error", encErr),
		)
	}
}
