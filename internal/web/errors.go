package web

// errors.go provides unified error response handling for the web layer.
//
// Every handler failure goes through respondError, which:
//  1. picks the HTTP status from the error kind
//  2. maps the error to a user-facing message via core.MapError
//  3. logs the technical error with the request ID
//  4. writes an ErrorResponse body

import (
	"context"
	"errors"
	"net/http"

	"github.com/JonMunkholm/records/internal/core"
	"github.com/JonMunkholm/records/internal/logging"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`

	// Rejected lists skipped rows when an upload had no valid record.
	Rejected []core.RowError `json:"rejected,omitempty"`
}

// statusFor returns the HTTP status for err.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrDecode),
		errors.Is(err, core.ErrEmptyBatch),
		errors.Is(err, core.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrTooManyUploads):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrStorage):
		return http.StatusInternalServerError
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes a user-friendly JSON error.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	respondErrorWith(w, r, err, ErrorResponse{})
}

// respondErrorWith is respondError with extra body fields preset in body.
func respondErrorWith(w http.ResponseWriter, r *http.Request, err error, body ErrorResponse) {
	status := statusFor(err)
	userMsg := core.MapError(err)

	logger := logging.FromContext(r.Context()).With(
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
	)
	if status >= http.StatusInternalServerError {
		logger.Error("request error")
	} else {
		logger.Warn("request error")
	}

	body.Error = userMsg.Message
	body.Message = userMsg.Message
	body.Action = userMsg.Action
	body.Code = userMsg.Code

	// Client errors carry the specific reason, e.g. which field is invalid.
	var coreErr *core.Error
	if status < http.StatusInternalServerError && errors.As(err, &coreErr) {
		body.Message = coreErr.Message()
	}

	writeJSON(w, status, body)
}
