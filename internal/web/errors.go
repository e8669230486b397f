package web

// errors.go turns handler errors into HTTP responses.
//
// Validation problems are caller-correctable and are returned verbatim as
// {"errors": [...]}. Everything else is logged with its technical detail and
// the request ID, and the client gets a status, a generic error text and the
// support code from core.MapError.

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/measurestats/internal/core"
	"github.com/JonMunkholm/measurestats/internal/logging"
)

// statusClientClosedRequest is the nginx convention for a request whose
// client went away before the response was written.
const statusClientClosedRequest = 499

// retryAfterSeconds is sent with 503 responses for a busy importer.
const retryAfterSeconds = 5

var errMissingFile = core.NewValidationError("file is missing or empty")

// ErrorResponse is the JSON body for non-validation errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// ValidationResponse is the JSON body for 400 responses.
type ValidationResponse struct {
	Errors []string `json:"errors"`
}

// respondError writes the response for err and logs it.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logging.WithFields(r.Context(), "path", r.URL.Path, "method", r.Method)

	if msgs, ok := core.AsValidation(err); ok {
		logger.Info("validation failed", "errors", len(msgs))
		writeJSONStatus(w, http.StatusBadRequest, ValidationResponse{Errors: msgs})
		return
	}

	status := statusFor(err)
	userMsg := core.MapError(err)

	if status >= http.StatusInternalServerError {
		logger.Error("request error", "status", status, "error", err, "code", userMsg.Code)
	} else {
		logger.Warn("request error", "status", status, "error", err, "code", userMsg.Code)
	}

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	}

	resp := ErrorResponse{Error: strings.ToLower(http.StatusText(status)), Code: userMsg.Code}
	if status == statusClientClosedRequest {
		resp.Error = "client closed request"
	}
	if status != http.StatusInternalServerError {
		resp.Message = userMsg.Message
		resp.Action = userMsg.Action
	}
	writeJSONStatus(w, status, resp)
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusServiceUnavailable
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
