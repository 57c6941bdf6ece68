package web

// errors.go provides unified error response handling for the web layer.
//
// Every error leaves the API as the same JSON shape:
//
//	{"kind","error","message","detail","code","action"}
//
// The status is derived from the error kind, the message and action come
// from core.MapError, and the technical error is logged with the request id.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/gradereports/internal/core"
	"github.com/JonMunkholm/gradereports/internal/logging"
)

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Kind    string `json:"kind"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	Code    string `json:"code"`
	Action  string `json:"action,omitempty"`
}

// statusFor maps an error kind to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrTooManyRenders):
		return http.StatusTooManyRequests
	case errors.Is(err, core.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, core.ErrRepository):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the JSON error response.
// Must only be called before any body bytes were written.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	userMsg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	logArgs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", logArgs...)
	} else {
		logger.Warn("request error", logArgs...)
	}

	if status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", strconv.Itoa(30))
	}

	// Headers set for an artifact that never started must not leak.
	w.Header().Del("Content-Disposition")
	w.Header().Del("Trailer")
	w.Header().Del("X-Report-Omitted")

	writeJSONStatus(w, status, ErrorResponse{
		Kind:    core.KindName(err),
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Detail:  core.DetailOf(err),
		Code:    userMsg.Code,
		Action:  userMsg.Action,
	})
}

// writeJSON encodes v as a 200 JSON response.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

// writeJSONStatus encodes v with status. Encoding errors can only be
// logged since the header is already sent.
func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
