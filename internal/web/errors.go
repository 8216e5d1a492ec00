package web

// errors.go provides unified error responses for the API.
//
// Every error is:
//   - Logged with full technical details and the request id (server-side)
//   - Classified by core.StatusCode into 400/401/404/500
//   - Returned as JSON {error, message, action, code}, where message echoes
//     the error text and action/code come from the error catalog

import (
	"encoding/json"
	"net/http"

	"github.com/JonMunkholm/invsync/internal/core"
	"github.com/JonMunkholm/invsync/internal/logging"
)

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code,omitempty"`
}

// respondError classifies err, logs it and writes the JSON error body.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := core.StatusCode(err)
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
		logger.Warn("request rejected", logArgs...)
	}

	writeJSON(w, status, ErrorResponse{
		Error:   errorLabel(status),
		Message: err.Error(),
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	})
}

// writeError writes an error that did not come from a service call, such
// as a malformed body or a rate-limit rejection.
func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	logging.FromContext(r.Context()).Warn("request rejected",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"reason", message,
	)
	writeJSON(w, status, ErrorResponse{
		Error:   errorLabel(status),
		Message: message,
	})
}

// writeJSON encodes v with status. Encoding errors are logged only since
// the header is already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Component("web").Error("json encode error", "error", err)
	}
}

func errorLabel(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "validation_error"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusRequestEntityTooLarge:
		return "payload_too_large"
	case http.StatusTooManyRequests:
		return "rate_limited"
	default:
		return "internal_error"
	}
}
