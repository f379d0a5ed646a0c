package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/chimera-core/internal/device"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeNotFound       = "not_found"
	ErrCodeUnauthorized   = "unauthorised"
	ErrCodeInternal       = "internal_error"
	ErrCodeValidation     = "validation_error"
	ErrCodeUnavailable    = "service_unavailable"
	ErrCodeMethodNotAllow = "method_not_allowed"
)

// Client-facing messages for device errors.
const (
	msgDeviceNotFound  = "Device not found"
	msgUnknownGroup    = "Unknown group id"
	msgUnknownAction   = "Unknown action"
	msgInvalidCategory = "Unknown or missing blocklist category"
	msgInvalidPatch    = "Invalid patch body"
	msgInvalidJSON     = "invalid JSON body"
	msgInvalidID       = "device id must be an integer"
	msgInternal        = "internal server error"
)

// writeJSON writes a JSON response with the given status code and payload.
// Non-ASCII and HTML characters are written as-is.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		//nolint:errcheck // Best-effort write to response; connection may be closed
		enc.Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="chimera"`)
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeValidationError writes a 400 error response for rejected input.
func writeValidationError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeValidation, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeDeviceError maps a device.Service error onto an HTTP response.
// Anything that is not a known client error is logged and reported as 500
// without exposing the underlying message.
func (s *Server) writeDeviceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, device.ErrDeviceNotFound):
		writeNotFound(w, msgDeviceNotFound)
	case errors.Is(err, device.ErrUnknownGroup):
		writeValidationError(w, msgUnknownGroup)
	case errors.Is(err, device.ErrUnknownAction):
		writeValidationError(w, msgUnknownAction)
	case errors.Is(err, device.ErrInvalidCategory):
		writeValidationError(w, msgInvalidCategory)
	case errors.Is(err, device.ErrInvalidPatch):
		writeValidationError(w, msgInvalidPatch)
	default:
		s.logger.Error("device operation failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", requestIDFrom(r.Context()),
			"error", err,
		)
		writeInternalError(w, msgInternal)
	}
}
