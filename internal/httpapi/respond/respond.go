// Package respond renders the engine's (success, message) envelope and
// maps error codes onto HTTP statuses.
package respond

import (
	"encoding/json"
	"net/http"

	"bloodlink/pkg/apperrors"
)

// Envelope is the uniform response body for engine operations.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// OK writes a success envelope carrying data.
func OK(w http.ResponseWriter, status int, data any) {
	JSON(w, status, Envelope{Success: true, Data: data})
}

// Message writes a success envelope carrying only a message.
func Message(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, Envelope{Success: true, Message: msg})
}

// Err writes a failure envelope. The message comes from the coded error;
// internal causes never leak.
func Err(w http.ResponseWriter, err error) {
	JSON(w, statusOf(err), Envelope{Success: false, Message: apperrors.MessageOf(err)})
}

func statusOf(err error) int {
	switch apperrors.CodeOf(err) {
	case apperrors.CodeValidation:
		return http.StatusBadRequest
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.CodeEligibility:
		return http.StatusUnprocessableEntity
	case apperrors.CodeConsistency, apperrors.CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
