package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	app_errors "jude-e/backend/internal/errors"
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse is a minimal success body.
type StatusResponse struct {
	Status string `json:"status"`
}

// GetContextRequest is the body of the placeholder POST /get_context route.
type GetContextRequest struct {
	Date string `json:"date" example:"2025-09-17"`
	Time string `json:"time" example:"09:16"`
}

// respondWithError maps domain errors onto HTTP status codes. A timeout on
// either upstream wins over the upstream's own error kind.
func respondWithError(w http.ResponseWriter, err error) {
	var statusCode int
	var message string

	switch {
	case errors.Is(err, app_errors.ErrValidation):
		statusCode = http.StatusBadRequest
		// Validation messages are already written for the client.
		message = err.Error()
	case errors.Is(err, app_errors.ErrNotFound):
		statusCode = http.StatusNotFound
		message = "The requested resource was not found."
	case errors.Is(err, context.DeadlineExceeded):
		statusCode = http.StatusGatewayTimeout
		message = "An upstream service did not respond in time."
	case errors.Is(err, app_errors.ErrContextUnavailable):
		statusCode = http.StatusServiceUnavailable
		message = "The context service is unavailable."
	case errors.Is(err, app_errors.ErrGenerationFailed):
		statusCode = http.StatusBadGateway
		message = "The generation backend failed to produce a response."
	default:
		// Anything else is internal; details stay in the log.
		statusCode = http.StatusInternalServerError
		message = "An unexpected internal server error occurred."
	}

	slog.Warn("Responding with error", "status_code", statusCode, "client_message", message, "internal_error", err)

	respondWithJSON(w, statusCode, ErrorResponse{Error: message})
}

// respondWithJSON marshals payload and writes it with the given status code.
func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to marshal JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}
