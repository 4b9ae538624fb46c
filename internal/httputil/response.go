package httputil

import (
	"encoding/json"
	"log"
	"net/http"
)

// ErrorResponse is the failure shape shared by every endpoint: a short error
// category plus a human-readable message.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// RespondJSON sends a JSON response with the given status code.
// Logs encoding errors to avoid silent failures.
func RespondJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}

// RespondError sends a JSON error response with the given category, message
// and status code.
func RespondError(w http.ResponseWriter, errorKind, message string, statusCode int) {
	RespondJSON(w, ErrorResponse{Error: errorKind, Message: message}, statusCode)
}
