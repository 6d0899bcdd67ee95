package httpx

import (
	"encoding/json"
	"net/http"
)

// Client-facing error messages.
const (
	msgInvalidPayload     = "Invalid payload"
	msgEmailInUse         = "Email already in use"
	msgInvalidCredentials = "Invalid email or password"
	msgInternal           = "Internal server error"
	msgMovieNotFound      = "Movie not found"
)

// writeJSON writes JSON response with status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError sends an error message.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
