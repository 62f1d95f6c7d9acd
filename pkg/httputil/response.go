// Package httputil provides shared helpers for the JSON response and
// error document shapes used by the management API and the protocol
// adapters.
package httputil

import (
	"encoding/json"
	"net/http"
)

// APIError is a single entry in an error document.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorDocument is the envelope every error response uses: a list of
// errors under a top-level "errors" key.
type ErrorDocument struct {
	Errors []APIError `json:"errors"`
}

// WriteJSON writes a JSON response with the given status code.
// It sets the Content-Type header to application/json.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// WriteError writes an error document carrying a single entry.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, ErrorDocument{
		Errors: []APIError{{Code: code, Message: message}},
	})
}
