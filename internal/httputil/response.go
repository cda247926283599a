package httputil

import (
	"encoding/json"
	"log"
	"net/http"
)

// WriteJSON encodes v as JSON to the response writer with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode JSON response: %v", err)
	}
}

// WriteJSONOK encodes v as JSON with a 200 status code.
func WriteJSONOK(w http.ResponseWriter, v interface{}) {
	WriteJSON(w, http.StatusOK, v)
}

// WriteJSONError writes a JSON error response with the given status code.
func WriteJSONError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, map[string]string{"error": message})
}

// MethodNotAllowed writes a 405 JSON error response.
func MethodNotAllowed(w http.ResponseWriter) {
	WriteJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// BadRequest writes a 400 JSON error response with the given message.
func BadRequest(w http.ResponseWriter, message string) {
	WriteJSONError(w, http.StatusBadRequest, message)
}

// InternalServerError writes a 500 JSON error response with the given message.
func InternalServerError(w http.ResponseWriter, message string) {
	WriteJSONError(w, http.StatusInternalServerError, message)
}

// NotFound writes a 404 JSON error response.
func NotFound(w http.ResponseWriter) {
	WriteJSONError(w, http.StatusNotFound, "not found")
}
