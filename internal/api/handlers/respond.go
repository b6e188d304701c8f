package handlers

import (
	"encoding/json"
	"net/http"
)

// envelope is the uniform JSON response shape
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Details string `json:"details,omitempty"`
}

// respondData writes a success envelope
func respondData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

// respondError writes an error envelope. The message is user-facing; the
// optional details string carries the underlying error text.
func respondError(w http.ResponseWriter, status int, message string, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Success: false, Error: message, Details: details})
}

// respondValidation writes a 400 with a field-specific message
func respondValidation(w http.ResponseWriter, message string) {
	respondError(w, http.StatusBadRequest, message, "")
}

// respondNotFound writes a 404
func respondNotFound(w http.ResponseWriter, message string) {
	respondError(w, http.StatusNotFound, message, "")
}

// respondInternal writes a 500 with a generic message plus detail
func respondInternal(w http.ResponseWriter, err error) {
	respondError(w, http.StatusInternalServerError, "internal error", err.Error())
}

// decodeJSON decodes a request body, rejecting unknown fields
func decodeJSON(r *http.Request, dest any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

// listResponse is the shape of paginated list payloads
type listResponse struct {
	Items  any   `json:"items"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}
