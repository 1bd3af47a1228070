package apperr

import (
	"encoding/json"
	"errors"
	"net/http"
)

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// WriteHTTP writes err as {"error": {...}} with the status mapped from its code.
// Errors without a code are reported as INTERNAL_ERROR and their text is kept.
func WriteHTTP(w http.ResponseWriter, err error) {
	code := CodeOf(err)
	body := &Error{Code: code, Message: err.Error()}
	var e *Error
	if errors.As(err, &e) {
		body = &Error{Code: e.Code, Message: e.Message, Details: e.Details}
		if e.cause != nil {
			body.Message = e.Message + ": " + e.cause.Error()
		}
	}
	WriteJSON(w, HTTPStatus(code), map[string]any{"error": body})
}
