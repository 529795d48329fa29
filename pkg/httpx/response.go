package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// MaxBodyBytes caps request bodies decoded by DecodeJSON.
const MaxBodyBytes = 1 << 20

// Envelope status values.
const (
	StatusSuccess = "success"
	StatusFail    = "fail"
	StatusError   = "error"
)

// Envelope is the body shape of every API response.
type Envelope struct {
	Data    any    `json:"data"`
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
// It automatically sets the Content-Type header and Cache-Control headers.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// NoCache sets the Cache-Control and Pragma headers to prevent caching.
// This is commonly required for sensitive responses like tokens.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

func WriteSuccess(w http.ResponseWriter, code int, data any, message string) {
	WriteJSON(w, code, Envelope{Data: data, Status: StatusSuccess, Code: code, Message: message})
}

// WriteFail reports a client error (4xx).
func WriteFail(w http.ResponseWriter, code int, message string) {
	WriteJSON(w, code, Envelope{Status: StatusFail, Code: code, Message: message})
}

// WriteError reports a server error (5xx). The message must not carry
// internal detail.
func WriteError(w http.ResponseWriter, code int, message string) {
	WriteJSON(w, code, Envelope{Status: StatusError, Code: code, Message: message})
}

// ErrBadBody is returned by DecodeJSON for unreadable request bodies.
var ErrBadBody = errors.New("invalid request body")

// DecodeJSON decodes a single JSON object from the request body into v.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrBadBody, err)
	}
	return nil
}
