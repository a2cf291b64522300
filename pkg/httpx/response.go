package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// MaxJSONBody caps request bodies read by DecodeJSON.
const MaxJSONBody = 1 << 20

// ErrInvalidJSON is returned by DecodeJSON for an empty, oversized or
// undecodable body.
var ErrInvalidJSON = errors.New("httpx: invalid json body")

// WriteJSON writes a JSON response with the given status code.
// It automatically sets the Content-Type header and Cache-Control headers.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteText writes a plain text body.
func WriteText(w http.ResponseWriter, code int, body string) {
	NoCache(w)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	_, _ = io.WriteString(w, body)
}

// NoCache sets the Cache-Control and Pragma headers to prevent caching.
// This is commonly required for sensitive responses like tokens.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// DecodeJSON reads a single JSON value from the request body into v.
func DecodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return ErrInvalidJSON
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxJSONBody))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return nil
}
