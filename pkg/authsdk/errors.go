package authsdk

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/gatehouse/pkg/httpx"
)

// Error kinds written in the "error" field of a response body.
const (
	KindBadRequest       = "bad_request"
	KindUnauthorized     = "unauthorized"
	KindForbidden        = "forbidden"
	KindNotFound         = "not_found"
	KindMethodNotAllowed = "method_not_allowed"
	KindRateLimited      = "rate_limited"
	KindServerError      = "server_error"
)

// APIError is the service's error response. It implements error so the SDK
// can return it directly, and WriteError so handlers can send it.
type APIError struct {
	// StatusCode is the HTTP status code for this error
	StatusCode int `json:"-"`

	Kind        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Description)
}

// Is matches any APIError of the same kind, so a decoded response compares
// equal to the predefined value whatever its description.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && t.Kind == e.Kind
}

// WithDescription returns a copy of e with a different description.
func (e *APIError) WithDescription(desc string) *APIError {
	c := *e
	c.Description = desc
	return &c
}

// WriteError writes e as a JSON response. Headers set beforehand, such as
// WWW-Authenticate, are preserved.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.WriteJSON(w, e.StatusCode, e)
}

var (
	ErrBadRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Kind:        KindBadRequest,
		Description: "the request is malformed or missing required fields",
	}

	// ErrUnauthorized covers every authentication failure. The description
	// is the same whichever check failed.
	ErrUnauthorized = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Kind:        KindUnauthorized,
		Description: "authentication required",
	}

	ErrForbidden = &APIError{
		StatusCode:  http.StatusForbidden,
		Kind:        KindForbidden,
		Description: "insufficient role for this resource",
	}

	ErrNotFound = &APIError{
		StatusCode:  http.StatusNotFound,
		Kind:        KindNotFound,
		Description: "not found",
	}

	ErrMethodNotAllowed = &APIError{
		StatusCode:  http.StatusMethodNotAllowed,
		Kind:        KindMethodNotAllowed,
		Description: "method not allowed",
	}

	ErrRateLimited = &APIError{
		StatusCode:  http.StatusTooManyRequests,
		Kind:        KindRateLimited,
		Description: "too many requests, please try again later",
	}

	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Kind:        KindServerError,
		Description: "internal server error",
	}
)

// parseErrorResponse turns a non-2xx response into an *APIError, falling
// back to the status text when the body isn't one of ours.
func parseErrorResponse(resp *http.Response, body []byte) error {
	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Kind != "" {
		apiErr.StatusCode = resp.StatusCode
		return &apiErr
	}

	return &APIError{
		StatusCode:  resp.StatusCode,
		Kind:        kindForStatus(resp.StatusCode),
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}

func kindForStatus(code int) string {
	switch code {
	case http.StatusBadRequest:
		return KindBadRequest
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusMethodNotAllowed:
		return KindMethodNotAllowed
	case http.StatusTooManyRequests:
		return KindRateLimited
	default:
		return KindServerError
	}
}
