package authsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

func (c *Client) url(path string) string {
	return c.BaseURL + path
}

// doRequest performs an HTTP request with the client's HTTP client. decorate,
// if set, can add headers or credentials before the request is sent.
func (c *Client) doRequest(
	ctx context.Context,
	method, path string,
	body io.Reader,
	decorate func(*http.Request),
) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if decorate != nil {
		decorate(req)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	return resp, nil
}

// doAuthRequest performs a request carrying the session's bearer token.
func (s *Session) doAuthRequest(ctx context.Context, method, path string) (*http.Response, error) {
	token := s.AccessToken()
	return s.client.doRequest(ctx, method, path, nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})
}

// decodeJSON decodes a JSON response into target, or returns an *APIError
// when the status isn't expectedStatus.
func decodeJSON(resp *http.Response, target any, expectedStatus int) error {
	body, err := readBody(resp, expectedStatus)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// readBody returns the body, or an *APIError when the status isn't
// expectedStatus.
func readBody(resp *http.Response, expectedStatus int) ([]byte, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != expectedStatus {
		return nil, parseErrorResponse(resp, body)
	}

	return body, nil
}

// checkStatusNoContent returns a typed error if the response status is not 204 No Content.
func checkStatusNoContent(resp *http.Response) error {
	_, err := readBody(resp, http.StatusNoContent)
	return err
}
