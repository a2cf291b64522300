package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client talks to a Gatehouse service.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a client with a 10 second request timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Login exchanges a username and password for a bearer token and returns a
// Session that uses it.
func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	body, err := json.Marshal(LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, fmt.Errorf("failed to encode login request: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/login", bytes.NewReader(body), func(r *http.Request) {
		r.Header.Set("Content-Type", "application/json")
	})
	if err != nil {
		return nil, err
	}

	var tok TokenResponse
	if err := decodeJSON(resp, &tok, http.StatusOK); err != nil {
		return nil, err
	}

	return newSession(c, &tok), nil
}

// BasicGet fetches path with HTTP Basic credentials and returns the body.
func (c *Client) BasicGet(ctx context.Context, path, username, password string) ([]byte, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil, func(r *http.Request) {
		r.SetBasicAuth(username, password)
	})
	if err != nil {
		return nil, err
	}
	return readBody(resp, http.StatusOK)
}

// BasicWhoAmI describes the caller as authenticated by Basic credentials.
func (c *Client) BasicWhoAmI(ctx context.Context, username, password string) (*WhoAmIResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/whoami", nil, func(r *http.Request) {
		r.SetBasicAuth(username, password)
	})
	if err != nil {
		return nil, err
	}

	var who WhoAmIResponse
	if err := decodeJSON(resp, &who, http.StatusOK); err != nil {
		return nil, err
	}
	return &who, nil
}

// SessionFromToken wraps an existing bearer token.
func (c *Client) SessionFromToken(token string) *Session {
	return &Session{client: c, accessToken: token}
}
