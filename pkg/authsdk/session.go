package authsdk

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// Session makes requests with a bearer token. There is no refresh: once the
// token expires, log in again.
type Session struct {
	client *Client

	mu          sync.RWMutex
	accessToken string
	expiresAt   time.Time
}

func newSession(c *Client, tok *TokenResponse) *Session {
	return &Session{
		client:      c,
		accessToken: tok.AccessToken,
		expiresAt:   time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second),
	}
}

// AccessToken returns the bearer token.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// ExpiresAt is the client's estimate of when the token stops working. It is
// zero for sessions built with SessionFromToken.
func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// Get fetches path with the bearer token and returns the body.
func (s *Session) Get(ctx context.Context, path string) ([]byte, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	return readBody(resp, http.StatusOK)
}

// WhoAmI describes the caller as the service sees it.
func (s *Session) WhoAmI(ctx context.Context) (*WhoAmIResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/whoami")
	if err != nil {
		return nil, err
	}

	var who WhoAmIResponse
	if err := decodeJSON(resp, &who, http.StatusOK); err != nil {
		return nil, err
	}
	return &who, nil
}

// Logout revokes the token server-side. The session is unusable afterwards.
func (s *Session) Logout(ctx context.Context) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/logout")
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}
