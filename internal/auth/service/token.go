package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/gatehouse/internal/auth/domain"
	"github.com/aussiebroadwan/gatehouse/internal/auth/store"
	"github.com/aussiebroadwan/gatehouse/pkg/cryptox"
	"github.com/aussiebroadwan/gatehouse/pkg/jwtx"
	"github.com/aussiebroadwan/gatehouse/pkg/slogx"
)

var (
	ErrBadRequest         = errors.New("bad_request")
	ErrInvalidCredentials = errors.New("invalid_credentials")
)

// TokenService issues bearer tokens on password login, verifies presented
// tokens and revokes them on logout.
type TokenService struct {
	Codec       *jwtx.Codec
	Credentials *CredentialVerifier
	Revocations store.Revocations
	AccessTTL   time.Duration
}

// Login checks the credentials and issues a token carrying the user's
// directory role. Missing fields are a malformed request and are rejected
// before the directory is consulted.
func (s *TokenService) Login(ctx context.Context, username, password string) (*domain.AccessToken, error) {
	l := slogx.FromContext(ctx)

	if strings.TrimSpace(username) == "" || password == "" {
		return nil, ErrBadRequest
	}

	user, err := s.Credentials.Verify(ctx, username, password)
	if err != nil {
		return nil, err
	}

	token, claims, err := s.Codec.Issue(user.Username, user.Role.String(), s.ttl())
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	l.Info("access token issued",
		slog.String("username", user.Username),
		slog.String("role", user.Role.String()),
		slog.String("jti", claims.ID),
	)

	return &domain.AccessToken{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: s.ttl(),
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}, nil
}

// Verify checks a bearer token and returns the request claims. Errors are
// one of the jwtx verification sentinels, or an internal error.
func (s *TokenService) Verify(ctx context.Context, token string) (domain.Claims, error) {
	c, err := s.Codec.Verify(ctx, token)
	if err != nil {
		slogx.FromContext(ctx).Warn("bearer token rejected",
			slog.String("token_fp", cryptox.FingerprintToken(token)),
			slog.Any("err", err),
		)
		return domain.Claims{}, err
	}

	role, err := domain.ParseRole(c.Role)
	if err != nil {
		return domain.Claims{}, fmt.Errorf("%w: %v", jwtx.ErrMalformed, err)
	}

	return domain.Claims{
		Identity:  c.Subject,
		Role:      role,
		Scheme:    domain.SchemeBearer,
		TokenID:   c.ID,
		ExpiresAt: c.ExpiresAt.Time.UTC(),
	}, nil
}

// Revoke puts the token named by claims on the revoked set until it expires.
func (s *TokenService) Revoke(ctx context.Context, claims domain.Claims) error {
	if claims.Scheme != domain.SchemeBearer || claims.TokenID == "" {
		return ErrBadRequest
	}

	if err := s.Revocations.Revoke(ctx, claims.TokenID, claims.ExpiresAt); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}

	slogx.FromContext(ctx).Info("access token revoked",
		slog.String("username", claims.Identity),
		slog.String("jti", claims.TokenID),
	)
	return nil
}

func (s *TokenService) ttl() time.Duration {
	if s.AccessTTL <= 0 {
		return jwtx.DefaultAccessTokenTTL
	}
	return s.AccessTTL
}
