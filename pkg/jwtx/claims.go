package jwtx

import (
	"time"

	"github.com/aussiebroadwan/gatehouse/pkg/idx"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultAccessTokenTTL is the default lifetime for access tokens. Short-lived
// for security, typical range is 15m to 1h.
const DefaultAccessTokenTTL = 15 * time.Minute

// Claims are the access-token claims. Identity lives in the registered "sub"
// claim, the token identifier in "jti".
type Claims struct {
	jwt.RegisteredClaims

	// Role granted to the subject at issuance ("user", "admin").
	Role string `json:"role"`
}

// NewAccessClaims builds minimally-correct claims stamped at now.
func NewAccessClaims(subject, role, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        idx.NewAt(now).String(),
		},
		Role: role,
	}
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateShape ensures every claim the service relies on is present. These
// are fields a token we issued always carries.
func (c *Claims) ValidateShape() error {
	if c.Subject == "" || c.Role == "" || c.ExpiresAt == nil {
		return ErrMissingClaim
	}
	if _, err := idx.Parse(c.ID); err != nil {
		return ErrMissingClaim
	}
	return nil
}

// ValidateExpiryAt reports ErrExpired once now is past exp. The caller
// supplies now so a whole verification uses one clock read.
func (c *Claims) ValidateExpiryAt(now time.Time) error {
	if c.ExpiresAt == nil || now.After(c.ExpiresAt.Time) {
		return ErrExpired
	}
	return nil
}
