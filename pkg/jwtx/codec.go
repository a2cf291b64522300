package jwtx

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verification failures. Verify reports the first applicable one in the order
// Malformed, BadSignature, Revoked, Expired. Nothing decoded from the payload
// is trusted until the signature has been checked, so a forger can't pick
// which error they get by editing exp.
var (
	ErrMalformed    = errors.New("jwtx: malformed token")
	ErrBadSignature = errors.New("jwtx: invalid signature")
	ErrRevoked      = errors.New("jwtx: token revoked")
	ErrExpired      = errors.New("jwtx: token expired")

	// Both wrap ErrMalformed: a correctly signed token whose claims we can't use.
	ErrIssuer       = fmt.Errorf("%w: issuer mismatch", ErrMalformed)
	ErrMissingClaim = fmt.Errorf("%w: missing or invalid claim", ErrMalformed)
)

// RevocationChecker reports whether a token id has been explicitly revoked.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type noRevocations struct{}

func (noRevocations) IsRevoked(context.Context, string) (bool, error) { return false, nil }

// Codec issues and verifies access tokens with a single signer.
type Codec struct {
	signer  Signer
	issuer  string
	revoked RevocationChecker
	now     func() time.Time
}

// CodecOption customises a Codec.
type CodecOption func(*Codec)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) CodecOption {
	return func(c *Codec) { c.now = now }
}

// WithRevocations plugs in the revoked-token set.
func WithRevocations(r RevocationChecker) CodecOption {
	return func(c *Codec) { c.revoked = r }
}

// NewCodec returns a codec that signs with signer and stamps issuer into
// every token. An empty issuer disables the issuer check on verify.
func NewCodec(signer Signer, issuer string, opts ...CodecOption) *Codec {
	c := &Codec{
		signer:  signer,
		issuer:  issuer,
		revoked: noRevocations{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Signer exposes the underlying signer for readiness checks.
func (c *Codec) Signer() Signer { return c.signer }

// Issue signs a token for subject with role, valid from now for ttl.
func (c *Codec) Issue(subject, role string, ttl time.Duration) (string, Claims, error) {
	if subject == "" || role == "" {
		return "", Claims{}, errors.New("jwtx: subject and role are required")
	}
	if ttl <= 0 {
		return "", Claims{}, fmt.Errorf("jwtx: ttl must be positive, got %s", ttl)
	}

	claims := NewAccessClaims(subject, role, c.issuer, ttl, c.now().UTC())

	token, err := c.signer.Sign(claims)
	if err != nil {
		return "", Claims{}, fmt.Errorf("jwtx: sign: %w", err)
	}
	return token, claims, nil
}

// Verify checks token and returns its claims.
func (c *Codec) Verify(ctx context.Context, token string) (Claims, error) {
	// 1. Structure: three non-empty segments and a canonically encoded
	// signature. Strict decoding rejects non-zero padding bits in the last
	// character, so each signature has exactly one accepted spelling.
	parts := strings.Split(token, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return Claims{}, ErrMalformed
	}
	sig, err := base64.RawURLEncoding.Strict().DecodeString(parts[2])
	if err != nil {
		return Claims{}, ErrMalformed
	}

	// 2. Signature over the raw signed bytes, with the algorithm pinned to
	// ours rather than whatever the header claims.
	if err := c.signer.VerifySignature(parts[0]+"."+parts[1], sig); err != nil {
		return Claims{}, ErrBadSignature
	}

	// 3. Now the payload is authentic it is safe to decode.
	var claims Claims
	parsed, _, err := jwt.NewParser().ParseUnverified(token, &claims)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenUnverifiable) {
			return Claims{}, ErrBadSignature
		}
		return Claims{}, ErrMalformed
	}
	if parsed.Method == nil || parsed.Method.Alg() != c.signer.Alg() {
		return Claims{}, ErrBadSignature
	}
	if err := claims.ValidateShape(); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateIssuer(c.issuer); err != nil {
		return Claims{}, err
	}

	// 4. Revocation, then expiry against a single clock read.
	now := c.now().UTC()

	revoked, err := c.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return Claims{}, fmt.Errorf("jwtx: revocation lookup: %w", err)
	}
	if revoked {
		return Claims{}, ErrRevoked
	}

	if err := claims.ValidateExpiryAt(now); err != nil {
		return Claims{}, err
	}

	return claims, nil
}
