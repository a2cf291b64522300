package jwtx

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// MinHS256SecretSize is the shortest accepted HMAC secret, matching the
// SHA-256 output size.
const MinHS256SecretSize = 32

// HS256Signer implements the Signer interface using HMAC-SHA256.
type HS256Signer struct {
	kid    string
	secret []byte
}

func newHS256Signer(kid string, secret []byte) (*HS256Signer, error) {
	if len(secret) < MinHS256SecretSize {
		return nil, fmt.Errorf("jwtx: HS256 secret must be at least %d bytes", MinHS256SecretSize)
	}

	// Copy so the caller can wipe or reuse its buffer.
	s := make([]byte, len(secret))
	copy(s, secret)

	return &HS256Signer{kid: kid, secret: s}, nil
}

func (s *HS256Signer) Alg() string { return AlgHS256 }
func (s *HS256Signer) KID() string { return s.kid }

// Sign takes your claims and turns them into a signed JWT string.
func (s *HS256Signer) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	if s.kid != "" {
		t.Header["kid"] = s.kid
	}
	return t.SignedString(s.secret)
}

func (s *HS256Signer) VerifySignature(signingString string, sig []byte) error {
	return jwt.SigningMethodHS256.Verify(signingString, sig, s.secret)
}

func (s *HS256Signer) Validate() error {
	if len(s.secret) < MinHS256SecretSize {
		return errors.New("jwtx: HS256 secret too short")
	}
	return nil
}
