package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// Token size constants (in bytes before encoding).
const (
	// TokenSize256 provides 256 bits of entropy (43 chars base64url).
	TokenSize256 = 32
	// TokenSize512 provides 512 bits of entropy (86 chars base64url).
	TokenSize512 = 64
)

// GenerateToken creates a cryptographically secure random token of the
// specified byte length, base64url-encoded without padding. Used for
// ephemeral HMAC signing secrets.
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// FingerprintToken returns a deterministic SHA-256 fingerprint of a token.
// Logs carry the fingerprint so a rejected bearer token can be correlated
// without writing the credential itself anywhere.
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
