package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var (
	// ErrPasswordMismatch is returned when a password does not match its hash.
	ErrPasswordMismatch = errors.New("password does not match")

	// ErrInvalidHash is returned when a stored hash is not a usable argon2id
	// PHC string.
	ErrInvalidHash = errors.New("invalid hash format")
)

// Upper bound on memory accepted from a stored hash so a corrupted record
// can't make a single login allocate gigabytes.
const maxMemory = 256 * 1024

// HashPassword generates a PHC-format Argon2id hash string including salt and parameters.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password+GetPepper()), salt, iterations, memory, parallelism, keyLength)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		memory,
		iterations,
		parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// VerifyPassword compares a plaintext password against a PHC-style Argon2id
// hash. The digest is recomputed with the parameters stored in the hash and
// compared in constant time.
func VerifyPassword(password, encodedHash string) error {
	// ["", "argon2id", "v=19", "m=X,t=Y,p=Z", "salt", "hash"]
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "" {
		return fmt.Errorf("%w: expected 6 parts", ErrInvalidHash)
	}
	if parts[1] != "argon2id" {
		return fmt.Errorf("%w: not argon2id", ErrInvalidHash)
	}
	if parts[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return fmt.Errorf("%w: wrong version", ErrInvalidHash)
	}

	var mem, iters uint32
	var par uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &iters, &par); err != nil {
		return fmt.Errorf("%w: parameters: %v", ErrInvalidHash, err)
	}
	if mem == 0 || mem > maxMemory || iters == 0 || par == 0 {
		return fmt.Errorf("%w: parameters out of range", ErrInvalidHash)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return fmt.Errorf("%w: salt: %v", ErrInvalidHash, err)
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(expected) == 0 {
		return fmt.Errorf("%w: digest", ErrInvalidHash)
	}

	computed := argon2.IDKey(
		[]byte(password+GetPepper()),
		salt,
		iters,
		mem,
		par,
		uint32(len(expected)), // #nosec G115 - digest length comes from our own encoder
	)

	if subtle.ConstantTimeCompare(computed, expected) != 1 {
		return ErrPasswordMismatch
	}
	return nil
}
