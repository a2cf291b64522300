package jwtx

import "fmt"

// Algorithms supported by the codec.
const (
	AlgHS256 = "HS256"
	AlgEdDSA = "EdDSA"
)

// Signer is our interface for anything that can sign JWTs and check the
// signatures it produced. Both implementations hold server-side secret
// material only.
type Signer interface {
	Alg() string
	KID() string
	Sign(Claims) (string, error)

	// VerifySignature checks sig against the raw "header.payload" string.
	VerifySignature(signingString string, sig []byte) error

	Validate() error
}

// NewSigner builds a signer for alg from key material. For HS256 the material
// is the shared secret, for EdDSA a PKCS8 PEM private key.
func NewSigner(alg, kid string, material []byte) (Signer, error) {
	switch alg {
	case AlgHS256:
		return NewSignerHS256(kid, material)
	case AlgEdDSA:
		return NewSignerEdDSA(kid, material)
	default:
		return nil, fmt.Errorf("jwtx: unsupported algorithm %q", alg)
	}
}

// NewSignerHS256 creates an HMAC-SHA256 signer from a shared secret.
func NewSignerHS256(kid string, secret []byte) (Signer, error) {
	return newHS256Signer(kid, secret)
}

// NewSignerEdDSA creates an EdDSA signer from PEM bytes.
// Ed25519 keys must be in PKCS8 format.
func NewSignerEdDSA(kid string, pemKey []byte) (Signer, error) {
	return newEdDSASigner(kid, pemKey)
}
