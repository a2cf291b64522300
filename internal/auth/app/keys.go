package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aussiebroadwan/gatehouse/pkg/cryptox"
	"github.com/aussiebroadwan/gatehouse/pkg/jwtx"
)

// ErrNoSigningKey is returned outside dev when no key material is configured.
var ErrNoSigningKey = errors.New("no signing key configured: set AUTH_SIGNING_KEY or AUTH_SIGNING_KEY_FILE")

// LoadSigner builds the token signer from configured key material.
//
// For HS256 the material is the shared secret (at least 32 bytes). For EdDSA
// it is an Ed25519 private key in PKCS8 PEM form.
//
// In dev only, missing material is replaced by a freshly generated key. Every
// token becomes invalid when the process restarts.
func LoadSigner(cfg Config, logger *slog.Logger) (jwtx.Signer, error) {
	material, source, err := signingMaterial(cfg)
	if err != nil {
		return nil, err
	}

	if material == nil {
		if !cfg.IsDev() {
			return nil, ErrNoSigningKey
		}

		material, err = generateMaterial(cfg.Algorithm)
		if err != nil {
			return nil, fmt.Errorf("failed to generate ephemeral signing key: %w", err)
		}
		source = "ephemeral"
		logger.Warn("no signing key configured, using an ephemeral key; tokens will not survive a restart",
			"algorithm", cfg.Algorithm,
		)
	}

	signer, err := jwtx.NewSigner(cfg.Algorithm, cfg.KeyID, material)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s signer: %w", cfg.Algorithm, err)
	}
	if err := signer.Validate(); err != nil {
		return nil, fmt.Errorf("signer failed validation: %w", err)
	}

	logger.Info("token signer ready",
		"algorithm", signer.Alg(),
		"kid", signer.KID(),
		"source", source,
	)
	return signer, nil
}

func signingMaterial(cfg Config) ([]byte, string, error) {
	switch {
	case cfg.SigningKeyFile != "":
		b, err := os.ReadFile(filepath.Clean(cfg.SigningKeyFile))
		if err != nil {
			return nil, "", fmt.Errorf("failed to read signing key file: %w", err)
		}
		return b, "file", nil
	case cfg.SigningKey != "":
		return []byte(cfg.SigningKey), "env", nil
	default:
		return nil, "", nil
	}
}

func generateMaterial(alg string) ([]byte, error) {
	switch alg {
	case jwtx.AlgEdDSA:
		return cryptox.GenerateEd25519Key()
	default:
		secret, err := cryptox.GenerateToken(cryptox.TokenSize512)
		if err != nil {
			return nil, err
		}
		return []byte(secret), nil
	}
}
