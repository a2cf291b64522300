package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Configuration for Argon2id hashing.
const (
	memory      = 19 * 1024 // Memory usage in KiB (19 MiB)
	iterations  = 2         // Iteration count
	parallelism = 1         // Number of threads
	keyLength   = 32        // Length of the generated hash
	saltLength  = 16        // Length of the salt
)

var (
	pepperMu   sync.Mutex
	pepper     string
	pepperFile string
)

// SetPepperPath sets where the pepper is persisted. An empty path keeps the
// pepper in memory only, which means hashes don't survive a restart. That is
// fine for tests and for directories seeded from plaintext at startup.
func SetPepperPath(file string) {
	pepperMu.Lock()
	defer pepperMu.Unlock()

	pepperFile = file
	pepper = ""
}

// GetPepper returns the process pepper, loading or generating it on first use.
func GetPepper() string {
	pepperMu.Lock()
	defer pepperMu.Unlock()

	if pepper != "" {
		return pepper
	}

	p, err := loadOrGeneratePepper(pepperFile)
	if err != nil {
		slog.Error("failed to load or generate pepper", slog.Any("err", err))
		os.Exit(1)
	}
	pepper = p

	return pepper
}

func newPepper() (string, error) {
	b := make([]byte, keyLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// loadOrGeneratePepper loads the pepper from file or generates one if not found.
func loadOrGeneratePepper(file string) (string, error) {
	if file == "" {
		return newPepper()
	}

	file = filepath.Clean(file)
	if err := os.MkdirAll(filepath.Dir(file), 0750); err != nil {
		return "", err
	}

	b, err := os.ReadFile(file)
	switch {
	case err == nil:
		if len(b) == 0 {
			return "", errors.New("cryptox: pepper file is empty")
		}
		return string(b), nil
	case !os.IsNotExist(err):
		return "", err
	}

	p, err := newPepper()
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(file, []byte(p), 0600); err != nil {
		return "", err
	}
	return p, nil
}
