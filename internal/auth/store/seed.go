package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aussiebroadwan/gatehouse/internal/auth/domain"
	"github.com/aussiebroadwan/gatehouse/pkg/cryptox"
	"gopkg.in/yaml.v2"
)

// SeedUser is one entry of the users seed file. Exactly one of Password
// (hashed at load) or PasswordHash (an argon2id PHC string produced with the
// same pepper) must be set.
type SeedUser struct {
	Username     string `yaml:"username"`
	Password     string `yaml:"password,omitempty"`
	PasswordHash string `yaml:"password_hash,omitempty"`
	Role         string `yaml:"role"`
}

type seedFile struct {
	Users []SeedUser `yaml:"users"`
}

// LoadSeedFile reads and validates a YAML users file:
//
//	users:
//	  - username: admin1
//	    password: password
//	    role: admin
func LoadSeedFile(path string) ([]SeedUser, error) {
	b, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("store: read seed file: %w", err)
	}
	return ParseSeed(b)
}

// ParseSeed decodes and validates seed YAML.
func ParseSeed(b []byte) ([]SeedUser, error) {
	var f seedFile
	if err := yaml.UnmarshalStrict(b, &f); err != nil {
		return nil, fmt.Errorf("store: parse seed: %w", err)
	}

	seen := make(map[string]struct{}, len(f.Users))
	for i, u := range f.Users {
		if strings.TrimSpace(u.Username) == "" {
			return nil, fmt.Errorf("store: seed user %d: username is required", i)
		}
		if _, dup := seen[u.Username]; dup {
			return nil, fmt.Errorf("store: seed user %q: %w", u.Username, ErrAlreadyExists)
		}
		seen[u.Username] = struct{}{}

		if (u.Password == "") == (u.PasswordHash == "") {
			return nil, fmt.Errorf("store: seed user %q: set exactly one of password or password_hash", u.Username)
		}
		if _, err := domain.ParseRole(u.Role); err != nil {
			return nil, fmt.Errorf("store: seed user %q: %w", u.Username, err)
		}
	}

	return f.Users, nil
}

// Seed provisions users into the directory. Users that already exist are
// left untouched so seeding is idempotent. It returns how many were created.
func Seed(ctx context.Context, users Users, entries []SeedUser) (int, error) {
	var created int
	for _, e := range entries {
		role, err := domain.ParseRole(e.Role)
		if err != nil {
			return created, err
		}

		hash := e.PasswordHash
		if hash == "" {
			if hash, err = cryptox.HashPassword(e.Password); err != nil {
				return created, fmt.Errorf("store: hash password for %q: %w", e.Username, err)
			}
		}

		err = users.CreateUser(ctx, domain.User{
			Username:     e.Username,
			PasswordHash: hash,
			Role:         role,
		})
		switch {
		case errors.Is(err, ErrAlreadyExists):
			continue
		case err != nil:
			return created, err
		}
		created++
	}
	return created, nil
}
