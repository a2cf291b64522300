package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aussiebroadwan/gatehouse/internal/auth/domain"
	"github.com/aussiebroadwan/gatehouse/internal/auth/store"
	"github.com/aussiebroadwan/gatehouse/pkg/cryptox"
	"github.com/aussiebroadwan/gatehouse/pkg/slogx"
)

// CredentialVerifier checks a username/password pair against the user
// directory. It is a pure check: nothing is written.
type CredentialVerifier struct {
	Users store.Users

	dummyOnce sync.Once
	dummyHash string
}

// NewCredentialVerifier builds the unknown-user dummy hash up front so the
// first failed lookup costs the same as every later one.
func NewCredentialVerifier(users store.Users) (*CredentialVerifier, error) {
	pw, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, fmt.Errorf("generate dummy password: %w", err)
	}
	hash, err := cryptox.HashPassword(pw)
	if err != nil {
		return nil, fmt.Errorf("hash dummy password: %w", err)
	}
	return &CredentialVerifier{Users: users, dummyHash: hash}, nil
}

// Verify returns the directory record when password matches. An unknown
// username and a wrong password both produce ErrInvalidCredentials, and an
// unknown username still pays for one argon2id evaluation so the two cases
// take about the same time.
func (v *CredentialVerifier) Verify(ctx context.Context, username, password string) (domain.User, error) {
	l := slogx.FromContext(ctx)

	user, err := v.Users.GetUserByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return domain.User{}, err
		}
		_ = cryptox.VerifyPassword(password, v.dummy())
		l.Info("credential check failed", slog.String("username", username), slog.String("reason", "unknown_user"))
		return domain.User{}, ErrInvalidCredentials
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		reason := "bad_password"
		if errors.Is(err, cryptox.ErrInvalidHash) {
			reason = "unusable_hash"
			l.Error("stored password hash is unusable", slog.String("username", username), slog.Any("err", err))
		}
		l.Info("credential check failed", slog.String("username", username), slog.String("reason", reason))
		return domain.User{}, ErrInvalidCredentials
	}

	return user, nil
}

// dummy returns a valid hash of a random password. Verifiers built without
// NewCredentialVerifier fill it on first use.
func (v *CredentialVerifier) dummy() string {
	v.dummyOnce.Do(func() {
		if v.dummyHash != "" {
			return
		}
		pw, err := cryptox.GenerateToken(cryptox.TokenSize256)
		if err == nil {
			v.dummyHash, _ = cryptox.HashPassword(pw)
		}
	})
	return v.dummyHash
}
