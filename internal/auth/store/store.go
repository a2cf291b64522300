package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/gatehouse/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Drivers implement it and expose
// sub-repositories to keep concerns tidy and testable.
type Store interface {
	Users() Users
	Revocations() Revocations

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the store is still usable.
	Ping(ctx context.Context) error
}

// Users is the user directory. It is read on every Basic request and login,
// and written only when users are provisioned.
type Users interface {
	// GetUserByUsername returns ErrNotFound when no such user exists.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// CreateUser provisions a user, ErrAlreadyExists on a taken username.
	CreateUser(ctx context.Context, u domain.User) error

	// Count returns the number of provisioned users.
	Count(ctx context.Context) (int, error)
}

// Revocations is the set of explicitly revoked token ids. An entry only
// matters until the token it names expires, so each one carries that expiry
// and housekeeping drops it afterwards.
type Revocations interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)

	// DeleteExpired removes entries whose token expired before now and returns
	// how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
