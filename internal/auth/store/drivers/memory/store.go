package memory

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/aussiebroadwan/gatehouse/internal/auth/store"
)

var errClosed = errors.New("memory: store closed")

// Store is an in-process store.Store. Everything is lost on restart, which
// is the intended lifetime for both the seeded directory and the revoked set.
type Store struct {
	users       *usersRepo
	revocations *revocationsRepo
	closed      atomic.Bool
}

func NewStore() *Store {
	return &Store{
		users:       newUsersRepo(),
		revocations: newRevocationsRepo(),
	}
}

func (s *Store) Users() store.Users             { return s.users }
func (s *Store) Revocations() store.Revocations { return s.revocations }

func (s *Store) Close() error {
	s.closed.Store(true)
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed.Load() {
		return errClosed
	}
	return nil
}
