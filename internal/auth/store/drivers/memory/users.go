package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aussiebroadwan/gatehouse/internal/auth/domain"
	"github.com/aussiebroadwan/gatehouse/internal/auth/store"
)

type usersRepo struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

func newUsersRepo() *usersRepo {
	return &usersRepo{users: make(map[string]domain.User)}
}

func (r *usersRepo) GetUserByUsername(_ context.Context, username string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[username]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	return u, nil
}

func (r *usersRepo) CreateUser(_ context.Context, u domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[u.Username]; ok {
		return store.ErrAlreadyExists
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	r.users[u.Username] = u
	return nil
}

func (r *usersRepo) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users), nil
}
