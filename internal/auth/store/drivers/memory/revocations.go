package memory

import (
	"context"
	"sync"
	"time"
)

// revocationsRepo maps token id to token expiry. Reads vastly outnumber
// writes (every bearer request reads, only logout writes) so it sits behind
// an RWMutex.
type revocationsRepo struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
}

func newRevocationsRepo() *revocationsRepo {
	return &revocationsRepo{revoked: make(map[string]time.Time)}
}

func (r *revocationsRepo) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Keep the later expiry if the same id is revoked twice.
	if cur, ok := r.revoked[tokenID]; !ok || expiresAt.After(cur) {
		r.revoked[tokenID] = expiresAt
	}
	return nil
}

func (r *revocationsRepo) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.revoked[tokenID]
	return ok, nil
}

func (r *revocationsRepo) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int
	for id, exp := range r.revoked {
		if now.After(exp) {
			delete(r.revoked, id)
			n++
		}
	}
	return n, nil
}
