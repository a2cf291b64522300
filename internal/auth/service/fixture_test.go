package service

import (
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/gatehouse/internal/auth/store"
	"github.com/aussiebroadwan/gatehouse/internal/auth/store/drivers/memory"
	"github.com/aussiebroadwan/gatehouse/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store  *memory.Store
	clock  *testClock
	tokens *TokenService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st := memory.NewStore()
	_, err := store.Seed(t.Context(), st.Users(), []store.SeedUser{
		{Username: "admin1", Password: "password", Role: "admin"},
		{Username: "user1", Password: "password", Role: "user"},
	})
	require.NoError(t, err)

	signer, err := jwtx.NewSignerHS256("test", []byte(strings.Repeat("k", jwtx.MinHS256SecretSize)))
	require.NoError(t, err)

	clock := &testClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	codec := jwtx.NewCodec(signer, "gatehouse-test",
		jwtx.WithClock(clock.Now),
		jwtx.WithRevocations(st.Revocations()),
	)

	credentials, err := NewCredentialVerifier(st.Users())
	require.NoError(t, err)

	return &fixture{
		store: st,
		clock: clock,
		tokens: &TokenService{
			Codec:       codec,
			Credentials: credentials,
			Revocations: st.Revocations(),
			AccessTTL:   15 * time.Minute,
		},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

