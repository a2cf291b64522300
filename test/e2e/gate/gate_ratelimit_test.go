//go:build e2e

package gate_test

import (
	"errors"
	"testing"

	"github.com/aussiebroadwan/gatehouse/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestRateLimitLogin verifies /login is throttled per IP (5 req/min by
// default) and the limit applies to failed and successful attempts alike.
func TestRateLimitLogin(t *testing.T) {
	client, cleanup := setupGatehouseWithDefaultRateLimits(t)
	defer cleanup()

	var limited bool
	for i := range 10 {
		_, err := client.Login(t.Context(), userName, "wrong")
		if errors.Is(err, authsdk.ErrRateLimited) {
			t.Logf("rate limited after %d attempts", i)
			limited = true
			break
		}
		assertAPIError(t, err, authsdk.ErrUnauthorized, "attempt before limit")
	}
	require.True(t, limited, "login should be rate limited")

	_, err := client.Login(t.Context(), userName, validPassword)
	assertAPIError(t, err, authsdk.ErrRateLimited, "correct password while limited")
}
