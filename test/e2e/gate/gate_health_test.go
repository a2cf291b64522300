//go:build e2e

package gate_test

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLivezEndpoint(t *testing.T) {
	client, cleanup := setupGatehouse(t)
	defer cleanup()

	health, err := client.GetLiveness(t.Context())
	assertHealthy(t, health, err)
}

func TestReadyzEndpoint(t *testing.T) {
	client, cleanup := setupGatehouse(t)
	defer cleanup()

	health, err := client.GetReadiness(t.Context())
	assertHealthy(t, health, err)
	require.Equal(t, "ok", health.Checks["signer"])
	require.Equal(t, "ok", health.Checks["directory"])
}
