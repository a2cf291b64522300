//go:build e2e

package gate_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/aussiebroadwan/gatehouse/pkg/authsdk"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * Container setup and shared assertions for the gatehouse end-to-end tests.
 * The image bakes in config/users.example.yaml, so user1 and admin1 exist
 * with the password "password".
 */

const (
	testImageName = "gatehouse-test:latest"

	signingKey = "e2e-signing-key-0123456789abcdef0123456789"

	userName      = "user1"
	adminName     = "admin1"
	validPassword = "password"
)

// TestMain builds the Docker image once for the whole package and removes it
// afterwards.
func TestMain(m *testing.M) {
	fmt.Fprintf(os.Stdout, "Building Gatehouse Docker image...")

	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up Gatehouse Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

func buildDockerImage() error {
	cmd := exec.CommandContext(context.Background(), "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/gatehouse/Dockerfile",
		"../../../")
	cmd.Stdout = os.Stdout
	return cmd.Run()
}

func cleanupDockerImage() {
	cmd := exec.CommandContext(context.Background(), "docker", "rmi", "-f", testImageName)
	_ = cmd.Run()
}

// baseEnv is the environment shared by every test container.
func baseEnv() map[string]string {
	return map[string]string{
		"ENV":              "test",
		"LOG_LEVEL":        "info",
		"LOG_FORMAT":       "json",
		"AUTH_SIGNING_KEY": signingKey,
		"AUTH_USERS_FILE":  "/etc/gatehouse/users.yaml",
		"AUTH_ACCESS_TTL":  "15",
	}
}

// relaxedLimits lifts the rate limits so tests that make many quick requests
// don't trip them.
func relaxedLimits(env map[string]string) map[string]string {
	for _, group := range []string{"LOGIN", "AUTHENTICATED"} {
		env["RATELIMIT_"+group+"_REQUESTS"] = "1000"
		env["RATELIMIT_"+group+"_WINDOW_SEC"] = "60"
		env["RATELIMIT_"+group+"_BURST"] = "1000"
	}
	return env
}

// setupGatehouse starts the service with relaxed rate limits.
func setupGatehouse(t *testing.T) (*authsdk.Client, func()) {
	t.Helper()
	return startContainer(t, relaxedLimits(baseEnv()))
}

// setupGatehouseWithDefaultRateLimits starts the service with the production
// rate limits, for tests that exercise throttling itself.
func setupGatehouseWithDefaultRateLimits(t *testing.T) (*authsdk.Client, func()) {
	t.Helper()
	return startContainer(t, baseEnv())
}

func startContainer(t *testing.T, env map[string]string) (*authsdk.Client, func()) {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        testImageName,
		ExposedPorts: []string{"8080/tcp"},
		Env:          env,
		WaitingFor: wait.ForHTTP("/livez").
			WithPort("8080/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	mappedPort, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	cleanup := func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return authsdk.NewClient(fmt.Sprintf("http://%s:%s", host, mappedPort.Port())), cleanup
}

// login signs in and fails the test if that doesn't work.
func login(t *testing.T, client *authsdk.Client, username string) *authsdk.Session {
	t.Helper()

	session, err := client.Login(t.Context(), username, validPassword)
	require.NoError(t, err, "login as %s", username)
	require.NotEmpty(t, session.AccessToken())
	return session
}

// assertAPIError checks err is an *authsdk.APIError of the given kind.
func assertAPIError(t *testing.T, err error, want *authsdk.APIError, msg string) {
	t.Helper()
	require.Error(t, err, msg)
	require.ErrorIs(t, err, want, "%s: got %v", msg, err)
}

func assertHealthy(t *testing.T, health *authsdk.HealthResponse, err error) {
	t.Helper()
	require.NoError(t, err)
	require.NotNil(t, health)
	require.Equal(t, "ok", health.Status)
}
