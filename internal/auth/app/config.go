package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	httpapi "github.com/aussiebroadwan/gatehouse/internal/auth/http"
	"github.com/aussiebroadwan/gatehouse/pkg/httpx"
	"github.com/aussiebroadwan/gatehouse/pkg/jwtx"
	"github.com/joho/godotenv"
)

type Config struct {
	Issuer         string        // Optional: issuer claim for tokens (default: gatehouse)
	Algorithm      string        // Optional: JWT signing algorithm (HS256, EdDSA) (default: HS256)
	KeyID          string        // Optional: kid header on issued tokens (default: gatehouse-key-1)
	SigningKey     string        // Optional: HS256 secret or EdDSA PEM, inline
	SigningKeyFile string        // Optional: path to the same material; exclusive with SigningKey
	AccessTTL      time.Duration // Optional: access token lifetime (default: 15m)
	PepperFile     string        // Optional: path to the password pepper (default: in-memory only)
	UsersFile      string        // Optional: YAML user seed file (dev default: demo users)
	BasicRealm     string        // Optional: realm in Basic/Bearer challenges (default: gatehouse)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Revoked-token pruning interval (default: 1h)

	LoginLimit         httpx.RateLimitConfig // RATELIMIT_LOGIN_{REQUESTS,WINDOW_SEC,BURST}
	AuthenticatedLimit httpx.RateLimitConfig // RATELIMIT_AUTHENTICATED_{REQUESTS,WINDOW_SEC,BURST}
	TrustProxy         bool                  // Key per-IP limits on X-Forwarded-For (default: false)

	// LogOutput overrides where logs go. Not read from the environment.
	LogOutput io.Writer
}

// IsDev reports whether development conveniences (ephemeral keys, demo
// users) are allowed.
func (c Config) IsDev() bool { return c.Env == "dev" }

// LoadDotEnv loads KEY=value pairs from path into the process environment
// without overriding variables that are already set. A missing file is fine.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func LoadConfig() (Config, error) {
	return LoadConfigFrom(os.Getenv)
}

// LoadConfigFrom builds a Config from getenv and validates it.
func LoadConfigFrom(getenv func(string) string) (Config, error) {
	env := envReader(getenv)

	cfg := Config{
		Issuer:         env.str("AUTH_ISSUER", "gatehouse"),
		Algorithm:      env.str("AUTH_ALGORITHM", jwtx.AlgHS256),
		KeyID:          env.str("AUTH_KEY_ID", "gatehouse-key-1"),
		SigningKey:     getenv("AUTH_SIGNING_KEY"),
		SigningKeyFile: getenv("AUTH_SIGNING_KEY_FILE"),
		AccessTTL:      env.duration("AUTH_ACCESS_TTL", jwtx.DefaultAccessTokenTTL),
		PepperFile:     getenv("AUTH_PEPPER_FILE"),
		UsersFile:      getenv("AUTH_USERS_FILE"),
		BasicRealm:     env.str("AUTH_BASIC_REALM", httpapi.DefaultRealm),

		Env:                  env.str("ENV", "dev"),
		LogLevel:             env.str("LOG_LEVEL", "info"),
		LogFormat:            env.str("LOG_FORMAT", "json"),
		Port:                 env.int("PORT", 8080),
		ShutdownGracePeriod:  env.duration("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: env.duration("HOUSEKEEPING_INTERVAL", 1*time.Hour),

		LoginLimit:         httpx.RateLimitFromEnv(getenv, "LOGIN", httpx.LoginLimit),
		AuthenticatedLimit: httpx.RateLimitFromEnv(getenv, "AUTHENTICATED", httpx.AuthenticatedLimit),
		TrustProxy:         env.bool("RATELIMIT_TRUST_PROXY", false),
	}

	return cfg, cfg.Validate()
}

// Validate rejects configurations the service cannot start with.
func (c Config) Validate() error {
	var errs []error

	if c.Algorithm != jwtx.AlgHS256 && c.Algorithm != jwtx.AlgEdDSA {
		errs = append(errs, fmt.Errorf("AUTH_ALGORITHM must be %s or %s, got %q", jwtx.AlgHS256, jwtx.AlgEdDSA, c.Algorithm))
	}
	if c.SigningKey != "" && c.SigningKeyFile != "" {
		errs = append(errs, errors.New("set only one of AUTH_SIGNING_KEY and AUTH_SIGNING_KEY_FILE"))
	}
	if c.AccessTTL <= 0 {
		errs = append(errs, fmt.Errorf("AUTH_ACCESS_TTL must be positive, got %s", c.AccessTTL))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT out of range: %d", c.Port))
	}

	return errors.Join(errs...)
}

type envReader func(string) string

func (e envReader) str(key, defaultValue string) string {
	if value := e(key); value != "" {
		return value
	}
	return defaultValue
}

func (e envReader) int(key string, defaultValue int) int {
	value := e(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func (e envReader) bool(key string, defaultValue bool) bool {
	if boolValue, err := strconv.ParseBool(e(key)); err == nil {
		return boolValue
	}
	return defaultValue
}

func (e envReader) duration(key string, defaultValue time.Duration) time.Duration {
	value := e(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are minutes.
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
