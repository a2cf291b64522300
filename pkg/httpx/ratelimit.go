package httpx

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/gatehouse/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines the rate limiting parameters.
type RateLimitConfig struct {
	// RequestsPerWindow is the number of requests allowed in the time window
	RequestsPerWindow int
	// Window is the time window for rate limiting
	Window time.Duration
	// Burst allows for temporary bursts above the rate limit
	Burst int
}

// Default profiles. The app may override them from RATELIMIT_{LOGIN,AUTHENTICATED}_*.
var (
	// LoginLimit slows down password guessing against POST /login.
	LoginLimit = RateLimitConfig{
		RequestsPerWindow: 5,
		Window:            time.Minute,
		Burst:             5,
	}

	// AuthenticatedLimit applies per caller to protected routes.
	AuthenticatedLimit = RateLimitConfig{
		RequestsPerWindow: 120,
		Window:            time.Minute,
		Burst:             30,
	}
)

// Valid reports whether every field is positive.
func (c RateLimitConfig) Valid() bool {
	return c.RequestsPerWindow > 0 && c.Window > 0 && c.Burst > 0
}

// RateLimitFromEnv overlays RATELIMIT_{prefix}_REQUESTS, _WINDOW_SEC and
// _BURST onto def. Missing, unparsable and non-positive values keep the default.
func RateLimitFromEnv(getenv func(string) string, prefix string, def RateLimitConfig) RateLimitConfig {
	cfg := def
	positive := func(name string) (int, bool) {
		n, err := strconv.Atoi(getenv("RATELIMIT_" + prefix + "_" + name))
		return n, err == nil && n > 0
	}

	if n, ok := positive("REQUESTS"); ok {
		cfg.RequestsPerWindow = n
	}
	if n, ok := positive("WINDOW_SEC"); ok {
		cfg.Window = time.Duration(n) * time.Second
	}
	if n, ok := positive("BURST"); ok {
		cfg.Burst = n
	}
	return cfg
}

// KeyExtractor groups requests for rate limiting. An empty key means the
// request is not limited.
type KeyExtractor func(*http.Request) string

// IPKeyExtractor extracts the client IP address from the request.
// It handles X-Forwarded-For and X-Real-IP headers for proxied requests.
func IPKeyExtractor(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	return RemoteIPKeyExtractor(r)
}

// RemoteIPKeyExtractor uses only the connection's peer address, ignoring
// proxy headers a client could forge.
func RemoteIPKeyExtractor(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// CompositeKeyExtractor joins the non-empty keys of extractors with sep.
func CompositeKeyExtractor(sep string, extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		var parts []string
		for _, extractor := range extractors {
			if key := extractor(r); key != "" {
				parts = append(parts, key)
			}
		}
		return strings.Join(parts, sep)
	}
}

// LimitedFunc writes the response for a rejected request.
type LimitedFunc func(w http.ResponseWriter, r *http.Request, retryAfter time.Duration)

// RateLimiter keeps one token bucket per key.
type RateLimiter struct {
	cfg       RateLimitConfig
	key       KeyExtractor
	onLimited LimitedFunc
	now       func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	idleAfter time.Duration
	lastSweep time.Time
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// RateLimitOption customises a RateLimiter.
type RateLimitOption func(*RateLimiter)

// WithLimitedResponse replaces the default 429 body.
func WithLimitedResponse(fn LimitedFunc) RateLimitOption {
	return func(rl *RateLimiter) { rl.onLimited = fn }
}

// WithRateLimitClock replaces time.Now, mainly for tests.
func WithRateLimitClock(now func() time.Time) RateLimitOption {
	return func(rl *RateLimiter) { rl.now = now }
}

// NewRateLimiter builds a limiter for cfg keyed by key.
func NewRateLimiter(cfg RateLimitConfig, key KeyExtractor, opts ...RateLimitOption) *RateLimiter {
	rl := &RateLimiter{
		cfg:       cfg,
		key:       key,
		onLimited: writeLimited,
		now:       time.Now,
		buckets:   make(map[string]*bucket),
		idleAfter: max(cfg.Window, 5*time.Minute),
	}
	for _, opt := range opts {
		opt(rl)
	}
	rl.lastSweep = rl.now()
	return rl
}

// Allow takes one token for key. When none is available it returns false
// and how long until one will be.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	now := rl.now()

	rl.mu.Lock()
	b, ok := rl.buckets[key]
	if !ok {
		perSecond := float64(rl.cfg.RequestsPerWindow) / rl.cfg.Window.Seconds()
		b = &bucket{lim: rate.NewLimiter(rate.Limit(perSecond), rl.cfg.Burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	rl.sweepLocked(now)
	rl.mu.Unlock()

	if b.lim.AllowN(now, 1) {
		return true, 0
	}

	res := b.lim.ReserveN(now, 1)
	delay := res.DelayFrom(now)
	res.CancelAt(now)
	return false, delay
}

// Len returns the number of live buckets.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// sweepLocked drops buckets idle for longer than idleAfter. By then they
// have refilled, so forgetting them changes nothing for the caller.
func (rl *RateLimiter) sweepLocked(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.idleAfter {
		return
	}
	rl.lastSweep = now
	for k, b := range rl.buckets {
		if now.Sub(b.lastSeen) >= rl.idleAfter {
			delete(rl.buckets, k)
		}
	}
}

// Middleware enforces the limit on every request.
func (rl *RateLimiter) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := slogx.FromContext(r.Context())

			key := rl.key(r)
			if key == "" {
				log.Warn("rate limit: unable to extract key, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			ok, delay := rl.Allow(key)
			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(max(int(delay.Seconds()), 1)))
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.cfg.RequestsPerWindow))
				w.Header().Set("X-RateLimit-Window", rl.cfg.Window.String())

				log.Warn("rate limit exceeded",
					"key", key,
					"endpoint", r.URL.Path,
					"retry_after", delay.String(),
				)
				rl.onLimited(w, r, delay)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitMiddleware is shorthand for NewRateLimiter(cfg, key).Middleware().
func RateLimitMiddleware(cfg RateLimitConfig, key KeyExtractor, opts ...RateLimitOption) Middleware {
	return NewRateLimiter(cfg, key, opts...).Middleware()
}

func writeLimited(w http.ResponseWriter, _ *http.Request, _ time.Duration) {
	WriteJSON(w, http.StatusTooManyRequests, map[string]string{
		"error":             "rate_limited",
		"error_description": "Too many requests. Please try again later.",
	})
}
