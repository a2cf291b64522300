package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/gatehouse/internal/auth/authz"
	"github.com/aussiebroadwan/gatehouse/internal/auth/service"
	"github.com/aussiebroadwan/gatehouse/internal/auth/store"
	"github.com/aussiebroadwan/gatehouse/pkg/authsdk"
	"github.com/aussiebroadwan/gatehouse/pkg/httpx"
	"github.com/aussiebroadwan/gatehouse/pkg/slogx"

	_ "github.com/aussiebroadwan/gatehouse/api/gate" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// DefaultRealm is used in WWW-Authenticate challenges when none is configured.
const DefaultRealm = "gatehouse"

// RouterConfig holds the tunables of the HTTP surface.
type RouterConfig struct {
	BuildVersion string
	Realm        string

	LoginLimit         httpx.RateLimitConfig
	AuthenticatedLimit httpx.RateLimitConfig

	// TrustProxyHeaders keys per-IP limits on X-Forwarded-For and X-Real-IP.
	// Only enable behind a proxy that overwrites those headers.
	TrustProxyHeaders bool
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	cfg       RouterConfig
	startTime time.Time
	logger    *slog.Logger

	store   store.Store
	tokens  *service.TokenService
	policy  authz.Policy
	preAuth *httpx.RateLimiter
	ipKey   httpx.KeyExtractor
}

func NewRouter(cfg RouterConfig, tokens *service.TokenService, st store.Store, logger *slog.Logger) *Router {
	if cfg.Realm == "" {
		cfg.Realm = DefaultRealm
	}
	if !cfg.LoginLimit.Valid() {
		cfg.LoginLimit = httpx.LoginLimit
	}
	if !cfg.AuthenticatedLimit.Valid() {
		cfg.AuthenticatedLimit = httpx.AuthenticatedLimit
	}

	r := &Router{
		Mux:       http.NewServeMux(),
		cfg:       cfg,
		startTime: time.Now(),
		logger:    logger,
		store:     st,
		tokens:    tokens,
		policy: authz.Policy{
			Credentials: tokens.Credentials,
			Tokens:      tokens,
			Realm:       cfg.Realm,
		},
	}

	r.ipKey = httpx.RemoteIPKeyExtractor
	if cfg.TrustProxyHeaders {
		r.ipKey = httpx.IPKeyExtractor
	}

	// Per-IP cap applied before any credential is checked.
	r.preAuth = r.limiter(cfg.AuthenticatedLimit, r.ipKey)

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerProtected()
	r.registerSystem()

	// Known paths hit with the wrong method fall through to these.
	allowed := map[string]string{
		"/login":           http.MethodPost,
		"/logout":          http.MethodPost,
		"/basic-protected": "GET, HEAD",
		"/jwt-protected":   "GET, HEAD",
		"/admin-only":      "GET, HEAD",
		"/whoami":          "GET, HEAD",
		"/livez":           "GET, HEAD",
		"/readyz":          "GET, HEAD",
	}
	for path, allow := range allowed {
		r.Mux.Handle(path, MethodNotAllowedHandler(allow))
	}

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
	r.Mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		authsdk.ErrNotFound.WriteError(w)
	})
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Gatehouse Authentication Service API
//	@version		0.1.0
//	@description	Password login issuing short-lived bearer tokens, HTTP Basic authentication, and role-gated routes.
//
//	@contact.name	AussieBroadWAN Team
//	@contact.url	https://github.com/aussiebroadwan/gatehouse
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host			localhost:8080
//	@BasePath		/
//
//	@schemes		http https
//
//	@securityDefinitions.basic	BasicAuth
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Access token from POST /login. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// protect wraps h with the per-IP limit, the gate for req, then a
// per-caller rate limit.
func (r *Router) protect(h http.Handler, req authz.Requirement, limiter *httpx.RateLimiter) http.Handler {
	return httpx.Chain(h,
		r.preAuth.Middleware(),
		r.policy.Middleware(req),
		limiter.Middleware(),
	)
}

func (r *Router) limiter(cfg httpx.RateLimitConfig, key httpx.KeyExtractor) *httpx.RateLimiter {
	return httpx.NewRateLimiter(cfg, key, httpx.WithLimitedResponse(
		func(w http.ResponseWriter, _ *http.Request, _ time.Duration) {
			authsdk.ErrRateLimited.WriteError(w)
		},
	))
}

func (r *Router) registerAuth() {
	login := &LoginHandler{Tokens: r.tokens}
	r.Mux.Handle("POST /login",
		httpx.Chain(login,
			r.limiter(r.cfg.LoginLimit, r.ipKey).Middleware(),
		),
	)

	logout := &LogoutHandler{Tokens: r.tokens}
	r.Mux.Handle("POST /logout",
		r.protect(logout, authz.TokenAuth, r.limiter(r.cfg.AuthenticatedLimit, authz.IdentityKey)),
	)
}

func (r *Router) registerProtected() {
	// One bucket per caller shared across the protected routes.
	perCaller := r.limiter(r.cfg.AuthenticatedLimit, authz.IdentityKey)

	r.Mux.Handle("GET /basic-protected",
		r.protect(TextHandler("Basic Auth: Access Granted"), authz.BasicAuth, perCaller))
	r.Mux.Handle("GET /jwt-protected",
		r.protect(TextHandler("JWT Auth: Access Granted"), authz.TokenAuth, perCaller))
	r.Mux.Handle("GET /admin-only",
		r.protect(TextHandler("Admin Access: Granted"), authz.AdminToken, perCaller))
	r.Mux.Handle("GET /whoami",
		r.protect(http.HandlerFunc(WhoAmIHandler), authz.AnyAuth, perCaller))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.cfg.BuildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.cfg.BuildVersion, r.store, r.tokens))
}
