package authz

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/gatehouse/internal/auth/domain"
	"github.com/aussiebroadwan/gatehouse/pkg/authsdk"
	"github.com/aussiebroadwan/gatehouse/pkg/httpx"
	"github.com/aussiebroadwan/gatehouse/pkg/slogx"
)

// Requirement is what a route demands of its caller.
type Requirement int

const (
	None Requirement = iota
	AnyAuth
	BasicAuth
	TokenAuth
	AdminToken
)

func (r Requirement) String() string {
	switch r {
	case None:
		return "none"
	case AnyAuth:
		return "any_auth"
	case BasicAuth:
		return "basic_auth"
	case TokenAuth:
		return "token_auth"
	case AdminToken:
		return "admin_token"
	default:
		return "unknown"
	}
}

// Policy builds gate pipelines from the credential collaborators.
type Policy struct {
	Credentials CredentialChecker
	Tokens      TokenVerifier
	Realm       string
}

// For returns the pipeline enforcing req.
func (p Policy) For(req Requirement) Pipeline {
	basic := Basic(p.Credentials, p.Realm)
	bearer := Bearer(p.Tokens, p.Realm)

	switch req {
	case None:
		return Pipeline{}
	case AnyAuth:
		return Pipeline{Either(basic, bearer, p.Realm)}
	case BasicAuth:
		return Pipeline{basic}
	case TokenAuth:
		return Pipeline{bearer}
	case AdminToken:
		return Pipeline{bearer, RequireRole(domain.RoleAdmin)}
	default:
		// Unknown requirements deny everything.
		return Pipeline{GateFunc(func(*http.Request, *domain.Claims) (*domain.Claims, error) {
			return nil, &Rejection{Kind: KindForbidden, Reason: "unknown requirement"}
		})}
	}
}

// Middleware is shorthand for p.For(req).Middleware().
func (p Policy) Middleware(req Requirement) httpx.Middleware {
	return p.For(req).Middleware()
}

// Pipeline runs gates left to right.
type Pipeline []Gate

// Evaluate returns the final claims, or the first gate's error. An empty
// pipeline admits anyone with nil claims.
func (p Pipeline) Evaluate(r *http.Request) (*domain.Claims, error) {
	var current *domain.Claims
	for _, g := range p {
		next, err := g.Admit(r, current)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}

// Middleware evaluates the pipeline and either writes the error response or
// calls next with the claims in the request context.
func (p Pipeline) Middleware() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := p.Evaluate(r)
			if err != nil {
				writeRejection(w, r, err)
				return
			}
			if claims == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithClaims(r.Context(), *claims)
			ctx = slogx.With(ctx, "identity", claims.Identity, "scheme", string(claims.Scheme))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeRejection(w http.ResponseWriter, r *http.Request, err error) {
	log := slogx.FromContext(r.Context())

	var rej *Rejection
	if !errors.As(err, &rej) {
		log.Error("authorization failed", slog.Any("err", err))
		authsdk.ErrServerError.WriteError(w)
		return
	}

	log.Warn("request rejected",
		slog.String("kind", rej.Kind.String()),
		slog.String("reason", rej.Reason),
	)

	switch rej.Kind {
	case KindForbidden:
		authsdk.ErrForbidden.WriteError(w)
	default:
		for _, c := range rej.Challenges {
			w.Header().Add("WWW-Authenticate", c)
		}
		authsdk.ErrUnauthorized.WriteError(w)
	}
}
