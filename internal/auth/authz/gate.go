package authz

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/gatehouse/internal/auth/domain"
	"github.com/aussiebroadwan/gatehouse/internal/auth/service"
	"github.com/aussiebroadwan/gatehouse/pkg/jwtx"
)

// Kind classifies a rejection for the response.
type Kind int

const (
	KindUnauthorized Kind = iota + 1
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Rejection is a gate's refusal. Reason is for logs only and never reaches
// the client.
type Rejection struct {
	Kind       Kind
	Challenges []string // WWW-Authenticate values, 401 only
	Reason     string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("authz: %s: %s", r.Kind, r.Reason)
}

func unauthorized(reason string, challenges ...string) *Rejection {
	return &Rejection{Kind: KindUnauthorized, Challenges: challenges, Reason: reason}
}

// Gate is one step of an authorization pipeline. It receives the claims
// established so far (nil if none) and returns the claims to carry forward.
// A *Rejection error denies the request; any other error is internal.
type Gate interface {
	Admit(r *http.Request, current *domain.Claims) (*domain.Claims, error)
}

// GateFunc adapts a function to Gate.
type GateFunc func(r *http.Request, current *domain.Claims) (*domain.Claims, error)

func (f GateFunc) Admit(r *http.Request, current *domain.Claims) (*domain.Claims, error) {
	return f(r, current)
}

// CredentialChecker verifies a username and password.
type CredentialChecker interface {
	Verify(ctx context.Context, username, password string) (domain.User, error)
}

// TokenVerifier verifies a bearer token.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (domain.Claims, error)
}

// Basic admits requests carrying valid HTTP Basic credentials. The claims
// carry role user whatever the directory says; only bearer tokens carry the
// directory role.
func Basic(v CredentialChecker, realm string) Gate {
	challenge := fmt.Sprintf("Basic realm=%q, charset=\"UTF-8\"", realm)

	return GateFunc(func(r *http.Request, _ *domain.Claims) (*domain.Claims, error) {
		payload, ok := credentials(r, "Basic")
		if !ok {
			return nil, unauthorized("missing basic credentials", challenge)
		}

		raw, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, unauthorized("undecodable basic credentials", challenge)
		}
		username, password, ok := strings.Cut(string(raw), ":")
		if !ok || username == "" {
			return nil, unauthorized("malformed basic credentials", challenge)
		}

		user, err := v.Verify(r.Context(), username, password)
		if err != nil {
			if errors.Is(err, service.ErrInvalidCredentials) {
				return nil, unauthorized("invalid credentials", challenge)
			}
			return nil, err
		}

		return &domain.Claims{
			Identity: user.Username,
			Role:     domain.RoleUser,
			Scheme:   domain.SchemeBasic,
		}, nil
	})
}

// Bearer admits requests carrying a valid bearer token. Every codec
// rejection (malformed, forged, revoked, expired) is a 401.
func Bearer(v TokenVerifier, realm string) Gate {
	missing := fmt.Sprintf("Bearer realm=%q", realm)
	invalid := fmt.Sprintf("Bearer realm=%q, error=\"invalid_token\"", realm)

	return GateFunc(func(r *http.Request, _ *domain.Claims) (*domain.Claims, error) {
		token, ok := credentials(r, "Bearer")
		if !ok {
			return nil, unauthorized("missing bearer token", missing)
		}

		claims, err := v.Verify(r.Context(), token)
		if err != nil {
			if reason, ok := tokenReason(err); ok {
				return nil, unauthorized(reason, invalid)
			}
			return nil, err
		}

		return &claims, nil
	})
}

// Either picks Basic or Bearer from the Authorization header's scheme. With
// no usable header it asks for either.
func Either(basic, bearer Gate, realm string) Gate {
	return GateFunc(func(r *http.Request, current *domain.Claims) (*domain.Claims, error) {
		switch scheme(r) {
		case "basic":
			return basic.Admit(r, current)
		case "bearer":
			return bearer.Admit(r, current)
		default:
			return nil, unauthorized("no supported credentials",
				fmt.Sprintf("Basic realm=%q, charset=\"UTF-8\"", realm),
				fmt.Sprintf("Bearer realm=%q", realm),
			)
		}
	})
}

// RequireRole admits callers already authenticated with exactly role.
func RequireRole(role domain.Role) Gate {
	return GateFunc(func(_ *http.Request, current *domain.Claims) (*domain.Claims, error) {
		if current == nil {
			return nil, unauthorized("role check before authentication")
		}
		if !current.HasRole(role) {
			return nil, &Rejection{
				Kind:   KindForbidden,
				Reason: fmt.Sprintf("role %q required, caller has %q", role, current.Role),
			}
		}
		return current, nil
	})
}

func tokenReason(err error) (string, bool) {
	switch {
	case errors.Is(err, jwtx.ErrMalformed):
		return "malformed token", true
	case errors.Is(err, jwtx.ErrBadSignature):
		return "bad signature", true
	case errors.Is(err, jwtx.ErrRevoked):
		return "revoked token", true
	case errors.Is(err, jwtx.ErrExpired):
		return "expired token", true
	default:
		return "", false
	}
}

// scheme returns the lowercased auth scheme of the Authorization header.
func scheme(r *http.Request) string {
	s, _, _ := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	return strings.ToLower(s)
}

// credentials returns the payload after want in the Authorization header.
// Scheme matching is case-insensitive.
func credentials(r *http.Request, want string) (string, bool) {
	s, payload, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(s, want) {
		return "", false
	}
	payload = strings.TrimSpace(payload)
	return payload, payload != ""
}
