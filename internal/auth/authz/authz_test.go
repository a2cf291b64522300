package authz

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aussiebroadwan/gatehouse/internal/auth/domain"
	"github.com/aussiebroadwan/gatehouse/internal/auth/service"
	"github.com/aussiebroadwan/gatehouse/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

type fakeCredentials map[string]domain.User

func (f fakeCredentials) Verify(_ context.Context, username, password string) (domain.User, error) {
	if username == "broken" {
		return domain.User{}, errors.New("directory down")
	}
	u, ok := f[username]
	if !ok || password != "password" {
		return domain.User{}, service.ErrInvalidCredentials
	}
	return u, nil
}

// fakeTokens maps token strings to outcomes.
type fakeTokens map[string]error

func (f fakeTokens) Verify(_ context.Context, token string) (domain.Claims, error) {
	err, ok := f[token]
	if !ok {
		return domain.Claims{}, jwtx.ErrMalformed
	}
	if err != nil {
		return domain.Claims{}, err
	}
	role := domain.RoleUser
	if token == "admin-token" {
		role = domain.RoleAdmin
	}
	return domain.Claims{
		Identity:  token,
		Role:      role,
		Scheme:    domain.SchemeBearer,
		TokenID:   "jti-" + token,
		ExpiresAt: time.Now().Add(time.Minute),
	}, nil
}

func testPolicy() Policy {
	return Policy{
		Credentials: fakeCredentials{
			"user1":  {Username: "user1", Role: domain.RoleUser},
			"admin1": {Username: "admin1", Role: domain.RoleAdmin},
		},
		Tokens: fakeTokens{
			"user-token":    nil,
			"admin-token":   nil,
			"expired":       jwtx.ErrExpired,
			"revoked":       jwtx.ErrRevoked,
			"forged":        jwtx.ErrBadSignature,
			"lookup-failed": errors.New("revocations unavailable"),
		},
		Realm: "test",
	}
}

func basicHeader(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func request(auth string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if auth != "" {
		r.Header.Set("Authorization", auth)
	}
	return r
}

func kindOf(t *testing.T, err error) Kind {
	t.Helper()
	var rej *Rejection
	require.ErrorAs(t, err, &rej)
	return rej.Kind
}

func TestPolicy_Evaluate(t *testing.T) {
	t.Parallel()
	p := testPolicy()

	tests := []struct {
		name     string
		req      Requirement
		auth     string
		wantKind Kind // zero means admitted
		wantRole domain.Role
	}{
		{"none admits anonymous", None, "", 0, ""},

		{"basic ok", BasicAuth, basicHeader("user1", "password"), 0, domain.RoleUser},
		{"basic admin still gets user role", BasicAuth, basicHeader("admin1", "password"), 0, domain.RoleUser},
		{"basic wrong password", BasicAuth, basicHeader("user1", "nope"), KindUnauthorized, ""},
		{"basic unknown user", BasicAuth, basicHeader("ghost", "password"), KindUnauthorized, ""},
		{"basic missing", BasicAuth, "", KindUnauthorized, ""},
		{"basic garbage", BasicAuth, "Basic !!!", KindUnauthorized, ""},
		{"basic no colon", BasicAuth, "Basic " + base64.StdEncoding.EncodeToString([]byte("user1")), KindUnauthorized, ""},
		{"basic given bearer", BasicAuth, "Bearer user-token", KindUnauthorized, ""},

		{"token ok", TokenAuth, "Bearer user-token", 0, domain.RoleUser},
		{"token scheme case-insensitive", TokenAuth, "bearer user-token", 0, domain.RoleUser},
		{"token missing", TokenAuth, "", KindUnauthorized, ""},
		{"token empty", TokenAuth, "Bearer ", KindUnauthorized, ""},
		{"token expired", TokenAuth, "Bearer expired", KindUnauthorized, ""},
		{"token revoked", TokenAuth, "Bearer revoked", KindUnauthorized, ""},
		{"token forged", TokenAuth, "Bearer forged", KindUnauthorized, ""},
		{"token malformed", TokenAuth, "Bearer what", KindUnauthorized, ""},
		{"token given basic", TokenAuth, basicHeader("user1", "password"), KindUnauthorized, ""},

		{"admin ok", AdminToken, "Bearer admin-token", 0, domain.RoleAdmin},
		{"admin as user", AdminToken, "Bearer user-token", KindForbidden, ""},
		{"admin unauthenticated", AdminToken, "", KindUnauthorized, ""},
		{"admin expired is 401 not 403", AdminToken, "Bearer expired", KindUnauthorized, ""},
		{"admin via basic is 401", AdminToken, basicHeader("admin1", "password"), KindUnauthorized, ""},

		{"any via basic", AnyAuth, basicHeader("user1", "password"), 0, domain.RoleUser},
		{"any via bearer", AnyAuth, "Bearer admin-token", 0, domain.RoleAdmin},
		{"any missing", AnyAuth, "", KindUnauthorized, ""},
		{"any unknown scheme", AnyAuth, "Digest abc", KindUnauthorized, ""},

		{"unknown requirement denies", Requirement(99), "Bearer admin-token", KindForbidden, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := p.For(tt.req).Evaluate(request(tt.auth))
			if tt.wantKind != 0 {
				require.Equal(t, tt.wantKind, kindOf(t, err))
				require.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			if tt.req == None {
				require.Nil(t, claims)
				return
			}
			require.NotNil(t, claims)
			require.Equal(t, tt.wantRole, claims.Role)
		})
	}
}

func TestPolicy_InternalErrorsAreNotRejections(t *testing.T) {
	t.Parallel()
	p := testPolicy()

	_, err := p.For(TokenAuth).Evaluate(request("Bearer lookup-failed"))
	require.Error(t, err)
	var rej *Rejection
	require.False(t, errors.As(err, &rej))

	_, err = p.For(BasicAuth).Evaluate(request(basicHeader("broken", "password")))
	require.Error(t, err)
	require.False(t, errors.As(err, &rej))
}

func TestPipeline_ShortCircuits(t *testing.T) {
	t.Parallel()

	var ran []string
	gate := func(name string, fail bool) Gate {
		return GateFunc(func(_ *http.Request, c *domain.Claims) (*domain.Claims, error) {
			ran = append(ran, name)
			if fail {
				return nil, unauthorized(name)
			}
			return &domain.Claims{Identity: name}, nil
		})
	}

	claims, err := Pipeline{gate("a", false), gate("b", true), gate("c", false)}.Evaluate(request(""))
	require.Error(t, err)
	require.Nil(t, claims)
	require.Equal(t, []string{"a", "b"}, ran)
}

func TestMiddleware_Responses(t *testing.T) {
	t.Parallel()
	p := testPolicy()

	var handlerRan bool
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerRan = true
		c, ok := ClaimsFromContext(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(c.Identity))
	})

	serve := func(req Requirement, auth string) *httptest.ResponseRecorder {
		handlerRan = false
		rec := httptest.NewRecorder()
		p.Middleware(req)(handler).ServeHTTP(rec, request(auth))
		return rec
	}

	t.Run("basic challenge on 401", func(t *testing.T) {
		rec := serve(BasicAuth, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.False(t, handlerRan)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), `Basic realm="test"`)
		require.JSONEq(t, `{"error":"unauthorized","error_description":"authentication required"}`, rec.Body.String())
	})

	t.Run("any-auth offers both schemes", func(t *testing.T) {
		rec := serve(AnyAuth, "")
		require.Len(t, rec.Header().Values("WWW-Authenticate"), 2)
	})

	t.Run("bearer failures look identical", func(t *testing.T) {
		expired := serve(TokenAuth, "Bearer expired")
		forged := serve(TokenAuth, "Bearer forged")
		require.Equal(t, http.StatusUnauthorized, expired.Code)
		require.Equal(t, expired.Body.String(), forged.Body.String())
		require.Contains(t, expired.Header().Get("WWW-Authenticate"), `error="invalid_token"`)
	})

	t.Run("forbidden has no challenge", func(t *testing.T) {
		rec := serve(AdminToken, "Bearer user-token")
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Empty(t, rec.Header().Get("WWW-Authenticate"))
		require.False(t, handlerRan)
	})

	t.Run("internal error is 500", func(t *testing.T) {
		rec := serve(TokenAuth, "Bearer lookup-failed")
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.NotContains(t, rec.Body.String(), "revocations unavailable")
	})

	t.Run("admitted request sees claims", func(t *testing.T) {
		rec := serve(AdminToken, "Bearer admin-token")
		require.Equal(t, http.StatusOK, rec.Code)
		require.True(t, handlerRan)
		require.Equal(t, "admin-token", rec.Body.String())
	})
}

func TestIdentityKey(t *testing.T) {
	t.Parallel()

	r := request("")
	require.Empty(t, IdentityKey(r))

	r = r.WithContext(WithClaims(r.Context(), domain.Claims{Identity: "user1", Scheme: domain.SchemeBasic}))
	require.Equal(t, "basic:user1", IdentityKey(r))
}
