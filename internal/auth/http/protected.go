package http

import (
	"net/http"

	"github.com/aussiebroadwan/gatehouse/internal/auth/authz"
	"github.com/aussiebroadwan/gatehouse/pkg/authsdk"
	"github.com/aussiebroadwan/gatehouse/pkg/httpx"
)

// TextHandler answers with a fixed plain text body. It only runs once the
// route's gate has admitted the caller.
//
//	@Summary		Protected resources
//	@Description	/basic-protected needs Basic credentials, /jwt-protected a bearer token, /admin-only an admin bearer token.
//	@Tags			Protected
//	@Produce		plain
//	@Security		BasicAuth
//	@Security		BearerAuth
//	@Success		200	{string}	string				"access granted"
//	@Failure		401	{object}	authsdk.APIError	"not authenticated"
//	@Failure		403	{object}	authsdk.APIError	"authenticated but not an admin"
//	@Router			/basic-protected [get]
//	@Router			/jwt-protected [get]
//	@Router			/admin-only [get].
func TextHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteText(w, http.StatusOK, body)
	})
}

// WhoAmIHandler godoc
//
//	@Summary		Describe the caller
//	@Description	Returns the identity, role and scheme the service established for this request.
//	@Tags			Protected
//	@Produce		json
//	@Security		BasicAuth
//	@Security		BearerAuth
//	@Success		200	{object}	authsdk.WhoAmIResponse
//	@Failure		401	{object}	authsdk.APIError	"not authenticated"
//	@Router			/whoami [get].
func WhoAmIHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := authz.ClaimsFromContext(r.Context())
	if !ok {
		authsdk.ErrUnauthorized.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.WhoAmIResponse{
		Identity: claims.Identity,
		Role:     claims.Role.String(),
		Scheme:   string(claims.Scheme),
	})
}

// MethodNotAllowedHandler answers 405 with the route's Allow list.
func MethodNotAllowedHandler(allow string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Allow", allow)
		authsdk.ErrMethodNotAllowed.WriteError(w)
	})
}
