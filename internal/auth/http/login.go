package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/gatehouse/internal/auth/service"
	"github.com/aussiebroadwan/gatehouse/pkg/authsdk"
	"github.com/aussiebroadwan/gatehouse/pkg/httpx"
	"github.com/aussiebroadwan/gatehouse/pkg/slogx"
)

// LoginHandler serves POST /login.
type LoginHandler struct {
	Tokens *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		Password login
//	@Description	Exchanges a username and password for a bearer access token carrying the user's role.
//	@Description	Wrong password and unknown user produce the same 401.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.TokenResponse	"access_token, token_type, expires_in"
//	@Failure		400		{object}	authsdk.APIError		"malformed body or missing field"
//	@Failure		401		{object}	authsdk.APIError		"invalid credentials"
//	@Failure		429		{object}	authsdk.APIError		"rate limited"
//	@Header			200		{string}	Cache-Control			"no-store"
//	@Router			/login [post].
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		authsdk.ErrBadRequest.WithDescription("request body must be a JSON object").WriteError(w)
		return
	}

	tok, err := h.Tokens.Login(ctx, req.Username, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrBadRequest):
		authsdk.ErrBadRequest.WithDescription("username and password are required").WriteError(w)
		return
	case errors.Is(err, service.ErrInvalidCredentials):
		authsdk.ErrUnauthorized.WithDescription("invalid username or password").WriteError(w)
		return
	default:
		log.Error("login failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.TokenResponse{
		AccessToken: tok.Token,
		TokenType:   tok.TokenType,
		ExpiresIn:   int(tok.ExpiresIn.Seconds()),
	})
}
