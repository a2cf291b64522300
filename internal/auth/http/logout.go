package http

import (
	"net/http"

	"github.com/aussiebroadwan/gatehouse/internal/auth/authz"
	"github.com/aussiebroadwan/gatehouse/internal/auth/service"
	"github.com/aussiebroadwan/gatehouse/pkg/authsdk"
	"github.com/aussiebroadwan/gatehouse/pkg/slogx"
)

// LogoutHandler serves POST /logout.
type LogoutHandler struct {
	Tokens *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		Logout
//	@Description	Revokes the presented bearer token. Later requests with it get 401.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Success		204	"token revoked"
//	@Failure		401	{object}	authsdk.APIError	"missing, invalid, expired or revoked token"
//	@Router			/logout [post].
func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims, ok := authz.ClaimsFromContext(ctx)
	if !ok {
		authsdk.ErrUnauthorized.WriteError(w)
		return
	}

	if err := h.Tokens.Revoke(ctx, claims); err != nil {
		slogx.FromContext(ctx).Error("logout failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
