package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/gatehouse/internal/auth/service"
	"github.com/aussiebroadwan/gatehouse/internal/auth/store"
	"github.com/aussiebroadwan/gatehouse/pkg/authsdk"
	"github.com/aussiebroadwan/gatehouse/pkg/httpx"
)

// ReadyzHandler godoc
//
//	@Summary		Readiness Check Endpoint
//	@Description	Readiness probe checking the store, the token signer and the user directory.
//	@Description	An empty directory is reported but does not fail readiness.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	authsdk.HealthResponse	"status, uptime, version, checks - service not ready"
//	@Router			/readyz [get].
func ReadyzHandler(
	startTime time.Time,
	version string,
	st store.Store,
	tokens *service.TokenService,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		checks := map[string]string{
			"store":     "ok",
			"signer":    "ok",
			"directory": "ok",
		}
		overallStatus := "ok"
		statusCode := http.StatusOK

		if err := st.Ping(ctx); err != nil {
			checks["store"] = "error: unavailable"
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		} else if n, err := st.Users().Count(ctx); err != nil {
			checks["directory"] = "error: unavailable"
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		} else if n == 0 {
			checks["directory"] = "empty"
		}

		if err := tokens.Codec.Signer().Validate(); err != nil {
			checks["signer"] = "error: not ready"
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		httpx.WriteJSON(w, statusCode, authsdk.HealthResponse{
			Status:  overallStatus,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
