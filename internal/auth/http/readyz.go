package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aussiebroadwan/shopauth/internal/auth/store"
	"github.com/aussiebroadwan/shopauth/pkg/authsdk"
	"github.com/aussiebroadwan/shopauth/pkg/httpx"
	"github.com/aussiebroadwan/shopauth/pkg/jwtx"
)

// Pinger is implemented by dependencies that can report their reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Readiness lists what /readyz inspects. Revocations is nil when refresh
// token records live in the database; IdentityProvider is false when flexible
// authentication is off.
type Readiness struct {
	Store            store.Store
	Revocations      Pinger
	Codec            *jwtx.Codec
	IdentityProvider bool
}

// ReadyzHandler godoc
//
//	@Summary		Readiness Check Endpoint
//	@Description	Readiness probe endpoint returning service health status and checks for critical dependencies
//	@Description	Includes the database, the refresh token store, the token codec and the external identity provider
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	authsdk.HealthResponse	"status, uptime, version, checks - service not ready"
//	@Router			/readyz [get].
func ReadyzHandler(startTime time.Time, version string, deps Readiness) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &authsdk.HealthChecks{
			Database:         "ok",
			Revocations:      "ok",
			TokenCodec:       "ok",
			IdentityProvider: "disabled",
		}
		overallStatus := "ok"
		statusCode := http.StatusOK
		fail := func(check *string, msg string) {
			*check = "error: " + msg
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		if err := deps.Store.Ping(r.Context()); err != nil {
			fail(&checks.Database, err.Error())
		}

		if deps.Revocations != nil {
			if err := deps.Revocations.Ping(r.Context()); err != nil {
				fail(&checks.Revocations, err.Error())
			}
		} else {
			checks.Revocations = checks.Database
		}

		if deps.Codec == nil || !deps.Codec.Configured(jwtx.KindAccess) || !deps.Codec.Configured(jwtx.KindRefresh) {
			fail(&checks.TokenCodec, "signing secrets missing")
		}

		if deps.IdentityProvider {
			checks.IdentityProvider = "ok"
		}

		httpx.WriteJSON(w, statusCode, authsdk.HealthResponse{
			Status:  overallStatus,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
