package http

import (
	"context"
	"net/http"

	"github.com/aussiebroadwan/shopauth/internal/auth/domain"
	"github.com/aussiebroadwan/shopauth/internal/auth/service"
	"github.com/aussiebroadwan/shopauth/pkg/httpx"
	"github.com/aussiebroadwan/shopauth/pkg/slogx"
)

type identityKey struct{}

// IdentityFromContext returns the identity attached by the authentication
// middleware, or nil for anonymous requests.
func IdentityFromContext(ctx context.Context) *domain.Identity {
	id, _ := ctx.Value(identityKey{}).(*domain.Identity)
	return id
}

// requireAuth authenticates the bearer token and attaches the identity, the
// user id for rate limiting and a user scoped logger.
func requireAuth(auth *service.Authenticator) httpx.Middleware {
	return httpx.Authn(func(r *http.Request) (context.Context, error) {
		id, err := auth.Authenticate(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			return nil, err
		}

		ctx := context.WithValue(r.Context(), identityKey{}, id)
		ctx = httpx.WithUserID(ctx, id.UserID)
		ctx = slogx.WithUserID(ctx, id.UserID)
		return ctx, nil
	}, writeServiceError)
}

// requireGuard rejects identities that guard does not allow.
func requireGuard(guard service.Guard) httpx.Middleware {
	return httpx.Authz(func(ctx context.Context) error {
		return guard(IdentityFromContext(ctx))
	}, writeServiceError)
}
