package httpx

import (
	"context"
	"net/http"
	"strings"
)

// BearerPrefix is the exact, case sensitive scheme prefix accepted in the
// Authorization header.
const BearerPrefix = "Bearer "

// AuthenticateFunc resolves the caller of r and returns the context that
// downstream handlers should see.
type AuthenticateFunc func(r *http.Request) (context.Context, error)

// ErrorWriter renders err for the client.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// BearerToken extracts the token from an Authorization header value. Headers
// without the exact "Bearer " prefix, or with nothing after it, yield false.
func BearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, BearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(BearerPrefix):])
	if token == "" {
		return "", false
	}
	return token, true
}

// Authn runs authenticate for every request. On failure the response carries
// a WWW-Authenticate challenge and the body is produced by onError.
func Authn(authenticate AuthenticateFunc, onError ErrorWriter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, err := authenticate(r)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Authz rejects requests for which check returns an error.
func Authz(check func(ctx context.Context) error, onError ErrorWriter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := check(r.Context()); err != nil {
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
