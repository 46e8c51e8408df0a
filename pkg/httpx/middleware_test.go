package httpx_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aussiebroadwan/shopauth/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"Bearer   padded  ", "padded", true},
		{"", "", false},
		{"Bearer ", "", false},
		{"bearer abc", "", false},
		{"Basic dXNlcjpwdw==", "", false},
		{"Bearerabc", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.header, func(t *testing.T) {
			token, ok := httpx.BearerToken(tc.header)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.token, token)
		})
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(okHandler, mark("outer"), nil, mark("inner"))
	serve(h, requestFrom("10.0.0.1:1"))

	require.Equal(t, []string{"outer", "inner"}, order)
}

func TestAuthnAndAuthz(t *testing.T) {
	errDenied := errors.New("denied")
	onError := func(w http.ResponseWriter, r *http.Request, err error) {
		if errors.Is(err, errDenied) {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}

	authenticate := func(r *http.Request) (context.Context, error) {
		token, ok := httpx.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			return nil, errors.New("missing")
		}
		return httpx.WithUserID(r.Context(), token), nil
	}
	onlyAdmin := func(ctx context.Context) error {
		if httpx.UserIDFromContext(ctx) != "admin" {
			return errDenied
		}
		return nil
	}

	h := httpx.Chain(okHandler, httpx.Authn(authenticate, onError), httpx.Authz(onlyAdmin, onError))

	t.Run("Anonymous", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")
	})

	t.Run("WrongRole", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer bob")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("Allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer admin")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	})
}
