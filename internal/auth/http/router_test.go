package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	authhttp "github.com/aussiebroadwan/shopauth/internal/auth/http"
	"github.com/aussiebroadwan/shopauth/internal/auth/metrics"
	"github.com/aussiebroadwan/shopauth/internal/auth/service"
	"github.com/aussiebroadwan/shopauth/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/shopauth/pkg/authsdk"
	"github.com/aussiebroadwan/shopauth/pkg/httpx"
	"github.com/aussiebroadwan/shopauth/pkg/jwtx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router *authhttp.Router
	store  *sqlite.Store
	ip     string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	st, err := sqlite.NewStore(sqlite.MemoryPath)
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	codec := jwtx.NewCodec(jwtx.Options{
		AccessSecret:  []byte("router-test-access-secret"),
		RefreshSecret: []byte("router-test-refresh-secret"),
	})
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := authhttp.NewRouter("test", logger)
	r.AuthService = &service.AuthService{Store: st, Codec: codec, Observer: collector}
	r.Authenticator = &service.Authenticator{
		Verifier: &service.PrimaryVerifier{Codec: codec, Users: st.Users()},
		Observer: collector,
	}
	r.Readiness = authhttp.Readiness{Store: st, Codec: codec}
	r.Metrics = collector
	r.Gatherer = reg
	r.ApplyRoutes()

	return &testServer{router: r, store: st, ip: "203.0.113.10"}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		buf = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		buf = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", s.ip)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func requireError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	body := decode[authsdk.ErrorResponse](t, rec)
	require.False(t, body.Success)
	require.Equal(t, code, body.Code)
	require.NotEmpty(t, body.Error)
}

func (s *testServer) register(t *testing.T, email, role string) authsdk.AuthResponse {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/jwt-auth/register", "", authsdk.RegisterRequest{
		Email: email, Password: "secret1", Name: "User " + email, Role: role,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[authsdk.AuthResponse](t, rec)
}

func TestRegisterEndpoint(t *testing.T) {
	s := newTestServer(t)

	auth := s.register(t, "alice@example.com", "")
	require.True(t, auth.Success)
	require.Equal(t, "User registered successfully", auth.Message)
	require.Equal(t, "alice@example.com", auth.Data.User.Email)
	require.Equal(t, "customer", auth.Data.User.Role)
	require.True(t, auth.Data.User.IsActive)
	require.NotEmpty(t, auth.Data.User.UID)
	require.Equal(t, 900, auth.Data.Tokens.ExpiresIn)
	require.Equal(t, "Bearer", auth.Data.Tokens.TokenType)

	rec := s.do(t, http.MethodPost, "/api/jwt-auth/register", "", authsdk.RegisterRequest{
		Email: "ALICE@example.com", Password: "secret1", Name: "Again",
	})
	requireError(t, rec, http.StatusConflict, authsdk.ErrorCodeUserExists)

	rec = s.do(t, http.MethodPost, "/api/jwt-auth/register", "", authsdk.RegisterRequest{
		Email: "bob@example.com", Password: "123", Name: "Bob",
	})
	requireError(t, rec, http.StatusBadRequest, authsdk.ErrorCodeValidationFailed)
	require.Contains(t, decode[authsdk.ErrorResponse](t, rec).Details, "password")

	rec = s.do(t, http.MethodPost, "/api/jwt-auth/register", "", "{not json")
	requireError(t, rec, http.StatusBadRequest, authsdk.ErrorCodeValidationFailed)
}

func TestLoginEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "carol@example.com", "")

	rec := s.do(t, http.MethodPost, "/api/jwt-auth/login", "", authsdk.LoginRequest{Email: "carol@example.com", Password: "secret1"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	auth := decode[authsdk.AuthResponse](t, rec)
	require.Equal(t, "Login successful", auth.Message)
	require.NotEmpty(t, auth.Data.Tokens.RefreshToken)

	rec = s.do(t, http.MethodPost, "/api/jwt-auth/login", "", authsdk.LoginRequest{Email: "carol@example.com", Password: "wrong-one"})
	requireError(t, rec, http.StatusUnauthorized, authsdk.ErrorCodeInvalidCredentials)

	rec = s.do(t, http.MethodPost, "/api/jwt-auth/login", "", authsdk.LoginRequest{Email: "nobody@example.com", Password: "secret1"})
	requireError(t, rec, http.StatusUnauthorized, authsdk.ErrorCodeInvalidCredentials)
}

func TestLoginRateLimit(t *testing.T) {
	s := newTestServer(t)

	for range httpx.StrictLimit.Burst {
		rec := s.do(t, http.MethodPost, "/api/jwt-auth/login", "", authsdk.LoginRequest{Email: "dan@example.com", Password: "wrong-one"})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec := s.do(t, http.MethodPost, "/api/jwt-auth/login", "", authsdk.LoginRequest{Email: "dan@example.com", Password: "wrong-one"})
	requireError(t, rec, http.StatusTooManyRequests, authsdk.ErrorCodeRateLimited)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Another email from the same address has its own bucket.
	rec = s.do(t, http.MethodPost, "/api/jwt-auth/login", "", authsdk.LoginRequest{Email: "eve@example.com", Password: "wrong-one"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshAndLogoutEndpoints(t *testing.T) {
	s := newTestServer(t)
	auth := s.register(t, "fay@example.com", "")
	first := auth.Data.Tokens.RefreshToken

	rec := s.do(t, http.MethodPost, "/api/jwt-auth/refresh", "", authsdk.RefreshRequest{RefreshToken: first})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	next := decode[authsdk.RefreshResponse](t, rec).Data.Tokens

	rec = s.do(t, http.MethodPost, "/api/jwt-auth/refresh", "", authsdk.RefreshRequest{RefreshToken: first})
	requireError(t, rec, http.StatusUnauthorized, authsdk.ErrorCodeTokenRevoked)

	rec = s.do(t, http.MethodPost, "/api/jwt-auth/refresh", "", authsdk.RefreshRequest{})
	requireError(t, rec, http.StatusBadRequest, authsdk.ErrorCodeValidationFailed)

	rec = s.do(t, http.MethodPost, "/api/jwt-auth/refresh", "", authsdk.RefreshRequest{RefreshToken: next.AccessToken})
	requireError(t, rec, http.StatusUnauthorized, authsdk.ErrorCodeTokenInvalid)

	for _, body := range []any{
		authsdk.RefreshRequest{RefreshToken: "garbage"},
		"{broken",
		nil,
		authsdk.RefreshRequest{RefreshToken: next.RefreshToken},
	} {
		rec = s.do(t, http.MethodPost, "/api/jwt-auth/logout", "", body)
		require.Equal(t, http.StatusOK, rec.Code)
		require.True(t, decode[authsdk.MessageResponse](t, rec).Success)
	}

	rec = s.do(t, http.MethodPost, "/api/jwt-auth/refresh", "", authsdk.RefreshRequest{RefreshToken: next.RefreshToken})
	requireError(t, rec, http.StatusUnauthorized, authsdk.ErrorCodeTokenRevoked)
}

func TestProfileEndpoint(t *testing.T) {
	s := newTestServer(t)
	auth := s.register(t, "gus@example.com", "")

	rec := s.do(t, http.MethodGet, "/api/jwt-auth/profile", "", nil)
	requireError(t, rec, http.StatusUnauthorized, authsdk.ErrorCodeTokenMissing)
	require.Equal(t, `Bearer realm="api"`, rec.Header().Get("WWW-Authenticate"))

	rec = s.do(t, http.MethodGet, "/api/jwt-auth/profile", "not-a-token", nil)
	requireError(t, rec, http.StatusUnauthorized, authsdk.ErrorCodeTokenInvalid)

	rec = s.do(t, http.MethodGet, "/api/jwt-auth/profile", auth.Data.Tokens.RefreshToken, nil)
	requireError(t, rec, http.StatusUnauthorized, authsdk.ErrorCodeTokenInvalid)

	rec = s.do(t, http.MethodGet, "/api/jwt-auth/profile", auth.Data.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	user := decode[authsdk.UserResponse](t, rec).Data.User
	require.Equal(t, auth.Data.User.UID, user.UID)
	require.NotNil(t, user.CreatedAt)
	require.Nil(t, user.LastLogin)
}

func TestLogoutAllEndpoint(t *testing.T) {
	s := newTestServer(t)
	auth := s.register(t, "hal@example.com", "")

	rec := s.do(t, http.MethodPost, "/api/jwt-auth/logout-all", "", nil)
	requireError(t, rec, http.StatusUnauthorized, authsdk.ErrorCodeTokenMissing)

	rec = s.do(t, http.MethodPost, "/api/jwt-auth/logout-all", auth.Data.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/jwt-auth/refresh", "", authsdk.RefreshRequest{RefreshToken: auth.Data.Tokens.RefreshToken})
	requireError(t, rec, http.StatusUnauthorized, authsdk.ErrorCodeTokenRevoked)
}

func TestAdminUserStatusEndpoint(t *testing.T) {
	s := newTestServer(t)
	admin := s.register(t, "root@example.com", "admin")
	customer := s.register(t, "ida@example.com", "")
	path := "/api/jwt-auth/admin/users/" + customer.Data.User.UID + "/status"
	off := false

	rec := s.do(t, http.MethodPatch, path, customer.Data.Tokens.AccessToken, authsdk.SetUserStatusRequest{IsActive: &off})
	requireError(t, rec, http.StatusForbidden, authsdk.ErrorCodeInsufficientPermissions)

	rec = s.do(t, http.MethodPatch, path, admin.Data.Tokens.AccessToken, map[string]any{})
	requireError(t, rec, http.StatusBadRequest, authsdk.ErrorCodeValidationFailed)

	rec = s.do(t, http.MethodPatch, "/api/jwt-auth/admin/users/not-a-user-id/status", admin.Data.Tokens.AccessToken, authsdk.SetUserStatusRequest{IsActive: &off})
	requireError(t, rec, http.StatusBadRequest, authsdk.ErrorCodeValidationFailed)

	rec = s.do(t, http.MethodPatch, "/api/jwt-auth/admin/users/01HZX3K5V4M8Q2R7T9W0Y1Z2A3/status", admin.Data.Tokens.AccessToken, authsdk.SetUserStatusRequest{IsActive: &off})
	requireError(t, rec, http.StatusNotFound, authsdk.ErrorCodeUserNotFound)

	rec = s.do(t, http.MethodPatch, path, admin.Data.Tokens.AccessToken, authsdk.SetUserStatusRequest{IsActive: &off})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.False(t, decode[authsdk.UserResponse](t, rec).Data.User.IsActive)

	// The customer's outstanding access token stops working at once.
	rec = s.do(t, http.MethodGet, "/api/jwt-auth/profile", customer.Data.Tokens.AccessToken, nil)
	requireError(t, rec, http.StatusForbidden, authsdk.ErrorCodeAccountDeactivated)

	rec = s.do(t, http.MethodPost, "/api/jwt-auth/refresh", "", authsdk.RefreshRequest{RefreshToken: customer.Data.Tokens.RefreshToken})
	requireError(t, rec, http.StatusUnauthorized, authsdk.ErrorCodeTokenRevoked)
}

func TestSystemEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/livez", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", decode[authsdk.HealthResponse](t, rec).Status)

	rec = s.do(t, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode[authsdk.HealthResponse](t, rec)
	require.Equal(t, "ok", health.Checks.Database)
	require.Equal(t, "ok", health.Checks.TokenCodec)
	require.Equal(t, "disabled", health.Checks.IdentityProvider)

	rec = s.do(t, http.MethodGet, "/nowhere", "", nil)
	requireError(t, rec, http.StatusNotFound, authsdk.ErrorCodeNotFound)

	rec = s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "shopauth_http_requests_total")

	require.NoError(t, s.store.Close())
	rec = s.do(t, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, decode[authsdk.HealthResponse](t, rec).Checks.Database, "error")
}
