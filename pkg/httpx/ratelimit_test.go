package httpx_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/shopauth/pkg/httpx"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func requestFrom(addr string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = addr
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIPKeyExtractor(t *testing.T) {
	t.Run("RemoteAddr", func(t *testing.T) {
		require.Equal(t, "192.168.1.1", httpx.IPKeyExtractor(requestFrom("192.168.1.1:12345")))
	})

	t.Run("ForwardedForFirstHop", func(t *testing.T) {
		req := requestFrom("192.168.1.1:12345")
		req.Header.Set("X-Forwarded-For", "203.0.113.1, 192.168.1.1")
		require.Equal(t, "203.0.113.1", httpx.IPKeyExtractor(req))
	})

	t.Run("RealIP", func(t *testing.T) {
		req := requestFrom("192.168.1.1:12345")
		req.Header.Set("X-Real-IP", "203.0.113.2")
		require.Equal(t, "203.0.113.2", httpx.IPKeyExtractor(req))
	})

	t.Run("UnsplittableRemoteAddr", func(t *testing.T) {
		require.Equal(t, "pipe", httpx.IPKeyExtractor(requestFrom("pipe")))
	})
}

func TestJSONFieldKeyExtractor(t *testing.T) {
	extract := httpx.JSONFieldKeyExtractor("email")

	t.Run("ReadsFieldAndRestoresBody", func(t *testing.T) {
		body := `{"email":" Alice@Example.com ","password":"secret"}`
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

		require.Equal(t, "alice@example.com", extract(req))

		rest, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		require.JSONEq(t, body, string(rest))
	})

	t.Run("NonJSONBody", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("email=alice"))
		require.Empty(t, extract(req))
	})

	t.Run("FieldNotAString", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":42}`))
		require.Empty(t, extract(req))
	})
}

func TestCompositeKeyExtractor(t *testing.T) {
	req := requestFrom("192.168.1.1:12345")
	req = req.WithContext(httpx.WithUserID(req.Context(), "01USER"))

	extract := httpx.CompositeKeyExtractor(":", httpx.UserIDKeyExtractor, httpx.IPKeyExtractor)
	require.Equal(t, "01USER:192.168.1.1", extract(req))

	anonymous := requestFrom("192.168.1.1:12345")
	require.Equal(t, "192.168.1.1", extract(anonymous))
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("BlocksOnceBurstIsSpent", func(t *testing.T) {
		cfg := httpx.RateLimitConfig{RequestsPerWindow: 3, Window: time.Minute, Burst: 3}
		h := httpx.RateLimitMiddleware(cfg, httpx.IPKeyExtractor)(okHandler)

		for i := range 3 {
			rec := serve(h, requestFrom("192.168.1.1:12345"))
			require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
		}

		rec := serve(h, requestFrom("192.168.1.1:12345"))
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.NotEmpty(t, rec.Header().Get("Retry-After"))
	})

	t.Run("KeysAreIndependent", func(t *testing.T) {
		cfg := httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1}
		h := httpx.RateLimitByIP(cfg)(okHandler)

		require.Equal(t, http.StatusOK, serve(h, requestFrom("10.0.0.1:1")).Code)
		require.Equal(t, http.StatusTooManyRequests, serve(h, requestFrom("10.0.0.1:1")).Code)
		require.Equal(t, http.StatusOK, serve(h, requestFrom("10.0.0.2:1")).Code)
	})

	t.Run("EmptyKeyIsNotLimited", func(t *testing.T) {
		cfg := httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1}
		h := httpx.RateLimitMiddleware(cfg, func(*http.Request) string { return "" })(okHandler)

		for range 3 {
			require.Equal(t, http.StatusOK, serve(h, requestFrom("10.0.0.1:1")).Code)
		}
	})

	t.Run("RejectionEnvelope", func(t *testing.T) {
		cfg := httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1}
		h := httpx.RateLimitByIP(cfg)(okHandler)

		serve(h, requestFrom("10.0.0.9:1"))
		rec := serve(h, requestFrom("10.0.0.9:1"))

		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))
		require.Equal(t, "1m0s", rec.Header().Get("X-RateLimit-Window"))
		require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

		var body struct {
			Success bool   `json:"success"`
			Error   string `json:"error"`
			Code    string `json:"code"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.False(t, body.Success)
		require.Equal(t, "RATE_LIMITED", body.Code)
		require.NotEmpty(t, body.Error)
	})
}

func TestRateLimitByIPAndJSONField(t *testing.T) {
	cfg := httpx.RateLimitConfig{RequestsPerWindow: 2, Window: time.Minute, Burst: 2}
	h := httpx.RateLimitByIPAndJSONField(cfg, "email")(okHandler)

	login := func(email string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"`+email+`"}`))
		req.RemoteAddr = "192.168.1.1:12345"
		return serve(h, req)
	}

	require.Equal(t, http.StatusOK, login("alice@x.io").Code)
	require.Equal(t, http.StatusOK, login("ALICE@x.io").Code)
	require.Equal(t, http.StatusTooManyRequests, login("alice@x.io").Code)
	require.Equal(t, http.StatusOK, login("bob@x.io").Code)
}

func TestRateLimitByUser(t *testing.T) {
	cfg := httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1}
	h := httpx.RateLimitByUser(cfg)(okHandler)

	as := func(user string) *http.Request {
		req := requestFrom("10.0.0.1:1")
		return req.WithContext(httpx.WithUserID(req.Context(), user))
	}

	require.Equal(t, http.StatusOK, serve(h, as("u1")).Code)
	require.Equal(t, http.StatusTooManyRequests, serve(h, as("u1")).Code)
	require.Equal(t, http.StatusOK, serve(h, as("u2")).Code)
}

func TestRateLimitProfiles(t *testing.T) {
	ordered := []httpx.RateLimitConfig{httpx.StrictLimit, httpx.ModerateLimit, httpx.LenientLimit, httpx.PublicLimit}
	for i, cfg := range ordered {
		require.Positive(t, cfg.RequestsPerWindow)
		require.Positive(t, cfg.Burst)
		require.Positive(t, cfg.Window)
		if i > 0 {
			require.Less(t, ordered[i-1].RequestsPerWindow, cfg.RequestsPerWindow)
		}
	}

	require.Equal(t, 12*time.Second, httpx.RateLimitConfig{RequestsPerWindow: 5, Window: time.Minute}.Every())
}

func TestParseRateLimitFromEnv(t *testing.T) {
	def := httpx.RateLimitConfig{RequestsPerWindow: 10, Window: time.Minute, Burst: 10}

	t.Run("Defaults", func(t *testing.T) {
		require.Equal(t, def, httpx.ParseRateLimitFromEnv("SHOPAUTH_TEST", def))
	})

	t.Run("Overrides", func(t *testing.T) {
		t.Setenv("RATELIMIT_SHOPAUTH_TEST_REQUESTS", "200")
		t.Setenv("RATELIMIT_SHOPAUTH_TEST_WINDOW_SEC", "30")
		t.Setenv("RATELIMIT_SHOPAUTH_TEST_BURST", "250")

		got := httpx.ParseRateLimitFromEnv("SHOPAUTH_TEST", def)
		require.Equal(t, httpx.RateLimitConfig{RequestsPerWindow: 200, Window: 30 * time.Second, Burst: 250}, got)
	})

	t.Run("InvalidAndZeroKeepDefaults", func(t *testing.T) {
		t.Setenv("RATELIMIT_SHOPAUTH_TEST_REQUESTS", "invalid")
		t.Setenv("RATELIMIT_SHOPAUTH_TEST_WINDOW_SEC", "-10")
		t.Setenv("RATELIMIT_SHOPAUTH_TEST_BURST", "0")

		require.Equal(t, def, httpx.ParseRateLimitFromEnv("SHOPAUTH_TEST", def))
	})
}

func BenchmarkRateLimitManyIPs(b *testing.B) {
	cfg := httpx.RateLimitConfig{RequestsPerWindow: 1_000_000, Window: time.Minute, Burst: 1000}
	h := httpx.RateLimitByIP(cfg)(okHandler)

	for i := 0; b.Loop(); i++ {
		serve(h, requestFrom(fmt.Sprintf("192.168.%d.%d:12345", i%255, (i/255)%255)))
	}
}
