package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aussiebroadwan/shopauth/internal/auth/metrics"
	"github.com/aussiebroadwan/shopauth/internal/auth/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

var _ service.Observer = (*metrics.Collector)(nil)

func TestCollectorCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	c.AuthOperation(service.OpLogin, service.OutcomeSuccess)
	c.AuthOperation(service.OpLogin, service.OutcomeSuccess)
	c.AuthOperation(service.OpLogin, service.OutcomeFailure)
	c.Authentication("primary", service.OutcomeSuccess)
	c.RefreshConflict()
	c.RecordHTTP(http.StatusTooManyRequests, 20*time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if cnt := m.GetCounter(); cnt != nil {
				key := mf.GetName()
				for _, lp := range m.GetLabel() {
					key += "," + lp.GetName() + "=" + lp.GetValue()
				}
				values[key] = cnt.GetValue()
			}
		}
	}

	require.Equal(t, 2.0, values["shopauth_auth_operations_total,operation=login,outcome=success"])
	require.Equal(t, 1.0, values["shopauth_auth_operations_total,operation=login,outcome=failure"])
	require.Equal(t, 1.0, values["shopauth_authentications_total,method=primary,outcome=success"])
	require.Equal(t, 1.0, values["shopauth_token_refresh_conflicts_total"])
	require.Equal(t, 1.0, values["shopauth_http_requests_total,status_code=429"])
}

func TestMiddlewareAndHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	h := c.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, "ok")
	}))

	for _, path := range []string{"/", "/", "/missing"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == "shopauth_http_request_duration_seconds" {
			require.EqualValues(t, 3, mf.GetMetric()[0].GetHistogram().GetSampleCount())
		}
	}

	rec := httptest.NewRecorder()
	metrics.Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `shopauth_http_requests_total{status_code="200"} 2`)
	require.Contains(t, rec.Body.String(), `shopauth_http_requests_total{status_code="404"} 1`)
}
