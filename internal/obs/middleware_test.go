package obs_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ashworth-collective/backend-club/internal/obs"
)

func TestHTTPObsRecordsByRoutePattern(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obs.NewHTTPMetrics("club", []float64{1, 10}, registry)

	handler := obs.HTTPObs{Metrics: metrics}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/registrations", nil)
	req = req.WithContext(obs.WithRoutePattern(req.Context(), "/api/v1/registrations"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}

	counter := metrics.ReqTotal.WithLabelValues(http.MethodPost, "/api/v1/registrations", "201")
	if got := testutil.ToFloat64(counter); got != 1 {
		t.Fatalf("request counter = %v, want 1", got)
	}
	if testutil.CollectAndCount(metrics.ReqDur) == 0 {
		t.Fatal("expected a latency observation")
	}
	if got := testutil.ToFloat64(metrics.InFlight); got != 0 {
		t.Fatalf("in-flight gauge = %v after completion", got)
	}
}

func TestHTTPObsUnknownRouteFallback(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obs.NewHTTPMetrics("club", nil, registry)

	handler := obs.HTTPObs{Metrics: metrics}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	counter := metrics.ReqTotal.WithLabelValues(http.MethodGet, "unknown", "404")
	if got := testutil.ToFloat64(counter); got != 1 {
		t.Fatalf("request counter = %v, want 1", got)
	}
}
