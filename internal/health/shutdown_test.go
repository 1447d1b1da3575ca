package health_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ashworth-collective/backend-club/internal/health"
)

func TestReadinessGateDuringShutdown(t *testing.T) {
	handler := health.Handler{Checker: stubChecker{}}
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)

	health.SetReady(true)
	t.Cleanup(func() { health.SetReady(true) })

	rec := httptest.NewRecorder()
	handler.Ready(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	health.SetReady(false)
	draining := httptest.NewRecorder()
	handler.Ready(draining, req)
	require.Equal(t, http.StatusServiceUnavailable, draining.Code)
}
