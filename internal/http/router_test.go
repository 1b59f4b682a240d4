package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"o2d-dashboard/internal/dashboard"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRouter_MethodEnforcement(t *testing.T) {
	mux := NewRouter(zap.NewNop())
	ds := dashboard.NewDataSource(&stubFetcher{snapshot: testSnapshot()}, time.Minute, zap.NewNop())
	ds.Refresh(context.Background())
	mux.RegisterDashboardRoutes(NewDashboardHandler(ds, nil, zap.NewNop()))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/dashboard/summary", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/summary", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_OpsRoutes(t *testing.T) {
	mux := NewRouter(zap.NewNop())
	mux.RegisterOpsRoutes()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
