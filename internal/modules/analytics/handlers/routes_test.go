package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aristath/stockledger/internal/domain"
	"github.com/aristath/stockledger/internal/modules/analytics"
	testingpkg "github.com/aristath/stockledger/internal/testing"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCleaner struct {
	deleted map[string]int64
	err     error
	calls   int
}

func (c *fakeCleaner) Cleanup() (map[string]int64, error) {
	c.calls++
	return c.deleted, c.err
}

func setupRouter(cleaner CacheCleaner) chi.Router {
	gateway := testingpkg.NewStaticGateway().
		SetQuote("XYZ", 121).
		SetHistory("XYZ", []domain.PricePoint{
			{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Price: 100},
			{Date: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Price: 110},
			{Date: time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC), Price: 121},
		})

	router := chi.NewRouter()
	NewHandler(analytics.NewService(gateway, zerolog.Nop()), cleaner, zerolog.Nop()).RegisterRoutes(router)
	return router
}

func do(t *testing.T, router chi.Router, method, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestHandleGetReturns(t *testing.T) {
	router := setupRouter(nil)

	rec, body := do(t, router, http.MethodGet, "/market/XYZ/returns?start=2024-01-03&end=2024-01-04")
	require.Equal(t, http.StatusOK, rec.Code)

	data := body["data"].(map[string]interface{})
	assert.Equal(t, "XYZ", data["isin"])
	assert.Equal(t, "XYZ Inc.", data["display_name"])
	assert.Equal(t, float64(2), data["observations"])
	assert.InDelta(t, 0.1, data["total_return"].(float64), 1e-9)

	series := data["series"].([]interface{})
	require.Len(t, series, 2)
	assert.Equal(t, "2024-01-03", series[0].(map[string]interface{})["date"])
}

func TestHandleGetReturns_NoRange(t *testing.T) {
	rec, body := do(t, setupRouter(nil), http.MethodGet, "/market/XYZ/returns")
	require.Equal(t, http.StatusOK, rec.Code)

	data := body["data"].(map[string]interface{})
	assert.Equal(t, float64(3), data["observations"])
	assert.InDelta(t, 0.21, data["total_return"].(float64), 1e-9)
}

func TestHandleGetReturns_Errors(t *testing.T) {
	router := setupRouter(nil)

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"bad start", "/market/XYZ/returns?start=2024/01/01", http.StatusBadRequest},
		{"bad end", "/market/XYZ/returns?end=yesterday", http.StatusBadRequest},
		{"reversed range", "/market/XYZ/returns?start=2024-02-01&end=2024-01-01", http.StatusBadRequest},
		{"invalid ticker", "/market/xyz!/returns", http.StatusBadRequest},
		{"unknown instrument", "/market/ABC/returns", http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := do(t, router, http.MethodGet, tt.path)
			assert.Equal(t, tt.status, rec.Code)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestHandleCacheCleanup(t *testing.T) {
	cleaner := &fakeCleaner{deleted: map[string]int64{"quotes": 2, "closes": 1}}

	rec, body := do(t, setupRouter(cleaner), http.MethodPost, "/market/cache/cleanup")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, cleaner.calls)

	data := body["data"].(map[string]interface{})
	assert.Equal(t, float64(3), data["total"])
	assert.Equal(t, float64(2), data["deleted"].(map[string]interface{})["quotes"])
}

func TestHandleCacheCleanup_Failure(t *testing.T) {
	rec, body := do(t, setupRouter(&fakeCleaner{err: errors.New("database is locked")}), http.MethodPost, "/market/cache/cleanup")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "database is locked", body["error"])
}

func TestHandleCacheCleanup_NoCache(t *testing.T) {
	rec, _ := do(t, setupRouter(nil), http.MethodPost, "/market/cache/cleanup")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCacheCleanup_MutatingMiddleware(t *testing.T) {
	blocked := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limited"}`))
		})
	}

	cleaner := &fakeCleaner{}
	router := chi.NewRouter()
	NewHandler(analytics.NewService(testingpkg.NewStaticGateway(), zerolog.Nop()), cleaner, zerolog.Nop()).
		RegisterRoutes(router, blocked)

	rec, _ := do(t, router, http.MethodPost, "/market/cache/cleanup")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Zero(t, cleaner.calls)
}
