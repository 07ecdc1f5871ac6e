package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aristath/stockledger/internal/modules/ledger"
	"github.com/aristath/stockledger/internal/modules/portfolio"
	testingpkg "github.com/aristath/stockledger/internal/testing"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T, rows [][]string, gateway *testingpkg.StaticGateway, partial bool) chi.Router {
	t.Helper()
	store := ledger.NewStore(testingpkg.WriteLedger(t, rows), zerolog.Nop())
	service := portfolio.NewService(store, portfolio.NewPositionCalculator(gateway, 2, partial), zerolog.Nop())

	router := chi.NewRouter()
	NewHandler(service, zerolog.Nop()).RegisterRoutes(router)
	return router
}

func get(t *testing.T, router chi.Router, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestRegisterRoutes(t *testing.T) {
	router := setupRouter(t, testingpkg.XYZScenarioRows(), testingpkg.NewStaticGateway().SetQuote("XYZ", 110), false)

	for _, path := range []string{"/portfolio/", "/portfolio/positions", "/portfolio/gains"} {
		t.Run(path, func(t *testing.T) {
			rec, _ := get(t, router, path)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestHandleGetPortfolio(t *testing.T) {
	router := setupRouter(t, testingpkg.XYZScenarioRows(), testingpkg.NewStaticGateway().SetQuote("XYZ", 110), false)

	rec, body := get(t, router, "/portfolio/")
	require.Equal(t, http.StatusOK, rec.Code)

	data := body["data"].(map[string]interface{})
	assert.NotEmpty(t, data["view_id"])

	positions := data["net_positions"].(map[string]interface{})
	xyz := positions["XYZ"].(map[string]interface{})
	assert.Equal(t, 6.0, xyz["quantity_in_portfolio"])
	assert.Equal(t, 660.0, xyz["net_position"])
	assert.Equal(t, 110.0, xyz["current_price"])

	assert.Equal(t, -520.0, data["realized_gains"].(map[string]interface{})["XYZ"])
	assert.Equal(t, 60.0, data["latent_gains"].(map[string]interface{})["XYZ"])
	assert.NotContains(t, data, "errors")

	metadata := body["metadata"].(map[string]interface{})
	assert.NotEmpty(t, metadata["timestamp"])
}

func TestHandleGetPositions_SortedByNetValue(t *testing.T) {
	gateway := testingpkg.NewStaticGateway().SetQuote("AAPL", 190).SetQuote("MSFT", 400).SetQuote("TSLA", 200)
	router := setupRouter(t, testingpkg.MixedLedgerRows(), gateway, false)

	rec, body := get(t, router, "/portfolio/positions")
	require.Equal(t, http.StatusOK, rec.Code)

	data := body["data"].(map[string]interface{})
	assert.Equal(t, 3.0, data["count"])

	positions := data["positions"].([]interface{})
	var order []string
	for _, p := range positions {
		order = append(order, p.(map[string]interface{})["isin"].(string))
	}
	assert.Equal(t, []string{"MSFT", "AAPL", "TSLA"}, order)
}

func TestHandleGetPositions_PartialReportsErrors(t *testing.T) {
	gateway := testingpkg.NewStaticGateway().SetQuote("AAPL", 190).SetQuote("MSFT", 400)
	router := setupRouter(t, testingpkg.MixedLedgerRows(), gateway, true)

	rec, body := get(t, router, "/portfolio/positions")
	require.Equal(t, http.StatusOK, rec.Code)

	data := body["data"].(map[string]interface{})
	assert.Equal(t, 2.0, data["count"])
	assert.Contains(t, data["errors"], "TSLA")
}

func TestHandleGetGains(t *testing.T) {
	router := setupRouter(t, testingpkg.XYZScenarioRows(), testingpkg.NewStaticGateway().SetQuote("XYZ", 95), false)

	rec, body := get(t, router, "/portfolio/gains")
	require.Equal(t, http.StatusOK, rec.Code)

	data := body["data"].(map[string]interface{})
	assert.Equal(t, -520.0, data["realized_gains"].(map[string]interface{})["XYZ"])
	assert.Equal(t, -30.0, data["latent_gains"].(map[string]interface{})["XYZ"])
}

func TestHandlers_MarketDataFailureIsBadGateway(t *testing.T) {
	router := setupRouter(t, testingpkg.XYZScenarioRows(), testingpkg.NewStaticGateway(), false)

	for _, path := range []string{"/portfolio/", "/portfolio/positions", "/portfolio/gains"} {
		t.Run(path, func(t *testing.T) {
			rec, body := get(t, router, path)
			assert.Equal(t, http.StatusBadGateway, rec.Code)
			assert.Contains(t, body["error"], "XYZ")
		})
	}
}

func TestHandlers_InvalidStoredRowIsBadRequest(t *testing.T) {
	rows := append(testingpkg.XYZScenarioRows(), []string{"2024-02-03", "XYZ", "XYZ Corp", "1", "1", "1", "gift"})
	router := setupRouter(t, rows, testingpkg.NewStaticGateway().SetQuote("XYZ", 1), false)

	rec, body := get(t, router, "/portfolio/")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["error"], "row 3")
}
