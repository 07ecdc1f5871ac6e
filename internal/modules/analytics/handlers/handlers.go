// Package handlers provides HTTP handlers for market analytics and cache maintenance.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/stockledger/internal/domain"
	"github.com/aristath/stockledger/internal/modules/analytics"
	"github.com/rs/zerolog"
)

// CacheCleaner purges expired market-data cache entries
type CacheCleaner interface {
	Cleanup() (map[string]int64, error)
}

// Handler handles market HTTP requests
type Handler struct {
	service *analytics.Service
	cleaner CacheCleaner
	log     zerolog.Logger
}

// NewHandler creates a new market handler. cleaner may be nil when no cache is configured.
func NewHandler(service *analytics.Service, cleaner CacheCleaner, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		cleaner: cleaner,
		log:     log.With().Str("handler", "market").Logger(),
	}
}

// HandleGetReturns handles GET /api/market/{isin}/returns?start=&end=
func (h *Handler) HandleGetReturns(w http.ResponseWriter, r *http.Request, isin string) {
	start, err := parseOptionalDate(r.URL.Query().Get("start"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "start: "+err.Error())
		return
	}
	end, err := parseOptionalDate(r.URL.Query().Get("end"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "end: "+err.Error())
		return
	}

	summary, err := h.service.HistoricReturns(r.Context(), isin, start, end)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case domain.IsValidationError(err), errors.Is(err, analytics.ErrInvalidRange):
			status = http.StatusBadRequest
		case errors.Is(err, domain.ErrMarketDataUnavailable):
			status = http.StatusBadGateway
		}
		h.log.Warn().Err(err).Str("isin", isin).Int("status", status).Msg("Returns request failed")
		h.writeError(w, status, err.Error())
		return
	}

	h.writeData(w, http.StatusOK, summary)
}

// HandleCacheCleanup handles POST /api/market/cache/cleanup
func (h *Handler) HandleCacheCleanup(w http.ResponseWriter, r *http.Request) {
	if h.cleaner == nil {
		h.writeError(w, http.StatusServiceUnavailable, "market data cache is not configured")
		return
	}

	deleted, err := h.cleaner.Cleanup()
	if err != nil {
		h.log.Error().Err(err).Msg("Cache cleanup failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var total int64
	for _, n := range deleted {
		total += n
	}

	h.writeData(w, http.StatusOK, map[string]interface{}{
		"deleted": deleted,
		"total":   total,
	})
}

func parseOptionalDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return domain.ParseTradeDate(raw)
}

// writeData wraps data in the standard response envelope
func (h *Handler) writeData(w http.ResponseWriter, status int, data interface{}) {
	h.writeJSON(w, status, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
