// Package handlers provides HTTP handlers for portfolio views.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/aristath/stockledger/internal/domain"
	"github.com/aristath/stockledger/internal/modules/portfolio"
	"github.com/rs/zerolog"
)

// Handler handles portfolio HTTP requests
type Handler struct {
	service *portfolio.Service
	log     zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(service *portfolio.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleGetPortfolio handles GET /api/portfolio
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.ComputePortfolioView(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeData(w, http.StatusOK, view)
}

// HandleGetPositions handles GET /api/portfolio/positions.
// Positions are listed by net value, largest first.
func (h *Handler) HandleGetPositions(w http.ResponseWriter, r *http.Request) {
	positions, failed, err := h.service.ComputeNetPositions(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	result := make([]*domain.NetPosition, 0, len(positions))
	for _, pos := range positions {
		result = append(result, pos)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].NetValue != result[j].NetValue {
			return result[i].NetValue > result[j].NetValue
		}
		return result[i].InstrumentID < result[j].InstrumentID
	})

	response := map[string]interface{}{
		"positions": result,
		"count":     len(result),
	}
	if len(failed) > 0 {
		errs := make(map[string]string, len(failed))
		for id, ferr := range failed {
			errs[id] = ferr.Error()
		}
		response["errors"] = errs
	}

	h.writeData(w, http.StatusOK, response)
}

// HandleGetGains handles GET /api/portfolio/gains
func (h *Handler) HandleGetGains(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.ComputeGains(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeData(w, http.StatusOK, report)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case domain.IsValidationError(err):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrMarketDataUnavailable):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("Portfolio computation failed")
	} else {
		h.log.Warn().Err(err).Int("status", status).Msg("Portfolio computation rejected")
	}
	h.writeError(w, status, err.Error())
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
