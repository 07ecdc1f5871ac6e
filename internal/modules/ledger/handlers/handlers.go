// Package handlers provides HTTP handlers for ledger operations.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/stockledger/internal/domain"
	"github.com/aristath/stockledger/internal/modules/ledger"
	"github.com/rs/zerolog"
)

// Handler handles ledger HTTP requests
type Handler struct {
	service *ledger.Service
	log     zerolog.Logger
}

// NewHandler creates a new ledger handler
func NewHandler(service *ledger.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "ledger").Logger(),
	}
}

// HandleListTransactions handles GET /api/ledger/transactions
func (h *Handler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.service.List()
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeData(w, http.StatusOK, map[string]interface{}{
		"items": txs,
		"count": len(txs),
	})
}

// HandleSearchTransactions handles GET /api/ledger/transactions/search
func (h *Handler) HandleSearchTransactions(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	query := ledger.Query{InstrumentID: params.Get("isin")}
	echo := map[string]interface{}{
		"isin":           nullIfEmpty(params.Get("isin")),
		"operation_type": nil,
		"quantity":       nil,
		"unit_price":     nil,
	}

	if raw := params.Get("operation_type"); raw != "" {
		kind, err := domain.ParseOperationKind(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		query.OperationKind = kind
		echo["operation_type"] = kind.String()
	}
	for name, target := range map[string]**float64{"quantity": &query.Quantity, "unit_price": &query.UnitPrice} {
		raw := params.Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s: %q", name, raw))
			return
		}
		*target = &v
		echo[name] = v
	}

	selection, err := h.service.Search(query)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeData(w, http.StatusOK, map[string]interface{}{
		"query":     echo,
		"selection": selection,
	})
}

// HandleGetTransaction handles GET /api/ledger/transactions/{id}
func (h *Handler) HandleGetTransaction(w http.ResponseWriter, r *http.Request, idStr string) {
	id, ok := h.parseID(w, idStr)
	if !ok {
		return
	}

	tx, err := h.service.Get(id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, tx)
}

// HandleAppendTransaction handles POST /api/ledger/transactions
func (h *Handler) HandleAppendTransaction(w http.ResponseWriter, r *http.Request) {
	var req ledger.AppendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tx, err := h.service.AppendTransaction(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, http.StatusCreated, tx)
}

// HandleUpdateQuantity handles PUT /api/ledger/transactions/{id}
func (h *Handler) HandleUpdateQuantity(w http.ResponseWriter, r *http.Request, idStr string) {
	id, ok := h.parseID(w, idStr)
	if !ok {
		return
	}

	var body struct {
		Quantity *float64 `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.Quantity == nil {
		h.writeError(w, http.StatusBadRequest, "The 'quantity' field is required")
		return
	}

	tx, err := h.service.UpdateTransactionQuantity(r.Context(), id, *body.Quantity)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, tx)
}

// HandleDeleteTransaction handles DELETE /api/ledger/transactions/{id}
func (h *Handler) HandleDeleteTransaction(w http.ResponseWriter, r *http.Request, idStr string) {
	id, ok := h.parseID(w, idStr)
	if !ok {
		return
	}

	if err := h.service.DeleteTransaction(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, map[string]interface{}{
		"message": fmt.Sprintf("Transaction %d deleted", id),
	})
}

func (h *Handler) parseID(w http.ResponseWriter, idStr string) (int, bool) {
	id, err := strconv.Atoi(idStr)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid transaction ID")
		return 0, false
	}
	return id, true
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// writeServiceError maps the error taxonomy to HTTP status codes
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case domain.IsValidationError(err):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrLedgerChanged):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrMarketDataUnavailable):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("Ledger operation failed")
	} else {
		h.log.Debug().Err(err).Int("status", status).Msg("Ledger request rejected")
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
