package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// handleHealth reports whether the ledger is readable and the cache answers
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"ledger": "ok", "cache": "ok"}
	status := http.StatusOK

	if _, err := s.container.LedgerStore.Rows(); err != nil {
		s.log.Warn().Err(err).Msg("Health check: ledger unreadable")
		checks["ledger"] = err.Error()
		status = http.StatusServiceUnavailable
	}

	if s.container.CacheDB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.container.CacheDB.HealthCheck(ctx); err != nil {
			// Cache failures are reported but do not fail health
			s.log.Warn().Err(err).Msg("Health check: cache database unhealthy")
			checks["cache"] = err.Error()
		}
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "unhealthy"
	}

	s.writeJSON(w, status, map[string]interface{}{
		"status":  state,
		"service": "stockledger",
		"checks":  checks,
	})
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
