// Package portfolio folds the transaction ledger into net positions and splits
// profit and loss into realized and latent gains.
package portfolio

import (
	"context"
	"time"

	"github.com/aristath/stockledger/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service computes portfolio views from the ledger. It keeps no state between
// calls: every view re-reads the ledger and re-prices every instrument.
type Service struct {
	ledger     domain.LedgerReader
	calculator *PositionCalculator
	log        zerolog.Logger
}

// NewService creates a new portfolio service
func NewService(ledger domain.LedgerReader, calculator *PositionCalculator, log zerolog.Logger) *Service {
	return &Service{
		ledger:     ledger,
		calculator: calculator,
		log:        log.With().Str("service", "portfolio").Logger(),
	}
}

// ComputeNetPositions loads the ledger strictly and prices every instrument.
func (s *Service) ComputeNetPositions(ctx context.Context) (map[string]*domain.NetPosition, map[string]error, error) {
	txs, err := s.ledger.Load()
	if err != nil {
		return nil, nil, err
	}
	return s.calculator.Compute(ctx, txs)
}

// ComputePortfolioView returns net positions with realized and latent gains.
func (s *Service) ComputePortfolioView(ctx context.Context) (*domain.PortfolioView, error) {
	start := time.Now()
	viewID := uuid.NewString()
	log := s.log.With().Str("view_id", viewID).Logger()

	// Positions and gains come from the same read of the ledger
	txs, rows, err := s.ledger.Snapshot()
	if err != nil {
		log.Warn().Err(err).Msg("Portfolio view failed")
		return nil, err
	}

	positions, failed, err := s.calculator.Compute(ctx, txs)
	if err != nil {
		log.Warn().Err(err).Msg("Portfolio view failed")
		return nil, err
	}

	gains := ComputeGains(rows, positions, log)

	view := &domain.PortfolioView{
		ViewID:        viewID,
		GeneratedAt:   start.UTC(),
		NetPositions:  positions,
		RealizedGains: gains.Realized,
		LatentGains:   gains.Latent,
	}
	if len(failed) > 0 {
		view.Errors = make(map[string]string, len(failed))
		for id, ferr := range failed {
			view.Errors[id] = ferr.Error()
		}
		log.Warn().Int("skipped", len(failed)).Msg("Instruments left out of portfolio view")
	}

	log.Info().
		Int("instruments", len(positions)).
		Int("realized", len(gains.Realized)).
		Dur("duration", time.Since(start)).
		Msg("Portfolio view computed")

	return view, nil
}

// ComputeGains returns only the gains part of a portfolio view.
func (s *Service) ComputeGains(ctx context.Context) (*domain.GainsReport, error) {
	view, err := s.ComputePortfolioView(ctx)
	if err != nil {
		return nil, err
	}
	return &domain.GainsReport{Realized: view.RealizedGains, Latent: view.LatentGains}, nil
}
