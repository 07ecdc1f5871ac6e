// Package analytics computes historic return statistics for one instrument.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/stockledger/internal/domain"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"
)

// ErrInvalidRange is returned when end falls before start.
var ErrInvalidRange = errors.New("end date is before start date")

// ReturnsSummary describes the adjusted-close series of an instrument between two dates.
type ReturnsSummary struct {
	InstrumentID    string              `json:"isin"`
	DisplayName     string              `json:"display_name"`
	CurrentPrice    float64             `json:"current_price"`
	Start           string              `json:"start,omitempty"`
	End             string              `json:"end,omitempty"`
	Observations    int                 `json:"observations"`
	TotalReturn     float64             `json:"total_return"`
	MeanDailyReturn float64             `json:"mean_daily_return"`
	DailyVolatility float64             `json:"daily_volatility"`
	Series          []domain.PricePoint `json:"series"`
}

// Service computes return summaries from gateway price history
type Service struct {
	gateway domain.MarketDataGateway
	log     zerolog.Logger
}

// NewService creates a new analytics service
func NewService(gateway domain.MarketDataGateway, log zerolog.Logger) *Service {
	return &Service{
		gateway: gateway,
		log:     log.With().Str("service", "analytics").Logger(),
	}
}

// HistoricReturns summarizes closes dated within [start, end]. A zero start
// or end leaves that side open.
func (s *Service) HistoricReturns(ctx context.Context, instrumentID string, start, end time.Time) (*ReturnsSummary, error) {
	if !domain.ValidInstrumentID(instrumentID) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidInstrumentID, instrumentID)
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return nil, ErrInvalidRange
	}

	quote, err := s.gateway.GetQuoteAndHistory(ctx, instrumentID)
	if err != nil {
		return nil, err
	}

	series := Between(quote.History, start, end)
	summary := &ReturnsSummary{
		InstrumentID: instrumentID,
		DisplayName:  quote.DisplayName,
		CurrentPrice: quote.CurrentPrice,
		Observations: len(series),
		Series:       series,
	}
	if !start.IsZero() {
		summary.Start = start.Format(domain.DateLayout)
	}
	if !end.IsZero() {
		summary.End = end.Format(domain.DateLayout)
	}

	returns := DailyReturns(series)
	if len(series) >= 2 {
		summary.TotalReturn = series[len(series)-1].Price/series[0].Price - 1
	}
	switch {
	case len(returns) >= 2:
		summary.MeanDailyReturn, summary.DailyVolatility = stat.MeanStdDev(returns, nil)
	case len(returns) == 1:
		summary.MeanDailyReturn = returns[0]
	}

	s.log.Debug().
		Str("isin", instrumentID).
		Int("observations", summary.Observations).
		Float64("total_return", summary.TotalReturn).
		Msg("Computed historic returns")

	return summary, nil
}

// Between keeps the points whose calendar date lies within [start, end].
func Between(history []domain.PricePoint, start, end time.Time) []domain.PricePoint {
	result := make([]domain.PricePoint, 0, len(history))
	for _, p := range history {
		d := p.Date.Format(domain.DateLayout)
		if !start.IsZero() && d < start.Format(domain.DateLayout) {
			continue
		}
		if !end.IsZero() && d > end.Format(domain.DateLayout) {
			continue
		}
		result = append(result, p)
	}
	return result
}

// DailyReturns returns the simple return between consecutive points
func DailyReturns(series []domain.PricePoint) []float64 {
	if len(series) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		returns = append(returns, series[i].Price/series[i-1].Price-1)
	}
	return returns
}
