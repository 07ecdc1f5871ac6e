// Package domain provides core domain models and types.
package domain

import (
	"encoding/json"
	"time"
)

// PricePoint is one daily close.
type PricePoint struct {
	Date  time.Time
	Price float64
}

// MarshalJSON renders the date as YYYY-MM-DD.
func (p PricePoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Date  string  `json:"date"`
		Price float64 `json:"price"`
	}{p.Date.Format(DateLayout), p.Price})
}

// Quote is what the market data gateway knows about an instrument right now.
type Quote struct {
	InstrumentID string       `json:"isin"`
	DisplayName  string       `json:"display_name"`
	CurrentPrice float64      `json:"current_price"`
	History      []PricePoint `json:"price_history"` // Ascending by date
}

// NetPosition is the folded view of every transaction for one instrument.
type NetPosition struct {
	InstrumentID string       `json:"isin"`
	DisplayName  string       `json:"display_name,omitempty"`
	Quantity     float64      `json:"quantity_in_portfolio"` // Signed: negative means net short
	CurrentPrice float64      `json:"current_price"`
	NetValue     float64      `json:"net_position"`
	PriceHistory []PricePoint `json:"price_history"`
}

// GainsReport splits profit and loss per instrument.
// Realized only holds non-zero entries; Latent holds every open instrument.
type GainsReport struct {
	Realized map[string]float64 `json:"realized_gains"`
	Latent   map[string]float64 `json:"latent_gains"`
}

// PortfolioView is the response of a full portfolio computation.
type PortfolioView struct {
	ViewID        string                  `json:"view_id"`
	GeneratedAt   time.Time               `json:"generated_at"`
	NetPositions  map[string]*NetPosition `json:"net_positions"`
	RealizedGains map[string]float64      `json:"realized_gains"`
	LatentGains   map[string]float64      `json:"latent_gains"`
	Errors        map[string]string       `json:"errors,omitempty"` // Instruments skipped in partial mode
}
