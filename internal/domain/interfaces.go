package domain

import (
	"context"
	"time"
)

// MarketDataGateway resolves prices for instruments.
// Both operations fail with an error matching ErrMarketDataUnavailable when
// the instrument cannot be resolved or the provider does not answer in time.
type MarketDataGateway interface {
	// GetQuoteAndHistory returns the display name, current price and daily
	// close history of an instrument.
	GetQuoteAndHistory(ctx context.Context, instrumentID string) (*Quote, error)

	// GetPriceOnOrBefore returns the latest close at or before date within
	// the configured lookback window, with the date it was observed on.
	GetPriceOnOrBefore(ctx context.Context, instrumentID string, date time.Time) (*PricePoint, error)
}

// LedgerReader gives read access to the transaction ledger.
type LedgerReader interface {
	// Load returns every row as a validated transaction. Any invalid row
	// fails the whole load.
	Load() ([]*Transaction, error)

	// Rows returns every row as stored, without validation.
	Rows() ([]LedgerRow, error)

	// Snapshot returns the validated transactions and the stored rows of a
	// single read of the ledger.
	Snapshot() ([]*Transaction, []LedgerRow, error)
}
