package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy. Callers match with errors.Is.
var (
	ErrInvalidOperationKind  = errors.New("invalid operation kind")
	ErrInvalidInstrumentID   = errors.New("invalid instrument id")
	ErrInvalidDateFormat     = errors.New("invalid date format")
	ErrInvalidQuantity       = errors.New("invalid quantity")
	ErrMarketDataUnavailable = errors.New("market data unavailable")
	ErrLedgerRead            = errors.New("ledger read failure")
	ErrLedgerWrite           = errors.New("ledger write failure")
	ErrNotFound              = errors.New("not found")
	ErrLedgerChanged         = errors.New("ledger changed concurrently")
)

// ValidationError reports a rejected field together with where it came from
// ("row 3" for a stored row, "new entry" for an append).
type ValidationError struct {
	Context RowContext
	Field   string
	Value   string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %q: %v", e.Context, e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// MarketDataError is returned when the gateway cannot resolve an instrument.
// It matches ErrMarketDataUnavailable and keeps the provider cause reachable.
type MarketDataError struct {
	InstrumentID string
	Err          error
}

// NewMarketDataError wraps cause for instrumentID.
func NewMarketDataError(instrumentID string, cause error) *MarketDataError {
	return &MarketDataError{InstrumentID: instrumentID, Err: cause}
}

func (e *MarketDataError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("market data unavailable for %s", e.InstrumentID)
	}
	return fmt.Sprintf("market data unavailable for %s: %v", e.InstrumentID, e.Err)
}

func (e *MarketDataError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMarketDataUnavailable}
	}
	return []error{ErrMarketDataUnavailable, e.Err}
}

// LedgerOp names the ledger I/O direction that failed.
type LedgerOp string

const (
	LedgerOpRead  LedgerOp = "read"
	LedgerOpWrite LedgerOp = "write"
)

// LedgerError is an infrastructure failure on the ledger file.
type LedgerError struct {
	Op   LedgerOp
	Path string
	Err  error
}

func (e *LedgerError) Error() string {
	return fmt.Sprintf("ledger %s failed for %s: %v", e.Op, e.Path, e.Err)
}

func (e *LedgerError) Unwrap() []error {
	sentinel := ErrLedgerRead
	if e.Op == LedgerOpWrite {
		sentinel = ErrLedgerWrite
	}
	return []error{sentinel, e.Err}
}

// IsValidationError reports whether err is a rejected-input error.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidOperationKind) ||
		errors.Is(err, ErrInvalidInstrumentID) ||
		errors.Is(err, ErrInvalidDateFormat) ||
		errors.Is(err, ErrInvalidQuantity)
}
