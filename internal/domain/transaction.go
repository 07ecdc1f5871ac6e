package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the only accepted trade date format.
const DateLayout = "2006-01-02"

var instrumentIDPattern = regexp.MustCompile(`^[A-Z0-9\-.]+$`)

// ValidInstrumentID performs the syntactic ticker check. It does not ask any
// market data provider whether the ticker exists.
func ValidInstrumentID(raw string) bool {
	return instrumentIDPattern.MatchString(raw)
}

// ParseTradeDate parses a strict YYYY-MM-DD date.
func ParseTradeDate(raw string) (time.Time, error) {
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w (expected YYYY-MM-DD)", ErrInvalidDateFormat)
	}
	return t, nil
}

// RowContext locates a transaction for error reporting.
type RowContext struct {
	index int
	isNew bool
}

// AtRow is the context of the ledger row with 0-based index i.
func AtRow(i int) RowContext {
	return RowContext{index: i}
}

// NewEntry is the context of a transaction being appended.
func NewEntry() RowContext {
	return RowContext{isNew: true}
}

func (c RowContext) String() string {
	if c.isNew {
		return "new entry"
	}
	return fmt.Sprintf("row %d", c.index+1)
}

// LedgerRow is one ledger line exactly as stored, before any validation.
type LedgerRow struct {
	Date          string
	InstrumentID  string
	CompanyName   string
	Quantity      string
	UnitPrice     string
	TotalPrice    string
	OperationKind string
}

// Transaction is one validated ledger entry. ID is its position in the ledger.
type Transaction struct {
	ID            int
	Date          time.Time
	InstrumentID  string
	CompanyName   string
	Quantity      float64
	UnitPrice     float64
	TotalPrice    float64
	OperationKind OperationKind
}

// ValidateEntry runs the operation kind, instrument id and date checks in that
// order and returns the parsed values.
func ValidateEntry(ctx RowContext, date, instrumentID, operationKind string) (time.Time, OperationKind, error) {
	kind, err := ParseOperationKind(operationKind)
	if err != nil {
		return time.Time{}, 0, &ValidationError{Context: ctx, Field: "operation_type", Value: operationKind, Err: err}
	}
	if !ValidInstrumentID(instrumentID) {
		return time.Time{}, 0, &ValidationError{Context: ctx, Field: "isin", Value: instrumentID, Err: ErrInvalidInstrumentID}
	}
	tradeDate, err := ParseTradeDate(date)
	if err != nil {
		return time.Time{}, 0, &ValidationError{Context: ctx, Field: "date", Value: date, Err: err}
	}
	return tradeDate, kind, nil
}

// ValidateQuantity rejects zero, negative and non-finite quantities.
func ValidateQuantity(ctx RowContext, quantity float64) error {
	if !(quantity > 0) || quantity > maxQuantity {
		return &ValidationError{
			Context: ctx,
			Field:   "quantity",
			Value:   strconv.FormatFloat(quantity, 'f', -1, 64),
			Err:     ErrInvalidQuantity,
		}
	}
	return nil
}

const maxQuantity = 1e15

// NewTransaction validates a stored row and builds the transaction at ctx.
// A missing total price is backfilled from quantity and unit price.
func NewTransaction(ctx RowContext, row LedgerRow) (*Transaction, error) {
	tradeDate, kind, err := ValidateEntry(ctx, strings.TrimSpace(row.Date), strings.TrimSpace(row.InstrumentID), row.OperationKind)
	if err != nil {
		return nil, err
	}

	quantity, err := strconv.ParseFloat(strings.TrimSpace(row.Quantity), 64)
	if err != nil {
		return nil, &ValidationError{Context: ctx, Field: "quantity", Value: row.Quantity, Err: ErrInvalidQuantity}
	}
	if err := ValidateQuantity(ctx, quantity); err != nil {
		return nil, err
	}

	unitPrice, err := strconv.ParseFloat(strings.TrimSpace(row.UnitPrice), 64)
	if err != nil || !(unitPrice >= 0) || math.IsInf(unitPrice, 1) {
		return nil, fmt.Errorf("%s: unit_price %q is not a non-negative number: %w", ctx, row.UnitPrice, ErrLedgerRead)
	}

	tx := &Transaction{
		ID:            ctx.index,
		Date:          tradeDate,
		InstrumentID:  strings.TrimSpace(row.InstrumentID),
		CompanyName:   row.CompanyName,
		Quantity:      quantity,
		UnitPrice:     unitPrice,
		OperationKind: kind,
	}
	tx.TotalPrice = tx.Quantity * tx.UnitPrice
	if total, err := strconv.ParseFloat(strings.TrimSpace(row.TotalPrice), 64); err == nil && !math.IsNaN(total) && !math.IsInf(total, 0) {
		tx.TotalPrice = total
	}
	return tx, nil
}

// Recompute sets TotalPrice from Quantity and UnitPrice.
func (t *Transaction) Recompute() {
	t.TotalPrice = t.Quantity * t.UnitPrice
}

// SignedQuantity is the quantity with the direction of its operation kind.
func (t *Transaction) SignedQuantity() float64 {
	return t.OperationKind.Sign() * t.Quantity
}

// Row renders the transaction as a ledger line.
func (t *Transaction) Row() LedgerRow {
	return LedgerRow{
		Date:          t.Date.Format(DateLayout),
		InstrumentID:  t.InstrumentID,
		CompanyName:   t.CompanyName,
		Quantity:      formatFloat(t.Quantity),
		UnitPrice:     formatFloat(t.UnitPrice),
		TotalPrice:    formatFloat(t.TotalPrice),
		OperationKind: t.OperationKind.String(),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type transactionJSON struct {
	ID            int           `json:"id"`
	Date          string        `json:"date"`
	InstrumentID  string        `json:"isin"`
	CompanyName   string        `json:"company_name"`
	Quantity      float64       `json:"quantity"`
	UnitPrice     float64       `json:"unit_price"`
	TotalPrice    float64       `json:"total_price"`
	OperationKind OperationKind `json:"operation_type"`
}

// MarshalJSON renders the date as YYYY-MM-DD and the kind in canonical form.
func (t Transaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(transactionJSON{
		ID:            t.ID,
		Date:          t.Date.Format(DateLayout),
		InstrumentID:  t.InstrumentID,
		CompanyName:   t.CompanyName,
		Quantity:      t.Quantity,
		UnitPrice:     t.UnitPrice,
		TotalPrice:    t.TotalPrice,
		OperationKind: t.OperationKind,
	})
}
