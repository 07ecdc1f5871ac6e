package portfolio

import (
	"math"
	"strconv"
	"strings"

	"github.com/aristath/stockledger/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// gainsRow is a ledger row that passed the lenient filter.
type gainsRow struct {
	instrumentID string
	kind         domain.OperationKind
	quantity     decimal.Decimal
	total        decimal.Decimal
}

// filterLenient keeps the rows usable for gains and drops the rest without
// failing: unparseable dates, malformed instrument ids, unknown operation
// kinds and non-numeric amounts. A missing total price is backfilled as
// quantity × unit price. This path is separate from the strict validation
// used when loading or appending.
func filterLenient(rows []domain.LedgerRow, log zerolog.Logger) []gainsRow {
	kept := make([]gainsRow, 0, len(rows))
	for i, row := range rows {
		parsed, field := parseGainsRow(row)
		if field != "" {
			log.Debug().Int("row", i+1).Str("field", field).Msg("Skipping ledger row for gains")
			continue
		}
		kept = append(kept, parsed)
	}
	return kept
}

// parseGainsRow returns the parsed row, or the name of the first unusable field.
func parseGainsRow(row domain.LedgerRow) (gainsRow, string) {
	if _, err := domain.ParseTradeDate(strings.TrimSpace(row.Date)); err != nil {
		return gainsRow{}, "date"
	}
	instrumentID := strings.TrimSpace(row.InstrumentID)
	if !domain.ValidInstrumentID(instrumentID) {
		return gainsRow{}, "isin"
	}
	kind, err := domain.ParseOperationKind(row.OperationKind)
	if err != nil {
		return gainsRow{}, "operation_type"
	}
	quantity, ok := parseFinite(row.Quantity)
	if !ok {
		return gainsRow{}, "quantity"
	}

	var total decimal.Decimal
	if t, ok := parseFinite(row.TotalPrice); ok {
		total = decimal.NewFromFloat(t)
	} else if unitPrice, ok := parseFinite(row.UnitPrice); ok {
		total = decimal.NewFromFloat(quantity).Mul(decimal.NewFromFloat(unitPrice))
	} else {
		return gainsRow{}, "total_price"
	}

	return gainsRow{
		instrumentID: instrumentID,
		kind:         kind,
		quantity:     decimal.NewFromFloat(quantity),
		total:        total,
	}, ""
}

func parseFinite(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

type classTotals struct {
	buyRows     int
	buyTotal    decimal.Decimal
	buyQuantity decimal.Decimal
	sellRows    int
	sellTotal   decimal.Decimal
}

// ComputeGains splits profit and loss into realized and latent parts.
//
// Realized gain per instrument is the sum of sell-class totals minus the sum
// of buy-class totals over the whole history, not matched lot by lot. It is
// undefined unless the instrument has rows of both classes, and it is
// reported only when the unrounded difference is non-zero. Latent gain is reported for
// every instrument in positions as net quantity × (current price − average
// buy price), where the average buy price is 0 without buy-class rows.
// Both are rounded to 2 decimal places.
func ComputeGains(rows []domain.LedgerRow, positions map[string]*domain.NetPosition, log zerolog.Logger) domain.GainsReport {
	totals := make(map[string]*classTotals)
	for _, row := range filterLenient(rows, log) {
		t, ok := totals[row.instrumentID]
		if !ok {
			t = &classTotals{}
			totals[row.instrumentID] = t
		}
		if row.kind.IsBuyClass() {
			t.buyRows++
			t.buyTotal = t.buyTotal.Add(row.total)
			t.buyQuantity = t.buyQuantity.Add(row.quantity)
		} else {
			t.sellRows++
			t.sellTotal = t.sellTotal.Add(row.total)
		}
	}

	report := domain.GainsReport{
		Realized: make(map[string]float64),
		Latent:   make(map[string]float64, len(positions)),
	}

	for id, t := range totals {
		if t.buyRows == 0 || t.sellRows == 0 {
			continue
		}
		realized := t.sellTotal.Sub(t.buyTotal)
		if realized.IsZero() {
			continue
		}
		report.Realized[id] = realized.Round(2).InexactFloat64()
	}

	for id, position := range positions {
		report.Latent[id] = latentGain(position, totals[id]).InexactFloat64()
	}

	return report
}

func latentGain(position *domain.NetPosition, t *classTotals) decimal.Decimal {
	averageBuy := decimal.Zero
	if t != nil && !t.buyQuantity.IsZero() {
		averageBuy = t.buyTotal.DivRound(t.buyQuantity, 16)
	}
	return decimal.NewFromFloat(position.Quantity).
		Mul(decimal.NewFromFloat(position.CurrentPrice).Sub(averageBuy)).
		Round(2)
}
