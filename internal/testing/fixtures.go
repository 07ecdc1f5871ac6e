// Package testing provides test fixtures and market data doubles.
package testing

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
)

// LedgerHeader is the header line of a ledger file.
var LedgerHeader = []string{"date", "isin", "company_name", "quantity", "unit_price", "total_price", "operation_type"}

// XYZScenarioRows is a buy of 10 XYZ at 100 followed by a sell of 4 at 120.
func XYZScenarioRows() [][]string {
	return [][]string{
		{"2024-01-01", "XYZ", "XYZ Corp", "10", "100", "1000", "buy"},
		{"2024-02-01", "XYZ", "XYZ Corp", "4", "120", "480", "sell"},
	}
}

// MixedLedgerRows covers every operation kind over three instruments.
func MixedLedgerRows() [][]string {
	return [][]string{
		{"2024-01-02", "AAPL", "Apple Inc.", "10", "185.64", "1856.4", "buy"},
		{"2024-01-03", "MSFT", "Microsoft Corporation", "5", "370.6", "1853", "buy"},
		{"2024-01-04", "TSLA", "Tesla, Inc.", "3", "237.93", "713.79", "short sell"},
		{"2024-02-01", "AAPL", "Apple Inc.", "4", "186.86", "747.44", "sell"},
		{"2024-02-02", "TSLA", "Tesla, Inc.", "1", "187.91", "187.91", "buy to cover"},
	}
}

// WriteLedger writes a ledger file with header and rows into a fresh temp
// directory and returns its path.
func WriteLedger(t *testing.T, rows [][]string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "stock_data.csv")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create ledger fixture: %v", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(LedgerHeader); err != nil {
		t.Fatalf("Failed to write ledger header: %v", err)
	}
	if err := w.WriteAll(rows); err != nil {
		t.Fatalf("Failed to write ledger rows: %v", err)
	}
	return path
}

// ReadLedger returns every record of the ledger at path, header included.
func ReadLedger(t *testing.T, path string) [][]string {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open ledger: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse ledger: %v", err)
	}
	return records
}
