// Package ledger owns the CSV transaction ledger and the operations that
// append to, correct and compact it.
package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aristath/stockledger/internal/domain"
	"github.com/rs/zerolog"
)

// Columns is the fixed column order of the ledger file.
var Columns = []string{"date", "isin", "company_name", "quantity", "unit_price", "total_price", "operation_type"}

// Store reads and rewrites the ledger file. Mutations hold an exclusive lock
// for their whole read-modify-write cycle and replace the file atomically.
type Store struct {
	path string
	mu   sync.RWMutex
	log  zerolog.Logger
}

// NewStore creates a store for the ledger at path. The file does not need to
// exist yet.
func NewStore(path string, log zerolog.Logger) *Store {
	return &Store{
		path: path,
		log:  log.With().Str("component", "ledger_store").Str("path", path).Logger(),
	}
}

// Path returns the ledger file path.
func (s *Store) Path() string {
	return s.path
}

// Stat returns the ledger file info, or nil if the ledger has not been created.
func (s *Store) Stat() (os.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, err := os.Stat(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.LedgerError{Op: domain.LedgerOpRead, Path: s.path, Err: err}
	}
	return info, nil
}

// Rows returns every ledger row as stored.
func (s *Store) Rows() ([]domain.LedgerRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readRowsLocked()
}

// Load returns every ledger row as a validated transaction.
// The first invalid row fails the whole load.
func (s *Store) Load() ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadLocked()
}

// Snapshot reads the ledger once and returns it both as validated
// transactions and as stored rows. A concurrent mutation is seen by both or
// by neither.
func (s *Store) Snapshot() ([]*domain.Transaction, []domain.LedgerRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.readRowsLocked()
	if err != nil {
		return nil, nil, err
	}
	txs, err := validateRows(rows)
	if err != nil {
		return nil, nil, err
	}
	return txs, rows, nil
}

// Append adds tx as the last row and returns it with its assigned id.
// Existing rows are written back unchanged.
func (s *Store) Append(tx *domain.Transaction) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.readRowsLocked()
	if err != nil {
		return nil, err
	}

	added := *tx
	added.ID = len(rows)
	added.Recompute()
	rows = append(rows, added.Row())

	if err := s.writeRowsLocked(rows); err != nil {
		return nil, err
	}

	s.log.Info().
		Int("id", added.ID).
		Str("isin", added.InstrumentID).
		Str("operation_type", added.OperationKind.String()).
		Float64("quantity", added.Quantity).
		Msg("Transaction appended")

	return &added, nil
}

// Mutate loads the ledger, hands the transactions to fn and writes back what
// fn returns. Ids are reassigned by position and every total is recomputed
// before the write. Nothing is written when fn fails.
func (s *Store) Mutate(fn func(txs []*domain.Transaction) ([]*domain.Transaction, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.loadLocked()
	if err != nil {
		return err
	}

	updated, err := fn(txs)
	if err != nil {
		return err
	}

	rows := make([]domain.LedgerRow, 0, len(updated))
	for i, tx := range updated {
		tx.ID = i
		tx.Recompute()
		rows = append(rows, tx.Row())
	}

	if err := s.writeRowsLocked(rows); err != nil {
		return err
	}

	s.log.Debug().Int("before", len(txs)).Int("after", len(rows)).Msg("Ledger rewritten")
	return nil
}

func (s *Store) loadLocked() ([]*domain.Transaction, error) {
	rows, err := s.readRowsLocked()
	if err != nil {
		return nil, err
	}
	return validateRows(rows)
}

func validateRows(rows []domain.LedgerRow) ([]*domain.Transaction, error) {
	txs := make([]*domain.Transaction, 0, len(rows))
	for i, row := range rows {
		tx, err := domain.NewTransaction(domain.AtRow(i), row)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func (s *Store) readRowsLocked() ([]domain.LedgerRow, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, s.readError(err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, s.readError(fmt.Errorf("failed to read header: %w", err))
	}

	index, err := columnIndex(header)
	if err != nil {
		return nil, s.readError(err)
	}

	var rows []domain.LedgerRow
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, s.readError(fmt.Errorf("failed to read row %d: %w", len(rows)+1, err))
		}
		if isBlank(record) {
			continue
		}

		field := func(col string) string {
			i := index[col]
			if i < len(record) {
				return record[i]
			}
			return ""
		}
		rows = append(rows, domain.LedgerRow{
			Date:          field("date"),
			InstrumentID:  field("isin"),
			CompanyName:   field("company_name"),
			Quantity:      field("quantity"),
			UnitPrice:     field("unit_price"),
			TotalPrice:    field("total_price"),
			OperationKind: field("operation_type"),
		})
	}

	return rows, nil
}

// writeRowsLocked writes the header and rows to a temp file next to the
// ledger, syncs it and renames it over the ledger.
func (s *Store) writeRowsLocked(rows []domain.LedgerRow) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return s.writeError(fmt.Errorf("failed to create ledger directory: %w", err))
	}

	tmp, err := os.CreateTemp(dir, ".ledger-*.csv.tmp")
	if err != nil {
		return s.writeError(err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	w := csv.NewWriter(tmp)
	records := make([][]string, 0, len(rows)+1)
	records = append(records, Columns)
	for _, row := range rows {
		records = append(records, []string{
			row.Date, row.InstrumentID, row.CompanyName, row.Quantity,
			row.UnitPrice, row.TotalPrice, row.OperationKind,
		})
	}
	if err := w.WriteAll(records); err != nil {
		cleanup()
		return s.writeError(err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return s.writeError(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return s.writeError(err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return s.writeError(err)
	}
	return nil
}

func (s *Store) readError(err error) error {
	s.log.Error().Err(err).Msg("Failed to read ledger")
	return &domain.LedgerError{Op: domain.LedgerOpRead, Path: s.path, Err: err}
}

func (s *Store) writeError(err error) error {
	s.log.Error().Err(err).Msg("Failed to write ledger")
	return &domain.LedgerError{Op: domain.LedgerOpWrite, Path: s.path, Err: err}
}

// columnIndex maps each known column to its position in header.
// Columns may appear in any order; extra columns are ignored.
func columnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(Columns))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		index[name] = i
	}

	var missing []string
	for _, col := range Columns {
		if _, ok := index[col]; !ok && col != "total_price" {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("ledger header is missing columns: %s", strings.Join(missing, ", "))
	}
	if _, ok := index["total_price"]; !ok {
		index["total_price"] = len(header)
	}
	return index, nil
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
