package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/aristath/stockledger/internal/domain"
	"github.com/rs/zerolog"
)

// AppendRequest is a new transaction as submitted by a client. The unit price
// is never taken from the client; it is resolved from market data.
type AppendRequest struct {
	Date          string  `json:"date"`
	InstrumentID  string  `json:"isin"`
	CompanyName   string  `json:"company_name"`
	Quantity      float64 `json:"quantity"`
	OperationKind string  `json:"operation_type"`
}

// Query selects transactions. Zero-valued fields match everything.
type Query struct {
	InstrumentID  string
	OperationKind domain.OperationKind
	Quantity      *float64
	UnitPrice     *float64
}

// Matches reports whether tx satisfies every set field of q.
func (q Query) Matches(tx *domain.Transaction) bool {
	if q.InstrumentID != "" && tx.InstrumentID != q.InstrumentID {
		return false
	}
	if q.OperationKind != 0 && tx.OperationKind != q.OperationKind {
		return false
	}
	if q.Quantity != nil && tx.Quantity != *q.Quantity {
		return false
	}
	if q.UnitPrice != nil && tx.UnitPrice != *q.UnitPrice {
		return false
	}
	return true
}

// Service implements the ledger operations on top of the store.
type Service struct {
	store   *Store
	gateway domain.MarketDataGateway
	log     zerolog.Logger
}

// NewService creates a new ledger service
func NewService(store *Store, gateway domain.MarketDataGateway, log zerolog.Logger) *Service {
	return &Service{
		store:   store,
		gateway: gateway,
		log:     log.With().Str("service", "ledger").Logger(),
	}
}

// List returns every transaction in ledger order.
func (s *Service) List() ([]*domain.Transaction, error) {
	return s.store.Load()
}

// Get returns the transaction at position id.
func (s *Service) Get(id int) (*domain.Transaction, error) {
	txs, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	if id < 0 || id >= len(txs) {
		return nil, notFound(id)
	}
	return txs[id], nil
}

// Search returns the transactions matching q, in ledger order.
func (s *Service) Search(q Query) ([]*domain.Transaction, error) {
	txs, err := s.store.Load()
	if err != nil {
		return nil, err
	}

	selected := make([]*domain.Transaction, 0)
	for _, tx := range txs {
		if q.Matches(tx) {
			selected = append(selected, tx)
		}
	}
	return selected, nil
}

// AppendTransaction validates req, resolves the unit price on or before the
// requested date and appends the transaction. The stored date is the date the
// price was observed on.
func (s *Service) AppendTransaction(ctx context.Context, req AppendRequest) (*domain.Transaction, error) {
	entry := domain.NewEntry()
	instrumentID := strings.TrimSpace(req.InstrumentID)

	date, kind, err := domain.ValidateEntry(entry, strings.TrimSpace(req.Date), instrumentID, req.OperationKind)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateQuantity(entry, req.Quantity); err != nil {
		return nil, err
	}

	price, err := s.gateway.GetPriceOnOrBefore(ctx, instrumentID, date)
	if err != nil {
		return nil, err
	}

	tx, err := s.store.Append(&domain.Transaction{
		Date:          price.Date,
		InstrumentID:  instrumentID,
		CompanyName:   strings.TrimSpace(req.CompanyName),
		Quantity:      req.Quantity,
		UnitPrice:     price.Price,
		OperationKind: kind,
	})
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// UpdateTransactionQuantity sets the quantity of transaction id and
// re-resolves its unit price and date from market data. The price is looked
// up before the ledger is locked; if row id changed in the meantime the
// update fails with ErrLedgerChanged and nothing is written.
func (s *Service) UpdateTransactionQuantity(ctx context.Context, id int, quantity float64) (*domain.Transaction, error) {
	if err := domain.ValidateQuantity(domain.AtRow(id), quantity); err != nil {
		return nil, err
	}

	current, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	price, err := s.gateway.GetPriceOnOrBefore(ctx, current.InstrumentID, current.Date)
	if err != nil {
		return nil, err
	}

	var updated domain.Transaction
	err = s.store.Mutate(func(txs []*domain.Transaction) ([]*domain.Transaction, error) {
		if id < 0 || id >= len(txs) {
			return nil, notFound(id)
		}
		tx := txs[id]
		if !sameRow(tx, current) {
			return nil, fmt.Errorf("transaction %d: %w", id, domain.ErrLedgerChanged)
		}

		tx.Quantity = quantity
		tx.UnitPrice = price.Price
		tx.Date = price.Date
		tx.Recompute()
		updated = *tx
		return txs, nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int("id", id).
		Str("isin", updated.InstrumentID).
		Float64("quantity", updated.Quantity).
		Float64("unit_price", updated.UnitPrice).
		Msg("Transaction quantity updated")

	return &updated, nil
}

// sameRow reports whether a and b hold the same stored values.
func sameRow(a, b *domain.Transaction) bool {
	return a.Date.Equal(b.Date) &&
		a.InstrumentID == b.InstrumentID &&
		a.CompanyName == b.CompanyName &&
		a.Quantity == b.Quantity &&
		a.UnitPrice == b.UnitPrice &&
		a.OperationKind == b.OperationKind
}

// DeleteTransaction removes transaction id. Later transactions move up by one.
func (s *Service) DeleteTransaction(ctx context.Context, id int) error {
	var removed *domain.Transaction
	err := s.store.Mutate(func(txs []*domain.Transaction) ([]*domain.Transaction, error) {
		if id < 0 || id >= len(txs) {
			return nil, notFound(id)
		}
		removed = txs[id]
		return append(txs[:id], txs[id+1:]...), nil
	})
	if err != nil {
		return err
	}

	s.log.Info().Int("id", id).Str("isin", removed.InstrumentID).Msg("Transaction deleted")
	return nil
}

func notFound(id int) error {
	return fmt.Errorf("transaction %d: %w", id, domain.ErrNotFound)
}
