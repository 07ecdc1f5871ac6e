package testing

import (
	"context"
	"sync"
	"time"

	"github.com/aristath/stockledger/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockGateway is a testify mock of domain.MarketDataGateway.
type MockGateway struct {
	mock.Mock
}

// NewMockGateway creates a new mock gateway
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

// GetQuoteAndHistory implements domain.MarketDataGateway
func (m *MockGateway) GetQuoteAndHistory(ctx context.Context, instrumentID string) (*domain.Quote, error) {
	args := m.Called(ctx, instrumentID)
	if q := args.Get(0); q != nil {
		return q.(*domain.Quote), args.Error(1)
	}
	return nil, args.Error(1)
}

// GetPriceOnOrBefore implements domain.MarketDataGateway
func (m *MockGateway) GetPriceOnOrBefore(ctx context.Context, instrumentID string, date time.Time) (*domain.PricePoint, error) {
	args := m.Called(ctx, instrumentID, date)
	if p := args.Get(0); p != nil {
		return p.(*domain.PricePoint), args.Error(1)
	}
	return nil, args.Error(1)
}

// StaticGateway serves fixed quotes and closes and counts lookups.
// Unknown instruments fail with ErrMarketDataUnavailable.
type StaticGateway struct {
	mu     sync.Mutex
	quotes map[string]*domain.Quote
	closes map[string]*domain.PricePoint
	calls  map[string]int
}

// NewStaticGateway creates a gateway with no known instruments
func NewStaticGateway() *StaticGateway {
	return &StaticGateway{
		quotes: make(map[string]*domain.Quote),
		closes: make(map[string]*domain.PricePoint),
		calls:  make(map[string]int),
	}
}

// SetQuote registers the current price of instrumentID
func (g *StaticGateway) SetQuote(instrumentID string, price float64) *StaticGateway {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.quotes[instrumentID] = &domain.Quote{
		InstrumentID: instrumentID,
		DisplayName:  instrumentID + " Inc.",
		CurrentPrice: price,
		History: []domain.PricePoint{
			{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Price: price},
		},
	}
	return g
}

// SetHistory replaces the close history of a quote registered with SetQuote
func (g *StaticGateway) SetHistory(instrumentID string, history []domain.PricePoint) *StaticGateway {
	g.mu.Lock()
	defer g.mu.Unlock()
	if q, ok := g.quotes[instrumentID]; ok {
		q.History = history
	}
	return g
}

// SetClose registers the close returned by GetPriceOnOrBefore for instrumentID
func (g *StaticGateway) SetClose(instrumentID string, date time.Time, price float64) *StaticGateway {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closes[instrumentID] = &domain.PricePoint{Date: date, Price: price}
	return g
}

// Calls returns how many quote lookups were made for instrumentID
func (g *StaticGateway) Calls(instrumentID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[instrumentID]
}

// GetQuoteAndHistory implements domain.MarketDataGateway
func (g *StaticGateway) GetQuoteAndHistory(ctx context.Context, instrumentID string) (*domain.Quote, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls[instrumentID]++
	q, ok := g.quotes[instrumentID]
	if !ok {
		return nil, domain.NewMarketDataError(instrumentID, nil)
	}
	copied := *q
	return &copied, nil
}

// GetPriceOnOrBefore implements domain.MarketDataGateway
func (g *StaticGateway) GetPriceOnOrBefore(ctx context.Context, instrumentID string, date time.Time) (*domain.PricePoint, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.closes[instrumentID]
	if !ok {
		return nil, domain.NewMarketDataError(instrumentID, nil)
	}
	copied := *p
	return &copied, nil
}
