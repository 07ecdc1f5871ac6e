package marketdata

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aristath/stockledger/internal/clientdata"
	"github.com/aristath/stockledger/internal/domain"
	testingpkg "github.com/aristath/stockledger/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// fakeProvider serves fixed data and counts calls
type fakeProvider struct {
	mu          sync.Mutex
	quote       *ProviderQuote
	closes      []domain.PricePoint
	err         error
	delay       time.Duration
	quoteCalls  int
	closesCalls int
	lastFrom    time.Time
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Quote(ctx context.Context, symbol string) (*ProviderQuote, error) {
	p.mu.Lock()
	p.quoteCalls++
	q, err, delay := p.quote, p.err, p.delay
	p.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	copied := *q
	return &copied, nil
}

func (p *fakeProvider) DailyCloses(ctx context.Context, symbol string, from time.Time) ([]domain.PricePoint, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closesCalls++
	p.lastFrom = from
	if p.err != nil {
		return nil, p.err
	}
	return since(append([]domain.PricePoint(nil), p.closes...), from), nil
}

func (p *fakeProvider) fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func weekCloses() []domain.PricePoint {
	return []domain.PricePoint{
		{Date: date(2024, 1, 2), Price: 100},
		{Date: date(2024, 1, 3), Price: 101},
		{Date: date(2024, 1, 4), Price: 102},
		{Date: date(2024, 1, 5), Price: 103}, // Friday
		{Date: date(2024, 1, 8), Price: 104}, // Monday
	}
}

func newTestGateway(t *testing.T, provider *fakeProvider, withCache bool) *Gateway {
	t.Helper()
	var cache *clientdata.Repository
	if withCache {
		cache = clientdata.NewRepository(testingpkg.NewTestDB(t, "cache").Conn())
	}
	return newGatewayWithCache(provider, cache)
}

func newGatewayWithCache(provider *fakeProvider, cache *clientdata.Repository) *Gateway {
	gw := NewGateway(provider, cache, Config{Timeout: time.Second, LookbackDays: 5}, zerolog.Nop())
	gw.now = func() time.Time { return date(2024, 6, 1) }
	return gw
}

func TestGetQuoteAndHistory(t *testing.T) {
	provider := &fakeProvider{quote: &ProviderQuote{Name: "XYZ Corp", Price: 131.5}, closes: weekCloses()}
	gw := newTestGateway(t, provider, false)

	quote, err := gw.GetQuoteAndHistory(context.Background(), "XYZ")
	require.NoError(t, err)

	assert.Equal(t, "XYZ", quote.InstrumentID)
	assert.Equal(t, "XYZ Corp", quote.DisplayName)
	assert.Equal(t, 131.5, quote.CurrentPrice)
	require.Len(t, quote.History, 5)
	assert.True(t, quote.History[0].Date.Before(quote.History[4].Date))
	assert.True(t, provider.lastFrom.IsZero(), "full history requested")
}

func TestGetQuoteAndHistory_NameFallsBackToID(t *testing.T) {
	provider := &fakeProvider{quote: &ProviderQuote{Price: 10}, closes: weekCloses()}
	quote, err := newTestGateway(t, provider, false).GetQuoteAndHistory(context.Background(), "XYZ")
	require.NoError(t, err)
	assert.Equal(t, "XYZ", quote.DisplayName)
}

func TestGetQuoteAndHistory_InvalidPrice(t *testing.T) {
	for _, price := range []float64{0, -1} {
		provider := &fakeProvider{quote: &ProviderQuote{Price: price}, closes: weekCloses()}
		_, err := newTestGateway(t, provider, false).GetQuoteAndHistory(context.Background(), "XYZ")
		assert.ErrorIs(t, err, domain.ErrMarketDataUnavailable)
	}
}

func TestGetQuoteAndHistory_ProviderError(t *testing.T) {
	cause := errors.New("upstream down")
	provider := &fakeProvider{err: cause}

	_, err := newTestGateway(t, provider, false).GetQuoteAndHistory(context.Background(), "XYZ")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMarketDataUnavailable)
	assert.ErrorIs(t, err, cause)

	var mdErr *domain.MarketDataError
	require.ErrorAs(t, err, &mdErr)
	assert.Equal(t, "XYZ", mdErr.InstrumentID)
}

func TestGetQuoteAndHistory_Timeout(t *testing.T) {
	provider := &fakeProvider{quote: &ProviderQuote{Price: 1}, delay: time.Second}
	gw := newTestGateway(t, provider, false)
	gw.cfg.Timeout = 20 * time.Millisecond

	_, err := gw.GetQuoteAndHistory(context.Background(), "XYZ")
	assert.ErrorIs(t, err, domain.ErrMarketDataUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGetQuoteAndHistory_CacheFirst(t *testing.T) {
	provider := &fakeProvider{quote: &ProviderQuote{Name: "XYZ Corp", Price: 131.5}, closes: weekCloses()}
	gw := newTestGateway(t, provider, true)

	first, err := gw.GetQuoteAndHistory(context.Background(), "XYZ")
	require.NoError(t, err)
	second, err := gw.GetQuoteAndHistory(context.Background(), "XYZ")
	require.NoError(t, err)

	assert.Equal(t, 1, provider.quoteCalls)
	assert.Equal(t, 1, provider.closesCalls)
	assert.Equal(t, first.CurrentPrice, second.CurrentPrice)
	require.Len(t, second.History, len(first.History))
	for i := range first.History {
		assert.True(t, first.History[i].Date.Equal(second.History[i].Date))
		assert.Equal(t, first.History[i].Price, second.History[i].Price)
	}
}

func TestGetQuoteAndHistory_StaleFallback(t *testing.T) {
	provider := &fakeProvider{quote: &ProviderQuote{Name: "XYZ Corp", Price: 131.5}, closes: weekCloses()}
	db := testingpkg.NewTestDB(t, "cache")
	gw := newGatewayWithCache(provider, clientdata.NewRepository(db.Conn()))

	_, err := gw.GetQuoteAndHistory(context.Background(), "XYZ")
	require.NoError(t, err)

	// Expire everything, then break the provider
	for _, table := range clientdata.AllTables {
		_, err := db.Conn().Exec("UPDATE " + table + " SET expires_at = 0")
		require.NoError(t, err)
	}
	provider.fail(errors.New("upstream down"))

	quote, err := gw.GetQuoteAndHistory(context.Background(), "XYZ")
	require.NoError(t, err)
	assert.Equal(t, 131.5, quote.CurrentPrice)
	assert.Len(t, quote.History, 5)
	assert.Equal(t, 2, provider.quoteCalls)
}

func TestGetPriceOnOrBefore(t *testing.T) {
	tests := []struct {
		name     string
		date     time.Time
		wantDate time.Time
		want     float64
	}{
		{"trading day", date(2024, 1, 4), date(2024, 1, 4), 102},
		{"saturday resolves to friday", date(2024, 1, 6), date(2024, 1, 5), 103},
		{"sunday resolves to friday", date(2024, 1, 7), date(2024, 1, 5), 103},
		{"monday", date(2024, 1, 8), date(2024, 1, 8), 104},
		{"five days after last close", date(2024, 1, 13), date(2024, 1, 8), 104},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &fakeProvider{closes: weekCloses()}
			point, err := newTestGateway(t, provider, false).GetPriceOnOrBefore(context.Background(), "XYZ", tt.date)
			require.NoError(t, err)
			assert.True(t, tt.wantDate.Equal(point.Date), "got %s", point.Date)
			assert.Equal(t, tt.want, point.Price)
			assert.True(t, date(tt.date.Year(), tt.date.Month(), tt.date.Day()-5).Equal(provider.lastFrom))
		})
	}
}

func TestGetPriceOnOrBefore_NoCloseInWindow(t *testing.T) {
	provider := &fakeProvider{closes: weekCloses()}
	gw := newTestGateway(t, provider, false)

	_, err := gw.GetPriceOnOrBefore(context.Background(), "XYZ", date(2024, 1, 14))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMarketDataUnavailable)
	assert.Contains(t, err.Error(), "2024-01-09")

	_, err = gw.GetPriceOnOrBefore(context.Background(), "XYZ", date(2023, 12, 25))
	assert.ErrorIs(t, err, domain.ErrMarketDataUnavailable)
}

func TestGetPriceOnOrBefore_SkipsInvalidPrices(t *testing.T) {
	closes := append(weekCloses(), domain.PricePoint{Date: date(2024, 1, 9), Price: 0})
	provider := &fakeProvider{closes: closes}

	point, err := newTestGateway(t, provider, false).GetPriceOnOrBefore(context.Background(), "XYZ", date(2024, 1, 9))
	require.NoError(t, err)
	assert.Equal(t, 104.0, point.Price)
}

func TestGetPriceOnOrBefore_CachesSettledCloses(t *testing.T) {
	provider := &fakeProvider{closes: weekCloses()}
	gw := newTestGateway(t, provider, true)

	for i := 0; i < 3; i++ {
		point, err := gw.GetPriceOnOrBefore(context.Background(), "XYZ", date(2024, 1, 6))
		require.NoError(t, err)
		assert.Equal(t, 103.0, point.Price)
	}
	assert.Equal(t, 1, provider.closesCalls)
}

func TestGetPriceOnOrBefore_DoesNotCacheToday(t *testing.T) {
	provider := &fakeProvider{closes: weekCloses()}
	gw := newTestGateway(t, provider, true)
	gw.now = func() time.Time { return date(2024, 1, 8).Add(15 * time.Hour) }

	for i := 0; i < 2; i++ {
		_, err := gw.GetPriceOnOrBefore(context.Background(), "XYZ", date(2024, 1, 8))
		require.NoError(t, err)
	}
	assert.Equal(t, 2, provider.closesCalls)
}

func TestGetPriceOnOrBefore_ProviderError(t *testing.T) {
	provider := &fakeProvider{err: errors.New("boom")}
	_, err := newTestGateway(t, provider, false).GetPriceOnOrBefore(context.Background(), "XYZ", date(2024, 1, 6))
	assert.ErrorIs(t, err, domain.ErrMarketDataUnavailable)
}

func TestLatestInWindow(t *testing.T) {
	// Out of order input
	closes := []domain.PricePoint{
		{Date: date(2024, 1, 5), Price: 103},
		{Date: date(2024, 1, 2), Price: 100},
		{Date: date(2024, 1, 4).Add(14 * time.Hour), Price: 102},
	}

	point, ok := latestInWindow(closes, date(2024, 1, 1), date(2024, 1, 4))
	require.True(t, ok)
	assert.Equal(t, 102.0, point.Price)
	assert.True(t, date(2024, 1, 4).Equal(point.Date))

	_, ok = latestInWindow(closes, date(2024, 1, 6), date(2024, 1, 10))
	assert.False(t, ok)
}

func TestGatewayImplementsDomainInterface(t *testing.T) {
	var _ domain.MarketDataGateway = (*Gateway)(nil)
}
