package marketdata

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/stockledger/internal/clientdata"
	"github.com/aristath/stockledger/internal/clients/alphavantage"
	"github.com/aristath/stockledger/internal/clients/openfigi"
	"github.com/aristath/stockledger/internal/clients/yahoo"
	"github.com/aristath/stockledger/internal/config"
	"github.com/aristath/stockledger/internal/domain"
	"github.com/rs/zerolog"
)

// ProviderQuote is the current price and display name reported by a provider.
type ProviderQuote struct {
	Name  string
	Price float64
}

// Provider is one upstream market data source.
type Provider interface {
	Name() string
	Quote(ctx context.Context, symbol string) (*ProviderQuote, error)
	// DailyCloses returns adjusted daily closes dated from `from` onwards,
	// ascending by date. A zero from asks for the whole available history.
	DailyCloses(ctx context.Context, symbol string, from time.Time) ([]domain.PricePoint, error)
}

// NewProvider builds the provider selected by cfg.Provider ("yahoo" or "alphavantage").
// cache backs the ISIN mapping lookups of the Alpha Vantage provider and may be nil.
func NewProvider(cfg config.MarketDataConfig, cache *clientdata.Repository, log zerolog.Logger) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderYahoo:
		return NewYahooProvider(yahoo.NewClient(log)), nil
	case config.ProviderAlphaVantage:
		if cfg.AlphaVantageAPIKey == "" {
			return nil, fmt.Errorf("alphavantage provider requires an API key")
		}
		return NewAlphaVantageProvider(
			alphavantage.NewClient(cfg.AlphaVantageAPIKey, log),
			openfigi.NewClient(cfg.OpenFIGIAPIKey, cache, log),
		), nil
	default:
		return nil, fmt.Errorf("unknown market data provider: %s", cfg.Provider)
	}
}

// SymbolResolver maps an ISIN to a ticker the provider understands
type SymbolResolver interface {
	ResolveTicker(ctx context.Context, isin string) (string, error)
}

// yahooClient is the part of yahoo.Client the provider uses
type yahooClient interface {
	GetQuote(symbol string) (*yahoo.Quote, error)
	GetHistoricalPrices(symbol string, period string) ([]yahoo.HistoricalPrice, error)
}

// YahooProvider adapts the synchronous Yahoo client to Provider.
type YahooProvider struct {
	client yahooClient
	now    func() time.Time
}

// NewYahooProvider creates a Yahoo-backed provider
func NewYahooProvider(client yahooClient) *YahooProvider {
	return &YahooProvider{client: client, now: time.Now}
}

// Name implements Provider
func (p *YahooProvider) Name() string { return config.ProviderYahoo }

// Quote implements Provider
func (p *YahooProvider) Quote(ctx context.Context, symbol string) (*ProviderQuote, error) {
	q, err := withContext(ctx, func() (*yahoo.Quote, error) {
		return p.client.GetQuote(symbol)
	})
	if err != nil {
		return nil, err
	}
	return &ProviderQuote{Name: q.Name, Price: q.Price}, nil
}

// DailyCloses implements Provider
func (p *YahooProvider) DailyCloses(ctx context.Context, symbol string, from time.Time) ([]domain.PricePoint, error) {
	period := "max"
	if !from.IsZero() {
		period = yahoo.PeriodCovering(from, p.now())
	}

	bars, err := withContext(ctx, func() ([]yahoo.HistoricalPrice, error) {
		return p.client.GetHistoricalPrices(symbol, period)
	})
	if err != nil {
		return nil, err
	}

	closes := make([]domain.PricePoint, 0, len(bars))
	for _, bar := range bars {
		price := bar.Close
		if bar.AdjClose > 0 {
			price = bar.AdjClose
		}
		closes = append(closes, domain.PricePoint{Date: bar.Date, Price: price})
	}
	return since(closes, from), nil
}

// AlphaVantageProvider adapts the Alpha Vantage client to Provider.
// Alpha Vantage only knows tickers, so ISINs go through the resolver first.
type AlphaVantageProvider struct {
	client   alphavantage.ClientInterface
	resolver SymbolResolver
	now      func() time.Time
}

// NewAlphaVantageProvider creates an Alpha Vantage-backed provider. resolver may be nil.
func NewAlphaVantageProvider(client alphavantage.ClientInterface, resolver SymbolResolver) *AlphaVantageProvider {
	return &AlphaVantageProvider{client: client, resolver: resolver, now: time.Now}
}

// symbol returns the ticker to query for an instrument id
func (p *AlphaVantageProvider) symbol(ctx context.Context, id string) (string, error) {
	if p.resolver == nil || !openfigi.IsISIN(id) {
		return id, nil
	}
	ticker, err := p.resolver.ResolveTicker(ctx, id)
	if err != nil {
		return "", fmt.Errorf("failed to resolve ISIN %s: %w", id, err)
	}
	return ticker, nil
}

// Name implements Provider
func (p *AlphaVantageProvider) Name() string { return config.ProviderAlphaVantage }

// Quote implements Provider. The display name comes from OVERVIEW; funds have
// no overview, so SYMBOL_SEARCH is asked next. The name stays empty when
// neither knows the symbol.
func (p *AlphaVantageProvider) Quote(ctx context.Context, id string) (*ProviderQuote, error) {
	symbol, err := p.symbol(ctx, id)
	if err != nil {
		return nil, err
	}

	quote, err := p.client.GetGlobalQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}

	result := &ProviderQuote{Price: quote.Price}
	if overview, err := p.client.GetCompanyOverview(ctx, symbol); err == nil && overview.Name != "" {
		result.Name = overview.Name
		return result, nil
	}
	result.Name = p.searchName(ctx, symbol)
	return result, nil
}

// searchName returns the name of the SYMBOL_SEARCH match for exactly symbol
func (p *AlphaVantageProvider) searchName(ctx context.Context, symbol string) string {
	matches, err := p.client.SearchSymbol(ctx, symbol)
	if err != nil {
		return ""
	}
	for _, m := range matches {
		if strings.EqualFold(m.Symbol, symbol) {
			return m.Name
		}
	}
	return ""
}

// compactCalendarDays is roughly how far back the compact output (100 trading days) reaches
const compactCalendarDays = 140

// DailyCloses implements Provider
func (p *AlphaVantageProvider) DailyCloses(ctx context.Context, id string, from time.Time) ([]domain.PricePoint, error) {
	symbol, err := p.symbol(ctx, id)
	if err != nil {
		return nil, err
	}

	full := from.IsZero() || p.now().Sub(from) > compactCalendarDays*24*time.Hour

	prices, err := p.client.GetDailyPrices(ctx, symbol, full)
	if err != nil {
		return nil, err
	}

	// The API returns newest first
	closes := make([]domain.PricePoint, 0, len(prices))
	for i := len(prices) - 1; i >= 0; i-- {
		closes = append(closes, domain.PricePoint{Date: prices[i].Date, Price: prices[i].Close})
	}
	return since(closes, from), nil
}

// since drops closes dated before from's calendar day
func since(closes []domain.PricePoint, from time.Time) []domain.PricePoint {
	if from.IsZero() {
		return closes
	}
	start := day(from)
	kept := closes[:0]
	for _, c := range closes {
		if !day(c.Date).Before(start) {
			kept = append(kept, c)
		}
	}
	return kept
}

// day truncates t to its calendar date in UTC, keeping the wall-clock date
func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

type result[T any] struct {
	value T
	err   error
}

// withContext runs a blocking call and returns early when ctx is done.
// The call keeps running in the background until it returns.
func withContext[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	done := make(chan result[T], 1)
	go func() {
		v, err := fn()
		done <- result[T]{value: v, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
