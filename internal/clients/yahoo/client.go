// Package yahoo provides a Yahoo Finance client built on go-yfinance.
package yahoo

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wnjoon/go-yfinance/pkg/lookup"
	"github.com/wnjoon/go-yfinance/pkg/models"
	"github.com/wnjoon/go-yfinance/pkg/ticker"
)

// ISIN validation pattern (12 characters: 2 letters, 9 alphanumeric, 1 digit)
var isinPattern = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{9}[0-9]$`)

// isISIN checks if identifier is a valid ISIN
func isISIN(identifier string) bool {
	return isinPattern.MatchString(strings.TrimSpace(strings.ToUpper(identifier)))
}

// HistoricalPrice is one daily bar
type HistoricalPrice struct {
	Date     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   int64
	AdjClose float64
}

// Quote is the current price snapshot of a security
type Quote struct {
	Symbol string
	Name   string
	Price  float64
}

// Client fetches quotes and daily history from Yahoo Finance.
// Calls are synchronous; callers bound them with their own deadline.
type Client struct {
	log zerolog.Logger
}

// NewClient creates a new Yahoo Finance client
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		log: log.With().Str("client", "yahoo").Logger(),
	}
}

// resolveSymbol maps an ISIN to its ticker; anything else is used as-is
func (c *Client) resolveSymbol(symbol string) string {
	if !isISIN(symbol) {
		return symbol
	}

	resolved, err := c.LookupTickerFromISIN(symbol)
	if err != nil {
		c.log.Warn().Err(err).Str("isin", symbol).Msg("Failed to lookup ISIN, using ISIN directly")
		return symbol
	}
	return resolved
}

// GetQuote returns the display name and current price of symbol.
// The price falls back from the regular market price to pre/post market,
// then to the info current price and the previous close.
func (c *Client) GetQuote(symbol string) (*Quote, error) {
	yahooSymbol := c.resolveSymbol(symbol)

	t, err := ticker.New(yahooSymbol)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticker: %w", err)
	}
	defer t.Close()

	result := &Quote{Symbol: yahooSymbol}

	if quote, err := t.Quote(); err == nil && quote != nil {
		switch {
		case quote.RegularMarketPrice > 0:
			result.Price = quote.RegularMarketPrice
		case quote.PreMarketPrice > 0:
			result.Price = quote.PreMarketPrice
		case quote.PostMarketPrice > 0:
			result.Price = quote.PostMarketPrice
		}
	}

	info, err := t.Info()
	if err == nil && info != nil {
		result.Name = info.LongName
		if result.Name == "" {
			result.Name = info.ShortName
		}
		if result.Price <= 0 {
			if info.CurrentPrice > 0 {
				result.Price = info.CurrentPrice
			} else if info.RegularMarketPreviousClose > 0 {
				result.Price = info.RegularMarketPreviousClose
			}
		}
	}

	if result.Price <= 0 {
		return nil, fmt.Errorf("no valid price for %s", yahooSymbol)
	}
	return result, nil
}

// GetHistoricalPrices fetches daily bars for a Yahoo period ("5d", "1y", "max", ...),
// ascending by date.
func (c *Client) GetHistoricalPrices(symbol string, period string) ([]HistoricalPrice, error) {
	yahooSymbol := c.resolveSymbol(symbol)

	t, err := ticker.New(yahooSymbol)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticker: %w", err)
	}
	defer t.Close()

	bars, err := t.History(models.HistoryParams{
		Period:     period,
		Interval:   "1d",
		AutoAdjust: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get historical prices: %w", err)
	}

	prices := make([]HistoricalPrice, 0, len(bars))
	for _, bar := range bars {
		prices = append(prices, HistoricalPrice{
			Date:     bar.Date,
			Open:     bar.Open,
			High:     bar.High,
			Low:      bar.Low,
			Close:    bar.Close,
			Volume:   int64(bar.Volume),
			AdjClose: bar.AdjClose,
		})
	}

	c.log.Debug().
		Str("symbol", yahooSymbol).
		Str("period", period).
		Int("bars", len(prices)).
		Msg("Fetched historical prices")

	return prices, nil
}

// LookupTickerFromISIN searches Yahoo Finance for a ticker symbol using an ISIN
func (c *Client) LookupTickerFromISIN(isin string) (string, error) {
	if isin == "" {
		return "", fmt.Errorf("ISIN cannot be empty")
	}

	lookupClient, err := lookup.New(isin)
	if err != nil {
		return "", fmt.Errorf("failed to create lookup client: %w", err)
	}
	defer lookupClient.Close()

	results, err := lookupClient.Stock(1)
	if err != nil {
		return "", fmt.Errorf("failed to lookup ISIN: %w", err)
	}
	if len(results) == 0 {
		return "", fmt.Errorf("no ticker found for ISIN: %s", isin)
	}

	return results[0].Symbol, nil
}

// periods are the Yahoo history ranges, shortest first
var periods = []struct {
	name string
	span time.Duration
}{
	{"5d", 5 * 24 * time.Hour},
	{"1mo", 31 * 24 * time.Hour},
	{"3mo", 92 * 24 * time.Hour},
	{"6mo", 183 * 24 * time.Hour},
	{"1y", 366 * 24 * time.Hour},
	{"2y", 2 * 366 * 24 * time.Hour},
	{"5y", 5 * 366 * 24 * time.Hour},
	{"10y", 10 * 366 * 24 * time.Hour},
}

// PeriodCovering returns the shortest Yahoo period whose range reaches back
// from now to from, or "max" when none does.
func PeriodCovering(from, now time.Time) string {
	need := now.Sub(from)
	for _, p := range periods {
		if need <= p.span {
			return p.name
		}
	}
	return "max"
}
