// Package marketdata implements the market data gateway: current quotes,
// daily close history and price-on-or-before lookups over a Provider, with a
// persistent cache and stale fallback.
package marketdata

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/aristath/stockledger/internal/clientdata"
	"github.com/aristath/stockledger/internal/domain"
	"github.com/rs/zerolog"
)

// Config tunes the gateway
type Config struct {
	Timeout      time.Duration // Bound on every gateway call
	LookbackDays int           // Window for GetPriceOnOrBefore
}

// cachedQuote is the structure stored in the quotes table
type cachedQuote struct {
	Name  string
	Price float64
}

// Gateway implements domain.MarketDataGateway
type Gateway struct {
	provider Provider
	cache    *clientdata.Repository
	cfg      Config
	log      zerolog.Logger
	now      func() time.Time
}

// NewGateway creates a gateway over provider.
// cache is optional - if nil, caching is disabled
func NewGateway(provider Provider, cache *clientdata.Repository, cfg Config, log zerolog.Logger) *Gateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = 5
	}
	return &Gateway{
		provider: provider,
		cache:    cache,
		cfg:      cfg,
		log:      log.With().Str("service", "marketdata").Str("provider", provider.Name()).Logger(),
		now:      time.Now,
	}
}

// GetQuoteAndHistory returns the display name, current price and full daily
// close history of instrumentID.
func (g *Gateway) GetQuoteAndHistory(ctx context.Context, instrumentID string) (*domain.Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	quote, err := g.quote(ctx, instrumentID)
	if err != nil {
		return nil, domain.NewMarketDataError(instrumentID, err)
	}

	history, err := g.history(ctx, instrumentID)
	if err != nil {
		return nil, domain.NewMarketDataError(instrumentID, err)
	}

	name := quote.Name
	if name == "" {
		name = instrumentID
	}

	return &domain.Quote{
		InstrumentID: instrumentID,
		DisplayName:  name,
		CurrentPrice: quote.Price,
		History:      history,
	}, nil
}

// GetPriceOnOrBefore returns the latest close dated within the lookback
// window ending on date, together with its actual date.
func (g *Gateway) GetPriceOnOrBefore(ctx context.Context, instrumentID string, date time.Time) (*domain.PricePoint, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	target := day(date)
	key := instrumentID + "|" + target.Format(domain.DateLayout)

	var cached domain.PricePoint
	if g.cacheGet(clientdata.TableCloses, key, &cached, true) {
		return &cached, nil
	}

	windowStart := target.AddDate(0, 0, -g.cfg.LookbackDays)
	closes, err := g.provider.DailyCloses(ctx, instrumentID, windowStart)
	if err != nil {
		if g.cacheGet(clientdata.TableCloses, key, &cached, false) {
			g.log.Warn().Err(err).Str("isin", instrumentID).Msg("Provider failed, using stale cached close")
			return &cached, nil
		}
		return nil, domain.NewMarketDataError(instrumentID, err)
	}

	point, ok := latestInWindow(closes, windowStart, target)
	if !ok {
		return nil, domain.NewMarketDataError(instrumentID, fmt.Errorf(
			"no close between %s and %s",
			windowStart.Format(domain.DateLayout), target.Format(domain.DateLayout)))
	}

	// Today's bar is still moving; only settled closes are cached
	if target.Before(day(g.now())) {
		g.cacheStore(clientdata.TableCloses, key, point, clientdata.TTLClose)
	}

	g.log.Debug().
		Str("isin", instrumentID).
		Str("requested", target.Format(domain.DateLayout)).
		Str("resolved", point.Date.Format(domain.DateLayout)).
		Float64("price", point.Price).
		Msg("Resolved close")

	return &point, nil
}

// latestInWindow picks the latest usable close whose date falls in [from, to]
func latestInWindow(closes []domain.PricePoint, from, to time.Time) (domain.PricePoint, bool) {
	var best domain.PricePoint
	found := false
	for _, c := range closes {
		d := day(c.Date)
		if d.Before(from) || d.After(to) || !validPrice(c.Price) {
			continue
		}
		if !found || d.After(best.Date) {
			best = domain.PricePoint{Date: d, Price: c.Price}
			found = true
		}
	}
	return best, found
}

func (g *Gateway) quote(ctx context.Context, instrumentID string) (*cachedQuote, error) {
	var cached cachedQuote
	if g.cacheGet(clientdata.TableQuotes, instrumentID, &cached, true) {
		return &cached, nil
	}

	q, err := g.provider.Quote(ctx, instrumentID)
	if err == nil && !validPrice(q.Price) {
		err = fmt.Errorf("provider returned invalid price %v", q.Price)
	}
	if err != nil {
		if g.cacheGet(clientdata.TableQuotes, instrumentID, &cached, false) {
			g.log.Warn().Err(err).Str("isin", instrumentID).Msg("Provider failed, using stale cached quote")
			return &cached, nil
		}
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}

	fresh := &cachedQuote{Name: q.Name, Price: q.Price}
	g.cacheStore(clientdata.TableQuotes, instrumentID, fresh, clientdata.TTLQuote)
	return fresh, nil
}

func (g *Gateway) history(ctx context.Context, instrumentID string) ([]domain.PricePoint, error) {
	var cached []domain.PricePoint
	if g.cacheGet(clientdata.TablePriceHistory, instrumentID, &cached, true) {
		return cached, nil
	}

	closes, err := g.provider.DailyCloses(ctx, instrumentID, time.Time{})
	if err != nil {
		if g.cacheGet(clientdata.TablePriceHistory, instrumentID, &cached, false) {
			g.log.Warn().Err(err).Str("isin", instrumentID).Msg("Provider failed, using stale cached history")
			return cached, nil
		}
		return nil, fmt.Errorf("failed to get price history: %w", err)
	}

	history := make([]domain.PricePoint, 0, len(closes))
	for _, c := range closes {
		if validPrice(c.Price) {
			history = append(history, domain.PricePoint{Date: day(c.Date), Price: c.Price})
		}
	}

	g.cacheStore(clientdata.TablePriceHistory, instrumentID, history, clientdata.TTLPriceHistory)
	return history, nil
}

// cacheGet reads a cache entry; fresh selects GetIfFresh over the stale read.
// Cache failures are logged and treated as misses.
func (g *Gateway) cacheGet(table, key string, dest interface{}, fresh bool) bool {
	if g.cache == nil {
		return false
	}

	var found bool
	var err error
	if fresh {
		found, err = g.cache.GetIfFresh(table, key, dest)
	} else {
		found, err = g.cache.Get(table, key, dest)
	}
	if err != nil {
		g.log.Warn().Err(err).Str("table", table).Str("key", key).Msg("Cache read failed")
		return false
	}
	if found && fresh {
		g.log.Debug().Str("table", table).Str("key", key).Msg("Cache hit")
	}
	return found
}

func (g *Gateway) cacheStore(table, key string, data interface{}, ttl time.Duration) {
	if g.cache == nil {
		return
	}
	if err := g.cache.Store(table, key, data, ttl); err != nil {
		g.log.Warn().Err(err).Str("table", table).Str("key", key).Msg("Failed to cache market data")
	}
}

func validPrice(p float64) bool {
	return p > 0 && !math.IsInf(p, 0) && !math.IsNaN(p)
}
