// Package alphavantage provides a client for the Alpha Vantage market data API.
package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultBaseURL = "https://www.alphavantage.co/query"
	// Free tier budget
	dailyRequestLimit = 25
)

// ClientInterface is the subset of the API used by the market data gateway.
type ClientInterface interface {
	GetGlobalQuote(ctx context.Context, symbol string) (*GlobalQuote, error)
	GetDailyPrices(ctx context.Context, symbol string, full bool) ([]DailyPrice, error)
	SearchSymbol(ctx context.Context, keywords string) ([]SymbolMatch, error)
	GetCompanyOverview(ctx context.Context, symbol string) (*CompanyOverview, error)
}

type cacheEntry struct {
	data      interface{}
	expiresAt time.Time
}

// Client talks to Alpha Vantage with a daily request budget and an
// in-memory response cache.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	log     zerolog.Logger

	mu           sync.Mutex
	requestCount int
	resetAt      time.Time

	cacheMu  sync.RWMutex
	cache    map[string]cacheEntry
	cacheTTL CacheTTL
}

// NewClient creates a new Alpha Vantage client
func NewClient(apiKey string, log zerolog.Logger) *Client {
	return &Client{
		apiKey:   apiKey,
		baseURL:  defaultBaseURL,
		client:   &http.Client{Timeout: 30 * time.Second},
		log:      log.With().Str("client", "alphavantage").Logger(),
		resetAt:  nextMidnightUTC(),
		cache:    make(map[string]cacheEntry),
		cacheTTL: DefaultCacheTTL(),
	}
}

// SetCacheTTL replaces the cache TTL configuration
func (c *Client) SetCacheTTL(ttl CacheTTL) {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	c.cacheTTL = ttl
}

// GetRemainingRequests returns how many requests are left for today
func (c *Client) GetRemainingRequests() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maybeResetLocked()
	return dailyRequestLimit - c.requestCount
}

// ResetDailyCounter restores the full daily budget
func (c *Client) ResetDailyCounter() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requestCount = 0
	c.resetAt = nextMidnightUTC()
}

// checkRateLimit consumes one request from the daily budget
func (c *Client) checkRateLimit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maybeResetLocked()

	if c.requestCount >= dailyRequestLimit {
		return ErrRateLimitExceeded{}
	}
	c.requestCount++
	return nil
}

func (c *Client) maybeResetLocked() {
	if time.Now().UTC().After(c.resetAt) {
		c.requestCount = 0
		c.resetAt = nextMidnightUTC()
	}
}

// nextMidnightUTC returns the next daily budget reset time
func nextMidnightUTC() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
}

func (c *Client) setCache(key string, data interface{}, ttl time.Duration) {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	c.cache[key] = cacheEntry{data: data, expiresAt: time.Now().Add(ttl)}
}

func (c *Client) getFromCache(key string) (interface{}, bool) {
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()

	entry, ok := c.cache[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.data, true
}

// ClearCache drops every cached response
func (c *Client) ClearCache() {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	c.cache = make(map[string]cacheEntry)
}

// buildCacheKey renders function and params in a stable order, without the API key
func buildCacheKey(function string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "apikey" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(function)
	for _, k := range keys {
		b.WriteString("&")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(params[k])
	}
	return b.String()
}

// doRequest performs one API call after checking the daily budget
func (c *Client) doRequest(ctx context.Context, function string, params map[string]string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, ErrInvalidAPIKey{}
	}
	if err := c.checkRateLimit(); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("function", function)
	for k, v := range params {
		query.Set(k, v)
	}
	query.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.log.Debug().Str("function", function).Interface("params", params).Msg("Calling Alpha Vantage")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	if err := c.checkAPIError(body); err != nil {
		return nil, err
	}
	return body, nil
}

// checkAPIError detects error payloads, which Alpha Vantage returns with status 200
func (c *Client) checkAPIError(body []byte) error {
	text := string(body)
	if strings.Contains(text, "Thank you for using Alpha Vantage") {
		return ErrRateLimitExceeded{}
	}

	var payload struct {
		Note         string `json:"Note"`
		Information  string `json:"Information"`
		ErrorMessage string `json:"Error Message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		// Not an error envelope; the caller's parser decides
		return nil
	}

	switch {
	case payload.Note != "":
		return ErrRateLimitExceeded{}
	case strings.Contains(strings.ToLower(payload.Information), "api key"):
		return ErrInvalidAPIKey{}
	case payload.Information != "":
		return ErrRateLimitExceeded{}
	case payload.ErrorMessage != "":
		return fmt.Errorf("alpha vantage error: %s", payload.ErrorMessage)
	}
	return nil
}

// GetGlobalQuote returns the latest quote for symbol
func (c *Client) GetGlobalQuote(ctx context.Context, symbol string) (*GlobalQuote, error) {
	params := map[string]string{"symbol": symbol}
	key := buildCacheKey("GLOBAL_QUOTE", params)
	if cached, ok := c.getFromCache(key); ok {
		return cached.(*GlobalQuote), nil
	}

	body, err := c.doRequest(ctx, "GLOBAL_QUOTE", params)
	if err != nil {
		return nil, err
	}

	quote, err := parseGlobalQuote(body)
	if err != nil {
		return nil, err
	}
	if quote.Symbol == "" {
		return nil, ErrSymbolNotFound{Symbol: symbol}
	}

	c.setCache(key, quote, c.cacheTTL.PriceData)
	return quote, nil
}

// GetDailyPrices returns daily bars, newest first. full requests the whole
// history instead of the last 100 trading days.
func (c *Client) GetDailyPrices(ctx context.Context, symbol string, full bool) ([]DailyPrice, error) {
	outputSize := "compact"
	if full {
		outputSize = "full"
	}
	params := map[string]string{"symbol": symbol, "outputsize": outputSize}
	key := buildCacheKey("TIME_SERIES_DAILY", params)
	if cached, ok := c.getFromCache(key); ok {
		return cached.([]DailyPrice), nil
	}

	body, err := c.doRequest(ctx, "TIME_SERIES_DAILY", params)
	if err != nil {
		return nil, err
	}

	prices, err := parseDailyTimeSeries(body)
	if err != nil {
		return nil, err
	}
	if len(prices) == 0 {
		return nil, ErrSymbolNotFound{Symbol: symbol}
	}

	c.setCache(key, prices, c.cacheTTL.PriceData)
	return prices, nil
}

// SearchSymbol returns symbols matching keywords, best match first
func (c *Client) SearchSymbol(ctx context.Context, keywords string) ([]SymbolMatch, error) {
	params := map[string]string{"keywords": keywords}
	key := buildCacheKey("SYMBOL_SEARCH", params)
	if cached, ok := c.getFromCache(key); ok {
		return cached.([]SymbolMatch), nil
	}

	body, err := c.doRequest(ctx, "SYMBOL_SEARCH", params)
	if err != nil {
		return nil, err
	}

	matches, err := parseSymbolSearch(body)
	if err != nil {
		return nil, err
	}

	c.setCache(key, matches, c.cacheTTL.Fundamentals)
	return matches, nil
}

// GetCompanyOverview returns company fundamentals for symbol
func (c *Client) GetCompanyOverview(ctx context.Context, symbol string) (*CompanyOverview, error) {
	params := map[string]string{"symbol": symbol}
	key := buildCacheKey("OVERVIEW", params)
	if cached, ok := c.getFromCache(key); ok {
		return cached.(*CompanyOverview), nil
	}

	body, err := c.doRequest(ctx, "OVERVIEW", params)
	if err != nil {
		return nil, err
	}

	overview, err := parseCompanyOverview(body)
	if err != nil {
		return nil, err
	}
	if overview.Symbol == "" {
		return nil, ErrSymbolNotFound{Symbol: symbol}
	}

	c.setCache(key, overview, c.cacheTTL.Fundamentals)
	return overview, nil
}
