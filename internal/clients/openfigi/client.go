// Package openfigi provides a client for Bloomberg's OpenFIGI API.
// OpenFIGI is a free service for mapping securities identifiers like ISINs
// to exchange-specific ticker symbols.
package openfigi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/aristath/stockledger/internal/clientdata"
	"github.com/rs/zerolog"
)

// Rate limits: 25 requests/minute without API key, 25,000 with key
const defaultBaseURL = "https://api.openfigi.com/v3"

var isinPattern = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{9}[0-9]$`)

// IsISIN reports whether identifier has the shape of an ISIN
func IsISIN(identifier string) bool {
	return isinPattern.MatchString(strings.TrimSpace(strings.ToUpper(identifier)))
}

// PreferredExchanges is the order in which listings are chosen when an ISIN
// trades on several exchanges. Unlisted exchanges rank after these.
var PreferredExchanges = []string{"US", "UN", "UW", "LN", "GR", "FP", "NA"}

// MappingRequest represents a request to the OpenFIGI mapping API.
type MappingRequest struct {
	IDType    string `json:"idType"`
	IDValue   string `json:"idValue"`
	ExchCode  string `json:"exchCode,omitempty"`
	MarketSec string `json:"marketSecDes,omitempty"` // e.g., "Equity"
}

// MappingResult represents a single result from the OpenFIGI API.
type MappingResult struct {
	FIGI         string `json:"figi"`
	Ticker       string `json:"ticker"`
	ExchCode     string `json:"exchCode"` // Exchange code (e.g., "US", "LN", "GR")
	Name         string `json:"name"`
	MarketSector string `json:"marketSector"`
	SecurityType string `json:"securityType"`
}

// MappingResponse represents a response item from the OpenFIGI API.
type MappingResponse struct {
	Data    []MappingResult `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Warning string          `json:"warning,omitempty"`
}

// Client is the OpenFIGI API client.
type Client struct {
	baseURL    string
	apiKey     string // Optional - increases rate limits
	httpClient *http.Client
	log        zerolog.Logger
	cacheRepo  *clientdata.Repository
}

// NewClient creates a new OpenFIGI client.
// apiKey is optional but recommended for higher rate limits.
// cacheRepo is optional - if nil, caching is disabled.
func NewClient(apiKey string, cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log:       log.With().Str("client", "openfigi").Logger(),
		cacheRepo: cacheRepo,
	}
}

// ResolveTicker maps an ISIN to the ticker of its preferred listing.
func (c *Client) ResolveTicker(ctx context.Context, isin string) (string, error) {
	results, err := c.LookupISIN(ctx, isin)
	if err != nil {
		return "", err
	}

	best := PreferredListing(results)
	if best == nil {
		return "", fmt.Errorf("no listing found for ISIN %s", isin)
	}

	c.log.Debug().
		Str("isin", isin).
		Str("ticker", best.Ticker).
		Str("exchange", best.ExchCode).
		Msg("Resolved ISIN")

	return best.Ticker, nil
}

// PreferredListing picks the listing to price an ISIN with, or nil if none has a ticker
func PreferredListing(results []MappingResult) *MappingResult {
	var best *MappingResult
	bestRank := len(PreferredExchanges) + 1

	for i := range results {
		if results[i].Ticker == "" {
			continue
		}
		rank := len(PreferredExchanges)
		for j, code := range PreferredExchanges {
			if results[i].ExchCode == code {
				rank = j
				break
			}
		}
		if rank < bestRank {
			best, bestRank = &results[i], rank
		}
	}
	return best
}

// LookupISIN maps an ISIN to ticker symbol(s).
// Returns multiple results if the security trades on multiple exchanges.
// If the API fails, returns stale cached data if available.
func (c *Client) LookupISIN(ctx context.Context, isin string) ([]MappingResult, error) {
	isin = strings.TrimSpace(strings.ToUpper(isin))

	if results, ok := c.fromCache(isin, true); ok {
		c.log.Debug().Str("isin", isin).Msg("OpenFIGI cache hit")
		return results, nil
	}

	responses, err := c.doRequest(ctx, []MappingRequest{{IDType: "ID_ISIN", IDValue: isin}})
	if err != nil {
		if stale, ok := c.fromCache(isin, false); ok {
			c.log.Warn().
				Err(err).
				Str("isin", isin).
				Msg("API failed, using stale cached data")
			return stale, nil
		}
		return nil, err
	}

	if len(responses) == 0 {
		return nil, nil
	}
	if responses[0].Error != "" {
		return nil, fmt.Errorf("OpenFIGI rejected %s: %s", isin, responses[0].Error)
	}

	results := responses[0].Data
	c.setCache(isin, results)

	return results, nil
}

// doRequest performs the HTTP request to the OpenFIGI API.
func (c *Client) doRequest(ctx context.Context, requests []MappingRequest) ([]MappingResponse, error) {
	body, err := json.Marshal(requests)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/mapping", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-OPENFIGI-APIKEY", c.apiKey)
	}

	c.log.Debug().Int("count", len(requests)).Msg("Making OpenFIGI request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("OpenFIGI API error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var responses []MappingResponse
	if err := json.NewDecoder(resp.Body).Decode(&responses); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return responses, nil
}

// fromCache reads cached results; with fresh=false expired entries are returned too.
func (c *Client) fromCache(isin string, fresh bool) ([]MappingResult, bool) {
	if c.cacheRepo == nil {
		return nil, false
	}

	var results []MappingResult
	var found bool
	var err error
	if fresh {
		found, err = c.cacheRepo.GetIfFresh(clientdata.TableISINMappings, isin, &results)
	} else {
		found, err = c.cacheRepo.Get(clientdata.TableISINMappings, isin, &results)
	}
	if err != nil {
		c.log.Warn().Err(err).Str("isin", isin).Msg("Failed to read OpenFIGI cache")
		return nil, false
	}
	return results, found
}

// setCache stores results in the persistent cache.
func (c *Client) setCache(isin string, results []MappingResult) {
	if c.cacheRepo == nil {
		return
	}

	if err := c.cacheRepo.Store(clientdata.TableISINMappings, isin, results, clientdata.TTLISINMapping); err != nil {
		c.log.Warn().Err(err).Str("isin", isin).Msg("Failed to cache OpenFIGI results")
	}
}
