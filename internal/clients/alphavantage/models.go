package alphavantage

import "time"

// DailyPrice is one bar of the TIME_SERIES_DAILY series.
type DailyPrice struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// GlobalQuote is the latest price snapshot returned by GLOBAL_QUOTE.
type GlobalQuote struct {
	Symbol           string    `json:"symbol"`
	Open             float64   `json:"open"`
	High             float64   `json:"high"`
	Low              float64   `json:"low"`
	Price            float64   `json:"price"`
	Volume           int64     `json:"volume"`
	LatestTradingDay time.Time `json:"latest_trading_day"`
	PreviousClose    float64   `json:"previous_close"`
	Change           float64   `json:"change"`
	ChangePercent    float64   `json:"change_percent"`
}

// SymbolMatch is one SYMBOL_SEARCH result.
type SymbolMatch struct {
	Symbol      string  `json:"symbol"`
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Region      string  `json:"region"`
	MarketOpen  string  `json:"market_open"`
	MarketClose string  `json:"market_close"`
	Timezone    string  `json:"timezone"`
	Currency    string  `json:"currency"`
	MatchScore  float64 `json:"match_score"`
}

// CompanyOverview holds the OVERVIEW fields used for display.
// Optional ratios are nil when the API reports "None".
type CompanyOverview struct {
	Symbol               string   `json:"symbol"`
	AssetType            string   `json:"asset_type"`
	Name                 string   `json:"name"`
	Description          string   `json:"description"`
	Exchange             string   `json:"exchange"`
	Currency             string   `json:"currency"`
	Country              string   `json:"country"`
	Sector               string   `json:"sector"`
	Industry             string   `json:"industry"`
	MarketCapitalization int64    `json:"market_capitalization"`
	PERatio              *float64 `json:"pe_ratio"`
	EPS                  *float64 `json:"eps"`
	DividendYield        *float64 `json:"dividend_yield"`
	FiftyTwoWeekHigh     *float64 `json:"fifty_two_week_high"`
	FiftyTwoWeekLow      *float64 `json:"fifty_two_week_low"`
	Beta                 *float64 `json:"beta"`
}

// CacheTTL configures how long each kind of response is kept in memory.
type CacheTTL struct {
	Fundamentals time.Duration // OVERVIEW, SYMBOL_SEARCH
	PriceData    time.Duration // GLOBAL_QUOTE, TIME_SERIES_DAILY
}

// DefaultCacheTTL returns the default cache TTLs.
func DefaultCacheTTL() CacheTTL {
	return CacheTTL{
		Fundamentals: 24 * time.Hour,
		PriceData:    15 * time.Minute,
	}
}

// ErrRateLimitExceeded is returned when the daily request budget is used up
// or the API reports throttling.
type ErrRateLimitExceeded struct{}

func (ErrRateLimitExceeded) Error() string {
	return "alpha vantage rate limit exceeded"
}

// ErrInvalidAPIKey is returned when the API rejects the key.
type ErrInvalidAPIKey struct{}

func (ErrInvalidAPIKey) Error() string {
	return "alpha vantage rejected the API key as invalid"
}

// ErrSymbolNotFound is returned when a symbol has no data.
type ErrSymbolNotFound struct {
	Symbol string
}

func (e ErrSymbolNotFound) Error() string {
	return "alpha vantage has no data for symbol " + e.Symbol
}
