package alphavantage

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// parseFloat64 parses an API number, treating "None", "null", "-" and "" as 0
// and accepting a trailing percent sign.
func parseFloat64(s string) float64 {
	v := parseFloat64Ptr(s)
	if v == nil {
		return 0
	}
	return *v
}

// parseFloat64Ptr is parseFloat64 returning nil for missing values.
func parseFloat64Ptr(s string) *float64 {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	switch s {
	case "", "None", "null", "-", ".":
		return nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// parseInt64 parses an integer that may be written in float or exponent form.
func parseInt64(s string) int64 {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	return int64(parseFloat64(s))
}

func parseDate(s string) time.Time {
	t, _ := time.Parse("2006-01-02", strings.TrimSpace(s))
	return t
}

func parseDailyTimeSeries(body []byte) ([]DailyPrice, error) {
	var raw struct {
		TimeSeries map[string]map[string]string `json:"Time Series (Daily)"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse daily time series: %w", err)
	}

	prices := make([]DailyPrice, 0, len(raw.TimeSeries))
	for date, bar := range raw.TimeSeries {
		d := parseDate(date)
		if d.IsZero() {
			continue
		}
		prices = append(prices, DailyPrice{
			Date:   d,
			Open:   parseFloat64(bar["1. open"]),
			High:   parseFloat64(bar["2. high"]),
			Low:    parseFloat64(bar["3. low"]),
			Close:  parseFloat64(bar["4. close"]),
			Volume: parseInt64(bar["5. volume"]),
		})
	}

	sort.Slice(prices, func(i, j int) bool {
		return prices[i].Date.After(prices[j].Date)
	})
	return prices, nil
}

func parseGlobalQuote(body []byte) (*GlobalQuote, error) {
	var raw struct {
		Quote map[string]string `json:"Global Quote"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse global quote: %w", err)
	}

	q := raw.Quote
	return &GlobalQuote{
		Symbol:           q["01. symbol"],
		Open:             parseFloat64(q["02. open"]),
		High:             parseFloat64(q["03. high"]),
		Low:              parseFloat64(q["04. low"]),
		Price:            parseFloat64(q["05. price"]),
		Volume:           parseInt64(q["06. volume"]),
		LatestTradingDay: parseDate(q["07. latest trading day"]),
		PreviousClose:    parseFloat64(q["08. previous close"]),
		Change:           parseFloat64(q["09. change"]),
		ChangePercent:    parseFloat64(q["10. change percent"]),
	}, nil
}

func parseSymbolSearch(body []byte) ([]SymbolMatch, error) {
	var raw struct {
		BestMatches []map[string]string `json:"bestMatches"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse symbol search: %w", err)
	}

	matches := make([]SymbolMatch, 0, len(raw.BestMatches))
	for _, m := range raw.BestMatches {
		matches = append(matches, SymbolMatch{
			Symbol:      m["1. symbol"],
			Name:        m["2. name"],
			Type:        m["3. type"],
			Region:      m["4. region"],
			MarketOpen:  m["5. marketOpen"],
			MarketClose: m["6. marketClose"],
			Timezone:    m["7. timezone"],
			Currency:    m["8. currency"],
			MatchScore:  parseFloat64(m["9. matchScore"]),
		})
	}
	return matches, nil
}

func parseCompanyOverview(body []byte) (*CompanyOverview, error) {
	var raw map[string]string
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse company overview: %w", err)
	}

	return &CompanyOverview{
		Symbol:               raw["Symbol"],
		AssetType:            raw["AssetType"],
		Name:                 raw["Name"],
		Description:          raw["Description"],
		Exchange:             raw["Exchange"],
		Currency:             raw["Currency"],
		Country:              raw["Country"],
		Sector:               raw["Sector"],
		Industry:             raw["Industry"],
		MarketCapitalization: parseInt64(raw["MarketCapitalization"]),
		PERatio:              parseFloat64Ptr(raw["PERatio"]),
		EPS:                  parseFloat64Ptr(raw["EPS"]),
		DividendYield:        parseFloat64Ptr(raw["DividendYield"]),
		FiftyTwoWeekHigh:     parseFloat64Ptr(raw["52WeekHigh"]),
		FiftyTwoWeekLow:      parseFloat64Ptr(raw["52WeekLow"]),
		Beta:                 parseFloat64Ptr(raw["Beta"]),
	}, nil
}
