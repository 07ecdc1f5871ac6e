// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Market data providers
const (
	ProviderYahoo        = "yahoo"
	ProviderAlphaVantage = "alphavantage"
)

// Config holds application configuration
type Config struct {
	DataDir    string // Base directory for the cache database (always absolute)
	LedgerPath string // CSV transaction ledger (always absolute)
	Port       int
	LogLevel   string
	DevMode    bool

	MarketData MarketDataConfig

	PartialResults       bool          // Skip instruments whose lookup fails instead of failing the whole view
	RateLimitWindow      time.Duration // Minimum interval between mutating requests per client IP (0 disables)
	CacheCleanupSchedule string        // Cron spec with seconds field
}

// MarketDataConfig configures the market data gateway
type MarketDataConfig struct {
	Provider           string
	AlphaVantageAPIKey string
	OpenFIGIAPIKey     string // Optional, raises the ISIN mapping rate limit
	Timeout            time.Duration
	Concurrency        int
	LookbackDays       int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir, err := filepath.Abs(getEnv("DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	ledgerPath, err := filepath.Abs(getEnv("LEDGER_PATH", filepath.Join(dataDir, "stock_data.csv")))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve ledger path: %w", err)
	}

	cfg := &Config{
		DataDir:    dataDir,
		LedgerPath: ledgerPath,
		Port:       getEnvAsInt("GO_PORT", 8001),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		DevMode:    getEnvAsBool("DEV_MODE", false),
		MarketData: MarketDataConfig{
			Provider:           strings.ToLower(getEnv("MARKET_DATA_PROVIDER", ProviderYahoo)),
			AlphaVantageAPIKey: getEnv("ALPHA_VANTAGE_API_KEY", ""),
			OpenFIGIAPIKey:     getEnv("OPENFIGI_API_KEY", ""),
			Timeout:            getEnvAsDuration("MARKET_DATA_TIMEOUT", 15*time.Second),
			Concurrency:        getEnvAsInt("MARKET_DATA_CONCURRENCY", 4),
			LookbackDays:       getEnvAsInt("PRICE_LOOKBACK_DAYS", 5),
		},
		PartialResults:       getEnvAsBool("PORTFOLIO_PARTIAL_RESULTS", false),
		RateLimitWindow:      getEnvAsDuration("RATE_LIMIT_WINDOW", 0),
		CacheCleanupSchedule: getEnv("CACHE_CLEANUP_SCHEDULE", "0 0 3 * * *"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.LedgerPath == "" {
		return fmt.Errorf("ledger path is required")
	}

	switch c.MarketData.Provider {
	case ProviderYahoo:
	case ProviderAlphaVantage:
		if c.MarketData.AlphaVantageAPIKey == "" {
			return fmt.Errorf("ALPHA_VANTAGE_API_KEY is required when MARKET_DATA_PROVIDER=%s", ProviderAlphaVantage)
		}
	default:
		return fmt.Errorf("unknown market data provider: %q", c.MarketData.Provider)
	}

	if c.MarketData.Timeout <= 0 {
		return fmt.Errorf("market data timeout must be positive, got %s", c.MarketData.Timeout)
	}
	if c.MarketData.Concurrency < 1 {
		return fmt.Errorf("market data concurrency must be at least 1, got %d", c.MarketData.Concurrency)
	}
	if c.MarketData.LookbackDays < 0 {
		return fmt.Errorf("price lookback days cannot be negative, got %d", c.MarketData.LookbackDays)
	}
	if c.RateLimitWindow < 0 {
		return fmt.Errorf("rate limit window cannot be negative, got %s", c.RateLimitWindow)
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
