// Package di provides dependency injection for repositories and services.
package di

import (
	"fmt"

	"github.com/aristath/stockledger/internal/clientdata"
	"github.com/aristath/stockledger/internal/config"
	"github.com/aristath/stockledger/internal/marketdata"
	"github.com/aristath/stockledger/internal/modules/analytics"
	"github.com/aristath/stockledger/internal/modules/ledger"
	"github.com/aristath/stockledger/internal/modules/portfolio"
	"github.com/rs/zerolog"
)

// InitializeServices creates repositories, the market data gateway and all services
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	// Repositories
	container.CacheRepo = clientdata.NewRepository(container.CacheDB.Conn())
	container.LedgerStore = ledger.NewStore(cfg.LedgerPath, log)

	// Market data provider behind the caching gateway
	provider, err := marketdata.NewProvider(cfg.MarketData, container.CacheRepo, log)
	if err != nil {
		return fmt.Errorf("failed to create market data provider: %w", err)
	}
	container.Provider = provider
	container.Gateway = marketdata.NewGateway(provider, container.CacheRepo, marketdata.Config{
		Timeout:      cfg.MarketData.Timeout,
		LookbackDays: cfg.MarketData.LookbackDays,
	}, log)

	// Services
	container.LedgerService = ledger.NewService(container.LedgerStore, container.Gateway, log)
	container.PositionCalculator = portfolio.NewPositionCalculator(
		container.Gateway,
		cfg.MarketData.Concurrency,
		cfg.PartialResults,
	)
	container.PortfolioService = portfolio.NewService(container.LedgerStore, container.PositionCalculator, log)
	container.AnalyticsService = analytics.NewService(container.Gateway, log)

	log.Info().
		Str("provider", provider.Name()).
		Str("ledger", cfg.LedgerPath).
		Bool("partial_results", cfg.PartialResults).
		Msg("Services initialized")

	return nil
}
