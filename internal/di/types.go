/**
 * Package di provides dependency injection type definitions.
 *
 * This package defines the Container type which holds all application dependencies.
 * The Container is the single source of truth for all service instances and is
 * passed to the server for access to services.
 */
package di

import (
	"github.com/aristath/stockledger/internal/clientdata"
	"github.com/aristath/stockledger/internal/database"
	"github.com/aristath/stockledger/internal/marketdata"
	"github.com/aristath/stockledger/internal/modules/analytics"
	"github.com/aristath/stockledger/internal/modules/ledger"
	"github.com/aristath/stockledger/internal/modules/portfolio"
	"github.com/aristath/stockledger/internal/scheduler"
)

/**
 * Container holds all dependencies for the application.
 *
 * Architecture:
 * - Ledger: the CSV file is the only persistent state, owned by LedgerStore
 * - CacheDB: SQLite cache of provider responses (quotes, history, settled closes)
 * - Market data: provider client behind the caching gateway
 * - Services: ledger mutations, portfolio views, return analytics
 * - Scheduler: cache cleanup and WAL maintenance
 */
type Container struct {
	// Databases
	CacheDB *database.DB // Market data cache (ephemeral, safe to delete)

	// Repositories
	CacheRepo   *clientdata.Repository
	LedgerStore *ledger.Store

	// Market data
	Provider marketdata.Provider
	Gateway  *marketdata.Gateway

	// Services
	LedgerService      *ledger.Service
	PositionCalculator *portfolio.PositionCalculator
	PortfolioService   *portfolio.Service
	AnalyticsService   *analytics.Service

	// Background jobs
	Scheduler *scheduler.Scheduler
}

// JobInstances holds references to registered jobs for manual triggering
type JobInstances struct {
	CacheCleanup  *clientdata.CleanupJob
	WALCheckpoint *scheduler.WALCheckpointJob
}

// Close releases resources held by the container
func (c *Container) Close() error {
	if c.CacheDB != nil {
		return c.CacheDB.Close()
	}
	return nil
}
