// Package clientdata provides persistent caching for market data provider responses.
// Entries are stored as msgpack blobs with expiration timestamps for cache-first
// behavior; expired entries remain readable as a stale fallback.
package clientdata

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/stockledger/internal/database"
	"github.com/vmihailenco/msgpack/v5"
)

// Cache tables.
const (
	TableQuotes       = "quotes"
	TablePriceHistory = "price_history"
	TableCloses       = "closes"
	TableISINMappings = "isin_mappings"
)

// AllTables lists all cache tables for cleanup operations.
var AllTables = []string{
	TableQuotes,
	TablePriceHistory,
	TableCloses,
	TableISINMappings,
}

// validTables is a set for O(1) table name validation.
var validTables = func() map[string]bool {
	m := make(map[string]bool, len(AllTables))
	for _, t := range AllTables {
		m[t] = true
	}
	return m
}()

// Repository provides cache operations for provider data.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository creates a new client data repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// validateTable ensures the table name is in our allowed list.
// Table names are interpolated into SQL, so nothing else may pass.
func validateTable(table string) error {
	if !validTables[table] {
		return fmt.Errorf("invalid table name: %s", table)
	}
	return nil
}

// Store saves data with expiration = now + ttl, replacing any previous entry.
func (r *Repository) Store(table, key string, data interface{}, ttl time.Duration) error {
	if err := validateTable(table); err != nil {
		return err
	}

	blob, err := msgpack.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	expiresAt := r.now().Add(ttl).Unix()
	query := fmt.Sprintf("INSERT OR REPLACE INTO %s (key, data, expires_at) VALUES (?, ?, ?)", table)

	if _, err := r.db.Exec(query, key, blob, expiresAt); err != nil {
		return fmt.Errorf("failed to store data in %s: %w", table, err)
	}
	return nil
}

// GetIfFresh decodes the entry into dest only if it has not expired.
// Reports false when the key is missing or expired.
func (r *Repository) GetIfFresh(table, key string, dest interface{}) (bool, error) {
	if err := validateTable(table); err != nil {
		return false, err
	}

	query := fmt.Sprintf("SELECT data FROM %s WHERE key = ? AND expires_at > ?", table)
	return r.load(table, dest, query, key, r.now().Unix())
}

// Get decodes the entry into dest regardless of expiration status.
// Use this as a fallback when the provider fails: stale data is better than no data.
func (r *Repository) Get(table, key string, dest interface{}) (bool, error) {
	if err := validateTable(table); err != nil {
		return false, err
	}

	query := fmt.Sprintf("SELECT data FROM %s WHERE key = ?", table)
	return r.load(table, dest, query, key)
}

func (r *Repository) load(table string, dest interface{}, query string, args ...interface{}) (bool, error) {
	var blob []byte
	err := r.db.QueryRow(query, args...).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get data from %s: %w", table, err)
	}

	if err := msgpack.Unmarshal(blob, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal data from %s: %w", table, err)
	}
	return true, nil
}

// Delete removes a specific entry.
func (r *Repository) Delete(table, key string) error {
	if err := validateTable(table); err != nil {
		return err
	}

	if _, err := r.db.Exec(fmt.Sprintf("DELETE FROM %s WHERE key = ?", table), key); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return nil
}

// DeleteExpired removes all rows where expires_at < now.
// Returns the number of rows deleted.
func (r *Repository) DeleteExpired(table string) (int64, error) {
	if err := validateTable(table); err != nil {
		return 0, err
	}

	result, err := r.db.Exec(fmt.Sprintf("DELETE FROM %s WHERE expires_at < ?", table), r.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired from %s: %w", table, err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected for %s: %w", table, err)
	}
	return deleted, nil
}

// DeleteAllExpired removes expired entries from every table in one transaction.
// Returns a map of table name to number of rows deleted.
func (r *Repository) DeleteAllExpired() (map[string]int64, error) {
	results := make(map[string]int64, len(AllTables))
	now := r.now().Unix()

	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		for _, table := range AllTables {
			result, err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE expires_at < ?", table), now)
			if err != nil {
				return fmt.Errorf("failed to delete expired from %s: %w", table, err)
			}
			deleted, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to get rows affected for %s: %w", table, err)
			}
			results[table] = deleted
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Counts returns the number of entries per table, expired ones included.
func (r *Repository) Counts() (map[string]int64, error) {
	counts := make(map[string]int64, len(AllTables))
	for _, table := range AllTables {
		var n int64
		if err := r.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}
