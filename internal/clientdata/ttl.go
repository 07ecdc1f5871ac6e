package clientdata

import "time"

// TTL constants for the cache tables.
// These are added to time.Now() when storing to calculate expires_at.
const (
	TTLQuote        = 10 * time.Minute    // Current price, display name and short history
	TTLPriceHistory = 12 * time.Hour      // Daily bars used for date lookups and returns
	TTLClose        = 30 * 24 * time.Hour // A resolved close for a past date does not change
	TTLISINMapping  = 30 * 24 * time.Hour // ISIN-to-ticker mappings rarely change
)
