package cache

import (
	"strconv"
	"strings"
	"time"

	"github.com/dealhawk/priceintel/internal/model"
)

// Key layout: price:<class>:<productID>[:qualifier]. Keeping the product
// id directly after the class makes per-product prefix invalidation a
// handful of DeleteByPrefix calls.

// BuildKey joins key parts with the ":" separator.
func BuildKey(parts ...string) string {
	return strings.Join(parts, ":")
}

func historyKey(productID string, platform model.Platform) string {
	if platform == "" {
		platform = model.PlatformAll
	}
	return BuildKey("price", "history", productID, string(platform))
}

func currentKey(productID string, platform model.Platform) string {
	return BuildKey("price", "current", productID, string(platform))
}

func statsKey(productID string, platform model.Platform, periodDays int) string {
	if platform == "" {
		platform = model.PlatformAll
	}
	return BuildKey("price", "stats", productID, string(platform), strconv.Itoa(periodDays))
}

func trendKey(productID string, platform model.Platform, periodDays int) string {
	if platform == "" {
		platform = model.PlatformAll
	}
	return BuildKey("price", "trend", productID, string(platform), strconv.Itoa(periodDays))
}

func lowKey(productID string, days int) string {
	return BuildKey("price", "low", productID, strconv.Itoa(days))
}

func comparisonKey(productID string) string {
	return BuildKey("price", "compare", productID)
}

// productPrefixes lists the per-product key prefixes touched by
// invalidation when a new quote lands. The trailing separator keeps a
// product id from matching its own extensions (p1 vs p10). The
// comparison key has no qualifier and is deleted exactly, not by prefix.
func productPrefixes(productID string) []string {
	return []string{
		BuildKey("price", "history", productID) + ":",
		BuildKey("price", "current", productID) + ":",
		BuildKey("price", "stats", productID) + ":",
		BuildKey("price", "trend", productID) + ":",
		BuildKey("price", "low", productID) + ":",
	}
}

// TTLSet holds the TTL class per cached artifact. Current price is the
// shortest-lived; history and statistics tolerate more staleness.
type TTLSet struct {
	History       time.Duration
	Current       time.Duration
	Statistics    time.Duration
	Trend         time.Duration
	HistoricalLow time.Duration
	Comparison    time.Duration
}

// DefaultTTLs returns the production TTL classes.
func DefaultTTLs() TTLSet {
	return TTLSet{
		History:       30 * time.Minute,
		Current:       1 * time.Minute,
		Statistics:    30 * time.Minute,
		Trend:         15 * time.Minute,
		HistoricalLow: time.Hour,
		Comparison:    5 * time.Minute,
	}
}
