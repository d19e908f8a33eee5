package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dealhawk/priceintel/internal/model"
)

// PriceCache is the cache-aside front for derived price artifacts. On a
// miss it runs the supplied compute function and writes the result back.
// Store failures are logged and bypassed; concurrent misses may both
// recompute and both write, which is fine because computation is
// idempotent and last write wins.
type PriceCache struct {
	store Store
	ttls  TTLSet
	log   *zap.Logger
}

// New creates a price cache. A nil store disables caching entirely, which
// keeps the read path identical for cacheless deployments.
func New(store Store, ttls TTLSet, log *zap.Logger) *PriceCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &PriceCache{store: store, ttls: ttls, log: log}
}

// lookup is the cache-aside read path. Nil computed values are passed
// through uncached so "no answer yet" is re-evaluated on the next read.
func lookup[T any](ctx context.Context, c *PriceCache, key string, ttl time.Duration, compute func(context.Context) (*T, error)) (*T, error) {
	if c.store != nil {
		data, err := c.store.Get(ctx, key)
		switch {
		case err == nil:
			var v T
			if uerr := json.Unmarshal(data, &v); uerr == nil {
				return &v, nil
			}
			c.log.Warn("corrupt cache entry, recomputing", zap.String("key", key))
		case errors.Is(err, ErrMiss):
			// fall through to compute
		default:
			c.log.Warn("cache store unavailable, computing directly", zap.String("key", key), zap.Error(err))
		}
	}

	v, err := compute(ctx)
	if err != nil || v == nil {
		return v, err
	}

	if c.store != nil {
		if data, merr := json.Marshal(v); merr == nil {
			if serr := c.store.Set(ctx, key, data, ttl); serr != nil {
				c.log.Warn("cache write failed", zap.String("key", key), zap.Error(serr))
			}
		}
	}
	return v, nil
}

// Trend reads or recomputes the trend for a product, platform and period.
func (c *PriceCache) Trend(ctx context.Context, productID string, platform model.Platform, periodDays int, compute func(context.Context) (*model.PriceTrend, error)) (*model.PriceTrend, error) {
	return lookup(ctx, c, trendKey(productID, platform, periodDays), c.ttls.Trend, compute)
}

// Statistics reads or recomputes price statistics.
func (c *PriceCache) Statistics(ctx context.Context, productID string, platform model.Platform, periodDays int, compute func(context.Context) (*model.PriceStatistics, error)) (*model.PriceStatistics, error) {
	return lookup(ctx, c, statsKey(productID, platform, periodDays), c.ttls.Statistics, compute)
}

// HistoricalLow reads or recomputes the historical low for a lookback.
func (c *PriceCache) HistoricalLow(ctx context.Context, productID string, days int, compute func(context.Context) (*model.HistoricalLow, error)) (*model.HistoricalLow, error) {
	return lookup(ctx, c, lowKey(productID, days), c.ttls.HistoricalLow, compute)
}

// CurrentPrice reads or refetches the latest entry. This is the shortest
// TTL class; callers expect near-real-time values.
func (c *PriceCache) CurrentPrice(ctx context.Context, productID string, platform model.Platform, compute func(context.Context) (*model.PriceEntry, error)) (*model.PriceEntry, error) {
	return lookup(ctx, c, currentKey(productID, platform), c.ttls.Current, compute)
}

// History reads or refetches a product's price history slice.
func (c *PriceCache) History(ctx context.Context, productID string, platform model.Platform, compute func(context.Context) ([]model.PriceEntry, error)) ([]model.PriceEntry, error) {
	out, err := lookup(ctx, c, historyKey(productID, platform), c.ttls.History, func(ctx context.Context) (*[]model.PriceEntry, error) {
		entries, err := compute(ctx)
		if err != nil || entries == nil {
			return nil, err
		}
		return &entries, nil
	})
	if err != nil || out == nil {
		return nil, err
	}
	return *out, nil
}

// Offers reads or rebuilds the cross-platform offer snapshot used by
// comparisons.
func (c *PriceCache) Offers(ctx context.Context, productID string, compute func(context.Context) ([]model.ProductOffer, error)) ([]model.ProductOffer, error) {
	out, err := lookup(ctx, c, comparisonKey(productID), c.ttls.Comparison, func(ctx context.Context) (*[]model.ProductOffer, error) {
		offers, err := compute(ctx)
		if err != nil || offers == nil {
			return nil, err
		}
		return &offers, nil
	})
	if err != nil || out == nil {
		return nil, err
	}
	return *out, nil
}

// InvalidateProduct drops every cached artifact for the product across
// all platforms, so the next read recomputes from fresh history. Store
// errors are logged, not returned: stale cache entries age out via TTL.
func (c *PriceCache) InvalidateProduct(ctx context.Context, productID string) {
	if c.store == nil {
		return
	}
	for _, prefix := range productPrefixes(productID) {
		if _, err := c.store.DeleteByPrefix(ctx, prefix); err != nil {
			c.log.Warn("cache invalidation failed", zap.String("prefix", prefix), zap.Error(err))
		}
	}
	// The comparison key carries no qualifier, so an exact delete avoids
	// sweeping away another product's entry that shares the id as a prefix.
	if err := c.store.Delete(ctx, comparisonKey(productID)); err != nil {
		c.log.Warn("cache invalidation failed", zap.String("key", comparisonKey(productID)), zap.Error(err))
	}
}

// HistoryItem is one unit of work for a bulk cache refresh.
type HistoryItem struct {
	ProductID string             `json:"product_id"`
	Platform  model.Platform     `json:"platform"`
	Entries   []model.PriceEntry `json:"entries"`
}

// warmWorkers bounds how many cache writes a batch warm keeps in flight.
const warmWorkers = 5

// WarmHistory populates history entries for a batch of products
// concurrently, at most warmWorkers writes in flight. Individual failures
// are collected and do not abort the rest of the batch.
func (c *PriceCache) WarmHistory(ctx context.Context, items []HistoryItem) []error {
	if c.store == nil || len(items) == 0 {
		return nil
	}

	errs := make([]error, len(items))
	sem := make(chan struct{}, warmWorkers)
	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, item HistoryItem) {
			defer wg.Done()
			defer func() { <-sem }()
			data, err := json.Marshal(item.Entries)
			if err != nil {
				errs[i] = err
				return
			}
			errs[i] = c.store.Set(ctx, historyKey(item.ProductID, item.Platform), data, c.ttls.History)
		}(i, item)
	}
	wg.Wait()

	var failed []error
	for _, err := range errs {
		if err != nil {
			failed = append(failed, err)
		}
	}
	if len(failed) > 0 {
		c.log.Warn("batch cache warm finished with failures", zap.Int("failed", len(failed)), zap.Int("total", len(items)))
	}
	return failed
}
