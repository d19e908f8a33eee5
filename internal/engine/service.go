// Package engine is the write and read surface of the price core. It
// validates incoming quotes into the history store and serves trend,
// statistics, and low lookups cache-aside.
package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dealhawk/priceintel/internal/analysis"
	"github.com/dealhawk/priceintel/internal/anomaly"
	"github.com/dealhawk/priceintel/internal/cache"
	"github.com/dealhawk/priceintel/internal/history"
	"github.com/dealhawk/priceintel/internal/model"
	"github.com/dealhawk/priceintel/internal/validation"
)

// recentWindow is how many prior entries the validator sees for the
// stale-feed check.
const recentWindow = 10

// Service wires the validator, detector, store, and cache together.
// Detector and cache may be nil; ingestion then skips anomaly reports
// and caching respectively.
type Service struct {
	validator *validation.Validator
	detector  *anomaly.Detector
	store     history.Store
	cache     *cache.PriceCache
	log       *zap.Logger
}

func New(v *validation.Validator, d *anomaly.Detector, store history.Store, pc *cache.PriceCache, log *zap.Logger) *Service {
	if v == nil {
		v = validation.New(validation.DefaultConfig())
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{validator: v, detector: d, store: store, cache: pc, log: log}
}

// IngestResult reports what happened to one quote. Entry is nil when
// validation rejected the quote; Anomaly is nil when no detector is
// configured.
type IngestResult struct {
	Entry      *model.PriceEntry `json:"entry,omitempty"`
	Validation validation.Result `json:"validation"`
	Anomaly    *anomaly.Report   `json:"anomaly,omitempty"`
}

// Ingest validates a raw quote, persists it, and invalidates the
// product's cached artifacts. Invalid quotes are reported, not persisted
// and not an error.
func (s *Service) Ingest(ctx context.Context, q model.Quote) (*IngestResult, error) {
	recent, err := s.store.Recent(ctx, q.ProductID, q.Platform, recentWindow)
	if err != nil {
		return nil, fmt.Errorf("loading recent history for %s: %w", q.ProductID, err)
	}

	res := &IngestResult{Validation: s.validator.Validate(q, recent)}
	if !res.Validation.Valid {
		s.log.Info("quote rejected",
			zap.String("product_id", q.ProductID),
			zap.String("platform", string(q.Platform)),
			zap.Strings("errors", res.Validation.Errors))
		return res, nil
	}

	if s.detector != nil {
		report := s.detector.Detect(recent, res.Validation.NormalizedPrice)
		res.Anomaly = &report
		if report.IsAnomaly {
			s.log.Warn("anomalous price accepted",
				zap.String("product_id", q.ProductID),
				zap.String("platform", string(q.Platform)),
				zap.String("type", string(report.Type)),
				zap.Float64("significance", report.Significance))
		}
	}

	entry := validation.Entry(q, res.Validation.NormalizedPrice)
	if err := s.store.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("persisting entry for %s: %w", q.ProductID, err)
	}
	res.Entry = &entry

	if s.cache != nil {
		s.cache.InvalidateProduct(ctx, q.ProductID)
	}
	return res, nil
}

// Trend serves the product's trend over periodDays, cache-aside. Nil
// means too little history.
func (s *Service) Trend(ctx context.Context, productID string, platform model.Platform, periodDays int) (*model.PriceTrend, error) {
	compute := func(ctx context.Context) (*model.PriceTrend, error) {
		entries, err := s.window(ctx, productID, platform, periodDays)
		if err != nil {
			return nil, err
		}
		return analysis.CalculateTrend(entries, periodDays), nil
	}
	if s.cache == nil {
		return compute(ctx)
	}
	return s.cache.Trend(ctx, productID, platform, periodDays, compute)
}

// Statistics serves summary statistics over periodDays, cache-aside.
func (s *Service) Statistics(ctx context.Context, productID string, platform model.Platform, periodDays int) (*model.PriceStatistics, error) {
	compute := func(ctx context.Context) (*model.PriceStatistics, error) {
		entries, err := s.window(ctx, productID, platform, periodDays)
		if err != nil {
			return nil, err
		}
		return analysis.CalculateStatistics(entries), nil
	}
	if s.cache == nil {
		return compute(ctx)
	}
	return s.cache.Statistics(ctx, productID, platform, periodDays, compute)
}

// HistoricalLow serves the lowest price across all platforms in the
// window, cache-aside.
func (s *Service) HistoricalLow(ctx context.Context, productID string, days int) (*model.HistoricalLow, error) {
	compute := func(ctx context.Context) (*model.HistoricalLow, error) {
		entries, err := s.window(ctx, productID, model.PlatformAll, days)
		if err != nil {
			return nil, err
		}
		return analysis.FindHistoricalLow(entries, days), nil
	}
	if s.cache == nil {
		return compute(ctx)
	}
	return s.cache.HistoricalLow(ctx, productID, days, compute)
}

// CurrentPrice serves the newest entry for a product on one platform,
// cache-aside with the shortest TTL class.
func (s *Service) CurrentPrice(ctx context.Context, productID string, platform model.Platform) (*model.PriceEntry, error) {
	compute := func(ctx context.Context) (*model.PriceEntry, error) {
		return s.store.Latest(ctx, productID, platform)
	}
	if s.cache == nil {
		return compute(ctx)
	}
	return s.cache.CurrentPrice(ctx, productID, platform, compute)
}

// PriceDrops lists discount events of at least thresholdPct in the
// window. Drops are recomputed on every call; they feed alerting, not
// the hot read path.
func (s *Service) PriceDrops(ctx context.Context, productID string, platform model.Platform, periodDays int, thresholdPct float64) ([]model.DropEvent, error) {
	entries, err := s.window(ctx, productID, platform, periodDays)
	if err != nil {
		return nil, err
	}
	return analysis.DetectPriceDrops(entries, thresholdPct), nil
}

func (s *Service) window(ctx context.Context, productID string, platform model.Platform, days int) ([]model.PriceEntry, error) {
	now := time.Now()
	entries, err := s.store.Range(ctx, productID, platform, now.AddDate(0, 0, -days), now)
	if err != nil {
		return nil, fmt.Errorf("loading history for %s: %w", productID, err)
	}
	return entries, nil
}
