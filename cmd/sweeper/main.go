// Command sweeper runs the scheduled alert sweep: it pulls fresh quotes
// for every product with an active alert condition, ingests them, and
// evaluates the conditions, logging fired alerts.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/dealhawk/priceintel/internal/alerts"
	"github.com/dealhawk/priceintel/internal/anomaly"
	"github.com/dealhawk/priceintel/internal/cache"
	"github.com/dealhawk/priceintel/internal/config"
	"github.com/dealhawk/priceintel/internal/engine"
	"github.com/dealhawk/priceintel/internal/history"
	"github.com/dealhawk/priceintel/internal/model"
	"github.com/dealhawk/priceintel/internal/platform"
	"github.com/dealhawk/priceintel/internal/validation"
)

func main() {
	cfg := config.Load()
	log, err := config.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conds, err := loadConditions(os.Getenv("PRICEINTEL_CONDITIONS_FILE"))
	if err != nil {
		log.Fatal("loading alert conditions", zap.Error(err))
	}
	log.Info("conditions loaded", zap.Int("count", len(conds)))

	store := history.NewMemoryStore(cfg.HistoryMaxPerProduct)
	pc, closeCache, err := buildCache(ctx, cfg, log)
	if err != nil {
		log.Fatal("cache setup", zap.Error(err))
	}
	defer closeCache()

	svc := engine.New(
		validation.New(validation.DefaultConfig()),
		anomaly.New(anomaly.Config{Window: cfg.AnomalyWindow, ZThreshold: cfg.AnomalyZThreshold}),
		store, pc, log,
	)
	reg := buildRegistry()
	ev := alerts.New(store, log)
	notifier := logNotifier{log: log}

	sched := cron.New()
	_, err = sched.AddFunc(cfg.SweepSchedule, func() {
		sweep(ctx, log, svc, reg, ev, notifier, conds)
	})
	if err != nil {
		log.Fatal("invalid sweep schedule", zap.String("schedule", cfg.SweepSchedule), zap.Error(err))
	}

	log.Info("sweeper started", zap.String("schedule", cfg.SweepSchedule))
	sched.Start()
	<-ctx.Done()

	stopCtx := sched.Stop()
	<-stopCtx.Done()
	log.Info("sweeper stopped")
}

func sweep(ctx context.Context, log *zap.Logger, svc *engine.Service, reg *platform.Registry, ev *alerts.Evaluator, n alerts.Notifier, conds []model.AlertCondition) {
	start := time.Now()

	for _, target := range sweepTargets(conds) {
		platforms := []model.Platform{target.platform}
		if target.platform == "" || target.platform == model.PlatformAll {
			platforms = reg.Platforms()
		}
		for _, plat := range platforms {
			prov := reg.Get(plat)
			if prov == nil || !prov.Available() {
				continue
			}
			q, err := prov.FetchLatestQuote(ctx, target.productID)
			if err != nil {
				if err != platform.ErrNoQuote {
					log.Warn("quote fetch failed",
						zap.String("product_id", target.productID),
						zap.String("platform", string(plat)),
						zap.Error(err))
				}
				continue
			}
			if _, err := svc.Ingest(ctx, *q); err != nil {
				log.Warn("ingest failed", zap.String("product_id", target.productID), zap.Error(err))
			}
		}
	}

	fired := ev.Sweep(ctx, conds, n)
	log.Info("sweep complete",
		zap.Int("conditions", len(conds)),
		zap.Int("fired", fired),
		zap.Duration("took", time.Since(start)))
}

type target struct {
	productID string
	platform  model.Platform
}

func sweepTargets(conds []model.AlertCondition) []target {
	seen := make(map[target]bool)
	var out []target
	for _, c := range conds {
		if !c.IsActive {
			continue
		}
		t := target{productID: c.ProductID, platform: c.Platform}
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// buildCache dials the configured cache server, or falls back to the
// in-process cache when none is configured.
func buildCache(ctx context.Context, cfg config.Config, log *zap.Logger) (*cache.PriceCache, func(), error) {
	if cfg.RedisAddr == "" {
		return cache.New(cache.NewMemoryStore(), cache.DefaultTTLs(), log), func() {}, nil
	}
	rs, err := cache.DialRedis(ctx, cfg.RedisAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("dialing %s: %w", cfg.RedisAddr, err)
	}
	return cache.New(rs, cache.DefaultTTLs(), log), func() { rs.Close() }, nil
}

// buildRegistry wires scrape providers for every platform with a base
// URL configured in the environment.
func buildRegistry() *platform.Registry {
	reg := platform.NewRegistry()
	for _, plat := range []model.Platform{
		model.PlatformAmazon,
		model.PlatformRakuten,
		model.PlatformYahoo,
		model.PlatformKakaku,
		model.PlatformMercari,
	} {
		baseURL := os.Getenv(fmt.Sprintf("PRICEINTEL_%s_BASE_URL", upper(plat)))
		if baseURL == "" {
			continue
		}
		pcfg := platform.DefaultConfig()
		pcfg.BaseURL = baseURL
		reg.Register(platform.NewScrapeProvider(plat, "JPY", pcfg, platform.Selectors{
			Price:         os.Getenv(fmt.Sprintf("PRICEINTEL_%s_PRICE_SELECTOR", upper(plat))),
			OriginalPrice: os.Getenv(fmt.Sprintf("PRICEINTEL_%s_ORIGINAL_PRICE_SELECTOR", upper(plat))),
			Availability:  os.Getenv(fmt.Sprintf("PRICEINTEL_%s_AVAILABILITY_SELECTOR", upper(plat))),
		}))
	}
	return reg
}

func upper(p model.Platform) string {
	return strings.ToUpper(string(p))
}

func loadConditions(path string) ([]model.AlertCondition, error) {
	if path == "" {
		return nil, fmt.Errorf("PRICEINTEL_CONDITIONS_FILE not set")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var conds []model.AlertCondition
	if err := json.Unmarshal(data, &conds); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return conds, nil
}

type logNotifier struct {
	log *zap.Logger
}

func (n logNotifier) Notify(ctx context.Context, res alerts.Result) error {
	n.log.Info("alert fired",
		zap.String("condition_id", res.Condition.ID),
		zap.String("user_id", res.Condition.UserID),
		zap.String("product_id", res.Condition.ProductID),
		zap.String("kind", string(res.Condition.Kind)),
		zap.Float64("price", res.Price),
		zap.String("message", res.Message))
	return nil
}
