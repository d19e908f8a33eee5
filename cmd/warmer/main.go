// Command warmer bulk-populates the price cache from an exported history
// file, so overnight deploys start with warm reads. Partial failures are
// logged and counted but never abort the batch.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/dealhawk/priceintel/internal/cache"
	"github.com/dealhawk/priceintel/internal/config"
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

	path := os.Getenv("PRICEINTEL_HISTORY_FILE")
	if path == "" {
		log.Fatal("PRICEINTEL_HISTORY_FILE not set")
	}
	items, err := loadItems(path)
	if err != nil {
		log.Fatal("loading history export", zap.Error(err))
	}

	if cfg.RedisAddr == "" {
		log.Fatal("PRICEINTEL_REDIS_ADDR not set; warming an in-process cache is pointless")
	}
	rs, err := cache.DialRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("dialing cache server", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}
	defer rs.Close()

	pc := cache.New(rs, cache.DefaultTTLs(), log)
	errs := pc.WarmHistory(ctx, items)
	for _, err := range errs {
		log.Warn("warm failure", zap.Error(err))
	}
	log.Info("warm complete",
		zap.Int("items", len(items)),
		zap.Int("failed", len(errs)))

	if len(errs) == len(items) && len(items) > 0 {
		os.Exit(1)
	}
}

func loadItems(path string) ([]cache.HistoryItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var items []cache.HistoryItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return items, nil
}
