// Package alerts evaluates user-owned alert conditions against the latest
// observed price. Firing is a pure predicate; persisting trigger state and
// delivering notifications is the caller's job.
package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dealhawk/priceintel/internal/analysis"
	"github.com/dealhawk/priceintel/internal/history"
	"github.com/dealhawk/priceintel/internal/model"
)

// lowWindowDays is the look-back window used when a historical_low
// condition needs a low computed on the fly.
const lowWindowDays = 90

// Result reports the outcome of evaluating one condition.
type Result struct {
	Condition model.AlertCondition `json:"condition"`
	Fired     bool                 `json:"fired"`
	Price     float64              `json:"price"`
	Message   string               `json:"message,omitempty"`
	CheckedAt time.Time            `json:"checked_at"`
}

// Notifier receives fired alerts. Delivery is entirely its concern.
type Notifier interface {
	Notify(ctx context.Context, res Result) error
}

// NewCondition builds an inactive-by-default alert condition with a fresh
// ID. Callers set the kind-specific parameters before saving it.
func NewCondition(userID, productID string, kind model.AlertKind) model.AlertCondition {
	return model.AlertCondition{
		ID:        uuid.NewString(),
		UserID:    userID,
		ProductID: productID,
		Kind:      kind,
		IsActive:  true,
	}
}

// Fires reports whether the condition triggers on the latest entry. A
// historical_low condition needs low supplied; without it the condition
// cannot fire.
func Fires(latest model.PriceEntry, cond model.AlertCondition, low *model.HistoricalLow) bool {
	switch cond.Kind {
	case model.AlertBelowTarget:
		return cond.TargetPrice != nil && latest.Price <= *cond.TargetPrice
	case model.AlertHistoricalLow:
		return low != nil && latest.Price <= low.LowestPrice
	case model.AlertPercentageDrop:
		if cond.Percentage == nil || latest.OriginalPrice == nil || *latest.OriginalPrice <= 0 {
			return false
		}
		drop := (*latest.OriginalPrice - latest.Price) / *latest.OriginalPrice * 100
		return drop >= *cond.Percentage
	default:
		return false
	}
}

// Evaluator checks alert conditions against stored price history.
type Evaluator struct {
	store history.Store
	log   *zap.Logger
}

func New(store history.Store, log *zap.Logger) *Evaluator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Evaluator{store: store, log: log}
}

// Check evaluates a single condition. Inactive conditions and products
// without history never fire.
func (e *Evaluator) Check(ctx context.Context, cond model.AlertCondition) (Result, error) {
	res := Result{Condition: cond, CheckedAt: time.Now()}
	if !cond.IsActive {
		return res, nil
	}

	latest, err := e.store.Latest(ctx, cond.ProductID, cond.Platform)
	if err != nil {
		return res, fmt.Errorf("loading latest price for %s: %w", cond.ProductID, err)
	}
	if latest == nil {
		return res, nil
	}
	res.Price = latest.Price

	var low *model.HistoricalLow
	if cond.Kind == model.AlertHistoricalLow {
		low, err = e.historicalLow(ctx, cond)
		if err != nil {
			return res, err
		}
	}

	if Fires(*latest, cond, low) {
		res.Fired = true
		res.Message = fireMessage(*latest, cond, low)
	}
	return res, nil
}

// CheckAll evaluates a batch of conditions, skipping inactive ones. A
// failing condition is logged and reported unfired rather than aborting
// the batch.
func (e *Evaluator) CheckAll(ctx context.Context, conds []model.AlertCondition) []Result {
	results := make([]Result, 0, len(conds))
	for _, cond := range conds {
		if !cond.IsActive {
			continue
		}
		res, err := e.Check(ctx, cond)
		if err != nil {
			e.log.Warn("alert check failed",
				zap.String("condition_id", cond.ID),
				zap.String("product_id", cond.ProductID),
				zap.Error(err))
		}
		results = append(results, res)
	}
	return results
}

// Sweep runs CheckAll and hands every fired result to the notifier.
// Notification failures are logged, not returned; the sweep itself
// reports how many alerts fired.
func (e *Evaluator) Sweep(ctx context.Context, conds []model.AlertCondition, n Notifier) int {
	fired := 0
	for _, res := range e.CheckAll(ctx, conds) {
		if !res.Fired {
			continue
		}
		fired++
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, res); err != nil {
			e.log.Warn("alert notification failed",
				zap.String("condition_id", res.Condition.ID),
				zap.Error(err))
		}
	}
	return fired
}

func (e *Evaluator) historicalLow(ctx context.Context, cond model.AlertCondition) (*model.HistoricalLow, error) {
	now := time.Now()
	entries, err := e.store.Range(ctx, cond.ProductID, cond.Platform, now.AddDate(0, 0, -lowWindowDays), now)
	if err != nil {
		return nil, fmt.Errorf("loading history for %s: %w", cond.ProductID, err)
	}
	return analysis.FindHistoricalLow(entries, lowWindowDays), nil
}

func fireMessage(latest model.PriceEntry, cond model.AlertCondition, low *model.HistoricalLow) string {
	switch cond.Kind {
	case model.AlertBelowTarget:
		return fmt.Sprintf("price %.2f %s is at or below your target %.2f", latest.Price, latest.Currency, *cond.TargetPrice)
	case model.AlertHistoricalLow:
		return fmt.Sprintf("price %.2f %s matches the %d-day low %.2f", latest.Price, latest.Currency, low.WindowDays, low.LowestPrice)
	case model.AlertPercentageDrop:
		drop := (*latest.OriginalPrice - latest.Price) / *latest.OriginalPrice * 100
		return fmt.Sprintf("price dropped %.1f%% to %.2f %s", drop, latest.Price, latest.Currency)
	default:
		return ""
	}
}
