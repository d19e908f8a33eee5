package validation

import (
	"fmt"
	"math"

	"github.com/dealhawk/priceintel/internal/model"
)

// PlatformRule holds the per-platform formatting and sanity bounds used
// when validating quotes.
type PlatformRule struct {
	MinPrice float64
	MaxPrice float64
	Decimals int // price precision; 0 disallows fractional prices
}

// Config holds the validator's static thresholds. The discount limits are
// tunable configuration rather than hard-coded law.
type Config struct {
	AbsoluteCeiling      float64
	Currencies           map[string]bool
	Platforms            map[model.Platform]PlatformRule
	MaxDiscountPct       float64 // discounts above this are flagged unrealistic
	DiscountTolerancePts float64 // allowed gap between claimed and recomputed discount
	StaleRepeatCount     int     // identical prices in a row before a stale-feed warning
}

// DefaultConfig returns the production validation thresholds.
func DefaultConfig() Config {
	return Config{
		AbsoluteCeiling: 999_999_999,
		Currencies: map[string]bool{
			"JPY": true, "USD": true, "EUR": true, "GBP": true, "CNY": true,
		},
		Platforms: map[model.Platform]PlatformRule{
			model.PlatformAmazon:  {MinPrice: 1, MaxPrice: 10_000_000, Decimals: 2},
			model.PlatformRakuten: {MinPrice: 10, MaxPrice: 50_000_000, Decimals: 0},
			model.PlatformYahoo:   {MinPrice: 10, MaxPrice: 50_000_000, Decimals: 0},
			model.PlatformKakaku:  {MinPrice: 10, MaxPrice: 50_000_000, Decimals: 0},
			model.PlatformMercari: {MinPrice: 300, MaxPrice: 9_999_999, Decimals: 0},
		},
		MaxDiscountPct:       90,
		DiscountTolerancePts: 5,
		StaleRepeatCount:     5,
	}
}

// Result is the outcome of validating a single quote. Warnings do not
// invalidate; they reduce confidence and surface for review.
type Result struct {
	Valid           bool     `json:"valid"`
	Errors          []string `json:"errors,omitempty"`
	Warnings        []string `json:"warnings,omitempty"`
	NormalizedPrice float64  `json:"normalized_price"`
	Confidence      float64  `json:"confidence"`
}

// Validator checks incoming quotes against range, currency, discount and
// platform formatting rules. It is pure: the only inputs are the quote,
// the static config, and the recent entries supplied by the caller.
type Validator struct {
	cfg Config
}

// New creates a validator with the given config. Zero-value thresholds
// fall back to the defaults so partial configs stay safe.
func New(cfg Config) *Validator {
	def := DefaultConfig()
	if cfg.AbsoluteCeiling == 0 {
		cfg.AbsoluteCeiling = def.AbsoluteCeiling
	}
	if cfg.Currencies == nil {
		cfg.Currencies = def.Currencies
	}
	if cfg.Platforms == nil {
		cfg.Platforms = def.Platforms
	}
	if cfg.MaxDiscountPct == 0 {
		cfg.MaxDiscountPct = def.MaxDiscountPct
	}
	if cfg.DiscountTolerancePts == 0 {
		cfg.DiscountTolerancePts = def.DiscountTolerancePts
	}
	if cfg.StaleRepeatCount == 0 {
		cfg.StaleRepeatCount = def.StaleRepeatCount
	}
	return &Validator{cfg: cfg}
}

// Validate checks a quote and returns errors, warnings, the normalized
// price and a confidence score in [0,1]. recent holds the most recent
// entries for the same product and platform, newest last, and is only
// used for the stale-feed check.
func (v *Validator) Validate(q model.Quote, recent []model.PriceEntry) Result {
	res := Result{Valid: true}

	// Hard errors.
	if q.Price <= 0 {
		res.addError(fmt.Sprintf("price must be positive, got %v", q.Price))
	}
	if q.Price > v.cfg.AbsoluteCeiling {
		res.addError(fmt.Sprintf("price %v exceeds absolute ceiling %v", q.Price, v.cfg.AbsoluteCeiling))
	}
	if !v.cfg.Currencies[q.Currency] {
		res.addError(fmt.Sprintf("unsupported currency %q", q.Currency))
	}
	if q.OriginalPrice != nil && *q.OriginalPrice <= q.Price {
		res.addError(fmt.Sprintf("original price %v must exceed price %v", *q.OriginalPrice, q.Price))
	}

	rule, hasRule := v.cfg.Platforms[q.Platform]

	// Soft warnings.
	if q.Price > 0 && q.Price < 1 {
		res.addWarning(fmt.Sprintf("price %v below 1, possible decimal or unit error", q.Price))
	}
	if hasRule && q.Price > 0 && (q.Price < rule.MinPrice || q.Price > rule.MaxPrice) {
		res.addWarning(fmt.Sprintf("price %v outside %s band [%v, %v]", q.Price, q.Platform, rule.MinPrice, rule.MaxPrice))
	}
	if q.OriginalPrice != nil && *q.OriginalPrice > q.Price && q.Price > 0 {
		discount := (*q.OriginalPrice - q.Price) / *q.OriginalPrice * 100
		if q.DiscountPct != nil && math.Abs(discount-*q.DiscountPct) > v.cfg.DiscountTolerancePts {
			res.addWarning(fmt.Sprintf("claimed discount %.1f%% disagrees with computed %.1f%%", *q.DiscountPct, discount))
		}
		if discount > v.cfg.MaxDiscountPct {
			res.addWarning(fmt.Sprintf("discount %.1f%% exceeds %.0f%%, likely unrealistic", discount, v.cfg.MaxDiscountPct))
		}
	}
	if n := v.staleRun(q.Price, recent); n >= v.cfg.StaleRepeatCount {
		res.addWarning(fmt.Sprintf("price unchanged for last %d observations, feed may be stale", n))
	}
	if hasRule && rule.Decimals == 0 && q.Price != math.Trunc(q.Price) {
		res.addWarning(fmt.Sprintf("fractional price %v on platform %s which requires whole units", q.Price, q.Platform))
	}

	res.NormalizedPrice = normalize(q.Price, rule, hasRule)
	res.Confidence = v.confidence(q.Source, len(res.Errors), len(res.Warnings))
	return res
}

func (r *Result) addError(msg string) {
	r.Valid = false
	r.Errors = append(r.Errors, msg)
}

func (r *Result) addWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// staleRun counts how many of the most recent entries, walking backwards,
// carry exactly the quoted price.
func (v *Validator) staleRun(price float64, recent []model.PriceEntry) int {
	run := 0
	for i := len(recent) - 1; i >= 0; i-- {
		if recent[i].Price != price {
			break
		}
		run++
	}
	return run
}

// normalize rounds the price to the platform's configured precision.
// Platforms without a rule keep two decimals.
func normalize(price float64, rule PlatformRule, hasRule bool) float64 {
	decimals := 2
	if hasRule {
		decimals = rule.Decimals
	}
	pow := math.Pow(10, float64(decimals))
	return math.Round(price*pow) / pow
}

// confidence starts at 1.0, subtracts 0.3 per error and 0.1 per warning,
// applies the source reliability adjustment and clamps to [0,1].
func (v *Validator) confidence(source model.QuoteSource, errs, warns int) float64 {
	c := 1.0 - 0.3*float64(errs) - 0.1*float64(warns)
	switch source {
	case model.SourceAPI:
		c += 0.1
	case model.SourceScrape:
		c -= 0.1
	case model.SourceManual:
		c -= 0.2
	}
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// Entry converts a valid quote into an immutable PriceEntry carrying the
// normalized price. It does not persist anything.
func Entry(q model.Quote, normalizedPrice float64) model.PriceEntry {
	return model.PriceEntry{
		ProductID:     q.ProductID,
		Platform:      q.Platform,
		Price:         normalizedPrice,
		OriginalPrice: q.OriginalPrice,
		Currency:      q.Currency,
		Availability:  q.Availability,
		Condition:     q.Condition,
		Seller:        q.Seller,
		ShippingCost:  q.ShippingCost,
		ProductURL:    q.ProductURL,
		Timestamp:     q.ObservedAt,
		Metadata:      q.Metadata,
	}
}
