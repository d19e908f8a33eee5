package model

import "time"

// Platform identifies a marketplace we track prices on.
type Platform string

const (
	PlatformAmazon  Platform = "amazon"
	PlatformRakuten Platform = "rakuten"
	PlatformYahoo   Platform = "yahoo"
	PlatformKakaku  Platform = "kakaku"
	PlatformMercari Platform = "mercari"

	// PlatformAll is the wildcard scope used by history queries and
	// cache keys that span every platform.
	PlatformAll Platform = "all"
)

// Availability describes whether an offer can currently be bought.
type Availability string

const (
	InStock      Availability = "in_stock"
	OutOfStock   Availability = "out_of_stock"
	LimitedStock Availability = "limited_stock"
	Discontinued Availability = "discontinued"
)

// Purchasable reports whether the availability counts as buyable
// for availability-rate statistics.
func (a Availability) Purchasable() bool {
	return a == InStock || a == LimitedStock
}

// Condition describes the physical state of the offered product.
type Condition string

const (
	ConditionNew         Condition = "new"
	ConditionUsed        Condition = "used"
	ConditionRefurbished Condition = "refurbished"
)

// QuoteSource identifies how a quote was observed. Reliability ranks
// api > scrape > manual and feeds the validator's confidence score.
type QuoteSource string

const (
	SourceAPI    QuoteSource = "api"
	SourceScrape QuoteSource = "scrape"
	SourceManual QuoteSource = "manual"
)

// Quote is a single raw price observation as delivered by a platform
// collaborator, before validation and normalization.
type Quote struct {
	ProductID     string            `json:"product_id"`
	Platform      Platform          `json:"platform"`
	Price         float64           `json:"price"`
	OriginalPrice *float64          `json:"original_price,omitempty"`
	// DiscountPct is the discount percentage claimed by the source,
	// cross-checked against the recomputed discount during validation.
	DiscountPct  *float64          `json:"discount_pct,omitempty"`
	Currency     string            `json:"currency"`
	Availability Availability      `json:"availability"`
	Condition    Condition         `json:"condition"`
	Seller       string            `json:"seller,omitempty"`
	ShippingCost float64           `json:"shipping_cost"`
	ProductURL   string            `json:"product_url,omitempty"`
	Source       QuoteSource       `json:"source"`
	ObservedAt   time.Time         `json:"observed_at"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// PriceEntry is an immutable validated price fact. Entries are only
// appended to the history store, never mutated; timestamp order is the
// only meaningful order.
type PriceEntry struct {
	ProductID     string            `json:"product_id"`
	Platform      Platform          `json:"platform"`
	Price         float64           `json:"price"`
	OriginalPrice *float64          `json:"original_price,omitempty"`
	Currency      string            `json:"currency"`
	Availability  Availability      `json:"availability"`
	Condition     Condition         `json:"condition"`
	Seller        string            `json:"seller,omitempty"`
	ShippingCost  float64           `json:"shipping_cost"`
	ProductURL    string            `json:"product_url,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// DiscountPct returns the discount implied by OriginalPrice, or 0 when
// no meaningful original price is present.
func (e PriceEntry) DiscountPct() float64 {
	if e.OriginalPrice == nil || *e.OriginalPrice <= 0 || *e.OriginalPrice <= e.Price {
		return 0
	}
	return (*e.OriginalPrice - e.Price) / *e.OriginalPrice * 100
}

// TrendDirection classifies the movement of a price series.
type TrendDirection string

const (
	TrendUp     TrendDirection = "up"
	TrendDown   TrendDirection = "down"
	TrendStable TrendDirection = "stable"
)

// PriceTrend is the derived trend view over a product's price history.
// It lives only in the cache and is recomputed from PriceEntry history
// on a miss.
type PriceTrend struct {
	ProductID        string         `json:"product_id"`
	Platform         Platform       `json:"platform"`
	CurrentPrice     float64        `json:"current_price"`
	AveragePrice     float64        `json:"average_price"`
	LowestPrice      float64        `json:"lowest_price"`
	HighestPrice     float64        `json:"highest_price"`
	PriceChange      float64        `json:"price_change"`
	PriceChangePct   float64        `json:"price_change_pct"`
	TrendDirection   TrendDirection `json:"trend_direction"`
	DataPoints       int            `json:"data_points"`
	PeriodDays       int            `json:"period_days"`
	LastUpdated      time.Time      `json:"last_updated"`
}

// PriceRange is an inclusive [low, high] price band.
type PriceRange struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// HistoricalLow is the lowest observed price within a lookback window,
// together with a quartile-based typical price range.
type HistoricalLow struct {
	ProductID    string     `json:"product_id"`
	LowestPrice  float64    `json:"lowest_price"`
	LowestEntry  PriceEntry `json:"lowest_entry"`
	DaysSinceLow int        `json:"days_since_low"`
	IsCurrentLow bool       `json:"is_current_low"`
	TypicalRange PriceRange `json:"typical_range"`
	WindowDays   int        `json:"window_days"`
}

// PriceStatistics summarizes a price series. Nil is the contract for an
// empty input set; a zeroed struct is never fabricated.
type PriceStatistics struct {
	TotalDataPoints   int     `json:"total_data_points"`
	AveragePrice      float64 `json:"average_price"`
	MedianPrice       float64 `json:"median_price"`
	StandardDeviation float64 `json:"standard_deviation"`
	MinPrice          float64 `json:"min_price"`
	MaxPrice          float64 `json:"max_price"`
	PriceSpread       float64 `json:"price_spread"`
	Volatility30D     float64 `json:"volatility_30d"`
	AvailabilityRate  float64 `json:"availability_rate"`
}

// DropEvent records a significant price drop, measured against the
// previous entry's original price.
type DropEvent struct {
	ProductID     string    `json:"product_id"`
	Platform      Platform  `json:"platform"`
	BaselinePrice float64   `json:"baseline_price"`
	Price         float64   `json:"price"`
	DropPct       float64   `json:"drop_pct"`
	Timestamp     time.Time `json:"timestamp"`
}

// AlertKind selects the predicate an alert condition evaluates.
type AlertKind string

const (
	AlertBelowTarget    AlertKind = "below_target"
	AlertHistoricalLow  AlertKind = "historical_low"
	AlertPercentageDrop AlertKind = "percentage_drop"
)

// AlertCondition is a user-owned, long-lived alert rule. Conditions are
// deactivated rather than deleted.
type AlertCondition struct {
	ID                 string     `json:"id"`
	UserID             string     `json:"user_id"`
	ProductID          string     `json:"product_id"`
	Platform           Platform   `json:"platform,omitempty"` // empty = any platform
	Kind               AlertKind  `json:"kind"`
	TargetPrice        *float64   `json:"target_price,omitempty"`
	Percentage         *float64   `json:"percentage,omitempty"`
	IsActive           bool       `json:"is_active"`
	TriggeredAt        *time.Time `json:"triggered_at,omitempty"`
	LastTriggeredPrice *float64   `json:"last_triggered_price,omitempty"`
	TotalTriggers      int        `json:"total_triggers"`
}

// ProductOffer is a per-platform snapshot used for cross-platform
// comparison. Rebuilt from the latest PriceEntry per platform and cached
// with a short TTL.
type ProductOffer struct {
	Platform      Platform     `json:"platform"`
	Price         float64      `json:"price"`
	OriginalPrice *float64     `json:"original_price,omitempty"`
	DiscountPct   float64      `json:"discount_pct"`
	Availability  Availability `json:"availability"`
	Condition     Condition    `json:"condition"`
	Currency      string       `json:"currency"`
	Seller        string       `json:"seller,omitempty"`
	SellerRating  float64      `json:"seller_rating,omitempty"` // 0-5, 0 = unknown
	ShippingCost  float64      `json:"shipping_cost"`
	DeliveryDays  int          `json:"delivery_days,omitempty"` // 0 = unknown
	URL           string       `json:"url,omitempty"`
	FirstSeenAt   time.Time    `json:"first_seen_at"`
	LastUpdatedAt time.Time    `json:"last_updated_at"`
}

// TotalPrice is the ranking price for comparisons: item price plus
// shipping when shipping is included.
func (o ProductOffer) TotalPrice(includeShipping bool) float64 {
	if includeShipping {
		return o.Price + o.ShippingCost
	}
	return o.Price
}
