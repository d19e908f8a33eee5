// Package testutil generates deterministic test fixtures for the price
// packages.
package testutil

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/dealhawk/priceintel/internal/model"
)

// TestDataFactory produces randomized quotes, entries, and series from a
// seeded generator so failures reproduce.
type TestDataFactory struct {
	rand *rand.Rand
}

// NewTestDataFactory creates a factory. Seed 0 picks a time-based seed.
func NewTestDataFactory(seed int64) *TestDataFactory {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &TestDataFactory{rand: rand.New(rand.NewSource(seed))}
}

// ProductID generates a product identifier.
func (f *TestDataFactory) ProductID() string {
	return fmt.Sprintf("prod-%06d", f.rand.Intn(1_000_000))
}

// Platform picks one of the tracked marketplaces.
func (f *TestDataFactory) Platform() model.Platform {
	platforms := []model.Platform{
		model.PlatformAmazon,
		model.PlatformRakuten,
		model.PlatformYahoo,
		model.PlatformKakaku,
		model.PlatformMercari,
	}
	return platforms[f.rand.Intn(len(platforms))]
}

// Price generates a whole-yen price between 500 and 50000.
func (f *TestDataFactory) Price() float64 {
	return float64(f.rand.Intn(49_500) + 500)
}

// Quote generates a valid in-stock JPY quote for the product.
func (f *TestDataFactory) Quote(productID string, platform model.Platform) model.Quote {
	return model.Quote{
		ProductID:    productID,
		Platform:     platform,
		Price:        f.Price(),
		Currency:     "JPY",
		Availability: model.InStock,
		Condition:    model.ConditionNew,
		Source:       model.SourceAPI,
		ObservedAt:   f.Date(),
	}
}

// Entry generates a validated price entry at the given time.
func (f *TestDataFactory) Entry(productID string, platform model.Platform, price float64, at time.Time) model.PriceEntry {
	return model.PriceEntry{
		ProductID:    productID,
		Platform:     platform,
		Price:        price,
		Currency:     "JPY",
		Availability: model.InStock,
		Condition:    model.ConditionNew,
		Timestamp:    at,
	}
}

// Series generates n entries one day apart ending now, walking the price
// randomly within 5 percent per step.
func (f *TestDataFactory) Series(productID string, platform model.Platform, n int) []model.PriceEntry {
	entries := make([]model.PriceEntry, 0, n)
	price := f.Price()
	start := time.Now().AddDate(0, 0, -n)
	for i := 0; i < n; i++ {
		step := price * (f.rand.Float64()*0.1 - 0.05)
		price += step
		if price < 1 {
			price = 1
		}
		entries = append(entries, f.Entry(productID, platform, float64(int(price)), start.AddDate(0, 0, i+1)))
	}
	return entries
}

// Date generates a timestamp within the last year.
func (f *TestDataFactory) Date() time.Time {
	return time.Now().AddDate(0, 0, -f.rand.Intn(365))
}
