package compare

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dealhawk/priceintel/internal/cache"
	"github.com/dealhawk/priceintel/internal/model"
	"github.com/dealhawk/priceintel/internal/platform"
)

func quote(price, shipping float64) model.Quote {
	return model.Quote{
		Price:        price,
		ShippingCost: shipping,
		Currency:     "JPY",
		Availability: model.InStock,
		Condition:    model.ConditionNew,
		Source:       model.SourceAPI,
		ObservedAt:   time.Now(),
	}
}

func registryWith(t *testing.T, quotes map[model.Platform]model.Quote) *platform.Registry {
	t.Helper()
	reg := platform.NewRegistry()
	for plat, q := range quotes {
		p := platform.NewMockProvider(plat)
		p.SetQuote("prod-1", q)
		reg.Register(p)
	}
	return reg
}

func TestCompare_RankingAndBestValue(t *testing.T) {
	reg := registryWith(t, map[model.Platform]model.Quote{
		model.PlatformAmazon:  quote(5200, 0),
		model.PlatformRakuten: quote(4980, 500),
		model.PlatformYahoo:   quote(5100, 200),
	})
	o := New(reg, nil, zap.NewNop())

	cmp, err := o.Compare(context.Background(), "prod-1", Options{IncludeShipping: true})
	if err != nil {
		t.Fatalf("compare: %v", err)
	}

	// Totals with shipping: amazon 5200, rakuten 5480, yahoo 5300.
	if len(cmp.Offers) != 3 {
		t.Fatalf("offers = %d, want 3", len(cmp.Offers))
	}
	want := []model.Platform{model.PlatformAmazon, model.PlatformYahoo, model.PlatformRakuten}
	for i, plat := range want {
		if cmp.Offers[i].Platform != plat {
			t.Errorf("rank %d = %s, want %s", i, cmp.Offers[i].Platform, plat)
		}
	}
	if cmp.LowestPrice != 5200 || cmp.HighestPrice != 5480 {
		t.Errorf("lowest/highest = %v/%v", cmp.LowestPrice, cmp.HighestPrice)
	}
	if got, wantAvg := cmp.AveragePrice, (5200.0+5300.0+5480.0)/3; math.Abs(got-wantAvg) > 1e-9 {
		t.Errorf("average = %v, want %v", got, wantAvg)
	}
	if cmp.BestValue == nil || cmp.BestValue.Platform != model.PlatformAmazon {
		t.Errorf("best value = %+v", cmp.BestValue)
	}
	if cmp.Partial {
		t.Error("healthy fetch must not be partial")
	}
}

func TestCompare_ExcludesShippingByDefault(t *testing.T) {
	reg := registryWith(t, map[model.Platform]model.Quote{
		model.PlatformAmazon:  quote(5200, 0),
		model.PlatformRakuten: quote(4980, 500),
	})
	o := New(reg, nil, zap.NewNop())

	cmp, err := o.Compare(context.Background(), "prod-1", Options{})
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if cmp.BestValue.Platform != model.PlatformRakuten || cmp.LowestPrice != 4980 {
		t.Errorf("without shipping rakuten wins at 4980, got %+v", cmp.BestValue)
	}
}

func TestCompare_PerPlatformFailureIsolated(t *testing.T) {
	reg := registryWith(t, map[model.Platform]model.Quote{
		model.PlatformAmazon: quote(5200, 0),
	})
	failing := platform.NewMockProvider(model.PlatformRakuten)
	failing.Fail(errors.New("upstream 503"))
	reg.Register(failing)
	o := New(reg, nil, zap.NewNop())

	cmp, err := o.Compare(context.Background(), "prod-1", Options{})
	if err != nil {
		t.Fatalf("one failing platform must not fail the comparison: %v", err)
	}
	if len(cmp.Offers) != 1 || cmp.Offers[0].Platform != model.PlatformAmazon {
		t.Errorf("expected the healthy platform's offer, got %+v", cmp.Offers)
	}
	if !cmp.Partial {
		t.Error("a failed platform must flag the result partial")
	}
}

func TestCompare_NoQuoteIsNotPartial(t *testing.T) {
	reg := registryWith(t, map[model.Platform]model.Quote{
		model.PlatformAmazon: quote(5200, 0),
	})
	reg.Register(platform.NewMockProvider(model.PlatformMercari)) // nothing listed
	o := New(reg, nil, zap.NewNop())

	cmp, err := o.Compare(context.Background(), "prod-1", Options{})
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if cmp.Partial {
		t.Error("a platform with nothing listed is not a failure")
	}
	if len(cmp.Offers) != 1 {
		t.Errorf("offers = %d, want 1", len(cmp.Offers))
	}
}

func TestCompare_TimeoutReturnsPartial(t *testing.T) {
	reg := registryWith(t, map[model.Platform]model.Quote{
		model.PlatformAmazon: quote(5200, 0),
	})
	slow := platform.NewMockProvider(model.PlatformRakuten)
	slow.SetQuote("prod-1", quote(4980, 0))
	slow.Delay(500 * time.Millisecond)
	reg.Register(slow)
	o := New(reg, nil, zap.NewNop())

	start := time.Now()
	cmp, err := o.Compare(context.Background(), "prod-1", Options{Timeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 300*time.Millisecond {
		t.Errorf("timeout not honored, took %v", elapsed)
	}
	if !cmp.Partial {
		t.Error("timed-out platform must flag the result partial")
	}
	if len(cmp.Offers) != 1 || cmp.Offers[0].Platform != model.PlatformAmazon {
		t.Errorf("expected the fast platform's offer, got %+v", cmp.Offers)
	}
}

func TestCompare_EmptyFilteredSet(t *testing.T) {
	reg := registryWith(t, map[model.Platform]model.Quote{
		model.PlatformAmazon: quote(5200, 0),
	})
	o := New(reg, nil, zap.NewNop())

	cmp, err := o.Compare(context.Background(), "prod-1", Options{Condition: model.ConditionUsed})
	if err != nil {
		t.Fatalf("an empty filtered set must not error: %v", err)
	}
	if len(cmp.Offers) != 0 || cmp.BestValue != nil || cmp.LowestPrice != 0 {
		t.Errorf("expected zeroed comparison, got %+v", cmp)
	}
}

func TestCompare_Filters(t *testing.T) {
	outOfStock := quote(4000, 0)
	outOfStock.Availability = model.OutOfStock
	used := quote(3000, 0)
	used.Condition = model.ConditionUsed
	usd := quote(35, 0)
	usd.Currency = "USD"

	reg := registryWith(t, map[model.Platform]model.Quote{
		model.PlatformAmazon:  quote(5200, 0),
		model.PlatformRakuten: outOfStock,
		model.PlatformMercari: used,
		model.PlatformYahoo:   usd,
	})
	o := New(reg, nil, zap.NewNop())

	cmp, err := o.Compare(context.Background(), "prod-1", Options{
		InStockOnly: true,
		Condition:   model.ConditionNew,
		Currency:    "JPY",
	})
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if len(cmp.Offers) != 1 || cmp.Offers[0].Platform != model.PlatformAmazon {
		t.Errorf("filters should leave only amazon, got %+v", cmp.Offers)
	}
}

func TestCompare_FullSetsCachedPartialNot(t *testing.T) {
	ctx := context.Background()
	reg := registryWith(t, map[model.Platform]model.Quote{
		model.PlatformAmazon: quote(5200, 0),
	})
	flaky := platform.NewMockProvider(model.PlatformRakuten)
	flaky.SetQuote("prod-1", quote(4980, 0))
	flaky.Fail(errors.New("upstream 503"))
	reg.Register(flaky)

	pc := cache.New(cache.NewMemoryStore(), cache.DefaultTTLs(), zap.NewNop())
	o := New(reg, pc, zap.NewNop())

	cmp, err := o.Compare(ctx, "prod-1", Options{})
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if !cmp.Partial {
		t.Fatal("expected partial first pass")
	}

	// The partial set was not cached, so recovery is picked up.
	flaky.Fail(nil)
	cmp, err = o.Compare(ctx, "prod-1", Options{})
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if cmp.Partial || len(cmp.Offers) != 2 {
		t.Fatalf("expected full refetch after recovery, got partial=%v offers=%d", cmp.Partial, len(cmp.Offers))
	}

	// The full set was cached; further failures are invisible.
	flaky.Fail(errors.New("upstream 503"))
	cmp, err = o.Compare(ctx, "prod-1", Options{})
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if cmp.Partial || len(cmp.Offers) != 2 {
		t.Errorf("expected cached full set, got partial=%v offers=%d", cmp.Partial, len(cmp.Offers))
	}
}

func TestCompare_PlatformScopeFilter(t *testing.T) {
	reg := registryWith(t, map[model.Platform]model.Quote{
		model.PlatformAmazon:  quote(5200, 0),
		model.PlatformRakuten: quote(4980, 0),
		model.PlatformYahoo:   quote(5100, 0),
	})
	o := New(reg, nil, zap.NewNop())

	cmp, err := o.Compare(context.Background(), "prod-1", Options{
		Platforms: []model.Platform{model.PlatformRakuten, model.PlatformYahoo},
	})
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if len(cmp.Offers) != 2 {
		t.Fatalf("offers = %d, want 2", len(cmp.Offers))
	}
	for _, off := range cmp.Offers {
		if off.Platform == model.PlatformAmazon {
			t.Errorf("excluded platform in result: %+v", off)
		}
	}
}

func TestCompare_ScopedRequestDoesNotPoisonCache(t *testing.T) {
	ctx := context.Background()
	reg := registryWith(t, map[model.Platform]model.Quote{
		model.PlatformAmazon:  quote(5200, 0),
		model.PlatformRakuten: quote(4980, 0),
	})
	pc := cache.New(cache.NewMemoryStore(), cache.DefaultTTLs(), zap.NewNop())
	o := New(reg, pc, zap.NewNop())

	cmp, err := o.Compare(ctx, "prod-1", Options{Platforms: []model.Platform{model.PlatformAmazon}})
	if err != nil {
		t.Fatalf("scoped compare: %v", err)
	}
	if len(cmp.Offers) != 1 || cmp.Offers[0].Platform != model.PlatformAmazon {
		t.Fatalf("scoped offers = %+v", cmp.Offers)
	}

	// The one-platform set must not have been cached as the full set.
	cmp, err = o.Compare(ctx, "prod-1", Options{})
	if err != nil {
		t.Fatalf("unscoped compare: %v", err)
	}
	if len(cmp.Offers) != 2 {
		t.Errorf("unscoped offers = %d, want 2", len(cmp.Offers))
	}
}

func TestCompare_ScopedServedFromCachedFullSet(t *testing.T) {
	ctx := context.Background()
	reg := platform.NewRegistry()
	amazon := platform.NewMockProvider(model.PlatformAmazon)
	amazon.SetQuote("prod-1", quote(5200, 0))
	reg.Register(amazon)
	rakuten := platform.NewMockProvider(model.PlatformRakuten)
	rakuten.SetQuote("prod-1", quote(4980, 0))
	reg.Register(rakuten)

	pc := cache.New(cache.NewMemoryStore(), cache.DefaultTTLs(), zap.NewNop())
	o := New(reg, pc, zap.NewNop())

	if _, err := o.Compare(ctx, "prod-1", Options{}); err != nil {
		t.Fatalf("unscoped compare: %v", err)
	}

	cmp, err := o.Compare(ctx, "prod-1", Options{Platforms: []model.Platform{model.PlatformRakuten}})
	if err != nil {
		t.Fatalf("scoped compare: %v", err)
	}
	if len(cmp.Offers) != 1 || cmp.Offers[0].Platform != model.PlatformRakuten {
		t.Fatalf("scoped offers = %+v, want rakuten only", cmp.Offers)
	}
	if amazon.Calls() != 1 || rakuten.Calls() != 1 {
		t.Errorf("scoped read should be served from the cached snapshot, calls amazon=%d rakuten=%d",
			amazon.Calls(), rakuten.Calls())
	}
}

func TestBestPlatform(t *testing.T) {
	cheap := quote(4000, 0)
	rated := quote(5000, 0)
	fast := quote(6000, 0)

	reg := platform.NewRegistry()
	cheapProv := platform.NewMockProvider(model.PlatformMercari)
	cheapProv.SetQuote("prod-1", cheap)
	reg.Register(cheapProv)
	ratedProv := platform.NewMockProvider(model.PlatformAmazon)
	ratedProv.SetQuote("prod-1", rated)
	reg.Register(ratedProv)
	fastProv := platform.NewMockProvider(model.PlatformYahoo)
	fastProv.SetQuote("prod-1", fast)
	reg.Register(fastProv)

	o := New(reg, nil, zap.NewNop())
	ctx := context.Background()

	got, err := o.BestPlatform(ctx, "prod-1", CriterionLowestPrice, Options{})
	if err != nil {
		t.Fatalf("best platform: %v", err)
	}
	if got.Platform != model.PlatformMercari {
		t.Errorf("lowest_price winner = %s, want mercari", got.Platform)
	}
	if want := 100000.0 / 4000.0; math.Abs(got.Score-want) > 1e-9 {
		t.Errorf("lowest_price score = %v, want %v", got.Score, want)
	}

	if _, err := o.BestPlatform(ctx, "prod-1", Criterion("cheapest"), Options{}); err == nil {
		t.Error("unknown criterion must error")
	}
}

func TestScoreOffer(t *testing.T) {
	off := model.ProductOffer{Price: 5000, ShippingCost: 500, SellerRating: 4.5, DeliveryDays: 2}

	if got, want := scoreOffer(off, CriterionLowestPrice, true), 100000.0/5500.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("lowest_price = %v, want %v", got, want)
	}
	if got, want := scoreOffer(off, CriterionFastestShipping, false), 100.0/3.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("fastest_shipping = %v, want %v", got, want)
	}
	if got := scoreOffer(off, CriterionBestRating, false); got != 90 {
		t.Errorf("best_rating = %v, want 90", got)
	}

	unknown := model.ProductOffer{Price: 5000}
	if got, want := scoreOffer(unknown, CriterionFastestShipping, false), 100.0/8.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("unknown delivery = %v, want %v", got, want)
	}
	if got := scoreOffer(unknown, CriterionBestRating, false); got != 0 {
		t.Errorf("unrated seller = %v, want 0", got)
	}
}
