// Package compare fans out to the marketplace providers and ranks their
// offers for one product. Per-platform failures never fail the whole
// comparison; a timed-out comparison returns what completed, flagged as
// partial.
package compare

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dealhawk/priceintel/internal/cache"
	"github.com/dealhawk/priceintel/internal/model"
	"github.com/dealhawk/priceintel/internal/platform"
)

// defaultChunkSize bounds how many platform fetches are in flight at
// once. Chunks run to completion before the next chunk starts.
const defaultChunkSize = 5

// errUncachedFetch marks a fetch whose result must not be written to the
// cache: it lost a platform, or it covered only a subset of the registry.
// It stays internal; callers see the offers and the Partial flag instead.
var errUncachedFetch = errors.New("compare: fetch bypasses cache")

// Options narrows a comparison. Zero values mean "no filter".
type Options struct {
	Platforms       []model.Platform
	Condition       model.Condition
	Currency        string
	InStockOnly     bool
	IncludeShipping bool
	Timeout         time.Duration
}

// Comparison is the ranked result of a cross-platform price check.
// Offers are sorted ascending by total price.
type Comparison struct {
	ProductID       string               `json:"product_id"`
	Offers          []model.ProductOffer `json:"offers"`
	LowestPrice     float64              `json:"lowest_price"`
	HighestPrice    float64              `json:"highest_price"`
	AveragePrice    float64              `json:"average_price"`
	BestValue       *model.ProductOffer  `json:"best_value,omitempty"`
	IncludeShipping bool                 `json:"include_shipping"`
	Partial         bool                 `json:"partial"`
	ComparedAt      time.Time            `json:"compared_at"`
}

// Orchestrator runs comparisons over the registered providers, caching
// full offer sets. Partial fetches are served but never cached.
type Orchestrator struct {
	registry  *platform.Registry
	cache     *cache.PriceCache
	log       *zap.Logger
	chunkSize int
}

func New(reg *platform.Registry, pc *cache.PriceCache, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		registry:  reg,
		cache:     pc,
		log:       log,
		chunkSize: defaultChunkSize,
	}
}

// Compare fetches the latest offer per platform, filters, and ranks.
// An empty filtered set yields a zeroed comparison, not an error.
func (o *Orchestrator) Compare(ctx context.Context, productID string, opts Options) (*Comparison, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	registered := o.registry.Platforms()
	platforms := opts.Platforms
	if len(platforms) == 0 {
		platforms = registered
	}

	offers, partial := o.loadOffers(ctx, productID, platforms, coversAll(platforms, registered))
	filtered := filterOffers(offers, opts)
	cmp := rank(productID, filtered, opts.IncludeShipping)
	cmp.Partial = partial
	return cmp, nil
}

// loadOffers serves the offer set cache-aside. The cached snapshot always
// spans every registered platform; narrower requests may be served from it
// and filtered down, but a fetch that is partial or platform-scoped
// bypasses the cache write so no subset ever masquerades as the full set.
func (o *Orchestrator) loadOffers(ctx context.Context, productID string, platforms []model.Platform, cacheable bool) ([]model.ProductOffer, bool) {
	if o.cache == nil {
		return o.fetchOffers(ctx, productID, platforms)
	}

	var fetched []model.ProductOffer
	var partial bool
	offers, err := o.cache.Offers(ctx, productID, func(ctx context.Context) ([]model.ProductOffer, error) {
		fetched, partial = o.fetchOffers(ctx, productID, platforms)
		if partial || !cacheable {
			return nil, errUncachedFetch
		}
		return fetched, nil
	})
	if errors.Is(err, errUncachedFetch) {
		return fetched, partial
	}
	if err != nil {
		o.log.Warn("offer lookup failed", zap.String("product_id", productID), zap.Error(err))
		return nil, true
	}
	return offers, false
}

// fetchOffers queries the providers in bounded chunks. ErrNoQuote means
// the platform simply has no offer; any other failure marks the result
// partial.
func (o *Orchestrator) fetchOffers(ctx context.Context, productID string, platforms []model.Platform) ([]model.ProductOffer, bool) {
	type outcome struct {
		offer *model.ProductOffer
		err   error
	}

	var offers []model.ProductOffer
	partial := false

	for start := 0; start < len(platforms); start += o.chunkSize {
		if ctx.Err() != nil {
			return offers, true
		}

		end := start + o.chunkSize
		if end > len(platforms) {
			end = len(platforms)
		}
		chunk := platforms[start:end]

		outcomes := make([]outcome, len(chunk))
		var wg sync.WaitGroup
		for i, plat := range chunk {
			prov := o.registry.Get(plat)
			if prov == nil || !prov.Available() {
				continue
			}
			wg.Add(1)
			go func(i int, prov platform.Provider) {
				defer wg.Done()
				q, err := prov.FetchLatestQuote(ctx, productID)
				if err != nil {
					outcomes[i] = outcome{err: err}
					return
				}
				off := offerFromQuote(*q)
				outcomes[i] = outcome{offer: &off}
			}(i, prov)
		}
		wg.Wait()

		for i, out := range outcomes {
			switch {
			case out.offer != nil:
				offers = append(offers, *out.offer)
			case out.err == nil || errors.Is(out.err, platform.ErrNoQuote):
				// nothing listed, not a failure
			default:
				partial = true
				o.log.Warn("platform fetch failed",
					zap.String("product_id", productID),
					zap.String("platform", string(chunk[i])),
					zap.Error(out.err))
			}
		}
	}
	return offers, partial
}

func offerFromQuote(q model.Quote) model.ProductOffer {
	off := model.ProductOffer{
		Platform:      q.Platform,
		Price:         q.Price,
		OriginalPrice: q.OriginalPrice,
		Availability:  q.Availability,
		Condition:     q.Condition,
		Currency:      q.Currency,
		Seller:        q.Seller,
		ShippingCost:  q.ShippingCost,
		URL:           q.ProductURL,
		LastUpdatedAt: q.ObservedAt,
	}
	if q.OriginalPrice != nil && *q.OriginalPrice > 0 && q.Price < *q.OriginalPrice {
		off.DiscountPct = (*q.OriginalPrice - q.Price) / *q.OriginalPrice * 100
	}
	return off
}

// coversAll reports whether requested includes every registered platform,
// in which case the fetch result is the full snapshot and safe to cache.
func coversAll(requested, registered []model.Platform) bool {
	set := make(map[model.Platform]bool, len(requested))
	for _, p := range requested {
		set[p] = true
	}
	for _, p := range registered {
		if !set[p] {
			return false
		}
	}
	return true
}

func filterOffers(offers []model.ProductOffer, opts Options) []model.ProductOffer {
	allowed := make(map[model.Platform]bool, len(opts.Platforms))
	for _, p := range opts.Platforms {
		allowed[p] = true
	}

	out := make([]model.ProductOffer, 0, len(offers))
	for _, off := range offers {
		// The cached snapshot spans every platform; the requested scope
		// is applied here, after the cache.
		if len(allowed) > 0 && !allowed[off.Platform] {
			continue
		}
		if opts.Condition != "" && off.Condition != opts.Condition {
			continue
		}
		if opts.Currency != "" && off.Currency != opts.Currency {
			continue
		}
		if opts.InStockOnly && !off.Availability.Purchasable() {
			continue
		}
		out = append(out, off)
	}
	return out
}

// rank sorts ascending by total price. Ties keep their incoming order,
// so the best value is the first offer reaching the minimum.
func rank(productID string, offers []model.ProductOffer, includeShipping bool) *Comparison {
	cmp := &Comparison{
		ProductID:       productID,
		Offers:          offers,
		IncludeShipping: includeShipping,
		ComparedAt:      time.Now(),
	}
	if len(offers) == 0 {
		return cmp
	}

	sort.SliceStable(offers, func(i, j int) bool {
		return offers[i].TotalPrice(includeShipping) < offers[j].TotalPrice(includeShipping)
	})

	var sum float64
	for _, off := range offers {
		sum += off.TotalPrice(includeShipping)
	}
	cmp.LowestPrice = offers[0].TotalPrice(includeShipping)
	cmp.HighestPrice = offers[len(offers)-1].TotalPrice(includeShipping)
	cmp.AveragePrice = sum / float64(len(offers))
	best := offers[0]
	cmp.BestValue = &best
	return cmp
}
