package compare

import (
	"context"
	"fmt"

	"github.com/dealhawk/priceintel/internal/model"
)

// Criterion selects the scoring formula for best-platform selection.
type Criterion string

const (
	// CriterionLowestPrice scores 100000 / totalPrice, so cheaper offers
	// score higher on a scale comparable across products.
	CriterionLowestPrice Criterion = "lowest_price"

	// CriterionFastestShipping scores 100 / (1 + deliveryDays). Offers
	// with unknown delivery time are treated as 7 days.
	CriterionFastestShipping Criterion = "fastest_shipping"

	// CriterionBestRating scores sellerRating * 20, mapping the 0-5
	// rating scale onto 0-100. Unrated sellers score 0.
	CriterionBestRating Criterion = "best_rating"
)

// unknownDeliveryDays is the delivery estimate assumed when a platform
// reports none.
const unknownDeliveryDays = 7

// PlatformScore is the winning platform for one criterion.
type PlatformScore struct {
	Platform  model.Platform     `json:"platform"`
	Criterion Criterion          `json:"criterion"`
	Score     float64            `json:"score"`
	Offer     model.ProductOffer `json:"offer"`
}

// BestPlatform runs a comparison and picks the platform whose offer
// scores highest on the criterion. Ties go to the earlier-ranked offer.
// A nil result means no offer survived the filters.
func (o *Orchestrator) BestPlatform(ctx context.Context, productID string, criterion Criterion, opts Options) (*PlatformScore, error) {
	switch criterion {
	case CriterionLowestPrice, CriterionFastestShipping, CriterionBestRating:
	default:
		return nil, fmt.Errorf("unknown criterion %q", criterion)
	}

	cmp, err := o.Compare(ctx, productID, opts)
	if err != nil {
		return nil, err
	}
	if len(cmp.Offers) == 0 {
		return nil, nil
	}

	best := PlatformScore{Criterion: criterion, Score: -1}
	for _, off := range cmp.Offers {
		s := scoreOffer(off, criterion, opts.IncludeShipping)
		if s > best.Score {
			best.Platform = off.Platform
			best.Score = s
			best.Offer = off
		}
	}
	return &best, nil
}

func scoreOffer(off model.ProductOffer, criterion Criterion, includeShipping bool) float64 {
	switch criterion {
	case CriterionLowestPrice:
		total := off.TotalPrice(includeShipping)
		if total <= 0 {
			return 0
		}
		return 100000 / total
	case CriterionFastestShipping:
		days := off.DeliveryDays
		if days <= 0 {
			days = unknownDeliveryDays
		}
		return 100 / float64(1+days)
	case CriterionBestRating:
		return off.SellerRating * 20
	default:
		return 0
	}
}
