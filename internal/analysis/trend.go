package analysis

import (
	"math"
	"sort"
	"time"

	"github.com/dealhawk/priceintel/internal/model"
)

// stableBandPct is the percentage-change band inside which a trend is
// reported as stable.
const stableBandPct = 2.0

// CalculateTrend computes the trend view over a price series. It needs at
// least two entries and returns nil otherwise. The slice is not modified;
// entries are evaluated in ascending timestamp order.
func CalculateTrend(entries []model.PriceEntry, periodDays int) *model.PriceTrend {
	if len(entries) < 2 {
		return nil
	}

	sorted := sortedByTime(entries)
	first := sorted[0]
	last := sorted[len(sorted)-1]

	var sum float64
	lowest := sorted[0].Price
	highest := sorted[0].Price
	for _, e := range sorted {
		sum += e.Price
		if e.Price < lowest {
			lowest = e.Price
		}
		if e.Price > highest {
			highest = e.Price
		}
	}
	avg := sum / float64(len(sorted))

	// Direction is judged on the first-to-last move; the reported change
	// fields compare the current price against the window average.
	var movePct float64
	if first.Price != 0 {
		movePct = (last.Price - first.Price) / first.Price * 100
	}
	direction := model.TrendStable
	if math.Abs(movePct) >= stableBandPct {
		if movePct > 0 {
			direction = model.TrendUp
		} else {
			direction = model.TrendDown
		}
	}

	change := last.Price - avg
	var changePct float64
	if avg != 0 {
		changePct = change / avg * 100
	}

	return &model.PriceTrend{
		ProductID:      last.ProductID,
		Platform:       last.Platform,
		CurrentPrice:   last.Price,
		AveragePrice:   avg,
		LowestPrice:    lowest,
		HighestPrice:   highest,
		PriceChange:    change,
		PriceChangePct: changePct,
		TrendDirection: direction,
		DataPoints:     len(sorted),
		PeriodDays:     periodDays,
		LastUpdated:    time.Now(),
	}
}

// FindHistoricalLow locates the lowest price within a lookback window of
// the given number of days. Returns nil when no entries fall inside the
// window.
func FindHistoricalLow(entries []model.PriceEntry, days int) *model.HistoricalLow {
	return findHistoricalLowAt(entries, days, time.Now())
}

func findHistoricalLowAt(entries []model.PriceEntry, days int, now time.Time) *model.HistoricalLow {
	cutoff := now.Add(-time.Duration(days) * 24 * time.Hour)

	var windowed []model.PriceEntry
	for _, e := range entries {
		if e.Timestamp.After(cutoff) && !e.Timestamp.After(now) {
			windowed = append(windowed, e)
		}
	}
	if len(windowed) == 0 {
		return nil
	}

	sorted := sortedByTime(windowed)
	lowest := sorted[0]
	for _, e := range sorted {
		if e.Price < lowest.Price {
			lowest = e
		}
	}
	current := sorted[len(sorted)-1]

	daysSince := int(now.Sub(lowest.Timestamp).Seconds() / 86400)

	return &model.HistoricalLow{
		ProductID:    lowest.ProductID,
		LowestPrice:  lowest.Price,
		LowestEntry:  lowest,
		DaysSinceLow: daysSince,
		IsCurrentLow: current.Price <= lowest.Price,
		TypicalRange: typicalRange(windowed, lowest.Price),
		WindowDays:   days,
	}
}

// typicalRange is the [Q1, Q3] band of the price-sorted window, with the
// quartile index rule floor(n*0.25) / floor(n*0.75). Windows too small to
// form quartiles collapse to the low price itself.
func typicalRange(entries []model.PriceEntry, low float64) model.PriceRange {
	n := len(entries)
	if n < 4 {
		return model.PriceRange{Low: low, High: low}
	}
	prices := make([]float64, n)
	for i, e := range entries {
		prices[i] = e.Price
	}
	sort.Float64s(prices)
	return model.PriceRange{
		Low:  prices[int(math.Floor(float64(n)*0.25))],
		High: prices[int(math.Floor(float64(n)*0.75))],
	}
}

// DetectPriceDrops walks the series in time order and records a drop
// whenever the previous entry's original price exceeds the current
// entry's price by at least thresholdPct. The previous entry's original
// price is the baseline on purpose; callers depend on that asymmetry.
func DetectPriceDrops(entries []model.PriceEntry, thresholdPct float64) []model.DropEvent {
	if len(entries) < 2 {
		return nil
	}
	sorted := sortedByTime(entries)

	var events []model.DropEvent
	for i := 1; i < len(sorted); i++ {
		prior := sorted[i-1]
		cur := sorted[i]
		if prior.OriginalPrice == nil || *prior.OriginalPrice <= 0 {
			continue
		}
		baseline := *prior.OriginalPrice
		dropPct := (baseline - cur.Price) / baseline * 100
		if dropPct >= thresholdPct {
			events = append(events, model.DropEvent{
				ProductID:     cur.ProductID,
				Platform:      cur.Platform,
				BaselinePrice: baseline,
				Price:         cur.Price,
				DropPct:       dropPct,
				Timestamp:     cur.Timestamp,
			})
		}
	}
	return events
}

// sortedByTime returns a copy of entries in ascending timestamp order.
func sortedByTime(entries []model.PriceEntry) []model.PriceEntry {
	out := make([]model.PriceEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}
