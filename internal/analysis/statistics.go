package analysis

import (
	"math"
	"sort"
	"time"

	"github.com/dealhawk/priceintel/internal/model"
)

// volatilityWindow bounds the recent subset used for the short-term
// volatility figure.
const volatilityWindow = 30 * 24 * time.Hour

// CalculateStatistics summarizes a price series. Returns nil for an empty
// slice; it never fabricates zeroed statistics.
func CalculateStatistics(entries []model.PriceEntry) *model.PriceStatistics {
	if len(entries) == 0 {
		return nil
	}

	prices := make([]float64, len(entries))
	purchasable := 0
	for i, e := range entries {
		prices[i] = e.Price
		if e.Availability.Purchasable() {
			purchasable++
		}
	}

	minP, maxP := prices[0], prices[0]
	for _, p := range prices {
		if p < minP {
			minP = p
		}
		if p > maxP {
			maxP = p
		}
	}

	cutoff := time.Now().Add(-volatilityWindow)
	var recent []float64
	for _, e := range entries {
		if e.Timestamp.After(cutoff) {
			recent = append(recent, e.Price)
		}
	}

	return &model.PriceStatistics{
		TotalDataPoints:   len(entries),
		AveragePrice:      mean(prices),
		MedianPrice:       median(prices),
		StandardDeviation: stddev(prices),
		MinPrice:          minP,
		MaxPrice:          maxP,
		PriceSpread:       maxP - minP,
		Volatility30D:     stddev(recent),
		AvailabilityRate:  float64(purchasable) / float64(len(entries)),
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// median uses the standard even/odd rule over a sorted copy.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// stddev is the population standard deviation (divide by N). The
// population formula is part of the contract; results must reproduce
// exactly across recomputations.
func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}
