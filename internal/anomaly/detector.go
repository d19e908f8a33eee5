package anomaly

import (
	"fmt"
	"math"

	"github.com/dealhawk/priceintel/internal/model"
)

// Type classifies a detected anomaly.
type Type string

const (
	TypeSpike   Type = "spike"
	TypeDrop    Type = "drop"
	TypeUnusual Type = "unusual"
)

// Report is the outcome of checking one new price against recent history.
// Significance is a bounded severity score for prioritization, not a
// probability.
type Report struct {
	IsAnomaly    bool    `json:"is_anomaly"`
	Type         Type    `json:"type,omitempty"`
	Significance float64 `json:"significance"`
	Explanation  string  `json:"explanation"`
}

// Config tunes the detector. Zero values fall back to the defaults.
type Config struct {
	Window      int     // number of most recent entries to compare against
	ZThreshold  float64 // z-score above which a price is anomalous
	SpikeFactor float64 // newPrice > SpikeFactor*mean classifies as spike
	DropFactor  float64 // newPrice < DropFactor*mean classifies as drop
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{Window: 10, ZThreshold: 2, SpikeFactor: 1.5, DropFactor: 0.5}
}

// Detector flags prices that deviate sharply from recent history using a
// z-score test.
type Detector struct {
	cfg Config
}

// New creates a detector. Zero-valued config fields take defaults.
func New(cfg Config) *Detector {
	def := DefaultConfig()
	if cfg.Window == 0 {
		cfg.Window = def.Window
	}
	if cfg.ZThreshold == 0 {
		cfg.ZThreshold = def.ZThreshold
	}
	if cfg.SpikeFactor == 0 {
		cfg.SpikeFactor = def.SpikeFactor
	}
	if cfg.DropFactor == 0 {
		cfg.DropFactor = def.DropFactor
	}
	return &Detector{cfg: cfg}
}

// Detect checks newPrice against the product's recent history, newest
// last. Fewer than three points reports insufficient data rather than an
// anomaly. Identical recent prices (zero variance) never flag, whatever
// the new price.
func (d *Detector) Detect(history []model.PriceEntry, newPrice float64) Report {
	if len(history) < 3 {
		return Report{Explanation: fmt.Sprintf("insufficient data: %d of 3 required points", len(history))}
	}

	recent := history
	if len(recent) > d.cfg.Window {
		recent = recent[len(recent)-d.cfg.Window:]
	}

	var sum float64
	for _, e := range recent {
		sum += e.Price
	}
	mean := sum / float64(len(recent))

	var varSum float64
	for _, e := range recent {
		diff := e.Price - mean
		varSum += diff * diff
	}
	sigma := math.Sqrt(varSum / float64(len(recent)))

	if sigma == 0 {
		return Report{Explanation: fmt.Sprintf("recent prices identical at %.2f, no variance to test against", mean)}
	}

	z := math.Abs(newPrice-mean) / sigma
	if z <= d.cfg.ZThreshold {
		return Report{
			Significance: math.Min(z/3, 1),
			Explanation:  fmt.Sprintf("price %.2f within %.2f standard deviations of mean %.2f", newPrice, z, mean),
		}
	}

	kind := TypeUnusual
	switch {
	case newPrice > d.cfg.SpikeFactor*mean:
		kind = TypeSpike
	case newPrice < d.cfg.DropFactor*mean:
		kind = TypeDrop
	}

	return Report{
		IsAnomaly:    true,
		Type:         kind,
		Significance: math.Min(z/3, 1),
		Explanation:  fmt.Sprintf("price %.2f is %.2f standard deviations from mean %.2f over last %d entries", newPrice, z, mean, len(recent)),
	}
}
