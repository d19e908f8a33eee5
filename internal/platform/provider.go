// Package platform holds the marketplace collaborators the engine pulls
// raw quotes from. A provider failure means "no quote available", never a
// global error.
package platform

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dealhawk/priceintel/internal/model"
)

// ErrNoQuote is returned when a platform has no current offer for the
// product. Callers treat it like a missing platform, not a failure.
var ErrNoQuote = errors.New("platform: no quote available")

// Provider fetches the latest raw quote for a product on one platform.
type Provider interface {
	// Platform identifies the marketplace this provider talks to.
	Platform() model.Platform

	// Available reports whether the provider is configured and usable.
	Available() bool

	// FetchLatestQuote returns the newest observable quote, or ErrNoQuote
	// when the platform lists nothing for the product.
	FetchLatestQuote(ctx context.Context, productID string) (*model.Quote, error)
}

// Config holds the request settings shared by HTTP-backed providers.
type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
	MaxRetries     int
	RatePerMinute  int
	UserAgents     []string
}

// DefaultConfig returns conservative request settings.
func DefaultConfig() Config {
	return Config{
		RequestTimeout: 30 * time.Second,
		MaxRetries:     3,
		RatePerMinute:  10,
		UserAgents: []string{
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
		},
	}
}

// Registry maps platforms to their providers. Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	providers map[model.Platform]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[model.Platform]Provider)}
}

// Register adds or replaces the provider for its platform.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Platform()] = p
}

// Get returns the provider for a platform, or nil when none is registered.
func (r *Registry) Get(platform model.Platform) Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.providers[platform]
}

// Platforms lists every platform with a registered, available provider.
func (r *Registry) Platforms() []model.Platform {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Platform, 0, len(r.providers))
	for plat, p := range r.providers {
		if p.Available() {
			out = append(out, plat)
		}
	}
	return out
}
