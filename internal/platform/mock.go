package platform

import (
	"context"
	"sync"
	"time"

	"github.com/dealhawk/priceintel/internal/model"
)

// MockProvider serves canned quotes for testing and offline development.
type MockProvider struct {
	platform model.Platform

	mu     sync.Mutex
	quotes map[string]model.Quote
	err    error
	delay  time.Duration
	calls  int
}

func NewMockProvider(platform model.Platform) *MockProvider {
	return &MockProvider{
		platform: platform,
		quotes:   make(map[string]model.Quote),
	}
}

func (m *MockProvider) Platform() model.Platform { return m.platform }

func (m *MockProvider) Available() bool { return true }

// SetQuote installs the quote returned for a product.
func (m *MockProvider) SetQuote(productID string, q model.Quote) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q.ProductID = productID
	q.Platform = m.platform
	m.quotes[productID] = q
}

// Fail makes every fetch return err until cleared with Fail(nil).
func (m *MockProvider) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Delay makes every fetch sleep first, for timeout tests.
func (m *MockProvider) Delay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// Calls returns how many fetches have been issued.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockProvider) FetchLatestQuote(ctx context.Context, productID string) (*model.Quote, error) {
	m.mu.Lock()
	m.calls++
	err := m.err
	delay := m.delay
	q, ok := m.quotes[productID]
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoQuote
	}
	if q.ObservedAt.IsZero() {
		q.ObservedAt = time.Now()
	}
	return &q, nil
}
