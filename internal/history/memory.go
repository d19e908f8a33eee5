package history

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dealhawk/priceintel/internal/model"
)

// MemoryStore is an in-memory Store for tests and single-process
// deployments. Entries are held per product+platform in timestamp order.
type MemoryStore struct {
	mu         sync.RWMutex
	entries    map[string][]model.PriceEntry // productID -> ascending by timestamp
	maxPerProd int
}

// NewMemoryStore creates an in-memory store. maxPerProduct bounds the
// retained history per product; 0 keeps everything.
func NewMemoryStore(maxPerProduct int) *MemoryStore {
	return &MemoryStore{
		entries:    make(map[string][]model.PriceEntry),
		maxPerProd: maxPerProduct,
	}
}

func (s *MemoryStore) Append(ctx context.Context, entry model.PriceEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := append(s.entries[entry.ProductID], entry)
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Timestamp.Before(list[j].Timestamp)
	})
	if s.maxPerProd > 0 && len(list) > s.maxPerProd {
		list = list[len(list)-s.maxPerProd:]
	}
	s.entries[entry.ProductID] = list
	return nil
}

func (s *MemoryStore) Recent(ctx context.Context, productID string, platform model.Platform, limit int) ([]model.PriceEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.filter(productID, platform)
	if limit > 0 && len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	return matched, nil
}

func (s *MemoryStore) Range(ctx context.Context, productID string, platform model.Platform, from, to time.Time) ([]model.PriceEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.PriceEntry
	for _, e := range s.filter(productID, platform) {
		if e.Timestamp.After(from) && !e.Timestamp.After(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemoryStore) Latest(ctx context.Context, productID string, platform model.Platform) (*model.PriceEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.filter(productID, platform)
	if len(matched) == 0 {
		return nil, nil
	}
	latest := matched[len(matched)-1]
	return &latest, nil
}

// filter returns a copy of the product's entries scoped to the platform.
// Must be called with the lock held.
func (s *MemoryStore) filter(productID string, platform model.Platform) []model.PriceEntry {
	var out []model.PriceEntry
	for _, e := range s.entries[productID] {
		if platform == "" || platform == model.PlatformAll || e.Platform == platform {
			out = append(out, e)
		}
	}
	return out
}
