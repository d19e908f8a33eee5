package history

import (
	"context"
	"testing"
	"time"

	"github.com/dealhawk/priceintel/internal/model"
)

func entry(platform model.Platform, price float64, ago time.Duration) model.PriceEntry {
	return model.PriceEntry{
		ProductID: "prod-1",
		Platform:  platform,
		Price:     price,
		Currency:  "JPY",
		Timestamp: time.Now().Add(-ago),
	}
}

func TestMemoryStore_AppendAndRecent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)

	// Append out of order; reads must come back ascending.
	for _, e := range []model.PriceEntry{
		entry(model.PlatformRakuten, 1200, 1*time.Hour),
		entry(model.PlatformRakuten, 1000, 3*time.Hour),
		entry(model.PlatformRakuten, 1100, 2*time.Hour),
	} {
		if err := s.Append(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := s.Recent(ctx, "prod-1", model.PlatformRakuten, 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	if got[0].Price != 1000 || got[2].Price != 1200 {
		t.Errorf("entries not in timestamp order: %v, %v", got[0].Price, got[2].Price)
	}

	limited, _ := s.Recent(ctx, "prod-1", model.PlatformRakuten, 2)
	if len(limited) != 2 || limited[0].Price != 1100 {
		t.Errorf("limit must keep the newest entries, got %+v", limited)
	}
}

func TestMemoryStore_PlatformScope(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	s.Append(ctx, entry(model.PlatformRakuten, 1000, 2*time.Hour))
	s.Append(ctx, entry(model.PlatformAmazon, 900, 1*time.Hour))

	scoped, _ := s.Recent(ctx, "prod-1", model.PlatformAmazon, 0)
	if len(scoped) != 1 || scoped[0].Platform != model.PlatformAmazon {
		t.Errorf("expected only the amazon entry, got %+v", scoped)
	}

	all, _ := s.Recent(ctx, "prod-1", model.PlatformAll, 0)
	if len(all) != 2 {
		t.Errorf("wildcard scope must span platforms, got %d entries", len(all))
	}
}

func TestMemoryStore_RangeAndLatest(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	s.Append(ctx, entry(model.PlatformRakuten, 8000, 120*24*time.Hour))
	s.Append(ctx, entry(model.PlatformRakuten, 5000, 60*24*time.Hour))
	s.Append(ctx, entry(model.PlatformRakuten, 9000, 10*24*time.Hour))

	now := time.Now()
	got, err := s.Range(ctx, "prod-1", model.PlatformRakuten, now.Add(-90*24*time.Hour), now)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries in 90d window, got %d", len(got))
	}

	latest, err := s.Latest(ctx, "prod-1", model.PlatformRakuten)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest == nil || latest.Price != 9000 {
		t.Errorf("expected latest 9000, got %+v", latest)
	}

	missing, err := s.Latest(ctx, "prod-unknown", model.PlatformAll)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown product, got %+v", missing)
	}
}

func TestMemoryStore_Bounded(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(3)
	for i := 0; i < 5; i++ {
		s.Append(ctx, entry(model.PlatformRakuten, float64(1000+i), time.Duration(5-i)*time.Hour))
	}
	got, _ := s.Recent(ctx, "prod-1", model.PlatformAll, 0)
	if len(got) != 3 {
		t.Fatalf("expected retention bound of 3, got %d", len(got))
	}
	if got[2].Price != 1004 {
		t.Errorf("newest entries must be retained, got %+v", got)
	}
}
