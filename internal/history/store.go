// Package history defines the append-only price-history store the engine
// reads and writes through. Entries are immutable facts; the engine never
// deletes them.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/dealhawk/priceintel/internal/model"
)

// ErrStoreUnavailable is returned when the backing store cannot be
// reached. Callers see the failure instead of fabricated data.
var ErrStoreUnavailable = errors.New("history: store unavailable")

// Store is the boundary contract for price history persistence. Platform
// model.PlatformAll (or empty) selects entries across every platform.
type Store interface {
	// Append records a validated entry. The store keeps entries in
	// timestamp order.
	Append(ctx context.Context, entry model.PriceEntry) error

	// Recent returns up to limit of the newest entries for the product,
	// ascending by timestamp.
	Recent(ctx context.Context, productID string, platform model.Platform, limit int) ([]model.PriceEntry, error)

	// Range returns entries with from < timestamp <= to, ascending.
	Range(ctx context.Context, productID string, platform model.Platform, from, to time.Time) ([]model.PriceEntry, error)

	// Latest returns the newest entry, or nil when the product has no
	// history on the requested platform.
	Latest(ctx context.Context, productID string, platform model.Platform) (*model.PriceEntry, error)
}
