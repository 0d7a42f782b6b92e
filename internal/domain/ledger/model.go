// Package ledger provides the stock and lot running-balance registers.
package ledger

import (
	"time"

	"stockd/internal/core/id"
	"stockd/internal/core/types"
)

// IndefiniteDate is the sentinel used when a line carries no manufacture or
// expiry date. Lots without dates all fall into this de facto
// infinite-shelf-life bucket; FEFO sorts it last.
var IndefiniteDate = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// StockKey identifies one stock balance row.
type StockKey struct {
	ProductID   id.ID  `db:"product_id" json:"productId"`
	WarehouseID id.ID  `db:"warehouse_id" json:"warehouseId"`
	Location    string `db:"location" json:"location"`
}

// LotKey extends StockKey with lot identity. Lot identity is the pair of
// manufacture and expiry dates; goods transferred between warehouses keep
// their originating lot identity.
type LotKey struct {
	StockKey

	ManufactureDate time.Time `db:"manufacture_date" json:"manufactureDate"`
	ExpiryDate      time.Time `db:"expiry_date" json:"expiryDate"`
}

// NewLotKey builds a lot key, substituting the indefinite sentinel for
// absent dates.
func NewLotKey(key StockKey, manufactureDate, expiryDate *time.Time) LotKey {
	lk := LotKey{
		StockKey:        key,
		ManufactureDate: IndefiniteDate,
		ExpiryDate:      IndefiniteDate,
	}
	if manufactureDate != nil {
		lk.ManufactureDate = manufactureDate.UTC().Truncate(24 * time.Hour)
	}
	if expiryDate != nil {
		lk.ExpiryDate = expiryDate.UTC().Truncate(24 * time.Hour)
	}
	return lk
}

// StockBalance is the committed running balance for one stock key, plus the
// "future" reservation counters for draft documents not yet approved.
// Rows are created on first movement and never deleted.
type StockBalance struct {
	StockKey

	// Quantity is the committed balance. Never negative after an approval.
	Quantity types.Quantity `db:"quantity" json:"quantity"`

	// FutureIn/FutureOut are reserved-but-uncommitted quantities from
	// draft documents, consumed on approval.
	FutureIn  types.Quantity `db:"future_in" json:"futureIn"`
	FutureOut types.Quantity `db:"future_out" json:"futureOut"`

	// First/last movement timestamps split by direction.
	FirstInAt  *time.Time `db:"first_in_at" json:"firstInAt,omitempty"`
	LastInAt   *time.Time `db:"last_in_at" json:"lastInAt,omitempty"`
	FirstOutAt *time.Time `db:"first_out_at" json:"firstOutAt,omitempty"`
	LastOutAt  *time.Time `db:"last_out_at" json:"lastOutAt,omitempty"`

	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// LotBalance mirrors StockBalance at lot granularity. For a consistent
// ledger the lot balances of one stock key sum to its stock balance.
type LotBalance struct {
	LotKey

	Quantity  types.Quantity `db:"quantity" json:"quantity"`
	FutureIn  types.Quantity `db:"future_in" json:"futureIn"`
	FutureOut types.Quantity `db:"future_out" json:"futureOut"`

	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// HasIndefiniteShelfLife reports whether the lot sits in the sentinel bucket.
func (l *LotBalance) HasIndefiniteShelfLife() bool {
	return l.ExpiryDate.Equal(IndefiniteDate)
}
