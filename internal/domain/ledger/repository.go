package ledger

import (
	"context"
	"time"

	"stockd/internal/core/types"
)

// StockRepository defines operations on the stock balance register.
//
// All writes are relative increments, never last-write-wins overwrites:
// concurrent approvals of different documents touching the same key must
// both be reflected. Implementations rely on the store's row-level
// atomicity for the increment itself.
type StockRepository interface {
	// ApplyDelta upserts the balance row and atomically adds delta to its
	// quantity, updating the movement timestamps for the given side.
	// Returns the updated balance.
	ApplyDelta(ctx context.Context, key StockKey, delta types.Quantity, inbound bool, at time.Time) (StockBalance, error)

	// GetBalance returns the current balance, zero-valued if absent.
	GetBalance(ctx context.Context, key StockKey) (StockBalance, error)

	// GetBalanceForUpdate returns the balance with a row lock, for the
	// read-then-write decrement validation.
	GetBalanceForUpdate(ctx context.Context, key StockKey) (StockBalance, error)

	// ConsumeFuture decrements the matching future counter by qty,
	// floored at zero. Returns the updated balance.
	ConsumeFuture(ctx context.Context, key StockKey, inbound bool, qty types.Quantity) (StockBalance, error)
}

// LotRepository defines operations on the lot balance register.
type LotRepository interface {
	// ApplyDelta upserts the lot row and atomically adds delta.
	ApplyDelta(ctx context.Context, key LotKey, delta types.Quantity, at time.Time) (LotBalance, error)

	// ListAvailableForUpdate returns all positive-balance lots for a stock
	// key, locked for the duration of the transaction. Order is not
	// significant; the allocation engine sorts by policy.
	ListAvailableForUpdate(ctx context.Context, key StockKey) ([]LotBalance, error)

	// ListByStockKey returns all lot balances for a stock key (reads).
	ListByStockKey(ctx context.Context, key StockKey) ([]LotBalance, error)
}
