// Package ledger_repo provides PostgreSQL implementations for the stock
// and lot balance registers.
package ledger_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockd/internal/core/types"
	"stockd/internal/domain/ledger"
	"stockd/internal/infrastructure/storage/postgres"
)

const stockBalancesTable = "reg_stock_balances"

var stockBalanceColumns = []string{
	"product_id", "warehouse_id", "location",
	"quantity", "future_in", "future_out",
	"first_in_at", "last_in_at", "first_out_at", "last_out_at",
	"updated_at",
}

// StockRepo implements ledger.StockRepository.
type StockRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewStockRepo creates a stock balance repository bound to txm.
func NewStockRepo(txm *postgres.TxManager) *StockRepo {
	return &StockRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// ApplyDelta upserts the balance row, atomically adding delta to the
// committed quantity. The increment happens in the database, not in Go:
// two transactions approving different documents against the same key
// must both land, so read-modify-write from application memory is not an
// option here.
func (r *StockRepo) ApplyDelta(ctx context.Context, key ledger.StockKey, delta types.Quantity, inbound bool, at time.Time) (ledger.StockBalance, error) {
	var firstIn, lastIn, firstOut, lastOut *time.Time
	if inbound {
		firstIn, lastIn = &at, &at
	} else {
		firstOut, lastOut = &at, &at
	}

	sql := `
		INSERT INTO reg_stock_balances (
			product_id, warehouse_id, location,
			quantity, future_in, future_out,
			first_in_at, last_in_at, first_out_at, last_out_at, updated_at
		) VALUES ($1, $2, $3, $4, 0, 0, $5, $6, $7, $8, NOW())
		ON CONFLICT (product_id, warehouse_id, location) DO UPDATE SET
			quantity     = reg_stock_balances.quantity + EXCLUDED.quantity,
			first_in_at  = COALESCE(reg_stock_balances.first_in_at, EXCLUDED.first_in_at),
			last_in_at   = COALESCE(EXCLUDED.last_in_at, reg_stock_balances.last_in_at),
			first_out_at = COALESCE(reg_stock_balances.first_out_at, EXCLUDED.first_out_at),
			last_out_at  = COALESCE(EXCLUDED.last_out_at, reg_stock_balances.last_out_at),
			updated_at   = NOW()
		RETURNING product_id, warehouse_id, location,
			quantity, future_in, future_out,
			first_in_at, last_in_at, first_out_at, last_out_at, updated_at
	`

	var balance ledger.StockBalance
	querier := r.txm.GetQuerier(ctx)
	err := pgxscan.Get(ctx, querier, &balance, sql,
		key.ProductID, key.WarehouseID, key.Location,
		delta, firstIn, lastIn, firstOut, lastOut,
	)
	if err != nil {
		return balance, fmt.Errorf("apply stock delta: %w", err)
	}
	return balance, nil
}

// GetBalance returns the current balance, zero-valued when no movement has
// ever touched the key.
func (r *StockRepo) GetBalance(ctx context.Context, key ledger.StockKey) (ledger.StockBalance, error) {
	q := r.builder.Select(stockBalanceColumns...).
		From(stockBalancesTable).
		Where(squirrel.Eq{
			"product_id":   key.ProductID,
			"warehouse_id": key.WarehouseID,
			"location":     key.Location,
		}).Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return ledger.StockBalance{}, fmt.Errorf("build query: %w", err)
	}

	var balance ledger.StockBalance
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &balance, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return ledger.StockBalance{StockKey: key}, nil
		}
		return balance, fmt.Errorf("get stock balance: %w", err)
	}
	return balance, nil
}

// GetBalanceForUpdate returns the balance with a pessimistic row lock.
func (r *StockRepo) GetBalanceForUpdate(ctx context.Context, key ledger.StockKey) (ledger.StockBalance, error) {
	sql := `
		SELECT product_id, warehouse_id, location,
			quantity, future_in, future_out,
			first_in_at, last_in_at, first_out_at, last_out_at, updated_at
		FROM reg_stock_balances
		WHERE product_id = $1 AND warehouse_id = $2 AND location = $3
		FOR UPDATE
	`

	var balance ledger.StockBalance
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &balance, sql, key.ProductID, key.WarehouseID, key.Location); err != nil {
		if pgxscan.NotFound(err) {
			return ledger.StockBalance{StockKey: key}, nil
		}
		return balance, fmt.Errorf("get stock balance for update: %w", err)
	}
	return balance, nil
}

// ConsumeFuture decrements the matching future counter, floored at zero in
// SQL. A missing row means nothing was ever reserved; the floor makes that
// a no-op.
func (r *StockRepo) ConsumeFuture(ctx context.Context, key ledger.StockKey, inbound bool, qty types.Quantity) (ledger.StockBalance, error) {
	column := "future_out"
	if inbound {
		column = "future_in"
	}

	sql := fmt.Sprintf(`
		UPDATE reg_stock_balances
		SET %[1]s = GREATEST(0, %[1]s - $4), updated_at = NOW()
		WHERE product_id = $1 AND warehouse_id = $2 AND location = $3
		RETURNING product_id, warehouse_id, location,
			quantity, future_in, future_out,
			first_in_at, last_in_at, first_out_at, last_out_at, updated_at
	`, column)

	var balance ledger.StockBalance
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &balance, sql, key.ProductID, key.WarehouseID, key.Location, qty); err != nil {
		if pgxscan.NotFound(err) {
			return ledger.StockBalance{StockKey: key}, nil
		}
		return balance, fmt.Errorf("consume future %s: %w", column, err)
	}
	return balance, nil
}

// Ensure interface compliance.
var _ ledger.StockRepository = (*StockRepo)(nil)
