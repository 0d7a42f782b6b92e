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

const lotBalancesTable = "reg_lot_balances"

var lotBalanceColumns = []string{
	"product_id", "warehouse_id", "location",
	"manufacture_date", "expiry_date",
	"quantity", "future_in", "future_out",
	"updated_at",
}

// LotRepo implements ledger.LotRepository.
type LotRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewLotRepo creates a lot balance repository bound to txm.
func NewLotRepo(txm *postgres.TxManager) *LotRepo {
	return &LotRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// ApplyDelta upserts the lot row and atomically adds delta, same increment
// discipline as the stock register.
func (r *LotRepo) ApplyDelta(ctx context.Context, key ledger.LotKey, delta types.Quantity, at time.Time) (ledger.LotBalance, error) {
	sql := `
		INSERT INTO reg_lot_balances (
			product_id, warehouse_id, location,
			manufacture_date, expiry_date,
			quantity, future_in, future_out, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, 0, 0, $7)
		ON CONFLICT (product_id, warehouse_id, location, manufacture_date, expiry_date) DO UPDATE SET
			quantity   = reg_lot_balances.quantity + EXCLUDED.quantity,
			updated_at = EXCLUDED.updated_at
		RETURNING product_id, warehouse_id, location,
			manufacture_date, expiry_date,
			quantity, future_in, future_out, updated_at
	`

	var balance ledger.LotBalance
	querier := r.txm.GetQuerier(ctx)
	err := pgxscan.Get(ctx, querier, &balance, sql,
		key.ProductID, key.WarehouseID, key.Location,
		key.ManufactureDate, key.ExpiryDate,
		delta, at,
	)
	if err != nil {
		return balance, fmt.Errorf("apply lot delta: %w", err)
	}
	return balance, nil
}

// ListAvailableForUpdate returns every positive-balance lot for the stock
// key, row-locked until the transaction ends so concurrent allocations of
// the same lots serialize.
func (r *LotRepo) ListAvailableForUpdate(ctx context.Context, key ledger.StockKey) ([]ledger.LotBalance, error) {
	sql := `
		SELECT product_id, warehouse_id, location,
			manufacture_date, expiry_date,
			quantity, future_in, future_out, updated_at
		FROM reg_lot_balances
		WHERE product_id = $1 AND warehouse_id = $2 AND location = $3
		  AND quantity > 0
		FOR UPDATE
	`

	var lots []ledger.LotBalance
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &lots, sql, key.ProductID, key.WarehouseID, key.Location); err != nil {
		return nil, fmt.Errorf("select available lots: %w", err)
	}
	return lots, nil
}

// ListByStockKey returns all lot balances for a stock key, expiring first.
func (r *LotRepo) ListByStockKey(ctx context.Context, key ledger.StockKey) ([]ledger.LotBalance, error) {
	q := r.builder.Select(lotBalanceColumns...).
		From(lotBalancesTable).
		Where(squirrel.Eq{
			"product_id":   key.ProductID,
			"warehouse_id": key.WarehouseID,
			"location":     key.Location,
		}).
		OrderBy("expiry_date", "manufacture_date")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lots []ledger.LotBalance
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &lots, sql, args...); err != nil {
		return nil, fmt.Errorf("select lots: %w", err)
	}
	return lots, nil
}

// Ensure interface compliance.
var _ ledger.LotRepository = (*LotRepo)(nil)
