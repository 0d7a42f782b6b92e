package ledger

import (
	"context"
	"fmt"
	"time"

	"stockd/internal/core/apperror"
	"stockd/internal/core/types"
	"stockd/pkg/logger"
)

// Service provides balance mutations for the approval engine.
// Transactions are managed by the caller; every method here expects to run
// inside the approval's atomic unit.
type Service struct {
	stock StockRepository
	lots  LotRepository
}

// NewService creates a new ledger service.
func NewService(stock StockRepository, lots LotRepository) *Service {
	return &Service{stock: stock, lots: lots}
}

// ApplyInbound credits the committed stock balance and the lot balance for
// one inbound leg. Creates both rows on first movement into the key.
func (s *Service) ApplyInbound(ctx context.Context, lotKey LotKey, qty types.Quantity, at time.Time) (StockBalance, error) {
	if !qty.IsPositive() {
		return StockBalance{}, apperror.NewValidation("inbound quantity must be positive")
	}

	balance, err := s.stock.ApplyDelta(ctx, lotKey.StockKey, qty, true, at)
	if err != nil {
		return StockBalance{}, fmt.Errorf("apply stock delta: %w", err)
	}

	if _, err := s.lots.ApplyDelta(ctx, lotKey, qty, at); err != nil {
		return StockBalance{}, fmt.Errorf("apply lot delta: %w", err)
	}

	return balance, nil
}

// ApplyOutbound debits the committed stock balance for one outbound leg.
// The balance is read under lock first; a debit that would drive it
// negative fails with InsufficientStock. Lot-level decrements are applied
// separately from the allocation result.
func (s *Service) ApplyOutbound(ctx context.Context, key StockKey, qty types.Quantity, at time.Time) (StockBalance, error) {
	if !qty.IsPositive() {
		return StockBalance{}, apperror.NewValidation("outbound quantity must be positive")
	}

	current, err := s.stock.GetBalanceForUpdate(ctx, key)
	if err != nil {
		return StockBalance{}, fmt.Errorf("get balance for update: %w", err)
	}

	if current.Quantity < qty {
		return StockBalance{}, apperror.NewInsufficientStock(
			key.ProductID.String(),
			key.WarehouseID.String(),
			key.Location,
			qty.Float64(),
			(qty - current.Quantity).Float64(),
		)
	}

	balance, err := s.stock.ApplyDelta(ctx, key, qty.Neg(), false, at)
	if err != nil {
		return StockBalance{}, fmt.Errorf("apply stock delta: %w", err)
	}

	return balance, nil
}

// ApplyLotDecrement debits one lot balance after allocation.
func (s *Service) ApplyLotDecrement(ctx context.Context, key LotKey, qty types.Quantity, at time.Time) (LotBalance, error) {
	if !qty.IsPositive() {
		return LotBalance{}, apperror.NewValidation("lot decrement must be positive")
	}
	balance, err := s.lots.ApplyDelta(ctx, key, qty.Neg(), at)
	if err != nil {
		return LotBalance{}, fmt.Errorf("apply lot delta: %w", err)
	}
	return balance, nil
}

// AvailableLots returns the locked positive-balance lots for allocation.
func (s *Service) AvailableLots(ctx context.Context, key StockKey) ([]LotBalance, error) {
	return s.lots.ListAvailableForUpdate(ctx, key)
}

// ConsumeFuture releases the draft-time reservation matching one leg.
// The counter floors at zero: a missing reservation is logged, not fatal,
// since reservation creation happens in a flow outside this engine.
// Returns the balance after the release.
func (s *Service) ConsumeFuture(ctx context.Context, key StockKey, inbound bool, qty types.Quantity) (StockBalance, error) {
	balance, err := s.stock.GetBalance(ctx, key)
	if err != nil {
		return StockBalance{}, fmt.Errorf("get balance: %w", err)
	}

	reserved := balance.FutureOut
	if inbound {
		reserved = balance.FutureIn
	}
	if reserved < qty.Abs() {
		logger.Warn(ctx, "future counter below consumed quantity, flooring at zero",
			"product_id", key.ProductID,
			"warehouse_id", key.WarehouseID,
			"location", key.Location,
			"inbound", inbound,
			"reserved", reserved,
			"consumed", qty.Abs(),
		)
	}

	updated, err := s.stock.ConsumeFuture(ctx, key, inbound, qty.Abs())
	if err != nil {
		return StockBalance{}, fmt.Errorf("consume future: %w", err)
	}
	return updated, nil
}

// GetBalance returns the committed balance for a key (zero-valued if the
// key has never moved).
func (s *Service) GetBalance(ctx context.Context, key StockKey) (StockBalance, error) {
	return s.stock.GetBalance(ctx, key)
}

// LotBalances returns all lot balances for a key.
func (s *Service) LotBalances(ctx context.Context, key StockKey) ([]LotBalance, error) {
	return s.lots.ListByStockKey(ctx, key)
}
