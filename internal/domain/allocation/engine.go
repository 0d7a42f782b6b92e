// Package allocation picks lots to satisfy outbound quantities.
package allocation

import (
	"sort"

	"stockd/internal/core/apperror"
	"stockd/internal/core/types"
	"stockd/internal/domain/ledger"
)

// Policy is the per-product lot picking policy (stock control mode).
type Policy string

const (
	// PolicyFEFO consumes lots expiring soonest first.
	PolicyFEFO Policy = "fefo"
	// PolicyFIFO consumes oldest manufacture dates first.
	PolicyFIFO Policy = "fifo"
	// PolicyLIFO consumes newest manufacture dates first.
	PolicyLIFO Policy = "lifo"
)

// IsValid reports whether p is a known policy.
func (p Policy) IsValid() bool {
	switch p {
	case PolicyFEFO, PolicyFIFO, PolicyLIFO:
		return true
	}
	return false
}

// String implements fmt.Stringer.
func (p Policy) String() string { return string(p) }

// LotDecrement is one per-lot consumption emitted by Allocate.
type LotDecrement struct {
	Key      ledger.LotKey
	Quantity types.Quantity
}

// Result holds a complete allocation. The caller must apply all decrements
// inside the same atomic unit as the allocation read, or none of them.
type Result struct {
	Decrements []LotDecrement
	Total      types.Quantity
}

// Allocate greedily consumes the given lots in policy order until required
// is covered. Lots with non-positive balances are skipped. If the lots
// exhaust first, the returned error is InsufficientStock carrying the
// unmet shortfall; the partial result must be discarded by the caller.
func Allocate(key ledger.StockKey, required types.Quantity, policy Policy, lots []ledger.LotBalance) (Result, error) {
	if !required.IsPositive() {
		return Result{}, apperror.NewValidation("required quantity must be positive")
	}
	if !policy.IsValid() {
		return Result{}, apperror.NewValidation("unknown stock control policy").
			WithDetail("policy", string(policy))
	}

	candidates := make([]ledger.LotBalance, 0, len(lots))
	for _, lot := range lots {
		if lot.Quantity.IsPositive() {
			candidates = append(candidates, lot)
		}
	}
	sortLots(candidates, policy)

	var result Result
	remaining := required
	for _, lot := range candidates {
		if remaining.IsZero() {
			break
		}
		take := lot.Quantity
		if take > remaining {
			take = remaining
		}
		result.Decrements = append(result.Decrements, LotDecrement{
			Key:      lot.LotKey,
			Quantity: take,
		})
		result.Total += take
		remaining -= take
	}

	if remaining.IsPositive() {
		return Result{}, apperror.NewInsufficientStock(
			key.ProductID.String(),
			key.WarehouseID.String(),
			key.Location,
			required.Float64(),
			remaining.Float64(),
		)
	}

	return result, nil
}

// sortLots orders candidates by policy. Ties break on the other lot date,
// then on expiry, keeping the order deterministic for equal-dated lots.
func sortLots(lots []ledger.LotBalance, policy Policy) {
	switch policy {
	case PolicyFEFO:
		sort.SliceStable(lots, func(i, j int) bool {
			if !lots[i].ExpiryDate.Equal(lots[j].ExpiryDate) {
				return lots[i].ExpiryDate.Before(lots[j].ExpiryDate)
			}
			return lots[i].ManufactureDate.Before(lots[j].ManufactureDate)
		})
	case PolicyFIFO:
		sort.SliceStable(lots, func(i, j int) bool {
			if !lots[i].ManufactureDate.Equal(lots[j].ManufactureDate) {
				return lots[i].ManufactureDate.Before(lots[j].ManufactureDate)
			}
			return lots[i].ExpiryDate.Before(lots[j].ExpiryDate)
		})
	case PolicyLIFO:
		sort.SliceStable(lots, func(i, j int) bool {
			if !lots[i].ManufactureDate.Equal(lots[j].ManufactureDate) {
				return lots[i].ManufactureDate.After(lots[j].ManufactureDate)
			}
			return lots[i].ExpiryDate.After(lots[j].ExpiryDate)
		})
	}
}
