package allocation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockd/internal/core/apperror"
	"stockd/internal/core/id"
	"stockd/internal/core/types"
	"stockd/internal/domain/ledger"
)

func testKey() ledger.StockKey {
	return ledger.StockKey{
		ProductID:   id.New(),
		WarehouseID: id.New(),
		Location:    "main",
	}
}

func lot(key ledger.StockKey, mfg, exp time.Time, qty float64) ledger.LotBalance {
	return ledger.LotBalance{
		LotKey: ledger.LotKey{
			StockKey:        key,
			ManufactureDate: mfg,
			ExpiryDate:      exp,
		},
		Quantity: types.NewQuantityFromFloat64(qty),
	}
}

func day(offset int) time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func TestAllocate_FEFO_DrainsEarliestExpiryFirst(t *testing.T) {
	key := testKey()
	lots := []ledger.LotBalance{
		lot(key, day(0), day(30), 5),
		lot(key, day(1), day(10), 5),
		lot(key, day(2), day(20), 5),
	}

	result, err := Allocate(key, types.NewQuantityFromFloat64(7), PolicyFEFO, lots)
	require.NoError(t, err)
	require.Len(t, result.Decrements, 2)

	// First lot to expire is fully drained, second covers the remainder.
	assert.Equal(t, day(10), result.Decrements[0].Key.ExpiryDate)
	assert.Equal(t, types.NewQuantityFromFloat64(5), result.Decrements[0].Quantity)

	assert.Equal(t, day(20), result.Decrements[1].Key.ExpiryDate)
	assert.Equal(t, types.NewQuantityFromFloat64(2), result.Decrements[1].Quantity)

	assert.Equal(t, types.NewQuantityFromFloat64(7), result.Total)
}

func TestAllocate_FIFO_UsesManufactureDateAscending(t *testing.T) {
	key := testKey()
	lots := []ledger.LotBalance{
		lot(key, day(5), day(10), 4),
		lot(key, day(1), day(30), 4),
	}

	result, err := Allocate(key, types.NewQuantityFromFloat64(5), PolicyFIFO, lots)
	require.NoError(t, err)
	require.Len(t, result.Decrements, 2)

	assert.Equal(t, day(1), result.Decrements[0].Key.ManufactureDate)
	assert.Equal(t, types.NewQuantityFromFloat64(4), result.Decrements[0].Quantity)
	assert.Equal(t, day(5), result.Decrements[1].Key.ManufactureDate)
	assert.Equal(t, types.NewQuantityFromFloat64(1), result.Decrements[1].Quantity)
}

func TestAllocate_LIFO_UsesManufactureDateDescending(t *testing.T) {
	key := testKey()
	lots := []ledger.LotBalance{
		lot(key, day(1), day(30), 4),
		lot(key, day(5), day(10), 4),
	}

	result, err := Allocate(key, types.NewQuantityFromFloat64(5), PolicyLIFO, lots)
	require.NoError(t, err)
	require.Len(t, result.Decrements, 2)

	assert.Equal(t, day(5), result.Decrements[0].Key.ManufactureDate)
	assert.Equal(t, day(1), result.Decrements[1].Key.ManufactureDate)
}

func TestAllocate_FEFO_IndefiniteShelfLifeSortsLast(t *testing.T) {
	key := testKey()
	lots := []ledger.LotBalance{
		lot(key, ledger.IndefiniteDate, ledger.IndefiniteDate, 10),
		lot(key, day(0), day(5), 3),
	}

	result, err := Allocate(key, types.NewQuantityFromFloat64(4), PolicyFEFO, lots)
	require.NoError(t, err)
	require.Len(t, result.Decrements, 2)

	assert.Equal(t, day(5), result.Decrements[0].Key.ExpiryDate)
	assert.Equal(t, ledger.IndefiniteDate, result.Decrements[1].Key.ExpiryDate)
	assert.Equal(t, types.NewQuantityFromFloat64(1), result.Decrements[1].Quantity)
}

func TestAllocate_SkipsNonPositiveLots(t *testing.T) {
	key := testKey()
	lots := []ledger.LotBalance{
		lot(key, day(0), day(5), 0),
		lot(key, day(1), day(6), -2),
		lot(key, day(2), day(7), 3),
	}

	result, err := Allocate(key, types.NewQuantityFromFloat64(3), PolicyFEFO, lots)
	require.NoError(t, err)
	require.Len(t, result.Decrements, 1)
	assert.Equal(t, day(7), result.Decrements[0].Key.ExpiryDate)
}

func TestAllocate_InsufficientStockCarriesShortfall(t *testing.T) {
	key := testKey()
	lots := []ledger.LotBalance{
		lot(key, day(0), day(5), 2),
		lot(key, day(1), day(6), 3),
	}

	_, err := Allocate(key, types.NewQuantityFromFloat64(8), PolicyFEFO, lots)
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 3.0, appErr.Details["shortfall"])
}

func TestAllocate_InvalidPolicy(t *testing.T) {
	key := testKey()
	_, err := Allocate(key, types.NewQuantityFromFloat64(1), Policy("random"), nil)
	assert.Error(t, err)
}
