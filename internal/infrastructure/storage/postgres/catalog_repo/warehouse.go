package catalog_repo

import (
	"context"

	"stockd/internal/core/id"
	"stockd/internal/domain/catalogs/warehouse"
	"stockd/internal/infrastructure/storage/postgres"
)

// WarehouseRepo implements warehouse.Repository.
type WarehouseRepo struct {
	baseRepo[warehouse.Warehouse]
}

// NewWarehouseRepo creates a warehouse catalog repository bound to txm.
func NewWarehouseRepo(txm *postgres.TxManager) *WarehouseRepo {
	return &WarehouseRepo{
		baseRepo: newBaseRepo[warehouse.Warehouse](txm, "cat_warehouses", "warehouse"),
	}
}

// GetByID returns the warehouse or NotFound.
func (r *WarehouseRepo) GetByID(ctx context.Context, warehouseID id.ID) (*warehouse.Warehouse, error) {
	return r.getByID(ctx, warehouseID)
}

// GetByCode returns the warehouse by its unique code.
func (r *WarehouseRepo) GetByCode(ctx context.Context, code string) (*warehouse.Warehouse, error) {
	return r.getByCode(ctx, code)
}

// Create inserts a warehouse (seeding and master-data maintenance).
func (r *WarehouseRepo) Create(ctx context.Context, w *warehouse.Warehouse) error {
	return r.create(ctx, w)
}

// Ensure interface compliance.
var _ warehouse.Repository = (*WarehouseRepo)(nil)
