package catalog_repo

import (
	"context"

	"stockd/internal/domain/direction"
	"stockd/internal/infrastructure/storage/postgres"
)

// MovementTypeRepo implements direction.Repository.
type MovementTypeRepo struct {
	baseRepo[direction.MovementType]
}

// NewMovementTypeRepo creates a movement type repository bound to txm.
func NewMovementTypeRepo(txm *postgres.TxManager) *MovementTypeRepo {
	return &MovementTypeRepo{
		baseRepo: newBaseRepo[direction.MovementType](txm, "cat_movement_types", "movement type"),
	}
}

// GetByCode returns the movement type for a code, or NotFound.
func (r *MovementTypeRepo) GetByCode(ctx context.Context, code string) (*direction.MovementType, error) {
	return r.getByCode(ctx, code)
}

// Create inserts a movement type (seeding and master-data maintenance).
func (r *MovementTypeRepo) Create(ctx context.Context, m *direction.MovementType) error {
	return r.create(ctx, m)
}

// Ensure interface compliance.
var _ direction.Repository = (*MovementTypeRepo)(nil)
