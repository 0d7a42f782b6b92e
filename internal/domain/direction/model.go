// Package direction resolves the movement direction of document lines.
package direction

import (
	"context"

	"stockd/internal/core/apperror"
	"stockd/internal/core/entity"
)

// Direction is the effect a movement has on stock.
type Direction string

const (
	// In increases balance (receipt side)
	In Direction = "in"
	// Out decreases balance (issue side)
	Out Direction = "out"
)

// IsValid reports whether d is one of the two known directions.
func (d Direction) IsValid() bool {
	return d == In || d == Out
}

// MovementType is read-only reference data mapping a movement-type code
// to a direction. Consumed mid-transaction by the resolver; its lifecycle
// is owned by master-data maintenance, not by this engine.
type MovementType struct {
	entity.Catalog

	Direction Direction `db:"direction" json:"direction"`
}

// NewMovementType creates a movement type reference entry.
func NewMovementType(code, name string, dir Direction) *MovementType {
	return &MovementType{
		Catalog:   entity.NewCatalog(code, name),
		Direction: dir,
	}
}

// Validate implements entity.Validatable.
func (m *MovementType) Validate(ctx context.Context) error {
	if m.Code == "" {
		return apperror.NewValidation("code is required").
			WithDetail("field", "code")
	}
	if !m.Direction.IsValid() {
		return apperror.NewValidation("invalid direction").
			WithDetail("field", "direction").
			WithDetail("value", string(m.Direction))
	}
	return nil
}

// Repository provides lookups against the movement type reference table.
type Repository interface {
	// GetByCode returns the movement type for a code, or NotFound.
	GetByCode(ctx context.Context, code string) (*MovementType, error)
}
