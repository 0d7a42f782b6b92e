// Package warehouse provides the warehouse catalog.
package warehouse

import (
	"context"

	"stockd/internal/core/apperror"
	"stockd/internal/core/entity"
	"stockd/internal/core/id"
)

// Warehouse is a physical storage site. Locations within a warehouse are
// free-form codes on balance keys, not separate catalog entries.
type Warehouse struct {
	entity.Catalog

	// Address is the physical address
	Address string `db:"address" json:"address,omitempty"`

	// DefaultLocation is the location code used when a line leaves it blank
	DefaultLocation string `db:"default_location" json:"defaultLocation"`
}

// New creates a warehouse.
func New(code, name string) *Warehouse {
	return &Warehouse{
		Catalog:         entity.NewCatalog(code, name),
		DefaultLocation: "main",
	}
}

// Validate implements entity.Validatable.
func (w *Warehouse) Validate(ctx context.Context) error {
	if w.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	return nil
}

// Repository defines warehouse lookups.
type Repository interface {
	GetByID(ctx context.Context, warehouseID id.ID) (*Warehouse, error)
	GetByCode(ctx context.Context, code string) (*Warehouse, error)
}
