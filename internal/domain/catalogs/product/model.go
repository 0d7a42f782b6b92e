// Package product provides the product catalog.
package product

import (
	"context"

	"github.com/shopspring/decimal"

	"stockd/internal/core/apperror"
	"stockd/internal/core/entity"
	"stockd/internal/core/id"
	"stockd/internal/domain/allocation"
)

// Product is a stock-keeping item. The approval engine consumes only two
// attributes mid-transaction: the stock-control policy and the base unit.
type Product struct {
	entity.Catalog

	// StockControl is the lot picking policy for outbound allocation.
	StockControl allocation.Policy `db:"stock_control" json:"stockControl"`

	// BaseUnitCode is the base "piece" unit all ledger quantities use.
	BaseUnitCode string `db:"base_unit_code" json:"baseUnitCode"`

	// Barcode is the item barcode (EAN-13, etc.)
	Barcode *string `db:"barcode" json:"barcode,omitempty"`

	// Weight in kg (for logistics)
	Weight decimal.Decimal `db:"weight" json:"weight"`

	// TrackLots indicates whether receipts must carry lot dates. Items
	// without lot tracking accumulate in the indefinite-shelf-life bucket.
	TrackLots bool `db:"track_lots" json:"trackLots"`
}

// New creates a product with FEFO as the default policy.
func New(code, name string) *Product {
	return &Product{
		Catalog:      entity.NewCatalog(code, name),
		StockControl: allocation.PolicyFEFO,
		BaseUnitCode: "pc",
		Weight:       decimal.Zero,
	}
}

// Validate implements entity.Validatable.
func (p *Product) Validate(ctx context.Context) error {
	if p.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	if !p.StockControl.IsValid() {
		return apperror.NewValidation("invalid stock control policy").
			WithDetail("field", "stockControl").
			WithDetail("value", string(p.StockControl))
	}
	return nil
}

// Repository defines product lookups.
type Repository interface {
	GetByID(ctx context.Context, productID id.ID) (*Product, error)
	GetByCode(ctx context.Context, code string) (*Product, error)
}
