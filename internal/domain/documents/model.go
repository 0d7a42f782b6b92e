// Package documents provides the inventory document (header + lines).
package documents

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"stockd/internal/core/apperror"
	"stockd/internal/core/entity"
	"stockd/internal/core/id"
	"stockd/internal/core/types"
	"stockd/internal/domain/direction"
)

// DocumentType classifies inventory documents.
type DocumentType string

const (
	TypeReceipt    DocumentType = "receipt"
	TypeIssue      DocumentType = "issue"
	TypeTransfer   DocumentType = "transfer"
	TypeAdjustment DocumentType = "adjustment"
)

// IsValid reports whether t is a known document type.
func (t DocumentType) IsValid() bool {
	switch t {
	case TypeReceipt, TypeIssue, TypeTransfer, TypeAdjustment:
		return true
	}
	return false
}

// DefaultDirection is the lowest-precedence direction source for the
// resolver: used only when neither line nor header movement-type codes
// resolve. Transfers resolve per leg, so their default covers the source
// (outbound) leg. Adjustments default inbound; outbound adjustments carry
// an explicit movement-type code.
func (t DocumentType) DefaultDirection() direction.Direction {
	switch t {
	case TypeIssue, TypeTransfer:
		return direction.Out
	default:
		return direction.In
	}
}

// InventoryDocument is a warehouse document: receipt, issue, transfer or
// adjustment. Header and lines are immutable once the status leaves DRAFT;
// from that point only the approval engine ever touched them, and it
// already has.
type InventoryDocument struct {
	entity.Document

	// Type drives the mutation path on approval.
	Type DocumentType `db:"type" json:"type"`

	// WarehouseID is the source warehouse.
	WarehouseID id.ID `db:"warehouse_id" json:"warehouseId"`

	// DestWarehouseID is set for transfers only.
	DestWarehouseID *id.ID `db:"dest_warehouse_id" json:"destWarehouseId,omitempty"`

	// MovementTypeCode is the optional header-level movement type.
	MovementTypeCode string `db:"movement_type_code" json:"movementTypeCode,omitempty"`

	// Table part
	Lines []Line `db:"-" json:"lines"`
}

// Line is one document line. Quantity is expressed in the chosen unit of
// measure; Pieces is the derived base-unit quantity that the ledgers move.
type Line struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	ProductID id.ID `db:"product_id" json:"productId"`

	Quantity  types.Quantity  `db:"quantity" json:"quantity"`
	UnitCode  string          `db:"unit_code" json:"unitCode"`
	UnitRatio decimal.Decimal `db:"unit_ratio" json:"unitRatio"`
	Pieces    types.Quantity  `db:"pieces" json:"pieces"`

	// Location is the source location within the warehouse.
	Location string `db:"location" json:"location"`

	ManufactureDate *time.Time `db:"manufacture_date" json:"manufactureDate,omitempty"`
	ExpiryDate      *time.Time `db:"expiry_date" json:"expiryDate,omitempty"`

	// MovementTypeCode overrides the header movement type for this line.
	MovementTypeCode string `db:"movement_type_code" json:"movementTypeCode,omitempty"`
}

// NewInventoryDocument creates a draft inventory document.
func NewInventoryDocument(docType DocumentType, warehouseID id.ID) *InventoryDocument {
	return &InventoryDocument{
		Document:    entity.NewDocument(),
		Type:        docType,
		WarehouseID: warehouseID,
		Lines:       make([]Line, 0),
	}
}

// AddLine appends a line, deriving the piece quantity from the unit ratio.
func (d *InventoryDocument) AddLine(productID id.ID, qty types.Quantity, unitCode string, unitRatio decimal.Decimal, location string) *Line {
	line := Line{
		LineID:    id.New(),
		LineNo:    len(d.Lines) + 1,
		ProductID: productID,
		Quantity:  qty,
		UnitCode:  unitCode,
		UnitRatio: unitRatio,
		Pieces:    qty.MulRatio(unitRatio),
		Location:  location,
	}
	d.Lines = append(d.Lines, line)
	return &d.Lines[len(d.Lines)-1]
}

// IsTransfer reports whether approval runs the two-leg mutation path.
func (d *InventoryDocument) IsTransfer() bool {
	return d.Type == TypeTransfer
}

// Validate implements entity.Validatable.
func (d *InventoryDocument) Validate(ctx context.Context) error {
	if err := d.Document.Validate(ctx); err != nil {
		return err
	}

	if !d.Type.IsValid() {
		return apperror.NewValidation("invalid document type").
			WithDetail("field", "type").
			WithDetail("value", string(d.Type))
	}

	if id.IsNil(d.WarehouseID) {
		return apperror.NewValidation("warehouse is required").
			WithDetail("field", "warehouseId")
	}

	if d.IsTransfer() {
		if d.DestWarehouseID == nil || id.IsNil(*d.DestWarehouseID) {
			return apperror.NewValidation("destination warehouse is required for transfers").
				WithDetail("field", "destWarehouseId")
		}
		if *d.DestWarehouseID == d.WarehouseID {
			return apperror.NewValidation("destination warehouse must differ from source").
				WithDetail("field", "destWarehouseId")
		}
	}

	if len(d.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}

	for i, line := range d.Lines {
		if id.IsNil(line.ProductID) {
			return apperror.NewValidation("product is required").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if !line.Quantity.IsPositive() {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if !line.UnitRatio.IsPositive() {
			return apperror.NewValidation("unit ratio must be positive").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if !line.Pieces.IsPositive() {
			return apperror.NewValidation("piece quantity must be positive").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
	}

	return nil
}
