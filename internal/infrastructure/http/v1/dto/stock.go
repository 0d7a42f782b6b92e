package dto

import (
	"time"

	"stockd/internal/domain/audit"
	"stockd/internal/domain/ledger"
)

// StockBalanceResponse is the API shape of one stock balance row.
type StockBalanceResponse struct {
	ProductID   string `json:"productId"`
	WarehouseID string `json:"warehouseId"`
	Location    string `json:"location"`

	Quantity  string `json:"quantity"`
	FutureIn  string `json:"futureIn"`
	FutureOut string `json:"futureOut"`

	FirstInAt  *time.Time `json:"firstInAt,omitempty"`
	LastInAt   *time.Time `json:"lastInAt,omitempty"`
	FirstOutAt *time.Time `json:"firstOutAt,omitempty"`
	LastOutAt  *time.Time `json:"lastOutAt,omitempty"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// FromStockBalance converts a balance row to its API shape.
func FromStockBalance(b ledger.StockBalance) StockBalanceResponse {
	return StockBalanceResponse{
		ProductID:   b.ProductID.String(),
		WarehouseID: b.WarehouseID.String(),
		Location:    b.Location,
		Quantity:    b.Quantity.String(),
		FutureIn:    b.FutureIn.String(),
		FutureOut:   b.FutureOut.String(),
		FirstInAt:   b.FirstInAt,
		LastInAt:    b.LastInAt,
		FirstOutAt:  b.FirstOutAt,
		LastOutAt:   b.LastOutAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

// LotBalanceResponse is the API shape of one lot balance row.
type LotBalanceResponse struct {
	ProductID   string `json:"productId"`
	WarehouseID string `json:"warehouseId"`
	Location    string `json:"location"`

	ManufactureDate time.Time `json:"manufactureDate"`
	ExpiryDate      time.Time `json:"expiryDate"`
	Indefinite      bool      `json:"indefinite"`

	Quantity  string `json:"quantity"`
	FutureIn  string `json:"futureIn"`
	FutureOut string `json:"futureOut"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// FromLotBalance converts a lot row to its API shape.
func FromLotBalance(b ledger.LotBalance) LotBalanceResponse {
	return LotBalanceResponse{
		ProductID:       b.ProductID.String(),
		WarehouseID:     b.WarehouseID.String(),
		Location:        b.Location,
		ManufactureDate: b.ManufactureDate,
		ExpiryDate:      b.ExpiryDate,
		Indefinite:      b.HasIndefiniteShelfLife(),
		Quantity:        b.Quantity.String(),
		FutureIn:        b.FutureIn.String(),
		FutureOut:       b.FutureOut.String(),
		UpdatedAt:       b.UpdatedAt,
	}
}

// BalanceQuery binds stock balance query parameters.
type BalanceQuery struct {
	ProductID   string `form:"productId" binding:"required"`
	WarehouseID string `form:"warehouseId" binding:"required"`
	Location    string `form:"location"`
}

// MovementResponse is the API shape of one audit movement entry.
type MovementResponse struct {
	ID             string `json:"id"`
	Operation      string `json:"operation"`
	DocumentID     string `json:"documentId"`
	DocumentNumber string `json:"documentNumber"`
	LineNo         int    `json:"lineNo"`

	ProductID   string `json:"productId"`
	WarehouseID string `json:"warehouseId"`
	Location    string `json:"location"`

	Delta       string `json:"delta"`
	OldQuantity string `json:"oldQuantity"`
	NewQuantity string `json:"newQuantity"`

	OldFutureIn  string `json:"oldFutureIn"`
	NewFutureIn  string `json:"newFutureIn"`
	OldFutureOut string `json:"oldFutureOut"`
	NewFutureOut string `json:"newFutureOut"`

	Actor     string    `json:"actor"`
	CreatedAt time.Time `json:"createdAt"`
}

// FromMovement converts a movement entry to its API shape.
func FromMovement(m audit.StockMovement) MovementResponse {
	return MovementResponse{
		ID:             m.ID.String(),
		Operation:      string(m.Operation),
		DocumentID:     m.DocumentID.String(),
		DocumentNumber: m.DocumentNumber,
		LineNo:         m.LineNo,
		ProductID:      m.ProductID.String(),
		WarehouseID:    m.WarehouseID.String(),
		Location:       m.Location,
		Delta:          m.Delta.String(),
		OldQuantity:    m.OldQuantity.String(),
		NewQuantity:    m.NewQuantity.String(),
		OldFutureIn:    m.OldFutureIn.String(),
		NewFutureIn:    m.NewFutureIn.String(),
		OldFutureOut:   m.OldFutureOut.String(),
		NewFutureOut:   m.NewFutureOut.String(),
		Actor:          m.Actor,
		CreatedAt:      m.CreatedAt,
	}
}

// ActivityResponse is the API shape of one audit activity entry.
type ActivityResponse struct {
	ID             string    `json:"id"`
	Actor          string    `json:"actor"`
	Action         string    `json:"action"`
	DocumentID     string    `json:"documentId"`
	DocumentNumber string    `json:"documentNumber"`
	Description    string    `json:"description"`
	Changes        any       `json:"changes,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// FromActivity converts an activity entry to its API shape.
func FromActivity(a audit.Activity) ActivityResponse {
	resp := ActivityResponse{
		ID:             a.ID.String(),
		Actor:          a.Actor,
		Action:         string(a.Action),
		DocumentID:     a.DocumentID.String(),
		DocumentNumber: a.DocumentNumber,
		Description:    a.Description,
		CreatedAt:      a.CreatedAt,
	}
	if len(a.Changes) > 0 {
		resp.Changes = a.Changes
	}
	return resp
}
