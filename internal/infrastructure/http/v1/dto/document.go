package dto

import (
	"time"

	"stockd/internal/domain/documents"
)

// DocumentResponse is the API shape of an inventory document header.
type DocumentResponse struct {
	ID     string `json:"id"`
	Number string `json:"number"`
	Type   string `json:"type"`

	Date   time.Time `json:"date"`
	Status string    `json:"status"`
	State  string    `json:"state"`

	WarehouseID      string  `json:"warehouseId"`
	DestWarehouseID  *string `json:"destWarehouseId,omitempty"`
	MovementTypeCode string  `json:"movementTypeCode,omitempty"`

	ApprovedBy string     `json:"approvedBy,omitempty"`
	ApprovedAt *time.Time `json:"approvedAt,omitempty"`

	Comment string `json:"comment,omitempty"`
	Version int    `json:"version"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Lines []LineResponse `json:"lines,omitempty"`
}

// LineResponse is the API shape of one document line.
type LineResponse struct {
	LineID    string `json:"lineId"`
	LineNo    int    `json:"lineNo"`
	ProductID string `json:"productId"`

	Quantity  string `json:"quantity"`
	UnitCode  string `json:"unitCode"`
	UnitRatio string `json:"unitRatio"`
	Pieces    string `json:"pieces"`

	Location string `json:"location"`

	ManufactureDate *time.Time `json:"manufactureDate,omitempty"`
	ExpiryDate      *time.Time `json:"expiryDate,omitempty"`

	MovementTypeCode string `json:"movementTypeCode,omitempty"`
}

// FromDocument converts a domain document to its API shape.
func FromDocument(doc *documents.InventoryDocument) DocumentResponse {
	resp := DocumentResponse{
		ID:               doc.ID.String(),
		Number:           doc.Number,
		Type:             string(doc.Type),
		Date:             doc.Date,
		Status:           string(doc.Status),
		State:            string(doc.State),
		WarehouseID:      doc.WarehouseID.String(),
		MovementTypeCode: doc.MovementTypeCode,
		ApprovedBy:       doc.ApprovedBy,
		ApprovedAt:       doc.ApprovedAt,
		Comment:          doc.Comment,
		Version:          doc.Version,
		CreatedAt:        doc.CreatedAt,
		UpdatedAt:        doc.UpdatedAt,
	}

	if doc.DestWarehouseID != nil {
		dest := doc.DestWarehouseID.String()
		resp.DestWarehouseID = &dest
	}

	for _, line := range doc.Lines {
		resp.Lines = append(resp.Lines, FromLine(line))
	}
	return resp
}

// FromLine converts a domain line to its API shape.
func FromLine(line documents.Line) LineResponse {
	return LineResponse{
		LineID:           line.LineID.String(),
		LineNo:           line.LineNo,
		ProductID:        line.ProductID.String(),
		Quantity:         line.Quantity.String(),
		UnitCode:         line.UnitCode,
		UnitRatio:        line.UnitRatio.String(),
		Pieces:           line.Pieces.String(),
		Location:         line.Location,
		ManufactureDate:  line.ManufactureDate,
		ExpiryDate:       line.ExpiryDate,
		MovementTypeCode: line.MovementTypeCode,
	}
}

// ListDocumentsRequest binds list query parameters.
type ListDocumentsRequest struct {
	Search      string     `form:"search"`
	Type        string     `form:"type"`
	WarehouseID string     `form:"warehouseId"`
	Status      string     `form:"status"`
	DateFrom    *time.Time `form:"dateFrom" time_format:"2006-01-02"`
	DateTo      *time.Time `form:"dateTo" time_format:"2006-01-02"`
	OrderBy     string     `form:"orderBy"`
	Limit       int        `form:"limit"`
	Offset      int        `form:"offset"`
}
