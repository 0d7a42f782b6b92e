package documents

import (
	"context"
	"time"

	"stockd/internal/core/id"
	"stockd/internal/domain"
)

// Repository defines operations for inventory documents.
type Repository interface {
	Create(ctx context.Context, doc *InventoryDocument) error
	GetByID(ctx context.Context, docID id.ID) (*InventoryDocument, error)
	GetByNumber(ctx context.Context, number string) (*InventoryDocument, error)
	Update(ctx context.Context, doc *InventoryDocument) error

	// GetForUpdate retrieves the header with an exclusive row lock. This is
	// the approval engine's serialization point and must be the first
	// statement executed inside the approval transaction.
	GetForUpdate(ctx context.Context, docID id.ID) (*InventoryDocument, error)

	// Exists is a fast, lock-free existence check. It carries no authority
	// over the document's status; only the locked re-read does.
	Exists(ctx context.Context, docID id.ID) (bool, error)

	// GetLines returns the document's lines ordered by line number. The
	// approval engine applies lines in the order returned here.
	GetLines(ctx context.Context, docID id.ID) ([]Line, error)
	SaveLines(ctx context.Context, docID id.ID, lines []Line) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*InventoryDocument], error)
}

// ListFilter for filtering inventory documents.
type ListFilter struct {
	domain.ListFilter

	Type        *DocumentType
	WarehouseID *id.ID
	Status      *string
	DateFrom    *time.Time
	DateTo      *time.Time
}
