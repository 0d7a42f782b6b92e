// Package audit provides the append-only audit ledger.
// Entries are created once per logical mutation and never updated or deleted.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"stockd/internal/core/id"
	"stockd/internal/core/types"
	"stockd/internal/domain/ledger"
)

// Action labels an activity entry.
type Action string

const (
	ActionApprove Action = "approve"
	ActionCancel  Action = "cancel"
)

// Operation labels a stock movement entry with the mutation path that
// produced it. Transfer legs are labeled distinctly from plain movements.
type Operation string

const (
	OpReceipt     Operation = "receipt"
	OpIssue       Operation = "issue"
	OpTransferIn  Operation = "transfer_in"
	OpTransferOut Operation = "transfer_out"
	OpAdjustment  Operation = "adjustment"
)

// Activity records an approval or cancellation action on a document.
// Written best-effort after commit; losing one does not invalidate the
// stock ledger, which has its own co-transactional movement entries.
type Activity struct {
	ID             id.ID           `db:"id" json:"id"`
	Actor          string          `db:"actor" json:"actor"`
	Action         Action          `db:"action" json:"action"`
	DocumentID     id.ID           `db:"document_id" json:"documentId"`
	DocumentNumber string          `db:"document_number" json:"documentNumber"`
	Description    string          `db:"description" json:"description"`
	Changes        json.RawMessage `db:"changes" json:"changes,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"createdAt"`
}

// StockMovement is the immutable proof of one balance mutation. It carries
// the before/after committed quantity and future counters so the ledger can
// be reconciled: for any stock key the committed balance equals the sum of
// signed deltas over all time.
type StockMovement struct {
	ID id.ID `db:"id" json:"id"`

	Operation      Operation `db:"operation" json:"operation"`
	DocumentID     id.ID     `db:"document_id" json:"documentId"`
	DocumentNumber string    `db:"document_number" json:"documentNumber"`
	LineNo         int       `db:"line_no" json:"lineNo"`

	ledger.StockKey

	// Delta is signed: positive inbound, negative outbound.
	Delta       types.Quantity `db:"delta" json:"delta"`
	OldQuantity types.Quantity `db:"old_quantity" json:"oldQuantity"`
	NewQuantity types.Quantity `db:"new_quantity" json:"newQuantity"`

	OldFutureIn  types.Quantity `db:"old_future_in" json:"oldFutureIn"`
	NewFutureIn  types.Quantity `db:"new_future_in" json:"newFutureIn"`
	OldFutureOut types.Quantity `db:"old_future_out" json:"oldFutureOut"`
	NewFutureOut types.Quantity `db:"new_future_out" json:"newFutureOut"`

	Actor     string    `db:"actor" json:"actor"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Repository is a pure append store plus the read side used by reporting.
type Repository interface {
	// AppendActivity appends one activity entry.
	AppendActivity(ctx context.Context, entry Activity) error

	// AppendStockMovement appends one movement entry. Must participate in
	// the caller's transaction: movement entries are proof of the mutation.
	AppendStockMovement(ctx context.Context, entry StockMovement) error

	// ListMovementsByDocument returns movement entries for a document in
	// insertion order.
	ListMovementsByDocument(ctx context.Context, documentID id.ID) ([]StockMovement, error)

	// ListActivityByDocument returns activity entries for a document.
	ListActivityByDocument(ctx context.Context, documentID id.ID) ([]Activity, error)
}
