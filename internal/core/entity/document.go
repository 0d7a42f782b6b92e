package entity

import (
	"context"
	"time"

	"stockd/internal/core/apperror"
)

// DocumentStatus is the lifecycle status of a document.
// DRAFT is the only non-terminal status: once a document is approved or
// cancelled it never transitions again.
type DocumentStatus string

const (
	StatusDraft     DocumentStatus = "draft"
	StatusApproved  DocumentStatus = "approved"
	StatusCancelled DocumentStatus = "cancelled"
)

// DocumentState tracks whether a document is still open for processing.
type DocumentState string

const (
	StateOpen   DocumentState = "open"
	StateClosed DocumentState = "closed"
)

// Document is the base type for business transactions.
// Examples: Receipt, Issue, Transfer, Adjustment.
type Document struct {
	BaseDocument

	// Number is the document number (unique, immutable once created)
	Number string `db:"number" json:"number"`

	// Date is the business date of the document
	Date time.Time `db:"date" json:"date"`

	// Status: draft -> approved | cancelled (one-way)
	Status DocumentStatus `db:"status" json:"status"`

	// State: open while draft, closed on approval/cancellation
	State DocumentState `db:"state" json:"state"`

	// ApprovedBy and ApprovedAt are set only on approval
	ApprovedBy string     `db:"approved_by" json:"approvedBy,omitempty"`
	ApprovedAt *time.Time `db:"approved_at" json:"approvedAt,omitempty"`

	// Comment is an optional user comment
	Comment string `db:"comment" json:"comment,omitempty"`
}

// NewDocument creates a new Document with generated ID in DRAFT status.
func NewDocument() Document {
	return Document{
		BaseDocument: NewBaseDocument(),
		Date:         time.Now().UTC(),
		Status:       StatusDraft,
		State:        StateOpen,
	}
}

// Validate implements Validatable interface.
func (d *Document) Validate(ctx context.Context) error {
	if d.Number == "" {
		return apperror.NewValidation("number is required").
			WithDetail("field", "number")
	}

	if d.Date.IsZero() {
		return apperror.NewValidation("date is required").
			WithDetail("field", "date")
	}

	return nil
}

// IsDraft reports whether the document is still in its sole mutable status.
func (d *Document) IsDraft() bool {
	return d.Status == StatusDraft
}

// IsTerminal reports whether the document reached a terminal status.
func (d *Document) IsTerminal() bool {
	return d.Status == StatusApproved || d.Status == StatusCancelled
}

// CanModify checks if document can be modified.
// Approved and cancelled documents are immutable.
func (d *Document) CanModify() error {
	if d.IsTerminal() {
		return apperror.NewStateConflict("document", d.ID.String(), string(d.Status))
	}
	return nil
}

// MarkApproved moves the document to its approved terminal status and
// records the approver. Callers must verify IsDraft under lock first.
func (d *Document) MarkApproved(approver string, at time.Time) {
	d.Status = StatusApproved
	d.State = StateClosed
	d.ApprovedBy = approver
	t := at.UTC()
	d.ApprovedAt = &t
	d.Touch()
}

// MarkCancelled moves the document to its cancelled terminal status.
func (d *Document) MarkCancelled(actor string, at time.Time) {
	d.Status = StatusCancelled
	d.State = StateClosed
	d.UpdatedBy = actor
	d.Touch()
}
