package documents

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockd/internal/core/apperror"
	"stockd/internal/core/id"
	"stockd/internal/core/types"
	"stockd/internal/domain/direction"
)

func draftReceipt(t *testing.T) *InventoryDocument {
	t.Helper()
	doc := NewInventoryDocument(TypeReceipt, id.New())
	doc.Number = "RCP-0001"
	doc.AddLine(id.New(), types.NewQuantityFromFloat64(10), "pc", decimal.NewFromInt(1), "main")
	return doc
}

func TestAddLine_DerivesPieces(t *testing.T) {
	doc := NewInventoryDocument(TypeReceipt, id.New())

	line := doc.AddLine(id.New(), types.NewQuantityFromFloat64(3), "box", decimal.NewFromInt(12), "main")

	assert.Equal(t, 1, line.LineNo)
	assert.Equal(t, types.NewQuantityFromFloat64(36), line.Pieces)

	second := doc.AddLine(id.New(), types.NewQuantityFromFloat64(1), "pc", decimal.NewFromInt(1), "main")
	assert.Equal(t, 2, second.LineNo)
}

func TestValidate_TransferNeedsDistinctDestination(t *testing.T) {
	source := id.New()
	doc := NewInventoryDocument(TypeTransfer, source)
	doc.Number = "TRF-0001"
	doc.AddLine(id.New(), types.NewQuantityFromFloat64(1), "pc", decimal.NewFromInt(1), "main")

	// Missing destination.
	assert.Error(t, doc.Validate(context.Background()))

	// Destination equal to source.
	doc.DestWarehouseID = &source
	assert.Error(t, doc.Validate(context.Background()))

	dest := id.New()
	doc.DestWarehouseID = &dest
	assert.NoError(t, doc.Validate(context.Background()))
}

func TestValidate_RejectsBadLines(t *testing.T) {
	doc := NewInventoryDocument(TypeReceipt, id.New())
	doc.Number = "RCP-0002"

	// No lines at all.
	assert.Error(t, doc.Validate(context.Background()))

	doc.AddLine(id.New(), types.NewQuantityFromFloat64(-1), "pc", decimal.NewFromInt(1), "main")
	assert.Error(t, doc.Validate(context.Background()))
}

func TestStatusTransitions_OneWay(t *testing.T) {
	doc := draftReceipt(t)
	require.True(t, doc.IsDraft())
	require.NoError(t, doc.CanModify())

	doc.MarkApproved("user-1", time.Now())

	assert.False(t, doc.IsDraft())
	assert.True(t, doc.IsTerminal())
	assert.Equal(t, "user-1", doc.ApprovedBy)
	require.NotNil(t, doc.ApprovedAt)

	err := doc.CanModify()
	require.Error(t, err)
	assert.True(t, apperror.IsStateConflict(err))
}

func TestMarkCancelled_Terminal(t *testing.T) {
	doc := draftReceipt(t)
	doc.MarkCancelled("user-2", time.Now())

	assert.True(t, doc.IsTerminal())
	assert.Error(t, doc.CanModify())
	assert.Nil(t, doc.ApprovedAt)
}

func TestDefaultDirection(t *testing.T) {
	assert.Equal(t, direction.In, TypeReceipt.DefaultDirection())
	assert.Equal(t, direction.Out, TypeIssue.DefaultDirection())
	assert.Equal(t, direction.Out, TypeTransfer.DefaultDirection())
	assert.Equal(t, direction.In, TypeAdjustment.DefaultDirection())
}
