// Package approval provides the document approval engine: the state
// transition that turns a DRAFT document into committed stock changes.
package approval

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"stockd/internal/core/apperror"
	"stockd/internal/core/id"
	"stockd/internal/core/tx"
	"stockd/internal/domain/allocation"
	"stockd/internal/domain/audit"
	"stockd/internal/domain/catalogs/product"
	"stockd/internal/domain/catalogs/warehouse"
	"stockd/internal/domain/direction"
	"stockd/internal/domain/documents"
	"stockd/internal/domain/ledger"
	"stockd/pkg/logger"
)

var tracer = otel.Tracer("stockd/approval")

// Engine orchestrates document approval and cancellation.
//
// Concurrency contract: the exclusive header lock is the first statement
// inside the transaction. Two concurrent approvals of the same document are
// serialized by the database; the loser observes a terminal status under
// lock and aborts with StateConflict and zero side effects. Approvals of
// different documents run fully in parallel; cross-document contention on
// shared balance rows is resolved by the ledger's atomic relative
// increments.
type Engine struct {
	docs       documents.Repository
	ledger     *ledger.Service
	products   product.Repository
	warehouses warehouse.Repository
	resolver   *direction.Resolver
	audit      *audit.Service
	txManager  tx.Manager
}

// NewEngine creates the approval engine. The transaction manager is an
// explicitly constructed handle injected here, never reached through
// package state.
func NewEngine(
	docs documents.Repository,
	ledgerSvc *ledger.Service,
	products product.Repository,
	warehouses warehouse.Repository,
	resolver *direction.Resolver,
	auditSvc *audit.Service,
	txManager tx.Manager,
) *Engine {
	return &Engine{
		docs:       docs,
		ledger:     ledgerSvc,
		products:   products,
		warehouses: warehouses,
		resolver:   resolver,
		audit:      auditSvc,
		txManager:  txManager,
	}
}

// Approve transitions a DRAFT document to APPROVED and applies its stock
// movements, all inside one atomic unit. Any line failure aborts the whole
// document: no header change and no balance change persist.
func (e *Engine) Approve(ctx context.Context, docID id.ID, actor string) (*documents.InventoryDocument, error) {
	ctx, span := tracer.Start(ctx, "approval.approve",
		trace.WithAttributes(attribute.String("document.id", docID.String())))
	defer span.End()

	// Fast 404 without opening a transaction. This check carries no
	// authority over the status: only the locked re-read below does.
	exists, err := e.docs.Exists(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("existence check: %w", err)
	}
	if !exists {
		return nil, apperror.NewNotFound("document", docID.String())
	}

	var doc *documents.InventoryDocument
	err = e.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		// First statement under the transaction: exclusive header lock.
		// Everything before this point is advisory.
		d, err := e.docs.GetForUpdate(ctx, docID)
		if err != nil {
			return err
		}

		if !d.IsDraft() {
			return apperror.NewStateConflict("document", docID.String(), string(d.Status))
		}

		lines, err := e.docs.GetLines(ctx, docID)
		if err != nil {
			return fmt.Errorf("get lines: %w", err)
		}
		d.Lines = lines

		now := time.Now().UTC()
		d.MarkApproved(actor, now)

		for i := range d.Lines {
			if err := e.applyLine(ctx, d, &d.Lines[i], actor); err != nil {
				return err
			}
		}

		if err := e.docs.Update(ctx, d); err != nil {
			return fmt.Errorf("persist header: %w", err)
		}

		doc = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Post-commit, best-effort.
	e.audit.RecordActivity(ctx, actor, audit.ActionApprove, doc.ID, doc.Number,
		fmt.Sprintf("document %s approved", doc.Number),
		map[string]any{
			"status": map[string]any{"old": "draft", "new": "approved"},
			"lines":  len(doc.Lines),
		},
	)

	logger.Info(ctx, "document approved",
		"document_id", doc.ID,
		"number", doc.Number,
		"type", doc.Type,
		"lines", len(doc.Lines),
		"actor", actor,
	)

	return doc, nil
}

// Cancel transitions a DRAFT document to CANCELLED, releasing its future
// reservations without touching committed stock.
func (e *Engine) Cancel(ctx context.Context, docID id.ID, actor string) (*documents.InventoryDocument, error) {
	ctx, span := tracer.Start(ctx, "approval.cancel",
		trace.WithAttributes(attribute.String("document.id", docID.String())))
	defer span.End()

	exists, err := e.docs.Exists(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("existence check: %w", err)
	}
	if !exists {
		return nil, apperror.NewNotFound("document", docID.String())
	}

	var doc *documents.InventoryDocument
	err = e.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		d, err := e.docs.GetForUpdate(ctx, docID)
		if err != nil {
			return err
		}

		if !d.IsDraft() {
			return apperror.NewStateConflict("document", docID.String(), string(d.Status))
		}

		lines, err := e.docs.GetLines(ctx, docID)
		if err != nil {
			return fmt.Errorf("get lines: %w", err)
		}
		d.Lines = lines

		d.MarkCancelled(actor, time.Now().UTC())

		for i := range d.Lines {
			if err := e.releaseLine(ctx, d, &d.Lines[i]); err != nil {
				return err
			}
		}

		if err := e.docs.Update(ctx, d); err != nil {
			return fmt.Errorf("persist header: %w", err)
		}

		doc = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.audit.RecordActivity(ctx, actor, audit.ActionCancel, doc.ID, doc.Number,
		fmt.Sprintf("document %s cancelled", doc.Number), nil)

	logger.Info(ctx, "document cancelled",
		"document_id", doc.ID,
		"number", doc.Number,
		"actor", actor,
	)

	return doc, nil
}

// applyLine dispatches one line to its mutation path. Transfers always run
// the two-leg path; other documents resolve a direction through the
// movement-type precedence chain and run the single-leg path.
func (e *Engine) applyLine(ctx context.Context, doc *documents.InventoryDocument, line *documents.Line, actor string) error {
	if doc.IsTransfer() {
		return e.applyTransfer(ctx, doc, line, actor)
	}

	dir, err := e.resolver.Resolve(ctx, line.MovementTypeCode, doc.MovementTypeCode, doc.Type.DefaultDirection())
	if err != nil {
		return err
	}

	location, err := e.locationFor(ctx, doc.WarehouseID, line.Location)
	if err != nil {
		return err
	}
	key := ledger.StockKey{
		ProductID:   line.ProductID,
		WarehouseID: doc.WarehouseID,
		Location:    location,
	}

	op := operationFor(doc.Type, dir)
	if dir == direction.In {
		_, err = e.applyInbound(ctx, doc, line, key, ledger.NewLotKey(key, line.ManufactureDate, line.ExpiryDate), op, actor)
		return err
	}
	_, err = e.applyOutbound(ctx, doc, line, key, op, actor)
	return err
}

// applyInbound credits stock and lot balances, consumes the inbound future
// reservation and writes the movement audit entry.
func (e *Engine) applyInbound(ctx context.Context, doc *documents.InventoryDocument, line *documents.Line, key ledger.StockKey, lotKey ledger.LotKey, op audit.Operation, actor string) (ledger.StockBalance, error) {
	before, err := e.ledger.GetBalance(ctx, key)
	if err != nil {
		return ledger.StockBalance{}, fmt.Errorf("read balance: %w", err)
	}

	if _, err := e.ledger.ApplyInbound(ctx, lotKey, line.Pieces, doc.Date); err != nil {
		return ledger.StockBalance{}, err
	}

	after, err := e.ledger.ConsumeFuture(ctx, key, true, line.Pieces)
	if err != nil {
		return ledger.StockBalance{}, err
	}

	if err := e.audit.RecordMovement(ctx, audit.StockMovement{
		Operation:      op,
		DocumentID:     doc.ID,
		DocumentNumber: doc.Number,
		LineNo:         line.LineNo,
		StockKey:       key,
		Delta:          line.Pieces,
		OldQuantity:    before.Quantity,
		NewQuantity:    after.Quantity,
		OldFutureIn:    before.FutureIn,
		NewFutureIn:    after.FutureIn,
		OldFutureOut:   before.FutureOut,
		NewFutureOut:   after.FutureOut,
		Actor:          actor,
	}); err != nil {
		return ledger.StockBalance{}, err
	}

	return after, nil
}

// applyOutbound allocates lots under the product's stock-control policy,
// applies the per-lot and summary decrements, consumes the outbound future
// reservation and writes the movement audit entry. Returns the allocation
// so transfer destination legs can reuse the originating lot identities.
func (e *Engine) applyOutbound(ctx context.Context, doc *documents.InventoryDocument, line *documents.Line, key ledger.StockKey, op audit.Operation, actor string) (allocation.Result, error) {
	before, err := e.ledger.GetBalance(ctx, key)
	if err != nil {
		return allocation.Result{}, fmt.Errorf("read balance: %w", err)
	}

	prod, err := e.products.GetByID(ctx, line.ProductID)
	if err != nil {
		return allocation.Result{}, fmt.Errorf("get product: %w", err)
	}

	lots, err := e.ledger.AvailableLots(ctx, key)
	if err != nil {
		return allocation.Result{}, fmt.Errorf("list lots: %w", err)
	}

	// Fails fast with the shortfall before any decrement is applied; the
	// surrounding transaction guarantees the lot reads stay consistent
	// with the writes below.
	result, err := allocation.Allocate(key, line.Pieces, prod.StockControl, lots)
	if err != nil {
		return allocation.Result{}, err
	}

	for _, dec := range result.Decrements {
		if _, err := e.ledger.ApplyLotDecrement(ctx, dec.Key, dec.Quantity, doc.Date); err != nil {
			return allocation.Result{}, err
		}
	}

	if _, err := e.ledger.ApplyOutbound(ctx, key, line.Pieces, doc.Date); err != nil {
		return allocation.Result{}, err
	}

	after, err := e.ledger.ConsumeFuture(ctx, key, false, line.Pieces)
	if err != nil {
		return allocation.Result{}, err
	}

	if err := e.audit.RecordMovement(ctx, audit.StockMovement{
		Operation:      op,
		DocumentID:     doc.ID,
		DocumentNumber: doc.Number,
		LineNo:         line.LineNo,
		StockKey:       key,
		Delta:          line.Pieces.Neg(),
		OldQuantity:    before.Quantity,
		NewQuantity:    after.Quantity,
		OldFutureIn:    before.FutureIn,
		NewFutureIn:    after.FutureIn,
		OldFutureOut:   before.FutureOut,
		NewFutureOut:   after.FutureOut,
		Actor:          actor,
	}); err != nil {
		return allocation.Result{}, err
	}

	return result, nil
}

// applyTransfer runs the source (outbound) leg, then the destination
// (inbound) leg crediting the destination warehouse lot-by-lot with the
// originating lot dates. If the source leg fails the destination leg never
// executes; the enclosing transaction discards everything either way.
func (e *Engine) applyTransfer(ctx context.Context, doc *documents.InventoryDocument, line *documents.Line, actor string) error {
	sourceLocation, err := e.locationFor(ctx, doc.WarehouseID, line.Location)
	if err != nil {
		return err
	}
	sourceKey := ledger.StockKey{
		ProductID:   line.ProductID,
		WarehouseID: doc.WarehouseID,
		Location:    sourceLocation,
	}

	result, err := e.applyOutbound(ctx, doc, line, sourceKey, audit.OpTransferOut, actor)
	if err != nil {
		return err
	}

	destLocation, err := e.locationFor(ctx, *doc.DestWarehouseID, line.Location)
	if err != nil {
		return err
	}
	destKey := ledger.StockKey{
		ProductID:   line.ProductID,
		WarehouseID: *doc.DestWarehouseID,
		Location:    destLocation,
	}

	before, err := e.ledger.GetBalance(ctx, destKey)
	if err != nil {
		return fmt.Errorf("read destination balance: %w", err)
	}

	// Lot identity follows the goods: each consumed source lot is credited
	// at the destination with its own manufacture/expiry dates, not the
	// destination's pre-existing lots.
	for _, dec := range result.Decrements {
		destLot := ledger.LotKey{
			StockKey:        destKey,
			ManufactureDate: dec.Key.ManufactureDate,
			ExpiryDate:      dec.Key.ExpiryDate,
		}
		if _, err := e.ledger.ApplyInbound(ctx, destLot, dec.Quantity, doc.Date); err != nil {
			return err
		}
	}

	after, err := e.ledger.ConsumeFuture(ctx, destKey, true, line.Pieces)
	if err != nil {
		return err
	}

	return e.audit.RecordMovement(ctx, audit.StockMovement{
		Operation:      audit.OpTransferIn,
		DocumentID:     doc.ID,
		DocumentNumber: doc.Number,
		LineNo:         line.LineNo,
		StockKey:       destKey,
		Delta:          line.Pieces,
		OldQuantity:    before.Quantity,
		NewQuantity:    after.Quantity,
		OldFutureIn:    before.FutureIn,
		NewFutureIn:    after.FutureIn,
		OldFutureOut:   before.FutureOut,
		NewFutureOut:   after.FutureOut,
		Actor:          actor,
	})
}

// releaseLine releases the future reservations a cancelled draft held,
// without touching committed balances.
func (e *Engine) releaseLine(ctx context.Context, doc *documents.InventoryDocument, line *documents.Line) error {
	sourceLocation, err := e.locationFor(ctx, doc.WarehouseID, line.Location)
	if err != nil {
		return err
	}
	sourceKey := ledger.StockKey{
		ProductID:   line.ProductID,
		WarehouseID: doc.WarehouseID,
		Location:    sourceLocation,
	}

	if doc.IsTransfer() {
		if _, err := e.ledger.ConsumeFuture(ctx, sourceKey, false, line.Pieces); err != nil {
			return err
		}
		destLocation, err := e.locationFor(ctx, *doc.DestWarehouseID, line.Location)
		if err != nil {
			return err
		}
		destKey := sourceKey
		destKey.WarehouseID = *doc.DestWarehouseID
		destKey.Location = destLocation
		_, err = e.ledger.ConsumeFuture(ctx, destKey, true, line.Pieces)
		return err
	}

	dir, err := e.resolver.Resolve(ctx, line.MovementTypeCode, doc.MovementTypeCode, doc.Type.DefaultDirection())
	if err != nil {
		return err
	}
	_, err = e.ledger.ConsumeFuture(ctx, sourceKey, dir == direction.In, line.Pieces)
	return err
}

// locationFor substitutes the warehouse default location for blank line
// locations.
func (e *Engine) locationFor(ctx context.Context, warehouseID id.ID, location string) (string, error) {
	if location != "" {
		return location, nil
	}
	wh, err := e.warehouses.GetByID(ctx, warehouseID)
	if err != nil {
		return "", fmt.Errorf("get warehouse: %w", err)
	}
	return wh.DefaultLocation, nil
}

// operationFor labels the audit entry for a non-transfer leg.
func operationFor(docType documents.DocumentType, dir direction.Direction) audit.Operation {
	if docType == documents.TypeAdjustment {
		return audit.OpAdjustment
	}
	if dir == direction.In {
		return audit.OpReceipt
	}
	return audit.OpIssue
}
