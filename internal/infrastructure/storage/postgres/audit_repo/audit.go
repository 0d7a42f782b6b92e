// Package audit_repo provides the PostgreSQL implementation of the
// append-only audit ledger.
package audit_repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/klauspost/compress/zstd"

	"stockd/internal/core/id"
	"stockd/internal/domain/audit"
	"stockd/internal/infrastructure/storage/postgres"
)

const (
	activityTable  = "audit_activities"
	movementsTable = "reg_stock_movements"

	// Changes payloads above this size are stored zstd-compressed.
	compressThreshold = 10 * 1024
)

const compressionZstd = "zstd"

var movementColumns = []string{
	"id", "operation", "document_id", "document_number", "line_no",
	"product_id", "warehouse_id", "location",
	"delta", "old_quantity", "new_quantity",
	"old_future_in", "new_future_in", "old_future_out", "new_future_out",
	"actor", "created_at",
}

// activityRow is the storage shape of an activity entry. Changes live in
// one of two columns depending on size.
type activityRow struct {
	ID                id.ID           `db:"id"`
	Actor             string          `db:"actor"`
	Action            audit.Action    `db:"action"`
	DocumentID        id.ID           `db:"document_id"`
	DocumentNumber    string          `db:"document_number"`
	Description       string          `db:"description"`
	Changes           json.RawMessage `db:"changes"`
	ChangesCompressed []byte          `db:"changes_compressed"`
	CompressionAlgo   string          `db:"compression_algo"`
	CreatedAt         time.Time       `db:"created_at"`
}

// Repo implements audit.Repository.
type Repo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewRepo creates an audit repository bound to txm.
func NewRepo(txm *postgres.TxManager) (*Repo, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &Repo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		encoder: encoder,
		decoder: decoder,
	}, nil
}

// AppendActivity appends one activity entry, compressing large payloads.
func (r *Repo) AppendActivity(ctx context.Context, entry audit.Activity) error {
	row := activityRow{
		ID:             entry.ID,
		Actor:          entry.Actor,
		Action:         entry.Action,
		DocumentID:     entry.DocumentID,
		DocumentNumber: entry.DocumentNumber,
		Description:    entry.Description,
		Changes:        entry.Changes,
		CreatedAt:      entry.CreatedAt,
	}

	if len(row.Changes) > compressThreshold {
		row.ChangesCompressed = r.encoder.EncodeAll(row.Changes, nil)
		row.CompressionAlgo = compressionZstd
		row.Changes = nil
	}

	sql, args, err := r.builder.Insert(activityTable).SetMap(postgres.StructToMap(&row)).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// AppendStockMovement appends one movement entry. Runs on the caller's
// querier, so inside the approval transaction the entry commits or rolls
// back with the balance mutation it describes.
func (r *Repo) AppendStockMovement(ctx context.Context, entry audit.StockMovement) error {
	sql, args, err := r.builder.Insert(movementsTable).
		Columns(movementColumns...).
		Values(
			entry.ID, entry.Operation, entry.DocumentID, entry.DocumentNumber, entry.LineNo,
			entry.ProductID, entry.WarehouseID, entry.Location,
			entry.Delta, entry.OldQuantity, entry.NewQuantity,
			entry.OldFutureIn, entry.NewFutureIn, entry.OldFutureOut, entry.NewFutureOut,
			entry.Actor, entry.CreatedAt,
		).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert stock movement: %w", err)
	}
	return nil
}

// ListMovementsByDocument returns movement entries in insertion order.
func (r *Repo) ListMovementsByDocument(ctx context.Context, documentID id.ID) ([]audit.StockMovement, error) {
	sql, args, err := r.builder.Select(movementColumns...).
		From(movementsTable).
		Where(squirrel.Eq{"document_id": documentID}).
		OrderBy("created_at", "line_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movements []audit.StockMovement
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}
	return movements, nil
}

// ListActivityByDocument returns activity entries for a document, newest
// first, decompressing changes payloads where needed.
func (r *Repo) ListActivityByDocument(ctx context.Context, documentID id.ID) ([]audit.Activity, error) {
	sql, args, err := r.builder.Select(postgres.ExtractDBColumns[activityRow]()...).
		From(activityTable).
		Where(squirrel.Eq{"document_id": documentID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []activityRow
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select activities: %w", err)
	}

	entries := make([]audit.Activity, 0, len(rows))
	for _, row := range rows {
		changes := row.Changes
		if row.CompressionAlgo == compressionZstd && len(row.ChangesCompressed) > 0 {
			decompressed, err := r.decoder.DecodeAll(row.ChangesCompressed, nil)
			if err != nil {
				return nil, fmt.Errorf("decompress changes for %s: %w", row.ID, err)
			}
			changes = decompressed
		}
		entries = append(entries, audit.Activity{
			ID:             row.ID,
			Actor:          row.Actor,
			Action:         row.Action,
			DocumentID:     row.DocumentID,
			DocumentNumber: row.DocumentNumber,
			Description:    row.Description,
			Changes:        changes,
			CreatedAt:      row.CreatedAt,
		})
	}
	return entries, nil
}

// Ensure interface compliance.
var _ audit.Repository = (*Repo)(nil)
