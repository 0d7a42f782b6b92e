// Package document_repo provides the PostgreSQL implementation of the
// inventory document repository.
package document_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockd/internal/core/apperror"
	"stockd/internal/core/id"
	"stockd/internal/domain"
	"stockd/internal/domain/documents"
	"stockd/internal/infrastructure/storage/postgres"
)

const (
	documentsTable     = "doc_inventory"
	documentLinesTable = "doc_inventory_lines"
)

var lineColumns = []string{
	"document_id",
	"line_id", "line_no", "product_id",
	"quantity", "unit_code", "unit_ratio", "pieces",
	"location", "manufacture_date", "expiry_date", "movement_type_code",
}

// InventoryRepo implements documents.Repository.
type InventoryRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
	columns []string
}

// NewInventoryRepo creates an inventory document repository bound to txm.
func NewInventoryRepo(txm *postgres.TxManager) *InventoryRepo {
	return &InventoryRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		columns: postgres.ExtractDBColumns[documents.InventoryDocument](),
	}
}

// Create inserts the header and its lines.
func (r *InventoryRepo) Create(ctx context.Context, doc *documents.InventoryDocument) error {
	values := postgres.StructToMap(doc)

	sql, args, err := r.builder.Insert(documentsTable).SetMap(values).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}

	if len(doc.Lines) > 0 {
		if err := r.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return err
		}
	}
	return nil
}

// GetByID retrieves the header without lines.
func (r *InventoryRepo) GetByID(ctx context.Context, docID id.ID) (*documents.InventoryDocument, error) {
	sql, args, err := r.builder.Select(r.columns...).
		From(documentsTable).
		Where(squirrel.Eq{"id": docID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var doc documents.InventoryDocument
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &doc, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("document", docID.String())
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &doc, nil
}

// GetByNumber retrieves the header by its unique number.
func (r *InventoryRepo) GetByNumber(ctx context.Context, number string) (*documents.InventoryDocument, error) {
	sql, args, err := r.builder.Select(r.columns...).
		From(documentsTable).
		Where(squirrel.Eq{"number": number}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var doc documents.InventoryDocument
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &doc, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("document", number)
		}
		return nil, fmt.Errorf("get document by number: %w", err)
	}
	return &doc, nil
}

// GetForUpdate retrieves the header under an exclusive row lock. Concurrent
// callers block here until the holder commits or rolls back; the loser then
// observes whatever status the winner left behind.
func (r *InventoryRepo) GetForUpdate(ctx context.Context, docID id.ID) (*documents.InventoryDocument, error) {
	sql := fmt.Sprintf(`
		SELECT %s
		FROM doc_inventory
		WHERE id = $1
		FOR UPDATE
	`, strings.Join(r.columns, ", "))

	var doc documents.InventoryDocument
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &doc, sql, docID); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("document", docID.String())
		}
		return nil, fmt.Errorf("get document for update: %w", err)
	}
	return &doc, nil
}

// Exists is a lock-free existence probe.
func (r *InventoryRepo) Exists(ctx context.Context, docID id.ID) (bool, error) {
	sql := `SELECT EXISTS(SELECT 1 FROM doc_inventory WHERE id = $1)`

	var exists bool
	querier := r.txm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, docID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check document exists: %w", err)
	}
	return exists, nil
}

// Update persists the header with optimistic locking on version.
func (r *InventoryRepo) Update(ctx context.Context, doc *documents.InventoryDocument) error {
	values := postgres.StructToMap(doc)

	// Immutable columns stay as written by Create.
	delete(values, "id")
	delete(values, "number")
	delete(values, "created_at")
	delete(values, "created_by")

	// doc.Version was already incremented by Touch; the guard matches the
	// version the caller read.
	sql, args, err := r.builder.Update(documentsTable).
		SetMap(values).
		Where(squirrel.Eq{"id": doc.ID}).
		Where(squirrel.Eq{"version": doc.Version - 1}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewStateConflict("document", doc.ID.String(), string(doc.Status))
	}
	return nil
}

// GetLines returns the lines of a document ordered by line number.
func (r *InventoryRepo) GetLines(ctx context.Context, docID id.ID) ([]documents.Line, error) {
	sql, args, err := r.builder.Select(lineColumns[1:]...).
		From(documentLinesTable).
		Where(squirrel.Eq{"document_id": docID}).
		OrderBy("line_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []documents.Line
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("select lines: %w", err)
	}
	return lines, nil
}

// SaveLines replaces the document's lines. Uses COPY for the insert.
func (r *InventoryRepo) SaveLines(ctx context.Context, docID id.ID, lines []documents.Line) error {
	querier := r.txm.GetQuerier(ctx)

	delSQL, delArgs, err := r.builder.Delete(documentLinesTable).
		Where(squirrel.Eq{"document_id": docID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := querier.Exec(ctx, delSQL, delArgs...); err != nil {
		return fmt.Errorf("delete lines: %w", err)
	}

	_, err = postgres.CopyFromSlice(ctx, querier, documentLinesTable, lineColumns, lines,
		func(l documents.Line) ([]any, error) {
			return []any{
				docID,
				l.LineID, l.LineNo, l.ProductID,
				l.Quantity, l.UnitCode, l.UnitRatio, l.Pieces,
				l.Location, l.ManufactureDate, l.ExpiryDate, l.MovementTypeCode,
			}, nil
		})
	if err != nil {
		return fmt.Errorf("insert lines: %w", err)
	}
	return nil
}

// List returns documents matching the filter, without lines.
func (r *InventoryRepo) List(ctx context.Context, filter documents.ListFilter) (domain.ListResult[*documents.InventoryDocument], error) {
	result := domain.ListResult[*documents.InventoryDocument]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	where := r.buildWhere(filter)

	countSQL, countArgs, err := r.builder.Select("COUNT(*)").
		From(documentsTable).
		Where(where).
		ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count documents: %w", err)
	}

	q := r.builder.Select(r.columns...).
		From(documentsTable).
		Where(where).
		OrderBy(orderClause(filter.OrderBy))

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("select documents: %w", err)
	}
	return result, nil
}

func (r *InventoryRepo) buildWhere(filter documents.ListFilter) squirrel.And {
	where := squirrel.And{}

	if !filter.IncludeDeleted {
		where = append(where, squirrel.Eq{"deletion_mark": false})
	}
	if filter.Search != "" {
		where = append(where, squirrel.ILike{"number": "%" + filter.Search + "%"})
	}
	if len(filter.IDs) > 0 {
		where = append(where, squirrel.Eq{"id": filter.IDs})
	}
	if filter.Type != nil {
		where = append(where, squirrel.Eq{"type": *filter.Type})
	}
	if filter.WarehouseID != nil {
		where = append(where, squirrel.Eq{"warehouse_id": *filter.WarehouseID})
	}
	if filter.Status != nil {
		where = append(where, squirrel.Eq{"status": *filter.Status})
	}
	if filter.DateFrom != nil {
		where = append(where, squirrel.GtOrEq{"date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		where = append(where, squirrel.Lt{"date": *filter.DateTo})
	}

	return where
}

// orderClause maps a "-field" filter value to a SQL order expression,
// allowing only known columns.
func orderClause(orderBy string) string {
	desc := strings.HasPrefix(orderBy, "-")
	field := strings.TrimPrefix(orderBy, "-")

	switch field {
	case "number", "date", "created_at", "updated_at", "status":
	default:
		field = "date"
		desc = true
	}
	if desc {
		return field + " DESC"
	}
	return field + " ASC"
}

// Ensure interface compliance.
var _ documents.Repository = (*InventoryRepo)(nil)
