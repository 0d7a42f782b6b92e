// Package catalog_repo provides PostgreSQL implementations for catalog
// repositories. Catalogs are read-mostly reference data; the repositories
// here expose the lookups the services consume plus creation for seeding.
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockd/internal/core/apperror"
	"stockd/internal/core/id"
	"stockd/internal/infrastructure/storage/postgres"
)

// baseRepo carries the shared lookup plumbing for one catalog table.
type baseRepo[T any] struct {
	txm        *postgres.TxManager
	builder    squirrel.StatementBuilderType
	table      string
	entityName string
	columns    []string
}

func newBaseRepo[T any](txm *postgres.TxManager, table, entityName string) baseRepo[T] {
	return baseRepo[T]{
		txm:        txm,
		builder:    squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		table:      table,
		entityName: entityName,
		columns:    postgres.ExtractDBColumns[T](),
	}
}

func (r *baseRepo[T]) getByID(ctx context.Context, entityID id.ID) (*T, error) {
	return r.getBy(ctx, squirrel.Eq{"id": entityID}, entityID.String())
}

func (r *baseRepo[T]) getByCode(ctx context.Context, code string) (*T, error) {
	return r.getBy(ctx, squirrel.Eq{"code": code}, code)
}

func (r *baseRepo[T]) getBy(ctx context.Context, cond squirrel.Eq, key string) (*T, error) {
	cond["deletion_mark"] = false

	sql, args, err := r.builder.Select(r.columns...).
		From(r.table).
		Where(cond).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var item T
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &item, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(r.entityName, key)
		}
		return nil, fmt.Errorf("get %s: %w", r.entityName, err)
	}
	return &item, nil
}

func (r *baseRepo[T]) create(ctx context.Context, item *T) error {
	sql, args, err := r.builder.Insert(r.table).
		SetMap(postgres.StructToMap(item)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", r.entityName, err)
	}
	return nil
}
