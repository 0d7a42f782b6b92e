package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"stockd/internal/core/tx"
	"stockd/pkg/logger"
)

var txTracer = otel.Tracer("stockd/postgres")

type txContextKey struct{}

// Querier is the subset of pgx operations shared by the pool and an open
// transaction. Repositories run all their SQL through a Querier obtained
// from the context, so the same repository code works inside and outside
// a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// TxManager starts transactions on an explicitly injected pool and stows
// the open transaction in the context. There is no global registry: main
// constructs one manager per database and hands it to the services that
// need transactional writes.
type TxManager struct {
	pool *Pool
	opts TxOptions
}

// TxOptions configures transactions started by a TxManager.
type TxOptions struct {
	IsoLevel         pgx.TxIsoLevel
	AccessMode       pgx.TxAccessMode
	StatementTimeout time.Duration
}

// DefaultTxOptions uses read committed, the weakest level under which the
// row-lock discipline of the approval engine is still correct.
func DefaultTxOptions() TxOptions {
	return TxOptions{
		IsoLevel:         pgx.ReadCommitted,
		AccessMode:       pgx.ReadWrite,
		StatementTimeout: 30 * time.Second,
	}
}

// NewTxManager creates a transaction manager over the given pool.
func NewTxManager(pool *Pool, opts TxOptions) *TxManager {
	return &TxManager{pool: pool, opts: opts}
}

// GetQuerier returns the transaction stored in the context, or the pool
// when no transaction is open.
func (m *TxManager) GetQuerier(ctx context.Context) Querier {
	if tx, ok := ctx.Value(txContextKey{}).(pgx.Tx); ok {
		return tx
	}
	return m.pool.Pool
}

// InTransaction reports whether the context carries an open transaction.
func InTransaction(ctx context.Context) bool {
	_, ok := ctx.Value(txContextKey{}).(pgx.Tx)
	return ok
}

// RunInTransaction executes fn within a transaction. If the context
// already carries a transaction, fn runs in a savepoint so that a failure
// rolls back only the nested work.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if outer, ok := ctx.Value(txContextKey{}).(pgx.Tx); ok {
		return m.runNested(ctx, outer, fn)
	}

	ctx, span := txTracer.Start(ctx, "postgres.transaction")
	defer span.End()
	span.SetAttributes(attribute.String("db.tx.isolation", string(m.opts.IsoLevel)))

	tx, err := m.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   m.opts.IsoLevel,
		AccessMode: m.opts.AccessMode,
	})
	if err != nil {
		span.SetStatus(codes.Error, "begin failed")
		return fmt.Errorf("begin transaction: %w", err)
	}

	if m.opts.StatementTimeout > 0 {
		timeout := fmt.Sprintf("SET LOCAL statement_timeout = '%dms'", m.opts.StatementTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, timeout); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("set statement timeout: %w", err)
		}
	}

	txCtx := context.WithValue(ctx, txContextKey{}, tx)

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				logger.Error(ctx, "rollback after panic failed", "error", rbErr)
			}
			panic(p)
		}
	}()

	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			logger.Error(ctx, "transaction rollback failed", "error", rbErr)
		}
		span.SetStatus(codes.Error, "rolled back")
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		span.SetStatus(codes.Error, "commit failed")
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (m *TxManager) runNested(ctx context.Context, outer pgx.Tx, fn func(ctx context.Context) error) error {
	nested, err := outer.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin savepoint: %w", err)
	}

	nestedCtx := context.WithValue(ctx, txContextKey{}, nested)

	if err := fn(nestedCtx); err != nil {
		if rbErr := nested.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			logger.Error(ctx, "savepoint rollback failed", "error", rbErr)
		}
		return err
	}
	return nested.Commit(ctx)
}

// ReadOnlyTxManager wraps a TxManager forcing read-only access mode. The
// read surface runs multi-query reads through it so a document header and
// its lines come from one snapshot.
type ReadOnlyTxManager struct {
	inner *TxManager
}

var _ tx.ReadOnlyManager = (*ReadOnlyTxManager)(nil)

// NewReadOnlyTxManager builds a read-only manager over the same pool.
func NewReadOnlyTxManager(pool *Pool, opts TxOptions) *ReadOnlyTxManager {
	opts.AccessMode = pgx.ReadOnly
	return &ReadOnlyTxManager{inner: NewTxManager(pool, opts)}
}

// RunInTransaction executes fn in a read-only transaction.
func (m *ReadOnlyTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.inner.RunInTransaction(ctx, fn)
}

// ReadOnly executes fn in a read-only transaction. Every transaction this
// manager starts is read-only, so this is the same as RunInTransaction.
func (m *ReadOnlyTxManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.inner.RunInTransaction(ctx, fn)
}
