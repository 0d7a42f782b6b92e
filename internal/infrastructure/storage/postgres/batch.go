package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// CopyFromSlice bulk-inserts rows into table using the COPY protocol.
// valueFn maps each element to a row of column values in the same order
// as columns.
func CopyFromSlice[T any](ctx context.Context, q Querier, table string, columns []string, items []T, valueFn func(T) ([]any, error)) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}

	rows := make([][]any, 0, len(items))
	for i, item := range items {
		values, err := valueFn(item)
		if err != nil {
			return 0, fmt.Errorf("map row %d: %w", i, err)
		}
		rows = append(rows, values)
	}

	copied, err := q.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("copy into %s: %w", table, err)
	}
	if copied != int64(len(rows)) {
		return copied, fmt.Errorf("copy into %s: expected %d rows, copied %d", table, len(rows), copied)
	}
	return copied, nil
}
