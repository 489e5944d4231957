package sync

import (
	"context"
	"fmt"

	"DRFashion-Sync/internal/db"
)

// ReconcileStats counts the per-row decisions of one reconciliation pass.
type ReconcileStats struct {
	Rows          int
	Inserted      int
	Updated       int
	AlreadySynced int
}

// ReconcileWriter synchronizes a table row by row: a key existence check on
// the target decides between insert and update. The key is the first column.
type ReconcileWriter struct {
	target db.Database
}

func NewReconcileWriter(target db.Database) *ReconcileWriter {
	return &ReconcileWriter{target: target}
}

func (w *ReconcileWriter) Write(ctx context.Context, table string, cursor db.RowCursor) (ReconcileStats, error) {
	var stats ReconcileStats

	columns := db.ColumnNames(cursor.Columns())
	if len(columns) == 0 {
		return stats, fmt.Errorf("%w: %s", ErrNoColumns, table)
	}

	dialect := w.target.Dialect()
	key := columns[0]
	countSQL := db.CountByKeySQL(dialect, table, key)
	insertSQL := db.InsertSQL(dialect, table, columns)
	updateSQL := ""
	if len(columns) > 1 {
		updateSQL = db.UpdateByKeySQL(dialect, table, key, columns[1:])
	}

	for cursor.Next() {
		values, err := cursor.Values()
		if err != nil {
			return stats, fmt.Errorf("read %s: %w", table, err)
		}
		if len(values) != len(columns) {
			return stats, fmt.Errorf("read %s: row has %d values for %d columns", table, len(values), len(columns))
		}
		stats.Rows++
		keyValue := values[0]

		n, err := w.target.QueryInt(ctx, countSQL, keyValue)
		if err != nil {
			return stats, fmt.Errorf("%w: check %s %s=%v: %w", ErrWrite, table, key, keyValue, err)
		}

		if n == 0 {
			if _, err := w.target.ExecContext(ctx, insertSQL, values...); err != nil {
				if dialect.IsDuplicateKey(err) {
					stats.AlreadySynced++
					continue
				}
				return stats, fmt.Errorf("%w: insert into %s %s=%v: %w", ErrWrite, table, key, keyValue, err)
			}
			stats.Inserted++
			continue
		}

		if updateSQL == "" {
			// Key-only table: the row already exists, nothing to overwrite.
			stats.AlreadySynced++
			continue
		}
		args := make([]interface{}, 0, len(values))
		args = append(args, values[1:]...)
		args = append(args, keyValue)
		if _, err := w.target.ExecContext(ctx, updateSQL, args...); err != nil {
			return stats, writeError(dialect, fmt.Sprintf("update %s %s=%v", table, key, keyValue), err)
		}
		stats.Updated++
	}
	if err := cursor.Err(); err != nil {
		return stats, fmt.Errorf("read %s: %w", table, err)
	}
	return stats, nil
}
