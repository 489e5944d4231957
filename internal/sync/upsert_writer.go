package sync

import (
	"context"
	"fmt"

	"DRFashion-Sync/internal/connection"
	"DRFashion-Sync/internal/db"
)

// UpsertStats counts what one bulk pass over a table did.
type UpsertStats struct {
	Rows    int
	Batches int
}

// UpsertWriter copies a whole table into target, overwriting rows whose key
// already exists. It never deletes.
type UpsertWriter struct {
	target    db.Database
	batchSize int
}

func NewUpsertWriter(target db.Database, batchSize int) *UpsertWriter {
	if batchSize <= 0 {
		batchSize = connection.DefaultBatchSize
	}
	return &UpsertWriter{target: target, batchSize: batchSize}
}

// Write drains cursor into table. Rows are flushed every batchSize rows and
// once more for the remainder; each flush is one transaction on the target.
func (w *UpsertWriter) Write(ctx context.Context, table string, cursor db.RowCursor) (UpsertStats, error) {
	var stats UpsertStats

	columns := db.ColumnNames(cursor.Columns())
	if len(columns) == 0 {
		return stats, fmt.Errorf("%w: %s", ErrNoColumns, table)
	}

	dialect := w.target.Dialect()
	perStmt := db.RowsPerStatement(dialect, len(columns), w.batchSize)
	statements := make(map[int]string, 2)
	sqlFor := func(rows int) string {
		if q, ok := statements[rows]; ok {
			return q
		}
		q := dialect.UpsertSQL(table, columns, rows)
		statements[rows] = q
		return q
	}

	pending := make([][]interface{}, 0, w.batchSize)
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		stmts := make([]db.Statement, 0, len(pending)/perStmt+1)
		for start := 0; start < len(pending); start += perStmt {
			end := start + perStmt
			if end > len(pending) {
				end = len(pending)
			}
			args := make([]interface{}, 0, (end-start)*len(columns))
			for _, row := range pending[start:end] {
				args = append(args, row...)
			}
			stmts = append(stmts, db.Statement{SQL: sqlFor(end - start), Args: args})
		}
		if err := w.target.ExecBatch(ctx, stmts); err != nil {
			return writeError(dialect, fmt.Sprintf("upsert %d rows into %s", len(pending), table), err)
		}
		stats.Rows += len(pending)
		stats.Batches++
		pending = pending[:0]
		return nil
	}

	for cursor.Next() {
		values, err := cursor.Values()
		if err != nil {
			return stats, fmt.Errorf("read %s: %w", table, err)
		}
		if len(values) != len(columns) {
			return stats, fmt.Errorf("read %s: row has %d values for %d columns", table, len(values), len(columns))
		}
		pending = append(pending, values)
		if len(pending) >= w.batchSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}
	if err := cursor.Err(); err != nil {
		return stats, fmt.Errorf("read %s: %w", table, err)
	}
	if err := flush(); err != nil {
		return stats, err
	}
	return stats, nil
}
