package sync

import (
	"context"
	"errors"
	"testing"

	"DRFashion-Sync/internal/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sliceCursor serves fixed rows.
type sliceCursor struct {
	columns []db.ColumnDescriptor
	rows    [][]interface{}
	pos     int
	err     error
}

func newSliceCursor(names []string, rows ...[]interface{}) *sliceCursor {
	cols := make([]db.ColumnDescriptor, len(names))
	for i, n := range names {
		cols[i] = db.ColumnDescriptor{Name: n, Position: i + 1}
	}
	return &sliceCursor{columns: cols, rows: rows}
}

func (c *sliceCursor) Columns() []db.ColumnDescriptor { return c.columns }

func (c *sliceCursor) Next() bool {
	if c.pos >= len(c.rows) {
		return false
	}
	c.pos++
	return true
}

func (c *sliceCursor) Values() ([]interface{}, error) {
	row := c.rows[c.pos-1]
	out := make([]interface{}, len(row))
	copy(out, row)
	return out, nil
}

func (c *sliceCursor) Err() error   { return c.err }
func (c *sliceCursor) Close() error { return nil }

func TestUpsertWriter_BatchSizeAndRemainder(t *testing.T) {
	ctx := context.Background()
	target := openShopDB(t)

	var rows [][]interface{}
	for i := 1; i <= 7; i++ {
		rows = append(rows, []interface{}{int64(i), "role"})
	}
	flushes := 0
	w := NewUpsertWriter(countingBatches{Database: target, flushes: &flushes}, 3)

	stats, err := w.Write(ctx, "role", newSliceCursor([]string{"id", "name"}, rows...))
	require.NoError(t, err)
	assert.Equal(t, UpsertStats{Rows: 7, Batches: 3}, stats)
	assert.Equal(t, 3, flushes)
	assert.EqualValues(t, 7, countRows(t, target, "role"))
}

func TestUpsertWriter_OverwritesNonKeyColumns(t *testing.T) {
	ctx := context.Background()
	target := openShopDB(t)
	mustExec(t, target, `INSERT INTO "role" VALUES (1, 'Old')`)

	_, err := NewUpsertWriter(target, 0).Write(ctx, "role", newSliceCursor([]string{"id", "name"}, []interface{}{int64(1), "New"}))
	require.NoError(t, err)
	assert.Equal(t, "New", nameOf(t, target, "role", 1))
	assert.EqualValues(t, 1, countRows(t, target, "role"))
}

func TestUpsertWriter_Errors(t *testing.T) {
	ctx := context.Background()
	target := openShopDB(t)

	_, err := NewUpsertWriter(target, 10).Write(ctx, "role", newSliceCursor(nil))
	assert.True(t, errors.Is(err, ErrNoColumns))

	_, err = NewUpsertWriter(target, 10).Write(ctx, "role", newSliceCursor([]string{"id", "missing_column"}, []interface{}{int64(1), "x"}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrWrite))

	broken := newSliceCursor([]string{"id", "name"})
	broken.err = errors.New("connection reset")
	_, err = NewUpsertWriter(target, 10).Write(ctx, "role", broken)
	assert.ErrorContains(t, err, "connection reset")
}

func TestReconcileWriter_InsertUpdateAndDuplicate(t *testing.T) {
	ctx := context.Background()
	target := openShopDB(t)
	mustExec(t, target, `INSERT INTO "role" VALUES (1, 'Old')`)

	w := NewReconcileWriter(target)
	stats, err := w.Write(ctx, "role", newSliceCursor([]string{"id", "name"},
		[]interface{}{int64(1), "New"},
		[]interface{}{int64(2), "Tailor"},
	))
	require.NoError(t, err)
	assert.Equal(t, ReconcileStats{Rows: 2, Inserted: 1, Updated: 1}, stats)
	assert.Equal(t, "New", nameOf(t, target, "role", 1))

	stats, err = NewReconcileWriter(blindTarget{target}).Write(ctx, "role", newSliceCursor([]string{"id", "name"},
		[]interface{}{int64(2), "Tailor"},
	))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.AlreadySynced)
	assert.EqualValues(t, 2, countRows(t, target, "role"))
}

func TestReconcileWriter_NonDuplicateFailurePropagates(t *testing.T) {
	ctx := context.Background()
	target := openShopDB(t)

	// NOT NULL violation is a constraint error but not a duplicate key
	_, err := NewReconcileWriter(target).Write(ctx, "role", newSliceCursor([]string{"id", "name"},
		[]interface{}{int64(1), nil},
	))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrWrite))
	assert.False(t, errors.Is(err, ErrDuplicateKey))
}

func TestReconcileWriter_KeyOnlyTable(t *testing.T) {
	ctx := context.Background()
	target := openShopDB(t)
	mustExec(t, target, `CREATE TABLE tag (id INTEGER PRIMARY KEY)`)
	mustExec(t, target, `INSERT INTO tag VALUES (1)`)

	stats, err := NewReconcileWriter(target).Write(ctx, "tag", newSliceCursor([]string{"id"},
		[]interface{}{int64(1)},
		[]interface{}{int64(2)},
	))
	require.NoError(t, err)
	assert.Equal(t, ReconcileStats{Rows: 2, Inserted: 1, AlreadySynced: 1}, stats)
}
