package sync

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"DRFashion-Sync/internal/connection"
	"DRFashion-Sync/internal/db"
	"DRFashion-Sync/internal/logger"

	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.SetOutput(io.Discard)
	os.Exit(m.Run())
}

var shopSchema = []string{
	`CREATE TABLE "role" (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`,
	`CREATE TABLE "type" (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`,
	`CREATE TABLE "user" (id INTEGER PRIMARY KEY, username TEXT NOT NULL, role_id INTEGER REFERENCES "role"(id))`,
	`CREATE TABLE "employee" (id INTEGER PRIMARY KEY, name TEXT NOT NULL, role_id INTEGER REFERENCES "role"(id))`,
	`CREATE TABLE "stock" (id INTEGER PRIMARY KEY, name TEXT, type_id INTEGER REFERENCES "type"(id), qty INTEGER)`,
	`CREATE TABLE "accesories" (id INTEGER PRIMARY KEY, name TEXT, type_id INTEGER REFERENCES "type"(id))`,
	`CREATE TABLE "attendence" (id INTEGER PRIMARY KEY, employee_id INTEGER REFERENCES "employee"(id), day TEXT)`,
	`CREATE TABLE "monthly_payment" (id INTEGER PRIMARY KEY, role_id INTEGER REFERENCES "role"(id), amount REAL)`,
	`CREATE TABLE "per_day_salary" (id INTEGER PRIMARY KEY, amount REAL)`,
}

// openShopDB returns an in-memory SQLite database with the shop schema.
// Close is a no-op so the test can inspect the database after a run.
func openShopDB(t *testing.T) db.Database {
	t.Helper()
	d, err := db.NewDatabase("sqlite")
	require.NoError(t, err)
	require.NoError(t, d.Connect(connection.ConnectionConfig{Type: "sqlite", Host: ":memory:"}))
	t.Cleanup(func() { _ = d.Close() })

	for _, ddl := range shopSchema {
		mustExec(t, d, ddl)
	}
	return keepOpen{d}
}

type keepOpen struct {
	db.Database
}

func (keepOpen) Close() error { return nil }

func mustExec(t *testing.T, d db.Database, query string, args ...interface{}) {
	t.Helper()
	_, err := d.ExecContext(context.Background(), query, args...)
	require.NoError(t, err, query)
}

func countRows(t *testing.T, d db.Database, table string) int64 {
	t.Helper()
	n, err := d.QueryInt(context.Background(), "SELECT COUNT(*) FROM "+db.QuoteQualified(d.Dialect(), table))
	require.NoError(t, err)
	return n
}

func nameOf(t *testing.T, d db.Database, table string, id int) string {
	t.Helper()
	cursor, err := d.OpenCursor(context.Background(), table)
	require.NoError(t, err)
	defer cursor.Close()
	for cursor.Next() {
		vals, err := cursor.Values()
		require.NoError(t, err)
		if vals[0] == int64(id) {
			s, _ := vals[1].(string)
			return s
		}
	}
	require.NoError(t, cursor.Err())
	return ""
}

func dumpTable(t *testing.T, d db.Database, table string) [][]interface{} {
	t.Helper()
	cursor, err := d.OpenCursor(context.Background(), table)
	require.NoError(t, err)
	defer cursor.Close()
	var rows [][]interface{}
	for cursor.Next() {
		vals, err := cursor.Values()
		require.NoError(t, err)
		rows = append(rows, vals)
	}
	require.NoError(t, cursor.Err())
	return rows
}

func foreignKeysOn(t *testing.T, d db.Database) bool {
	t.Helper()
	n, err := d.QueryInt(context.Background(), "PRAGMA foreign_keys")
	require.NoError(t, err)
	return n == 1
}

// seedShop fills every table with a few rows that satisfy the foreign keys.
func seedShop(t *testing.T, d db.Database) {
	t.Helper()
	mustExec(t, d, `INSERT INTO "role" VALUES (1, 'Cashier'), (2, 'Tailor')`)
	mustExec(t, d, `INSERT INTO "type" VALUES (1, 'Saree'), (2, 'Button')`)
	mustExec(t, d, `INSERT INTO "user" VALUES (1, 'admin', 1)`)
	mustExec(t, d, `INSERT INTO "employee" VALUES (1, 'Nimal', 2), (2, 'Kamala', 1)`)
	mustExec(t, d, `INSERT INTO "stock" VALUES (1, 'Silk saree', 1, 4)`)
	mustExec(t, d, `INSERT INTO "accesories" VALUES (1, 'Brass button', 2)`)
	mustExec(t, d, `INSERT INTO "attendence" VALUES (1, 1, '2024-03-01'), (2, 2, '2024-03-01')`)
	mustExec(t, d, `INSERT INTO "monthly_payment" VALUES (1, 2, 45000.5)`)
	mustExec(t, d, `INSERT INTO "per_day_salary" VALUES (1, 1500)`)
}

type stubProvider struct {
	local, online       db.Database
	localErr, onlineErr error
}

func (p *stubProvider) GetLocal(context.Context) (db.Database, error) {
	if p.localErr != nil {
		return nil, p.localErr
	}
	return p.local, nil
}

func (p *stubProvider) GetOnline(context.Context) (db.Database, error) {
	if p.onlineErr != nil {
		return nil, p.onlineErr
	}
	return p.online, nil
}

func (p *stubProvider) GetPreferred(ctx context.Context) (db.Database, error) {
	if d, err := p.GetOnline(ctx); err == nil {
		return d, nil
	}
	return p.GetLocal(ctx)
}

var errInjected = errors.New("injected write failure")

// failingTable fails every write that names marker.
type failingTable struct {
	db.Database
	marker string
}

func (f failingTable) ExecContext(ctx context.Context, query string, args ...interface{}) (int64, error) {
	if strings.Contains(query, f.marker) {
		return 0, errInjected
	}
	return f.Database.ExecContext(ctx, query, args...)
}

func (f failingTable) ExecBatch(ctx context.Context, stmts []db.Statement) error {
	for _, stmt := range stmts {
		if strings.Contains(stmt.SQL, f.marker) {
			return errInjected
		}
	}
	return f.Database.ExecBatch(ctx, stmts)
}

// countingBatches records how many flushes reach the target.
type countingBatches struct {
	db.Database
	flushes *int
}

func (c countingBatches) ExecBatch(ctx context.Context, stmts []db.Statement) error {
	*c.flushes++
	return c.Database.ExecBatch(ctx, stmts)
}

// blindTarget reports every key as missing so inserts hit the unique key.
type blindTarget struct {
	db.Database
}

func (b blindTarget) QueryInt(ctx context.Context, query string, args ...interface{}) (int64, error) {
	if strings.HasPrefix(query, "SELECT COUNT(*)") {
		return 0, nil
	}
	return b.Database.QueryInt(ctx, query, args...)
}

// closeTracker records Close calls.
type closeTracker struct {
	db.Database
	closed *bool
}

func (c closeTracker) Close() error {
	*c.closed = true
	return nil
}

func collectSink(msgs *[]string) ProgressSink {
	return func(m string) { *msgs = append(*msgs, m) }
}

func containsMessage(msgs []string, part string) bool {
	for _, m := range msgs {
		if strings.Contains(m, part) {
			return true
		}
	}
	return false
}
