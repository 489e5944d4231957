package db

import (
	"errors"
	"fmt"
	"strings"

	"DRFashion-Sync/internal/connection"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteDB backs offline installs that keep the local copy in a single file.
type SQLiteDB struct {
	sqlSession
}

func (s *SQLiteDB) Connect(config connection.ConnectionConfig) error {
	dsn := strings.TrimSpace(config.Host)
	if dsn == "" {
		return fmt.Errorf("sqlite: database file path required")
	}
	s.dialect = sqliteDialect{}
	s.identity = "sqlite://" + dsn

	if err := s.open("sqlite", dsn, getConnectTimeout(config)); err != nil {
		return err
	}

	// SQLite ships with enforcement off; match the server engines.
	ctx, cancel := contextWithTimeout(s.pingTimeout)
	defer cancel()
	if _, err := s.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = s.Close()
		return fmt.Errorf("启用外键检查失败：%w", err)
	}
	return nil
}

type sqliteDialect struct {
	postgresDialect
}

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) Placeholder(int) string { return "?" }

// SQLITE_MAX_VARIABLE_NUMBER default since 3.32.
func (sqliteDialect) MaxParams() int { return 32766 }

func (d sqliteDialect) UpsertSQL(table string, columns []string, rows int) string {
	return onConflictUpsert(d, table, columns, rows, "excluded")
}

// PRAGMA foreign_keys is a no-op inside a transaction; callers toggle it
// between batches only.
func (sqliteDialect) DisableConstraintsSQL() []string {
	return []string{"PRAGMA foreign_keys = OFF"}
}

func (sqliteDialect) EnableConstraintsSQL() []string {
	return []string{"PRAGMA foreign_keys = ON"}
}

func (sqliteDialect) IsDuplicateKey(err error) bool {
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
		if liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
			msg := strings.ToUpper(liteErr.Error())
			return strings.Contains(msg, "UNIQUE") || strings.Contains(msg, "PRIMARY KEY")
		}
		return false
	}
	return containsDuplicateMessage(err)
}
