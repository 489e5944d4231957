package db

import (
	"context"
	"fmt"
	"strings"

	"DRFashion-Sync/internal/connection"
)

// Database is one live session against a relational store. Implementations
// pin a single physical connection so session settings (foreign key checks)
// stay in effect for every statement of a sync run.
type Database interface {
	Connect(config connection.ConnectionConfig) error
	Close() error
	Ping() error
	// Identity names the database without credentials, e.g. mysql://sync@db:3306/shop.
	Identity() string
	Dialect() Dialect
	// OpenCursor streams every row of table in the store's natural order.
	OpenCursor(ctx context.Context, table string) (RowCursor, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (int64, error)
	// QueryInt runs a single-row, single-column query and returns it as int64.
	QueryInt(ctx context.Context, query string, args ...interface{}) (int64, error)
	// ExecBatch runs stmts inside one transaction.
	ExecBatch(ctx context.Context, stmts []Statement) error
}

// Statement is a parameterized SQL statement with positional arguments.
type Statement struct {
	SQL  string
	Args []interface{}
}

// Factory
func NewDatabase(dbType string) (Database, error) {
	switch strings.ToLower(strings.TrimSpace(dbType)) {
	case "mysql", "":
		// Default to MySQL: both production databases run it
		return &MySQLDB{}, nil
	case "mariadb":
		return &MariaDB{}, nil
	case "postgres", "postgresql":
		return &PostgresDB{}, nil
	case "sqlite", "sqlite3":
		return &SQLiteDB{}, nil
	case "sqlserver", "mssql":
		return &SqlServerDB{}, nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}
}

func identityOf(config connection.ConnectionConfig, scheme string) string {
	dbName := strings.TrimSpace(config.Database)
	return fmt.Sprintf("%s://%s@%s:%d/%s", scheme, config.User, config.Host, config.Port, dbName)
}
