package db

import (
	"database/sql"
	"strings"
)

// ColumnDescriptor describes one column of a result set as discovered at read time.
type ColumnDescriptor struct {
	Name         string
	Position     int // 1-based
	DatabaseType string
}

// RowCursor gives sequential access to the rows of one table.
type RowCursor interface {
	Columns() []ColumnDescriptor
	Next() bool
	// Values returns a fresh slice for the current row, aligned with Columns.
	Values() ([]interface{}, error)
	Err() error
	Close() error
}

// ColumnNames returns the names of cols in order.
func ColumnNames(cols []ColumnDescriptor) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

type sqlRowCursor struct {
	rows    *sql.Rows
	columns []ColumnDescriptor
}

func newRowCursor(rows *sql.Rows) (*sqlRowCursor, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	columns := make([]ColumnDescriptor, len(types))
	for i, ct := range types {
		columns[i] = ColumnDescriptor{
			Name:         ct.Name(),
			Position:     i + 1,
			DatabaseType: strings.ToUpper(strings.TrimSpace(ct.DatabaseTypeName())),
		}
	}
	return &sqlRowCursor{rows: rows, columns: columns}, nil
}

func (c *sqlRowCursor) Columns() []ColumnDescriptor {
	out := make([]ColumnDescriptor, len(c.columns))
	copy(out, c.columns)
	return out
}

func (c *sqlRowCursor) Next() bool {
	return c.rows.Next()
}

func (c *sqlRowCursor) Values() ([]interface{}, error) {
	values := make([]interface{}, len(c.columns))
	valuePtrs := make([]interface{}, len(c.columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}
	if err := c.rows.Scan(valuePtrs...); err != nil {
		return nil, err
	}
	for i, col := range c.columns {
		values[i] = normalizeQueryValueWithDBType(values[i], col.DatabaseType)
	}
	return values, nil
}

func (c *sqlRowCursor) Err() error {
	return c.rows.Err()
}

func (c *sqlRowCursor) Close() error {
	return c.rows.Close()
}
