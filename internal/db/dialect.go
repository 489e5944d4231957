package db

import "strings"

// Dialect builds the SQL a sync run needs for one database engine. Builders
// take identifiers unquoted and always emit bind placeholders for values.
type Dialect interface {
	Name() string
	QuoteIdent(ident string) string
	// Placeholder returns the n-th (1-based) bind marker.
	Placeholder(n int) string
	// MaxParams is the largest number of bind values one statement may carry.
	MaxParams() int
	// UpsertSQL inserts rows x len(columns) values and, on a key conflict,
	// overwrites every column except columns[0].
	UpsertSQL(table string, columns []string, rows int) string
	DisableConstraintsSQL() []string
	EnableConstraintsSQL() []string
	IsDuplicateKey(err error) bool
}

// QuoteQualified quotes each dot-separated part of name.
func QuoteQualified(d Dialect, name string) string {
	raw := strings.TrimSpace(name)
	if raw == "" {
		return raw
	}

	parts := strings.Split(raw, ".")
	quoted := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		quoted = append(quoted, d.QuoteIdent(part))
	}
	if len(quoted) == 0 {
		return d.QuoteIdent(raw)
	}
	return strings.Join(quoted, ".")
}

func SelectAllSQL(d Dialect, table string) string {
	return "SELECT * FROM " + QuoteQualified(d, table)
}

// InsertSQL builds a single-row INSERT naming every column.
func InsertSQL(d Dialect, table string, columns []string) string {
	return "INSERT INTO " + QuoteQualified(d, table) + " (" + columnList(d, columns) + ") VALUES " + placeholderGroups(d, 1, len(columns))
}

// UpdateByKeySQL sets every column in columns and filters on key. The key's
// placeholder comes last.
func UpdateByKeySQL(d Dialect, table string, key string, columns []string) string {
	sets := make([]string, 0, len(columns))
	for i, col := range columns {
		sets = append(sets, d.QuoteIdent(col)+" = "+d.Placeholder(i+1))
	}
	return "UPDATE " + QuoteQualified(d, table) + " SET " + strings.Join(sets, ", ") +
		" WHERE " + d.QuoteIdent(key) + " = " + d.Placeholder(len(columns)+1)
}

func CountByKeySQL(d Dialect, table string, key string) string {
	return "SELECT COUNT(*) FROM " + QuoteQualified(d, table) + " WHERE " + d.QuoteIdent(key) + " = " + d.Placeholder(1)
}

func columnList(d Dialect, columns []string) string {
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = d.QuoteIdent(col)
	}
	return strings.Join(quoted, ", ")
}

// placeholderGroups renders "(p1, p2), (p3, p4)" numbering across all rows.
func placeholderGroups(d Dialect, rows, cols int) string {
	var b strings.Builder
	n := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := 0; c < cols; c++ {
			if c > 0 {
				b.WriteString(", ")
			}
			b.WriteString(d.Placeholder(n))
			n++
		}
		b.WriteByte(')')
	}
	return b.String()
}

// containsDuplicateMessage is the last-resort check for drivers whose error
// types were lost by wrapping.
func containsDuplicateMessage(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "duplicate")
}

// RowsPerStatement caps a multi-row statement so it stays under the dialect's
// bind parameter limit.
func RowsPerStatement(d Dialect, columns int, want int) int {
	if columns <= 0 || want <= 0 {
		return 1
	}
	limit := d.MaxParams() / columns
	if limit < 1 {
		limit = 1
	}
	if want < limit {
		return want
	}
	return limit
}
