package db

import (
	"math/big"
	"strings"
)

// normalizeQueryValueWithDBType turns driver []byte values into the Go type the
// target driver will bind correctly. Text-like columns become string so a
// MySQL source can feed a Postgres target without the text landing as bytea;
// binary columns keep their bytes.
func normalizeQueryValueWithDBType(v interface{}, dbType string) interface{} {
	b, ok := v.([]byte)
	if !ok {
		return v
	}
	if b == nil {
		return nil
	}

	t := strings.ToUpper(strings.TrimSpace(dbType))
	switch {
	case strings.HasPrefix(t, "BIT"):
		return bitBytesToValue(b)
	case isBinaryType(t), t == "":
		// No declared type (SQLite): the driver already returns text as
		// string, so bytes here are a blob.
		out := make([]byte, len(b))
		copy(out, b)
		return out
	}
	return string(b)
}

func isBinaryType(t string) bool {
	switch {
	case strings.Contains(t, "BLOB"), strings.Contains(t, "BINARY"):
		return true
	case t == "BYTEA", t == "IMAGE", t == "GEOMETRY":
		return true
	// SQL Server. TIMESTAMP there is rowversion; MySQL timestamps arrive as
	// time.Time because the DSN sets parseTime.
	case t == "UNIQUEIDENTIFIER", t == "ROWVERSION", t == "TIMESTAMP":
		return true
	}
	return false
}

// bitBytesToValue reads MySQL BIT(n) big-endian bytes. Values past int64 are
// returned as decimal strings.
func bitBytesToValue(b []byte) interface{} {
	n := new(big.Int).SetBytes(b)
	if n.IsInt64() {
		return n.Int64()
	}
	return n.String()
}
