package db

import (
	"strings"
	"testing"

	"DRFashion-Sync/internal/connection"
)

func TestMySQLDSN_EscapesPasswordAndSetsOptions(t *testing.T) {
	m := &MySQLDB{}
	cfg := connection.ConnectionConfig{
		Type:     "mysql",
		Host:     "127.0.0.1",
		Port:     3306,
		User:     "sync",
		Password: "p@ss:wo/rd",
		Database: "dr_fashion",
		Timeout:  12,
	}

	dsn := m.getDSN(cfg)
	if !strings.HasPrefix(dsn, "sync:p@ss:wo/rd@tcp(127.0.0.1:3306)/dr_fashion?") {
		t.Fatalf("dsn 前缀不正确：%s", dsn)
	}
	if !strings.Contains(dsn, "parseTime=true") {
		t.Fatalf("dsn 缺少 parseTime：%s", dsn)
	}
	if !strings.Contains(dsn, "timeout=12s") {
		t.Fatalf("dsn 未使用配置的超时：%s", dsn)
	}
	if !strings.Contains(dsn, "charset=utf8mb4") {
		t.Fatalf("dsn 缺少 charset：%s", dsn)
	}
}

func TestPostgresDSN_EscapesPassword(t *testing.T) {
	p := &PostgresDB{}
	cfg := connection.ConnectionConfig{
		Type:     "postgres",
		Host:     "127.0.0.1",
		Port:     5432,
		User:     "user",
		Password: "p@ss:wo/rd",
		Database: "db",
	}

	dsn := p.getDSN(cfg)
	if strings.Contains(dsn, cfg.Password) {
		t.Fatalf("dsn 包含原始密码：%s", dsn)
	}
	if !strings.Contains(dsn, "p%40ss%3Awo%2Frd") {
		t.Fatalf("dsn 未正确转义密码：%s", dsn)
	}
	if !strings.Contains(dsn, "sslmode=disable") {
		t.Fatalf("dsn 缺少 sslmode 参数：%s", dsn)
	}
	if !strings.Contains(dsn, "connect_timeout=30") {
		t.Fatalf("dsn 未使用默认超时：%s", dsn)
	}
}

func TestSqlServerDSN_DefaultsDatabase(t *testing.T) {
	s := &SqlServerDB{}
	cfg := connection.ConnectionConfig{
		Type:     "sqlserver",
		Host:     "10.0.0.5",
		Port:     1433,
		User:     "sa",
		Password: "p@ss word",
	}

	dsn := s.getDSN(cfg)
	if strings.Contains(dsn, cfg.Password) {
		t.Fatalf("dsn 包含原始密码：%s", dsn)
	}
	if !strings.Contains(dsn, "database=master") {
		t.Fatalf("dsn 未使用默认数据库 master：%s", dsn)
	}
	if !strings.HasPrefix(dsn, "sqlserver://") {
		t.Fatalf("dsn scheme 不正确：%s", dsn)
	}
}

func TestNewDatabase_Types(t *testing.T) {
	cases := map[string]interface{}{
		"":          &MySQLDB{},
		"mysql":     &MySQLDB{},
		"MariaDB":   &MariaDB{},
		"postgres":  &PostgresDB{},
		"sqlite":    &SQLiteDB{},
		"sqlserver": &SqlServerDB{},
	}
	for typ, want := range cases {
		got, err := NewDatabase(typ)
		if err != nil {
			t.Fatalf("类型 %q 不应报错：%v", typ, err)
		}
		if gotName, wantName := typeName(got), typeName(want); gotName != wantName {
			t.Fatalf("类型 %q 期望 %s，实际 %s", typ, wantName, gotName)
		}
	}

	if _, err := NewDatabase("oracle"); err == nil {
		t.Fatalf("不支持的类型应报错")
	}
}

func typeName(v interface{}) string {
	switch v.(type) {
	case *MariaDB:
		return "MariaDB"
	case *MySQLDB:
		return "MySQLDB"
	case *PostgresDB:
		return "PostgresDB"
	case *SQLiteDB:
		return "SQLiteDB"
	case *SqlServerDB:
		return "SqlServerDB"
	}
	return "unknown"
}
