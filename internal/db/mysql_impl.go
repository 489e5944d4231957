package db

import (
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"DRFashion-Sync/internal/connection"
	"DRFashion-Sync/internal/logger"
	"DRFashion-Sync/internal/ssh"

	"github.com/go-sql-driver/mysql"
)

const (
	mysqlErrDupEntry        = 1062
	mysqlErrDupEntryKeyName = 1586
)

type MySQLDB struct {
	sqlSession
}

// MariaDB speaks the MySQL protocol and dialect.
type MariaDB struct {
	MySQLDB
}

func (m *MySQLDB) getDSN(config connection.ConnectionConfig) string {
	cfg := mysql.NewConfig()
	cfg.User = config.User
	cfg.Passwd = config.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(config.Host, strconv.Itoa(config.Port))
	cfg.DBName = config.Database
	cfg.ParseTime = true
	cfg.Loc = time.Local
	cfg.Timeout = getConnectTimeout(config)
	cfg.Params = map[string]string{"charset": "utf8mb4"}

	if config.UseSSH {
		netName, err := ssh.RegisterSSHNetwork(config.SSH)
		if err == nil {
			cfg.Net = netName
		} else {
			logger.Warnf("注册 SSH 网络失败，将尝试直连：地址=%s:%d 用户=%s，原因：%v", config.Host, config.Port, config.User, err)
		}
	}

	return cfg.FormatDSN()
}

func (m *MySQLDB) Connect(config connection.ConnectionConfig) error {
	m.dialect = mysqlDialect{}
	m.identity = identityOf(config, "mysql")
	return m.open("mysql", m.getDSN(config), getConnectTimeout(config))
}

func (m *MariaDB) Connect(config connection.ConnectionConfig) error {
	m.dialect = mysqlDialect{}
	m.identity = identityOf(config, "mariadb")
	return m.open("mysql", m.getDSN(config), getConnectTimeout(config))
}

type mysqlDialect struct{}

func (mysqlDialect) Name() string { return "mysql" }

func (mysqlDialect) QuoteIdent(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

func (mysqlDialect) Placeholder(int) string { return "?" }

func (mysqlDialect) MaxParams() int { return 65535 }

func (d mysqlDialect) UpsertSQL(table string, columns []string, rows int) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(QuoteQualified(d, table))
	b.WriteString(" (")
	b.WriteString(columnList(d, columns))
	b.WriteString(") VALUES ")
	b.WriteString(placeholderGroups(d, rows, len(columns)))
	b.WriteString(" ON DUPLICATE KEY UPDATE ")

	if len(columns) == 1 {
		key := d.QuoteIdent(columns[0])
		b.WriteString(key + " = " + key)
		return b.String()
	}
	for i, col := range columns[1:] {
		if i > 0 {
			b.WriteString(", ")
		}
		q := d.QuoteIdent(col)
		b.WriteString(q + " = VALUES(" + q + ")")
	}
	return b.String()
}

func (mysqlDialect) DisableConstraintsSQL() []string {
	return []string{"SET FOREIGN_KEY_CHECKS=0"}
}

func (mysqlDialect) EnableConstraintsSQL() []string {
	return []string{"SET FOREIGN_KEY_CHECKS=1"}
}

func (mysqlDialect) IsDuplicateKey(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlErrDupEntry || myErr.Number == mysqlErrDupEntryKeyName
	}
	return containsDuplicateMessage(err)
}
