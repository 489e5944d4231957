package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var errNotOpen = errors.New("connection not open")

// sqlSession is the database/sql plumbing shared by every driver. The pool is
// only used to obtain one pinned *sql.Conn.
type sqlSession struct {
	pool        *sql.DB
	conn        *sql.Conn
	dialect     Dialect
	identity    string
	pingTimeout time.Duration
}

func (s *sqlSession) open(driverName, dsn string, connectTimeout time.Duration) error {
	pool, err := sql.Open(driverName, dsn)
	if err != nil {
		return fmt.Errorf("打开数据库连接失败：%w", err)
	}

	ctx, cancel := contextWithTimeout(connectTimeout)
	defer cancel()
	conn, err := pool.Conn(ctx)
	if err != nil {
		_ = pool.Close()
		return fmt.Errorf("连接建立后验证失败：%w", err)
	}

	s.pool = pool
	s.conn = conn
	s.pingTimeout = connectTimeout

	// Force verification
	if err := s.Ping(); err != nil {
		_ = s.Close()
		return fmt.Errorf("连接建立后验证失败：%w", err)
	}
	return nil
}

func (s *sqlSession) Close() error {
	var errs []error
	if s.conn != nil {
		errs = append(errs, s.conn.Close())
		s.conn = nil
	}
	if s.pool != nil {
		errs = append(errs, s.pool.Close())
		s.pool = nil
	}
	return errors.Join(errs...)
}

func (s *sqlSession) Ping() error {
	if s.conn == nil {
		return errNotOpen
	}
	ctx, cancel := contextWithTimeout(s.pingTimeout)
	defer cancel()
	return s.conn.PingContext(ctx)
}

func (s *sqlSession) Identity() string {
	return s.identity
}

func (s *sqlSession) Dialect() Dialect {
	return s.dialect
}

func (s *sqlSession) OpenCursor(ctx context.Context, table string) (RowCursor, error) {
	if s.conn == nil {
		return nil, errNotOpen
	}
	rows, err := s.conn.QueryContext(ctx, SelectAllSQL(s.dialect, table))
	if err != nil {
		return nil, err
	}
	cursor, err := newRowCursor(rows)
	if err != nil {
		_ = rows.Close()
		return nil, err
	}
	return cursor, nil
}

func (s *sqlSession) ExecContext(ctx context.Context, query string, args ...interface{}) (int64, error) {
	if s.conn == nil {
		return 0, errNotOpen
	}
	res, err := s.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *sqlSession) QueryInt(ctx context.Context, query string, args ...interface{}) (int64, error) {
	if s.conn == nil {
		return 0, errNotOpen
	}
	var n int64
	if err := s.conn.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *sqlSession) ExecBatch(ctx context.Context, stmts []Statement) error {
	if s.conn == nil {
		return errNotOpen
	}
	if len(stmts) == 0 {
		return nil
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt.SQL, stmt.Args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}
