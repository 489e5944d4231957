package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"DRFashion-Sync/internal/connection"
	"DRFashion-Sync/internal/db"
	"DRFashion-Sync/internal/lock"
	"DRFashion-Sync/internal/logger"
)

const (
	StrategyUpsert    = "upsert"
	StrategyReconcile = "reconcile"
)

// ConnectionProvider hands out live sessions. The engine closes what it gets.
type ConnectionProvider interface {
	GetLocal(ctx context.Context) (db.Database, error)
	GetOnline(ctx context.Context) (db.Database, error)
	// GetPreferred tries online first and falls back to local.
	GetPreferred(ctx context.Context) (db.Database, error)
}

// RunGuard keeps two runs off the same database pair.
type RunGuard interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// SyncOutcome is the result of one table in one direction.
type SyncOutcome struct {
	Table             string    `json:"table"`
	Direction         Direction `json:"direction"`
	RowsProcessed     int       `json:"rowsProcessed"`
	RowsInserted      int       `json:"rowsInserted"`
	RowsUpdated       int       `json:"rowsUpdated"`
	RowsAlreadySynced int       `json:"rowsAlreadySynced"`
	Batches           int       `json:"batches"`
	Succeeded         bool      `json:"succeeded"`
	Error             string    `json:"error,omitempty"`
}

// SyncResult aggregates the outcomes of one run. Outcomes stop at the first
// failed table.
type SyncResult struct {
	Strategy   string        `json:"strategy"`
	Success    bool          `json:"success"`
	Message    string        `json:"message"`
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt"`
	Outcomes   []SyncOutcome `json:"outcomes"`
}

// RowsProcessed sums RowsProcessed over all outcomes.
func (r SyncResult) RowsProcessed() int {
	total := 0
	for _, o := range r.Outcomes {
		total += o.RowsProcessed
	}
	return total
}

type SyncEngine struct {
	provider  ConnectionProvider
	registry  *TableRegistry
	sink      ProgressSink
	batchSize int
	guard     RunGuard
}

type Option func(*SyncEngine)

func WithRegistry(r *TableRegistry) Option {
	return func(s *SyncEngine) {
		if r != nil {
			s.registry = r
		}
	}
}

func WithSink(sink ProgressSink) Option {
	return func(s *SyncEngine) { s.sink = sink }
}

func WithBatchSize(n int) Option {
	return func(s *SyncEngine) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

func WithRunGuard(g RunGuard) Option {
	return func(s *SyncEngine) {
		if g != nil {
			s.guard = g
		}
	}
}

func NewSyncEngine(provider ConnectionProvider, opts ...Option) *SyncEngine {
	s := &SyncEngine{
		provider:  provider,
		registry:  DefaultTableRegistry(),
		batchSize: connection.DefaultBatchSize,
		guard:     lock.NewMemoryGuard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ResolveConnections opens the local and the online database. If the online
// one fails the local one is closed again.
func (s *SyncEngine) ResolveConnections(ctx context.Context) (local, online db.Database, err error) {
	s.report("info", "正在连接本地数据库...")
	local, err = s.provider.GetLocal(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: local: %w", ErrConnection, err)
	}

	s.report("info", "正在连接线上数据库...")
	online, err = s.provider.GetOnline(ctx)
	if err != nil {
		_ = local.Close()
		return nil, nil, fmt.Errorf("%w: online: %w", ErrConnection, err)
	}
	return local, online, nil
}

// ResolvePreferred opens a single database, online first, local as fallback.
func (s *SyncEngine) ResolvePreferred(ctx context.Context) (db.Database, error) {
	s.report("info", "正在连接数据库（优先线上）...")
	d, err := s.provider.GetPreferred(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}
	s.report("info", "已连接：%s", d.Identity())
	return d, nil
}

// SyncOneDirection bulk-upserts every table from the source side of dir into
// the other side, with foreign key checks off on the target for the whole run.
func (s *SyncEngine) SyncOneDirection(ctx context.Context, dir Direction) (SyncResult, error) {
	return s.run(ctx, StrategyUpsert, func(ctx context.Context, local, online db.Database, result *SyncResult) error {
		return s.upsertAll(ctx, dir, local, online, result)
	})
}

// SyncBothDirections runs a bulk Local → Online pass and then a bulk
// Online → Local pass over the same connections.
func (s *SyncEngine) SyncBothDirections(ctx context.Context) (SyncResult, error) {
	return s.run(ctx, StrategyUpsert, func(ctx context.Context, local, online db.Database, result *SyncResult) error {
		if err := s.upsertAll(ctx, LocalToOnline, local, online, result); err != nil {
			return err
		}
		return s.upsertAll(ctx, OnlineToLocal, local, online, result)
	})
}

// SyncBothDirectionsReconciled reconciles each table Local → Online and then
// Online → Local before moving to the next table. Foreign key checks are off
// on both connections for the whole run.
func (s *SyncEngine) SyncBothDirectionsReconciled(ctx context.Context) (SyncResult, error) {
	return s.run(ctx, StrategyReconcile, func(ctx context.Context, local, online db.Database, result *SyncResult) (err error) {
		scope, err := AcquireConstraintScope(ctx, s.sink, local, online)
		if err != nil {
			return err
		}
		defer func() {
			err = errors.Join(err, scope.Release(ctx))
		}()

		tables := s.registry.Tables()
		for i, spec := range tables {
			for _, dir := range []Direction{LocalToOnline, OnlineToLocal} {
				if err := ctx.Err(); err != nil {
					return err
				}
				source, target := pick(dir, local, online)
				s.report("info", "[%d/%d] 正在核对表 %s（%s）", i+1, len(tables), spec.Name, dir)
				outcome, err := s.reconcileTable(ctx, spec.Name, dir, source, target)
				result.Outcomes = append(result.Outcomes, outcome)
				if err != nil {
					return &TableError{Table: spec.Name, Direction: dir, Err: err}
				}
				s.report("info", "表 %s（%s）核对完成：读取 %d 行，插入 %d 行，更新 %d 行，已同步 %d 行",
					spec.Name, dir, outcome.RowsProcessed, outcome.RowsInserted, outcome.RowsUpdated, outcome.RowsAlreadySynced)
			}
		}
		return nil
	})
}

type runFunc func(ctx context.Context, local, online db.Database, result *SyncResult) error

// run owns the connection pair and the run guard for one strategy.
func (s *SyncEngine) run(ctx context.Context, strategy string, body runFunc) (SyncResult, error) {
	result := SyncResult{Strategy: strategy, StartedAt: time.Now(), Outcomes: []SyncOutcome{}}

	finish := func(err error) (SyncResult, error) {
		result.FinishedAt = time.Now()
		elapsed := result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond)
		if err != nil {
			result.Success = false
			result.Message = err.Error()
			logger.Error(err, "同步失败：策略=%s", strategy)
			s.report("error", "同步失败（%s）：%v", strategy, err)
			return result, err
		}
		result.Success = true
		result.Message = fmt.Sprintf("同步完成：%d 个表，共 %d 行，耗时 %s", len(result.Outcomes), result.RowsProcessed(), elapsed)
		s.report("info", "%s", result.Message)
		return result, nil
	}

	local, online, err := s.ResolveConnections(ctx)
	if err != nil {
		return finish(err)
	}
	defer closeQuietly(local)
	defer closeQuietly(online)

	release, err := s.guard.Acquire(ctx, pairKey(local, online))
	if err != nil {
		if errors.Is(err, lock.ErrHeld) {
			err = fmt.Errorf("%w: %w", ErrRunInProgress, err)
		}
		return finish(err)
	}
	defer release()

	s.report("info", "开始同步：策略=%s 本地=%s 线上=%s 表数量=%d", strategy, local.Identity(), online.Identity(), s.registry.Len())
	return finish(body(ctx, local, online, &result))
}

// upsertAll runs the bulk strategy over every table in one direction.
func (s *SyncEngine) upsertAll(ctx context.Context, dir Direction, local, online db.Database, result *SyncResult) (err error) {
	source, target := pick(dir, local, online)
	s.report("info", "开始批量同步：%s", dir)

	scope, err := AcquireConstraintScope(ctx, s.sink, target)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, scope.Release(ctx))
	}()

	tables := s.registry.Tables()
	for i, spec := range tables {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.report("info", "[%d/%d] 正在同步表 %s（%s）", i+1, len(tables), spec.Name, dir)
		outcome, err := s.upsertTable(ctx, spec.Name, dir, source, target)
		result.Outcomes = append(result.Outcomes, outcome)
		if err != nil {
			return &TableError{Table: spec.Name, Direction: dir, Err: err}
		}
		s.report("info", "表 %s 同步完成：%d 行，%d 批", spec.Name, outcome.RowsProcessed, outcome.Batches)
	}
	return nil
}

func (s *SyncEngine) upsertTable(ctx context.Context, table string, dir Direction, source, target db.Database) (SyncOutcome, error) {
	outcome := SyncOutcome{Table: table, Direction: dir}

	cursor, err := source.OpenCursor(ctx, table)
	if err != nil {
		outcome.Error = err.Error()
		return outcome, fmt.Errorf("read %s: %w", table, err)
	}
	defer cursor.Close()

	stats, err := NewUpsertWriter(target, s.batchSize).Write(ctx, table, cursor)
	outcome.RowsProcessed = stats.Rows
	outcome.Batches = stats.Batches
	if err != nil {
		outcome.Error = err.Error()
		return outcome, err
	}
	outcome.Succeeded = true
	return outcome, nil
}

func (s *SyncEngine) reconcileTable(ctx context.Context, table string, dir Direction, source, target db.Database) (SyncOutcome, error) {
	outcome := SyncOutcome{Table: table, Direction: dir}

	cursor, err := source.OpenCursor(ctx, table)
	if err != nil {
		outcome.Error = err.Error()
		return outcome, fmt.Errorf("read %s: %w", table, err)
	}
	defer cursor.Close()

	stats, err := NewReconcileWriter(target).Write(ctx, table, cursor)
	outcome.RowsProcessed = stats.Rows
	outcome.RowsInserted = stats.Inserted
	outcome.RowsUpdated = stats.Updated
	outcome.RowsAlreadySynced = stats.AlreadySynced
	if err != nil {
		outcome.Error = err.Error()
		return outcome, err
	}
	outcome.Succeeded = true
	return outcome, nil
}

// pick returns (source, target) for dir.
func pick(dir Direction, local, online db.Database) (db.Database, db.Database) {
	if dir == OnlineToLocal {
		return online, local
	}
	return local, online
}

// pairKey names the database pair independent of which side is which.
func pairKey(a, b db.Database) string {
	ids := []string{a.Identity(), b.Identity()}
	sort.Strings(ids)
	return strings.Join(ids, "|")
}

func closeQuietly(d db.Database) {
	if err := d.Close(); err != nil {
		logger.Warnf("关闭数据库连接失败：%s，原因：%v", d.Identity(), err)
	}
}
