package sync

import (
	"context"
	"errors"
	"fmt"

	"DRFashion-Sync/internal/db"
)

// ConstraintScope holds foreign key enforcement off on a set of connections
// until Release. Release runs the enable statements exactly once.
type ConstraintScope struct {
	dbs      []db.Database
	sink     ProgressSink
	released bool
}

// AcquireConstraintScope disables foreign key checks on every connection in
// dbs. If one of them fails, the ones already disabled are re-enabled before
// the error is returned.
func AcquireConstraintScope(ctx context.Context, sink ProgressSink, dbs ...db.Database) (*ConstraintScope, error) {
	scope := &ConstraintScope{sink: sink}
	for _, d := range dbs {
		for _, stmt := range d.Dialect().DisableConstraintsSQL() {
			if _, err := d.ExecContext(ctx, stmt); err != nil {
				err = fmt.Errorf("disable foreign key checks on %s: %w", d.Identity(), err)
				return nil, errors.Join(err, scope.Release(ctx))
			}
		}
		scope.dbs = append(scope.dbs, d)
		sink.emit(fmt.Sprintf("已关闭外键检查：%s", d.Identity()))
	}
	return scope, nil
}

// Release re-enables foreign key checks on every held connection, newest
// first. It keeps going past failures and ignores cancellation of ctx.
func (c *ConstraintScope) Release(ctx context.Context) error {
	if c == nil || c.released {
		return nil
	}
	c.released = true
	ctx = context.WithoutCancel(ctx)

	var errs []error
	for i := len(c.dbs) - 1; i >= 0; i-- {
		d := c.dbs[i]
		ok := true
		for _, stmt := range d.Dialect().EnableConstraintsSQL() {
			if _, err := d.ExecContext(ctx, stmt); err != nil {
				errs = append(errs, fmt.Errorf("re-enable foreign key checks on %s: %w", d.Identity(), err))
				ok = false
			}
		}
		if ok {
			c.sink.emit(fmt.Sprintf("已恢复外键检查：%s", d.Identity()))
		} else {
			c.sink.emit(fmt.Sprintf("恢复外键检查失败：%s", d.Identity()))
		}
	}
	return errors.Join(errs...)
}
