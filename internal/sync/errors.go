package sync

import (
	"errors"
	"fmt"

	"DRFashion-Sync/internal/db"
)

var (
	ErrConnection    = errors.New("database connection failed")
	ErrWrite         = errors.New("write failed")
	ErrDuplicateKey  = errors.New("duplicate key")
	ErrNoColumns     = errors.New("source table has no columns")
	ErrRunInProgress = errors.New("another sync run holds this database pair")
)

// TableError reports which table and direction a run stopped on.
type TableError struct {
	Table     string
	Direction Direction
	Err       error
}

func (e *TableError) Error() string {
	return fmt.Sprintf("table %s (%s): %v", e.Table, e.Direction, e.Err)
}

func (e *TableError) Unwrap() error {
	return e.Err
}

// writeError tags a store failure as ErrWrite, and also as ErrDuplicateKey
// when the target reported a uniqueness violation.
func writeError(d db.Dialect, op string, err error) error {
	if d.IsDuplicateKey(err) {
		return fmt.Errorf("%w: %s: %w: %w", ErrWrite, op, ErrDuplicateKey, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrWrite, op, err)
}
