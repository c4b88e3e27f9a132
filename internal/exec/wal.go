package exec

import (
	"time"

	"github.com/fathurwithyou/silberdb/internal/storage"
	"github.com/fathurwithyou/silberdb/internal/types"
)

// logChange appends one CHANGE record per row actually touched by an
// INSERT/UPDATE/DELETE; it is a no-op when the Executor was built without a
// WAL (e.g. a read-only scripting context). oldRow/newRow follow the
// spec.md §4.13 CHANGE record shape: old_value nil on insert, new_value nil
// on delete; conds is not written into the record.
func (e *Executor) logChange(txID int64, table string, conds []storage.Condition, oldRow, newRow types.Row) error {
	if e.WAL == nil {
		return nil
	}
	return e.WAL.Append(types.LogRecord{
		Type:      types.LogChange,
		TxID:      txID,
		Timestamp: time.Now().UnixNano(),
		ItemName:  table,
		OldValue:  oldRow,
		NewValue:  newRow,
	})
}
