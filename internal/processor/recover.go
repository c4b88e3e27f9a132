package processor

import (
	"github.com/fathurwithyou/silberdb/internal/storage"
	"github.com/fathurwithyou/silberdb/internal/types"
	"github.com/fathurwithyou/silberdb/internal/wal"
)

// Recover replays the write-ahead log against Storage (spec.md §4.13):
// committed transactions are redone forward, aborted/in-doubt
// transactions are undone in reverse. It is meant to run once, before the
// Dispatcher accepts its first statement. A nil WAL makes Recover a
// no-op, for a Dispatcher built without durability.
func (d *Dispatcher) Recover() ([]wal.Action, error) {
	if d.WAL == nil {
		return nil, nil
	}
	return d.WAL.Recover(wal.Criteria{}, d.redo, d.undo)
}

// redo re-applies a committed CHANGE record: NewValue nil means the
// change was a DELETE (remove the row matching OldValue's primary key),
// otherwise it was an INSERT or UPDATE (write NewValue, matching by
// OldValue's primary key when present, i.e. it was an UPDATE).
func (d *Dispatcher) redo(rec types.LogRecord) error {
	oldRow, hasOld := asRow(rec.OldValue)
	newRow, hasNew := asRow(rec.NewValue)

	switch {
	case hasNew && hasOld:
		cond, err := d.pkCondition(rec.ItemName, oldRow)
		if err != nil {
			return err
		}
		_, err = d.Storage.WriteBuffer(storage.DataWrite{Table: rec.ItemName, Values: newRow, Conditions: []storage.Condition{cond}, IsUpdate: true})
		return err
	case hasNew:
		_, err := d.Storage.WriteBuffer(storage.DataWrite{Table: rec.ItemName, Values: newRow})
		return err
	case hasOld:
		cond, err := d.pkCondition(rec.ItemName, oldRow)
		if err != nil {
			return err
		}
		_, err = d.Storage.DeleteBuffer(storage.DataDeletion{Table: rec.ItemName, Conditions: []storage.Condition{cond}})
		return err
	default:
		return nil
	}
}

// undo reverses an aborted/in-doubt CHANGE record: the inverse of redo.
func (d *Dispatcher) undo(rec types.LogRecord) error {
	oldRow, hasOld := asRow(rec.OldValue)
	newRow, hasNew := asRow(rec.NewValue)

	switch {
	case hasNew && hasOld:
		cond, err := d.pkCondition(rec.ItemName, newRow)
		if err != nil {
			return err
		}
		_, err = d.Storage.WriteBuffer(storage.DataWrite{Table: rec.ItemName, Values: oldRow, Conditions: []storage.Condition{cond}, IsUpdate: true})
		return err
	case hasNew:
		cond, err := d.pkCondition(rec.ItemName, newRow)
		if err != nil {
			return err
		}
		_, err = d.Storage.DeleteBuffer(storage.DataDeletion{Table: rec.ItemName, Conditions: []storage.Condition{cond}})
		return err
	case hasOld:
		_, err := d.Storage.WriteBuffer(storage.DataWrite{Table: rec.ItemName, Values: oldRow})
		return err
	default:
		return nil
	}
}

// pkCondition builds an equality condition on row's primary-key value, so
// redo/undo can target the one row a CHANGE record described without
// relying on full-row equality.
func (d *Dispatcher) pkCondition(table string, row types.Row) (storage.Condition, error) {
	schema, err := d.Storage.GetTableSchema(table)
	if err != nil {
		return storage.Condition{}, err
	}
	return storage.Condition{Column: schema.PrimaryKey, Op: "=", Value: row[schema.PrimaryKey]}, nil
}

// asRow normalizes a LogRecord's OldValue/NewValue: freshly appended
// records still hold a types.Row, but values read back from the JSON
// log decode as map[string]any.
func asRow(v any) (types.Row, bool) {
	switch t := v.(type) {
	case types.Row:
		return t, true
	case map[string]any:
		return types.Row(t), true
	default:
		return nil, false
	}
}
