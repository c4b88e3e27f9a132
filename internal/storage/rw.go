package storage

import (
	"sort"

	"github.com/fathurwithyou/silberdb/internal/serialize"
	"github.com/fathurwithyou/silberdb/internal/types"
)

// ReadBlock reads straight from disk, bypassing the buffer pool's cached
// copy (useful for tests proving write-through fidelity).
func (m *Manager) ReadBlock(dr DataRetrieval) (*types.Rows, error) {
	data, err := readFileOrEmpty(m.fm.TablePath(dr.Table))
	if err != nil {
		return nil, err
	}
	schema, ok := m.schemas[dr.Table]
	if !ok {
		return nil, &types.SchemaError{Entity: "table", Name: dr.Table, Message: "does not exist"}
	}
	rows := serialize.DecodeRows(schema, data)
	return m.project(schema, rows, dr)
}

// ReadBuffer reads through the buffer pool, which never returns stale data
// for the invoking transaction: any prior write_buffer already updated the
// cached page in place.
func (m *Manager) ReadBuffer(dr DataRetrieval) (*types.Rows, error) {
	schema, ok := m.schemas[dr.Table]
	if !ok {
		return nil, &types.SchemaError{Entity: "table", Name: dr.Table, Message: "does not exist"}
	}

	if c, ok := m.indexableCondition(dr.Table, dr.Conditions); ok {
		rids := m.candidateRIDs(dr.Table, c)
		all, err := m.loadRows(dr.Table)
		if err != nil {
			return nil, err
		}
		sort.Slice(rids, func(i, j int) bool { return rids[i] < rids[j] })
		var candidates []types.Row
		for _, rid := range rids {
			if int(rid) < len(all) {
				candidates = append(candidates, all[rid])
			}
		}
		return m.project(schema, candidates, dr)
	}

	rows, err := m.loadRows(dr.Table)
	if err != nil {
		return nil, err
	}
	return m.project(schema, rows, dr)
}

func (m *Manager) project(schema *types.Schema, rows []types.Row, dr DataRetrieval) (*types.Rows, error) {
	var out []types.Row
	for _, row := range rows {
		if !matches(row, dr.Conditions) {
			continue
		}
		out = append(out, row)
	}
	if dr.Offset > 0 {
		if dr.Offset >= len(out) {
			out = nil
		} else {
			out = out[dr.Offset:]
		}
	}
	if dr.Limit > 0 && len(out) > dr.Limit {
		out = out[:dr.Limit]
	}
	if len(dr.Columns) > 0 {
		narrowed := make([]types.Row, len(out))
		for i, row := range out {
			nr := make(types.Row, len(dr.Columns))
			for _, c := range dr.Columns {
				nr[c] = row[c]
			}
			narrowed[i] = nr
		}
		out = narrowed
	}
	return &types.Rows{Schemas: []*types.Schema{schema}, Values: out}, nil
}

// WriteBlock performs an insert or update directly against disk (bypassing
// the buffer pool) and returns the affected row count.
func (m *Manager) WriteBlock(dw DataWrite) (int, error) {
	rows, err := m.readRowsFromDisk(dw.Table)
	if err != nil {
		return 0, err
	}
	n, newRows, err := m.applyWrite(dw, rows)
	if err != nil {
		return 0, err
	}
	if err := m.writeRowsToDisk(dw.Table, newRows); err != nil {
		return 0, err
	}
	if err := m.rebuildIndexes(dw.Table, newRows); err != nil {
		return 0, err
	}
	return n, nil
}

// WriteBuffer performs an insert or update through the buffer pool,
// marking the page dirty and updating in-memory indexes, without an
// immediate disk write (that happens on FlushBuffer).
func (m *Manager) WriteBuffer(dw DataWrite) (int, error) {
	rows, err := m.loadRows(dw.Table)
	if err != nil {
		return 0, err
	}
	n, newRows, err := m.applyWrite(dw, rows)
	if err != nil {
		return 0, err
	}
	if err := m.storeRows(dw.Table, newRows); err != nil {
		return 0, err
	}
	if err := m.rebuildIndexes(dw.Table, newRows); err != nil {
		return 0, err
	}
	return n, nil
}

func (m *Manager) applyWrite(dw DataWrite, rows []types.Row) (int, []types.Row, error) {
	schema := m.schemas[dw.Table]

	if !dw.IsUpdate {
		if err := m.checkConstraintsForInsert(schema, dw.Values, rows); err != nil {
			return 0, nil, err
		}
		return 1, append(rows, dw.Values), nil
	}

	n := 0
	for i, row := range rows {
		if !matches(row, dw.Conditions) {
			continue
		}
		merged := row.Clone()
		for k, v := range dw.Values {
			merged[k] = v
		}
		if err := m.checkConstraintsForUpdate(schema, merged, rows, i); err != nil {
			return 0, nil, err
		}
		rows[i] = merged
		n++
	}
	return n, rows, nil
}

// DeleteBlock removes rows directly against disk and returns the count
// removed.
func (m *Manager) DeleteBlock(dd DataDeletion) (int, error) {
	rows, err := m.readRowsFromDisk(dd.Table)
	if err != nil {
		return 0, err
	}
	n, remaining := deleteMatching(rows, dd.Conditions)
	if err := m.writeRowsToDisk(dd.Table, remaining); err != nil {
		return 0, err
	}
	if err := m.rebuildIndexes(dd.Table, remaining); err != nil {
		return 0, err
	}
	return n, nil
}

// DeleteBuffer removes rows through the buffer pool.
func (m *Manager) DeleteBuffer(dd DataDeletion) (int, error) {
	rows, err := m.loadRows(dd.Table)
	if err != nil {
		return 0, err
	}
	n, remaining := deleteMatching(rows, dd.Conditions)
	if err := m.storeRows(dd.Table, remaining); err != nil {
		return 0, err
	}
	if err := m.rebuildIndexes(dd.Table, remaining); err != nil {
		return 0, err
	}
	return n, nil
}

func deleteMatching(rows []types.Row, conds []Condition) (int, []types.Row) {
	n := 0
	var remaining []types.Row
	for _, row := range rows {
		if matches(row, conds) {
			n++
			continue
		}
		remaining = append(remaining, row)
	}
	return n, remaining
}

func (m *Manager) readRowsFromDisk(table string) ([]types.Row, error) {
	schema := m.schemas[table]
	data, err := readFileOrEmpty(m.fm.TablePath(table))
	if err != nil {
		return nil, err
	}
	return serialize.DecodeRows(schema, data), nil
}

func (m *Manager) writeRowsToDisk(table string, rows []types.Row) error {
	schema := m.schemas[table]
	enc, err := serialize.EncodeRows(schema, rows)
	if err != nil {
		return err
	}
	return writeFile(m.fm.TablePath(table), enc)
}
