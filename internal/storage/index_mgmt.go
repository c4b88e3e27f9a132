package storage

import (
	"os"

	"github.com/fathurwithyou/silberdb/internal/index"
	"github.com/fathurwithyou/silberdb/internal/types"
)

// SetIndex builds a new index on (table, column) from the table's current
// rows. Fails if an index already exists there.
func (m *Manager) SetIndex(table, column string, kind indexKind) error {
	schema, ok := m.schemas[table]
	if !ok {
		return &types.SchemaError{Entity: "table", Name: table, Message: "does not exist"}
	}
	if schema.FindColumn(column) == nil {
		return &types.SchemaError{Entity: "column", Name: column, Message: "does not exist on table " + table}
	}
	if m.indexes[table] != nil {
		if _, exists := m.indexes[table][column]; exists {
			return &types.SchemaError{Entity: "index", Name: table + "." + column, Message: "already exists"}
		}
	}

	rows, err := m.loadRows(table)
	if err != nil {
		return err
	}
	tree := index.New()
	for rid, row := range rows {
		if v, ok := row[column]; ok && v != nil {
			tree.Insert(v, index.RID(rid))
		}
	}

	if m.indexes[table] == nil {
		m.indexes[table] = make(map[string]*tableIndex)
	}
	m.indexes[table][column] = &tableIndex{column: column, kind: kind, tree: tree}
	return tree.Persist(m.fm.IndexPath(table, column))
}

// DropIndex removes the (table, column) index and its sidecar file.
func (m *Manager) DropIndex(table, column string) error {
	if m.indexes[table] == nil {
		return &types.SchemaError{Entity: "index", Name: table + "." + column, Message: "does not exist"}
	}
	if _, ok := m.indexes[table][column]; !ok {
		return &types.SchemaError{Entity: "index", Name: table + "." + column, Message: "does not exist"}
	}
	delete(m.indexes[table], column)
	path := m.fm.IndexPath(table, column)
	if _, err := os.Stat(path); err == nil {
		return os.Remove(path)
	}
	return nil
}

// HasIndex reports whether (table, column) is indexed.
func (m *Manager) HasIndex(table, column string) bool {
	idxs := m.indexes[table]
	if idxs == nil {
		return false
	}
	_, ok := idxs[column]
	return ok
}

// rebuildIndexes recomputes every index on table from rows, called after
// any write that changes row positions (insert/update/delete all shift
// RIDs, since a RID is a row's current position in the physical layout).
func (m *Manager) rebuildIndexes(table string, rows []types.Row) error {
	idxs := m.indexes[table]
	if idxs == nil {
		return nil
	}
	for col, ti := range idxs {
		tree := index.New()
		for rid, row := range rows {
			if v, ok := row[col]; ok && v != nil {
				tree.Insert(v, index.RID(rid))
			}
		}
		ti.tree = tree
		if err := tree.Persist(m.fm.IndexPath(table, col)); err != nil {
			return err
		}
	}
	return nil
}
