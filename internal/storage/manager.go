// Package storage composes the file manager, buffer pool, indexes, and
// statistics engine into the single Storage Manager the execution engine
// and WAL recovery manager talk to (spec §4.6). It has a single on-disk
// backend, the file manager; there is no registry of backends.
package storage

import (
	"fmt"
	"sort"

	"github.com/fathurwithyou/silberdb/internal/buffer"
	"github.com/fathurwithyou/silberdb/internal/filemgr"
	"github.com/fathurwithyou/silberdb/internal/index"
	"github.com/fathurwithyou/silberdb/internal/serialize"
	"github.com/fathurwithyou/silberdb/internal/stats"
	"github.com/fathurwithyou/silberdb/internal/types"
)

// Condition is a single-column predicate used for index probing during a
// scan, and for matching rows during update/delete. Op is one of
// "=", "!=", "<", "<=", ">", ">=".
type Condition struct {
	Column string
	Op     string
	Value  any
}

// DataRetrieval describes a read: which table, which columns (nil/empty
// means all), which conditions, and an optional limit/offset.
type DataRetrieval struct {
	Table      string
	Columns    []string
	Conditions []Condition
	Limit      int // 0 means no limit
	Offset     int
}

// DataWrite describes an insert (IsUpdate=false) or an update
// (IsUpdate=true, matching Conditions, assigning Values).
type DataWrite struct {
	Table      string
	Values     types.Row
	Conditions []Condition
	IsUpdate   bool
}

// DataDeletion describes a delete.
type DataDeletion struct {
	Table      string
	Conditions []Condition
}

type indexKind string

const (
	IndexBTree indexKind = "BTREE"
	IndexHash  indexKind = "HASH"
)

type tableIndex struct {
	column string
	kind   indexKind
	tree   *index.BPlusTree
}

// Manager composes the storage layer's collaborators.
type Manager struct {
	fm   *filemgr.FileManager
	pool *buffer.Pool

	schemas map[string]*types.Schema
	indexes map[string]map[string]*tableIndex // table -> column -> index
}

// New returns a Manager rooted at dataDir with a buffer pool of poolSize
// pages.
func New(dataDir string, poolSize int) (*Manager, error) {
	fm, err := filemgr.New(dataDir)
	if err != nil {
		return nil, err
	}
	m := &Manager{
		fm:      fm,
		pool:    buffer.New(poolSize),
		schemas: make(map[string]*types.Schema),
		indexes: make(map[string]map[string]*tableIndex),
	}

	names, err := fm.ListSchemaFiles()
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		schema, err := fm.LoadSchema(name)
		if err != nil {
			return nil, err
		}
		m.schemas[name] = schema
	}
	return m, nil
}

// CreateTable validates and persists a new schema plus an empty data file.
func (m *Manager) CreateTable(schema *types.Schema) error {
	if _, exists := m.schemas[schema.Table]; exists {
		return &types.SchemaError{Entity: "table", Name: schema.Table, Message: "already exists"}
	}
	err := m.fm.ValidateSchema(schema, func(t string) (*types.Schema, bool) {
		s, ok := m.schemas[t]
		return s, ok
	})
	if err != nil {
		return err
	}
	if err := m.fm.SaveSchema(schema); err != nil {
		return err
	}
	if err := m.fm.CreateTableFile(schema.Table); err != nil {
		return err
	}
	m.schemas[schema.Table] = schema
	return nil
}

// dependents returns every table whose foreign key targets table.
func (m *Manager) dependents(table string) []string {
	var deps []string
	for name, schema := range m.schemas {
		if name == table {
			continue
		}
		for _, col := range schema.Columns {
			if col.FK != nil && col.FK.Table == table {
				deps = append(deps, name)
				break
			}
		}
	}
	sort.Strings(deps)
	return deps
}

// DropTable removes table's schema, data file, and indexes. It fails if the
// table does not exist, or (RESTRICT semantics) if another table's foreign
// key still references it; CASCADE dropping of dependents is orchestrated
// by the DDL handler, which calls DropTable once per table in topological
// order.
func (m *Manager) DropTable(table string) error {
	if _, ok := m.schemas[table]; !ok {
		return &types.SchemaError{Entity: "table", Name: table, Message: "does not exist"}
	}
	if deps := m.dependents(table); len(deps) > 0 {
		return &types.SchemaError{Entity: "table", Name: table, Message: fmt.Sprintf("referenced by %v", deps)}
	}
	for col := range m.indexes[table] {
		_ = m.DropIndex(table, col)
	}
	if err := m.fm.DeleteSchema(table); err != nil {
		return err
	}
	if err := m.fm.DeleteTableFile(table); err != nil {
		return err
	}
	delete(m.schemas, table)
	return nil
}

// GetTableSchema returns table's schema.
func (m *Manager) GetTableSchema(table string) (*types.Schema, error) {
	schema, ok := m.schemas[table]
	if !ok {
		return nil, &types.SchemaError{Entity: "table", Name: table, Message: "does not exist"}
	}
	return schema, nil
}

// ListTables returns every known table name.
func (m *Manager) ListTables() []string {
	names := make([]string, 0, len(m.schemas))
	for name := range m.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetStats computes table's current Statistic.
func (m *Manager) GetStats(table string) (*types.Stat, error) {
	schema, ok := m.schemas[table]
	if !ok {
		return nil, &types.SchemaError{Entity: "table", Name: table, Message: "does not exist"}
	}
	rows, err := m.loadRows(table)
	if err != nil {
		return nil, err
	}
	return stats.Compute(schema, rows), nil
}

// --- on-disk row access, shared by the buffer and disk paths ---

func (m *Manager) loadRows(table string) ([]types.Row, error) {
	schema := m.schemas[table]
	data, err := m.pool.GetPage(table, func(string) ([]byte, error) {
		return readFileOrEmpty(m.fm.TablePath(table))
	})
	if err != nil {
		return nil, err
	}
	m.pool.UnpinPage(table)
	return serialize.DecodeRows(schema, data), nil
}

func (m *Manager) storeRows(table string, rows []types.Row) error {
	schema := m.schemas[table]
	enc, err := serialize.EncodeRows(schema, rows)
	if err != nil {
		return err
	}
	return m.pool.PutPage(table, enc, true)
}

func readFileOrEmpty(path string) ([]byte, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, &types.StorageError{Op: "read", Message: err.Error()}
	}
	return data, nil
}

// FlushBuffer writes a table's dirty page through to disk. table == ""
// flushes every dirty page.
func (m *Manager) FlushBuffer(table string) error {
	writer := func(id string, data []byte) error {
		return writeFile(m.fm.TablePath(id), data)
	}
	if table == "" {
		return m.pool.FlushAll(writer)
	}
	return m.pool.FlushPage(table, writer)
}

// GetBufferStats exposes the buffer pool's hit/miss/dirty counters.
func (m *Manager) GetBufferStats() buffer.Stats {
	return m.pool.Stats()
}
