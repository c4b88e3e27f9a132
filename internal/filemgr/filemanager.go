// Package filemgr owns the two on-disk directories under the data root
// (schemas/ and tables/) and the schema-validation rules that gate DDL
// (spec §4.2). The general shape — a registered-backend interface
// resolving logical names to physical resources — is adapted from the
// teacher's internal/introspect package, swapped from "introspect a live
// DB connection" to "read/write a table's own file".
package filemgr

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/fathurwithyou/silberdb/internal/serialize"
	"github.com/fathurwithyou/silberdb/internal/types"
)

// FileManager owns schemas/ and tables/ under a data root.
type FileManager struct {
	root string
}

// New creates (if absent) and returns a FileManager rooted at dataDir.
func New(dataDir string) (*FileManager, error) {
	fm := &FileManager{root: dataDir}
	for _, sub := range []string{"schemas", "tables", "indexes"} {
		if err := os.MkdirAll(filepath.Join(dataDir, sub), 0o755); err != nil {
			return nil, err
		}
	}
	return fm, nil
}

func (fm *FileManager) schemaPath(table string) string {
	return filepath.Join(fm.root, "schemas", table+".dat")
}

func (fm *FileManager) tablePath(table string) string {
	return filepath.Join(fm.root, "tables", table+".dat")
}

// IndexPath returns the sidecar path for a (table, column) index.
func (fm *FileManager) IndexPath(table, column string) string {
	return filepath.Join(fm.root, "indexes", table+"."+column+".idx")
}

// TablePath exposes the on-disk row-data path, used by the buffer pool's
// loader/writer callbacks.
func (fm *FileManager) TablePath(table string) string { return fm.tablePath(table) }

// SaveSchema persists schema to schemas/<table>.dat.
func (fm *FileManager) SaveSchema(schema *types.Schema) error {
	data, err := serialize.EncodeSchema(schema)
	if err != nil {
		return err
	}
	return os.WriteFile(fm.schemaPath(schema.Table), data, 0o644)
}

// LoadSchema reads schemas/<table>.dat.
func (fm *FileManager) LoadSchema(table string) (*types.Schema, error) {
	data, err := os.ReadFile(fm.schemaPath(table))
	if err != nil {
		return nil, err
	}
	return serialize.DecodeSchema(data)
}

// SchemaExists reports whether table has a schema file.
func (fm *FileManager) SchemaExists(table string) bool {
	_, err := os.Stat(fm.schemaPath(table))
	return err == nil
}

// DeleteSchema removes schemas/<table>.dat.
func (fm *FileManager) DeleteSchema(table string) error {
	return os.Remove(fm.schemaPath(table))
}

// CreateTableFile creates an empty tables/<table>.dat.
func (fm *FileManager) CreateTableFile(table string) error {
	empty, err := serialize.EncodeRows(&types.Schema{}, nil)
	if err != nil {
		return err
	}
	return os.WriteFile(fm.tablePath(table), empty, 0o644)
}

// DeleteTableFile removes tables/<table>.dat.
func (fm *FileManager) DeleteTableFile(table string) error {
	return os.Remove(fm.tablePath(table))
}

// ListSchemaFiles returns every table name that has a schema file.
func (fm *FileManager) ListSchemaFiles() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(fm.root, "schemas"))
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".dat") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".dat"))
	}
	return names, nil
}

// ValidateSchema checks spec.md §4.2's structural rules: non-empty name,
// at least one column, no duplicate column names, a named primary key must
// exist, and every foreign key's target table/column must exist. existing
// resolves another table's schema by name (used to check FK targets), and
// may be nil when no other tables exist yet.
func (fm *FileManager) ValidateSchema(schema *types.Schema, existing func(table string) (*types.Schema, bool)) error {
	if strings.TrimSpace(schema.Table) == "" {
		return &types.SchemaError{Entity: "table", Message: "name is required"}
	}
	if len(schema.Columns) == 0 {
		return &types.SchemaError{Entity: "table", Name: schema.Table, Message: "must declare at least one column"}
	}

	seen := make(map[string]bool, len(schema.Columns))
	for _, col := range schema.Columns {
		lower := strings.ToLower(col.Name)
		if seen[lower] {
			return &types.SchemaError{Entity: "table", Name: schema.Table, Message: "duplicate column name " + col.Name}
		}
		seen[lower] = true
	}

	if schema.PrimaryKey != "" && schema.FindColumn(schema.PrimaryKey) == nil {
		return &types.SchemaError{Entity: "table", Name: schema.Table, Message: "primary key column " + schema.PrimaryKey + " does not exist"}
	}

	for _, col := range schema.Columns {
		if col.FK == nil {
			continue
		}
		if existing == nil {
			return &types.SchemaError{Entity: "table", Name: schema.Table, Message: "foreign key references unknown table " + col.FK.Table}
		}
		target, ok := existing(col.FK.Table)
		if !ok {
			return &types.SchemaError{Entity: "table", Name: schema.Table, Message: "foreign key references unknown table " + col.FK.Table}
		}
		if target.FindColumn(col.FK.Column) == nil {
			return &types.SchemaError{Entity: "table", Name: schema.Table, Message: "foreign key references unknown column " + col.FK.Table + "." + col.FK.Column}
		}
	}

	return nil
}
