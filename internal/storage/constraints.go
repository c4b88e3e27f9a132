package storage

import "github.com/fathurwithyou/silberdb/internal/types"

// checkConstraintsForInsert enforces the engine's invariants for a new row:
// declared type/nullability (left to the caller's operator, which builds
// typed values), primary-key uniqueness, and foreign-key existence.
func (m *Manager) checkConstraintsForInsert(schema *types.Schema, row types.Row, existing []types.Row) error {
	if err := m.checkNullability(schema, row); err != nil {
		return err
	}
	if schema.PrimaryKey != "" {
		pk := row[schema.PrimaryKey]
		for _, r := range existing {
			if equalScalar(r[schema.PrimaryKey], pk) {
				return &types.IntegrityError{Table: schema.Table, Message: "duplicate primary key value"}
			}
		}
	}
	return m.checkForeignKeys(schema, row)
}

// checkConstraintsForUpdate enforces the same invariants for a row being
// updated in place at position idx (excluded from the PK-uniqueness scan).
func (m *Manager) checkConstraintsForUpdate(schema *types.Schema, row types.Row, existing []types.Row, idx int) error {
	if err := m.checkNullability(schema, row); err != nil {
		return err
	}
	if schema.PrimaryKey != "" {
		pk := row[schema.PrimaryKey]
		for i, r := range existing {
			if i == idx {
				continue
			}
			if equalScalar(r[schema.PrimaryKey], pk) {
				return &types.IntegrityError{Table: schema.Table, Message: "duplicate primary key value"}
			}
		}
	}
	return m.checkForeignKeys(schema, row)
}

func (m *Manager) checkNullability(schema *types.Schema, row types.Row) error {
	for _, col := range schema.Columns {
		v, ok := row[col.Name]
		if (!ok || v == nil) && !col.Nullable {
			return &types.IntegrityError{Table: schema.Table, Message: "column " + col.Name + " cannot be NULL"}
		}
	}
	return nil
}

func (m *Manager) checkForeignKeys(schema *types.Schema, row types.Row) error {
	for _, col := range schema.Columns {
		if col.FK == nil {
			continue
		}
		v, ok := row[col.Name]
		if !ok || v == nil {
			continue // NULL FK values are always allowed (nullability already checked)
		}
		refRows, err := m.loadRows(col.FK.Table)
		if err != nil {
			return err
		}
		found := false
		for _, r := range refRows {
			if equalScalar(r[col.FK.Column], v) {
				found = true
				break
			}
		}
		if !found {
			return &types.IntegrityError{Table: schema.Table, Message: "foreign key " + col.Name + " references nonexistent " + col.FK.Table + "." + col.FK.Column}
		}
	}
	return nil
}
