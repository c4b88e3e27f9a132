package exec

import (
	"fmt"

	"github.com/fathurwithyou/silberdb/internal/predicate"
	"github.com/fathurwithyou/silberdb/internal/storage"
	"github.com/fathurwithyou/silberdb/internal/types"
)

// insert implements INSERT. Value is the target table name; Meta carries
// the already-typed row to write (the frontend is responsible for
// converting literal tokens to the column's declared type before building
// the node, the same division of labor CREATE_TABLE uses for its Schema).
func (e *Executor) insert(node *types.Node, txID int64) (*types.Rows, error) {
	table := node.Value
	if err := e.CCM.ValidateObject(txID, table, "WRITE"); err != nil {
		return nil, &types.AbortError{TxID: txID, Table: table, Action: "INSERT", Message: err.Error()}
	}
	row, ok := node.Meta.(types.Row)
	if !ok {
		return nil, &types.SyntaxError{Message: "INSERT node missing a typed row in Meta"}
	}
	n, err := e.Storage.WriteBuffer(storage.DataWrite{Table: table, Values: row})
	if err != nil {
		return nil, err
	}
	if err := e.logChange(txID, table, nil, nil, row); err != nil {
		return nil, err
	}
	return &types.Rows{Values: make([]types.Row, n)}, nil
}

// update implements UPDATE. Value is the target table name; Meta carries
// the assignment values; an optional Children[0] SELECTION node (table-less,
// holding only a WHERE predicate string) narrows which rows are touched.
func (e *Executor) update(node *types.Node, txID int64) (*types.Rows, error) {
	table := node.Value
	if err := e.CCM.ValidateObject(txID, table, "WRITE"); err != nil {
		return nil, &types.AbortError{TxID: txID, Table: table, Action: "UPDATE", Message: err.Error()}
	}
	values, ok := node.Meta.(types.Row)
	if !ok {
		return nil, &types.SyntaxError{Message: "UPDATE node missing typed assignment values in Meta"}
	}
	conds, err := conditionsFromChild(node)
	if err != nil {
		return nil, err
	}
	matched, err := e.Storage.ReadBuffer(storage.DataRetrieval{Table: table, Conditions: conds})
	if err != nil {
		return nil, err
	}
	n, err := e.Storage.WriteBuffer(storage.DataWrite{Table: table, Values: values, Conditions: conds, IsUpdate: true})
	if err != nil {
		return nil, err
	}
	for _, old := range matched.Values {
		updated := old.Clone()
		for k, v := range values {
			updated[k] = v
		}
		if err := e.logChange(txID, table, conds, old, updated); err != nil {
			return nil, err
		}
	}
	return &types.Rows{Values: make([]types.Row, n)}, nil
}

// delete implements DELETE, enforcing every dependent table's declared
// foreign-key action (CASCADE/RESTRICT/SET NULL/NO ACTION) before removing
// the matched rows, guarding against reference cycles with a visited
// (table, primary-key) set.
func (e *Executor) delete(node *types.Node, txID int64) (*types.Rows, error) {
	table := node.Value
	conds, err := conditionsFromChild(node)
	if err != nil {
		return nil, err
	}
	visited := map[string]bool{}
	n, err := e.cascadeDelete(table, conds, visited, txID)
	if err != nil {
		return nil, err
	}
	return &types.Rows{Values: make([]types.Row, n)}, nil
}

func (e *Executor) cascadeDelete(table string, conds []storage.Condition, visited map[string]bool, txID int64) (int, error) {
	if err := e.CCM.ValidateObject(txID, table, "DELETE"); err != nil {
		return 0, &types.AbortError{TxID: txID, Table: table, Action: "DELETE", Message: err.Error()}
	}
	schema, err := e.Storage.GetTableSchema(table)
	if err != nil {
		return 0, err
	}
	matched, err := e.Storage.ReadBuffer(storage.DataRetrieval{Table: table, Conditions: conds})
	if err != nil {
		return 0, err
	}

	if schema.PrimaryKey != "" {
		for _, row := range matched.Values {
			key := table + "#" + literalKey(row[schema.PrimaryKey])
			if visited[key] {
				continue
			}
			visited[key] = true
		}
	}

	if err := e.enforceDependents(table, schema, matched.Values, visited, txID); err != nil {
		return 0, err
	}

	n, err := e.Storage.DeleteBuffer(storage.DataDeletion{Table: table, Conditions: conds})
	if err != nil {
		return 0, err
	}
	for _, row := range matched.Values {
		if err := e.logChange(txID, table, nil, row, nil); err != nil {
			return 0, err
		}
	}
	return n, nil
}

// enforceDependents walks every other table whose schema declares a
// foreign key into table, and applies its ON DELETE action against the
// rows about to disappear.
func (e *Executor) enforceDependents(table string, schema *types.Schema, doomed []types.Row, visited map[string]bool, txID int64) error {
	if schema.PrimaryKey == "" || len(doomed) == 0 {
		return nil
	}
	var pks []any
	for _, row := range doomed {
		pks = append(pks, row[schema.PrimaryKey])
	}

	for _, depName := range e.Storage.ListTables() {
		if depName == table {
			continue
		}
		depSchema, err := e.Storage.GetTableSchema(depName)
		if err != nil {
			return err
		}
		for _, col := range depSchema.Columns {
			if col.FK == nil || col.FK.Table != table {
				continue
			}
			if err := e.enforceOneForeignKey(depName, depSchema, col, pks, visited, txID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Executor) enforceOneForeignKey(depName string, depSchema *types.Schema, col *types.Column, pks []any, visited map[string]bool, txID int64) error {
	var conds []storage.Condition
	for _, pk := range pks {
		conds = append(conds, storage.Condition{Column: col.Name, Op: "=", Value: pk})
	}
	referencing, err := e.matchingAny(depName, col.Name, pks)
	if err != nil {
		return err
	}
	if len(referencing) == 0 {
		return nil
	}

	switch col.FK.OnDelete {
	case types.ActionCascade:
		if depSchema.PrimaryKey == "" {
			return nil
		}
		var depKeys []any
		for _, row := range referencing {
			key := depName + "#" + literalKey(row[depSchema.PrimaryKey])
			if visited[key] {
				continue
			}
			depKeys = append(depKeys, row[depSchema.PrimaryKey])
		}
		if len(depKeys) == 0 {
			return nil
		}
		var depConds []storage.Condition
		for _, k := range depKeys {
			depConds = append(depConds, storage.Condition{Column: depSchema.PrimaryKey, Op: "=", Value: k})
		}
		_, err := e.cascadeDeleteAny(depName, depConds, visited, txID)
		return err

	case types.ActionSetNull:
		for _, c := range conds {
			if _, err := e.Storage.WriteBuffer(storage.DataWrite{
				Table:      depName,
				Values:     types.Row{col.Name: nil},
				Conditions: []storage.Condition{c},
				IsUpdate:   true,
			}); err != nil {
				return err
			}
		}
		return nil

	default: // RESTRICT, NO ACTION
		return &types.IntegrityError{Table: depName, Message: "row referenced by " + depName + "." + col.Name}
	}
}

// cascadeDeleteAny deletes every row of depName matching any of depConds
// (an OR of equalities, one per cascading parent row), recursing into
// depName's own dependents first.
func (e *Executor) cascadeDeleteAny(depName string, depConds []storage.Condition, visited map[string]bool, txID int64) (int, error) {
	total := 0
	for _, c := range depConds {
		n, err := e.cascadeDelete(depName, []storage.Condition{c}, visited, txID)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (e *Executor) matchingAny(table, column string, values []any) ([]types.Row, error) {
	var out []types.Row
	for _, v := range values {
		res, err := e.Storage.ReadBuffer(storage.DataRetrieval{Table: table, Conditions: []storage.Condition{{Column: column, Op: "=", Value: v}}})
		if err != nil {
			return nil, err
		}
		out = append(out, res.Values...)
	}
	return out, nil
}

func literalKey(v any) string {
	switch t := v.(type) {
	case nil:
		return "<nil>"
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}

// conditionsFromChild translates an optional table-less SELECTION child
// (holding only a WHERE predicate string) into storage.Condition values,
// rejecting predicates that do not decompose into simple comparisons
// against the DML target's own columns (joins and OR are not meaningful
// in a WHERE clause here).
func conditionsFromChild(node *types.Node) ([]storage.Condition, error) {
	if len(node.Children) == 0 {
		return nil, nil
	}
	whereNode := node.Children[0]
	if whereNode.Type != types.NodeSelection {
		return nil, nil
	}
	p, err := predicate.Parse(whereNode.Value)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, nil
	}
	conds, residual := splitPushable(p, node.Value, node.Value)
	if residual != nil {
		return nil, &types.ErrNotImplemented{Feature: "non-simple WHERE clause in DML: " + residual.String()}
	}
	return conds, nil
}
