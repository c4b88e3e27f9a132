package exec

import (
	"strings"

	"github.com/fathurwithyou/silberdb/internal/types"
)

// projItem is one parsed entry of a PROJECTION node's column list.
type projItem struct {
	star     bool   // "*"
	table    string // "" unless qualified ("table.*" or "table.col")
	tableAll bool   // "table.*"
	column   string // bare column name, "" when star/tableAll
	alias    string // output key, defaults to the source reference
}

// projection narrows its child's rows to the requested columns (spec.md
// §4.11): "*", "table.*", "col", "table.col", and "expr AS alias" for a
// bare column reference. Arithmetic and function-call expressions are
// rejected as not implemented.
func (e *Executor) projection(node *types.Node, txID int64) (*types.Rows, error) {
	rows, err := e.childRows(node, 0, txID)
	if err != nil {
		return nil, err
	}
	items, err := parseProjectionList(node.Value)
	if err != nil {
		return nil, err
	}

	out := make([]types.Row, len(rows.Values))
	for i, row := range rows.Values {
		out[i] = projectRow(row, items)
	}
	return &types.Rows{Schemas: narrowSchemas(rows.Schemas, items), Values: out}, nil
}

// narrowSchemas drops the tables and columns a projection does not keep, so
// that \d-style schema reporting on the result sees only the survivors.
func narrowSchemas(schemas []*types.Schema, items []projItem) []*types.Schema {
	for _, item := range items {
		if item.star {
			return schemas
		}
	}

	out := make([]*types.Schema, 0, len(schemas))
	for _, schema := range schemas {
		if tableKept(schema.Table, items) {
			out = append(out, schema)
			continue
		}
		cols := keptColumns(schema, items)
		if len(cols) == 0 {
			continue
		}
		narrowed := *schema
		narrowed.Columns = cols
		out = append(out, &narrowed)
	}
	return out
}

func tableKept(table string, items []projItem) bool {
	for _, item := range items {
		if item.tableAll && item.table == table {
			return true
		}
	}
	return false
}

func keptColumns(schema *types.Schema, items []projItem) []*types.Column {
	var cols []*types.Column
	for _, col := range schema.Columns {
		for _, item := range items {
			if item.star || item.tableAll || item.column == "" {
				continue
			}
			if item.table != "" && item.table != schema.Table {
				continue
			}
			if item.column == col.Name {
				cols = append(cols, col)
				break
			}
		}
	}
	return cols
}

func parseProjectionList(value string) ([]projItem, error) {
	parts := splitTopLevelCommas(value)
	items := make([]projItem, 0, len(parts))
	for _, raw := range parts {
		item, err := parseProjectionItem(strings.TrimSpace(raw))
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func parseProjectionItem(expr string) (projItem, error) {
	if expr == "" {
		return projItem{}, &types.SyntaxError{Message: "empty projection item"}
	}

	ref, alias := splitAlias(expr)
	if containsExprOperator(ref) {
		return projItem{}, &types.ErrNotImplemented{Feature: "arithmetic/function projection expression: " + ref}
	}

	if ref == "*" {
		return projItem{star: true}, nil
	}
	if strings.HasSuffix(ref, ".*") {
		return projItem{tableAll: true, table: strings.TrimSuffix(ref, ".*")}, nil
	}
	qualifier, col := splitQualifier(ref)
	if alias == "" {
		alias = ref
	}
	return projItem{table: qualifier, column: col, alias: alias}, nil
}

func splitAlias(expr string) (ref, alias string) {
	upper := strings.ToUpper(expr)
	if idx := strings.LastIndex(upper, " AS "); idx >= 0 {
		return strings.TrimSpace(expr[:idx]), strings.TrimSpace(expr[idx+4:])
	}
	return expr, ""
}

func containsExprOperator(ref string) bool {
	for _, op := range []string{"+", "-", "*", "/", "(", ")"} {
		if op == "*" && ref == "*" {
			continue // bare star, not multiplication
		}
		if op == "*" && strings.HasSuffix(ref, ".*") {
			continue
		}
		if strings.Contains(ref, op) {
			return true
		}
	}
	return false
}

func splitTopLevelCommas(s string) []string {
	var out []string
	depth := 0
	inQuote := false
	start := 0
	for i, r := range s {
		switch {
		case r == '\'':
			inQuote = !inQuote
		case inQuote:
			continue
		case r == '(':
			depth++
		case r == ')':
			depth--
		case r == ',' && depth == 0:
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

func projectRow(row map[string]any, items []projItem) types.Row {
	out := make(types.Row)
	for _, item := range items {
		switch {
		case item.star:
			for k, v := range row {
				out[k] = v
			}
		case item.tableAll:
			prefix := item.table + "."
			for k, v := range row {
				if strings.HasPrefix(k, prefix) {
					out[k] = v
				}
			}
		default:
			v, _ := resolve(row)(qualifiedRef(item.table, item.column))
			out[item.alias] = v
		}
	}
	return out
}

func qualifiedRef(table, column string) string {
	if table == "" {
		return column
	}
	return table + "." + column
}
