package frontend

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fathurwithyou/silberdb/internal/types"
)

// parseLiteralToken turns one raw INSERT/UPDATE value token into its Go
// scalar form, the same NULL/string/number classification
// predicate.parseLiteral uses for WHERE/ON fragments.
func parseLiteralToken(raw string) any {
	s := strings.TrimSpace(raw)
	if strings.EqualFold(s, "NULL") {
		return nil
	}
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return strings.ReplaceAll(s[1:len(s)-1], "''", "'")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// convertLiteral coerces v to col's declared type, the conversion the
// frontend performs on the caller's behalf before handing a typed Row to
// an INSERT/UPDATE node's Meta.
func convertLiteral(v any, col *types.Column) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch col.Type {
	case types.Integer:
		switch t := v.(type) {
		case int64:
			return t, nil
		case float64:
			return int64(t), nil
		case string:
			n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
			if err != nil {
				return nil, &types.TypeMismatchError{Column: col.Name, Want: string(col.Type), Value: v, Message: err.Error()}
			}
			return n, nil
		}
	case types.Float:
		switch t := v.(type) {
		case float64:
			return t, nil
		case int64:
			return float64(t), nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
			if err != nil {
				return nil, &types.TypeMismatchError{Column: col.Name, Want: string(col.Type), Value: v, Message: err.Error()}
			}
			return f, nil
		}
	case types.Char, types.Varchar:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return fmt.Sprintf("%v", v), nil
	}
	return v, nil
}

// typedRow zips cols/vals into a types.Row, converting each value to its
// column's declared type when a schema is known; unresolvable columns
// (no lookup, or the table isn't known yet) pass the raw parsed literal
// through unconverted.
func (p *Parser) typedRow(table string, cols []string, vals []any) (types.Row, error) {
	if len(cols) != len(vals) {
		return nil, &types.SyntaxError{Message: "column/value count mismatch"}
	}
	var schema *types.Schema
	if p.lookup != nil {
		schema, _ = p.lookup(table)
	}
	row := make(types.Row, len(cols))
	for i, c := range cols {
		v := vals[i]
		if schema != nil {
			if col := schema.FindColumn(c); col != nil {
				converted, err := convertLiteral(v, col)
				if err != nil {
					return nil, err
				}
				row[c] = converted
				continue
			}
		}
		row[c] = v
	}
	return row, nil
}

// parseAssignments splits an UPDATE statement's "col = val, col2 = val2"
// clause into parallel column/value slices.
func parseAssignments(raw string) (cols []string, vals []any, err error) {
	for _, part := range splitTopLevelCommas(raw) {
		eq := strings.IndexByte(part, '=')
		if eq < 0 {
			return nil, nil, &types.SyntaxError{Message: "expected col = value in SET clause"}
		}
		col := strings.TrimSpace(part[:eq])
		if col == "" {
			return nil, nil, &types.SyntaxError{Message: "empty column name in SET clause"}
		}
		cols = append(cols, col)
		vals = append(vals, parseLiteralToken(part[eq+1:]))
	}
	return cols, vals, nil
}
