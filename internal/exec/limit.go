package exec

import (
	"strconv"
	"strings"

	"github.com/fathurwithyou/silberdb/internal/types"
)

// limit implements LIMIT. Value is "n" or "n OFFSET m".
func (e *Executor) limit(node *types.Node, txID int64) (*types.Rows, error) {
	rows, err := e.childRows(node, 0, txID)
	if err != nil {
		return nil, err
	}
	n, offset, err := parseLimitValue(node.Value)
	if err != nil {
		return nil, err
	}

	values := rows.Values
	if offset > 0 {
		if offset >= len(values) {
			values = nil
		} else {
			values = values[offset:]
		}
	}
	if n >= 0 && n < len(values) {
		values = values[:n]
	}
	return &types.Rows{Schemas: rows.Schemas, Values: values}, nil
}

func parseLimitValue(value string) (n, offset int, err error) {
	fields := strings.Fields(value)
	n = -1
	if len(fields) > 0 {
		v, convErr := strconv.Atoi(fields[0])
		if convErr != nil {
			return 0, 0, &types.SyntaxError{Message: "malformed LIMIT value: " + fields[0]}
		}
		n = v
	}
	for i, f := range fields {
		if strings.EqualFold(f, "OFFSET") {
			if i+1 >= len(fields) {
				return 0, 0, &types.SyntaxError{Message: "OFFSET missing a value"}
			}
			v, convErr := strconv.Atoi(fields[i+1])
			if convErr != nil {
				return 0, 0, &types.SyntaxError{Message: "malformed OFFSET value: " + fields[i+1]}
			}
			offset = v
		}
	}
	return n, offset, nil
}
