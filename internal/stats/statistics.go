// Package stats computes the per-table Statistic the cardinality estimator
// and cost model consume (spec §4.5).
package stats

import (
	"github.com/fathurwithyou/silberdb/internal/serialize"
	"github.com/fathurwithyou/silberdb/internal/types"
)

// Compute derives schema's Stat from its current rows.
func Compute(schema *types.Schema, rows []types.Row) *types.Stat {
	rowLen := serialize.CalculateRowSize(schema)
	blocking := 0
	if rowLen > 0 {
		blocking = serialize.BlockSize / rowLen
	}
	nBlocks := 0
	if blocking > 0 {
		nBlocks = ceilDiv(len(rows), blocking)
	}

	distinct := make(map[string]int, len(schema.Columns))
	nulls := make(map[string]int)
	var numericMin, numericMax map[string]float64

	for _, col := range schema.Columns {
		seen := make(map[any]bool)
		nullCount := 0
		var min, max float64
		haveNumeric := false

		for _, row := range rows {
			v, ok := row[col.Name]
			if !ok || v == nil {
				nullCount++
				continue
			}
			seen[v] = true

			if col.Type == types.Integer || col.Type == types.Float {
				f, ok := asFloat(v)
				if !ok {
					continue
				}
				if !haveNumeric {
					min, max = f, f
					haveNumeric = true
				} else {
					if f < min {
						min = f
					}
					if f > max {
						max = f
					}
				}
			}
		}

		distinct[col.Name] = len(seen)
		if nullCount > 0 {
			nulls[col.Name] = nullCount
		}
		if haveNumeric {
			if numericMin == nil {
				numericMin = make(map[string]float64)
				numericMax = make(map[string]float64)
			}
			numericMin[col.Name] = min
			numericMax[col.Name] = max
		}
	}

	st := &types.Stat{
		Table:    schema.Table,
		NRows:    len(rows),
		RowLen:   rowLen,
		Blocking: blocking,
		NBlocks:  nBlocks,
		Distinct: distinct,
	}
	if len(nulls) > 0 {
		st.Nulls = nulls
	}
	if numericMin != nil {
		st.Min = numericMin
		st.Max = numericMax
	}
	return st
}

func ceilDiv(a, b int) int {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}
