package exec

import (
	"sort"
	"strings"

	"github.com/fathurwithyou/silberdb/internal/index"
	"github.com/fathurwithyou/silberdb/internal/types"
)

type sortKey struct {
	ref  string
	desc bool
}

// orderBy implements ORDER_BY: a comma-separated "col [ASC|DESC]" list,
// NULLs sorted first regardless of direction, stable across equal keys so
// a prior sort's tie-breaking order survives.
func (e *Executor) orderBy(node *types.Node, txID int64) (*types.Rows, error) {
	rows, err := e.childRows(node, 0, txID)
	if err != nil {
		return nil, err
	}
	keys := parseSortKeys(node.Value)

	out := append([]types.Row(nil), rows.Values...)
	sort.SliceStable(out, func(i, j int) bool {
		return lessRows(out[i], out[j], keys)
	})
	return &types.Rows{Schemas: rows.Schemas, Values: out}, nil
}

func parseSortKeys(value string) []sortKey {
	parts := strings.Split(value, ",")
	keys := make([]sortKey, 0, len(parts))
	for _, raw := range parts {
		fields := strings.Fields(strings.TrimSpace(raw))
		if len(fields) == 0 {
			continue
		}
		k := sortKey{ref: fields[0]}
		if len(fields) > 1 && strings.EqualFold(fields[1], "DESC") {
			k.desc = true
		}
		keys = append(keys, k)
	}
	return keys
}

func lessRows(a, b types.Row, keys []sortKey) bool {
	for _, k := range keys {
		av, _ := resolve(a)(k.ref)
		bv, _ := resolve(b)(k.ref)
		if av == nil && bv == nil {
			continue
		}
		if av == nil {
			return true
		}
		if bv == nil {
			return false
		}
		cmp := index.Compare(av, bv)
		if cmp == 0 {
			continue
		}
		if k.desc {
			return cmp > 0
		}
		return cmp < 0
	}
	return false
}
