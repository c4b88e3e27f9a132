package exec

import "strings"

// tableAndAlias splits a TABLE node's Value ("orders" or "orders o") into
// the table name and the alias rows are qualified under (defaults to the
// table name itself).
func tableAndAlias(value string) (table, alias string) {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return "", ""
	}
	if len(fields) == 1 {
		return fields[0], fields[0]
	}
	return fields[0], fields[1]
}

// qualify returns a copy of row with every key prefixed "alias.key", used
// when a Scan's output is a fresh single-table row set.
func qualify(row map[string]any, alias string) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		out[alias+"."+k] = v
	}
	return out
}

// merge returns the union of l and r's keys (r wins on collision, which
// never happens for two disjointly-qualified sides).
func merge(l, r map[string]any) map[string]any {
	out := make(map[string]any, len(l)+len(r))
	for k, v := range l {
		out[k] = v
	}
	for k, v := range r {
		out[k] = v
	}
	return out
}

// bareColumn strips a "table." qualifier, returning the column name alone.
func bareColumn(ref string) string {
	if i := strings.LastIndex(ref, "."); i >= 0 {
		return ref[i+1:]
	}
	return ref
}

// resolve builds the resolution function predicate.Eval needs: exact
// qualified lookup first, then an unambiguous bare-column fallback across
// every key sharing that suffix.
func resolve(row map[string]any) func(string) (any, bool) {
	return func(ref string) (any, bool) {
		if v, ok := row[ref]; ok {
			return v, true
		}
		suffix := "." + bareColumn(ref)
		var found any
		hits := 0
		for k, v := range row {
			if strings.HasSuffix(k, suffix) {
				found = v
				hits++
			}
		}
		if hits == 1 {
			return found, true
		}
		return nil, false
	}
}
