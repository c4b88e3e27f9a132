package rules

import (
	"strings"

	"github.com/fathurwithyou/silberdb/internal/predicate"
	"github.com/fathurwithyou/silberdb/internal/types"
)

// tableAndAlias splits a TABLE node's Value ("orders" or "orders o") into
// its table name and effective qualifier (alias if given, else the table
// name itself).
func tableAndAlias(value string) (table, qualifier string) {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return "", ""
	}
	if len(fields) == 1 {
		return fields[0], fields[0]
	}
	return fields[0], fields[1]
}

// qualifiers returns every alias-or-table-name produced by the subtree
// rooted at n (the set of qualifiers its output rows may carry).
func qualifiers(n *types.Node) []string {
	var out []string
	types.Walk(n, func(node *types.Node) {
		if node.Type == types.NodeTable {
			_, q := tableAndAlias(node.Value)
			out = append(out, q)
		}
	})
	return out
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

// qualifierOf returns the qualifier prefix of a dotted column reference, or
// "" if unqualified.
func qualifierOf(ref string) string {
	if i := strings.Index(ref, "."); i >= 0 {
		return ref[:i]
	}
	return ""
}

// owningSide reports which side (by qualifier set) owns every column p
// references: -1 left only, 1 right only, 0 both/ambiguous. lookup
// resolves an unqualified column to the schema that declares it, via the
// storage manager, so a predicate written without a table prefix can still
// be routed to the side that owns it.
func owningSide(p *predicate.Predicate, leftQ, rightQ []string, lookup SchemaLookup) int {
	cols := p.Columns()
	sawLeft, sawRight := false, false
	for _, c := range cols {
		q := qualifierOf(c)
		if q == "" {
			q = resolveUnqualified(c, leftQ, rightQ, lookup)
		}
		switch {
		case contains(leftQ, q):
			sawLeft = true
		case contains(rightQ, q):
			sawRight = true
		default:
			// Unresolvable: treat conservatively as touching both sides.
			sawLeft, sawRight = true, true
		}
	}
	switch {
	case sawLeft && !sawRight:
		return -1
	case sawRight && !sawLeft:
		return 1
	default:
		return 0
	}
}

func resolveUnqualified(col string, leftQ, rightQ []string, lookup SchemaLookup) string {
	if lookup == nil {
		return ""
	}
	for _, q := range leftQ {
		if s, ok := lookup(q); ok && s.FindColumn(col) != nil {
			return q
		}
	}
	for _, q := range rightQ {
		if s, ok := lookup(q); ok && s.FindColumn(col) != nil {
			return q
		}
	}
	return ""
}

// syntacticSelectivity is the commutativity heuristic of spec.md §4.9:
// "=" : 0.1, range : 0.3, "!=" : 0.9, else 0.5.
func syntacticSelectivity(p *predicate.Predicate) float64 {
	if p == nil || p.Kind != predicate.Simple {
		return 0.5
	}
	switch p.Op {
	case "=":
		return 0.1
	case "<", "<=", ">", ">=":
		return 0.3
	case "!=", "<>":
		return 0.9
	default:
		return 0.5
	}
}

func mustParse(s string) *predicate.Predicate {
	p, err := predicate.Parse(s)
	if err != nil {
		return nil
	}
	return p
}

// parseColumnList splits a PROJECTION node's Value on top-level commas into
// its projected column expressions ("*", "t.*", "col", "t.col", "expr AS
// alias").
func parseColumnList(value string) []string {
	var out []string
	depth := 0
	start := 0
	for i, r := range value {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(value[start:i]))
				start = i + 1
			}
		}
	}
	out = append(out, strings.TrimSpace(value[start:]))
	var cleaned []string
	for _, s := range out {
		if s != "" {
			cleaned = append(cleaned, s)
		}
	}
	return cleaned
}

// projectedColumnSet returns the raw set of column tokens a PROJECTION's
// Value names ("*" is kept literal, not expanded).
func projectedColumnSet(value string) map[string]bool {
	set := make(map[string]bool)
	for _, c := range parseColumnList(value) {
		set[strings.ToLower(c)] = true
	}
	return set
}
