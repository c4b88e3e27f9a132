package frontend

import (
	"strings"

	"github.com/fathurwithyou/silberdb/internal/types"
)

// parseSelect hand-rolls "SELECT <list> FROM <table> [<alias>]
// [JOIN <table> [<alias>] ON <pred>]* [WHERE <pred>] [ORDER BY <cols>]
// [LIMIT <n> [OFFSET <m>]]" into the matching operator chain (spec.md
// §4.11's TABLE -> JOIN* -> SELECTION -> PROJECTION -> ORDER_BY -> LIMIT
// shape), the grammar subset this engine supports.
func (p *Parser) parseSelect(sql string) (*types.Node, error) {
	src := trimStmt(sql)
	ws := words(src)
	if len(ws) == 0 || !strings.EqualFold(ws[0].text, "SELECT") {
		return nil, &types.SyntaxError{Message: "expected SELECT"}
	}
	sc := &scanner{ws: ws, src: src, i: 1}

	collist := sc.textUntil(func(w string) bool { return strings.EqualFold(w, "FROM") })
	if collist == "" {
		return nil, &types.SyntaxError{Message: "SELECT missing a column list"}
	}
	if !sc.isKw("FROM") {
		return nil, &types.SyntaxError{Message: "SELECT missing FROM"}
	}
	sc.take()

	table, alias, err := parseTableRef(sc)
	if err != nil {
		return nil, err
	}
	tree := types.NewNode(types.NodeTable, qualifiedTableValue(table, alias))

	for sc.isKw("JOIN") {
		sc.take()
		jTable, jAlias, err := parseTableRef(sc)
		if err != nil {
			return nil, err
		}
		if !sc.isKw("ON") {
			return nil, &types.SyntaxError{Message: "JOIN missing ON"}
		}
		sc.take()
		pred := sc.textUntil(func(w string) bool {
			switch strings.ToUpper(w) {
			case "JOIN", "WHERE", "ORDER", "LIMIT":
				return true
			default:
				return false
			}
		})
		right := types.NewNode(types.NodeTable, qualifiedTableValue(jTable, jAlias))
		tree = types.NewNode(types.NodeThetaJoin, pred, tree, right)
	}

	if sc.isKw("WHERE") {
		sc.take()
		pred := sc.textUntil(func(w string) bool {
			return strings.EqualFold(w, "ORDER") || strings.EqualFold(w, "LIMIT")
		})
		tree = types.NewNode(types.NodeSelection, pred, tree)
	}

	out := types.NewNode(types.NodeProjection, collist, tree)

	if sc.isKw("ORDER") {
		sc.take()
		if !sc.isKw("BY") {
			return nil, &types.SyntaxError{Message: "ORDER missing BY"}
		}
		sc.take()
		cols := sc.textUntil(func(w string) bool { return strings.EqualFold(w, "LIMIT") })
		out = types.NewNode(types.NodeOrderBy, cols, out)
	}

	if sc.isKw("LIMIT") {
		sc.take()
		limitVal := sc.textUntil(func(string) bool { return false })
		out = types.NewNode(types.NodeLimit, limitVal, out)
	}

	return out, nil
}
