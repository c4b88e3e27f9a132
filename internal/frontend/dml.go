package frontend

import (
	"strings"

	"github.com/fathurwithyou/silberdb/internal/types"
)

// parseInsert hand-rolls "INSERT INTO table [(col, ...)] VALUES (v, ...)".
// A missing column list falls back to the target schema's declared column
// order (requires lookup to be non-nil).
func (p *Parser) parseInsert(sql string) (*types.Node, error) {
	src := trimStmt(sql)
	ws := words(src)
	if len(ws) < 2 || !strings.EqualFold(ws[0].text, "INSERT") || !strings.EqualFold(ws[1].text, "INTO") {
		return nil, &types.SyntaxError{Message: "expected INSERT INTO"}
	}
	sc := &scanner{ws: ws, src: src, i: 2}
	if sc.done() {
		return nil, &types.SyntaxError{Message: "INSERT missing a table name"}
	}
	table := sc.take().text

	collistRaw := sc.textUntil(func(w string) bool { return strings.EqualFold(w, "VALUES") })
	if !sc.isKw("VALUES") {
		return nil, &types.SyntaxError{Message: "INSERT missing VALUES"}
	}
	sc.take()
	valuesRaw := sc.textUntil(func(string) bool { return false })

	var cols []string
	if inner, ok := stripParens(collistRaw); ok {
		for _, c := range splitTopLevelCommas(inner) {
			cols = append(cols, strings.TrimSpace(c))
		}
	} else if p.lookup != nil {
		if schema, ok := p.lookup(table); ok {
			for _, c := range schema.Columns {
				cols = append(cols, c.Name)
			}
		}
	}
	if len(cols) == 0 {
		return nil, &types.SyntaxError{Message: "INSERT missing a column list and no schema to infer one from"}
	}

	inner, ok := stripParens(valuesRaw)
	if !ok {
		return nil, &types.SyntaxError{Message: "INSERT VALUES must be parenthesized"}
	}
	var vals []any
	for _, raw := range splitTopLevelCommas(inner) {
		vals = append(vals, parseLiteralToken(raw))
	}

	row, err := p.typedRow(table, cols, vals)
	if err != nil {
		return nil, err
	}
	node := types.NewNode(types.NodeInsert, table)
	node.Meta = row
	return node, nil
}

// parseUpdate hand-rolls "UPDATE table SET col = v, ... [WHERE pred]".
func (p *Parser) parseUpdate(sql string) (*types.Node, error) {
	src := trimStmt(sql)
	ws := words(src)
	if len(ws) < 1 || !strings.EqualFold(ws[0].text, "UPDATE") {
		return nil, &types.SyntaxError{Message: "expected UPDATE"}
	}
	sc := &scanner{ws: ws, src: src, i: 1}
	if sc.done() {
		return nil, &types.SyntaxError{Message: "UPDATE missing a table name"}
	}
	table := sc.take().text
	if !sc.isKw("SET") {
		return nil, &types.SyntaxError{Message: "UPDATE missing SET"}
	}
	sc.take()

	assignRaw := sc.textUntil(func(w string) bool { return strings.EqualFold(w, "WHERE") })
	cols, vals, err := parseAssignments(assignRaw)
	if err != nil {
		return nil, err
	}
	row, err := p.typedRow(table, cols, vals)
	if err != nil {
		return nil, err
	}

	node := types.NewNode(types.NodeUpdate, table)
	node.Meta = row

	if sc.isKw("WHERE") {
		sc.take()
		pred := sc.textUntil(func(string) bool { return false })
		node.Children = []*types.Node{types.NewNode(types.NodeSelection, pred)}
		types.RelinkParents(node)
	}
	return node, nil
}

// parseDelete hand-rolls "DELETE FROM table [WHERE pred]".
func (p *Parser) parseDelete(sql string) (*types.Node, error) {
	src := trimStmt(sql)
	ws := words(src)
	if len(ws) < 2 || !strings.EqualFold(ws[0].text, "DELETE") || !strings.EqualFold(ws[1].text, "FROM") {
		return nil, &types.SyntaxError{Message: "expected DELETE FROM"}
	}
	sc := &scanner{ws: ws, src: src, i: 2}
	if sc.done() {
		return nil, &types.SyntaxError{Message: "DELETE missing a table name"}
	}
	table := sc.take().text
	node := types.NewNode(types.NodeDelete, table)

	if sc.isKw("WHERE") {
		sc.take()
		pred := sc.textUntil(func(string) bool { return false })
		node.Children = []*types.Node{types.NewNode(types.NodeSelection, pred)}
		types.RelinkParents(node)
	}
	return node, nil
}
