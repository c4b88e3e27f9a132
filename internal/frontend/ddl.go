package frontend

import (
	"strings"

	"github.com/pingcap/tidb/pkg/parser/ast"

	"github.com/fathurwithyou/silberdb/internal/types"
)

// parseCreateTable adapts the teacher's AST-walk (internal/parser/mysql's
// parseColumns/parseConstraints) down from the rich core.Table model to
// this engine's four-datatype, single-PK, single-FK-per-column Schema.
func (p *Parser) parseCreateTable(sql string) (*types.Node, error) {
	stmtNodes, _, err := p.ddl.Parse(sql, "", "")
	if err != nil {
		return nil, &types.SyntaxError{Message: err.Error()}
	}
	for _, stmt := range stmtNodes {
		create, ok := stmt.(*ast.CreateTableStmt)
		if !ok {
			continue
		}
		schema, err := convertCreateTable(create)
		if err != nil {
			return nil, err
		}
		node := types.NewNode(types.NodeCreateTable, schema.Table)
		node.Meta = schema
		return node, nil
	}
	return nil, &types.SyntaxError{Message: "expected a CREATE TABLE statement"}
}

func (p *Parser) parseDropTable(sql string) (*types.Node, error) {
	stmtNodes, _, err := p.ddl.Parse(sql, "", "")
	if err != nil {
		return nil, &types.SyntaxError{Message: err.Error()}
	}
	for _, stmt := range stmtNodes {
		drop, ok := stmt.(*ast.DropTableStmt)
		if !ok {
			continue
		}
		if len(drop.Tables) == 0 {
			return nil, &types.SyntaxError{Message: "DROP TABLE missing a table name"}
		}
		return types.NewNode(types.NodeDropTable, drop.Tables[0].Name.O), nil
	}
	return nil, &types.SyntaxError{Message: "expected a DROP TABLE statement"}
}

func convertCreateTable(stmt *ast.CreateTableStmt) (*types.Schema, error) {
	schema := &types.Schema{Table: stmt.Table.Name.O}
	for _, colDef := range stmt.Cols {
		col, err := convertColumn(colDef)
		if err != nil {
			return nil, err
		}
		schema.Columns = append(schema.Columns, col)
		if col.PrimaryKey {
			schema.PrimaryKey = col.Name
		}
	}
	applyTableConstraints(schema, stmt.Constraints)
	return schema, nil
}

func convertColumn(colDef *ast.ColumnDef) (*types.Column, error) {
	col := &types.Column{
		Name:      colDef.Name.Name.O,
		Type:      mapDataType(colDef.Tp.String()),
		MaxLength: colDef.Tp.GetFlen(),
		Nullable:  true,
	}
	if col.MaxLength < 0 {
		col.MaxLength = 0
	}

	for _, opt := range colDef.Options {
		switch opt.Tp {
		case ast.ColumnOptionNotNull:
			col.Nullable = false
		case ast.ColumnOptionNull:
			col.Nullable = true
		case ast.ColumnOptionPrimaryKey:
			col.PrimaryKey = true
			col.Nullable = false
		case ast.ColumnOptionReference:
			fk, err := convertForeignKey(opt.Refer)
			if err != nil {
				return nil, err
			}
			col.FK = fk
		}
	}
	return col, nil
}

func convertForeignKey(refer *ast.ReferenceDef) (*types.ForeignKey, error) {
	if refer == nil || len(refer.IndexPartSpecifications) == 0 {
		return nil, &types.SchemaError{Entity: "foreign key", Message: "missing referenced column"}
	}
	fk := &types.ForeignKey{
		Table:    refer.Table.Name.O,
		Column:   refer.IndexPartSpecifications[0].Column.Name.O,
		OnDelete: types.ActionNoAction,
		OnUpdate: types.ActionNoAction,
	}
	if refer.OnDelete != nil {
		fk.OnDelete = mapReferentialAction(refer.OnDelete.ReferOpt)
	}
	if refer.OnUpdate != nil {
		fk.OnUpdate = mapReferentialAction(refer.OnUpdate.ReferOpt)
	}
	return fk, nil
}

// applyTableConstraints folds table-level PRIMARY KEY / FOREIGN KEY
// constraints into schema. Unlike the teacher, UNIQUE/INDEX/CHECK/FULLTEXT
// constraints have nowhere to land — this engine's Schema has no field for
// them — so they're intentionally not walked here.
func applyTableConstraints(schema *types.Schema, constraints []*ast.Constraint) {
	for _, c := range constraints {
		switch c.Tp {
		case ast.ConstraintPrimaryKey:
			if len(c.Keys) == 0 {
				continue
			}
			name := c.Keys[0].Column.Name.O
			schema.PrimaryKey = name
			if col := schema.FindColumn(name); col != nil {
				col.PrimaryKey = true
				col.Nullable = false
			}
		case ast.ConstraintForeignKey:
			if len(c.Keys) == 0 || c.Refer == nil || len(c.Refer.IndexPartSpecifications) == 0 {
				continue
			}
			col := schema.FindColumn(c.Keys[0].Column.Name.O)
			if col == nil {
				continue
			}
			fk := &types.ForeignKey{
				Table:    c.Refer.Table.Name.O,
				Column:   c.Refer.IndexPartSpecifications[0].Column.Name.O,
				OnDelete: types.ActionNoAction,
				OnUpdate: types.ActionNoAction,
			}
			if c.Refer.OnDelete != nil {
				fk.OnDelete = mapReferentialAction(c.Refer.OnDelete.ReferOpt)
			}
			if c.Refer.OnUpdate != nil {
				fk.OnUpdate = mapReferentialAction(c.Refer.OnUpdate.ReferOpt)
			}
			col.FK = fk
		}
	}
}

// mapDataType collapses a raw tidb column type string down to the
// engine's four DataType constants, the same substring-containment idiom
// core.NormalizeDataType uses (varchar is checked before char, since
// "varchar" itself contains "char").
func mapDataType(raw string) types.DataType {
	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "varchar"):
		return types.Varchar
	case strings.Contains(lower, "char"):
		return types.Char
	case strings.Contains(lower, "int"):
		return types.Integer
	case strings.Contains(lower, "float"), strings.Contains(lower, "double"), strings.Contains(lower, "decimal"), strings.Contains(lower, "real"):
		return types.Float
	default:
		return types.Varchar
	}
}

func mapReferentialAction(opt ast.ReferOptionType) types.ReferentialAction {
	switch opt.String() {
	case "RESTRICT":
		return types.ActionRestrict
	case "CASCADE":
		return types.ActionCascade
	case "SET NULL":
		return types.ActionSetNull
	default:
		return types.ActionNoAction
	}
}

// parseCreateIndex and parseDropIndex hand-roll "<LEAD> ON table(column)"
// rather than routing through tidb: unlike CREATE/DROP TABLE, this
// shorthand carries no column types or constraint syntax for a real
// grammar to earn its keep on, and standard DROP INDEX syntax doesn't name
// a column at all while this engine's index model is keyed on (table,
// column) rather than a named index.
func (p *Parser) parseCreateIndex(sql string) (*types.Node, error) {
	table, column, err := parseIndexTarget(sql, "CREATE INDEX")
	if err != nil {
		return nil, err
	}
	return types.NewNode(types.NodeCreateIndex, table+" "+column), nil
}

func (p *Parser) parseDropIndex(sql string) (*types.Node, error) {
	table, column, err := parseIndexTarget(sql, "DROP INDEX")
	if err != nil {
		return nil, err
	}
	return types.NewNode(types.NodeDropIndex, table+" "+column), nil
}

func parseIndexTarget(sql, lead string) (table, column string, err error) {
	src := trimStmt(sql)
	upper := strings.ToUpper(src)
	onIdx := strings.Index(upper, " ON ")
	if onIdx < 0 {
		return "", "", &types.SyntaxError{Message: lead + " expects ... ON table(column)"}
	}
	rest := strings.TrimSpace(src[onIdx+4:])
	open := strings.IndexByte(rest, '(')
	if open < 0 {
		return "", "", &types.SyntaxError{Message: lead + " missing (column)"}
	}
	inner, ok := stripParens(rest[open:])
	if !ok {
		return "", "", &types.SyntaxError{Message: lead + " missing closing )"}
	}
	table = strings.TrimSpace(rest[:open])
	column = strings.TrimSpace(inner)
	if table == "" || column == "" {
		return "", "", &types.SyntaxError{Message: lead + " missing table or column"}
	}
	return table, column, nil
}
