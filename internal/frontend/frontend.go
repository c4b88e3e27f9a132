// Package frontend turns SQL text into the engine's Query Tree (spec.md
// §4.12). DDL that carries real grammar worth reusing — CREATE/DROP
// TABLE's column types, constraint syntax, and FK actions — is parsed with
// the real tidb grammar. Everything else (DML, TCL, and the two-column
// CREATE/DROP INDEX shorthand) is split into the tree shape by a small
// hand-rolled statement splitter: spec.md §4.11 has every physical
// operator parse its own value fragment with its own recursive-descent
// parser, and internal/predicate already owns WHERE/ON. Building a full
// tidb AST for DML and then re-stringifying its sub-expressions back into
// fragments for the operators to re-parse would add a layer without
// adding structure.
package frontend

import (
	"strings"

	"github.com/pingcap/tidb/pkg/parser"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"

	"github.com/fathurwithyou/silberdb/internal/types"
)

// SchemaLookup resolves a table's current schema, used to type-convert a
// DML statement's literal tokens against their declared column type before
// they land in a node's Meta (the same division of labor CREATE_TABLE's
// Meta uses, except here the frontend does the converting instead of
// deferring it).
type SchemaLookup func(table string) (*types.Schema, bool)

// Parser turns one SQL statement into a query tree node.
type Parser struct {
	ddl    *parser.Parser
	lookup SchemaLookup
}

// New returns a Parser. lookup may be nil, in which case INSERT/UPDATE
// leave every literal as its raw parsed form (string/int64/float64/nil)
// instead of converting it to the target column's declared type.
func New(lookup SchemaLookup) *Parser {
	return &Parser{ddl: parser.New(), lookup: lookup}
}

// Validate reports whether sql is syntactically well-formed DDL, without
// building a query tree. Nothing else in the repository calls it.
func (p *Parser) Validate(sql string) error {
	if _, _, err := p.ddl.Parse(sql, "", ""); err != nil {
		return &types.SyntaxError{Message: err.Error()}
	}
	return nil
}

// StatementKind classifies a statement's leading keyword(s) without
// parsing the rest of it.
type StatementKind string

const (
	KindSelect      StatementKind = "SELECT"
	KindInsert      StatementKind = "INSERT"
	KindUpdate      StatementKind = "UPDATE"
	KindDelete      StatementKind = "DELETE"
	KindCreateTable StatementKind = "CREATE_TABLE"
	KindDropTable   StatementKind = "DROP_TABLE"
	KindCreateIndex StatementKind = "CREATE_INDEX"
	KindDropIndex   StatementKind = "DROP_INDEX"
	KindBegin       StatementKind = "BEGIN"
	KindCommit      StatementKind = "COMMIT"
	KindAbort       StatementKind = "ABORT"
	KindMeta        StatementKind = "META" // \dt, \d ...
	KindUnknown     StatementKind = "UNKNOWN"
)

// Classify inspects sql's leading keyword(s) and reports its StatementKind.
func Classify(sql string) StatementKind {
	trimmed := strings.TrimSpace(sql)
	if strings.HasPrefix(trimmed, "\\") {
		return KindMeta
	}
	trimmed = trimStmt(trimmed)
	fields := strings.Fields(strings.ToUpper(trimmed))
	if len(fields) == 0 {
		return KindUnknown
	}
	switch fields[0] {
	case "SELECT":
		return KindSelect
	case "INSERT":
		return KindInsert
	case "UPDATE":
		return KindUpdate
	case "DELETE":
		return KindDelete
	case "CREATE":
		switch {
		case len(fields) > 1 && fields[1] == "TABLE":
			return KindCreateTable
		case len(fields) > 1 && fields[1] == "INDEX":
			return KindCreateIndex
		case len(fields) > 2 && fields[1] == "UNIQUE" && fields[2] == "INDEX":
			return KindCreateIndex
		}
	case "DROP":
		switch {
		case len(fields) > 1 && fields[1] == "TABLE":
			return KindDropTable
		case len(fields) > 1 && fields[1] == "INDEX":
			return KindDropIndex
		}
	case "BEGIN", "START":
		return KindBegin
	case "COMMIT":
		return KindCommit
	case "ABORT", "ROLLBACK":
		return KindAbort
	}
	return KindUnknown
}

// Parse turns one SQL statement into a query tree node.
func (p *Parser) Parse(sql string) (*types.Node, error) {
	switch Classify(sql) {
	case KindCreateTable:
		return p.parseCreateTable(sql)
	case KindDropTable:
		return p.parseDropTable(sql)
	case KindCreateIndex:
		return p.parseCreateIndex(sql)
	case KindDropIndex:
		return p.parseDropIndex(sql)
	case KindSelect:
		return p.parseSelect(sql)
	case KindInsert:
		return p.parseInsert(sql)
	case KindUpdate:
		return p.parseUpdate(sql)
	case KindDelete:
		return p.parseDelete(sql)
	case KindBegin:
		return types.NewNode(types.NodeBeginTransaction, ""), nil
	case KindCommit:
		return types.NewNode(types.NodeCommit, ""), nil
	case KindAbort:
		return types.NewNode(types.NodeAbort, ""), nil
	default:
		return nil, &types.SyntaxError{Message: "unrecognized statement: " + sql}
	}
}

func trimStmt(sql string) string {
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(sql), ";"))
}
