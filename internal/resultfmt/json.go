package resultfmt

import (
	"encoding/json"

	"github.com/fathurwithyou/silberdb/internal/types"
	"github.com/fathurwithyou/silberdb/internal/wal"
)

type jsonFormatter struct{}

type rowsSummary struct {
	RowCount int `json:"rowCount"`
}

type rowsPayload struct {
	Format  string           `json:"format"`
	Summary rowsSummary      `json:"summary"`
	Columns []string         `json:"columns,omitempty"`
	Rows    []map[string]any `json:"rows,omitempty"`
}

type schemaPayload struct {
	Format     string          `json:"format"`
	Table      string          `json:"table,omitempty"`
	PrimaryKey string          `json:"primaryKey,omitempty"`
	Columns    []*types.Column `json:"columns,omitempty"`
}

type tablesPayload struct {
	Format string   `json:"format"`
	Tables []string `json:"tables"`
}

type recoverySummary struct {
	Redo int `json:"redo"`
	Undo int `json:"undo"`
}

type recoveryPayload struct {
	Format  string          `json:"format"`
	Summary recoverySummary `json:"summary"`
	Actions []wal.Action    `json:"actions,omitempty"`
}

type payload interface {
	rowsPayload | schemaPayload | tablesPayload | recoveryPayload
}

func (jsonFormatter) FormatRows(rows *types.Rows) (string, error) {
	p := rowsPayload{Format: string(FormatJSON)}
	if rows != nil {
		p.Columns = rowColumns(rows)
		p.Rows = make([]map[string]any, len(rows.Values))
		for i, row := range rows.Values {
			p.Rows[i] = row
		}
		p.Summary = rowsSummary{RowCount: len(rows.Values)}
	}
	return marshal(p)
}

func (jsonFormatter) FormatSchema(schema *types.Schema) (string, error) {
	p := schemaPayload{Format: string(FormatJSON)}
	if schema != nil {
		p.Table = schema.Table
		p.PrimaryKey = schema.PrimaryKey
		p.Columns = schema.Columns
	}
	return marshal(p)
}

func (jsonFormatter) FormatTables(tables []string) (string, error) {
	return marshal(tablesPayload{Format: string(FormatJSON), Tables: tables})
}

func (jsonFormatter) FormatRecoveryActions(actions []wal.Action) (string, error) {
	p := recoveryPayload{Format: string(FormatJSON), Actions: actions}
	for _, a := range actions {
		switch a.Kind {
		case "redo":
			p.Summary.Redo++
		case "undo":
			p.Summary.Undo++
		}
	}
	return marshal(p)
}

func marshal[T payload](p T) (string, error) {
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}
