package resultfmt

import (
	"fmt"
	"strings"

	"github.com/fathurwithyou/silberdb/internal/types"
	"github.com/fathurwithyou/silberdb/internal/wal"
)

type humanFormatter struct{}

// FormatRows renders a simple left-aligned, space-padded table, one line
// per row plus a header and a trailing row count.
func (humanFormatter) FormatRows(rows *types.Rows) (string, error) {
	if rows == nil || len(rows.Values) == 0 {
		return "(0 rows)\n", nil
	}
	cols := rowColumns(rows)
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = len(c)
	}
	cells := make([][]string, len(rows.Values))
	for r, row := range rows.Values {
		cells[r] = make([]string, len(cols))
		for i, c := range cols {
			s := cellString(row[c])
			cells[r][i] = s
			if len(s) > widths[i] {
				widths[i] = len(s)
			}
		}
	}

	var sb strings.Builder
	writeRow := func(vals []string) {
		for i, v := range vals {
			if i > 0 {
				sb.WriteString("  ")
			}
			fmt.Fprintf(&sb, "%-*s", widths[i], v)
		}
		sb.WriteByte('\n')
	}
	writeRow(cols)
	for i, w := range widths {
		if i > 0 {
			sb.WriteString("  ")
		}
		sb.WriteString(strings.Repeat("-", w))
	}
	sb.WriteByte('\n')
	for _, row := range cells {
		writeRow(row)
	}
	fmt.Fprintf(&sb, "(%d row(s))\n", len(rows.Values))
	return sb.String(), nil
}

// FormatSchema renders a `\d` table description: the table name, then one
// line per column naming its type, nullability, and key/FK role.
func (humanFormatter) FormatSchema(schema *types.Schema) (string, error) {
	if schema == nil {
		return "", nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Table %q\n", schema.Table)
	for _, c := range schema.Columns {
		typ := string(c.Type)
		if c.Type == types.Varchar || c.Type == types.Char {
			typ = fmt.Sprintf("%s(%d)", typ, c.MaxLength)
		}
		fmt.Fprintf(&sb, "  %-16s %-16s", c.Name, typ)
		if c.Name == schema.PrimaryKey {
			sb.WriteString(" PRIMARY KEY")
		} else if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		if c.FK != nil {
			fmt.Fprintf(&sb, " REFERENCES %s(%s) ON DELETE %s", c.FK.Table, c.FK.Column, c.FK.OnDelete)
		}
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

// FormatTables renders a `\dt` table listing.
func (humanFormatter) FormatTables(tables []string) (string, error) {
	if len(tables) == 0 {
		return "(no tables)\n", nil
	}
	var sb strings.Builder
	sb.WriteString("Tables:\n")
	for _, t := range tables {
		fmt.Fprintf(&sb, "  %s\n", t)
	}
	return sb.String(), nil
}

// FormatRecoveryActions renders the redo/undo actions a Recover pass
// performed, in the order it performed them.
func (humanFormatter) FormatRecoveryActions(actions []wal.Action) (string, error) {
	if len(actions) == 0 {
		return "No recovery actions were necessary.\n", nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Recovery: %d action(s)\n", len(actions))
	for _, a := range actions {
		fmt.Fprintf(&sb, "  %s transaction %d on %q\n", a.Kind, a.TxID, a.Table)
	}
	return sb.String(), nil
}
