// Package resultfmt formats a Dispatcher result for the CLI: query rows,
// a `\d` schema description, a `\dt` table listing, or a `Recover` action
// list, in either a human-readable or a JSON shape — generalized from the
// teacher's output package, which selects a Formatter the same way for a
// schema diff or a migration plan.
package resultfmt

import (
	"fmt"
	"strings"

	"github.com/fathurwithyou/silberdb/internal/types"
	"github.com/fathurwithyou/silberdb/internal/wal"
)

// Format names one of the formatters NewFormatter can build.
type Format string

const (
	FormatHuman Format = "human"
	FormatJSON  Format = "json"
)

// Formatter renders every shape a Dispatcher result can take.
type Formatter interface {
	FormatRows(*types.Rows) (string, error)
	FormatSchema(*types.Schema) (string, error)
	FormatTables([]string) (string, error)
	FormatRecoveryActions([]wal.Action) (string, error)
}

// NewFormatter returns the Formatter named by name. An empty name defaults
// to human.
func NewFormatter(name string) (Formatter, error) {
	format := Format(strings.ToLower(strings.TrimSpace(name)))
	switch format {
	case "", FormatHuman:
		return humanFormatter{}, nil
	case FormatJSON:
		return jsonFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s; use 'human' or 'json'", name)
	}
}

// rowColumns returns the column keys present across rows, sorted, so
// human and JSON output don't jitter between runs of the same query (a
// Row is a map; its key order is not stable). Whatever keys the executor
// actually produced survive unchanged, whether that's "table.column"
// (an unprojected scan) or a projection's bare/renamed column.
func rowColumns(rows *types.Rows) []string {
	seen := map[string]bool{}
	var cols []string
	for _, row := range rows.Values {
		for k := range row {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	sortUnique(cols)
	return cols
}

func sortUnique(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

func cellString(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}
