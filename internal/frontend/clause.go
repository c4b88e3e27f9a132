package frontend

import (
	"strings"

	"github.com/fathurwithyou/silberdb/internal/types"
)

// word is one whitespace-delimited token produced while splitting a
// statement into clauses, tagged with its byte offset into the original
// source so a span of raw text (a predicate, a column list) can be sliced
// out preserving its original casing, spacing, and quoting.
type word struct {
	text string
	pos  int
}

// words splits s on whitespace outside single-quoted strings, the same
// quote-awareness predicate.tokenize uses, but only down to whitespace
// boundaries: clause splitting only needs to find keyword words, not parse
// expressions.
func words(s string) []word {
	var out []word
	inQuote := false
	start := -1
	flush := func(end int) {
		if start >= 0 {
			out = append(out, word{text: s[start:end], pos: start})
			start = -1
		}
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\'' {
			inQuote = !inQuote
		}
		if !inQuote && (c == ' ' || c == '\t' || c == '\n' || c == '\r') {
			flush(i)
			continue
		}
		if start < 0 {
			start = i
		}
	}
	flush(len(s))
	return out
}

// scanner walks a statement's words left to right, letting each clause
// parser consume the raw source text up to the next clause keyword.
type scanner struct {
	ws  []word
	src string
	i   int
}

func (s *scanner) done() bool { return s.i >= len(s.ws) }

func (s *scanner) peek() string {
	if s.done() {
		return ""
	}
	return s.ws[s.i].text
}

func (s *scanner) isKw(kw string) bool { return !s.done() && strings.EqualFold(s.peek(), kw) }

func (s *scanner) take() word {
	w := s.ws[s.i]
	s.i++
	return w
}

// textUntil consumes words until one satisfies stop (or the input ends),
// returning the raw source text spanned, trimmed of surrounding space.
func (s *scanner) textUntil(stop func(string) bool) string {
	if s.done() {
		return ""
	}
	startPos := s.ws[s.i].pos
	endPos := len(s.src)
	for s.i < len(s.ws) {
		if stop(s.ws[s.i].text) {
			endPos = s.ws[s.i].pos
			break
		}
		s.i++
	}
	return strings.TrimSpace(s.src[startPos:endPos])
}

func isClauseKeyword(w string) bool {
	switch strings.ToUpper(w) {
	case "JOIN", "WHERE", "ORDER", "BY", "LIMIT", "ON", "SET", "VALUES", "OFFSET":
		return true
	default:
		return false
	}
}

// parseTableRef reads a "table [alias]" reference off sc, stopping the
// alias lookahead at the next clause keyword.
func parseTableRef(sc *scanner) (table, alias string, err error) {
	if sc.done() {
		return "", "", &types.SyntaxError{Message: "expected a table name"}
	}
	table = sc.take().text
	if !sc.done() && !isClauseKeyword(sc.peek()) {
		alias = sc.take().text
	}
	return table, alias, nil
}

// qualifiedTableValue renders a TABLE node's Value the way exec's
// tableAndAlias expects: "table" alone, or "table alias" when the alias
// differs from the table name.
func qualifiedTableValue(table, alias string) string {
	if alias == "" || strings.EqualFold(alias, table) {
		return table
	}
	return table + " " + alias
}

// stripParens returns s with one layer of surrounding parens removed, or
// ok=false if s isn't parenthesized.
func stripParens(s string) (inner string, ok bool) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return "", false
	}
	return strings.TrimSpace(s[1 : len(s)-1]), true
}

// splitTopLevelCommas splits s on commas outside quotes and parens,
// mirroring exec/projection.go's helper of the same name (duplicated
// rather than imported: it's a few lines and exec is a downstream
// consumer, not a dependency of frontend).
func splitTopLevelCommas(s string) []string {
	var out []string
	depth := 0
	inQuote := false
	start := 0
	for i, r := range s {
		switch {
		case r == '\'':
			inQuote = !inQuote
		case inQuote:
			continue
		case r == '(':
			depth++
		case r == ')':
			depth--
		case r == ',' && depth == 0:
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}
