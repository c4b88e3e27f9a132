// Package cardinality implements the selectivity and join-size formulas of
// spec.md §4.7, driven by the per-table Statistic the stats engine
// produces. Conjunctions multiply selectivities under an independence
// assumption; every single-column formula degrades to the documented
// fallback constant when a Statistic has no usable min/max/distinct data
// for the column involved.
package cardinality

import (
	"strings"

	"github.com/fathurwithyou/silberdb/internal/predicate"
	"github.com/fathurwithyou/silberdb/internal/types"
)

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func bareColumn(ref string) string {
	if i := strings.LastIndex(ref, "."); i >= 0 {
		return ref[i+1:]
	}
	return ref
}

// Selectivity estimates the fraction of stat's rows that satisfy p,
// folding AND/OR per the tagged-sum evaluation design (§9.2) and
// multiplying independent conjuncts (§4.7).
func Selectivity(p *predicate.Predicate, stat *types.Stat) float64 {
	if p == nil {
		return 1.0
	}
	switch p.Kind {
	case predicate.And:
		sel := 1.0
		for _, c := range p.Children {
			sel *= Selectivity(c, stat)
		}
		return sel
	case predicate.Or:
		// Inclusion-exclusion is not specified; approximate with the
		// independence-complement identity used for AND, which the spec
		// leaves implicit for OR.
		sel := 0.0
		for _, c := range p.Children {
			sel = sel + Selectivity(c, stat) - sel*Selectivity(c, stat)
		}
		return clamp(sel, 0, 1)
	default:
		return simpleSelectivity(p, stat)
	}
}

func simpleSelectivity(p *predicate.Predicate, stat *types.Stat) float64 {
	col := bareColumn(p.Column)

	switch p.Op {
	case "=":
		if stat == nil || stat.Distinct == nil {
			return 0.1
		}
		v, ok := stat.Distinct[col]
		if !ok || v == 0 {
			return 0.1
		}
		if stat.NRows == 0 {
			return 1.0 / float64(v)
		}
		a := 1.0 / float64(v)
		b := 1.0 / float64(stat.NRows)
		if a > b {
			return a
		}
		return b
	case "!=", "<>":
		if stat == nil || stat.Distinct == nil {
			return 0.9
		}
		v, ok := stat.Distinct[col]
		if !ok || v == 0 {
			return 0.9
		}
		return 1 - 1.0/float64(v)
	case ">", ">=", "<", "<=":
		return rangeSelectivity(p, col, stat)
	case "LIKE":
		lit, _ := p.RHSLit.(string)
		if strings.HasPrefix(lit, "%") && strings.HasSuffix(lit, "%") {
			return 0.20
		}
		return 0.10
	case "IN":
		vals, _ := p.RHSLit.([]any)
		sel := float64(len(vals)) * 0.1
		if sel > 0.5 {
			sel = 0.5
		}
		return sel
	case "IS NULL":
		return 0.05
	case "IS NOT NULL":
		return 0.95
	default:
		return 0.5
	}
}

func rangeSelectivity(p *predicate.Predicate, col string, stat *types.Stat) float64 {
	if stat == nil || stat.Min == nil || stat.Max == nil {
		return 0.33
	}
	min, okMin := stat.Min[col]
	max, okMax := stat.Max[col]
	if !okMin || !okMax || max == min {
		return 0.33
	}
	v, ok := toFloat(p.RHSLit)
	if !ok {
		return 0.33
	}

	switch p.Op {
	case ">":
		return clamp((max-v)/(max-min), 0.01, 0.99)
	case "<":
		return clamp((v-min)/(max-min), 0.01, 0.99)
	case ">=":
		sel := clamp((max-v)/(max-min), 0.01, 0.99)
		return clamp(sel*1.1, 0, 1.0)
	case "<=":
		sel := clamp((v-min)/(max-min), 0.01, 0.99)
		return clamp(sel*1.1, 0, 1.0)
	}
	return 0.33
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// EquijoinCardinality estimates |R join S| for an equijoin on columns whose
// distinct counts are vLeft, vRight (§4.7: |R|·|S| / max(V_R, V_S, 1),
// bounded by [max(|R|,|S|), |R|·|S|]).
func EquijoinCardinality(leftN, rightN, vLeft, vRight int) float64 {
	v := vLeft
	if vRight > v {
		v = vRight
	}
	if v < 1 {
		v = 1
	}
	card := float64(leftN) * float64(rightN) / float64(v)
	lower := float64(leftN)
	if rightN > leftN {
		lower = float64(rightN)
	}
	upper := float64(leftN) * float64(rightN)
	return clamp(card, lower, upper)
}

// NonEquijoinCardinality estimates |R join S| for a non-equijoin theta
// predicate (§4.7: |R|·|S|·0.1).
func NonEquijoinCardinality(leftN, rightN int) float64 {
	return float64(leftN) * float64(rightN) * 0.1
}

// CartesianCardinality is |R|·|S|, with no filtering.
func CartesianCardinality(leftN, rightN int) float64 {
	return float64(leftN) * float64(rightN)
}

// IsEquijoin reports whether p is a single equality comparison between two
// column references (the shape join-size estimation and the sort-merge
// cost path both need to recognize).
func IsEquijoin(p *predicate.Predicate) bool {
	if p == nil {
		return false
	}
	if p.Kind != predicate.Simple {
		return false
	}
	return p.Op == "=" && p.RHSCol != ""
}
