// Package optimizer drives the rule engine to a fixed point (logical rules,
// then cost-based rules) and provides the recursive cost/cardinality
// estimate spec.md §4.7/§4.8 describe, shared by the cost-based rules and
// the plan scorer.
package optimizer

import (
	"github.com/fathurwithyou/silberdb/internal/cardinality"
	"github.com/fathurwithyou/silberdb/internal/cost"
	"github.com/fathurwithyou/silberdb/internal/predicate"
	"github.com/fathurwithyou/silberdb/internal/types"
)

// StatLookup resolves a table name to its current Statistic, or nil if
// unavailable (spec.md §4.8: table scan costs 1000 when stats are
// unavailable).
type StatLookup func(table string) *types.Stat

// Estimate is one node's cost (abstract units) plus its estimated output
// cardinality and block count, computed bottom-up.
type Estimate struct {
	Cost    float64
	Card    float64
	Blocks  float64
	Blocking float64 // tuples per block, for sort costing
}

// EstimateTree computes Estimate for every node of tree, bottom-up.
func EstimateTree(n *types.Node, stats StatLookup, m *cost.Model) Estimate {
	if n == nil {
		return Estimate{Card: 1, Blocking: 100}
	}
	switch n.Type {
	case types.NodeTable:
		table, _ := tableName(n.Value)
		stat := stats(table)
		if stat == nil || stat.NRows == 0 {
			return Estimate{Cost: m.TableScan(false, 0), Card: 1000, Blocks: 1000, Blocking: 100}
		}
		blocking := float64(stat.Blocking)
		if blocking <= 0 {
			blocking = 100
		}
		return Estimate{
			Cost:     m.TableScan(true, float64(stat.NBlocks)),
			Card:     float64(stat.NRows),
			Blocks:   float64(stat.NBlocks),
			Blocking: blocking,
		}

	case types.NodeSelection:
		child := EstimateTree(firstChild(n), stats, m)
		p, _ := predicate.Parse(n.Value)
		sel := cardinality.Selectivity(p, representativeStat(n, stats))
		card := child.Card * sel
		return Estimate{
			Cost:     m.Selection(child.Cost, child.Card),
			Card:     card,
			Blocks:   scaleBlocks(child.Blocks, child.Card, card),
			Blocking: child.Blocking,
		}

	case types.NodeProjection:
		child := EstimateTree(firstChild(n), stats, m)
		return Estimate{
			Cost:     m.Projection(child.Cost, child.Card),
			Card:     child.Card,
			Blocks:   child.Blocks,
			Blocking: child.Blocking,
		}

	case types.NodeOrderBy:
		child := EstimateTree(firstChild(n), stats, m)
		sortCost := m.ExternalSort(child.Card, child.Blocking)
		return Estimate{Cost: child.Cost + sortCost, Card: child.Card, Blocks: child.Blocks, Blocking: child.Blocking}

	case types.NodeLimit:
		child := EstimateTree(firstChild(n), stats, m)
		lim, ok := parseLimit(n.Value)
		card := child.Card
		if ok && float64(lim) < card {
			card = float64(lim)
		}
		return Estimate{Cost: child.Cost, Card: card, Blocks: scaleBlocks(child.Blocks, child.Card, card), Blocking: child.Blocking}

	case types.NodeJoin, types.NodeThetaJoin, types.NodeNaturalJoin:
		if len(n.Children) != 2 {
			return Estimate{Card: 1, Blocking: 100}
		}
		left := EstimateTree(n.Children[0], stats, m)
		right := EstimateTree(n.Children[1], stats, m)
		p, _ := predicate.Parse(n.Value)
		isEq := n.Type == types.NodeNaturalJoin || cardinality.IsEquijoin(p)
		var card float64
		if isEq {
			card = cardinality.EquijoinCardinality(int(left.Card), int(right.Card), int(left.Card), int(right.Card))
		} else {
			card = cardinality.NonEquijoinCardinality(int(left.Card), int(right.Card))
		}
		totalCost, _ := m.Join(left.Cost, right.Cost, isEq, left.Blocks, right.Blocks, left.Card, right.Card, left.Blocking, right.Blocking)
		return Estimate{Cost: totalCost, Card: card, Blocks: scaleBlocks(left.Blocks+right.Blocks, left.Card+right.Card, card), Blocking: left.Blocking}

	case types.NodeCartesianProduct:
		if len(n.Children) != 2 {
			return Estimate{Card: 1, Blocking: 100}
		}
		left := EstimateTree(n.Children[0], stats, m)
		right := EstimateTree(n.Children[1], stats, m)
		card := cardinality.CartesianCardinality(int(left.Card), int(right.Card))
		return Estimate{
			Cost:     m.Cartesian(left.Cost, right.Cost, left.Card, right.Card),
			Card:     card,
			Blocks:   scaleBlocks(left.Blocks+right.Blocks, left.Card+right.Card, card),
			Blocking: left.Blocking,
		}

	case types.NodeInsert, types.NodeUpdate, types.NodeDelete:
		child := EstimateTree(firstChild(n), stats, m)
		return Estimate{Cost: child.Cost + 5, Card: child.Card, Blocks: child.Blocks, Blocking: child.Blocking}

	default:
		est := Estimate{Card: 1, Blocking: 100}
		for _, c := range n.Children {
			ce := EstimateTree(c, stats, m)
			est.Cost += ce.Cost
			est.Card = ce.Card
			est.Blocks = ce.Blocks
			est.Blocking = ce.Blocking
		}
		return est
	}
}

func firstChild(n *types.Node) *types.Node {
	if len(n.Children) == 0 {
		return nil
	}
	return n.Children[0]
}

func scaleBlocks(blocks, oldCard, newCard float64) float64 {
	if oldCard <= 0 {
		return blocks
	}
	scaled := blocks * (newCard / oldCard)
	if scaled < 1 {
		scaled = 1
	}
	return scaled
}

func tableName(value string) (table, alias string) {
	fields := splitFields(value)
	if len(fields) == 0 {
		return "", ""
	}
	if len(fields) == 1 {
		return fields[0], fields[0]
	}
	return fields[0], fields[1]
}

func splitFields(s string) []string {
	var out []string
	cur := ""
	for _, r := range s {
		if r == ' ' || r == '\t' {
			if cur != "" {
				out = append(out, cur)
				cur = ""
			}
			continue
		}
		cur += string(r)
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}

func parseLimit(value string) (int, bool) {
	n := 0
	any := false
	for _, r := range value {
		if r < '0' || r > '9' {
			if any {
				break
			}
			continue
		}
		any = true
		n = n*10 + int(r-'0')
	}
	return n, any
}

// representativeStat returns the Statistic of the single table a
// SELECTION's subtree scans, when unambiguous, so the cardinality
// estimator can use real min/max/distinct data; returns nil (triggering
// the documented fallback constants) when the selection sits over a join
// or multiple tables.
func representativeStat(n *types.Node, stats StatLookup) *types.Stat {
	var tables []string
	types.Walk(n, func(node *types.Node) {
		if node.Type == types.NodeTable {
			t, _ := tableName(node.Value)
			tables = append(tables, t)
		}
	})
	if len(tables) != 1 {
		return nil
	}
	return stats(tables[0])
}
