// Package cost implements spec.md §4.8's cost model: abstract cost units
// relative to one sequential-block read, combining block-level I/O costs
// with per-tuple/per-predicate CPU costs from the engine's EngineConfig.
package cost

import (
	"math"

	"github.com/fathurwithyou/silberdb/internal/config"
)

// Model evaluates node costs against one EngineConfig's tunables.
type Model struct {
	cfg *config.EngineConfig
}

// New returns a Model bound to cfg.
func New(cfg *config.EngineConfig) *Model {
	return &Model{cfg: cfg}
}

// TableScan costs b_r sequential blocks, or the documented 1000 fallback
// when blocks is unknown (stats unavailable).
func (m *Model) TableScan(blocksKnown bool, blocks float64) float64 {
	if !blocksKnown {
		return 1000
	}
	return blocks
}

// Selection adds the per-tuple CPU cost of evaluating the predicate over
// the child's output.
func (m *Model) Selection(childCost, inputCard float64) float64 {
	return childCost + inputCard*m.cfg.CPUPerPredicate
}

// Projection adds half the per-predicate CPU cost per input row (§4.8: 5·10⁻⁵).
func (m *Model) Projection(childCost, inputCard float64) float64 {
	return childCost + inputCard*5e-5
}

// NestedLoop costs |L_blocks| · |R_blocks|.
func (m *Model) NestedLoop(leftBlocks, rightBlocks float64) float64 {
	return leftBlocks * rightBlocks
}

// HashJoin costs L_blocks + R_blocks + (|L|+|R|)·10⁻³, or +Inf when the
// left (build) side does not fit the buffer pool budget.
func (m *Model) HashJoin(leftBlocks, rightBlocks, leftCard, rightCard float64) float64 {
	if leftBlocks > 0.8*float64(m.cfg.BufferPoolSize) {
		return math.Inf(1)
	}
	return leftBlocks + rightBlocks + (leftCard+rightCard)*m.cfg.CPUPerTuple
}

// ExternalSort costs an external-merge-sort of n tuples with f tuples per
// block (§4.8): 2·⌈n/f⌉ blocks if the run fits the buffer pool in one
// pass, else 2·⌈n/f⌉·p merge passes where p = ⌈log_{buffer-1}(runs/buffer)⌉.
func (m *Model) ExternalSort(n, f float64) float64 {
	if f <= 0 {
		f = 1
	}
	runs := math.Ceil(n / f)
	buf := float64(m.cfg.BufferPoolSize)
	if runs <= buf {
		return 2 * runs
	}
	base := buf - 1
	if base <= 1 {
		base = 2
	}
	p := math.Ceil(math.Log(runs/buf) / math.Log(base))
	if p < 1 {
		p = 1
	}
	return 2 * runs * p
}

// SortMerge costs sorting both inputs (external sort) plus one sequential
// merge pass over their blocks. Callers must only call this for an
// equijoin predicate (§4.8).
func (m *Model) SortMerge(leftN, leftF, rightN, rightF, leftBlocks, rightBlocks float64) float64 {
	return m.ExternalSort(leftN, leftF) + m.ExternalSort(rightN, rightF) + leftBlocks + rightBlocks
}

// Cartesian costs left + right + |L|·|R|·10·10⁻³ (random-read-scaled
// per-pair cost, §4.8).
func (m *Model) Cartesian(leftCost, rightCost, leftCard, rightCard float64) float64 {
	return leftCost + rightCost + leftCard*rightCard*10*1e-3
}

// JoinAlgorithmCosts bundles the three candidate algorithm costs the join
// node minimizes over, so callers (the cost-based join-reordering rule,
// the plan scorer) can see which one won.
type JoinAlgorithmCosts struct {
	NestedLoop float64
	HashJoin   float64
	SortMerge  float64 // +Inf when the predicate is not an equijoin
}

// Min returns the cheapest of the three algorithms.
func (c JoinAlgorithmCosts) Min() float64 {
	min := c.NestedLoop
	if c.HashJoin < min {
		min = c.HashJoin
	}
	if c.SortMerge < min {
		min = c.SortMerge
	}
	return min
}

// Join costs left + right + the cheapest applicable join algorithm.
func (m *Model) Join(leftCost, rightCost float64, isEquijoin bool, leftBlocks, rightBlocks, leftCard, rightCard, leftF, rightF float64) (float64, JoinAlgorithmCosts) {
	algos := JoinAlgorithmCosts{
		NestedLoop: m.NestedLoop(leftBlocks, rightBlocks),
		HashJoin:   m.HashJoin(leftBlocks, rightBlocks, leftCard, rightCard),
		SortMerge:  math.Inf(1),
	}
	if isEquijoin {
		algos.SortMerge = m.SortMerge(leftCard, leftF, rightCard, rightF, leftBlocks, rightBlocks)
	}
	return leftCost + rightCost + algos.Min(), algos
}
