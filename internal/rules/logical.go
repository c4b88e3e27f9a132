package rules

import (
	"strings"

	"github.com/fathurwithyou/silberdb/internal/predicate"
	"github.com/fathurwithyou/silberdb/internal/types"
)

func isJoinLike(t types.NodeType) bool {
	return t == types.NodeJoin || t == types.NodeThetaJoin || t == types.NodeNaturalJoin || t == types.NodeCartesianProduct
}

// selectionDecomposition splits σ_{a AND b}(X) → σ_a(σ_b(X)) on top-level
// AND only.
type selectionDecomposition struct{}

func (selectionDecomposition) Name() string { return "selection-decomposition" }

func (selectionDecomposition) IsApplicable(n *types.Node) bool {
	if n.Type != types.NodeSelection {
		return false
	}
	p := mustParse(n.Value)
	return p != nil && p.Kind == predicate.And
}

func (selectionDecomposition) Apply(n *types.Node) *types.Node {
	p := mustParse(n.Value)
	parts := p.SplitAnd()
	if len(parts) < 2 {
		return nil
	}
	cur := n.Children[0]
	for i := len(parts) - 1; i >= 0; i-- {
		cur = types.NewNode(types.NodeSelection, parts[i].String(), cur)
	}
	return cur
}

// selectionCommutativity swaps σ_a(σ_b(X)) → σ_b(σ_a(X)) when the
// syntactic selectivity heuristic says b is more selective than a.
type selectionCommutativity struct{}

func (selectionCommutativity) Name() string { return "selection-commutativity" }

func (selectionCommutativity) IsApplicable(n *types.Node) bool {
	if n.Type != types.NodeSelection || len(n.Children) != 1 {
		return false
	}
	return n.Children[0].Type == types.NodeSelection
}

func (selectionCommutativity) Apply(n *types.Node) *types.Node {
	a := mustParse(n.Value)
	inner := n.Children[0]
	b := mustParse(inner.Value)
	if a == nil || b == nil {
		return nil
	}
	if !(syntacticSelectivity(b) < syntacticSelectivity(a)) {
		return nil
	}
	x := inner.Children[0]
	return types.NewNode(types.NodeSelection, b.String(), types.NewNode(types.NodeSelection, a.String(), x))
}

// selectionOverCartesianToThetaJoin turns σ_θ(R × S) → R ⋈_θ S.
type selectionOverCartesianToThetaJoin struct{}

func (selectionOverCartesianToThetaJoin) Name() string { return "selection-over-cartesian-to-theta-join" }

func (selectionOverCartesianToThetaJoin) IsApplicable(n *types.Node) bool {
	return n.Type == types.NodeSelection && len(n.Children) == 1 && n.Children[0].Type == types.NodeCartesianProduct
}

func (selectionOverCartesianToThetaJoin) Apply(n *types.Node) *types.Node {
	cp := n.Children[0]
	if len(cp.Children) != 2 {
		return nil
	}
	return types.NewNode(types.NodeThetaJoin, n.Value, cp.Children[0], cp.Children[1])
}

// selectionOverJoinMerge turns σ_a(R ⋈_θ S) → R ⋈_{θ ∧ a} S. It only fires
// when a references columns on both sides (an owning-side predicate is
// left to selectionJoinDistribution, which pushes it strictly below the
// join instead of folding it into the join condition).
type selectionOverJoinMerge struct {
	lookup SchemaLookup
}

func newSelectionOverJoinMerge(lookup SchemaLookup) Rule {
	return selectionOverJoinMerge{lookup: lookup}
}

func (selectionOverJoinMerge) Name() string { return "selection-over-join-merge" }

func (r selectionOverJoinMerge) IsApplicable(n *types.Node) bool {
	if n.Type != types.NodeSelection || len(n.Children) != 1 {
		return false
	}
	join := n.Children[0]
	t := join.Type
	if t != types.NodeJoin && t != types.NodeThetaJoin {
		return false
	}
	if len(join.Children) != 2 {
		return false
	}
	p := mustParse(n.Value)
	if p == nil {
		return false
	}
	leftQ, rightQ := qualifiers(join.Children[0]), qualifiers(join.Children[1])
	return owningSide(p, leftQ, rightQ, r.lookup) == 0
}

func (selectionOverJoinMerge) Apply(n *types.Node) *types.Node {
	join := n.Children[0]
	if len(join.Children) != 2 {
		return nil
	}
	merged := n.Value
	if strings.TrimSpace(join.Value) != "" {
		merged = join.Value + " AND " + n.Value
	}
	return types.NewNode(types.NodeThetaJoin, merged, join.Children[0], join.Children[1])
}

// selectionJoinDistribution pushes a selection below a join to the side
// that owns every column it references; predicates touching both sides
// stay above the join (spec.md §4.9, "selection/join distribution").
type selectionJoinDistribution struct {
	lookup SchemaLookup
}

func newSelectionJoinDistribution(lookup SchemaLookup) Rule {
	return selectionJoinDistribution{lookup: lookup}
}

func (selectionJoinDistribution) Name() string { return "selection-join-distribution" }

func (selectionJoinDistribution) IsApplicable(n *types.Node) bool {
	if n.Type != types.NodeSelection || len(n.Children) != 1 {
		return false
	}
	return isJoinLike(n.Children[0].Type) && len(n.Children[0].Children) == 2
}

func (r selectionJoinDistribution) Apply(n *types.Node) *types.Node {
	p := mustParse(n.Value)
	if p == nil {
		return nil
	}
	join := n.Children[0]
	left, right := join.Children[0], join.Children[1]
	leftQ, rightQ := qualifiers(left), qualifiers(right)

	switch owningSide(p, leftQ, rightQ, r.lookup) {
	case -1:
		newLeft := types.NewNode(types.NodeSelection, n.Value, left)
		return types.NewNode(join.Type, join.Value, newLeft, right)
	case 1:
		newRight := types.NewNode(types.NodeSelection, n.Value, right)
		return types.NewNode(join.Type, join.Value, left, newRight)
	default:
		return nil
	}
}

// projectionElimination simplifies π_A(π_B(X)): drop the inner projection
// when A ⊆ B, drop the outer when B ⊆ A, collapse when either side is "*",
// and otherwise keep π_{A∩B} when the intersection is a proper subset of
// both.
type projectionElimination struct{}

func (projectionElimination) Name() string { return "projection-elimination" }

func (projectionElimination) IsApplicable(n *types.Node) bool {
	return n.Type == types.NodeProjection && len(n.Children) == 1 && n.Children[0].Type == types.NodeProjection
}

func (projectionElimination) Apply(n *types.Node) *types.Node {
	inner := n.Children[0]
	a := projectedColumnSet(n.Value)
	b := projectedColumnSet(inner.Value)
	x := inner.Children[0]

	if a["*"] {
		return types.NewNode(types.NodeProjection, inner.Value, x)
	}
	if b["*"] {
		return types.NewNode(types.NodeProjection, n.Value, x)
	}
	if isSubset(a, b) {
		return types.NewNode(types.NodeProjection, n.Value, x)
	}
	if isSubset(b, a) {
		return types.NewNode(types.NodeProjection, inner.Value, x)
	}
	inter := intersectCols(n.Value, inner.Value)
	if inter == "" {
		return nil
	}
	return types.NewNode(types.NodeProjection, inter, x)
}

func isSubset(a, b map[string]bool) bool {
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

func intersectCols(a, b string) string {
	bset := projectedColumnSet(b)
	var out []string
	for _, c := range parseColumnList(a) {
		if bset[strings.ToLower(c)] {
			out = append(out, c)
		}
	}
	return strings.Join(out, ", ")
}

// projectionPushdown propagates required columns into children of
// selection, order-by, limit, and join; for joins it routes columns by
// ownership, always also including columns the join predicate references
// (spec.md §4.9, open question §9.3 for natural joins).
type projectionPushdown struct {
	lookup SchemaLookup
}

func newProjectionPushdown(lookup SchemaLookup) Rule {
	return projectionPushdown{lookup: lookup}
}

func (projectionPushdown) Name() string { return "projection-pushdown" }

func (projectionPushdown) IsApplicable(n *types.Node) bool {
	if n.Type != types.NodeProjection || len(n.Children) != 1 {
		return false
	}
	switch n.Children[0].Type {
	case types.NodeSelection, types.NodeOrderBy, types.NodeLimit:
		return true
	default:
		return isJoinLike(n.Children[0].Type) && len(n.Children[0].Children) == 2
	}
}

func (r projectionPushdown) Apply(n *types.Node) *types.Node {
	child := n.Children[0]
	cols := projectedColumnSet(n.Value)
	if cols["*"] {
		return nil
	}

	switch child.Type {
	case types.NodeSelection, types.NodeOrderBy, types.NodeLimit:
		p := mustParse(selectionColumnsSource(child))
		required := unionCols(n.Value, referencedColumns(child))
		if setsEqual(projectedColumnSet(required), cols) {
			return nil
		}
		newInner := types.NewNode(types.NodeProjection, required, child.Children[0])
		_ = p
		return types.NewNode(child.Type, child.Value, newInner)

	case types.NodeNaturalJoin:
		shared := sharedColumns(child, r.lookup)
		required := unionCols(n.Value, strings.Join(shared, ", "))
		if setsEqual(projectedColumnSet(required), cols) {
			return nil
		}
		return pushIntoJoinSides(child, required, r.lookup)

	default:
		if !isJoinLike(child.Type) {
			return nil
		}
		joinCols := strings.Join((mustParse(child.Value)).Columns(), ", ")
		required := unionCols(n.Value, joinCols)
		if setsEqual(projectedColumnSet(required), cols) {
			return nil
		}
		return pushIntoJoinSides(child, required, r.lookup)
	}
}

func selectionColumnsSource(n *types.Node) string {
	switch n.Type {
	case types.NodeSelection:
		return n.Value
	default:
		return ""
	}
}

func referencedColumns(n *types.Node) string {
	switch n.Type {
	case types.NodeSelection:
		if p := mustParse(n.Value); p != nil {
			return strings.Join(p.Columns(), ", ")
		}
	case types.NodeOrderBy:
		var cols []string
		for _, part := range strings.Split(n.Value, ",") {
			fields := strings.Fields(strings.TrimSpace(part))
			if len(fields) > 0 {
				cols = append(cols, fields[0])
			}
		}
		return strings.Join(cols, ", ")
	}
	return ""
}

func unionCols(a, b string) string {
	set := projectedColumnSet(a)
	var out []string
	out = append(out, parseColumnList(a)...)
	for _, c := range parseColumnList(b) {
		if !set[strings.ToLower(c)] {
			set[strings.ToLower(c)] = true
			out = append(out, c)
		}
	}
	return strings.Join(out, ", ")
}

func setsEqual(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// sharedColumns discovers the bare column names present on both sides of a
// natural join, the set projection pushdown must never drop (§9 open
// question #3).
func sharedColumns(join *types.Node, lookup SchemaLookup) []string {
	if lookup == nil || len(join.Children) != 2 {
		return nil
	}
	leftCols := schemaColumns(join.Children[0], lookup)
	rightCols := schemaColumns(join.Children[1], lookup)
	var shared []string
	for c := range leftCols {
		if rightCols[c] {
			shared = append(shared, c)
		}
	}
	return shared
}

func schemaColumns(n *types.Node, lookup SchemaLookup) map[string]bool {
	out := make(map[string]bool)
	types.Walk(n, func(node *types.Node) {
		if node.Type != types.NodeTable {
			return
		}
		table, _ := tableAndAlias(node.Value)
		if s, ok := lookup(table); ok {
			for _, c := range s.Columns {
				out[strings.ToLower(c.Name)] = true
			}
		}
	})
	return out
}

// pushIntoJoinSides routes each required column into whichever child
// subtree owns it, inserting a PROJECTION above each side. A column that
// cannot be routed to exactly one side is included on both (keeps
// correctness; wider than optimal is allowed).
func pushIntoJoinSides(join *types.Node, required string, lookup SchemaLookup) *types.Node {
	left, right := join.Children[0], join.Children[1]
	leftQ, rightQ := qualifiers(left), qualifiers(right)

	var leftCols, rightCols []string
	for _, c := range parseColumnList(required) {
		q := qualifierOf(c)
		if q == "" {
			q = resolveUnqualified(c, leftQ, rightQ, lookup)
		}
		switch {
		case contains(leftQ, q):
			leftCols = append(leftCols, c)
		case contains(rightQ, q):
			rightCols = append(rightCols, c)
		default:
			leftCols = append(leftCols, c)
			rightCols = append(rightCols, c)
		}
	}
	if len(leftCols) == 0 || len(rightCols) == 0 {
		return nil
	}
	newLeft := types.NewNode(types.NodeProjection, strings.Join(leftCols, ", "), left)
	newRight := types.NewNode(types.NodeProjection, strings.Join(rightCols, ", "), right)
	return types.NewNode(join.Type, join.Value, newLeft, newRight)
}

// ProjectionPushdownRule exposes projectionPushdown for callers outside the
// package (the optimizer's cost-based refinement re-applies it guarded by
// a cost comparison rather than unconditionally).
func ProjectionPushdownRule(lookup SchemaLookup) Rule { return newProjectionPushdown(lookup) }

// LogicalRules returns the always-applied rule set (spec.md §4.9), run to a
// fixed point bottom-up. lookup resolves a table name to its schema for the
// rules that must route columns by ownership.
func LogicalRules(lookup SchemaLookup) []Rule {
	return []Rule{
		selectionDecomposition{},
		selectionCommutativity{},
		selectionOverCartesianToThetaJoin{},
		newSelectionJoinDistribution(lookup),
		newSelectionOverJoinMerge(lookup),
		projectionElimination{},
		newProjectionPushdown(lookup),
	}
}

// JoinCommutativity swaps R ⋈ S → S ⋈ R, subject to a pluggable predicate
// (default: always swap). It is not part of the automatic fixed-point
// registry (swapping would toggle forever); the plan generator invokes it
// directly to synthesize reordering candidates (§4.10).
type JoinCommutativity struct {
	// Allow reports whether swapping node n is permitted; nil means always.
	Allow func(n *types.Node) bool
}

func (JoinCommutativity) Name() string { return "join-commutativity" }

func (r JoinCommutativity) IsApplicable(n *types.Node) bool {
	if !isJoinLike(n.Type) || len(n.Children) != 2 {
		return false
	}
	if r.Allow == nil {
		return true
	}
	return r.Allow(n)
}

func (JoinCommutativity) Apply(n *types.Node) *types.Node {
	return types.NewNode(n.Type, n.Value, n.Children[1], n.Children[0])
}

// JoinAssociativity reshapes a left-deep join into right-deep (or vice
// versa) when the predicate does not reference columns that would cross a
// side the reshape moves (spec.md §4.9). Used by the plan generator's
// bushy-variant candidate, not the automatic fixed-point registry.
type JoinAssociativity struct{ Lookup SchemaLookup }

func (JoinAssociativity) Name() string { return "join-associativity" }

func (r JoinAssociativity) IsApplicable(n *types.Node) bool {
	if !isJoinLike(n.Type) || len(n.Children) != 2 {
		return false
	}
	left := n.Children[0]
	if !isJoinLike(left.Type) || len(left.Children) != 2 {
		return false
	}
	// (A join B) join C -> A join (B join C) is safe only when n's own
	// predicate does not reference A's qualifiers (it would otherwise be
	// orphaned above a subtree that no longer contains A).
	p := mustParse(n.Value)
	if p == nil {
		return true
	}
	aQ := qualifiers(left.Children[0])
	for _, c := range p.Columns() {
		q := qualifierOf(c)
		if q != "" && contains(aQ, q) {
			return false
		}
	}
	return true
}

func (r JoinAssociativity) Apply(n *types.Node) *types.Node {
	left := n.Children[0]
	a, b, c := left.Children[0], left.Children[1], n.Children[1]
	inner := types.NewNode(left.Type, left.Value, b, c)
	return types.NewNode(n.Type, n.Value, a, inner)
}
