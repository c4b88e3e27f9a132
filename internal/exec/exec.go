// Package exec implements the physical operators the optimizer's query
// tree is reduced to (spec.md §4.11): Scan, Selection, Projection, the
// join family, Sort, Limit, and the DML operators. Every operator takes
// its input as *types.Rows and returns *types.Rows, mirroring the teacher's
// Applier.Apply "iterate, check, act, record" shape.
package exec

import (
	"github.com/fathurwithyou/silberdb/internal/ccm"
	"github.com/fathurwithyou/silberdb/internal/storage"
	"github.com/fathurwithyou/silberdb/internal/types"
)

// WAL is the subset of the write-ahead log's contract the DML operators
// use to record a CHANGE record before the Storage Manager commits it.
type WAL interface {
	Append(rec types.LogRecord) error
}

// Executor runs a query tree against one Storage Manager, authorizing
// every table access through a CCM before touching it.
type Executor struct {
	Storage *storage.Manager
	CCM     ccm.Manager
	WAL     WAL // nil is valid: DML runs without logging
}

// New returns an Executor. wal may be nil.
func New(s *storage.Manager, c ccm.Manager, wal WAL) *Executor {
	return &Executor{Storage: s, CCM: c, WAL: wal}
}

// Execute runs node (and its subtree) under txID and returns its result
// rows.
func (e *Executor) Execute(node *types.Node, txID int64) (*types.Rows, error) {
	if node == nil {
		return &types.Rows{}, nil
	}
	switch node.Type {
	case types.NodeTable:
		return e.scan(node, txID)
	case types.NodeSelection:
		return e.selection(node, txID)
	case types.NodeProjection:
		return e.projection(node, txID)
	case types.NodeJoin, types.NodeThetaJoin:
		return e.thetaJoin(node, txID)
	case types.NodeNaturalJoin:
		return e.naturalJoin(node, txID)
	case types.NodeCartesianProduct:
		return e.cartesian(node, txID)
	case types.NodeOrderBy:
		return e.orderBy(node, txID)
	case types.NodeLimit:
		return e.limit(node, txID)
	case types.NodeInsert:
		return e.insert(node, txID)
	case types.NodeUpdate:
		return e.update(node, txID)
	case types.NodeDelete:
		return e.delete(node, txID)
	default:
		return nil, &types.ErrNotImplemented{Feature: string(node.Type)}
	}
}

func child(n *types.Node, i int) *types.Node {
	if i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

func (e *Executor) childRows(n *types.Node, i int, txID int64) (*types.Rows, error) {
	return e.Execute(child(n, i), txID)
}
