package exec

import (
	"github.com/fathurwithyou/silberdb/internal/storage"
	"github.com/fathurwithyou/silberdb/internal/types"
)

// scan authorizes and reads an entire table, qualifying every row's keys
// under the node's alias (spec.md §4.11's Scan operator).
func (e *Executor) scan(node *types.Node, txID int64) (*types.Rows, error) {
	return e.scanWith(node, txID, nil)
}

// scanWith is scan with storage-level conditions pushed down (used by the
// Selection operator when it sits directly above a single-table scan and
// can translate a conjunct into an indexable storage.Condition).
func (e *Executor) scanWith(node *types.Node, txID int64, conds []storage.Condition) (*types.Rows, error) {
	table, alias := tableAndAlias(node.Value)
	if err := e.CCM.ValidateObject(txID, table, "READ"); err != nil {
		return nil, &types.AbortError{TxID: txID, Table: table, Action: "READ", Message: err.Error()}
	}

	schema, err := e.Storage.GetTableSchema(table)
	if err != nil {
		return nil, err
	}
	res, err := e.Storage.ReadBuffer(storage.DataRetrieval{Table: table, Conditions: conds})
	if err != nil {
		return nil, err
	}

	qualified := make([]types.Row, len(res.Values))
	for i, row := range res.Values {
		qualified[i] = qualify(row, alias)
	}
	aliasedSchema := schema
	return &types.Rows{Schemas: []*types.Schema{aliasedSchema}, Values: qualified}, nil
}
