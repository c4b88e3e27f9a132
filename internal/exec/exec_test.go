package exec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fathurwithyou/silberdb/internal/ccm"
	"github.com/fathurwithyou/silberdb/internal/storage"
	"github.com/fathurwithyou/silberdb/internal/types"
)

func usersSchema() *types.Schema {
	return &types.Schema{
		Table:      "users",
		PrimaryKey: "id",
		Columns: []*types.Column{
			{Name: "id", Type: types.Integer, PrimaryKey: true},
			{Name: "name", Type: types.Varchar, MaxLength: 30},
		},
	}
}

func ordersSchema(onDelete types.ReferentialAction) *types.Schema {
	return &types.Schema{
		Table: "orders",
		Columns: []*types.Column{
			{Name: "oid", Type: types.Integer, PrimaryKey: true},
			{Name: "uid", Type: types.Integer, Nullable: true, FK: &types.ForeignKey{Table: "users", Column: "id", OnDelete: onDelete}},
		},
		PrimaryKey: "oid",
	}
}

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	m, err := storage.New(t.TempDir(), 10)
	require.NoError(t, err)
	return New(m, ccm.NewAlwaysAllow(), nil)
}

func TestScanAndSelectionFilters(t *testing.T) {
	e := newTestExecutor(t)
	require.NoError(t, e.Storage.CreateTable(usersSchema()))
	_, err := e.Storage.WriteBuffer(storage.DataWrite{Table: "users", Values: types.Row{"id": int64(1), "name": "a"}})
	require.NoError(t, err)
	_, err = e.Storage.WriteBuffer(storage.DataWrite{Table: "users", Values: types.Row{"id": int64(2), "name": "b"}})
	require.NoError(t, err)

	tree := types.NewNode(types.NodeSelection, "id = 2", types.NewNode(types.NodeTable, "users"))
	rows, err := e.Execute(tree, 1)
	require.NoError(t, err)
	require.Len(t, rows.Values, 1)
	assert.Equal(t, "b", rows.Values[0]["users.name"])
}

func TestProjectionQualifiedColumn(t *testing.T) {
	e := newTestExecutor(t)
	require.NoError(t, e.Storage.CreateTable(usersSchema()))
	_, err := e.Storage.WriteBuffer(storage.DataWrite{Table: "users", Values: types.Row{"id": int64(1), "name": "a"}})
	require.NoError(t, err)

	tree := types.NewNode(types.NodeProjection, "users.name AS n", types.NewNode(types.NodeTable, "users"))
	rows, err := e.Execute(tree, 1)
	require.NoError(t, err)
	require.Len(t, rows.Values, 1)
	assert.Equal(t, "a", rows.Values[0]["n"])
}

func TestThetaJoin(t *testing.T) {
	e := newTestExecutor(t)
	require.NoError(t, e.Storage.CreateTable(usersSchema()))
	require.NoError(t, e.Storage.CreateTable(ordersSchema(types.ActionNoAction)))
	_, err := e.Storage.WriteBuffer(storage.DataWrite{Table: "users", Values: types.Row{"id": int64(1), "name": "a"}})
	require.NoError(t, err)
	_, err = e.Storage.WriteBuffer(storage.DataWrite{Table: "orders", Values: types.Row{"oid": int64(10), "uid": int64(1)}})
	require.NoError(t, err)

	tree := types.NewNode(types.NodeThetaJoin, "users.id = orders.uid",
		types.NewNode(types.NodeTable, "users"), types.NewNode(types.NodeTable, "orders"))
	rows, err := e.Execute(tree, 1)
	require.NoError(t, err)
	require.Len(t, rows.Values, 1)
	assert.Equal(t, int64(10), rows.Values[0]["orders.oid"])
}

func TestInsertThenSelect(t *testing.T) {
	e := newTestExecutor(t)
	require.NoError(t, e.Storage.CreateTable(usersSchema()))

	insertNode := &types.Node{Type: types.NodeInsert, Value: "users", Meta: types.Row{"id": int64(5), "name": "z"}}
	_, err := e.Execute(insertNode, 1)
	require.NoError(t, err)

	tree := types.NewNode(types.NodeTable, "users")
	rows, err := e.Execute(tree, 1)
	require.NoError(t, err)
	require.Len(t, rows.Values, 1)
	assert.Equal(t, "z", rows.Values[0]["users.name"])
}

func TestDeleteCascade(t *testing.T) {
	e := newTestExecutor(t)
	require.NoError(t, e.Storage.CreateTable(usersSchema()))
	require.NoError(t, e.Storage.CreateTable(ordersSchema(types.ActionCascade)))
	_, err := e.Storage.WriteBuffer(storage.DataWrite{Table: "users", Values: types.Row{"id": int64(1), "name": "a"}})
	require.NoError(t, err)
	_, err = e.Storage.WriteBuffer(storage.DataWrite{Table: "orders", Values: types.Row{"oid": int64(10), "uid": int64(1)}})
	require.NoError(t, err)

	whereNode := &types.Node{Type: types.NodeSelection, Value: "id = 1"}
	deleteNode := &types.Node{Type: types.NodeDelete, Value: "users", Children: []*types.Node{whereNode}}
	n, err := e.Execute(deleteNode, 1)
	require.NoError(t, err)
	assert.Len(t, n.Values, 1)

	remaining, err := e.Storage.ReadBuffer(storage.DataRetrieval{Table: "orders"})
	require.NoError(t, err)
	assert.Empty(t, remaining.Values, "cascading delete should have removed the referencing order")
}

func TestDeleteRestrictBlocksWhenReferenced(t *testing.T) {
	e := newTestExecutor(t)
	require.NoError(t, e.Storage.CreateTable(usersSchema()))
	require.NoError(t, e.Storage.CreateTable(ordersSchema(types.ActionRestrict)))
	_, err := e.Storage.WriteBuffer(storage.DataWrite{Table: "users", Values: types.Row{"id": int64(1), "name": "a"}})
	require.NoError(t, err)
	_, err = e.Storage.WriteBuffer(storage.DataWrite{Table: "orders", Values: types.Row{"oid": int64(10), "uid": int64(1)}})
	require.NoError(t, err)

	whereNode := &types.Node{Type: types.NodeSelection, Value: "id = 1"}
	deleteNode := &types.Node{Type: types.NodeDelete, Value: "users", Children: []*types.Node{whereNode}}
	_, err = e.Execute(deleteNode, 1)
	assert.Error(t, err)
}

func TestDeleteSetNullTouchesEveryDeletedParent(t *testing.T) {
	e := newTestExecutor(t)
	require.NoError(t, e.Storage.CreateTable(usersSchema()))
	require.NoError(t, e.Storage.CreateTable(ordersSchema(types.ActionSetNull)))
	_, err := e.Storage.WriteBuffer(storage.DataWrite{Table: "users", Values: types.Row{"id": int64(1), "name": "a"}})
	require.NoError(t, err)
	_, err = e.Storage.WriteBuffer(storage.DataWrite{Table: "users", Values: types.Row{"id": int64(2), "name": "b"}})
	require.NoError(t, err)
	_, err = e.Storage.WriteBuffer(storage.DataWrite{Table: "orders", Values: types.Row{"oid": int64(10), "uid": int64(1)}})
	require.NoError(t, err)
	_, err = e.Storage.WriteBuffer(storage.DataWrite{Table: "orders", Values: types.Row{"oid": int64(11), "uid": int64(2)}})
	require.NoError(t, err)

	deleteNode := &types.Node{Type: types.NodeDelete, Value: "users"}
	n, err := e.Execute(deleteNode, 1)
	require.NoError(t, err)
	assert.Len(t, n.Values, 2)

	remaining, err := e.Storage.ReadBuffer(storage.DataRetrieval{Table: "orders"})
	require.NoError(t, err)
	require.Len(t, remaining.Values, 2)
	for _, row := range remaining.Values {
		assert.Nil(t, row["uid"], "every dependent of a deleted parent must be nulled, not just the first")
	}
}

func TestProjectionNarrowsSchemas(t *testing.T) {
	e := newTestExecutor(t)
	require.NoError(t, e.Storage.CreateTable(usersSchema()))
	_, err := e.Storage.WriteBuffer(storage.DataWrite{Table: "users", Values: types.Row{"id": int64(1), "name": "a"}})
	require.NoError(t, err)

	tree := types.NewNode(types.NodeProjection, "users.name", types.NewNode(types.NodeTable, "users"))
	rows, err := e.Execute(tree, 1)
	require.NoError(t, err)
	require.Len(t, rows.Schemas, 1)
	require.Len(t, rows.Schemas[0].Columns, 1)
	assert.Equal(t, "name", rows.Schemas[0].Columns[0].Name)
}

func TestLimitRejectsMalformedValue(t *testing.T) {
	e := newTestExecutor(t)
	require.NoError(t, e.Storage.CreateTable(usersSchema()))

	tree := types.NewNode(types.NodeLimit, "nope", types.NewNode(types.NodeTable, "users"))
	_, err := e.Execute(tree, 1)
	require.Error(t, err)
	var syntaxErr *types.SyntaxError
	assert.ErrorAs(t, err, &syntaxErr)
}

func TestLimitRejectsMalformedOffset(t *testing.T) {
	e := newTestExecutor(t)
	require.NoError(t, e.Storage.CreateTable(usersSchema()))

	tree := types.NewNode(types.NodeLimit, "5 OFFSET nope", types.NewNode(types.NodeTable, "users"))
	_, err := e.Execute(tree, 1)
	require.Error(t, err)
	var syntaxErr *types.SyntaxError
	assert.ErrorAs(t, err, &syntaxErr)
}

func TestScanDeniedByCCMAborts(t *testing.T) {
	e := newTestExecutor(t)
	require.NoError(t, e.Storage.CreateTable(usersSchema()))
	deny := ccm.NewAlwaysAllow()
	deny.Deny = func(int64, string, string) error { return assert.AnError }
	e.CCM = deny

	tree := types.NewNode(types.NodeTable, "users")
	_, err := e.Execute(tree, 1)
	require.Error(t, err)
	var abortErr *types.AbortError
	assert.ErrorAs(t, err, &abortErr)
}
