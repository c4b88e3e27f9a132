package resultfmt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fathurwithyou/silberdb/internal/types"
	"github.com/fathurwithyou/silberdb/internal/wal"
)

func sampleSchema() *types.Schema {
	return &types.Schema{
		Table:      "users",
		PrimaryKey: "id",
		Columns: []*types.Column{
			{Name: "id", Type: types.Integer, PrimaryKey: true},
			{Name: "name", Type: types.Varchar, MaxLength: 30, Nullable: true},
		},
	}
}

func sampleRows() *types.Rows {
	return &types.Rows{
		Schemas: []*types.Schema{sampleSchema()},
		Values: []types.Row{
			{"users.id": int64(1), "users.name": "Alice"},
			{"users.id": int64(2), "users.name": nil},
		},
	}
}

func TestNewFormatterDefaultsToHuman(t *testing.T) {
	f, err := NewFormatter("")
	require.NoError(t, err)
	assert.IsType(t, humanFormatter{}, f)
}

func TestNewFormatterUnknown(t *testing.T) {
	_, err := NewFormatter("xml")
	assert.Error(t, err)
}

func TestHumanFormatRows(t *testing.T) {
	f := humanFormatter{}
	s, err := f.FormatRows(sampleRows())
	require.NoError(t, err)
	assert.Contains(t, s, "Alice")
	assert.Contains(t, s, "NULL")
	assert.Contains(t, s, "(2 row(s))")
}

func TestHumanFormatRowsEmpty(t *testing.T) {
	f := humanFormatter{}
	s, err := f.FormatRows(&types.Rows{})
	require.NoError(t, err)
	assert.Equal(t, "(0 rows)\n", s)
}

func TestHumanFormatSchema(t *testing.T) {
	f := humanFormatter{}
	s, err := f.FormatSchema(sampleSchema())
	require.NoError(t, err)
	assert.Contains(t, s, "users")
	assert.Contains(t, s, "PRIMARY KEY")
}

func TestHumanFormatTables(t *testing.T) {
	f := humanFormatter{}
	s, err := f.FormatTables([]string{"users", "orders"})
	require.NoError(t, err)
	assert.Contains(t, s, "users")
	assert.Contains(t, s, "orders")
}

func TestHumanFormatRecoveryActions(t *testing.T) {
	f := humanFormatter{}
	s, err := f.FormatRecoveryActions([]wal.Action{{Kind: "redo", TxID: 1, Table: "users"}})
	require.NoError(t, err)
	assert.Contains(t, s, "redo")
	assert.Contains(t, s, "users")
}

func TestJSONFormatRows(t *testing.T) {
	f := jsonFormatter{}
	s, err := f.FormatRows(sampleRows())
	require.NoError(t, err)
	assert.Contains(t, s, `"rowCount": 2`)
	assert.Contains(t, s, "Alice")
}

func TestJSONFormatSchema(t *testing.T) {
	f := jsonFormatter{}
	s, err := f.FormatSchema(sampleSchema())
	require.NoError(t, err)
	assert.Contains(t, s, `"table": "users"`)
	assert.Contains(t, s, `"primaryKey": "id"`)
}

func TestJSONFormatRecoveryActions(t *testing.T) {
	f := jsonFormatter{}
	s, err := f.FormatRecoveryActions([]wal.Action{
		{Kind: "redo", TxID: 1, Table: "users"},
		{Kind: "undo", TxID: 2, Table: "orders"},
	})
	require.NoError(t, err)
	assert.Contains(t, s, `"redo": 1`)
	assert.Contains(t, s, `"undo": 1`)
}
