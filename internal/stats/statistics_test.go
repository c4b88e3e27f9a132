package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fathurwithyou/silberdb/internal/types"
)

func TestComputeEmptyTable(t *testing.T) {
	schema := &types.Schema{Columns: []*types.Column{{Name: "id", Type: types.Integer}}}
	st := Compute(schema, nil)
	assert.Equal(t, 0, st.NRows)
	assert.Equal(t, 0, st.NBlocks)
	assert.Equal(t, 0, st.Distinct["id"])
}

func TestComputeIdentities(t *testing.T) {
	schema := &types.Schema{Columns: []*types.Column{
		{Name: "id", Type: types.Integer},
		{Name: "name", Type: types.Varchar, MaxLength: 20},
	}}
	var rows []types.Row
	for i := 0; i < 500; i++ {
		rows = append(rows, types.Row{"id": int64(i % 50), "name": "x"})
	}
	st := Compute(schema, rows)

	assert.LessOrEqual(t, st.Blocking*st.RowLen, 4096)
	if st.Blocking > 0 {
		assert.Equal(t, ceilDiv(500, st.Blocking), st.NBlocks)
	}
	assert.Equal(t, 50, st.Distinct["id"])
	assert.Equal(t, 1, st.Distinct["name"])
}

func TestComputeMinMaxOnlyNumeric(t *testing.T) {
	schema := &types.Schema{Columns: []*types.Column{
		{Name: "id", Type: types.Integer},
		{Name: "label", Type: types.Varchar, MaxLength: 10},
	}}
	rows := []types.Row{{"id": int64(5), "label": "a"}, {"id": int64(1), "label": "b"}}
	st := Compute(schema, rows)

	assert.NotNil(t, st.Min)
	assert.Equal(t, 1.0, st.Min["id"])
	assert.Equal(t, 5.0, st.Max["id"])
	_, ok := st.Min["label"]
	assert.False(t, ok)
}

func TestComputeNullsOnlyWhenPresent(t *testing.T) {
	schema := &types.Schema{Columns: []*types.Column{{Name: "x", Type: types.Integer, Nullable: true}}}
	rows := []types.Row{{"x": int64(1)}, {"x": nil}}
	st := Compute(schema, rows)
	assert.Equal(t, 1, st.Nulls["x"])

	rowsNoNulls := []types.Row{{"x": int64(1)}}
	st2 := Compute(schema, rowsNoNulls)
	assert.Nil(t, st2.Nulls)
}
