package serialize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fathurwithyou/silberdb/internal/types"
)

func testSchema() *types.Schema {
	return &types.Schema{
		Table:      "t",
		PrimaryKey: "id",
		Columns: []*types.Column{
			{Name: "id", Type: types.Integer, PrimaryKey: true},
			{Name: "score", Type: types.Float, Nullable: true},
			{Name: "code", Type: types.Char, MaxLength: 4},
			{Name: "name", Type: types.Varchar, MaxLength: 50, Nullable: true},
		},
	}
}

func TestRoundTrip(t *testing.T) {
	schema := testSchema()
	row := types.Row{"id": int64(1), "score": 3.5, "code": "ab", "name": "hello"}

	enc, err := EncodeRow(schema, row)
	require.NoError(t, err)

	dec, n, err := DecodeRow(schema, enc)
	require.NoError(t, err)
	assert.Equal(t, len(enc), n)
	assert.Equal(t, int64(1), dec["id"])
	assert.Equal(t, 3.5, dec["score"])
	assert.Equal(t, "ab", dec["code"])
	assert.Equal(t, "hello", dec["name"])
}

func TestRoundTripNulls(t *testing.T) {
	schema := testSchema()
	row := types.Row{"id": int64(2), "score": nil, "code": "x", "name": nil}

	enc, err := EncodeRow(schema, row)
	require.NoError(t, err)

	dec, _, err := DecodeRow(schema, enc)
	require.NoError(t, err)
	assert.Nil(t, dec["score"])
	assert.Nil(t, dec["name"])
	assert.Equal(t, "x", dec["code"])
}

func TestCharEmptyStringIsNotConfusedWithNull(t *testing.T) {
	schema := testSchema()
	row := types.Row{"id": int64(3), "score": 1.0, "code": "", "name": "z"}

	enc, err := EncodeRow(schema, row)
	require.NoError(t, err)

	dec, _, err := DecodeRow(schema, enc)
	require.NoError(t, err)
	// Bitmap bit is clear (value was provided), so an all-zero CHAR payload
	// decodes to the empty string, not NULL.
	assert.Equal(t, "", dec["code"])
}

func TestVarcharTruncatesAtEncode(t *testing.T) {
	schema := &types.Schema{Columns: []*types.Column{
		{Name: "name", Type: types.Varchar, MaxLength: 3},
	}}
	row := types.Row{"name": "abcdef"}

	enc, err := EncodeRow(schema, row)
	require.NoError(t, err)

	dec, _, err := DecodeRow(schema, enc)
	require.NoError(t, err)
	assert.Equal(t, "abc", dec["name"])
}

func TestRowsBlockTruncatedReturnsPartial(t *testing.T) {
	schema := testSchema()
	rows := []types.Row{
		{"id": int64(1), "score": 1.0, "code": "a", "name": "x"},
		{"id": int64(2), "score": 2.0, "code": "b", "name": "y"},
	}
	enc, err := EncodeRows(schema, rows)
	require.NoError(t, err)

	truncated := enc[:len(enc)-5]
	decoded := DecodeRows(schema, truncated)
	assert.Len(t, decoded, 1)
}

func TestCalculateRowSize(t *testing.T) {
	schema := testSchema()
	size := CalculateRowSize(schema)
	// bitmap(1) + int(4) + float(8) + char(4) + varchar(2+50)
	assert.Equal(t, 1+4+8+4+52, size)
}

func TestSchemaRoundTrip(t *testing.T) {
	schema := testSchema()
	enc, err := EncodeSchema(schema)
	require.NoError(t, err)

	dec, err := DecodeSchema(enc)
	require.NoError(t, err)
	assert.Equal(t, schema.Table, dec.Table)
	assert.Len(t, dec.Columns, len(schema.Columns))
}
