package serialize

import (
	"encoding/json"

	"github.com/fathurwithyou/silberdb/internal/types"
)

// EncodeSchema serializes a schema to bytes. Any stable format that
// round-trips all fields (including the foreign-key action enums) satisfies
// spec.md §4.1; JSON is used here since schema files are small and read
// rarely compared to row data, where the fixed binary layout matters for
// the blocking-factor arithmetic.
func EncodeSchema(schema *types.Schema) ([]byte, error) {
	return json.Marshal(schema)
}

// DecodeSchema is the inverse of EncodeSchema.
func DecodeSchema(data []byte) (*types.Schema, error) {
	var schema types.Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, err
	}
	return &schema, nil
}
