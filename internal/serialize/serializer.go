// Package serialize encodes and decodes rows and schemas to and from the
// engine's on-disk binary layout: a null bitmap followed by per-column
// fixed/variable fields in schema order (spec §4.1).
package serialize

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/fathurwithyou/silberdb/internal/types"
)

// BlockSize is the fixed page/block size the statistics engine and the
// buffer pool both assume.
const BlockSize = 4096

// bitmapLen returns the number of bytes needed for n columns' null bitmap.
func bitmapLen(n int) int {
	return (n + 7) / 8
}

// EncodeRow serializes row against schema: a null bitmap, then each column
// in schema order. VARCHAR values longer than their declared max are
// truncated at encode time; CHAR values are right-padded with 0x00.
func EncodeRow(schema *types.Schema, row types.Row) ([]byte, error) {
	buf := &bytes.Buffer{}
	bitmap := make([]byte, bitmapLen(len(schema.Columns)))

	var body bytes.Buffer
	for i, col := range schema.Columns {
		v, ok := row[col.Name]
		isNull := !ok || v == nil
		if isNull {
			bitmap[i/8] |= 1 << uint(i%8)
		}

		switch col.Type {
		case types.Integer:
			var iv int32
			if !isNull {
				n, err := toInt64(v)
				if err != nil {
					return nil, fmt.Errorf("column %q: %w", col.Name, err)
				}
				iv = int32(n)
			}
			if err := binary.Write(&body, binary.LittleEndian, iv); err != nil {
				return nil, err
			}
		case types.Float:
			var fv float64
			if !isNull {
				f, err := toFloat64(v)
				if err != nil {
					return nil, fmt.Errorf("column %q: %w", col.Name, err)
				}
				fv = f
			}
			if err := binary.Write(&body, binary.LittleEndian, fv); err != nil {
				return nil, err
			}
		case types.Char:
			s := ""
			if !isNull {
				s, _ = v.(string)
			}
			fixed := make([]byte, col.MaxLength)
			copy(fixed, []byte(s))
			body.Write(fixed)
		case types.Varchar:
			s := ""
			if !isNull {
				s, _ = v.(string)
			}
			b := []byte(s)
			if len(b) > col.MaxLength {
				b = b[:col.MaxLength]
			}
			if err := binary.Write(&body, binary.LittleEndian, uint16(len(b))); err != nil {
				return nil, err
			}
			body.Write(b)
		default:
			return nil, fmt.Errorf("column %q: unsupported type %q", col.Name, col.Type)
		}
	}

	buf.Write(bitmap)
	buf.Write(body.Bytes())
	return buf.Bytes(), nil
}

// DecodeRow is the inverse of EncodeRow. A CHAR column whose stored payload
// is all-zero bytes decodes to the empty string when its bitmap bit is
// clear, and to nil when the bitmap bit is set; the bitmap is always
// authoritative (open question #1 in spec.md §9, resolved as "empty string
// is distinct from NULL": NULL comes only from the bitmap, never from an
// all-zero payload).
func DecodeRow(schema *types.Schema, data []byte) (types.Row, int, error) {
	blen := bitmapLen(len(schema.Columns))
	if len(data) < blen {
		return nil, 0, fmt.Errorf("row truncated: need %d bitmap bytes, have %d", blen, len(data))
	}
	bitmap := data[:blen]
	pos := blen

	row := make(types.Row, len(schema.Columns))
	for i, col := range schema.Columns {
		isNull := bitmap[i/8]&(1<<uint(i%8)) != 0

		switch col.Type {
		case types.Integer:
			if pos+4 > len(data) {
				return nil, 0, fmt.Errorf("row truncated at column %q", col.Name)
			}
			iv := int32(binary.LittleEndian.Uint32(data[pos : pos+4]))
			pos += 4
			if !isNull {
				row[col.Name] = int64(iv)
			} else {
				row[col.Name] = nil
			}
		case types.Float:
			if pos+8 > len(data) {
				return nil, 0, fmt.Errorf("row truncated at column %q", col.Name)
			}
			bits := binary.LittleEndian.Uint64(data[pos : pos+8])
			pos += 8
			if !isNull {
				row[col.Name] = math.Float64frombits(bits)
			} else {
				row[col.Name] = nil
			}
		case types.Char:
			if pos+col.MaxLength > len(data) {
				return nil, 0, fmt.Errorf("row truncated at column %q", col.Name)
			}
			raw := data[pos : pos+col.MaxLength]
			pos += col.MaxLength
			if isNull {
				row[col.Name] = nil
			} else {
				row[col.Name] = string(bytes.TrimRight(raw, "\x00"))
			}
		case types.Varchar:
			if pos+2 > len(data) {
				return nil, 0, fmt.Errorf("row truncated at column %q", col.Name)
			}
			n := int(binary.LittleEndian.Uint16(data[pos : pos+2]))
			pos += 2
			if pos+n > len(data) {
				return nil, 0, fmt.Errorf("row truncated at column %q", col.Name)
			}
			raw := data[pos : pos+n]
			pos += n
			if isNull {
				row[col.Name] = nil
			} else {
				row[col.Name] = string(raw)
			}
		default:
			return nil, 0, fmt.Errorf("column %q: unsupported type %q", col.Name, col.Type)
		}
	}
	return row, pos, nil
}

// CalculateRowSize returns the maximum serialized width of a row of schema:
// the bitmap plus each column's fixed/maximum width.
func CalculateRowSize(schema *types.Schema) int {
	size := bitmapLen(len(schema.Columns))
	for _, col := range schema.Columns {
		switch col.Type {
		case types.Integer:
			size += 4
		case types.Float:
			size += 8
		case types.Char:
			size += col.MaxLength
		case types.Varchar:
			size += 2 + col.MaxLength
		}
	}
	return size
}

// EncodeRows serializes a block of rows: a 4-byte count, then for each row
// a 4-byte length and its serialized bytes.
func EncodeRows(schema *types.Schema, rows []types.Row) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(rows))); err != nil {
		return nil, err
	}
	for _, r := range rows {
		enc, err := EncodeRow(schema, r)
		if err != nil {
			return nil, err
		}
		if err := binary.Write(buf, binary.LittleEndian, uint32(len(enc))); err != nil {
			return nil, err
		}
		buf.Write(enc)
	}
	return buf.Bytes(), nil
}

// DecodeRows is the inverse of EncodeRows. If the buffer is truncated
// mid-block it returns as many rows as were successfully decoded instead of
// raising, per spec.md §4.1's failure contract.
func DecodeRows(schema *types.Schema, data []byte) []types.Row {
	if len(data) < 4 {
		return nil
	}
	count := int(binary.LittleEndian.Uint32(data[:4]))
	pos := 4
	rows := make([]types.Row, 0, count)
	for i := 0; i < count; i++ {
		if pos+4 > len(data) {
			return rows
		}
		n := int(binary.LittleEndian.Uint32(data[pos : pos+4]))
		pos += 4
		if pos+n > len(data) {
			return rows
		}
		row, _, err := DecodeRow(schema, data[pos:pos+n])
		if err != nil {
			return rows
		}
		pos += n
		rows = append(rows, row)
	}
	return rows
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case float64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("cannot convert %T to INTEGER", v)
	}
}

func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("cannot convert %T to FLOAT", v)
	}
}
