// Package index implements the engine's secondary index: an ordered,
// duplicate-key map from a column value to the list of row-ids that hold
// it (spec §4.4). The name "B+-tree" describes the external contract
// (ordered range queries, on-disk persistence); internally it is kept as a
// sorted slice of entries, which keeps persistence trivial. Key lookup is a
// binary search (O(log n)); Insert and Delete shift the slice (O(n)), and
// Range walks every entry.
package index

import (
	"encoding/json"
	"math"
	"os"
	"sort"
)

// RID is a stable identifier for a row within a table: its index in the
// current physical layout.
type RID int

// entry is one (key, rids) pair kept in sorted key order. Within an entry,
// rids are kept in insertion order (spec: "duplicate keys with distinct
// rids are appended in insertion order").
type entry struct {
	Key  any   `json:"key"`
	RIDs []RID `json:"rids"`
}

// BPlusTree is an ordered map key -> []RID with range-query support.
type BPlusTree struct {
	entries []entry
}

// New returns an empty index.
func New() *BPlusTree {
	return &BPlusTree{}
}

// find returns the slice position of key, and whether it was found.
func (t *BPlusTree) find(key any) (int, bool) {
	i := sort.Search(len(t.entries), func(i int) bool {
		return Compare(t.entries[i].Key, key) >= 0
	})
	if i < len(t.entries) && Compare(t.entries[i].Key, key) == 0 {
		return i, true
	}
	return i, false
}

// Insert adds (key, rid). A duplicate (key, rid) pair is coalesced
// (rejected silently) rather than appended twice; a duplicate key with a
// new rid is appended to that key's rid list in insertion order.
func (t *BPlusTree) Insert(key any, rid RID) {
	i, ok := t.find(key)
	if ok {
		for _, existing := range t.entries[i].RIDs {
			if existing == rid {
				return
			}
		}
		t.entries[i].RIDs = append(t.entries[i].RIDs, rid)
		return
	}
	e := entry{Key: key, RIDs: []RID{rid}}
	t.entries = append(t.entries, entry{})
	copy(t.entries[i+1:], t.entries[i:])
	t.entries[i] = e
}

// Search returns every rid stored under key, or an empty slice if absent.
func (t *BPlusTree) Search(key any) []RID {
	i, ok := t.find(key)
	if !ok {
		return nil
	}
	out := make([]RID, len(t.entries[i].RIDs))
	copy(out, t.entries[i].RIDs)
	return out
}

// Range returns every rid whose key lies in [lo, hi], inclusive on both
// ends. math.Inf(-1) / math.Inf(1) (or nil) act as open-ended sentinels.
// lo > hi returns an empty result.
func (t *BPlusTree) Range(lo, hi any) []RID {
	if lo != nil && hi != nil && Compare(lo, hi) > 0 {
		return nil
	}
	var out []RID
	for _, e := range t.entries {
		if lo != nil && Compare(e.Key, lo) < 0 {
			continue
		}
		if hi != nil && Compare(e.Key, hi) > 0 {
			continue
		}
		out = append(out, e.RIDs...)
	}
	return out
}

// Delete removes a single (key, rid) entry. No-op if absent.
func (t *BPlusTree) Delete(key any, rid RID) {
	i, ok := t.find(key)
	if !ok {
		return
	}
	rids := t.entries[i].RIDs
	for j, r := range rids {
		if r == rid {
			t.entries[i].RIDs = append(rids[:j], rids[j+1:]...)
			break
		}
	}
	if len(t.entries[i].RIDs) == 0 {
		t.entries = append(t.entries[:i], t.entries[i+1:]...)
	}
}

// Len returns the number of distinct keys stored.
func (t *BPlusTree) Len() int { return len(t.entries) }

// onDiskEntry is the JSON-friendly shape persisted to the sidecar file;
// keys are tagged with their Go kind so Load can restore the same dynamic
// type Compare expects.
type onDiskEntry struct {
	KeyKind string `json:"key_kind"`
	Key     any    `json:"key"`
	RIDs    []RID  `json:"rids"`
}

// Persist writes the index to path, preserving all keys, rids, and order.
func (t *BPlusTree) Persist(path string) error {
	out := make([]onDiskEntry, 0, len(t.entries))
	for _, e := range t.entries {
		kind, key := tagKey(e.Key)
		out = append(out, onDiskEntry{KeyKind: kind, Key: key, RIDs: e.RIDs})
	}
	data, err := json.Marshal(out)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Load reads an index previously written by Persist.
func Load(path string) (*BPlusTree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw []onDiskEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	t := New()
	for _, e := range raw {
		key := untagKey(e.KeyKind, e.Key)
		t.entries = append(t.entries, entry{Key: key, RIDs: e.RIDs})
	}
	return t, nil
}

func tagKey(k any) (string, any) {
	switch v := k.(type) {
	case int64:
		return "int", v
	case float64:
		return "float", v
	case string:
		return "string", v
	default:
		return "string", k
	}
}

func untagKey(kind string, raw any) any {
	switch kind {
	case "int":
		if f, ok := raw.(float64); ok {
			return int64(f)
		}
		return raw
	case "float":
		if f, ok := raw.(float64); ok {
			return f
		}
		return raw
	default:
		return raw
	}
}

// Compare implements the natural total order over the engine's scalar
// domain: integers and floats numerically (NaN sorts greater than any
// number, an IEEE-754 total order — spec.md §9 open question #4), strings
// lexicographically by UTF-8 byte order.
func Compare(a, b any) int {
	af, aIsNum := asFloat(a)
	bf, bIsNum := asFloat(b)
	if aIsNum && bIsNum {
		return compareFloat(af, bf)
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		switch {
		case as < bs:
			return -1
		case as > bs:
			return 1
		default:
			return 0
		}
	}
	// Mixed types: numbers sort before strings, a stable arbitrary order.
	if aIsNum && !bIsNum {
		return -1
	}
	if !aIsNum && bIsNum {
		return 1
	}
	return 0
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}

func compareFloat(a, b float64) int {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return 1
	case bNaN:
		return -1
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
