// Package wal implements spec.md §4.13: an append-only JSON-lines log of
// LogRecords plus a TOML sidecar recording the last checkpoint's line
// number, and the recovery scan that replays it after a crash.
package wal

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/fathurwithyou/silberdb/internal/types"
)

type meta struct {
	LastCheckpointLine             int     `toml:"last_checkpoint_line"`
	ActiveTransactionsAtCheckpoint []int64 `toml:"active_transactions_at_checkpoint"`
	CreatedAt                      int64   `toml:"created_at"`
}

// Manager owns the log file and its sidecar, buffering appended records up
// to BufferMax before flushing them to disk (mirroring the teacher's
// buffered-writer-then-flush discipline).
type Manager struct {
	mu        sync.Mutex
	logPath   string
	metaPath  string
	bufferMax int
	buffer    []types.LogRecord
	lines     int // records flushed to disk so far, i.e. the file's line count
}

// New returns a Manager rooted at dataDir ("wal.jsonl" / "wal_meta.toml"),
// picking up the on-disk line count of an existing log so a restarted
// engine's next checkpoint still reports an accurate last_checkpoint_line.
func New(dataDir string, bufferMax int) (*Manager, error) {
	if bufferMax <= 0 {
		bufferMax = 32
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, &types.StorageError{Op: "wal-init", Message: err.Error()}
	}
	m := &Manager{
		logPath:   filepath.Join(dataDir, "wal.jsonl"),
		metaPath:  filepath.Join(dataDir, "wal_meta.toml"),
		bufferMax: bufferMax,
	}
	lines, err := m.countLines()
	if err != nil {
		return nil, err
	}
	m.lines = lines
	return m, nil
}

func (m *Manager) countLines() (int, error) {
	f, err := os.Open(m.logPath)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, &types.StorageError{Op: "wal-init", Message: err.Error()}
	}
	defer f.Close()

	n := 0
	r := bufio.NewReader(f)
	for {
		_, err := r.ReadString('\n')
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return 0, &types.StorageError{Op: "wal-init", Message: err.Error()}
		}
		n++
	}
}

// Append buffers rec, flushing to disk once BufferMax records have
// accumulated, or immediately for a COMMIT/ABORT/CHECKPOINT record: spec.md
// §5's durability guarantee requires a COMMIT be durable before the
// statement returns success, and an ABORT be durable before recovery
// begins. Satisfies exec.WAL.
func (m *Manager) Append(rec types.LogRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buffer = append(m.buffer, rec)
	if len(m.buffer) >= m.bufferMax || rec.Type == types.LogCommit || rec.Type == types.LogAbort || rec.Type == types.LogCheckpoint {
		return m.flushLocked()
	}
	return nil
}

// Flush writes every buffered record to disk.
func (m *Manager) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flushLocked()
}

func (m *Manager) flushLocked() error {
	if len(m.buffer) == 0 {
		return nil
	}
	f, err := os.OpenFile(m.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return &types.StorageError{Op: "wal-flush", Message: err.Error()}
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, rec := range m.buffer {
		if err := enc.Encode(rec); err != nil {
			return &types.StorageError{Op: "wal-flush", Message: err.Error()}
		}
	}
	if err := w.Flush(); err != nil {
		return &types.StorageError{Op: "wal-flush", Message: err.Error()}
	}
	m.lines += len(m.buffer)
	m.buffer = nil
	return nil
}

// SaveCheckpoint folds every CHANGE record written by an already-committed
// transaction since the last checkpoint into Storage via redo (spec.md
// §4.13's checkpoint replay step), then appends a CHECKPOINT record and
// records the log's new line count, the currently active transactions, and
// createdAt in the sidecar, so Recover can skip straight past everything
// already known-durable. It returns the redo actions the fold performed.
func (m *Manager) SaveCheckpoint(active []int64, createdAt int64, redo Redo) ([]Action, error) {
	if err := m.Flush(); err != nil {
		return nil, err
	}

	prev := m.readMeta()
	records, err := m.readFrom(prev.LastCheckpointLine)
	if err != nil {
		return nil, err
	}
	committed := map[int64]bool{}
	for _, rec := range records {
		if rec.Type == types.LogCommit {
			committed[rec.TxID] = true
		}
	}
	var actions []Action
	for _, rec := range records {
		if rec.Type != types.LogChange || !committed[rec.TxID] {
			continue
		}
		if err := redo(rec); err != nil {
			return actions, err
		}
		actions = append(actions, Action{Kind: "redo", TxID: rec.TxID, Table: rec.ItemName})
	}

	if err := m.Append(types.LogRecord{Type: types.LogCheckpoint, Timestamp: createdAt, ActiveTransactions: active}); err != nil {
		return actions, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	sidecar := meta{LastCheckpointLine: m.lines, ActiveTransactionsAtCheckpoint: active, CreatedAt: createdAt}
	f, err := os.Create(m.metaPath)
	if err != nil {
		return actions, &types.StorageError{Op: "wal-checkpoint", Message: err.Error()}
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(sidecar); err != nil {
		return actions, &types.StorageError{Op: "wal-checkpoint", Message: err.Error()}
	}
	return actions, nil
}

// readMeta returns the last saved checkpoint sidecar, or the zero value if
// none has been written yet.
func (m *Manager) readMeta() meta {
	var out meta
	if _, err := os.Stat(m.metaPath); err != nil {
		return out
	}
	_, _ = toml.DecodeFile(m.metaPath, &out)
	return out
}

// ReadAll returns every record in the log file, in append order,
// including any not-yet-flushed buffered records.
func (m *Manager) ReadAll() ([]types.LogRecord, error) {
	if err := m.Flush(); err != nil {
		return nil, err
	}
	return m.readFrom(0)
}

// readFrom returns every record past the skip'th line of the log file
// (skip 0 reads from the start), matching the sidecar's line-count-based
// last_checkpoint_line rather than a byte offset.
func (m *Manager) readFrom(skip int) ([]types.LogRecord, error) {
	f, err := os.Open(m.logPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &types.StorageError{Op: "wal-read", Message: err.Error()}
	}
	defer f.Close()

	var out []types.LogRecord
	dec := json.NewDecoder(bufio.NewReader(f))
	line := 0
	for dec.More() {
		var rec types.LogRecord
		if err := dec.Decode(&rec); err != nil {
			return nil, &types.StorageError{Op: "wal-read", Message: err.Error()}
		}
		line++
		if line <= skip {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
