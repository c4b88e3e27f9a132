package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fathurwithyou/silberdb/internal/ccm"
	"github.com/fathurwithyou/silberdb/internal/config"
	"github.com/fathurwithyou/silberdb/internal/storage"
	"github.com/fathurwithyou/silberdb/internal/wal"
)

func newDurableDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	dir := t.TempDir()
	s, err := storage.New(dir, 10)
	require.NoError(t, err)
	w, err := wal.New(dir, 32)
	require.NoError(t, err)
	return New(s, ccm.NewAlwaysAllow(), w, config.Default())
}

func TestRecoverRedoesCommittedInsert(t *testing.T) {
	d := newDurableDispatcher(t)
	_, err := d.Dispatch("CREATE TABLE users (id INT PRIMARY KEY, name VARCHAR(30))")
	require.NoError(t, err)

	_, err = d.Dispatch("BEGIN")
	require.NoError(t, err)
	_, err = d.Dispatch("INSERT INTO users (id, name) VALUES (1, 'Alice')")
	require.NoError(t, err)
	_, err = d.Dispatch("COMMIT")
	require.NoError(t, err)

	// Simulate a crash/restart: clear the in-memory table data (the WAL
	// survives on disk) and replay it.
	rows, err := d.Storage.DeleteBuffer(storage.DataDeletion{Table: "users"})
	require.NoError(t, err)
	require.Equal(t, 1, rows)

	actions, err := d.Recover()
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, "redo", actions[0].Kind)

	res, err := d.Dispatch("SELECT * FROM users")
	require.NoError(t, err)
	require.Len(t, res.Rows.Values, 1)
	assert.Equal(t, "Alice", res.Rows.Values[0]["users.name"])
}

func TestRecoverUndoesInDoubtInsert(t *testing.T) {
	d := newDurableDispatcher(t)
	_, err := d.Dispatch("CREATE TABLE users (id INT PRIMARY KEY, name VARCHAR(30))")
	require.NoError(t, err)

	_, err = d.Dispatch("BEGIN")
	require.NoError(t, err)
	_, err = d.Dispatch("INSERT INTO users (id, name) VALUES (1, 'Alice')")
	require.NoError(t, err)
	// Crash before COMMIT/ROLLBACK: the START/CHANGE records are on disk,
	// but no transaction-outcome record ever lands.

	actions, err := d.Recover()
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, "undo", actions[0].Kind)

	res, err := d.Dispatch("SELECT * FROM users")
	require.NoError(t, err)
	assert.Empty(t, res.Rows.Values, "an in-doubt insert must be rolled back")
}

func TestRecoverKeepsImplicitAutoCommitInsert(t *testing.T) {
	d := newDurableDispatcher(t)
	_, err := d.Dispatch("CREATE TABLE users (id INT PRIMARY KEY, name VARCHAR(30))")
	require.NoError(t, err)

	// No BEGIN: this INSERT runs in its own implicit transaction and
	// returns success before Recover ever runs.
	_, err = d.Dispatch("INSERT INTO users (id, name) VALUES (1, 'Alice')")
	require.NoError(t, err)

	actions, err := d.Recover()
	require.NoError(t, err)
	assert.Empty(t, actions, "a completed auto-commit insert must not be treated as in-doubt")

	res, err := d.Dispatch("SELECT * FROM users")
	require.NoError(t, err)
	require.Len(t, res.Rows.Values, 1)
	assert.Equal(t, "Alice", res.Rows.Values[0]["users.name"])
}

func TestRecoverNoOpWithoutWAL(t *testing.T) {
	s, err := storage.New(t.TempDir(), 10)
	require.NoError(t, err)
	d := New(s, ccm.NewAlwaysAllow(), nil, config.Default())
	actions, err := d.Recover()
	require.NoError(t, err)
	assert.Nil(t, actions)
}
