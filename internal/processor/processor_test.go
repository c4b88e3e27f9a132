package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fathurwithyou/silberdb/internal/ccm"
	"github.com/fathurwithyou/silberdb/internal/config"
	"github.com/fathurwithyou/silberdb/internal/storage"
)

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	s, err := storage.New(t.TempDir(), 10)
	require.NoError(t, err)
	return New(s, ccm.NewAlwaysAllow(), nil, config.Default())
}

func TestDispatchCreateInsertSelect(t *testing.T) {
	d := newTestDispatcher(t)

	_, err := d.Dispatch("CREATE TABLE users (id INT PRIMARY KEY, name VARCHAR(30))")
	require.NoError(t, err)

	_, err = d.Dispatch("INSERT INTO users (id, name) VALUES (1, 'Alice')")
	require.NoError(t, err)

	res, err := d.Dispatch("SELECT * FROM users WHERE id = 1")
	require.NoError(t, err)
	require.Len(t, res.Rows.Values, 1)
	assert.Equal(t, "Alice", res.Rows.Values[0]["users.name"])
}

func TestDispatchUpdateAndDelete(t *testing.T) {
	d := newTestDispatcher(t)
	_, err := d.Dispatch("CREATE TABLE users (id INT PRIMARY KEY, name VARCHAR(30))")
	require.NoError(t, err)
	_, err = d.Dispatch("INSERT INTO users (id, name) VALUES (1, 'Alice')")
	require.NoError(t, err)

	_, err = d.Dispatch("UPDATE users SET name = 'Bob' WHERE id = 1")
	require.NoError(t, err)

	res, err := d.Dispatch("SELECT * FROM users WHERE id = 1")
	require.NoError(t, err)
	assert.Equal(t, "Bob", res.Rows.Values[0]["users.name"])

	_, err = d.Dispatch("DELETE FROM users WHERE id = 1")
	require.NoError(t, err)

	res, err = d.Dispatch("SELECT * FROM users")
	require.NoError(t, err)
	assert.Empty(t, res.Rows.Values)
}

func TestDispatchExplicitTransaction(t *testing.T) {
	d := newTestDispatcher(t)
	_, err := d.Dispatch("CREATE TABLE users (id INT PRIMARY KEY, name VARCHAR(30))")
	require.NoError(t, err)

	_, err = d.Dispatch("BEGIN")
	require.NoError(t, err)
	assert.True(t, d.InTransaction())

	_, err = d.Dispatch("INSERT INTO users (id, name) VALUES (1, 'Alice')")
	require.NoError(t, err)

	_, err = d.Dispatch("COMMIT")
	require.NoError(t, err)
	assert.False(t, d.InTransaction())

	_, err = d.Dispatch("COMMIT")
	assert.Error(t, err, "committing without an open transaction is a syntax error")
}

func TestDispatchMetaCommands(t *testing.T) {
	d := newTestDispatcher(t)
	_, err := d.Dispatch("CREATE TABLE users (id INT PRIMARY KEY, name VARCHAR(30))")
	require.NoError(t, err)

	res, err := d.Dispatch(`\dt`)
	require.NoError(t, err)
	assert.Equal(t, []string{"users"}, res.Tables)

	res, err = d.Dispatch(`\d users`)
	require.NoError(t, err)
	require.NotNil(t, res.Schema)
	assert.Equal(t, "users", res.Schema.Table)
}

func TestDispatchDDLCreateAndDropIndex(t *testing.T) {
	d := newTestDispatcher(t)
	_, err := d.Dispatch("CREATE TABLE users (id INT PRIMARY KEY, name VARCHAR(30))")
	require.NoError(t, err)

	_, err = d.Dispatch("CREATE INDEX ON users(name)")
	require.NoError(t, err)
	assert.True(t, d.Storage.HasIndex("users", "name"))

	_, err = d.Dispatch("DROP INDEX ON users(name)")
	require.NoError(t, err)
	assert.False(t, d.Storage.HasIndex("users", "name"))
}

func TestDispatchRetriesThenFailsOnPersistentAbort(t *testing.T) {
	s, err := storage.New(t.TempDir(), 10)
	require.NoError(t, err)
	deny := ccm.NewAlwaysAllow()
	d := New(s, deny, nil, config.Default())

	_, err = d.Dispatch("CREATE TABLE users (id INT PRIMARY KEY, name VARCHAR(30))")
	require.NoError(t, err)

	attempts := 0
	deny.Deny = func(int64, string, string) error {
		attempts++
		return assert.AnError
	}

	_, err = d.Dispatch("SELECT * FROM users")
	require.Error(t, err)
	assert.Equal(t, MaxAbortRetries, attempts)
}
