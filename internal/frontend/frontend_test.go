package frontend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fathurwithyou/silberdb/internal/types"
)

func usersSchema() *types.Schema {
	return &types.Schema{
		Table:      "users",
		PrimaryKey: "id",
		Columns: []*types.Column{
			{Name: "id", Type: types.Integer, PrimaryKey: true},
			{Name: "name", Type: types.Varchar, MaxLength: 64, Nullable: true},
		},
	}
}

func lookupFor(schemas ...*types.Schema) SchemaLookup {
	return func(table string) (*types.Schema, bool) {
		for _, s := range schemas {
			if s.Table == table {
				return s, true
			}
		}
		return nil, false
	}
}

func TestClassify(t *testing.T) {
	cases := map[string]StatementKind{
		"SELECT * FROM users":                    KindSelect,
		"insert into users values (1,'a')":        KindInsert,
		"UPDATE users SET name = 'x'":             KindUpdate,
		"DELETE FROM users WHERE id = 1":          KindDelete,
		"CREATE TABLE users (id INT)":             KindCreateTable,
		"DROP TABLE users":                        KindDropTable,
		"CREATE INDEX ON users(name)":             KindCreateIndex,
		"CREATE UNIQUE INDEX ON users(name)":      KindCreateIndex,
		"DROP INDEX ON users(name)":               KindDropIndex,
		"BEGIN":                                   KindBegin,
		"COMMIT":                                  KindCommit,
		"ROLLBACK":                                KindAbort,
		"\\dt":                                    KindMeta,
		"garbage":                                 KindUnknown,
	}
	for sql, want := range cases {
		assert.Equal(t, want, Classify(sql), sql)
	}
}

func TestParseCreateTableBuildsSchemaWithForeignKey(t *testing.T) {
	p := New(nil)
	node, err := p.Parse(`CREATE TABLE orders (
		id INT PRIMARY KEY,
		user_id INT,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	)`)
	require.NoError(t, err)
	assert.Equal(t, types.NodeCreateTable, node.Type)
	assert.Equal(t, "orders", node.Value)

	schema, ok := node.Meta.(*types.Schema)
	require.True(t, ok)
	assert.Equal(t, "id", schema.PrimaryKey)

	userID := schema.FindColumn("user_id")
	require.NotNil(t, userID)
	require.NotNil(t, userID.FK)
	assert.Equal(t, "users", userID.FK.Table)
	assert.Equal(t, "id", userID.FK.Column)
	assert.Equal(t, types.ActionCascade, userID.FK.OnDelete)
}

func TestParseCreateTableInlineForeignKey(t *testing.T) {
	p := New(nil)
	node, err := p.Parse(`CREATE TABLE orders (
		id INT PRIMARY KEY,
		user_id INT REFERENCES users(id) ON DELETE SET NULL
	)`)
	require.NoError(t, err)
	schema := node.Meta.(*types.Schema)
	col := schema.FindColumn("user_id")
	require.NotNil(t, col.FK)
	assert.Equal(t, types.ActionSetNull, col.FK.OnDelete)
}

func TestParseDropTable(t *testing.T) {
	p := New(nil)
	node, err := p.Parse("DROP TABLE orders")
	require.NoError(t, err)
	assert.Equal(t, types.NodeDropTable, node.Type)
	assert.Equal(t, "orders", node.Value)
}

func TestParseCreateAndDropIndex(t *testing.T) {
	p := New(nil)
	node, err := p.Parse("CREATE INDEX ON users(name)")
	require.NoError(t, err)
	assert.Equal(t, types.NodeCreateIndex, node.Type)
	assert.Equal(t, "users name", node.Value)

	node, err = p.Parse("DROP INDEX ON users(name)")
	require.NoError(t, err)
	assert.Equal(t, types.NodeDropIndex, node.Type)
	assert.Equal(t, "users name", node.Value)
}

func TestParseSelectBuildsOperatorChain(t *testing.T) {
	p := New(nil)
	node, err := p.Parse("SELECT u.id, u.name FROM users u WHERE u.id = 1 ORDER BY u.id DESC LIMIT 10 OFFSET 5")
	require.NoError(t, err)

	require.Equal(t, types.NodeLimit, node.Type)
	assert.Equal(t, "10 OFFSET 5", node.Value)

	order := node.Children[0]
	require.Equal(t, types.NodeOrderBy, order.Type)
	assert.Equal(t, "u.id DESC", order.Value)

	proj := order.Children[0]
	require.Equal(t, types.NodeProjection, proj.Type)
	assert.Equal(t, "u.id, u.name", proj.Value)

	sel := proj.Children[0]
	require.Equal(t, types.NodeSelection, sel.Type)
	assert.Equal(t, "u.id = 1", sel.Value)

	table := sel.Children[0]
	require.Equal(t, types.NodeTable, table.Type)
	assert.Equal(t, "users u", table.Value)
}

func TestParseSelectWithJoin(t *testing.T) {
	p := New(nil)
	node, err := p.Parse("SELECT * FROM users u JOIN orders o ON u.id = o.user_id")
	require.NoError(t, err)
	require.Equal(t, types.NodeProjection, node.Type)

	join := node.Children[0]
	require.Equal(t, types.NodeThetaJoin, join.Type)
	assert.Equal(t, "u.id = o.user_id", join.Value)
	assert.Equal(t, "users u", join.Children[0].Value)
	assert.Equal(t, "orders o", join.Children[1].Value)
}

func TestParseInsertTypesLiteralsAgainstSchema(t *testing.T) {
	p := New(lookupFor(usersSchema()))
	node, err := p.Parse("INSERT INTO users (id, name) VALUES (1, 'Alice')")
	require.NoError(t, err)
	assert.Equal(t, types.NodeInsert, node.Type)
	assert.Equal(t, "users", node.Value)

	row, ok := node.Meta.(types.Row)
	require.True(t, ok)
	assert.Equal(t, int64(1), row["id"])
	assert.Equal(t, "Alice", row["name"])
}

func TestParseInsertInfersColumnsFromSchema(t *testing.T) {
	p := New(lookupFor(usersSchema()))
	node, err := p.Parse("INSERT INTO users VALUES (2, 'Bob')")
	require.NoError(t, err)
	row := node.Meta.(types.Row)
	assert.Equal(t, int64(2), row["id"])
	assert.Equal(t, "Bob", row["name"])
}

func TestParseUpdateWithWhere(t *testing.T) {
	p := New(lookupFor(usersSchema()))
	node, err := p.Parse("UPDATE users SET name = 'Carol' WHERE id = 2")
	require.NoError(t, err)
	assert.Equal(t, types.NodeUpdate, node.Type)
	assert.Equal(t, "users", node.Value)
	row := node.Meta.(types.Row)
	assert.Equal(t, "Carol", row["name"])

	require.Len(t, node.Children, 1)
	assert.Equal(t, types.NodeSelection, node.Children[0].Type)
	assert.Equal(t, "id = 2", node.Children[0].Value)
}

func TestParseDeleteWithoutWhere(t *testing.T) {
	p := New(nil)
	node, err := p.Parse("DELETE FROM users")
	require.NoError(t, err)
	assert.Equal(t, types.NodeDelete, node.Type)
	assert.Equal(t, "users", node.Value)
	assert.Empty(t, node.Children)
}

func TestParseRejectsUnrecognizedStatement(t *testing.T) {
	p := New(nil)
	_, err := p.Parse("EXPLAIN SELECT 1")
	require.Error(t, err)
	var syn *types.SyntaxError
	assert.ErrorAs(t, err, &syn)
}

func TestTransactionControlStatements(t *testing.T) {
	p := New(nil)
	for sql, kind := range map[string]types.NodeType{
		"BEGIN":    types.NodeBeginTransaction,
		"COMMIT":   types.NodeCommit,
		"ROLLBACK": types.NodeAbort,
	} {
		node, err := p.Parse(sql)
		require.NoError(t, err)
		assert.Equal(t, kind, node.Type)
	}
}
