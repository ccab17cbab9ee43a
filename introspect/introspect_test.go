package introspect

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/ormato/database"
	"github.com/ridoystarlord/ormato/dialect"
)

func TestIntrospectSQLite(t *testing.T) {
	ctx := context.Background()
	db, err := database.OpenSQL(dialect.SQLite, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(ctx, `CREATE TABLE users (id INTEGER NOT NULL, email TEXT NOT NULL, bio TEXT DEFAULT 'none', PRIMARY KEY (id));
CREATE TABLE posts (id INTEGER NOT NULL, user_id INTEGER NOT NULL, PRIMARY KEY (id),
	FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE)`, nil)
	require.NoError(t, err)

	tables, err := IntrospectDatabase(ctx, db)
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, "posts", tables[0].TableName)
	assert.Equal(t, "users", tables[1].TableName)

	users := tables[1]
	require.Len(t, users.Columns, 3)
	id, ok := users.Column("id")
	require.True(t, ok)
	assert.True(t, id.IsPrimaryKey)
	assert.False(t, id.IsNullable)
	assert.Equal(t, "INTEGER", id.DataType)

	bio, ok := users.Column("bio")
	require.True(t, ok)
	assert.True(t, bio.IsNullable)
	require.NotNil(t, bio.ColumnDefault)
	assert.Equal(t, "'none'", *bio.ColumnDefault)

	_, ok = users.Column("missing")
	assert.False(t, ok)

	posts := tables[0]
	require.Len(t, posts.ForeignKeys, 1)
	fk := posts.ForeignKeys[0]
	assert.Equal(t, []string{"user_id"}, fk.Columns)
	assert.Equal(t, "users", fk.ReferencesTable)
	assert.Equal(t, []string{"id"}, fk.ReferencesColumns)
	assert.Equal(t, "CASCADE", fk.OnDelete)
	assert.Equal(t, "NO ACTION", fk.OnUpdate)
}

func TestIntrospectCompositeForeignKey(t *testing.T) {
	ctx := context.Background()
	db, err := database.OpenSQL(dialect.SQLite, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(ctx, `CREATE TABLE region (country TEXT NOT NULL, code TEXT NOT NULL, PRIMARY KEY (country, code));
CREATE TABLE office (id INTEGER NOT NULL, country TEXT NOT NULL, region TEXT NOT NULL, parent INTEGER, PRIMARY KEY (id),
	FOREIGN KEY (country, region) REFERENCES region(country, code) ON DELETE CASCADE,
	FOREIGN KEY (parent) REFERENCES office(id))`, nil)
	require.NoError(t, err)

	tables, err := IntrospectDatabase(ctx, db)
	require.NoError(t, err)
	require.Len(t, tables, 2)
	office := tables[0]
	assert.Equal(t, "office", office.TableName)
	require.Len(t, office.ForeignKeys, 2)

	byTable := map[string]ExistingForeignKey{}
	for _, fk := range office.ForeignKeys {
		byTable[fk.ReferencesTable] = fk
	}
	region := byTable["region"]
	assert.Equal(t, []string{"country", "region"}, region.Columns)
	assert.Equal(t, []string{"country", "code"}, region.ReferencesColumns)
	assert.Equal(t, "CASCADE", region.OnDelete)
	assert.Equal(t, []string{"parent"}, byTable["office"].Columns)
}

func TestGroupForeignKeys(t *testing.T) {
	got := groupForeignKeys([]foreignKeyRow{
		{ConstraintName: "fk_a", ColumnName: "x", ReferencesTable: "t", ReferencesColumn: "a"},
		{ConstraintName: "fk_b", ColumnName: "z", ReferencesTable: "u", ReferencesColumn: "id"},
		{ConstraintName: "fk_a", ColumnName: "y", ReferencesTable: "t", ReferencesColumn: "b"},
	})
	assert.Equal(t, []ExistingForeignKey{
		{ConstraintName: "fk_a", Columns: []string{"x", "y"}, ReferencesTable: "t", ReferencesColumns: []string{"a", "b"}},
		{ConstraintName: "fk_b", Columns: []string{"z"}, ReferencesTable: "u", ReferencesColumns: []string{"id"}},
	}, got)
}

func TestIntrospectEmpty(t *testing.T) {
	db, err := database.OpenSQL(dialect.SQLite, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	tables, err := IntrospectDatabase(context.Background(), db)
	require.NoError(t, err)
	assert.Empty(t, tables)
}
