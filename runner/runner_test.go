package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/ormato/database"
	"github.com/ridoystarlord/ormato/dialect"
	"github.com/ridoystarlord/ormato/query"
)

var (
	t1 = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	t2 = time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	t3 = time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC)
)

func setup(t *testing.T) (*Runner, database.DB, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "migrations")

	_, err := Generate(dir, "create_users",
		[]string{"CREATE TABLE users (id INTEGER NOT NULL, name TEXT NOT NULL, PRIMARY KEY (id))"},
		[]string{"DROP TABLE users"}, t1)
	require.NoError(t, err)
	_, err = Generate(dir, "create_posts",
		[]string{
			"CREATE TABLE posts (id INTEGER NOT NULL, title TEXT NOT NULL, PRIMARY KEY (id))",
			"INSERT INTO posts (id, title) VALUES (1, 'why?')",
		},
		[]string{"DROP TABLE posts"}, t2)
	require.NoError(t, err)
	_, err = Generate(dir, "add_tags",
		[]string{"CREATE TABLE tags (name TEXT NOT NULL)"},
		[]string{"DROP TABLE tags"}, t3)
	require.NoError(t, err)

	db, err := database.OpenSQL(dialect.SQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	r, err := New(db, dir, nil)
	require.NoError(t, err)
	return r, db, dir
}

func tableExists(t *testing.T, db database.DB, name string) bool {
	t.Helper()
	rs, err := db.Query(context.Background(),
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", []any{name})
	require.NoError(t, err)
	return rs.Len() == 1
}

func versions(steps []Step) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.Direction.String() + ":" + s.Migration.Version
	}
	return out
}

func TestMigrateToLatest(t *testing.T) {
	r, db, _ := setup(t)
	ctx := context.Background()

	_, ok, err := r.CurrentVersion(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	steps, err := r.Migrate(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"up:20240101100000", "up:20240102100000", "up:20240103100000"}, versions(steps))

	for _, table := range []string{"users", "posts", "tags", "schema_migrations"} {
		assert.True(t, tableExists(t, db, table), table)
	}
	rs, err := db.Query(ctx, "SELECT title FROM posts", nil)
	require.NoError(t, err)
	require.Equal(t, 1, rs.Len())

	version, ok, err := r.CurrentVersion(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "20240103100000", version)

	history, err := r.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "add_tags", history[0].Name)
	assert.NotEmpty(t, history[0].Checksum)
	assert.False(t, history[0].AppliedAt.IsZero())

	steps, err = r.Migrate(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, steps)
}

func TestMigrateToTargetAndBack(t *testing.T) {
	r, db, _ := setup(t)
	ctx := context.Background()

	steps, err := r.Migrate(ctx, "20240102100000")
	require.NoError(t, err)
	assert.Len(t, steps, 2)
	assert.False(t, tableExists(t, db, "tags"))

	applied, pending, err := r.Status(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 2)
	require.Len(t, pending, 1)
	assert.Equal(t, "add_tags", pending[0].Name)
	assert.True(t, applied[0].Applied())

	steps, err = r.Migrate(ctx, "20240101100000")
	require.NoError(t, err)
	assert.Equal(t, []string{"down:20240102100000"}, versions(steps))
	assert.False(t, tableExists(t, db, "posts"))
	assert.True(t, tableExists(t, db, "users"))

	steps, err = r.Migrate(ctx, Zero)
	require.NoError(t, err)
	assert.Equal(t, []string{"down:20240101100000"}, versions(steps))
	assert.False(t, tableExists(t, db, "users"))

	_, err = r.Migrate(ctx, "20990101000000")
	assert.ErrorContains(t, err, "unknown target version")
}

func TestRollback(t *testing.T) {
	r, db, _ := setup(t)
	ctx := context.Background()

	steps, err := r.Rollback(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, steps)

	_, err = r.Migrate(ctx, "")
	require.NoError(t, err)

	_, err = r.Rollback(ctx, 0)
	assert.Error(t, err)

	steps, err = r.Rollback(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"down:20240103100000", "down:20240102100000"}, versions(steps))
	assert.True(t, tableExists(t, db, "users"))

	steps, err = r.Rollback(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"down:20240101100000"}, versions(steps))

	_, ok, err := r.CurrentVersion(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPreviewDoesNotExecute(t *testing.T) {
	r, db, _ := setup(t)
	ctx := context.Background()

	steps, err := r.Preview(ctx, "")
	require.NoError(t, err)
	require.Len(t, steps, 3)
	assert.Contains(t, steps[0].SQL(), "CREATE TABLE users")
	assert.False(t, tableExists(t, db, "users"))
}

func TestFailedMigrationRollsBack(t *testing.T) {
	r, db, dir := setup(t)
	ctx := context.Background()

	_, err := Generate(dir, "broken",
		[]string{"CREATE TABLE widgets (id INTEGER)", "INSERT INTO missing_table VALUES (1)"},
		[]string{"DROP TABLE widgets"}, t3.Add(time.Hour))
	require.NoError(t, err)

	steps, err := r.Migrate(ctx, "")
	require.Error(t, err)
	assert.Len(t, steps, 3)
	assert.True(t, database.IsDatabaseError(err))
	assert.False(t, tableExists(t, db, "widgets"))

	version, _, err := r.CurrentVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, "20240103100000", version)
}

func TestModifiedOrMissingFile(t *testing.T) {
	r, _, dir := setup(t)
	ctx := context.Background()
	_, err := r.Migrate(ctx, "")
	require.NoError(t, err)

	path := filepath.Join(dir, "20240101100000_create_users.sql")
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, append(content, []byte("SELECT 1;\n")...), 0o644))

	_, _, err = r.Status(ctx)
	assert.ErrorContains(t, err, "checksum mismatch")

	require.NoError(t, os.Remove(path))
	_, err = r.Migrate(ctx, "")
	assert.ErrorContains(t, err, "has no file")
}

func TestRecordsUseSessionStatements(t *testing.T) {
	r, db, _ := setup(t)
	ctx := context.Background()
	_, err := r.Migrate(ctx, "20240101100000")
	require.NoError(t, err)

	rs, err := db.Query(ctx, "SELECT version, name, execution_ms, executed_by FROM schema_migrations", nil)
	require.NoError(t, err)
	require.Equal(t, 1, rs.Len())
	name, ok := rs.Value(0, "name")
	require.True(t, ok)
	assert.Equal(t, "create_users", name)

	_, err = r.session.Execute(ctx, query.Raw("SELECT * FROM schema_migrations WHERE version = ?"), "20240101100000")
	assert.NoError(t, err)
}
