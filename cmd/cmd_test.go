package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/ormato/config"
	"github.com/ridoystarlord/ormato/dialect"
	"github.com/ridoystarlord/ormato/generator"
	"github.com/ridoystarlord/ormato/runner"
	"github.com/ridoystarlord/ormato/validator"
)

func exampleDir(t *testing.T) (yamlPath, modelsDir string) {
	t.Helper()
	dir := t.TempDir()
	yamlPath = filepath.Join(dir, "schema.yaml")
	modelsDir = filepath.Join(dir, "models")
	require.NoError(t, writeExample(yamlPath, exampleSchema))
	require.NoError(t, writeExample(filepath.Join(modelsDir, "models.go"), exampleModels))
	return yamlPath, modelsDir
}

func TestExamplesAreValid(t *testing.T) {
	cfg = config.Default()
	yamlPath, modelsDir := exampleDir(t)

	for _, path := range []string{yamlPath, modelsDir} {
		s, err := loadSchema(path)
		require.NoError(t, err, path)
		require.Len(t, s.Registry.Models(), 2, path)

		for _, name := range []string{dialect.Postgres, dialect.SQLite} {
			mapping, err := typeMapping(s, name)
			require.NoError(t, err)
			result := validator.Validate(s.Registry, mapping)
			assert.True(t, result.Valid(), "%s %s: %v", path, name, result.Errors)

			up, down, err := generator.MigrationFor(s.Registry.Models(), mapping)
			require.NoError(t, err)
			require.Len(t, up, 2)
			assert.True(t, strings.HasPrefix(up[0], "CREATE TABLE users ("), up[0])
			assert.Equal(t, []string{"DROP TABLE posts", "DROP TABLE users"}, down)
		}
	}
}

func TestWriteExampleKeepsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tables: []\n"), 0o644))

	err := writeExample(path, exampleSchema)
	require.Error(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "tables: []\n", string(data))
}

func TestLoadSchemaFromConfig(t *testing.T) {
	yamlPath, _ := exampleDir(t)
	cfg = config.Default()
	cfg.Schema = yamlPath

	s, err := loadSchema("")
	require.NoError(t, err)
	_, ok := s.Registry.ModelByName("users")
	assert.True(t, ok)

	_, err = loadSchema(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestTypeMappingDialect(t *testing.T) {
	yamlPath, _ := exampleDir(t)
	s, err := loadSchema(yamlPath)
	require.NoError(t, err)

	cfg = config.Default()
	mapping, err := typeMapping(s, "")
	require.NoError(t, err)
	assert.Equal(t, "BIGINT", mapping["int64"])

	cfg.Dialect = dialect.SQLite
	mapping, err = typeMapping(s, "")
	require.NoError(t, err)
	assert.Equal(t, "INTEGER", mapping["int64"])

	mapping, err = typeMapping(s, "postgresql")
	require.NoError(t, err)
	assert.Equal(t, "BIGINT", mapping["int64"])

	_, err = typeMapping(s, "oracle")
	assert.Error(t, err)
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		steps = 1
	})
	return rootCmd.Execute()
}

func TestRollbackRejectsSteps(t *testing.T) {
	t.Setenv("DATABASE_URL", "sqlite://"+filepath.Join(t.TempDir(), "app.db"))

	err := execute(t, "rollback", "--steps", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "steps must be at least 1")
}

func TestFailedMigrationReturnsError(t *testing.T) {
	dir := t.TempDir()
	migrations := filepath.Join(dir, "migrations")
	t.Setenv("DATABASE_URL", "sqlite://"+filepath.Join(dir, "app.db"))
	t.Setenv("ORMATO_MIGRATIONS_DIR", migrations)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := runner.Generate(migrations, "create accounts",
		[]string{"CREATE TABLE account (id INTEGER PRIMARY KEY)"}, []string{"DROP TABLE account"}, now)
	require.NoError(t, err)
	_, err = runner.Generate(migrations, "broken",
		[]string{"INSERT INTO missing_table VALUES (1)"}, nil, now.Add(time.Hour))
	require.NoError(t, err)

	err = execute(t, "migrate")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "Migration failed: "), err.Error())

	// The first migration stays applied and the database is usable again.
	require.NoError(t, execute(t, "status"))
	ctx, cancel := commandContext()
	defer cancel()
	r, db, err := openRunner(ctx)
	require.NoError(t, err)
	defer db.Close()
	version, ok, err := r.CurrentVersion(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "20240101000000", version)
}
