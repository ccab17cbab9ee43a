package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/ormato/dialect"
)

// chdir moves into a fresh directory so no .env or ormato.yaml of the
// repository is picked up.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	for _, env := range []string{EnvDatabaseURL, EnvDialect, EnvDriver, EnvMigrationsDir, EnvSchema, EnvDebug} {
		t.Setenv(env, "")
	}
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdir(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = cfg.DatabaseOptions()
	assert.ErrorContains(t, err, EnvDatabaseURL)
}

func TestLoadFileAndEnvironment(t *testing.T) {
	dir := chdir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFile), []byte(`
database_url: postgres://localhost/app
migrations_dir: db/migrations
driver: pq
debug: true
`), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/app", cfg.DatabaseURL)
	assert.Equal(t, dialect.Postgres, cfg.Dialect)
	assert.Equal(t, "db/migrations", cfg.MigrationsDir)
	assert.True(t, cfg.Debug)

	opts, err := cfg.DatabaseOptions()
	require.NoError(t, err)
	assert.Equal(t, "pq", opts.Driver)

	t.Setenv(EnvDatabaseURL, "file:app.db")
	t.Setenv(EnvDebug, "false")
	t.Setenv(EnvSchema, "models")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "file:app.db", cfg.DatabaseURL)
	assert.Equal(t, dialect.SQLite, cfg.Dialect)
	assert.False(t, cfg.Debug)
	assert.Equal(t, "models", cfg.Schema)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ORMATO_DIALECT=sqlite3\nDATABASE_URL=:memory:\n"), 0o644))
	// godotenv does not override variables that are already set.
	require.NoError(t, os.Unsetenv(EnvDialect))
	require.NoError(t, os.Unsetenv(EnvDatabaseURL))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, dialect.SQLite, cfg.Dialect)
	assert.Equal(t, ":memory:", cfg.DatabaseURL)
}

func TestLoadErrors(t *testing.T) {
	dir := chdir(t)

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err, "an explicit config file must exist")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("debug: ["), 0o644))
	_, err = Load(bad)
	assert.Error(t, err)

	t.Setenv(EnvDebug, "sometimes")
	_, err = Load("")
	assert.Error(t, err)

	t.Setenv(EnvDebug, "")
	t.Setenv(EnvDialect, "oracle")
	_, err = Load("")
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(false)
	require.NoError(t, err)
	assert.False(t, logger.Desugar().Core().Enabled(-1))

	logger, err = NewLogger(true)
	require.NoError(t, err)
	assert.True(t, logger.Desugar().Core().Enabled(-1))
}
