package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ridoystarlord/ormato/config"
	"github.com/ridoystarlord/ormato/database"
	"github.com/ridoystarlord/ormato/dialect"
	"github.com/ridoystarlord/ormato/generator"
	"github.com/ridoystarlord/ormato/loader"
	"github.com/ridoystarlord/ormato/runner"
)

// Version is set at build time with -ldflags "-X .../cmd.Version=...".
var Version = "dev"

var (
	cfgFile string
	timeout time.Duration
	cfg     config.Config
	logger  = zap.NewNop().Sugar()
)

var rootCmd = &cobra.Command{
	Use:   "ormato",
	Short: "A small ORM and migration tool for Go",
	Long: `ormato maps Go structs to tables, builds queries and manages
versioned SQL migrations for PostgreSQL and SQLite.

Configuration is read from .env, the environment (DATABASE_URL,
ORMATO_DIALECT, ORMATO_DRIVER, ORMATO_MIGRATIONS_DIR, ORMATO_SCHEMA,
ORMATO_DEBUG) and an optional ormato.yaml.

Examples:

  ormato init
  ormato generate create_users
  ormato migrate
  ormato status
`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		l, err := config.NewLogger(cfg.Debug)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
}

// Execute runs the CLI
func Execute() {
	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		fmt.Println("❌", err)
		os.Exit(1)
	}
}

// Register subcommands
func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file (default ormato.yaml when present)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", time.Minute, "Timeout for database operations")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(rollbackCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(ddlCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(versionCmd)
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

// failed wraps err with the step that failed. Commands return it so their
// deferred cleanup runs before Execute reports it.
func failed(what string, err error) error {
	return fmt.Errorf("%s: %w", what, err)
}

func openDB(ctx context.Context) (database.DB, error) {
	opts, err := cfg.DatabaseOptions()
	if err != nil {
		return nil, err
	}
	db, err := database.Open(ctx, opts)
	if err != nil {
		return nil, err
	}
	logger.Debugw("connected", "dialect", db.Dialect())
	return db, nil
}

func openRunner(ctx context.Context) (*runner.Runner, database.DB, error) {
	db, err := openDB(ctx)
	if err != nil {
		return nil, nil, err
	}
	r, err := runner.New(db, cfg.MigrationsDir, logger)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return r, db, nil
}

// loadSchema reads cfg.Schema or the override path: a directory is read
// as Go models, anything else as a YAML schema file.
func loadSchema(path string) (*loader.Schema, error) {
	if path == "" {
		path = cfg.Schema
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", path, err)
	}
	if info.IsDir() {
		return loader.LoadModelsFromTags(path)
	}
	return loader.LoadModelsFromYAML(path)
}

// typeMapping returns the mapping of the named dialect (the configured
// one when empty, PostgreSQL when nothing is configured) with the
// schema's overrides applied.
func typeMapping(s *loader.Schema, name string) (generator.TypeMapping, error) {
	if name == "" {
		name = cfg.Dialect
	}
	if name == "" {
		name = dialect.Postgres
	}
	name, err := dialect.Normalize(name)
	if err != nil {
		return nil, err
	}
	base, err := dialect.TypeMapping(name)
	if err != nil {
		return nil, err
	}
	return s.Mapping(base), nil
}

func printSQL(statements []string) {
	for _, stmt := range statements {
		stmt = strings.TrimSpace(stmt)
		if !strings.HasSuffix(stmt, ";") {
			stmt += ";"
		}
		fmt.Println(stmt)
	}
}
