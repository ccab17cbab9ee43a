package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/ormato/diff"
	"github.com/ridoystarlord/ormato/generator"
	"github.com/ridoystarlord/ormato/introspect"
	"github.com/ridoystarlord/ormato/runner"
	"github.com/ridoystarlord/ormato/schema"
	"github.com/ridoystarlord/ormato/validator"
)

var (
	generateDryRun  bool
	generateOffline bool
	generateEmpty   bool
	generateSchema  string
)

var generateCmd = &cobra.Command{
	Use:   "generate <name>",
	Short: "Generate a new migration from the schema",
	Long: `Generate a migration file in the migrations directory.

The schema is validated first. The database is then introspected and the
migration holds the statements that bring it in line with the schema.
With --offline no connection is made and the migration creates every
table of the schema.

Examples:
  ormato generate create_users
  ormato generate add_bio --dry-run       # Print the SQL only
  ormato generate initial --offline       # Create all tables
  ormato generate backfill --empty        # Empty migration to edit`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		var up, down []string
		if !generateEmpty {
			var err error
			up, down, err = schemaChanges()
			if err != nil {
				return failed("Error generating migration", err)
			}
			if len(up) == 0 {
				fmt.Println("✅ No changes detected. Database is up to date.")
				return nil
			}
		}

		if generateDryRun {
			color.New(color.FgCyan, color.Bold).Println("-- up")
			printSQL(up)
			color.New(color.FgCyan, color.Bold).Println("-- down")
			printSQL(down)
			return nil
		}

		m, err := runner.Generate(cfg.MigrationsDir, name, up, down, time.Now())
		if err != nil {
			return failed("Error writing migration", err)
		}
		fmt.Printf("✅ Migration created: %s\n", m.Path)
		fmt.Printf("🚀 Run 'ormato migrate' to apply it\n")
		return nil
	},
}

func init() {
	generateCmd.Flags().BoolVar(&generateDryRun, "dry-run", false, "Print the SQL without writing a file")
	generateCmd.Flags().BoolVar(&generateOffline, "offline", false, "Do not connect; create every table of the schema")
	generateCmd.Flags().BoolVar(&generateEmpty, "empty", false, "Write an empty migration")
	generateCmd.Flags().StringVarP(&generateSchema, "schema", "s", "", "Schema file or models directory (default from config)")
}

func schemaChanges() (up, down []string, err error) {
	s, err := loadSchema(generateSchema)
	if err != nil {
		return nil, nil, err
	}
	if generateOffline {
		mapping, err := typeMapping(s, "")
		if err != nil {
			return nil, nil, err
		}
		if err := checkSchema(s.Registry, mapping); err != nil {
			return nil, nil, err
		}
		return generator.MigrationFor(s.Registry.Models(), mapping)
	}

	ctx, cancel := commandContext()
	defer cancel()
	db, err := openDB(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer db.Close()

	mapping, err := typeMapping(s, db.Dialect())
	if err != nil {
		return nil, nil, err
	}
	if err := checkSchema(s.Registry, mapping); err != nil {
		return nil, nil, err
	}
	existing, err := introspect.IntrospectDatabase(ctx, db)
	if err != nil {
		return nil, nil, err
	}
	ops := diff.DiffSchemas(s.Registry.Models(), existing, runner.Record{}.TableName())
	for _, op := range ops {
		logger.Debugw("schema change", "operation", op.String())
	}
	return diff.Statements(ops, mapping)
}

// checkSchema prints validation warnings and fails on errors.
func checkSchema(reg *schema.Registry, mapping generator.TypeMapping) error {
	result := validator.Validate(reg, mapping)
	for _, w := range result.Warnings {
		color.Yellow("⚠️  %s", w)
	}
	if !result.Valid() {
		for _, e := range result.Errors {
			color.Red("❌ %s", e)
		}
		return fmt.Errorf("schema has %d error(s); run 'ormato validate' for details", len(result.Errors))
	}
	return nil
}
