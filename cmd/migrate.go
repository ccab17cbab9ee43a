package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/ormato/runner"
)

var (
	dryRunMigrate bool
	migrateTarget string
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending migrations",
	Long: `Bring the database to a version. Pending migrations up to the target
are applied in order; applied migrations above it are rolled back.

Examples:
  ormato migrate                        # Apply everything pending
  ormato migrate --to 20240102100000    # Move to a specific version
  ormato migrate --to 0                 # Roll everything back
  ormato migrate --dry-run              # Preview the SQL`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()

		r, db, err := openRunner(ctx)
		if err != nil {
			return failed("Error connecting to database", err)
		}
		defer db.Close()

		if dryRunMigrate {
			steps, err := r.Preview(ctx, migrateTarget)
			if err != nil {
				return failed("Dry run failed", err)
			}
			showPlan(steps)
			return nil
		}

		done, err := r.Migrate(ctx, migrateTarget)
		for _, step := range done {
			fmt.Printf("✅ %s %s_%s\n", step.Direction, step.Migration.Version, step.Migration.Name)
		}
		if err != nil {
			return failed("Migration failed", err)
		}
		if len(done) == 0 {
			fmt.Println("✅ No pending migrations.")
		}
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&dryRunMigrate, "dry-run", false, "Preview the SQL that would be executed without applying migrations")
	migrateCmd.Flags().StringVar(&migrateTarget, "to", "", "Target version (default newest, 0 for none)")
}

func showPlan(steps []runner.Step) {
	if len(steps) == 0 {
		fmt.Println("✅ Nothing to do.")
		return
	}
	header := color.New(color.FgCyan, color.Bold)
	for _, step := range steps {
		header.Printf("-- %s %s_%s\n", step.Direction, step.Migration.Version, step.Migration.Name)
		if sql := step.SQL(); sql != "" {
			fmt.Println(sql)
		}
		fmt.Println()
	}
	fmt.Printf("📊 %d migration(s) would run\n", len(steps))
}
