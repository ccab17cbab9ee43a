package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var steps int

func init() {
	rollbackCmd.Flags().IntVarP(&steps, "steps", "s", 1, "Number of migrations to rollback")
}

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Rollback migrations",
	Long: `Rollback the last migration or multiple migrations.

Examples:
  ormato rollback            # Rollback the last migration
  ormato rollback --steps=3  # Rollback the last 3 migrations
  ormato rollback -s 5       # Rollback the last 5 migrations
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if steps < 1 {
			return fmt.Errorf("steps must be at least 1, got %d", steps)
		}

		ctx, cancel := commandContext()
		defer cancel()

		r, db, err := openRunner(ctx)
		if err != nil {
			return failed("Error connecting to database", err)
		}
		defer db.Close()

		done, err := r.Rollback(ctx, steps)
		for _, step := range done {
			fmt.Printf("↩️  %s_%s\n", step.Migration.Version, step.Migration.Name)
		}
		if err != nil {
			return failed("Rollback failed", err)
		}

		switch len(done) {
		case 0:
			fmt.Println("✅ No migrations to roll back.")
		case 1:
			fmt.Println("✅ Rolled back 1 migration.")
		default:
			fmt.Printf("✅ Rolled back %d migrations.\n", len(done))
		}
		return nil
	},
}
