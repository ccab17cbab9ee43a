package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var healthTimeout time.Duration

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check database connectivity",
	Long: `Check if the database is accessible and responsive.

Examples:
  ormato health                    # Check default database connection
  ormato health --wait 10s         # Set custom timeout
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkDatabaseHealth(); err != nil {
			return failed("Database health check failed", err)
		}
		fmt.Println("✅ Database is healthy and accessible")
		return nil
	},
}

func init() {
	healthCmd.Flags().DurationVarP(&healthTimeout, "wait", "w", 5*time.Second, "Timeout for health check")
}

func checkDatabaseHealth() error {
	ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
	defer cancel()

	r, db, err := openRunner(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer db.Close()

	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	fmt.Printf("🔌 Connected (%s)\n", db.Dialect())

	version, ok, err := r.CurrentVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to read migration state: %w", err)
	}
	if !ok {
		fmt.Println("⚠️  No migrations applied yet")
		fmt.Println("   Run 'ormato migrate' to apply pending migrations")
		return nil
	}
	fmt.Printf("📊 Current version: %s\n", version)
	return nil
}
