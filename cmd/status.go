package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()

		r, db, err := openRunner(ctx)
		if err != nil {
			return failed("Error connecting to database", err)
		}
		defer db.Close()

		applied, pending, err := r.Status(ctx)
		if err != nil {
			return failed("Status error", err)
		}

		fmt.Println("✅ Applied migrations:")
		for _, m := range applied {
			fmt.Printf("   - %s_%s (%s)\n", m.Version, m.Name, m.AppliedAt.Local().Format("2006-01-02 15:04:05"))
		}

		fmt.Println("\n🕒 Pending migrations:")
		for _, m := range pending {
			fmt.Printf("   - %s_%s\n", m.Version, m.Name)
		}
		return nil
	},
}
