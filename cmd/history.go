package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/ormato/runner"
)

var (
	historyLimit    int
	historyDetailed bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show detailed migration history",
	Long: `Show the applied migrations, newest first, with the time they ran, how
long they took and who ran them.

Examples:
  ormato history                    # Show all migration history
  ormato history --limit 10         # Show last 10 migrations
  ormato history --detailed         # Show detailed information
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()

		r, db, err := openRunner(ctx)
		if err != nil {
			return failed("Error connecting to database", err)
		}
		defer db.Close()

		history, err := r.History(ctx, historyLimit)
		if err != nil {
			return failed("Error getting migration history", err)
		}

		if len(history) == 0 {
			fmt.Println("📋 No migration history found")
			return nil
		}

		fmt.Println("📋 Migration History")
		fmt.Println(strings.Repeat("=", 60))
		if historyDetailed {
			showDetailedHistory(history)
		} else {
			showSummaryHistory(history)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 0, "Limit the number of records shown (0 for all)")
	historyCmd.Flags().BoolVarP(&historyDetailed, "detailed", "d", false, "Show detailed information")
}

func duration(r runner.Record) time.Duration {
	return time.Duration(r.ExecutionMs) * time.Millisecond
}

func showDetailedHistory(history []runner.Record) {
	green := color.New(color.FgGreen, color.Bold)
	blue := color.New(color.FgBlue, color.Bold)
	cyan := color.New(color.FgCyan)

	for i, record := range history {
		fmt.Printf("\n%d. ", i+1)
		green.Print("✅ ")
		blue.Printf("%s_%s\n", record.Version, record.Name)

		cyan.Printf("   📅 Executed: %s\n", record.AppliedAt.Local().Format("2006-01-02 15:04:05"))
		cyan.Printf("   ⏱️  Duration: %v\n", duration(record))
		if record.ExecutedBy != "" {
			cyan.Printf("   👤 User: %s\n", record.ExecutedBy)
		}
		if len(record.Checksum) > 8 {
			cyan.Printf("   🔍 Checksum: %s\n", record.Checksum[:8]+"...")
		}
	}
}

func showSummaryHistory(history []runner.Record) {
	blue := color.New(color.FgBlue, color.Bold)

	fmt.Printf("%-4s %-15s %-25s %-12s %-10s %s\n", "ID", "Version", "Migration", "Duration", "User", "Date")
	fmt.Println(strings.Repeat("-", 80))

	var total time.Duration
	for i, record := range history {
		user := record.ExecutedBy
		if user == "" {
			user = "N/A"
		}
		name := record.Name
		if len(name) > 23 {
			name = name[:20] + "..."
		}
		total += duration(record)

		fmt.Printf("%-4d %-15s %-25s %-12s %-10s %s\n",
			i+1,
			record.Version,
			blue.Sprint(name),
			duration(record),
			user,
			record.AppliedAt.Local().Format("2006-01-02 15:04"),
		)
	}

	fmt.Println(strings.Repeat("-", 80))
	fmt.Printf("📊 Summary: %d applied\n", len(history))
	if total > 0 {
		fmt.Printf("⏱️  Total execution time: %v\n", total)
	}
}
