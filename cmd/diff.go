package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/ormato/diff"
	"github.com/ridoystarlord/ormato/introspect"
	"github.com/ridoystarlord/ormato/runner"
)

var (
	diffVisual bool
	diffSQL    bool
	diffFile   string
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Show differences between schema and database",
	Long: `Show differences between your schema and the current database.

Examples:
  ormato diff                    # Show differences in text format
  ormato diff --visual           # Group the changes by table with colors
  ormato diff --sql              # Print the statements generate would write
  ormato diff -f custom.yaml     # Use custom schema file
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSchema(diffFile)
		if err != nil {
			return failed("Error loading schema", err)
		}

		ctx, cancel := commandContext()
		defer cancel()
		db, err := openDB(ctx)
		if err != nil {
			return failed("Error connecting to database", err)
		}
		defer db.Close()

		existing, err := introspect.IntrospectDatabase(ctx, db)
		if err != nil {
			return failed("Error introspecting database", err)
		}

		operations := diff.DiffSchemas(s.Registry.Models(), existing, runner.Record{}.TableName())
		if len(operations) == 0 {
			fmt.Println("✅ No differences found between schema and database")
			return nil
		}

		switch {
		case diffSQL:
			mapping, err := typeMapping(s, db.Dialect())
			if err != nil {
				return failed("Error rendering SQL", err)
			}
			up, _, err := diff.Statements(operations, mapping)
			if err != nil {
				return failed("Error rendering SQL", err)
			}
			printSQL(up)
		case diffVisual:
			showVisualDiff(operations)
		default:
			showTextDiff(operations)
		}
		return nil
	},
}

func init() {
	diffCmd.Flags().BoolVarP(&diffVisual, "visual", "v", false, "Show differences grouped by table with colors")
	diffCmd.Flags().BoolVar(&diffSQL, "sql", false, "Print the SQL statements")
	diffCmd.Flags().StringVarP(&diffFile, "file", "f", "", "Schema file or models directory (default from config)")
}

func showVisualDiff(operations []diff.Operation) {
	fmt.Println("🌳 Schema Changes (Visual Diff)")
	fmt.Println(strings.Repeat("=", 50))

	showTableChanges(operations)
	showColumnChanges(operations)
}

func showTableChanges(operations []diff.Operation) {
	green := color.New(color.FgGreen, color.Bold)
	red := color.New(color.FgRed, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)

	fmt.Println("\n📋 Tables:")
	modified := map[string]bool{}
	for _, op := range operations {
		switch op.Type {
		case diff.CreateTable:
			green.Printf("  ➕ CREATE %s\n", op.TableName)
		case diff.DropTable:
			red.Printf("  ❌ DROP %s\n", op.TableName)
		default:
			if !modified[op.TableName] {
				modified[op.TableName] = true
				yellow.Printf("  ⚡ MODIFY %s\n", op.TableName)
			}
		}
	}
}

func showColumnChanges(operations []diff.Operation) {
	green := color.New(color.FgGreen, color.Bold)
	red := color.New(color.FgRed, color.Bold)

	var tables []string
	tableOps := make(map[string][]diff.Operation)
	for _, op := range operations {
		if op.Type != diff.AddColumn && op.Type != diff.DropColumn {
			continue
		}
		if _, ok := tableOps[op.TableName]; !ok {
			tables = append(tables, op.TableName)
		}
		tableOps[op.TableName] = append(tableOps[op.TableName], op)
	}
	if len(tables) == 0 {
		return
	}

	fmt.Println("\n📝 Columns:")
	for _, table := range tables {
		fmt.Printf("  📋 %s:\n", table)
		for _, op := range tableOps[table] {
			switch op.Type {
			case diff.AddColumn:
				col, _ := op.Model.Column(op.Column)
				green.Printf("    ➕ ADD %s (%s)", col.Name, col.Type)
				if !col.Nullable {
					green.Print(" NOT NULL")
				}
				if col.Default != nil {
					green.Printf(" DEFAULT %s", *col.Default)
				}
				green.Println()
			case diff.DropColumn:
				red.Printf("    ❌ DROP %s\n", op.Column)
			}
		}
	}
}

func showTextDiff(operations []diff.Operation) {
	fmt.Println("📋 Schema Changes (Text Format)")
	fmt.Println(strings.Repeat("=", 40))

	for i, op := range operations {
		fmt.Printf("%d. %s\n", i+1, op)
	}
}
