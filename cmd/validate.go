package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/ormato/validator"
)

var (
	validateSchemaFile string
	validateFormat     string
	validateDialect    string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the schema",
	Long: `Validate the schema file or models directory.

Checks table and column names (identifier rules, reserved keywords), data
types against the dialect type mapping, default values, primary keys and
foreign key references. No database connection is needed.

Examples:
  ormato validate                        # Validate the configured schema
  ormato validate --schema custom.yaml   # Validate another schema file
  ormato validate --dialect sqlite       # Check types against SQLite
  ormato validate --format json          # Output validation results as JSON
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSchema(validateSchemaFile)
		if err != nil {
			return failed("Failed to load schema", err)
		}
		mapping, err := typeMapping(s, validateDialect)
		if err != nil {
			return failed("Schema validation failed", err)
		}
		result := validator.Validate(s.Registry, mapping)

		if validateFormat == "json" {
			err = outputJSON(result)
		} else {
			outputText(result)
		}
		if err != nil {
			return failed("Schema validation failed", err)
		}
		if !result.Valid() {
			return fmt.Errorf("schema has %d error(s)", len(result.Errors))
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVarP(&validateSchemaFile, "schema", "s", "", "Schema file or models directory (default from config)")
	validateCmd.Flags().StringVarP(&validateFormat, "format", "f", "text", "Output format (text, json)")
	validateCmd.Flags().StringVar(&validateDialect, "dialect", "", "Dialect whose type mapping is checked (default from config)")
}

func outputJSON(result *validator.Result) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(struct {
		Valid    bool              `json:"valid"`
		Errors   []validator.Issue `json:"errors"`
		Warnings []validator.Issue `json:"warnings"`
	}{result.Valid(), result.Errors, result.Warnings})
}

func outputText(result *validator.Result) {
	if result.Valid() {
		color.Green("✅ Schema validation passed!")
	} else {
		color.Red("❌ Schema validation failed!")
	}

	printIssues("🔴 Errors", result.Errors)
	printIssues("🟡 Warnings", result.Warnings)

	fmt.Printf("\n📊 Summary:\n")
	fmt.Printf("  • Errors: %d\n", len(result.Errors))
	fmt.Printf("  • Warnings: %d\n", len(result.Warnings))

	if result.Valid() {
		fmt.Printf("\n🎉 Your schema is valid and ready for migration generation!\n")
	} else {
		fmt.Printf("\n💡 Fix the errors above before generating migrations.\n")
	}
}

func printIssues(title string, issues []validator.Issue) {
	if len(issues) == 0 {
		return
	}
	fmt.Printf("\n%s (%d):\n", title, len(issues))
	for i, issue := range issues {
		fmt.Printf("  %d. ", i+1)
		if issue.Table != "" {
			fmt.Printf("[%s]", issue.Table)
		}
		if issue.Column != "" {
			fmt.Printf(".%s", issue.Column)
		}
		fmt.Printf(" %s: %s\n", issue.Type, issue.Message)
	}
}
