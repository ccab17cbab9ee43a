package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/ormato/generator"
)

var (
	ddlDialect string
	ddlSchema  string
	ddlDrop    bool
)

var ddlCmd = &cobra.Command{
	Use:   "ddl",
	Short: "Print the CREATE TABLE statements of the schema",
	Long: `Print the DDL of every table in the schema, ordered so that referenced
tables come first. No database connection is made.

Examples:
  ormato ddl                      # Configured dialect (PostgreSQL by default)
  ormato ddl --dialect sqlite
  ormato ddl --drop               # DROP TABLE statements in reverse order`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSchema(ddlSchema)
		if err != nil {
			return failed("Error loading schema", err)
		}
		mapping, err := typeMapping(s, ddlDialect)
		if err != nil {
			return failed("Error generating DDL", err)
		}
		up, down, err := generator.MigrationFor(s.Registry.Models(), mapping)
		if err != nil {
			return failed("Error generating DDL", err)
		}
		if ddlDrop {
			printSQL(down)
			return nil
		}
		printSQL(up)
		return nil
	},
}

func init() {
	ddlCmd.Flags().StringVarP(&ddlDialect, "dialect", "d", "", "Target dialect: postgres or sqlite (default from config)")
	ddlCmd.Flags().StringVarP(&ddlSchema, "schema", "s", "", "Schema file or models directory (default from config)")
	ddlCmd.Flags().BoolVar(&ddlDrop, "drop", false, "Print DROP TABLE statements instead")
}
