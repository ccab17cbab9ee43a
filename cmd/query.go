package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ridoystarlord/ormato/database"
	"github.com/ridoystarlord/ormato/orm"
	"github.com/ridoystarlord/ormato/query"
	"github.com/ridoystarlord/ormato/schema"
)

var queryExec bool

var queryCmd = &cobra.Command{
	Use:   "query <sql> [params...]",
	Short: "Run a raw SQL statement",
	Long: `Run a raw SQL statement against the database. Use ? for parameters;
they are bound in order from the remaining arguments.

Examples:
  ormato query "SELECT * FROM users WHERE email = ?" alice@example.com
  ormato query --exec "DELETE FROM posts WHERE id = ?" 42`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw := query.Raw(args[0])
		params := make([]any, len(args)-1)
		for i, a := range args[1:] {
			params[i] = a
		}
		if err := raw.Check(params); err != nil {
			return failed("Invalid query", err)
		}

		ctx, cancel := commandContext()
		defer cancel()
		db, err := openDB(ctx)
		if err != nil {
			return failed("Error connecting to database", err)
		}
		defer db.Close()
		session := orm.New(db, schema.NewRegistry(), logger)

		if queryExec {
			n, err := session.Exec(ctx, raw, params...)
			if err != nil {
				return failed("Query failed", err)
			}
			fmt.Printf("✅ %d row(s) affected\n", n)
			return nil
		}

		rs, err := session.Execute(ctx, raw, params...)
		if err != nil {
			return failed("Query failed", err)
		}
		printResultSet(rs)
		return nil
	},
}

func init() {
	queryCmd.Flags().BoolVarP(&queryExec, "exec", "e", false, "Run a statement that returns no rows and print the affected count")
}

func printResultSet(rs *database.ResultSet) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(rs.Columns, "\t"))
	for _, row := range rs.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			switch v := v.(type) {
			case nil:
				cells[i] = "NULL"
			case []byte:
				cells[i] = string(v)
			default:
				cells[i] = fmt.Sprint(v)
			}
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	w.Flush()
	fmt.Printf("(%d row(s))\n", rs.Len())
}
