package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ridoystarlord/ormato/runner"
)

var useStructs bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new ormato project",
	Long: `Create the migrations directory and an example schema.

By default the schema is a YAML file (schema.yaml). With --structs a
models/ directory with tagged Go structs is created instead; point
ORMATO_SCHEMA (or schema: in ormato.yaml) at it.

Examples:
  ormato init                    # YAML schema
  ormato init --structs          # Go structs with db/ormato tags`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := runner.Init(cfg.MigrationsDir); err != nil {
			return failed("Error creating migrations directory", err)
		}
		fmt.Printf("📁 Migrations directory: %s\n", cfg.MigrationsDir)

		if useStructs {
			path := filepath.Join("models", "models.go")
			if err := writeExample(path, exampleModels); err != nil {
				return failed("Error creating "+path, err)
			}
			fmt.Printf("✅ Created %s example file.\n", path)
			fmt.Println("📝 Set ORMATO_SCHEMA=models to generate migrations from your structs")
		} else {
			if err := writeExample(cfg.Schema, exampleSchema); err != nil {
				return failed("Error creating "+cfg.Schema, err)
			}
			fmt.Printf("✅ Created %s example file.\n", cfg.Schema)
			fmt.Printf("📝 Edit %s to define your database schema\n", cfg.Schema)
		}
		fmt.Println("🚀 Run 'ormato generate <name>' to create a migration from your schema")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&useStructs, "structs", false, "Create Go struct models instead of a YAML schema")
}

func writeExample(path, content string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

const exampleSchema = `# Column types are Go type names; the dialect maps them to SQL.
# Override the mapping per project:
# types:
#   string: VARCHAR(255)
tables:
  - name: users
    columns:
      - {name: id, type: int64, primary: true}
      - {name: email, type: string, unique: true}
      - {name: name, type: string, nullable: true}
      - {name: status, type: string, default: "'active'"}
      - {name: created_at, type: time.Time, default: CURRENT_TIMESTAMP}

  - name: posts
    columns:
      - {name: id, type: int64, primary: true}
      - {name: user_id, type: int64}
      - {name: title, type: string}
      - {name: body, type: string, nullable: true}
      - {name: published_at, type: time.Time, nullable: true}
    unique:
      - [user_id, title]
    foreign_keys:
      - {columns: [user_id], references: users, ref_columns: [id], on_delete: CASCADE}
`

const exampleModels = `package models

import "time"

// db:"column,default:expr" names a column; ormato:"..." adds constraints:
// primary, unique and fk:table.column[:on_delete[:on_update]].

type User struct {
	ID        int64     ` + "`db:\"id\" ormato:\"primary\"`" + `
	Email     string    ` + "`db:\"email\" ormato:\"unique\"`" + `
	Name      *string   ` + "`db:\"name\"`" + `
	Status    string    ` + "`db:\"status,default:'active'\"`" + `
	CreatedAt time.Time ` + "`db:\"created_at,default:CURRENT_TIMESTAMP\"`" + `
}

type Post struct {
	ID          int64      ` + "`db:\"id\" ormato:\"primary\"`" + `
	UserID      int64      ` + "`db:\"user_id\" ormato:\"fk:users.id:CASCADE\"`" + `
	Title       string     ` + "`db:\"title\"`" + `
	Body        *string    ` + "`db:\"body\"`" + `
	PublishedAt *time.Time ` + "`db:\"published_at\"`" + `
}

func (Post) TableName() string { return "posts" }

func (User) TableName() string { return "users" }
`
