package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/ormato/dialect"
	"github.com/ridoystarlord/ormato/generator"
	"github.com/ridoystarlord/ormato/schema"
)

const blogYAML = `
types:
  string: VARCHAR(255)
tables:
  - name: users
    columns:
      - {name: id, type: int64, primary: true}
      - {name: email, type: string, unique: true}
      - {name: bio, type: string, nullable: true}
      - {name: active, type: bool, default: "true"}
  - name: posts
    model: Post
    alias: p
    columns:
      - {name: id, type: int64}
      - {name: user_id, type: int64}
      - {name: title, type: string}
      - {name: published_at, type: "*time.Time"}
    primary_key: [id]
    unique:
      - [user_id, title]
    foreign_keys:
      - {columns: [user_id], references: users, ref_columns: [id], on_delete: CASCADE}
`

func nullable(t *testing.T, m *schema.Model, column string) bool {
	t.Helper()
	ok, err := m.IsNullable(column)
	require.NoError(t, err)
	return ok
}

func TestParseYAML(t *testing.T) {
	s, err := ParseYAML([]byte(blogYAML))
	require.NoError(t, err)

	models := s.Registry.Models()
	require.Len(t, models, 2)

	users := models[0]
	assert.Equal(t, "users", users.Table())
	assert.Equal(t, "u", users.Alias())
	pk, ok := users.PrimaryKey()
	require.True(t, ok)
	assert.Equal(t, []string{"id"}, pk.Columns)
	assert.Equal(t, []schema.Unique{schema.NewUnique("email")}, users.UniqueConstraints())
	assert.True(t, nullable(t, users, "bio"))
	assert.False(t, nullable(t, users, "email"))

	post, ok := s.Registry.ModelByName("Post")
	require.True(t, ok)
	assert.Equal(t, "posts", post.Table())
	assert.Equal(t, "p", post.Alias())
	require.Len(t, post.ForeignKeys(), 1)
	assert.Equal(t, "CASCADE", post.ForeignKeys()[0].OnDelete)
	assert.True(t, nullable(t, post, "published_at"))

	assert.Equal(t, generator.TypeMapping{"string": "VARCHAR(255)"}, s.Types)
}

func TestYAMLSchemaGeneratesDDL(t *testing.T) {
	s, err := ParseYAML([]byte(blogYAML))
	require.NoError(t, err)
	base, err := dialect.TypeMapping(dialect.Postgres)
	require.NoError(t, err)
	mapping := s.Mapping(base)
	assert.Equal(t, "TEXT", base["string"], "base mapping must not change")

	users, _ := s.Registry.ModelByName("users")
	ddl, err := generator.CreateTable(users, mapping)
	require.NoError(t, err)
	assert.Equal(t,
		"CREATE TABLE users (id BIGINT NOT NULL, email VARCHAR(255) NOT NULL, bio VARCHAR(255), "+
			"active BOOLEAN NOT NULL DEFAULT true, PRIMARY KEY (id), UNIQUE (email))",
		ddl)
}

func TestParseYAMLErrors(t *testing.T) {
	cases := map[string]string{
		"bad yaml":         "tables: [",
		"unknown type":     "tables: [{name: a, columns: [{name: x, type: complex128}]}]",
		"missing type":     "tables: [{name: a, columns: [{name: x}]}]",
		"no columns":       "tables: [{name: a}]",
		"unknown pk col":   "tables: [{name: a, columns: [{name: x, type: int}], primary_key: [y]}]",
		"double pk":        "tables: [{name: a, columns: [{name: x, type: int, primary: true}], primary_key: [x]}]",
		"unknown fk table": "tables: [{name: a, columns: [{name: x, type: int}], foreign_keys: [{columns: [x], references: b, ref_columns: [id]}]}]",
		"duplicate table":  "tables: [{name: a, columns: [{name: x, type: int}]}, {name: a, columns: [{name: x, type: int}]}]",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseYAML([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadModelsFromYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(blogYAML), 0o644))
	s, err := LoadModelsFromYAML(path)
	require.NoError(t, err)
	assert.Len(t, s.Registry.Models(), 2)

	_, err = LoadModelsFromYAML(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

const modelsSource = "package models\n" + `
import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type Account struct {
	ID        int64     ` + "`db:\"id\" ormato:\"primary\"`" + `
	Email     string    ` + "`ormato:\"unique\"`" + `
	Nick      sql.NullString
	Key       uuid.UUID
	CreatedAt time.Time ` + "`db:\"created_at,default:CURRENT_TIMESTAMP\"`" + `
	Avatar    []byte
	cache     string
	Skip      string ` + "`db:\"-\"`" + `
}

func (Account) TableName() string { return "accounts" }

type Invoice struct {
	ID        int64    ` + "`ormato:\"primary\"`" + `
	AccountID int64    ` + "`ormato:\"fk:accounts.id:CASCADE\"`" + `
	Total     *float64 ` + "`db:\"total\"`" + `
}

type helper struct {
	Name string ` + "`db:\"name\"`" + `
}

type Untagged struct {
	Name string
}
`

func TestLoadModelsFromTags(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "models.go"), []byte(modelsSource), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "models_test.go"), []byte("package models\n\ntype Fixture struct {\n\tID int `db:\"id\"`\n}\n"), 0o644))

	s, err := LoadModelsFromTags(dir)
	require.NoError(t, err)
	models := s.Registry.Models()
	require.Len(t, models, 2)

	account, ok := s.Registry.ModelByName("Account")
	require.True(t, ok)
	assert.Equal(t, "accounts", account.Table())
	assert.Equal(t, []string{"id", "email", "nick", "key", "created_at", "avatar"}, account.ColumnNames())
	assert.True(t, nullable(t, account, "nick"))
	col, _ := account.Column("key")
	assert.Equal(t, "uuid.UUID", col.Type)
	col, _ = account.Column("created_at")
	require.NotNil(t, col.Default)
	assert.Equal(t, "CURRENT_TIMESTAMP", *col.Default)

	invoice, ok := s.Registry.ModelByName("invoice")
	require.True(t, ok)
	assert.Equal(t, "Invoice", invoice.Name())
	fks := invoice.ForeignKeys()
	require.Len(t, fks, 1)
	assert.Equal(t, []string{"account_id"}, fks[0].Columns)
	assert.Equal(t, "accounts", fks[0].Table)
	assert.Equal(t, "CASCADE", fks[0].OnDelete)
	assert.True(t, nullable(t, invoice, "total"))

	_, err = LoadModelsFromTags(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestParseOrmatoTag(t *testing.T) {
	tag, err := parseOrmatoTag("primary; unique ;fk:users.id:SET NULL:CASCADE")
	require.NoError(t, err)
	assert.True(t, tag.Primary)
	assert.True(t, tag.Unique)
	require.NotNil(t, tag.ForeignKey)
	assert.Equal(t, "users", tag.ForeignKey.Table)
	assert.Equal(t, []string{"id"}, tag.ForeignKey.References)
	assert.Equal(t, "SET NULL", tag.ForeignKey.OnDelete)
	assert.Equal(t, "CASCADE", tag.ForeignKey.OnUpdate)

	_, err = parseOrmatoTag("fk:users")
	assert.Error(t, err)
	_, err = parseOrmatoTag("index")
	assert.Error(t, err)
}
