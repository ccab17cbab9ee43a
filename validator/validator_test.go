package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/ormato/dialect"
	"github.com/ridoystarlord/ormato/generator"
	"github.com/ridoystarlord/ormato/schema"
)

func mustModel(t *testing.T, name string, cols ...schema.Column) *schema.Model {
	t.Helper()
	m, err := schema.NewModel(name, name, "", cols)
	require.NoError(t, err)
	return m
}

func ptr(s string) *string { return &s }

func mapping(t *testing.T) generator.TypeMapping {
	t.Helper()
	m, err := dialect.TypeMapping(dialect.Postgres)
	require.NoError(t, err)
	return m
}

func types(issues []Issue) []string {
	out := make([]string, len(issues))
	for i, issue := range issues {
		out[i] = issue.Type + ":" + issue.Table + "." + issue.Column
	}
	return out
}

func TestValidSchema(t *testing.T) {
	reg := schema.NewRegistry()
	_, err := reg.RegisterModel(mustModel(t, "accounts",
		schema.Column{Name: "id", Type: "int64"},
		schema.Column{Name: "email", Type: "string", Default: ptr("'none'")},
		schema.Column{Name: "active", Type: "bool", Default: ptr("true")},
	), schema.NewPrimaryKey("id"))
	require.NoError(t, err)
	fk := schema.NewForeignKey([]string{"account_id"}, "accounts", []string{"id"})
	fk.OnDelete = "cascade"
	_, err = reg.RegisterModel(mustModel(t, "invoices",
		schema.Column{Name: "id", Type: "int64"},
		schema.Column{Name: "account_id", Type: "int64"},
		schema.Column{Name: "issued_at", Type: "time.Time", Default: ptr("now()")},
	), schema.NewPrimaryKey("id"), fk)
	require.NoError(t, err)

	result := Validate(reg, mapping(t))
	assert.True(t, result.Valid(), "%v", result.Errors)
	assert.Empty(t, result.Warnings)
}

func TestValidateReportsIssues(t *testing.T) {
	reg := schema.NewRegistry()
	_, err := reg.RegisterModel(mustModel(t, "user",
		schema.Column{Name: "id", Type: "int64"},
		schema.Column{Name: "order", Type: "string"},
		schema.Column{Name: "score", Type: "float64", Default: ptr("high")},
		schema.Column{Name: "blob", Type: "[]byte"},
	))
	require.NoError(t, err)
	fk := schema.NewForeignKey([]string{"user_id"}, "user", []string{"order"})
	fk.OnDelete = "SET NULL"
	fk.OnUpdate = "EXPLODE"
	_, err = reg.RegisterModel(mustModel(t, "bad-name",
		schema.Column{Name: "1st", Type: "int"},
		schema.Column{Name: "user_id", Type: "int64"},
	), fk)
	require.NoError(t, err)

	m := mapping(t)
	delete(m, "[]byte")
	result := Validate(reg, m)
	assert.False(t, result.Valid())
	assert.ElementsMatch(t, []string{
		"data_type:user.blob",
		"table_name:bad-name.",
		"column_name:bad-name.1st",
		"foreign_key:bad-name.",
		"foreign_key:bad-name.user_id",
	}, types(result.Errors))
	assert.ElementsMatch(t, []string{
		"reserved_keyword:user.",
		"no_primary_key:user.",
		"reserved_keyword:user.order",
		"default_value:user.score",
		"no_primary_key:bad-name.",
		"foreign_key:bad-name.",
	}, types(result.Warnings))

	assert.Contains(t, result.Errors[0].String(), "error [")
}

func TestValidateRegistryErrors(t *testing.T) {
	reg := schema.NewRegistry()
	_, err := reg.RegisterModel(mustModel(t, "posts", schema.Column{Name: "author_id", Type: "int64"}),
		schema.NewForeignKey([]string{"author_id"}, "authors", []string{"id"}))
	require.NoError(t, err)

	result := Validate(reg, nil)
	require.False(t, result.Valid())
	assert.Equal(t, "registry", result.Errors[0].Type)
}

func TestValidateDefaultValue(t *testing.T) {
	tests := []struct {
		kind  schema.Kind
		value string
		ok    bool
	}{
		{schema.KindInteger, "42", true},
		{schema.KindInteger, "4.2", false},
		{schema.KindReal, "4.2", true},
		{schema.KindBoolean, "FALSE", true},
		{schema.KindBoolean, "maybe", false},
		{schema.KindText, "'hi'", true},
		{schema.KindText, "hi", false},
		{schema.KindTime, "CURRENT_TIMESTAMP", true},
		{schema.KindText, "gen_random_uuid()", true},
		{schema.KindBlob, "x", true},
	}
	for _, tt := range tests {
		err := validateDefaultValue(tt.kind, tt.value)
		if tt.ok {
			assert.NoError(t, err, tt.value)
		} else {
			assert.Error(t, err, tt.value)
		}
	}
}
