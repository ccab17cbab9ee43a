// Package validator lints a model registry before DDL is generated from it.
package validator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ridoystarlord/ormato/generator"
	"github.com/ridoystarlord/ormato/schema"
)

// Severity of an issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one finding about a table or column.
type Issue struct {
	Type     string
	Table    string
	Column   string
	Message  string
	Severity Severity
}

func (i Issue) String() string {
	loc := i.Table
	if i.Column != "" {
		loc += "." + i.Column
	}
	return fmt.Sprintf("%s [%s] %s: %s", i.Severity, i.Type, loc, i.Message)
}

// Result contains all validation results.
type Result struct {
	Errors   []Issue
	Warnings []Issue
}

// Valid reports whether no errors were found. Warnings do not count.
func (r *Result) Valid() bool { return len(r.Errors) == 0 }

func (r *Result) add(i Issue) {
	if i.Severity == SeverityError {
		r.Errors = append(r.Errors, i)
	} else {
		r.Warnings = append(r.Warnings, i)
	}
}

const maxIdentifier = 63

var reservedKeywords = map[string]bool{
	"user": true, "order": true, "group": true, "table": true, "index": true,
	"view": true, "schema": true, "select": true, "from": true, "where": true,
	"limit": true, "offset": true, "join": true, "references": true, "check": true,
}

var referentialActions = map[string]bool{
	"CASCADE": true, "SET NULL": true, "SET DEFAULT": true, "RESTRICT": true, "NO ACTION": true,
}

// Validate checks every model of reg. Identifiers must be plain SQL
// identifiers, every column type must be mapped, and foreign keys must
// point at declared tables. Reserved words, missing primary keys and
// suspicious defaults are reported as warnings.
func Validate(reg *schema.Registry, mapping generator.TypeMapping) *Result {
	result := &Result{}
	if err := reg.Validate(); err != nil {
		result.add(Issue{Type: "registry", Message: err.Error(), Severity: SeverityError})
	}
	for _, m := range reg.Models() {
		validateModel(reg, m, mapping, result)
	}
	return result
}

func validateModel(reg *schema.Registry, m *schema.Model, mapping generator.TypeMapping, result *Result) {
	table := m.Table()
	if err := validateIdentifier("table", table); err != nil {
		result.add(Issue{Type: "table_name", Table: table, Message: err.Error(), Severity: SeverityError})
	} else if reservedKeywords[strings.ToLower(table)] {
		result.add(Issue{
			Type:     "reserved_keyword",
			Table:    table,
			Message:  fmt.Sprintf("table name '%s' is a reserved keyword; statements are not quoted", table),
			Severity: SeverityWarning,
		})
	}
	if _, ok := m.PrimaryKey(); !ok {
		result.add(Issue{
			Type:     "no_primary_key",
			Table:    table,
			Message:  fmt.Sprintf("table '%s' has no primary key; update, delete and first are unavailable", table),
			Severity: SeverityWarning,
		})
	}

	for _, col := range m.Columns() {
		if err := validateIdentifier("column", col.Name); err != nil {
			result.add(Issue{Type: "column_name", Table: table, Column: col.Name, Message: err.Error(), Severity: SeverityError})
		} else if reservedKeywords[strings.ToLower(col.Name)] {
			result.add(Issue{
				Type:     "reserved_keyword",
				Table:    table,
				Column:   col.Name,
				Message:  fmt.Sprintf("column name '%s' is a reserved keyword", col.Name),
				Severity: SeverityWarning,
			})
		}
		if mapping != nil {
			if sqlType, ok := mapping[col.Type]; !ok || sqlType == "" {
				result.add(Issue{
					Type:     "data_type",
					Table:    table,
					Column:   col.Name,
					Message:  fmt.Sprintf("no SQL type mapped for Go type %q", col.Type),
					Severity: SeverityError,
				})
			}
		}
		if col.Default != nil {
			if err := validateDefaultValue(col.Kind, *col.Default); err != nil {
				result.add(Issue{Type: "default_value", Table: table, Column: col.Name, Message: err.Error(), Severity: SeverityWarning})
			}
		}
	}

	for _, fk := range m.ForeignKeys() {
		validateForeignKey(reg, m, fk, result)
	}
}

func validateIdentifier(what, name string) error {
	if name == "" {
		return fmt.Errorf("%s name cannot be empty", what)
	}
	if len(name) > maxIdentifier {
		return fmt.Errorf("%s name '%s' is too long (max %d characters)", what, name, maxIdentifier)
	}
	for i, char := range name {
		if !((char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9' && i > 0) || char == '_') {
			return fmt.Errorf("%s name '%s' contains invalid character '%c'", what, name, char)
		}
	}
	return nil
}

// validateDefaultValue accepts literals of the column's kind, quoted
// strings and function calls such as now().
func validateDefaultValue(kind schema.Kind, value string) error {
	if strings.Contains(value, "(") || strings.EqualFold(value, "NULL") || strings.HasPrefix(strings.ToUpper(value), "CURRENT_") {
		return nil
	}
	switch kind {
	case schema.KindInteger:
		if _, err := strconv.ParseInt(value, 10, 64); err != nil {
			return fmt.Errorf("integer column has non-integer default value '%s'", value)
		}
	case schema.KindReal:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return fmt.Errorf("real column has non-numeric default value '%s'", value)
		}
	case schema.KindBoolean:
		if _, err := strconv.ParseBool(value); err != nil {
			return fmt.Errorf("boolean column should have true/false default value, got '%s'", value)
		}
	case schema.KindText, schema.KindTime:
		if !strings.HasPrefix(value, "'") || !strings.HasSuffix(value, "'") || len(value) < 2 {
			return fmt.Errorf("%s column should have a quoted default value, got '%s'", kind, value)
		}
	}
	return nil
}

func validateForeignKey(reg *schema.Registry, m *schema.Model, fk schema.ForeignKey, result *Result) {
	table := m.Table()
	for _, action := range []string{fk.OnDelete, fk.OnUpdate} {
		if action != "" && !referentialActions[strings.ToUpper(action)] {
			result.add(Issue{
				Type:     "foreign_key",
				Table:    table,
				Message:  fmt.Sprintf("unknown referential action '%s'", action),
				Severity: SeverityError,
			})
		}
	}
	if strings.EqualFold(fk.OnDelete, "SET NULL") || strings.EqualFold(fk.OnUpdate, "SET NULL") {
		for _, col := range fk.Columns {
			if nullable, err := m.IsNullable(col); err == nil && !nullable {
				result.add(Issue{
					Type:     "foreign_key",
					Table:    table,
					Column:   col,
					Message:  "SET NULL action on a column that is NOT NULL",
					Severity: SeverityError,
				})
			}
		}
	}

	target, ok := reg.ModelByName(fk.Table)
	if !ok {
		return
	}
	if !isKey(target, fk.References) {
		result.add(Issue{
			Type:     "foreign_key",
			Table:    table,
			Message:  fmt.Sprintf("foreign key references %s(%s), which is neither its primary key nor unique", fk.Table, strings.Join(fk.References, ", ")),
			Severity: SeverityWarning,
		})
	}
}

func isKey(m *schema.Model, columns []string) bool {
	if pk, ok := m.PrimaryKey(); ok && sameColumns(pk.Columns, columns) {
		return true
	}
	for _, u := range m.UniqueConstraints() {
		if sameColumns(u.Columns, columns) {
			return true
		}
	}
	return false
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, c := range a {
		set[c] = true
	}
	for _, c := range b {
		if !set[c] {
			return false
		}
	}
	return true
}
