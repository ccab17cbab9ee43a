package generator

import (
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ridoystarlord/ormato/schema"
)

// TypeMapping maps the Go type name recorded on a column (int64, string,
// time.Time, uuid.UUID, ...) to a SQL column type.
type TypeMapping map[string]string

// CreateTable converts a model and its constraints into a CREATE TABLE
// statement. Column clauses come first in declaration order, followed by
// the primary key, the foreign keys and the unique constraints.
func CreateTable(m *schema.Model, mapping TypeMapping) (string, error) {
	if m == nil {
		return "", schema.Configf("", "cannot generate DDL for a nil model")
	}

	var clauses []string
	for _, col := range m.Columns() {
		clause, err := columnClause(m, col, mapping)
		if err != nil {
			return "", err
		}
		clauses = append(clauses, clause)
	}

	if pk, ok := m.PrimaryKey(); ok {
		clauses = append(clauses, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pk.Columns, ", ")))
	}
	for _, fk := range m.ForeignKeys() {
		clause := fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s(%s)",
			strings.Join(fk.Columns, ", "),
			fk.Table,
			strings.Join(fk.References, ", "),
		)
		if fk.OnDelete != "" {
			clause += " ON DELETE " + fk.OnDelete
		}
		if fk.OnUpdate != "" {
			clause += " ON UPDATE " + fk.OnUpdate
		}
		clauses = append(clauses, clause)
	}
	for _, u := range m.UniqueConstraints() {
		clauses = append(clauses, fmt.Sprintf("UNIQUE (%s)", strings.Join(u.Columns, ", ")))
	}

	return fmt.Sprintf("CREATE TABLE %s (%s)", m.Table(), strings.Join(clauses, ", ")), nil
}

// columnClause renders "name TYPE[ NOT NULL][ DEFAULT x]".
func columnClause(m *schema.Model, col schema.Column, mapping TypeMapping) (string, error) {
	sqlType, ok := mapping[col.Type]
	if !ok || sqlType == "" {
		return "", &schema.ConfigurationError{
			Model:  m.Name(),
			Column: col.Name,
			Reason: fmt.Sprintf("no SQL type mapped for Go type %q", col.Type),
		}
	}

	clause := col.Name + " " + sqlType
	nullable, err := m.IsNullable(col.Name)
	if err != nil {
		return "", err
	}
	if !nullable {
		clause += " NOT NULL"
	}
	if col.Default != nil {
		clause += " DEFAULT " + *col.Default
	}
	return clause, nil
}

// AddColumn returns an ALTER TABLE statement adding one declared column
// of m.
func AddColumn(m *schema.Model, column string, mapping TypeMapping) (string, error) {
	if m == nil {
		return "", schema.Configf("", "cannot generate DDL for a nil model")
	}
	col, ok := m.Column(column)
	if !ok {
		return "", &schema.ConfigurationError{Model: m.Name(), Column: column, Reason: "unknown column"}
	}
	clause, err := columnClause(m, col, mapping)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", m.Table(), clause), nil
}

// DropColumn returns an ALTER TABLE statement removing a column.
func DropColumn(table, column string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", table, column)
}

// DropTable returns an unconditional DROP TABLE statement for the model.
func DropTable(m *schema.Model) string {
	return "DROP TABLE " + m.Table()
}

// CreateTables generates CREATE TABLE statements for many models at once.
// The result keeps the order of models.
func CreateTables(models []*schema.Model, mapping TypeMapping) ([]string, error) {
	stmts := make([]string, len(models))
	var g errgroup.Group
	for i, m := range models {
		i, m := i, m
		g.Go(func() error {
			stmt, err := CreateTable(m, mapping)
			if err != nil {
				return err
			}
			stmts[i] = stmt
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stmts, nil
}

// DependencyOrder sorts models so that each comes after the models its
// foreign keys reference. Cycles and self references keep input order.
func DependencyOrder(models []*schema.Model) []*schema.Model {
	byTable := make(map[string]*schema.Model, len(models))
	for _, m := range models {
		byTable[m.Table()] = m
	}
	var (
		out      []*schema.Model
		visiting = map[string]bool{}
		done     = map[string]bool{}
	)
	var visit func(m *schema.Model)
	visit = func(m *schema.Model) {
		if done[m.Table()] || visiting[m.Table()] {
			return
		}
		visiting[m.Table()] = true
		for _, fk := range m.ForeignKeys() {
			if dep, ok := byTable[fk.Table]; ok {
				visit(dep)
			}
		}
		visiting[m.Table()] = false
		done[m.Table()] = true
		out = append(out, m)
	}
	for _, m := range models {
		visit(m)
	}
	return out
}

// MigrationFor returns the up and down statements of a migration creating
// the given models. Referenced tables are created first and dropped last.
func MigrationFor(models []*schema.Model, mapping TypeMapping) (up, down []string, err error) {
	models = DependencyOrder(models)
	up, err = CreateTables(models, mapping)
	if err != nil {
		return nil, nil, err
	}
	for i := len(models) - 1; i >= 0; i-- {
		down = append(down, DropTable(models[i]))
	}
	return up, down, nil
}
