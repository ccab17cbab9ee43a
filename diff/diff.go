// Package diff compares registered models with an introspected database
// and produces the statements that bring the database in line.
package diff

import (
	"fmt"
	"strings"

	"github.com/ridoystarlord/ormato/generator"
	"github.com/ridoystarlord/ormato/introspect"
	"github.com/ridoystarlord/ormato/schema"
)

type OperationType string

const (
	CreateTable OperationType = "CREATE_TABLE"
	AddColumn   OperationType = "ADD_COLUMN"
	DropColumn  OperationType = "DROP_COLUMN"
	DropTable   OperationType = "DROP_TABLE"
)

type Operation struct {
	Type      OperationType
	TableName string
	Model     *schema.Model // CREATE_TABLE, ADD_COLUMN
	Column    string        // ADD_COLUMN, DROP_COLUMN

	// Existing is the table as found in the database, used to undo
	// DROP_COLUMN and DROP_TABLE.
	Existing *introspect.ExistingTable
}

func (op Operation) String() string {
	if op.Column != "" {
		return fmt.Sprintf("%s %s.%s", op.Type, op.TableName, op.Column)
	}
	return fmt.Sprintf("%s %s", op.Type, op.TableName)
}

// DiffSchemas lists the operations that turn existing into models. Tables
// named in ignore (the migration bookkeeping table, typically) are never
// dropped. Created tables are ordered so that referenced tables come
// first.
func DiffSchemas(models []*schema.Model, existing []introspect.ExistingTable, ignore ...string) []Operation {
	existingTableMap := map[string]*introspect.ExistingTable{}
	for i := range existing {
		existingTableMap[existing[i].TableName] = &existing[i]
	}
	modelTableMap := map[string]bool{}
	for _, m := range models {
		modelTableMap[m.Table()] = true
	}
	for _, name := range ignore {
		modelTableMap[name] = true
	}

	var creates []*schema.Model
	var ops []Operation
	for _, model := range models {
		table, exists := existingTableMap[model.Table()]
		if !exists {
			creates = append(creates, model)
			continue
		}
		for _, col := range model.ColumnNames() {
			if _, ok := table.Column(col); !ok {
				ops = append(ops, Operation{Type: AddColumn, TableName: model.Table(), Model: model, Column: col})
			}
		}
		for _, col := range table.Columns {
			if !model.HasColumn(col.ColumnName) {
				ops = append(ops, Operation{Type: DropColumn, TableName: model.Table(), Column: col.ColumnName, Existing: table})
			}
		}
	}

	createOps := make([]Operation, 0, len(creates))
	for _, m := range generator.DependencyOrder(creates) {
		createOps = append(createOps, Operation{Type: CreateTable, TableName: m.Table(), Model: m})
	}
	ops = append(createOps, ops...)

	var drops []*introspect.ExistingTable
	for i := range existing {
		if !modelTableMap[existing[i].TableName] {
			drops = append(drops, &existing[i])
		}
	}
	for _, t := range dropOrder(drops) {
		ops = append(ops, Operation{Type: DropTable, TableName: t.TableName, Existing: t})
	}
	return ops
}

// dropOrder sorts tables so that each comes after the tables whose
// foreign keys reference it. Unrelated tables keep input order.
func dropOrder(tables []*introspect.ExistingTable) []*introspect.ExistingTable {
	referencedBy := map[string][]*introspect.ExistingTable{}
	for _, t := range tables {
		for _, fk := range t.ForeignKeys {
			if fk.ReferencesTable != t.TableName {
				referencedBy[fk.ReferencesTable] = append(referencedBy[fk.ReferencesTable], t)
			}
		}
	}
	var (
		out      []*introspect.ExistingTable
		visiting = map[string]bool{}
		done     = map[string]bool{}
	)
	var visit func(t *introspect.ExistingTable)
	visit = func(t *introspect.ExistingTable) {
		if done[t.TableName] || visiting[t.TableName] {
			return
		}
		visiting[t.TableName] = true
		for _, dep := range referencedBy[t.TableName] {
			visit(dep)
		}
		visiting[t.TableName] = false
		done[t.TableName] = true
		out = append(out, t)
	}
	for _, t := range tables {
		visit(t)
	}
	return out
}

// Statements renders the up statements of ops in order and their undo
// statements in reverse order.
func Statements(ops []Operation, mapping generator.TypeMapping) (up, down []string, err error) {
	for _, op := range ops {
		u, d, err := op.SQL(mapping)
		if err != nil {
			return nil, nil, err
		}
		up = append(up, u)
		down = append([]string{d}, down...)
	}
	return up, down, nil
}

// SQL returns the statement for op and the statement that undoes it.
func (op Operation) SQL(mapping generator.TypeMapping) (up, down string, err error) {
	switch op.Type {
	case CreateTable:
		up, err = generator.CreateTable(op.Model, mapping)
		return up, generator.DropTable(op.Model), err
	case AddColumn:
		up, err = generator.AddColumn(op.Model, op.Column, mapping)
		return up, generator.DropColumn(op.TableName, op.Column), err
	case DropColumn:
		col, ok := op.Existing.Column(op.Column)
		if !ok {
			return "", "", fmt.Errorf("%s: column not found in database", op)
		}
		return generator.DropColumn(op.TableName, op.Column),
			fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", op.TableName, existingColumnClause(col)), nil
	case DropTable:
		return "DROP TABLE " + op.TableName, recreateTable(op.Existing), nil
	}
	return "", "", fmt.Errorf("unknown operation type %q", op.Type)
}

func existingColumnClause(c introspect.ExistingColumn) string {
	clause := c.ColumnName + " " + c.DataType
	if !c.IsNullable {
		clause += " NOT NULL"
	}
	if c.ColumnDefault != nil {
		clause += " DEFAULT " + *c.ColumnDefault
	}
	return clause
}

// recreateTable rebuilds the CREATE TABLE statement of an introspected
// table.
func recreateTable(t *introspect.ExistingTable) string {
	var clauses, pk []string
	for _, c := range t.Columns {
		clauses = append(clauses, existingColumnClause(c))
		if c.IsPrimaryKey {
			pk = append(pk, c.ColumnName)
		}
	}
	if len(pk) > 0 {
		clauses = append(clauses, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pk, ", ")))
	}
	for _, fk := range t.ForeignKeys {
		clause := fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s(%s)",
			strings.Join(fk.Columns, ", "), fk.ReferencesTable, strings.Join(fk.ReferencesColumns, ", "))
		if fk.OnDelete != "" && fk.OnDelete != "NO ACTION" {
			clause += " ON DELETE " + fk.OnDelete
		}
		if fk.OnUpdate != "" && fk.OnUpdate != "NO ACTION" {
			clause += " ON UPDATE " + fk.OnUpdate
		}
		clauses = append(clauses, clause)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", t.TableName, strings.Join(clauses, ", "))
}
