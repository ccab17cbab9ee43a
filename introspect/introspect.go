// Package introspect reads the tables, columns and foreign keys that exist
// in a live database.
package introspect

import (
	"context"
	"fmt"

	"github.com/ridoystarlord/ormato/database"
	"github.com/ridoystarlord/ormato/dialect"
	"github.com/ridoystarlord/ormato/orm"
	"github.com/ridoystarlord/ormato/schema"
)

type ExistingTable struct {
	TableName   string
	Columns     []ExistingColumn
	ForeignKeys []ExistingForeignKey
}

// Column returns the existing column with the given name.
func (t ExistingTable) Column(name string) (ExistingColumn, bool) {
	for _, c := range t.Columns {
		if c.ColumnName == name {
			return c, true
		}
	}
	return ExistingColumn{}, false
}

type ExistingColumn struct {
	ColumnName    string
	DataType      string
	IsNullable    bool
	ColumnDefault *string
	IsPrimaryKey  bool
}

// ExistingForeignKey is one foreign key constraint. Columns and
// ReferencesColumns line up pairwise.
type ExistingForeignKey struct {
	ConstraintName    string
	Columns           []string
	ReferencesTable   string
	ReferencesColumns []string
	OnDelete          string
	OnUpdate          string
}

// foreignKeyRow is one column pair of a foreign key as the catalogs list it.
type foreignKeyRow struct {
	ConstraintName   string
	ColumnName       string
	ReferencesTable  string
	ReferencesColumn string
	OnDelete         string
	OnUpdate         string
}

type tableRow struct {
	TableName string
}

// catalog holds the queries of one dialect. Each takes the table name as
// its only parameter, except tables.
type catalog struct {
	tables, columns, foreignKeys string
}

var catalogs = map[string]catalog{
	dialect.Postgres: {
		tables: `SELECT table_name
	FROM information_schema.tables
	WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
	ORDER BY table_name`,
		columns: `SELECT
		c.column_name,
		c.data_type,
		(c.is_nullable = 'YES') AS is_nullable,
		c.column_default,
		EXISTS (
			SELECT 1
			FROM information_schema.key_column_usage kcu
			JOIN information_schema.table_constraints tc
				ON kcu.constraint_name = tc.constraint_name AND kcu.table_name = tc.table_name
			WHERE tc.constraint_type = 'PRIMARY KEY'
				AND kcu.table_name = c.table_name AND kcu.column_name = c.column_name
		) AS is_primary_key
	FROM information_schema.columns c
	WHERE c.table_schema = 'public' AND c.table_name = ?
	ORDER BY c.ordinal_position`,
		foreignKeys: `SELECT
		kcu.constraint_name,
		kcu.column_name,
		ref.table_name AS references_table,
		ref.column_name AS references_column,
		rc.delete_rule AS on_delete,
		rc.update_rule AS on_update
	FROM information_schema.key_column_usage AS kcu
	JOIN information_schema.referential_constraints AS rc
		ON rc.constraint_name = kcu.constraint_name
		AND rc.constraint_schema = kcu.constraint_schema
	JOIN information_schema.key_column_usage AS ref
		ON ref.constraint_name = rc.unique_constraint_name
		AND ref.constraint_schema = rc.unique_constraint_schema
		AND ref.ordinal_position = kcu.position_in_unique_constraint
	WHERE kcu.table_schema = 'public'
		AND kcu.table_name = ?
	ORDER BY kcu.constraint_name, kcu.ordinal_position`,
	},
	dialect.SQLite: {
		tables: `SELECT name AS table_name
	FROM sqlite_master
	WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
	ORDER BY name`,
		columns: `SELECT
		name AS column_name,
		type AS data_type,
		"notnull" = 0 AS is_nullable,
		dflt_value AS column_default,
		pk > 0 AS is_primary_key
	FROM pragma_table_info(?)
	ORDER BY cid`,
		foreignKeys: `SELECT
		'fk_' || id AS constraint_name,
		"from" AS column_name,
		"table" AS references_table,
		"to" AS references_column,
		on_delete,
		on_update
	FROM pragma_foreign_key_list(?)
	ORDER BY id, seq`,
	},
}

var (
	tableModel  = mustDescribe(tableRow{})
	columnModel = mustDescribe(ExistingColumn{})
	fkModel     = mustDescribe(foreignKeyRow{})
)

func mustDescribe(v any) *schema.Model {
	m, err := schema.Describe(v)
	if err != nil {
		panic(err)
	}
	return m
}

// IntrospectDatabase lists the base tables of db with their columns and
// foreign keys, ordered by table name.
func IntrospectDatabase(ctx context.Context, db database.DB) ([]ExistingTable, error) {
	cat, ok := catalogs[db.Dialect()]
	if !ok {
		return nil, fmt.Errorf("introspection is not supported for dialect %q", db.Dialect())
	}

	var names []tableRow
	if err := load(ctx, db, tableModel, cat.tables, nil, &names); err != nil {
		return nil, fmt.Errorf("querying tables: %w", err)
	}

	tables := make([]ExistingTable, 0, len(names))
	for _, n := range names {
		t := ExistingTable{TableName: n.TableName}
		if err := load(ctx, db, columnModel, cat.columns, n.TableName, &t.Columns); err != nil {
			return nil, fmt.Errorf("getting columns for table %s: %w", n.TableName, err)
		}
		var fks []foreignKeyRow
		if err := load(ctx, db, fkModel, cat.foreignKeys, n.TableName, &fks); err != nil {
			return nil, fmt.Errorf("getting foreign keys for table %s: %w", n.TableName, err)
		}
		t.ForeignKeys = groupForeignKeys(fks)
		tables = append(tables, t)
	}
	return tables, nil
}

// groupForeignKeys merges the column pairs of each constraint, keeping the
// order in which constraints and columns were listed.
func groupForeignKeys(rows []foreignKeyRow) []ExistingForeignKey {
	var out []ExistingForeignKey
	index := map[string]int{}
	for _, r := range rows {
		i, ok := index[r.ConstraintName]
		if !ok {
			i = len(out)
			index[r.ConstraintName] = i
			out = append(out, ExistingForeignKey{
				ConstraintName:  r.ConstraintName,
				ReferencesTable: r.ReferencesTable,
				OnDelete:        r.OnDelete,
				OnUpdate:        r.OnUpdate,
			})
		}
		out[i].Columns = append(out[i].Columns, r.ColumnName)
		out[i].ReferencesColumns = append(out[i].ReferencesColumns, r.ReferencesColumn)
	}
	return out
}

func load(ctx context.Context, db database.Executor, m *schema.Model, sql string, table any, dest any) error {
	var params []any
	if table != nil {
		params = []any{table}
	}
	rs, err := db.Query(ctx, sql, params)
	if err != nil {
		return err
	}
	return orm.Hydrate(m, rs, dest)
}
