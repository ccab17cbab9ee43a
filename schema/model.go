package schema

import (
	"reflect"
	"strings"
)

// Kind classifies a column for SQL purposes. Nullability is tracked
// separately on the column.
type Kind int

const (
	KindInteger Kind = iota
	KindText
	KindReal
	KindBoolean
	KindTime
	KindBlob
)

var kindNames = [...]string{
	KindInteger: "integer",
	KindText:    "text",
	KindReal:    "real",
	KindBoolean: "boolean",
	KindTime:    "time",
	KindBlob:    "blob",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Column describes one mapped field of a model.
type Column struct {
	Name     string
	Type     string // Go type name, the key used by type mappings
	Kind     Kind
	Nullable bool
	Default  *string

	field string
	index []int
}

// Field returns the Go field name backing the column, if any.
func (c Column) Field() string { return c.field }

// Model is the immutable descriptor of a record type mapped to a table.
type Model struct {
	name        string
	table       string
	alias       string
	columns     []Column
	byName      map[string]int
	constraints []Constraint
	typ         reflect.Type
}

func (m *Model) Name() string  { return m.name }
func (m *Model) Table() string { return m.table }
func (m *Model) Alias() string { return m.alias }

// Type returns the reflected Go type, or nil for models loaded from files.
func (m *Model) Type() reflect.Type { return m.typ }

// Columns returns a copy of the ordered column list.
func (m *Model) Columns() []Column {
	cols := make([]Column, len(m.columns))
	copy(cols, m.columns)
	return cols
}

// ColumnNames returns the ordered column names.
func (m *Model) ColumnNames() []string {
	names := make([]string, len(m.columns))
	for i, c := range m.columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by name.
func (m *Model) Column(name string) (Column, bool) {
	i, ok := m.byName[name]
	if !ok {
		return Column{}, false
	}
	return m.columns[i], true
}

// HasColumn reports whether the model declares the column.
func (m *Model) HasColumn(name string) bool {
	_, ok := m.byName[name]
	return ok
}

// FieldIndex returns the reflect field index path for a column, used to
// hydrate values into the model's Go type.
func (m *Model) FieldIndex(name string) ([]int, bool) {
	i, ok := m.byName[name]
	if !ok || m.columns[i].index == nil {
		return nil, false
	}
	return m.columns[i].index, true
}

// Constraints returns the constraints attached at registration.
func (m *Model) Constraints() []Constraint {
	cons := make([]Constraint, len(m.constraints))
	copy(cons, m.constraints)
	return cons
}

// PrimaryKey returns the model's primary key, if any.
func (m *Model) PrimaryKey() (PrimaryKey, bool) {
	for _, c := range m.constraints {
		if pk, ok := c.(PrimaryKey); ok {
			return pk, true
		}
	}
	return PrimaryKey{}, false
}

// ForeignKeys returns foreign keys in declaration order.
func (m *Model) ForeignKeys() []ForeignKey {
	var fks []ForeignKey
	for _, c := range m.constraints {
		if fk, ok := c.(ForeignKey); ok {
			fks = append(fks, fk)
		}
	}
	return fks
}

// UniqueConstraints returns unique constraints in declaration order.
func (m *Model) UniqueConstraints() []Unique {
	var us []Unique
	for _, c := range m.constraints {
		if u, ok := c.(Unique); ok {
			us = append(us, u)
		}
	}
	return us
}

// IsNullable reports whether a column may hold NULL: it must be declared
// nullable and must not be part of the primary key.
func (m *Model) IsNullable(column string) (bool, error) {
	col, ok := m.Column(column)
	if !ok {
		return false, &ConfigurationError{Model: m.name, Column: column, Reason: "unknown column"}
	}
	if pk, ok := m.PrimaryKey(); ok && contains(pk.Columns, column) {
		return false, nil
	}
	return col.Nullable, nil
}

// Values returns the column values of v in column order. v must be a value
// of, or pointer to, the model's Go type.
func (m *Model) Values(v any) ([]any, error) {
	rv, err := m.structValue(v)
	if err != nil {
		return nil, err
	}
	values := make([]any, len(m.columns))
	for i, c := range m.columns {
		f := rv.FieldByIndex(c.index)
		if f.Kind() == reflect.Pointer && f.IsNil() {
			values[i] = nil
			continue
		}
		values[i] = f.Interface()
	}
	return values, nil
}

// Value returns a single column value of v.
func (m *Model) Value(v any, column string) (any, error) {
	rv, err := m.structValue(v)
	if err != nil {
		return nil, err
	}
	idx, ok := m.FieldIndex(column)
	if !ok {
		return nil, &ConfigurationError{Model: m.name, Column: column, Reason: "unknown column"}
	}
	f := rv.FieldByIndex(idx)
	if f.Kind() == reflect.Pointer && f.IsNil() {
		return nil, nil
	}
	return f.Interface(), nil
}

func (m *Model) structValue(v any) (reflect.Value, error) {
	if m.typ == nil {
		return reflect.Value{}, Configf(m.name, "model has no Go type")
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return reflect.Value{}, Configf(m.name, "nil %s value", m.name)
		}
		rv = rv.Elem()
	}
	if rv.Type() != m.typ {
		return reflect.Value{}, Configf(m.name, "value of type %s is not a %s", rv.Type(), m.typ)
	}
	return rv, nil
}

// NewModel builds a descriptor without reflection, for models declared in
// schema files. An empty table is derived from the name and an empty alias
// from the table.
func NewModel(name, table, alias string, columns []Column) (*Model, error) {
	if name == "" && table == "" {
		return nil, Configf("", "model needs a name or a table")
	}
	if name == "" {
		name = table
	}
	if table == "" {
		table = TableName(name)
	}
	if alias == "" {
		alias = AliasFor(table)
	}
	m := &Model{name: name, table: table, alias: alias}
	for _, c := range columns {
		if c.Type == "" {
			return nil, &ConfigurationError{Model: name, Column: c.Name, Reason: "column type is required"}
		}
		kind, ok := kindOfTypeName(strings.TrimPrefix(c.Type, "*"))
		if !ok {
			return nil, &ConfigurationError{Model: name, Column: c.Name, Reason: "unsupported type " + c.Type}
		}
		if strings.HasPrefix(c.Type, "*") {
			c.Type = strings.TrimPrefix(c.Type, "*")
			c.Nullable = true
		}
		c.Kind = kind
		c.index = nil
		m.columns = append(m.columns, c)
	}
	if err := m.index(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Model) index() error {
	if len(m.columns) == 0 {
		return Configf(m.name, "model declares no columns")
	}
	m.byName = make(map[string]int, len(m.columns))
	for i, c := range m.columns {
		if c.Name == "" {
			return Configf(m.name, "column %d has no name", i)
		}
		if _, dup := m.byName[c.Name]; dup {
			return &ConfigurationError{Model: m.name, Column: c.Name, Reason: "duplicate column"}
		}
		m.byName[c.Name] = i
	}
	return nil
}

// withConstraints returns a frozen copy of m carrying the constraints.
func (m *Model) withConstraints(cons []Constraint) *Model {
	cp := *m
	cp.columns = m.Columns()
	cp.constraints = make([]Constraint, len(cons))
	copy(cp.constraints, cons)
	cp.byName = make(map[string]int, len(m.byName))
	for k, v := range m.byName {
		cp.byName[k] = v
	}
	return &cp
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
