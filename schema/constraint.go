package schema

import "fmt"

// Constraint is a schema-level rule attached to a model at registration.
// The set of implementations is closed: PrimaryKey, ForeignKey and Unique.
type Constraint interface {
	ConstraintColumns() []string
	clone() Constraint
}

// PrimaryKey identifies rows of a model.
type PrimaryKey struct {
	Columns []string
}

// ForeignKey references columns of another table.
type ForeignKey struct {
	Columns    []string
	Table      string
	References []string
	OnDelete   string // CASCADE, SET NULL, RESTRICT, etc.
	OnUpdate   string
}

// Unique enforces uniqueness over a column set.
type Unique struct {
	Columns []string
}

// NewPrimaryKey returns a primary key over the given columns.
func NewPrimaryKey(columns ...string) PrimaryKey {
	return PrimaryKey{Columns: columns}
}

// NewForeignKey returns a foreign key from columns to table(references).
func NewForeignKey(columns []string, table string, references []string) ForeignKey {
	return ForeignKey{Columns: columns, Table: table, References: references}
}

// NewUnique returns a uniqueness constraint over the given columns.
func NewUnique(columns ...string) Unique {
	return Unique{Columns: columns}
}

func (c PrimaryKey) ConstraintColumns() []string { return c.Columns }
func (c ForeignKey) ConstraintColumns() []string { return c.Columns }
func (c Unique) ConstraintColumns() []string     { return c.Columns }

func (c PrimaryKey) clone() Constraint {
	return PrimaryKey{Columns: cloneStrings(c.Columns)}
}

func (c ForeignKey) clone() Constraint {
	c.Columns = cloneStrings(c.Columns)
	c.References = cloneStrings(c.References)
	return c
}

func (c Unique) clone() Constraint {
	return Unique{Columns: cloneStrings(c.Columns)}
}

func (c PrimaryKey) String() string {
	return fmt.Sprintf("PRIMARY KEY %v", c.Columns)
}

func (c ForeignKey) String() string {
	return fmt.Sprintf("FOREIGN KEY %v REFERENCES %s%v", c.Columns, c.Table, c.References)
}

func (c Unique) String() string {
	return fmt.Sprintf("UNIQUE %v", c.Columns)
}

// validateConstraints checks constraints against the model and returns
// private copies of them.
func validateConstraints(m *Model, cons []Constraint) ([]Constraint, error) {
	out := make([]Constraint, 0, len(cons))
	hasPK := false
	for _, c := range cons {
		if c == nil {
			return nil, Configf(m.name, "nil constraint")
		}
		cols := c.ConstraintColumns()
		if len(cols) == 0 {
			return nil, Configf(m.name, "%v has no columns", c)
		}
		seen := make(map[string]bool, len(cols))
		for _, col := range cols {
			if !m.HasColumn(col) {
				return nil, &ConfigurationError{Model: m.name, Column: col, Reason: fmt.Sprintf("%v references an undeclared column", c)}
			}
			if seen[col] {
				return nil, &ConfigurationError{Model: m.name, Column: col, Reason: fmt.Sprintf("%v repeats a column", c)}
			}
			seen[col] = true
		}
		switch c := c.(type) {
		case PrimaryKey:
			if hasPK {
				return nil, Configf(m.name, "more than one primary key")
			}
			hasPK = true
		case ForeignKey:
			if c.Table == "" {
				return nil, Configf(m.name, "%v has no target table", c)
			}
			if len(c.References) != len(cols) {
				return nil, Configf(m.name, "foreign key has %d columns but references %d", len(cols), len(c.References))
			}
		}
		out = append(out, c.clone())
	}
	return out, nil
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
