package orm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ridoystarlord/ormato/query"
	"github.com/ridoystarlord/ormato/schema"
)

// primaryKey returns the primary key of m or a ConfigurationError naming
// the operation that needed it.
func primaryKey(m *schema.Model, op string) (schema.PrimaryKey, error) {
	pk, ok := m.PrimaryKey()
	if !ok {
		return pk, schema.Configf(m.Name(), "%s requires a primary key", op)
	}
	return pk, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// Insert writes v as a new row. Every declared column is written.
func (s *Session) Insert(ctx context.Context, v any) error {
	m, err := s.reg.Model(v)
	if err != nil {
		return err
	}
	values, err := m.Values(v)
	if err != nil {
		return err
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		m.Table(), strings.Join(m.ColumnNames(), ", "), placeholders(len(values)))
	_, err = s.Exec(ctx, query.Raw(stmt), values...)
	return err
}

// Update writes every non-key column of v to the row with v's primary key
// and returns the number of rows changed.
func (s *Session) Update(ctx context.Context, v any) (int64, error) {
	m, err := s.reg.Model(v)
	if err != nil {
		return 0, err
	}
	pk, err := primaryKey(m, "update")
	if err != nil {
		return 0, err
	}

	var (
		sets   []string
		params []any
	)
	for _, col := range m.ColumnNames() {
		if contains(pk.Columns, col) {
			continue
		}
		val, err := m.Value(v, col)
		if err != nil {
			return 0, err
		}
		sets = append(sets, col+" = ?")
		params = append(params, val)
	}
	if len(sets) == 0 {
		return 0, schema.Configf(m.Name(), "update has no non-key columns to set")
	}
	where, keys, err := keyFilter(m, pk, v)
	if err != nil {
		return 0, err
	}
	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s", m.Table(), strings.Join(sets, ", "), where)
	return s.Exec(ctx, query.Raw(stmt), append(params, keys...)...)
}

// Delete removes the row with v's primary key.
func (s *Session) Delete(ctx context.Context, v any) (int64, error) {
	m, err := s.reg.Model(v)
	if err != nil {
		return 0, err
	}
	pk, err := primaryKey(m, "delete")
	if err != nil {
		return 0, err
	}
	where, keys, err := keyFilter(m, pk, v)
	if err != nil {
		return 0, err
	}
	return s.Exec(ctx, query.Raw(fmt.Sprintf("DELETE FROM %s WHERE %s", m.Table(), where)), keys...)
}

// DeleteAll removes every row of the model's table. model may be a value,
// pointer, type or name understood by the registry.
func (s *Session) DeleteAll(ctx context.Context, model any) (int64, error) {
	m, err := s.reg.Model(model)
	if err != nil {
		return 0, err
	}
	return s.Exec(ctx, query.Raw("DELETE FROM "+m.Table()))
}

// All loads every row of the model into dest, a pointer to a slice.
func (s *Session) All(ctx context.Context, dest any) error {
	m, err := s.reg.Model(dest)
	if err != nil {
		return err
	}
	return s.Find(ctx, query.Select(m), dest)
}

// First loads the row whose primary key equals id into dest, a pointer to
// a model value. Composite keys take one id per key column, in key order.
// It returns ErrNotFound when no row matches.
func (s *Session) First(ctx context.Context, dest any, id ...any) error {
	m, err := s.reg.Model(dest)
	if err != nil {
		return err
	}
	pk, err := primaryKey(m, "first")
	if err != nil {
		return err
	}
	if len(id) != len(pk.Columns) {
		return &query.ValidationError{
			Reason: fmt.Sprintf("%s has %d primary key columns but %d ids were given", m.Name(), len(pk.Columns), len(id)),
		}
	}
	conds := make([]query.Expr, len(id))
	for i, col := range pk.Columns {
		conds[i] = query.Eq(query.C(col), id[i])
	}
	q := query.Select(m).Where(query.And(conds[0], conds[1:]...)).Limit(1)
	return s.Find(ctx, q, dest)
}

// keyFilter renders "k1 = ? AND k2 = ?" for the primary key of m together
// with the key values of v.
func keyFilter(m *schema.Model, pk schema.PrimaryKey, v any) (string, []any, error) {
	conds := make([]string, len(pk.Columns))
	keys := make([]any, len(pk.Columns))
	for i, col := range pk.Columns {
		val, err := m.Value(v, col)
		if err != nil {
			return "", nil, err
		}
		conds[i] = col + " = ?"
		keys[i] = val
	}
	return strings.Join(conds, " AND "), keys, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
