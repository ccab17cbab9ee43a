package query

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/ormato/schema"
)

type User struct {
	ID   int
	Name string
}

type UserProfile struct {
	ID     int     `db:"id"`
	UserID int     `db:"user_id"`
	Bio    *string `db:"bio"`
}

type Unit struct {
	ID    int
	Label string
}

func models(t *testing.T) (user, profile, unit *schema.Model) {
	t.Helper()
	reg := schema.NewRegistry()
	user = reg.MustRegister(User{}, schema.NewPrimaryKey("id"))
	profile = reg.MustRegister(UserProfile{},
		schema.NewPrimaryKey("id"),
		schema.NewForeignKey([]string{"user_id"}, "user", []string{"id"}),
	)
	unit = reg.MustRegister(Unit{}, schema.NewPrimaryKey("id"))
	return user, profile, unit
}

func TestBuildSelectLimit(t *testing.T) {
	user, _, _ := models(t)
	raw, params, err := Select(user).Limit(1).Build()
	require.NoError(t, err)
	assert.Equal(t, "SELECT u.id, u.name FROM user AS u LIMIT 1", raw.SQL)
	assert.Empty(t, params)
}

func TestBuildWhere(t *testing.T) {
	user, _, _ := models(t)
	raw, params, err := Build(Select(user).Where(Eq(C("id"), 5)))
	require.NoError(t, err)
	assert.Equal(t, "SELECT u.id, u.name FROM user AS u WHERE u.id = ?", raw.SQL)
	assert.Equal(t, 1, strings.Count(raw.SQL, "?"))
	assert.Equal(t, []any{5}, params)
}

func TestBuildJoin(t *testing.T) {
	user, profile, _ := models(t)

	raw, params, err := Select(user).Join(profile, Inner, On{Left: "id", Right: "user_id"}).Build()
	require.NoError(t, err)
	assert.Equal(t, "SELECT u.id, u.name FROM user AS u INNER JOIN user_profile AS up ON u.id = up.user_id", raw.SQL)
	assert.Empty(t, params)

	raw, _, err = Select(user).Join(profile, Left, On{Left: "id", Right: "user_id"}, "bio").Build()
	require.NoError(t, err)
	assert.Equal(t, "SELECT u.id, u.name, up.bio FROM user AS u LEFT JOIN user_profile AS up ON u.id = up.user_id", raw.SQL)
}

func TestBuildJoinColumnCollision(t *testing.T) {
	user, profile, _ := models(t)
	raw, _, err := Select(user).Join(profile, Right, On{Left: "id", Right: "user_id"}, "id", "bio").Build()
	require.NoError(t, err)
	assert.Equal(t, "SELECT u.id, u.name, up.id AS up_id, up.bio FROM user AS u RIGHT JOIN user_profile AS up ON u.id = up.user_id", raw.SQL)
}

func TestBuildJoinCollidesWithUnprojectedBaseColumn(t *testing.T) {
	user, profile, _ := models(t)
	raw, _, err := Select(user, "name").Join(profile, Inner, On{Left: "id", Right: "user_id"}, "id").Build()
	require.NoError(t, err)
	assert.Equal(t, "SELECT u.name, up.id AS up_id FROM user AS u INNER JOIN user_profile AS up ON u.id = up.user_id", raw.SQL)
}

func TestBuildAliasCollision(t *testing.T) {
	user, _, unit := models(t)
	q := Select(user).
		Join(unit, Inner, On{Left: "id", Right: "id"}, "label").
		Join(user, Left, On{Left: "u2.id", Right: "id"}, "name")
	raw, _, err := q.Build()
	require.NoError(t, err)
	assert.Equal(t, "SELECT u.id, u.name, u2.label, u3.name AS u3_name FROM user AS u"+
		" INNER JOIN unit AS u2 ON u.id = u2.id"+
		" LEFT JOIN user AS u3 ON u2.id = u3.id", raw.SQL)
}

func TestBuildJoinOrder(t *testing.T) {
	user, profile, unit := models(t)
	raw, _, err := Select(user).
		Join(unit, Inner, On{Left: "id", Right: "id"}).
		Join(profile, Inner, On{Left: "id", Right: "user_id"}).
		Build()
	require.NoError(t, err)
	assert.Less(t, strings.Index(raw.SQL, "JOIN unit"), strings.Index(raw.SQL, "JOIN user_profile"))
}

func TestBuildLimitOffset(t *testing.T) {
	user, _, _ := models(t)

	_, _, err := Select(user).Limit(-1).Build()
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	_, _, err = Select(user).Offset(-3).Build()
	assert.True(t, IsValidationError(err))

	raw, _, err := Select(user).Limit(0).Build()
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(raw.SQL, " LIMIT 0"))

	raw, _, err = Select(user, "name").Limit(10).Offset(20).Build()
	require.NoError(t, err)
	assert.Equal(t, "SELECT u.name FROM user AS u LIMIT 10 OFFSET 20", raw.SQL)
}

func TestBuildGroupOrder(t *testing.T) {
	user, profile, _ := models(t)
	raw, _, err := Select(user, "name").GroupBy("name").OrderBy("name DESC", "id").Build()
	require.NoError(t, err)
	assert.Equal(t, "SELECT u.name FROM user AS u GROUP BY u.name ORDER BY u.name DESC, u.id", raw.SQL)

	raw, _, err = Select(user).
		Join(profile, Inner, On{Left: "id", Right: "user_id"}).
		OrderBy("up.bio asc").
		Build()
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(raw.SQL, " ORDER BY up.bio ASC"))

	// Bare order-by columns belong to the base model.
	_, _, err = Select(user).Join(profile, Inner, On{Left: "id", Right: "user_id"}).OrderBy("bio").Build()
	assert.True(t, IsReferenceError(err))
}

func TestBuildExpressions(t *testing.T) {
	user, profile, _ := models(t)
	base := Select(user).Join(profile, Left, On{Left: "id", Right: "user_id"})

	tests := []struct {
		name   string
		expr   Expr
		where  string
		params []any
	}{
		{
			"and or precedence",
			And(Or(Eq(C("id"), 1), Eq(C("name"), "a")), Gt(C("id"), 0)),
			"(u.id = ? OR u.name = ?) AND u.id > ?",
			[]any{1, "a", 0},
		},
		{
			"or of ands",
			Or(And(Ne(C("id"), 1), Le(C("id"), 9)), Like(C("name"), "J%")),
			"u.id != ? AND u.id <= ? OR u.name LIKE ?",
			[]any{1, 9, "J%"},
		},
		{
			"is not null on joined column",
			Not(IsNull(C("bio"))),
			"NOT (up.bio IS NULL)",
			[]any{},
		},
		{
			"in list",
			In(C("up.user_id"), 1, 2, 3),
			"up.user_id IN (?, ?, ?)",
			[]any{1, 2, 3},
		},
		{
			"column to column",
			And(Ge(C("u.id"), C("up.user_id")), Lt(V(3), C("id"))),
			"u.id >= up.user_id AND ? < u.id",
			[]any{3},
		},
		{
			"not of bare column",
			Not(C("name")),
			"NOT u.name",
			[]any{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, params, err := base.Where(tt.expr).Build()
			require.NoError(t, err)
			_, where, ok := strings.Cut(raw.SQL, " WHERE ")
			require.True(t, ok)
			assert.Equal(t, tt.where, where)
			assert.Equal(t, tt.params, params)
			assert.Equal(t, raw.Placeholders(), len(params))
		})
	}
}

func TestBuildErrors(t *testing.T) {
	user, profile, _ := models(t)

	tests := []struct {
		name  string
		query Query
		check func(error) bool
	}{
		{"unknown select column", Select(user, "email"), IsReferenceError},
		{"unknown where column", Select(user).Where(Eq(C("email"), 1)), IsReferenceError},
		{"unknown alias", Select(user).Where(Eq(C("x.id"), 1)), IsReferenceError},
		{"unknown join column", Select(user).Join(profile, Inner, On{Left: "id", Right: "owner"}), IsReferenceError},
		{"unknown join left column", Select(user).Join(profile, Inner, On{Left: "uid", Right: "user_id"}), IsReferenceError},
		{"unknown join projection", Select(user).Join(profile, Inner, On{Left: "id", Right: "user_id"}, "avatar"), IsReferenceError},
		{"unknown group by", Select(user).GroupBy("email"), IsReferenceError},
		{"unsupported binary", Select(user).Where(Binary{Op: "^", Left: C("id"), Right: V(1)}), IsUnsupportedExpression},
		{"unsupported unary", Select(user).Where(Unary{Op: OpEq, X: C("id")}), IsUnsupportedExpression},
		{"empty in", Select(user).Where(In(C("id"))), IsValidationError},
		{"nil operand", Select(user).Where(Binary{Op: OpEq, Left: C("id")}), IsValidationError},
		{"no model", Select(nil), IsValidationError},
		{"unsupported parsed operator", Select(user).WhereString("id ~ 1"), IsUnsupportedExpression},
		{"malformed parsed filter", Select(user).WhereString("id ="), IsValidationError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.query.Build()
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
		})
	}
}

func TestWhereReplaces(t *testing.T) {
	user, _, _ := models(t)
	raw, params, err := Select(user).Where(Eq(C("id"), 1)).Where(Eq(C("name"), "x")).Build()
	require.NoError(t, err)
	assert.Equal(t, "SELECT u.id, u.name FROM user AS u WHERE u.name = ?", raw.SQL)
	assert.Equal(t, []any{"x"}, params)

	// A valid Where clears an earlier parse error.
	_, _, err = Select(user).WhereString("id ~ 1").Where(Eq(C("id"), 1)).Build()
	assert.NoError(t, err)
}

func TestBuilderIsImmutable(t *testing.T) {
	user, profile, unit := models(t)
	base := Select(user).Join(profile, Inner, On{Left: "id", Right: "user_id"})
	withUnit := base.Join(unit, Inner, On{Left: "id", Right: "id"})
	limited := base.Limit(5)

	assert.Len(t, base.Joins(), 1)
	assert.Len(t, withUnit.Joins(), 2)
	assert.Len(t, limited.Joins(), 1)

	a, _, err := base.Build()
	require.NoError(t, err)
	assert.NotContains(t, a.SQL, "LIMIT")
	assert.NotContains(t, a.SQL, "unit")

	cols := []string{"name"}
	q := Select(user, cols...).OrderBy(cols...)
	cols[0] = "id"
	raw, _, err := q.Build()
	require.NoError(t, err)
	assert.Equal(t, "SELECT u.name FROM user AS u ORDER BY u.name", raw.SQL)
}

func TestBuildDeterministic(t *testing.T) {
	user, profile, _ := models(t)
	q := Select(user).
		Join(profile, Left, On{Left: "id", Right: "user_id"}, "bio").
		Where(And(In(C("id"), 1, 2), Not(IsNull(C("bio"))))).
		OrderBy("name").
		Limit(3)

	first, firstParams, err := q.Build()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			raw, params, err := q.Build()
			assert.NoError(t, err)
			assert.Equal(t, first, raw)
			assert.Equal(t, firstParams, params)
		}()
	}
	wg.Wait()
}

func TestParseJoinKind(t *testing.T) {
	k, err := ParseJoinKind("LEFT")
	require.NoError(t, err)
	assert.Equal(t, Left, k)
	_, err = ParseJoinKind("outer")
	assert.True(t, IsValidationError(err))
	assert.Equal(t, "RIGHT", Right.String())
}
