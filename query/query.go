package query

import (
	"fmt"
	"strings"

	"github.com/ridoystarlord/ormato/schema"
)

// JoinKind is the closed set of supported joins.
type JoinKind int

const (
	Inner JoinKind = iota
	Left
	Right
)

func (k JoinKind) String() string {
	switch k {
	case Inner:
		return "INNER"
	case Left:
		return "LEFT"
	case Right:
		return "RIGHT"
	}
	return fmt.Sprintf("JoinKind(%d)", int(k))
}

// ParseJoinKind parses "inner", "left" or "right" in any case.
func ParseJoinKind(s string) (JoinKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inner", "":
		return Inner, nil
	case "left":
		return Left, nil
	case "right":
		return Right, nil
	}
	return 0, invalidf("unknown join kind %q", s)
}

// On is a join condition: Left is a column of the base model (or
// "alias.column" of an earlier join), Right a column of the joined model.
type On struct {
	Left, Right string
}

// Join includes another model's table into a query.
type Join struct {
	Model   *schema.Model
	Kind    JoinKind
	On      On
	Columns []string
}

// Query describes one SELECT statement. Query values are immutable: every
// builder method returns an updated copy and never touches the receiver's
// slices.
type Query struct {
	model     *schema.Model
	columns   []string
	joins     []Join
	where     Expr
	whereErr  error
	groupBy   []string
	orderBy   []string
	limit     int
	hasLimit  bool
	offset    int
	hasOffset bool
}

// Select starts a query over m. Without columns every declared column of m
// is selected.
func Select(m *schema.Model, columns ...string) Query {
	return Query{model: m, columns: clone(columns)}
}

// Model returns the base model.
func (q Query) Model() *schema.Model { return q.model }

// Joins returns a copy of the query's joins.
func (q Query) Joins() []Join {
	out := make([]Join, len(q.joins))
	for i, j := range q.joins {
		j.Columns = clone(j.Columns)
		out[i] = j
	}
	return out
}

// Filter returns the current filter expression, or nil.
func (q Query) Filter() Expr { return q.where }

// Join appends a join. Joins are emitted in call order.
func (q Query) Join(m *schema.Model, kind JoinKind, on On, columns ...string) Query {
	joins := make([]Join, len(q.joins), len(q.joins)+1)
	copy(joins, q.joins)
	q.joins = append(joins, Join{Model: m, Kind: kind, On: on, Columns: clone(columns)})
	return q
}

// Where replaces the filter. Calling it twice keeps only the last
// expression; combine filters with And or Or explicitly.
func (q Query) Where(e Expr) Query {
	q.where = e
	q.whereErr = nil
	return q
}

// WhereString parses src as a filter expression and replaces the filter.
// '?' placeholders in src bind args in order. Parse errors are reported by
// Build.
func (q Query) WhereString(src string, args ...any) Query {
	e, err := ParseExpr(src, args...)
	q.where = e
	q.whereErr = err
	return q
}

// GroupBy replaces the group-by columns.
func (q Query) GroupBy(columns ...string) Query {
	q.groupBy = clone(columns)
	return q
}

// OrderBy replaces the order-by columns. An entry may end in ASC or DESC.
func (q Query) OrderBy(columns ...string) Query {
	q.orderBy = clone(columns)
	return q
}

// Limit sets the row limit. Negative values fail in Build.
func (q Query) Limit(n int) Query {
	q.limit, q.hasLimit = n, true
	return q
}

// Offset sets the row offset. Negative values fail in Build.
func (q Query) Offset(n int) Query {
	q.offset, q.hasOffset = n, true
	return q
}

// Build compiles the query. See the package-level Build.
func (q Query) Build() (RawQuery, []any, error) {
	return Build(q)
}

func clone(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
