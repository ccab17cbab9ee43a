package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ridoystarlord/ormato/schema"
)

// source is a model taking part in a query under its effective alias.
type source struct {
	model *schema.Model
	alias string
}

// compiler holds the per-call state of Build. It never outlives the call.
type compiler struct {
	sources []source
	params  []any
}

// Build compiles q into SQL with '?' placeholders and the matching
// parameter list. Compilation is two-pass: aliases and projected columns of
// the base model and every join are resolved first, then the statement is
// emitted. Build is pure: equal queries compile to equal output, and the
// i-th parameter belongs to the i-th placeholder.
func Build(q Query) (RawQuery, []any, error) {
	if q.model == nil {
		return RawQuery{}, nil, invalidf("query has no model")
	}
	if q.whereErr != nil {
		return RawQuery{}, nil, q.whereErr
	}
	if q.hasLimit && q.limit < 0 {
		return RawQuery{}, nil, invalidf("limit must be non-negative, got %d", q.limit)
	}
	if q.hasOffset && q.offset < 0 {
		return RawQuery{}, nil, invalidf("offset must be non-negative, got %d", q.offset)
	}

	c := &compiler{params: []any{}}

	// Pass one: aliases, join conditions and the projection list.
	used := map[string]bool{}
	c.sources = append(c.sources, source{model: q.model, alias: q.model.Alias()})
	used[q.model.Alias()] = true
	for i, j := range q.joins {
		if j.Model == nil {
			return RawQuery{}, nil, invalidf("join %d has no model", i)
		}
		if j.Kind < Inner || j.Kind > Right {
			return RawQuery{}, nil, invalidf("join %d has unknown kind %v", i, j.Kind)
		}
		alias := uniqueAlias(j.Model.Alias(), used)
		used[alias] = true
		c.sources = append(c.sources, source{model: j.Model, alias: alias})
	}

	var projection []string
	base := c.sources[0]
	// Every base column name is taken, projected or not: rows are hydrated
	// into the base model by name.
	seen := map[string]bool{}
	for _, col := range base.model.ColumnNames() {
		seen[col] = true
	}
	columns := q.columns
	if len(columns) == 0 {
		columns = base.model.ColumnNames()
	}
	for _, col := range columns {
		if !base.model.HasColumn(col) {
			return RawQuery{}, nil, &ReferenceError{Model: base.model.Name(), Column: col}
		}
		projection = append(projection, base.alias+"."+col)
	}

	joinClauses := make([]string, 0, len(q.joins))
	for i, j := range q.joins {
		src := c.sources[i+1]
		for _, col := range j.Columns {
			if !j.Model.HasColumn(col) {
				return RawQuery{}, nil, &ReferenceError{Model: j.Model.Name(), Column: col}
			}
			if seen[col] {
				projection = append(projection, fmt.Sprintf("%s.%s AS %s_%s", src.alias, col, src.alias, col))
			} else {
				projection = append(projection, src.alias+"."+col)
				seen[col] = true
			}
		}

		// The left side may only see the base model and earlier joins.
		left, err := resolve(c.sources[:i+1], j.On.Left, false)
		if err != nil {
			return RawQuery{}, nil, err
		}
		if !j.Model.HasColumn(j.On.Right) {
			return RawQuery{}, nil, &ReferenceError{Model: j.Model.Name(), Column: j.On.Right}
		}
		joinClauses = append(joinClauses, fmt.Sprintf("%s JOIN %s AS %s ON %s = %s.%s",
			j.Kind, j.Model.Table(), src.alias, left, src.alias, j.On.Right))
	}

	// Pass two: emit.
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(projection, ", "))
	fmt.Fprintf(&b, " FROM %s AS %s", base.model.Table(), base.alias)
	for _, jc := range joinClauses {
		b.WriteByte(' ')
		b.WriteString(jc)
	}

	if q.where != nil {
		b.WriteString(" WHERE ")
		if err := c.expr(&b, q.where); err != nil {
			return RawQuery{}, nil, err
		}
	}

	if len(q.groupBy) > 0 {
		cols := make([]string, len(q.groupBy))
		for i, g := range q.groupBy {
			col, err := resolve(c.sources, strings.TrimSpace(g), true)
			if err != nil {
				return RawQuery{}, nil, err
			}
			cols[i] = col
		}
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(cols, ", "))
	}

	if len(q.orderBy) > 0 {
		cols := make([]string, len(q.orderBy))
		for i, o := range q.orderBy {
			name, dir := splitDirection(o)
			col, err := resolve(c.sources, name, true)
			if err != nil {
				return RawQuery{}, nil, err
			}
			cols[i] = col + dir
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(cols, ", "))
	}

	if q.hasLimit {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(q.limit))
	}
	if q.hasOffset {
		b.WriteString(" OFFSET ")
		b.WriteString(strconv.Itoa(q.offset))
	}

	return RawQuery{SQL: b.String()}, c.params, nil
}

func uniqueAlias(alias string, used map[string]bool) string {
	if !used[alias] {
		return alias
	}
	for n := 2; ; n++ {
		candidate := alias + strconv.Itoa(n)
		if !used[candidate] {
			return candidate
		}
	}
}

// resolve qualifies a column reference. "alias.col" must name one of the
// sources; a bare name resolves against the base model, and when baseOnly
// is false, against the joined models in order after that.
func resolve(sources []source, ref string, baseOnly bool) (string, error) {
	if ref == "" {
		return "", invalidf("empty column reference")
	}
	if alias, col, ok := strings.Cut(ref, "."); ok {
		for _, s := range sources {
			if s.alias == alias {
				if !s.model.HasColumn(col) {
					return "", &ReferenceError{Model: s.model.Name(), Column: col}
				}
				return s.alias + "." + col, nil
			}
		}
		return "", &ReferenceError{Column: ref}
	}
	candidates := sources
	if baseOnly {
		candidates = sources[:1]
	}
	for _, s := range candidates {
		if s.model.HasColumn(ref) {
			return s.alias + "." + ref, nil
		}
	}
	if baseOnly {
		return "", &ReferenceError{Model: sources[0].model.Name(), Column: ref}
	}
	return "", &ReferenceError{Column: ref}
}

func splitDirection(entry string) (string, string) {
	entry = strings.TrimSpace(entry)
	if i := strings.LastIndexByte(entry, ' '); i > 0 {
		switch strings.ToUpper(entry[i+1:]) {
		case "ASC":
			return strings.TrimSpace(entry[:i]), " ASC"
		case "DESC":
			return strings.TrimSpace(entry[:i]), " DESC"
		}
	}
	return entry, ""
}

// precedence of an expression node; operands of looser nodes get
// parenthesized.
func precedence(e Expr) int {
	switch e := e.(type) {
	case Binary:
		switch e.Op {
		case OpOr:
			return 1
		case OpAnd:
			return 2
		}
		return 4
	case Unary:
		if e.Op == OpNot {
			return 3
		}
		return 4
	case InList:
		return 4
	}
	return 5
}

func (c *compiler) expr(b *strings.Builder, e Expr) error {
	switch e := e.(type) {
	case nil:
		return invalidf("nil expression")
	case Lit:
		b.WriteByte('?')
		c.params = append(c.params, e.Value)
		return nil
	case Col:
		col, err := resolve(c.sources, e.Name, false)
		if err != nil {
			return err
		}
		b.WriteString(col)
		return nil
	case Binary:
		var minPrec int
		switch e.Op {
		case OpAnd, OpOr:
			minPrec = precedence(e)
		case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe, OpLike:
			minPrec = 5
		default:
			return &UnsupportedExpressionError{Op: string(e.Op)}
		}
		if err := c.operand(b, e.Left, minPrec); err != nil {
			return err
		}
		b.WriteString(" " + string(e.Op) + " ")
		return c.operand(b, e.Right, minPrec)
	case Unary:
		switch e.Op {
		case OpNot:
			b.WriteString("NOT ")
			return c.operand(b, e.X, 5)
		case OpIsNull:
			if err := c.operand(b, e.X, 5); err != nil {
				return err
			}
			b.WriteString(" IS NULL")
			return nil
		}
		return &UnsupportedExpressionError{Op: string(e.Op)}
	case InList:
		if len(e.List) == 0 {
			return invalidf("IN requires at least one value")
		}
		if err := c.operand(b, e.X, 5); err != nil {
			return err
		}
		b.WriteString(" IN (")
		for i, item := range e.List {
			if i > 0 {
				b.WriteString(", ")
			}
			if err := c.operand(b, item, 5); err != nil {
				return err
			}
		}
		b.WriteByte(')')
		return nil
	}
	return invalidf("unknown expression node %T", e)
}

// operand writes e, wrapped in parentheses when it binds looser than min.
func (c *compiler) operand(b *strings.Builder, e Expr, min int) error {
	if e != nil && precedence(e) < min {
		b.WriteByte('(')
		if err := c.expr(b, e); err != nil {
			return err
		}
		b.WriteByte(')')
		return nil
	}
	return c.expr(b, e)
}
