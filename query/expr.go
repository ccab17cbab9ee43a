package query

// Op is a filter operator.
type Op string

const (
	OpEq     Op = "="
	OpNe     Op = "!="
	OpLt     Op = "<"
	OpLe     Op = "<="
	OpGt     Op = ">"
	OpGe     Op = ">="
	OpAnd    Op = "AND"
	OpOr     Op = "OR"
	OpNot    Op = "NOT"
	OpIn     Op = "IN"
	OpLike   Op = "LIKE"
	OpIsNull Op = "IS NULL"
)

// Expr is a node of a filter expression tree: Lit, Col, Binary, Unary or
// InList.
type Expr interface {
	expr()
}

// Lit is a literal operand. It always compiles to a placeholder.
type Lit struct {
	Value any
}

// Col references a column, either bare ("id") or alias-qualified ("up.id").
type Col struct {
	Name string
}

// Binary is a comparison, LIKE, AND or OR.
type Binary struct {
	Op          Op
	Left, Right Expr
}

// Unary is NOT or IS NULL.
type Unary struct {
	Op Op
	X  Expr
}

// InList is X IN (List...).
type InList struct {
	X    Expr
	List []Expr
}

func (Lit) expr()    {}
func (Col) expr()    {}
func (Binary) expr() {}
func (Unary) expr()  {}
func (InList) expr() {}

// C references a column.
func C(name string) Col { return Col{Name: name} }

// V wraps a literal value.
func V(v any) Lit { return Lit{Value: v} }

// operand turns non-expression values into literals so callers may write
// Eq(C("id"), 5).
func operand(v any) Expr {
	if e, ok := v.(Expr); ok {
		return e
	}
	return Lit{Value: v}
}

func Eq(l, r any) Expr   { return Binary{Op: OpEq, Left: operand(l), Right: operand(r)} }
func Ne(l, r any) Expr   { return Binary{Op: OpNe, Left: operand(l), Right: operand(r)} }
func Lt(l, r any) Expr   { return Binary{Op: OpLt, Left: operand(l), Right: operand(r)} }
func Le(l, r any) Expr   { return Binary{Op: OpLe, Left: operand(l), Right: operand(r)} }
func Gt(l, r any) Expr   { return Binary{Op: OpGt, Left: operand(l), Right: operand(r)} }
func Ge(l, r any) Expr   { return Binary{Op: OpGe, Left: operand(l), Right: operand(r)} }
func Like(l, r any) Expr { return Binary{Op: OpLike, Left: operand(l), Right: operand(r)} }

// And joins the expressions with AND, left to right.
func And(first Expr, rest ...Expr) Expr { return fold(OpAnd, first, rest) }

// Or joins the expressions with OR, left to right.
func Or(first Expr, rest ...Expr) Expr { return fold(OpOr, first, rest) }

func fold(op Op, first Expr, rest []Expr) Expr {
	e := first
	for _, r := range rest {
		e = Binary{Op: op, Left: e, Right: r}
	}
	return e
}

// Not negates an expression.
func Not(x Expr) Expr { return Unary{Op: OpNot, X: x} }

// IsNull tests an operand for NULL.
func IsNull(x any) Expr { return Unary{Op: OpIsNull, X: operand(x)} }

// In tests membership of x in the given values.
func In(x any, values ...any) Expr {
	list := make([]Expr, len(values))
	for i, v := range values {
		list[i] = operand(v)
	}
	return InList{X: operand(x), List: list}
}
