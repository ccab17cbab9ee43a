package query

import (
	"strconv"
	"strings"
)

type tokenType int

const (
	tokEOF tokenType = iota
	tokIdent
	tokInt
	tokFloat
	tokString
	tokPlaceholder
	tokOperator
	tokComma
	tokParenOpen
	tokParenClose
	tokAnd
	tokOr
	tokNot
	tokIn
	tokLike
	tokIs
	tokNull
	tokTrue
	tokFalse
	tokUnknown
)

type token struct {
	typ tokenType
	val string
	pos int
}

var keywords = map[string]tokenType{
	"AND":   tokAnd,
	"OR":    tokOr,
	"NOT":   tokNot,
	"IN":    tokIn,
	"LIKE":  tokLike,
	"IS":    tokIs,
	"NULL":  tokNull,
	"TRUE":  tokTrue,
	"FALSE": tokFalse,
}

type lexer struct {
	src string
	pos int
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.src) && isSpace(l.src[l.pos]) {
		l.pos++
	}
	start := l.pos
	if l.pos >= len(l.src) {
		return token{typ: tokEOF, pos: start}, nil
	}
	ch := l.src[l.pos]
	switch {
	case ch == ',':
		l.pos++
		return token{typ: tokComma, val: ",", pos: start}, nil
	case ch == '(':
		l.pos++
		return token{typ: tokParenOpen, val: "(", pos: start}, nil
	case ch == ')':
		l.pos++
		return token{typ: tokParenClose, val: ")", pos: start}, nil
	case ch == '?':
		l.pos++
		return token{typ: tokPlaceholder, val: "?", pos: start}, nil
	case ch == '\'':
		return l.readString()
	case isDigit(ch) || (ch == '-' && l.pos+1 < len(l.src) && isDigit(l.src[l.pos+1])):
		return l.readNumber(), nil
	case isOperator(ch):
		for l.pos < len(l.src) && isOperator(l.src[l.pos]) {
			if l.pos > start && l.src[l.pos] == '-' && l.pos+1 < len(l.src) && isDigit(l.src[l.pos+1]) {
				break // x>-1
			}
			l.pos++
		}
		return token{typ: tokOperator, val: l.src[start:l.pos], pos: start}, nil
	case isIdentStart(ch):
		for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
			l.pos++
		}
		word := l.src[start:l.pos]
		if typ, ok := keywords[strings.ToUpper(word)]; ok {
			return token{typ: typ, val: strings.ToUpper(word), pos: start}, nil
		}
		return token{typ: tokIdent, val: word, pos: start}, nil
	}
	l.pos++
	return token{typ: tokUnknown, val: string(ch), pos: start}, nil
}

func (l *lexer) readString() (token, error) {
	start := l.pos
	l.pos++ // opening quote
	var b strings.Builder
	for {
		if l.pos >= len(l.src) {
			return token{}, invalidf("unterminated string at offset %d", start)
		}
		ch := l.src[l.pos]
		l.pos++
		if ch == '\'' {
			if l.pos < len(l.src) && l.src[l.pos] == '\'' {
				b.WriteByte('\'')
				l.pos++
				continue
			}
			return token{typ: tokString, val: b.String(), pos: start}, nil
		}
		b.WriteByte(ch)
	}
}

func (l *lexer) readNumber() token {
	start := l.pos
	if l.src[l.pos] == '-' {
		l.pos++
	}
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}
	if l.pos+1 < len(l.src) && l.src[l.pos] == '.' && isDigit(l.src[l.pos+1]) {
		l.pos++
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
		return token{typ: tokFloat, val: l.src[start:l.pos], pos: start}
	}
	return token{typ: tokInt, val: l.src[start:l.pos], pos: start}
}

func isSpace(ch byte) bool      { return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' }
func isDigit(ch byte) bool      { return ch >= '0' && ch <= '9' }
func isOperator(ch byte) bool   { return strings.IndexByte("=!<>~^&|+-*/%", ch) >= 0 }
func isIdentStart(ch byte) bool { return ch == '_' || (ch|0x20 >= 'a' && ch|0x20 <= 'z') }
func isIdentPart(ch byte) bool  { return isIdentStart(ch) || isDigit(ch) || ch == '.' }

// parser is a recursive-descent parser over the filter mini-language:
//
//	expr    = and { OR and }
//	and     = not { AND not }
//	not     = NOT not | pred
//	pred    = operand [ cmp operand | [NOT] LIKE operand | [NOT] IN "(" list ")" | IS [NOT] NULL ]
//	operand = ident | number | string | TRUE | FALSE | NULL | "?" | "(" expr ")"
type parser struct {
	lex  lexer
	tok  token
	args []any
	used int
}

// ParseExpr parses a filter such as
//
//	name LIKE 'J%' AND (age >= 18 OR up.bio IS NOT NULL) AND id IN (1, 2, ?)
//
// into an expression tree. Each '?' binds the next value of args. Operators
// outside the supported set fail with UnsupportedExpressionError, anything
// else malformed with ValidationError.
func ParseExpr(src string, args ...any) (Expr, error) {
	p := &parser{lex: lexer{src: src}, args: args}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.typ == tokEOF {
		return nil, invalidf("empty filter expression")
	}
	e, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.tok.typ != tokEOF {
		return nil, p.unexpected()
	}
	if p.used != len(p.args) {
		return nil, invalidf("filter has %d placeholders but %d arguments were given", p.used, len(p.args))
	}
	return e, nil
}

func (p *parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *parser) unexpected() error {
	switch p.tok.typ {
	case tokEOF:
		return invalidf("unexpected end of filter expression")
	case tokOperator, tokUnknown:
		return &UnsupportedExpressionError{Op: p.tok.val}
	}
	return invalidf("unexpected %q at offset %d", p.tok.val, p.tok.pos)
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.tok.typ == tokOr {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: OpOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.tok.typ == tokAnd {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: OpAnd, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (Expr, error) {
	if p.tok.typ == tokNot {
		if err := p.advance(); err != nil {
			return nil, err
		}
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return Not(x), nil
	}
	return p.parsePredicate()
}

var comparisons = map[string]Op{
	"=":  OpEq,
	"!=": OpNe,
	"<>": OpNe,
	"<":  OpLt,
	"<=": OpLe,
	">":  OpGt,
	">=": OpGe,
}

func (p *parser) parsePredicate() (Expr, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}

	switch p.tok.typ {
	case tokOperator:
		op, ok := comparisons[p.tok.val]
		if !ok {
			return nil, &UnsupportedExpressionError{Op: p.tok.val}
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		return Binary{Op: op, Left: left, Right: right}, nil
	case tokIs:
		if err := p.advance(); err != nil {
			return nil, err
		}
		negate := false
		if p.tok.typ == tokNot {
			negate = true
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		if p.tok.typ != tokNull {
			return nil, invalidf("expected NULL after IS at offset %d", p.tok.pos)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		e := IsNull(left)
		if negate {
			e = Not(e)
		}
		return e, nil
	case tokNot, tokLike, tokIn:
		negate := false
		if p.tok.typ == tokNot {
			negate = true
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		var e Expr
		switch p.tok.typ {
		case tokLike:
			if err := p.advance(); err != nil {
				return nil, err
			}
			right, err := p.parseOperand()
			if err != nil {
				return nil, err
			}
			e = Binary{Op: OpLike, Left: left, Right: right}
		case tokIn:
			list, err := p.parseList()
			if err != nil {
				return nil, err
			}
			e = InList{X: left, List: list}
		default:
			return nil, p.unexpected()
		}
		if negate {
			e = Not(e)
		}
		return e, nil
	case tokIdent:
		// A keyword this language does not know, e.g. BETWEEN or ILIKE.
		return nil, &UnsupportedExpressionError{Op: strings.ToUpper(p.tok.val)}
	}
	return left, nil
}

func (p *parser) parseList() ([]Expr, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.typ != tokParenOpen {
		return nil, invalidf("expected '(' after IN at offset %d", p.tok.pos)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	var list []Expr
	for {
		item, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		list = append(list, item)
		switch p.tok.typ {
		case tokComma:
			if err := p.advance(); err != nil {
				return nil, err
			}
		case tokParenClose:
			return list, p.advance()
		default:
			return nil, invalidf("expected ',' or ')' in IN list at offset %d", p.tok.pos)
		}
	}
}

func (p *parser) parseOperand() (Expr, error) {
	tok := p.tok
	var e Expr
	switch tok.typ {
	case tokIdent:
		e = C(tok.val)
	case tokInt:
		n, err := strconv.ParseInt(tok.val, 10, 64)
		if err != nil {
			return nil, invalidf("bad integer %q", tok.val)
		}
		e = V(n)
	case tokFloat:
		f, err := strconv.ParseFloat(tok.val, 64)
		if err != nil {
			return nil, invalidf("bad number %q", tok.val)
		}
		e = V(f)
	case tokString:
		e = V(tok.val)
	case tokTrue:
		e = V(true)
	case tokFalse:
		e = V(false)
	case tokNull:
		e = V(nil)
	case tokPlaceholder:
		if p.used >= len(p.args) {
			return nil, invalidf("placeholder at offset %d has no argument", tok.pos)
		}
		e = V(p.args[p.used])
		p.used++
	case tokParenOpen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.tok.typ != tokParenClose {
			return nil, invalidf("expected ')' at offset %d", p.tok.pos)
		}
		return inner, p.advance()
	default:
		return nil, p.unexpected()
	}
	return e, p.advance()
}
