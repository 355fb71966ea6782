// Package expr evaluates axis expressions: arithmetic over spreadsheet
// column references. A column is either #INDEX (a 1-based number or an
// Excel-flavored column name) or @TITLE@ (a header title, '\' escapes).
// Supported operators: + - * / % ^ and unary minus, with parentheses.
package expr

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Shift-AC/spreadsheet-plotter/sheet"
)

// ParseError reports a malformed axis expression.
type ParseError struct {
	Pos int
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("expression parse error at %d: %s", e.Pos, e.Msg)
}

type node interface {
	eval(row func(col int) (float64, error)) (float64, error)
}

type numberNode float64

func (n numberNode) eval(func(int) (float64, error)) (float64, error) {
	return float64(n), nil
}

type columnNode int

func (n columnNode) eval(row func(col int) (float64, error)) (float64, error) {
	return row(int(n))
}

type unaryNode struct {
	inner node
}

func (n *unaryNode) eval(row func(col int) (float64, error)) (float64, error) {
	v, err := n.inner.eval(row)
	if err != nil {
		return 0, err
	}
	return -v, nil
}

type binaryNode struct {
	op    byte
	left  node
	right node
}

func (n *binaryNode) eval(row func(col int) (float64, error)) (float64, error) {
	a, err := n.left.eval(row)
	if err != nil {
		return 0, err
	}
	b, err := n.right.eval(row)
	if err != nil {
		return 0, err
	}
	switch n.op {
	case '+':
		return a + b, nil
	case '-':
		return a - b, nil
	case '*':
		return a * b, nil
	case '/':
		return a / b, nil
	case '%':
		return math.Mod(a, b), nil
	case '^':
		return math.Pow(a, b), nil
	default:
		return 0, fmt.Errorf("unknown operator %q", n.op)
	}
}

// Expr is a parsed axis expression with all column references resolved to
// 1-based indexes.
type Expr struct {
	root    node
	text    string
	columns []int
}

func (e *Expr) String() string {
	return e.text
}

// Columns returns the referenced 1-based column indexes, in reference order.
func (e *Expr) Columns() []int {
	return e.columns
}

func (e *Expr) IsConstant() bool {
	return len(e.columns) == 0
}

// SingleColumn reports whether the whole expression is one bare column
// reference, and if so which.
func (e *Expr) SingleColumn() (int, bool) {
	if col, ok := e.root.(columnNode); ok {
		return int(col), true
	}
	return 0, false
}

// Eval computes the expression for one row. The row callback resolves a
// 1-based column index to that row's value. Non-finite results are
// rejected.
func (e *Expr) Eval(row func(col int) (float64, error)) (float64, error) {
	v, err := e.root.eval(row)
	if err != nil {
		return 0, err
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, &sheet.NonFiniteValueError{Context: "expression " + e.text}
	}
	return v, nil
}

// ExcelColumnIndex converts an Excel-flavored column name (A, B, ..., AA)
// to its 1-based index. Case insensitive.
func ExcelColumnIndex(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	sum := 0
	for _, c := range strings.ToUpper(s) {
		if c < 'A' || c > 'Z' {
			return 0, false
		}
		sum = sum*26 + int(c-'A'+1)
	}
	return sum, true
}

// Parse builds an expression over the given header. The header is needed
// only to resolve @TITLE@ references; an index-only expression parses fine
// against a nil header.
func Parse(s string, header []string) (*Expr, error) {
	p := &parser{input: s, header: header}
	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.input) {
		return nil, &ParseError{Pos: p.pos, Msg: fmt.Sprintf("unexpected %q", p.input[p.pos])}
	}
	return &Expr{root: root, text: s, columns: p.columns}, nil
}

type parser struct {
	input   string
	pos     int
	header  []string
	columns []int
}

func (p *parser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) peek() (byte, bool) {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return 0, false
	}
	return p.input[p.pos], true
}

// expr := term (('+'|'-') term)*
func (p *parser) parseExpr() (node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		c, ok := p.peek()
		if !ok || (c != '+' && c != '-') {
			return left, nil
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: c, left: left, right: right}
	}
}

// term := power (('*'|'/'|'%') power)*
func (p *parser) parseTerm() (node, error) {
	left, err := p.parsePower()
	if err != nil {
		return nil, err
	}
	for {
		c, ok := p.peek()
		if !ok || (c != '*' && c != '/' && c != '%') {
			return left, nil
		}
		p.pos++
		right, err := p.parsePower()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: c, left: left, right: right}
	}
}

// power := unary ('^' power)?  -- right associative
func (p *parser) parsePower() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	c, ok := p.peek()
	if !ok || c != '^' {
		return left, nil
	}
	p.pos++
	right, err := p.parsePower()
	if err != nil {
		return nil, err
	}
	return &binaryNode{op: '^', left: left, right: right}, nil
}

func (p *parser) parseUnary() (node, error) {
	c, ok := p.peek()
	if ok && c == '-' {
		p.pos++
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unaryNode{inner: inner}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	c, ok := p.peek()
	if !ok {
		return nil, &ParseError{Pos: p.pos, Msg: "unexpected end of input"}
	}
	switch {
	case c == '(':
		p.pos++
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		c, ok := p.peek()
		if !ok || c != ')' {
			return nil, &ParseError{Pos: p.pos, Msg: "mismatched parenthesis"}
		}
		p.pos++
		return inner, nil
	case c == '#':
		return p.parseColumnIndex()
	case c == '@':
		return p.parseColumnName()
	case c >= '0' && c <= '9' || c == '.':
		return p.parseNumber()
	default:
		return nil, &ParseError{Pos: p.pos, Msg: fmt.Sprintf("unexpected %q", c)}
	}
}

func (p *parser) parseNumber() (node, error) {
	start := p.pos
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if (c >= '0' && c <= '9') || c == '.' {
			p.pos++
			continue
		}
		// exponent part of a literal like 1e-3
		if (c == 'e' || c == 'E') && p.pos > start {
			next := p.pos + 1
			if next < len(p.input) && (p.input[next] == '+' || p.input[next] == '-') {
				next++
			}
			if next < len(p.input) && p.input[next] >= '0' && p.input[next] <= '9' {
				p.pos = next
				continue
			}
		}
		break
	}
	v, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return nil, &ParseError{Pos: start, Msg: "invalid number " + p.input[start:p.pos]}
	}
	return numberNode(v), nil
}

func (p *parser) parseColumnIndex() (node, error) {
	start := p.pos
	p.pos++ // consume '#'
	ref := p.pos
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			p.pos++
			continue
		}
		break
	}
	refStr := p.input[ref:p.pos]
	if refStr == "" {
		return nil, &ParseError{Pos: start, Msg: "empty column reference"}
	}
	if index, err := strconv.Atoi(refStr); err == nil {
		if index < 1 {
			return nil, &ParseError{Pos: start, Msg: "column index must be positive"}
		}
		p.columns = append(p.columns, index)
		return columnNode(index), nil
	}
	index, ok := ExcelColumnIndex(refStr)
	if !ok {
		return nil, &ParseError{Pos: start, Msg: "invalid column reference " + refStr}
	}
	p.columns = append(p.columns, index)
	return columnNode(index), nil
}

func (p *parser) parseColumnName() (node, error) {
	start := p.pos
	p.pos++ // consume opening '@'
	var name strings.Builder
	closed := false
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c == '\\' && p.pos+1 < len(p.input) {
			name.WriteByte(p.input[p.pos+1])
			p.pos += 2
			continue
		}
		p.pos++
		if c == '@' {
			closed = true
			break
		}
		name.WriteByte(c)
	}
	if !closed {
		return nil, &ParseError{Pos: start, Msg: "unterminated column name"}
	}
	if name.Len() == 0 {
		return nil, &ParseError{Pos: start, Msg: "empty column name"}
	}
	for i, title := range p.header {
		if title == name.String() {
			index := i + 1
			p.columns = append(p.columns, index)
			return columnNode(index), nil
		}
	}
	return nil, &ParseError{
		Pos: start,
		Msg: fmt.Sprintf("unknown column name %q (did you forget the header flag?)", name.String()),
	}
}
