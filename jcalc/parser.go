package jcalc

import (
	"fmt"
	"strconv"
)

// Op identifies a binary arithmetic operator.
type Op int

const (
	OpAdd Op = 1 + iota
	OpSubtract
	OpMultiply
	OpDivide
)

func (op Op) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSubtract:
		return "-"
	case OpMultiply:
		return "*"
	case OpDivide:
		return "/"
	}
	return "?"
}

// methodName gives the BigInteger instance method implementing op.
func (op Op) methodName() string {
	switch op {
	case OpAdd:
		return "add"
	case OpSubtract:
		return "subtract"
	case OpMultiply:
		return "multiply"
	case OpDivide:
		return "divide"
	}
	return ""
}

// Node is an expression tree node. Trees are built once per input line and
// discarded after evaluation.
type Node interface {
	node()
}

// IntegerLiteral is a non-negative integer literal.
type IntegerLiteral struct {
	Value int64
}

// BinaryExpr applies Op to the values of Left and Right.
type BinaryExpr struct {
	Op    Op
	Left  Node
	Right Node
}

func (*IntegerLiteral) node() {}
func (*BinaryExpr) node()     {}

// ParseError reports a malformed expression and the byte offset of the
// offending input.
type ParseError struct {
	Pos int
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("position %d: %s", e.Pos+1, e.Msg)
}

// parseExpr parses an arithmetic expression with the usual precedence:
//
//	expr   := term (('+'|'-') term)*
//	term   := factor (('*'|'/') factor)*
//	factor := INTEGER | '(' expr ')'
//
// Whitespace between tokens is insignificant. No unary minus, no floating
// point, no identifiers.
func parseExpr(input string) (Node, error) {
	p := &exprParser{input: input}
	n, err := p.expr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.input) {
		return nil, &ParseError{Pos: p.pos, Msg: fmt.Sprintf("unexpected %q", p.input[p.pos])}
	}
	return n, nil
}

type exprParser struct {
	input string
	pos   int
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.input) {
		switch p.input[p.pos] {
		case ' ', '\t', '\r', '\n':
			p.pos++
		default:
			return
		}
	}
}

// peek returns the next non-space byte without consuming it, or 0 at end
// of input.
func (p *exprParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *exprParser) expr() (Node, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for {
		var op Op
		switch p.peek() {
		case '+':
			op = OpAdd
		case '-':
			op = OpSubtract
		default:
			return left, nil
		}
		p.pos++
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
}

func (p *exprParser) term() (Node, error) {
	left, err := p.factor()
	if err != nil {
		return nil, err
	}
	for {
		var op Op
		switch p.peek() {
		case '*':
			op = OpMultiply
		case '/':
			op = OpDivide
		default:
			return left, nil
		}
		p.pos++
		right, err := p.factor()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
}

func (p *exprParser) factor() (Node, error) {
	switch ch := p.peek(); {
	case ch == '(':
		p.pos++
		n, err := p.expr()
		if err != nil {
			return nil, err
		}
		if p.peek() != ')' {
			return nil, &ParseError{Pos: p.pos, Msg: "expected ')'"}
		}
		p.pos++
		return n, nil
	case ch >= '0' && ch <= '9':
		return p.integer()
	case ch == 0:
		return nil, &ParseError{Pos: p.pos, Msg: "unexpected end of input, expected integer or '('"}
	default:
		return nil, &ParseError{Pos: p.pos, Msg: fmt.Sprintf("unexpected %q, expected integer or '('", ch)}
	}
}

func (p *exprParser) integer() (Node, error) {
	start := p.pos
	for p.pos < len(p.input) && p.input[p.pos] >= '0' && p.input[p.pos] <= '9' {
		p.pos++
	}
	n, err := strconv.ParseInt(p.input[start:p.pos], 10, 64)
	if err != nil {
		return nil, &ParseError{Pos: start, Msg: fmt.Sprintf("integer %s out of range", p.input[start:p.pos])}
	}
	return &IntegerLiteral{Value: n}, nil
}
