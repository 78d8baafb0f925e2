package command

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// evalExpression evaluates a restricted arithmetic expression over
// decimals and named constants: + - * /, unary minus, parentheses.
// This replaces the general-purpose evaluator the original keyword
// feature used; only configured constants are reachable.
func evalExpression(input string, constants map[string]decimal.Decimal) (decimal.Decimal, error) {
	p := &exprParser{input: input, constants: constants}
	value, err := p.parseExpr()
	if err != nil {
		return decimal.Zero, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return decimal.Zero, fmt.Errorf("unexpected %q at position %d", p.input[p.pos], p.pos)
	}
	return value, nil
}

type exprParser struct {
	input     string
	pos       int
	constants map[string]decimal.Decimal
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func (p *exprParser) peek() (byte, bool) {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return 0, false
	}
	return p.input[p.pos], true
}

// expr = term (('+'|'-') term)*
func (p *exprParser) parseExpr() (decimal.Decimal, error) {
	value, err := p.parseTerm()
	if err != nil {
		return decimal.Zero, err
	}
	for {
		op, ok := p.peek()
		if !ok || (op != '+' && op != '-') {
			return value, nil
		}
		p.pos++
		rhs, err := p.parseTerm()
		if err != nil {
			return decimal.Zero, err
		}
		if op == '+' {
			value = value.Add(rhs)
		} else {
			value = value.Sub(rhs)
		}
	}
}

// term = factor (('*'|'/') factor)*
func (p *exprParser) parseTerm() (decimal.Decimal, error) {
	value, err := p.parseFactor()
	if err != nil {
		return decimal.Zero, err
	}
	for {
		op, ok := p.peek()
		if !ok || (op != '*' && op != '/') {
			return value, nil
		}
		p.pos++
		rhs, err := p.parseFactor()
		if err != nil {
			return decimal.Zero, err
		}
		if op == '*' {
			value = value.Mul(rhs)
		} else {
			if rhs.IsZero() {
				return decimal.Zero, fmt.Errorf("division by zero")
			}
			value = value.DivRound(rhs, 16)
		}
	}
}

// factor = number | identifier | '(' expr ')' | '-' factor
func (p *exprParser) parseFactor() (decimal.Decimal, error) {
	c, ok := p.peek()
	if !ok {
		return decimal.Zero, fmt.Errorf("unexpected end of expression")
	}

	switch {
	case c == '(':
		p.pos++
		value, err := p.parseExpr()
		if err != nil {
			return decimal.Zero, err
		}
		if c, ok := p.peek(); !ok || c != ')' {
			return decimal.Zero, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return value, nil

	case c == '-':
		p.pos++
		value, err := p.parseFactor()
		if err != nil {
			return decimal.Zero, err
		}
		return value.Neg(), nil

	case c >= '0' && c <= '9' || c == '.':
		start := p.pos
		for p.pos < len(p.input) && (p.input[p.pos] >= '0' && p.input[p.pos] <= '9' || p.input[p.pos] == '.') {
			p.pos++
		}
		value, err := decimal.NewFromString(p.input[start:p.pos])
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid number %q: %w", p.input[start:p.pos], err)
		}
		return value, nil

	case unicode.IsLetter(rune(c)) || c == '_':
		start := p.pos
		for p.pos < len(p.input) {
			r := rune(p.input[p.pos])
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
				break
			}
			p.pos++
		}
		name := strings.ToLower(p.input[start:p.pos])
		value, ok := p.constants[name]
		if !ok {
			return decimal.Zero, fmt.Errorf("unknown constant %q", name)
		}
		return value, nil
	}

	return decimal.Zero, fmt.Errorf("unexpected %q at position %d", c, p.pos)
}
