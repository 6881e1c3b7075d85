package tools

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/telos-labs/telos/pkg/core"
	"github.com/telos-labs/telos/pkg/errors"
)

// CalculatorTool evaluates arithmetic expressions locally, with no network
// dependency. It exists so every deployment has at least one tool that
// works offline, and so tests have a cheap capability that fails cleanly
// on malformed input.
type CalculatorTool struct{}

// NewCalculator creates a calculator capability.
func NewCalculator() *CalculatorTool {
	return &CalculatorTool{}
}

// NewCalculatorConstructor is the registry constructor for the tool.
func NewCalculatorConstructor(ctx context.Context) (core.Capability, error) {
	return NewCalculator(), nil
}

func (t *CalculatorTool) Descriptor() core.ToolDescriptor {
	return core.ToolDescriptor{
		Name:        "calculator",
		Description: "Evaluates an arithmetic expression with +, -, *, /, ^, parentheses, and unary minus, e.g. '(3 + 4) * 2'.",
		Version:     "1.0.0",
		InputTypes: map[string]any{
			"expression": map[string]any{
				"type":        "string",
				"description": "The arithmetic expression to evaluate.",
				"required":    true,
			},
		},
		OutputTypes: map[string]any{
			"value": map[string]any{"type": "number", "description": "The evaluated result."},
		},
		Available: true,
	}
}

// Execute evaluates the command as an arithmetic expression. Malformed
// expressions and division by zero return an error.
func (t *CalculatorTool) Execute(ctx context.Context, command string) (any, error) {
	expr := strings.TrimSpace(command)
	if expr == "" {
		return nil, errors.New(errors.CodeInvalidInput, "calculator: empty expression", nil)
	}

	p := &exprParser{input: expr}
	value, err := p.parseExpression()
	if err != nil {
		return nil, errors.New(errors.CodeInvalidInput, fmt.Sprintf("calculator: %v", err), nil)
	}
	p.skipSpaces()
	if p.pos < len(p.input) {
		return nil, errors.New(errors.CodeInvalidInput,
			fmt.Sprintf("calculator: unexpected %q at position %d", p.input[p.pos], p.pos), nil)
	}
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return nil, errors.New(errors.CodeInvalidInput, "calculator: result is not a finite number", nil)
	}

	return map[string]any{"value": value}, nil
}

// exprParser is a recursive descent parser over the grammar
//
//	expression = term   {("+" | "-") term}
//	term       = power  {("*" | "/") power}
//	power      = factor ["^" power]
//	factor     = number | "(" expression ")" | "-" factor
type exprParser struct {
	input string
	pos   int
}

func (p *exprParser) parseExpression() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpaces()
		switch {
		case p.accept('+'):
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left += right
		case p.accept('-'):
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left -= right
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parseTerm() (float64, error) {
	left, err := p.parsePower()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpaces()
		switch {
		case p.accept('*'):
			right, err := p.parsePower()
			if err != nil {
				return 0, err
			}
			left *= right
		case p.accept('/'):
			right, err := p.parsePower()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			left /= right
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parsePower() (float64, error) {
	base, err := p.parseFactor()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	// Right associative, so 2^3^2 is 2^(3^2).
	if p.accept('^') {
		exponent, err := p.parsePower()
		if err != nil {
			return 0, err
		}
		return math.Pow(base, exponent), nil
	}
	return base, nil
}

func (p *exprParser) parseFactor() (float64, error) {
	p.skipSpaces()
	if p.pos >= len(p.input) {
		return 0, fmt.Errorf("unexpected end of expression")
	}
	if p.accept('-') {
		value, err := p.parseFactor()
		if err != nil {
			return 0, err
		}
		return -value, nil
	}
	if p.accept('(') {
		value, err := p.parseExpression()
		if err != nil {
			return 0, err
		}
		p.skipSpaces()
		if !p.accept(')') {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		return value, nil
	}
	return p.parseNumber()
}

func (p *exprParser) parseNumber() (float64, error) {
	start := p.pos
	for p.pos < len(p.input) && (unicode.IsDigit(rune(p.input[p.pos])) || p.input[p.pos] == '.') {
		p.pos++
	}
	if start == p.pos {
		return 0, fmt.Errorf("expected a number at position %d", start)
	}
	value, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", p.input[start:p.pos])
	}
	return value, nil
}

func (p *exprParser) accept(ch byte) bool {
	if p.pos < len(p.input) && p.input[p.pos] == ch {
		p.pos++
		return true
	}
	return false
}

func (p *exprParser) skipSpaces() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}
