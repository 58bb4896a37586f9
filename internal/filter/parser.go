package filter

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var compareOps = map[string]CompareOp{
	"eq": OpEq,
	"ne": OpNe,
	"lt": OpLt,
	"le": OpLe,
	"gt": OpGt,
	"ge": OpGe,
}

func isReservedWord(s string) bool {
	if _, ok := compareOps[s]; ok {
		return true
	}
	switch s {
	case "and", "or", "not", "in":
		return true
	}
	return false
}

// Parse parses one $filter expression. Keywords are lowercase per the
// grammar; precedence is or < and < not < comparison, and comparisons do
// not chain.
func Parse(input string) (Expr, error) {
	p := &parser{lex: lexer{input: input}}
	if err := p.advance(); err != nil {
		return nil, err
	}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, fmt.Errorf("unexpected %q at position %d", p.tok.text, p.tok.pos)
	}
	return expr, nil
}

type parser struct {
	lex lexer
	tok token
}

func (p *parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *parser) keyword(kw string) bool {
	return p.tok.kind == tokIdent && p.tok.text == kw
}

func (p *parser) expect(kind tokenKind, what string) error {
	if p.tok.kind != kind {
		if p.tok.kind == tokEOF {
			return fmt.Errorf("expected %s, found end of filter", what)
		}
		return fmt.Errorf("expected %s, found %q at position %d", what, p.tok.text, p.tok.pos)
	}
	return p.advance()
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.keyword("or") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &OrExpr{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.keyword("and") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &AndExpr{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (Expr, error) {
	if p.keyword("not") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &NotExpr{Operand: operand}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (Expr, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	if p.tok.kind != tokIdent {
		return left, nil
	}

	if op, ok := compareOps[p.tok.text]; ok {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		return &CompareExpr{Left: left, Op: op, Right: right}, nil
	}

	if p.tok.text == "in" {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expect(tokLParen, "("); err != nil {
			return nil, err
		}
		var list []Expr
		if p.tok.kind != tokRParen {
			for {
				el, err := p.parsePrimary()
				if err != nil {
					return nil, err
				}
				list = append(list, el)
				if p.tok.kind != tokComma {
					break
				}
				if err := p.advance(); err != nil {
					return nil, err
				}
			}
		}
		if err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		return &InExpr{Operand: left, List: list}, nil
	}

	return left, nil
}

func (p *parser) parsePrimary() (Expr, error) {
	switch p.tok.kind {
	case tokLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		return expr, nil

	case tokString:
		v := &StringValue{Value: p.tok.text}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &LiteralExpr{Value: v}, nil

	case tokNumber:
		d, err := decimal.NewFromString(p.tok.text)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q at position %d", p.tok.text, p.tok.pos)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &LiteralExpr{Value: &NumberValue{Value: d}}, nil

	case tokDateTime:
		t, err := parseDateTimeLiteral(p.tok.text)
		if err != nil {
			return nil, fmt.Errorf("invalid datetime %q at position %d", p.tok.text, p.tok.pos)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &LiteralExpr{Value: &DateTimeValue{Value: t}}, nil

	case tokDate:
		t, err := time.Parse(time.DateOnly, p.tok.text)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q at position %d", p.tok.text, p.tok.pos)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &LiteralExpr{Value: &DateValue{Value: t}}, nil

	case tokTime:
		v := &TimeValue{Value: p.tok.text}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &LiteralExpr{Value: v}, nil

	case tokUUID:
		u, err := uuid.Parse(p.tok.text)
		if err != nil {
			return nil, fmt.Errorf("invalid uuid %q at position %d", p.tok.text, p.tok.pos)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &LiteralExpr{Value: &UUIDValue{Value: u}}, nil

	case tokIdent:
		text, pos := p.tok.text, p.tok.pos
		switch text {
		case "true":
			if err := p.advance(); err != nil {
				return nil, err
			}
			return &LiteralExpr{Value: &BoolValue{Value: true}}, nil
		case "false":
			if err := p.advance(); err != nil {
				return nil, err
			}
			return &LiteralExpr{Value: &BoolValue{Value: false}}, nil
		case "null":
			if err := p.advance(); err != nil {
				return nil, err
			}
			return &LiteralExpr{Value: &NullValue{}}, nil
		}
		if isReservedWord(text) {
			return nil, fmt.Errorf("unexpected keyword %q at position %d", text, pos)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.kind == tokLParen {
			return p.parseCall(text)
		}
		return &IdentExpr{Name: text}, nil

	case tokEOF:
		return nil, fmt.Errorf("unexpected end of filter")

	default:
		return nil, fmt.Errorf("unexpected %q at position %d", p.tok.text, p.tok.pos)
	}
}

func (p *parser) parseCall(name string) (Expr, error) {
	if err := p.advance(); err != nil { // consume (
		return nil, err
	}
	var args []Expr
	if p.tok.kind != tokRParen {
		for {
			arg, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.tok.kind != tokComma {
				break
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	if err := p.expect(tokRParen, ")"); err != nil {
		return nil, err
	}
	return &CallExpr{Name: name, Args: args}, nil
}

// parseDateTimeLiteral accepts RFC3339 instants, optionally without
// seconds.
func parseDateTimeLiteral(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04Z07:00", s)
}
