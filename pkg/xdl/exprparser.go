package xdl

import (
	"fmt"
	"strconv"

	"github.com/xentlabs/xent/pkg/xenterr"
)

// exprParser parses the expression sub-grammar: string literals,
// identifiers, `+` concatenation, function calls (with an optional `|`
// context argument), and the boolean comparisons used by ensure().
type exprParser struct {
	lex  *exprLexer
	tok  token
	line int
}

func newExprParser(src string, line int) (*exprParser, error) {
	p := &exprParser{lex: newExprLexer(src, line), line: line}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *exprParser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *exprParser) errf(format string, args ...any) error {
	return &xenterr.ParseError{Line: p.line, Msg: fmt.Sprintf(format, args...)}
}

// parseExpr parses a full expression and ensures it consumes all input.
func (p *exprParser) parseExpr() (Expr, error) {
	e, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, p.errf("unexpected trailing token %q", p.tok.text)
	}
	return e, nil
}

func (p *exprParser) parseComparison() (Expr, error) {
	left, err := p.parseConcat()
	if err != nil {
		return nil, err
	}
	var op CompareOp
	switch p.tok.kind {
	case tokGE:
		op = CompareGE
	case tokLE:
		op = CompareLE
	case tokEQ:
		op = CompareEQ
	default:
		return left, nil
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	right, err := p.parseConcat()
	if err != nil {
		return nil, err
	}
	return Compare{Op: op, Left: left, Right: right}, nil
}

func (p *exprParser) parseConcat() (Expr, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokPlus {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		left = Concat{Left: left, Right: right}
	}
	return left, nil
}

func (p *exprParser) parsePrimary() (Expr, error) {
	switch p.tok.kind {
	case tokString:
		v := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return StringLit{Value: v}, nil
	case tokIdent:
		name := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.kind == tokLParen {
			return p.parseCall(name)
		}
		return Ident{Name: name}, nil
	default:
		return nil, p.errf("expected expression, found %q", p.tok.text)
	}
}

func (p *exprParser) parseCall(name string) (Expr, error) {
	if err := p.advance(); err != nil { // consume '('
		return nil, err
	}
	var args []Expr
	var ctx Expr

	if p.tok.kind != tokRParen {
		first, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		if p.tok.kind == tokPipe {
			if err := p.advance(); err != nil {
				return nil, err
			}
			c, err := p.parseComparison()
			if err != nil {
				return nil, err
			}
			args = append(args, first)
			ctx = c
		} else {
			args = append(args, first)
			for p.tok.kind == tokComma {
				if err := p.advance(); err != nil {
					return nil, err
				}
				a, err := p.parseComparison()
				if err != nil {
					return nil, err
				}
				args = append(args, a)
			}
		}
	}

	if p.tok.kind != tokRParen {
		return nil, p.errf("expected ')' after arguments to %s(...)", name)
	}
	if err := p.advance(); err != nil { // consume ')'
		return nil, err
	}
	return Call{Name: name, Args: args, Context: ctx}, nil
}

// parseIntLiteral parses a bare integer token, used for elicit's
// max_tokens argument which is not a general expression.
func parseIntLiteral(s string, line int) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &xenterr.ParseError{Line: line, Msg: fmt.Sprintf("expected integer, found %q", s)}
	}
	return n, nil
}
