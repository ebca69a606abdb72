package xdl

import (
	"fmt"
	"strings"

	"github.com/xentlabs/xent/pkg/xenterr"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokLParen
	tokRParen
	tokComma
	tokPlus
	tokPipe
	tokGE
	tokLE
	tokEQ
	tokEquals
)

type token struct {
	kind tokenKind
	text string
}

// exprLexer tokenizes the text inside an op's parentheses (and the
// op name preceding them). It is deliberately minimal: XDL expressions
// never need operator precedence beyond +, comparisons, and calls.
type exprLexer struct {
	src  string
	pos  int
	line int
}

func newExprLexer(src string, line int) *exprLexer {
	return &exprLexer{src: src, line: line}
}

func (l *exprLexer) errf(format string, args ...any) error {
	return &xenterr.ParseError{Line: l.line, Msg: fmt.Sprintf(format, args...)}
}

func (l *exprLexer) peekByte() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *exprLexer) skipSpace() {
	for l.pos < len(l.src) && (l.src[l.pos] == ' ' || l.src[l.pos] == '\t') {
		l.pos++
	}
}

func (l *exprLexer) next() (token, error) {
	l.skipSpace()
	if l.pos >= len(l.src) {
		return token{kind: tokEOF}, nil
	}

	c := l.src[l.pos]
	switch {
	case c == '(':
		l.pos++
		return token{kind: tokLParen, text: "("}, nil
	case c == ')':
		l.pos++
		return token{kind: tokRParen, text: ")"}, nil
	case c == ',':
		l.pos++
		return token{kind: tokComma, text: ","}, nil
	case c == '+':
		l.pos++
		return token{kind: tokPlus, text: "+"}, nil
	case c == '|':
		l.pos++
		return token{kind: tokPipe, text: "|"}, nil
	case c == '>' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '=':
		l.pos += 2
		return token{kind: tokGE, text: ">="}, nil
	case c == '<' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '=':
		l.pos += 2
		return token{kind: tokLE, text: "<="}, nil
	case c == '=' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '=':
		l.pos += 2
		return token{kind: tokEQ, text: "=="}, nil
	case c == '=':
		l.pos++
		return token{kind: tokEquals, text: "="}, nil
	case c == '"' || c == '\'':
		return l.lexString(c)
	case isIdentStart(c):
		return l.lexIdent(), nil
	default:
		return token{}, l.errf("unexpected character %q", c)
	}
}

func (l *exprLexer) lexString(quote byte) (token, error) {
	start := l.pos
	l.pos++
	var sb strings.Builder
	for {
		if l.pos >= len(l.src) {
			return token{}, l.errf("unterminated string starting at column %d", start)
		}
		c := l.src[l.pos]
		if c == quote {
			l.pos++
			return token{kind: tokString, text: sb.String()}, nil
		}
		if c == '\\' && l.pos+1 < len(l.src) {
			l.pos++
			sb.WriteByte(l.src[l.pos])
			l.pos++
			continue
		}
		sb.WriteByte(c)
		l.pos++
	}
}

func (l *exprLexer) lexIdent() token {
	start := l.pos
	for l.pos < len(l.src) && isIdentPart(l.peekByte()) {
		l.pos++
	}
	return token{kind: tokIdent, text: l.src[start:l.pos]}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
