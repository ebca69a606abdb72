package xdl

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/xentlabs/xent/pkg/xenterr"
)

// Parse reads an XDL source and returns its parsed Program. One statement
// per line; `#` starts a trailing comment; blank lines are ignored.
func Parse(src string) (*Program, error) {
	var ops []Op
	scanner := bufio.NewScanner(strings.NewReader(src))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()
		stmt := stripComment(raw)
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}

		op, err := parseLine(stmt, lineNo)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	if err := scanner.Err(); err != nil {
		return nil, &xenterr.ParseError{Line: lineNo, Msg: err.Error()}
	}

	resolveBeacons(ops)
	return &Program{Ops: ops}, nil
}

// stripComment removes a trailing `#...` comment, respecting quoted
// strings so a `#` inside a string literal isn't mistaken for one.
func stripComment(line string) string {
	inQuote := byte(0)
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case inQuote != 0:
			if c == '\\' {
				i++
				continue
			}
			if c == inQuote {
				inQuote = 0
			}
		case c == '"' || c == '\'':
			inQuote = c
		case c == '#':
			return line[:i]
		}
	}
	return line
}

func parseLine(stmt string, line int) (Op, error) {
	open := strings.IndexByte(stmt, '(')
	if open < 0 || !strings.HasSuffix(stmt, ")") {
		return Op{}, &xenterr.ParseError{Line: line, Msg: fmt.Sprintf("malformed statement %q", stmt)}
	}
	name := strings.TrimSpace(stmt[:open])
	body := stmt[open+1 : len(stmt)-1]

	switch name {
	case "assign":
		return parseAssign(body, line)
	case "reveal":
		return parseReveal(body, line)
	case "elicit":
		return parseElicit(body, line)
	case "ensure":
		return parseEnsure(body, line)
	case "beacon":
		if strings.TrimSpace(body) != "" {
			return Op{}, &xenterr.ParseError{Line: line, Msg: "beacon() takes no arguments"}
		}
		return Op{Line: line, Kind: OpBeacon}, nil
	case "reward":
		return parseReward(body, line)
	default:
		return Op{}, &xenterr.ParseError{Line: line, Msg: fmt.Sprintf("unknown operation %q", name)}
	}
}

func parseAssign(body string, line int) (Op, error) {
	eq := indexTopLevelEquals(body)
	if eq < 0 {
		return Op{}, &xenterr.ParseError{Line: line, Msg: "assign(...) requires name=expr"}
	}
	name := strings.TrimSpace(body[:eq])
	if name == "" {
		return Op{}, &xenterr.ParseError{Line: line, Msg: "assign(...) missing a name"}
	}
	exprSrc := body[eq+1:]
	expr, err := parseExprSrc(exprSrc, line)
	if err != nil {
		return Op{}, err
	}
	return Op{Line: line, Kind: OpAssign, AssignName: name, AssignExpr: expr}, nil
}

func parseReveal(body string, line int) (Op, error) {
	parts := splitTopLevelComma(body)
	var names []string
	for _, p := range parts {
		n := strings.TrimSpace(p)
		if n == "" {
			return Op{}, &xenterr.ParseError{Line: line, Msg: "reveal(...) has an empty argument"}
		}
		names = append(names, n)
	}
	if len(names) == 0 {
		return Op{}, &xenterr.ParseError{Line: line, Msg: "reveal(...) requires at least one name"}
	}
	return Op{Line: line, Kind: OpReveal, RevealNames: names}, nil
}

func parseElicit(body string, line int) (Op, error) {
	parts := splitTopLevelComma(body)
	if len(parts) != 2 {
		return Op{}, &xenterr.ParseError{Line: line, Msg: "elicit(name, max_tokens) requires exactly two arguments"}
	}
	varName := strings.TrimSpace(parts[0])
	maxTokens, err := parseIntLiteral(strings.TrimSpace(parts[1]), line)
	if err != nil {
		return Op{}, err
	}
	return Op{Line: line, Kind: OpElicit, ElicitVar: varName, ElicitMaxTokens: maxTokens}, nil
}

func parseEnsure(body string, line int) (Op, error) {
	expr, err := parseExprSrc(body, line)
	if err != nil {
		return Op{}, err
	}
	return Op{Line: line, Kind: OpEnsure, EnsureExpr: expr}, nil
}

func parseReward(body string, line int) (Op, error) {
	expr, err := parseExprSrc(body, line)
	if err != nil {
		return Op{}, err
	}
	return Op{Line: line, Kind: OpReward, RewardExpr: expr}, nil
}

func parseExprSrc(src string, line int) (Expr, error) {
	p, err := newExprParser(src, line)
	if err != nil {
		return nil, err
	}
	return p.parseExpr()
}

// resolveBeacons is the parser's second pass: it walks Ops in order and
// stamps each ensure with the line of the nearest preceding beacon().
func resolveBeacons(ops []Op) {
	beaconLine := 0
	for i := range ops {
		switch ops[i].Kind {
		case OpBeacon:
			beaconLine = ops[i].Line
		case OpEnsure:
			ops[i].BeaconLine = beaconLine
		}
	}
}

// indexTopLevelEquals finds the first '=' not inside a string literal and
// not part of ==, >=, <=.
func indexTopLevelEquals(s string) int {
	inQuote := byte(0)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inQuote != 0:
			if c == '\\' {
				i++
				continue
			}
			if c == inQuote {
				inQuote = 0
			}
		case c == '"' || c == '\'':
			inQuote = c
		case c == '=':
			if i+1 < len(s) && s[i+1] == '=' {
				i++
				continue
			}
			return i
		}
	}
	return -1
}

// splitTopLevelComma splits on commas outside of string literals and
// nested parentheses.
func splitTopLevelComma(s string) []string {
	var parts []string
	depth := 0
	inQuote := byte(0)
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inQuote != 0:
			if c == '\\' {
				i++
				continue
			}
			if c == inQuote {
				inQuote = 0
			}
		case c == '"' || c == '\'':
			inQuote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
		case c == ',' && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}
