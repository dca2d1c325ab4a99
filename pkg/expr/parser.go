package expr

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrEmpty is returned when an expression holds no tokens.
	ErrEmpty = errors.New("expr: empty expression")

	pathPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*(\.[A-Za-z0-9_$-]+)*$`)
)

// Parse compiles an unwrapped expression into its AST.
//
// Supported forms, tried in order:
//   - grouping: `(a ? b : c)`
//   - ternary: `cond ? a : b` (right associative)
//   - negation: `!x`
//   - literals: `"text"`, `'text'`, numbers, `true`, `false`, `null`, `undefined`
//   - dotted paths: `user.profile.name`, `items.0.title`
//
// Anything else is kept as a string literal.
func Parse(input string) (Node, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil, ErrEmpty
	}

	if inner, ok, err := unwrapGroup(trimmed); err != nil {
		return nil, err
	} else if ok {
		return Parse(inner)
	}

	q, c, err := splitTernary(trimmed)
	if err != nil {
		return nil, err
	}
	if q >= 0 {
		cond, err := parseOperand(trimmed[:q], "condition")
		if err != nil {
			return nil, err
		}
		then, err := parseOperand(trimmed[q+1:c], "branch")
		if err != nil {
			return nil, err
		}
		otherwise, err := parseOperand(trimmed[c+1:], "branch")
		if err != nil {
			return nil, err
		}
		return Ternary{Cond: cond, Then: then, Else: otherwise}, nil
	}

	if strings.HasPrefix(trimmed, "!") {
		operand, err := parseOperand(trimmed[1:], "negation operand")
		if err != nil {
			return nil, err
		}
		return Negation{Operand: operand}, nil
	}

	return parseAtom(trimmed)
}

func parseOperand(raw, role string) (Node, error) {
	node, err := Parse(raw)
	if errors.Is(err, ErrEmpty) {
		return nil, fmt.Errorf("expr: missing %s", role)
	}
	return node, err
}

func parseAtom(raw string) (Node, error) {
	switch raw[0] {
	case '"', '\'':
		value, err := unquote(raw)
		if err != nil {
			return nil, err
		}
		return Literal{Value: value}, nil
	}

	switch raw {
	case "true":
		return Literal{Value: true}, nil
	case "false":
		return Literal{Value: false}, nil
	case "null", "nil":
		return Literal{Value: nil}, nil
	case "undefined":
		return Literal{Value: Undefined}, nil
	}

	if looksLikeNumber(raw) {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return Literal{Value: f}, nil
		}
	}

	if pathPattern.MatchString(raw) {
		return Path{Raw: raw}, nil
	}
	return Literal{Value: raw}, nil
}

func unquote(raw string) (string, error) {
	quote := raw[0]
	if len(raw) < 2 || raw[len(raw)-1] != quote {
		return "", errors.New("expr: unterminated string literal")
	}
	inner := raw[1 : len(raw)-1]
	if end := closingQuote(raw, 0); end != len(raw)-1 {
		return "", fmt.Errorf("expr: unexpected text after string literal in %q", raw)
	}
	if quote == '\'' {
		inner = requote(inner)
	}
	value, err := strconv.Unquote(`"` + inner + `"`)
	if err != nil {
		return "", fmt.Errorf("expr: invalid string literal: %w", err)
	}
	return value, nil
}

// requote turns the body of a single-quoted literal into the body of a
// double-quoted one. Escape sequences are kept as they are, except \' which
// no longer needs escaping.
func requote(inner string) string {
	var b strings.Builder
	b.Grow(len(inner) + 2)
	for i := 0; i < len(inner); i++ {
		switch ch := inner[i]; {
		case ch == '\\' && i+1 < len(inner):
			i++
			if inner[i] == '\'' {
				b.WriteByte('\'')
				continue
			}
			b.WriteByte('\\')
			b.WriteByte(inner[i])
		case ch == '"':
			b.WriteString(`\"`)
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

func looksLikeNumber(raw string) bool {
	if raw == "" {
		return false
	}
	ch := raw[0]
	return (ch >= '0' && ch <= '9') || ch == '-' || ch == '+' || ch == '.'
}

// closingQuote returns the index of the quote closing the literal that opens
// at start, or -1.
func closingQuote(s string, start int) int {
	quote := s[start]
	escaped := false
	for i := start + 1; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		if c == quote {
			return i
		}
	}
	return -1
}

// splitTernary locates the top-level '?' and its matching ':'. It returns
// (-1, -1, nil) when the expression is not a ternary.
func splitTernary(s string) (int, int, error) {
	question := -1
	pending := 0
	depth := 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"', '\'':
			end := closingQuote(s, i)
			if end < 0 {
				return -1, -1, errors.New("expr: unterminated string literal")
			}
			i = end
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return -1, -1, errors.New("expr: unbalanced ')'")
			}
		case '?':
			if depth > 0 {
				continue
			}
			if question < 0 {
				question = i
			} else {
				pending++
			}
		case ':':
			if depth > 0 || question < 0 {
				continue
			}
			if pending == 0 {
				return question, i, nil
			}
			pending--
		}
	}
	if depth != 0 {
		return -1, -1, errors.New("expr: missing closing ')'")
	}
	if question >= 0 {
		return -1, -1, errors.New("expr: ternary is missing ':'")
	}
	return -1, -1, nil
}

// unwrapGroup strips one pair of parentheses enclosing the whole input.
func unwrapGroup(s string) (string, bool, error) {
	if !strings.HasPrefix(s, "(") {
		return "", false, nil
	}
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"', '\'':
			end := closingQuote(s, i)
			if end < 0 {
				return "", false, errors.New("expr: unterminated string literal")
			}
			i = end
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				if i == len(s)-1 {
					return s[1:i], true, nil
				}
				return "", false, nil
			}
		}
	}
	return "", false, errors.New("expr: missing closing ')'")
}
