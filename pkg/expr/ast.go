package expr

import (
	"fmt"
	"strconv"
	"strings"
)

// Node is one parsed expression. The tree is closed: Literal, Path, Ternary
// and Negation are the only variants.
type Node interface {
	eval(s *scope) (any, error)
	String() string
}

// Literal evaluates to its value unchanged.
type Literal struct {
	Value any
}

func (n Literal) eval(*scope) (any, error) {
	return n.Value, nil
}

func (n Literal) String() string {
	switch v := n.Value.(type) {
	case string:
		return strconv.Quote(v)
	case nil:
		return "null"
	case UndefinedValue:
		return "undefined"
	default:
		return fmt.Sprint(v)
	}
}

// Path reads a dotted path from the evaluation data.
type Path struct {
	Raw string
}

func (n Path) eval(s *scope) (any, error) {
	return s.lookup(n.Raw)
}

func (n Path) String() string {
	return n.Raw
}

// Ternary evaluates Cond and then exactly one of Then or Else.
type Ternary struct {
	Cond Node
	Then Node
	Else Node
}

func (n Ternary) eval(s *scope) (any, error) {
	cond, err := n.Cond.eval(s)
	if err != nil {
		return nil, err
	}
	if Truthy(cond) {
		return n.Then.eval(s)
	}
	return n.Else.eval(s)
}

func (n Ternary) String() string {
	return n.Cond.String() + " ? " + n.Then.String() + " : " + n.Else.String()
}

// Negation returns the boolean complement of its operand.
type Negation struct {
	Operand Node
}

func (n Negation) eval(s *scope) (any, error) {
	value, err := n.Operand.eval(s)
	if err != nil {
		return nil, err
	}
	return !Truthy(value), nil
}

func (n Negation) String() string {
	return "!" + n.Operand.String()
}

type scope struct {
	data    any
	resolve PathResolver
}

func (s *scope) lookup(path string) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("expr: path resolver panicked on %q: %v", path, r)
		}
	}()
	return s.resolve(s.data, path)
}

// UndefinedValue is the result of a path that does not resolve.
type UndefinedValue struct{}

// String renders undefined as empty text so it never leaks into output.
func (UndefinedValue) String() string { return "" }

// Undefined is returned by path lookups that stop at a missing segment.
var Undefined = UndefinedValue{}

// IsUndefined reports whether v is the Undefined marker.
func IsUndefined(v any) bool {
	_, ok := v.(UndefinedValue)
	return ok
}

// Truthy applies the evaluator's truthiness rules: nil, undefined, false,
// zero numbers, blank strings and empty collections are falsy.
func Truthy(value any) bool {
	if value == nil {
		return false
	}
	switch v := value.(type) {
	case UndefinedValue:
		return false
	case bool:
		return v
	case string:
		return strings.TrimSpace(v) != ""
	case int:
		return v != 0
	case int32:
		return v != 0
	case int64:
		return v != 0
	case uint:
		return v != 0
	case uint64:
		return v != 0
	case float32:
		return v != 0 && v == v
	case float64:
		return v != 0 && v == v
	case []any:
		return len(v) > 0
	case []string:
		return len(v) > 0
	case []map[string]any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	case map[string]string:
		return len(v) > 0
	default:
		return true
	}
}
