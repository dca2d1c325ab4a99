package expr

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

const (
	// DefaultOpen and DefaultClose delimit strings that should be evaluated.
	DefaultOpen  = "{{"
	DefaultClose = "}}"
)

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithDelimiters overrides the markers wrapping evaluable strings. Empty
// values keep the defaults.
func WithDelimiters(open, close string) Option {
	return func(e *Evaluator) {
		if open = strings.TrimSpace(open); open != "" {
			e.open = open
		}
		if close = strings.TrimSpace(close); close != "" {
			e.close = close
		}
	}
}

// WithPathResolver swaps the dotted traversal used for Path nodes.
func WithPathResolver(resolver PathResolver) Option {
	return func(e *Evaluator) {
		if resolver != nil {
			e.resolve = resolver
		}
	}
}

// WithFallback sets the value returned when evaluation fails. Without it the
// original expression string is returned.
func WithFallback(value any) Option {
	return func(e *Evaluator) {
		e.fallback = value
		e.hasFallback = true
	}
}

// WithLogger routes evaluation diagnostics to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Evaluator evaluates binding and condition strings. It is safe for
// concurrent use; parsed expressions are cached by source text.
type Evaluator struct {
	open        string
	close       string
	resolve     PathResolver
	fallback    any
	hasFallback bool
	logger      *slog.Logger

	cache sync.Map // string -> compiled
}

type compiled struct {
	node Node
	err  error
}

// New constructs an Evaluator with the default delimiters and resolver.
func New(options ...Option) *Evaluator {
	e := &Evaluator{
		open:    DefaultOpen,
		close:   DefaultClose,
		resolve: DefaultResolver,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Evaluate is a convenience wrapper around New(options...).Evaluate.
func Evaluate(expression string, data any, options ...Option) any {
	return New(options...).Evaluate(expression, data)
}

// Delimiters reports the configured open/close markers.
func (e *Evaluator) Delimiters() (string, string) {
	return e.open, e.close
}

// IsExpression reports whether s is wrapped in the configured delimiters.
func (e *Evaluator) IsExpression(s string) bool {
	_, ok := e.unwrap(s)
	return ok
}

// Evaluate evaluates a delimiter-wrapped string against data. Plain strings
// are returned unchanged. On failure the configured fallback (or the original
// string) is returned and a warning is logged.
func (e *Evaluator) Evaluate(expression string, data any) any {
	if e.hasFallback {
		return e.EvaluateOr(expression, data, e.fallback)
	}
	return e.EvaluateOr(expression, data, expression)
}

// EvaluateOr is Evaluate with a per-call fallback.
func (e *Evaluator) EvaluateOr(expression string, data any, fallback any) any {
	inner, ok := e.unwrap(expression)
	if !ok {
		return expression
	}
	value, err := e.Eval(inner, data)
	if err != nil {
		e.logger.Warn("expr: evaluation failed", "expression", expression, "error", err)
		return fallback
	}
	return value
}

// Eval evaluates an unwrapped expression and reports failures instead of
// falling back.
func (e *Evaluator) Eval(expression string, data any) (value any, err error) {
	node, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			value = nil
			err = fmt.Errorf("expr: evaluation panicked: %v", r)
		}
	}()
	return node.eval(&scope{data: data, resolve: e.resolve})
}

// Compile parses expression, reusing a cached AST when available.
func (e *Evaluator) Compile(expression string) (Node, error) {
	key := strings.TrimSpace(expression)
	if cached, ok := e.cache.Load(key); ok {
		c := cached.(compiled)
		return c.node, c.err
	}
	node, err := Parse(key)
	e.cache.Store(key, compiled{node: node, err: err})
	return node, err
}

// Condition evaluates a gating expression; delimiters are optional. An empty
// condition is true. Evaluation failures are logged and treated as false.
func (e *Evaluator) Condition(expression string, data any) bool {
	ok, err := e.EvalCondition(expression, data)
	if err != nil {
		e.logger.Warn("expr: condition failed", "expression", expression, "error", err)
		return false
	}
	return ok
}

// EvalCondition is Condition without the logging: failures are returned
// alongside a false result.
func (e *Evaluator) EvalCondition(expression string, data any) (bool, error) {
	source := strings.TrimSpace(expression)
	if source == "" {
		return true, nil
	}
	if inner, ok := e.unwrap(source); ok {
		source = inner
	}
	value, err := e.Eval(source, data)
	if err != nil {
		return false, err
	}
	return Truthy(value), nil
}

// Lookup resolves a bare path against data with the configured resolver.
// Delimiters around path are stripped. Missing segments yield Undefined.
func (e *Evaluator) Lookup(path string, data any) (value any, err error) {
	source := strings.TrimSpace(path)
	if inner, ok := e.unwrap(source); ok {
		source = strings.TrimSpace(inner)
	}
	if source == "" {
		return nil, ErrEmpty
	}
	defer func() {
		if r := recover(); r != nil {
			value = Undefined
			err = fmt.Errorf("expr: resolver panicked on %q: %v", source, r)
		}
	}()
	return e.resolve(data, source)
}

// Transform evaluates expression with subject exposed as `value`; other
// paths resolve against data. Delimiters are optional.
func (e *Evaluator) Transform(expression string, subject, data any) (any, error) {
	source := strings.TrimSpace(expression)
	if inner, ok := e.unwrap(source); ok {
		source = inner
	}
	return e.Eval(source, withSubject(data, subject))
}

// Interpolate evaluates value when it is a delimiter-wrapped string and
// returns every other value untouched.
func (e *Evaluator) Interpolate(value any, data any) any {
	s, ok := value.(string)
	if !ok {
		return value
	}
	return e.Evaluate(s, data)
}

func (e *Evaluator) unwrap(s string) (string, bool) {
	trimmed := strings.TrimSpace(s)
	if len(trimmed) < len(e.open)+len(e.close) {
		return "", false
	}
	if !strings.HasPrefix(trimmed, e.open) || !strings.HasSuffix(trimmed, e.close) {
		return "", false
	}
	inner := trimmed[len(e.open) : len(trimmed)-len(e.close)]
	// Several expressions in one value are not a single expression.
	if strings.Contains(inner, e.open) || strings.Contains(inner, e.close) {
		return "", false
	}
	return inner, true
}

func withSubject(data, subject any) map[string]any {
	base, _ := data.(map[string]any)
	scoped := make(map[string]any, len(base)+1)
	for key, value := range base {
		scoped[key] = value
	}
	scoped["value"] = subject
	return scoped
}
