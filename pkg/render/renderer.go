// Package render interprets component descriptors into render trees. A
// render pass resolves each descriptor's type, gates it on its condition,
// computes effective properties from statics and bindings, wires events to
// the context's dispatch function and recurses into children. Faults are
// reported as diagnostics and isolated to the node that caused them.
package render

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/goliatone/go-pagegen/pkg/expr"
	"github.com/goliatone/go-pagegen/pkg/node"
	"github.com/goliatone/go-pagegen/pkg/registry"
	"github.com/goliatone/go-pagegen/pkg/schema"
)

// DefaultMaxDepth bounds descriptor nesting within one pass.
const DefaultMaxDepth = 64

// Context carries what a render pass reads: the current data snapshot and
// the function rendered elements use to request mutations.
type Context struct {
	Data     map[string]any
	Dispatch func(actionID string, params map[string]any)
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithRegistry sets the component registry used to resolve types.
func WithRegistry(reg *registry.Registry) Option {
	return func(r *Renderer) {
		if reg != nil {
			r.registry = reg
		}
	}
}

// WithEvaluator sets the expression evaluator.
func WithEvaluator(eval *expr.Evaluator) Option {
	return func(r *Renderer) {
		if eval != nil {
			r.eval = eval
		}
	}
}

// WithReporter routes diagnostics to reporter instead of the logger.
func WithReporter(reporter Reporter) Option {
	return func(r *Renderer) {
		if reporter != nil {
			r.reporter = reporter
		}
	}
}

// WithLogger sets the logger used by the default reporter.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMaxDepth overrides DefaultMaxDepth. Values below one are ignored.
func WithMaxDepth(depth int) Option {
	return func(r *Renderer) {
		if depth > 0 {
			r.maxDepth = depth
		}
	}
}

// Renderer turns component descriptors into render nodes.
type Renderer struct {
	registry *registry.Registry
	eval     *expr.Evaluator
	reporter Reporter
	logger   *slog.Logger
	maxDepth int
}

// New constructs a Renderer. Without options it uses an empty registry, a
// default evaluator and a reporter that logs through slog.Default().
func New(options ...Option) *Renderer {
	r := &Renderer{maxDepth: DefaultMaxDepth}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.registry == nil {
		r.registry = registry.New(registry.WithLogger(r.logger))
	}
	if r.eval == nil {
		r.eval = expr.New(expr.WithLogger(r.logger))
	}
	if r.reporter == nil {
		r.reporter = LogReporter(r.logger)
	}
	return r
}

// Registry exposes the component registry.
func (r *Renderer) Registry() *registry.Registry { return r.registry }

// Evaluator exposes the expression evaluator.
func (r *Renderer) Evaluator() *expr.Evaluator { return r.eval }

// Reporter exposes the diagnostic sink.
func (r *Renderer) Reporter() Reporter { return r.reporter }

// PassOption configures one render pass.
type PassOption func(*Pass)

// WithFragments makes named fragments available to `ref` descriptors.
func WithFragments(fragments map[string]schema.Component) PassOption {
	return func(p *Pass) {
		p.fragments = fragments
	}
}

// Render interprets one descriptor. A nil result means nothing renders.
func (r *Renderer) Render(ctx context.Context, component schema.Component, rc Context, options ...PassOption) *node.Node {
	return r.Begin(ctx, rc, options...).Render(component)
}

// Begin starts a render pass. Every descriptor rendered through the same
// pass shares duplicate-id tracking, so a layout renders all of its
// top-level components through one pass.
func (r *Renderer) Begin(ctx context.Context, rc Context, options ...PassOption) *Pass {
	if ctx == nil {
		ctx = context.Background()
	}
	p := &Pass{
		renderer: r,
		ctx:      ctx,
		rc:       rc,
		seen:     make(map[string]struct{}),
	}
	for _, opt := range options {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Pass holds the state of one render pass. It is not safe for concurrent
// use.
type Pass struct {
	renderer  *Renderer
	ctx       context.Context
	rc        Context
	fragments map[string]schema.Component
	seen      map[string]struct{}
	ids       []string
	refs      []string
}

// Report forwards a diagnostic that originates outside a descriptor, such
// as a layout problem.
func (p *Pass) Report(d Diagnostic) {
	p.renderer.reporter.Report(d)
}

// Render interprets one descriptor within the pass.
func (p *Pass) Render(component schema.Component) *node.Node {
	return p.render(component, 0)
}

func (p *Pass) render(component schema.Component, depth int) (out *node.Node) {
	defer func() {
		if rec := recover(); rec != nil {
			out = nil
			p.report(KindPanic, component, "component panicked", fmt.Errorf("%v", rec))
		}
	}()

	if err := p.ctx.Err(); err != nil {
		return nil
	}
	if depth >= p.renderer.maxDepth {
		p.report(KindDepth, component, fmt.Sprintf("nesting exceeds %d levels", p.renderer.maxDepth), nil)
		return nil
	}

	if component.Problem != "" {
		p.report(KindMalformed, component, "descriptor is malformed: "+component.Problem, nil)
		return nil
	}

	ref := strings.TrimSpace(component.Ref)
	if ref != "" {
		if slices.Contains(p.refs, ref) {
			p.report(KindCycle, component, fmt.Sprintf("fragment %q references itself through its ancestors", ref), nil)
			return nil
		}
		fragment, ok := p.fragments[ref]
		if !ok {
			p.report(KindUnknownFragment, component, fmt.Sprintf("fragment %q is not defined", ref), nil)
			return nil
		}
		component = mergeFragment(fragment, component)
		if component.Problem != "" {
			p.report(KindMalformed, component, fmt.Sprintf("fragment %q is malformed: %s", ref, component.Problem), nil)
			return nil
		}
	}

	typeName := strings.TrimSpace(component.Type)
	if typeName == "" {
		p.report(KindMalformed, component, "descriptor has no type", nil)
		return nil
	}

	id := component.ID
	if id != "" && slices.Contains(p.ids, id) {
		p.report(KindCycle, component, fmt.Sprintf("id %q repeats an ancestor", id), nil)
		return nil
	}

	impl, ok := p.renderer.registry.Resolve(p.ctx, typeName)
	if !ok {
		message := fmt.Sprintf("unknown component type %q", typeName)
		if suggestion := p.renderer.registry.Suggest(typeName); suggestion != "" {
			message += fmt.Sprintf(" (did you mean %q?)", suggestion)
		}
		p.report(KindUnknownType, component, message, nil)
		return nil
	}

	if strings.TrimSpace(component.Condition) != "" {
		visible, err := p.renderer.eval.EvalCondition(component.Condition, p.rc.Data)
		if err != nil {
			p.report(KindCondition, component, fmt.Sprintf("condition %q failed", component.Condition), err)
			return nil
		}
		if !visible {
			return nil
		}
	}

	if id != "" {
		if _, dup := p.seen[id]; dup {
			p.report(KindDuplicateID, component, fmt.Sprintf("id %q already rendered in this pass", id), nil)
		}
		p.seen[id] = struct{}{}
	}

	n := &node.Node{
		ID:        id,
		Kind:      node.KindComponent,
		Type:      typeName,
		Component: impl,
		Props:     p.properties(component),
		Handlers:  p.handlers(component),
	}

	p.ids = append(p.ids, id)
	if ref != "" {
		p.refs = append(p.refs, ref)
	}
	defer func() {
		p.ids = p.ids[:len(p.ids)-1]
		if ref != "" {
			p.refs = p.refs[:len(p.refs)-1]
		}
	}()

	for _, child := range component.Children {
		if rendered := p.render(child, depth+1); rendered != nil {
			n.Children = append(n.Children, rendered)
		}
	}
	return n
}

// properties interpolates static values, then applies bindings in order so a
// binding always wins over a static of the same name.
func (p *Pass) properties(component schema.Component) map[string]any {
	eval := p.renderer.eval
	props := make(map[string]any, len(component.Properties)+len(component.Bindings))
	for key, value := range component.Properties {
		props[key] = defined(eval.Interpolate(value, p.rc.Data))
	}

	for _, binding := range component.Bindings {
		target := strings.TrimSpace(binding.Target)
		if target == "" || strings.TrimSpace(binding.Source) == "" {
			p.report(KindMalformed, component, "binding needs sourcePath and targetProperty", nil)
			continue
		}

		value, err := eval.Lookup(binding.Source, p.rc.Data)
		if err != nil {
			p.report(KindTransform, component, fmt.Sprintf("binding source %q failed", binding.Source), err)
			value = expr.Undefined
		}
		if strings.TrimSpace(binding.Transform) != "" {
			transformed, err := eval.Transform(binding.Transform, value, p.rc.Data)
			if err != nil {
				p.report(KindTransform, component, fmt.Sprintf("transform %q failed", binding.Transform), err)
			} else {
				value = transformed
			}
		}
		props[target] = defined(value)
	}
	return props
}

// handlers installs one handler per event name. Params are interpolated now,
// against the data of this pass; the fired payload travels as params.event.
func (p *Pass) handlers(component schema.Component) map[string]node.Handler {
	if len(component.Events) == 0 {
		return nil
	}
	dispatch := p.rc.Dispatch
	handlers := make(map[string]node.Handler, len(component.Events))
	for _, event := range component.Events {
		name := strings.TrimSpace(event.Name)
		action := strings.TrimSpace(event.Action)
		if name == "" || action == "" {
			p.report(KindMalformed, component, "event needs eventName and actionId", nil)
			continue
		}

		params := make(map[string]any, len(event.Params))
		for key, value := range event.Params {
			params[key] = defined(p.renderer.eval.Interpolate(value, p.rc.Data))
		}

		fire := func(payload map[string]any) {
			if dispatch == nil {
				return
			}
			call := make(map[string]any, len(params)+1)
			for key, value := range params {
				call[key] = value
			}
			if payload != nil {
				call["event"] = payload
			}
			dispatch(action, call)
		}

		if previous, ok := handlers[name]; ok {
			handlers[name] = func(payload map[string]any) {
				previous(payload)
				fire(payload)
			}
			continue
		}
		handlers[name] = fire
	}
	return handlers
}

func (p *Pass) report(kind Kind, component schema.Component, message string, err error) {
	p.renderer.reporter.Report(Diagnostic{
		Kind:        kind,
		ComponentID: component.ID,
		Type:        component.Type,
		Path:        ancestry(p.ids),
		Message:     message,
		Err:         err,
	})
}

// mergeFragment overlays the referencing descriptor onto the fragment: set
// fields on the reference win, properties merge key by key.
func mergeFragment(fragment, ref schema.Component) schema.Component {
	out := fragment
	out.Ref = ""
	if ref.ID != "" {
		out.ID = ref.ID
	}
	if ref.Type != "" {
		out.Type = ref.Type
	}
	if ref.Condition != "" {
		out.Condition = ref.Condition
	}
	if len(ref.Properties) > 0 {
		merged := make(map[string]any, len(fragment.Properties)+len(ref.Properties))
		for key, value := range fragment.Properties {
			merged[key] = value
		}
		for key, value := range ref.Properties {
			merged[key] = value
		}
		out.Properties = merged
	}
	if len(ref.Bindings) > 0 {
		out.Bindings = ref.Bindings
	}
	if len(ref.Events) > 0 {
		out.Events = ref.Events
	}
	if len(ref.Children) > 0 {
		out.Children = ref.Children
	}
	return out
}

// defined maps expr.Undefined to nil so consumers only ever see plain values.
func defined(value any) any {
	if expr.IsUndefined(value) {
		return nil
	}
	return value
}

func ancestry(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}
