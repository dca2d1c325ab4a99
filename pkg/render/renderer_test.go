package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-pagegen/pkg/node"
	"github.com/goliatone/go-pagegen/pkg/registry"
	"github.com/goliatone/go-pagegen/pkg/schema"
)

type shape struct {
	ID       string
	Type     string
	Children []shape
}

func shapeOf(n *node.Node) shape {
	out := shape{ID: n.ID, Type: n.Type}
	for _, child := range n.Children {
		out.Children = append(out.Children, shapeOf(child))
	}
	return out
}

func noopComponent() registry.Component {
	return registry.ComponentFunc(func(io.Writer, map[string]any, []string) error { return nil })
}

func newTestRenderer(t *testing.T, options ...Option) (*Renderer, *Collector) {
	t.Helper()
	reg := registry.New()
	for _, name := range []string{"Panel", "Text", "Button"} {
		reg.MustRegister(name, noopComponent())
	}
	collector := &Collector{}
	options = append([]Option{WithRegistry(reg), WithReporter(collector)}, options...)
	return New(options...), collector
}

func TestRenderMirrorsChildren(t *testing.T) {
	t.Parallel()

	r, collector := newTestRenderer(t)
	descriptor := schema.Component{
		ID:   "root",
		Type: "Panel",
		Children: []schema.Component{
			{ID: "a", Type: "Text"},
			{ID: "b", Type: "Panel", Children: []schema.Component{
				{ID: "b1", Type: "Button"},
				{ID: "b2", Type: "Text"},
			}},
			{ID: "c", Type: "Button"},
		},
	}

	got := r.Render(context.Background(), descriptor, Context{})
	if got == nil {
		t.Fatalf("expected a node")
	}
	want := shape{ID: "root", Type: "Panel", Children: []shape{
		{ID: "a", Type: "Text"},
		{ID: "b", Type: "Panel", Children: []shape{
			{ID: "b1", Type: "Button"},
			{ID: "b2", Type: "Text"},
		}},
		{ID: "c", Type: "Button"},
	}}
	if diff := cmp.Diff(want, shapeOf(got)); diff != "" {
		t.Fatalf("tree mismatch (-want +got):\n%s", diff)
	}
	if len(collector.Diagnostics()) != 0 {
		t.Fatalf("unexpected diagnostics %v", collector.Diagnostics())
	}
}

func TestFalsyConditionSkipsSubtree(t *testing.T) {
	t.Parallel()

	r, _ := newTestRenderer(t)
	var dispatched int32
	rc := Context{
		Data: map[string]any{"show": false, "user": map[string]any{"admin": true}},
		Dispatch: func(string, map[string]any) {
			atomic.AddInt32(&dispatched, 1)
		},
	}

	hidden := schema.Component{
		ID:        "secret",
		Type:      "Panel",
		Condition: "show",
		Events:    []schema.Event{{Name: "onClick", Action: "reveal"}},
		Children: []schema.Component{
			{ID: "inner", Type: "Button", Events: []schema.Event{{Name: "onClick", Action: "x"}}},
		},
	}
	if got := r.Render(context.Background(), hidden, rc); got != nil {
		t.Fatalf("expected nil for falsy condition, got %+v", got)
	}

	root := schema.Component{
		ID:   "root",
		Type: "Panel",
		Children: []schema.Component{
			hidden,
			{ID: "admin", Type: "Button", Condition: "{{user.admin}}", Events: []schema.Event{{Name: "onClick", Action: "a"}}},
			{ID: "guest", Type: "Button", Condition: "!user.admin", Events: []schema.Event{{Name: "onClick", Action: "g"}}},
		},
	}
	got := r.Render(context.Background(), root, rc)
	if diff := cmp.Diff([]string{"admin"}, childIDs(got)); diff != "" {
		t.Fatalf("children mismatch (-want +got):\n%s", diff)
	}
	for _, inv := range node.Invocables(got) {
		if inv.Node.ID == "secret" || inv.Node.ID == "inner" {
			t.Fatalf("handler in skipped subtree is invocable: %s", inv.Node.ID)
		}
	}
	if node.Find(got, "inner") != nil {
		t.Fatalf("skipped subtree should not be present")
	}
	if atomic.LoadInt32(&dispatched) != 0 {
		t.Fatalf("render must not dispatch")
	}
}

func TestBindingOverridesStatic(t *testing.T) {
	t.Parallel()

	r, _ := newTestRenderer(t)
	descriptor := schema.Component{
		ID:         "title",
		Type:       "Text",
		Properties: map[string]any{"label": "X", "hint": "{{user.role}}", "count": 3},
		Bindings: []schema.Binding{
			{Source: "user.name", Target: "label"},
			{Source: "user.missing.deep", Target: "subtitle"},
			{Source: "user.name", Target: "shout", Transform: "value ? 'named' : 'anon'"},
		},
	}
	data := map[string]any{"user": map[string]any{"name": "Ada", "role": "admin"}}

	got := r.Render(context.Background(), descriptor, Context{Data: data})
	want := map[string]any{
		"label":    "Ada",
		"hint":     "admin",
		"count":    3,
		"subtitle": nil,
		"shout":    "named",
	}
	if diff := cmp.Diff(want, got.Props); diff != "" {
		t.Fatalf("props mismatch (-want +got):\n%s", diff)
	}
}

func TestTransformFailureFallsBack(t *testing.T) {
	t.Parallel()

	r, collector := newTestRenderer(t)
	descriptor := schema.Component{
		ID:       "t",
		Type:     "Text",
		Bindings: []schema.Binding{{Source: "n", Target: "value", Transform: "value ? 'x'"}},
	}
	got := r.Render(context.Background(), descriptor, Context{Data: map[string]any{"n": 7}})
	if got == nil {
		t.Fatalf("transform failure must not abort the node")
	}
	if got.Props["value"] != 7 {
		t.Fatalf("expected untransformed value, got %v", got.Props["value"])
	}
	if diff := cmp.Diff([]Kind{KindTransform}, collector.Kinds()); diff != "" {
		t.Fatalf("kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestUnknownTypeSkipsSubtree(t *testing.T) {
	t.Parallel()

	r, collector := newTestRenderer(t)
	var loads int32
	r.Registry().RegisterLoader("Lazy", func(context.Context) (registry.Component, error) {
		atomic.AddInt32(&loads, 1)
		return noopComponent(), nil
	})

	descriptor := schema.Component{
		ID:       "x",
		Type:     "Pannel",
		Children: []schema.Component{{ID: "child", Type: "Lazy"}},
	}
	if got := r.Render(context.Background(), descriptor, Context{}); got != nil {
		t.Fatalf("expected nil for unknown type")
	}
	if atomic.LoadInt32(&loads) != 0 {
		t.Fatalf("children of an unknown type must not be resolved")
	}

	diags := collector.Diagnostics()
	if len(diags) != 1 || diags[0].Kind != KindUnknownType || diags[0].ComponentID != "x" {
		t.Fatalf("unexpected diagnostics %+v", diags)
	}
	if want := `unknown component type "Pannel" (did you mean "panel"?)`; diags[0].Message != want {
		t.Fatalf("message = %q, want %q", diags[0].Message, want)
	}
}

func TestConditionFailureIsReported(t *testing.T) {
	t.Parallel()

	r, collector := newTestRenderer(t)
	root := schema.Component{
		ID:   "root",
		Type: "Panel",
		Children: []schema.Component{
			{ID: "broken", Type: "Text", Condition: "a ? b"},
			{ID: "ok", Type: "Text"},
		},
	}
	got := r.Render(context.Background(), root, Context{})
	if diff := cmp.Diff([]string{"ok"}, childIDs(got)); diff != "" {
		t.Fatalf("children mismatch (-want +got):\n%s", diff)
	}
	diags := collector.Diagnostics()
	if len(diags) != 1 || diags[0].Kind != KindCondition {
		t.Fatalf("unexpected diagnostics %+v", diags)
	}
	if diff := cmp.Diff([]string{"root"}, diags[0].Path); diff != "" {
		t.Fatalf("path mismatch (-want +got):\n%s", diff)
	}
}

func TestMalformedDescriptorIsolated(t *testing.T) {
	t.Parallel()

	r, collector := newTestRenderer(t)
	root := schema.Component{
		ID:   "root",
		Type: "Panel",
		Children: []schema.Component{
			{ID: "a", Type: "Text"},
			{ID: "no-type"},
			{ID: "c", Type: "Text", Bindings: []schema.Binding{{Source: "x"}}, Events: []schema.Event{{Name: "onClick"}}},
		},
	}
	got := r.Render(context.Background(), root, Context{})
	if diff := cmp.Diff([]string{"a", "c"}, childIDs(got)); diff != "" {
		t.Fatalf("children mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Kind{KindMalformed, KindMalformed, KindMalformed}, collector.Kinds()); diff != "" {
		t.Fatalf("kinds mismatch (-want +got):\n%s", diff)
	}
	if events := node.Find(got, "c").Events(); len(events) != 0 {
		t.Fatalf("malformed event should not be wired, got %v", events)
	}
}

func TestDecodeProblemSkipsOnlyThatDescriptor(t *testing.T) {
	t.Parallel()

	page, err := schema.Parse([]byte(`{
	  "layout": {"type": "single"},
	  "components": [
	    {"id": "root", "type": "Panel", "children": [
	      {"id": "ok", "type": "Text"},
	      {"id": "bad", "type": "Text", "condition": true},
	      {"id": "half", "type": "Text", "bindings": [{"sourcePath": "user.name"}]},
	      {"id": "shared", "ref": "broken"}
	    ]}
	  ],
	  "fragments": {"broken": {"type": "Text", "properties": "nope"}}
	}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	r, collector := newTestRenderer(t)
	got := r.Render(context.Background(), page.Components[0], Context{}, WithFragments(page.Fragments))
	if diff := cmp.Diff([]string{"ok", "half"}, childIDs(got)); diff != "" {
		t.Fatalf("children mismatch (-want +got):\n%s", diff)
	}
	diagnostics := collector.Diagnostics()
	if len(diagnostics) != 3 || diagnostics[0].ComponentID != "bad" || diagnostics[0].Kind != KindMalformed {
		t.Fatalf("unexpected diagnostics %+v", diagnostics)
	}
	if diagnostics[1].ComponentID != "half" || diagnostics[1].Kind != KindMalformed {
		t.Fatalf("unexpected binding diagnostic %+v", diagnostics[1])
	}
	if diagnostics[2].ComponentID != "shared" || diagnostics[2].Kind != KindMalformed {
		t.Fatalf("unexpected fragment diagnostic %+v", diagnostics[2])
	}
}

func TestEventsDispatchWithRenderTimeParams(t *testing.T) {
	t.Parallel()

	r, _ := newTestRenderer(t)
	type call struct {
		Action string
		Params map[string]any
	}
	var calls []call
	rc := Context{
		Data: map[string]any{"user": map[string]any{"id": "u1"}},
		Dispatch: func(action string, params map[string]any) {
			calls = append(calls, call{Action: action, Params: params})
		},
	}

	descriptor := schema.Component{
		ID:   "save",
		Type: "Button",
		Events: []schema.Event{
			{Name: "onClick", Action: "save", Params: map[string]any{"id": "{{user.id}}", "mode": "full"}},
			{Name: "onClick", Action: "track"},
			{Name: "onHover", Action: "hover"},
		},
	}
	got := r.Render(context.Background(), descriptor, rc)
	if len(calls) != 0 {
		t.Fatalf("render must not dispatch, got %v", calls)
	}
	if diff := cmp.Diff([]string{"onClick", "onHover"}, got.Events()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}

	got.Fire("onClick", map[string]any{"x": 1})
	want := []call{
		{Action: "save", Params: map[string]any{"id": "u1", "mode": "full", "event": map[string]any{"x": 1}}},
		{Action: "track", Params: map[string]any{"event": map[string]any{"x": 1}}},
	}
	if diff := cmp.Diff(want, calls); diff != "" {
		t.Fatalf("dispatch mismatch (-want +got):\n%s", diff)
	}
}

func TestFragmentsAndCycles(t *testing.T) {
	t.Parallel()

	r, collector := newTestRenderer(t)
	fragments := map[string]schema.Component{
		"card": {
			ID:         "card",
			Type:       "Panel",
			Properties: map[string]any{"label": "Card", "tone": "plain"},
			Children:   []schema.Component{{ID: "card-body", Type: "Text"}},
		},
		"loop": {
			ID:       "loop",
			Type:     "Panel",
			Children: []schema.Component{{ID: "again", Ref: "loop"}},
		},
	}
	root := schema.Component{
		ID:   "root",
		Type: "Panel",
		Children: []schema.Component{
			{ID: "first", Ref: "card", Properties: map[string]any{"label": "First"}},
			{ID: "l", Ref: "loop"},
			{ID: "ghost", Ref: "missing"},
		},
	}

	got := r.Render(context.Background(), root, Context{}, WithFragments(fragments))
	want := shape{ID: "root", Type: "Panel", Children: []shape{
		{ID: "first", Type: "Panel", Children: []shape{{ID: "card-body", Type: "Text"}}},
		{ID: "l", Type: "Panel"},
	}}
	if diff := cmp.Diff(want, shapeOf(got)); diff != "" {
		t.Fatalf("tree mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]any{"label": "First", "tone": "plain"}, node.Find(got, "first").Props); diff != "" {
		t.Fatalf("props mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Kind{KindCycle, KindUnknownFragment}, collector.Kinds()); diff != "" {
		t.Fatalf("kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestAncestorIDCycleAndDepthLimit(t *testing.T) {
	t.Parallel()

	r, collector := newTestRenderer(t, WithMaxDepth(3))
	selfRef := schema.Component{ID: "a", Type: "Panel", Children: []schema.Component{
		{ID: "a", Type: "Panel"},
	}}
	got := r.Render(context.Background(), selfRef, Context{})
	if got == nil || len(got.Children) != 0 {
		t.Fatalf("expected parent without the repeating child, got %+v", got)
	}

	deep := schema.Component{Type: "Panel"}
	for i := 4; i >= 0; i-- {
		deep = schema.Component{ID: fmt.Sprintf("d%d", i), Type: "Panel", Children: []schema.Component{deep}}
	}
	got = r.Render(context.Background(), deep, Context{})
	if depth := treeDepth(got); depth != 3 {
		t.Fatalf("depth = %d, want 3", depth)
	}
	if diff := cmp.Diff([]Kind{KindCycle, KindDepth}, collector.Kinds()); diff != "" {
		t.Fatalf("kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestDuplicateIDsWarnButRender(t *testing.T) {
	t.Parallel()

	r, collector := newTestRenderer(t)
	pass := r.Begin(context.Background(), Context{})
	first := pass.Render(schema.Component{ID: "dup", Type: "Text"})
	second := pass.Render(schema.Component{ID: "dup", Type: "Button"})
	if first == nil || second == nil {
		t.Fatalf("duplicates must still render")
	}
	diags := collector.Diagnostics()
	if len(diags) != 1 || diags[0].Kind != KindDuplicateID || !diags[0].Warning() {
		t.Fatalf("unexpected diagnostics %+v", diags)
	}

	// A new pass starts with a clean id set.
	collector.Reset()
	r.Render(context.Background(), schema.Component{ID: "dup", Type: "Text"}, Context{})
	if len(collector.Diagnostics()) != 0 {
		t.Fatalf("ids must only be unique within one pass")
	}
}

func TestPanicIsolatedToNode(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	reg.MustRegister("Panel", noopComponent())
	collector := &Collector{}
	exploding := ReporterFunc(func(d Diagnostic) {
		if d.Kind == KindDuplicateID {
			panic("reporter exploded")
		}
		collector.Report(d)
	})
	r := New(WithRegistry(reg), WithReporter(exploding))

	root := schema.Component{ID: "root", Type: "Panel", Children: []schema.Component{
		{ID: "x", Type: "Panel"},
		{ID: "x", Type: "Panel"},
		{ID: "y", Type: "Panel"},
	}}
	got := r.Render(context.Background(), root, Context{})
	if diff := cmp.Diff([]string{"x", "y"}, childIDs(got)); diff != "" {
		t.Fatalf("children mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Kind{KindPanic}, collector.Kinds()); diff != "" {
		t.Fatalf("kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestFailedLoaderRendersNothing(t *testing.T) {
	t.Parallel()

	r, collector := newTestRenderer(t)
	r.Registry().RegisterLoader("Chart", func(context.Context) (registry.Component, error) {
		return nil, errors.New("boom")
	})
	if got := r.Render(context.Background(), schema.Component{ID: "c", Type: "Chart"}, Context{}); got != nil {
		t.Fatalf("expected nil for failed load")
	}
	if diff := cmp.Diff([]Kind{KindUnknownType}, collector.Kinds()); diff != "" {
		t.Fatalf("kinds mismatch (-want +got):\n%s", diff)
	}
}

func childIDs(n *node.Node) []string {
	if n == nil {
		return nil
	}
	ids := make([]string, 0, len(n.Children))
	for _, child := range n.Children {
		ids = append(ids, child.ID)
	}
	return ids
}

func treeDepth(n *node.Node) int {
	if n == nil {
		return 0
	}
	deepest := 0
	for _, child := range n.Children {
		if d := treeDepth(child); d > deepest {
			deepest = d
		}
	}
	return deepest + 1
}
