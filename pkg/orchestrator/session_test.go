package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/goliatone/go-pagegen/pkg/layout"
	"github.com/goliatone/go-pagegen/pkg/node"
	"github.com/goliatone/go-pagegen/pkg/runtime"
	"github.com/goliatone/go-pagegen/pkg/schema"
)

func incrementAction() runtime.Action {
	return runtime.Action{
		ID: "increment",
		Handler: func(_ context.Context, params, data map[string]any) (map[string]any, error) {
			by, _ := params["by"].(float64)
			count, _ := data["count"].(int)
			data["count"] = count + int(by)
			return data, nil
		},
	}
}

func TestSessionRebuildsAfterAction(t *testing.T) {
	t.Parallel()

	session, err := New().Open(context.Background(), Request{
		Source:  inline(counterPage),
		Data:    map[string]any{"count": 0},
		Actions: []runtime.Action{incrementAction()},
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer session.Close()

	before := session.Tree()
	if !session.Fire("inc", "onClick", nil) {
		t.Fatalf("expected onClick to be wired")
	}
	session.Settle()

	after := session.Tree()
	if after == before {
		t.Fatalf("expected a fresh tree after the action committed")
	}
	if got := node.Find(after, "count").Prop("text"); got != 1 {
		t.Fatalf("count text = %v, want 1", got)
	}
	if got := node.Find(before, "count").Prop("text"); got != 0 {
		t.Fatalf("old tree mutated: %v", got)
	}

	out, err := session.Mount(context.Background())
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	if !strings.Contains(string(out), `id="count">1</p>`) {
		t.Fatalf("mounted output missing new count:\n%s", out)
	}
}

func TestSessionKeepsActiveTabAcrossRebuilds(t *testing.T) {
	t.Parallel()

	page := schema.Page{
		Layout: schema.Layout{Type: schema.LayoutTabs},
		Components: []schema.Component{
			{ID: "first", Type: "Text", Properties: map[string]any{"label": "First"}},
			{ID: "second", Type: "Panel", Properties: map[string]any{"label": "Second"}, Children: []schema.Component{
				{ID: "count", Type: "Text", Bindings: []schema.Binding{{Source: "count", Target: "text"}}},
				{ID: "inc", Type: "Button", Events: []schema.Event{{Name: "onClick", Action: "increment", Params: map[string]any{"by": 2.0}}}},
			}},
		},
	}
	session, err := New().Open(context.Background(), Request{
		Page:    &page,
		Data:    map[string]any{"count": 1},
		Actions: []runtime.Action{incrementAction()},
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer session.Close()

	if got := layout.ActiveTab(session.Tree()); got != "first" {
		t.Fatalf("initial tab = %q", got)
	}
	if !session.SelectTab("second") {
		t.Fatalf("expected tab switch")
	}
	session.Fire("inc", "onClick", nil)
	session.Settle()

	tree := session.Tree()
	if got := layout.ActiveTab(tree); got != "second" {
		t.Fatalf("active tab after rebuild = %q", got)
	}
	if got := node.Find(tree, "count").Prop("text"); got != 3 {
		t.Fatalf("count text = %v, want 3", got)
	}
}

func TestSessionSelectTabDuringMount(t *testing.T) {
	t.Parallel()

	page := schema.Page{
		Layout: schema.Layout{Type: schema.LayoutTabs},
		Components: []schema.Component{
			{ID: "first", Type: "Text", Properties: map[string]any{"label": "First", "text": "one"}},
			{ID: "second", Type: "Text", Properties: map[string]any{"label": "Second", "text": "two"}},
		},
	}
	session, err := New().Open(context.Background(), Request{Page: &page})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer session.Close()

	before := session.Tree()
	if !session.SelectTab("second") {
		t.Fatalf("expected tab switch")
	}
	if got := layout.ActiveTab(before); got != "first" {
		t.Fatalf("tree handed out earlier changed its active tab to %q", got)
	}
	if got := layout.ActiveTab(session.Tree()); got != "second" {
		t.Fatalf("active tab = %q", got)
	}
	if session.SelectTab("missing") || layout.ActiveTab(session.Tree()) != "second" {
		t.Fatalf("unknown tab should leave the selection alone")
	}

	var wg sync.WaitGroup
	for w := range 4 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := range 50 {
				session.SelectTab([]string{"first", "second"}[(w+i)%2])
			}
		}()
		go func() {
			defer wg.Done()
			for range 50 {
				if _, err := session.Mount(context.Background()); err != nil {
					t.Errorf("mount: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	active := 0
	for _, tab := range layout.Tabs(session.Tree()) {
		if tab.Active {
			active++
		}
	}
	if active != 1 {
		t.Fatalf("expected exactly one active tab, got %d", active)
	}
}

func TestSessionFailedActionKeepsTree(t *testing.T) {
	t.Parallel()

	failing := runtime.Action{
		ID: "increment",
		Handler: func(context.Context, map[string]any, map[string]any) (map[string]any, error) {
			return nil, errors.New("nope")
		},
	}
	session, err := New().Open(context.Background(), Request{
		Source:  inline(counterPage),
		Data:    map[string]any{"count": 5},
		Actions: []runtime.Action{failing},
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer session.Close()

	before := session.Tree()
	session.Fire("inc", "onClick", nil)
	session.Settle()
	if session.Tree() != before {
		t.Fatalf("tree rebuilt after a failed action")
	}
	if session.Runtime().Version() != 0 {
		t.Fatalf("data committed after a failed action")
	}
}

func TestSessionReplaceAndClose(t *testing.T) {
	t.Parallel()

	session, err := New().Open(context.Background(), Request{
		Source:  inline(counterPage),
		Data:    map[string]any{"count": 0},
		Actions: []runtime.Action{incrementAction()},
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	replacement := schema.Page{
		Layout:     schema.Layout{Type: schema.LayoutSingle},
		Components: []schema.Component{{ID: "only", Type: "Badge", Properties: map[string]any{"text": "new"}}},
	}
	if err := session.Replace(replacement); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if node.Find(session.Tree(), "only") == nil || node.Find(session.Tree(), "inc") != nil {
		t.Fatalf("tree not rebuilt from replacement page")
	}
	if err := session.Replace(schema.Page{}); !errors.Is(err, schema.ErrInvalidPage) {
		t.Fatalf("expected ErrInvalidPage, got %v", err)
	}

	session.Close()
	frozen := session.Tree()
	if err := session.Runtime().Execute(context.Background(), "increment", map[string]any{"by": 1.0}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if session.Tree() != frozen {
		t.Fatalf("tree rebuilt after close")
	}
}

func TestSessionUnknownComponentOrEvent(t *testing.T) {
	t.Parallel()

	session, err := New().Open(context.Background(), Request{Source: inline(counterPage)})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer session.Close()

	if session.Fire("missing", "onClick", nil) {
		t.Fatalf("expected false for unknown component")
	}
	if session.Fire("inc", "onHover", nil) {
		t.Fatalf("expected false for unwired event")
	}
}
