package html

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-pagegen/pkg/backend"
	"github.com/goliatone/go-pagegen/pkg/layout"
	"github.com/goliatone/go-pagegen/pkg/node"
	"github.com/goliatone/go-pagegen/pkg/registry"
	"github.com/goliatone/go-pagegen/pkg/render"
	"github.com/goliatone/go-pagegen/pkg/schema"
)

const dashboardPage = `{
  "id": "dash",
  "title": "Dashboard",
  "layout": {"type": "split", "sizes": [25, 75]},
  "components": [
    {"id": "nav", "type": "Panel", "properties": {"label": "Menu"}, "children": [
      {"id": "items", "type": "List", "properties": {"items": ["Home", {"label": "Reports"}]}}
    ]},
    {"id": "main", "type": "Panel", "children": [
      {"id": "greeting", "type": "Heading", "properties": {"level": 1, "text": "{{user.name}}"}},
      {"id": "save", "type": "Button", "properties": {"label": "Save"},
       "events": [{"eventName": "onClick", "actionId": "save"}]},
      {"id": "note", "type": "Text", "properties": {"html": "<b>bold</b><script>alert(1)</script>"}}
    ]}
  ]
}`

func mountPage(t *testing.T, source string, data map[string]any, options backend.MountOptions, backendOptions ...Option) string {
	t.Helper()

	page, err := schema.Parse([]byte(source))
	if err != nil {
		t.Fatalf("parse page: %v", err)
	}
	reg, err := NewComponentRegistry(nil)
	if err != nil {
		t.Fatalf("component registry: %v", err)
	}
	collector := &render.Collector{}
	composer := layout.New(render.New(render.WithRegistry(reg), render.WithReporter(collector)))
	root := composer.Compose(context.Background(), page, render.Context{Data: data}, layout.State{})
	if got := collector.Diagnostics(); len(got) != 0 {
		t.Fatalf("unexpected diagnostics: %v", got)
	}

	b, err := New(backendOptions...)
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	out, err := b.Mount(context.Background(), root, options)
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	return string(out)
}

func assertContains(t *testing.T, out string, fragments ...string) {
	t.Helper()
	for _, fragment := range fragments {
		if !strings.Contains(out, fragment) {
			t.Fatalf("expected output to contain %q\n%s", fragment, out)
		}
	}
}

func TestMountSplitPage(t *testing.T) {
	t.Parallel()

	out := mountPage(t, dashboardPage, map[string]any{"user": map[string]any{"name": "Ada"}}, backend.MountOptions{})

	assertContains(t, out,
		"<title>Dashboard</title>",
		`<div class="pg-split" data-layout="split" data-direction="horizontal" id="dash">`,
		`<div class="pg-pane" style="flex: 0 0 25%" data-pane="nav">`,
		`<div class="pg-divider" role="separator" aria-orientation="vertical"></div>`,
		`<header class="pg-panel__label">Menu</header>`,
		`<li>Home</li><li>Reports</li>`,
		`<h1 class="pg-heading" id="greeting">Ada</h1>`,
		`id="save" data-pagegen-events="onClick">Save</button>`,
		`<p class="pg-text" id="note"><b>bold</b></p>`,
		"<style>",
	)
	if strings.Contains(out, "<script>") {
		t.Fatalf("expected script to be stripped:\n%s", out)
	}
	if strings.Index(out, `data-pane="nav"`) > strings.Index(out, `data-pane="main"`) {
		t.Fatalf("panes out of order:\n%s", out)
	}
}

func TestMountTabsKeepsInactivePanelsHidden(t *testing.T) {
	t.Parallel()

	source := `{
	  "layout": {"type": "tabs"},
	  "components": [
	    {"id": "one", "type": "Panel", "properties": {"label": "One"}},
	    {"id": "two", "type": "Panel", "properties": {"label": "Two"}}
	  ]
	}`
	out := mountPage(t, source, nil, backend.MountOptions{}, WithFragment())

	assertContains(t, out,
		`aria-selected="true" data-pagegen-tab="one">One</button>`,
		`aria-selected="false" data-pagegen-tab="two">Two</button>`,
		`id="panel-one" aria-labelledby="tab-one">`,
		`id="panel-two" aria-labelledby="tab-two" hidden>`,
	)
	if strings.Contains(out, "<html") {
		t.Fatalf("fragment mode should omit the page shell:\n%s", out)
	}
}

func TestMountGridPlacement(t *testing.T) {
	t.Parallel()

	source := `{
	  "layout": {"type": "grid", "gap": 8},
	  "components": [
	    {"id": "a", "type": "Badge", "properties": {"text": "A", "tone": "success"}},
	    {"id": "b", "type": "Badge", "properties": {"text": "B"}},
	    {"id": "c", "type": "Badge", "properties": {"text": "C"}}
	  ]
	}`
	out := mountPage(t, source, nil, backend.MountOptions{}, WithFragment())

	assertContains(t, out,
		`grid-template-columns: repeat(2, minmax(0, 1fr)); gap: 8px`,
		`<div class="pg-cell" data-row="1" data-column="0"><span class="pg-badge pg-badge--neutral" id="c">C</span></div>`,
		`<span class="pg-badge pg-badge--success" id="a">A</span>`,
	)
}

func TestMountAppliesTheme(t *testing.T) {
	t.Parallel()

	cfg := &theme.RendererConfig{
		Theme:   "acme",
		Variant: "dark",
		CSSVars: map[string]string{"--text": "#fff", "--brand": "#f00"},
		AssetURL: func(key string) string {
			if key == StylesheetAsset {
				return "/assets/acme.css"
			}
			return ""
		},
	}
	out := mountPage(t, `{"layout": {"type": "single"}, "components": []}`, nil, backend.MountOptions{Title: "Themed", Theme: cfg})

	assertContains(t, out,
		"<title>Themed</title>",
		`<link rel="stylesheet" href="/assets/acme.css">`,
		`data-theme="acme"`,
		`data-theme-variant="dark"`,
		`style="--brand: #f00; --text: #fff"`,
		`<div class="pg-stack" data-layout="single"></div>`,
	)
	if strings.Contains(out, "<style>") {
		t.Fatalf("expected linked stylesheet instead of inline css:\n%s", out)
	}
}

func TestMountIsolatesFailingComponent(t *testing.T) {
	t.Parallel()

	boom := registry.ComponentFunc(func(io.Writer, map[string]any, []string) error {
		return errors.New("boom")
	})
	ok := registry.ComponentFunc(func(w io.Writer, props map[string]any, _ []string) error {
		_, err := io.WriteString(w, "<i>"+props["id"].(string)+"</i>")
		return err
	})
	root := &node.Node{Kind: node.KindStack, Children: []*node.Node{
		{ID: "bad", Kind: node.KindComponent, Type: "Broken", Component: boom},
		{ID: "good", Kind: node.KindComponent, Type: "Fine", Component: ok},
	}}

	b, err := New(WithFragment())
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	out, err := b.Mount(context.Background(), root, backend.MountOptions{})
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	assertContains(t, string(out), "<!-- pagegen: Broken failed -->", "<i>good</i>")
}

func TestMountHonoursCancellation(t *testing.T) {
	t.Parallel()

	b, err := New()
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := b.Mount(ctx, &node.Node{Kind: node.KindStack}, backend.MountOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRegisterComponentsRejectsDuplicates(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	if err := RegisterComponents(reg, nil); err != nil {
		t.Fatalf("register: %v", err)
	}
	for _, name := range DefaultComponents {
		if !reg.Has(name) {
			t.Fatalf("expected %s to be registered", name)
		}
	}
	if err := RegisterComponents(reg, nil); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
}

func TestSanitizeMarkup(t *testing.T) {
	t.Parallel()

	got := sanitizeMarkup(`<em onclick="x()">hi</em> <a href="javascript:alert(1)">x</a><img src=x>`)
	if strings.Contains(got, "onclick") || strings.Contains(got, "javascript") || strings.Contains(got, "<img") {
		t.Fatalf("unsafe markup survived: %q", got)
	}
	if !strings.Contains(got, "<em>hi</em>") {
		t.Fatalf("expected inline formatting to survive: %q", got)
	}
}
