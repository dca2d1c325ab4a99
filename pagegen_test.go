package pagegen

import (
	"context"
	"io/fs"
	"strings"
	"testing"

	"github.com/goliatone/go-pagegen/pkg/node"
	"github.com/goliatone/go-pagegen/pkg/schema"
)

const counterPage = `{
  "title": "Counter",
  "layout": {"type": "single"},
  "components": [
    {"id": "count", "type": "Text", "bindings": [{"sourcePath": "count", "targetProperty": "text"}]},
    {"id": "inc", "type": "Button", "properties": {"label": "Add"},
     "events": [{"eventName": "onClick", "actionId": "increment", "params": {"key": "count", "by": 2}}]}
  ]
}`

func TestGenerateFromInlineSource(t *testing.T) {
	t.Parallel()

	out, err := Generate(context.Background(), schema.InlineSource{Name: "counter", Data: []byte(counterPage)}, map[string]any{"count": 4}, "html")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(string(out), `id="count">4</p>`) {
		t.Fatalf("expected bound count in output:\n%s", out)
	}
}

func TestGenerateFromPageBuiltInCode(t *testing.T) {
	t.Parallel()

	page := schema.Page{
		Layout: schema.Layout{Type: schema.LayoutSingle},
		Components: []schema.Component{
			{ID: "greeting", Type: "Text", Properties: map[string]any{"text": "{{user.name}}"}},
		},
	}
	out, err := GenerateFromPage(context.Background(), page, map[string]any{"user": map[string]any{"name": "Ada"}}, "term")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(string(out), "Ada") {
		t.Fatalf("expected interpolated name in output:\n%s", out)
	}
}

func TestOpenRegistersStockActions(t *testing.T) {
	t.Parallel()

	session, err := Open(context.Background(), Request{
		Source:  schema.InlineSource{Name: "counter", Data: []byte(counterPage)},
		Data:    map[string]any{"count": 1},
		Backend: "term",
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer session.Close()

	if !session.Fire("inc", "onClick", nil) {
		t.Fatalf("expected onClick handler on inc")
	}
	session.Settle()

	if got := session.Runtime().Data()["count"]; got != 3.0 {
		t.Fatalf("count = %v, want 3", got)
	}
	if got := node.Find(session.Tree(), "count").Prop("text"); got != 3.0 {
		t.Fatalf("rebuilt text = %v, want 3", got)
	}
}

func TestOpenKeepsCallerActions(t *testing.T) {
	t.Parallel()

	called := false
	session, err := Open(context.Background(), Request{
		Source: schema.InlineSource{Name: "counter", Data: []byte(counterPage)},
		Data:   map[string]any{"count": 1},
		Actions: []Action{{ID: "increment", Handler: func(_ context.Context, _, data map[string]any) (map[string]any, error) {
			called = true
			return data, nil
		}}},
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer session.Close()

	session.Fire("inc", "onClick", nil)
	session.Settle()
	if !called {
		t.Fatalf("expected caller increment to replace the stock action")
	}
}

func TestEmbeddedFilesystems(t *testing.T) {
	t.Parallel()

	if _, err := fs.ReadFile(EmbeddedTemplates(), "templates/page.tmpl"); err != nil {
		t.Fatalf("expected page template: %v", err)
	}
	data, err := fs.ReadFile(AssetsFS(), "pagegen.css")
	if err != nil {
		t.Fatalf("expected stylesheet: %v", err)
	}
	if !strings.Contains(string(data), ".pg-grid") {
		t.Fatalf("expected grid rules in stylesheet")
	}
}
