package gotemplate

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"testing/fstest"
)

func newEngine(t *testing.T, options ...Option) *Engine {
	t.Helper()
	files := fstest.MapFS{
		"hello.tmpl":      &fstest.MapFile{Data: []byte("Hello {{ name }}!")},
		"use-global.tmpl": &fstest.MapFile{Data: []byte("env={{ settings.env }}")},
	}
	engine, err := New(append([]Option{WithFS(files)}, options...)...)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func TestRenderTemplateWritesOutput(t *testing.T) {
	engine := newEngine(t)

	var buf bytes.Buffer
	got, err := engine.RenderTemplate("hello", map[string]any{"name": "Ada"}, &buf)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "Hello Ada!" || buf.String() != got {
		t.Fatalf("unexpected output %q / %q", got, buf.String())
	}

	if _, err := engine.RenderTemplate("missing", nil); err == nil {
		t.Fatalf("expected missing template error")
	}
}

func TestGlobalContext(t *testing.T) {
	engine := newEngine(t, WithGlobalData(map[string]any{"settings": map[string]any{"env": "staging"}}))
	got, err := engine.Render("use-global", nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "env=staging" {
		t.Fatalf("got %q", got)
	}
}

func TestRenderStringAndStructContext(t *testing.T) {
	engine := newEngine(t)
	got, err := engine.Render("{{ Label }}:{{ Count }}", struct {
		Label string
		Count int
		note  string
	}{Label: "items", Count: 3})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "items:3" {
		t.Fatalf("got %q", got)
	}
	if _, err := engine.RenderString("{{ x }}", 42); err == nil {
		t.Fatalf("expected unsupported context error")
	}
}

func TestRegisterFilter(t *testing.T) {
	engine := newEngine(t, WithFilter("pagegen_shout", func(input any, _ any) (any, error) {
		s, _ := input.(string)
		if s == "" {
			return nil, errors.New("nothing to shout")
		}
		return strings.ToUpper(s), nil
	}))

	got, err := engine.RenderString("{{ name|pagegen_shout }}", map[string]any{"name": "ada"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "ADA" {
		t.Fatalf("got %q", got)
	}
	if err := engine.RegisterFilter("pagegen_shout", func(any, any) (any, error) { return nil, nil }); err == nil {
		t.Fatalf("expected duplicate filter error")
	}
	if _, err := engine.RenderString("{{ name|pagegen_shout }}", map[string]any{"name": ""}); err == nil {
		t.Fatalf("expected filter error to surface")
	}
}

func TestNewRequiresSource(t *testing.T) {
	if _, err := New(); err == nil {
		t.Fatalf("expected error without templates")
	}
}
