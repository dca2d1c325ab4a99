package loader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/goliatone/go-pagegen/pkg/schema"
)

const pageJSON = `{"layout":{"type":"single"},"components":[{"id":"a","type":"Text"}]}`

func TestLoaderFileAndFS(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "page.json")
	if err := os.WriteFile(path, []byte(pageJSON), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	l := New(schema.NewLoaderOptions(schema.WithFileSystem(fstest.MapFS{
		"pages/home.json": &fstest.MapFile{Data: []byte(pageJSON)},
	})))

	doc, err := l.Load(context.Background(), schema.SourceFromFile(path))
	if err != nil {
		t.Fatalf("load file: %v", err)
	}
	if string(doc.Raw()) != pageJSON {
		t.Fatalf("unexpected file payload %q", doc.Raw())
	}

	doc, err = l.Load(context.Background(), schema.SourceFromFS("pages/home.json"))
	if err != nil {
		t.Fatalf("load fs: %v", err)
	}
	if doc.Location() != "pages/home.json" {
		t.Fatalf("location = %q", doc.Location())
	}
}

func TestLoaderInline(t *testing.T) {
	t.Parallel()

	l := New(schema.LoaderOptions{})
	doc, err := l.Load(context.Background(), schema.InlineSource{Name: "stdin", Data: []byte(pageJSON)})
	if err != nil {
		t.Fatalf("load inline: %v", err)
	}
	page, err := schema.ParseDocument(doc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(page.Components) != 1 {
		t.Fatalf("expected one component, got %d", len(page.Components))
	}
}

func TestLoaderHTTP(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(pageJSON))
	}))
	defer server.Close()

	disabled := New(schema.LoaderOptions{})
	if _, err := disabled.Load(context.Background(), schema.SourceFromURL(server.URL+"/page")); err == nil {
		t.Fatalf("expected http to be disabled by default")
	}

	l := New(schema.NewLoaderOptions(schema.WithHTTPClient(server.Client())))
	doc, err := l.Load(context.Background(), schema.SourceFromURL(server.URL+"/page"))
	if err != nil {
		t.Fatalf("load url: %v", err)
	}
	if string(doc.Raw()) != pageJSON {
		t.Fatalf("unexpected url payload %q", doc.Raw())
	}

	_, err = l.Load(context.Background(), schema.SourceFromURL(server.URL+"/missing"))
	if err == nil || !strings.Contains(err.Error(), "unexpected status") {
		t.Fatalf("expected status error, got %v", err)
	}
}
