package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PAGEGEN_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	want := Config{
		Backend:   "html",
		Render:    RenderConfig{MaxDepth: 64, TermWidth: 80},
		Loader:    LoaderConfig{Timeout: 10 * time.Second},
		Watch:     WatchConfig{Debounce: 200 * time.Millisecond},
		Log:       LogConfig{Level: "info", Format: "text"},
		Telemetry: TelemetryConfig{ServiceName: "pagegen", Insecure: true},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pagegen.yaml")
	content := []byte(`
backend: term
theme:
  name: acme
  variant: dark
render:
  max_depth: 12
  serialized_actions: true
watch:
  debounce: 1s
log:
  level: debug
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("PAGEGEN_THEME_VARIANT", "light")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend != "term" || cfg.Theme.Name != "acme" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Theme.Variant != "light" {
		t.Fatalf("env override not applied, variant = %q", cfg.Theme.Variant)
	}
	if cfg.Render.MaxDepth != 12 || !cfg.Render.SerializedActions || cfg.Render.TermWidth != 80 {
		t.Fatalf("render section mismatch: %+v", cfg.Render)
	}
	if cfg.Watch.Debounce != time.Second {
		t.Fatalf("debounce = %v", cfg.Watch.Debounce)
	}
	if !cfg.Logger().Enabled(context.Background(), slog.LevelDebug) {
		t.Fatalf("expected debug logging to be enabled")
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing explicit config")
	}
}
