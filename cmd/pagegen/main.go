package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/goliatone/go-pagegen/internal/config"
	"github.com/goliatone/go-pagegen/internal/loader"
	"github.com/goliatone/go-pagegen/internal/telemetry"
	"github.com/goliatone/go-pagegen/pkg/orchestrator"
	"github.com/goliatone/go-pagegen/pkg/registry"
	"github.com/goliatone/go-pagegen/pkg/renderers/term"
	"github.com/goliatone/go-pagegen/pkg/renderers/tui"
	"github.com/goliatone/go-pagegen/pkg/runtime"
	"github.com/goliatone/go-pagegen/pkg/schema"
)

type options struct {
	configPath  string
	page        string
	data        string
	backend     string
	output      string
	tab         string
	theme       string
	variant     string
	manifest    string
	interactive bool
	watch       bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "config file (default $PAGEGEN_CONFIG or the user config dir)")
	flag.StringVar(&opts.page, "page", "", "page description path or URL (JSON or YAML)")
	flag.StringVar(&opts.data, "data", "", "initial data file (JSON or YAML)")
	flag.StringVar(&opts.backend, "backend", "", "backend to mount with (html, term)")
	flag.StringVar(&opts.output, "output", "", "output file (stdout if empty)")
	flag.StringVar(&opts.tab, "tab", "", "active tab id for tabs layouts")
	flag.StringVar(&opts.theme, "theme", "", "theme name")
	flag.StringVar(&opts.variant, "variant", "", "theme variant")
	flag.StringVar(&opts.manifest, "theme-manifest", "", "go-theme manifest file (JSON or YAML)")
	flag.BoolVar(&opts.interactive, "interactive", false, "drive the page from the terminal")
	flag.BoolVar(&opts.watch, "watch", false, "re-render when the page file changes")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, tui.ErrAborted) {
		log.Fatalf("pagegen: %v", err)
	}
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	applyFlags(&cfg, opts)

	logger := cfg.Logger()
	slog.SetDefault(logger)

	tracing, err := telemetry.Setup(ctx, telemetry.Options{
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		Insecure:    cfg.Telemetry.Insecure,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	if strings.TrimSpace(opts.page) == "" {
		return errors.New("-page is required")
	}
	data, err := loadData(opts.data)
	if err != nil {
		return err
	}

	orchOptions := []orchestrator.Option{
		orchestrator.WithLogger(logger),
		orchestrator.WithTracer(tracing.Tracer()),
		orchestrator.WithMaxDepth(cfg.Render.MaxDepth),
		orchestrator.WithDefaultBackend(cfg.Backend),
		orchestrator.WithLoader(loader.New(loaderOptions(cfg))),
		orchestrator.WithBackend(term.New(term.WithWidth(cfg.Render.TermWidth), term.WithLogger(logger)), mustTermComponents()),
	}
	if cfg.Render.SerializedActions {
		orchOptions = append(orchOptions, orchestrator.WithRuntimeOptions(runtime.WithSerializedActions()))
	}
	if cfg.Theme.Manifest != "" {
		selector, err := loadManifestSelector(cfg.Theme.Manifest)
		if err != nil {
			return err
		}
		orchOptions = append(orchOptions,
			orchestrator.WithThemeSelector(selector),
			orchestrator.WithDefaultTheme(cfg.Theme.Name, cfg.Theme.Variant),
		)
	}
	orch := orchestrator.New(orchOptions...)

	req := orchestrator.Request{
		Source:    parseSource(opts.page),
		Data:      data,
		Actions:   runtime.StockActions(),
		ActiveTab: opts.tab,
	}

	if opts.interactive {
		req.Backend = "term"
		return interactive(ctx, orch, req, opts, cfg, logger)
	}

	if err := generate(ctx, orch, req, opts.output); err != nil {
		return err
	}
	if !opts.watch {
		return nil
	}
	return schema.Watch(ctx, opts.page, cfg.Watch.Debounce, func(page schema.Page, err error) {
		if err != nil {
			logger.Warn("reload failed", "page", opts.page, "error", err)
			return
		}
		reloaded := req
		reloaded.Page = &page
		if err := generate(ctx, orch, reloaded, opts.output); err != nil {
			logger.Warn("render failed", "page", opts.page, "error", err)
		}
	})
}

func generate(ctx context.Context, orch *orchestrator.Orchestrator, req orchestrator.Request, output string) error {
	out, err := orch.Generate(ctx, req)
	if err != nil {
		return err
	}
	if output == "" {
		_, err := os.Stdout.Write(out)
		return err
	}
	if err := os.WriteFile(output, out, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Page written to %s\n", output)
	return nil
}

func interactive(ctx context.Context, orch *orchestrator.Orchestrator, req orchestrator.Request, opts options, cfg config.Config, logger *slog.Logger) error {
	session, err := orch.Open(ctx, req)
	if err != nil {
		return err
	}
	defer session.Close()

	if opts.watch {
		go func() {
			err := schema.Watch(ctx, opts.page, cfg.Watch.Debounce, func(page schema.Page, err error) {
				if err == nil {
					err = session.Replace(page)
				}
				if err != nil {
					logger.Warn("reload failed", "page", opts.page, "error", err)
				}
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("watch stopped", "error", err)
			}
		}()
	}

	return tui.New(tui.WithLogger(logger)).Run(ctx, session)
}

func applyFlags(cfg *config.Config, opts options) {
	if opts.backend != "" {
		cfg.Backend = opts.backend
	}
	if opts.theme != "" {
		cfg.Theme.Name = opts.theme
	}
	if opts.variant != "" {
		cfg.Theme.Variant = opts.variant
	}
	if opts.manifest != "" {
		cfg.Theme.Manifest = opts.manifest
	}
	if strings.HasPrefix(opts.page, "http://") || strings.HasPrefix(opts.page, "https://") {
		cfg.Loader.AllowHTTP = true
	}
}

func loaderOptions(cfg config.Config) schema.LoaderOptions {
	var options []schema.LoaderOption
	if cfg.Loader.AllowHTTP {
		options = append(options, schema.WithHTTPFallback(cfg.Loader.Timeout))
	}
	return schema.NewLoaderOptions(options...)
}

func loadData(path string) (map[string]any, error) {
	if strings.TrimSpace(path) == "" {
		return map[string]any{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read data: %w", err)
	}
	data, err := schema.DecodeData(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return data, nil
}

func mustTermComponents() *registry.Registry {
	reg, err := term.NewComponentRegistry(term.DefaultStyles(""))
	if err != nil {
		log.Fatalf("pagegen: term components: %v", err)
	}
	return reg
}

func parseSource(raw string) schema.Source {
	path := strings.TrimSpace(raw)
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return schema.SourceFromURL(path)
	}
	return schema.SourceFromFile(path)
}
