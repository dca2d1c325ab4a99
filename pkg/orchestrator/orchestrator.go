package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	theme "github.com/goliatone/go-theme"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/goliatone/go-pagegen/internal/loader"
	"github.com/goliatone/go-pagegen/pkg/backend"
	"github.com/goliatone/go-pagegen/pkg/expr"
	"github.com/goliatone/go-pagegen/pkg/layout"
	"github.com/goliatone/go-pagegen/pkg/registry"
	"github.com/goliatone/go-pagegen/pkg/render"
	"github.com/goliatone/go-pagegen/pkg/renderers/html"
	"github.com/goliatone/go-pagegen/pkg/renderers/term"
	"github.com/goliatone/go-pagegen/pkg/runtime"
	"github.com/goliatone/go-pagegen/pkg/schema"
)

const (
	defaultBackendName = "html"
	tracerName         = "github.com/goliatone/go-pagegen/pkg/orchestrator"
)

// ErrBackendNotFound is returned when a request names a backend that is not
// registered.
var ErrBackendNotFound = errors.New("orchestrator: backend not found")

// Option customises the orchestrator configuration.
type Option func(*Orchestrator)

// WithLoader injects a custom page loader.
func WithLoader(l schema.Loader) Option {
	return func(o *Orchestrator) {
		o.loader = l
	}
}

// WithRegistry injects one component registry used for every backend,
// replacing the per-backend defaults.
func WithRegistry(reg *registry.Registry) Option {
	return func(o *Orchestrator) {
		o.components = reg
	}
}

// WithEvaluator injects the expression evaluator.
func WithEvaluator(eval *expr.Evaluator) Option {
	return func(o *Orchestrator) {
		o.eval = eval
	}
}

// WithBackend registers a backend together with the components it mounts.
// A nil components registry leaves the backend with an empty one unless
// WithRegistry is also set.
func WithBackend(b backend.Backend, components *registry.Registry) Option {
	return func(o *Orchestrator) {
		if b == nil {
			return
		}
		o.extraBackends = append(o.extraBackends, backendEntry{backend: b, components: components})
	}
}

// WithDefaultBackend overrides the backend used when a request omits one.
func WithDefaultBackend(name string) Option {
	return func(o *Orchestrator) {
		o.defaultBackend = name
	}
}

// WithLogger sets the logger shared by every stage.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithReporter routes render diagnostics to reporter.
func WithReporter(reporter render.Reporter) Option {
	return func(o *Orchestrator) {
		o.reporter = reporter
	}
}

// WithThemeSelector passes a go-theme selector through to the orchestrator so
// backends receive a resolved theme configuration.
func WithThemeSelector(selector theme.ThemeSelector) Option {
	return func(o *Orchestrator) {
		o.themeSelector = selector
	}
}

// WithDefaultTheme sets the theme and variant used when a request omits them.
func WithDefaultTheme(name, variant string) Option {
	return func(o *Orchestrator) {
		o.defaultTheme = name
		o.defaultVariant = variant
	}
}

// WithMaxDepth bounds component nesting per render pass.
func WithMaxDepth(depth int) Option {
	return func(o *Orchestrator) {
		o.maxDepth = depth
	}
}

// WithTracer overrides the tracer obtained from the global provider. It is
// also handed to session runtimes.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *Orchestrator) {
		o.tracer = tracer
	}
}

// WithRuntimeOptions forwards options to every session runtime.
func WithRuntimeOptions(options ...runtime.Option) Option {
	return func(o *Orchestrator) {
		o.runtimeOptions = append(o.runtimeOptions, options...)
	}
}

type backendEntry struct {
	backend    backend.Backend
	components *registry.Registry
}

// Orchestrator coordinates the pipeline from page description to mounted
// output. It applies sensible defaults (html and term backends with their
// stock components) while remaining open to dependency injection.
type Orchestrator struct {
	loader         schema.Loader
	components     *registry.Registry
	eval           *expr.Evaluator
	backends       *backend.Registry
	extraBackends  []backendEntry
	perBackend     map[string]*registry.Registry
	defaultBackend string
	logger         *slog.Logger
	reporter       render.Reporter
	themeSelector  theme.ThemeSelector
	defaultTheme   string
	defaultVariant string
	maxDepth       int
	tracer         trace.Tracer
	runtimeOptions []runtime.Option
	initialiseErr  error

	mu        sync.Mutex
	composers map[string]*layout.Composer
}

// New constructs an Orchestrator applying any provided options. Missing
// dependencies are initialised with the built-in implementations so callers
// can start with a single constructor call.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{
		defaultBackend: defaultBackendName,
		perBackend:     make(map[string]*registry.Registry),
		composers:      make(map[string]*layout.Composer),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(o)
	}
	o.applyDefaults()
	return o
}

// Request describes the inputs required to render a page.
type Request struct {
	// Page is used as is when set.
	Page *schema.Page
	// Document bypasses the loader when the raw payload is already at hand.
	Document *schema.Document
	// Source identifies where the page description lives.
	Source schema.Source

	// Data is the initial application data.
	Data map[string]any
	// Actions are registered on the session runtime. Generate ignores them.
	Actions []runtime.Action

	// Backend names the backend to use, falling back to the default.
	Backend string
	// ActiveTab selects the visible tab of a tabs layout.
	ActiveTab string
	// Title overrides the page title.
	Title string

	ThemeName    string
	ThemeVariant string
}

// Generate executes the load → compose → mount sequence once and returns
// the mounted bytes. Events are wired to nothing.
func (o *Orchestrator) Generate(ctx context.Context, req Request) (out []byte, err error) {
	if ctx == nil {
		return nil, errors.New("orchestrator: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := o.initialiseErr; err != nil {
		return nil, err
	}

	ctx, span := o.tracer.Start(ctx, "orchestrator.generate")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	page, err := o.resolvePage(ctx, req)
	if err != nil {
		return nil, err
	}
	b, err := o.backendFor(req.Backend)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("pagegen.page.id", page.ID),
		attribute.String("pagegen.backend", b.Name()),
	)

	mount, err := o.mountOptions(page, req)
	if err != nil {
		return nil, err
	}

	root := o.composerFor(b.Name()).Compose(ctx, page, render.Context{Data: req.Data}, layout.State{ActiveTab: req.ActiveTab})
	output, err := b.Mount(ctx, root, mount)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: mount %s: %w", b.Name(), err)
	}
	return output, nil
}

// Backends lists the registered backend names.
func (o *Orchestrator) Backends() []string {
	return o.backends.List()
}

func (o *Orchestrator) resolvePage(ctx context.Context, req Request) (schema.Page, error) {
	if req.Page != nil {
		if err := schema.ValidatePage(*req.Page); err != nil {
			return schema.Page{}, fmt.Errorf("orchestrator: %w", err)
		}
		return *req.Page, nil
	}

	var doc schema.Document
	switch {
	case req.Document != nil:
		doc = *req.Document
	case req.Source != nil:
		loaded, err := o.loader.Load(ctx, req.Source)
		if err != nil {
			return schema.Page{}, fmt.Errorf("orchestrator: load page: %w", err)
		}
		doc = loaded
	default:
		return schema.Page{}, errors.New("orchestrator: page, document or source is required")
	}

	page, err := schema.ParseDocument(doc)
	if err != nil {
		return schema.Page{}, fmt.Errorf("orchestrator: parse page: %w", err)
	}
	return page, nil
}

func (o *Orchestrator) backendFor(name string) (backend.Backend, error) {
	target := name
	if target == "" {
		target = o.defaultBackend
	}
	b, err := o.backends.Get(target)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrBackendNotFound, target)
	}
	return b, nil
}

func (o *Orchestrator) mountOptions(page schema.Page, req Request) (backend.MountOptions, error) {
	title := req.Title
	if title == "" {
		title = page.Title
	}
	cfg, err := o.themeConfig(req.ThemeName, req.ThemeVariant)
	if err != nil {
		return backend.MountOptions{}, err
	}
	return backend.MountOptions{Title: title, Theme: cfg}, nil
}

// composerFor returns the composer whose registry holds the components of
// the named backend.
func (o *Orchestrator) composerFor(name string) *layout.Composer {
	o.mu.Lock()
	defer o.mu.Unlock()

	if composer, ok := o.composers[name]; ok {
		return composer
	}
	components := o.components
	if components == nil {
		components = o.perBackend[name]
	}
	options := []render.Option{
		render.WithRegistry(components),
		render.WithEvaluator(o.eval),
		render.WithReporter(o.reporter),
		render.WithLogger(o.logger),
		render.WithMaxDepth(o.maxDepth),
	}
	composer := layout.New(render.New(options...))
	o.composers[name] = composer
	return composer
}

func (o *Orchestrator) applyDefaults() {
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.loader == nil {
		o.loader = loader.New(schema.NewLoaderOptions())
	}
	if o.eval == nil {
		o.eval = expr.New(expr.WithLogger(o.logger))
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(tracerName)
	}
	o.backends = backend.NewRegistry()
	for _, entry := range o.extraBackends {
		if err := o.backends.Register(entry.backend); err != nil {
			o.initialiseErr = fmt.Errorf("orchestrator: register backend: %w", err)
			return
		}
		o.perBackend[entry.backend.Name()] = entry.components
	}
	o.registerDefaultBackends()
	if o.defaultBackend == "" {
		o.defaultBackend = defaultBackendName
	}
}

// registerDefaultBackends adds the html and term backends unless a backend
// of the same name was supplied.
func (o *Orchestrator) registerDefaultBackends() {
	if !o.backends.Has("html") {
		htmlBackend, err := html.New(html.WithLogger(o.logger))
		if err != nil {
			o.initialiseErr = fmt.Errorf("orchestrator: default backend: %w", err)
			return
		}
		components, err := html.NewComponentRegistry(nil)
		if err != nil {
			o.initialiseErr = fmt.Errorf("orchestrator: html components: %w", err)
			return
		}
		o.backends.MustRegister(htmlBackend)
		o.perBackend[htmlBackend.Name()] = components
	}
	if !o.backends.Has("term") {
		components, err := term.NewComponentRegistry(term.DefaultStyles(""))
		if err != nil {
			o.initialiseErr = fmt.Errorf("orchestrator: term components: %w", err)
			return
		}
		termBackend := term.New(term.WithLogger(o.logger))
		o.backends.MustRegister(termBackend)
		o.perBackend[termBackend.Name()] = components
	}
}
