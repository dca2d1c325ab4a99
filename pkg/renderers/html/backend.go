// Package html mounts render trees as HTML documents. Components render
// through pongo2 templates; the structural layout nodes are written by the
// backend itself.
package html

import (
	"context"
	"fmt"
	stdhtml "html"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-pagegen/pkg/backend"
	"github.com/goliatone/go-pagegen/pkg/node"
	rendertemplate "github.com/goliatone/go-pagegen/pkg/render/template"
)

// StylesheetAsset is the theme asset key consulted for an external
// stylesheet.
const StylesheetAsset = "pagegen.stylesheet"

const pageTemplate = "templates/page.tmpl"

type Option func(*config)

type config struct {
	templates  rendertemplate.TemplateRenderer
	fragment   bool
	stylesheet string
	logger     *slog.Logger
}

// WithTemplateRenderer injects the engine used for the page shell.
func WithTemplateRenderer(renderer rendertemplate.TemplateRenderer) Option {
	return func(cfg *config) {
		if renderer != nil {
			cfg.templates = renderer
		}
	}
}

// WithFragment emits only the body markup, without the page shell.
func WithFragment() Option {
	return func(cfg *config) {
		cfg.fragment = true
	}
}

// WithStylesheet links href instead of inlining the embedded stylesheet.
func WithStylesheet(href string) Option {
	return func(cfg *config) {
		cfg.stylesheet = strings.TrimSpace(href)
	}
}

// WithLogger sets the logger used for component failures.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// Backend writes HTML.
type Backend struct {
	templates  rendertemplate.TemplateRenderer
	fragment   bool
	stylesheet string
	logger     *slog.Logger
}

var _ backend.Backend = (*Backend)(nil)

// New constructs the HTML backend applying any provided options.
func New(options ...Option) (*Backend, error) {
	cfg := config{}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.templates == nil {
		engine, err := NewEngine()
		if err != nil {
			return nil, fmt.Errorf("html backend: configure template renderer: %w", err)
		}
		cfg.templates = engine
	}
	return &Backend{
		templates:  cfg.templates,
		fragment:   cfg.fragment,
		stylesheet: cfg.stylesheet,
		logger:     cfg.logger,
	}, nil
}

func (b *Backend) Name() string {
	return "html"
}

func (b *Backend) ContentType() string {
	return "text/html; charset=utf-8"
}

// Mount renders root. A nil root produces an empty body.
func (b *Backend) Mount(ctx context.Context, root *node.Node, options backend.MountOptions) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var body strings.Builder
	if err := b.write(ctx, &body, root); err != nil {
		return nil, err
	}
	if b.fragment {
		return []byte(body.String()), nil
	}

	title := options.Title
	if title == "" && root != nil {
		title = root.StringProp("title")
	}
	view := map[string]any{
		"title": title,
		"body":  body.String(),
	}
	b.applyTheme(view, options.Theme)

	result, err := b.templates.RenderTemplate(pageTemplate, view)
	if err != nil {
		return nil, fmt.Errorf("html backend: render page: %w", err)
	}
	return []byte(result), nil
}

func (b *Backend) applyTheme(view map[string]any, cfg *theme.RendererConfig) {
	stylesheet := b.stylesheet
	if cfg != nil {
		view["theme_name"] = cfg.Theme
		view["theme_variant"] = cfg.Variant
		view["theme_style"] = cssVars(cfg.CSSVars)
		if cfg.AssetURL != nil {
			if href := cfg.AssetURL(StylesheetAsset); href != "" {
				stylesheet = href
			}
		}
	}
	if stylesheet != "" {
		view["stylesheet"] = stylesheet
		return
	}
	view["css"] = defaultStylesheet()
}

func cssVars(vars map[string]string) string {
	if len(vars) == 0 {
		return ""
	}
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+": "+vars[key])
	}
	return strings.Join(parts, "; ")
}

func (b *Backend) write(ctx context.Context, out *strings.Builder, n *node.Node) error {
	if n == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	switch n.Kind {
	case node.KindComponent:
		return b.writeComponent(ctx, out, n)
	case node.KindStack:
		fmt.Fprintf(out, `<div class="pg-stack" data-layout="single"%s>`, idAttr(n.ID))
		if err := b.writeChildren(ctx, out, n); err != nil {
			return err
		}
		out.WriteString("</div>")
	case node.KindSplit:
		direction := n.StringProp("direction")
		fmt.Fprintf(out, `<div class="pg-split" data-layout="split" data-direction="%s"%s>`, escape(direction), idAttr(n.ID))
		if err := b.writeChildren(ctx, out, n); err != nil {
			return err
		}
		out.WriteString("</div>")
	case node.KindPane:
		fmt.Fprintf(out, `<div class="pg-pane" style="flex: 0 0 %s%%"%s>`, percent(n.Prop("size")), dataAttr("pane", n.ID))
		if err := b.writeChildren(ctx, out, n); err != nil {
			return err
		}
		out.WriteString("</div>")
	case node.KindDivider:
		orientation := "vertical"
		if n.StringProp("direction") == "vertical" {
			orientation = "horizontal"
		}
		fmt.Fprintf(out, `<div class="pg-divider" role="separator" aria-orientation="%s"></div>`, orientation)
	case node.KindTabs:
		return b.writeTabs(ctx, out, n)
	case node.KindGrid:
		fmt.Fprintf(out,
			`<div class="pg-grid" data-layout="grid" style="grid-template-columns: repeat(%d, minmax(0, 1fr)); gap: %dpx"%s>`,
			intProp(n, "columns"), intProp(n, "gap"), idAttr(n.ID))
		if err := b.writeChildren(ctx, out, n); err != nil {
			return err
		}
		out.WriteString("</div>")
	case node.KindCell:
		fmt.Fprintf(out, `<div class="pg-cell" data-row="%d" data-column="%d">`, intProp(n, "row"), intProp(n, "column"))
		if err := b.writeChildren(ctx, out, n); err != nil {
			return err
		}
		out.WriteString("</div>")
	default:
		return b.writeChildren(ctx, out, n)
	}
	return nil
}

func (b *Backend) writeChildren(ctx context.Context, out *strings.Builder, n *node.Node) error {
	for _, child := range n.Children {
		if err := b.write(ctx, out, child); err != nil {
			return err
		}
	}
	return nil
}

func (b *Backend) writeTabs(ctx context.Context, out *strings.Builder, n *node.Node) error {
	fmt.Fprintf(out, `<div class="pg-tabs" data-layout="tabs"%s><div class="pg-tabs__list" role="tablist">`, idAttr(n.ID))
	for _, tab := range n.Children {
		if tab.Kind != node.KindTab {
			continue
		}
		id := escape(tab.ID)
		fmt.Fprintf(out,
			`<button type="button" class="pg-tabs__tab" role="tab" id="tab-%s" aria-controls="panel-%s" aria-selected="%t" data-pagegen-tab="%s">%s</button>`,
			id, id, tab.BoolProp("active"), id, escape(tab.StringProp("label")))
	}
	out.WriteString("</div>")
	for _, tab := range n.Children {
		if tab.Kind != node.KindTab {
			continue
		}
		hidden := ""
		if tab.Hidden() {
			hidden = " hidden"
		}
		id := escape(tab.ID)
		fmt.Fprintf(out, `<section class="pg-tabs__panel" role="tabpanel" id="panel-%s" aria-labelledby="tab-%s"%s>`, id, id, hidden)
		if err := b.writeChildren(ctx, out, tab); err != nil {
			return err
		}
		out.WriteString("</section>")
	}
	out.WriteString("</div>")
	return nil
}

// writeComponent renders children first and hands their markup to the
// component. A failing component is replaced by a comment so its siblings
// still render.
func (b *Backend) writeComponent(ctx context.Context, out *strings.Builder, n *node.Node) error {
	children := make([]string, 0, len(n.Children))
	for _, child := range n.Children {
		var buf strings.Builder
		if err := b.write(ctx, &buf, child); err != nil {
			return err
		}
		children = append(children, buf.String())
	}

	if n.Component == nil {
		fmt.Fprintf(out, "<!-- pagegen: %s has no implementation -->", escapeComment(n.Type))
		return nil
	}

	props := make(map[string]any, len(n.Props)+2)
	for key, value := range n.Props {
		props[key] = value
	}
	if _, ok := props[PropID]; !ok && n.ID != "" {
		props[PropID] = n.ID
	}
	if events := n.Events(); len(events) > 0 {
		props[PropEvents] = events
	}

	var buf strings.Builder
	if err := n.Component.Render(&buf, props, children); err != nil {
		b.logger.Warn("html backend: component failed", "type", n.Type, "id", n.ID, "error", err)
		fmt.Fprintf(out, "<!-- pagegen: %s failed -->", escapeComment(n.Type))
		return nil
	}
	out.WriteString(strings.TrimRight(buf.String(), "\n"))
	return nil
}

func idAttr(id string) string {
	if id == "" {
		return ""
	}
	return ` id="` + escape(id) + `"`
}

func dataAttr(name, value string) string {
	if value == "" {
		return ""
	}
	return ` data-` + name + `="` + escape(value) + `"`
}

func escape(s string) string {
	return stdhtml.EscapeString(s)
}

func escapeComment(s string) string {
	return strings.ReplaceAll(escape(s), "--", "")
}

func intProp(n *node.Node, name string) int {
	switch v := n.Prop(name).(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

func percent(value any) string {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	}
	return strconv.FormatFloat(math.Round(f*100)/100, 'f', -1, 64)
}
