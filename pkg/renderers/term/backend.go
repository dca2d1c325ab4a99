// Package term mounts render trees as styled terminal text using lipgloss.
package term

import (
	"context"
	"log/slog"
	"strings"

	"github.com/charmbracelet/lipgloss"
	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-pagegen/pkg/backend"
	"github.com/goliatone/go-pagegen/pkg/node"
)

// DefaultWidth is the layout width in cells when none is configured.
const DefaultWidth = 80

// AccentToken is the theme token consulted for the highlight color.
const AccentToken = "brand"

type Option func(*Backend)

// WithWidth sets the total layout width in cells.
func WithWidth(width int) Option {
	return func(b *Backend) {
		if width > 0 {
			b.width = width
		}
	}
}

// WithStyles overrides the default styles.
func WithStyles(styles Styles) Option {
	return func(b *Backend) {
		b.styles = &styles
	}
}

// WithLogger sets the logger used for component failures.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Backend) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// Backend writes terminal text.
type Backend struct {
	width  int
	styles *Styles
	logger *slog.Logger
}

var _ backend.Backend = (*Backend)(nil)

// New constructs the terminal backend.
func New(options ...Option) *Backend {
	b := &Backend{width: DefaultWidth}
	for _, opt := range options {
		if opt != nil {
			opt(b)
		}
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b
}

func (b *Backend) Name() string {
	return "term"
}

func (b *Backend) ContentType() string {
	return "text/plain; charset=utf-8"
}

// Mount renders root. Hidden tabs are left out; a tab bar marks the
// active one.
func (b *Backend) Mount(ctx context.Context, root *node.Node, options backend.MountOptions) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	m := mount{ctx: ctx, styles: b.stylesFor(options.Theme), logger: b.logger}
	body, err := m.render(root, b.width)
	if err != nil {
		return nil, err
	}

	title := options.Title
	if title == "" && root != nil {
		title = root.StringProp("title")
	}
	if title != "" {
		body = lipgloss.JoinVertical(lipgloss.Left, m.styles.Title.Render(title), body)
	}
	return []byte(strings.TrimRight(body, "\n") + "\n"), nil
}

func (b *Backend) stylesFor(cfg *theme.RendererConfig) Styles {
	if b.styles != nil {
		return *b.styles
	}
	accent := ""
	if cfg != nil {
		accent = cfg.Tokens[AccentToken]
	}
	return DefaultStyles(accent)
}

type mount struct {
	ctx    context.Context
	styles Styles
	logger *slog.Logger
}

func (m mount) render(n *node.Node, width int) (string, error) {
	if n == nil {
		return "", nil
	}
	if err := m.ctx.Err(); err != nil {
		return "", err
	}

	switch n.Kind {
	case node.KindComponent:
		return m.component(n, width)
	case node.KindSplit:
		return m.split(n, width)
	case node.KindTabs:
		return m.tabs(n, width)
	case node.KindGrid:
		return m.grid(n, width)
	default:
		parts, err := m.children(n, width)
		if err != nil {
			return "", err
		}
		return lipgloss.JoinVertical(lipgloss.Left, parts...), nil
	}
}

func (m mount) children(n *node.Node, width int) ([]string, error) {
	parts := make([]string, 0, len(n.Children))
	for _, child := range n.Children {
		if child.Hidden() {
			continue
		}
		part, err := m.render(child, width)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	return parts, nil
}

func (m mount) component(n *node.Node, width int) (string, error) {
	children, err := m.children(n, width)
	if err != nil {
		return "", err
	}
	if n.Component == nil {
		return m.styles.Muted.Render("[" + n.Type + "]"), nil
	}
	var buf strings.Builder
	if err := n.Component.Render(&buf, n.Props, children); err != nil {
		m.logger.Warn("term backend: component failed", "type", n.Type, "id", n.ID, "error", err)
		return m.styles.Muted.Render("[" + n.Type + " failed]"), nil
	}
	return buf.String(), nil
}

func (m mount) split(n *node.Node, width int) (string, error) {
	vertical := n.StringProp("direction") == "vertical"
	var panes []*node.Node
	for _, child := range n.Children {
		if child.Kind == node.KindPane {
			panes = append(panes, child)
		}
	}
	if len(panes) == 0 {
		return "", nil
	}

	dividers := len(panes) - 1
	usable := width
	if !vertical {
		usable -= dividers
	}
	rendered := make([]string, 0, len(panes))
	for _, pane := range panes {
		paneWidth := width
		if !vertical {
			paneWidth = share(usable, pane.Prop("size"))
		}
		content, err := m.children(pane, paneWidth)
		if err != nil {
			return "", err
		}
		block := lipgloss.JoinVertical(lipgloss.Left, content...)
		rendered = append(rendered, lipgloss.NewStyle().Width(paneWidth).Render(block))
	}

	joined := make([]string, 0, len(rendered)*2)
	if vertical {
		line := m.styles.Divider.Render(strings.Repeat("─", width))
		for i, pane := range rendered {
			if i > 0 {
				joined = append(joined, line)
			}
			joined = append(joined, pane)
		}
		return lipgloss.JoinVertical(lipgloss.Left, joined...), nil
	}

	height := 1
	for _, pane := range rendered {
		height = max(height, lipgloss.Height(pane))
	}
	bar := m.styles.Divider.Render(strings.TrimRight(strings.Repeat("│\n", height), "\n"))
	for i, pane := range rendered {
		if i > 0 {
			joined = append(joined, bar)
		}
		joined = append(joined, pane)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, joined...), nil
}

func (m mount) tabs(n *node.Node, width int) (string, error) {
	labels := make([]string, 0, len(n.Children))
	var active *node.Node
	for _, tab := range n.Children {
		if tab.Kind != node.KindTab {
			continue
		}
		label := tab.StringProp("label")
		if tab.BoolProp("active") {
			active = tab
			labels = append(labels, m.styles.ActiveTab.Render("["+label+"]"))
			continue
		}
		labels = append(labels, m.styles.Tab.Render(label))
	}
	bar := lipgloss.JoinHorizontal(lipgloss.Top, labels...)
	if active == nil {
		return bar, nil
	}
	content, err := m.children(active, width)
	if err != nil {
		return "", err
	}
	rule := m.styles.Divider.Render(strings.Repeat("─", max(lipgloss.Width(bar), 1)))
	return lipgloss.JoinVertical(lipgloss.Left, append([]string{bar, rule}, content...)...), nil
}

func (m mount) grid(n *node.Node, width int) (string, error) {
	columns := intProp(n, "columns")
	if columns <= 0 {
		return "", nil
	}
	gap := 0
	if intProp(n, "gap") > 0 {
		gap = 1
	}
	cellWidth := max((width-gap*(columns-1))/columns, 1)

	rows := make(map[int][]string)
	order := []int{}
	for _, cell := range n.Children {
		if cell.Kind != node.KindCell {
			continue
		}
		content, err := m.children(cell, cellWidth)
		if err != nil {
			return "", err
		}
		row := intProp(cell, "row")
		if _, seen := rows[row]; !seen {
			order = append(order, row)
		}
		style := lipgloss.NewStyle().Width(cellWidth)
		if intProp(cell, "column") < columns-1 {
			style = style.MarginRight(gap)
		}
		rows[row] = append(rows[row], style.Render(lipgloss.JoinVertical(lipgloss.Left, content...)))
	}

	lines := make([]string, 0, len(order))
	for _, row := range order {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, rows[row]...))
	}
	spacing := lipgloss.NewStyle().MarginBottom(gap)
	for i := range lines[:max(len(lines)-1, 0)] {
		lines[i] = spacing.Render(lines[i])
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...), nil
}

func share(total int, size any) int {
	var pct float64
	switch v := size.(type) {
	case float64:
		pct = v
	case int:
		pct = float64(v)
	}
	return max(int(float64(total)*pct/100), 1)
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
