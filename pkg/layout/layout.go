// Package layout arranges a page's top-level components according to the
// page's layout strategy. Each component is rendered through the component
// renderer; the composer only adds the structural nodes around them.
package layout

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/goliatone/go-pagegen/pkg/node"
	"github.com/goliatone/go-pagegen/pkg/render"
	"github.com/goliatone/go-pagegen/pkg/schema"
)

// DefaultGap is the grid spacing used when a page does not set one.
const DefaultGap = 16

// State holds view state that lives outside the page data.
type State struct {
	// ActiveTab selects the visible tab by component id. Empty or unknown
	// ids fall back to the first tab.
	ActiveTab string
}

// Option configures a Composer.
type Option func(*Composer)

// WithDefaultGap overrides DefaultGap.
func WithDefaultGap(gap int) Option {
	return func(c *Composer) {
		if gap >= 0 {
			c.gap = gap
		}
	}
}

// Composer builds the root render node of a page.
type Composer struct {
	renderer *render.Renderer
	gap      int
}

// New constructs a Composer that renders components with r. A nil renderer
// uses render.New().
func New(r *render.Renderer, options ...Option) *Composer {
	if r == nil {
		r = render.New()
	}
	c := &Composer{renderer: r, gap: DefaultGap}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Renderer exposes the component renderer.
func (c *Composer) Renderer() *render.Renderer { return c.renderer }

// Compose renders page into a tree rooted at a structural node. Unknown
// layout types render nothing and are reported. An empty layout type is
// treated as single.
func (c *Composer) Compose(ctx context.Context, page schema.Page, rc render.Context, state State) *node.Node {
	pass := c.renderer.Begin(ctx, rc, render.WithFragments(page.Fragments))

	layoutType := schema.LayoutType(strings.ToLower(strings.TrimSpace(string(page.Layout.Type))))
	var root *node.Node
	switch layoutType {
	case "", schema.LayoutSingle:
		root = single(pass, page)
	case schema.LayoutSplit:
		root = split(pass, page)
	case schema.LayoutTabs:
		root = tabs(pass, page, state)
	case schema.LayoutGrid:
		root = grid(pass, page, c.gap)
	default:
		pass.Report(render.Diagnostic{
			Kind:        render.KindUnknownLayout,
			ComponentID: page.ID,
			Message:     fmt.Sprintf("unknown layout type %q", page.Layout.Type),
		})
		return nil
	}

	root.ID = page.ID
	if root.Props == nil {
		root.Props = map[string]any{}
	}
	if page.Title != "" {
		root.Props["title"] = page.Title
	}
	return root
}

// Columns returns the grid column count for n components: ceil(sqrt(n)).
func Columns(n int) int {
	if n <= 0 {
		return 0
	}
	return int(math.Ceil(math.Sqrt(float64(n))))
}

func single(pass *render.Pass, page schema.Page) *node.Node {
	root := &node.Node{Kind: node.KindStack}
	for _, component := range page.Components {
		if rendered := pass.Render(component); rendered != nil {
			root.Children = append(root.Children, rendered)
		}
	}
	return root
}

func split(pass *render.Pass, page schema.Page) *node.Node {
	direction := page.Layout.Direction
	if direction != schema.DirectionVertical {
		direction = schema.DirectionHorizontal
	}
	root := &node.Node{
		Kind:  node.KindSplit,
		Props: map[string]any{"direction": string(direction)},
	}

	share := 0.0
	if n := len(page.Components); n > 0 {
		share = 100 / float64(n)
	}
	for i, component := range page.Components {
		rendered := pass.Render(component)
		if rendered == nil {
			continue
		}
		size := share
		if i < len(page.Layout.Sizes) && page.Layout.Sizes[i] > 0 {
			size = page.Layout.Sizes[i]
		}
		if len(root.Children) > 0 {
			root.Children = append(root.Children, &node.Node{
				Kind:  node.KindDivider,
				Props: map[string]any{"direction": string(direction)},
			})
		}
		root.Children = append(root.Children, &node.Node{
			ID:       rendered.ID,
			Kind:     node.KindPane,
			Props:    map[string]any{"size": size, "index": i},
			Children: []*node.Node{rendered},
		})
	}
	return root
}

func tabs(pass *render.Pass, page schema.Page, state State) *node.Node {
	root := &node.Node{Kind: node.KindTabs, Props: map[string]any{}}
	keys := make(map[string]struct{}, len(page.Components))
	for i, component := range page.Components {
		rendered := pass.Render(component)
		if rendered == nil {
			continue
		}
		key := component.ID
		if key == "" {
			key = fmt.Sprintf("tab-%d", i)
		}
		key = uniqueKey(keys, key)
		label := component.Label()
		if bound, ok := rendered.Props["label"].(string); ok && strings.TrimSpace(bound) != "" {
			label = bound
		}
		if label == "" {
			label = key
		}
		root.Children = append(root.Children, &node.Node{
			ID:       key,
			Kind:     node.KindTab,
			Props:    map[string]any{"label": label},
			Children: []*node.Node{rendered},
		})
	}

	if !Activate(root, state.ActiveTab) && len(root.Children) > 0 {
		Activate(root, root.Children[0].ID)
	}
	return root
}

// uniqueKey claims key in seen, suffixing it when it is already taken so
// every tab can be activated on its own.
func uniqueKey(seen map[string]struct{}, key string) string {
	candidate := key
	for n := 2; ; n++ {
		if _, taken := seen[candidate]; !taken {
			break
		}
		candidate = fmt.Sprintf("%s-%d", key, n)
	}
	seen[candidate] = struct{}{}
	return candidate
}

func grid(pass *render.Pass, page schema.Page, defaultGap int) *node.Node {
	gap := defaultGap
	if page.Layout.Gap != nil && *page.Layout.Gap >= 0 {
		gap = *page.Layout.Gap
	}
	columns := Columns(len(page.Components))
	root := &node.Node{
		Kind:  node.KindGrid,
		Props: map[string]any{"columns": columns, "gap": gap},
	}

	for _, component := range page.Components {
		rendered := pass.Render(component)
		if rendered == nil {
			continue
		}
		position := len(root.Children)
		root.Children = append(root.Children, &node.Node{
			ID:   rendered.ID,
			Kind: node.KindCell,
			Props: map[string]any{
				"row":    position / columns,
				"column": position % columns,
			},
			Children: []*node.Node{rendered},
		})
	}

	rows := 0
	if columns > 0 {
		rows = (len(root.Children) + columns - 1) / columns
	}
	root.Props["rows"] = rows
	return root
}
