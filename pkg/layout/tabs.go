package layout

import (
	"maps"
	"slices"

	"github.com/goliatone/go-pagegen/pkg/node"
)

// Activate makes tabID the active tab of the first tabs node in root. Only
// tab visibility changes; the rendered content of every tab is kept. It
// reports false when no tab has that id.
func Activate(root *node.Node, tabID string) bool {
	container := tabContainer(root)
	if container == nil || tabID == "" {
		return false
	}
	found := false
	for _, tab := range container.Children {
		if tab.ID == tabID {
			found = true
			break
		}
	}
	if !found {
		return false
	}
	for _, tab := range container.Children {
		active := tab.ID == tabID
		if tab.Props == nil {
			tab.Props = map[string]any{}
		}
		tab.Props["active"] = active
		tab.Props["hidden"] = !active
	}
	if container.Props == nil {
		container.Props = map[string]any{}
	}
	container.Props["active"] = tabID
	return true
}

// Select is Activate on a copy: root is left untouched, so a tree that is
// being mounted elsewhere can keep being read. Only the nodes between root
// and the tab nodes are copied; tab content is shared. When no tab has that
// id it returns root and false.
func Select(root *node.Node, tabID string) (*node.Node, bool) {
	path := tabPath(root)
	if path == nil || tabID == "" {
		return root, false
	}
	if !slices.ContainsFunc(path[len(path)-1].Children, func(tab *node.Node) bool { return tab.ID == tabID }) {
		return root, false
	}

	copies := make([]*node.Node, len(path))
	for i, n := range path {
		c := *n
		copies[i] = &c
	}
	for i := range len(path) - 1 {
		parent := copies[i]
		parent.Children = slices.Clone(parent.Children)
		parent.Children[slices.Index(path[i].Children, path[i+1])] = copies[i+1]
	}

	container := copies[len(copies)-1]
	container.Props = maps.Clone(container.Props)
	container.Children = slices.Clone(container.Children)
	for i, tab := range container.Children {
		c := *tab
		c.Props = maps.Clone(tab.Props)
		container.Children[i] = &c
	}
	Activate(copies[0], tabID)
	return copies[0], true
}

// ActiveTab returns the id of the active tab, or "" when root has no tabs.
func ActiveTab(root *node.Node) string {
	container := tabContainer(root)
	if container == nil {
		return ""
	}
	return container.StringProp("active")
}

// Tab describes one tab for hosts that draw their own tab bar.
type Tab struct {
	ID     string
	Label  string
	Active bool
}

// Tabs lists the tabs of the first tabs node in root.
func Tabs(root *node.Node) []Tab {
	container := tabContainer(root)
	if container == nil {
		return nil
	}
	out := make([]Tab, 0, len(container.Children))
	for _, tab := range container.Children {
		out = append(out, Tab{
			ID:     tab.ID,
			Label:  tab.StringProp("label"),
			Active: tab.BoolProp("active"),
		})
	}
	return out
}

// tabPath returns the nodes from root down to the container tabContainer
// would find.
func tabPath(n *node.Node) []*node.Node {
	if n == nil {
		return nil
	}
	if n.Kind == node.KindTabs {
		return []*node.Node{n}
	}
	for _, child := range n.Children {
		if path := tabPath(child); path != nil {
			return append([]*node.Node{n}, path...)
		}
	}
	return nil
}

func tabContainer(root *node.Node) *node.Node {
	var container *node.Node
	node.Walk(root, func(n *node.Node) bool {
		if container != nil {
			return false
		}
		if n.Kind == node.KindTabs {
			container = n
			return false
		}
		return true
	})
	return container
}
