// Package node defines the render tree produced by interpreting a page
// description. Trees are built fresh on every render pass. After that only
// tab activation touches them, and only the visibility props of tab nodes.
package node

import (
	"sort"

	"github.com/goliatone/go-pagegen/pkg/registry"
)

// Kind classifies a node. Component nodes carry a resolved Component; the
// other kinds are structural and are drawn by output backends.
type Kind string

const (
	KindComponent Kind = "component"
	KindStack     Kind = "stack"
	KindSplit     Kind = "split"
	KindPane      Kind = "pane"
	KindDivider   Kind = "divider"
	KindTabs      Kind = "tabs"
	KindTab       Kind = "tab"
	KindGrid      Kind = "grid"
	KindCell      Kind = "cell"
)

// Handler runs when an event fires on a node. payload carries
// backend-specific event details and may be nil.
type Handler func(payload map[string]any)

// Node is one element of the render tree.
type Node struct {
	ID        string
	Kind      Kind
	Type      string
	Component registry.Component
	Props     map[string]any
	Handlers  map[string]Handler
	Children  []*Node
}

// Fire invokes the handler registered for event. It reports false when the
// node has no such handler.
func (n *Node) Fire(event string, payload map[string]any) bool {
	if n == nil {
		return false
	}
	handler, ok := n.Handlers[event]
	if !ok || handler == nil {
		return false
	}
	handler(payload)
	return true
}

// Events lists the event names wired on the node in sorted order.
func (n *Node) Events() []string {
	if n == nil || len(n.Handlers) == 0 {
		return nil
	}
	names := make([]string, 0, len(n.Handlers))
	for name := range n.Handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Prop returns a property value, or nil when absent.
func (n *Node) Prop(name string) any {
	if n == nil || n.Props == nil {
		return nil
	}
	return n.Props[name]
}

// StringProp returns a property as a string when it holds one.
func (n *Node) StringProp(name string) string {
	s, _ := n.Prop(name).(string)
	return s
}

// BoolProp returns a property as a bool when it holds one.
func (n *Node) BoolProp(name string) bool {
	b, _ := n.Prop(name).(bool)
	return b
}

// Hidden reports whether the node is rendered but not visible.
func (n *Node) Hidden() bool {
	return n.BoolProp("hidden")
}
