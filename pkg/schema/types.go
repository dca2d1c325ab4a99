package schema

import "strings"

// LayoutType names a page layout strategy.
type LayoutType string

const (
	LayoutSingle LayoutType = "single"
	LayoutSplit  LayoutType = "split"
	LayoutTabs   LayoutType = "tabs"
	LayoutGrid   LayoutType = "grid"
)

// Direction orients split layouts.
type Direction string

const (
	DirectionHorizontal Direction = "horizontal"
	DirectionVertical   Direction = "vertical"
)

// Page is the top-level description of one screen.
type Page struct {
	ID         string               `json:"id,omitempty" yaml:"id,omitempty"`
	Title      string               `json:"title,omitempty" yaml:"title,omitempty"`
	Layout     Layout               `json:"layout" yaml:"layout"`
	Components []Component          `json:"components" yaml:"components"`
	Fragments  map[string]Component `json:"fragments,omitempty" yaml:"fragments,omitempty"`
}

// Layout selects how top-level components are arranged.
type Layout struct {
	Type      LayoutType `json:"type" yaml:"type"`
	Direction Direction  `json:"direction,omitempty" yaml:"direction,omitempty"`
	Sizes     []float64  `json:"sizes,omitempty" yaml:"sizes,omitempty"`
	Gap       *int       `json:"gap,omitempty" yaml:"gap,omitempty"`
}

// Component declares one visual element and its subtree. Children render in
// declaration order. IDs only need to be unique within one render pass.
type Component struct {
	ID         string         `json:"id" yaml:"id"`
	Type       string         `json:"type,omitempty" yaml:"type,omitempty"`
	Ref        string         `json:"ref,omitempty" yaml:"ref,omitempty"`
	Properties map[string]any `json:"properties,omitempty" yaml:"properties,omitempty"`
	Bindings   []Binding      `json:"bindings,omitempty" yaml:"bindings,omitempty"`
	Condition  string         `json:"condition,omitempty" yaml:"condition,omitempty"`
	Events     []Event        `json:"events,omitempty" yaml:"events,omitempty"`
	Children   []Component    `json:"children,omitempty" yaml:"children,omitempty"`

	// Problem is set while decoding when the descriptor has the wrong shape.
	// The renderer skips such descriptors and reports Problem.
	Problem string `json:"-" yaml:"-"`
}

// Binding overwrites Target with the value at Source, optionally piped
// through Transform.
type Binding struct {
	Source    string `json:"sourcePath" yaml:"sourcePath"`
	Target    string `json:"targetProperty" yaml:"targetProperty"`
	Transform string `json:"transformExpression,omitempty" yaml:"transformExpression,omitempty"`
}

// Event wires a named element event to an action.
type Event struct {
	Name   string         `json:"eventName" yaml:"eventName"`
	Action string         `json:"actionId" yaml:"actionId"`
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// Label returns the component's display label: its "label" property when it
// is a non-empty string, otherwise its id.
func (c Component) Label() string {
	if label, ok := c.Properties["label"].(string); ok && strings.TrimSpace(label) != "" {
		return label
	}
	return c.ID
}

// Types returns every component type referenced by the page, including
// fragments, in first-seen order.
func (p Page) Types() []string {
	seen := make(map[string]struct{})
	var out []string
	var visit func(components []Component)
	visit = func(components []Component) {
		for _, c := range components {
			if name := strings.TrimSpace(c.Type); name != "" {
				key := strings.ToLower(name)
				if _, ok := seen[key]; !ok {
					seen[key] = struct{}{}
					out = append(out, name)
				}
			}
			visit(c.Children)
		}
	}
	visit(p.Components)
	for _, name := range sortedKeys(p.Fragments) {
		visit([]Component{p.Fragments[name]})
	}
	return out
}
