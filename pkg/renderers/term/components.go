package term

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/goliatone/go-pagegen/pkg/registry"
)

// DefaultComponents lists the component types RegisterComponents installs.
var DefaultComponents = []string{"Panel", "Text", "Heading", "Button", "Input", "List", "Badge"}

// RegisterComponents installs the terminal renditions of the default
// components into reg.
func RegisterComponents(reg *registry.Registry, styles Styles) error {
	if reg == nil {
		return fmt.Errorf("term: registry is required")
	}
	components := map[string]registry.ComponentFunc{
		"Panel":   panel(styles),
		"Text":    text,
		"Heading": heading(styles),
		"Button":  button(styles),
		"Input":   input(styles),
		"List":    list,
		"Badge":   badge(styles),
	}
	for _, name := range DefaultComponents {
		if err := reg.Register(name, components[name]); err != nil {
			return err
		}
	}
	return nil
}

// NewComponentRegistry returns a registry holding the default components.
func NewComponentRegistry(styles Styles) (*registry.Registry, error) {
	reg := registry.New()
	if err := RegisterComponents(reg, styles); err != nil {
		return nil, err
	}
	return reg, nil
}

func panel(styles Styles) registry.ComponentFunc {
	return func(w io.Writer, props map[string]any, children []string) error {
		lines := make([]string, 0, len(children)+1)
		if label := firstString(props, "label", "title"); label != "" {
			lines = append(lines, styles.Label.Render(label))
		}
		lines = append(lines, children...)
		if len(lines) == 0 {
			lines = append(lines, "")
		}
		_, err := io.WriteString(w, styles.Panel.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
		return err
	}
}

func text(w io.Writer, props map[string]any, _ []string) error {
	_, err := io.WriteString(w, firstString(props, "text", "value", "label"))
	return err
}

func heading(styles Styles) registry.ComponentFunc {
	return func(w io.Writer, props map[string]any, _ []string) error {
		_, err := io.WriteString(w, styles.Heading.Render(firstString(props, "text", "label")))
		return err
	}
}

func button(styles Styles) registry.ComponentFunc {
	return func(w io.Writer, props map[string]any, _ []string) error {
		style := styles.Button
		if disabled, _ := props["disabled"].(bool); disabled {
			style = styles.Disabled
		}
		_, err := io.WriteString(w, style.Render("[ "+firstString(props, "label", "text")+" ]"))
		return err
	}
}

func input(styles Styles) registry.ComponentFunc {
	return func(w io.Writer, props map[string]any, _ []string) error {
		value := firstString(props, "text", "value")
		if value == "" {
			value = firstString(props, "placeholder")
		}
		field := styles.Input.Render(fmt.Sprintf("%-16s", value))
		if label := firstString(props, "label"); label != "" {
			field = label + ": " + field
		}
		_, err := io.WriteString(w, field)
		return err
	}
}

func list(w io.Writer, props map[string]any, children []string) error {
	var lines []string
	if items, ok := props["items"].([]any); ok {
		for _, item := range items {
			if m, ok := item.(map[string]any); ok {
				lines = append(lines, "• "+firstString(m, "label", "name", "title", "value"))
				continue
			}
			lines = append(lines, "• "+stringValue(item))
		}
	}
	for _, child := range children {
		lines = append(lines, "• "+child)
	}
	_, err := io.WriteString(w, strings.Join(lines, "\n"))
	return err
}

func badge(styles Styles) registry.ComponentFunc {
	return func(w io.Writer, props map[string]any, _ []string) error {
		style := styles.Badge
		switch firstString(props, "tone") {
		case "success":
			style = styles.BadgeOK
		case "danger":
			style = styles.BadgeBad
		}
		_, err := io.WriteString(w, style.Render("("+firstString(props, "text", "label")+")"))
		return err
	}
}

func firstString(props map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := stringValue(props[key]); s != "" {
			return s
		}
	}
	return ""
}

func stringValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
