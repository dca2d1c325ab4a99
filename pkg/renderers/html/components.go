package html

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/goliatone/go-pagegen/pkg/registry"
	rendertemplate "github.com/goliatone/go-pagegen/pkg/render/template"
	"github.com/goliatone/go-pagegen/pkg/render/template/gotemplate"
)

const templatePrefix = "templates/components/"

// Reserved props the backend adds before a component renders.
const (
	PropID     = "id"
	PropEvents = "events"
)

// DefaultComponents lists the component types RegisterComponents installs.
var DefaultComponents = []string{"Panel", "Text", "Heading", "Button", "Input", "List", "Badge"}

// NewEngine builds a template engine over the embedded templates.
func NewEngine(options ...gotemplate.Option) (*gotemplate.Engine, error) {
	options = append([]gotemplate.Option{gotemplate.WithFS(TemplatesFS()), gotemplate.WithName("pagegen-html")}, options...)
	return gotemplate.New(options...)
}

// RegisterComponents installs the default HTML components into reg. A nil
// engine uses NewEngine.
func RegisterComponents(reg *registry.Registry, engine rendertemplate.TemplateRenderer) error {
	if reg == nil {
		return fmt.Errorf("html: registry is required")
	}
	if engine == nil {
		built, err := NewEngine()
		if err != nil {
			return fmt.Errorf("html: template engine: %w", err)
		}
		engine = built
	}
	for _, name := range DefaultComponents {
		if err := reg.Register(name, templateComponent(engine, strings.ToLower(name))); err != nil {
			return err
		}
	}
	return nil
}

// NewComponentRegistry returns a registry holding the default components.
func NewComponentRegistry(engine rendertemplate.TemplateRenderer) (*registry.Registry, error) {
	reg := registry.New()
	if err := RegisterComponents(reg, engine); err != nil {
		return nil, err
	}
	return reg, nil
}

func templateComponent(engine rendertemplate.TemplateRenderer, name string) registry.Component {
	templateName := templatePrefix + name + ".tmpl"
	return registry.ComponentFunc(func(w io.Writer, props map[string]any, children []string) error {
		if _, err := engine.RenderTemplate(templateName, componentPayload(props, children), w); err != nil {
			return fmt.Errorf("html: render %s: %w", name, err)
		}
		return nil
	})
}

// componentPayload derives the view values every component template reads.
func componentPayload(props map[string]any, children []string) map[string]any {
	if props == nil {
		props = map[string]any{}
	}
	payload := map[string]any{
		"props":      props,
		"children":   children,
		"id":         stringValue(props[PropID]),
		"events":     eventsAttr(props[PropEvents]),
		"label":      firstString(props, "label", "title"),
		"text":       firstString(props, "text", "value", "label"),
		"tone":       firstNonEmpty(stringValue(props["tone"]), "neutral"),
		"disabled":   truthy(props["disabled"]),
		"input_type": firstNonEmpty(stringValue(props["inputType"]), "text"),
		"level":      headingLevel(props["level"]),
		"items":      listItems(props["items"]),
	}
	if raw, ok := props["html"].(string); ok {
		payload["markup"] = sanitizeMarkup(raw)
	}
	return payload
}

func firstString(props map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := stringValue(props[key]); s != "" {
			return s
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
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
	case fmt.Stringer:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func truthy(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return v == "true"
	default:
		return false
	}
}

func eventsAttr(value any) string {
	switch v := value.(type) {
	case []string:
		return strings.Join(v, " ")
	case string:
		return v
	default:
		return ""
	}
}

func headingLevel(value any) int {
	level := 2
	switch v := value.(type) {
	case int:
		level = v
	case float64:
		level = int(v)
	case string:
		if parsed, err := strconv.Atoi(v); err == nil {
			level = parsed
		}
	}
	if level < 1 || level > 6 {
		return 2
	}
	return level
}

func listItems(value any) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				out = append(out, firstString(m, "label", "name", "title", "value"))
				continue
			}
			out = append(out, stringValue(item))
		}
		return out
	default:
		return nil
	}
}
