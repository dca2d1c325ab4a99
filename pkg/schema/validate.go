package schema

import (
	"fmt"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

var (
	pageShapeOnce sync.Once
	pageShape     *openapi3.Schema
)

// Validate checks that a decoded JSON value has the shape of a page: an
// object with a layout carrying a string type and an ordered component list.
// It only checks page-level presence and field types. Unknown layout types
// and malformed components are left to the renderer, which degrades per node.
func Validate(value any) error {
	if err := pageSchema().VisitJSON(value); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPage, err)
	}
	return nil
}

// ValidatePage checks the required fields of a page built in code.
func ValidatePage(page Page) error {
	if page.Layout.Type == "" {
		return fmt.Errorf("%w: layout.type is required", ErrInvalidPage)
	}
	if page.Components == nil {
		return fmt.Errorf("%w: components is required", ErrInvalidPage)
	}
	return nil
}

func pageSchema() *openapi3.Schema {
	pageShapeOnce.Do(func() {
		pageShape = buildPageSchema()
	})
	return pageShape
}

func buildPageSchema() *openapi3.Schema {
	layout := openapi3.NewObjectSchema().
		WithProperty("type", openapi3.NewStringSchema()).
		WithProperty("direction", openapi3.NewStringSchema()).
		WithProperty("sizes", openapi3.NewArraySchema().WithItems(openapi3.NewFloat64Schema())).
		WithProperty("gap", openapi3.NewIntegerSchema())
	layout.Required = []string{"type"}

	// Component items are left unconstrained: a malformed descriptor is
	// skipped by the renderer without failing its siblings.
	page := openapi3.NewObjectSchema().
		WithProperty("id", openapi3.NewStringSchema()).
		WithProperty("title", openapi3.NewStringSchema()).
		WithProperty("layout", layout).
		WithProperty("components", openapi3.NewArraySchema()).
		WithProperty("fragments", openapi3.NewObjectSchema())
	page.Required = []string{"layout", "components"}
	return page
}
