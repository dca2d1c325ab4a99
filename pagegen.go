package pagegen

import (
	"context"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-pagegen/pkg/orchestrator"
	"github.com/goliatone/go-pagegen/pkg/runtime"
	"github.com/goliatone/go-pagegen/pkg/schema"
)

// Request aliases orchestrator.Request for callers that only import the root
// package.
type Request = orchestrator.Request

// Action aliases runtime.Action.
type Action = runtime.Action

// NewOrchestrator exposes the orchestrator constructor from the top-level
// module.
func NewOrchestrator(options ...orchestrator.Option) *orchestrator.Orchestrator {
	return orchestrator.New(options...)
}

// Generate loads the page from source, renders it against data and mounts it
// on the named backend. It is the simplest entry point for callers that just
// want output bytes.
func Generate(ctx context.Context, source schema.Source, data map[string]any, backendName string, options ...orchestrator.Option) ([]byte, error) {
	gen := orchestrator.New(options...)
	return gen.Generate(ctx, orchestrator.Request{
		Source:  source,
		Data:    data,
		Backend: backendName,
	})
}

// GenerateFromPage renders a page built in code, bypassing the loader stage.
func GenerateFromPage(ctx context.Context, page schema.Page, data map[string]any, backendName string, options ...orchestrator.Option) ([]byte, error) {
	gen := orchestrator.New(options...)
	return gen.Generate(ctx, orchestrator.Request{
		Page:    &page,
		Data:    data,
		Backend: backendName,
	})
}

// Open starts a live session whose render tree follows the action data.
// Stock actions (set, toggle, increment, append) are registered unless the
// request defines an action with the same id.
func Open(ctx context.Context, req Request, options ...orchestrator.Option) (*orchestrator.Session, error) {
	defined := make(map[string]struct{}, len(req.Actions))
	for _, action := range req.Actions {
		defined[action.ID] = struct{}{}
	}
	actions := make([]runtime.Action, 0, len(req.Actions)+4)
	for _, action := range runtime.StockActions() {
		if _, ok := defined[action.ID]; !ok {
			actions = append(actions, action)
		}
	}
	req.Actions = append(actions, req.Actions...)
	return orchestrator.New(options...).Open(ctx, req)
}

// WithThemeSelector passes a go-theme selector through to the orchestrator so
// theme/variant choices can be resolved ahead of mounting.
func WithThemeSelector(selector theme.ThemeSelector) orchestrator.Option {
	return orchestrator.WithThemeSelector(selector)
}
