// Package backend defines the seam between the interpreter, which produces a
// render tree, and the output backends that turn that tree into bytes.
package backend

import (
	"context"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-pagegen/pkg/node"
)

// Backend mounts a render tree into a concrete representation (HTML, terminal
// text, ...).
type Backend interface {
	Name() string
	ContentType() string
	Mount(ctx context.Context, root *node.Node, options MountOptions) ([]byte, error)
}

// MountOptions carry per-request presentation settings that are not part of
// the render tree.
type MountOptions struct {
	// Title labels the document when the backend draws one.
	Title string
	// Theme is the resolved theme configuration, if any.
	Theme *theme.RendererConfig
}
