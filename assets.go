package pagegen

import (
	"io/fs"

	"github.com/goliatone/go-pagegen/pkg/renderers/html"
)

// EmbeddedTemplates exposes the built-in HTML component templates so callers
// can reuse or extend them without importing the backend package directly.
func EmbeddedTemplates() fs.FS {
	return html.TemplatesFS()
}

// AssetsFS exposes the default stylesheet served next to HTML pages.
//
// Typical mount:
//
//	mux.Handle("/assets/",
//	  http.StripPrefix("/assets/",
//	    http.FileServerFS(pagegen.AssetsFS()),
//	  ),
//	)
func AssetsFS() fs.FS {
	return html.AssetsFS()
}
