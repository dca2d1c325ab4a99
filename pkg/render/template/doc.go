// Package template defines the template engine seam used by components that
// render through templates, such as the HTML backend's default components.
package template
