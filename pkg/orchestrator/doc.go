// Package orchestrator wires the loader → parser → layout composer → backend
// pipeline, providing dependency injection friendly helpers for consumers
// that prefer a single entry point. Generate renders a page once; Open starts
// an interactive session whose tree is rebuilt after every committed action.
package orchestrator
