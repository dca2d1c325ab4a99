package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
	"golang.org/x/sync/singleflight"
)

// Component renders one unit of output from its resolved properties and the
// already rendered output of its children.
type Component interface {
	Render(w io.Writer, props map[string]any, children []string) error
}

// ComponentFunc adapts a function into a Component.
type ComponentFunc func(w io.Writer, props map[string]any, children []string) error

// Render delegates to the underlying function.
func (fn ComponentFunc) Render(w io.Writer, props map[string]any, children []string) error {
	return fn(w, props, children)
}

// Loader produces a Component on first use. It may block (network, plugin
// load); the registry guarantees at most one in-flight call per name.
type Loader func(ctx context.Context) (Component, error)

// Option configures a Registry.
type Option func(*Registry)

// WithLogger routes loader diagnostics to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Registry maps symbolic type names to components. Names are case-insensitive.
// Eager registrations resolve immediately; loaders resolve once and are then
// served from the cache.
type Registry struct {
	mu      sync.RWMutex
	loaders map[string]loaderEntry
	cache   map[string]Component
	seq     uint64

	group  singleflight.Group
	logger *slog.Logger
}

type loaderEntry struct {
	load Loader
	seq  uint64
}

// New creates an empty registry.
func New(options ...Option) *Registry {
	r := &Registry{
		loaders: make(map[string]loaderEntry),
		cache:   make(map[string]Component),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Register associates an eager component with name. Existing entries for the
// same name are replaced.
func (r *Registry) Register(name string, component Component) error {
	if name = normalize(name); name == "" {
		return errors.New("registry: component name is required")
	}
	if component == nil {
		return fmt.Errorf("registry: component for %q is nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.loaders, name)
	r.cache[name] = component
	return nil
}

// RegisterLoader associates a deferred loader with name. Any cached component
// for that name is dropped so the next resolution runs the loader.
func (r *Registry) RegisterLoader(name string, loader Loader) error {
	if name = normalize(name); name == "" {
		return errors.New("registry: component name is required")
	}
	if loader == nil {
		return fmt.Errorf("registry: loader for %q is nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	delete(r.cache, name)
	r.loaders[name] = loaderEntry{load: loader, seq: r.seq}
	return nil
}

// MustRegister mirrors Register but panics on error, simplifying default
// registry setup.
func (r *Registry) MustRegister(name string, component Component) {
	if err := r.Register(name, component); err != nil {
		panic(err)
	}
}

// Lookup returns a cached component without running loaders.
func (r *Registry) Lookup(name string) (Component, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	component, ok := r.cache[normalize(name)]
	return component, ok
}

// Resolve returns the component registered under name, running its loader on
// first use. Unknown names and failed loads report false; failed loads are
// not cached, so a later call retries. A caller whose ctx ends stops waiting
// and reports false, but the load itself carries on for the others.
func (r *Registry) Resolve(ctx context.Context, name string) (Component, bool) {
	key := normalize(name)
	if key == "" {
		return nil, false
	}

	r.mu.RLock()
	component, cached := r.cache[key]
	entry, deferred := r.loaders[key]
	r.mu.RUnlock()

	if cached {
		return component, true
	}
	if !deferred {
		return nil, false
	}

	// The registration sequence is part of the flight key so loads started
	// before a Reset or re-registration are never shared with later callers.
	flightKey := key + "#" + strconv.FormatUint(entry.seq, 10)
	if ctx == nil {
		ctx = context.Background()
	}
	// The load is shared with other callers, so it must outlive the
	// cancellation of whichever caller happened to start it.
	loadCtx := context.WithoutCancel(ctx)
	flight := r.group.DoChan(flightKey, func() (any, error) {
		if loaded, ok := r.Lookup(key); ok {
			return loaded, nil
		}
		loaded, err := safeLoad(loadCtx, entry.load)
		if err != nil {
			return nil, err
		}
		if loaded == nil {
			return nil, fmt.Errorf("registry: loader for %q returned nil", key)
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		if current, ok := r.loaders[key]; ok && current.seq == entry.seq {
			r.cache[key] = loaded
		}
		return loaded, nil
	})

	var result singleflight.Result
	select {
	case result = <-flight:
	case <-ctx.Done():
		r.logger.Debug("registry: stopped waiting for component load", "type", key, "error", ctx.Err())
		return nil, false
	}
	if result.Err != nil {
		r.logger.Warn("registry: component load failed", "type", key, "error", result.Err)
		return nil, false
	}
	return result.Val.(Component), true
}

// Preload resolves each name, returning an error naming every component that
// could not be resolved.
func (r *Registry) Preload(ctx context.Context, names ...string) error {
	var missing []string
	for _, name := range names {
		if _, ok := r.Resolve(ctx, name); !ok {
			missing = append(missing, normalize(name))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("registry: unresolved components: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Has reports whether name is registered, eagerly or via a loader.
func (r *Registry) Has(name string) bool {
	key := normalize(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.cache[key]; ok {
		return true
	}
	_, ok := r.loaders[key]
	return ok
}

// Names returns a sorted slice of registered names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{}, len(r.cache)+len(r.loaders))
	for name := range r.cache {
		seen[name] = struct{}{}
	}
	for name := range r.loaders {
		seen[name] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Suggest returns the registered name closest to name, or "" when nothing is
// reasonably close.
func (r *Registry) Suggest(name string) string {
	key := normalize(name)
	if key == "" {
		return ""
	}
	best := ""
	bestDistance := -1
	for _, candidate := range r.Names() {
		distance := levenshtein.ComputeDistance(key, candidate)
		if bestDistance < 0 || distance < bestDistance {
			best, bestDistance = candidate, distance
		}
	}
	if bestDistance < 0 || bestDistance > max(2, len(key)/3) {
		return ""
	}
	return best
}

// Reset clears every registration and cached component. Loads in flight when
// Reset runs complete for their callers but never populate the new cache.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	r.loaders = make(map[string]loaderEntry)
	r.cache = make(map[string]Component)
}

// Clone returns an independent copy of the registry's registrations.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cloned := New(WithLogger(r.logger))
	for name, component := range r.cache {
		cloned.cache[name] = component
	}
	for name, entry := range r.loaders {
		if _, resolved := r.cache[name]; resolved {
			continue
		}
		cloned.loaders[name] = entry
	}
	cloned.seq = r.seq
	return cloned
}

func safeLoad(ctx context.Context, load Loader) (component Component, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			component = nil
			err = fmt.Errorf("registry: loader panicked: %v", rec)
		}
	}()
	return load(ctx)
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
