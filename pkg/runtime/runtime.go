// Package runtime owns a page's mutable application data and the table of
// named actions. Execute is the only way data changes: the action's handler
// receives a private copy of the current data and its return value replaces
// the data wholesale.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/mohae/deepcopy"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/goliatone/go-pagegen/pkg/runtime"

// Handler computes the next data from the action params and a copy of the
// current data. Returning an error leaves data unchanged.
type Handler func(ctx context.Context, params, data map[string]any) (map[string]any, error)

// Action binds a handler to an action id.
type Action struct {
	ID      string
	Handler Handler
}

// Listener observes committed data changes.
type Listener func(data map[string]any)

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the logger for missing actions and handler failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Context) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTracer overrides the tracer obtained from the global provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Context) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// WithSerializedActions runs actions one at a time in arrival order instead
// of letting concurrent actions race to commit.
func WithSerializedActions() Option {
	return func(c *Context) {
		c.serialized = true
	}
}

// WithBaseContext sets the context used by Dispatch, which has no caller
// context of its own.
func WithBaseContext(ctx context.Context) Option {
	return func(c *Context) {
		if ctx != nil {
			c.base = ctx
		}
	}
}

// Context is the execution context of one page activation.
type Context struct {
	mu        sync.RWMutex
	data      map[string]any
	version   uint64
	listeners map[uint64]Listener
	nextID    uint64

	actions    map[string]Handler
	serialized bool
	serial     sync.Mutex
	inflight   sync.WaitGroup

	base   context.Context
	logger *slog.Logger
	tracer trace.Tracer
}

// New constructs a Context over data with the given actions. Later actions
// replace earlier ones with the same id.
func New(data map[string]any, actions []Action, options ...Option) *Context {
	if data == nil {
		data = map[string]any{}
	}
	c := &Context{
		data:      data,
		listeners: make(map[uint64]Listener),
		actions:   make(map[string]Handler, len(actions)),
		base:      context.Background(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}

	for _, action := range actions {
		id := strings.TrimSpace(action.ID)
		if id == "" || action.Handler == nil {
			c.logger.Warn("runtime: skipping invalid action", "action", action.ID)
			continue
		}
		if _, exists := c.actions[id]; exists {
			c.logger.Warn("runtime: action redefined", "action", id)
		}
		c.actions[id] = action.Handler
	}
	return c
}

// Data returns the last committed data. Callers must treat it as read-only.
func (c *Context) Data() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data
}

// Version counts committed changes.
func (c *Context) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Has reports whether an action is registered.
func (c *Context) Has(actionID string) bool {
	_, ok := c.actions[strings.TrimSpace(actionID)]
	return ok
}

// Actions lists registered action ids.
func (c *Context) Actions() []string {
	ids := make([]string, 0, len(c.actions))
	for id := range c.actions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Execute runs the named action. Unknown actions are logged and ignored.
// Handler errors and panics leave data untouched and are returned.
func (c *Context) Execute(ctx context.Context, actionID string, params map[string]any) error {
	if ctx == nil {
		ctx = c.base
	}
	id := strings.TrimSpace(actionID)
	invocation := uuid.NewString()

	ctx, span := c.tracer.Start(ctx, "runtime.execute", trace.WithAttributes(
		attribute.String("pagegen.action.id", id),
		attribute.String("pagegen.invocation.id", invocation),
	))
	defer span.End()

	handler, ok := c.actions[id]
	if !ok {
		c.logger.Warn("runtime: unknown action", "action", id, "invocation", invocation)
		span.SetAttributes(attribute.Bool("pagegen.action.missing", true))
		return nil
	}

	if c.serialized {
		c.serial.Lock()
		defer c.serial.Unlock()
	}

	current := c.Data()
	snapshot, _ := deepcopy.Copy(current).(map[string]any)
	if snapshot == nil {
		snapshot = map[string]any{}
	}
	args, _ := deepcopy.Copy(params).(map[string]any)
	if args == nil {
		args = map[string]any{}
	}

	c.logger.Debug("runtime: executing action", "action", id, "invocation", invocation)
	next, err := call(ctx, handler, args, snapshot)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("runtime: action %q: %w", id, err)
	}
	if next == nil {
		next = map[string]any{}
	}

	c.mu.Lock()
	c.data = next
	c.version++
	version := c.version
	listeners := make([]Listener, 0, len(c.listeners))
	for _, key := range sortedKeys(c.listeners) {
		listeners = append(listeners, c.listeners[key])
	}
	c.mu.Unlock()

	span.SetAttributes(attribute.Int64("pagegen.data.version", int64(version)))
	for _, listener := range listeners {
		listener(next)
	}
	return nil
}

// Dispatch runs Execute on its own goroutine and returns immediately. Errors
// are logged. It has the signature render contexts expect.
func (c *Context) Dispatch(actionID string, params map[string]any) {
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		if err := c.Execute(c.base, actionID, params); err != nil {
			c.logger.Warn("runtime: action failed", "action", actionID, "error", err)
		}
	}()
}

// Wait blocks until every dispatched action has finished.
func (c *Context) Wait() {
	c.inflight.Wait()
}

// Subscribe registers fn to run after every commit, on the committing
// goroutine. The returned function removes the subscription.
func (c *Context) Subscribe(fn Listener) func() {
	if fn == nil {
		return func() {}
	}
	c.mu.Lock()
	c.nextID++
	key := c.nextID
	c.listeners[key] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, key)
			c.mu.Unlock()
		})
	}
}

func call(ctx context.Context, handler Handler, params, data map[string]any) (next map[string]any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			next = nil
			err = fmt.Errorf("handler panicked: %v", rec)
		}
	}()
	return handler(ctx, params, data)
}

func sortedKeys(m map[uint64]Listener) []uint64 {
	keys := make([]uint64, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
