package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/goliatone/go-pagegen/pkg/backend"
	"github.com/goliatone/go-pagegen/pkg/layout"
	"github.com/goliatone/go-pagegen/pkg/node"
	"github.com/goliatone/go-pagegen/pkg/render"
	"github.com/goliatone/go-pagegen/pkg/runtime"
	"github.com/goliatone/go-pagegen/pkg/schema"
)

// Session is one live activation of a page: a runtime holding the data,
// the latest render tree and the backend that mounts it. The tree is
// rebuilt from the latest data after every committed action; the active tab
// survives rebuilds.
type Session struct {
	ctx      context.Context
	composer *layout.Composer
	backend  backend.Backend
	mount    backend.MountOptions
	runtime  *runtime.Context

	mu          sync.Mutex
	page        schema.Page
	tree        *node.Node
	unsubscribe func()
	closed      bool
}

// Open starts a session. Request actions are registered on a fresh runtime
// and rendered events dispatch to it.
func (o *Orchestrator) Open(ctx context.Context, req Request) (*Session, error) {
	if ctx == nil {
		return nil, errors.New("orchestrator: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := o.initialiseErr; err != nil {
		return nil, err
	}

	page, err := o.resolvePage(ctx, req)
	if err != nil {
		return nil, err
	}
	b, err := o.backendFor(req.Backend)
	if err != nil {
		return nil, err
	}
	mount, err := o.mountOptions(page, req)
	if err != nil {
		return nil, err
	}

	options := append([]runtime.Option{
		runtime.WithLogger(o.logger),
		runtime.WithTracer(o.tracer),
		runtime.WithBaseContext(ctx),
	}, o.runtimeOptions...)

	s := &Session{
		ctx:      ctx,
		composer: o.composerFor(b.Name()),
		backend:  b,
		mount:    mount,
		runtime:  runtime.New(req.Data, req.Actions, options...),
		page:     page,
	}
	s.rebuildLocked(req.ActiveTab)
	s.unsubscribe = s.runtime.Subscribe(func(map[string]any) {
		s.Refresh()
	})
	return s, nil
}

// Tree returns the current render tree. Callers must not retain it across
// actions; it is replaced on every commit.
func (s *Session) Tree() *node.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree
}

// Runtime exposes the execution context.
func (s *Session) Runtime() *runtime.Context {
	return s.runtime
}

// Page returns the page the session renders.
func (s *Session) Page() schema.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// Mount renders the current tree with the session backend.
func (s *Session) Mount(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	tree := s.tree
	s.mu.Unlock()
	out, err := s.backend.Mount(ctx, tree, s.mount)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: mount %s: %w", s.backend.Name(), err)
	}
	return out, nil
}

// Screen is Mount under the name interactive drivers expect.
func (s *Session) Screen(ctx context.Context) ([]byte, error) {
	return s.Mount(ctx)
}

// SelectTab switches the visible tab without re-rendering. The current tree
// is replaced rather than modified, so a Mount in flight is unaffected.
func (s *Session) SelectTab(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	tree, ok := layout.Select(s.tree, id)
	if ok {
		s.tree = tree
	}
	return ok
}

// Fire triggers event on the component with the given id. It reports false
// when no component has that id or the event is not wired.
func (s *Session) Fire(componentID, event string, payload map[string]any) bool {
	s.mu.Lock()
	target := node.Find(s.tree, componentID)
	s.mu.Unlock()
	return target.Fire(event, payload)
}

// Settle blocks until every dispatched action has finished and the tree
// reflects its result.
func (s *Session) Settle() {
	s.runtime.Wait()
}

// Refresh rebuilds the tree from the latest data.
func (s *Session) Refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rebuildLocked(layout.ActiveTab(s.tree))
}

// Replace swaps the page description, keeping data and the active tab.
func (s *Session) Replace(page schema.Page) error {
	if err := schema.ValidatePage(page); err != nil {
		return fmt.Errorf("orchestrator: %w", err)
	}
	s.mu.Lock()
	s.page = page
	s.mu.Unlock()
	s.Refresh()
	return nil
}

// Close stops tree rebuilds. Actions already dispatched still commit.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// rebuildLocked composes from the runtime's latest data rather than the
// data of the commit that triggered it, so rebuilds racing each other
// converge. s.mu must be held.
func (s *Session) rebuildLocked(activeTab string) {
	if s.closed {
		return
	}
	rc := render.Context{Data: s.runtime.Data(), Dispatch: s.runtime.Dispatch}
	s.tree = s.composer.Compose(s.ctx, s.page, rc, layout.State{ActiveTab: activeTab})
}
