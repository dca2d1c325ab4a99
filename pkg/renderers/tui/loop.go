// Package tui drives a rendered page from the terminal. Each step shows the
// current screen, offers the visible tabs and wired events as choices, fires
// the chosen one and waits for the resulting action before redrawing.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/goliatone/go-pagegen/pkg/layout"
	"github.com/goliatone/go-pagegen/pkg/node"
)

// QuitLabel is the last choice of every step.
const QuitLabel = "Quit"

// Session is the running page the loop drives.
type Session interface {
	// Screen mounts the current tree.
	Screen(ctx context.Context) ([]byte, error)
	// Tree returns the current render tree.
	Tree() *node.Node
	// SelectTab makes id the active tab.
	SelectTab(id string) bool
	// Settle blocks until dispatched actions have finished.
	Settle()
}

// Loop runs the prompt cycle.
type Loop struct {
	driver   PromptDriver
	theme    Theme
	maxSteps int
	pageSize int
	logger   *slog.Logger
}

// New constructs a loop with the survey driver unless one is supplied.
func New(options ...Option) *Loop {
	l := &Loop{pageSize: 12}
	for _, opt := range options {
		if opt != nil {
			opt(l)
		}
	}
	if l.driver == nil {
		l.driver = NewSurveyDriver(nil)
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l
}

type choice struct {
	label string
	run   func(ctx context.Context) error
}

// Run drives session until the user quits, aborts or ctx ends. Quitting
// returns nil; aborting returns ErrAborted.
func (l *Loop) Run(ctx context.Context, session Session) error {
	if ctx == nil {
		return errors.New("tui: context is required")
	}
	if session == nil {
		return errors.New("tui: session is required")
	}

	for step := 0; ; step++ {
		if l.maxSteps > 0 && step >= l.maxSteps {
			return ErrStepLimit
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		screen, err := session.Screen(ctx)
		if err != nil {
			return fmt.Errorf("tui: draw screen: %w", err)
		}
		if err := l.driver.Info(ctx, l.theme.InfoPrefix+string(screen)); err != nil {
			return err
		}

		choices := l.choices(session)
		labels := make([]string, 0, len(choices)+1)
		for _, c := range choices {
			labels = append(labels, c.label)
		}
		labels = append(labels, QuitLabel)

		idx, err := l.driver.Select(ctx, SelectConfig{
			Message:  "Choose an action",
			Options:  labels,
			PageSize: l.pageSize,
		})
		if err != nil {
			return err
		}
		if idx < 0 || idx >= len(choices) {
			return nil
		}
		if err := choices[idx].run(ctx); err != nil {
			if errors.Is(err, ErrAborted) || errors.Is(err, context.Canceled) {
				return err
			}
			l.logger.Warn("tui: step failed", "choice", choices[idx].label, "error", err)
			if infoErr := l.driver.Info(ctx, l.theme.ErrorPrefix+err.Error()); infoErr != nil {
				return infoErr
			}
		}
	}
}

func (l *Loop) choices(session Session) []choice {
	tree := session.Tree()
	var out []choice
	for _, tab := range layout.Tabs(tree) {
		if tab.Active {
			continue
		}
		id := tab.ID
		out = append(out, choice{
			label: "Open tab: " + tab.Label,
			run: func(context.Context) error {
				if !session.SelectTab(id) {
					return fmt.Errorf("tui: tab %q is gone", id)
				}
				return nil
			},
		})
	}

	for _, inv := range node.Invocables(tree) {
		target, event := inv.Node, inv.Event
		out = append(out, choice{
			label: fmt.Sprintf("%s %s: %s", target.Type, displayName(target), event),
			run: func(ctx context.Context) error {
				return l.fire(ctx, session, target, event)
			},
		})
	}
	return out
}

// fire collects the event payload, asks for confirmation when the node
// carries a confirm prop and waits for the dispatched action.
func (l *Loop) fire(ctx context.Context, session Session, target *node.Node, event string) error {
	var payload map[string]any
	if strings.EqualFold(target.Type, "Input") {
		value, err := l.driver.Input(ctx, InputConfig{
			Message: displayName(target),
			Default: currentValue(target),
			Help:    target.StringProp("placeholder"),
		})
		if err != nil {
			return err
		}
		payload = map[string]any{"value": value}
	}

	if question := target.StringProp("confirm"); question != "" {
		ok, err := l.driver.Confirm(ctx, ConfirmConfig{Message: question})
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}

	if !target.Fire(event, payload) {
		return fmt.Errorf("tui: %s has no %s handler", displayName(target), event)
	}
	session.Settle()
	return nil
}

func displayName(n *node.Node) string {
	for _, key := range []string{"label", "text", "title"} {
		if s := strings.TrimSpace(n.StringProp(key)); s != "" {
			return s
		}
	}
	if n.ID != "" {
		return n.ID
	}
	return n.Type
}

func currentValue(n *node.Node) string {
	for _, key := range []string{"value", "text"} {
		if value := n.Prop(key); value != nil {
			return fmt.Sprint(value)
		}
	}
	return ""
}
