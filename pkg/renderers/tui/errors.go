package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("tui: aborted")
	// ErrStepLimit is returned when the loop runs more steps than allowed.
	ErrStepLimit = errors.New("tui: step limit reached")
)
