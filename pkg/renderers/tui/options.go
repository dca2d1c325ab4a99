package tui

import "log/slog"

// Theme captures optional prefixes the loop applies when printing messages.
type Theme struct {
	InfoPrefix  string
	ErrorPrefix string
}

// Option configures the interactive loop.
type Option func(*Loop)

// WithPromptDriver overrides the prompt driver used by the loop.
func WithPromptDriver(driver PromptDriver) Option {
	return func(l *Loop) {
		if driver != nil {
			l.driver = driver
		}
	}
}

// WithTheme applies optional message prefixes.
func WithTheme(theme Theme) Option {
	return func(l *Loop) {
		l.theme = theme
	}
}

// WithMaxSteps bounds the number of interactions. Zero means unbounded.
func WithMaxSteps(steps int) Option {
	return func(l *Loop) {
		if steps >= 0 {
			l.maxSteps = steps
		}
	}
}

// WithPageSize sets how many choices the select prompt shows at once.
func WithPageSize(size int) Option {
	return func(l *Loop) {
		if size > 0 {
			l.pageSize = size
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}
