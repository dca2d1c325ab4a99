package expr

import (
	"strconv"
	"strings"
)

// PathResolver resolves a dotted path against evaluation data. Returning an
// error (or panicking) makes the enclosing evaluation fall back.
type PathResolver func(data any, path string) (any, error)

// DefaultResolver is the dotted traversal used when no resolver is supplied.
func DefaultResolver(data any, path string) (any, error) {
	return LookupPath(data, path), nil
}

// LookupPath walks path segment by segment and returns Undefined at the first
// segment that cannot be followed. It never panics on shape mismatches.
func LookupPath(data any, path string) any {
	path = strings.TrimSpace(path)
	if path == "" || data == nil {
		return Undefined
	}

	// Prefer an exact match for flattened dotted keys such as "cta.headline".
	if values, ok := data.(map[string]any); ok {
		if v, ok := values[path]; ok {
			return v
		}
	}

	current := data
	for _, part := range strings.Split(path, ".") {
		part = strings.TrimSpace(part)
		if part == "" {
			return Undefined
		}
		next, ok := step(current, part)
		if !ok {
			return Undefined
		}
		current = next
	}
	return current
}

func step(current any, part string) (any, bool) {
	switch typed := current.(type) {
	case map[string]any:
		next, ok := typed[part]
		return next, ok
	case map[string]string:
		next, ok := typed[part]
		return next, ok
	case []any:
		idx, ok := index(part, len(typed))
		if !ok {
			return nil, false
		}
		return typed[idx], true
	case []map[string]any:
		idx, ok := index(part, len(typed))
		if !ok {
			return nil, false
		}
		return typed[idx], true
	case []string:
		idx, ok := index(part, len(typed))
		if !ok {
			return nil, false
		}
		return typed[idx], true
	default:
		return nil, false
	}
}

func index(part string, length int) (int, bool) {
	idx, err := strconv.Atoi(part)
	if err != nil || idx < 0 || idx >= length {
		return 0, false
	}
	return idx, true
}
