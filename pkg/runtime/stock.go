package runtime

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrMissingKey is returned by stock actions called without a key param.
var ErrMissingKey = errors.New("runtime: key param is required")

// StockActions returns generic actions for pages driven without custom
// handlers. Each reads a dotted `key` param naming the data field to change:
//
//	set       stores params.value, or the fired event's value
//	toggle    flips a boolean
//	increment adds params.by (default 1)
//	append    appends params.value to a list
func StockActions() []Action {
	return []Action{
		{ID: "set", Handler: setAction},
		{ID: "toggle", Handler: toggleAction},
		{ID: "increment", Handler: incrementAction},
		{ID: "append", Handler: appendAction},
	}
}

func setAction(_ context.Context, params, data map[string]any) (map[string]any, error) {
	value, ok := params["value"]
	if !ok {
		if event, isMap := params["event"].(map[string]any); isMap {
			value = event["value"]
		}
	}
	return update(params, data, func(any) (any, error) { return value, nil })
}

func toggleAction(_ context.Context, params, data map[string]any) (map[string]any, error) {
	return update(params, data, func(current any) (any, error) {
		b, _ := current.(bool)
		return !b, nil
	})
}

func incrementAction(_ context.Context, params, data map[string]any) (map[string]any, error) {
	by, ok := params["by"]
	if !ok {
		by = 1
	}
	return update(params, data, func(current any) (any, error) {
		if current == nil {
			current = 0
		}
		return add(current, by)
	})
}

func appendAction(_ context.Context, params, data map[string]any) (map[string]any, error) {
	return update(params, data, func(current any) (any, error) {
		switch list := current.(type) {
		case nil:
			return []any{params["value"]}, nil
		case []any:
			return append(list, params["value"]), nil
		default:
			return nil, fmt.Errorf("runtime: cannot append to %T", current)
		}
	})
}

// update applies fn to the field named by params.key, creating
// intermediate maps as needed.
func update(params, data map[string]any, fn func(current any) (any, error)) (map[string]any, error) {
	key, _ := params["key"].(string)
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrMissingKey
	}

	parts := strings.Split(key, ".")
	parent := data
	for _, part := range parts[:len(parts)-1] {
		next, ok := parent[part].(map[string]any)
		if !ok {
			if parent[part] != nil {
				return nil, fmt.Errorf("runtime: %s is not an object", part)
			}
			next = map[string]any{}
			parent[part] = next
		}
		parent = next
	}

	leaf := parts[len(parts)-1]
	value, err := fn(parent[leaf])
	if err != nil {
		return nil, err
	}
	parent[leaf] = value
	return data, nil
}

func add(current, by any) (any, error) {
	ci, cInt := current.(int)
	bi, bInt := by.(int)
	if cInt && bInt {
		return ci + bi, nil
	}
	cf, ok := toFloat(current)
	if !ok {
		return nil, fmt.Errorf("runtime: cannot increment %T", current)
	}
	bf, ok := toFloat(by)
	if !ok {
		return nil, fmt.Errorf("runtime: increment by %T", by)
	}
	return cf + bf, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
