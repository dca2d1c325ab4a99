package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidPage marks documents that cannot be decoded into a Page.
var ErrInvalidPage = errors.New("schema: invalid page")

// Parse decodes a JSON or YAML page document and checks its shape.
func Parse(data []byte) (Page, error) {
	normalized, err := toJSON(data)
	if err != nil {
		return Page{}, err
	}

	var generic any
	if err := json.Unmarshal(normalized, &generic); err != nil {
		return Page{}, fmt.Errorf("%w: %v", ErrInvalidPage, err)
	}
	if err := Validate(generic); err != nil {
		return Page{}, err
	}

	var page Page
	if err := json.Unmarshal(normalized, &page); err != nil {
		return Page{}, fmt.Errorf("%w: %v", ErrInvalidPage, err)
	}
	return page, nil
}

// ParseDocument decodes the payload held by doc, annotating errors with the
// document location.
func ParseDocument(doc Document) (Page, error) {
	page, err := Parse(doc.Raw())
	if err != nil {
		return Page{}, fmt.Errorf("%s: %w", doc.Location(), err)
	}
	return page, nil
}

// LoadFile reads and parses a page document from disk.
func LoadFile(path string) (Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Page{}, fmt.Errorf("schema: read %s: %w", path, err)
	}
	page, err := Parse(data)
	if err != nil {
		return Page{}, fmt.Errorf("%s: %w", path, err)
	}
	return page, nil
}

// LoadFS walks fsys and parses every JSON/YAML file into a page keyed by its
// id (or its path without extension when the id is empty). Duplicate keys are
// an error. A nil fsys yields an empty map.
func LoadFS(fsys fs.FS) (map[string]Page, error) {
	pages := make(map[string]Page)
	if fsys == nil {
		return pages, nil
	}

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isPageFile(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("schema: read %s: %w", path, err)
		}
		page, err := Parse(data)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		key := strings.TrimSpace(page.ID)
		if key == "" {
			key = strings.TrimSuffix(path, filepath.Ext(path))
		}
		if _, exists := pages[key]; exists {
			return fmt.Errorf("schema: duplicate page %q (file %s)", key, path)
		}
		pages[key] = page
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pages, nil
}

// DecodeData parses a JSON or YAML document into a data map for the
// execution context.
func DecodeData(data []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]any{}, nil
	}
	normalized, err := toJSON(data)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(normalized, &out); err != nil {
		return nil, fmt.Errorf("schema: data must be an object: %w", err)
	}
	return out, nil
}

// toJSON returns data unchanged when it is JSON, otherwise converts YAML to
// JSON so both formats share one decoding path.
func toJSON(data []byte) ([]byte, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: document is empty", ErrInvalidPage)
	}
	if json.Valid(data) {
		return data, nil
	}

	var generic any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON or YAML: %v", ErrInvalidPage, err)
	}
	normalized, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPage, err)
	}
	return normalized, nil
}

func isPageFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
