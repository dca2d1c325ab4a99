package schema

import (
	"encoding/json"
	"errors"
	"strings"
)

// UnmarshalJSON decodes a descriptor without failing on a wrong shape.
// Fields that do not fit are left zero and the first mismatch is recorded in
// Problem, so one bad descriptor never rejects the page around it. Children
// decode independently of their parent and of each other.
func (c *Component) UnmarshalJSON(data []byte) error {
	type plain Component
	var raw struct {
		plain
		Children []json.RawMessage `json:"children,omitempty"`
	}

	err := json.Unmarshal(data, &raw)
	*c = Component(raw.plain)
	c.Children = nil
	c.Problem = ""
	if err != nil {
		c.Problem = describeDecodeError(err)
		if c.ID == "" {
			c.ID = recoverID(data)
		}
	}

	for _, item := range raw.Children {
		var child Component
		if err := child.UnmarshalJSON(item); err != nil {
			return err
		}
		c.Children = append(c.Children, child)
	}
	return nil
}

func describeDecodeError(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		if typeErr.Field == "" {
			return "descriptor must be an object, got " + typeErr.Value
		}
		return "field " + typeErr.Field + " must be " + typeErr.Type.String() + ", got " + typeErr.Value
	}
	return strings.TrimPrefix(err.Error(), "json: ")
}

// recoverID recovers a string id from a descriptor that failed to decode so
// diagnostics can still name it.
func recoverID(data []byte) string {
	var head struct {
		ID any `json:"id"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return ""
	}
	id, _ := head.ID.(string)
	return id
}
