package roles

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownRole is returned when a label does not name a known role.
var ErrUnknownRole = errors.New("roles: unknown role")

// Set is a normalised, de-duplicated role list. It decodes from JSON arrays
// that mix plain labels and objects such as {"name": "State Admin"}.
type Set []Role

type roleObject struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// UnmarshalJSON normalises every entry once at the boundary.
func (s *Set) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("roles: expected array: %w", err)
	}
	labels := make([]string, 0, len(raw))
	for _, item := range raw {
		var label string
		if err := json.Unmarshal(item, &label); err == nil {
			labels = append(labels, label)
			continue
		}
		var obj roleObject
		if err := json.Unmarshal(item, &obj); err != nil {
			return fmt.Errorf("roles: unsupported entry %s", string(item))
		}
		if obj.Name == "" {
			obj.Name = obj.Role
		}
		labels = append(labels, obj.Name)
	}
	parsed, err := FromStrings(labels)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// FromStrings parses labels into a Set, rejecting unknown labels.
func FromStrings(labels []string) (Set, error) {
	out := make(Set, 0, len(labels))
	seen := make(map[Role]struct{}, len(labels))
	for _, label := range labels {
		role, ok := Parse(label)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownRole, label)
		}
		if _, dup := seen[role]; dup {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, role)
	}
	return out, nil
}

// Strings returns the canonical labels.
func (s Set) Strings() []string {
	out := make([]string, len(s))
	for i, r := range s {
		out[i] = string(r)
	}
	return out
}

// Highest returns the most senior role in the set.
func (s Set) Highest() Role {
	return Highest(s)
}
