package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Cursor is an opaque pagination token. The backend may send it as a JSON string or number;
// either way the textual form is kept verbatim and sent back unchanged.
type Cursor string

func (c *Cursor) UnmarshalJSON(b []byte) error {
	s, err := flexibleString(b)
	if err != nil {
		return fmt.Errorf("invalid cursor: %w", err)
	}
	*c = Cursor(s)
	return nil
}

func (c Cursor) String() string { return string(c) }

// RoadID identifies a road geometry. Accepts JSON numbers and strings.
type RoadID string

func (r *RoadID) UnmarshalJSON(b []byte) error {
	s, err := flexibleString(b)
	if err != nil {
		return fmt.Errorf("invalid roadId: %w", err)
	}
	*r = RoadID(s)
	return nil
}

func flexibleString(b []byte) (string, error) {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		return "", nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}
