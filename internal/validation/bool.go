package validation

import (
	"encoding/json"
	"strings"
)

// Bool is a boolean request field that accepts the usual form spellings
// ("true", "1", "yes", 0, ...). Unrecognised input does not fail decoding;
// Valid is false instead, so callers can report it in their own order.
type Bool struct {
	Value bool
	Valid bool
}

func NewBool(v bool) *Bool { return &Bool{Value: v, Valid: true} }

func (b *Bool) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	b.Value, b.Valid = parseBool(raw)
	return nil
}

func (b Bool) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Value)
}

func parseBool(raw any) (value, ok bool) {
	switch v := raw.(type) {
	case bool:
		return v, true
	case float64:
		switch v {
		case 1:
			return true, true
		case 0:
			return false, true
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "t", "1", "yes", "y", "on":
			return true, true
		case "false", "f", "0", "no", "n", "off":
			return false, true
		}
	}
	return false, false
}
