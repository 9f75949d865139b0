package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ProfileValueKind discriminates the variants a profile value can hold.
type ProfileValueKind int

const (
	ProfileValueString ProfileValueKind = iota
	ProfileValueNumber
	ProfileValueBool
	ProfileValueStringList
)

// ProfileValue is the tagged union of value shapes a profile entry may
// carry: string, number, bool, or list of strings. Consumers must
// handle every variant; the JSON form is the underlying scalar/array.
type ProfileValue struct {
	kind ProfileValueKind
	str  string
	num  float64
	b    bool
	list []string
}

// StringValue creates a string-valued ProfileValue
func StringValue(s string) ProfileValue {
	return ProfileValue{kind: ProfileValueString, str: s}
}

// NumberValue creates a number-valued ProfileValue
func NumberValue(n float64) ProfileValue {
	return ProfileValue{kind: ProfileValueNumber, num: n}
}

// BoolValue creates a bool-valued ProfileValue
func BoolValue(b bool) ProfileValue {
	return ProfileValue{kind: ProfileValueBool, b: b}
}

// StringListValue creates a list-valued ProfileValue
func StringListValue(items []string) ProfileValue {
	return ProfileValue{kind: ProfileValueStringList, list: items}
}

// Kind returns the variant held by the value.
func (v ProfileValue) Kind() ProfileValueKind {
	return v.kind
}

// String renders the value for prompt output; list items are joined
// with ", ".
func (v ProfileValue) String() string {
	switch v.kind {
	case ProfileValueNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case ProfileValueBool:
		return strconv.FormatBool(v.b)
	case ProfileValueStringList:
		return strings.Join(v.list, ", ")
	default:
		return v.str
	}
}

// MarshalJSON implements json.Marshaler
func (v ProfileValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case ProfileValueNumber:
		return json.Marshal(v.num)
	case ProfileValueBool:
		return json.Marshal(v.b)
	case ProfileValueStringList:
		if v.list == nil {
			return json.Marshal([]string{})
		}
		return json.Marshal(v.list)
	default:
		return json.Marshal(v.str)
	}
}

// UnmarshalJSON implements json.Unmarshaler
func (v *ProfileValue) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch val := raw.(type) {
	case string:
		*v = StringValue(val)
	case float64:
		*v = NumberValue(val)
	case bool:
		*v = BoolValue(val)
	case []interface{}:
		items := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return ErrInvalidProfileValue
			}
			items = append(items, s)
		}
		*v = StringListValue(items)
	default:
		return ErrInvalidProfileValue
	}

	return nil
}

// ProfileEntry represents a stable characteristic of the space owner.
// Validity is time-windowed; consumers expect at most one currently
// valid value per (category, key), though the store does not enforce
// uniqueness.
type ProfileEntry struct {
	ID         string
	SpaceID    string
	Category   string
	Key        string
	Value      ProfileValue
	Source     Source
	ValidFrom  *time.Time
	ValidUntil *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ValidAt reports whether the entry's validity window covers the given
// instant. Absent bounds leave the window open on that side.
func (e *ProfileEntry) ValidAt(now time.Time) bool {
	if e.ValidFrom != nil && e.ValidFrom.After(now) {
		return false
	}
	if e.ValidUntil != nil && e.ValidUntil.Before(now) {
		return false
	}
	return true
}

// ValidateProfileEntry validates a ProfileEntry instance
func ValidateProfileEntry(e *ProfileEntry) error {
	if e == nil {
		return fmt.Errorf("profile entry cannot be nil")
	}

	if e.ID == "" {
		return fmt.Errorf("profile entry ID is required")
	}

	if e.SpaceID == "" {
		return fmt.Errorf("profile entry SpaceID is required")
	}

	if e.Category == "" {
		return fmt.Errorf("profile entry Category is required")
	}

	if e.Key == "" {
		return fmt.Errorf("profile entry Key is required")
	}

	if !isValidSourceType(e.Source.Type) {
		return fmt.Errorf("profile entry source type is invalid: %s", e.Source.Type)
	}

	return nil
}
