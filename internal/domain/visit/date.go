package visit

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Date is a calendar date kept as entered (ISO "YYYY-MM-DD" for anything
// written through the API). Rows imported from older sheets may hold text
// that does not parse; callers treat those exactly like a missing date.
type Date string

const isoLayout = "2006-01-02"

var dateLayouts = []string{
	isoLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"02/01/2006",
	"2/1/2006",
}

func NewDate(t time.Time) Date {
	return Date(t.Format(isoLayout))
}

// IsZero reports whether no date was recorded.
func (d Date) IsZero() bool {
	return strings.TrimSpace(string(d)) == ""
}

// Time parses the date to UTC midnight. ok is false when the date is empty
// or does not parse.
func (d Date) Time() (t time.Time, ok bool) {
	raw := strings.TrimSpace(string(d))
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			y, m, day := parsed.Date()
			return time.Date(y, m, day, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// IsValid reports whether the date is empty or parses.
func (d Date) IsValid() bool {
	if d.IsZero() {
		return true
	}
	_, ok := d.Time()
	return ok
}

// Normalize rewrites a parseable date in ISO form and leaves anything else
// untouched.
func (d Date) Normalize() Date {
	if t, ok := d.Time(); ok {
		return NewDate(t)
	}
	return d
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(string(d))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	*d = Date(strings.TrimSpace(s))
	return nil
}

func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return string(d), nil
}

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = ""
	case string:
		*d = Date(v)
	case []byte:
		*d = Date(string(v))
	case time.Time:
		*d = NewDate(v)
	default:
		return fmt.Errorf("cannot scan %T into visit.Date", src)
	}
	return nil
}
