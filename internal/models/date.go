package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the wire format of a Date.
const DateLayout = "2006-01-02"

// MaxYear is the last year DateLayout can represent.
const MaxYear = 9999

// Date is a calendar day. The wrapped time is always midnight UTC so that
// day arithmetic never crosses a DST boundary.
type Date struct {
	time.Time
}

// NewDate builds a Date from its parts. Out of range parts are normalised the
// way time.Date does.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// AddDays returns the date n days after d.
func (d Date) AddDays(n int) Date {
	return Date{d.Time.AddDate(0, 0, n)}
}

// DaysSince returns the number of calendar days from other to d.
func (d Date) DaysSince(other Date) int {
	return int((d.Time.Unix() - other.Time.Unix()) / secondsPerDay)
}

const secondsPerDay = 24 * 60 * 60

// InRange reports whether d survives a trip through DateLayout. The zero
// Date is in range.
func (d Date) InRange() bool {
	if d.IsZero() {
		return true
	}
	y := d.Year()
	return y >= 0 && y <= MaxYear
}

// MonthKey returns the YYYY-MM key of d.
func (d Date) MonthKey() string {
	return d.Time.Format("2006-01")
}

// ValidMonth reports whether s is a YYYY-MM month key.
func ValidMonth(s string) bool {
	_, err := time.Parse("2006-01", s)
	return err == nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	if !d.InRange() {
		return nil, fmt.Errorf("date year %d is out of range", d.Year())
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
