package model

import (
	"fmt"
	"strings"
	"time"
)

const weekLayout = "2006-01-02"

// Week identifies a reporting week by its Monday. The zero value is not a
// valid week.
type Week struct {
	t time.Time
}

// ParseWeek accepts any YYYY-MM-DD date and normalizes it to the Monday of
// that week.
func ParseWeek(s string) (Week, error) {
	const op = "model.parse_week"
	s = strings.TrimSpace(s)
	if s == "" {
		return Week{}, Invalid(op, "week_of is required")
	}
	t, err := time.Parse(weekLayout, s)
	if err != nil {
		return Week{}, WrapKind(op, ErrValidation, fmt.Errorf("week_of %q must be YYYY-MM-DD", s))
	}
	return weekStart(t), nil
}

// MustWeek is ParseWeek for literals known to be valid.
func MustWeek(s string) Week {
	w, err := ParseWeek(s)
	if err != nil {
		panic(err)
	}
	return w
}

// WeekOf returns the week containing t as observed in loc.
func WeekOf(t time.Time, loc *time.Location) Week {
	if loc == nil {
		loc = time.UTC
	}
	lt := t.In(loc)
	return weekStart(time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, time.UTC))
}

func weekStart(t time.Time) Week {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(d.Weekday()) + 6) % 7 // Monday = 0
	return Week{t: d.AddDate(0, 0, -offset)}
}

// IsZero reports whether w is unset.
func (w Week) IsZero() bool { return w.t.IsZero() }

// Prev returns the preceding week.
func (w Week) Prev() Week { return Week{t: w.t.AddDate(0, 0, -7)} }

// Next returns the following week.
func (w Week) Next() Week { return Week{t: w.t.AddDate(0, 0, 7)} }

// Before reports whether w is earlier than o.
func (w Week) Before(o Week) bool { return w.t.Before(o.t) }

// Time returns midnight UTC of the week's Monday.
func (w Week) Time() time.Time { return w.t }

// WeeksSince returns how many whole weeks lie between o and w (w - o).
func (w Week) WeeksSince(o Week) int {
	return int(w.t.Sub(o.t).Hours() / (24 * 7))
}

func (w Week) String() string {
	if w.t.IsZero() {
		return ""
	}
	return w.t.Format(weekLayout)
}

// Label renders the week for humans, e.g. "January 01, 2024".
func (w Week) Label() string { return w.t.Format("January 02, 2006") }

// MarshalText implements encoding.TextMarshaler.
func (w Week) MarshalText() ([]byte, error) { return []byte(w.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (w *Week) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*w = Week{}
		return nil
	}
	p, err := ParseWeek(string(b))
	if err != nil {
		return err
	}
	*w = p
	return nil
}
