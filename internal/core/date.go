package core

import (
	"strings"
	"time"
)

// DateLayout is the wire format for calendar dates exchanged with storage.
const DateLayout = "2006-01-02"

// NewDate creates a Date pinned to midday UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 12, 0, 0, 0, time.UTC)}
}

// DateOf drops the time-of-day of t, keeping the calendar day as seen in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseDate accepts "yyyy-MM-dd" optionally followed by a time part
// ("2024-02-10T03:00:00-03:00", "2024-02-10 00:00:00"); only the date is kept.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "T "); i >= 0 {
		s = s[:i]
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return DateOf(t), nil
}

// String returns the storage representation yyyy-MM-dd.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) AddDays(n int) Date {
	return DateOf(d.Time.AddDate(0, 0, n))
}

// StartOfMonth returns the first day of d's month.
func (d Date) StartOfMonth() Date {
	return NewDate(d.Year(), d.Month(), 1)
}

// EndOfMonth returns the last day of d's month.
func (d Date) EndOfMonth() Date {
	return NewDate(d.Year(), d.Month()+1, 0)
}

// AddMonths moves by whole calendar months from the first of d's month, so
// the result never overflows into the following month.
func (d Date) AddMonths(n int) Date {
	return NewDate(d.Year(), d.Month()+time.Month(n), 1)
}

func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool  { return d.Time.After(o.Time) }
func (d Date) Equal(o Date) bool  { return d.Time.Equal(o.Time) }
