// Package timeutil provides the attendance calendar.
// Every date key is computed in one configured time zone, independent of where
// an event was produced. Taipei (UTC+8, no DST) is the default zone.
package timeutil

import (
	"fmt"
	"regexp"
	"time"
)

// TaipeiTZ is the default attendance time zone (UTC+8, no DST).
var TaipeiTZ = time.FixedZone("Asia/Taipei", 8*60*60)

// Date formats.
const (
	FormatDate  = "2006-01-02"
	FormatMonth = "2006-01"
)

var (
	dateKeyPattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	monthKeyPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)
)

// Calendar computes date keys in a fixed location.
type Calendar struct {
	loc *time.Location
	now func() time.Time
}

// Option configures a Calendar.
type Option func(*Calendar)

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *Calendar) {
		c.now = now
	}
}

// NewCalendar creates a calendar for loc. A nil location falls back to TaipeiTZ.
func NewCalendar(loc *time.Location, opts ...Option) *Calendar {
	if loc == nil {
		loc = TaipeiTZ
	}
	c := &Calendar{loc: loc, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LoadLocation resolves an IANA name, falling back to TaipeiTZ when the
// zone database is not available in the runtime image.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return TaipeiTZ, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		if name == TaipeiTZ.String() {
			return TaipeiTZ, nil
		}
		return nil, fmt.Errorf("load location %q: %w", name, err)
	}
	return loc, nil
}

// Location returns the calendar's time zone.
func (c *Calendar) Location() *time.Location { return c.loc }

// Now returns the current time in the calendar's zone.
func (c *Calendar) Now() time.Time {
	return c.now().In(c.loc)
}

// Today returns today's date key.
func (c *Calendar) Today() string {
	return c.Now().Format(FormatDate)
}

// Key formats t as a date key in the calendar's zone.
func (c *Calendar) Key(t time.Time) string {
	return t.In(c.loc).Format(FormatDate)
}

// LastNDays returns n date keys in ascending order, ending with today.
func (c *Calendar) LastNDays(n int) []string {
	if n <= 0 {
		return []string{}
	}
	today := startOfDay(c.Now())
	keys := make([]string, 0, n)
	for i := n - 1; i >= 0; i-- {
		keys = append(keys, today.AddDate(0, 0, -i).Format(FormatDate))
	}
	return keys
}

// MonthDays returns every date key of the given month in ascending order.
// The current month stops at today and a future month yields no keys.
func (c *Calendar) MonthDays(year int, month time.Month) []string {
	first := time.Date(year, month, 1, 0, 0, 0, 0, c.loc)
	today := startOfDay(c.Now())
	if first.After(today) {
		return []string{}
	}

	keys := make([]string, 0, 31)
	for d := first; d.Month() == first.Month() && !d.After(today); d = d.AddDate(0, 0, 1) {
		keys = append(keys, d.Format(FormatDate))
	}
	return keys
}

// ParseDateKey parses a YYYY-MM-DD key in the calendar's zone.
// Keys that do not round-trip (2025-02-30) are rejected.
func (c *Calendar) ParseDateKey(key string) (time.Time, error) {
	if !dateKeyPattern.MatchString(key) {
		return time.Time{}, fmt.Errorf("invalid date key %q", key)
	}
	t, err := time.ParseInLocation(FormatDate, key, c.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date key %q: %w", key, err)
	}
	return t, nil
}

// IsDateKey reports whether key is a valid calendar date key.
func IsDateKey(key string) bool {
	if !dateKeyPattern.MatchString(key) {
		return false
	}
	_, err := time.Parse(FormatDate, key)
	return err == nil
}

// ParseMonth parses a YYYY-MM token. Month must be 01..12.
func ParseMonth(token string) (int, time.Month, bool) {
	if !monthKeyPattern.MatchString(token) {
		return 0, 0, false
	}
	t, err := time.Parse(FormatMonth, token)
	if err != nil {
		return 0, 0, false
	}
	return t.Year(), t.Month(), true
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
