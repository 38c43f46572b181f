package generic

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// =============================================================================
// TIME POINT - Calendar day (leave is requested per day)
// =============================================================================

// DateLayout is the wire and storage format of calendar days.
const DateLayout = "2006-01-02"

type TimePoint struct {
	Time time.Time
}

// Constructors
func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DayOf truncates an instant to its calendar day.
func DayOf(t time.Time) TimePoint {
	return NewTimePoint(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a "YYYY-MM-DD" calendar day.
func ParseDate(s string) (TimePoint, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return TimePoint{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
	}
	return DayOf(t), nil
}

// MustParseDate is ParseDate for literals known to be valid.
func MustParseDate(s string) TimePoint {
	tp, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return tp
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool        { return tp.normalize().Before(other.normalize()) }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.normalize().Equal(other.normalize()) }
func (tp TimePoint) After(other TimePoint) bool         { return tp.normalize().After(other.normalize()) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return tp.Before(other) || tp.Equal(other) }
func (tp TimePoint) AfterOrEqual(other TimePoint) bool  { return tp.After(other) || tp.Equal(other) }

func (tp TimePoint) normalize() time.Time {
	return time.Date(tp.Time.Year(), tp.Time.Month(), tp.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (tp TimePoint) AddDays(n int) TimePoint { return TimePoint{Time: tp.Time.AddDate(0, 0, n)} }

// Properties
func (tp TimePoint) Year() int             { return tp.Time.Year() }
func (tp TimePoint) Weekday() time.Weekday { return tp.Time.Weekday() }
func (tp TimePoint) IsWeekend() bool       { wd := tp.Weekday(); return wd == time.Saturday || wd == time.Sunday }
func (tp TimePoint) IsZero() bool          { return tp.Time.IsZero() }
func (tp TimePoint) String() string        { return tp.Time.Format(DateLayout) }

// SortDates sorts days ascending in place.
func SortDates(dates []TimePoint) {
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
}

// ContainsDate reports whether date is in dates.
func ContainsDate(dates []TimePoint, date TimePoint) bool {
	for _, d := range dates {
		if d.Equal(date) {
			return true
		}
	}
	return false
}

// DateStrings formats days for storage and display.
func DateStrings(dates []TimePoint) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.String()
	}
	return out
}

// ParseDates parses a list of "YYYY-MM-DD" strings.
func ParseDates(ss []string) ([]TimePoint, error) {
	out := make([]TimePoint, 0, len(ss))
	for _, s := range ss {
		d, err := ParseDate(s)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// =============================================================================
// CLOCK - Injected "now" so past/today checks are testable
// =============================================================================

type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ManualClock is a settable clock for tests and demo scenarios.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewManualClock(now time.Time) *ManualClock { return &ManualClock{now: now} }

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *ManualClock) AddDays(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.AddDate(0, 0, n)
}

// Today returns the clock's current calendar day.
func Today(c Clock) TimePoint { return DayOf(c.Now()) }

// =============================================================================
// HOLIDAYS - Non-workable dates per year
// =============================================================================

// Holiday is a company-wide non-workable date.
type Holiday struct {
	Date TimePoint
	Name string
}

// HolidayCalendar answers day-kind questions used by date selectability
// and by the coverage views.
type HolidayCalendar interface {
	// IsHoliday checks if a date is a registered holiday.
	IsHoliday(ctx context.Context, date TimePoint) (bool, error)

	// IsWeekend checks if a date falls on Saturday or Sunday.
	IsWeekend(date TimePoint) bool

	// IsPastOrToday checks if a date is today or earlier.
	IsPastOrToday(date TimePoint) bool
}
