package timeoff

import (
	"context"
	"sync"

	"github.com/warp/vacation-engine/generic"
)

// =============================================================================
// CALENDAR - Holidays, weekends and "today" for date selectability
// =============================================================================

// Calendar implements generic.HolidayCalendar over a HolidayStore. Each year
// is loaded once and cached until an admin edits that year's holidays.
type Calendar struct {
	Holidays generic.HolidayStore
	Clock    generic.Clock

	mu    sync.RWMutex
	years map[int]map[string]string // year -> date -> name
}

var _ generic.HolidayCalendar = (*Calendar)(nil)

func NewCalendar(holidays generic.HolidayStore, clock generic.Clock) *Calendar {
	if clock == nil {
		clock = generic.SystemClock{}
	}
	return &Calendar{
		Holidays: holidays,
		Clock:    clock,
		years:    make(map[int]map[string]string),
	}
}

// IsHoliday checks if a date is a registered holiday.
func (c *Calendar) IsHoliday(ctx context.Context, date generic.TimePoint) (bool, error) {
	_, ok, err := c.HolidayName(ctx, date)
	return ok, err
}

// HolidayName returns the name of the holiday on date, if any.
func (c *Calendar) HolidayName(ctx context.Context, date generic.TimePoint) (string, bool, error) {
	year, err := c.year(ctx, date.Year())
	if err != nil {
		return "", false, err
	}
	name, ok := year[date.String()]
	return name, ok, nil
}

func (c *Calendar) IsWeekend(date generic.TimePoint) bool {
	return date.IsWeekend()
}

func (c *Calendar) IsPastOrToday(date generic.TimePoint) bool {
	return date.BeforeOrEqual(generic.Today(c.Clock))
}

// Selectable returns a ValidationError when date cannot be requested:
// it is today or earlier, a weekend, or a holiday.
func (c *Calendar) Selectable(ctx context.Context, date generic.TimePoint) error {
	if c.IsPastOrToday(date) {
		return generic.Invalid("dates", "%s is not in the future", date)
	}
	if c.IsWeekend(date) {
		return generic.Invalid("dates", "%s falls on a weekend", date)
	}
	name, ok, err := c.HolidayName(ctx, date)
	if err != nil {
		return err
	}
	if ok {
		return generic.Invalid("dates", "%s is a holiday (%s)", date, name)
	}
	return nil
}

func (c *Calendar) year(ctx context.Context, year int) (map[string]string, error) {
	c.mu.RLock()
	cached, ok := c.years[year]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	holidays, err := c.Holidays.HolidaysForYear(ctx, year)
	if err != nil {
		return nil, err
	}
	loaded := make(map[string]string, len(holidays))
	for _, h := range holidays {
		loaded[h.Date.String()] = h.Name
	}

	c.mu.Lock()
	c.years[year] = loaded
	c.mu.Unlock()
	return loaded, nil
}

// Invalidate drops the cached holidays of a year.
func (c *Calendar) Invalidate(year int) {
	c.mu.Lock()
	delete(c.years, year)
	c.mu.Unlock()
}

// InvalidateAll drops every cached year, e.g. after the store was reset.
func (c *Calendar) InvalidateAll() {
	c.mu.Lock()
	c.years = make(map[int]map[string]string)
	c.mu.Unlock()
}

// =============================================================================
// HOLIDAY ADMINISTRATION
// =============================================================================

func (c *Calendar) List(ctx context.Context, year int) ([]generic.Holiday, error) {
	return c.Holidays.HolidaysForYear(ctx, year)
}

func (c *Calendar) Add(ctx context.Context, h generic.Holiday) error {
	if h.Date.IsZero() {
		return generic.Invalid("date", "holiday date is required")
	}
	if h.Name == "" {
		return generic.Invalid("name", "holiday name is required")
	}
	if err := c.Holidays.SaveHoliday(ctx, h); err != nil {
		return err
	}
	c.Invalidate(h.Date.Year())
	return nil
}

func (c *Calendar) Remove(ctx context.Context, date generic.TimePoint) error {
	if err := c.Holidays.DeleteHoliday(ctx, date); err != nil {
		return err
	}
	c.Invalidate(date.Year())
	return nil
}
