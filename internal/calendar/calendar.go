// Package calendar computes the date windows and bucket labels shared by the
// dashboard and the report generator.
//
// All ranges are inclusive on both ends and normalized to whole days
// (00:00:00.000 to 23:59:59.999) in the calendar's location. The only
// exception is the live "today" window, whose end bound is "now".
package calendar

import (
	"fmt"
	"strings"
	"time"
)

// DefaultWeekStart is the first day of a calendar week. Weekly buckets and
// the "this week" window both derive from the configured value, so they
// always agree.
const DefaultWeekStart = time.Monday

const (
	dayLayout   = "Jan 2"
	monthLayout = "Jan 2006"
	dayKey      = "2006-01-02"
	monthKey    = "2006-01"
)

// DateRange is an inclusive [Start, End] window.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the range, bounds included.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// IsZero reports whether the range was never set.
func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// StartOfDay returns 00:00:00.000 of t's day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns 23:59:59.999 of t's day in t's location.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Millisecond)
}

// DayRange normalizes [from, to] to full-day bounds.
func DayRange(from, to time.Time) DateRange {
	return DateRange{Start: StartOfDay(from), End: EndOfDay(to)}
}

// Calendar holds the week-start convention, the reporting location, and the
// months excluded from historical enumeration.
type Calendar struct {
	weekStart time.Weekday
	loc       *time.Location
	excluded  map[string]bool
}

// Option configures a Calendar.
type Option func(*Calendar)

// WithWeekStart sets the first day of the week.
func WithWeekStart(d time.Weekday) Option {
	return func(c *Calendar) { c.weekStart = d }
}

// WithLocation sets the location used to derive day boundaries.
func WithLocation(loc *time.Location) Option {
	return func(c *Calendar) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// WithExcludedMonths removes the given months (YYYY-MM) from Months.
func WithExcludedMonths(keys ...string) Option {
	return func(c *Calendar) {
		for _, k := range keys {
			k = strings.TrimSpace(k)
			if k != "" {
				c.excluded[k] = true
			}
		}
	}
}

// New returns a Calendar. Without options it uses DefaultWeekStart, UTC and
// no month exclusions.
func New(opts ...Option) *Calendar {
	c := &Calendar{
		weekStart: DefaultWeekStart,
		loc:       time.UTC,
		excluded:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WeekStart returns the configured first day of the week.
func (c *Calendar) WeekStart() time.Weekday { return c.weekStart }

// Location returns the calendar's location.
func (c *Calendar) Location() *time.Location { return c.loc }

// In converts t into the calendar's location.
func (c *Calendar) In(t time.Time) time.Time { return t.In(c.loc) }

// ParseWeekday maps a day name ("monday", "Wed") to a time.Weekday.
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultWeekStart, nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || (len(s) >= 3 && strings.HasPrefix(name, s)) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

// IsExcluded reports whether the month containing t is excluded.
func (c *Calendar) IsExcluded(t time.Time) bool {
	return c.excluded[c.In(t).Format(monthKey)]
}

// StartOfWeek returns the first instant of the week containing t.
func (c *Calendar) StartOfWeek(t time.Time) time.Time {
	t = StartOfDay(c.In(t))
	diff := (int(t.Weekday()) - int(c.weekStart) + 7) % 7
	return t.AddDate(0, 0, -diff)
}

// EndOfWeek returns the last instant of the week containing t.
func (c *Calendar) EndOfWeek(t time.Time) time.Time {
	return EndOfDay(c.StartOfWeek(t).AddDate(0, 0, 6))
}

// StartOfMonth returns the first instant of t's month.
func (c *Calendar) StartOfMonth(t time.Time) time.Time {
	t = c.In(t)
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, c.loc)
}

// EndOfMonth returns the last instant of t's month.
func (c *Calendar) EndOfMonth(t time.Time) time.Time {
	return c.StartOfMonth(t).AddDate(0, 1, 0).Add(-time.Millisecond)
}

// WeekLabel renders "{d}/{m} - {d}/{m}" for the week containing t. Any two
// dates in the same week produce the same label.
func (c *Calendar) WeekLabel(t time.Time) string {
	start := c.StartOfWeek(t)
	end := start.AddDate(0, 0, 6)
	return fmt.Sprintf("%d/%d - %d/%d", start.Day(), int(start.Month()), end.Day(), int(end.Month()))
}

// MonthLabel renders "Jan 2025".
func (c *Calendar) MonthLabel(t time.Time) string { return c.In(t).Format(monthLayout) }

// DayLabel renders "Jan 5".
func (c *Calendar) DayLabel(t time.Time) string { return c.In(t).Format(dayLayout) }

// DayKey renders the sortable "2006-01-02" key of t's day.
func (c *Calendar) DayKey(t time.Time) string { return c.In(t).Format(dayKey) }

// MonthKey renders the sortable "2006-01" key of t's month.
func (c *Calendar) MonthKey(t time.Time) string { return c.In(t).Format(monthKey) }

// Days enumerates the start of every day touched by r.
func (c *Calendar) Days(r DateRange) []time.Time {
	if r.End.Before(r.Start) {
		return nil
	}
	var out []time.Time
	last := StartOfDay(c.In(r.End))
	for d := StartOfDay(c.In(r.Start)); !d.After(last); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// Weeks enumerates the start of every week touched by r.
func (c *Calendar) Weeks(r DateRange) []time.Time {
	if r.End.Before(r.Start) {
		return nil
	}
	var out []time.Time
	last := c.StartOfWeek(r.End)
	for w := c.StartOfWeek(r.Start); !w.After(last); w = w.AddDate(0, 0, 7) {
		out = append(out, w)
	}
	return out
}

// Months enumerates the start of every month touched by r, skipping
// excluded months.
func (c *Calendar) Months(r DateRange) []time.Time {
	if r.End.Before(r.Start) {
		return nil
	}
	var out []time.Time
	last := c.StartOfMonth(r.End)
	for m := c.StartOfMonth(r.Start); !m.After(last); m = m.AddDate(0, 1, 0) {
		if c.excluded[m.Format(monthKey)] {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Ranges holds the named windows derived from one instant.
type Ranges struct {
	Today         DateRange `json:"today"`
	Yesterday     DateRange `json:"yesterday"`
	ThisWeek      DateRange `json:"thisWeek"`
	ThisMonth     DateRange `json:"thisMonth"`
	PreviousMonth DateRange `json:"previousMonth"`
	Last7Days     DateRange `json:"last7Days"`
}

// Ranges computes the named windows for now. When live is true, "today"
// ends at now instead of at the end of the day.
func (c *Calendar) Ranges(now time.Time, live bool) Ranges {
	now = c.In(now)
	today := StartOfDay(now)
	todayEnd := EndOfDay(now)
	if live {
		todayEnd = now
	}
	yesterday := today.AddDate(0, 0, -1)
	monthStart := c.StartOfMonth(now)
	prevStart := monthStart.AddDate(0, -1, 0)

	return Ranges{
		Today:         DateRange{Start: today, End: todayEnd},
		Yesterday:     DayRange(yesterday, yesterday),
		ThisWeek:      DateRange{Start: c.StartOfWeek(now), End: c.EndOfWeek(now)},
		ThisMonth:     DateRange{Start: monthStart, End: c.EndOfMonth(now)},
		PreviousMonth: DateRange{Start: prevStart, End: monthStart.Add(-time.Millisecond)},
		Last7Days:     DateRange{Start: today.AddDate(0, 0, -6), End: todayEnd},
	}
}
