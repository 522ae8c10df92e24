package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestWeekLabel_WednesdayStart(t *testing.T) {
	cal := New(WithWeekStart(time.Wednesday))

	wed := cal.WeekLabel(date(2025, time.January, 1))
	tue := cal.WeekLabel(date(2025, time.January, 7))
	nextWed := cal.WeekLabel(date(2025, time.January, 8))

	assert.Equal(t, "1/1 - 7/1", wed)
	assert.Equal(t, wed, tue)
	assert.NotEqual(t, wed, nextWed)
	assert.Equal(t, "8/1 - 14/1", nextWed)
}

func TestWeekLabel_MondayStart(t *testing.T) {
	cal := New()
	assert.Equal(t, time.Monday, cal.WeekStart())

	// 2025-01-01 is a Wednesday; the Monday week spans the year boundary.
	assert.Equal(t, "30/12 - 5/1", cal.WeekLabel(date(2025, time.January, 1)))
	assert.Equal(t, "30/12 - 5/1", cal.WeekLabel(date(2024, time.December, 30)))
	assert.Equal(t, "6/1 - 12/1", cal.WeekLabel(date(2025, time.January, 6)))
}

func TestStartOfWeek(t *testing.T) {
	tests := []struct {
		name      string
		weekStart time.Weekday
		in        time.Time
		want      time.Time
	}{
		{"monday on monday", time.Monday, date(2025, time.March, 3), date(2025, time.March, 3)},
		{"monday on sunday", time.Monday, date(2025, time.March, 9), date(2025, time.March, 3)},
		{"wednesday on tuesday", time.Wednesday, date(2025, time.March, 4), date(2025, time.February, 26)},
		{"wednesday on wednesday", time.Wednesday, date(2025, time.March, 5), date(2025, time.March, 5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cal := New(WithWeekStart(tt.weekStart))
			assert.Equal(t, tt.want, cal.StartOfWeek(tt.in.Add(15*time.Hour)))
		})
	}
}

func TestRanges(t *testing.T) {
	cal := New()
	now := time.Date(2025, time.March, 12, 14, 30, 0, 0, time.UTC)

	live := cal.Ranges(now, true)
	assert.Equal(t, date(2025, time.March, 12), live.Today.Start)
	assert.Equal(t, now, live.Today.End)
	assert.Equal(t, date(2025, time.March, 6), live.Last7Days.Start)
	assert.Equal(t, now, live.Last7Days.End)

	full := cal.Ranges(now, false)
	endOfToday := time.Date(2025, time.March, 12, 23, 59, 59, int(999*time.Millisecond), time.UTC)
	assert.Equal(t, endOfToday, full.Today.End)
	assert.Equal(t, endOfToday, full.Last7Days.End)

	assert.Equal(t, date(2025, time.March, 11), full.Yesterday.Start)
	assert.Equal(t, EndOfDay(date(2025, time.March, 11)), full.Yesterday.End)

	assert.Equal(t, date(2025, time.March, 10), full.ThisWeek.Start)
	assert.Equal(t, EndOfDay(date(2025, time.March, 16)), full.ThisWeek.End)

	assert.Equal(t, date(2025, time.March, 1), full.ThisMonth.Start)
	assert.Equal(t, EndOfDay(date(2025, time.March, 31)), full.ThisMonth.End)

	assert.Equal(t, date(2025, time.February, 1), full.PreviousMonth.Start)
	assert.Equal(t, EndOfDay(date(2025, time.February, 28)), full.PreviousMonth.End)
}

func TestRanges_JanuaryPreviousMonth(t *testing.T) {
	r := New().Ranges(date(2025, time.January, 15), false)
	assert.Equal(t, date(2024, time.December, 1), r.PreviousMonth.Start)
	assert.Equal(t, EndOfDay(date(2024, time.December, 31)), r.PreviousMonth.End)
}

func TestDateRange_Contains(t *testing.T) {
	r := DayRange(date(2025, time.March, 1), date(2025, time.March, 1))
	assert.True(t, r.Contains(date(2025, time.March, 1)))
	assert.True(t, r.Contains(r.End))
	assert.False(t, r.Contains(date(2025, time.March, 2)))
	assert.False(t, r.Contains(r.Start.Add(-time.Nanosecond)))
}

func TestDaysWeeksMonths(t *testing.T) {
	cal := New(WithExcludedMonths("2025-02"))
	r := DayRange(date(2025, time.January, 30), date(2025, time.March, 2))

	days := cal.Days(r)
	require.Len(t, days, 32)
	assert.Equal(t, date(2025, time.January, 30), days[0])
	assert.Equal(t, date(2025, time.March, 2), days[31])

	weeks := cal.Weeks(r)
	require.Len(t, weeks, 5)
	assert.Equal(t, date(2025, time.January, 27), weeks[0])
	assert.Equal(t, date(2025, time.February, 24), weeks[4])

	months := cal.Months(r)
	require.Len(t, months, 2)
	assert.Equal(t, "Jan 2025", cal.MonthLabel(months[0]))
	assert.Equal(t, "Mar 2025", cal.MonthLabel(months[1]))
	assert.True(t, cal.IsExcluded(date(2025, time.February, 14)))
}

func TestLabels(t *testing.T) {
	cal := New()
	d := date(2025, time.March, 5)
	assert.Equal(t, "Mar 5", cal.DayLabel(d))
	assert.Equal(t, "Mar 2025", cal.MonthLabel(d))
	assert.Equal(t, "2025-03-05", cal.DayKey(d))
	assert.Equal(t, "2025-03", cal.MonthKey(d))
}

func TestWithLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	cal := New(WithLocation(loc))

	// 23:00 UTC on the 4th is already the 5th in UTC+2.
	instant := time.Date(2025, time.March, 4, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-03-05", cal.DayKey(instant))
	assert.Equal(t, time.Date(2025, time.March, 3, 0, 0, 0, 0, loc), cal.StartOfWeek(instant))
}

func TestParseWeekday(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Weekday
		wantErr bool
	}{
		{"", time.Monday, false},
		{"monday", time.Monday, false},
		{"Wednesday", time.Wednesday, false},
		{"wed", time.Wednesday, false},
		{"thu", time.Thursday, false},
		{"noday", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseWeekday(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
