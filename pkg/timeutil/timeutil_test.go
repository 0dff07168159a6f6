package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedCalendar(t time.Time) *Calendar {
	return NewCalendar(TaipeiTZ, WithClock(func() time.Time { return t }))
}

func TestCalendar_TodayUsesConfiguredZone(t *testing.T) {
	// 17:30 UTC on Aug 1 is already Aug 2 in Taipei.
	cal := fixedCalendar(time.Date(2025, 8, 1, 17, 30, 0, 0, time.UTC))
	assert.Equal(t, "2025-08-02", cal.Today())

	utc := NewCalendar(time.UTC, WithClock(func() time.Time { return time.Date(2025, 8, 1, 17, 30, 0, 0, time.UTC) }))
	assert.Equal(t, "2025-08-01", utc.Today())
}

func TestCalendar_LastNDays(t *testing.T) {
	cal := fixedCalendar(time.Date(2025, 3, 2, 12, 0, 0, 0, TaipeiTZ))

	assert.Equal(t, []string{"2025-02-27", "2025-02-28", "2025-03-01", "2025-03-02"}, cal.LastNDays(4))
	assert.Equal(t, []string{"2025-03-02"}, cal.LastNDays(1))
	assert.Empty(t, cal.LastNDays(0))
	assert.Empty(t, cal.LastNDays(-3))
}

func TestCalendar_MonthDays(t *testing.T) {
	cal := fixedCalendar(time.Date(2025, 8, 10, 9, 0, 0, 0, TaipeiTZ))

	past := cal.MonthDays(2024, time.February)
	require.Len(t, past, 29)
	assert.Equal(t, "2024-02-01", past[0])
	assert.Equal(t, "2024-02-29", past[28])

	current := cal.MonthDays(2025, time.August)
	require.Len(t, current, 10)
	assert.Equal(t, "2025-08-10", current[9])

	assert.Empty(t, cal.MonthDays(2025, time.September))
}

func TestDateKeys(t *testing.T) {
	cal := fixedCalendar(time.Date(2025, 8, 10, 9, 0, 0, 0, TaipeiTZ))

	parsed, err := cal.ParseDateKey("2025-08-01")
	require.NoError(t, err)
	assert.Equal(t, TaipeiTZ, parsed.Location())

	_, err = cal.ParseDateKey("2025-02-30")
	assert.Error(t, err)
	_, err = cal.ParseDateKey("2025-8-1")
	assert.Error(t, err)

	assert.True(t, IsDateKey("2024-02-29"))
	assert.False(t, IsDateKey("2023-02-29"))
	assert.False(t, IsDateKey("20250801"))
}

func TestParseMonth(t *testing.T) {
	y, m, ok := ParseMonth("2025-08")
	require.True(t, ok)
	assert.Equal(t, 2025, y)
	assert.Equal(t, time.August, m)

	for _, bad := range []string{"2025-13", "2025-00", "2025-8", "25-08", "2025-08-01", ""} {
		_, _, ok := ParseMonth(bad)
		assert.False(t, ok, bad)
	}
}

func TestLoadLocation(t *testing.T) {
	loc, err := LoadLocation("")
	require.NoError(t, err)
	assert.Equal(t, TaipeiTZ, loc)

	_, err = LoadLocation("Not/AZone")
	assert.Error(t, err)
}
