package workdays_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"leave-manager-bot/pkg/workdays"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func TestDays_CalendarPolicy(t *testing.T) {
	start := day(2024, time.January, 10)

	for n := 0; n < 400; n += 7 {
		end := start.AddDate(0, 0, n)
		got := workdays.Days(workdays.CalendarDays, start, end, nil)
		assert.Equal(t, n+1, got, "days for %s..%s", start, end)
		assert.Equal(t, end, workdays.EndDate(workdays.CalendarDays, start, got, nil))
	}
}

func TestDays_EndBeforeStartIsZero(t *testing.T) {
	start := day(2024, time.January, 10)
	end := day(2024, time.January, 9)

	assert.Equal(t, 0, workdays.Days(workdays.CalendarDays, start, end, nil))
	assert.Equal(t, 0, workdays.Days(workdays.BusinessDays, start, end, workdays.NewHolidaySet()))
}

func TestDays_BusinessPolicySkipsWeekendsAndHolidays(t *testing.T) {
	holidays := workdays.NewHolidaySet(day(2024, time.January, 1), day(2024, time.January, 11))

	// January 2024: 23 weekdays, minus two holidays
	got := workdays.Days(workdays.BusinessDays, day(2024, time.January, 1), day(2024, time.January, 31), holidays)
	assert.Equal(t, 21, got)

	// Saturday and Sunday only
	got = workdays.Days(workdays.BusinessDays, day(2024, time.January, 6), day(2024, time.January, 7), holidays)
	assert.Equal(t, 0, got)
}

func TestEndDate_BusinessPolicy(t *testing.T) {
	holidays := workdays.NewHolidaySet(day(2024, time.January, 11), day(2024, time.January, 12))
	start := day(2024, time.January, 8)

	for n := 1; n <= 40; n++ {
		end := workdays.EndDate(workdays.BusinessDays, start, n, holidays)

		assert.False(t, workdays.IsWeekend(end), "n=%d end=%s", n, end)
		assert.False(t, holidays.Contains(end), "n=%d end=%s", n, end)
		assert.Equal(t, n, workdays.Days(workdays.BusinessDays, start, end, holidays), "n=%d", n)
	}
}

func TestEndDate_NonPositiveReturnsStart(t *testing.T) {
	start := day(2024, time.March, 2)

	assert.Equal(t, start, workdays.EndDate(workdays.BusinessDays, start, 0, nil))
	assert.Equal(t, start, workdays.EndDate(workdays.CalendarDays, start, -3, nil))
}

func TestEndDate_BusinessPolicyStartingOnWeekend(t *testing.T) {
	// Saturday: first counted day is the following Monday
	end := workdays.EndDate(workdays.BusinessDays, day(2024, time.January, 6), 1, workdays.NewHolidaySet())
	assert.Equal(t, day(2024, time.January, 8), end)
}

func TestHolidaySet_IgnoresTimeOfDay(t *testing.T) {
	set := workdays.NewHolidaySet(time.Date(2024, time.May, 1, 15, 30, 0, 0, time.UTC))

	assert.True(t, set.Contains(day(2024, time.May, 1)))
	assert.False(t, set.Contains(day(2024, time.May, 2)))

	other := workdays.NewHolidaySet(day(2024, time.May, 2))
	set.Merge(other)
	assert.Equal(t, 2, set.Len())
}
