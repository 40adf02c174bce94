package workdays

import "time"

// Policy selects how the days of a leave are counted.
type Policy int

const (
	// BusinessDays counts Monday to Friday, skipping holidays.
	BusinessDays Policy = iota
	// CalendarDays counts every day.
	CalendarDays
)

func (p Policy) String() string {
	switch p {
	case BusinessDays:
		return "business days"
	case CalendarDays:
		return "calendar days"
	default:
		return "unknown"
	}
}

const dateKeyLayout = "2006-01-02"

// HolidaySet is a set of non-working dates. The zero value is not usable,
// use NewHolidaySet.
type HolidaySet map[string]struct{}

func NewHolidaySet(dates ...time.Time) HolidaySet {
	set := make(HolidaySet, len(dates))
	for _, d := range dates {
		set.Add(d)
	}
	return set
}

func (s HolidaySet) Add(date time.Time) {
	s[date.Format(dateKeyLayout)] = struct{}{}
}

func (s HolidaySet) Contains(date time.Time) bool {
	_, ok := s[date.Format(dateKeyLayout)]
	return ok
}

func (s HolidaySet) Merge(other HolidaySet) {
	for k := range other {
		s[k] = struct{}{}
	}
}

func (s HolidaySet) Len() int {
	return len(s)
}

// Date truncates t to midnight UTC of its calendar day.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func IsWeekend(date time.Time) bool {
	wd := date.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// IsBusinessDay reports whether date is a weekday outside the holiday set.
func IsBusinessDay(date time.Time, holidays HolidaySet) bool {
	return !IsWeekend(date) && !holidays.Contains(date)
}

// Days returns the number of days in [start, end] under the policy,
// 0 when end is before start.
func Days(policy Policy, start, end time.Time, holidays HolidaySet) int {
	start, end = Date(start), Date(end)
	if end.Before(start) {
		return 0
	}

	if policy == CalendarDays {
		return daysBetween(start, end) + 1
	}

	count := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if IsBusinessDay(d, holidays) {
			count++
		}
	}
	return count
}

// EndDate returns the date of the n-th counted day starting at start.
// n <= 0 returns start unchanged.
func EndDate(policy Policy, start time.Time, n int, holidays HolidaySet) time.Time {
	start = Date(start)
	if n <= 0 {
		return start
	}

	if policy == CalendarDays {
		return start.AddDate(0, 0, n-1)
	}

	d := start
	counted := 0
	for {
		if IsBusinessDay(d, holidays) {
			counted++
			if counted == n {
				return d
			}
		}
		d = d.AddDate(0, 0, 1)
	}
}

func daysBetween(start, end time.Time) int {
	// UTC midnights, no DST drift
	return int(end.Sub(start).Hours() / 24)
}
