package workdays

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// CalendarJSON is the production calendar file layout: one file per year,
// days of each month listed as a comma separated string ("1,2,8*,9+").
type CalendarJSON struct {
	Year        int             `json:"year"`
	Months      []MonthHolidays `json:"months"`
	Transitions []Transition    `json:"transitions"`
}

type MonthHolidays struct {
	Month int    `json:"month"`
	Days  string `json:"days"`
}

type Transition struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Holiday is one official non-working date read from a calendar file.
type Holiday struct {
	Date time.Time
	Name string
}

// ErrNoCalendar is returned when no calendar file exists for a year.
var ErrNoCalendar = errors.New("no calendar for year")

// ParseCalendarJSON reads a calendar file and returns its non-working days
// that fall on weekdays. Weekends are computed separately by the policies.
func ParseCalendarJSON(filePath string) ([]Holiday, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoCalendar, filePath)
		}
		return nil, fmt.Errorf("failed to read calendar file: %w", err)
	}

	var calendar CalendarJSON
	if err := json.Unmarshal(data, &calendar); err != nil {
		return nil, fmt.Errorf("failed to unmarshal calendar: %w", err)
	}

	holidays := []Holiday{}
	for _, monthData := range calendar.Months {
		if monthData.Month < 1 || monthData.Month > 12 {
			return nil, fmt.Errorf("invalid month %d in %s", monthData.Month, filePath)
		}

		for _, dayStr := range strings.Split(monthData.Days, ",") {
			dayStr = strings.TrimSpace(dayStr)
			dayStr = strings.TrimSuffix(dayStr, "+")
			// "*" marks a shortened pre-holiday working day, not a holiday
			if strings.HasSuffix(dayStr, "*") || dayStr == "" {
				continue
			}

			day, err := strconv.Atoi(dayStr)
			if err != nil {
				return nil, fmt.Errorf("failed to parse day '%s' in month %d: %w",
					dayStr, monthData.Month, err)
			}

			date := time.Date(calendar.Year, time.Month(monthData.Month), day, 0, 0, 0, 0, time.UTC)
			if date.Month() != time.Month(monthData.Month) {
				return nil, fmt.Errorf("day %d out of range in month %d", day, monthData.Month)
			}
			if IsWeekend(date) {
				continue
			}

			holidays = append(holidays, Holiday{Date: date, Name: "Public holiday"})
		}
	}

	return holidays, nil
}

// FileCalendar serves official holidays from <Dir>/<Country>/<year>.json.
type FileCalendar struct {
	Dir     string
	Country string
}

func NewFileCalendar(dir, country string) *FileCalendar {
	return &FileCalendar{Dir: dir, Country: strings.ToUpper(country)}
}

func (c *FileCalendar) Path(year int) string {
	return filepath.Join(c.Dir, c.Country, fmt.Sprintf("%d.json", year))
}

// Holidays returns the official holidays of a year, ErrNoCalendar when the
// file is missing.
func (c *FileCalendar) Holidays(year int) ([]Holiday, error) {
	holidays, err := ParseCalendarJSON(c.Path(year))
	if err != nil {
		return nil, err
	}

	result := holidays[:0]
	for _, h := range holidays {
		if h.Date.Year() == year {
			result = append(result, h)
		}
	}
	return result, nil
}
