package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"leave-manager-bot/internal/apperror"
	"leave-manager-bot/internal/models"
	"leave-manager-bot/internal/repository"
	"leave-manager-bot/pkg/workdays"
)

// OfficialCalendar returns the public holidays of a year.
type OfficialCalendar interface {
	Holidays(year int) ([]workdays.Holiday, error)
}

type HolidayService struct {
	repo     repository.HolidayRepository
	calendar OfficialCalendar
	logger   *logrus.Logger
}

func NewHolidayService(repo repository.HolidayRepository, calendar OfficialCalendar, logger *logrus.Logger) *HolidayService {
	return &HolidayService{
		repo:     repo,
		calendar: calendar,
		logger:   logger,
	}
}

// HolidaysForYear refreshes the official holidays of year and returns every
// stored holiday of that year, ordered by date.
func (s *HolidayService) HolidaysForYear(ctx context.Context, year int) ([]models.CustomHoliday, error) {
	if err := s.refresh(ctx, year); err != nil {
		return nil, err
	}
	return s.repo.GetByYear(ctx, year)
}

// HolidaySet returns the non-working dates of [fromYear, toYear].
func (s *HolidayService) HolidaySet(ctx context.Context, fromYear, toYear int) (workdays.HolidaySet, error) {
	set := workdays.NewHolidaySet()
	for year := fromYear; year <= toYear; year++ {
		holidays, err := s.HolidaysForYear(ctx, year)
		if err != nil {
			return nil, err
		}
		for _, h := range holidays {
			set.Add(h.Date)
		}
	}
	return set, nil
}

func (s *HolidayService) AddCustom(ctx context.Context, date, name string) (*models.CustomHoliday, error) {
	d, err := ParseDate(date)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.Validation("holiday name is required")
	}

	holiday := &models.CustomHoliday{Date: d, Name: name, Type: models.HolidayTypeCustom}
	if err := s.repo.Create(ctx, holiday); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"date": d.Format("2006-01-02"),
		"name": name,
	}).Info("Custom holiday added")
	return holiday, nil
}

// UpdateCustom moves or renames the holiday stored at oldDate. The edited
// entry becomes Custom so later refreshes leave it alone.
func (s *HolidayService) UpdateCustom(ctx context.Context, oldDate, newDate, name string) (*models.CustomHoliday, error) {
	from, err := ParseDate(oldDate)
	if err != nil {
		return nil, err
	}
	to, err := ParseDate(newDate)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.Validation("holiday name is required")
	}

	holiday := &models.CustomHoliday{Date: to, Name: name, Type: models.HolidayTypeCustom}
	if err := s.repo.Update(ctx, from, holiday); err != nil {
		return nil, err
	}
	return holiday, nil
}

func (s *HolidayService) DeleteHoliday(ctx context.Context, date string) error {
	d, err := ParseDate(date)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, d); err != nil {
		return err
	}
	s.logger.WithField("date", d.Format("2006-01-02")).Info("Holiday deleted")
	return nil
}

// RestoreAutomatic drops the official holidays of year and imports them
// again. Custom entries are kept. It returns the number of official dates.
func (s *HolidayService) RestoreAutomatic(ctx context.Context, year int) (int, error) {
	if err := s.repo.DeleteAutomaticForYear(ctx, year); err != nil {
		return 0, err
	}
	official, err := s.official(year)
	if err != nil {
		return 0, err
	}
	if err := s.repo.UpsertAutomatic(ctx, official); err != nil {
		return 0, err
	}
	return len(official), nil
}

func (s *HolidayService) refresh(ctx context.Context, year int) error {
	official, err := s.official(year)
	if err != nil {
		return err
	}
	return s.repo.UpsertAutomatic(ctx, official)
}

func (s *HolidayService) official(year int) ([]models.CustomHoliday, error) {
	if s.calendar == nil {
		return nil, nil
	}

	holidays, err := s.calendar.Holidays(year)
	if errors.Is(err, workdays.ErrNoCalendar) {
		s.logger.WithField("year", year).Debug("No official calendar for year")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	result := make([]models.CustomHoliday, 0, len(holidays))
	for _, h := range holidays {
		result = append(result, models.CustomHoliday{
			Date: workdays.Date(h.Date),
			Name: h.Name,
			Type: models.HolidayTypeAutomatic,
			Year: h.Date.Year(),
		})
	}
	return result, nil
}

var dateLayouts = []string{"02/01/2006", "2006-01-02", "02.01.2006"}

// ParseDate accepts dd/mm/yyyy, yyyy-mm-dd and dd.mm.yyyy.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return workdays.Date(t), nil
		}
	}
	return time.Time{}, apperror.Validation("invalid date %q, expected dd/mm/yyyy", value)
}

// FormatDate renders a date the way operators type it.
func FormatDate(t time.Time) string {
	return t.Format("02/01/2006")
}
