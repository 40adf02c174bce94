package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"leave-manager-bot/internal/apperror"
	"leave-manager-bot/internal/models"
)

type HolidayRepository interface {
	WithTx(tx *gorm.DB) HolidayRepository
	GetByYear(ctx context.Context, year int) ([]models.CustomHoliday, error)
	GetByYearRange(ctx context.Context, fromYear, toYear int) ([]models.CustomHoliday, error)
	GetByDate(ctx context.Context, date time.Time) (*models.CustomHoliday, error)
	UpsertAutomatic(ctx context.Context, holidays []models.CustomHoliday) error
	Create(ctx context.Context, holiday *models.CustomHoliday) error
	Update(ctx context.Context, oldDate time.Time, holiday *models.CustomHoliday) error
	Delete(ctx context.Context, date time.Time) error
	DeleteAutomaticForYear(ctx context.Context, year int) error
}

type GormHolidayRepository struct {
	db *gorm.DB
}

func NewGormHolidayRepository(db *gorm.DB) (HolidayRepository, error) {
	if err := db.AutoMigrate(&models.CustomHoliday{}); err != nil {
		return nil, err
	}
	return &GormHolidayRepository{db: db}, nil
}

func (r *GormHolidayRepository) WithTx(tx *gorm.DB) HolidayRepository {
	return &GormHolidayRepository{db: tx}
}

func (r *GormHolidayRepository) GetByYear(ctx context.Context, year int) ([]models.CustomHoliday, error) {
	return r.GetByYearRange(ctx, year, year)
}

func (r *GormHolidayRepository) GetByYearRange(ctx context.Context, fromYear, toYear int) ([]models.CustomHoliday, error) {
	var holidays []models.CustomHoliday
	err := r.db.WithContext(ctx).
		Where("year BETWEEN ? AND ?", fromYear, toYear).
		Order("date").
		Find(&holidays).Error
	return holidays, apperror.Persistence(err, "failed to get holidays")
}

func (r *GormHolidayRepository) GetByDate(ctx context.Context, date time.Time) (*models.CustomHoliday, error) {
	var holiday models.CustomHoliday
	err := r.db.WithContext(ctx).Where("date = ?", date).First(&holiday).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.Persistence(err, "failed to get holiday")
	}
	return &holiday, nil
}

// UpsertAutomatic stores official holidays. A Custom entry on the same date
// is left untouched.
func (r *GormHolidayRepository) UpsertAutomatic(ctx context.Context, holidays []models.CustomHoliday) error {
	if len(holidays) == 0 {
		return nil
	}
	for i := range holidays {
		holidays[i].Type = models.HolidayTypeAutomatic
		holidays[i].Year = holidays[i].Date.Year()
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "custom_holidays.type = ?", Vars: []interface{}{models.HolidayTypeAutomatic}},
		}},
	}).Create(&holidays).Error
	return apperror.Persistence(err, "failed to refresh official holidays")
}

func (r *GormHolidayRepository) Create(ctx context.Context, holiday *models.CustomHoliday) error {
	holiday.Year = holiday.Date.Year()
	existing, err := r.GetByDate(ctx, holiday.Date)
	if err != nil {
		return err
	}
	if existing != nil {
		return apperror.Validation("a holiday already exists on %s", holiday.Date.Format("02/01/2006"))
	}

	err = r.db.WithContext(ctx).Create(holiday).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperror.Validation("a holiday already exists on %s", holiday.Date.Format("02/01/2006"))
	}
	return apperror.Persistence(err, "failed to create holiday")
}

// Update rewrites the holiday stored at oldDate. The date is the primary key,
// so a date change is a delete followed by an insert.
func (r *GormHolidayRepository) Update(ctx context.Context, oldDate time.Time, holiday *models.CustomHoliday) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("date = ?", oldDate).Delete(&models.CustomHoliday{})
		if result.Error != nil {
			return apperror.Persistence(result.Error, "failed to update holiday")
		}
		if result.RowsAffected == 0 {
			return apperror.NotFound("no holiday on %s", oldDate.Format("02/01/2006"))
		}
		return (&GormHolidayRepository{db: tx}).Create(ctx, holiday)
	})
}

func (r *GormHolidayRepository) Delete(ctx context.Context, date time.Time) error {
	result := r.db.WithContext(ctx).Where("date = ?", date).Delete(&models.CustomHoliday{})
	if result.Error != nil {
		return apperror.Persistence(result.Error, "failed to delete holiday")
	}
	if result.RowsAffected == 0 {
		return apperror.NotFound("no holiday on %s", date.Format("02/01/2006"))
	}
	return nil
}

func (r *GormHolidayRepository) DeleteAutomaticForYear(ctx context.Context, year int) error {
	err := r.db.WithContext(ctx).
		Where("year = ? AND type = ?", year, models.HolidayTypeAutomatic).
		Delete(&models.CustomHoliday{}).Error
	return apperror.Persistence(err, "failed to reset official holidays")
}
