package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"leave-manager-bot/internal/apperror"
	"leave-manager-bot/internal/models"
)

type LeaveRecordRepository interface {
	WithTx(tx *gorm.DB) LeaveRecordRepository
	Create(ctx context.Context, record *models.LeaveRecord) error
	GetByID(ctx context.Context, id uint) (*models.LeaveRecord, error)
	ListByAgent(ctx context.Context, agentID uint) ([]models.LeaveRecord, error)
	ListAll(ctx context.Context) ([]models.LeaveRecord, error)
	ListActiveByType(ctx context.Context, leaveType models.LeaveType) ([]models.LeaveRecord, error)
	FindOverlappingActive(ctx context.Context, agentID uint, start, end time.Time, excludeID uint) ([]models.LeaveRecord, error)
	FindCancelledParent(ctx context.Context, agentID uint, start, end time.Time) (*models.LeaveRecord, error)
	ListActiveWithin(ctx context.Context, agentID uint, start, end time.Time) ([]models.LeaveRecord, error)
	ListActiveOverlapping(ctx context.Context, start, end time.Time) ([]models.LeaveRecord, error)
	SetStatus(ctx context.Context, id uint, status models.LeaveStatus) error
	Delete(ctx context.Context, id uint) error
	CountByTypeAndStatus(ctx context.Context) ([]LeaveCount, error)
}

// LeaveCount is one row of the per type/status statistics.
type LeaveCount struct {
	Type   models.LeaveType
	Status models.LeaveStatus
	Count  int64
}

type GormLeaveRecordRepository struct {
	db *gorm.DB
}

func NewGormLeaveRecordRepository(db *gorm.DB) (LeaveRecordRepository, error) {
	if err := db.AutoMigrate(&models.LeaveRecord{}); err != nil {
		return nil, err
	}
	return &GormLeaveRecordRepository{db: db}, nil
}

func (r *GormLeaveRecordRepository) WithTx(tx *gorm.DB) LeaveRecordRepository {
	return &GormLeaveRecordRepository{db: tx}
}

func (r *GormLeaveRecordRepository) Create(ctx context.Context, record *models.LeaveRecord) error {
	if record.Status == "" {
		record.Status = models.LeaveStatusActive
	}
	return apperror.Persistence(r.db.WithContext(ctx).Create(record).Error, "failed to create leave record")
}

func (r *GormLeaveRecordRepository) GetByID(ctx context.Context, id uint) (*models.LeaveRecord, error) {
	var record models.LeaveRecord
	err := r.db.WithContext(ctx).First(&record, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.Persistence(err, "failed to get leave record")
	}
	return &record, nil
}

func (r *GormLeaveRecordRepository) ListByAgent(ctx context.Context, agentID uint) ([]models.LeaveRecord, error) {
	var records []models.LeaveRecord
	err := r.db.WithContext(ctx).
		Where("agent_id = ?", agentID).
		Order("start_date DESC").
		Find(&records).Error
	return records, apperror.Persistence(err, "failed to list leave records")
}

func (r *GormLeaveRecordRepository) ListAll(ctx context.Context) ([]models.LeaveRecord, error) {
	var records []models.LeaveRecord
	err := r.db.WithContext(ctx).Order("start_date DESC").Find(&records).Error
	return records, apperror.Persistence(err, "failed to list leave records")
}

func (r *GormLeaveRecordRepository) ListActiveByType(ctx context.Context, leaveType models.LeaveType) ([]models.LeaveRecord, error) {
	var records []models.LeaveRecord
	err := r.db.WithContext(ctx).
		Where("type = ? AND status = ?", leaveType, models.LeaveStatusActive).
		Order("start_date DESC").
		Find(&records).Error
	return records, apperror.Persistence(err, "failed to list leave records")
}

func (r *GormLeaveRecordRepository) FindOverlappingActive(ctx context.Context, agentID uint, start, end time.Time, excludeID uint) ([]models.LeaveRecord, error) {
	query := r.db.WithContext(ctx).
		Where("agent_id = ? AND status = ?", agentID, models.LeaveStatusActive).
		Where("end_date >= ? AND start_date <= ?", start, end)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}

	var records []models.LeaveRecord
	err := query.Order("start_date").Find(&records).Error
	return records, apperror.Persistence(err, "failed to check overlapping leaves")
}

// FindCancelledParent returns the latest cancelled annual record of the agent
// whose period contains [start, end] or is contained by it.
func (r *GormLeaveRecordRepository) FindCancelledParent(ctx context.Context, agentID uint, start, end time.Time) (*models.LeaveRecord, error) {
	var record models.LeaveRecord
	err := r.db.WithContext(ctx).
		Where("agent_id = ? AND type = ? AND status = ?", agentID, models.LeaveTypeAnnual, models.LeaveStatusCancelled).
		Where("((start_date <= ? AND end_date >= ?) OR (start_date >= ? AND end_date <= ?))",
			start, end,
			start, end).
		Order("start_date DESC").
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.Persistence(err, "failed to look up cancelled parent leave")
	}
	return &record, nil
}

func (r *GormLeaveRecordRepository) ListActiveWithin(ctx context.Context, agentID uint, start, end time.Time) ([]models.LeaveRecord, error) {
	var records []models.LeaveRecord
	err := r.db.WithContext(ctx).
		Where("agent_id = ? AND status = ?", agentID, models.LeaveStatusActive).
		Where("start_date >= ? AND end_date <= ?", start, end).
		Order("start_date").
		Find(&records).Error
	return records, apperror.Persistence(err, "failed to list leave segments")
}

// ListActiveOverlapping returns the Active leaves of every agent touching
// [start, end], ordered by agent then start date.
func (r *GormLeaveRecordRepository) ListActiveOverlapping(ctx context.Context, start, end time.Time) ([]models.LeaveRecord, error) {
	var records []models.LeaveRecord
	err := r.db.WithContext(ctx).
		Where("status = ?", models.LeaveStatusActive).
		Where("end_date >= ? AND start_date <= ?", start, end).
		Order("agent_id, start_date").
		Find(&records).Error
	return records, apperror.Persistence(err, "failed to list leaves for period")
}

func (r *GormLeaveRecordRepository) SetStatus(ctx context.Context, id uint, status models.LeaveStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.LeaveRecord{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return apperror.Persistence(result.Error, "failed to update leave status")
	}
	if result.RowsAffected == 0 {
		return apperror.NotFound("leave %d not found", id)
	}
	return nil
}

func (r *GormLeaveRecordRepository) Delete(ctx context.Context, id uint) error {
	return apperror.Persistence(r.db.WithContext(ctx).Delete(&models.LeaveRecord{}, id).Error, "failed to delete leave record")
}

func (r *GormLeaveRecordRepository) CountByTypeAndStatus(ctx context.Context) ([]LeaveCount, error) {
	var counts []LeaveCount
	err := r.db.WithContext(ctx).
		Model(&models.LeaveRecord{}).
		Select("type, status, COUNT(*) AS count").
		Group("type, status").
		Scan(&counts).Error
	return counts, apperror.Persistence(err, "failed to count leave records")
}
