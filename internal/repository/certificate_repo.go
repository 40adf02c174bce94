package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"leave-manager-bot/internal/apperror"
	"leave-manager-bot/internal/models"
)

type CertificateRepository interface {
	WithTx(tx *gorm.DB) CertificateRepository
	GetByLeaveID(ctx context.Context, leaveID uint) (*models.Certificate, error)
	GetByLeaveIDs(ctx context.Context, leaveIDs []uint) (map[uint]models.Certificate, error)
	Upsert(ctx context.Context, cert *models.Certificate) error
	DeleteByLeaveID(ctx context.Context, leaveID uint) error
	ListPathsByAgent(ctx context.Context, agentID uint) ([]string, error)
}

type GormCertificateRepository struct {
	db *gorm.DB
}

func NewGormCertificateRepository(db *gorm.DB) (CertificateRepository, error) {
	if err := db.AutoMigrate(&models.Certificate{}); err != nil {
		return nil, err
	}
	return &GormCertificateRepository{db: db}, nil
}

func (r *GormCertificateRepository) WithTx(tx *gorm.DB) CertificateRepository {
	return &GormCertificateRepository{db: tx}
}

func (r *GormCertificateRepository) GetByLeaveID(ctx context.Context, leaveID uint) (*models.Certificate, error) {
	var cert models.Certificate
	err := r.db.WithContext(ctx).Where("leave_id = ?", leaveID).First(&cert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.Persistence(err, "failed to get certificate")
	}
	return &cert, nil
}

func (r *GormCertificateRepository) GetByLeaveIDs(ctx context.Context, leaveIDs []uint) (map[uint]models.Certificate, error) {
	result := make(map[uint]models.Certificate, len(leaveIDs))
	if len(leaveIDs) == 0 {
		return result, nil
	}

	var certs []models.Certificate
	if err := r.db.WithContext(ctx).Where("leave_id IN ?", leaveIDs).Find(&certs).Error; err != nil {
		return nil, apperror.Persistence(err, "failed to list certificates")
	}
	for _, c := range certs {
		result[c.LeaveID] = c
	}
	return result, nil
}

// Upsert inserts the certificate or replaces the one already attached to
// the same leave record.
func (r *GormCertificateRepository) Upsert(ctx context.Context, cert *models.Certificate) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "leave_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"doctor_name", "days", "file_path", "updated_at"}),
	}).Create(cert).Error
	return apperror.Persistence(err, "failed to save certificate")
}

func (r *GormCertificateRepository) DeleteByLeaveID(ctx context.Context, leaveID uint) error {
	err := r.db.WithContext(ctx).Where("leave_id = ?", leaveID).Delete(&models.Certificate{}).Error
	return apperror.Persistence(err, "failed to delete certificate")
}

func (r *GormCertificateRepository) ListPathsByAgent(ctx context.Context, agentID uint) ([]string, error) {
	var paths []string
	err := r.db.WithContext(ctx).
		Model(&models.Certificate{}).
		Joins("JOIN leave_records ON leave_records.id = certificates.leave_id").
		Where("leave_records.agent_id = ?", agentID).
		Pluck("certificates.file_path", &paths).Error
	return paths, apperror.Persistence(err, "failed to list certificate files")
}
