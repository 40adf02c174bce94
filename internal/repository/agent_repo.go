package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"leave-manager-bot/internal/apperror"
	"leave-manager-bot/internal/models"
)

// AgentFilter narrows agent listings. Zero values mean "no constraint".
type AgentFilter struct {
	Term      string
	ExcludeID uint
	Limit     int
	Offset    int
}

type AgentRepository interface {
	WithTx(tx *gorm.DB) AgentRepository
	Create(ctx context.Context, agent *models.Agent) error
	Update(ctx context.Context, agent *models.Agent) error
	Delete(ctx context.Context, id uint) error
	GetByID(ctx context.Context, id uint) (*models.Agent, error)
	GetByPersonnelNumber(ctx context.Context, number string) (*models.Agent, error)
	List(ctx context.Context, filter AgentFilter) ([]models.Agent, error)
	Count(ctx context.Context, term string) (int64, error)
	SetBalance(ctx context.Context, id uint, balance decimal.Decimal) error
	TotalBalance(ctx context.Context) (decimal.Decimal, error)
}

type GormAgentRepository struct {
	db *gorm.DB
}

func NewGormAgentRepository(db *gorm.DB) (AgentRepository, error) {
	if err := db.AutoMigrate(&models.Agent{}); err != nil {
		return nil, err
	}
	return &GormAgentRepository{db: db}, nil
}

func (r *GormAgentRepository) WithTx(tx *gorm.DB) AgentRepository {
	return &GormAgentRepository{db: tx}
}

func (r *GormAgentRepository) Create(ctx context.Context, agent *models.Agent) error {
	return apperror.Persistence(r.db.WithContext(ctx).Create(agent).Error, "failed to create agent")
}

func (r *GormAgentRepository) Update(ctx context.Context, agent *models.Agent) error {
	result := r.db.WithContext(ctx).
		Model(&models.Agent{}).
		Where("id = ?", agent.ID).
		Select("last_name", "first_name", "personnel_number", "grade", "balance").
		Updates(agent)
	if result.Error != nil {
		return apperror.Persistence(result.Error, "failed to update agent")
	}
	if result.RowsAffected == 0 {
		return apperror.NotFound("agent %d not found", agent.ID)
	}
	return nil
}

func (r *GormAgentRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Agent{}, id)
	if result.Error != nil {
		return apperror.Persistence(result.Error, "failed to delete agent")
	}
	if result.RowsAffected == 0 {
		return apperror.NotFound("agent %d not found", id)
	}
	return nil
}

func (r *GormAgentRepository) GetByID(ctx context.Context, id uint) (*models.Agent, error) {
	var agent models.Agent
	err := r.db.WithContext(ctx).First(&agent, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.Persistence(err, "failed to get agent")
	}
	return &agent, nil
}

func (r *GormAgentRepository) GetByPersonnelNumber(ctx context.Context, number string) (*models.Agent, error) {
	if number == "" {
		return nil, nil
	}

	var agent models.Agent
	err := r.db.WithContext(ctx).Where("personnel_number = ?", number).First(&agent).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.Persistence(err, "failed to get agent by personnel number")
	}
	return &agent, nil
}

func (r *GormAgentRepository) List(ctx context.Context, filter AgentFilter) ([]models.Agent, error) {
	query := r.search(r.db.WithContext(ctx).Model(&models.Agent{}), filter.Term)
	if filter.ExcludeID != 0 {
		query = query.Where("id <> ?", filter.ExcludeID)
	}
	query = query.Order("last_name, first_name")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}

	var agents []models.Agent
	if err := query.Find(&agents).Error; err != nil {
		return nil, apperror.Persistence(err, "failed to list agents")
	}
	return agents, nil
}

func (r *GormAgentRepository) Count(ctx context.Context, term string) (int64, error) {
	var count int64
	err := r.search(r.db.WithContext(ctx).Model(&models.Agent{}), term).Count(&count).Error
	return count, apperror.Persistence(err, "failed to count agents")
}

func (r *GormAgentRepository) SetBalance(ctx context.Context, id uint, balance decimal.Decimal) error {
	result := r.db.WithContext(ctx).
		Model(&models.Agent{}).
		Where("id = ?", id).
		Update("balance", balance)
	if result.Error != nil {
		return apperror.Persistence(result.Error, "failed to update agent balance")
	}
	if result.RowsAffected == 0 {
		return apperror.NotFound("agent %d not found", id)
	}
	return nil
}

func (r *GormAgentRepository) TotalBalance(ctx context.Context) (decimal.Decimal, error) {
	var agents []models.Agent
	if err := r.db.WithContext(ctx).Select("balance").Find(&agents).Error; err != nil {
		return decimal.Zero, apperror.Persistence(err, "failed to sum balances")
	}

	total := decimal.Zero
	for _, a := range agents {
		total = total.Add(a.Balance)
	}
	return total, nil
}

func (r *GormAgentRepository) search(query *gorm.DB, term string) *gorm.DB {
	term = strings.TrimSpace(strings.ToLower(term))
	if term == "" {
		return query
	}
	like := "%" + term + "%"
	return query.Where("(LOWER(last_name) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(personnel_number) LIKE ?)",
		like, like, like)
}
