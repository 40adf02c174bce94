package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"leave-manager-bot/internal/apperror"
	"leave-manager-bot/internal/config"
	"leave-manager-bot/internal/models"
	"leave-manager-bot/internal/repository"
)

// AgentInput carries the editable fields of an agent as typed by the operator.
type AgentInput struct {
	LastName        string
	FirstName       string
	PersonnelNumber string
	Grade           string
	Balance         string
}

// AgentPage is one page of an agent listing.
type AgentPage struct {
	Agents []models.Agent
	Page   int
	Pages  int
	Total  int64
}

type AgentService struct {
	gw     *repository.Gateway
	cfg    config.AgentConfig
	logger *logrus.Logger
}

func NewAgentService(gw *repository.Gateway, cfg config.AgentConfig, logger *logrus.Logger) *AgentService {
	return &AgentService{gw: gw, cfg: cfg, logger: logger}
}

func (s *AgentService) Create(ctx context.Context, in AgentInput) (*models.Agent, error) {
	agent := &models.Agent{}
	if err := s.apply(ctx, agent, in); err != nil {
		return nil, err
	}

	if err := s.gw.Agents().Create(ctx, agent); err != nil {
		return nil, s.translate(err, agent)
	}

	s.logger.WithFields(logrus.Fields{
		"agent_id": agent.ID,
		"name":     agent.FullName(),
		"balance":  agent.Balance.String(),
	}).Info("Agent created")
	return agent, nil
}

func (s *AgentService) Update(ctx context.Context, id uint, in AgentInput) (*models.Agent, error) {
	agent, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, agent, in); err != nil {
		return nil, err
	}

	if err := s.gw.Agents().Update(ctx, agent); err != nil {
		return nil, s.translate(err, agent)
	}

	s.logger.WithFields(logrus.Fields{
		"agent_id": agent.ID,
		"balance":  agent.Balance.String(),
	}).Info("Agent updated")
	return agent, nil
}

// Delete removes the agent with its leaves and certificates.
func (s *AgentService) Delete(ctx context.Context, id uint) error {
	err := s.gw.RunInTx(ctx, func(tx *repository.Tx) error {
		return tx.DeleteAgent(ctx, id)
	})
	if err != nil {
		return err
	}
	s.logger.WithField("agent_id", id).Info("Agent deleted")
	return nil
}

func (s *AgentService) Get(ctx context.Context, id uint) (*models.Agent, error) {
	agent, err := s.gw.GetAgent(ctx, id)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, apperror.NotFound("agent %d not found", id)
	}
	return agent, nil
}

// List returns the 1-based page of agents matching term.
func (s *AgentService) List(ctx context.Context, term string, page int) (*AgentPage, error) {
	total, err := s.gw.Agents().Count(ctx, term)
	if err != nil {
		return nil, err
	}

	size := s.cfg.PageSize
	if size <= 0 {
		size = 20
	}
	pages := int((total + int64(size) - 1) / int64(size))
	if pages == 0 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}

	agents, err := s.gw.Agents().List(ctx, repository.AgentFilter{
		Term:   term,
		Limit:  size,
		Offset: (page - 1) * size,
	})
	if err != nil {
		return nil, err
	}
	return &AgentPage{Agents: agents, Page: page, Pages: pages, Total: total}, nil
}

func (s *AgentService) Count(ctx context.Context, term string) (int64, error) {
	return s.gw.Agents().Count(ctx, term)
}

func (s *AgentService) apply(ctx context.Context, agent *models.Agent, in AgentInput) error {
	lastName := strings.TrimSpace(in.LastName)
	if lastName == "" {
		return apperror.Validation("last name is required")
	}
	grade := strings.TrimSpace(in.Grade)
	if !s.cfg.ValidGrade(grade) {
		return apperror.Validation("unknown grade %q, expected one of: %s", grade, strings.Join(s.cfg.Grades, ", "))
	}

	balance := decimal.Zero
	if b := strings.TrimSpace(strings.ReplaceAll(in.Balance, ",", ".")); b != "" {
		var err error
		if balance, err = decimal.NewFromString(b); err != nil {
			return apperror.Validation("invalid balance %q", in.Balance)
		}
	}
	if balance.IsNegative() {
		return apperror.Validation("balance cannot be negative")
	}

	var ppr *string
	if p := strings.TrimSpace(in.PersonnelNumber); p != "" {
		existing, err := s.gw.Agents().GetByPersonnelNumber(ctx, p)
		if err != nil {
			return err
		}
		if existing != nil && existing.ID != agent.ID {
			return apperror.Validation("personnel number %s is already used by %s", p, existing.FullName())
		}
		ppr = &p
	}

	agent.LastName = strings.ToUpper(lastName)
	agent.FirstName = strings.TrimSpace(in.FirstName)
	agent.PersonnelNumber = ppr
	agent.Grade = grade
	agent.Balance = balance.Round(2)
	return nil
}

func (s *AgentService) translate(err error, agent *models.Agent) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperror.Validation("personnel number %s is already used", agent.PersonnelNumberOr("-"))
	}
	return err
}

// FormatAgent renders an agent card.
func FormatAgent(agent *models.Agent) string {
	lines := []string{
		fmt.Sprintf("👤 %s (#%d)", agent.FullName(), agent.ID),
		fmt.Sprintf("PPR: %s", agent.PersonnelNumberOr("-")),
	}
	if agent.Grade != "" {
		lines = append(lines, fmt.Sprintf("Grade: %s", agent.Grade))
	}
	lines = append(lines, fmt.Sprintf("Balance: %s days", agent.Balance.StringFixed(1)))
	return strings.Join(lines, "\n")
}
