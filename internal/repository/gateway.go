package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"leave-manager-bot/internal/models"
)

// ErrTxInProgress is returned by Begin while another transaction is open.
var ErrTxInProgress = errors.New("a transaction is already in progress")

// DecrementFunc reports whether a leave type is deducted from the balance.
type DecrementFunc func(models.LeaveType) bool

// Gateway is the single entry point to the database. Reads go straight to
// the repositories; multi-step mutations go through a Tx from Begin.
type Gateway struct {
	db           *gorm.DB
	agents       AgentRepository
	leaves       LeaveRecordRepository
	certificates CertificateRepository
	holidays     HolidayRepository
	decrements   DecrementFunc
	logger       *logrus.Logger

	mu     sync.Mutex
	active *Tx
}

func NewGateway(db *gorm.DB, decrements DecrementFunc, logger *logrus.Logger) (*Gateway, error) {
	agents, err := NewGormAgentRepository(db)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate agents: %w", err)
	}
	leaves, err := NewGormLeaveRecordRepository(db)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate leave records: %w", err)
	}
	certificates, err := NewGormCertificateRepository(db)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate certificates: %w", err)
	}
	holidays, err := NewGormHolidayRepository(db)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate holidays: %w", err)
	}

	if decrements == nil {
		decrements = func(t models.LeaveType) bool { return t == models.LeaveTypeAnnual }
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &Gateway{
		db:           db,
		agents:       agents,
		leaves:       leaves,
		certificates: certificates,
		holidays:     holidays,
		decrements:   decrements,
		logger:       logger,
	}, nil
}

func (g *Gateway) Agents() AgentRepository             { return g.agents }
func (g *Gateway) Leaves() LeaveRecordRepository       { return g.leaves }
func (g *Gateway) Certificates() CertificateRepository { return g.certificates }
func (g *Gateway) Holidays() HolidayRepository         { return g.holidays }

// Decrements reports whether leaves of type t consume balance.
func (g *Gateway) Decrements(t models.LeaveType) bool {
	return g.decrements(t)
}

func (g *Gateway) GetAgent(ctx context.Context, id uint) (*models.Agent, error) {
	return g.agents.GetByID(ctx, id)
}

func (g *Gateway) GetOverlappingActiveLeaves(ctx context.Context, agentID uint, start, end time.Time, excludeID uint) ([]models.LeaveRecord, error) {
	return g.leaves.FindOverlappingActive(ctx, agentID, start, end, excludeID)
}

func (g *Gateway) GetHolidaysForYear(ctx context.Context, year int) ([]models.CustomHoliday, error) {
	return g.holidays.GetByYear(ctx, year)
}

func (g *Gateway) UpsertCertificate(ctx context.Context, cert *models.Certificate) error {
	return g.certificates.Upsert(ctx, cert)
}

func (g *Gateway) DeleteCertificate(ctx context.Context, leaveID uint) error {
	return g.certificates.DeleteByLeaveID(ctx, leaveID)
}

// InTransaction reports whether a Tx is currently open.
func (g *Gateway) InTransaction() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active != nil
}

// Begin opens a transaction. Only one may be open at a time.
func (g *Gateway) Begin(ctx context.Context) (*Tx, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.active != nil {
		return nil, ErrTxInProgress
	}

	db := g.db.WithContext(ctx).Begin()
	if db.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", db.Error)
	}

	tx := &Tx{
		gw:           g,
		db:           db,
		agents:       g.agents.WithTx(db),
		leaves:       g.leaves.WithTx(db),
		certificates: g.certificates.WithTx(db),
		holidays:     g.holidays.WithTx(db),
	}
	g.active = tx
	return tx, nil
}

// RunInTx runs fn inside a transaction, committing when it returns nil and
// rolling back otherwise.
func (g *Gateway) RunInTx(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := g.Begin(ctx)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			g.logger.WithError(rbErr).Error("Failed to roll back transaction")
		}
		return err
	}
	return tx.Commit()
}

func (g *Gateway) release(tx *Tx) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active == tx {
		g.active = nil
	}
}
