package repository

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"leave-manager-bot/internal/apperror"
	"leave-manager-bot/internal/models"
)

// ErrTxDone is returned when a finished transaction is used again.
var ErrTxDone = errors.New("transaction already committed or rolled back")

// Tx is an open unit of work. Balance changes are only made through its
// leave primitives.
type Tx struct {
	gw           *Gateway
	db           *gorm.DB
	agents       AgentRepository
	leaves       LeaveRecordRepository
	certificates CertificateRepository
	holidays     HolidayRepository

	filesToRemove []string
	done          bool
}

func (t *Tx) Agents() AgentRepository             { return t.agents }
func (t *Tx) Leaves() LeaveRecordRepository       { return t.leaves }
func (t *Tx) Certificates() CertificateRepository { return t.certificates }
func (t *Tx) Holidays() HolidayRepository         { return t.holidays }

func (t *Tx) InTransaction() bool {
	return !t.done
}

// Commit commits the transaction and then removes the files scheduled for
// removal. A file that cannot be removed is only logged.
func (t *Tx) Commit() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	defer t.gw.release(t)

	if err := t.db.Commit().Error; err != nil {
		return apperror.Persistence(err, "failed to commit transaction")
	}

	for _, path := range t.filesToRemove {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			t.gw.logger.WithFields(logrus.Fields{
				"path": path,
			}).WithError(err).Warn("Failed to remove certificate file")
		}
	}
	t.filesToRemove = nil
	return nil
}

// Rollback discards every change of the transaction, including the files
// scheduled for removal.
func (t *Tx) Rollback() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	t.filesToRemove = nil
	defer t.gw.release(t)

	if err := t.db.Rollback().Error; err != nil {
		return fmt.Errorf("failed to roll back transaction: %w", err)
	}
	return nil
}

// RemoveFileOnCommit schedules path for deletion once the transaction commits.
func (t *Tx) RemoveFileOnCommit(path string) {
	if path == "" {
		return
	}
	for _, p := range t.filesToRemove {
		if p == path {
			return
		}
	}
	t.filesToRemove = append(t.filesToRemove, path)
}

// KeepFile cancels a scheduled removal of path.
func (t *Tx) KeepFile(path string) {
	kept := t.filesToRemove[:0]
	for _, p := range t.filesToRemove {
		if p != path {
			kept = append(kept, p)
		}
	}
	t.filesToRemove = kept
}

// InsertLeave stores record. For decrementing types the agent balance is
// checked and decremented first.
func (t *Tx) InsertLeave(ctx context.Context, record *models.LeaveRecord) (uint, error) {
	if t.done {
		return 0, ErrTxDone
	}
	if record.EndDate.Before(record.StartDate) {
		return 0, apperror.Validation("end date is before start date")
	}
	if record.Days < 0 {
		return 0, apperror.Validation("number of days cannot be negative")
	}
	if record.Status == "" {
		record.Status = models.LeaveStatusActive
	}

	if record.IsActive() && t.gw.Decrements(record.Type) {
		if err := t.debit(ctx, record.AgentID, record.Days); err != nil {
			return 0, err
		}
	} else if agent, err := t.agents.GetByID(ctx, record.AgentID); err != nil {
		return 0, err
	} else if agent == nil {
		return 0, apperror.NotFound("agent %d not found", record.AgentID)
	}

	record.ID = 0
	if err := t.leaves.Create(ctx, record); err != nil {
		return 0, err
	}

	t.gw.logger.WithFields(logrus.Fields{
		"leave_id": record.ID,
		"agent_id": record.AgentID,
		"type":     record.Type,
		"start":    record.StartDate.Format("2006-01-02"),
		"end":      record.EndDate.Format("2006-01-02"),
		"days":     record.Days,
	}).Debug("Leave record inserted")
	return record.ID, nil
}

// DeleteLeave removes a record. An Active record of a decrementing type gives
// its days back. The certificate row goes with it and its file is removed on
// commit.
func (t *Tx) DeleteLeave(ctx context.Context, id uint) error {
	if t.done {
		return ErrTxDone
	}
	record, err := t.leaves.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if record == nil {
		return apperror.NotFound("leave %d not found", id)
	}

	if record.IsActive() && t.gw.Decrements(record.Type) {
		if err := t.credit(ctx, record.AgentID, record.Days); err != nil {
			return err
		}
	}

	cert, err := t.certificates.GetByLeaveID(ctx, id)
	if err != nil {
		return err
	}
	if cert != nil {
		if err := t.certificates.DeleteByLeaveID(ctx, id); err != nil {
			return err
		}
		t.RemoveFileOnCommit(cert.FilePath)
	}

	if err := t.leaves.Delete(ctx, id); err != nil {
		return err
	}

	t.gw.logger.WithFields(logrus.Fields{
		"leave_id": id,
		"agent_id": record.AgentID,
		"status":   record.Status,
	}).Debug("Leave record deleted")
	return nil
}

// CancelLeave marks an Active record Cancelled and gives its days back.
func (t *Tx) CancelLeave(ctx context.Context, record *models.LeaveRecord) error {
	if t.done {
		return ErrTxDone
	}
	if !record.IsActive() {
		return apperror.Validation("leave %d is not active", record.ID)
	}
	if err := t.leaves.SetStatus(ctx, record.ID, models.LeaveStatusCancelled); err != nil {
		return err
	}
	if t.gw.Decrements(record.Type) {
		if err := t.credit(ctx, record.AgentID, record.Days); err != nil {
			return err
		}
	}
	record.Status = models.LeaveStatusCancelled
	return nil
}

// ReviveLeave reactivates a Cancelled record, consuming its days again.
func (t *Tx) ReviveLeave(ctx context.Context, record *models.LeaveRecord) error {
	if t.done {
		return ErrTxDone
	}
	if !record.IsCancelled() {
		return apperror.Validation("leave %d is not cancelled", record.ID)
	}
	if t.gw.Decrements(record.Type) {
		if err := t.debit(ctx, record.AgentID, record.Days); err != nil {
			return err
		}
	}
	if err := t.leaves.SetStatus(ctx, record.ID, models.LeaveStatusActive); err != nil {
		return err
	}
	record.Status = models.LeaveStatusActive
	return nil
}

func (t *Tx) UpsertCertificate(ctx context.Context, cert *models.Certificate) error {
	if t.done {
		return ErrTxDone
	}
	return t.certificates.Upsert(ctx, cert)
}

func (t *Tx) DeleteCertificate(ctx context.Context, leaveID uint) error {
	if t.done {
		return ErrTxDone
	}
	return t.certificates.DeleteByLeaveID(ctx, leaveID)
}

// DeleteAgent removes an agent. Leave records and certificate rows follow
// through the foreign keys; the certificate files are removed on commit.
func (t *Tx) DeleteAgent(ctx context.Context, id uint) error {
	if t.done {
		return ErrTxDone
	}
	paths, err := t.certificates.ListPathsByAgent(ctx, id)
	if err != nil {
		return err
	}
	if err := t.agents.Delete(ctx, id); err != nil {
		return err
	}
	for _, p := range paths {
		t.RemoveFileOnCommit(p)
	}
	return nil
}

func (t *Tx) debit(ctx context.Context, agentID uint, days int) error {
	agent, err := t.agents.GetByID(ctx, agentID)
	if err != nil {
		return err
	}
	if agent == nil {
		return apperror.NotFound("agent %d not found", agentID)
	}

	requested := decimal.NewFromInt(int64(days))
	if agent.Balance.LessThan(requested) {
		return &apperror.InsufficientBalanceError{
			AgentID:   agentID,
			Available: agent.Balance,
			Requested: requested,
		}
	}
	return t.agents.SetBalance(ctx, agentID, agent.Balance.Sub(requested))
}

func (t *Tx) credit(ctx context.Context, agentID uint, days int) error {
	agent, err := t.agents.GetByID(ctx, agentID)
	if err != nil {
		return err
	}
	if agent == nil {
		return apperror.NotFound("agent %d not found", agentID)
	}
	return t.agents.SetBalance(ctx, agentID, agent.Balance.Add(decimal.NewFromInt(int64(days))))
}
