package repository_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leave-manager-bot/internal/apperror"
	"leave-manager-bot/internal/models"
	"leave-manager-bot/internal/repository"
)

func newTestGateway(t *testing.T) *repository.Gateway {
	t.Helper()

	db, err := repository.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	gw, err := repository.NewGateway(db, func(lt models.LeaveType) bool {
		return lt == models.LeaveTypeAnnual
	}, logger)
	require.NoError(t, err)
	return gw
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func createAgent(t *testing.T, gw *repository.Gateway, balance string) *models.Agent {
	t.Helper()
	agent := &models.Agent{LastName: "ALAMI", FirstName: "Sara", Balance: decimal.RequireFromString(balance)}
	require.NoError(t, gw.Agents().Create(context.Background(), agent))
	return agent
}

func balanceOf(t *testing.T, gw *repository.Gateway, id uint) decimal.Decimal {
	t.Helper()
	agent, err := gw.GetAgent(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, agent)
	return agent.Balance
}

func insertLeave(t *testing.T, gw *repository.Gateway, rec *models.LeaveRecord) uint {
	t.Helper()
	var id uint
	err := gw.RunInTx(context.Background(), func(tx *repository.Tx) error {
		var err error
		id, err = tx.InsertLeave(context.Background(), rec)
		return err
	})
	require.NoError(t, err)
	return id
}

func TestInsertLeave_DecrementsBalanceForAnnual(t *testing.T) {
	gw := newTestGateway(t)
	agent := createAgent(t, gw, "22")

	insertLeave(t, gw, &models.LeaveRecord{
		AgentID: agent.ID, Type: models.LeaveTypeAnnual,
		StartDate: day(2024, 3, 4), EndDate: day(2024, 3, 8), Days: 5,
	})
	insertLeave(t, gw, &models.LeaveRecord{
		AgentID: agent.ID, Type: models.LeaveTypeSick,
		StartDate: day(2024, 4, 1), EndDate: day(2024, 4, 3), Days: 3,
	})

	assert.True(t, decimal.NewFromInt(17).Equal(balanceOf(t, gw, agent.ID)))
}

func TestInsertLeave_InsufficientBalanceRollsBack(t *testing.T) {
	gw := newTestGateway(t)
	agent := createAgent(t, gw, "2")
	ctx := context.Background()

	err := gw.RunInTx(ctx, func(tx *repository.Tx) error {
		_, err := tx.InsertLeave(ctx, &models.LeaveRecord{
			AgentID: agent.ID, Type: models.LeaveTypeAnnual,
			StartDate: day(2024, 3, 4), EndDate: day(2024, 3, 8), Days: 5,
		})
		return err
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrInsufficientBalance)
	var balanceErr *apperror.InsufficientBalanceError
	require.ErrorAs(t, err, &balanceErr)
	assert.True(t, decimal.NewFromInt(2).Equal(balanceErr.Available))

	assert.True(t, decimal.NewFromInt(2).Equal(balanceOf(t, gw, agent.ID)))
	records, err := gw.Leaves().ListByAgent(ctx, agent.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestInsertLeave_UnknownAgent(t *testing.T) {
	gw := newTestGateway(t)
	ctx := context.Background()

	err := gw.RunInTx(ctx, func(tx *repository.Tx) error {
		_, err := tx.InsertLeave(ctx, &models.LeaveRecord{
			AgentID: 42, Type: models.LeaveTypeSick,
			StartDate: day(2024, 3, 4), EndDate: day(2024, 3, 4), Days: 1,
		})
		return err
	})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestDeleteLeave_RestoresBalanceAndRemovesFileOnCommit(t *testing.T) {
	gw := newTestGateway(t)
	agent := createAgent(t, gw, "10")
	ctx := context.Background()

	annualID := insertLeave(t, gw, &models.LeaveRecord{
		AgentID: agent.ID, Type: models.LeaveTypeAnnual,
		StartDate: day(2024, 3, 4), EndDate: day(2024, 3, 6), Days: 3,
	})
	require.True(t, decimal.NewFromInt(7).Equal(balanceOf(t, gw, agent.ID)))

	sickID := insertLeave(t, gw, &models.LeaveRecord{
		AgentID: agent.ID, Type: models.LeaveTypeSick,
		StartDate: day(2024, 5, 1), EndDate: day(2024, 5, 2), Days: 2,
	})
	certPath := filepath.Join(t.TempDir(), "cert.pdf")
	require.NoError(t, os.WriteFile(certPath, []byte("pdf"), 0o600))
	require.NoError(t, gw.UpsertCertificate(ctx, &models.Certificate{LeaveID: sickID, Days: 2, FilePath: certPath}))

	err := gw.RunInTx(ctx, func(tx *repository.Tx) error {
		if err := tx.DeleteLeave(ctx, annualID); err != nil {
			return err
		}
		return tx.DeleteLeave(ctx, sickID)
	})
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(10).Equal(balanceOf(t, gw, agent.ID)))
	cert, err := gw.Certificates().GetByLeaveID(ctx, sickID)
	require.NoError(t, err)
	assert.Nil(t, cert)
	assert.NoFileExists(t, certPath)
}

func TestRollback_KeepsScheduledFiles(t *testing.T) {
	gw := newTestGateway(t)
	agent := createAgent(t, gw, "10")
	ctx := context.Background()

	sickID := insertLeave(t, gw, &models.LeaveRecord{
		AgentID: agent.ID, Type: models.LeaveTypeSick,
		StartDate: day(2024, 5, 1), EndDate: day(2024, 5, 2), Days: 2,
	})
	certPath := filepath.Join(t.TempDir(), "cert.pdf")
	require.NoError(t, os.WriteFile(certPath, []byte("pdf"), 0o600))
	require.NoError(t, gw.UpsertCertificate(ctx, &models.Certificate{LeaveID: sickID, Days: 2, FilePath: certPath}))

	tx, err := gw.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.DeleteLeave(ctx, sickID))
	require.NoError(t, tx.Rollback())

	assert.FileExists(t, certPath)
	record, err := gw.Leaves().GetByID(ctx, sickID)
	require.NoError(t, err)
	assert.NotNil(t, record)
}

func TestKeepFile_CancelsRemoval(t *testing.T) {
	gw := newTestGateway(t)
	agent := createAgent(t, gw, "10")
	ctx := context.Background()

	sickID := insertLeave(t, gw, &models.LeaveRecord{
		AgentID: agent.ID, Type: models.LeaveTypeSick,
		StartDate: day(2024, 5, 1), EndDate: day(2024, 5, 2), Days: 2,
	})
	certPath := filepath.Join(t.TempDir(), "cert.pdf")
	require.NoError(t, os.WriteFile(certPath, []byte("pdf"), 0o600))
	require.NoError(t, gw.UpsertCertificate(ctx, &models.Certificate{LeaveID: sickID, Days: 2, FilePath: certPath}))

	err := gw.RunInTx(ctx, func(tx *repository.Tx) error {
		if err := tx.DeleteLeave(ctx, sickID); err != nil {
			return err
		}
		tx.KeepFile(certPath)
		return nil
	})
	require.NoError(t, err)
	assert.FileExists(t, certPath)
}

func TestBegin_RejectsNestedTransaction(t *testing.T) {
	gw := newTestGateway(t)
	ctx := context.Background()

	tx, err := gw.Begin(ctx)
	require.NoError(t, err)
	assert.True(t, gw.InTransaction())
	assert.True(t, tx.InTransaction())

	_, err = gw.Begin(ctx)
	assert.ErrorIs(t, err, repository.ErrTxInProgress)

	require.NoError(t, tx.Rollback())
	assert.False(t, gw.InTransaction())
	assert.False(t, tx.InTransaction())
	assert.ErrorIs(t, tx.Commit(), repository.ErrTxDone)
}

func TestCancelAndReviveLeave(t *testing.T) {
	gw := newTestGateway(t)
	agent := createAgent(t, gw, "10")
	ctx := context.Background()

	id := insertLeave(t, gw, &models.LeaveRecord{
		AgentID: agent.ID, Type: models.LeaveTypeAnnual,
		StartDate: day(2024, 3, 4), EndDate: day(2024, 3, 8), Days: 5,
	})
	record, err := gw.Leaves().GetByID(ctx, id)
	require.NoError(t, err)

	require.NoError(t, gw.RunInTx(ctx, func(tx *repository.Tx) error {
		return tx.CancelLeave(ctx, record)
	}))
	assert.True(t, decimal.NewFromInt(10).Equal(balanceOf(t, gw, agent.ID)))

	require.NoError(t, gw.Agents().SetBalance(ctx, agent.ID, decimal.NewFromInt(3)))
	err = gw.RunInTx(ctx, func(tx *repository.Tx) error {
		return tx.ReviveLeave(ctx, record)
	})
	assert.ErrorIs(t, err, apperror.ErrInsufficientBalance)

	stored, err := gw.Leaves().GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.LeaveStatusCancelled, stored.Status)
}

func TestFindCancelledParent(t *testing.T) {
	gw := newTestGateway(t)
	agent := createAgent(t, gw, "30")
	ctx := context.Background()

	id := insertLeave(t, gw, &models.LeaveRecord{
		AgentID: agent.ID, Type: models.LeaveTypeAnnual,
		StartDate: day(2024, 1, 1), EndDate: day(2024, 1, 31), Days: 22,
	})
	record, err := gw.Leaves().GetByID(ctx, id)
	require.NoError(t, err)
	require.NoError(t, gw.RunInTx(ctx, func(tx *repository.Tx) error {
		return tx.CancelLeave(ctx, record)
	}))

	parent, err := gw.Leaves().FindCancelledParent(ctx, agent.ID, day(2024, 1, 10), day(2024, 1, 15))
	require.NoError(t, err)
	require.NotNil(t, parent)
	assert.Equal(t, id, parent.ID)

	parent, err = gw.Leaves().FindCancelledParent(ctx, agent.ID, day(2024, 1, 25), day(2024, 2, 5))
	require.NoError(t, err)
	assert.Nil(t, parent)
}

func TestDeleteAgent_CascadesAndClearsSubstitute(t *testing.T) {
	gw := newTestGateway(t)
	ctx := context.Background()
	agent := createAgent(t, gw, "10")
	substitute := createAgent(t, gw, "10")
	other := createAgent(t, gw, "10")

	sickID := insertLeave(t, gw, &models.LeaveRecord{
		AgentID: agent.ID, Type: models.LeaveTypeSick,
		StartDate: day(2024, 5, 1), EndDate: day(2024, 5, 2), Days: 2,
	})
	certPath := filepath.Join(t.TempDir(), "cert.pdf")
	require.NoError(t, os.WriteFile(certPath, []byte("pdf"), 0o600))
	require.NoError(t, gw.UpsertCertificate(ctx, &models.Certificate{LeaveID: sickID, Days: 2, FilePath: certPath}))

	otherID := insertLeave(t, gw, &models.LeaveRecord{
		AgentID: other.ID, Type: models.LeaveTypeSick, SubstituteID: &substitute.ID,
		StartDate: day(2024, 5, 1), EndDate: day(2024, 5, 2), Days: 2,
	})

	require.NoError(t, gw.RunInTx(ctx, func(tx *repository.Tx) error {
		if err := tx.DeleteAgent(ctx, agent.ID); err != nil {
			return err
		}
		return tx.DeleteAgent(ctx, substitute.ID)
	}))

	records, err := gw.Leaves().ListByAgent(ctx, agent.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
	cert, err := gw.Certificates().GetByLeaveID(ctx, sickID)
	require.NoError(t, err)
	assert.Nil(t, cert)
	assert.NoFileExists(t, certPath)

	kept, err := gw.Leaves().GetByID(ctx, otherID)
	require.NoError(t, err)
	require.NotNil(t, kept)
	assert.Nil(t, kept.SubstituteID)
}

func TestAgentRepository_PersonnelNumberUnique(t *testing.T) {
	gw := newTestGateway(t)
	ctx := context.Background()
	ppr := "A100"

	require.NoError(t, gw.Agents().Create(ctx, &models.Agent{LastName: "A", PersonnelNumber: &ppr}))
	require.NoError(t, gw.Agents().Create(ctx, &models.Agent{LastName: "B"}))
	require.NoError(t, gw.Agents().Create(ctx, &models.Agent{LastName: "C"}))

	err := gw.Agents().Create(ctx, &models.Agent{LastName: "D", PersonnelNumber: &ppr})
	assert.ErrorIs(t, err, apperror.ErrPersistence)

	count, err := gw.Agents().Count(ctx, "")
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	found, err := gw.Agents().GetByPersonnelNumber(ctx, "A100")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "A", found.LastName)
}

func TestHolidayRepository_AutomaticNeverOverwritesCustom(t *testing.T) {
	gw := newTestGateway(t)
	ctx := context.Background()

	require.NoError(t, gw.Holidays().Create(ctx, &models.CustomHoliday{
		Date: day(2024, 5, 1), Name: "Company day", Type: models.HolidayTypeCustom,
	}))

	require.NoError(t, gw.Holidays().UpsertAutomatic(ctx, []models.CustomHoliday{
		{Date: day(2024, 1, 1), Name: "New Year"},
		{Date: day(2024, 5, 1), Name: "Labour Day"},
	}))
	require.NoError(t, gw.Holidays().UpsertAutomatic(ctx, []models.CustomHoliday{
		{Date: day(2024, 1, 1), Name: "New Year's Day"},
	}))

	holidays, err := gw.GetHolidaysForYear(ctx, 2024)
	require.NoError(t, err)
	require.Len(t, holidays, 2)
	assert.Equal(t, "New Year's Day", holidays[0].Name)
	assert.Equal(t, models.HolidayTypeAutomatic, holidays[0].Type)
	assert.Equal(t, "Company day", holidays[1].Name)
	assert.Equal(t, models.HolidayTypeCustom, holidays[1].Type)

	require.NoError(t, gw.Holidays().DeleteAutomaticForYear(ctx, 2024))
	holidays, err = gw.GetHolidaysForYear(ctx, 2024)
	require.NoError(t, err)
	require.Len(t, holidays, 1)
	assert.True(t, holidays[0].IsCustom())
}
