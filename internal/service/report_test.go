package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leave-manager-bot/internal/apperror"
	"leave-manager-bot/internal/models"
	"leave-manager-bot/internal/service"
)

func TestReportService_Stats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agent := f.addAgent(t, "P1", "30")
	f.addAgent(t, "P2", "4.5")

	f.submit(t, annualJanuary(agent.ID))
	f.submit(t, sickJan10to15(agent.ID))

	stats, err := f.reports.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.Agents)
	assert.EqualValues(t, 2, stats.ActiveByType[models.LeaveTypeAnnual])
	assert.EqualValues(t, 1, stats.ActiveByType[models.LeaveTypeSick])
	assert.EqualValues(t, 1, stats.Cancelled)
	assert.True(t, decimal.RequireFromString("15.5").Equal(stats.TotalBalance), stats.TotalBalance.String())
}

func TestReportService_CertificateTracking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agent := f.addAgent(t, "P1", "30")

	with := f.submit(t, sickWithCertificate(agent.ID, writeFile(t, "scan.pdf")))
	without := f.submit(t, service.LeaveRequest{
		AgentID: agent.ID, Type: models.LeaveTypeSick,
		StartDate: "04/03/2024", EndDate: "05/03/2024", Days: 2,
	})
	f.submit(t, service.LeaveRequest{
		AgentID: agent.ID, Type: models.LeaveTypeAnnual,
		StartDate: "08/04/2024", EndDate: "09/04/2024", Days: 2,
	})

	tracking, err := f.reports.CertificateTracking(ctx)
	require.NoError(t, err)
	require.Len(t, tracking, 2)

	// most recent first
	assert.Equal(t, without.LeaveID, tracking[0].Leave.ID)
	assert.True(t, tracking[0].Missing())
	assert.Equal(t, with.LeaveID, tracking[1].Leave.ID)
	assert.False(t, tracking[1].Missing())
	assert.Equal(t, agent.FullName(), tracking[1].Agent)
}

func TestReportService_MonthlyAbsence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.addAgent(t, "P1", "30")
	second := f.addAgent(t, "P2", "0")

	f.submit(t, annualJanuary(first.ID))
	f.submit(t, sickJan10to15(first.ID))
	f.submit(t, service.LeaveRequest{
		AgentID: second.ID, Type: models.LeaveTypeExceptional,
		StartDate: "28/01/2024", EndDate: "03/02/2024", Days: 7,
	})

	january, err := f.reports.MonthlyAbsence(ctx, 2024, time.January)
	require.NoError(t, err)
	require.Len(t, january.Absence, 2)

	assert.Equal(t, first.ID, january.Absence[0].AgentID)
	assert.Equal(t, 25, january.Absence[0].Days[models.LeaveTypeAnnual])
	assert.Equal(t, 6, january.Absence[0].Days[models.LeaveTypeSick])
	assert.Equal(t, 31, january.Absence[0].Total)
	assert.Equal(t, 4, january.Absence[1].Total)

	february, err := f.reports.MonthlyAbsence(ctx, 2024, time.February)
	require.NoError(t, err)
	require.Len(t, february.Absence, 1)
	assert.Equal(t, second.ID, february.Absence[0].AgentID)
	assert.Equal(t, 3, february.Absence[0].Days[models.LeaveTypeExceptional])

	_, err = f.reports.MonthlyAbsence(ctx, 2024, 13)
	assert.ErrorIs(t, err, apperror.ErrValidation)
}
