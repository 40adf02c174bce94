package service_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"leave-manager-bot/internal/config"
	"leave-manager-bot/internal/models"
	"leave-manager-bot/internal/repository"
	"leave-manager-bot/internal/service"
	"leave-manager-bot/pkg/workdays"
)

type fixture struct {
	gw       *repository.Gateway
	holidays *service.HolidayService
	certs    *service.CertificateStore
	manager  *service.LeaveManager
	agents   *service.AgentService
	reports  *service.ReportService
	calDir   string
	cfg      *config.Config
}

func newFixture(t *testing.T) *fixture {
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

	cfg := config.Default()
	cfg.Agents.Grades = []string{"A", "B"}
	cfg.Agents.PageSize = 2

	gw, err := repository.NewGateway(db, func(lt models.LeaveType) bool {
		return cfg.Leave.Decrements(lt)
	}, logger)
	require.NoError(t, err)

	calDir := t.TempDir()
	holidays := service.NewHolidayService(gw.Holidays(), workdays.NewFileCalendar(calDir, cfg.Leave.HolidaysCountry), logger)

	certs, err := service.NewCertificateStore(filepath.Join(t.TempDir(), "certificats"))
	require.NoError(t, err)

	return &fixture{
		gw:       gw,
		holidays: holidays,
		certs:    certs,
		manager:  service.NewLeaveManager(gw, holidays, certs, service.NewLeaveRules(cfg.Leave), logger),
		agents:   service.NewAgentService(gw, cfg.Agents, logger),
		reports:  service.NewReportService(gw),
		calDir:   calDir,
		cfg:      cfg,
	}
}

func (f *fixture) writeCalendar(t *testing.T, year int, content string) {
	t.Helper()
	dir := filepath.Join(f.calDir, f.cfg.Leave.HolidaysCountry)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, strconv.Itoa(year)+".json"), []byte(content), 0o600))
}

func (f *fixture) addAgent(t *testing.T, ppr, balance string) *models.Agent {
	t.Helper()
	agent, err := f.agents.Create(context.Background(), service.AgentInput{
		LastName:        "Bennani",
		FirstName:       "Youssef",
		PersonnelNumber: ppr,
		Balance:         balance,
	})
	require.NoError(t, err)
	return agent
}

func (f *fixture) balance(t *testing.T, agentID uint) decimal.Decimal {
	t.Helper()
	agent, err := f.agents.Get(context.Background(), agentID)
	require.NoError(t, err)
	return agent.Balance
}

func (f *fixture) submit(t *testing.T, req service.LeaveRequest) *service.SubmitResult {
	t.Helper()
	res, err := f.manager.Submit(context.Background(), req, req.LeaveID != 0, service.ConfirmAlways)
	require.NoError(t, err)
	require.True(t, res.Performed)
	return res
}

func (f *fixture) leaves(t *testing.T, agentID uint) []models.LeaveRecord {
	t.Helper()
	records, err := f.manager.ListLeaves(context.Background(), agentID)
	require.NoError(t, err)
	return records
}

// activeDecrementing sums the days of Active leaves that consume balance.
func (f *fixture) activeDecrementing(t *testing.T, agentID uint) int {
	t.Helper()
	total := 0
	for _, r := range f.leaves(t, agentID) {
		if r.IsActive() && f.cfg.Leave.Decrements(r.Type) {
			total += r.Days
		}
	}
	return total
}

func requireBalance(t *testing.T, expected int64, actual decimal.Decimal) {
	t.Helper()
	require.True(t, decimal.NewFromInt(expected).Equal(actual), "expected balance %d, got %s", expected, actual)
}

func writeFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("scan of "+name), 0o600))
	return path
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
