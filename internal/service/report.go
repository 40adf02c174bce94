package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"leave-manager-bot/internal/apperror"
	"leave-manager-bot/internal/models"
	"leave-manager-bot/internal/repository"
	"leave-manager-bot/pkg/workdays"
)

type Stats struct {
	Agents       int64
	ActiveByType map[models.LeaveType]int64
	Cancelled    int64
	TotalBalance decimal.Decimal
}

// CertificateStatus is an Active sick leave and whether its certificate is
// on file.
type CertificateStatus struct {
	Leave       models.LeaveRecord
	Agent       string
	Certificate *models.Certificate
}

func (c CertificateStatus) Missing() bool {
	return c.Certificate == nil
}

type ReportService struct {
	gw *repository.Gateway
}

func NewReportService(gw *repository.Gateway) *ReportService {
	return &ReportService{gw: gw}
}

func (s *ReportService) Stats(ctx context.Context) (*Stats, error) {
	agents, err := s.gw.Agents().Count(ctx, "")
	if err != nil {
		return nil, err
	}
	counts, err := s.gw.Leaves().CountByTypeAndStatus(ctx)
	if err != nil {
		return nil, err
	}
	total, err := s.gw.Agents().TotalBalance(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		Agents:       agents,
		ActiveByType: make(map[models.LeaveType]int64, len(models.LeaveTypes)),
		TotalBalance: total,
	}
	for _, c := range counts {
		if c.Status == models.LeaveStatusCancelled {
			stats.Cancelled += c.Count
			continue
		}
		stats.ActiveByType[c.Type] += c.Count
	}
	return stats, nil
}

// CertificateTracking lists every Active sick leave, most recent first.
func (s *ReportService) CertificateTracking(ctx context.Context) ([]CertificateStatus, error) {
	leaves, err := s.gw.Leaves().ListActiveByType(ctx, models.LeaveTypeSick)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(leaves))
	for _, l := range leaves {
		ids = append(ids, l.ID)
	}
	certs, err := s.gw.Certificates().GetByLeaveIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	names := make(map[uint]string)
	result := make([]CertificateStatus, 0, len(leaves))
	for _, l := range leaves {
		name, ok := names[l.AgentID]
		if !ok {
			agent, err := s.gw.GetAgent(ctx, l.AgentID)
			if err != nil {
				return nil, err
			}
			name = models.DeletedAgentLabel
			if agent != nil {
				name = agent.FullName()
			}
			names[l.AgentID] = name
		}

		status := CertificateStatus{Leave: l, Agent: name}
		if c, ok := certs[l.ID]; ok {
			cert := c
			status.Certificate = &cert
		}
		result = append(result, status)
	}
	return result, nil
}

// AgentAbsence is the number of calendar days an agent was away during a
// month, per leave type.
type AgentAbsence struct {
	AgentID uint
	Agent   string
	Days    map[models.LeaveType]int
	Total   int
}

type MonthlyReport struct {
	Year    int
	Month   time.Month
	Absence []AgentAbsence
}

// MonthlyAbsence sums the Active leaves of every agent over one month. Leaves
// crossing the month boundary only count the days inside the month.
func (s *ReportService) MonthlyAbsence(ctx context.Context, year int, month time.Month) (*MonthlyReport, error) {
	if month < time.January || month > time.December {
		return nil, apperror.Validation("invalid month %d", month)
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	leaves, err := s.gw.Leaves().ListActiveOverlapping(ctx, first, last)
	if err != nil {
		return nil, err
	}

	report := &MonthlyReport{Year: year, Month: month}
	index := make(map[uint]int)
	for _, l := range leaves {
		i, ok := index[l.AgentID]
		if !ok {
			agent, err := s.gw.GetAgent(ctx, l.AgentID)
			if err != nil {
				return nil, err
			}
			name := models.DeletedAgentLabel
			if agent != nil {
				name = agent.FullName()
			}
			report.Absence = append(report.Absence, AgentAbsence{
				AgentID: l.AgentID,
				Agent:   name,
				Days:    make(map[models.LeaveType]int),
			})
			i = len(report.Absence) - 1
			index[l.AgentID] = i
		}

		from, to := l.StartDate, l.EndDate
		if from.Before(first) {
			from = first
		}
		if to.After(last) {
			to = last
		}
		n := workdays.Days(workdays.CalendarDays, from, to, nil)
		report.Absence[i].Days[l.Type] += n
		report.Absence[i].Total += n
	}
	return report, nil
}
