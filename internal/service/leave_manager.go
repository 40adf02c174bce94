package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"leave-manager-bot/internal/apperror"
	"leave-manager-bot/internal/models"
	"leave-manager-bot/internal/repository"
	"leave-manager-bot/pkg/workdays"
)

// HolidaySource returns the non-working dates of a span of years.
type HolidaySource interface {
	HolidaySet(ctx context.Context, fromYear, toYear int) (workdays.HolidaySet, error)
}

// ConfirmFunc decides whether the annual leaves in overlaps may be split.
type ConfirmFunc func(overlaps []models.LeaveRecord) bool

// ConfirmAlways approves every split.
func ConfirmAlways([]models.LeaveRecord) bool { return true }

// LeaveRequest is what the operator submits to create or modify a leave.
type LeaveRequest struct {
	LeaveID       uint // record being modified
	AgentID       uint
	Type          models.LeaveType
	Justification string
	SubstituteID  *uint
	StartDate     string
	EndDate       string
	Days          int
	// CertificatePath is the certificate offered with a sick leave. It may
	// be the path already on record, which keeps the current file.
	CertificatePath string
	DoctorName      string
}

type SubmitResult struct {
	Performed bool
	LeaveID   uint
	Split     bool
	Warnings  []string
}

// DeleteResult describes what a deletion changed.
type DeleteResult struct {
	Deleted  []uint
	Restored *models.LeaveRecord
}

type LeaveManager struct {
	gw       *repository.Gateway
	holidays HolidaySource
	certs    *CertificateStore
	rules    LeaveRules
	logger   *logrus.Logger
}

func NewLeaveManager(
	gw *repository.Gateway,
	holidays HolidaySource,
	certs *CertificateStore,
	rules LeaveRules,
	logger *logrus.Logger,
) *LeaveManager {
	return &LeaveManager{
		gw:       gw,
		holidays: holidays,
		certs:    certs,
		rules:    rules,
		logger:   logger,
	}
}

type validatedRequest struct {
	LeaveRequest
	start, end time.Time
	agent      *models.Agent
	previous   *models.LeaveRecord
	prevCert   *models.Certificate
}

// Submit creates a leave, or replaces req.LeaveID when isModification is set.
// Overlapping annual leaves are split after confirm approves it; a declined
// confirmation returns Performed=false and no error.
func (m *LeaveManager) Submit(ctx context.Context, req LeaveRequest, isModification bool, confirm ConfirmFunc) (*SubmitResult, error) {
	v, err := m.validate(ctx, req, isModification)
	if err != nil {
		return nil, err
	}

	var excludeID uint
	if v.previous != nil {
		excludeID = v.previous.ID
	}
	overlaps, err := m.gw.GetOverlappingActiveLeaves(ctx, v.AgentID, v.start, v.end, excludeID)
	if err != nil {
		return nil, err
	}

	if len(overlaps) == 0 {
		return m.save(ctx, v)
	}

	if v.Type == models.LeaveTypeAnnual || !allAnnual(overlaps) {
		return nil, apperror.Validation("cannot replace non-annual leave, and annual leave cannot overlap another leave")
	}
	if confirm == nil || !confirm(overlaps) {
		m.logger.WithFields(logrus.Fields{
			"agent_id": v.AgentID,
			"overlaps": len(overlaps),
		}).Info("Leave split declined")
		return &SubmitResult{Performed: false}, nil
	}
	return m.split(ctx, v, overlaps)
}

// Overlaps returns the Active leaves that req would collide with.
func (m *LeaveManager) Overlaps(ctx context.Context, req LeaveRequest, isModification bool) ([]models.LeaveRecord, error) {
	v, err := m.validate(ctx, req, isModification)
	if err != nil {
		return nil, err
	}
	var excludeID uint
	if v.previous != nil {
		excludeID = v.previous.ID
	}
	return m.gw.GetOverlappingActiveLeaves(ctx, v.AgentID, v.start, v.end, excludeID)
}

func (m *LeaveManager) validate(ctx context.Context, req LeaveRequest, isModification bool) (*validatedRequest, error) {
	if req.Type == "" {
		return nil, apperror.Validation("leave type is required")
	}
	if !req.Type.Valid() {
		return nil, apperror.Validation("unknown leave type %q", req.Type)
	}
	start, err := ParseDate(req.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := ParseDate(req.EndDate)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, apperror.Validation("end date %s is before start date %s", FormatDate(end), FormatDate(start))
	}
	if req.Days <= 0 {
		return nil, apperror.Validation("number of days must be positive")
	}

	v := &validatedRequest{LeaveRequest: req, start: start, end: end}
	v.Justification = strings.TrimSpace(req.Justification)
	v.CertificatePath = strings.TrimSpace(req.CertificatePath)

	if isModification {
		if req.LeaveID == 0 {
			return nil, apperror.Validation("leave to modify is required")
		}
		prev, err := m.gw.Leaves().GetByID(ctx, req.LeaveID)
		if err != nil {
			return nil, err
		}
		if prev == nil {
			return nil, apperror.NotFound("leave %d not found", req.LeaveID)
		}
		if !prev.IsActive() {
			return nil, apperror.Validation("a cancelled leave cannot be modified")
		}
		if req.AgentID == 0 {
			v.AgentID = prev.AgentID
		}
		v.previous = prev
		if v.prevCert, err = m.gw.Certificates().GetByLeaveID(ctx, prev.ID); err != nil {
			return nil, err
		}
	}

	agent, err := m.gw.GetAgent(ctx, v.AgentID)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, apperror.NotFound("agent %d not found", v.AgentID)
	}
	v.agent = agent

	if v.SubstituteID != nil {
		if *v.SubstituteID == v.AgentID {
			return nil, apperror.Validation("an agent cannot be their own substitute")
		}
		sub, err := m.gw.GetAgent(ctx, *v.SubstituteID)
		if err != nil {
			return nil, err
		}
		if sub == nil {
			return nil, apperror.NotFound("substitute agent %d not found", *v.SubstituteID)
		}
	}

	return v, nil
}

// save is the plain insert, or delete-then-insert for a modification.
func (m *LeaveManager) save(ctx context.Context, v *validatedRequest) (*SubmitResult, error) {
	var newID uint
	keep := false

	err := m.gw.RunInTx(ctx, func(tx *repository.Tx) error {
		var err error
		if v.previous != nil {
			if err = tx.DeleteLeave(ctx, v.previous.ID); err != nil {
				return err
			}
		}
		if newID, err = tx.InsertLeave(ctx, v.record()); err != nil {
			return err
		}
		keep, err = m.carryCertificate(ctx, tx, v, newID)
		return err
	})
	if err != nil {
		m.logFailure(v, err)
		return nil, err
	}

	m.logger.WithFields(m.fields(v, newID)).Info("Leave saved")

	result := &SubmitResult{Performed: true, LeaveID: newID}
	if !keep {
		result.Warnings = m.attachOffered(ctx, v, newID)
	}
	return result, nil
}

// split cancels the overlapping annual leaves, re-creates the parts outside
// [start, end] and inserts the new leave, all in one transaction.
func (m *LeaveManager) split(ctx context.Context, v *validatedRequest, overlaps []models.LeaveRecord) (*SubmitResult, error) {
	fromYear, toYear := v.start.Year(), v.end.Year()
	for _, r := range overlaps {
		if r.StartDate.Year() < fromYear {
			fromYear = r.StartDate.Year()
		}
		if r.EndDate.Year() > toYear {
			toYear = r.EndDate.Year()
		}
	}
	holidays, err := m.holidays.HolidaySet(ctx, fromYear-1, toYear+1)
	if err != nil {
		return nil, err
	}

	policy := m.rules.Rule(models.LeaveTypeAnnual).Policy
	var segments []models.LeaveRecord
	for _, r := range overlaps {
		if r.StartDate.Before(v.start) {
			segments = appendSegment(segments, r, r.StartDate, v.start.AddDate(0, 0, -1), policy, holidays)
		}
		if r.EndDate.After(v.end) {
			segments = appendSegment(segments, r, v.end.AddDate(0, 0, 1), r.EndDate, policy, holidays)
		}
	}

	var newID uint
	keep := false

	err = m.gw.RunInTx(ctx, func(tx *repository.Tx) error {
		var err error
		if v.previous != nil {
			if err = tx.DeleteLeave(ctx, v.previous.ID); err != nil {
				return err
			}
		}
		for i := range overlaps {
			if err = tx.CancelLeave(ctx, &overlaps[i]); err != nil {
				return err
			}
		}
		for i := range segments {
			if _, err = tx.InsertLeave(ctx, &segments[i]); err != nil {
				return err
			}
		}
		if newID, err = tx.InsertLeave(ctx, v.record()); err != nil {
			return err
		}
		keep, err = m.carryCertificate(ctx, tx, v, newID)
		return err
	})
	if err != nil {
		m.logFailure(v, err)
		return nil, err
	}

	m.logger.WithFields(m.fields(v, newID)).WithFields(logrus.Fields{
		"cancelled": len(overlaps),
		"segments":  len(segments),
	}).Info("Annual leave split")

	result := &SubmitResult{Performed: true, LeaveID: newID, Split: true}
	if !keep {
		result.Warnings = m.attachOffered(ctx, v, newID)
	}
	return result, nil
}

func appendSegment(segments []models.LeaveRecord, parent models.LeaveRecord, start, end time.Time, policy workdays.Policy, holidays workdays.HolidaySet) []models.LeaveRecord {
	if end.Before(start) {
		return segments
	}
	days := workdays.Days(policy, start, end, holidays)
	if days == 0 {
		return segments
	}
	return append(segments, models.LeaveRecord{
		AgentID:   parent.AgentID,
		Type:      models.LeaveTypeAnnual,
		StartDate: start,
		EndDate:   end,
		Days:      days,
		Status:    models.LeaveStatusActive,
	})
}

// carryCertificate re-attaches the certificate of the modified record to
// newID when the operator kept the same file on a sick leave.
func (m *LeaveManager) carryCertificate(ctx context.Context, tx *repository.Tx, v *validatedRequest, newID uint) (bool, error) {
	if v.prevCert == nil || v.Type != models.LeaveTypeSick || v.CertificatePath != v.prevCert.FilePath {
		return false, nil
	}
	tx.KeepFile(v.prevCert.FilePath)

	doctor := v.DoctorName
	if doctor == "" {
		doctor = v.prevCert.DoctorName
	}
	return true, tx.UpsertCertificate(ctx, &models.Certificate{
		LeaveID:    newID,
		DoctorName: doctor,
		Days:       v.Days,
		FilePath:   v.prevCert.FilePath,
	})
}

// attachOffered stores the certificate offered with a sick leave. It runs
// after commit, so failures are only reported.
func (m *LeaveManager) attachOffered(ctx context.Context, v *validatedRequest, leaveID uint) []string {
	if v.Type != models.LeaveTypeSick || v.CertificatePath == "" {
		return nil
	}
	if _, err := m.storeCertificate(ctx, v.agent, leaveID, v.CertificatePath, v.DoctorName, v.Days); err != nil {
		m.logger.WithFields(logrus.Fields{
			"leave_id": leaveID,
			"path":     v.CertificatePath,
		}).WithError(err).Warn("Leave saved without its certificate")
		return []string{fmt.Sprintf("the leave was saved but the certificate could not be stored: %v", err)}
	}
	return nil
}

func (m *LeaveManager) storeCertificate(ctx context.Context, agent *models.Agent, leaveID uint, src, doctor string, days int) (*models.Certificate, error) {
	if m.certs == nil {
		return nil, fmt.Errorf("certificate storage is not configured")
	}
	dest, err := m.certs.Store(agent, leaveID, src)
	if err != nil {
		return nil, err
	}
	cert := &models.Certificate{LeaveID: leaveID, DoctorName: doctor, Days: days, FilePath: dest}
	if err := m.gw.UpsertCertificate(ctx, cert); err != nil {
		if rmErr := m.certs.Remove(dest); rmErr != nil {
			m.logger.WithError(rmErr).Warn("Failed to remove orphan certificate copy")
		}
		return nil, err
	}
	return cert, nil
}

// Delete removes a leave. Deleting an Active part of a split also removes the
// sibling parts and reactivates the cancelled annual leave they came from.
func (m *LeaveManager) Delete(ctx context.Context, leaveID uint) (*DeleteResult, error) {
	result := &DeleteResult{}

	err := m.gw.RunInTx(ctx, func(tx *repository.Tx) error {
		record, err := tx.Leaves().GetByID(ctx, leaveID)
		if err != nil {
			return err
		}
		if record == nil {
			return apperror.NotFound("leave %d not found", leaveID)
		}

		if record.IsCancelled() {
			result.Deleted = append(result.Deleted, record.ID)
			return tx.DeleteLeave(ctx, record.ID)
		}

		parent, err := tx.Leaves().FindCancelledParent(ctx, record.AgentID, record.StartDate, record.EndDate)
		if err != nil {
			return err
		}
		if err := tx.DeleteLeave(ctx, record.ID); err != nil {
			return err
		}
		result.Deleted = append(result.Deleted, record.ID)
		if parent == nil {
			return nil
		}

		siblings, err := tx.Leaves().ListActiveWithin(ctx, record.AgentID, parent.StartDate, parent.EndDate)
		if err != nil {
			return err
		}
		for _, s := range siblings {
			if err := tx.DeleteLeave(ctx, s.ID); err != nil {
				return err
			}
			result.Deleted = append(result.Deleted, s.ID)
		}

		if err := tx.ReviveLeave(ctx, parent); err != nil {
			return err
		}
		result.Restored = parent
		return nil
	})
	if err != nil {
		m.logger.WithField("leave_id", leaveID).WithError(err).Error("Leave deletion rolled back")
		return nil, err
	}

	entry := m.logger.WithFields(logrus.Fields{
		"leave_id": leaveID,
		"deleted":  len(result.Deleted),
	})
	if result.Restored != nil {
		entry = entry.WithField("restored_id", result.Restored.ID)
	}
	entry.Info("Leave deleted")
	return result, nil
}

// AttachCertificate stores src as the certificate of a sick leave, replacing
// the previous file.
func (m *LeaveManager) AttachCertificate(ctx context.Context, leaveID uint, src, doctor string) (*models.Certificate, error) {
	record, err := m.gw.Leaves().GetByID(ctx, leaveID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, apperror.NotFound("leave %d not found", leaveID)
	}
	if record.Type != models.LeaveTypeSick {
		return nil, apperror.Validation("certificates can only be attached to sick leave")
	}
	agent, err := m.gw.GetAgent(ctx, record.AgentID)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, apperror.NotFound("agent %d not found", record.AgentID)
	}
	old, err := m.gw.Certificates().GetByLeaveID(ctx, leaveID)
	if err != nil {
		return nil, err
	}

	if doctor == "" && old != nil {
		doctor = old.DoctorName
	}
	cert, err := m.storeCertificate(ctx, agent, leaveID, src, doctor, record.Days)
	if err != nil {
		return nil, err
	}

	if old != nil && old.FilePath != cert.FilePath {
		if err := m.certs.Remove(old.FilePath); err != nil {
			m.logger.WithField("path", old.FilePath).WithError(err).Warn("Failed to remove replaced certificate")
		}
	}

	m.logger.WithFields(logrus.Fields{
		"leave_id": leaveID,
		"path":     cert.FilePath,
	}).Info("Certificate attached")
	return cert, nil
}

// DetachCertificate removes the certificate of a leave and its file.
func (m *LeaveManager) DetachCertificate(ctx context.Context, leaveID uint) error {
	cert, err := m.gw.Certificates().GetByLeaveID(ctx, leaveID)
	if err != nil {
		return err
	}
	if cert == nil {
		return apperror.NotFound("leave %d has no certificate", leaveID)
	}
	if err := m.gw.DeleteCertificate(ctx, leaveID); err != nil {
		return err
	}
	if m.certs != nil {
		if err := m.certs.Remove(cert.FilePath); err != nil {
			m.logger.WithField("path", cert.FilePath).WithError(err).Warn("Failed to remove certificate file")
		}
	}
	return nil
}

// LeaveDetails is a leave with its certificate, if any.
type LeaveDetails struct {
	Leave       models.LeaveRecord
	Certificate *models.Certificate
	Substitute  string
}

func (m *LeaveManager) GetLeave(ctx context.Context, leaveID uint) (*LeaveDetails, error) {
	record, err := m.gw.Leaves().GetByID(ctx, leaveID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, apperror.NotFound("leave %d not found", leaveID)
	}
	cert, err := m.gw.Certificates().GetByLeaveID(ctx, leaveID)
	if err != nil {
		return nil, err
	}
	details := &LeaveDetails{Leave: *record, Certificate: cert}
	if details.Substitute, err = m.substituteLabel(ctx, record); err != nil {
		return nil, err
	}
	return details, nil
}

func (m *LeaveManager) ListLeaves(ctx context.Context, agentID uint) ([]models.LeaveRecord, error) {
	return m.gw.Leaves().ListByAgent(ctx, agentID)
}

func (m *LeaveManager) ListAllLeaves(ctx context.Context) ([]models.LeaveRecord, error) {
	return m.gw.Leaves().ListAll(ctx)
}

// ComputeDays counts the days of [start, end] under the rule of leaveType.
func (m *LeaveManager) ComputeDays(ctx context.Context, leaveType models.LeaveType, start, end string) (int, error) {
	s, err := ParseDate(start)
	if err != nil {
		return 0, err
	}
	e, err := ParseDate(end)
	if err != nil {
		return 0, err
	}
	if e.Before(s) {
		return 0, apperror.Validation("end date %s is before start date %s", FormatDate(e), FormatDate(s))
	}
	holidays, err := m.holidaysFor(ctx, leaveType, s.Year(), e.Year())
	if err != nil {
		return 0, err
	}
	return workdays.Days(m.rules.Rule(leaveType).Policy, s, e, holidays), nil
}

// ComputeEndDate returns the date of the days-th day counted from start.
func (m *LeaveManager) ComputeEndDate(ctx context.Context, leaveType models.LeaveType, start string, days int) (time.Time, error) {
	s, err := ParseDate(start)
	if err != nil {
		return time.Time{}, err
	}
	if days < 0 {
		return time.Time{}, apperror.Validation("number of days cannot be negative")
	}
	holidays, err := m.holidaysFor(ctx, leaveType, s.Year(), s.Year()+1+days/200)
	if err != nil {
		return time.Time{}, err
	}
	return workdays.EndDate(m.rules.Rule(leaveType).Policy, s, days, holidays), nil
}

// DefaultDays returns the statutory duration of leaveType, 0 when it has none.
func (m *LeaveManager) DefaultDays(leaveType models.LeaveType) int {
	return m.rules.Rule(leaveType).DefaultDays
}

func (m *LeaveManager) RequiresCertificate(leaveType models.LeaveType) bool {
	return m.rules.Rule(leaveType).RequiresCertificate
}

func (m *LeaveManager) holidaysFor(ctx context.Context, leaveType models.LeaveType, fromYear, toYear int) (workdays.HolidaySet, error) {
	if m.rules.Rule(leaveType).Policy == workdays.CalendarDays {
		return workdays.NewHolidaySet(), nil
	}
	return m.holidays.HolidaySet(ctx, fromYear, toYear)
}

func (m *LeaveManager) substituteLabel(ctx context.Context, record *models.LeaveRecord) (string, error) {
	if record.SubstituteID == nil {
		return "", nil
	}
	sub, err := m.gw.GetAgent(ctx, *record.SubstituteID)
	if err != nil {
		return "", err
	}
	if sub == nil {
		return models.DeletedAgentLabel, nil
	}
	return sub.FullName(), nil
}

func (v *validatedRequest) record() *models.LeaveRecord {
	return &models.LeaveRecord{
		AgentID:       v.AgentID,
		Type:          v.Type,
		Justification: v.Justification,
		SubstituteID:  v.SubstituteID,
		StartDate:     v.start,
		EndDate:       v.end,
		Days:          v.Days,
		Status:        models.LeaveStatusActive,
	}
}

func (m *LeaveManager) fields(v *validatedRequest, leaveID uint) logrus.Fields {
	return logrus.Fields{
		"leave_id": leaveID,
		"agent_id": v.AgentID,
		"type":     v.Type,
		"start":    v.start.Format("2006-01-02"),
		"end":      v.end.Format("2006-01-02"),
		"days":     v.Days,
	}
}

func (m *LeaveManager) logFailure(v *validatedRequest, err error) {
	entry := m.logger.WithFields(m.fields(v, v.LeaveID)).WithError(err)
	if apperror.IsClientError(err) {
		entry.Warn("Leave submission rejected")
		return
	}
	entry.Error("Leave submission rolled back")
}

func allAnnual(records []models.LeaveRecord) bool {
	for _, r := range records {
		if r.Type != models.LeaveTypeAnnual {
			return false
		}
	}
	return true
}
