package models

import (
	"fmt"
	"time"
)

type LeaveType string

const (
	LeaveTypeAnnual      LeaveType = "annual"
	LeaveTypeSick        LeaveType = "sick"
	LeaveTypeMaternity   LeaveType = "maternity"
	LeaveTypePaternity   LeaveType = "paternity"
	LeaveTypeExceptional LeaveType = "exceptional"
)

// LeaveTypes lists every leave type in display order.
var LeaveTypes = []LeaveType{
	LeaveTypeAnnual,
	LeaveTypeSick,
	LeaveTypeMaternity,
	LeaveTypePaternity,
	LeaveTypeExceptional,
}

func (t LeaveType) Valid() bool {
	for _, lt := range LeaveTypes {
		if lt == t {
			return true
		}
	}
	return false
}

func (t LeaveType) Label() string {
	switch t {
	case LeaveTypeAnnual:
		return "Annual leave"
	case LeaveTypeSick:
		return "Sick leave"
	case LeaveTypeMaternity:
		return "Maternity leave"
	case LeaveTypePaternity:
		return "Paternity leave"
	case LeaveTypeExceptional:
		return "Exceptional leave"
	default:
		return string(t)
	}
}

type LeaveStatus string

const (
	LeaveStatusActive    LeaveStatus = "Active"
	LeaveStatusCancelled LeaveStatus = "Cancelled"
)

type LeaveRecord struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	AgentID       uint        `gorm:"not null;index:idx_leave_records_agent_period" json:"agent_id"`
	Type          LeaveType   `gorm:"type:varchar(20);not null" json:"type"`
	Justification string      `json:"justification"`
	SubstituteID  *uint       `json:"substitute_id"`
	StartDate     time.Time   `gorm:"type:date;not null;index:idx_leave_records_agent_period" json:"start_date"`
	EndDate       time.Time   `gorm:"type:date;not null;index:idx_leave_records_agent_period" json:"end_date"`
	Days          int         `gorm:"not null;check:chk_leave_records_days,days >= 0" json:"days"`
	Status        LeaveStatus `gorm:"type:varchar(20);not null;default:'Active';index:idx_leave_records_agent_period" json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`

	Agent      *Agent `gorm:"foreignKey:AgentID;constraint:OnDelete:CASCADE" json:"-"`
	Substitute *Agent `gorm:"foreignKey:SubstituteID;constraint:OnDelete:SET NULL" json:"-"`
}

func (LeaveRecord) TableName() string {
	return "leave_records"
}

func (l *LeaveRecord) IsActive() bool {
	return l.Status == LeaveStatusActive
}

func (l *LeaveRecord) IsCancelled() bool {
	return l.Status == LeaveStatusCancelled
}

// Overlaps reports whether [start, end] intersects the record period.
func (l *LeaveRecord) Overlaps(start, end time.Time) bool {
	return !l.EndDate.Before(start) && !l.StartDate.After(end)
}

// Within reports whether the record period lies inside [start, end].
func (l *LeaveRecord) Within(start, end time.Time) bool {
	return !l.StartDate.Before(start) && !l.EndDate.After(end)
}

func (l *LeaveRecord) String() string {
	return fmt.Sprintf("%s from %s to %s (%d days)",
		l.Type.Label(),
		l.StartDate.Format("02/01/2006"),
		l.EndDate.Format("02/01/2006"),
		l.Days)
}
