package service

import (
	"leave-manager-bot/internal/config"
	"leave-manager-bot/internal/models"
	"leave-manager-bot/pkg/workdays"
)

// LeaveTypeRule says how a leave type is counted.
type LeaveTypeRule struct {
	Policy              workdays.Policy
	DefaultDays         int // 0 when the type has no statutory duration
	RequiresCertificate bool
}

// LeaveRules maps every leave type to its rule.
type LeaveRules map[models.LeaveType]LeaveTypeRule

func NewLeaveRules(cfg config.LeaveConfig) LeaveRules {
	return LeaveRules{
		models.LeaveTypeAnnual:      {Policy: workdays.BusinessDays},
		models.LeaveTypeSick:        {Policy: workdays.CalendarDays, RequiresCertificate: true},
		models.LeaveTypeMaternity:   {Policy: workdays.CalendarDays, DefaultDays: cfg.MaternityDays},
		models.LeaveTypePaternity:   {Policy: workdays.CalendarDays, DefaultDays: cfg.PaternityDays},
		models.LeaveTypeExceptional: {Policy: workdays.CalendarDays},
	}
}

// Rule returns the rule of t. Unknown types count calendar days.
func (r LeaveRules) Rule(t models.LeaveType) LeaveTypeRule {
	if rule, ok := r[t]; ok {
		return rule
	}
	return LeaveTypeRule{Policy: workdays.CalendarDays}
}
