package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DeletedAgentLabel is shown in place of a substitute agent that no longer exists.
const DeletedAgentLabel = "deleted agent"

type Agent struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	LastName        string          `gorm:"not null" json:"last_name"`
	FirstName       string          `json:"first_name"`
	PersonnelNumber *string         `gorm:"uniqueIndex" json:"personnel_number"`
	Grade           string          `json:"grade"`
	Balance         decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0;check:chk_agents_balance,balance >= 0" json:"balance"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (Agent) TableName() string {
	return "agents"
}

// FullName returns "LAST First".
func (a *Agent) FullName() string {
	return strings.TrimSpace(a.LastName + " " + a.FirstName)
}

// PersonnelNumberOr returns the personnel number or fallback when it is unset.
func (a *Agent) PersonnelNumberOr(fallback string) string {
	if a.PersonnelNumber == nil || *a.PersonnelNumber == "" {
		return fallback
	}
	return *a.PersonnelNumber
}

func (a *Agent) String() string {
	return fmt.Sprintf("%s (PPR: %s)", a.FullName(), a.PersonnelNumberOr("-"))
}
