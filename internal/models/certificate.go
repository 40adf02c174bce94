package models

import "time"

// Certificate is the medical certificate attached to a sick leave record.
type Certificate struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	LeaveID    uint      `gorm:"not null;uniqueIndex" json:"leave_id"`
	DoctorName string    `json:"doctor_name"`
	Days       int       `json:"days"`
	FilePath   string    `gorm:"not null" json:"file_path"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Leave *LeaveRecord `gorm:"foreignKey:LeaveID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Certificate) TableName() string {
	return "certificates"
}
