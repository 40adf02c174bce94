package models

import (
	"time"
)

type HolidayType string

const (
	HolidayTypeAutomatic HolidayType = "Automatic"
	HolidayTypeCustom    HolidayType = "Custom"
)

// CustomHoliday is a non-working date stored in the database, either
// imported from the official calendar or entered by the operator.
type CustomHoliday struct {
	Date      time.Time   `gorm:"primaryKey;type:date" json:"date"`
	Name      string      `gorm:"not null" json:"name"`
	Type      HolidayType `gorm:"type:varchar(20);not null;index" json:"type"`
	Year      int         `gorm:"not null;index" json:"year"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func (CustomHoliday) TableName() string {
	return "custom_holidays"
}

func (h *CustomHoliday) IsCustom() bool {
	return h.Type == HolidayTypeCustom
}
