package models

import (
	"time"
)

// BlackoutPeriod is an admin-defined date range (inclusive on both ends)
// during which no new booking may be created. Dates use "2006-01-02".
type BlackoutPeriod struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"size:255;not null"`
	StartDate string    `json:"start_date" gorm:"size:10;not null;index"`
	EndDate   string    `json:"end_date" gorm:"size:10;not null;index"`
	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (BlackoutPeriod) TableName() string {
	return "blackout_periods"
}
