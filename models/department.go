package models

import (
	"time"
)

// Department groups users and carries the weekly booking quota.
// WeeklyLimit counts pending+approved bookings per Monday-Sunday week.
type Department struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"size:255;not null;uniqueIndex"`
	WeeklyLimit int       `json:"weekly_limit" gorm:"not null;default:5"`
	IsActive    bool      `json:"is_active" gorm:"default:true"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Department) TableName() string {
	return "departments"
}
