package models

import (
	"time"
)

type ResourceAccountStatus string

const (
	ResourceAccountActive   ResourceAccountStatus = "active"
	ResourceAccountInactive ResourceAccountStatus = "inactive"
)

// ResourceAccount holds credentials and capacity for one external Zoom
// account. The credential fields are opaque to the booking engine and are
// only handed to the per-account API client. Only active accounts are
// eligible for allocation.
type ResourceAccount struct {
	ID                    uint                  `json:"id" gorm:"primaryKey"`
	Label                 string                `json:"label" gorm:"size:255;not null"`
	Email                 string                `json:"email" gorm:"size:255;not null;uniqueIndex"`
	ZoomAccountID         string                `json:"-" gorm:"size:128;not null"`
	ZoomClientID          string                `json:"-" gorm:"size:128;not null"`
	ZoomClientSecret      string                `json:"-" gorm:"size:128;not null"`
	MaxConcurrentMeetings int                   `json:"max_concurrent_meetings" gorm:"not null;default:1"`
	Status                ResourceAccountStatus `json:"status" gorm:"type:varchar(20);default:'active';check:status IN ('active','inactive')"`
	LastVerifiedAt        *time.Time            `json:"last_verified_at"`
	CreatedAt             time.Time             `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt             time.Time             `json:"updated_at" gorm:"autoUpdateTime"`
}

func (ResourceAccount) TableName() string {
	return "resource_accounts"
}
