package models

import (
	"time"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusApproved  BookingStatus = "approved"
	BookingStatusRejected  BookingStatus = "rejected"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Booking is a requested or confirmed reservation of a conferencing slot.
//
// Date is stored as "2006-01-02" and the times as zero-padded "15:04" so the
// same range and overlap queries work on Postgres and on the sqlite test
// store (string comparison is chronological for these formats).
//
// The Zoom* fields stay null until the booking is approved and provisioning
// succeeded. A provider outage during approval leaves them null and fills
// JoinURL with a locally generated placeholder link instead; the repair job
// picks those bookings up later by the null ZoomMeetingID.
type Booking struct {
	ID           uint          `json:"id" gorm:"primaryKey"`
	Title        string        `json:"title" gorm:"size:255;not null"`
	Description  string        `json:"description" gorm:"size:1000"`
	Date         string        `json:"date" gorm:"size:10;not null;index"`
	StartTime    string        `json:"start_time" gorm:"size:5;not null"`
	EndTime      string        `json:"end_time" gorm:"size:5;not null"`
	UserID       uint          `json:"user_id" gorm:"not null;index"`
	DepartmentID uint          `json:"department_id" gorm:"not null;index"`
	Status       BookingStatus `json:"status" gorm:"type:varchar(20);default:'pending';index;check:status IN ('pending','approved','rejected','cancelled')"`

	ResourceAccountID *uint `json:"resource_account_id" gorm:"index"`

	ZoomMeetingID *string `json:"zoom_meeting_id" gorm:"size:64;index"`
	ZoomUUID      *string `json:"zoom_uuid" gorm:"size:128"`
	JoinURL       *string `json:"join_url" gorm:"size:2048"`
	StartURL      *string `json:"start_url" gorm:"size:2048"`
	Passcode      *string `json:"passcode" gorm:"size:64"`
	HostID        *string `json:"host_id" gorm:"size:128"`

	// Recurring-import bookkeeping: occurrences imported from an external
	// recurring meeting carry the parent template id and occurrence id,
	// which together form the importer's dedup key.
	IsRecurringImport bool    `json:"is_recurring_import" gorm:"default:false"`
	ParentMeetingID   *string `json:"parent_meeting_id" gorm:"size:64;index"`
	OccurrenceID      *string `json:"occurrence_id" gorm:"size:64"`

	ApprovedBy   *uint      `json:"approved_by"`
	ApprovedAt   *time.Time `json:"approved_at"`
	RejectedBy   *uint      `json:"rejected_by"`
	RejectedAt   *time.Time `json:"rejected_at"`
	RejectReason *string    `json:"reject_reason" gorm:"size:500"`
	CancelledBy  *uint      `json:"cancelled_by"`
	CancelledAt  *time.Time `json:"cancelled_at"`
	CancelReason *string    `json:"cancel_reason" gorm:"size:500"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	User            User             `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Department      Department       `json:"department,omitempty" gorm:"foreignKey:DepartmentID"`
	ResourceAccount *ResourceAccount `json:"resource_account,omitempty" gorm:"foreignKey:ResourceAccountID"`
}

func (Booking) TableName() string {
	return "bookings"
}

// IsTerminal reports whether the booking can no longer change status.
func (b *Booking) IsTerminal() bool {
	return b.Status == BookingStatusRejected || b.Status == BookingStatusCancelled
}
