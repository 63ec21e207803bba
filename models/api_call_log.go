package models

import (
	"time"
)

// APICallLog is the append-only audit trail of every call made to the
// external provider: who, what, request/response payloads and outcome.
// Rows are only ever inserted, never updated.
type APICallLog struct {
	ID                uint      `json:"id" gorm:"primaryKey"`
	ResourceAccountID *uint     `json:"resource_account_id" gorm:"index"`
	BookingID         *uint     `json:"booking_id" gorm:"index"`
	Action            string    `json:"action" gorm:"size:64;not null"`
	Endpoint          string    `json:"endpoint" gorm:"size:512;not null"`
	RequestBody       string    `json:"request_body" gorm:"type:text"`
	ResponseBody      string    `json:"response_body" gorm:"type:text"`
	HTTPStatus        int       `json:"http_status"`
	Success           bool      `json:"success"`
	ErrorMessage      string    `json:"error_message" gorm:"size:1000"`
	CreatedAt         time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (APICallLog) TableName() string {
	return "api_call_logs"
}
