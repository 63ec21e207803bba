package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"conference-booking-server/models"
	"conference-booking-server/zoom"
)

// Placeholder links issued when the provider is unreachable carry this base
// so operators and the repair job can recognize them at a glance. The real
// repair selection keys on the null external meeting id, not the link text.
const fallbackLinkBase = "https://meet.bookings.local/fallback/"

// MeetingOptions are the external-meeting settings an approver can set.
// JoinBeforeHost and WaitingRoom are mutually exclusive on the provider
// side; LastSet names the option toggled last so Resolve knows which wins.
type MeetingOptions struct {
	JoinBeforeHost bool   `json:"join_before_host"`
	WaitingRoom    bool   `json:"waiting_room"`
	LastSet        string `json:"last_set,omitempty"`
}

// Resolve enforces the mutual exclusion: whichever option was set true last
// forces the other to false. When the caller does not say which came last,
// join-before-host wins.
func (o MeetingOptions) Resolve() MeetingOptions {
	if o.JoinBeforeHost && o.WaitingRoom {
		if o.LastSet == "waiting_room" {
			o.JoinBeforeHost = false
		} else {
			o.WaitingRoom = false
		}
	}
	o.LastSet = ""
	return o
}

// ProvisionResult is the outcome of provisioning one booking: either the
// provider's identifiers, or a fallback link with the provider's error.
type ProvisionResult struct {
	Meeting     *zoom.Meeting
	Fallback    bool
	FallbackURL string
	ProviderErr string
}

// ProvisionService creates and deletes the external meetings that back
// approved bookings, and writes the audit trail of every provider call.
type ProvisionService struct {
	db       *gorm.DB
	accounts *AccountService
}

func NewProvisionService(db *gorm.DB, accounts *AccountService) *ProvisionService {
	return &ProvisionService{db: db, accounts: accounts}
}

// CreateExternal calls the provider to create the meeting for a booking and
// logs the call. Unlike Provision it does not fall back on failure; the
// repair job uses it directly so a failed item stays repairable.
func (s *ProvisionService) CreateExternal(booking *models.Booking, account *models.ResourceAccount, options MeetingOptions) (*zoom.Meeting, error) {
	options = options.Resolve()

	req := &zoom.MeetingRequest{
		Topic:          booking.Title,
		Agenda:         booking.Description,
		StartTime:      fmt.Sprintf("%sT%s:00Z", booking.Date, booking.StartTime),
		Duration:       durationMinutes(booking.StartTime, booking.EndTime),
		JoinBeforeHost: options.JoinBeforeHost,
		WaitingRoom:    options.WaitingRoom,
	}
	reqBody, _ := json.Marshal(req)

	client := s.accounts.ClientFor(account)
	meeting, err := client.CreateMeeting(req)
	if err != nil {
		s.logCall(account.ID, booking.ID, "create_meeting", "/users/me/meetings",
			string(reqBody), "", httpStatusOf(err), false, err.Error())
		return nil, newProviderError("create meeting", err)
	}

	respBody, _ := json.Marshal(meeting)
	s.logCall(account.ID, booking.ID, "create_meeting", "/users/me/meetings",
		string(reqBody), string(respBody), 201, true, "")

	return meeting, nil
}

// Provision creates the external meeting for a booking being approved. A
// provider failure is absorbed: the result carries a locally generated
// placeholder join link so the approval can still proceed, at the cost of a
// non-functional link until the repair job fills in the real meeting.
func (s *ProvisionService) Provision(booking *models.Booking, account *models.ResourceAccount, options MeetingOptions) *ProvisionResult {
	meeting, err := s.CreateExternal(booking, account, options)
	if err != nil {
		fallback := fallbackLinkBase + uuid.NewString()
		log.Printf("⚠️ Provisioning failed for booking %d on account %q, issuing fallback link: %v",
			booking.ID, account.Label, err)
		return &ProvisionResult{
			Fallback:    true,
			FallbackURL: fallback,
			ProviderErr: err.Error(),
		}
	}

	log.Printf("✅ Booking %d provisioned as meeting %s on account %q", booking.ID, meeting.MeetingID, account.Label)
	return &ProvisionResult{Meeting: meeting}
}

// Deprovision deletes the external meeting behind a booking, if one exists.
// Callers treat failure as best-effort: it is logged and the local
// transition proceeds regardless.
func (s *ProvisionService) Deprovision(booking *models.Booking) error {
	if booking.ZoomMeetingID == nil || booking.ResourceAccountID == nil {
		return nil
	}

	var account models.ResourceAccount
	if err := s.db.First(&account, *booking.ResourceAccountID).Error; err != nil {
		return fmt.Errorf("load account for deprovision: %w", err)
	}

	endpoint := "/meetings/" + *booking.ZoomMeetingID
	client := s.accounts.ClientFor(&account)
	if err := client.DeleteMeeting(*booking.ZoomMeetingID); err != nil {
		s.logCall(account.ID, booking.ID, "delete_meeting", endpoint, "", "", httpStatusOf(err), false, err.Error())
		return newProviderError("delete meeting", err)
	}

	s.logCall(account.ID, booking.ID, "delete_meeting", endpoint, "", "", 204, true, "")
	log.Printf("✅ External meeting %s deleted for booking %d", *booking.ZoomMeetingID, booking.ID)
	return nil
}

// logCall appends one row to the provider audit trail. Audit failures are
// logged but never fail the caller's operation.
func (s *ProvisionService) logCall(accountID, bookingID uint, action, endpoint, reqBody, respBody string, status int, success bool, errMsg string) {
	entry := models.APICallLog{
		Action:       action,
		Endpoint:     endpoint,
		RequestBody:  reqBody,
		ResponseBody: respBody,
		HTTPStatus:   status,
		Success:      success,
		ErrorMessage: errMsg,
	}
	if accountID != 0 {
		entry.ResourceAccountID = &accountID
	}
	if bookingID != 0 {
		entry.BookingID = &bookingID
	}
	if err := s.db.Create(&entry).Error; err != nil {
		log.Printf("⚠️ Failed to write API call log (%s %s): %v", action, endpoint, err)
	}
}

func httpStatusOf(err error) int {
	var apiErr *zoom.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func durationMinutes(start, end string) int {
	return minutesOf(end) - minutesOf(start)
}
