package services

import (
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"conference-booking-server/models"
)

type ReconciliationOutcome string

const (
	OutcomeUpdated   ReconciliationOutcome = "updated"
	OutcomeUnchanged ReconciliationOutcome = "unchanged"
	OutcomeError     ReconciliationOutcome = "error"
)

type ReconciliationItem struct {
	BookingID uint                  `json:"booking_id"`
	Outcome   ReconciliationOutcome `json:"outcome"`
	Message   string                `json:"message,omitempty"`
}

type ReconciliationSummary struct {
	Job            string               `json:"job"`
	TotalProcessed int                  `json:"total_processed"`
	SuccessCount   int                  `json:"success_count"`
	ErrorCount     int                  `json:"error_count"`
	Results        []ReconciliationItem `json:"results"`
}

// ReconciliationService heals drift between local bookings and the external
// provider. Both passes are idempotent and safe to re-run: they only touch
// bookings whose status and previously-observed fields still match the
// selection at update time, so a concurrent approval or cancellation
// degrades to a harmless no-op on the next pass.
type ReconciliationService struct {
	db          *gorm.DB
	accounts    *AccountService
	provisioner *ProvisionService
	// callDelay is the fixed pause between external calls, respecting the
	// provider's rate limits.
	callDelay time.Duration
}

func NewReconciliationService(db *gorm.DB, accounts *AccountService, provisioner *ProvisionService, callDelay time.Duration) *ReconciliationService {
	return &ReconciliationService{
		db:          db,
		accounts:    accounts,
		provisioner: provisioner,
		callDelay:   callDelay,
	}
}

// RefreshStartLinks fetches the provider's current start credential for
// every approved booking with a known external meeting, overwriting the
// stored one only when it differs. Errors are captured per item and never
// roll anything back.
func (s *ReconciliationService) RefreshStartLinks() (*ReconciliationSummary, error) {
	summary := &ReconciliationSummary{Job: "start_link_refresh"}

	var bookings []models.Booking
	err := s.db.
		Preload("ResourceAccount").
		Where("status = ?", models.BookingStatusApproved).
		Where("zoom_meeting_id IS NOT NULL").
		Where("resource_account_id IS NOT NULL").
		Order("id").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}

	for i, booking := range bookings {
		if i > 0 {
			time.Sleep(s.callDelay)
		}
		summary.record(s.refreshOne(&booking))
	}

	log.Printf("🔄 Start-link refresh done: %d processed, %d ok, %d errors",
		summary.TotalProcessed, summary.SuccessCount, summary.ErrorCount)
	return summary, nil
}

func (s *ReconciliationService) refreshOne(booking *models.Booking) ReconciliationItem {
	item := ReconciliationItem{BookingID: booking.ID}

	if booking.ResourceAccount == nil || booking.ResourceAccount.Status != models.ResourceAccountActive {
		item.Outcome = OutcomeError
		item.Message = "resource account missing or inactive"
		return item
	}

	client := s.accounts.ClientFor(booking.ResourceAccount)
	detail, err := client.GetMeeting(*booking.ZoomMeetingID)
	if err != nil {
		item.Outcome = OutcomeError
		item.Message = err.Error()
		return item
	}

	if booking.StartURL != nil && *booking.StartURL == detail.StartURL {
		item.Outcome = OutcomeUnchanged
		return item
	}

	// Guard on status and the previously-observed value so a booking
	// cancelled between selection and update is left alone.
	q := s.db.Model(&models.Booking{}).
		Where("id = ? AND status = ?", booking.ID, models.BookingStatusApproved)
	if booking.StartURL == nil {
		q = q.Where("start_url IS NULL")
	} else {
		q = q.Where("start_url = ?", *booking.StartURL)
	}
	res := q.Update("start_url", detail.StartURL)
	if res.Error != nil {
		item.Outcome = OutcomeError
		item.Message = res.Error.Error()
		return item
	}
	if res.RowsAffected == 0 {
		item.Outcome = OutcomeUnchanged
		item.Message = "booking changed concurrently, skipped"
		return item
	}

	item.Outcome = OutcomeUpdated
	return item
}

// RepairMissingMeetings re-creates the external meeting for approved
// bookings that have a resource account but no external meeting id, i.e.
// bookings whose provisioning fell back or never ran. Failures leave the
// booking as-is for the next run.
func (s *ReconciliationService) RepairMissingMeetings() (*ReconciliationSummary, error) {
	summary := &ReconciliationSummary{Job: "missing_meeting_repair"}

	var bookings []models.Booking
	err := s.db.
		Preload("ResourceAccount").
		Where("status = ?", models.BookingStatusApproved).
		Where("zoom_meeting_id IS NULL").
		Where("resource_account_id IS NOT NULL").
		Order("id").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}

	for i, booking := range bookings {
		if i > 0 {
			time.Sleep(s.callDelay)
		}
		summary.record(s.repairOne(&booking))
	}

	log.Printf("🔄 Missing-meeting repair done: %d processed, %d ok, %d errors",
		summary.TotalProcessed, summary.SuccessCount, summary.ErrorCount)
	return summary, nil
}

func (s *ReconciliationService) repairOne(booking *models.Booking) ReconciliationItem {
	item := ReconciliationItem{BookingID: booking.ID}

	if booking.ResourceAccount == nil || booking.ResourceAccount.Status != models.ResourceAccountActive {
		item.Outcome = OutcomeError
		item.Message = "resource account missing or inactive"
		return item
	}

	meeting, err := s.provisioner.CreateExternal(booking, booking.ResourceAccount, MeetingOptions{})
	if err != nil {
		item.Outcome = OutcomeError
		item.Message = err.Error()
		return item
	}

	res := s.db.Model(&models.Booking{}).
		Where("id = ? AND status = ? AND zoom_meeting_id IS NULL", booking.ID, models.BookingStatusApproved).
		Updates(map[string]interface{}{
			"zoom_meeting_id": meeting.MeetingID,
			"zoom_uuid":       meeting.UUID,
			"join_url":        meeting.JoinURL,
			"start_url":       meeting.StartURL,
			"passcode":        meeting.Passcode,
			"host_id":         meeting.HostID,
		})
	if res.Error != nil {
		item.Outcome = OutcomeError
		item.Message = res.Error.Error()
		return item
	}
	if res.RowsAffected == 0 {
		item.Outcome = OutcomeUnchanged
		item.Message = "booking changed concurrently, created meeting left for next refresh"
		return item
	}

	item.Outcome = OutcomeUpdated
	item.Message = fmt.Sprintf("meeting %s created", meeting.MeetingID)
	return item
}

func (s *ReconciliationSummary) record(item ReconciliationItem) {
	s.TotalProcessed++
	if item.Outcome == OutcomeError {
		s.ErrorCount++
	} else {
		s.SuccessCount++
	}
	s.Results = append(s.Results, item)
}
