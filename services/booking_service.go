package services

import (
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"conference-booking-server/models"
)

// Notifier receives booking lifecycle events for the admin event feed.
// The websocket hub implements it; a nil notifier disables notifications.
type Notifier interface {
	NotifyBookingEvent(eventType string, data interface{})
}

// BookingService owns the booking lifecycle: intake of new requests and the
// pending -> approved/rejected, approved -> cancelled state machine with its
// provisioning side effects.
type BookingService struct {
	db           *gorm.DB
	availability *AvailabilityService
	accounts     *AccountService
	provisioner  *ProvisionService
	notifier     Notifier
}

func NewBookingService(db *gorm.DB, availability *AvailabilityService, accounts *AccountService, provisioner *ProvisionService, notifier Notifier) *BookingService {
	return &BookingService{
		db:           db,
		availability: availability,
		accounts:     accounts,
		provisioner:  provisioner,
		notifier:     notifier,
	}
}

type CreateBookingRequest struct {
	Title        string `json:"title" binding:"required"`
	Description  string `json:"description"`
	Date         string `json:"date" binding:"required"`
	StartTime    string `json:"start_time" binding:"required"`
	EndTime      string `json:"end_time" binding:"required"`
	DepartmentID uint   `json:"department_id"`
}

// CreateBooking validates the request, runs the availability gate and
// inserts a pending booking. When the window is unavailable it returns the
// availability result (with conflicts and suggestions) and no booking; all
// checks happen before any write.
func (s *BookingService) CreateBooking(req CreateBookingRequest, actor models.User) (*models.Booking, *AvailabilityResult, error) {
	departmentID := req.DepartmentID
	if departmentID == 0 && actor.DepartmentID != nil {
		departmentID = *actor.DepartmentID
	}
	if departmentID == 0 {
		return nil, nil, fmt.Errorf("%w: a department is required", ErrValidation)
	}

	availability, err := s.availability.CheckAvailability(req.Date, req.StartTime, req.EndTime, actor.ID, departmentID, 0)
	if err != nil {
		return nil, nil, err
	}
	if !availability.Available {
		return nil, availability, nil
	}

	booking := models.Booking{
		Title:        req.Title,
		Description:  req.Description,
		Date:         req.Date,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		UserID:       actor.ID,
		DepartmentID: departmentID,
		Status:       models.BookingStatusPending,
	}
	if err := s.db.Create(&booking).Error; err != nil {
		return nil, nil, err
	}

	log.Printf("✅ Booking %d created by user %d (%s %s-%s)", booking.ID, actor.ID, booking.Date, booking.StartTime, booking.EndTime)
	s.notify("booking_created", &booking)
	return &booking, availability, nil
}

// GetBooking loads one booking with its relations.
func (s *BookingService) GetBooking(id uint) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.
		Preload("User").
		Preload("Department").
		Preload("ResourceAccount").
		First(&booking, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("%w: booking %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// ListBookings returns bookings filtered by user (0 = all) and status
// ("" = all), newest date first.
func (s *BookingService) ListBookings(userID uint, status models.BookingStatus) ([]models.Booking, error) {
	q := s.db.Preload("Department").Preload("ResourceAccount")
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var bookings []models.Booking
	err := q.Order("date DESC, start_time DESC").Find(&bookings).Error
	return bookings, err
}

// Approve moves a pending booking to approved, provisioning the external
// meeting on the selected resource account.
//
// The external create happens before the transaction commits; the status
// write and the external-identifier write then happen atomically. Inside
// the transaction the account's approved bookings for that date are
// re-read (row-locked on Postgres) so two concurrent approvals cannot
// double-book the account.
func (s *BookingService) Approve(bookingID, accountID uint, options MeetingOptions, actor models.User) (*models.Booking, error) {
	booking, err := s.GetBooking(bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.BookingStatusPending {
		return nil, fmt.Errorf("%w: booking %d is %s", ErrInvalidState, bookingID, booking.Status)
	}
	if accountID == 0 {
		return nil, ErrResourceRequired
	}

	account, err := s.accounts.GetActiveAccount(accountID)
	if err != nil {
		return nil, err
	}

	// Cheap pre-check before spending an external call.
	busy, err := s.availability.AccountBusy(s.db, accountID, booking.Date, booking.StartTime, booking.EndTime, booking.ID)
	if err != nil {
		return nil, err
	}
	if busy {
		return nil, fmt.Errorf("%w: account %q on %s %s-%s", ErrResourceBusy, account.Label, booking.Date, booking.StartTime, booking.EndTime)
	}

	result := s.provisioner.Provision(booking, account, options)

	now := time.Now()
	updates := map[string]interface{}{
		"status":              models.BookingStatusApproved,
		"resource_account_id": account.ID,
		"approved_by":         actor.ID,
		"approved_at":         &now,
	}
	if result.Fallback {
		updates["join_url"] = result.FallbackURL
	} else {
		updates["zoom_meeting_id"] = result.Meeting.MeetingID
		updates["zoom_uuid"] = result.Meeting.UUID
		updates["join_url"] = result.Meeting.JoinURL
		updates["start_url"] = result.Meeting.StartURL
		updates["passcode"] = result.Meeting.Passcode
		updates["host_id"] = result.Meeting.HostID
	}

	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		existing, err := s.lockedAccountBookings(tx, accountID, booking.Date, booking.ID)
		if err != nil {
			return err
		}
		overlapping := 0
		for _, other := range existing {
			if Overlaps(booking.StartTime, booking.EndTime, other.StartTime, other.EndTime) {
				overlapping++
			}
		}
		if overlapping >= account.MaxConcurrentMeetings {
			return fmt.Errorf("%w: account %q reached its capacity of %d on %s %s-%s",
				ErrResourceBusy, account.Label, account.MaxConcurrentMeetings, booking.Date, booking.StartTime, booking.EndTime)
		}

		res := tx.Model(&models.Booking{}).
			Where("id = ? AND status = ?", booking.ID, models.BookingStatusPending).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: booking %d changed status concurrently", ErrInvalidState, booking.ID)
		}
		return nil
	})
	if txErr != nil {
		// The meeting was already created externally; clean it up so the
		// account is not left with an orphan.
		if !result.Fallback && result.Meeting != nil {
			orphan := *booking
			orphan.ResourceAccountID = &account.ID
			orphan.ZoomMeetingID = &result.Meeting.MeetingID
			if err := s.provisioner.Deprovision(&orphan); err != nil {
				log.Printf("⚠️ Could not delete orphaned meeting %s after failed approval: %v", result.Meeting.MeetingID, err)
			}
		}
		return nil, txErr
	}

	approved, err := s.GetBooking(booking.ID)
	if err != nil {
		return nil, err
	}

	if result.Fallback {
		log.Printf("⚠️ Booking %d approved with fallback link (provider error: %s)", booking.ID, result.ProviderErr)
	} else {
		log.Printf("✅ Booking %d approved by user %d on account %q", booking.ID, actor.ID, account.Label)
	}
	s.notify("booking_approved", approved)
	return approved, nil
}

// Reject moves a pending booking to the terminal rejected state.
func (s *BookingService) Reject(bookingID uint, reason string, actor models.User) (*models.Booking, error) {
	booking, err := s.GetBooking(bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.BookingStatusPending {
		return nil, fmt.Errorf("%w: booking %d is %s", ErrInvalidState, bookingID, booking.Status)
	}

	now := time.Now()
	res := s.db.Model(&models.Booking{}).
		Where("id = ? AND status = ?", bookingID, models.BookingStatusPending).
		Updates(map[string]interface{}{
			"status":        models.BookingStatusRejected,
			"rejected_by":   actor.ID,
			"rejected_at":   &now,
			"reject_reason": reason,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: booking %d changed status concurrently", ErrInvalidState, bookingID)
	}

	log.Printf("✅ Booking %d rejected by user %d: %s", bookingID, actor.ID, reason)
	rejected, err := s.GetBooking(bookingID)
	if err != nil {
		return nil, err
	}
	s.notify("booking_rejected", rejected)
	return rejected, nil
}

// Cancel moves an approved booking to the terminal cancelled state. The
// local transition commits first; deleting the external meeting afterwards
// is best-effort, so a provider outage never blocks a cancellation.
func (s *BookingService) Cancel(bookingID uint, reason string, actor models.User) (*models.Booking, error) {
	booking, err := s.GetBooking(bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.BookingStatusApproved {
		return nil, fmt.Errorf("%w: booking %d is %s", ErrInvalidState, bookingID, booking.Status)
	}

	now := time.Now()
	res := s.db.Model(&models.Booking{}).
		Where("id = ? AND status = ?", bookingID, models.BookingStatusApproved).
		Updates(map[string]interface{}{
			"status":        models.BookingStatusCancelled,
			"cancelled_by":  actor.ID,
			"cancelled_at":  &now,
			"cancel_reason": reason,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: booking %d changed status concurrently", ErrInvalidState, bookingID)
	}

	if err := s.provisioner.Deprovision(booking); err != nil {
		log.Printf("⚠️ Best-effort external delete failed for cancelled booking %d: %v", bookingID, err)
	}

	log.Printf("✅ Booking %d cancelled by user %d: %s", bookingID, actor.ID, reason)
	cancelled, err := s.GetBooking(bookingID)
	if err != nil {
		return nil, err
	}
	s.notify("booking_cancelled", cancelled)
	return cancelled, nil
}

type BulkItemResult struct {
	BookingID uint   `json:"booking_id"`
	Success   bool   `json:"success"`
	Message   string `json:"message"`
}

type BulkApproveResult struct {
	Overall      string           `json:"overall"` // "success", "partial" or "failure"
	SuccessCount int              `json:"success_count"`
	FailureCount int              `json:"failure_count"`
	Results      []BulkItemResult `json:"results"`
}

// BulkApprove applies Approve to each id independently; one failure never
// aborts the remaining ids.
func (s *BookingService) BulkApprove(bookingIDs []uint, accountID uint, options MeetingOptions, actor models.User) (*BulkApproveResult, error) {
	if len(bookingIDs) == 0 {
		return nil, fmt.Errorf("%w: no booking ids supplied", ErrValidation)
	}

	result := &BulkApproveResult{}
	for _, id := range bookingIDs {
		item := BulkItemResult{BookingID: id}
		if _, err := s.Approve(id, accountID, options, actor); err != nil {
			item.Message = err.Error()
			result.FailureCount++
		} else {
			item.Success = true
			item.Message = "approved"
			result.SuccessCount++
		}
		result.Results = append(result.Results, item)
	}

	switch {
	case result.FailureCount == 0:
		result.Overall = "success"
	case result.SuccessCount == 0:
		result.Overall = "failure"
	default:
		result.Overall = "partial"
	}

	log.Printf("🔄 Bulk approve finished: %d ok, %d failed (%s)", result.SuccessCount, result.FailureCount, result.Overall)
	return result, nil
}

// lockedAccountBookings re-reads the account's approved bookings for one
// date inside the approval transaction. Row locks are a Postgres feature;
// the sqlite test store runs the same query without the clause.
func (s *BookingService) lockedAccountBookings(tx *gorm.DB, accountID uint, date string, excludeID uint) ([]models.Booking, error) {
	q := tx.
		Where("resource_account_id = ?", accountID).
		Where("date = ?", date).
		Where("status = ?", models.BookingStatusApproved).
		Where("id <> ?", excludeID)
	if tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var bookings []models.Booking
	if err := q.Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func (s *BookingService) notify(eventType string, booking *models.Booking) {
	if s.notifier == nil {
		return
	}
	s.notifier.NotifyBookingEvent(eventType, booking)
}
