package services

import (
	"errors"
	"strings"
	"testing"

	"conference-booking-server/models"
	"conference-booking-server/zoom"
)

func TestCreateBooking_PendingAndGated(t *testing.T) {
	env := newTestEnv(t)

	booking, availability, err := env.bookings.CreateBooking(CreateBookingRequest{
		Title:     "Planning",
		Date:      "2026-03-04",
		StartTime: "09:00",
		EndTime:   "10:00",
	}, env.user)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if booking == nil || booking.Status != models.BookingStatusPending {
		t.Fatalf("expected a pending booking, got %+v", booking)
	}
	if !availability.Available {
		t.Fatalf("expected available result")
	}

	// The same user asking for an overlapping window is refused before any
	// write.
	refused, availability, err := env.bookings.CreateBooking(CreateBookingRequest{
		Title:     "Overlap",
		Date:      "2026-03-04",
		StartTime: "09:30",
		EndTime:   "10:30",
	}, env.user)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if refused != nil {
		t.Fatalf("expected refusal, got booking %d", refused.ID)
	}
	if availability.Available || len(availability.Conflicts) == 0 {
		t.Fatalf("expected conflicts, got %+v", availability)
	}

	var count int64
	env.db.Model(&models.Booking{}).Count(&count)
	if count != 1 {
		t.Fatalf("refused request must not write, found %d bookings", count)
	}
}

func TestApprove_HappyPath(t *testing.T) {
	env := newTestEnv(t)
	booking := env.createBooking(t, "2026-03-04", "09:00", "10:00", models.BookingStatusPending)

	approved, err := env.bookings.Approve(booking.ID, env.account.ID, MeetingOptions{}, env.admin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if approved.Status != models.BookingStatusApproved {
		t.Fatalf("expected approved, got %s", approved.Status)
	}
	if approved.ZoomMeetingID == nil || approved.JoinURL == nil || approved.StartURL == nil {
		t.Fatalf("expected external identifiers, got %+v", approved)
	}
	if approved.ApprovedBy == nil || *approved.ApprovedBy != env.admin.ID {
		t.Fatalf("expected approval actor %d, got %+v", env.admin.ID, approved.ApprovedBy)
	}
	if env.fake.createCalls != 1 {
		t.Fatalf("expected one external create, got %d", env.fake.createCalls)
	}

	var logCount int64
	env.db.Model(&models.APICallLog{}).Where("success = ?", true).Count(&logCount)
	if logCount != 1 {
		t.Fatalf("expected one audit log row, got %d", logCount)
	}
}

func TestApprove_InvalidStateMakesNoExternalCall(t *testing.T) {
	env := newTestEnv(t)

	for _, status := range []models.BookingStatus{
		models.BookingStatusRejected,
		models.BookingStatusCancelled,
		models.BookingStatusApproved,
	} {
		booking := env.createBooking(t, "2026-03-04", "09:00", "10:00", status)
		_, err := env.bookings.Approve(booking.ID, env.account.ID, MeetingOptions{}, env.admin)
		if !errors.Is(err, ErrInvalidState) {
			t.Errorf("approve on %s booking: expected ErrInvalidState, got %v", status, err)
		}
	}
	if env.fake.createCalls != 0 {
		t.Fatalf("invalid-state approvals must not call the provider, got %d calls", env.fake.createCalls)
	}
}

func TestApprove_ResourceRequired(t *testing.T) {
	env := newTestEnv(t)
	booking := env.createBooking(t, "2026-03-04", "09:00", "10:00", models.BookingStatusPending)

	_, err := env.bookings.Approve(booking.ID, 0, MeetingOptions{}, env.admin)
	if !errors.Is(err, ErrResourceRequired) {
		t.Fatalf("expected ErrResourceRequired, got %v", err)
	}
}

func TestApprove_ResourceBusy(t *testing.T) {
	env := newTestEnv(t)

	taken := env.createBooking(t, "2026-03-04", "09:00", "10:00", models.BookingStatusApproved)
	env.db.Model(taken).Update("resource_account_id", env.account.ID)

	booking := env.createBooking(t, "2026-03-04", "09:30", "10:30", models.BookingStatusPending)
	_, err := env.bookings.Approve(booking.ID, env.account.ID, MeetingOptions{}, env.admin)
	if !errors.Is(err, ErrResourceBusy) {
		t.Fatalf("expected ErrResourceBusy, got %v", err)
	}
	if env.fake.createCalls != 0 {
		t.Fatalf("busy pre-check must run before the external call")
	}

	// An adjacent window on the same account is fine.
	adjacent := env.createBooking(t, "2026-03-04", "10:00", "11:00", models.BookingStatusPending)
	if _, err := env.bookings.Approve(adjacent.ID, env.account.ID, MeetingOptions{}, env.admin); err != nil {
		t.Fatalf("adjacent window should approve, got %v", err)
	}
}

func TestApprove_RivalApprovalCaughtInTransaction(t *testing.T) {
	env := newTestEnv(t)
	booking := env.createBooking(t, "2026-03-04", "09:00", "10:00", models.BookingStatusPending)

	// A rival approval lands on the same account after the cheap pre-check
	// passed but before the status write: the in-transaction re-read must
	// catch it and the just-created meeting must be deleted again.
	env.fake.onCreate = func() {
		rival := models.Booking{
			Title:             "Rival",
			Date:              "2026-03-04",
			StartTime:         "09:30",
			EndTime:           "10:30",
			UserID:            env.admin.ID,
			DepartmentID:      env.dept.ID,
			Status:            models.BookingStatusApproved,
			ResourceAccountID: &env.account.ID,
		}
		if err := env.db.Create(&rival).Error; err != nil {
			t.Fatalf("insert rival booking: %v", err)
		}
	}

	_, err := env.bookings.Approve(booking.ID, env.account.ID, MeetingOptions{}, env.admin)
	if !errors.Is(err, ErrResourceBusy) {
		t.Fatalf("expected ErrResourceBusy from the transactional re-check, got %v", err)
	}
	if got := env.reload(t, booking.ID).Status; got != models.BookingStatusPending {
		t.Fatalf("booking must stay pending after a lost race, got %s", got)
	}
	if env.fake.createCalls != 1 || len(env.fake.deleteCalls) != 1 {
		t.Fatalf("expected the orphaned meeting to be deleted, got creates=%d deletes=%v",
			env.fake.createCalls, env.fake.deleteCalls)
	}
}

func TestApprove_InactiveAccount(t *testing.T) {
	env := newTestEnv(t)
	env.db.Model(&env.account).Update("status", models.ResourceAccountInactive)

	booking := env.createBooking(t, "2026-03-04", "09:00", "10:00", models.BookingStatusPending)
	_, err := env.bookings.Approve(booking.ID, env.account.ID, MeetingOptions{}, env.admin)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for inactive account, got %v", err)
	}
}

func TestApprove_ProviderFailureFallsBack(t *testing.T) {
	env := newTestEnv(t)
	env.fake.createErr = &zoom.APIError{StatusCode: 503, Message: "service unavailable"}

	booking := env.createBooking(t, "2026-03-04", "09:00", "10:00", models.BookingStatusPending)
	approved, err := env.bookings.Approve(booking.ID, env.account.ID, MeetingOptions{}, env.admin)
	if err != nil {
		t.Fatalf("provider outage must not fail the approval: %v", err)
	}
	if approved.Status != models.BookingStatusApproved {
		t.Fatalf("expected approved, got %s", approved.Status)
	}
	if approved.ZoomMeetingID != nil || approved.StartURL != nil || approved.Passcode != nil {
		t.Fatalf("fallback approval must leave external identifiers null, got %+v", approved)
	}
	if approved.JoinURL == nil || !strings.Contains(*approved.JoinURL, "/fallback/") {
		t.Fatalf("expected a placeholder join link, got %v", approved.JoinURL)
	}

	var logCount int64
	env.db.Model(&models.APICallLog{}).Where("success = ?", false).Count(&logCount)
	if logCount != 1 {
		t.Fatalf("expected the failed call to be audited, got %d rows", logCount)
	}
}

func TestMeetingOptions_MutualExclusion(t *testing.T) {
	env := newTestEnv(t)
	booking := env.createBooking(t, "2026-03-04", "09:00", "10:00", models.BookingStatusPending)

	_, err := env.bookings.Approve(booking.ID, env.account.ID, MeetingOptions{
		JoinBeforeHost: true,
		WaitingRoom:    true,
	}, env.admin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sent := env.fake.lastCreateReq
	if !sent.JoinBeforeHost || sent.WaitingRoom {
		t.Fatalf("join-before-host wins by default, got jbh=%v wr=%v", sent.JoinBeforeHost, sent.WaitingRoom)
	}

	resolved := MeetingOptions{JoinBeforeHost: true, WaitingRoom: true, LastSet: "waiting_room"}.Resolve()
	if resolved.JoinBeforeHost || !resolved.WaitingRoom {
		t.Fatalf("waiting_room set last must win, got %+v", resolved)
	}
}

func TestReject(t *testing.T) {
	env := newTestEnv(t)
	booking := env.createBooking(t, "2026-03-04", "09:00", "10:00", models.BookingStatusPending)

	rejected, err := env.bookings.Reject(booking.ID, "room not needed", env.admin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rejected.Status != models.BookingStatusRejected {
		t.Fatalf("expected rejected, got %s", rejected.Status)
	}
	if rejected.RejectReason == nil || *rejected.RejectReason != "room not needed" {
		t.Fatalf("expected reason to be recorded, got %+v", rejected.RejectReason)
	}

	// Terminal: a second transition must fail.
	if _, err := env.bookings.Reject(booking.ID, "again", env.admin); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on double reject, got %v", err)
	}
	if _, err := env.bookings.Cancel(booking.ID, "nope", env.admin); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("rejected booking must not cancel, got %v", err)
	}
}

func TestCancel_BestEffortExternalDelete(t *testing.T) {
	env := newTestEnv(t)
	booking := env.createBooking(t, "2026-03-04", "09:00", "10:00", models.BookingStatusPending)
	approved, err := env.bookings.Approve(booking.ID, env.account.ID, MeetingOptions{}, env.admin)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}

	env.fake.deleteErr = &zoom.APIError{StatusCode: 500, Message: "boom"}
	cancelled, err := env.bookings.Cancel(approved.ID, "meeting moved", env.admin)
	if err != nil {
		t.Fatalf("a failed external delete must not block cancellation: %v", err)
	}
	if cancelled.Status != models.BookingStatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}
	if len(env.fake.deleteCalls) != 1 || env.fake.deleteCalls[0] != *approved.ZoomMeetingID {
		t.Fatalf("expected one delete attempt for %s, got %v", *approved.ZoomMeetingID, env.fake.deleteCalls)
	}

	// Cancelled is terminal.
	if _, err := env.bookings.Cancel(cancelled.ID, "again", env.admin); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on double cancel, got %v", err)
	}
}

func TestCancel_PendingBookingFails(t *testing.T) {
	env := newTestEnv(t)
	booking := env.createBooking(t, "2026-03-04", "09:00", "10:00", models.BookingStatusPending)

	if _, err := env.bookings.Cancel(booking.ID, "nope", env.admin); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestBulkApprove_IsolatesFailures(t *testing.T) {
	env := newTestEnv(t)

	good := env.createBooking(t, "2026-03-04", "09:00", "10:00", models.BookingStatusPending)
	alreadyRejected := env.createBooking(t, "2026-03-04", "11:00", "12:00", models.BookingStatusRejected)
	alsoGood := env.createBooking(t, "2026-03-04", "13:00", "14:00", models.BookingStatusPending)

	result, err := env.bookings.BulkApprove([]uint{good.ID, alreadyRejected.ID, alsoGood.ID, 99999}, env.account.ID, MeetingOptions{}, env.admin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Overall != "partial" {
		t.Fatalf("expected partial, got %s", result.Overall)
	}
	if result.SuccessCount != 2 || result.FailureCount != 2 {
		t.Fatalf("expected 2 ok / 2 failed, got %d/%d", result.SuccessCount, result.FailureCount)
	}
	if len(result.Results) != 4 {
		t.Fatalf("expected one result per id, got %d", len(result.Results))
	}

	if env.reload(t, good.ID).Status != models.BookingStatusApproved {
		t.Fatalf("first booking should be approved")
	}
	if env.reload(t, alsoGood.ID).Status != models.BookingStatusApproved {
		t.Fatalf("later bookings must still be processed after a failure")
	}
}

func TestBulkApprove_Classification(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.bookings.BulkApprove(nil, env.account.ID, MeetingOptions{}, env.admin); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for empty ids, got %v", err)
	}

	b1 := env.createBooking(t, "2026-03-04", "09:00", "10:00", models.BookingStatusPending)
	result, err := env.bookings.BulkApprove([]uint{b1.ID}, env.account.ID, MeetingOptions{}, env.admin)
	if err != nil || result.Overall != "success" {
		t.Fatalf("expected success, got %v / %+v", err, result)
	}

	result, err = env.bookings.BulkApprove([]uint{b1.ID}, env.account.ID, MeetingOptions{}, env.admin)
	if err != nil || result.Overall != "failure" {
		t.Fatalf("expected failure for already-approved id, got %v / %+v", err, result)
	}
}
