package services

import (
	"testing"

	"conference-booking-server/models"
	"conference-booking-server/zoom"
)

func (env *testEnv) approveBooking(t *testing.T, date, start, end string) *models.Booking {
	t.Helper()

	booking := env.createBooking(t, date, start, end, models.BookingStatusPending)
	approved, err := env.bookings.Approve(booking.ID, env.account.ID, MeetingOptions{}, env.admin)
	if err != nil {
		t.Fatalf("approve fixture booking: %v", err)
	}
	return approved
}

func TestRefreshStartLinks(t *testing.T) {
	env := newTestEnv(t)

	drifted := env.approveBooking(t, "2026-03-04", "09:00", "10:00")
	stable := env.approveBooking(t, "2026-03-04", "10:00", "11:00")
	broken := env.approveBooking(t, "2026-03-04", "11:00", "12:00")

	env.fake.setStartURL(*drifted.ZoomMeetingID, "https://zoom.example.com/s/rotated")
	env.fake.DeleteMeeting(*broken.ZoomMeetingID) // provider-side loss -> 404

	summary, err := env.recon.RefreshStartLinks()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.TotalProcessed != 3 {
		t.Fatalf("expected 3 processed, got %d", summary.TotalProcessed)
	}
	if summary.SuccessCount != 2 || summary.ErrorCount != 1 {
		t.Fatalf("expected 2 ok / 1 error, got %d/%d", summary.SuccessCount, summary.ErrorCount)
	}

	outcomes := map[uint]ReconciliationOutcome{}
	for _, item := range summary.Results {
		outcomes[item.BookingID] = item.Outcome
	}
	if outcomes[drifted.ID] != OutcomeUpdated {
		t.Errorf("drifted booking: expected updated, got %s", outcomes[drifted.ID])
	}
	if outcomes[stable.ID] != OutcomeUnchanged {
		t.Errorf("stable booking: expected unchanged, got %s", outcomes[stable.ID])
	}
	if outcomes[broken.ID] != OutcomeError {
		t.Errorf("broken booking: expected error, got %s", outcomes[broken.ID])
	}

	if got := *env.reload(t, drifted.ID).StartURL; got != "https://zoom.example.com/s/rotated" {
		t.Fatalf("expected rotated start link to be persisted, got %s", got)
	}
	// The erroring booking keeps its stored credential.
	if got := *env.reload(t, broken.ID).StartURL; got == "" {
		t.Fatalf("error items must not lose their stored link")
	}
}

func TestRefreshStartLinks_SkipsNonCandidates(t *testing.T) {
	env := newTestEnv(t)

	// Pending, cancelled and fallback-approved bookings are not candidates.
	env.createBooking(t, "2026-03-04", "09:00", "10:00", models.BookingStatusPending)
	cancelled := env.approveBooking(t, "2026-03-04", "10:00", "11:00")
	if _, err := env.bookings.Cancel(cancelled.ID, "moved", env.admin); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	fallback := env.createBooking(t, "2026-03-04", "12:00", "13:00", models.BookingStatusApproved)
	env.db.Model(fallback).Update("resource_account_id", env.account.ID)

	summary, err := env.recon.RefreshStartLinks()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.TotalProcessed != 0 {
		t.Fatalf("expected no candidates, got %d", summary.TotalProcessed)
	}
}

func TestRepairMissingMeetings(t *testing.T) {
	env := newTestEnv(t)

	// An approval during a provider outage leaves a fallback booking.
	env.fake.createErr = &zoom.APIError{StatusCode: 503, Message: "down"}
	booking := env.createBooking(t, "2026-03-04", "09:00", "10:00", models.BookingStatusPending)
	fallback, err := env.bookings.Approve(booking.ID, env.account.ID, MeetingOptions{}, env.admin)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if fallback.ZoomMeetingID != nil {
		t.Fatalf("fixture should have no external meeting")
	}

	// Provider recovers.
	env.fake.createErr = nil

	summary, err := env.recon.RepairMissingMeetings()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.TotalProcessed != 1 || summary.SuccessCount != 1 || summary.ErrorCount != 0 {
		t.Fatalf("expected 1 repaired, got %+v", summary)
	}
	if summary.Results[0].Outcome != OutcomeUpdated {
		t.Fatalf("expected updated, got %s", summary.Results[0].Outcome)
	}

	repaired := env.reload(t, fallback.ID)
	if repaired.ZoomMeetingID == nil || repaired.StartURL == nil || repaired.Passcode == nil {
		t.Fatalf("expected external identifiers to be filled in, got %+v", repaired)
	}
	if repaired.Status != models.BookingStatusApproved {
		t.Fatalf("repair must not change status, got %s", repaired.Status)
	}
}

func TestRepairMissingMeetings_Idempotent(t *testing.T) {
	env := newTestEnv(t)

	env.fake.createErr = &zoom.APIError{StatusCode: 503, Message: "down"}
	booking := env.createBooking(t, "2026-03-04", "09:00", "10:00", models.BookingStatusPending)
	if _, err := env.bookings.Approve(booking.ID, env.account.ID, MeetingOptions{}, env.admin); err != nil {
		t.Fatalf("approve: %v", err)
	}
	env.fake.createErr = nil

	first, err := env.recon.RepairMissingMeetings()
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.TotalProcessed != 1 {
		t.Fatalf("first run should repair one booking, got %d", first.TotalProcessed)
	}

	second, err := env.recon.RepairMissingMeetings()
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.TotalProcessed != 0 {
		t.Fatalf("second run must find nothing to do, got %d", second.TotalProcessed)
	}
	for _, item := range second.Results {
		if item.Outcome == OutcomeUpdated {
			t.Fatalf("second run produced an update: %+v", item)
		}
	}
}

func TestRepairMissingMeetings_ErrorLeavesBookingAsIs(t *testing.T) {
	env := newTestEnv(t)

	env.fake.createErr = &zoom.APIError{StatusCode: 503, Message: "down"}
	booking := env.createBooking(t, "2026-03-04", "09:00", "10:00", models.BookingStatusPending)
	fallback, err := env.bookings.Approve(booking.ID, env.account.ID, MeetingOptions{}, env.admin)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}

	// Still down during the repair run.
	summary, err := env.recon.RepairMissingMeetings()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.ErrorCount != 1 || summary.SuccessCount != 0 {
		t.Fatalf("expected 1 error, got %+v", summary)
	}
	if summary.Results[0].Message == "" {
		t.Fatalf("error items must carry the provider message")
	}

	kept := env.reload(t, fallback.ID)
	if kept.ZoomMeetingID != nil || kept.Status != models.BookingStatusApproved {
		t.Fatalf("failed repair must leave the booking untouched, got %+v", kept)
	}
}
