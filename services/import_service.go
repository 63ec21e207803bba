package services

import (
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"conference-booking-server/models"
	"conference-booking-server/zoom"
)

type ImportResult struct {
	ImportedCount    int      `json:"imported_count"`
	TotalOccurrences int      `json:"total_occurrences"`
	Errors           []string `json:"errors"`
}

// ImportService materializes an external recurring meeting as individual
// local bookings attributed to a chosen user and department.
type ImportService struct {
	db        *gorm.DB
	accounts  *AccountService
	callDelay time.Duration
}

func NewImportService(db *gorm.DB, accounts *AccountService, callDelay time.Duration) *ImportService {
	return &ImportService{db: db, accounts: accounts, callDelay: callDelay}
}

// ImportRecurring fetches the occurrences of an external recurring template
// and creates one approved booking per occurrence not already imported. All
// occurrences share the template's join/start links and passcode, per the
// provider's behavior for recurring series. When the provider returns no
// occurrences the template itself is imported as a single booking. One
// occurrence failing never aborts the rest.
func (s *ImportService) ImportRecurring(externalMeetingID string, userID, departmentID, accountID uint, actor models.User) (*ImportResult, error) {
	if externalMeetingID == "" {
		return nil, fmt.Errorf("%w: external meeting id is required", ErrValidation)
	}

	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: user %d", ErrNotFound, userID)
		}
		return nil, err
	}
	var department models.Department
	if err := s.db.First(&department, departmentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: department %d", ErrNotFound, departmentID)
		}
		return nil, err
	}

	account, err := s.accounts.GetActiveAccount(accountID)
	if err != nil {
		return nil, err
	}

	client := s.accounts.ClientFor(account)
	detail, err := client.GetMeeting(externalMeetingID)
	if err != nil {
		return nil, newProviderError("get meeting", err)
	}

	time.Sleep(s.callDelay)
	occurrences, err := client.ListOccurrences(externalMeetingID)
	if err != nil {
		log.Printf("⚠️ Could not list occurrences for meeting %s, importing template as a single booking: %v", externalMeetingID, err)
		occurrences = nil
	}
	if len(occurrences) == 0 {
		occurrences = []zoom.Occurrence{{
			OccurrenceID: "",
			StartTime:    detail.StartTime,
			Duration:     detail.Duration,
		}}
	}

	result := &ImportResult{TotalOccurrences: len(occurrences)}

	for _, occurrence := range occurrences {
		imported, err := s.importOccurrence(detail, occurrence, user.ID, department.ID, account.ID, actor)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("occurrence %s: %v", occurrence.OccurrenceID, err))
			continue
		}
		if imported {
			result.ImportedCount++
		}
	}

	log.Printf("✅ Import of meeting %s finished: %d/%d occurrences imported, %d errors",
		externalMeetingID, result.ImportedCount, result.TotalOccurrences, len(result.Errors))
	return result, nil
}

// importOccurrence creates one booking unless the (template, occurrence)
// pair was imported before. Returns false when skipped as a duplicate.
func (s *ImportService) importOccurrence(detail *zoom.MeetingDetail, occurrence zoom.Occurrence, userID, departmentID, accountID uint, actor models.User) (bool, error) {
	var count int64
	err := s.db.Model(&models.Booking{}).
		Where("parent_meeting_id = ?", detail.MeetingID).
		Where("occurrence_id = ?", occurrence.OccurrenceID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	start := occurrence.StartTime.UTC()
	duration := occurrence.Duration
	if duration <= 0 {
		duration = 60
	}
	end := start.Add(time.Duration(duration) * time.Minute)

	now := time.Now()
	meetingID := detail.MeetingID
	occurrenceID := occurrence.OccurrenceID
	booking := models.Booking{
		Title:             detail.Topic,
		Date:              start.Format("2006-01-02"),
		StartTime:         start.Format("15:04"),
		EndTime:           end.Format("15:04"),
		UserID:            userID,
		DepartmentID:      departmentID,
		Status:            models.BookingStatusApproved,
		ResourceAccountID: &accountID,
		ZoomMeetingID:     &meetingID,
		ZoomUUID:          strPtr(detail.UUID),
		JoinURL:           strPtr(detail.JoinURL),
		StartURL:          strPtr(detail.StartURL),
		Passcode:          strPtr(detail.Passcode),
		HostID:            strPtr(detail.HostID),
		IsRecurringImport: true,
		ParentMeetingID:   &meetingID,
		OccurrenceID:      &occurrenceID,
		ApprovedBy:        &actor.ID,
		ApprovedAt:        &now,
	}

	if err := s.db.Create(&booking).Error; err != nil {
		return false, err
	}
	return true, nil
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
