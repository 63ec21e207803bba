package services

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"conference-booking-server/models"
)

// Scan bounds for alternative-window suggestions.
const (
	suggestionDayStart = 7 * 60  // 07:00
	suggestionDayEnd   = 22 * 60 // 22:00
	suggestionStepMin  = 30
	maxSuggestions     = 5
)

// Conflict is one reason a requested window is unavailable.
type Conflict struct {
	Type    string `json:"type"` // "self", "quota", "blackout", "resource"
	Message string `json:"message"`
}

// Suggestion is an alternative same-duration window on the same date.
// Suggestions are only checked against the requesting user's own bookings;
// quota and blackout are not re-verified, so a suggestion is a candidate,
// not a guarantee.
type Suggestion struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type AvailabilityResult struct {
	Available   bool         `json:"available"`
	Conflicts   []Conflict   `json:"conflicts"`
	Suggestions []Suggestion `json:"suggestions,omitempty"`
}

// AvailabilityService decides whether a proposed window can be booked.
type AvailabilityService struct {
	db *gorm.DB
}

func NewAvailabilityService(db *gorm.DB) *AvailabilityService {
	return &AvailabilityService{db: db}
}

// Overlaps reports whether the half-open intervals [s1,e1) and [s2,e2)
// overlap. Times are zero-padded "15:04" strings, which compare
// chronologically. A booking ending exactly when another starts does not
// conflict.
func Overlaps(s1, e1, s2, e2 string) bool {
	return s1 < e2 && s2 < e1
}

// ValidateWindow checks date/time formats and ordering.
func ValidateWindow(date, start, end string) error {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}
	for _, t := range []string{start, end} {
		if _, err := time.Parse("15:04", t); err != nil {
			return fmt.Errorf("%w: times must be HH:MM", ErrValidation)
		}
	}
	if start >= end {
		return fmt.Errorf("%w: start time must be before end time", ErrValidation)
	}
	return nil
}

// WeekRange returns the Monday and Sunday dates of the week containing date.
// Computed in Go, not SQL, so Postgres and the sqlite test store agree.
func WeekRange(date string) (string, string, error) {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return "", "", fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}
	offset := (int(d.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
	monday := d.AddDate(0, 0, -offset)
	sunday := monday.AddDate(0, 0, 6)
	return monday.Format("2006-01-02"), sunday.Format("2006-01-02"), nil
}

// CheckAvailability evaluates the self-conflict, department-quota and
// blackout rules independently and reports every one that fails. When the
// window is unavailable it also proposes up to five alternative windows.
// excludeID skips one booking from the self-conflict check, for
// edit-in-place validation.
func (s *AvailabilityService) CheckAvailability(date, start, end string, userID, departmentID uint, excludeID uint) (*AvailabilityResult, error) {
	if err := ValidateWindow(date, start, end); err != nil {
		return nil, err
	}

	result := &AvailabilityResult{Available: true}

	selfConflicts, err := s.userConflicts(date, start, end, userID, excludeID)
	if err != nil {
		return nil, err
	}
	for _, b := range selfConflicts {
		result.Conflicts = append(result.Conflicts, Conflict{
			Type:    "self",
			Message: fmt.Sprintf("you already have booking %q from %s to %s on %s", b.Title, b.StartTime, b.EndTime, b.Date),
		})
	}

	quotaConflict, err := s.checkDepartmentQuota(date, departmentID, excludeID)
	if err != nil {
		return nil, err
	}
	if quotaConflict != nil {
		result.Conflicts = append(result.Conflicts, *quotaConflict)
	}

	blackout, err := s.activeBlackout(date)
	if err != nil {
		return nil, err
	}
	if blackout != nil {
		result.Conflicts = append(result.Conflicts, Conflict{
			Type:    "blackout",
			Message: fmt.Sprintf("no bookings may be created during %q (%s to %s)", blackout.Name, blackout.StartDate, blackout.EndDate),
		})
	}

	if len(result.Conflicts) > 0 {
		result.Available = false
		suggestions, err := s.suggestWindows(date, start, end, userID, excludeID)
		if err != nil {
			return nil, err
		}
		result.Suggestions = suggestions
	}

	return result, nil
}

// AccountBusy reports whether the resource account is at its concurrent
// meeting capacity in the window on that date. Most accounts host a single
// meeting at a time, so any overlapping approved booking makes them busy.
// It runs on the given handle so the approval path can re-check inside its
// transaction.
func (s *AvailabilityService) AccountBusy(tx *gorm.DB, accountID uint, date, start, end string, excludeID uint) (bool, error) {
	var account models.ResourceAccount
	if err := tx.First(&account, accountID).Error; err != nil {
		return false, err
	}

	var count int64
	q := tx.Model(&models.Booking{}).
		Where("resource_account_id = ?", accountID).
		Where("date = ?", date).
		Where("status = ?", models.BookingStatusApproved).
		Where("start_time < ? AND end_time > ?", end, start)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count >= int64(account.MaxConcurrentMeetings), nil
}

func (s *AvailabilityService) userConflicts(date, start, end string, userID, excludeID uint) ([]models.Booking, error) {
	var bookings []models.Booking
	q := s.db.
		Where("user_id = ?", userID).
		Where("date = ?", date).
		Where("status IN ?", []models.BookingStatus{models.BookingStatusPending, models.BookingStatusApproved}).
		Where("start_time < ? AND end_time > ?", end, start)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Order("start_time").Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func (s *AvailabilityService) checkDepartmentQuota(date string, departmentID, excludeID uint) (*Conflict, error) {
	var department models.Department
	if err := s.db.First(&department, departmentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: department %d", ErrNotFound, departmentID)
		}
		return nil, err
	}

	monday, sunday, err := WeekRange(date)
	if err != nil {
		return nil, err
	}

	var count int64
	q := s.db.Model(&models.Booking{}).
		Where("department_id = ?", departmentID).
		Where("date BETWEEN ? AND ?", monday, sunday).
		Where("status IN ?", []models.BookingStatus{models.BookingStatusPending, models.BookingStatusApproved})
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return nil, err
	}

	if count >= int64(department.WeeklyLimit) {
		return &Conflict{
			Type: "quota",
			Message: fmt.Sprintf("department %q has reached its weekly limit of %d bookings (%s to %s)",
				department.Name, department.WeeklyLimit, monday, sunday),
		}, nil
	}
	return nil, nil
}

func (s *AvailabilityService) activeBlackout(date string) (*models.BlackoutPeriod, error) {
	var blackout models.BlackoutPeriod
	err := s.db.
		Where("is_active = ?", true).
		Where("start_date <= ? AND end_date >= ?", date, date).
		First(&blackout).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &blackout, nil
}

// suggestWindows scans the day in 30-minute steps for same-duration windows
// free of the requesting user's own conflicts.
func (s *AvailabilityService) suggestWindows(date, start, end string, userID, excludeID uint) ([]Suggestion, error) {
	duration := minutesOf(end) - minutesOf(start)
	if duration <= 0 {
		return nil, nil
	}

	busy, err := s.userDayBookings(date, userID, excludeID)
	if err != nil {
		return nil, err
	}

	var suggestions []Suggestion
	for t := suggestionDayStart; t+duration <= suggestionDayEnd; t += suggestionStepMin {
		candidateStart := formatMinutes(t)
		candidateEnd := formatMinutes(t + duration)
		if candidateStart == start {
			continue
		}
		free := true
		for _, b := range busy {
			if Overlaps(candidateStart, candidateEnd, b.StartTime, b.EndTime) {
				free = false
				break
			}
		}
		if free {
			suggestions = append(suggestions, Suggestion{StartTime: candidateStart, EndTime: candidateEnd})
			if len(suggestions) == maxSuggestions {
				break
			}
		}
	}
	return suggestions, nil
}

func (s *AvailabilityService) userDayBookings(date string, userID, excludeID uint) ([]models.Booking, error) {
	var bookings []models.Booking
	q := s.db.
		Where("user_id = ?", userID).
		Where("date = ?", date).
		Where("status IN ?", []models.BookingStatus{models.BookingStatusPending, models.BookingStatusApproved})
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func minutesOf(t string) int {
	parsed, err := time.Parse("15:04", t)
	if err != nil {
		return 0
	}
	return parsed.Hour()*60 + parsed.Minute()
}

func formatMinutes(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
