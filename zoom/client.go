package zoom

import (
	"fmt"
	"time"
)

// MeetingRequest carries the fields sent to the provider when creating a
// scheduled meeting. StartTime is RFC3339 in UTC; Duration is in minutes.
type MeetingRequest struct {
	Topic          string `json:"topic"`
	Agenda         string `json:"agenda,omitempty"`
	StartTime      string `json:"start_time"`
	Duration       int    `json:"duration"`
	JoinBeforeHost bool   `json:"join_before_host"`
	WaitingRoom    bool   `json:"waiting_room"`
}

// Meeting is the identifier set the provider returns for a created meeting.
type Meeting struct {
	MeetingID string `json:"meeting_id"`
	UUID      string `json:"uuid"`
	JoinURL   string `json:"join_url"`
	StartURL  string `json:"start_url"`
	Passcode  string `json:"passcode"`
	HostID    string `json:"host_id"`
}

// Occurrence is one dated instance of a recurring meeting template.
type Occurrence struct {
	OccurrenceID string    `json:"occurrence_id"`
	StartTime    time.Time `json:"start_time"`
	Duration     int       `json:"duration"`
	Status       string    `json:"status"`
}

// MeetingDetail is the full provider-side view of an existing meeting.
// All occurrences of one recurring series share the template's join/start
// links and passcode, per the provider's documented behavior.
type MeetingDetail struct {
	Meeting
	Topic       string       `json:"topic"`
	StartTime   time.Time    `json:"start_time"`
	Duration    int          `json:"duration"`
	Type        int          `json:"type"`
	Occurrences []Occurrence `json:"occurrences,omitempty"`
}

// Client is the consumed contract of the external meeting provider. One
// client instance is bound to one resource account's credentials.
type Client interface {
	CreateMeeting(req *MeetingRequest) (*Meeting, error)
	DeleteMeeting(meetingID string) error
	GetMeeting(meetingID string) (*MeetingDetail, error)
	ListOccurrences(meetingID string) ([]Occurrence, error)
}

// Pinger is implemented by clients that can verify connectivity without
// touching any meeting.
type Pinger interface {
	Ping() error
}

// APIError is a non-2xx answer from the provider.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("zoom api error (status %d): %s", e.StatusCode, e.Message)
}
