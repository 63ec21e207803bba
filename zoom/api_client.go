package zoom

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// APIClient talks to the Zoom REST API with server-to-server OAuth
// credentials of one account. Tokens are cached until shortly before expiry.
type APIClient struct {
	accountID    string
	clientID     string
	clientSecret string
	baseURL      string
	oauthURL     string
	httpClient   *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewAPIClient(accountID, clientID, clientSecret, baseURL, oauthURL string) *APIClient {
	return &APIClient{
		accountID:    accountID,
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      strings.TrimRight(baseURL, "/"),
		oauthURL:     oauthURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// getAccessToken returns a cached token or fetches a fresh one using the
// account_credentials grant.
func (c *APIClient) getAccessToken() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "account_credentials")
	form.Set("account_id", c.accountID)

	req, err := http.NewRequest(http.MethodPost, c.oauthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	c.accessToken = tokenResp.AccessToken
	// Renew one minute early so in-flight calls never race the expiry.
	c.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn-60) * time.Second)

	return c.accessToken, nil
}

// doJSON performs an authenticated request and decodes a JSON response body
// into out (when out is non-nil and the response has content).
func (c *APIClient) doJSON(method, path string, payload interface{}, out interface{}) error {
	token, err := c.getAccessToken()
	if err != nil {
		return err
	}

	var bodyReader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := string(raw)
		var apiMsg struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &apiMsg) == nil && apiMsg.Message != "" {
			message = apiMsg.Message
		}
		return &APIError{StatusCode: resp.StatusCode, Message: message}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to decode response from %s: %w", path, err)
		}
	}

	return nil
}

// wire types for the provider's meeting payloads

type apiMeeting struct {
	ID          int64           `json:"id"`
	UUID        string          `json:"uuid"`
	HostID      string          `json:"host_id"`
	Topic       string          `json:"topic"`
	Type        int             `json:"type"`
	StartTime   time.Time       `json:"start_time"`
	Duration    int             `json:"duration"`
	JoinURL     string          `json:"join_url"`
	StartURL    string          `json:"start_url"`
	Password    string          `json:"password"`
	Occurrences []apiOccurrence `json:"occurrences"`
}

type apiOccurrence struct {
	OccurrenceID string    `json:"occurrence_id"`
	StartTime    time.Time `json:"start_time"`
	Duration     int       `json:"duration"`
	Status       string    `json:"status"`
}

func (m *apiMeeting) toMeeting() Meeting {
	return Meeting{
		MeetingID: fmt.Sprintf("%d", m.ID),
		UUID:      m.UUID,
		JoinURL:   m.JoinURL,
		StartURL:  m.StartURL,
		Passcode:  m.Password,
		HostID:    m.HostID,
	}
}

// CreateMeeting schedules a meeting on the account's primary user.
func (c *APIClient) CreateMeeting(req *MeetingRequest) (*Meeting, error) {
	payload := map[string]interface{}{
		"topic":      req.Topic,
		"agenda":     req.Agenda,
		"type":       2, // scheduled meeting
		"start_time": req.StartTime,
		"duration":   req.Duration,
		"settings": map[string]interface{}{
			"join_before_host": req.JoinBeforeHost,
			"waiting_room":     req.WaitingRoom,
		},
	}

	var created apiMeeting
	if err := c.doJSON(http.MethodPost, "/users/me/meetings", payload, &created); err != nil {
		return nil, err
	}

	meeting := created.toMeeting()
	log.Printf("✅ Zoom meeting %s created for topic %q", meeting.MeetingID, req.Topic)
	return &meeting, nil
}

func (c *APIClient) DeleteMeeting(meetingID string) error {
	return c.doJSON(http.MethodDelete, "/meetings/"+meetingID, nil, nil)
}

func (c *APIClient) GetMeeting(meetingID string) (*MeetingDetail, error) {
	var m apiMeeting
	if err := c.doJSON(http.MethodGet, "/meetings/"+meetingID, nil, &m); err != nil {
		return nil, err
	}

	detail := &MeetingDetail{
		Meeting:   m.toMeeting(),
		Topic:     m.Topic,
		StartTime: m.StartTime,
		Duration:  m.Duration,
		Type:      m.Type,
	}
	for _, occ := range m.Occurrences {
		detail.Occurrences = append(detail.Occurrences, Occurrence(occ))
	}
	return detail, nil
}

func (c *APIClient) ListOccurrences(meetingID string) ([]Occurrence, error) {
	detail, err := c.GetMeeting(meetingID)
	if err != nil {
		return nil, err
	}
	return detail.Occurrences, nil
}

// Ping verifies the account credentials by fetching a token.
func (c *APIClient) Ping() error {
	_, err := c.getAccessToken()
	return err
}
