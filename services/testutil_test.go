package services

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"conference-booking-server/database"
	"conference-booking-server/models"
	"conference-booking-server/zoom"
)

// fakeZoomClient is an in-memory stand-in for the provider client.
type fakeZoomClient struct {
	mu sync.Mutex

	createErr error
	deleteErr error
	getErr    error

	createCalls int
	deleteCalls []string
	nextID      int

	lastCreateReq *zoom.MeetingRequest
	meetings      map[string]*zoom.MeetingDetail

	// onCreate runs after a successful create, before the caller sees the
	// meeting. Tests use it to interleave writes mid-approval.
	onCreate func()
}

func newFakeZoomClient() *fakeZoomClient {
	return &fakeZoomClient{
		nextID:   9000,
		meetings: make(map[string]*zoom.MeetingDetail),
	}
}

func (f *fakeZoomClient) CreateMeeting(req *zoom.MeetingRequest) (*zoom.Meeting, error) {
	f.mu.Lock()
	f.createCalls++
	f.lastCreateReq = req
	if f.createErr != nil {
		f.mu.Unlock()
		return nil, f.createErr
	}

	f.nextID++
	id := fmt.Sprintf("%d", f.nextID)
	meeting := zoom.Meeting{
		MeetingID: id,
		UUID:      "uuid-" + id,
		JoinURL:   "https://zoom.example.com/j/" + id,
		StartURL:  "https://zoom.example.com/s/" + id,
		Passcode:  "pass-" + id,
		HostID:    "host-1",
	}
	f.meetings[id] = &zoom.MeetingDetail{Meeting: meeting, Topic: req.Topic, Duration: req.Duration}
	hook := f.onCreate
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	return &meeting, nil
}

func (f *fakeZoomClient) DeleteMeeting(meetingID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deleteCalls = append(f.deleteCalls, meetingID)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.meetings, meetingID)
	return nil
}

func (f *fakeZoomClient) GetMeeting(meetingID string) (*zoom.MeetingDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getErr != nil {
		return nil, f.getErr
	}
	detail, ok := f.meetings[meetingID]
	if !ok {
		return nil, &zoom.APIError{StatusCode: 404, Message: "meeting not found"}
	}
	copied := *detail
	return &copied, nil
}

func (f *fakeZoomClient) ListOccurrences(meetingID string) ([]zoom.Occurrence, error) {
	detail, err := f.GetMeeting(meetingID)
	if err != nil {
		return nil, err
	}
	return detail.Occurrences, nil
}

// setStartURL simulates provider-side drift of the start credential.
func (f *fakeZoomClient) setStartURL(meetingID, startURL string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if detail, ok := f.meetings[meetingID]; ok {
		detail.StartURL = startURL
	}
}

type testEnv struct {
	db           *gorm.DB
	fake         *fakeZoomClient
	availability *AvailabilityService
	accounts     *AccountService
	provision    *ProvisionService
	bookings     *BookingService
	recon        *ReconciliationService
	importer     *ImportService

	user    models.User
	admin   models.User
	dept    models.Department
	account models.ResourceAccount
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// A named shared-cache DSN so every pooled connection sees the same
	// in-memory database.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := database.RunMigrations(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)
	fake := newFakeZoomClient()
	factory := func(*models.ResourceAccount) zoom.Client { return fake }

	env := &testEnv{db: db, fake: fake}
	env.availability = NewAvailabilityService(db)
	env.accounts = NewAccountService(db, factory)
	env.provision = NewProvisionService(db, env.accounts)
	env.bookings = NewBookingService(db, env.availability, env.accounts, env.provision, nil)
	env.recon = NewReconciliationService(db, env.accounts, env.provision, 0)
	env.importer = NewImportService(db, env.accounts, 0)

	env.dept = models.Department{Name: "Engineering", WeeklyLimit: 5, IsActive: true}
	if err := db.Create(&env.dept).Error; err != nil {
		t.Fatalf("seed department: %v", err)
	}

	env.user = models.User{FullName: "Test User", Email: "user@example.com", PasswordHash: "x", Role: models.RoleUser, DepartmentID: &env.dept.ID, IsActive: true}
	if err := db.Create(&env.user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}

	env.admin = models.User{FullName: "Test Admin", Email: "admin@example.com", PasswordHash: "x", Role: models.RoleAdmin, IsActive: true}
	if err := db.Create(&env.admin).Error; err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	env.account = models.ResourceAccount{
		Label:                 "Primary",
		Email:                 "meetings@example.com",
		ZoomAccountID:         "acc",
		ZoomClientID:          "client",
		ZoomClientSecret:      "secret",
		MaxConcurrentMeetings: 1,
		Status:                models.ResourceAccountActive,
	}
	if err := db.Create(&env.account).Error; err != nil {
		t.Fatalf("seed account: %v", err)
	}

	return env
}

// createBooking inserts a booking directly, bypassing the intake checks.
func (env *testEnv) createBooking(t *testing.T, date, start, end string, status models.BookingStatus) *models.Booking {
	t.Helper()

	booking := models.Booking{
		Title:        "Standup",
		Date:         date,
		StartTime:    start,
		EndTime:      end,
		UserID:       env.user.ID,
		DepartmentID: env.dept.ID,
		Status:       status,
	}
	if err := env.db.Create(&booking).Error; err != nil {
		t.Fatalf("create booking: %v", err)
	}
	return &booking
}

func (env *testEnv) reload(t *testing.T, id uint) *models.Booking {
	t.Helper()

	var booking models.Booking
	if err := env.db.First(&booking, id).Error; err != nil {
		t.Fatalf("reload booking %d: %v", id, err)
	}
	return &booking
}
