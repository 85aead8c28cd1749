package services

import (
	"context"
	"errors"
	"time"

	"fieldtrack/internal/fielderr"
	"fieldtrack/internal/models"
	"fieldtrack/internal/repository"
)

// fakeStore is an in-memory StateStore with per-operation error injection.
type fakeStore struct {
	session *models.Session
	rec     *models.AttendanceRecord
	visit   *models.Visit
	orphan  int
	hasOrph bool

	failAttendanceRead bool
	failSaveVisit      bool
	failOrphanRead     bool
	failMarkOrphan     bool
	failClearVisit     bool
}

var errStorageBoom = errors.New("disk on fire")

func (f *fakeStore) Session() (*models.Session, error)   { return f.session, nil }
func (f *fakeStore) SaveSession(s *models.Session) error { f.session = s; return nil }
func (f *fakeStore) ClearSession() error {
	f.session = nil
	f.clearDaily()
	f.hasOrph = false
	return nil
}
func (f *fakeStore) SaveAttendance(r *models.AttendanceRecord) error { f.rec = r; return nil }

func (f *fakeStore) Attendance() (*models.AttendanceRecord, error) {
	if f.failAttendanceRead {
		return nil, errStorageBoom
	}
	return f.rec, nil
}

func (f *fakeStore) ActiveVisit() (*models.Visit, error) { return f.visit, nil }

func (f *fakeStore) SaveActiveVisit(v *models.Visit) error {
	if f.failSaveVisit {
		return errStorageBoom
	}
	f.visit = v
	return nil
}

func (f *fakeStore) ClearActiveVisit() error {
	if f.failClearVisit {
		return errStorageBoom
	}
	f.visit = nil
	return nil
}

func (f *fakeStore) OrphanedVisit() (int, bool, error) {
	if f.failOrphanRead {
		return 0, false, errStorageBoom
	}
	return f.orphan, f.hasOrph, nil
}

func (f *fakeStore) MarkOrphanedVisit(remoteID int) error {
	if f.failMarkOrphan {
		return errStorageBoom
	}
	f.orphan, f.hasOrph = remoteID, true
	return nil
}

func (f *fakeStore) ClearOrphanedVisit() error { f.hasOrph = false; return nil }

func (f *fakeStore) ClearDailyState() error { f.clearDaily(); return nil }

func (f *fakeStore) clearDaily() { f.rec, f.visit = nil, nil }

var _ StateStore = (*fakeStore)(nil)

// fakeRemote implements every remote interface and counts mutating calls.
type fakeRemote struct {
	nextID int

	submitCalls   int
	submitErr     error
	lastSubmit    repository.SubmitAttendanceInput
	checkoutCalls int
	checkoutErr   error
	lastCheckout  repository.CheckoutAttendanceInput

	createVisitCalls int
	createVisitErr   error
	lastCreateVisit  repository.CreateVisitInput
	closeVisitCalls  int
	closeVisitErr    error
	lastCloseVisit   repository.CheckoutVisitInput

	orders  []*models.Order
	doas    []*models.DOARequest
	uploads []repository.UploadImagesInput

	pings   int
	pingErr error
}

func (f *fakeRemote) id() int {
	f.nextID++
	return f.nextID
}

func (f *fakeRemote) SubmitAttendance(ctx context.Context, in repository.SubmitAttendanceInput) (int, error) {
	f.submitCalls++
	f.lastSubmit = in
	if f.submitErr != nil {
		return 0, f.submitErr
	}
	return f.id(), nil
}

func (f *fakeRemote) CheckoutAttendance(ctx context.Context, in repository.CheckoutAttendanceInput) error {
	f.checkoutCalls++
	f.lastCheckout = in
	return f.checkoutErr
}

func (f *fakeRemote) PingLocation(ctx context.Context, in repository.PingInput) error {
	f.pings++
	return f.pingErr
}

func (f *fakeRemote) CreateVisit(ctx context.Context, in repository.CreateVisitInput) (int, error) {
	f.createVisitCalls++
	f.lastCreateVisit = in
	if f.createVisitErr != nil {
		return 0, f.createVisitErr
	}
	return f.id(), nil
}

func (f *fakeRemote) CheckoutVisit(ctx context.Context, in repository.CheckoutVisitInput) error {
	f.closeVisitCalls++
	f.lastCloseVisit = in
	return f.closeVisitErr
}

func (f *fakeRemote) CreateOrder(ctx context.Context, order *models.Order) (int, error) {
	f.orders = append(f.orders, order)
	return f.id(), nil
}

func (f *fakeRemote) CreateDOARequest(ctx context.Context, req *models.DOARequest) (int, error) {
	f.doas = append(f.doas, req)
	return f.id(), nil
}

func (f *fakeRemote) UploadImages(ctx context.Context, in repository.UploadImagesInput) error {
	f.uploads = append(f.uploads, in)
	return nil
}

var (
	_ repository.AttendanceAPI = (*fakeRemote)(nil)
	_ repository.VisitAPI      = (*fakeRemote)(nil)
	_ repository.OrderAPI      = (*fakeRemote)(nil)
)

// fakeProvider returns a fixed fix or a configured error.
type fakeProvider struct {
	fix *models.Fix
	err error
}

func (f *fakeProvider) RequestPermission(ctx context.Context) (bool, error) {
	return f.err == nil, nil
}

func (f *fakeProvider) CurrentFix(ctx context.Context, timeout time.Duration) (*models.Fix, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.fix, nil
}

func goodFix(lat, lng float64) *fakeProvider {
	return &fakeProvider{fix: &models.Fix{Latitude: lat, Longitude: lng, Accuracy: 5, CapturedAt: time.Now()}}
}

func noFix() *fakeProvider {
	return &fakeProvider{err: fielderr.ErrLocationUnavailable}
}

// fakeAlerter collects escalation messages.
type fakeAlerter struct {
	messages []string
}

func (f *fakeAlerter) SendAlert(message string) { f.messages = append(f.messages, message) }

func testSession() *models.Session {
	return &models.Session{AuthToken: "tok", UserID: 7, BranchID: 3, CompanyID: 2}
}

func sessionSource(s *models.Session) func() *models.Session {
	return func() *models.Session { return s }
}

func fixedNow() time.Time {
	return time.Date(2026, 8, 27, 10, 0, 0, 0, time.Local)
}
