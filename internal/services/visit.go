package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"fieldtrack/internal/fielderr"
	"fieldtrack/internal/geo"
	"fieldtrack/internal/models"
	"fieldtrack/internal/repository"
)

// Alerter is the escalation channel for states that need human attention.
type Alerter interface {
	SendAlert(message string)
}

// VisitService governs the shop visit lifecycle:
// NoActiveVisit → CheckedIn(shopId) → checked out (pointer cleared).
// At most one visit is active per session; every transition out of
// NoActiveVisit requires attendance Marked(Present) and a location fix.
type VisitService struct {
	mu      sync.Mutex
	store   StateStore
	visits  repository.VisitAPI
	orders  repository.OrderAPI
	loc     geo.Provider
	session func() *models.Session
	alert   Alerter
	now     func() time.Time
}

// NewVisitService creates the visit machine.
func NewVisitService(store StateStore, visits repository.VisitAPI, orders repository.OrderAPI, loc geo.Provider, session func() *models.Session, alert Alerter) *VisitService {
	return &VisitService{
		store:   store,
		visits:  visits,
		orders:  orders,
		loc:     loc,
		session: session,
		alert:   alert,
		now:     time.Now,
	}
}

// Active returns the open visit, or nil. Storage failures count as "no
// visit" for display purposes; mutating transitions re-check the store
// themselves.
func (s *VisitService) Active(ctx context.Context) *models.Visit {
	visit, err := s.store.ActiveVisit()
	if err != nil {
		log.Printf("visit read failed, treating as none: %v", err)
		return nil
	}
	return visit
}

// attendanceGate enforces the cross-machine precondition: today's attendance
// must be Marked(Present). Storage failures count as not marked.
func (s *VisitService) attendanceGate() (*models.AttendanceRecord, error) {
	rec, err := s.store.Attendance()
	if err != nil {
		log.Printf("attendance read failed during visit gate: %v", err)
		return nil, fielderr.ErrAttendanceRequired
	}
	if rec == nil || !rec.SameDay(s.now()) {
		return nil, fielderr.ErrAttendanceRequired
	}
	if rec.Status != models.StatusPresent {
		return nil, fielderr.ErrNotPresent
	}
	return rec, nil
}

// CheckIn opens a visit at the given shop. Preconditions are checked before
// any remote call: attendance Marked(Present), no pending orphaned visit, no
// visit already active, and a location fix (check-in is location-blocking
// because proximity is the business rule). If the remote record is created
// but the local pointer cannot be saved, the visit is marked orphaned,
// escalated, and the error is fatal; it is never retried automatically so no
// duplicate remote visit can appear.
func (s *VisitService) CheckIn(ctx context.Context, shopID int) (*models.Visit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session()
	if !sess.Complete() {
		return nil, fielderr.ErrSessionExpired
	}

	rec, err := s.attendanceGate()
	if err != nil {
		return nil, err
	}

	// Unlike the other gates, an unreadable orphan marker fails closed: the
	// marker is the only guard against creating a duplicate remote visit.
	orphanID, orphaned, err := s.store.OrphanedVisit()
	if err != nil {
		return nil, err
	}
	if orphaned {
		return nil, &fielderr.InconsistentError{
			RemoteID: orphanID,
			Reason:   "an earlier visit was created remotely but never recorded locally; resolve it before checking in",
		}
	}

	if visit, err := s.store.ActiveVisit(); err == nil && visit != nil {
		return nil, fielderr.ErrVisitActive
	}

	fix, err := s.loc.CurrentFix(ctx, geo.DefaultFixTimeout)
	if err != nil {
		if errors.Is(err, fielderr.ErrLocationUnavailable) || errors.Is(err, fielderr.ErrPermissionDenied) {
			return nil, fielderr.ErrLocationUnavailable
		}
		return nil, err
	}

	remoteID, err := s.visits.CreateVisit(ctx, repository.CreateVisitInput{
		UserID:       sess.UserID,
		BranchID:     sess.BranchID,
		CompanyID:    sess.CompanyID,
		ShopID:       shopID,
		AttendanceID: rec.RemoteID,
		Latitude:     fix.Latitude,
		Longitude:    fix.Longitude,
	})
	if err != nil {
		return nil, err
	}

	visit := &models.Visit{
		ShopID:             shopID,
		AttendanceRemoteID: rec.RemoteID,
		RemoteID:           remoteID,
		CheckInAt:          s.now(),
		CheckInLocation:    fix.Point(),
	}
	if err := s.store.SaveActiveVisit(visit); err != nil {
		if markErr := s.store.MarkOrphanedVisit(remoteID); markErr != nil {
			log.Printf("could not mark orphaned visit %d: %v", remoteID, markErr)
		}
		s.escalate(fmt.Sprintf("visit %d at shop %d exists remotely but was not saved locally: %v", remoteID, shopID, err))
		return nil, &fielderr.InconsistentError{
			RemoteID: remoteID,
			Reason:   "remote visit created but local pointer could not be saved",
		}
	}

	log.Printf("checked in at shop %d (visit %d)", shopID, remoteID)
	return visit, nil
}

// CheckOut closes the active visit. Location-blocking, like CheckIn. On
// success the local pointer is cleared and the machine returns to
// NoActiveVisit.
func (s *VisitService) CheckOut(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session()
	if !sess.Complete() {
		return fielderr.ErrSessionExpired
	}

	visit, err := s.store.ActiveVisit()
	if err != nil {
		return err
	}
	if visit == nil {
		return fielderr.ErrNoActiveVisit
	}

	fix, err := s.loc.CurrentFix(ctx, geo.DefaultFixTimeout)
	if err != nil {
		if errors.Is(err, fielderr.ErrLocationUnavailable) || errors.Is(err, fielderr.ErrPermissionDenied) {
			return fielderr.ErrLocationUnavailable
		}
		return err
	}

	err = s.visits.CheckoutVisit(ctx, repository.CheckoutVisitInput{
		UserID:    sess.UserID,
		BranchID:  sess.BranchID,
		CompanyID: sess.CompanyID,
		VisitID:   visit.RemoteID,
		Latitude:  fix.Latitude,
		Longitude: fix.Longitude,
	})
	if err != nil {
		return err
	}

	if err := s.store.ClearActiveVisit(); err != nil {
		s.escalate(fmt.Sprintf("visit %d closed remotely but the local pointer was not cleared: %v", visit.RemoteID, err))
		return &fielderr.InconsistentError{
			RemoteID: visit.RemoteID,
			Reason:   "visit closed remotely but local pointer was not cleared",
		}
	}

	log.Printf("checked out of shop %d (visit %d)", visit.ShopID, visit.RemoteID)
	return nil
}

// CreateOrder submits an order against the active visit. Each submission
// carries a fresh client-generated request id so a user retry after a
// network failure cannot double-create server-side.
func (s *VisitService) CreateOrder(ctx context.Context, lines []models.OrderLine) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	visit, err := s.requireActive()
	if err != nil {
		return 0, err
	}
	if len(lines) == 0 {
		return 0, fmt.Errorf("order needs at least one line")
	}

	order := &models.Order{
		RequestID: uuid.NewString(),
		ShopID:    visit.ShopID,
		VisitID:   visit.RemoteID,
		Lines:     lines,
		CreatedAt: s.now(),
	}
	return s.orders.CreateOrder(ctx, order)
}

// CreateDOA submits a dead/damaged-on-arrival report against the active
// visit.
func (s *VisitService) CreateDOA(ctx context.Context, items []models.DOAItem) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	visit, err := s.requireActive()
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, fmt.Errorf("DOA request needs at least one item")
	}

	req := &models.DOARequest{
		RequestID: uuid.NewString(),
		ShopID:    visit.ShopID,
		VisitID:   visit.RemoteID,
		Items:     items,
		CreatedAt: s.now(),
	}
	return s.orders.CreateDOARequest(ctx, req)
}

// UploadPhotos attaches images to the active visit.
func (s *VisitService) UploadPhotos(ctx context.Context, files []repository.UploadFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	visit, err := s.requireActive()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files to upload")
	}

	sess := s.session()
	return s.orders.UploadImages(ctx, repository.UploadImagesInput{
		UserID:  sess.UserID,
		ShopID:  visit.ShopID,
		VisitID: visit.RemoteID,
		Files:   files,
	})
}

// ResolveOrphan clears the orphaned-visit marker once the user (or support)
// has reconciled the remote record manually. Until then check-ins stay
// blocked.
func (s *VisitService) ResolveOrphan(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok, err := s.store.OrphanedVisit(); err != nil {
		return err
	} else if !ok {
		return nil
	}
	return s.store.ClearOrphanedVisit()
}

func (s *VisitService) requireActive() (*models.Visit, error) {
	visit, err := s.store.ActiveVisit()
	if err != nil {
		return nil, err
	}
	if visit == nil {
		return nil, fielderr.ErrNoActiveVisit
	}
	return visit, nil
}

func (s *VisitService) escalate(message string) {
	log.Printf("ESCALATION: %s", message)
	if s.alert != nil {
		s.alert.SendAlert(message)
	}
}
