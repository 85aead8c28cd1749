package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"fieldtrack/internal/fielderr"
	"fieldtrack/internal/geo"
	"fieldtrack/internal/models"
	"fieldtrack/internal/repository"
)

// DayState is the attendance machine's derived state for the current
// calendar day. A stored record from an earlier day counts as NotMarked.
type DayState int

const (
	// DayNotMarked means no attendance has been submitted today.
	DayNotMarked DayState = iota
	// DayMarked means attendance is submitted; the record carries the
	// status label that gates shop visits.
	DayMarked
)

func (d DayState) String() string {
	if d == DayMarked {
		return "Marked"
	}
	return "NotMarked"
}

// AttendanceService governs the daily attendance lifecycle:
// NotMarked → Marked(status) → checked out (which clears the day's state).
// Transitions are serialized; state only advances when the full transition
// committed.
type AttendanceService struct {
	mu      sync.Mutex
	store   StateStore
	api     repository.AttendanceAPI
	loc     geo.Provider
	session func() *models.Session
	now     func() time.Time
}

// NewAttendanceService creates the attendance machine.
func NewAttendanceService(store StateStore, api repository.AttendanceAPI, loc geo.Provider, session func() *models.Session) *AttendanceService {
	return &AttendanceService{
		store:   store,
		api:     api,
		loc:     loc,
		session: session,
		now:     time.Now,
	}
}

// State derives the machine's state from the store. Storage failures count
// as NotMarked so a broken store forces re-attendance instead of silently
// trusting stale flags.
func (s *AttendanceService) State(ctx context.Context) (DayState, *models.AttendanceRecord) {
	rec, err := s.store.Attendance()
	if err != nil {
		log.Printf("attendance read failed, treating as not marked: %v", err)
		return DayNotMarked, nil
	}
	if rec == nil || !rec.SameDay(s.now()) {
		return DayNotMarked, nil
	}
	return DayMarked, rec
}

// CheckIn submits today's attendance. Location is optional here: when no fix
// can be acquired the form goes out with zero coordinates rather than
// blocking the user. A same-day resubmission overwrites the stored record
// (last write wins).
func (s *AttendanceService) CheckIn(ctx context.Context, status models.AttendanceStatus) (*models.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !models.ValidStatus(status) {
		return nil, fmt.Errorf("unknown attendance status %q", status)
	}
	sess := s.session()
	if !sess.Complete() {
		return nil, fielderr.ErrSessionExpired
	}

	if state, _ := s.State(ctx); state == DayMarked {
		log.Printf("attendance already marked today, resubmitting (last write wins)")
	}

	var lat, lng float64
	fix, err := s.loc.CurrentFix(ctx, geo.DefaultFixTimeout)
	if err != nil {
		// Silent fail: attendance must not be blocked on a missing fix.
		log.Printf("no location fix for attendance, submitting zero coordinates: %v", err)
	} else {
		lat, lng = fix.Latitude, fix.Longitude
	}

	remoteID, err := s.api.SubmitAttendance(ctx, repository.SubmitAttendanceInput{
		UserID:    sess.UserID,
		BranchID:  sess.BranchID,
		CompanyID: sess.CompanyID,
		Status:    status,
		Latitude:  lat,
		Longitude: lng,
	})
	if err != nil {
		return nil, err
	}

	rec := &models.AttendanceRecord{
		Date:      s.now(),
		Status:    status,
		CheckInAt: s.now(),
		RemoteID:  remoteID,
	}
	if err := s.store.SaveAttendance(rec); err != nil {
		return nil, err
	}
	log.Printf("attendance marked %s (remote id %d)", status, remoteID)
	return rec, nil
}

// CheckOut closes the day. Unlike CheckIn it is location-blocking, requires
// Marked(Present) and refuses while a shop visit is still open. On success
// all daily state is cleared.
func (s *AttendanceService) CheckOut(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session()
	if !sess.Complete() {
		return fielderr.ErrSessionExpired
	}

	state, rec := s.State(ctx)
	if state != DayMarked {
		return fielderr.ErrAttendanceRequired
	}
	if rec.Status != models.StatusPresent {
		return fielderr.ErrNotPresent
	}
	if visit, err := s.store.ActiveVisit(); err == nil && visit != nil {
		return fielderr.ErrVisitActive
	}

	fix, err := s.loc.CurrentFix(ctx, geo.DefaultFixTimeout)
	if err != nil {
		if errors.Is(err, fielderr.ErrLocationUnavailable) || errors.Is(err, fielderr.ErrPermissionDenied) {
			return fielderr.ErrLocationUnavailable
		}
		return err
	}

	err = s.api.CheckoutAttendance(ctx, repository.CheckoutAttendanceInput{
		UserID:       sess.UserID,
		BranchID:     sess.BranchID,
		CompanyID:    sess.CompanyID,
		AttendanceID: rec.RemoteID,
		Latitude:     fix.Latitude,
		Longitude:    fix.Longitude,
	})
	if err != nil {
		return err
	}

	if err := s.store.ClearDailyState(); err != nil {
		return err
	}
	log.Printf("attendance checked out (remote id %d)", rec.RemoteID)
	return nil
}
