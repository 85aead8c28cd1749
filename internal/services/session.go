// Package services implements business logic for the application: the
// session lifecycle, the attendance day machine, the shop visit machine and
// the background location pinger.
package services

import (
	"context"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"fieldtrack/internal/fielderr"
	"fieldtrack/internal/models"
	"fieldtrack/internal/repository"
)

// StateStore is the durable local state the machines read and write. It is
// implemented by store.SessionStore.
type StateStore interface {
	Session() (*models.Session, error)
	SaveSession(*models.Session) error
	ClearSession() error
	Attendance() (*models.AttendanceRecord, error)
	SaveAttendance(*models.AttendanceRecord) error
	ActiveVisit() (*models.Visit, error)
	SaveActiveVisit(*models.Visit) error
	ClearActiveVisit() error
	OrphanedVisit() (int, bool, error)
	MarkOrphanedVisit(remoteID int) error
	ClearOrphanedVisit() error
	ClearDailyState() error
}

// SessionService owns login state. Absence of a usable session forces
// re-authentication; every other service reads the session through Load.
type SessionService struct {
	store StateStore
	auth  repository.AuthAPI
	now   func() time.Time
}

// NewSessionService creates a session service.
func NewSessionService(store StateStore, auth repository.AuthAPI) *SessionService {
	return &SessionService{store: store, auth: auth, now: time.Now}
}

// Login authenticates against the backend and persists the issued session.
func (s *SessionService) Login(ctx context.Context, username, password string) (*models.Session, error) {
	sess, err := s.auth.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveSession(sess); err != nil {
		return nil, err
	}
	log.Printf("logged in as user %d (branch %d)", sess.UserID, sess.BranchID)
	return sess, nil
}

// Load returns the stored session when it is complete and unexpired.
// Storage failures and partial sessions yield (nil, nil): fail safe toward
// re-authentication rather than trusting stale state.
func (s *SessionService) Load(ctx context.Context) (*models.Session, error) {
	sess, err := s.store.Session()
	if err != nil {
		log.Printf("session read failed, forcing re-auth: %v", err)
		return nil, nil
	}
	if !sess.Complete() {
		return nil, nil
	}
	if tokenExpired(sess.AuthToken, s.now()) {
		if err := s.store.ClearSession(); err != nil {
			log.Printf("clearing expired session failed: %v", err)
		}
		return nil, fielderr.ErrSessionExpired
	}
	return sess, nil
}

// Logout removes the session and every piece of daily state.
func (s *SessionService) Logout(ctx context.Context) error {
	return s.store.ClearSession()
}

// tokenExpired inspects the token's exp claim when it parses as a JWT. The
// signature is the backend's concern; the client only avoids sending a token
// it can already see is dead. Opaque tokens never expire locally.
func tokenExpired(token string, now time.Time) bool {
	claims := &jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.Before(now)
}
