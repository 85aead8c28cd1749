// Package store provides the durable key-value state that survives app
// restarts: session identity, today's attendance snapshot and the active
// visit pointer. All reads and writes go through typed accessors; no other
// package touches the underlying keys.
package store

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	bolt "go.etcd.io/bbolt"

	"fieldtrack/internal/fielderr"
	"fieldtrack/internal/models"
)

const dayFormat = "2006-01-02"

var bucketState = []byte("state")

// Storage keys. These mirror what the backend expects to find restored
// after an app restart.
const (
	keyAuthToken       = "authToken"
	keyUserID          = "userId"
	keyBranchID        = "branchId"
	keyCompanyID       = "companyId"
	keyAttendanceDate  = "attendanceDate"
	keyAttendanceLabel = "attendanceStatusLabel"
	keyAttendanceRID   = "attendanceRemoteId"
	keyActiveVisit     = "activeVisit"
	keyOrphanedVisit   = "orphanedVisit"
)

// SessionStore is a single-file bbolt store. Writes are transactional, so a
// multi-key update is either fully visible or not at all.
type SessionStore struct {
	db *bolt.DB
}

// Open opens (or creates) the store file at path.
func Open(path string) (*SessionStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", fielderr.ErrStorage, path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketState)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: init bucket: %v", fielderr.ErrStorage, err)
	}
	return &SessionStore{db: db}, nil
}

// Close closes the underlying file.
func (s *SessionStore) Close() error {
	return s.db.Close()
}

func (s *SessionStore) get(key string) (string, bool, error) {
	var value string
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketState).Get([]byte(key))
		if raw != nil {
			value = string(raw)
			found = true
		}
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("%w: get %s: %v", fielderr.ErrStorage, key, err)
	}
	return value, found, nil
}

func (s *SessionStore) set(pairs map[string]string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketState)
		for k, v := range pairs {
			if err := b.Put([]byte(k), []byte(v)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: set: %v", fielderr.ErrStorage, err)
	}
	return nil
}

func (s *SessionStore) remove(keys ...string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketState)
		for _, k := range keys {
			if err := b.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: remove: %v", fielderr.ErrStorage, err)
	}
	return nil
}

// SaveSession persists the logged-in identity.
func (s *SessionStore) SaveSession(sess *models.Session) error {
	return s.set(map[string]string{
		keyAuthToken: sess.AuthToken,
		keyUserID:    strconv.Itoa(sess.UserID),
		keyBranchID:  strconv.Itoa(sess.BranchID),
		keyCompanyID: strconv.Itoa(sess.CompanyID),
	})
}

// Session returns the stored session, or nil when no token is stored.
// A storage failure is reported as absent plus the error, so callers fail
// safe toward re-authentication.
func (s *SessionStore) Session() (*models.Session, error) {
	token, ok, err := s.get(keyAuthToken)
	if err != nil || !ok {
		return nil, err
	}
	sess := &models.Session{AuthToken: token}
	sess.UserID, _ = s.getInt(keyUserID)
	sess.BranchID, _ = s.getInt(keyBranchID)
	sess.CompanyID, _ = s.getInt(keyCompanyID)
	return sess, nil
}

// ClearSession removes the identity and all daily state. Used at logout.
func (s *SessionStore) ClearSession() error {
	return s.remove(
		keyAuthToken, keyUserID, keyBranchID, keyCompanyID,
		keyAttendanceDate, keyAttendanceLabel, keyAttendanceRID,
		keyActiveVisit, keyOrphanedVisit,
	)
}

func (s *SessionStore) getInt(key string) (int, error) {
	raw, ok, err := s.get(key)
	if err != nil || !ok {
		return 0, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, nil // garbage value behaves like absent
	}
	return n, nil
}

// SaveAttendance persists today's attendance snapshot. A same-day overwrite
// is allowed: last write wins.
func (s *SessionStore) SaveAttendance(rec *models.AttendanceRecord) error {
	return s.set(map[string]string{
		keyAttendanceDate:  rec.Date.Format(dayFormat),
		keyAttendanceLabel: string(rec.Status),
		keyAttendanceRID:   strconv.Itoa(rec.RemoteID),
	})
}

// Attendance returns the stored attendance snapshot, or nil when none is
// stored. Callers must still check the record's date against today.
func (s *SessionStore) Attendance() (*models.AttendanceRecord, error) {
	rawDate, ok, err := s.get(keyAttendanceDate)
	if err != nil || !ok {
		return nil, err
	}
	date, err := time.ParseInLocation(dayFormat, rawDate, time.Local)
	if err != nil {
		return nil, nil // unparseable date behaves like absent
	}
	label, _, err := s.get(keyAttendanceLabel)
	if err != nil {
		return nil, err
	}
	rid, err := s.getInt(keyAttendanceRID)
	if err != nil {
		return nil, err
	}
	return &models.AttendanceRecord{
		Date:     date,
		Status:   models.AttendanceStatus(label),
		RemoteID: rid,
	}, nil
}

// SaveActiveVisit persists the open visit pointer.
func (s *SessionStore) SaveActiveVisit(v *models.Visit) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encode visit: %v", fielderr.ErrStorage, err)
	}
	return s.set(map[string]string{keyActiveVisit: string(raw)})
}

// ActiveVisit returns the open visit, or nil when none is stored.
func (s *SessionStore) ActiveVisit() (*models.Visit, error) {
	raw, ok, err := s.get(keyActiveVisit)
	if err != nil || !ok {
		return nil, err
	}
	var v models.Visit
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("%w: decode visit: %v", fielderr.ErrStorage, err)
	}
	return &v, nil
}

// ClearActiveVisit removes the open visit pointer after checkout.
func (s *SessionStore) ClearActiveVisit() error {
	return s.remove(keyActiveVisit)
}

// MarkOrphanedVisit records a remote visit id whose local pointer was lost.
// The marker blocks further check-ins until ClearOrphanedVisit.
func (s *SessionStore) MarkOrphanedVisit(remoteID int) error {
	return s.set(map[string]string{keyOrphanedVisit: strconv.Itoa(remoteID)})
}

// OrphanedVisit returns the orphaned remote visit id, if any.
func (s *SessionStore) OrphanedVisit() (int, bool, error) {
	raw, ok, err := s.get(keyOrphanedVisit)
	if err != nil || !ok {
		return 0, false, err
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, nil
	}
	return id, true, nil
}

// ClearOrphanedVisit removes the orphan marker after manual reconciliation.
func (s *SessionStore) ClearOrphanedVisit() error {
	return s.remove(keyOrphanedVisit)
}

// ClearDailyState removes today's attendance snapshot and the visit pointer
// in one transaction. Called at successful end-of-day checkout.
func (s *SessionStore) ClearDailyState() error {
	return s.remove(keyAttendanceDate, keyAttendanceLabel, keyAttendanceRID, keyActiveVisit)
}
