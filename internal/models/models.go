// Package models contains data structures for the application
package models

import (
	"time"
)

// Session holds the logged-in user's identity. All four fields must be
// present before any remote call is allowed.
type Session struct {
	AuthToken string
	UserID    int
	BranchID  int
	CompanyID int
}

// Complete reports whether the session carries everything remote calls need.
func (s *Session) Complete() bool {
	return s != nil && s.AuthToken != "" && s.UserID != 0 && s.BranchID != 0 && s.CompanyID != 0
}

// AttendanceStatus is the label selected on the daily attendance form.
type AttendanceStatus string

const (
	StatusPresent         AttendanceStatus = "Present"
	StatusAbsent          AttendanceStatus = "Absent"
	StatusLeave           AttendanceStatus = "Leave"
	StatusHalfDayFirst    AttendanceStatus = "HalfDayFirst"
	StatusHalfDaySecond   AttendanceStatus = "HalfDaySecond"
	StatusPresentAtOffice AttendanceStatus = "PresentAtOffice"
)

// ValidStatus reports whether s is one of the known attendance labels.
func ValidStatus(s AttendanceStatus) bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLeave,
		StatusHalfDayFirst, StatusHalfDaySecond, StatusPresentAtOffice:
		return true
	}
	return false
}

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Fix is a normalized device location fix.
type Fix struct {
	Latitude   float64
	Longitude  float64
	Accuracy   float64
	CapturedAt time.Time
}

// Point returns the fix as a coordinate pair.
func (f *Fix) Point() LatLng {
	return LatLng{Latitude: f.Latitude, Longitude: f.Longitude}
}

// AttendanceRecord is one user's attendance for one calendar day. A stored
// record whose Date is not today is ignored entirely.
type AttendanceRecord struct {
	Date       time.Time // day granularity
	Status     AttendanceStatus
	CheckInAt  time.Time
	CheckOutAt *time.Time
	RemoteID   int
}

// SameDay reports whether the record belongs to the calendar day of t.
func (r *AttendanceRecord) SameDay(t time.Time) bool {
	y1, m1, d1 := r.Date.Date()
	y2, m2, d2 := t.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// Shop is a physical client outlet. Location is nil when the backend has no
// coordinates for it.
type Shop struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Address  string  `json:"address"`
	Phone    string  `json:"phone"`
	Location *LatLng `json:"location"`
}

// Visit is one check-in/out cycle at a shop. At most one visit is active
// (CheckOutAt == nil) per session.
type Visit struct {
	ShopID             int        `json:"shop_id"`
	AttendanceRemoteID int        `json:"attendance_remote_id"`
	RemoteID           int        `json:"remote_id"`
	CheckInAt          time.Time  `json:"check_in_at"`
	CheckInLocation    LatLng     `json:"check_in_location"`
	CheckOutAt         *time.Time `json:"check_out_at,omitempty"`
	CheckOutLocation   *LatLng    `json:"check_out_location,omitempty"`
}

// OrderLine is one product row on an order.
type OrderLine struct {
	ProductID int     `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// Order is created against the active visit's shop and never mutated
// afterwards.
type Order struct {
	RequestID string      `json:"request_id"`
	ShopID    int         `json:"shop_id"`
	VisitID   int         `json:"visit_id"`
	Lines     []OrderLine `json:"lines"`
	CreatedAt time.Time   `json:"created_at"`
}

// DOAItem is one defective stock entry on a DOA request.
type DOAItem struct {
	ProductID int    `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Reason    string `json:"reason"`
}

// DOARequest reports dead/damaged-on-arrival stock at a client site.
type DOARequest struct {
	RequestID string    `json:"request_id"`
	ShopID    int       `json:"shop_id"`
	VisitID   int       `json:"visit_id"`
	Items     []DOAItem `json:"items"`
	CreatedAt time.Time `json:"created_at"`
}
