// Package repository defines the remote API contracts and their REST
// implementation. The backend signals success twice: transport-level 2xx and
// an application statusCode inside the response body; callers get a
// fielderr.RemoteError when either check fails.
package repository

import (
	"context"

	"fieldtrack/internal/models"
)

// SubmitAttendanceInput is the daily attendance form payload. Latitude and
// longitude are zero when the device had no fix; attendance check-in is
// deliberately not location-blocking.
type SubmitAttendanceInput struct {
	UserID    int
	BranchID  int
	CompanyID int
	Status    models.AttendanceStatus
	Latitude  float64
	Longitude float64
}

// CheckoutAttendanceInput closes the day. AttendanceID is the remote id
// returned at submission.
type CheckoutAttendanceInput struct {
	UserID       int
	BranchID     int
	CompanyID    int
	AttendanceID int
	Latitude     float64
	Longitude    float64
}

// CreateVisitInput opens a shop visit.
type CreateVisitInput struct {
	UserID       int
	BranchID     int
	CompanyID    int
	ShopID       int
	AttendanceID int
	Latitude     float64
	Longitude    float64
}

// CheckoutVisitInput closes a shop visit by its remote id.
type CheckoutVisitInput struct {
	UserID    int
	BranchID  int
	CompanyID int
	VisitID   int
	Latitude  float64
	Longitude float64
}

// PingInput is the best-effort background location report.
type PingInput struct {
	UserID    int
	BranchID  int
	CompanyID int
	Latitude  float64
	Longitude float64
	Accuracy  float64
}

// UploadFile is one image attached to the active visit.
type UploadFile struct {
	Name string
	Data []byte
}

// UploadImagesInput attaches photos to a visit via multipart upload.
type UploadImagesInput struct {
	UserID  int
	ShopID  int
	VisitID int
	Files   []UploadFile
}

// AuthAPI authenticates the user and yields a session.
type AuthAPI interface {
	Login(ctx context.Context, username, password string) (*models.Session, error)
}

// AttendanceAPI covers the daily attendance lifecycle.
type AttendanceAPI interface {
	// SubmitAttendance creates today's attendance record and returns its
	// remote id.
	SubmitAttendance(ctx context.Context, in SubmitAttendanceInput) (int, error)
	// CheckoutAttendance closes today's attendance record.
	CheckoutAttendance(ctx context.Context, in CheckoutAttendanceInput) error
	// PingLocation reports an opportunistic position sample.
	PingLocation(ctx context.Context, in PingInput) error
}

// VisitAPI covers the shop visit lifecycle.
type VisitAPI interface {
	// CreateVisit opens a visit and returns its remote id.
	CreateVisit(ctx context.Context, in CreateVisitInput) (int, error)
	// CheckoutVisit closes the visit identified by in.VisitID.
	CheckoutVisit(ctx context.Context, in CheckoutVisitInput) error
}

// ShopAPI lists the outlets assigned to the user's branch.
type ShopAPI interface {
	// ListShops returns all shops, or only today's planned-visit subset.
	ListShops(ctx context.Context, plannedOnly bool) ([]models.Shop, error)
}

// OrderAPI covers records created against an active visit.
type OrderAPI interface {
	// CreateOrder submits an order and returns its remote id.
	CreateOrder(ctx context.Context, order *models.Order) (int, error)
	// CreateDOARequest submits a dead-on-arrival report and returns its
	// remote id.
	CreateDOARequest(ctx context.Context, req *models.DOARequest) (int, error)
	// UploadImages attaches photos to the visit.
	UploadImages(ctx context.Context, in UploadImagesInput) error
}
