package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fieldtrack/internal/fielderr"
	"fieldtrack/internal/models"
)

// SessionSource supplies the current session for the bearer header and the
// CBXID scoping fields. It returns nil before login.
type SessionSource func() *models.Session

// RESTClient implements every API interface against the field-sales backend.
type RESTClient struct {
	baseURL    string
	session    SessionSource
	httpClient *http.Client
}

// NewRESTClient creates a client for the backend at baseURL.
func NewRESTClient(baseURL string, session SessionSource) *RESTClient {
	return &RESTClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		session:    session,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

var (
	_ AuthAPI       = (*RESTClient)(nil)
	_ AttendanceAPI = (*RESTClient)(nil)
	_ VisitAPI      = (*RESTClient)(nil)
	_ ShopAPI       = (*RESTClient)(nil)
	_ OrderAPI      = (*RESTClient)(nil)
)

// envelope is the application-level response wrapper. statusCode must be 200
// even when the transport call returned 2xx.
type envelope struct {
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
}

func (c *RESTClient) addAuthHeader(req *http.Request) {
	if sess := c.session(); sess != nil && sess.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+sess.AuthToken)
	}
}

// doJSON sends a JSON request and decodes the envelope's data field into out
// when out is non-nil.
func (c *RESTClient) doJSON(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s payload: %w", path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.addAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &fielderr.RemoteError{Message: err.Error()}
	}
	defer resp.Body.Close()

	return decodeEnvelope(resp, out)
}

func decodeEnvelope(resp *http.Response, out any) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &fielderr.RemoteError{HTTPStatus: resp.StatusCode, Message: err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &fielderr.RemoteError{HTTPStatus: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &fielderr.RemoteError{HTTPStatus: resp.StatusCode, Message: "malformed response body"}
	}
	if env.StatusCode != http.StatusOK {
		return &fielderr.RemoteError{HTTPStatus: resp.StatusCode, APICode: env.StatusCode, Message: env.Message}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &fielderr.RemoteError{HTTPStatus: resp.StatusCode, Message: "malformed response data"}
		}
	}
	return nil
}

// Login authenticates with username/password and returns the session issued
// by the backend. No bearer header is attached yet.
func (c *RESTClient) Login(ctx context.Context, username, password string) (*models.Session, error) {
	payload := map[string]string{"username": username, "password": password}
	var data struct {
		Token     string `json:"token"`
		UserID    int    `json:"userId"`
		BranchID  int    `json:"branchId"`
		CompanyID int    `json:"companyId"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", payload, &data); err != nil {
		return nil, err
	}
	return &models.Session{
		AuthToken: data.Token,
		UserID:    data.UserID,
		BranchID:  data.BranchID,
		CompanyID: data.CompanyID,
	}, nil
}

func (c *RESTClient) SubmitAttendance(ctx context.Context, in SubmitAttendanceInput) (int, error) {
	payload := map[string]any{
		"userId":      in.UserID,
		"branchId":    in.BranchID,
		"companyId":   in.CompanyID,
		"statusLabel": in.Status,
		"latitude":    in.Latitude,
		"longitude":   in.Longitude,
	}
	var data struct {
		ID int `json:"id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/attendance/submit", payload, &data); err != nil {
		return 0, err
	}
	return data.ID, nil
}

func (c *RESTClient) CheckoutAttendance(ctx context.Context, in CheckoutAttendanceInput) error {
	payload := map[string]any{
		"userId":       in.UserID,
		"branchId":     in.BranchID,
		"companyId":    in.CompanyID,
		"attendanceId": in.AttendanceID,
		"latitude":     in.Latitude,
		"longitude":    in.Longitude,
	}
	return c.doJSON(ctx, http.MethodPost, "/api/attendance/checkout", payload, nil)
}

func (c *RESTClient) PingLocation(ctx context.Context, in PingInput) error {
	payload := map[string]any{
		"userId":    in.UserID,
		"branchId":  in.BranchID,
		"companyId": in.CompanyID,
		"latitude":  in.Latitude,
		"longitude": in.Longitude,
		"accuracy":  in.Accuracy,
	}
	return c.doJSON(ctx, http.MethodPost, "/api/location/ping", payload, nil)
}

func (c *RESTClient) CreateVisit(ctx context.Context, in CreateVisitInput) (int, error) {
	payload := map[string]any{
		"userId":       in.UserID,
		"branchId":     in.BranchID,
		"companyId":    in.CompanyID,
		"shopId":       in.ShopID,
		"attendanceId": in.AttendanceID,
		"latitude":     in.Latitude,
		"longitude":    in.Longitude,
	}
	var data struct {
		ID int `json:"id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/visits/checkin", payload, &data); err != nil {
		return 0, err
	}
	return data.ID, nil
}

func (c *RESTClient) CheckoutVisit(ctx context.Context, in CheckoutVisitInput) error {
	payload := map[string]any{
		"userId":    in.UserID,
		"branchId":  in.BranchID,
		"companyId": in.CompanyID,
		"visitId":   in.VisitID,
		"latitude":  in.Latitude,
		"longitude": in.Longitude,
	}
	return c.doJSON(ctx, http.MethodPost, "/api/visits/checkout", payload, nil)
}

func (c *RESTClient) ListShops(ctx context.Context, plannedOnly bool) ([]models.Shop, error) {
	path := "/api/shops"
	if plannedOnly {
		path += "?planned=true"
	}
	var data struct {
		Shops []models.Shop `json:"shops"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &data); err != nil {
		return nil, err
	}
	return data.Shops, nil
}

func (c *RESTClient) CreateOrder(ctx context.Context, order *models.Order) (int, error) {
	var data struct {
		ID int `json:"id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/orders", order, &data); err != nil {
		return 0, err
	}
	return data.ID, nil
}

func (c *RESTClient) CreateDOARequest(ctx context.Context, req *models.DOARequest) (int, error) {
	var data struct {
		ID int `json:"id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/doa-requests", req, &data); err != nil {
		return 0, err
	}
	return data.ID, nil
}

// UploadImages sends photos as a multipart form tagged with the visit and
// shop ids.
func (c *RESTClient) UploadImages(ctx context.Context, in UploadImagesInput) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("userId", strconv.Itoa(in.UserID)); err != nil {
		return fmt.Errorf("write upload field: %w", err)
	}
	if err := w.WriteField("shopId", strconv.Itoa(in.ShopID)); err != nil {
		return fmt.Errorf("write upload field: %w", err)
	}
	if err := w.WriteField("visitId", strconv.Itoa(in.VisitID)); err != nil {
		return fmt.Errorf("write upload field: %w", err)
	}
	for _, f := range in.Files {
		part, err := w.CreateFormFile("images", f.Name)
		if err != nil {
			return fmt.Errorf("create upload part %s: %w", f.Name, err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return fmt.Errorf("write upload part %s: %w", f.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/uploads/images", &buf)
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	c.addAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &fielderr.RemoteError{Message: err.Error()}
	}
	defer resp.Body.Close()

	return decodeEnvelope(resp, nil)
}
