package repository

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"fieldtrack/internal/fielderr"
	"fieldtrack/internal/models"
)

func wrap(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"statusCode": statusCode,
		"message":    "msg",
		"data":       data,
	})
}

func testClient(handler http.HandlerFunc, sess *models.Session) (*RESTClient, *httptest.Server) {
	srv := httptest.NewServer(handler)
	c := NewRESTClient(srv.URL, func() *models.Session { return sess })
	return c, srv
}

func TestLoginDecodesSession(t *testing.T) {
	c, srv := testClient(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/auth/login", r.URL.Path)
		require.Empty(t, r.Header.Get("Authorization"), "no bearer before login")

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "ravi", body["username"])

		wrap(w, 200, map[string]any{"token": "tok-9", "userId": 7, "branchId": 3, "companyId": 2})
	}, nil)
	defer srv.Close()

	sess, err := c.Login(context.Background(), "ravi", "secret")
	require.NoError(t, err)
	require.Equal(t, &models.Session{AuthToken: "tok-9", UserID: 7, BranchID: 3, CompanyID: 2}, sess)
}

func TestBearerHeaderAttached(t *testing.T) {
	c, srv := testClient(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok-9", r.Header.Get("Authorization"))
		wrap(w, 200, map[string]any{"id": 10})
	}, &models.Session{AuthToken: "tok-9", UserID: 7, BranchID: 3, CompanyID: 2})
	defer srv.Close()

	id, err := c.SubmitAttendance(context.Background(), SubmitAttendanceInput{
		UserID: 7, BranchID: 3, CompanyID: 2, Status: models.StatusPresent,
	})
	require.NoError(t, err)
	require.Equal(t, 10, id)
}

func TestBodyStatusCodeRejectedDespiteTransport200(t *testing.T) {
	c, srv := testClient(func(w http.ResponseWriter, r *http.Request) {
		wrap(w, 403, nil)
	}, nil)
	defer srv.Close()

	_, err := c.CreateVisit(context.Background(), CreateVisitInput{ShopID: 42})
	require.True(t, fielderr.IsRemote(err), "want RemoteError, got %v", err)

	var re *fielderr.RemoteError
	require.ErrorAs(t, err, &re)
	require.Equal(t, http.StatusOK, re.HTTPStatus)
	require.Equal(t, 403, re.APICode)
	require.Equal(t, "msg", re.Message)
}

func TestTransportErrorRejected(t *testing.T) {
	c, srv := testClient(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway down", http.StatusBadGateway)
	}, nil)
	defer srv.Close()

	err := c.CheckoutVisit(context.Background(), CheckoutVisitInput{VisitID: 900})
	var re *fielderr.RemoteError
	require.ErrorAs(t, err, &re)
	require.Equal(t, http.StatusBadGateway, re.HTTPStatus)
}

func TestMalformedBodyRejected(t *testing.T) {
	c, srv := testClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>nope</html>"))
	}, nil)
	defer srv.Close()

	_, err := c.ListShops(context.Background(), false)
	require.True(t, fielderr.IsRemote(err))
}

func TestListShopsPlannedQuery(t *testing.T) {
	var gotPlanned string
	c, srv := testClient(func(w http.ResponseWriter, r *http.Request) {
		gotPlanned = r.URL.Query().Get("planned")
		wrap(w, 200, map[string]any{"shops": []map[string]any{
			{"id": 1, "name": "Lakshmi Stores", "location": map[string]float64{"latitude": 12.9, "longitude": 77.6}},
			{"id": 2, "name": "Old Town Kirana"},
		}})
	}, nil)
	defer srv.Close()

	shops, err := c.ListShops(context.Background(), true)
	require.NoError(t, err)
	require.Equal(t, "true", gotPlanned)
	require.Len(t, shops, 2)
	require.NotNil(t, shops[0].Location)
	require.Equal(t, 12.9, shops[0].Location.Latitude)
	require.Nil(t, shops[1].Location, "missing location stays nil")
}

func TestUploadImagesMultipart(t *testing.T) {
	c, srv := testClient(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "900", r.FormValue("visitId"))
		require.Equal(t, "42", r.FormValue("shopId"))
		require.Len(t, r.MultipartForm.File["images"], 2)
		wrap(w, 200, map[string]any{"stored": 2})
	}, &models.Session{AuthToken: "tok", UserID: 7, BranchID: 3, CompanyID: 2})
	defer srv.Close()

	err := c.UploadImages(context.Background(), UploadImagesInput{
		UserID:  7,
		ShopID:  42,
		VisitID: 900,
		Files: []UploadFile{
			{Name: "front.jpg", Data: []byte{0xff, 0xd8}},
			{Name: "shelf.jpg", Data: []byte{0xff, 0xd8}},
		},
	})
	require.NoError(t, err)
}

func TestCreateOrderSendsRequestID(t *testing.T) {
	var got models.Order
	c, srv := testClient(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		wrap(w, 200, map[string]any{"id": 55})
	}, nil)
	defer srv.Close()

	id, err := c.CreateOrder(context.Background(), &models.Order{
		RequestID: "req-1", ShopID: 42, VisitID: 900,
		Lines: []models.OrderLine{{ProductID: 1, Quantity: 2, UnitPrice: 9.5}},
	})
	require.NoError(t, err)
	require.Equal(t, 55, id)
	require.Equal(t, "req-1", got.RequestID)
	require.Equal(t, 900, got.VisitID)
}
