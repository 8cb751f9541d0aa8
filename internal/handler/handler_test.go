package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/room-reservation-api/internal/dto"
	"github.com/noah-isme/room-reservation-api/internal/models"
	"github.com/noah-isme/room-reservation-api/internal/service"
	appErrors "github.com/noah-isme/room-reservation-api/pkg/errors"
)

const testRoomID = "5b0f7c1e-8d2a-4c3b-9e1f-0a0000000a01"

type responseEnvelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      *appErrors.Error       `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

type tokenStub map[string]*models.JWTClaims

func (s tokenStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := s[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

var testTokens = tokenStub{
	"member": {UserID: "user-member", Role: models.RoleMember},
	"guest":  {UserID: "user-guest", Role: models.RoleGuest},
}

type fakeReservationSrv struct {
	calls      int
	lastActor  models.Actor
	lastReq    service.ReserveRequest
	lastFilter models.ReservationFilter
	result     *models.Reservation
	err        error
	items      []models.ReservationDetail
}

func (f *fakeReservationSrv) Reserve(ctx context.Context, actor models.Actor, req service.ReserveRequest) (*models.Reservation, error) {
	f.calls++
	f.lastActor, f.lastReq = actor, req
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &models.Reservation{ID: "res-1", RoomID: req.RoomID, UserID: actor.UserID, StartDate: req.Start, EndDate: req.End, Purpose: req.Purpose}, nil
}

func (f *fakeReservationSrv) List(ctx context.Context, filter models.ReservationFilter) ([]models.ReservationDetail, *models.Pagination, error) {
	f.lastFilter = filter
	return f.items, &models.Pagination{Page: 1, PageSize: 20, TotalCount: len(f.items)}, nil
}

type fakeExporter struct {
	day    time.Time
	format string
	err    error
}

func (f *fakeExporter) Reservations(ctx context.Context, day time.Time, format string) (*service.ExportFile, error) {
	f.day, f.format = day, format
	if f.err != nil {
		return nil, f.err
	}
	return &service.ExportFile{Filename: "reservations-2026-03-02.csv", ContentType: "text/csv", Body: []byte("Room\n")}, nil
}

type fakeRoomSrv struct{}

func (fakeRoomSrv) List(ctx context.Context) ([]models.Room, error) {
	return []models.Room{{ID: testRoomID, Name: "Conference Room A", Capacity: 20}}, nil
}

func (fakeRoomSrv) Get(ctx context.Context, id string) (*models.Room, error) {
	if id == testRoomID {
		return &models.Room{ID: testRoomID, Name: "Conference Room A", Capacity: 20}, nil
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
}

type fakeDashboardSrv struct {
	day  time.Time
	resp *dto.DashboardResponse
	hit  bool
}

func (f *fakeDashboardSrv) Get(ctx context.Context, day time.Time) (*dto.DashboardResponse, bool, error) {
	f.day = day
	return f.resp, f.hit, nil
}

type pingStub struct{ err error }

func (p pingStub) PingContext(ctx context.Context) error { return p.err }

type routerFixture struct {
	engine       *gin.Engine
	reservations *fakeReservationSrv
	exporter     *fakeExporter
	dashboard    *fakeDashboardSrv
}

func newRouterFixture(t *testing.T, deps map[string]Pinger) *routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := &routerFixture{
		reservations: &fakeReservationSrv{},
		exporter:     &fakeExporter{},
		dashboard:    &fakeDashboardSrv{resp: &dto.DashboardResponse{Date: "2026-03-02"}},
	}
	reservationHandler := NewReservationHandler(f.reservations, f.exporter, nil)
	reservationHandler.now = func() time.Time { return time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC) }
	f.engine = NewRouter(RouterConfig{}, Handlers{
		Reservations: reservationHandler,
		Rooms:        NewRoomHandler(fakeRoomSrv{}),
		Dashboard:    NewDashboardHandler(f.dashboard),
		Metrics:      NewMetricsHandler(service.NewMetricsService(), deps),
	}, testTokens, nil, nil)
	return f
}

func (f *routerFixture) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		raw, _ := json.Marshal(v)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func bookingPath(roomID string) string {
	return "/api/v1/rooms/" + roomID + "/reservations"
}

func TestCreateReservationSuccess(t *testing.T) {
	f := newRouterFixture(t, nil)
	rec := f.do(http.MethodPost, bookingPath(testRoomID), "member", map[string]string{
		"start_date": "2026-03-02 10:00",
		"end_date":   "2026-03-02 11:00",
		"purpose":    "Standup",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	env := decodeEnvelope(t, rec)
	var created models.Reservation
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "res-1", created.ID)
	assert.Equal(t, testRoomID, created.RoomID)
	assert.Equal(t, "user-member", created.UserID)

	assert.Equal(t, models.Actor{UserID: "user-member", Role: models.RoleMember}, f.reservations.lastActor)
	assert.Equal(t, time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), f.reservations.lastReq.Start)
	assert.Equal(t, "Standup", f.reservations.lastReq.Purpose)
}

func TestCreateReservationBoundaryOrder(t *testing.T) {
	invalid := map[string]string{"start_date": "nope"}
	cases := []struct {
		name   string
		token  string
		roomID string
		body   interface{}
		status int
		code   string
	}{
		{"no token", "", testRoomID, invalid, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"guest before room and fields", "guest", "not-a-uuid", invalid, http.StatusForbidden, "FORBIDDEN"},
		{"room id before fields", "member", "42", invalid, http.StatusNotFound, "NOT_FOUND"},
		{"fields", "member", testRoomID, invalid, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"malformed json", "member", testRoomID, "{", http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newRouterFixture(t, nil)
			rec := f.do(http.MethodPost, bookingPath(tc.roomID), tc.token, tc.body)
			assert.Equal(t, tc.status, rec.Code)
			env := decodeEnvelope(t, rec)
			require.NotNil(t, env.Error)
			assert.Equal(t, tc.code, env.Error.Code)
			assert.Zero(t, f.reservations.calls)
		})
	}
}

func TestCreateReservationFieldErrors(t *testing.T) {
	f := newRouterFixture(t, nil)
	rec := f.do(http.MethodPost, bookingPath(testRoomID), "member", map[string]string{"end_date": "tomorrow"})

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Contains(t, env.Error.Fields, "start_date")
	assert.Contains(t, env.Error.Fields, "end_date")
}

func TestCreateReservationMapsServiceRejections(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"conflict", appErrors.Wrap(&models.ReservationRejection{Reason: models.RejectConflict}, "CONFLICT", http.StatusConflict, "room is already booked for the selected time"), http.StatusConflict, "CONFLICT"},
		{"not found", appErrors.Clone(appErrors.ErrNotFound, "room not found"), http.StatusNotFound, "NOT_FOUND"},
		{"invalid interval", appErrors.WithFields(appErrors.ErrInvalidInterval, map[string][]string{"end_date": {"end_date must be after start_date"}}), http.StatusUnprocessableEntity, "INVALID_INTERVAL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newRouterFixture(t, nil)
			f.reservations.err = tc.err
			rec := f.do(http.MethodPost, bookingPath(testRoomID), "member", map[string]string{
				"start_date": "2026-03-02 12:00",
				"end_date":   "2026-03-02 11:00",
			})
			assert.Equal(t, tc.status, rec.Code)
			env := decodeEnvelope(t, rec)
			assert.Equal(t, tc.code, env.Error.Code)
		})
	}
}

func TestListReservationsFilters(t *testing.T) {
	f := newRouterFixture(t, nil)
	f.reservations.items = []models.ReservationDetail{{ID: "res-1", RoomName: "Boardroom", UserName: "Member User"}}

	rec := f.do(http.MethodGet, "/api/v1/reservations?date=2026-03-02&room_id="+testRoomID+"&page=2&limit=5", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	filter := f.reservations.lastFilter
	assert.Equal(t, testRoomID, filter.RoomID)
	assert.Equal(t, 2, filter.Page)
	assert.Equal(t, 5, filter.PageSize)
	require.NotNil(t, filter.From)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), *filter.From)
	assert.Equal(t, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), *filter.To)
	assert.NotNil(t, decodeEnvelope(t, rec).Pagination)

	rec = f.do(http.MethodGet, "/api/v1/reservations?date=yesterday", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decodeEnvelope(t, rec).Error.Fields, "date")
}

func TestExportReservations(t *testing.T) {
	f := newRouterFixture(t, nil)
	rec := f.do(http.MethodGet, "/api/v1/reservations/export", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "reservations-2026-03-02.csv")
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), f.exporter.day)

	rec = f.do(http.MethodGet, "/api/v1/reservations/export?format=xlsx", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRoomRoutes(t *testing.T) {
	f := newRouterFixture(t, nil)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/v1/rooms", "", nil).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/v1/rooms/"+testRoomID, "", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/v1/rooms/abc", "", nil).Code)
}

func TestDashboardRoute(t *testing.T) {
	f := newRouterFixture(t, nil)
	f.dashboard.hit = true

	rec := f.do(http.MethodGet, "/api/v1/dashboard?date=2026-03-02", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, true, env.Meta["cache_hit"])
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), f.dashboard.day)

	rec = f.do(http.MethodGet, "/api/v1/dashboard?date=02-03-2026", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHealthReadyAndMetrics(t *testing.T) {
	f := newRouterFixture(t, map[string]Pinger{"postgres": pingStub{}})
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/ready", "", nil).Code)

	rec := f.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "goroutines_total")

	down := newRouterFixture(t, map[string]Pinger{"postgres": pingStub{err: context.DeadlineExceeded}})
	assert.Equal(t, http.StatusServiceUnavailable, down.do(http.MethodGet, "/ready", "", nil).Code)
}

func TestUnknownRoute(t *testing.T) {
	f := newRouterFixture(t, nil)
	rec := f.do(http.MethodGet, "/api/v1/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeEnvelope(t, rec).Error.Code)
}
