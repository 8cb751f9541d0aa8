package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/room-reservation-api/internal/dto"
	"github.com/noah-isme/room-reservation-api/internal/models"
	appErrors "github.com/noah-isme/room-reservation-api/pkg/errors"
)

type roomListStub struct {
	rooms []models.Room
	err   error
}

func (s roomListStub) List(ctx context.Context) ([]models.Room, error) {
	return s.rooms, s.err
}

func (s roomListStub) FindByID(ctx context.Context, id string) (*models.Room, error) {
	for i := range s.rooms {
		if s.rooms[i].ID == id {
			return &s.rooms[i], nil
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return nil, errNoRows
}

type rangeReaderStub struct {
	items    []models.ReservationDetail
	err      error
	calls    int
	from, to time.Time
}

func (s *rangeReaderStub) ListBetween(ctx context.Context, from, to time.Time) ([]models.ReservationDetail, error) {
	s.calls++
	s.from, s.to = from, to
	return s.items, s.err
}

type memoryCacheRepo struct {
	mu    sync.Mutex
	items map[string]interface{}
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{items: map[string]interface{}{}}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	out, ok := dest.(*dto.DashboardResponse)
	if !ok {
		return errors.New("unexpected destination")
	}
	*out = *value.(*dto.DashboardResponse)
	return nil
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = map[string]interface{}{}
	return nil
}

func TestDashboardServiceGroupsReservationsByRoom(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	rooms := roomListStub{rooms: []models.Room{
		{ID: "room-a", Name: "Boardroom", Capacity: 15},
		{ID: "room-b", Name: "Conference Room A", Capacity: 20},
	}}
	reader := &rangeReaderStub{items: []models.ReservationDetail{
		{ID: "res-1", RoomID: "room-b", RoomName: "Conference Room A", StartDate: day.Add(10 * time.Hour), EndDate: day.Add(11 * time.Hour)},
		{ID: "res-2", RoomID: "room-b", RoomName: "Conference Room A", StartDate: day.Add(-2 * time.Hour), EndDate: day.Add(time.Hour)},
	}}

	svc := NewDashboardService(DashboardServiceParams{Rooms: rooms, Reservations: reader, Logger: zap.NewNop()})
	summary, cached, err := svc.Get(context.Background(), day.Add(15*time.Hour))
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, day, reader.from)
	assert.Equal(t, day.Add(24*time.Hour), reader.to)

	assert.Equal(t, "2026-03-02", summary.Date)
	assert.Equal(t, 2, summary.TotalReservations)
	require.Len(t, summary.Rooms, 2)
	assert.Empty(t, summary.Rooms[0].Reservations)
	assert.NotNil(t, summary.Rooms[0].Reservations)
	assert.Len(t, summary.Rooms[1].Reservations, 2)
	assert.Equal(t, 120, summary.Rooms[1].BookedMins)
}

func TestDashboardServiceUsesCacheUntilInvalidated(t *testing.T) {
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, NewMetricsService(), time.Minute, zap.NewNop(), true)
	reader := &rangeReaderStub{}
	svc := NewDashboardService(DashboardServiceParams{Rooms: roomListStub{}, Reservations: reader, Cache: cache})
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	_, cached, err := svc.Get(context.Background(), day)
	require.NoError(t, err)
	assert.False(t, cached)

	_, cached, err = svc.Get(context.Background(), day)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 1, reader.calls)

	require.NoError(t, cache.Invalidate(context.Background(), dashboardCachePattern))
	_, cached, err = svc.Get(context.Background(), day)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 2, reader.calls)
}

func TestDashboardServiceStorageFailure(t *testing.T) {
	svc := NewDashboardService(DashboardServiceParams{Rooms: roomListStub{err: errors.New("down")}, Reservations: &rangeReaderStub{}})
	_, _, err := svc.Get(context.Background(), time.Now())
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
