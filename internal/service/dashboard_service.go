package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/room-reservation-api/internal/dto"
	"github.com/noah-isme/room-reservation-api/internal/models"
	appErrors "github.com/noah-isme/room-reservation-api/pkg/errors"
)

type dashboardRoomLister interface {
	List(ctx context.Context) ([]models.Room, error)
}

type reservationRangeReader interface {
	ListBetween(ctx context.Context, from, to time.Time) ([]models.ReservationDetail, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
}

// DashboardService composes the daily occupancy view.
type DashboardService struct {
	rooms        dashboardRoomLister
	reservations reservationRangeReader
	cache        *CacheService
	logger       *zap.Logger
	now          func() time.Time
	cfg          DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Rooms        dashboardRoomLister
	Reservations reservationRangeReader
	Cache        *CacheService
	Logger       *zap.Logger
	Config       DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		rooms:        params.Rooms,
		reservations: params.Reservations,
		cache:        params.Cache,
		logger:       logger,
		now:          time.Now,
		cfg:          cfg,
	}
}

// Get returns the dashboard for the UTC day containing day and reports
// whether it was served from cache.
func (s *DashboardService) Get(ctx context.Context, day time.Time) (*dto.DashboardResponse, bool, error) {
	y, m, d := day.UTC().Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	cacheKey := fmt.Sprintf("dashboard:%s", from.Format(dto.DateLayout))

	if summary, hit := s.tryCache(ctx, cacheKey); hit {
		return summary, true, nil
	}

	summary, err := s.compose(ctx, from)
	if err != nil {
		return nil, false, err
	}
	s.persistCache(ctx, cacheKey, summary)
	return summary, false, nil
}

func (s *DashboardService) compose(ctx context.Context, from time.Time) (*dto.DashboardResponse, error) {
	to := from.Add(24 * time.Hour)

	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rooms")
	}
	reservations, err := s.reservations.ListBetween(ctx, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reservations")
	}

	byRoom := make(map[string][]models.ReservationDetail, len(rooms))
	for _, r := range reservations {
		byRoom[r.RoomID] = append(byRoom[r.RoomID], r)
	}

	out := make([]dto.DashboardRoom, 0, len(rooms))
	for _, room := range rooms {
		booked := byRoom[room.ID]
		if booked == nil {
			booked = []models.ReservationDetail{}
		}
		out = append(out, dto.DashboardRoom{
			ID:           room.ID,
			Name:         room.Name,
			Capacity:     room.Capacity,
			RoomType:     room.RoomType,
			BookedMins:   bookedMinutes(booked, from, to),
			Reservations: booked,
		})
	}

	return &dto.DashboardResponse{
		Date:              from.Format(dto.DateLayout),
		Rooms:             out,
		Reservations:      reservations,
		TotalReservations: len(reservations),
		GeneratedAt:       s.now().UTC(),
	}, nil
}

// bookedMinutes sums the parts of each reservation that fall inside [from, to).
func bookedMinutes(items []models.ReservationDetail, from, to time.Time) int {
	var total time.Duration
	for _, item := range items {
		start, end := item.StartDate, item.EndDate
		if start.Before(from) {
			start = from
		}
		if end.After(to) {
			end = to
		}
		if end.After(start) {
			total += end.Sub(start)
		}
	}
	return int(total / time.Minute)
}

func (s *DashboardService) tryCache(ctx context.Context, key string) (*dto.DashboardResponse, bool) {
	if s.cache == nil {
		return nil, false
	}
	var cached dto.DashboardResponse
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil || !hit {
		return nil, false
	}
	return &cached, true
}

func (s *DashboardService) persistCache(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
}
