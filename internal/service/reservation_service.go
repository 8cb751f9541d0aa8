package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/room-reservation-api/internal/models"
	"github.com/noah-isme/room-reservation-api/internal/repository"
	appErrors "github.com/noah-isme/room-reservation-api/pkg/errors"
	"github.com/noah-isme/room-reservation-api/pkg/lock"
)

const (
	dashboardCachePattern = "dashboard:*"
	outcomeCreated        = "created"
	outcomeError          = "error"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type roomRowLocker interface {
	LockByIDTx(ctx context.Context, tx *sqlx.Tx, id string, wait time.Duration) (*models.Room, error)
}

type overlapFinder interface {
	FindOverlappingTx(ctx context.Context, tx *sqlx.Tx, roomID string, start, end time.Time) ([]models.Reservation, error)
}

type reservationStore interface {
	overlapFinder
	CreateTx(ctx context.Context, tx *sqlx.Tx, reservation *models.Reservation) error
	List(ctx context.Context, filter models.ReservationFilter) ([]models.ReservationDetail, int, error)
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context, pattern string) error
}

type reservationNotifier interface {
	ReservationCreated(ctx context.Context, reservation models.Reservation)
}

// ConflictChecker answers whether a proposed interval collides with an
// existing reservation of the same room. It takes no locks; callers must hold
// the room lock for the result to stay valid until their insert.
type ConflictChecker struct {
	repo overlapFinder
}

// NewConflictChecker builds a ConflictChecker.
func NewConflictChecker(repo overlapFinder) *ConflictChecker {
	return &ConflictChecker{repo: repo}
}

// FindConflict returns the first reservation of roomID overlapping
// [start, end), or nil when the slot is free.
func (c *ConflictChecker) FindConflict(ctx context.Context, tx *sqlx.Tx, roomID string, start, end time.Time) (*models.Reservation, error) {
	candidates, err := c.repo.FindOverlappingTx(ctx, tx, roomID, start, end)
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		if candidates[i].Overlaps(start, end) {
			return &candidates[i], nil
		}
	}
	return nil, nil
}

// HasConflict reports whether [start, end) overlaps any reservation of roomID.
func (c *ConflictChecker) HasConflict(ctx context.Context, tx *sqlx.Tx, roomID string, start, end time.Time) (bool, error) {
	conflict, err := c.FindConflict(ctx, tx, roomID, start, end)
	if err != nil {
		return false, err
	}
	return conflict != nil, nil
}

// ReserveRequest is a validated booking request.
type ReserveRequest struct {
	RoomID  string
	Start   time.Time
	End     time.Time
	Purpose string
}

// ReservationServiceConfig tunes locking behaviour.
type ReservationServiceConfig struct {
	// LockTimeout bounds both the keyed lock wait and the Postgres row lock wait.
	LockTimeout time.Duration
}

// ReservationServiceParams groups constructor dependencies.
type ReservationServiceParams struct {
	Tx           txProvider
	Rooms        roomRowLocker
	Reservations reservationStore
	Locker       lock.Locker
	Cache        cacheInvalidator
	Events       reservationNotifier
	Metrics      *MetricsService
	Logger       *zap.Logger
	Config       ReservationServiceConfig
}

// ReservationService creates and lists reservations.
type ReservationService struct {
	tx           txProvider
	rooms        roomRowLocker
	reservations reservationStore
	checker      *ConflictChecker
	locker       lock.Locker
	cache        cacheInvalidator
	events       reservationNotifier
	metrics      *MetricsService
	logger       *zap.Logger
	cfg          ReservationServiceConfig
}

// NewReservationService constructs a ReservationService with sane defaults.
func NewReservationService(params ReservationServiceParams) *ReservationService {
	cfg := params.Config
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = 5 * time.Second
	}
	locker := params.Locker
	if locker == nil {
		locker = lock.NewKeyedMutex()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReservationService{
		tx:           params.Tx,
		rooms:        params.Rooms,
		reservations: params.Reservations,
		checker:      NewConflictChecker(params.Reservations),
		locker:       locker,
		cache:        params.Cache,
		events:       params.Events,
		metrics:      params.Metrics,
		logger:       logger,
		cfg:          cfg,
	}
}

// Checker exposes the conflict checker used by Reserve.
func (s *ReservationService) Checker() *ConflictChecker {
	return s.checker
}

// Reserve books a room for actor. Steps run in a fixed order: authorize,
// lock and resolve the room, validate the interval, check for conflicts,
// insert. Business refusals are returned as *appErrors.Error wrapping a
// *models.ReservationRejection.
func (s *ReservationService) Reserve(ctx context.Context, actor models.Actor, req ReserveRequest) (reservation *models.Reservation, err error) {
	defer func() {
		s.metrics.RecordReservation(outcomeOf(err))
	}()

	if actor.UserID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	if !actor.Role.CanBook() {
		return nil, reject(models.RejectForbidden, "your role is not allowed to make reservations", "")
	}

	release, err := s.acquireRoom(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}
	defer release()

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	room, err := s.rooms.LockByIDTx(ctx, tx, req.RoomID, s.cfg.LockTimeout)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, reject(models.RejectNotFound, "room not found", "")
		case errors.Is(err, repository.ErrLockTimeout):
			return nil, reject(models.RejectConflict, "room is busy, please retry", "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}

	start, end := req.Start.UTC(), req.End.UTC()
	if !end.After(start) {
		return nil, reject(models.RejectInvalidInterval, appErrors.ErrInvalidInterval.Message, "")
	}

	conflict, err := s.checker.FindConflict(ctx, tx, room.ID, start, end)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check availability")
	}
	if conflict != nil {
		err = reject(models.RejectConflict, "room is already booked for the selected time", conflict.ID)
		return nil, err
	}

	reservation = &models.Reservation{
		RoomID:    room.ID,
		UserID:    actor.UserID,
		StartDate: start,
		EndDate:   end,
		Purpose:   req.Purpose,
	}
	if err = s.reservations.CreateTx(ctx, tx, reservation); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create reservation")
	}
	if err = tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit reservation")
	}

	s.logger.Info("reservation created",
		zap.String("reservation_id", reservation.ID),
		zap.String("room_id", reservation.RoomID),
		zap.String("user_id", reservation.UserID),
		zap.Time("start", start),
		zap.Time("end", end),
	)
	s.afterCommit(ctx, *reservation)
	return reservation, nil
}

// List returns reservation details matching filter with pagination metadata.
func (s *ReservationService) List(ctx context.Context, filter models.ReservationFilter) ([]models.ReservationDetail, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	items, total, err := s.reservations.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reservations")
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

func (s *ReservationService) acquireRoom(ctx context.Context, roomID string) (func(), error) {
	waitCtx, cancel := context.WithTimeout(ctx, s.cfg.LockTimeout)
	defer cancel()

	started := time.Now()
	release, err := s.locker.Acquire(waitCtx, roomLockKey(roomID))
	s.metrics.ObserveLockWait(time.Since(started))
	if err != nil {
		if errors.Is(err, lock.ErrTimeout) {
			s.logger.Warn("room lock wait expired", zap.String("room_id", roomID), zap.Duration("timeout", s.cfg.LockTimeout))
			return nil, reject(models.RejectConflict, "room is busy, please retry", "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock room")
	}
	return release, nil
}

func (s *ReservationService) afterCommit(ctx context.Context, reservation models.Reservation) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, dashboardCachePattern); err != nil {
			s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
		}
	}
	if s.events != nil {
		s.events.ReservationCreated(ctx, reservation)
	}
}

func roomLockKey(roomID string) string {
	return "room:" + roomID
}

func reject(reason models.RejectionReason, message, conflictingID string) *appErrors.Error {
	rejection := &models.ReservationRejection{Reason: reason, Message: message, ConflictingID: conflictingID}
	var base *appErrors.Error
	switch reason {
	case models.RejectForbidden:
		base = appErrors.ErrForbidden
	case models.RejectNotFound:
		base = appErrors.ErrNotFound
	case models.RejectInvalidInterval:
		return &appErrors.Error{
			Code:    appErrors.ErrInvalidInterval.Code,
			Status:  appErrors.ErrInvalidInterval.Status,
			Message: message,
			Fields:  map[string][]string{"end_date": {message}},
			Err:     rejection,
		}
	default:
		base = appErrors.ErrConflict
	}
	return appErrors.Wrap(rejection, base.Code, base.Status, message)
}

// RejectionOf extracts the business rejection carried by err, if any.
func RejectionOf(err error) (*models.ReservationRejection, bool) {
	var rejection *models.ReservationRejection
	if errors.As(err, &rejection) {
		return rejection, true
	}
	return nil, false
}

func outcomeOf(err error) string {
	if err == nil {
		return outcomeCreated
	}
	if rejection, ok := RejectionOf(err); ok {
		return string(rejection.Reason)
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) && appErr.Status < 500 {
		return fmt.Sprintf("%d", appErr.Status)
	}
	return outcomeError
}
