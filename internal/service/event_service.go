package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/room-reservation-api/internal/models"
	"github.com/noah-isme/room-reservation-api/pkg/events"
	"github.com/noah-isme/room-reservation-api/pkg/jobs"
)

const publishTimeout = 5 * time.Second

// EventServiceConfig tunes the background publishing queue.
type EventServiceConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// EventService hands committed reservations to a background queue that
// publishes them. Publishing never blocks or fails a booking.
type EventService struct {
	publisher events.Publisher
	queue     *jobs.Queue
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// NewEventService builds the service and its queue. Call Start before use.
func NewEventService(publisher events.Publisher, metrics *MetricsService, logger *zap.Logger, cfg EventServiceConfig) *EventService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &EventService{publisher: publisher, metrics: metrics, logger: logger, now: time.Now}
	s.queue = jobs.NewQueue(events.TypeReservationCreated, s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
		OnDrop: func(job jobs.Job, err error) {
			s.metrics.RecordEvent("dropped")
		},
	})
	return s
}

// Start launches the publishing workers.
func (s *EventService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop halts the workers and closes the publisher.
func (s *EventService) Stop() {
	s.queue.Stop()
	if err := s.publisher.Close(); err != nil {
		s.logger.Warn("event publisher close failed", zap.Error(err))
	}
}

// ReservationCreated enqueues a reservation.created event.
func (s *EventService) ReservationCreated(ctx context.Context, reservation models.Reservation) {
	event := events.ReservationCreated{
		EventID:       uuid.NewString(),
		Type:          events.TypeReservationCreated,
		ReservationID: reservation.ID,
		RoomID:        reservation.RoomID,
		UserID:        reservation.UserID,
		StartDate:     reservation.StartDate,
		EndDate:       reservation.EndDate,
		Purpose:       reservation.Purpose,
		OccurredAt:    s.now().UTC(),
	}
	job := jobs.Job{ID: event.EventID, Type: event.Type, Payload: event}
	if err := s.queue.TryEnqueue(job); err != nil {
		s.metrics.RecordEvent("dropped")
		s.logger.Warn("reservation event not queued", zap.String("reservation_id", reservation.ID), zap.Error(err))
	}
}

func (s *EventService) handle(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(events.ReservationCreated)
	if !ok {
		return fmt.Errorf("unexpected payload %T for job %s", job.Payload, job.ID)
	}
	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(publishCtx, event); err != nil {
		s.metrics.RecordEvent("failed")
		return err
	}
	s.metrics.RecordEvent("published")
	s.logger.Debug("reservation event published",
		zap.String("event_id", event.EventID),
		zap.String("reservation_id", event.ReservationID),
	)
	return nil
}
