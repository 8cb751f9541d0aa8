package events

import (
	"context"
	"time"
)

// TypeReservationCreated names the event emitted after a booking commits.
const TypeReservationCreated = "reservation.created"

// ReservationCreated is the payload published for every committed booking.
type ReservationCreated struct {
	EventID       string    `json:"event_id"`
	Type          string    `json:"type"`
	ReservationID string    `json:"reservation_id"`
	RoomID        string    `json:"room_id"`
	UserID        string    `json:"user_id"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	Purpose       string    `json:"purpose"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Publisher delivers reservation events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, event ReservationCreated) error
	Close() error
}

// NopPublisher discards events. Used when publishing is disabled.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, ReservationCreated) error { return nil }

// Close implements Publisher.
func (NopPublisher) Close() error { return nil }
