package models

import "time"

// Reservation books a room for the half-open interval [StartDate, EndDate).
type Reservation struct {
	ID        string    `db:"id" json:"id"`
	RoomID    string    `db:"room_id" json:"room_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	Purpose   string    `db:"purpose" json:"purpose"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ReservationDetail is a reservation joined with display fields for
// dashboards and listings.
type ReservationDetail struct {
	ID        string    `db:"id" json:"id"`
	RoomID    string    `db:"room_id" json:"room_id"`
	RoomName  string    `db:"room_name" json:"room_name"`
	UserID    string    `db:"user_id" json:"user_id"`
	UserName  string    `db:"user_name" json:"user_name"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	Purpose   string    `db:"purpose" json:"purpose"`
}

// ReservationFilter describes query params for listing reservations.
// From/To select reservations intersecting [From, To).
type ReservationFilter struct {
	RoomID   string
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// Overlaps reports whether [s1,e1) and [s2,e2) share any instant. Intervals
// that only touch at an endpoint do not overlap.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

// Overlaps reports whether the reservation intersects [start, end).
func (r Reservation) Overlaps(start, end time.Time) bool {
	return Overlaps(r.StartDate, r.EndDate, start, end)
}

// RejectionReason enumerates the business outcomes of a refused booking.
type RejectionReason string

const (
	RejectForbidden       RejectionReason = "FORBIDDEN"
	RejectNotFound        RejectionReason = "NOT_FOUND"
	RejectInvalidInterval RejectionReason = "INVALID_INTERVAL"
	RejectConflict        RejectionReason = "CONFLICT"
)

// ReservationRejection is returned when a booking is refused for a business
// reason. ConflictingID is set for overlap conflicts.
type ReservationRejection struct {
	Reason        RejectionReason `json:"reason"`
	Message       string          `json:"message"`
	ConflictingID string          `json:"conflicting_id,omitempty"`
}

// Error implements the error interface for rejections.
func (e *ReservationRejection) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
