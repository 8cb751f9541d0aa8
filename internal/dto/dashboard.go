package dto

import (
	"time"

	"github.com/noah-isme/room-reservation-api/internal/models"
)

// DashboardResponse is the one-day occupancy view.
type DashboardResponse struct {
	Date              string                     `json:"date"`
	Rooms             []DashboardRoom            `json:"rooms"`
	Reservations      []models.ReservationDetail `json:"reservations"`
	TotalReservations int                        `json:"total_reservations"`
	GeneratedAt       time.Time                  `json:"generated_at"`
}

// DashboardRoom lists one room with its reservations for the day.
type DashboardRoom struct {
	ID           string                     `json:"id"`
	Name         string                     `json:"name"`
	Capacity     int                        `json:"capacity"`
	RoomType     *string                    `json:"room_type,omitempty"`
	BookedMins   int                        `json:"booked_minutes"`
	Reservations []models.ReservationDetail `json:"reservations"`
}
