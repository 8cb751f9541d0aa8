package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/room-reservation-api/internal/models"
)

const reservationColumns = `id, room_id, user_id, start_date, end_date, purpose, created_at, updated_at`

const reservationDetailSelect = `SELECT r.id, r.room_id, rm.name AS room_name, r.user_id, u.full_name AS user_name, r.start_date, r.end_date, r.purpose
FROM reservations r
JOIN rooms rm ON rm.id = r.room_id
JOIN users u ON u.id = r.user_id`

// ReservationRepository provides persistence for reservations.
type ReservationRepository struct {
	db *sqlx.DB
}

// NewReservationRepository creates a new reservation repository.
func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// BeginTxx starts a transaction on the underlying database.
func (r *ReservationRepository) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, opts)
}

// FindOverlappingTx returns reservations of roomID intersecting [start, end)
// as seen by tx. Served by the (room_id, start_date, end_date) index.
func (r *ReservationRepository) FindOverlappingTx(ctx context.Context, tx *sqlx.Tx, roomID string, start, end time.Time) ([]models.Reservation, error) {
	if tx == nil {
		return nil, fmt.Errorf("nil transaction provided")
	}
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE room_id = $1 AND start_date < $2 AND end_date > $3 ORDER BY start_date ASC`
	var items []models.Reservation
	if err := tx.SelectContext(ctx, &items, query, roomID, end.UTC(), start.UTC()); err != nil {
		return nil, fmt.Errorf("find overlapping reservations: %w", err)
	}
	return items, nil
}

// CreateTx stores a reservation using an existing transaction.
func (r *ReservationRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, reservation *models.Reservation) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	if reservation.ID == "" {
		reservation.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if reservation.CreatedAt.IsZero() {
		reservation.CreatedAt = now
	}
	reservation.UpdatedAt = now
	reservation.StartDate = reservation.StartDate.UTC()
	reservation.EndDate = reservation.EndDate.UTC()

	const query = `INSERT INTO reservations (id, room_id, user_id, start_date, end_date, purpose, created_at, updated_at) VALUES (:id, :room_id, :user_id, :start_date, :end_date, :purpose, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, tx, query, reservation); err != nil {
		return fmt.Errorf("create reservation: %w", err)
	}
	return nil
}

// FindByID loads a reservation by id.
func (r *ReservationRepository) FindByID(ctx context.Context, id string) (*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	var reservation models.Reservation
	if err := r.db.GetContext(ctx, &reservation, query, id); err != nil {
		return nil, err
	}
	return &reservation, nil
}

// List returns reservation details with optional filtering and pagination,
// ordered by start time.
func (r *ReservationRepository) List(ctx context.Context, filter models.ReservationFilter) ([]models.ReservationDetail, int, error) {
	where, args := reservationConditions(filter)

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("%s%s ORDER BY r.start_date ASC, rm.name ASC LIMIT %d OFFSET %d", reservationDetailSelect, where, size, offset)
	items := []models.ReservationDetail{}
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list reservations: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM reservations r" + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count reservations: %w", err)
	}
	return items, total, nil
}

// ListBetween returns every reservation detail intersecting [from, to).
func (r *ReservationRepository) ListBetween(ctx context.Context, from, to time.Time) ([]models.ReservationDetail, error) {
	where, args := reservationConditions(models.ReservationFilter{From: &from, To: &to})
	query := reservationDetailSelect + where + " ORDER BY rm.name ASC, r.start_date ASC"
	items := []models.ReservationDetail{}
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list reservations between: %w", err)
	}
	return items, nil
}

func reservationConditions(filter models.ReservationFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.RoomID != "" {
		conditions = append(conditions, fmt.Sprintf("r.room_id = $%d", len(args)+1))
		args = append(args, filter.RoomID)
	}
	// half-open intersection with [From, To)
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("r.start_date < $%d", len(args)+1))
		args = append(args, filter.To.UTC())
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("r.end_date > $%d", len(args)+1))
		args = append(args, filter.From.UTC())
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}
