package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/room-reservation-api/internal/models"
)

const roomColumns = `id, name, description, capacity, room_type, created_at, updated_at`

// RoomRepository provides persistence for rooms.
type RoomRepository struct {
	db *sqlx.DB
}

// NewRoomRepository creates a new room repository.
func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// List returns every room ordered by name.
func (r *RoomRepository) List(ctx context.Context) ([]models.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms ORDER BY name ASC`
	rooms := []models.Room{}
	if err := r.db.SelectContext(ctx, &rooms, query); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

// FindByID loads a room by id. sql.ErrNoRows is returned unwrapped when the
// room does not exist.
func (r *RoomRepository) FindByID(ctx context.Context, id string) (*models.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE id = $1`
	var room models.Room
	if err := r.db.GetContext(ctx, &room, query, id); err != nil {
		return nil, err
	}
	return &room, nil
}

// LockByIDTx loads the room and holds its row lock until tx ends. A positive
// wait bounds how long Postgres blocks behind another holder; when it elapses
// ErrLockTimeout is returned. sql.ErrNoRows is returned unwrapped when the
// room does not exist.
func (r *RoomRepository) LockByIDTx(ctx context.Context, tx *sqlx.Tx, id string, wait time.Duration) (*models.Room, error) {
	if tx == nil {
		return nil, fmt.Errorf("nil transaction provided")
	}
	if wait > 0 {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", wait.Milliseconds())); err != nil {
			return nil, fmt.Errorf("set lock timeout: %w", err)
		}
	}

	query := `SELECT ` + roomColumns + ` FROM rooms WHERE id = $1 FOR UPDATE`
	var room models.Room
	if err := tx.GetContext(ctx, &room, query, id); err != nil {
		if isLockNotAvailable(err) {
			return nil, fmt.Errorf("lock room %s: %w", id, ErrLockTimeout)
		}
		return nil, err
	}
	return &room, nil
}
