package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var roomRowColumns = []string{"id", "name", "description", "capacity", "room_type", "created_at", "updated_at"}

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	cleanup := func() {
		_ = sqlxDB.Close()
		db.Close()
	}
	return sqlxDB, mock, cleanup
}

func TestRoomRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows(roomRowColumns).
		AddRow("room-1", "Boardroom", "Executive board meetings", 15, nil, now, now).
		AddRow("room-2", "Conference Room A", "Large conference room", 20, "conference", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM rooms ORDER BY name ASC")).WillReturnRows(rows)

	rooms, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, "Boardroom", rooms[0].Name)
	assert.Nil(t, rooms[0].RoomType)
	require.NotNil(t, rooms[1].RoomType)
	assert.Equal(t, "conference", *rooms[1].RoomType)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM rooms WHERE id = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(roomRowColumns))

	room, err := repo.FindByID(context.Background(), "missing")
	assert.Nil(t, room)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepositoryLockByIDTx(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SET LOCAL lock_timeout = '2500ms'")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM rooms WHERE id = $1 FOR UPDATE")).
		WithArgs("room-1").
		WillReturnRows(sqlmock.NewRows(roomRowColumns).AddRow("room-1", "Meeting Room B", "Small meeting room", 10, nil, now, now))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	room, err := repo.LockByIDTx(context.Background(), tx, "room-1", 2500*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "Meeting Room B", room.Name)
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepositoryLockByIDTxTimeout(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("room-1").
		WillReturnError(&pq.Error{Code: "55P03", Message: "canceling statement due to lock timeout"})
	mock.ExpectRollback()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	room, err := repo.LockByIDTx(context.Background(), tx, "room-1", 0)
	assert.Nil(t, room)
	assert.True(t, errors.Is(err, ErrLockTimeout))
	require.NoError(t, tx.Rollback())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepositoryLockByIDTxRequiresTx(t *testing.T) {
	db, _, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	_, err := repo.LockByIDTx(context.Background(), nil, "room-1", time.Second)
	assert.Error(t, err)
}
