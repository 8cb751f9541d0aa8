package service

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/room-reservation-api/internal/models"
	appErrors "github.com/noah-isme/room-reservation-api/pkg/errors"
)

var errNoRows = sql.ErrNoRows

func TestRoomServiceGet(t *testing.T) {
	svc := NewRoomService(roomListStub{rooms: []models.Room{{ID: testRoomID, Name: "Conference Room A"}}}, nil)

	room, err := svc.Get(context.Background(), testRoomID)
	require.NoError(t, err)
	assert.Equal(t, "Conference Room A", room.Name)

	_, err = svc.Get(context.Background(), "5b0f7c1e-8d2a-4c3b-9e1f-0a0000000a99")
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)

	_, err = svc.Get(context.Background(), "42")
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)
}

func TestRoomServiceListFailure(t *testing.T) {
	svc := NewRoomService(roomListStub{err: errors.New("down")}, nil)
	_, err := svc.List(context.Background())
	assert.Equal(t, http.StatusInternalServerError, appErrors.FromError(err).Status)
}
