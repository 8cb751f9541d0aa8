package dto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInstantLayouts(t *testing.T) {
	want := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	for _, raw := range []string{
		"2026-03-02T10:00:00Z",
		"2026-03-02T12:00:00+02:00",
		"2026-03-02 10:00:00",
		"2026-03-02T10:00:00",
		"2026-03-02 10:00",
	} {
		got, err := ParseInstant(raw)
		require.NoError(t, err, raw)
		assert.True(t, want.Equal(got), raw)
		assert.Equal(t, time.UTC, got.Location())
	}

	_, err := ParseInstant("yesterday")
	assert.Error(t, err)
}

func TestParseDay(t *testing.T) {
	now := time.Date(2026, 3, 2, 23, 30, 0, 0, time.FixedZone("X", -3*3600))
	day, err := ParseDay("", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), day)

	day, err = ParseDay("2026-01-15", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), day)

	_, err = ParseDay("15/01/2026", now)
	assert.Error(t, err)
}

func TestValidationFieldsUseJSONNames(t *testing.T) {
	v := NewValidator()

	err := v.Struct(CreateReservationRequest{EndDate: "soon"})
	fields := ValidationFields(err)
	require.NotNil(t, fields)
	assert.Equal(t, []string{"the start_date field is required"}, fields["start_date"])
	assert.Equal(t, []string{"the end_date field is not a valid date"}, fields["end_date"])

	assert.NoError(t, v.Struct(CreateReservationRequest{StartDate: "2026-03-02 10:00", EndDate: "2026-03-02 11:00"}))
}

func TestValidationFieldsQuery(t *testing.T) {
	v := NewValidator()
	fields := ValidationFields(v.Struct(ExportReservationsQuery{Date: "03/02/2026", Format: "xlsx"}))
	assert.Contains(t, fields, "date")
	assert.Contains(t, fields, "format")
	assert.Nil(t, ValidationFields(nil))
}

func TestCreateReservationRequestInterval(t *testing.T) {
	req := CreateReservationRequest{StartDate: "2026-03-02 10:00", EndDate: "2026-03-02T11:00:00Z"}
	start, end, err := req.Interval()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, end.Sub(start))
}
