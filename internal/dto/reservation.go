package dto

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// InstantLayouts lists accepted reservation instant formats. Values without
// a zone are read as UTC.
var InstantLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
}

// DateLayout is the calendar-day format used by date filters.
const DateLayout = "2006-01-02"

// CreateReservationRequest is the booking payload.
type CreateReservationRequest struct {
	StartDate string `json:"start_date" validate:"required,instant"`
	EndDate   string `json:"end_date" validate:"required,instant"`
	Purpose   string `json:"purpose" validate:"max=255"`
}

// Interval parses StartDate and EndDate. Call after validation.
func (r CreateReservationRequest) Interval() (time.Time, time.Time, error) {
	start, err := ParseInstant(r.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("start_date: %w", err)
	}
	end, err := ParseInstant(r.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("end_date: %w", err)
	}
	return start, end, nil
}

// ListReservationsQuery carries listing query params.
type ListReservationsQuery struct {
	Date   string `form:"date" validate:"omitempty,datetime=2006-01-02"`
	RoomID string `form:"room_id" validate:"omitempty,uuid"`
	Page   int    `form:"page" validate:"omitempty,min=1"`
	Limit  int    `form:"limit" validate:"omitempty,min=1,max=100"`
}

// ExportReservationsQuery carries export query params.
type ExportReservationsQuery struct {
	Date   string `form:"date" validate:"omitempty,datetime=2006-01-02"`
	Format string `form:"format" validate:"omitempty,oneof=csv pdf"`
}

// ParseInstant parses raw using InstantLayouts.
func ParseInstant(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range InstantLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", raw)
}

// ParseDay parses a YYYY-MM-DD day. Empty input yields today (UTC) from now.
func ParseDay(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		y, m, d := now.UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Parse(DateLayout, raw)
}

// NewValidator returns a validator that reports json field names and knows
// the "instant" tag.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(field.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return field.Name
	})
	_ = v.RegisterValidation("instant", func(fl validator.FieldLevel) bool {
		_, err := ParseInstant(fl.Field().String())
		return err == nil
	})
	return v
}

// ValidationFields maps validator errors to per-field messages keyed by the
// json name. nil is returned for errors that are not validation errors.
func ValidationFields(err error) map[string][]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = append(fields[fe.Field()], fieldMessage(fe))
	}
	return fields
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("the %s field is required", fe.Field())
	case "instant", "datetime":
		return fmt.Sprintf("the %s field is not a valid date", fe.Field())
	case "max":
		return fmt.Sprintf("the %s field must not exceed %s", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("the %s field must be at least %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("the %s field must be one of: %s", fe.Field(), fe.Param())
	case "uuid":
		return fmt.Sprintf("the %s field must be a valid id", fe.Field())
	default:
		return fmt.Sprintf("the %s field is invalid", fe.Field())
	}
}
