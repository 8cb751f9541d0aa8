package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/noah-isme/room-reservation-api/internal/dto"
	"github.com/noah-isme/room-reservation-api/internal/models"
	"github.com/noah-isme/room-reservation-api/internal/service"
	appErrors "github.com/noah-isme/room-reservation-api/pkg/errors"
	"github.com/noah-isme/room-reservation-api/pkg/response"
)

type reservationService interface {
	Reserve(ctx context.Context, actor models.Actor, req service.ReserveRequest) (*models.Reservation, error)
	List(ctx context.Context, filter models.ReservationFilter) ([]models.ReservationDetail, *models.Pagination, error)
}

type reservationExporter interface {
	Reservations(ctx context.Context, day time.Time, format string) (*service.ExportFile, error)
}

// ReservationHandler exposes booking endpoints.
type ReservationHandler struct {
	service   reservationService
	exporter  reservationExporter
	validator *validator.Validate
	now       func() time.Time
}

// NewReservationHandler builds a new handler.
func NewReservationHandler(service reservationService, exporter reservationExporter, validate *validator.Validate) *ReservationHandler {
	if validate == nil {
		validate = dto.NewValidator()
	}
	return &ReservationHandler{service: service, exporter: exporter, validator: validate, now: time.Now}
}

// Create godoc
// @Summary Reserve a room
// @Description Books the room for [start_date, end_date). Touching an existing reservation is allowed, overlapping is not.
// @Tags Reservations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Room ID"
// @Param payload body dto.CreateReservationRequest true "Reservation payload"
// @Success 201 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /rooms/{id}/reservations [post]
func (h *ReservationHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	actor := claims.Actor()

	roomID := c.Param("id")
	if _, err := uuid.Parse(roomID); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "room not found"))
		return
	}

	var req dto.CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid reservation payload"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.Error(c, appErrors.WithFields(appErrors.ErrValidation, dto.ValidationFields(err)))
		return
	}
	start, end, err := req.Interval()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reservation payload"))
		return
	}

	reservation, err := h.service.Reserve(c.Request.Context(), actor, service.ReserveRequest{
		RoomID:  roomID,
		Start:   start,
		End:     end,
		Purpose: req.Purpose,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, reservation)
}

// List godoc
// @Summary List reservations
// @Tags Reservations
// @Produce json
// @Param date query string false "Day (YYYY-MM-DD); reservations intersecting it"
// @Param room_id query string false "Room ID filter"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /reservations [get]
func (h *ReservationHandler) List(c *gin.Context) {
	var query dto.ListReservationsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	if err := h.validator.Struct(query); err != nil {
		response.Error(c, appErrors.WithFields(appErrors.ErrValidation, dto.ValidationFields(err)))
		return
	}

	filter := models.ReservationFilter{RoomID: query.RoomID, Page: query.Page, PageSize: query.Limit}
	if query.Date != "" {
		day, err := dto.ParseDay(query.Date, h.now())
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date"))
			return
		}
		next := day.Add(24 * time.Hour)
		filter.From, filter.To = &day, &next
	}

	items, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Export godoc
// @Summary Export a day's reservations
// @Tags Reservations
// @Produce text/csv
// @Produce application/pdf
// @Param date query string false "Day (YYYY-MM-DD). Defaults to today"
// @Param format query string false "csv or pdf" Enums(csv, pdf)
// @Success 200 {file} file
// @Router /reservations/export [get]
func (h *ReservationHandler) Export(c *gin.Context) {
	var query dto.ExportReservationsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	if err := h.validator.Struct(query); err != nil {
		response.Error(c, appErrors.WithFields(appErrors.ErrValidation, dto.ValidationFields(err)))
		return
	}
	day, err := dto.ParseDay(query.Date, h.now())
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date"))
		return
	}

	file, err := h.exporter.Reservations(c.Request.Context(), day, query.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
