package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/room-reservation-api/internal/dto"
	"github.com/noah-isme/room-reservation-api/internal/middleware"
	appErrors "github.com/noah-isme/room-reservation-api/pkg/errors"
	"github.com/noah-isme/room-reservation-api/pkg/response"
)

type dashboardService interface {
	Get(ctx context.Context, day time.Time) (*dto.DashboardResponse, bool, error)
}

// DashboardHandler wires dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
	now     func() time.Time
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service, now: time.Now}
}

// Get godoc
// @Summary Daily room occupancy
// @Tags Dashboard
// @Produce json
// @Param date query string false "Date (YYYY-MM-DD). Defaults to today"
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Get(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	day, err := dto.ParseDay(c.Query("date"), h.now())
	if err != nil {
		response.Error(c, appErrors.WithFields(appErrors.ErrValidation, map[string][]string{
			"date": {"the date field is not a valid date"},
		}))
		return
	}
	summary, cacheHit, err := h.service.Get(c.Request.Context(), day)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, summary, nil, respondMeta(c))
}
