package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/room-reservation-api/internal/middleware"
	appErrors "github.com/noah-isme/room-reservation-api/pkg/errors"
	"github.com/noah-isme/room-reservation-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/room-reservation-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/room-reservation-api/pkg/middleware/requestid"
	"github.com/noah-isme/room-reservation-api/pkg/response"
)

// RouterConfig controls route registration.
type RouterConfig struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool
}

// Handlers groups the HTTP handlers mounted by NewRouter.
type Handlers struct {
	Reservations *ReservationHandler
	Rooms        *RoomHandler
	Dashboard    *DashboardHandler
	Metrics      *MetricsHandler
}

// NewRouter assembles the gin engine with the ambient middleware chain and
// every API route.
func NewRouter(cfg RouterConfig, h Handlers, auth middleware.TokenValidator, observer middleware.RequestObserver, logr *zap.Logger) *gin.Engine {
	if logr == nil {
		logr = zap.NewNop()
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.AllowedOrigins))
	r.Use(middleware.Metrics(observer))
	r.Use(middleware.WithResponseMeta())

	r.NoRoute(func(c *gin.Context) {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "route not found"))
	})

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if cfg.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
		r.GET("/docs", func(c *gin.Context) {
			c.Redirect(http.StatusMovedPermanently, "/docs/index.html")
		})
	}

	api := r.Group(cfg.APIPrefix)

	rooms := api.Group("/rooms")
	rooms.GET("", h.Rooms.List)
	rooms.GET("/:id", h.Rooms.Get)
	rooms.POST("/:id/reservations", middleware.JWT(auth), middleware.RequireBooking(), h.Reservations.Create)

	reservations := api.Group("/reservations")
	reservations.GET("", h.Reservations.List)
	reservations.GET("/export", h.Reservations.Export)

	api.GET("/dashboard", h.Dashboard.Get)

	return r
}
