package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/room-reservation-api/internal/models"
	appErrors "github.com/noah-isme/room-reservation-api/pkg/errors"
	"github.com/noah-isme/room-reservation-api/pkg/response"
)

// RequireCapability lets the request through only when the caller's role
// passes allowed. Must run after JWT.
func RequireCapability(allowed func(models.UserRole) bool, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !allowed(claims.Role) {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, message))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireBooking rejects callers whose role may not create reservations.
func RequireBooking() gin.HandlerFunc {
	return RequireCapability(models.UserRole.CanBook, "your role is not allowed to make reservations")
}
