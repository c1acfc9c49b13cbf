package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/timegrid/timegrid-api/internal/middleware"
	"github.com/timegrid/timegrid-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// ownerFromContext returns the identity scoping per-user state. Falls back to
// a shared owner when the route is unauthenticated.
func ownerFromContext(c *gin.Context) string {
	if claims := claimsFromContext(c); claims != nil {
		return claims.UserID
	}
	return "shared"
}
