package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/timegrid/timegrid-api/internal/models"
	"github.com/timegrid/timegrid-api/internal/service"
)

// Audit records an activity entry after a successful request. Intended for
// mutating routes; failed requests are not logged.
func Audit(activity *service.ActivityService, action, target string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Status() >= 400 {
			return
		}

		actor := "anonymous"
		if claimsValue, ok := c.Get(ContextUserKey); ok {
			if claims, ok := claimsValue.(*models.JWTClaims); ok {
				actor = claims.Email
			}
		}

		summary := fmt.Sprintf("%s %s by %s (status %d)",
			c.Request.Method, c.FullPath(), actor, c.Writer.Status())
		activity.Record(c.Request.Context(), action, target, summary)
	}
}
