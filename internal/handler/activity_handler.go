package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/timegrid/timegrid-api/internal/service"
	"github.com/timegrid/timegrid-api/pkg/response"
)

// ActivityHandler exposes the planner audit trail.
type ActivityHandler struct {
	activity *service.ActivityService
}

// NewActivityHandler constructs a new ActivityHandler.
func NewActivityHandler(activity *service.ActivityService) *ActivityHandler {
	return &ActivityHandler{activity: activity}
}

// List godoc
// @Summary List recent activity entries
// @Tags Activity
// @Produce json
// @Param limit query int false "Maximum entries (default 50)"
// @Success 200 {object} response.Envelope
// @Router /activity [get]
func (h *ActivityHandler) List(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	entries, err := h.activity.List(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
