package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/timegrid/timegrid-api/internal/dto"
	"github.com/timegrid/timegrid-api/internal/service"
	appErrors "github.com/timegrid/timegrid-api/pkg/errors"
	"github.com/timegrid/timegrid-api/pkg/response"
)

// ScenarioHandler wires per-user what-if state to HTTP routes. All state is
// scoped to the authenticated user.
type ScenarioHandler struct {
	scenarios *service.ScenarioService
}

// NewScenarioHandler constructs a new ScenarioHandler.
func NewScenarioHandler(scenarios *service.ScenarioService) *ScenarioHandler {
	return &ScenarioHandler{scenarios: scenarios}
}

// State godoc
// @Summary Get the current what-if state
// @Tags Scenarios
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /scenarios [get]
func (h *ScenarioHandler) State(c *gin.Context) {
	state, err := h.scenarios.State(c.Request.Context(), ownerFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

// Toggle godoc
// @Summary Toggle a what-if rule
// @Tags Scenarios
// @Accept json
// @Produce json
// @Param payload body dto.ScenarioToggleRequest true "Toggle payload"
// @Success 200 {object} response.Envelope
// @Router /scenarios/toggle [post]
func (h *ScenarioHandler) Toggle(c *gin.Context) {
	var req dto.ScenarioToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid toggle payload"))
		return
	}
	state, err := h.scenarios.Toggle(c.Request.Context(), ownerFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

// SelectDay godoc
// @Summary Select the day under inspection
// @Tags Scenarios
// @Accept json
// @Produce json
// @Param payload body dto.SelectDayRequest true "Day selection payload"
// @Success 200 {object} response.Envelope
// @Router /scenarios/day [put]
func (h *ScenarioHandler) SelectDay(c *gin.Context) {
	var req dto.SelectDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid day selection payload"))
		return
	}
	state, err := h.scenarios.SelectDay(c.Request.Context(), ownerFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

// Reset godoc
// @Summary Clear all what-if state
// @Tags Scenarios
// @Success 204 {object} response.Envelope
// @Router /scenarios [delete]
func (h *ScenarioHandler) Reset(c *gin.Context) {
	if err := h.scenarios.Reset(c.Request.Context(), ownerFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Resolve godoc
// @Summary Resolve the selected day with active scenarios applied
// @Tags Scenarios
// @Produce json
// @Param versionId query string false "Version ID (defaults to the active version)"
// @Success 200 {object} response.Envelope
// @Router /scenarios/resolve [get]
func (h *ScenarioHandler) Resolve(c *gin.Context) {
	res, err := h.scenarios.Resolve(c.Request.Context(), ownerFromContext(c), c.Query("versionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}
