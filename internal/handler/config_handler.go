package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/timegrid/timegrid-api/internal/dto"
	"github.com/timegrid/timegrid-api/internal/service"
	appErrors "github.com/timegrid/timegrid-api/pkg/errors"
	"github.com/timegrid/timegrid-api/pkg/response"
)

// ConfigHandler exposes the school calendar shape and per-class priorities.
type ConfigHandler struct {
	config *service.ConfigService
}

// NewConfigHandler constructs a new ConfigHandler.
func NewConfigHandler(config *service.ConfigService) *ConfigHandler {
	return &ConfigHandler{config: config}
}

// Get godoc
// @Summary Get school configuration
// @Tags Configuration
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /config [get]
func (h *ConfigHandler) Get(c *gin.Context) {
	cfg, err := h.config.Get(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cfg, nil)
}

// Update godoc
// @Summary Replace school configuration
// @Tags Configuration
// @Accept json
// @Produce json
// @Param payload body dto.SchoolConfigPayload true "School config payload"
// @Success 200 {object} response.Envelope
// @Router /config [put]
func (h *ConfigHandler) Update(c *gin.Context) {
	var req dto.SchoolConfigPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid config payload"))
		return
	}
	cfg, err := h.config.Update(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cfg, nil)
}

// Priorities godoc
// @Summary List per-class scheduling priorities
// @Tags Configuration
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /config/priorities [get]
func (h *ConfigHandler) Priorities(c *gin.Context) {
	configs, err := h.config.Priorities(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, configs, nil)
}

// SetPriority godoc
// @Summary Replace the scheduling priorities of one class
// @Tags Configuration
// @Accept json
// @Produce json
// @Param classId path string true "Class ID"
// @Param payload body dto.PriorityPayload true "Priority payload"
// @Success 200 {object} response.Envelope
// @Router /config/priorities/{classId} [put]
func (h *ConfigHandler) SetPriority(c *gin.Context) {
	var req dto.PriorityPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid priority payload"))
		return
	}
	cfg, err := h.config.SetPriority(c.Request.Context(), c.Param("classId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cfg, nil)
}

// ClearPriority godoc
// @Summary Remove the scheduling priorities of one class
// @Tags Configuration
// @Param classId path string true "Class ID"
// @Success 204 {object} response.Envelope
// @Router /config/priorities/{classId} [delete]
func (h *ConfigHandler) ClearPriority(c *gin.Context) {
	if err := h.config.ClearPriority(c.Request.Context(), c.Param("classId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
