package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/timegrid/timegrid-api/internal/dto"
	"github.com/timegrid/timegrid-api/internal/service"
	appErrors "github.com/timegrid/timegrid-api/pkg/errors"
	"github.com/timegrid/timegrid-api/pkg/response"
)

// TimetableHandler wires generation, versioning and analytics to HTTP routes.
type TimetableHandler struct {
	timetables *service.TimetableService
	scenarios  *service.ScenarioService
}

// NewTimetableHandler constructs a new TimetableHandler. The scenario service
// is used to drop cached overlays when a version changes; it may be nil.
func NewTimetableHandler(timetables *service.TimetableService, scenarios *service.ScenarioService) *TimetableHandler {
	return &TimetableHandler{timetables: timetables, scenarios: scenarios}
}

// Generate godoc
// @Summary Generate a timetable proposal
// @Description Runs the constraint solver and improvement passes. Set async for long solves.
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest true "Generation options"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /timetables/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}

	if req.Async {
		job, err := h.timetables.GenerateAsync(c.Request.Context(), req)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusAccepted, job, nil)
		return
	}

	res, err := h.timetables.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Job godoc
// @Summary Get async solve job status
// @Tags Timetables
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/jobs/{id} [get]
func (h *TimetableHandler) Job(c *gin.Context) {
	run, err := h.timetables.Job(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, run, nil)
}

// Save godoc
// @Summary Persist a proposal as a new version
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.SaveTimetableRequest true "Save payload"
// @Success 201 {object} response.Envelope
// @Router /timetables [post]
func (h *TimetableHandler) Save(c *gin.Context) {
	var req dto.SaveTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid save payload"))
		return
	}
	version, err := h.timetables.Save(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, version)
}

// List godoc
// @Summary List stored timetable versions
// @Tags Timetables
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetables [get]
func (h *TimetableHandler) List(c *gin.Context) {
	versions, err := h.timetables.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, versions, nil)
}

// Get godoc
// @Summary Get one timetable version with entries
// @Tags Timetables
// @Produce json
// @Param id path string true "Version ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id} [get]
func (h *TimetableHandler) Get(c *gin.Context) {
	version, err := h.timetables.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, version, nil)
}

// Active godoc
// @Summary Get the active timetable version
// @Tags Timetables
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetables/active [get]
func (h *TimetableHandler) Active(c *gin.Context) {
	version, err := h.timetables.Active(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, version, nil)
}

// Activate godoc
// @Summary Activate a timetable version
// @Description Archives the currently active version and activates the target.
// @Tags Timetables
// @Param id path string true "Version ID"
// @Success 204 {object} response.Envelope
// @Router /timetables/{id}/activate [post]
func (h *TimetableHandler) Activate(c *gin.Context) {
	id := c.Param("id")
	if err := h.timetables.Activate(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	if h.scenarios != nil {
		h.scenarios.InvalidateVersion(c.Request.Context(), id)
	}
	response.NoContent(c)
}

// Archive godoc
// @Summary Archive a timetable version
// @Tags Timetables
// @Param id path string true "Version ID"
// @Success 204 {object} response.Envelope
// @Router /timetables/{id}/archive [post]
func (h *TimetableHandler) Archive(c *gin.Context) {
	id := c.Param("id")
	if err := h.timetables.Archive(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	if h.scenarios != nil {
		h.scenarios.InvalidateVersion(c.Request.Context(), id)
	}
	response.NoContent(c)
}

// Delete godoc
// @Summary Delete a non-active timetable version
// @Tags Timetables
// @Param id path string true "Version ID"
// @Success 204 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timetables/{id} [delete]
func (h *TimetableHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.timetables.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	if h.scenarios != nil {
		h.scenarios.InvalidateVersion(c.Request.Context(), id)
	}
	response.NoContent(c)
}

// Rotations godoc
// @Summary Derive multi-week rotations from a version
// @Tags Timetables
// @Produce json
// @Param id path string true "Version ID"
// @Param weeks query int false "Number of weeks (default 3)"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id}/rotations [get]
func (h *TimetableHandler) Rotations(c *gin.Context) {
	weeks := 3
	if raw := c.Query("weeks"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 12 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "weeks must be an integer between 1 and 12"))
			return
		}
		weeks = parsed
	}

	res, err := h.timetables.Rotations(c.Request.Context(), c.Param("id"), weeks)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// TeacherView godoc
// @Summary Get the teacher-centric inversion of a version
// @Tags Timetables
// @Produce json
// @Param id path string true "Version ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id}/teacher-view [get]
func (h *TimetableHandler) TeacherView(c *gin.Context) {
	res, err := h.timetables.TeacherView(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Score godoc
// @Summary Re-score a version against the current priorities
// @Tags Timetables
// @Produce json
// @Param id path string true "Version ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id}/score [get]
func (h *TimetableHandler) Score(c *gin.Context) {
	res, err := h.timetables.Score(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Heatmaps godoc
// @Summary Get workload heatmaps and clash risk for a version
// @Tags Timetables
// @Produce json
// @Param id path string true "Version ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id}/heatmaps [get]
func (h *TimetableHandler) Heatmaps(c *gin.Context) {
	res, err := h.timetables.Heatmaps(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}
