package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/goosenest/degree-audit-api/internal/models"
	"github.com/goosenest/degree-audit-api/internal/service"
	appErrors "github.com/goosenest/degree-audit-api/pkg/errors"
	"github.com/goosenest/degree-audit-api/pkg/response"
)

// ScheduleHandler exposes term planning endpoints.
type ScheduleHandler struct {
	schedules *service.ScheduleService
}

// NewScheduleHandler constructs ScheduleHandler.
func NewScheduleHandler(schedules *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules}
}

type currentTermRequest struct {
	CurrentTerm models.Term `json:"current_term" binding:"required"`
}

// Get godoc
// @Summary Get a user's term schedule with prerequisite warnings
// @Tags Schedule
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} response.Envelope
// @Router /users/{id}/schedule [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	userID, ok := int64Param(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid user id"))
		return
	}
	schedule, err := h.schedules.Get(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Add godoc
// @Summary Place a course in a term
// @Tags Schedule
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param payload body service.PlaceCourseRequest true "Placement payload"
// @Success 201 {object} response.Envelope
// @Router /users/{id}/schedule [post]
func (h *ScheduleHandler) Add(c *gin.Context) {
	userID, ok := int64Param(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid user id"))
		return
	}
	var req service.PlaceCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	schedule, err := h.schedules.Add(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, schedule)
}

// Move godoc
// @Summary Move an existing placement to another term
// @Tags Schedule
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param payload body service.PlaceCourseRequest true "Placement payload"
// @Success 200 {object} response.Envelope
// @Router /users/{id}/schedule [put]
func (h *ScheduleHandler) Move(c *gin.Context) {
	userID, ok := int64Param(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid user id"))
		return
	}
	var req service.PlaceCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	schedule, err := h.schedules.Move(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Remove godoc
// @Summary Remove a placement from the schedule
// @Tags Schedule
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param code path string true "Course code"
// @Success 200 {object} response.Envelope
// @Router /users/{id}/schedule/{code} [delete]
func (h *ScheduleHandler) Remove(c *gin.Context) {
	userID, ok := int64Param(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid user id"))
		return
	}
	schedule, err := h.schedules.Remove(c.Request.Context(), userID, c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// SetCurrentTerm godoc
// @Summary Move the current-term marker
// @Tags Schedule
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param payload body currentTermRequest true "Current term payload"
// @Success 200 {object} response.Envelope
// @Router /users/{id}/schedule/current-term [patch]
func (h *ScheduleHandler) SetCurrentTerm(c *gin.Context) {
	userID, ok := int64Param(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid user id"))
		return
	}
	var req currentTermRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	schedule, err := h.schedules.SetCurrentTerm(c.Request.Context(), userID, req.CurrentTerm)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}
