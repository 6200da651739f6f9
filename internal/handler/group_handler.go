package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/goosenest/degree-audit-api/internal/service"
	appErrors "github.com/goosenest/degree-audit-api/pkg/errors"
	"github.com/goosenest/degree-audit-api/pkg/response"
)

// GroupHandler exposes course-group administration endpoints.
type GroupHandler struct {
	groups *service.GroupService
}

// NewGroupHandler constructs GroupHandler.
func NewGroupHandler(groups *service.GroupService) *GroupHandler {
	return &GroupHandler{groups: groups}
}

// List godoc
// @Summary List course groups
// @Tags CourseGroups
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /course-groups [get]
func (h *GroupHandler) List(c *gin.Context) {
	groups, err := h.groups.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, groups, nil)
}

// Get godoc
// @Summary Get one course group with members
// @Tags CourseGroups
// @Produce json
// @Param id path int true "Group ID"
// @Success 200 {object} response.Envelope
// @Router /course-groups/{id} [get]
func (h *GroupHandler) Get(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid group id"))
		return
	}
	group, err := h.groups.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, group, nil)
}

// Create godoc
// @Summary Create a course group
// @Tags CourseGroups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.UpsertGroupRequest true "Group payload"
// @Success 201 {object} response.Envelope
// @Router /course-groups [post]
func (h *GroupHandler) Create(c *gin.Context) {
	var req service.UpsertGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	group, err := h.groups.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, group)
}

// Update godoc
// @Summary Rename a group or replace its membership
// @Tags CourseGroups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Param payload body service.UpsertGroupRequest true "Group payload"
// @Success 200 {object} response.Envelope
// @Router /course-groups/{id} [put]
func (h *GroupHandler) Update(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid group id"))
		return
	}
	var req service.UpsertGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	group, err := h.groups.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, group, nil)
}

// Delete godoc
// @Summary Delete a course group
// @Tags CourseGroups
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Success 204 "deleted"
// @Router /course-groups/{id} [delete]
func (h *GroupHandler) Delete(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid group id"))
		return
	}
	if err := h.groups.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddCourse godoc
// @Summary Add a course to a group
// @Tags CourseGroups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Param payload body service.GroupCourseRequest true "Course payload"
// @Success 200 {object} response.Envelope
// @Router /course-groups/{id}/courses [post]
func (h *GroupHandler) AddCourse(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid group id"))
		return
	}
	var req service.GroupCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	group, err := h.groups.AddCourse(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, group, nil)
}

// RemoveCourse godoc
// @Summary Remove a course from a group
// @Tags CourseGroups
// @Produce json
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Param code path string true "Course code"
// @Success 200 {object} response.Envelope
// @Router /course-groups/{id}/courses/{code} [delete]
func (h *GroupHandler) RemoveCourse(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid group id"))
		return
	}
	group, err := h.groups.RemoveCourse(c.Request.Context(), id, c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, group, nil)
}
