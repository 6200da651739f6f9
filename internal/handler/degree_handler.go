package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/goosenest/degree-audit-api/internal/service"
	appErrors "github.com/goosenest/degree-audit-api/pkg/errors"
	"github.com/goosenest/degree-audit-api/pkg/response"
)

// DegreeHandler exposes the per-user degree audit surface. Requirement
// nodes can be addressed by requirement id or by course group id; both
// forms resolve through the copy-on-write materializer.
type DegreeHandler struct {
	degrees *service.DegreeService
	exports *service.ExportService
}

// NewDegreeHandler constructs DegreeHandler.
func NewDegreeHandler(degrees *service.DegreeService, exports *service.ExportService) *DegreeHandler {
	return &DegreeHandler{degrees: degrees, exports: exports}
}

type forceCompletedRequest struct {
	ForceCompleted bool `json:"force_completed"`
}

// GetState godoc
// @Summary Get the evaluated degree tree for a user
// @Tags Degree
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} response.Envelope
// @Router /users/{id}/degree [get]
func (h *DegreeHandler) GetState(c *gin.Context) {
	userID, ok := int64Param(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid user id"))
		return
	}
	state, err := h.degrees.GetState(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

// Select godoc
// @Summary Select a degree template, optionally with requirement overrides
// @Tags Degree
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param payload body service.SelectDegreeRequest true "Selection payload"
// @Success 200 {object} response.Envelope
// @Router /users/{id}/degree [post]
func (h *DegreeHandler) Select(c *gin.Context) {
	userID, ok := int64Param(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid user id"))
		return
	}
	var req service.SelectDegreeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	state, err := h.degrees.Select(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

// AddCourse godoc
// @Summary Add a course to a requirement node, optionally scheduling it
// @Tags Degree
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param reqId path int true "Requirement ID"
// @Param payload body service.AddCourseRequest true "Course payload"
// @Success 200 {object} response.Envelope
// @Router /users/{id}/degree/requirements/{reqId}/courses [post]
func (h *DegreeHandler) AddCourse(c *gin.Context) {
	userID, ref, ok := h.nodeRef(c)
	if !ok {
		return
	}
	var req service.AddCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	state, err := h.degrees.AddCourse(c.Request.Context(), userID, ref, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

// RemoveCourse godoc
// @Summary Remove a course from a requirement node
// @Tags Degree
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param reqId path int true "Requirement ID"
// @Param code path string true "Course code"
// @Success 200 {object} response.Envelope
// @Router /users/{id}/degree/requirements/{reqId}/courses/{code} [delete]
func (h *DegreeHandler) RemoveCourse(c *gin.Context) {
	userID, ref, ok := h.nodeRef(c)
	if !ok {
		return
	}
	state, err := h.degrees.RemoveCourse(c.Request.Context(), userID, ref, c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

// SetForceCompleted godoc
// @Summary Toggle the manual completion override on a requirement node
// @Tags Degree
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param reqId path int true "Requirement ID"
// @Param payload body forceCompletedRequest true "Override payload"
// @Success 200 {object} response.Envelope
// @Router /users/{id}/degree/requirements/{reqId} [patch]
func (h *DegreeHandler) SetForceCompleted(c *gin.Context) {
	userID, ref, ok := h.nodeRef(c)
	if !ok {
		return
	}
	var req forceCompletedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	state, err := h.degrees.SetForceCompleted(c.Request.Context(), userID, ref, req.ForceCompleted)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

// Export godoc
// @Summary Download the degree progress report
// @Tags Degree
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file "report"
// @Router /users/{id}/degree/export [get]
func (h *DegreeHandler) Export(c *gin.Context) {
	userID, ok := int64Param(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid user id"))
		return
	}
	format := service.ExportFormat(c.DefaultQuery("format", string(service.FormatCSV)))

	result, err := h.exports.ProgressReport(c.Request.Context(), userID, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.FileName))
	c.Data(http.StatusOK, result.ContentType, result.Data)
}

// nodeRef reads the user id plus a requirement or group node address
// from the route. Group-addressed routes carry :groupId instead of
// :reqId.
func (h *DegreeHandler) nodeRef(c *gin.Context) (int64, service.NodeRef, bool) {
	userID, ok := int64Param(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid user id"))
		return 0, service.NodeRef{}, false
	}
	if c.Param("reqId") != "" {
		reqID, ok := int64Param(c, "reqId")
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid requirement id"))
			return 0, service.NodeRef{}, false
		}
		return userID, service.NodeRef{RequirementID: &reqID}, true
	}
	groupID, ok := int64Param(c, "groupId")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid group id"))
		return 0, service.NodeRef{}, false
	}
	return userID, service.NodeRef{GroupID: &groupID}, true
}
