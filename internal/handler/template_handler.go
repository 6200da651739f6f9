package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/goosenest/degree-audit-api/internal/service"
	appErrors "github.com/goosenest/degree-audit-api/pkg/errors"
	"github.com/goosenest/degree-audit-api/pkg/response"
)

// TemplateHandler exposes degree-template administration endpoints.
type TemplateHandler struct {
	templates *service.TemplateService
}

// NewTemplateHandler constructs TemplateHandler.
func NewTemplateHandler(templates *service.TemplateService) *TemplateHandler {
	return &TemplateHandler{templates: templates}
}

// List godoc
// @Summary List degree templates
// @Tags Templates
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /templates [get]
func (h *TemplateHandler) List(c *gin.Context) {
	templates, err := h.templates.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, templates, nil)
}

// Get godoc
// @Summary Get one template with its requirement rows
// @Tags Templates
// @Produce json
// @Param id path int true "Template ID"
// @Success 200 {object} response.Envelope
// @Router /templates/{id} [get]
func (h *TemplateHandler) Get(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid template id"))
		return
	}
	view, err := h.templates.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// ListRequirements godoc
// @Summary List a template's requirement rows
// @Tags Templates
// @Produce json
// @Param id path int true "Template ID"
// @Success 200 {object} response.Envelope
// @Router /templates/{id}/requirements [get]
func (h *TemplateHandler) ListRequirements(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid template id"))
		return
	}
	view, err := h.templates.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view.Requirements, nil)
}

// CreateRequirement godoc
// @Summary Append a requirement node to a template
// @Tags Templates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Template ID"
// @Param payload body service.UpsertRequirementRequest true "Requirement payload"
// @Success 201 {object} response.Envelope
// @Router /templates/{id}/requirements [post]
func (h *TemplateHandler) CreateRequirement(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid template id"))
		return
	}
	var req service.UpsertRequirementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	requirement, err := h.templates.CreateRequirement(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, requirement)
}

// UpdateRequirement godoc
// @Summary Edit a template requirement node
// @Tags Templates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Requirement ID"
// @Param payload body service.UpsertRequirementRequest true "Requirement payload"
// @Success 200 {object} response.Envelope
// @Router /requirements/{id} [put]
func (h *TemplateHandler) UpdateRequirement(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid requirement id"))
		return
	}
	var req service.UpsertRequirementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	requirement, err := h.templates.UpdateRequirement(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requirement, nil)
}

// DeleteRequirement godoc
// @Summary Delete a template requirement node
// @Tags Templates
// @Security BearerAuth
// @Param id path int true "Requirement ID"
// @Success 204 "deleted"
// @Router /requirements/{id} [delete]
func (h *TemplateHandler) DeleteRequirement(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid requirement id"))
		return
	}
	if err := h.templates.DeleteRequirement(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
