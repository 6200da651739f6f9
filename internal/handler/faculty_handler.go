package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/goosenest/degree-audit-api/internal/service"
	appErrors "github.com/goosenest/degree-audit-api/pkg/errors"
	"github.com/goosenest/degree-audit-api/pkg/response"
)

// FacultyHandler exposes faculty endpoints.
type FacultyHandler struct {
	catalog *service.CatalogService
}

// NewFacultyHandler constructs FacultyHandler.
func NewFacultyHandler(catalog *service.CatalogService) *FacultyHandler {
	return &FacultyHandler{catalog: catalog}
}

// List godoc
// @Summary List faculties
// @Tags Faculties
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /faculties [get]
func (h *FacultyHandler) List(c *gin.Context) {
	faculties, err := h.catalog.ListFaculties(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, faculties, nil)
}

// Get godoc
// @Summary Get one faculty with offerings
// @Tags Faculties
// @Produce json
// @Param name path string true "Faculty name"
// @Success 200 {object} response.Envelope
// @Router /faculties/{name} [get]
func (h *FacultyHandler) Get(c *gin.Context) {
	faculty, err := h.catalog.GetFaculty(c.Request.Context(), c.Param("name"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, faculty, nil)
}

// Create godoc
// @Summary Create a faculty
// @Tags Faculties
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateFacultyRequest true "Faculty payload"
// @Success 201 {object} response.Envelope
// @Router /faculties [post]
func (h *FacultyHandler) Create(c *gin.Context) {
	var req service.CreateFacultyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	faculty, err := h.catalog.CreateFaculty(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, faculty)
}

// Delete godoc
// @Summary Delete a faculty
// @Tags Faculties
// @Security BearerAuth
// @Param name path string true "Faculty name"
// @Success 204 "deleted"
// @Router /faculties/{name} [delete]
func (h *FacultyHandler) Delete(c *gin.Context) {
	if err := h.catalog.DeleteFaculty(c.Request.Context(), c.Param("name")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
