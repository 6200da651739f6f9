package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/goosenest/degree-audit-api/internal/models"
	appErrors "github.com/goosenest/degree-audit-api/pkg/errors"
)

type templateStore interface {
	List(ctx context.Context) ([]models.Template, error)
	FindByID(ctx context.Context, id int64) (*models.Template, error)
	ListRequirements(ctx context.Context, templateID int64) ([]models.Requirement, error)
	CreateRequirement(ctx context.Context, req *models.Requirement) error
	UpdateRequirement(ctx context.Context, req *models.Requirement) error
	FindRequirement(ctx context.Context, id int64) (*models.Requirement, error)
	DeleteRequirement(ctx context.Context, id int64) error
}

// TemplateView is a template with its requirement rows; clients assemble
// the tree from parent links.
type TemplateView struct {
	models.Template
	Requirements []models.Requirement `json:"requirements"`
}

// UpsertRequirementRequest creates or edits a template requirement node.
type UpsertRequirementRequest struct {
	Name          string `json:"name" validate:"required"`
	Amount        int    `json:"amount" validate:"gte=0"`
	IsText        bool   `json:"is_text"`
	CourseGroupID *int64 `json:"course_group_id,omitempty"`
	ParentID      *int64 `json:"parent_id,omitempty"`
}

// TemplateService manages canonical degree templates. These are the
// shared trees students fork; all editing here is admin-side.
type TemplateService struct {
	templates templateStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTemplateService constructs TemplateService.
func NewTemplateService(templates templateStore, validate *validator.Validate, logger *zap.Logger) *TemplateService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TemplateService{templates: templates, validator: validate, logger: logger}
}

// List returns all templates.
func (s *TemplateService) List(ctx context.Context) ([]models.Template, error) {
	templates, err := s.templates.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list templates")
	}
	if templates == nil {
		templates = []models.Template{}
	}
	return templates, nil
}

// Get returns one template with its requirement rows.
func (s *TemplateService) Get(ctx context.Context, id int64) (*TemplateView, error) {
	template, err := s.templates.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "template not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load template")
	}
	requirements, err := s.templates.ListRequirements(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load template requirements")
	}
	if requirements == nil {
		requirements = []models.Requirement{}
	}
	return &TemplateView{Template: *template, Requirements: requirements}, nil
}

// CreateRequirement appends a node to a template tree. A parent, when
// given, must belong to the same template.
func (s *TemplateService) CreateRequirement(ctx context.Context, templateID int64, req UpsertRequirementRequest) (*models.Requirement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	if _, err := s.templates.FindByID(ctx, templateID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "template not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load template")
	}
	if req.ParentID != nil {
		parent, err := s.templates.FindRequirement(ctx, *req.ParentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "parent requirement not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load parent requirement")
		}
		if parent.TemplateID != templateID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "parent requirement belongs to another template")
		}
	}

	requirement := &models.Requirement{
		Name:          req.Name,
		Amount:        req.Amount,
		IsText:        req.IsText,
		TemplateID:    templateID,
		CourseGroupID: req.CourseGroupID,
		ParentID:      req.ParentID,
	}
	if err := s.templates.CreateRequirement(ctx, requirement); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create requirement")
	}
	return requirement, nil
}

// UpdateRequirement edits a template node in place.
func (s *TemplateService) UpdateRequirement(ctx context.Context, id int64, req UpsertRequirementRequest) (*models.Requirement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	existing, err := s.templates.FindRequirement(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "requirement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load requirement")
	}

	existing.Name = req.Name
	existing.Amount = req.Amount
	existing.CourseGroupID = req.CourseGroupID
	if err := s.templates.UpdateRequirement(ctx, existing); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update requirement")
	}
	return existing, nil
}

// DeleteRequirement removes a template node.
func (s *TemplateService) DeleteRequirement(ctx context.Context, id int64) error {
	if _, err := s.templates.FindRequirement(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "requirement not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load requirement")
	}
	if err := s.templates.DeleteRequirement(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete requirement")
	}
	return nil
}
