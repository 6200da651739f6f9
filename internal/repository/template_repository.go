package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/goosenest/degree-audit-api/internal/models"
)

// TemplateRepository handles persistence for canonical degree templates
// and their requirement trees. Nothing here is reachable from the student
// mutation path; templates only change through admin operations.
type TemplateRepository struct {
	db *sqlx.DB
}

// NewTemplateRepository instantiates a template repository.
func NewTemplateRepository(db *sqlx.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// List returns all templates ordered by name.
func (r *TemplateRepository) List(ctx context.Context) ([]models.Template, error) {
	var templates []models.Template
	if err := r.db.SelectContext(ctx, &templates, `SELECT id, name FROM templates ORDER BY name ASC`); err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return templates, nil
}

// FindByID loads one template.
func (r *TemplateRepository) FindByID(ctx context.Context, id int64) (*models.Template, error) {
	var template models.Template
	if err := r.db.GetContext(ctx, &template, `SELECT id, name FROM templates WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &template, nil
}

// ListRequirements returns every requirement row of a template ordered by
// id; callers assemble the tree from parent links.
func (r *TemplateRepository) ListRequirements(ctx context.Context, templateID int64) ([]models.Requirement, error) {
	const query = `SELECT id, name, amount, is_text, template_id, course_group_id, parent_id FROM requirements WHERE template_id = $1 ORDER BY id ASC`
	var requirements []models.Requirement
	if err := r.db.SelectContext(ctx, &requirements, query, templateID); err != nil {
		return nil, fmt.Errorf("list template requirements: %w", err)
	}
	return requirements, nil
}

// CreateRequirement inserts a requirement node into a template tree.
func (r *TemplateRepository) CreateRequirement(ctx context.Context, req *models.Requirement) error {
	const query = `INSERT INTO requirements (name, amount, is_text, template_id, course_group_id, parent_id) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	if err := r.db.GetContext(ctx, &req.ID, query, req.Name, req.Amount, req.IsText, req.TemplateID, req.CourseGroupID, req.ParentID); err != nil {
		return fmt.Errorf("create requirement: %w", err)
	}
	return nil
}

// UpdateRequirement modifies a template requirement node.
func (r *TemplateRepository) UpdateRequirement(ctx context.Context, req *models.Requirement) error {
	const query = `UPDATE requirements SET name = $2, amount = $3, course_group_id = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, req.ID, req.Name, req.Amount, req.CourseGroupID); err != nil {
		return fmt.Errorf("update requirement: %w", err)
	}
	return nil
}

// FindRequirement loads one template requirement by id.
func (r *TemplateRepository) FindRequirement(ctx context.Context, id int64) (*models.Requirement, error) {
	const query = `SELECT id, name, amount, is_text, template_id, course_group_id, parent_id FROM requirements WHERE id = $1`
	var req models.Requirement
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// DeleteRequirement removes a template requirement node.
func (r *TemplateRepository) DeleteRequirement(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM requirements WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete requirement: %w", err)
	}
	return nil
}
