package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/goosenest/degree-audit-api/internal/models"
)

// ErrPartialClone reports a template fork that could not map every node;
// it indicates corrupt parent links in the template tree.
var ErrPartialClone = errors.New("template tree contains unreachable nodes")

// TemplateFork is the result of deep-cloning a template into a plan,
// including the old-id to new-id translation maps the materializer needs
// to answer for the node the caller originally asked about.
type TemplateFork struct {
	Plan           models.Plan
	RequirementIDs map[int64]int64
	GroupIDs       map[int64]int64
}

// CustomRequirement describes one caller-specified top-level requirement
// for wholesale plan creation.
type CustomRequirement struct {
	Name          string
	Amount        int
	IsText        bool
	CourseGroupID *int64
	CourseCodes   []string
}

// PlanRepository handles persistence for student plans and their
// requirement trees. All forking operations run inside a single
// transaction so a crash can never leave a half-cloned, user-visible plan.
type PlanRepository struct {
	db *sqlx.DB
}

// NewPlanRepository instantiates a plan repository.
func NewPlanRepository(db *sqlx.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

// cloneGroupTx duplicates a course group and its membership inside the
// caller's transaction, returning the new group id.
func cloneGroupTx(ctx context.Context, tx *sqlx.Tx, groupID int64) (int64, error) {
	var cloneID int64
	if err := tx.GetContext(ctx, &cloneID,
		`INSERT INTO course_groups (name) SELECT name FROM course_groups WHERE id = $1 RETURNING id`, groupID); err != nil {
		return 0, fmt.Errorf("clone group: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO course_group_links (group_id, course_code) SELECT $2, course_code FROM course_group_links WHERE group_id = $1`,
		groupID, cloneID); err != nil {
		return 0, fmt.Errorf("clone group membership: %w", err)
	}
	return cloneID, nil
}

// FindByUserID loads a user's plan, if any.
func (r *PlanRepository) FindByUserID(ctx context.Context, userID int64) (*models.Plan, error) {
	var plan models.Plan
	if err := r.db.GetContext(ctx, &plan, `SELECT id, name, user_id, template_name FROM plans WHERE user_id = $1`, userID); err != nil {
		return nil, err
	}
	return &plan, nil
}

// ListRequirements returns every requirement row of a plan ordered by id.
func (r *PlanRepository) ListRequirements(ctx context.Context, planID int64) ([]models.PlanRequirement, error) {
	const query = `SELECT id, name, amount, is_text, force_completed, plan_id, course_group_id, parent_id FROM plan_requirements WHERE plan_id = $1 ORDER BY id ASC`
	var requirements []models.PlanRequirement
	if err := r.db.SelectContext(ctx, &requirements, query, planID); err != nil {
		return nil, fmt.Errorf("list plan requirements: %w", err)
	}
	return requirements, nil
}

// FindRequirement loads one plan requirement scoped to the plan.
func (r *PlanRepository) FindRequirement(ctx context.Context, planID, reqID int64) (*models.PlanRequirement, error) {
	const query = `SELECT id, name, amount, is_text, force_completed, plan_id, course_group_id, parent_id FROM plan_requirements WHERE id = $1 AND plan_id = $2`
	var req models.PlanRequirement
	if err := r.db.GetContext(ctx, &req, query, reqID, planID); err != nil {
		return nil, err
	}
	return &req, nil
}

// FindRequirementByGroup locates the plan requirement referencing a group.
func (r *PlanRepository) FindRequirementByGroup(ctx context.Context, planID, groupID int64) (*models.PlanRequirement, error) {
	const query = `SELECT id, name, amount, is_text, force_completed, plan_id, course_group_id, parent_id FROM plan_requirements WHERE plan_id = $1 AND course_group_id = $2 ORDER BY id ASC LIMIT 1`
	var req models.PlanRequirement
	if err := r.db.GetContext(ctx, &req, query, planID, groupID); err != nil {
		return nil, err
	}
	return &req, nil
}

// SetForceCompleted toggles the manual completion override on a node.
func (r *PlanRepository) SetForceCompleted(ctx context.Context, planID, reqID int64, value bool) error {
	result, err := r.db.ExecContext(ctx, `UPDATE plan_requirements SET force_completed = $3 WHERE id = $1 AND plan_id = $2`, reqID, planID, value)
	if err != nil {
		return fmt.Errorf("set force completed: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set force completed result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CreateFromTemplate deep-clones a template tree into a brand-new plan for
// the user: every reachable course group is cloned before any plan
// requirement references it, the user's template link is cleared, and the
// whole fork commits or rolls back as one unit.
func (r *PlanRepository) CreateFromTemplate(ctx context.Context, userID int64, template *models.Template, requirements []models.Requirement) (fork *TemplateFork, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin template fork tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	fork = &TemplateFork{
		Plan: models.Plan{
			Name:         template.Name + " (Custom)",
			UserID:       userID,
			TemplateName: template.Name,
		},
		RequirementIDs: make(map[int64]int64, len(requirements)),
		GroupIDs:       make(map[int64]int64),
	}

	if err = tx.GetContext(ctx, &fork.Plan.ID,
		`INSERT INTO plans (name, user_id, template_name) VALUES ($1, $2, $3) RETURNING id`,
		fork.Plan.Name, userID, template.Name); err != nil {
		return nil, fmt.Errorf("create plan: %w", err)
	}

	// Clone every group first so no plan requirement can ever reference a
	// template-owned group.
	for _, req := range requirements {
		if req.CourseGroupID == nil {
			continue
		}
		if _, done := fork.GroupIDs[*req.CourseGroupID]; done {
			continue
		}
		var cloneID int64
		cloneID, err = cloneGroupTx(ctx, tx, *req.CourseGroupID)
		if err != nil {
			return nil, err
		}
		fork.GroupIDs[*req.CourseGroupID] = cloneID
	}

	// Insert nodes parents-first; template ids do not guarantee ordering,
	// so iterate until every row has been mapped.
	remaining := requirements
	for len(remaining) > 0 {
		var deferred []models.Requirement
		progressed := false
		for _, req := range remaining {
			var parentID *int64
			if req.ParentID != nil {
				mapped, ok := fork.RequirementIDs[*req.ParentID]
				if !ok {
					deferred = append(deferred, req)
					continue
				}
				parentID = &mapped
			}
			var groupID *int64
			if req.CourseGroupID != nil {
				mapped := fork.GroupIDs[*req.CourseGroupID]
				groupID = &mapped
			}
			var newID int64
			if err = tx.GetContext(ctx, &newID,
				`INSERT INTO plan_requirements (name, amount, is_text, force_completed, plan_id, course_group_id, parent_id) VALUES ($1, $2, $3, FALSE, $4, $5, $6) RETURNING id`,
				req.Name, req.Amount, req.IsText, fork.Plan.ID, groupID, parentID); err != nil {
				return nil, fmt.Errorf("clone requirement: %w", err)
			}
			fork.RequirementIDs[req.ID] = newID
			progressed = true
		}
		if !progressed {
			err = ErrPartialClone
			return nil, err
		}
		remaining = deferred
	}

	if _, err = tx.ExecContext(ctx, `UPDATE users SET template_id = NULL, updated_at = NOW() WHERE id = $1`, userID); err != nil {
		return nil, fmt.Errorf("detach user template: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit template fork tx: %w", err)
	}
	return fork, nil
}

// CloneGroupForRequirement forks one shared group into a private copy and
// relinks the plan requirement to it, atomically. Returns the new group id.
func (r *PlanRepository) CloneGroupForRequirement(ctx context.Context, planReqID, groupID int64) (cloneID int64, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin group fork tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	cloneID, err = cloneGroupTx(ctx, tx, groupID)
	if err != nil {
		return 0, err
	}

	if _, err = tx.ExecContext(ctx, `UPDATE plan_requirements SET course_group_id = $2 WHERE id = $1`, planReqID, cloneID); err != nil {
		return 0, fmt.Errorf("relink plan requirement: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit group fork tx: %w", err)
	}
	return cloneID, nil
}

// AttachNewGroup creates an empty private group named after the node and
// links the plan requirement to it.
func (r *PlanRepository) AttachNewGroup(ctx context.Context, planReqID int64, name string) (groupID int64, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin attach group tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = tx.GetContext(ctx, &groupID, `INSERT INTO course_groups (name) VALUES ($1) RETURNING id`, name); err != nil {
		return 0, fmt.Errorf("create private group: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `UPDATE plan_requirements SET course_group_id = $2 WHERE id = $1`, planReqID, groupID); err != nil {
		return 0, fmt.Errorf("attach private group: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit attach group tx: %w", err)
	}
	return groupID, nil
}

// CreateCustom builds a plan from caller-specified top-level requirements,
// creating ad-hoc groups for requirements that carry explicit course codes.
func (r *PlanRepository) CreateCustom(ctx context.Context, userID int64, name, templateName string, requirements []CustomRequirement) (plan *models.Plan, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin custom plan tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	plan = &models.Plan{Name: name, UserID: userID, TemplateName: templateName}
	if err = tx.GetContext(ctx, &plan.ID,
		`INSERT INTO plans (name, user_id, template_name) VALUES ($1, $2, $3) RETURNING id`,
		name, userID, templateName); err != nil {
		return nil, fmt.Errorf("create custom plan: %w", err)
	}

	for _, req := range requirements {
		groupID := req.CourseGroupID
		if groupID == nil && len(req.CourseCodes) > 0 {
			var newID int64
			if err = tx.GetContext(ctx, &newID, `INSERT INTO course_groups (name) VALUES ($1) RETURNING id`, req.Name); err != nil {
				return nil, fmt.Errorf("create override group: %w", err)
			}
			for _, code := range req.CourseCodes {
				if _, err = tx.ExecContext(ctx, `INSERT INTO course_group_links (group_id, course_code) VALUES ($1, $2)`, newID, code); err != nil {
					return nil, fmt.Errorf("link override course: %w", err)
				}
			}
			groupID = &newID
		}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO plan_requirements (name, amount, is_text, force_completed, plan_id, course_group_id, parent_id) VALUES ($1, $2, $3, FALSE, $4, $5, NULL)`,
			req.Name, req.Amount, req.IsText, plan.ID, groupID); err != nil {
			return nil, fmt.Errorf("create custom requirement: %w", err)
		}
	}

	if _, err = tx.ExecContext(ctx, `UPDATE users SET template_id = NULL, updated_at = NOW() WHERE id = $1`, userID); err != nil {
		return nil, fmt.Errorf("detach user template: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit custom plan tx: %w", err)
	}
	return plan, nil
}

// DeleteByUser removes a user's plan and garbage-collects course groups
// that were private to it. Groups still referenced by any template
// requirement (faculty defaults and canonical pools) or another plan are
// left untouched.
func (r *PlanRepository) DeleteByUser(ctx context.Context, userID int64) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete plan tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var groupIDs []int64
	if err = tx.SelectContext(ctx, &groupIDs,
		`SELECT DISTINCT pr.course_group_id FROM plan_requirements pr JOIN plans p ON p.id = pr.plan_id WHERE p.user_id = $1 AND pr.course_group_id IS NOT NULL`,
		userID); err != nil {
		return fmt.Errorf("collect plan groups: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM plans WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}

	if len(groupIDs) > 0 {
		var query string
		var args []interface{}
		query, args, err = sqlx.In(
			`DELETE FROM course_groups g WHERE g.id IN (?) AND NOT EXISTS (SELECT 1 FROM requirements r WHERE r.course_group_id = g.id) AND NOT EXISTS (SELECT 1 FROM plan_requirements pr WHERE pr.course_group_id = g.id)`,
			groupIDs)
		if err != nil {
			return fmt.Errorf("build group gc query: %w", err)
		}
		if _, err = tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return fmt.Errorf("garbage collect groups: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete plan tx: %w", err)
	}
	return nil
}
