package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/goosenest/degree-audit-api/internal/models"
	"github.com/goosenest/degree-audit-api/internal/repository"
	appErrors "github.com/goosenest/degree-audit-api/pkg/errors"
)

type materializerPlanStore interface {
	FindByUserID(ctx context.Context, userID int64) (*models.Plan, error)
	FindRequirement(ctx context.Context, planID, reqID int64) (*models.PlanRequirement, error)
	FindRequirementByGroup(ctx context.Context, planID, groupID int64) (*models.PlanRequirement, error)
	CloneGroupForRequirement(ctx context.Context, planReqID, groupID int64) (int64, error)
	AttachNewGroup(ctx context.Context, planReqID int64, name string) (int64, error)
	CreateFromTemplate(ctx context.Context, userID int64, template *models.Template, requirements []models.Requirement) (*repository.TemplateFork, error)
}

type materializerTemplateStore interface {
	FindByID(ctx context.Context, id int64) (*models.Template, error)
	ListRequirements(ctx context.Context, templateID int64) ([]models.Requirement, error)
}

type materializerGroupStore interface {
	TemplateRefCount(ctx context.Context, groupID int64) (int, error)
}

type materializerUserStore interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

// NodeRef identifies the tree node a student wants to mutate, either by
// its requirement id or by the id of the group it displays. Before the
// user's first customization these are template ids; afterwards they are
// plan ids.
type NodeRef struct {
	RequirementID *int64
	GroupID       *int64
}

// MutableTarget is a write-safe resolution: a plan requirement the user
// owns, plus (for group resolutions) a course group that belongs to this
// user alone. GroupID is zero when the node carries no group.
type MutableTarget struct {
	PlanID        int64
	RequirementID int64
	GroupID       int64
	Forked        bool
}

// Materializer turns shared, read-only template state into private plan
// state on first write. Reads never fork; only a mutation that reaches
// one of the Resolve methods pays the copy cost, exactly once.
type Materializer struct {
	plans     materializerPlanStore
	templates materializerTemplateStore
	groups    materializerGroupStore
	users     materializerUserStore
	logger    *zap.Logger
}

// NewMaterializer constructs a Materializer.
func NewMaterializer(plans materializerPlanStore, templates materializerTemplateStore, groups materializerGroupStore, users materializerUserStore, logger *zap.Logger) *Materializer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Materializer{plans: plans, templates: templates, groups: groups, users: users, logger: logger}
}

// ResolveRequirement resolves a node reference to a plan requirement the
// user owns, forking the template into a plan when the user has not
// customized anything yet. It never creates or clones course groups, so
// it is safe for mutations that only touch the node itself.
func (m *Materializer) ResolveRequirement(ctx context.Context, userID int64, ref NodeRef) (*MutableTarget, error) {
	planID, req, forked, err := m.resolveRequirement(ctx, userID, ref)
	if err != nil {
		return nil, err
	}
	target := &MutableTarget{PlanID: planID, RequirementID: req.ID, Forked: forked}
	if req.CourseGroupID != nil {
		target.GroupID = *req.CourseGroupID
	}
	return target, nil
}

// ResolvePrivateGroup resolves a node reference to a plan requirement
// whose group is safe to mutate, forking shared state as needed:
//
//   - plan exists, group private: returned as-is
//   - plan exists, group still shared with a template: group is cloned
//     and the requirement relinked
//   - plan exists, node has no group: an empty private group is attached
//   - no plan, template selected: the whole template tree is cloned into
//     a plan and the reference translated to its clone
//   - no plan, no template: NO_DEGREE_SELECTED
func (m *Materializer) ResolvePrivateGroup(ctx context.Context, userID int64, ref NodeRef) (*MutableTarget, error) {
	planID, req, forked, err := m.resolveRequirement(ctx, userID, ref)
	if err != nil {
		return nil, err
	}
	target := &MutableTarget{PlanID: planID, RequirementID: req.ID, Forked: forked}

	if req.CourseGroupID == nil {
		groupID, err := m.plans.AttachNewGroup(ctx, req.ID, req.Name)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to attach group")
		}
		m.logger.Info("attached private group to plan requirement",
			zap.Int64("plan_id", planID), zap.Int64("requirement_id", req.ID), zap.Int64("group_id", groupID))
		target.GroupID = groupID
		target.Forked = true
		return target, nil
	}

	refCount, err := m.groups.TemplateRefCount(ctx, *req.CourseGroupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check group sharing")
	}
	if refCount == 0 {
		target.GroupID = *req.CourseGroupID
		return target, nil
	}

	cloneID, err := m.plans.CloneGroupForRequirement(ctx, req.ID, *req.CourseGroupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fork shared group")
	}
	m.logger.Info("forked shared group for plan requirement",
		zap.Int64("plan_id", planID), zap.Int64("requirement_id", req.ID),
		zap.Int64("source_group_id", *req.CourseGroupID), zap.Int64("group_id", cloneID))
	target.GroupID = cloneID
	target.Forked = true
	return target, nil
}

func (m *Materializer) resolveRequirement(ctx context.Context, userID int64, ref NodeRef) (int64, *models.PlanRequirement, bool, error) {
	if ref.RequirementID == nil && ref.GroupID == nil {
		return 0, nil, false, appErrors.Clone(appErrors.ErrValidation, "a requirement or group reference is required")
	}

	plan, err := m.plans.FindByUserID(ctx, userID)
	switch {
	case err == nil:
		req, err := m.findWithinPlan(ctx, plan.ID, ref)
		if err != nil {
			return 0, nil, false, err
		}
		return plan.ID, req, false, nil
	case errors.Is(err, sql.ErrNoRows):
		return m.forkTemplate(ctx, userID, ref)
	default:
		return 0, nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load plan")
	}
}

func (m *Materializer) findWithinPlan(ctx context.Context, planID int64, ref NodeRef) (*models.PlanRequirement, error) {
	var req *models.PlanRequirement
	var err error
	if ref.RequirementID != nil {
		req, err = m.plans.FindRequirement(ctx, planID, *ref.RequirementID)
	} else {
		req, err = m.plans.FindRequirementByGroup(ctx, planID, *ref.GroupID)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "requirement not found in plan")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load plan requirement")
	}
	return req, nil
}

func (m *Materializer) forkTemplate(ctx context.Context, userID int64, ref NodeRef) (int64, *models.PlanRequirement, bool, error) {
	user, err := m.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil, false, appErrors.ErrNotFound
		}
		return 0, nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if user.TemplateID == nil {
		return 0, nil, false, appErrors.ErrNoDegreeSelected
	}

	template, err := m.templates.FindByID(ctx, *user.TemplateID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil, false, appErrors.Clone(appErrors.ErrIntegrity, "selected template no longer exists")
		}
		return 0, nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load template")
	}
	requirements, err := m.templates.ListRequirements(ctx, template.ID)
	if err != nil {
		return 0, nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load template requirements")
	}

	// Validate the reference against the template before paying the fork
	// cost, so a stale id cannot leave the user with a surprise plan.
	var sourceReqID int64
	found := false
	for _, req := range requirements {
		if ref.RequirementID != nil && req.ID == *ref.RequirementID {
			sourceReqID = req.ID
			found = true
			break
		}
		if ref.GroupID != nil && req.CourseGroupID != nil && *req.CourseGroupID == *ref.GroupID {
			sourceReqID = req.ID
			found = true
			break
		}
	}
	if !found {
		return 0, nil, false, appErrors.Clone(appErrors.ErrNotFound, "requirement not found in selected template")
	}

	fork, err := m.plans.CreateFromTemplate(ctx, userID, template, requirements)
	if err != nil {
		if errors.Is(err, repository.ErrPartialClone) {
			return 0, nil, false, appErrors.Wrap(err, appErrors.ErrIntegrity.Code, appErrors.ErrIntegrity.Status, appErrors.ErrIntegrity.Message)
		}
		return 0, nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fork template")
	}
	m.logger.Info("forked template into private plan",
		zap.Int64("user_id", userID), zap.Int64("template_id", template.ID), zap.Int64("plan_id", fork.Plan.ID),
		zap.Int("requirements", len(fork.RequirementIDs)), zap.Int("groups", len(fork.GroupIDs)))

	planReqID, ok := fork.RequirementIDs[sourceReqID]
	if !ok {
		return 0, nil, false, appErrors.Clone(appErrors.ErrIntegrity, "forked plan is missing the requested requirement")
	}
	req, err := m.plans.FindRequirement(ctx, fork.Plan.ID, planReqID)
	if err != nil {
		return 0, nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load forked requirement")
	}
	return fork.Plan.ID, req, true, nil
}
