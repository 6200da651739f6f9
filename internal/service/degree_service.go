package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/goosenest/degree-audit-api/internal/degree"
	"github.com/goosenest/degree-audit-api/internal/models"
	"github.com/goosenest/degree-audit-api/internal/repository"
	appErrors "github.com/goosenest/degree-audit-api/pkg/errors"
)

type degreePlanStore interface {
	FindByUserID(ctx context.Context, userID int64) (*models.Plan, error)
	ListRequirements(ctx context.Context, planID int64) ([]models.PlanRequirement, error)
	SetForceCompleted(ctx context.Context, planID, reqID int64, value bool) error
	CreateCustom(ctx context.Context, userID int64, name, templateName string, requirements []repository.CustomRequirement) (*models.Plan, error)
	DeleteByUser(ctx context.Context, userID int64) error
}

type degreeTemplateStore interface {
	FindByID(ctx context.Context, id int64) (*models.Template, error)
	ListRequirements(ctx context.Context, templateID int64) ([]models.Requirement, error)
}

type degreeGroupStore interface {
	MembersOf(ctx context.Context, groupIDs []int64) (map[int64][]string, error)
	AddCourse(ctx context.Context, groupID int64, courseCode string) error
	RemoveCourse(ctx context.Context, groupID int64, courseCode string) error
}

type degreeCourseStore interface {
	Exists(ctx context.Context, code string) (bool, error)
}

type degreeScheduleStore interface {
	ListByUser(ctx context.Context, userID int64) ([]models.TermCourse, error)
	Upsert(ctx context.Context, placement *models.TermCourse) error
}

type degreeUserStore interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
	SetTemplate(ctx context.Context, id int64, templateID *int64) error
}

type degreeCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type nodeResolver interface {
	ResolveRequirement(ctx context.Context, userID int64, ref NodeRef) (*MutableTarget, error)
	ResolvePrivateGroup(ctx context.Context, userID int64, ref NodeRef) (*MutableTarget, error)
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, entry *models.AuditLog) error
}

// DegreeKind tells the client what backs the returned tree.
type DegreeKind string

const (
	DegreeKindTemplate DegreeKind = "template"
	DegreeKindPlan     DegreeKind = "plan"
	DegreeKindNone     DegreeKind = "none"
)

// DegreeGroup is a course group resolved into member codes for display.
type DegreeGroup struct {
	ID      int64    `json:"id"`
	Members []string `json:"members"`
}

// DegreeNode is one evaluated requirement node in the client view.
type DegreeNode struct {
	ID             int64              `json:"id"`
	Name           string             `json:"name"`
	Kind           degree.NodeKind    `json:"kind"`
	Amount         int                `json:"amount"`
	ForceCompleted bool               `json:"force_completed"`
	Group          *DegreeGroup       `json:"group,omitempty"`
	Fulfillment    degree.Fulfillment `json:"fulfillment"`
	Children       []*DegreeNode      `json:"children,omitempty"`
}

// DegreeState is the full audit view for one user.
type DegreeState struct {
	Kind       DegreeKind    `json:"kind"`
	Name       string        `json:"name,omitempty"`
	PlanID     *int64        `json:"plan_id,omitempty"`
	TemplateID *int64        `json:"template_id,omitempty"`
	Tree       []*DegreeNode `json:"tree"`
}

// RequirementSpec is one caller-specified top-level requirement override
// used during degree selection: a union of existing groups plus ad hoc
// course codes.
type RequirementSpec struct {
	Name        string   `json:"name" validate:"required"`
	Amount      int      `json:"amount" validate:"gte=0"`
	IsText      bool     `json:"is_text"`
	GroupIDs    []int64  `json:"group_ids,omitempty"`
	CourseCodes []string `json:"course_codes,omitempty"`
}

// SelectDegreeRequest describes degree (re)selection.
type SelectDegreeRequest struct {
	TemplateID int64             `json:"template_id" validate:"required"`
	Overrides  []RequirementSpec `json:"overrides,omitempty" validate:"dive"`
}

// AddCourseRequest attaches a course to a requirement, optionally placing
// it into a term at the same time.
type AddCourseRequest struct {
	CourseCode string       `json:"course_code" validate:"required"`
	Term       *models.Term `json:"term,omitempty"`
}

// DegreeService orchestrates degree reads and student mutations. All
// mutations funnel through the materializer so shared template state is
// forked before the first write touches it.
type DegreeService struct {
	plans        degreePlanStore
	templates    degreeTemplateStore
	groups       degreeGroupStore
	courses      degreeCourseStore
	schedule     degreeScheduleStore
	users        degreeUserStore
	cache        degreeCache
	materializer nodeResolver
	audit        auditWriter
	cacheTTL     time.Duration
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewDegreeService constructs DegreeService.
func NewDegreeService(
	plans degreePlanStore,
	templates degreeTemplateStore,
	groups degreeGroupStore,
	courses degreeCourseStore,
	schedule degreeScheduleStore,
	users degreeUserStore,
	cache degreeCache,
	materializer nodeResolver,
	audit auditWriter,
	cacheTTL time.Duration,
	validate *validator.Validate,
	logger *zap.Logger,
) *DegreeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DegreeService{
		plans:        plans,
		templates:    templates,
		groups:       groups,
		courses:      courses,
		schedule:     schedule,
		users:        users,
		cache:        cache,
		materializer: materializer,
		audit:        audit,
		cacheTTL:     cacheTTL,
		validator:    validate,
		logger:       logger,
	}
}

func degreeCacheKey(userID int64) string {
	return fmt.Sprintf("degree:user:%d", userID)
}

// GetState returns the user's fully evaluated requirement tree.
func (s *DegreeService) GetState(ctx context.Context, userID int64) (*DegreeState, error) {
	if s.cache != nil {
		var cached DegreeState
		if err := s.cache.Get(ctx, degreeCacheKey(userID), &cached); err == nil {
			return &cached, nil
		}
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	state, err := s.buildState(ctx, user)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, degreeCacheKey(userID), state, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache degree state", zap.Int64("user_id", userID), zap.Error(err))
		}
	}
	return state, nil
}

func (s *DegreeService) buildState(ctx context.Context, user *models.User) (*DegreeState, error) {
	var roots []*degree.Node
	state := &DegreeState{Kind: DegreeKindNone, Tree: []*DegreeNode{}}

	plan, err := s.plans.FindByUserID(ctx, user.ID)
	switch {
	case err == nil:
		rows, err := s.plans.ListRequirements(ctx, plan.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load plan requirements")
		}
		roots = planTree(rows)
		state.Kind = DegreeKindPlan
		state.Name = plan.Name
		state.PlanID = &plan.ID
	case errors.Is(err, sql.ErrNoRows):
		if user.TemplateID == nil {
			return state, nil
		}
		template, err := s.templates.FindByID(ctx, *user.TemplateID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrIntegrity, "selected template no longer exists")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load template")
		}
		rows, err := s.templates.ListRequirements(ctx, template.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load template requirements")
		}
		roots = templateTree(rows)
		state.Kind = DegreeKindTemplate
		state.Name = template.Name
		state.TemplateID = &template.ID
	default:
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load plan")
	}

	groupSet, err := s.loadGroups(ctx, roots)
	if err != nil {
		return nil, err
	}

	placements, err := s.schedule.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	scheduled := make([]degree.Placement, 0, len(placements))
	for _, p := range placements {
		scheduled = append(scheduled, degree.Placement{CourseCode: p.CourseCode, Term: p.Term})
	}
	completed, planned := degree.Partition(scheduled, user.CurrentTerm)

	for _, root := range roots {
		state.Tree = append(state.Tree, evaluateNode(root, groupSet, completed, planned))
	}
	return state, nil
}

func (s *DegreeService) loadGroups(ctx context.Context, roots []*degree.Node) (degree.GroupSet, error) {
	var ids []int64
	seen := make(map[int64]bool)
	var walk func(n *degree.Node)
	walk = func(n *degree.Node) {
		if n.GroupID != nil && !seen[*n.GroupID] {
			seen[*n.GroupID] = true
			ids = append(ids, *n.GroupID)
		}
		for _, child := range n.Children {
			walk(child)
		}
	}
	for _, root := range roots {
		walk(root)
	}

	members, err := s.groups.MembersOf(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group members")
	}
	set := make(degree.GroupSet, len(ids))
	for _, id := range ids {
		set[id] = degree.Group{ID: id, Members: members[id]}
	}
	return set, nil
}

func evaluateNode(node *degree.Node, groups degree.GroupSet, completed, planned degree.Set) *DegreeNode {
	out := &DegreeNode{
		ID:             node.ID,
		Name:           node.Name,
		Kind:           node.Kind,
		Amount:         node.Amount,
		ForceCompleted: node.ForceCompleted,
		Fulfillment:    degree.Evaluate(node, groups, completed, planned),
	}
	if node.GroupID != nil {
		if group, ok := groups[*node.GroupID]; ok {
			out.Group = &DegreeGroup{ID: group.ID, Members: group.Members}
		}
	}
	for _, child := range node.Children {
		out.Children = append(out.Children, evaluateNode(child, groups, completed, planned))
	}
	return out
}

// planTree assembles evaluation nodes from plan requirement rows.
func planTree(rows []models.PlanRequirement) []*degree.Node {
	nodes := make(map[int64]*degree.Node, len(rows))
	for _, row := range rows {
		nodes[row.ID] = &degree.Node{
			ID:             row.ID,
			Name:           row.Name,
			Amount:         row.Amount,
			ForceCompleted: row.ForceCompleted,
			GroupID:        row.CourseGroupID,
		}
		if row.IsText {
			nodes[row.ID].Kind = degree.KindText
		}
	}
	var roots []*degree.Node
	for _, row := range rows {
		node := nodes[row.ID]
		if row.ParentID != nil {
			if parent, ok := nodes[*row.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	finalizeKinds(nodes)
	sortTree(roots)
	return roots
}

// templateTree assembles evaluation nodes from template requirement rows.
func templateTree(rows []models.Requirement) []*degree.Node {
	nodes := make(map[int64]*degree.Node, len(rows))
	for _, row := range rows {
		nodes[row.ID] = &degree.Node{
			ID:      row.ID,
			Name:    row.Name,
			Amount:  row.Amount,
			GroupID: row.CourseGroupID,
		}
		if row.IsText {
			nodes[row.ID].Kind = degree.KindText
		}
	}
	var roots []*degree.Node
	for _, row := range rows {
		node := nodes[row.ID]
		if row.ParentID != nil {
			if parent, ok := nodes[*row.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	finalizeKinds(nodes)
	sortTree(roots)
	return roots
}

// finalizeKinds settles non-text nodes: children make a branch, otherwise
// the node is a leaf.
func finalizeKinds(nodes map[int64]*degree.Node) {
	for _, node := range nodes {
		if node.Kind == degree.KindText {
			continue
		}
		if len(node.Children) > 0 {
			node.Kind = degree.KindBranch
		} else {
			node.Kind = degree.KindLeaf
		}
	}
}

func sortTree(nodes []*degree.Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	for _, node := range nodes {
		sortTree(node.Children)
	}
}

// Select (re)creates the user's degree: back to a shared template when no
// overrides are given, or a wholesale custom plan built from the override
// specs. Any prior plan is destroyed and its private groups collected.
func (s *DegreeService) Select(ctx context.Context, userID int64, req SelectDegreeRequest) (*DegreeState, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	template, err := s.templates.FindByID(ctx, req.TemplateID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "template not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load template")
	}

	if err := s.plans.DeleteByUser(ctx, userID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove previous plan")
	}

	if len(req.Overrides) == 0 {
		if err := s.users.SetTemplate(ctx, userID, &template.ID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to select template")
		}
	} else {
		specs, err := s.expandOverrides(ctx, req.Overrides)
		if err != nil {
			return nil, err
		}
		if _, err := s.plans.CreateCustom(ctx, userID, template.Name+" (Custom)", template.Name, specs); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create custom plan")
		}
	}

	s.invalidate(ctx, userID)
	s.writeAudit(ctx, userID, models.AuditActionSelectDegree, "template", fmt.Sprintf("%d", template.ID), req)
	return s.GetState(ctx, userID)
}

// expandOverrides turns requirement specs into storable rows: a single
// referenced group with no extra codes is linked directly (it will be
// forked on first write), anything else becomes an ad hoc union group.
func (s *DegreeService) expandOverrides(ctx context.Context, overrides []RequirementSpec) ([]repository.CustomRequirement, error) {
	specs := make([]repository.CustomRequirement, 0, len(overrides))
	for _, o := range overrides {
		spec := repository.CustomRequirement{Name: o.Name, Amount: o.Amount, IsText: o.IsText}
		switch {
		case o.IsText:
		case len(o.GroupIDs) == 1 && len(o.CourseCodes) == 0:
			id := o.GroupIDs[0]
			spec.CourseGroupID = &id
		case len(o.GroupIDs) > 0 || len(o.CourseCodes) > 0:
			members, err := s.groups.MembersOf(ctx, o.GroupIDs)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load override groups")
			}
			seen := make(map[string]bool)
			var codes []string
			for _, id := range o.GroupIDs {
				for _, code := range members[id] {
					if !seen[code] {
						seen[code] = true
						codes = append(codes, code)
					}
				}
			}
			for _, code := range o.CourseCodes {
				ok, err := s.courses.Exists(ctx, code)
				if err != nil {
					return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course")
				}
				if !ok {
					return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown course code %q", code))
				}
				if !seen[code] {
					seen[code] = true
					codes = append(codes, code)
				}
			}
			spec.CourseCodes = codes
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// AddCourse attaches a course to a requirement's private group and, when
// a term is given, schedules it in the same logical operation. A failed
// schedule write rolls the membership back so the two views cannot drift.
func (s *DegreeService) AddCourse(ctx context.Context, userID int64, ref NodeRef, req AddCourseRequest) (*DegreeState, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	if req.Term != nil && !req.Term.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown term %q", *req.Term))
	}

	exists, err := s.courses.Exists(ctx, req.CourseCode)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course")
	}
	if !exists {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}

	target, err := s.materializer.ResolvePrivateGroup(ctx, userID, ref)
	if err != nil {
		return nil, err
	}

	if err := s.groups.AddCourse(ctx, target.GroupID, req.CourseCode); err != nil {
		if errors.Is(err, repository.ErrDuplicateMember) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "course already attached to requirement")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add course")
	}

	if req.Term != nil {
		placement := &models.TermCourse{UserID: userID, CourseCode: req.CourseCode, Term: *req.Term}
		if err := s.schedule.Upsert(ctx, placement); err != nil {
			if rbErr := s.groups.RemoveCourse(ctx, target.GroupID, req.CourseCode); rbErr != nil {
				s.logger.Error("failed to roll back course addition after schedule failure",
					zap.Int64("group_id", target.GroupID), zap.String("course_code", req.CourseCode), zap.Error(rbErr))
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to schedule course")
		}
	}

	s.invalidate(ctx, userID)
	s.writeAudit(ctx, userID, models.AuditActionAddCourse, "course_group", fmt.Sprintf("%d", target.GroupID), req)
	return s.GetState(ctx, userID)
}

// RemoveCourse detaches a course from a requirement's private group.
func (s *DegreeService) RemoveCourse(ctx context.Context, userID int64, ref NodeRef, courseCode string) (*DegreeState, error) {
	if courseCode == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course code is required")
	}

	target, err := s.materializer.ResolvePrivateGroup(ctx, userID, ref)
	if err != nil {
		return nil, err
	}

	if err := s.groups.RemoveCourse(ctx, target.GroupID, courseCode); err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not attached to requirement")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove course")
	}

	s.invalidate(ctx, userID)
	s.writeAudit(ctx, userID, models.AuditActionRemoveCourse, "course_group", fmt.Sprintf("%d", target.GroupID), map[string]string{"course_code": courseCode})
	return s.GetState(ctx, userID)
}

// SetForceCompleted toggles the manual override on a requirement node.
// Forcing a node that is already naturally fulfilled is rejected; the
// override would be invisible and only confuse later edits.
func (s *DegreeService) SetForceCompleted(ctx context.Context, userID int64, ref NodeRef, value bool) (*DegreeState, error) {
	target, err := s.materializer.ResolveRequirement(ctx, userID, ref)
	if err != nil {
		return nil, err
	}

	if value {
		natural, err := s.isNaturallyFulfilled(ctx, userID, target)
		if err != nil {
			return nil, err
		}
		if natural {
			return nil, appErrors.Clone(appErrors.ErrConflict, "requirement is already fulfilled")
		}
	}

	if err := s.plans.SetForceCompleted(ctx, target.PlanID, target.RequirementID, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "requirement not found in plan")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set override")
	}

	s.invalidate(ctx, userID)
	s.writeAudit(ctx, userID, models.AuditActionForceToggle, "plan_requirement", fmt.Sprintf("%d", target.RequirementID), map[string]bool{"force_completed": value})
	return s.GetState(ctx, userID)
}

func (s *DegreeService) isNaturallyFulfilled(ctx context.Context, userID int64, target *MutableTarget) (bool, error) {
	rows, err := s.plans.ListRequirements(ctx, target.PlanID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load plan requirements")
	}
	roots := planTree(rows)

	var node *degree.Node
	var find func(n *degree.Node)
	find = func(n *degree.Node) {
		if n.ID == target.RequirementID {
			node = n
		}
		for _, child := range n.Children {
			find(child)
		}
	}
	for _, root := range roots {
		find(root)
	}
	if node == nil {
		return false, appErrors.Clone(appErrors.ErrNotFound, "requirement not found in plan")
	}

	groupSet, err := s.loadGroups(ctx, roots)
	if err != nil {
		return false, err
	}
	placements, err := s.schedule.ListByUser(ctx, userID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	scheduled := make([]degree.Placement, 0, len(placements))
	for _, p := range placements {
		scheduled = append(scheduled, degree.Placement{CourseCode: p.CourseCode, Term: p.Term})
	}
	completed, planned := degree.Partition(scheduled, user.CurrentTerm)
	return degree.Evaluate(node, groupSet, completed, planned).Natural, nil
}

func (s *DegreeService) invalidate(ctx context.Context, userID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, degreeCacheKey(userID)+"*"); err != nil {
		s.logger.Warn("failed to invalidate degree cache", zap.Int64("user_id", userID), zap.Error(err))
	}
}

func (s *DegreeService) writeAudit(ctx context.Context, userID int64, action models.AuditAction, resource, resourceID string, payload interface{}) {
	if s.audit == nil {
		return
	}
	values, err := json.Marshal(payload)
	if err != nil {
		values = nil
	}
	entry := &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   resource,
		ResourceID: &resourceID,
		NewValues:  values,
		CreatedAt:  time.Now(),
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to write audit log", zap.String("action", string(action)), zap.Error(err))
	}
}
