package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/goosenest/degree-audit-api/internal/models"
	"github.com/goosenest/degree-audit-api/internal/repository"
)

// memStore is an in-memory backend shared by the materializer and degree
// service tests. It mirrors the persistence semantics the repositories
// promise: atomic template forks with id maps, group clones, cascade
// deletes with group collection.
type memStore struct {
	users        map[int64]*models.User
	templates    map[int64]models.Template
	templateReqs map[int64][]models.Requirement
	plans        map[int64]models.Plan
	planReqs     map[int64][]models.PlanRequirement
	groupNames   map[int64]string
	groupMembers map[int64][]string
	placements   map[int64][]models.TermCourse
	courses      map[string]string
	prereqs      map[string][]string

	nextID      int64
	forkCalls   int
	cloneCalls  int
	attachCalls int
	failUpsert  bool
}

func newMemStore() *memStore {
	return &memStore{
		users:        make(map[int64]*models.User),
		templates:    make(map[int64]models.Template),
		templateReqs: make(map[int64][]models.Requirement),
		plans:        make(map[int64]models.Plan),
		planReqs:     make(map[int64][]models.PlanRequirement),
		groupNames:   make(map[int64]string),
		groupMembers: make(map[int64][]string),
		placements:   make(map[int64][]models.TermCourse),
		courses:      make(map[string]string),
		prereqs:      make(map[string][]string),
		nextID:       1000,
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) addGroup(id int64, name string, members ...string) {
	m.groupNames[id] = name
	m.groupMembers[id] = append([]string{}, members...)
}

// plan store

func (m *memStore) FindByUserID(ctx context.Context, userID int64) (*models.Plan, error) {
	for _, plan := range m.plans {
		if plan.UserID == userID {
			p := plan
			return &p, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memStore) ListRequirements(ctx context.Context, planID int64) ([]models.PlanRequirement, error) {
	return append([]models.PlanRequirement{}, m.planReqs[planID]...), nil
}

func (m *memStore) FindRequirement(ctx context.Context, planID, reqID int64) (*models.PlanRequirement, error) {
	for _, req := range m.planReqs[planID] {
		if req.ID == reqID {
			r := req
			return &r, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memStore) FindRequirementByGroup(ctx context.Context, planID, groupID int64) (*models.PlanRequirement, error) {
	for _, req := range m.planReqs[planID] {
		if req.CourseGroupID != nil && *req.CourseGroupID == groupID {
			r := req
			return &r, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memStore) SetForceCompleted(ctx context.Context, planID, reqID int64, value bool) error {
	reqs := m.planReqs[planID]
	for i := range reqs {
		if reqs[i].ID == reqID {
			reqs[i].ForceCompleted = value
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *memStore) CloneGroupForRequirement(ctx context.Context, planReqID, groupID int64) (int64, error) {
	m.cloneCalls++
	cloneID := m.id()
	m.addGroup(cloneID, m.groupNames[groupID], m.groupMembers[groupID]...)
	for planID, reqs := range m.planReqs {
		for i := range reqs {
			if reqs[i].ID == planReqID {
				id := cloneID
				m.planReqs[planID][i].CourseGroupID = &id
				return cloneID, nil
			}
		}
	}
	return 0, sql.ErrNoRows
}

func (m *memStore) AttachNewGroup(ctx context.Context, planReqID int64, name string) (int64, error) {
	m.attachCalls++
	groupID := m.id()
	m.addGroup(groupID, name)
	for planID, reqs := range m.planReqs {
		for i := range reqs {
			if reqs[i].ID == planReqID {
				id := groupID
				m.planReqs[planID][i].CourseGroupID = &id
				return groupID, nil
			}
		}
	}
	return 0, sql.ErrNoRows
}

func (m *memStore) CreateFromTemplate(ctx context.Context, userID int64, template *models.Template, requirements []models.Requirement) (*repository.TemplateFork, error) {
	m.forkCalls++
	fork := &repository.TemplateFork{
		Plan: models.Plan{
			ID:           m.id(),
			Name:         template.Name + " (Custom)",
			UserID:       userID,
			TemplateName: template.Name,
		},
		RequirementIDs: make(map[int64]int64),
		GroupIDs:       make(map[int64]int64),
	}
	m.plans[fork.Plan.ID] = fork.Plan

	for _, req := range requirements {
		if req.CourseGroupID == nil {
			continue
		}
		if _, done := fork.GroupIDs[*req.CourseGroupID]; done {
			continue
		}
		cloneID := m.id()
		m.addGroup(cloneID, m.groupNames[*req.CourseGroupID], m.groupMembers[*req.CourseGroupID]...)
		fork.GroupIDs[*req.CourseGroupID] = cloneID
	}

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
			newID := m.id()
			m.planReqs[fork.Plan.ID] = append(m.planReqs[fork.Plan.ID], models.PlanRequirement{
				ID:            newID,
				Name:          req.Name,
				Amount:        req.Amount,
				IsText:        req.IsText,
				PlanID:        fork.Plan.ID,
				CourseGroupID: groupID,
				ParentID:      parentID,
			})
			fork.RequirementIDs[req.ID] = newID
			progressed = true
		}
		if !progressed {
			return nil, repository.ErrPartialClone
		}
		remaining = deferred
	}

	if user, ok := m.users[userID]; ok {
		user.TemplateID = nil
	}
	return fork, nil
}

func (m *memStore) CreateCustom(ctx context.Context, userID int64, name, templateName string, requirements []repository.CustomRequirement) (*models.Plan, error) {
	plan := models.Plan{ID: m.id(), Name: name, UserID: userID, TemplateName: templateName}
	m.plans[plan.ID] = plan
	for _, req := range requirements {
		groupID := req.CourseGroupID
		if groupID == nil && len(req.CourseCodes) > 0 {
			newID := m.id()
			m.addGroup(newID, req.Name, req.CourseCodes...)
			groupID = &newID
		}
		m.planReqs[plan.ID] = append(m.planReqs[plan.ID], models.PlanRequirement{
			ID:            m.id(),
			Name:          req.Name,
			Amount:        req.Amount,
			IsText:        req.IsText,
			PlanID:        plan.ID,
			CourseGroupID: groupID,
		})
	}
	if user, ok := m.users[userID]; ok {
		user.TemplateID = nil
	}
	return &plan, nil
}

func (m *memStore) DeleteByUser(ctx context.Context, userID int64) error {
	for planID, plan := range m.plans {
		if plan.UserID != userID {
			continue
		}
		for _, req := range m.planReqs[planID] {
			if req.CourseGroupID == nil {
				continue
			}
			if refs, _ := m.TemplateRefCount(ctx, *req.CourseGroupID); refs == 0 {
				delete(m.groupNames, *req.CourseGroupID)
				delete(m.groupMembers, *req.CourseGroupID)
			}
		}
		delete(m.planReqs, planID)
		delete(m.plans, planID)
	}
	return nil
}

// template store

func (m *memStore) FindByID(ctx context.Context, id int64) (*models.Template, error) {
	if template, ok := m.templates[id]; ok {
		t := template
		return &t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memStore) ListTemplateRequirements(ctx context.Context, templateID int64) ([]models.Requirement, error) {
	return append([]models.Requirement{}, m.templateReqs[templateID]...), nil
}

// group store

func (m *memStore) MembersOf(ctx context.Context, groupIDs []int64) (map[int64][]string, error) {
	result := make(map[int64][]string)
	for _, id := range groupIDs {
		if members, ok := m.groupMembers[id]; ok {
			result[id] = append([]string{}, members...)
		}
	}
	return result, nil
}

func (m *memStore) AddCourse(ctx context.Context, groupID int64, courseCode string) error {
	for _, member := range m.groupMembers[groupID] {
		if member == courseCode {
			return repository.ErrDuplicateMember
		}
	}
	m.groupMembers[groupID] = append(m.groupMembers[groupID], courseCode)
	return nil
}

func (m *memStore) RemoveCourse(ctx context.Context, groupID int64, courseCode string) error {
	members := m.groupMembers[groupID]
	for i, member := range members {
		if member == courseCode {
			m.groupMembers[groupID] = append(members[:i], members[i+1:]...)
			return nil
		}
	}
	return repository.ErrMemberNotFound
}

func (m *memStore) TemplateRefCount(ctx context.Context, groupID int64) (int, error) {
	count := 0
	for _, reqs := range m.templateReqs {
		for _, req := range reqs {
			if req.CourseGroupID != nil && *req.CourseGroupID == groupID {
				count++
			}
		}
	}
	return count, nil
}

// course store

func (m *memStore) Exists(ctx context.Context, code string) (bool, error) {
	_, ok := m.courses[code]
	return ok, nil
}

func (m *memStore) PrereqsFor(ctx context.Context, codes []string) (map[string][]string, error) {
	result := make(map[string][]string)
	for _, code := range codes {
		if edges, ok := m.prereqs[code]; ok {
			result[code] = append([]string{}, edges...)
		}
	}
	return result, nil
}

func (m *memStore) TitlesFor(ctx context.Context, codes []string) (map[string]string, error) {
	result := make(map[string]string)
	for _, code := range codes {
		if title, ok := m.courses[code]; ok {
			result[code] = title
		}
	}
	return result, nil
}

// schedule store

func (m *memStore) ListByUser(ctx context.Context, userID int64) ([]models.TermCourse, error) {
	return append([]models.TermCourse{}, m.placements[userID]...), nil
}

func (m *memStore) Upsert(ctx context.Context, placement *models.TermCourse) error {
	if m.failUpsert {
		return errors.New("schedule write refused")
	}
	for i, existing := range m.placements[placement.UserID] {
		if existing.CourseCode == placement.CourseCode {
			m.placements[placement.UserID][i].Term = placement.Term
			return nil
		}
	}
	m.placements[placement.UserID] = append(m.placements[placement.UserID], *placement)
	return nil
}

func (m *memStore) Create(ctx context.Context, placement *models.TermCourse) error {
	for _, existing := range m.placements[placement.UserID] {
		if existing.CourseCode == placement.CourseCode {
			return repository.ErrPlacementExists
		}
	}
	m.placements[placement.UserID] = append(m.placements[placement.UserID], *placement)
	return nil
}

func (m *memStore) UpdateTerm(ctx context.Context, userID int64, courseCode string, term models.Term) error {
	for i, existing := range m.placements[userID] {
		if existing.CourseCode == courseCode {
			m.placements[userID][i].Term = term
			return nil
		}
	}
	return repository.ErrPlacementNotFound
}

func (m *memStore) Delete(ctx context.Context, userID int64, courseCode string) error {
	for i, existing := range m.placements[userID] {
		if existing.CourseCode == courseCode {
			m.placements[userID] = append(m.placements[userID][:i], m.placements[userID][i+1:]...)
			return nil
		}
	}
	return repository.ErrPlacementNotFound
}

func (m *memStore) SetCurrentTerm(ctx context.Context, userID int64, term models.Term) error {
	user, ok := m.users[userID]
	if !ok {
		return sql.ErrNoRows
	}
	user.CurrentTerm = term
	return nil
}

// user store

func (m *memStore) FindUser(ctx context.Context, id int64) (*models.User, error) {
	if user, ok := m.users[id]; ok {
		u := *user
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memStore) SetTemplate(ctx context.Context, id int64, templateID *int64) error {
	user, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	user.TemplateID = templateID
	return nil
}

// Adapters where interface method names collide across stores.

type memTemplates struct{ *memStore }

func (m memTemplates) ListRequirements(ctx context.Context, templateID int64) ([]models.Requirement, error) {
	return m.ListTemplateRequirements(ctx, templateID)
}

type memUsers struct{ *memStore }

func (m memUsers) FindByID(ctx context.Context, id int64) (*models.User, error) {
	return m.FindUser(ctx, id)
}
