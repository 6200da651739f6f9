package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goosenest/degree-audit-api/internal/models"
	appErrors "github.com/goosenest/degree-audit-api/pkg/errors"
)

// seedHonours installs the CS Honours template: a root branch needing one
// of two leaves, plus a text note, with user 5 following it verbatim.
func seedHonours(m *memStore) {
	m.templates[1] = models.Template{ID: 1, Name: "CS Honours"}
	m.addGroup(10, "Core CS", "CS 135", "CS 136")
	m.addGroup(11, "Core Math", "MATH 135")
	core := int64(10)
	math := int64(11)
	root := int64(1)
	m.templateReqs[1] = []models.Requirement{
		{ID: 1, Name: "First Year", Amount: 1, TemplateID: 1},
		{ID: 2, Name: "Intro CS", Amount: 1, TemplateID: 1, CourseGroupID: &core, ParentID: &root},
		{ID: 3, Name: "Intro Math", Amount: 1, TemplateID: 1, CourseGroupID: &math, ParentID: &root},
		{ID: 4, Name: "See advisor", IsText: true, TemplateID: 1, ParentID: &root},
	}
	templateID := int64(1)
	m.users[5] = &models.User{ID: 5, Email: "a@uni.test", CurrentTerm: models.Term2A, TemplateID: &templateID, Active: true}
	m.courses["CS 135"] = "Designing Functional Programs"
	m.courses["CS 136"] = "Elementary Algorithm Design"
	m.courses["MATH 135"] = "Algebra"
	m.courses["CS 145"] = "Designing Functional Programs (Advanced)"
}

func newTestMaterializer(m *memStore) *Materializer {
	return NewMaterializer(m, memTemplates{m}, m, memUsers{m}, nil)
}

func reqRef(id int64) NodeRef   { return NodeRef{RequirementID: &id} }
func groupRef(id int64) NodeRef { return NodeRef{GroupID: &id} }

func TestResolveNoDegreeSelected(t *testing.T) {
	m := newMemStore()
	m.users[5] = &models.User{ID: 5, Active: true}
	mat := newTestMaterializer(m)

	_, err := mat.ResolvePrivateGroup(context.Background(), 5, reqRef(2))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNoDegreeSelected.Code, appErr.Code)
	assert.Zero(t, m.forkCalls)
}

func TestResolveForksTemplateOnceWithClonedGroups(t *testing.T) {
	m := newMemStore()
	seedHonours(m)
	mat := newTestMaterializer(m)

	target, err := mat.ResolvePrivateGroup(context.Background(), 5, reqRef(2))
	require.NoError(t, err)
	assert.True(t, target.Forked)
	assert.Equal(t, 1, m.forkCalls)

	// Deep-clone closure: the resolved group is a fresh id with the same
	// membership, and the template's group is untouched.
	assert.NotEqual(t, int64(10), target.GroupID)
	assert.Equal(t, []string{"CS 135", "CS 136"}, m.groupMembers[target.GroupID])
	assert.Equal(t, []string{"CS 135", "CS 136"}, m.groupMembers[10])

	// The user is detached from the template and owns a plan now.
	assert.Nil(t, m.users[5].TemplateID)
	plan, err := m.FindByUserID(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "CS Honours (Custom)", plan.Name)
	assert.Len(t, m.planReqs[plan.ID], 4)

	// Write-once fork: resolving the plan-side requirement again returns
	// the same group without another fork or clone.
	again, err := mat.ResolvePrivateGroup(context.Background(), 5, reqRef(target.RequirementID))
	require.NoError(t, err)
	assert.False(t, again.Forked)
	assert.Equal(t, target.GroupID, again.GroupID)
	assert.Equal(t, 1, m.forkCalls)
	assert.Zero(t, m.cloneCalls)
}

func TestResolveCopyOnWriteIsolation(t *testing.T) {
	m := newMemStore()
	seedHonours(m)
	mat := newTestMaterializer(m)

	target, err := mat.ResolvePrivateGroup(context.Background(), 5, groupRef(10))
	require.NoError(t, err)

	require.NoError(t, m.AddCourse(context.Background(), target.GroupID, "CS 145"))
	assert.Contains(t, m.groupMembers[target.GroupID], "CS 145")
	assert.NotContains(t, m.groupMembers[10], "CS 145")
}

func TestResolveClonesSharedGroupInExistingPlan(t *testing.T) {
	m := newMemStore()
	seedHonours(m)
	// A plan whose requirement still points at the template's group, as
	// selectDegree's single-group override path produces.
	shared := int64(10)
	m.plans[100] = models.Plan{ID: 100, Name: "Custom", UserID: 5, TemplateName: "CS Honours"}
	m.planReqs[100] = []models.PlanRequirement{{ID: 201, Name: "Intro CS", Amount: 1, PlanID: 100, CourseGroupID: &shared}}
	m.users[5].TemplateID = nil
	mat := newTestMaterializer(m)

	target, err := mat.ResolvePrivateGroup(context.Background(), 5, reqRef(201))
	require.NoError(t, err)
	assert.True(t, target.Forked)
	assert.NotEqual(t, shared, target.GroupID)
	assert.Equal(t, 1, m.cloneCalls)
	assert.Zero(t, m.forkCalls)

	again, err := mat.ResolvePrivateGroup(context.Background(), 5, reqRef(201))
	require.NoError(t, err)
	assert.False(t, again.Forked)
	assert.Equal(t, target.GroupID, again.GroupID)
	assert.Equal(t, 1, m.cloneCalls)
}

func TestResolveAttachesGroupToGrouplessNode(t *testing.T) {
	m := newMemStore()
	seedHonours(m)
	m.plans[100] = models.Plan{ID: 100, Name: "Custom", UserID: 5, TemplateName: "CS Honours"}
	m.planReqs[100] = []models.PlanRequirement{{ID: 201, Name: "Electives", Amount: 2, PlanID: 100}}
	m.users[5].TemplateID = nil
	mat := newTestMaterializer(m)

	target, err := mat.ResolvePrivateGroup(context.Background(), 5, reqRef(201))
	require.NoError(t, err)
	assert.True(t, target.Forked)
	assert.NotZero(t, target.GroupID)
	assert.Equal(t, 1, m.attachCalls)
	assert.Empty(t, m.groupMembers[target.GroupID])
}

func TestResolveStaleReferenceDoesNotFork(t *testing.T) {
	m := newMemStore()
	seedHonours(m)
	mat := newTestMaterializer(m)

	_, err := mat.ResolvePrivateGroup(context.Background(), 5, reqRef(999))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.Zero(t, m.forkCalls)
	_, err = m.FindByUserID(context.Background(), 5)
	assert.Error(t, err)
}

func TestResolveRequirementLeavesGroupsAlone(t *testing.T) {
	m := newMemStore()
	seedHonours(m)
	mat := newTestMaterializer(m)

	// Resolving the text node forks the tree but must not manufacture a
	// group for it.
	target, err := mat.ResolveRequirement(context.Background(), 5, reqRef(4))
	require.NoError(t, err)
	assert.True(t, target.Forked)
	assert.Zero(t, target.GroupID)
	assert.Zero(t, m.attachCalls)
	assert.Zero(t, m.cloneCalls)
}
