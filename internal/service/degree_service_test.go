package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goosenest/degree-audit-api/internal/degree"
	"github.com/goosenest/degree-audit-api/internal/models"
	appErrors "github.com/goosenest/degree-audit-api/pkg/errors"
)

func newTestDegreeService(m *memStore) *DegreeService {
	mat := newTestMaterializer(m)
	return NewDegreeService(m, memTemplates{m}, m, m, m, memUsers{m}, nil, mat, nil, time.Minute, nil, nil)
}

func findNode(nodes []*DegreeNode, name string) *DegreeNode {
	for _, node := range nodes {
		if node.Name == name {
			return node
		}
		if found := findNode(node.Children, name); found != nil {
			return found
		}
	}
	return nil
}

func TestGetStateKinds(t *testing.T) {
	m := newMemStore()
	seedHonours(m)
	svc := newTestDegreeService(m)

	state, err := svc.GetState(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, DegreeKindTemplate, state.Kind)
	assert.Equal(t, "CS Honours", state.Name)
	require.Len(t, state.Tree, 1)
	assert.Equal(t, degree.KindBranch, state.Tree[0].Kind)
	assert.Len(t, state.Tree[0].Children, 3)

	m.users[5].TemplateID = nil
	state, err = svc.GetState(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, DegreeKindNone, state.Kind)
	assert.Empty(t, state.Tree)
}

func TestGetStateEvaluatesCompletedCourses(t *testing.T) {
	m := newMemStore()
	seedHonours(m)
	// CS 135 sits in 1A, strictly before the user's current term 2A, so
	// it counts as completed and satisfies the 1-of branch.
	m.placements[5] = []models.TermCourse{{UserID: 5, CourseCode: "CS 135", Term: models.Term1A}}
	svc := newTestDegreeService(m)

	state, err := svc.GetState(context.Background(), 5)
	require.NoError(t, err)

	introCS := findNode(state.Tree, "Intro CS")
	require.NotNil(t, introCS)
	assert.True(t, introCS.Fulfillment.Natural)
	assert.Equal(t, degree.StateNatural, introCS.Fulfillment.State)

	root := state.Tree[0]
	assert.True(t, root.Fulfillment.Natural)
}

func TestAddCourseDuplicateIsConflict(t *testing.T) {
	m := newMemStore()
	seedHonours(m)
	svc := newTestDegreeService(m)

	_, err := svc.AddCourse(context.Background(), 5, reqRef(2), AddCourseRequest{CourseCode: "CS 145"})
	require.NoError(t, err)

	// The plan now exists; the same node is reachable through its group.
	plan, err := m.FindByUserID(context.Background(), 5)
	require.NoError(t, err)
	var planReqID int64
	for _, req := range m.planReqs[plan.ID] {
		if req.Name == "Intro CS" {
			planReqID = req.ID
		}
	}
	require.NotZero(t, planReqID)

	_, err = svc.AddCourse(context.Background(), 5, reqRef(planReqID), AddCourseRequest{CourseCode: "CS 145"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAddCourseUnknownCourse(t *testing.T) {
	m := newMemStore()
	seedHonours(m)
	svc := newTestDegreeService(m)

	_, err := svc.AddCourse(context.Background(), 5, reqRef(2), AddCourseRequest{CourseCode: "CS 999"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Zero(t, m.forkCalls)
}

func TestAddCourseRollsBackMembershipWhenScheduleFails(t *testing.T) {
	m := newMemStore()
	seedHonours(m)
	m.failUpsert = true
	svc := newTestDegreeService(m)

	term := models.Term3A
	_, err := svc.AddCourse(context.Background(), 5, reqRef(2), AddCourseRequest{CourseCode: "CS 145", Term: &term})
	require.Error(t, err)

	// Compound semantics: the membership write is undone.
	plan, err := m.FindByUserID(context.Background(), 5)
	require.NoError(t, err)
	for _, req := range m.planReqs[plan.ID] {
		if req.CourseGroupID != nil {
			assert.NotContains(t, m.groupMembers[*req.CourseGroupID], "CS 145")
		}
	}
	assert.Empty(t, m.placements[5])
}

func TestRemoveCourseNotMember(t *testing.T) {
	m := newMemStore()
	seedHonours(m)
	svc := newTestDegreeService(m)

	_, err := svc.RemoveCourse(context.Background(), 5, groupRef(10), "CS 999")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSetForceCompletedRejectedWhenNatural(t *testing.T) {
	m := newMemStore()
	seedHonours(m)
	m.placements[5] = []models.TermCourse{{UserID: 5, CourseCode: "CS 135", Term: models.Term1A}}
	svc := newTestDegreeService(m)

	_, err := svc.SetForceCompleted(context.Background(), 5, reqRef(2), true)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestSetForceCompletedIdempotent(t *testing.T) {
	m := newMemStore()
	seedHonours(m)
	svc := newTestDegreeService(m)

	state, err := svc.SetForceCompleted(context.Background(), 5, reqRef(4), true)
	require.NoError(t, err)
	note := findNode(state.Tree, "See advisor")
	require.NotNil(t, note)
	assert.True(t, note.ForceCompleted)
	assert.Equal(t, degree.StateOverridden, note.Fulfillment.State)
	assert.True(t, note.Fulfillment.Display)
	assert.False(t, note.Fulfillment.Natural)

	// Applying the same override again changes nothing.
	planReqID := note.ID
	again, err := svc.SetForceCompleted(context.Background(), 5, reqRef(planReqID), true)
	require.NoError(t, err)
	noteAgain := findNode(again.Tree, "See advisor")
	require.NotNil(t, noteAgain)
	assert.Equal(t, note.Fulfillment, noteAgain.Fulfillment)
	assert.Equal(t, 1, m.forkCalls)
}

func TestSelectDegreeTemplateOnly(t *testing.T) {
	m := newMemStore()
	seedHonours(m)
	m.users[5].TemplateID = nil
	svc := newTestDegreeService(m)

	state, err := svc.Select(context.Background(), 5, SelectDegreeRequest{TemplateID: 1})
	require.NoError(t, err)
	assert.Equal(t, DegreeKindTemplate, state.Kind)
	require.NotNil(t, m.users[5].TemplateID)
	assert.Equal(t, int64(1), *m.users[5].TemplateID)
}

func TestSelectDegreeWithOverrides(t *testing.T) {
	m := newMemStore()
	seedHonours(m)
	svc := newTestDegreeService(m)

	state, err := svc.Select(context.Background(), 5, SelectDegreeRequest{
		TemplateID: 1,
		Overrides: []RequirementSpec{
			{Name: "Core", Amount: 1, GroupIDs: []int64{10}},
			{Name: "Extras", Amount: 2, GroupIDs: []int64{11}, CourseCodes: []string{"CS 136"}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, DegreeKindPlan, state.Kind)
	require.Len(t, state.Tree, 2)

	// Single referenced group with no extra codes stays shared; it will
	// be forked on first write.
	core := findNode(state.Tree, "Core")
	require.NotNil(t, core)
	require.NotNil(t, core.Group)
	assert.Equal(t, int64(10), core.Group.ID)

	// The union override materializes a fresh ad hoc group.
	extras := findNode(state.Tree, "Extras")
	require.NotNil(t, extras)
	require.NotNil(t, extras.Group)
	assert.NotEqual(t, int64(11), extras.Group.ID)
	assert.ElementsMatch(t, []string{"MATH 135", "CS 136"}, extras.Group.Members)
}

func TestSelectDegreeReplacesPriorPlan(t *testing.T) {
	m := newMemStore()
	seedHonours(m)
	svc := newTestDegreeService(m)

	// Customize once to create a plan with a private group.
	_, err := svc.AddCourse(context.Background(), 5, reqRef(2), AddCourseRequest{CourseCode: "CS 145"})
	require.NoError(t, err)
	plan, err := m.FindByUserID(context.Background(), 5)
	require.NoError(t, err)
	var privateGroup int64
	for _, req := range m.planReqs[plan.ID] {
		if req.Name == "Intro CS" && req.CourseGroupID != nil {
			privateGroup = *req.CourseGroupID
		}
	}
	require.NotZero(t, privateGroup)

	state, err := svc.Select(context.Background(), 5, SelectDegreeRequest{TemplateID: 1})
	require.NoError(t, err)
	assert.Equal(t, DegreeKindTemplate, state.Kind)

	// The old plan is gone and its private group collected; template
	// groups survive.
	_, err = m.FindByUserID(context.Background(), 5)
	assert.Error(t, err)
	_, orphaned := m.groupMembers[privateGroup]
	assert.False(t, orphaned)
	assert.Equal(t, []string{"CS 135", "CS 136"}, m.groupMembers[10])
}

func TestSelectDegreeUnknownTemplate(t *testing.T) {
	m := newMemStore()
	seedHonours(m)
	svc := newTestDegreeService(m)

	_, err := svc.Select(context.Background(), 5, SelectDegreeRequest{TemplateID: 42})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
