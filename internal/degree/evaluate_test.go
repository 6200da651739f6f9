package degree

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leaf(id int64, groupID int64, amount int) *Node {
	g := groupID
	return &Node{ID: id, Kind: KindLeaf, Amount: amount, GroupID: &g}
}

func TestEvaluateLeaf(t *testing.T) {
	groups := GroupSet{
		1: {ID: 1, Name: "CS Core", Members: []string{"CS135", "CS136", "CS245"}},
	}
	node := leaf(10, 1, 2)

	t.Run("unfulfilled", func(t *testing.T) {
		f := Evaluate(node, groups, NewSet("CS135"), NewSet())
		assert.False(t, f.Natural)
		assert.False(t, f.WithPlanned)
		assert.Equal(t, StateUnfulfilled, f.State)
	})

	t.Run("planned counts toward with-planned only", func(t *testing.T) {
		f := Evaluate(node, groups, NewSet("CS135"), NewSet("CS136"))
		assert.False(t, f.Natural)
		assert.True(t, f.WithPlanned)
		assert.Equal(t, StatePlanned, f.State)
	})

	t.Run("naturally fulfilled", func(t *testing.T) {
		f := Evaluate(node, groups, NewSet("CS135", "CS245"), NewSet())
		assert.True(t, f.Natural)
		assert.True(t, f.WithPlanned)
		assert.True(t, f.Display)
		assert.Equal(t, StateNatural, f.State)
	})

	t.Run("courses outside the group are ignored", func(t *testing.T) {
		f := Evaluate(node, groups, NewSet("MATH135", "MATH137"), NewSet())
		assert.False(t, f.Natural)
	})
}

func TestEvaluateLeafWithoutGroup(t *testing.T) {
	node := &Node{ID: 1, Kind: KindLeaf, Amount: 1}
	f := Evaluate(node, GroupSet{}, NewSet("CS135"), NewSet("CS136"))
	assert.False(t, f.Natural)
	assert.False(t, f.WithPlanned)
}

func TestEvaluateTextNode(t *testing.T) {
	node := &Node{ID: 1, Kind: KindText}
	f := Evaluate(node, GroupSet{}, NewSet("CS135"), NewSet())
	assert.False(t, f.Natural)
	assert.False(t, f.WithPlanned)
	assert.Equal(t, StateUnfulfilled, f.State)

	node.ForceCompleted = true
	f = Evaluate(node, GroupSet{}, NewSet(), NewSet())
	assert.False(t, f.Natural)
	assert.True(t, f.Display)
	assert.Equal(t, StateOverridden, f.State)
}

func TestEvaluateBranchThreshold(t *testing.T) {
	groups := GroupSet{
		1: {ID: 1, Members: []string{"CS135"}},
		2: {ID: 2, Members: []string{"MATH135"}},
		3: {ID: 3, Members: []string{"STAT230"}},
	}
	branch := &Node{
		ID: 100, Kind: KindBranch, Amount: 2,
		Children: []*Node{leaf(1, 1, 1), leaf(2, 2, 1), leaf(3, 3, 1)},
	}

	f := Evaluate(branch, groups, NewSet("CS135", "MATH135"), NewSet())
	assert.True(t, f.Natural, "2 of 3 children fulfilled meets amount 2")

	f = Evaluate(branch, groups, NewSet("CS135"), NewSet())
	assert.False(t, f.Natural, "1 of 3 children does not meet amount 2")
}

func TestEvaluateHonoursScenario(t *testing.T) {
	// Branch{amount:1, [LeafA(group={CS135,CS136}, amount:1), LeafB(group={MATH135}, amount:1)]}
	groups := GroupSet{
		1: {ID: 1, Name: "Intro CS", Members: []string{"CS135", "CS136"}},
		2: {ID: 2, Name: "Algebra", Members: []string{"MATH135"}},
	}
	branch := &Node{
		ID: 100, Kind: KindBranch, Amount: 1,
		Children: []*Node{leaf(1, 1, 1), leaf(2, 2, 1)},
	}

	f := Evaluate(branch, groups, NewSet("CS135"), NewSet())
	require.True(t, f.Natural)

	f = Evaluate(branch, groups, NewSet(), NewSet())
	require.False(t, f.Natural)
}

func TestEvaluateForcedChildAsymmetry(t *testing.T) {
	groups := GroupSet{
		1: {ID: 1, Members: []string{"CS135"}},
		2: {ID: 2, Members: []string{"MATH135"}},
	}
	forced := leaf(2, 2, 1)
	forced.ForceCompleted = true
	branch := &Node{
		ID: 100, Kind: KindBranch, Amount: 2,
		Children: []*Node{leaf(1, 1, 1), forced},
	}

	f := Evaluate(branch, groups, NewSet("CS135"), NewSet())
	assert.False(t, f.Natural, "forced child must not count toward natural")
	assert.True(t, f.WithPlanned, "forced child counts toward with-planned")
}

func TestEvaluateOverrideExposure(t *testing.T) {
	groups := GroupSet{1: {ID: 1, Members: []string{"CS135", "CS136"}}}
	node := leaf(1, 1, 2)
	node.ForceCompleted = true

	f := Evaluate(node, groups, NewSet(), NewSet())
	assert.True(t, f.Display)
	assert.False(t, f.Natural, "override must not mask the computed value")
	assert.Equal(t, StateOverridden, f.State)

	// Natural truth wins over the flag.
	f = Evaluate(node, groups, NewSet("CS135", "CS136"), NewSet())
	assert.Equal(t, StateNatural, f.State)
}

func TestEvaluateMalformedAmount(t *testing.T) {
	groups := GroupSet{1: {ID: 1, Members: []string{"CS135"}}}
	branch := &Node{
		ID: 100, Kind: KindBranch, Amount: 5,
		Children: []*Node{leaf(1, 1, 1)},
	}
	f := Evaluate(branch, groups, NewSet("CS135"), NewSet())
	assert.False(t, f.Natural, "amount above child count is never fulfilled, not an error")
}

func TestEvaluateDepthCap(t *testing.T) {
	groups := GroupSet{1: {ID: 1, Members: []string{"CS135"}}}
	node := leaf(1, 1, 1)
	for i := 0; i < MaxDepth+2; i++ {
		node = &Node{ID: int64(1000 + i), Kind: KindBranch, Amount: 1, Children: []*Node{node}}
	}
	f := Evaluate(node, groups, NewSet("CS135"), NewSet())
	assert.False(t, f.Natural, "nodes beyond the depth cap evaluate unfulfilled")
}

func TestEvaluateMonotonicity(t *testing.T) {
	members := []string{"CS135", "CS136", "CS245", "CS246"}
	groups := GroupSet{1: {ID: 1, Members: members}}
	inner := leaf(1, 1, 3)
	root := &Node{ID: 100, Kind: KindBranch, Amount: 1, Children: []*Node{inner}}

	completed := NewSet()
	prevInner, prevRoot := false, false
	for i, code := range members {
		completed[code] = struct{}{}
		fi := Evaluate(inner, groups, completed, NewSet())
		fr := Evaluate(root, groups, completed, NewSet())
		assert.False(t, prevInner && !fi.Natural, fmt.Sprintf("leaf regressed after adding %d courses", i+1))
		assert.False(t, prevRoot && !fr.Natural, fmt.Sprintf("branch regressed after adding %d courses", i+1))
		prevInner, prevRoot = fi.Natural, fr.Natural
	}
	assert.True(t, prevInner)
	assert.True(t, prevRoot)
}
