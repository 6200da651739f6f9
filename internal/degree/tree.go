// Package degree implements the requirement-tree evaluation engine: a pure
// fulfillment computation over requirement nodes, plus the schedule
// partitioning and prerequisite-gap detection that feed it.
package degree

// NodeKind discriminates the three requirement-node shapes.
type NodeKind string

const (
	// KindText nodes are informational; they are never naturally
	// fulfilled and only satisfy via a manual override.
	KindText NodeKind = "TEXT"
	// KindLeaf nodes are fulfilled by completed courses from their group.
	KindLeaf NodeKind = "LEAF"
	// KindBranch nodes are fulfilled by fulfilled children.
	KindBranch NodeKind = "BRANCH"
)

// MaxDepth caps tree recursion. Trees are owned, so cycles are structurally
// impossible; the cap guards against corrupt parent links in stored data.
const MaxDepth = 16

// Group is one course group resolved into its member codes.
type Group struct {
	ID      int64
	Name    string
	Members []string
}

// GroupSet is the arena of course groups keyed by id. Nodes reference
// groups by index rather than owning them, so "is this group shared?"
// stays a counting question for the materializer, not a pointer one.
type GroupSet map[int64]Group

// Node is one requirement-tree node prepared for evaluation.
type Node struct {
	ID             int64
	Name           string
	Kind           NodeKind
	Amount         int
	ForceCompleted bool
	GroupID        *int64
	Children       []*Node
}

// Set is a set of course codes.
type Set map[string]struct{}

// NewSet builds a Set from course codes.
func NewSet(codes ...string) Set {
	s := make(Set, len(codes))
	for _, code := range codes {
		s[code] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s Set) Has(code string) bool {
	_, ok := s[code]
	return ok
}

func (s Set) countOf(codes []string) int {
	n := 0
	for _, code := range codes {
		if s.Has(code) {
			n++
		}
	}
	return n
}
