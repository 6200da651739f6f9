package degree

// State is the per-node fulfillment state exposed to clients. It drives
// which controls a UI may enable but is itself a pure data contract.
type State string

const (
	StateUnfulfilled State = "UNFULFILLED"
	StateNatural     State = "NATURALLY_FULFILLED"
	StatePlanned     State = "PLANNED_FULFILLED"
	StateOverridden  State = "OVERRIDDEN"
)

// Fulfillment is the evaluation result for one node.
//
// Natural reflects completed-course evidence only: manual overrides never
// contribute to it, so callers can distinguish "really done" from "marked
// done". WithPlanned additionally counts planned courses, and at branch
// level counts forced children. Display is what a checklist renders: true
// whenever the node is overridden, regardless of the computed values.
type Fulfillment struct {
	Natural     bool  `json:"natural"`
	WithPlanned bool  `json:"with_planned"`
	Display     bool  `json:"display"`
	State       State `json:"state"`
	Malformed   bool  `json:"malformed,omitempty"`
}

// Evaluate computes the fulfillment of a node against the student's
// completed and planned course sets. It is a total function: malformed
// input (missing groups, impossible amounts, over-deep trees) evaluates to
// unfulfilled rather than erroring.
func Evaluate(node *Node, groups GroupSet, completed, planned Set) Fulfillment {
	return evaluate(node, groups, completed, planned, 0)
}

func evaluate(node *Node, groups GroupSet, completed, planned Set, depth int) Fulfillment {
	if node == nil {
		return Fulfillment{State: StateUnfulfilled}
	}
	if depth > MaxDepth {
		return finish(node, false, false, true)
	}

	var natural, withPlanned bool

	switch node.Kind {
	case KindText:
		// Text nodes describe conditions outside the data model.
	case KindLeaf:
		if node.GroupID != nil {
			if group, ok := groups[*node.GroupID]; ok {
				c := completed.countOf(group.Members)
				p := planned.countOf(group.Members)
				natural = c >= node.Amount
				withPlanned = c+p >= node.Amount
			}
		}
	case KindBranch:
		naturalCount := 0
		plannedCount := 0
		for _, child := range node.Children {
			childResult := evaluate(child, groups, completed, planned, depth+1)
			if childResult.Natural {
				naturalCount++
			}
			// A forced child counts toward the planned pass but never
			// toward the natural one.
			if childResult.WithPlanned || child.ForceCompleted {
				plannedCount++
			}
		}
		natural = naturalCount >= node.Amount
		withPlanned = plannedCount >= node.Amount
	}

	return finish(node, natural, withPlanned, false)
}

func finish(node *Node, natural, withPlanned, malformed bool) Fulfillment {
	f := Fulfillment{
		Natural:     natural,
		WithPlanned: withPlanned,
		Display:     natural || node.ForceCompleted,
		Malformed:   malformed,
	}
	switch {
	case natural:
		// Natural fulfillment wins over the override flag: overriding a
		// truth has no effect and the control surface disables it.
		f.State = StateNatural
	case node.ForceCompleted:
		f.State = StateOverridden
	case withPlanned:
		f.State = StatePlanned
	default:
		f.State = StateUnfulfilled
	}
	return f
}
