package degree

import "github.com/goosenest/degree-audit-api/internal/models"

// Placement is one scheduled course with its prerequisite edges.
type Placement struct {
	CourseCode    string
	Term          models.Term
	Prerequisites []string
}

// Partition splits placements into completed (term strictly before the
// current term) and planned (current term or later) course sets.
func Partition(placements []Placement, current models.Term) (completed, planned Set) {
	completed = make(Set)
	planned = make(Set)
	currentIdx := current.Index()
	for _, p := range placements {
		if p.Term.Index() < currentIdx {
			completed[p.CourseCode] = struct{}{}
		} else {
			planned[p.CourseCode] = struct{}{}
		}
	}
	return completed, planned
}

// MissingPrereqs flags placements whose prerequisites are entirely absent
// from every strictly-earlier term. A course with no prerequisites is never
// flagged, and one matching prerequisite suffices ("any" semantics). The
// flag is a soft scheduling warning, never a hard block.
func MissingPrereqs(placements []Placement) Set {
	byTerm := make(map[models.Term]Set)
	for _, p := range placements {
		if byTerm[p.Term] == nil {
			byTerm[p.Term] = make(Set)
		}
		byTerm[p.Term][p.CourseCode] = struct{}{}
	}

	missing := make(Set)
	for _, p := range placements {
		if len(p.Prerequisites) == 0 {
			continue
		}
		termIdx := p.Term.Index()
		prior := make(Set)
		for _, t := range models.Terms {
			if t.Index() >= termIdx {
				continue
			}
			for code := range byTerm[t] {
				prior[code] = struct{}{}
			}
		}
		satisfied := false
		for _, prereq := range p.Prerequisites {
			if prior.Has(prereq) {
				satisfied = true
				break
			}
		}
		if !satisfied {
			missing[p.CourseCode] = struct{}{}
		}
	}
	return missing
}
