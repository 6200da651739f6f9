package models

// Term is an academic term ordinal, 1A through 4B.
type Term string

const (
	Term1A Term = "1A"
	Term1B Term = "1B"
	Term2A Term = "2A"
	Term2B Term = "2B"
	Term3A Term = "3A"
	Term3B Term = "3B"
	Term4A Term = "4A"
	Term4B Term = "4B"
)

// Terms lists all academic terms in chronological order.
var Terms = []Term{Term1A, Term1B, Term2A, Term2B, Term3A, Term3B, Term4A, Term4B}

// Index returns the chronological position of the term, or -1 when the
// term is not a known ordinal.
func (t Term) Index() int {
	for i, known := range Terms {
		if known == t {
			return i
		}
	}
	return -1
}

// Valid reports whether the term is a known ordinal.
func (t Term) Valid() bool {
	return t.Index() >= 0
}

// Before reports whether t is strictly earlier than other.
func (t Term) Before(other Term) bool {
	return t.Index() < other.Index()
}

// TermCourse is one schedule placement: a course placed into a term by a
// student. (user_id, course_code) is unique.
type TermCourse struct {
	UserID     int64  `db:"user_id" json:"user_id"`
	CourseCode string `db:"course_code" json:"course_code"`
	Term       Term   `db:"term" json:"term"`
}

// ScheduleEntry is a placement joined with catalog data and the
// prerequisite-gap flag computed against earlier terms.
type ScheduleEntry struct {
	CourseCode    string   `json:"course_code"`
	Title         string   `json:"title"`
	Term          Term     `json:"term"`
	Prerequisites []string `json:"prerequisites"`
	MissingPrereq bool     `json:"missing_prereq"`
}

// Schedule is a student's full term-by-term placement view.
type Schedule struct {
	CurrentTerm Term            `json:"current_term"`
	Entries     []ScheduleEntry `json:"entries"`
}
