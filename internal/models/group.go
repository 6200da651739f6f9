package models

// CourseGroup is a named set of course codes usable as the eligibility
// pool of a leaf requirement. Groups may be shared between a template and
// at most one plan until the first student mutation forks them.
type CourseGroup struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// CourseGroupLink is a single group membership row.
type CourseGroupLink struct {
	GroupID    int64  `db:"group_id" json:"group_id"`
	CourseCode string `db:"course_code" json:"course_code"`
}

// GroupMember is a membership row joined with catalog data.
type GroupMember struct {
	CourseCode string `db:"course_code" json:"course_code"`
	Title      string `db:"title" json:"title"`
}

// CourseGroupDetail bundles a group with its resolved members.
type CourseGroupDetail struct {
	CourseGroup
	Members []GroupMember `json:"members"`
}
