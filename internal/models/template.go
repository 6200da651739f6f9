package models

// Template is a canonical, shared degree definition. Templates are never
// written by student actions; students fork them into plans instead.
type Template struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Requirement is one node of a template's requirement tree. A node is a
// text note (IsText), a leaf bound to a course group, or a branch with
// children ordered by id.
type Requirement struct {
	ID            int64  `db:"id" json:"id"`
	Name          string `db:"name" json:"name"`
	Amount        int    `db:"amount" json:"amount"`
	IsText        bool   `db:"is_text" json:"is_text"`
	TemplateID    int64  `db:"template_id" json:"template_id"`
	CourseGroupID *int64 `db:"course_group_id" json:"course_group_id,omitempty"`
	ParentID      *int64 `db:"parent_id" json:"parent_id,omitempty"`
}
