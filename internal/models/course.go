package models

// Course is immutable catalog reference data keyed by course code.
type Course struct {
	Code        string `db:"code" json:"code"`
	Title       string `db:"title" json:"title"`
	FacultyName string `db:"faculty_name" json:"faculty_name"`
	Level       int    `db:"level" json:"level"`
}

// CourseDetail carries the prerequisite graph edges around a course.
type CourseDetail struct {
	Course
	Prerequisites []string `json:"prerequisites"`
	Unlocks       []string `json:"unlocks"`
}

// CoursePrereq is a directed prerequisite edge between two courses.
type CoursePrereq struct {
	CourseCode string `db:"course_code" json:"course_code"`
	PrereqCode string `db:"prereq_code" json:"prereq_code"`
}

// CourseFilter scopes catalog listings.
type CourseFilter struct {
	Faculty string
	Query   string
	Limit   int
}
