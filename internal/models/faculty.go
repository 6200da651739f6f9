package models

// Faculty groups courses under an academic unit, e.g. CS or MATH.
type Faculty struct {
	Name string `db:"name" json:"name"`
}

// FacultyDetail includes the faculty's course offerings.
type FacultyDetail struct {
	Faculty
	Courses []Course `json:"courses"`
}
