package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/goosenest/degree-audit-api/internal/models"
)

// CourseRepository handles persistence for catalog courses and their
// prerequisite edges.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository instantiates a course repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns courses, optionally filtered by faculty.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, error) {
	query := `SELECT code, title, faculty_name, level FROM courses`
	var args []interface{}
	if filter.Faculty != "" {
		query += ` WHERE faculty_name = $1`
		args = append(args, filter.Faculty)
	}
	query += ` ORDER BY code ASC`

	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// Search matches courses by code or title, case-insensitively.
func (r *CourseRepository) Search(ctx context.Context, q string, limit int) ([]models.Course, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `SELECT code, title, faculty_name, level FROM courses WHERE code ILIKE '%' || $1 || '%' OR title ILIKE '%' || $1 || '%' ORDER BY code ASC LIMIT $2`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, q, limit); err != nil {
		return nil, fmt.Errorf("search courses: %w", err)
	}
	return courses, nil
}

// FindByCode loads a course with its prerequisite edges in both directions.
func (r *CourseRepository) FindByCode(ctx context.Context, code string) (*models.CourseDetail, error) {
	const query = `SELECT code, title, faculty_name, level FROM courses WHERE code = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, code); err != nil {
		return nil, err
	}

	detail := &models.CourseDetail{Course: course}
	if err := r.db.SelectContext(ctx, &detail.Prerequisites, `SELECT prereq_code FROM course_prereqs WHERE course_code = $1 ORDER BY prereq_code`, code); err != nil {
		return nil, fmt.Errorf("list prerequisites: %w", err)
	}
	if err := r.db.SelectContext(ctx, &detail.Unlocks, `SELECT course_code FROM course_prereqs WHERE prereq_code = $1 ORDER BY course_code`, code); err != nil {
		return nil, fmt.Errorf("list unlocks: %w", err)
	}
	return detail, nil
}

// Exists reports whether a course code is present in the catalog.
func (r *CourseRepository) Exists(ctx context.Context, code string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM courses WHERE code = $1)`, code); err != nil {
		return false, fmt.Errorf("check course exists: %w", err)
	}
	return exists, nil
}

// PrereqsFor returns the prerequisite codes of every given course.
func (r *CourseRepository) PrereqsFor(ctx context.Context, codes []string) (map[string][]string, error) {
	result := make(map[string][]string, len(codes))
	if len(codes) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(`SELECT course_code, prereq_code FROM course_prereqs WHERE course_code IN (?)`, codes)
	if err != nil {
		return nil, fmt.Errorf("build prereq query: %w", err)
	}
	query = r.db.Rebind(query)

	var edges []models.CoursePrereq
	if err := r.db.SelectContext(ctx, &edges, query, args...); err != nil {
		return nil, fmt.Errorf("list prereqs: %w", err)
	}
	for _, edge := range edges {
		result[edge.CourseCode] = append(result[edge.CourseCode], edge.PrereqCode)
	}
	return result, nil
}

// TitlesFor bulk-loads course titles keyed by code.
func (r *CourseRepository) TitlesFor(ctx context.Context, codes []string) (map[string]string, error) {
	result := make(map[string]string, len(codes))
	if len(codes) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(`SELECT code, title, faculty_name, level FROM courses WHERE code IN (?)`, codes)
	if err != nil {
		return nil, fmt.Errorf("build titles query: %w", err)
	}
	query = r.db.Rebind(query)

	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, fmt.Errorf("list titles: %w", err)
	}
	for _, course := range courses {
		result[course.Code] = course.Title
	}
	return result, nil
}

// Create inserts a course and its prerequisite edges in one transaction.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course, prerequisites []string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create course tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `INSERT INTO courses (code, title, faculty_name, level) VALUES ($1, $2, $3, $4)`,
		course.Code, course.Title, course.FacultyName, course.Level); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	for _, prereq := range prerequisites {
		if _, err = tx.ExecContext(ctx, `INSERT INTO course_prereqs (course_code, prereq_code) VALUES ($1, $2)`, course.Code, prereq); err != nil {
			return fmt.Errorf("create prereq edge: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create course tx: %w", err)
	}
	return nil
}

// Update modifies a course; a non-nil prerequisites slice replaces the
// existing edges wholesale.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course, prerequisites []string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update course tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `UPDATE courses SET title = $2, faculty_name = $3, level = $4 WHERE code = $1`,
		course.Code, course.Title, course.FacultyName, course.Level); err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	if prerequisites != nil {
		if _, err = tx.ExecContext(ctx, `DELETE FROM course_prereqs WHERE course_code = $1`, course.Code); err != nil {
			return fmt.Errorf("clear prereq edges: %w", err)
		}
		for _, prereq := range prerequisites {
			if _, err = tx.ExecContext(ctx, `INSERT INTO course_prereqs (course_code, prereq_code) VALUES ($1, $2)`, course.Code, prereq); err != nil {
				return fmt.Errorf("replace prereq edge: %w", err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update course tx: %w", err)
	}
	return nil
}

// Delete removes a course permanently.
func (r *CourseRepository) Delete(ctx context.Context, code string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE code = $1`, code); err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return nil
}
