package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/goosenest/degree-audit-api/internal/models"
)

// FacultyRepository handles persistence for faculties.
type FacultyRepository struct {
	db *sqlx.DB
}

// NewFacultyRepository instantiates a faculty repository.
func NewFacultyRepository(db *sqlx.DB) *FacultyRepository {
	return &FacultyRepository{db: db}
}

// List returns all faculties ordered by name.
func (r *FacultyRepository) List(ctx context.Context) ([]models.Faculty, error) {
	const query = `SELECT name FROM faculties ORDER BY name ASC`
	var faculties []models.Faculty
	if err := r.db.SelectContext(ctx, &faculties, query); err != nil {
		return nil, fmt.Errorf("list faculties: %w", err)
	}
	return faculties, nil
}

// FindByName loads one faculty with its course offerings.
func (r *FacultyRepository) FindByName(ctx context.Context, name string) (*models.FacultyDetail, error) {
	const query = `SELECT name FROM faculties WHERE name = $1`
	var faculty models.Faculty
	if err := r.db.GetContext(ctx, &faculty, query, name); err != nil {
		return nil, err
	}

	const coursesQuery = `SELECT code, title, faculty_name, level FROM courses WHERE faculty_name = $1 ORDER BY code ASC`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, coursesQuery, name); err != nil {
		return nil, fmt.Errorf("list faculty courses: %w", err)
	}

	return &models.FacultyDetail{Faculty: faculty, Courses: courses}, nil
}

// Create inserts a faculty.
func (r *FacultyRepository) Create(ctx context.Context, faculty *models.Faculty) error {
	if _, err := r.db.ExecContext(ctx, `INSERT INTO faculties (name) VALUES ($1)`, faculty.Name); err != nil {
		return fmt.Errorf("create faculty: %w", err)
	}
	return nil
}

// Delete removes a faculty permanently.
func (r *FacultyRepository) Delete(ctx context.Context, name string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM faculties WHERE name = $1`, name); err != nil {
		return fmt.Errorf("delete faculty: %w", err)
	}
	return nil
}
