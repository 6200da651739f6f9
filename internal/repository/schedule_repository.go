package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/goosenest/degree-audit-api/internal/models"
)

// Placement mutation sentinels surfaced to the service layer.
var (
	ErrPlacementExists   = errors.New("course already placed in schedule")
	ErrPlacementNotFound = errors.New("course not placed in schedule")
)

// ScheduleRepository handles persistence for term placements and the
// user's current-term marker.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository instantiates a schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// ListByUser returns every placement of a user ordered by term then code.
func (r *ScheduleRepository) ListByUser(ctx context.Context, userID int64) ([]models.TermCourse, error) {
	const query = `SELECT user_id, course_code, term FROM term_courses WHERE user_id = $1 ORDER BY term ASC, course_code ASC`
	var placements []models.TermCourse
	if err := r.db.SelectContext(ctx, &placements, query, userID); err != nil {
		return nil, fmt.Errorf("list placements: %w", err)
	}
	return placements, nil
}

// Create places a course into a term. A course can appear in at most one
// term per user; duplicates surface ErrPlacementExists.
func (r *ScheduleRepository) Create(ctx context.Context, placement *models.TermCourse) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO term_courses (user_id, course_code, term) VALUES ($1, $2, $3)`,
		placement.UserID, placement.CourseCode, placement.Term)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return ErrPlacementExists
		}
		return fmt.Errorf("create placement: %w", err)
	}
	return nil
}

// Upsert places a course into a term, moving it if already placed.
func (r *ScheduleRepository) Upsert(ctx context.Context, placement *models.TermCourse) error {
	const query = `INSERT INTO term_courses (user_id, course_code, term) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, course_code) DO UPDATE SET term = EXCLUDED.term`
	if _, err := r.db.ExecContext(ctx, query, placement.UserID, placement.CourseCode, placement.Term); err != nil {
		return fmt.Errorf("upsert placement: %w", err)
	}
	return nil
}

// UpdateTerm moves an existing placement to another term.
func (r *ScheduleRepository) UpdateTerm(ctx context.Context, userID int64, courseCode string, term models.Term) error {
	result, err := r.db.ExecContext(ctx, `UPDATE term_courses SET term = $3 WHERE user_id = $1 AND course_code = $2`,
		userID, courseCode, term)
	if err != nil {
		return fmt.Errorf("move placement: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("move placement result: %w", err)
	}
	if affected == 0 {
		return ErrPlacementNotFound
	}
	return nil
}

// Delete removes a placement.
func (r *ScheduleRepository) Delete(ctx context.Context, userID int64, courseCode string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM term_courses WHERE user_id = $1 AND course_code = $2`, userID, courseCode)
	if err != nil {
		return fmt.Errorf("delete placement: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete placement result: %w", err)
	}
	if affected == 0 {
		return ErrPlacementNotFound
	}
	return nil
}

// SetCurrentTerm updates the user's progress marker.
func (r *ScheduleRepository) SetCurrentTerm(ctx context.Context, userID int64, term models.Term) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET current_term = $2, updated_at = NOW() WHERE id = $1`, userID, term); err != nil {
		return fmt.Errorf("set current term: %w", err)
	}
	return nil
}
