package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/goosenest/degree-audit-api/internal/degree"
	"github.com/goosenest/degree-audit-api/internal/models"
	"github.com/goosenest/degree-audit-api/internal/repository"
	appErrors "github.com/goosenest/degree-audit-api/pkg/errors"
)

type schedulePlacementStore interface {
	ListByUser(ctx context.Context, userID int64) ([]models.TermCourse, error)
	Create(ctx context.Context, placement *models.TermCourse) error
	UpdateTerm(ctx context.Context, userID int64, courseCode string, term models.Term) error
	Delete(ctx context.Context, userID int64, courseCode string) error
	SetCurrentTerm(ctx context.Context, userID int64, term models.Term) error
}

type scheduleCourseStore interface {
	Exists(ctx context.Context, code string) (bool, error)
	PrereqsFor(ctx context.Context, codes []string) (map[string][]string, error)
	TitlesFor(ctx context.Context, codes []string) (map[string]string, error)
}

type scheduleUserStore interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

// PlaceCourseRequest adds or moves one schedule entry.
type PlaceCourseRequest struct {
	CourseCode string      `json:"course_code" validate:"required"`
	Term       models.Term `json:"term" validate:"required"`
}

// ScheduleService manages term placements and the current-term marker,
// decorating reads with prerequisite-gap warnings.
type ScheduleService struct {
	placements schedulePlacementStore
	courses    scheduleCourseStore
	users      scheduleUserStore
	cache      degreeCache
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewScheduleService constructs ScheduleService.
func NewScheduleService(placements schedulePlacementStore, courses scheduleCourseStore, users scheduleUserStore, cache degreeCache, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{placements: placements, courses: courses, users: users, cache: cache, validator: validate, logger: logger}
}

// Get returns the user's schedule with prerequisite-gap flags computed
// against strictly earlier terms.
func (s *ScheduleService) Get(ctx context.Context, userID int64) (*models.Schedule, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	rows, err := s.placements.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}

	codes := make([]string, 0, len(rows))
	for _, row := range rows {
		codes = append(codes, row.CourseCode)
	}
	prereqs, err := s.courses.PrereqsFor(ctx, codes)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load prerequisites")
	}
	titles, err := s.courses.TitlesFor(ctx, codes)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course titles")
	}

	placements := make([]degree.Placement, 0, len(rows))
	for _, row := range rows {
		placements = append(placements, degree.Placement{
			CourseCode:    row.CourseCode,
			Term:          row.Term,
			Prerequisites: prereqs[row.CourseCode],
		})
	}
	missing := degree.MissingPrereqs(placements)

	schedule := &models.Schedule{CurrentTerm: user.CurrentTerm, Entries: make([]models.ScheduleEntry, 0, len(rows))}
	for _, p := range placements {
		entry := models.ScheduleEntry{
			CourseCode:    p.CourseCode,
			Title:         titles[p.CourseCode],
			Term:          p.Term,
			Prerequisites: p.Prerequisites,
			MissingPrereq: missing.Has(p.CourseCode),
		}
		if entry.Prerequisites == nil {
			entry.Prerequisites = []string{}
		}
		schedule.Entries = append(schedule.Entries, entry)
	}
	return schedule, nil
}

// Add places a course into a term.
func (s *ScheduleService) Add(ctx context.Context, userID int64, req PlaceCourseRequest) (*models.Schedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	if !req.Term.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown term %q", req.Term))
	}
	exists, err := s.courses.Exists(ctx, req.CourseCode)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course")
	}
	if !exists {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}

	if err := s.placements.Create(ctx, &models.TermCourse{UserID: userID, CourseCode: req.CourseCode, Term: req.Term}); err != nil {
		if errors.Is(err, repository.ErrPlacementExists) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "course already scheduled")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to schedule course")
	}

	s.invalidateDegree(ctx, userID)
	return s.Get(ctx, userID)
}

// Move relocates an existing placement to another term.
func (s *ScheduleService) Move(ctx context.Context, userID int64, req PlaceCourseRequest) (*models.Schedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	if !req.Term.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown term %q", req.Term))
	}

	if err := s.placements.UpdateTerm(ctx, userID, req.CourseCode, req.Term); err != nil {
		if errors.Is(err, repository.ErrPlacementNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not scheduled")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to move course")
	}

	s.invalidateDegree(ctx, userID)
	return s.Get(ctx, userID)
}

// Remove drops a placement.
func (s *ScheduleService) Remove(ctx context.Context, userID int64, courseCode string) (*models.Schedule, error) {
	if courseCode == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course code is required")
	}
	if err := s.placements.Delete(ctx, userID, courseCode); err != nil {
		if errors.Is(err, repository.ErrPlacementNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not scheduled")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove course")
	}

	s.invalidateDegree(ctx, userID)
	return s.Get(ctx, userID)
}

// SetCurrentTerm moves the completed/planned boundary.
func (s *ScheduleService) SetCurrentTerm(ctx context.Context, userID int64, term models.Term) (*models.Schedule, error) {
	if !term.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown term %q", term))
	}
	if err := s.placements.SetCurrentTerm(ctx, userID, term); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set current term")
	}

	s.invalidateDegree(ctx, userID)
	return s.Get(ctx, userID)
}

func (s *ScheduleService) invalidateDegree(ctx context.Context, userID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, degreeCacheKey(userID)+"*"); err != nil {
		s.logger.Warn("failed to invalidate degree cache", zap.Int64("user_id", userID), zap.Error(err))
	}
}
