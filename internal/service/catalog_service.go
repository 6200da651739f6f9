package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/goosenest/degree-audit-api/internal/models"
	appErrors "github.com/goosenest/degree-audit-api/pkg/errors"
)

type catalogCourseStore interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, error)
	Search(ctx context.Context, q string, limit int) ([]models.Course, error)
	FindByCode(ctx context.Context, code string) (*models.CourseDetail, error)
	Exists(ctx context.Context, code string) (bool, error)
	Create(ctx context.Context, course *models.Course, prerequisites []string) error
	Update(ctx context.Context, course *models.Course, prerequisites []string) error
	Delete(ctx context.Context, code string) error
}

type catalogFacultyStore interface {
	List(ctx context.Context) ([]models.Faculty, error)
	FindByName(ctx context.Context, name string) (*models.FacultyDetail, error)
	Create(ctx context.Context, faculty *models.Faculty) error
	Delete(ctx context.Context, name string) error
}

// UpsertCourseRequest creates or updates a catalog course.
type UpsertCourseRequest struct {
	Code          string   `json:"code" validate:"required"`
	Title         string   `json:"title" validate:"required"`
	FacultyName   string   `json:"faculty_name" validate:"required"`
	Level         int      `json:"level" validate:"gte=0"`
	Prerequisites []string `json:"prerequisites,omitempty"`
}

// CreateFacultyRequest creates a faculty.
type CreateFacultyRequest struct {
	Name string `json:"name" validate:"required"`
}

// CatalogService serves course and faculty reference data with a short
// read cache; catalog mutations are admin-side and infrequent.
type CatalogService struct {
	courses   catalogCourseStore
	faculties catalogFacultyStore
	cache     degreeCache
	cacheTTL  time.Duration
	limit     int
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCatalogService constructs CatalogService.
func NewCatalogService(courses catalogCourseStore, faculties catalogFacultyStore, cache degreeCache, cacheTTL time.Duration, searchLimit int, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if searchLimit <= 0 {
		searchLimit = 20
	}
	return &CatalogService{courses: courses, faculties: faculties, cache: cache, cacheTTL: cacheTTL, limit: searchLimit, validator: validate, logger: logger}
}

// ListCourses returns catalog courses, optionally scoped to a faculty.
func (s *CatalogService) ListCourses(ctx context.Context, filter models.CourseFilter) ([]models.Course, error) {
	key := fmt.Sprintf("catalog:courses:%s", filter.Faculty)
	if s.cache != nil {
		var cached []models.Course
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	courses, err := s.courses.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	if courses == nil {
		courses = []models.Course{}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, courses, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache course list", zap.Error(err))
		}
	}
	return courses, nil
}

// SearchCourses matches code or title substrings.
func (s *CatalogService) SearchCourses(ctx context.Context, q string) ([]models.Course, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "search query is required")
	}
	courses, err := s.courses.Search(ctx, q, s.limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search courses")
	}
	if courses == nil {
		courses = []models.Course{}
	}
	return courses, nil
}

// GetCourse returns one course with prerequisite edges.
func (s *CatalogService) GetCourse(ctx context.Context, code string) (*models.CourseDetail, error) {
	detail, err := s.courses.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if detail.Prerequisites == nil {
		detail.Prerequisites = []string{}
	}
	if detail.Unlocks == nil {
		detail.Unlocks = []string{}
	}
	return detail, nil
}

// CreateCourse adds a course and its prerequisite edges.
func (s *CatalogService) CreateCourse(ctx context.Context, req UpsertCourseRequest) (*models.CourseDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	exists, err := s.courses.Exists(ctx, req.Code)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course code already exists")
	}

	course := &models.Course{Code: req.Code, Title: req.Title, FacultyName: req.FacultyName, Level: req.Level}
	if err := s.courses.Create(ctx, course, req.Prerequisites); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.invalidateCatalog(ctx)
	return s.GetCourse(ctx, req.Code)
}

// UpdateCourse modifies a course; a non-nil prerequisite list replaces
// the edges wholesale.
func (s *CatalogService) UpdateCourse(ctx context.Context, code string, req UpsertCourseRequest) (*models.CourseDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	exists, err := s.courses.Exists(ctx, code)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course")
	}
	if !exists {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}

	course := &models.Course{Code: code, Title: req.Title, FacultyName: req.FacultyName, Level: req.Level}
	if err := s.courses.Update(ctx, course, req.Prerequisites); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	s.invalidateCatalog(ctx)
	return s.GetCourse(ctx, code)
}

// DeleteCourse removes a course from the catalog.
func (s *CatalogService) DeleteCourse(ctx context.Context, code string) error {
	exists, err := s.courses.Exists(ctx, code)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course")
	}
	if !exists {
		return appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	if err := s.courses.Delete(ctx, code); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}
	s.invalidateCatalog(ctx)
	return nil
}

// ListFaculties returns all faculties.
func (s *CatalogService) ListFaculties(ctx context.Context) ([]models.Faculty, error) {
	faculties, err := s.faculties.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list faculties")
	}
	if faculties == nil {
		faculties = []models.Faculty{}
	}
	return faculties, nil
}

// GetFaculty returns one faculty with its offerings.
func (s *CatalogService) GetFaculty(ctx context.Context, name string) (*models.FacultyDetail, error) {
	detail, err := s.faculties.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "faculty not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty")
	}
	if detail.Courses == nil {
		detail.Courses = []models.Course{}
	}
	return detail, nil
}

// CreateFaculty adds a faculty.
func (s *CatalogService) CreateFaculty(ctx context.Context, req CreateFacultyRequest) (*models.Faculty, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	if _, err := s.faculties.FindByName(ctx, req.Name); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "faculty already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check faculty")
	}

	faculty := &models.Faculty{Name: req.Name}
	if err := s.faculties.Create(ctx, faculty); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create faculty")
	}
	s.invalidateCatalog(ctx)
	return faculty, nil
}

// DeleteFaculty removes a faculty.
func (s *CatalogService) DeleteFaculty(ctx context.Context, name string) error {
	if _, err := s.faculties.FindByName(ctx, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "faculty not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check faculty")
	}
	if err := s.faculties.Delete(ctx, name); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete faculty")
	}
	s.invalidateCatalog(ctx)
	return nil
}

func (s *CatalogService) invalidateCatalog(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "catalog:*"); err != nil {
		s.logger.Warn("failed to invalidate catalog cache", zap.Error(err))
	}
}
