package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/goosenest/degree-audit-api/internal/models"
	"github.com/goosenest/degree-audit-api/internal/repository"
	appErrors "github.com/goosenest/degree-audit-api/pkg/errors"
)

type groupStore interface {
	List(ctx context.Context) ([]models.CourseGroupDetail, error)
	FindByID(ctx context.Context, id int64) (*models.CourseGroupDetail, error)
	Create(ctx context.Context, name string, courseCodes []string) (*models.CourseGroup, error)
	Update(ctx context.Context, id int64, name string, courseCodes []string) error
	Delete(ctx context.Context, id int64) error
	AddCourse(ctx context.Context, groupID int64, courseCode string) error
	RemoveCourse(ctx context.Context, groupID int64, courseCode string) error
}

type groupCourseStore interface {
	Exists(ctx context.Context, code string) (bool, error)
}

// UpsertGroupRequest creates or updates a course group. A nil course list
// on update leaves the membership alone.
type UpsertGroupRequest struct {
	Name        string   `json:"name" validate:"required"`
	CourseCodes []string `json:"course_codes,omitempty"`
}

// GroupCourseRequest adds one course to a group.
type GroupCourseRequest struct {
	CourseCode string `json:"course_code" validate:"required"`
}

// GroupService manages course group administration. Student-side group
// mutations go through DegreeService instead, which forks shared groups
// before writing.
type GroupService struct {
	groups    groupStore
	courses   groupCourseStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGroupService constructs GroupService.
func NewGroupService(groups groupStore, courses groupCourseStore, validate *validator.Validate, logger *zap.Logger) *GroupService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GroupService{groups: groups, courses: courses, validator: validate, logger: logger}
}

// List returns all groups with members.
func (s *GroupService) List(ctx context.Context) ([]models.CourseGroupDetail, error) {
	groups, err := s.groups.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list groups")
	}
	if groups == nil {
		groups = []models.CourseGroupDetail{}
	}
	return groups, nil
}

// Get returns one group with members.
func (s *GroupService) Get(ctx context.Context, id int64) (*models.CourseGroupDetail, error) {
	group, err := s.groups.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	if group.Members == nil {
		group.Members = []models.GroupMember{}
	}
	return group, nil
}

// Create builds a group with its initial membership.
func (s *GroupService) Create(ctx context.Context, req UpsertGroupRequest) (*models.CourseGroupDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	if err := s.checkCourses(ctx, req.CourseCodes); err != nil {
		return nil, err
	}

	group, err := s.groups.Create(ctx, req.Name, req.CourseCodes)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create group")
	}
	return s.Get(ctx, group.ID)
}

// Update renames a group and optionally replaces its membership.
func (s *GroupService) Update(ctx context.Context, id int64, req UpsertGroupRequest) (*models.CourseGroupDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.checkCourses(ctx, req.CourseCodes); err != nil {
		return nil, err
	}

	if err := s.groups.Update(ctx, id, req.Name, req.CourseCodes); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update group")
	}
	return s.Get(ctx, id)
}

// Delete removes a group.
func (s *GroupService) Delete(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.groups.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete group")
	}
	return nil
}

// AddCourse appends one course; adding an existing member is a conflict.
func (s *GroupService) AddCourse(ctx context.Context, id int64, req GroupCourseRequest) (*models.CourseGroupDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.checkCourses(ctx, []string{req.CourseCode}); err != nil {
		return nil, err
	}

	if err := s.groups.AddCourse(ctx, id, req.CourseCode); err != nil {
		if errors.Is(err, repository.ErrDuplicateMember) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "course already a member of group")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add course")
	}
	return s.Get(ctx, id)
}

// RemoveCourse drops one course; removing a non-member is not found.
func (s *GroupService) RemoveCourse(ctx context.Context, id int64, courseCode string) (*models.CourseGroupDetail, error) {
	if courseCode == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course code is required")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	if err := s.groups.RemoveCourse(ctx, id, courseCode); err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not a member of group")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove course")
	}
	return s.Get(ctx, id)
}

func (s *GroupService) checkCourses(ctx context.Context, codes []string) error {
	for _, code := range codes {
		ok, err := s.courses.Exists(ctx, code)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course")
		}
		if !ok {
			return appErrors.Clone(appErrors.ErrValidation, "unknown course code "+code)
		}
	}
	return nil
}
