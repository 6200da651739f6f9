package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/goosenest/degree-audit-api/internal/models"
)

// Membership mutation sentinels surfaced to the service layer.
var (
	ErrDuplicateMember = errors.New("course already a member of group")
	ErrMemberNotFound  = errors.New("course not a member of group")
)

const pqUniqueViolation = "23505"

// GroupRepository handles persistence for course groups and their
// membership links.
type GroupRepository struct {
	db *sqlx.DB
}

// NewGroupRepository instantiates a group repository.
func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// List returns all groups with members, ordered by name.
func (r *GroupRepository) List(ctx context.Context) ([]models.CourseGroupDetail, error) {
	const query = `SELECT id, name FROM course_groups ORDER BY name ASC`
	var groups []models.CourseGroup
	if err := r.db.SelectContext(ctx, &groups, query); err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}

	details := make([]models.CourseGroupDetail, 0, len(groups))
	for _, group := range groups {
		members, err := r.Members(ctx, group.ID)
		if err != nil {
			return nil, err
		}
		details = append(details, models.CourseGroupDetail{CourseGroup: group, Members: members})
	}
	return details, nil
}

// FindByID loads one group with its members.
func (r *GroupRepository) FindByID(ctx context.Context, id int64) (*models.CourseGroupDetail, error) {
	const query = `SELECT id, name FROM course_groups WHERE id = $1`
	var group models.CourseGroup
	if err := r.db.GetContext(ctx, &group, query, id); err != nil {
		return nil, err
	}
	members, err := r.Members(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.CourseGroupDetail{CourseGroup: group, Members: members}, nil
}

// Members returns the membership of one group joined with course titles.
func (r *GroupRepository) Members(ctx context.Context, groupID int64) ([]models.GroupMember, error) {
	const query = `SELECT l.course_code, c.title FROM course_group_links l JOIN courses c ON c.code = l.course_code WHERE l.group_id = $1 ORDER BY l.course_code ASC`
	var members []models.GroupMember
	if err := r.db.SelectContext(ctx, &members, query, groupID); err != nil {
		return nil, fmt.Errorf("list group members: %w", err)
	}
	return members, nil
}

// MembersOf bulk-loads membership codes for a set of groups.
func (r *GroupRepository) MembersOf(ctx context.Context, groupIDs []int64) (map[int64][]string, error) {
	result := make(map[int64][]string, len(groupIDs))
	if len(groupIDs) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(`SELECT group_id, course_code FROM course_group_links WHERE group_id IN (?) ORDER BY course_code`, groupIDs)
	if err != nil {
		return nil, fmt.Errorf("build membership query: %w", err)
	}
	query = r.db.Rebind(query)

	var links []models.CourseGroupLink
	if err := r.db.SelectContext(ctx, &links, query, args...); err != nil {
		return nil, fmt.Errorf("bulk list members: %w", err)
	}
	for _, link := range links {
		result[link.GroupID] = append(result[link.GroupID], link.CourseCode)
	}
	return result, nil
}

// Create inserts a group and its initial membership in one transaction.
func (r *GroupRepository) Create(ctx context.Context, name string, courseCodes []string) (group *models.CourseGroup, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create group tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	group = &models.CourseGroup{Name: name}
	if err = tx.GetContext(ctx, &group.ID, `INSERT INTO course_groups (name) VALUES ($1) RETURNING id`, name); err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	for _, code := range courseCodes {
		if _, err = tx.ExecContext(ctx, `INSERT INTO course_group_links (group_id, course_code) VALUES ($1, $2)`, group.ID, code); err != nil {
			return nil, fmt.Errorf("link group course: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create group tx: %w", err)
	}
	return group, nil
}

// Update renames a group; a non-nil courseCodes slice replaces the
// membership wholesale.
func (r *GroupRepository) Update(ctx context.Context, id int64, name string, courseCodes []string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update group tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if name != "" {
		if _, err = tx.ExecContext(ctx, `UPDATE course_groups SET name = $2 WHERE id = $1`, id, name); err != nil {
			return fmt.Errorf("rename group: %w", err)
		}
	}
	if courseCodes != nil {
		if _, err = tx.ExecContext(ctx, `DELETE FROM course_group_links WHERE group_id = $1`, id); err != nil {
			return fmt.Errorf("clear group membership: %w", err)
		}
		for _, code := range courseCodes {
			if _, err = tx.ExecContext(ctx, `INSERT INTO course_group_links (group_id, course_code) VALUES ($1, $2)`, id, code); err != nil {
				return fmt.Errorf("replace group membership: %w", err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update group tx: %w", err)
	}
	return nil
}

// Delete removes a group; membership rows cascade.
func (r *GroupRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM course_groups WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	return nil
}

// AddCourse appends one course to a group. Duplicate adds surface
// ErrDuplicateMember via the membership uniqueness constraint, which keeps
// concurrent double-adds idempotent without extra locking.
func (r *GroupRepository) AddCourse(ctx context.Context, groupID int64, courseCode string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO course_group_links (group_id, course_code) VALUES ($1, $2)`, groupID, courseCode)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return ErrDuplicateMember
		}
		return fmt.Errorf("add group course: %w", err)
	}
	return nil
}

// RemoveCourse deletes one membership row, reporting ErrMemberNotFound
// when the course was not a member.
func (r *GroupRepository) RemoveCourse(ctx context.Context, groupID int64, courseCode string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM course_group_links WHERE group_id = $1 AND course_code = $2`, groupID, courseCode)
	if err != nil {
		return fmt.Errorf("remove group course: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove group course result: %w", err)
	}
	if affected == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// IsMember reports whether the course is already in the group.
func (r *GroupRepository) IsMember(ctx context.Context, groupID int64, courseCode string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM course_group_links WHERE group_id = $1 AND course_code = $2)`, groupID, courseCode); err != nil {
		return false, fmt.Errorf("check group membership: %w", err)
	}
	return exists, nil
}

// TemplateRefCount counts template requirements pointing at the group.
// A non-zero count means the group is shared canonical data and must be
// forked before any student mutation.
func (r *GroupRepository) TemplateRefCount(ctx context.Context, groupID int64) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM requirements WHERE course_group_id = $1`, groupID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("count template group refs: %w", err)
	}
	return count, nil
}
