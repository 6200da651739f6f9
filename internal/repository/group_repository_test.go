package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func newGroupRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestGroupRepositoryMembers(t *testing.T) {
	db, mock, cleanup := newGroupRepoMock(t)
	defer cleanup()
	repo := NewGroupRepository(db)

	rows := sqlmock.NewRows([]string{"course_code", "title"}).
		AddRow("CS 135", "Designing Functional Programs").
		AddRow("CS 136", "Elementary Algorithm Design")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT l.course_code, c.title FROM course_group_links l JOIN courses c ON c.code = l.course_code WHERE l.group_id = $1 ORDER BY l.course_code ASC")).
		WithArgs(int64(7)).
		WillReturnRows(rows)

	members, err := repo.Members(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, members, 2)
	require.Equal(t, "CS 135", members[0].CourseCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupRepositoryAddCourseDuplicate(t *testing.T) {
	db, mock, cleanup := newGroupRepoMock(t)
	defer cleanup()
	repo := NewGroupRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO course_group_links (group_id, course_code) VALUES ($1, $2)")).
		WithArgs(int64(7), "CS 135").
		WillReturnError(&pq.Error{Code: pqUniqueViolation})

	err := repo.AddCourse(context.Background(), 7, "CS 135")
	require.ErrorIs(t, err, ErrDuplicateMember)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupRepositoryRemoveCourseMissing(t *testing.T) {
	db, mock, cleanup := newGroupRepoMock(t)
	defer cleanup()
	repo := NewGroupRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM course_group_links WHERE group_id = $1 AND course_code = $2")).
		WithArgs(int64(7), "CS 999").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.RemoveCourse(context.Background(), 7, "CS 999")
	require.ErrorIs(t, err, ErrMemberNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupRepositoryCreateRollsBackOnLinkFailure(t *testing.T) {
	db, mock, cleanup := newGroupRepoMock(t)
	defer cleanup()
	repo := NewGroupRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO course_groups (name) VALUES ($1) RETURNING id")).
		WithArgs("Math Electives").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(9)))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO course_group_links (group_id, course_code) VALUES ($1, $2)")).
		WithArgs(int64(9), "MATH 239").
		WillReturnError(&pq.Error{Code: "23503"})
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), "Math Electives", []string{"MATH 239"})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupRepositoryTemplateRefCount(t *testing.T) {
	db, mock, cleanup := newGroupRepoMock(t)
	defer cleanup()
	repo := NewGroupRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM requirements WHERE course_group_id = $1")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.TemplateRefCount(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, 2, count)
	require.NoError(t, mock.ExpectationsWereMet())
}
