package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/goosenest/degree-audit-api/internal/models"
)

func newPlanRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func int64Ptr(v int64) *int64 { return &v }

func TestPlanRepositoryCloneGroupForRequirement(t *testing.T) {
	db, mock, cleanup := newPlanRepoMock(t)
	defer cleanup()
	repo := NewPlanRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO course_groups (name) SELECT name FROM course_groups WHERE id = $1 RETURNING id")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO course_group_links (group_id, course_code) SELECT $2, course_code FROM course_group_links WHERE group_id = $1")).
		WithArgs(int64(7), int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE plan_requirements SET course_group_id = $2 WHERE id = $1")).
		WithArgs(int64(11), int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	cloneID, err := repo.CloneGroupForRequirement(context.Background(), 11, 7)
	require.NoError(t, err)
	require.Equal(t, int64(42), cloneID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanRepositoryCloneGroupRollsBackOnRelinkFailure(t *testing.T) {
	db, mock, cleanup := newPlanRepoMock(t)
	defer cleanup()
	repo := NewPlanRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO course_groups (name) SELECT name FROM course_groups WHERE id = $1 RETURNING id")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO course_group_links (group_id, course_code) SELECT $2, course_code FROM course_group_links WHERE group_id = $1")).
		WithArgs(int64(7), int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE plan_requirements SET course_group_id = $2 WHERE id = $1")).
		WithArgs(int64(11), int64(42)).
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	_, err := repo.CloneGroupForRequirement(context.Background(), 11, 7)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanRepositoryCreateFromTemplate(t *testing.T) {
	db, mock, cleanup := newPlanRepoMock(t)
	defer cleanup()
	repo := NewPlanRepository(db)

	template := &models.Template{ID: 3, Name: "CS Honours"}
	requirements := []models.Requirement{
		{ID: 1, Name: "Core", Amount: 2, TemplateID: 3, CourseGroupID: int64Ptr(7)},
		{ID: 2, Name: "Advice", IsText: true, TemplateID: 3, ParentID: int64Ptr(1)},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO plans (name, user_id, template_name) VALUES ($1, $2, $3) RETURNING id")).
		WithArgs("CS Honours (Custom)", int64(5), "CS Honours").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(100)))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO course_groups (name) SELECT name FROM course_groups WHERE id = $1 RETURNING id")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(70)))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO course_group_links (group_id, course_code) SELECT $2, course_code FROM course_group_links WHERE group_id = $1")).
		WithArgs(int64(7), int64(70)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO plan_requirements (name, amount, is_text, force_completed, plan_id, course_group_id, parent_id) VALUES ($1, $2, $3, FALSE, $4, $5, $6) RETURNING id")).
		WithArgs("Core", 2, false, int64(100), int64(70), nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(201)))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO plan_requirements (name, amount, is_text, force_completed, plan_id, course_group_id, parent_id) VALUES ($1, $2, $3, FALSE, $4, $5, $6) RETURNING id")).
		WithArgs("Advice", 0, true, int64(100), nil, int64(201)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(202)))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET template_id = NULL, updated_at = NOW() WHERE id = $1")).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	fork, err := repo.CreateFromTemplate(context.Background(), 5, template, requirements)
	require.NoError(t, err)
	require.Equal(t, int64(100), fork.Plan.ID)
	require.Equal(t, "CS Honours (Custom)", fork.Plan.Name)
	require.Equal(t, int64(201), fork.RequirementIDs[1])
	require.Equal(t, int64(202), fork.RequirementIDs[2])
	require.Equal(t, int64(70), fork.GroupIDs[7])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanRepositoryCreateFromTemplateDetectsBrokenParentLinks(t *testing.T) {
	db, mock, cleanup := newPlanRepoMock(t)
	defer cleanup()
	repo := NewPlanRepository(db)

	template := &models.Template{ID: 3, Name: "CS Honours"}
	// Parent id 99 does not exist in the row set, so no pass can map it.
	requirements := []models.Requirement{
		{ID: 2, Name: "Orphan", Amount: 1, TemplateID: 3, ParentID: int64Ptr(99)},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO plans (name, user_id, template_name) VALUES ($1, $2, $3) RETURNING id")).
		WithArgs("CS Honours (Custom)", int64(5), "CS Honours").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(100)))
	mock.ExpectRollback()

	_, err := repo.CreateFromTemplate(context.Background(), 5, template, requirements)
	require.ErrorIs(t, err, ErrPartialClone)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanRepositorySetForceCompletedScopedToPlan(t *testing.T) {
	db, mock, cleanup := newPlanRepoMock(t)
	defer cleanup()
	repo := NewPlanRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE plan_requirements SET force_completed = $3 WHERE id = $1 AND plan_id = $2")).
		WithArgs(int64(201), int64(100), true).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetForceCompleted(context.Background(), 100, 201, true)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanRepositoryDeleteByUserCollectsGroups(t *testing.T) {
	db, mock, cleanup := newPlanRepoMock(t)
	defer cleanup()
	repo := NewPlanRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT pr.course_group_id FROM plan_requirements pr JOIN plans p ON p.id = pr.plan_id WHERE p.user_id = $1 AND pr.course_group_id IS NOT NULL")).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"course_group_id"}).AddRow(int64(70)).AddRow(int64(71)))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM plans WHERE user_id = $1")).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM course_groups g WHERE g.id IN").
		WithArgs(int64(70), int64(71)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.DeleteByUser(context.Background(), 5)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
