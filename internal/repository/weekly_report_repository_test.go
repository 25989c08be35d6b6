package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/siwes-portal-api/internal/models"
)

func newReportMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "sqlmock")
	return sqlxDB, mock, func() { sqlxDB.Close() }
}

func reportRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "student_id", "week_number", "monday_activity", "tuesday_activity",
		"wednesday_activity", "thursday_activity", "friday_activity", "saturday_activity",
		"status", "score", "school_supervisor_comments", "rejection_reason", "forwarded_to_school",
		"submitted_at", "approved_at", "created_at", "updated_at",
	})
}

func TestWeeklyReportRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newReportMock(t)
	defer cleanup()
	repo := NewWeeklyReportRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("FROM weekly_reports WHERE id = $1")).
		WithArgs("rep-1").
		WillReturnRows(reportRows().AddRow(
			"rep-1", "stu-1", 3, "lathe work", "", "", "", "", "",
			"DRAFT", nil, nil, nil, false, nil, nil, now, now,
		))

	report, err := repo.FindByID(context.Background(), "rep-1")
	require.NoError(t, err)
	assert.Equal(t, "stu-1", report.StudentID)
	assert.Equal(t, 3, report.WeekNumber)
	assert.Equal(t, models.ReportStatusDraft, report.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWeeklyReportRepositoryFindByStudentAndWeekMissing(t *testing.T) {
	db, mock, cleanup := newReportMock(t)
	defer cleanup()
	repo := NewWeeklyReportRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE student_id = $1 AND week_number = $2")).
		WithArgs("stu-1", 9).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByStudentAndWeek(context.Background(), "stu-1", 9)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWeeklyReportRepositoryUpsertDraft(t *testing.T) {
	db, mock, cleanup := newReportMock(t)
	defer cleanup()
	repo := NewWeeklyReportRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("WHERE weekly_reports.status IN ('DRAFT', 'REJECTED')")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	report := &models.WeeklyReport{StudentID: "stu-1", WeekNumber: 3, MondayActivity: "lathe work"}
	ok, err := repo.UpsertDraft(context.Background(), report)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, report.ID)
	assert.Equal(t, models.ReportStatusDraft, report.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWeeklyReportRepositoryUpsertDraftRedraftsRejectedRow(t *testing.T) {
	db, mock, cleanup := newReportMock(t)
	defer cleanup()
	repo := NewWeeklyReportRepository(db)

	// The conflict guard admits REJECTED rows and rewrites their status to
	// DRAFT, so a rejected week is editable again after review.
	mock.ExpectExec(regexp.QuoteMeta("status = EXCLUDED.status")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	report := &models.WeeklyReport{ID: "rep-1", StudentID: "stu-1", WeekNumber: 3, MondayActivity: "revised entry"}
	ok, err := repo.UpsertDraft(context.Background(), report)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, models.ReportStatusDraft, report.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWeeklyReportRepositoryUpsertDraftReviewedRowUntouched(t *testing.T) {
	db, mock, cleanup := newReportMock(t)
	defer cleanup()
	repo := NewWeeklyReportRepository(db)

	// Zero rows affected: the conflicting row is SUBMITTED or APPROVED.
	mock.ExpectExec(regexp.QuoteMeta("WHERE weekly_reports.status IN ('DRAFT', 'REJECTED')")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.UpsertDraft(context.Background(), &models.WeeklyReport{StudentID: "stu-1", WeekNumber: 3})
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWeeklyReportRepositoryMarkSubmitted(t *testing.T) {
	db, mock, cleanup := newReportMock(t)
	defer cleanup()
	repo := NewWeeklyReportRepository(db)

	submittedAt := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND status IN ($4, $5)")).
		WithArgs("rep-1", string(models.ReportStatusSubmitted), submittedAt,
			string(models.ReportStatusDraft), string(models.ReportStatusRejected)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.MarkSubmitted(context.Background(), "rep-1", submittedAt)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWeeklyReportRepositoryMarkApprovedStaleStatus(t *testing.T) {
	db, mock, cleanup := newReportMock(t)
	defer cleanup()
	repo := NewWeeklyReportRepository(db)

	// Zero rows affected means the row was no longer SUBMITTED; the caller
	// turns that into a conflict.
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND status = $6")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.MarkApproved(context.Background(), "rep-1", nil, nil, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWeeklyReportRepositoryMarkRejected(t *testing.T) {
	db, mock, cleanup := newReportMock(t)
	defer cleanup()
	repo := NewWeeklyReportRepository(db)

	rejectedAt := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("SET status = $2, rejection_reason = $3")).
		WithArgs("rep-1", string(models.ReportStatusRejected), "entries are empty", rejectedAt,
			string(models.ReportStatusSubmitted)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.MarkRejected(context.Background(), "rep-1", "entries are empty", rejectedAt)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWeeklyReportRepositoryCounts(t *testing.T) {
	db, mock, cleanup := newReportMock(t)
	defer cleanup()
	repo := NewWeeklyReportRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM weekly_reports WHERE student_id = $1")).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"submitted_weeks", "approved_weeks"}).AddRow(12, 6))

	counts, err := repo.Counts(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, 12, counts.SubmittedWeeks)
	assert.Equal(t, 6, counts.ApprovedWeeks)
	require.NoError(t, mock.ExpectationsWereMet())
}
