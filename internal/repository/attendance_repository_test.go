package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/siwes-portal-api/internal/models"
)

func newAttendanceMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "sqlmock")
	return sqlxDB, mock, func() { sqlxDB.Close() }
}

func TestAttendanceRepositoryCheckIn(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectExec("INSERT INTO attendance_records").
		WillReturnResult(sqlmock.NewResult(0, 1))

	record := &models.AttendanceRecord{
		StudentID:   "stu-1",
		Date:        time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
		CheckInTime: time.Date(2026, 3, 9, 8, 30, 0, 0, time.UTC),
	}
	require.NoError(t, repo.CheckIn(context.Background(), record))
	assert.NotEmpty(t, record.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryCheckInDuplicateDay(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectExec("INSERT INTO attendance_records").
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.CheckIn(context.Background(), &models.AttendanceRecord{
		StudentID: "stu-1",
		Date:      time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, ErrDuplicateCheckIn)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryCheckOutNoOpenRow(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("AND check_out_time IS NULL")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.CheckOut(context.Background(), "stu-1",
		time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 9, 17, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryCountCheckedInDays(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM attendance_records WHERE student_id = $1")).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"checked_in", "verified"}).AddRow(60, 40))

	checkedIn, verified, err := repo.CountCheckedInDays(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, 60, checkedIn)
	assert.Equal(t, 40, verified)
	require.NoError(t, mock.ExpectationsWereMet())
}
