package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/siwes-portal-api/internal/models"
)

// ErrDuplicateCheckIn is returned when a student already checked in on a date.
var ErrDuplicateCheckIn = fmt.Errorf("attendance already recorded for date")

// AttendanceRepository handles attendance persistence.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository creates a new attendance repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

const attendanceColumns = `id, student_id, date, check_in_time, check_out_time,
        verified, verified_by, created_at, updated_at`

// FindByStudentAndDate returns the record for (student, date).
func (r *AttendanceRepository) FindByStudentAndDate(ctx context.Context, studentID string, date time.Time) (*models.AttendanceRecord, error) {
	var record models.AttendanceRecord
	query := fmt.Sprintf(`SELECT %s FROM attendance_records WHERE student_id = $1 AND date = $2`, attendanceColumns)
	if err := r.db.GetContext(ctx, &record, query, studentID, date); err != nil {
		return nil, err
	}
	return &record, nil
}

// List returns attendance records matching the filter, newest first.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance_records WHERE 1=1`, attendanceColumns)
	var args []interface{}
	if filter.StudentID != "" {
		query += fmt.Sprintf(" AND student_id = $%d", len(args)+1)
		args = append(args, filter.StudentID)
	}
	if filter.DateFrom != nil {
		query += fmt.Sprintf(" AND date >= $%d", len(args)+1)
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query += fmt.Sprintf(" AND date <= $%d", len(args)+1)
		args = append(args, *filter.DateTo)
	}
	if filter.Verified != nil {
		query += fmt.Sprintf(" AND verified = $%d", len(args)+1)
		args = append(args, *filter.Verified)
	}
	query += " ORDER BY date DESC"
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return records, nil
}

// CheckIn inserts the single check-in row for (student, date). The unique
// constraint on (student_id, date) enforces at most one check-in per day.
func (r *AttendanceRepository) CheckIn(ctx context.Context, record *models.AttendanceRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now
	const query = `INSERT INTO attendance_records (id, student_id, date, check_in_time, verified, created_at, updated_at)
        VALUES (:id, :student_id, :date, :check_in_time, :verified, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return ErrDuplicateCheckIn
		}
		return fmt.Errorf("check in: %w", err)
	}
	return nil
}

// CheckOut stamps the check-out time on a day that has a check-in but no
// check-out yet. Returns false when no such row exists.
func (r *AttendanceRepository) CheckOut(ctx context.Context, studentID string, date time.Time, checkOutTime time.Time) (bool, error) {
	const query = `UPDATE attendance_records SET check_out_time = $3, updated_at = $4
        WHERE student_id = $1 AND date = $2 AND check_out_time IS NULL`
	res, err := r.db.ExecContext(ctx, query, studentID, date, checkOutTime, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("check out: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check out affected rows: %w", err)
	}
	return affected > 0, nil
}

// SetVerified marks a record verified by the given supervisor.
func (r *AttendanceRepository) SetVerified(ctx context.Context, recordID, verifierID string) error {
	const query = `UPDATE attendance_records SET verified = true, verified_by = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, recordID, verifierID, time.Now().UTC()); err != nil {
		return fmt.Errorf("verify attendance: %w", err)
	}
	return nil
}

// CountCheckedInDays returns the number of distinct days with a check-in
// and the subset already verified.
func (r *AttendanceRepository) CountCheckedInDays(ctx context.Context, studentID string) (checkedIn, verified int, err error) {
	const query = `SELECT COUNT(*) AS checked_in, COUNT(*) FILTER (WHERE verified) AS verified
        FROM attendance_records WHERE student_id = $1`
	row := r.db.QueryRowxContext(ctx, query, studentID)
	if err := row.Scan(&checkedIn, &verified); err != nil {
		return 0, 0, fmt.Errorf("count attendance days: %w", err)
	}
	return checkedIn, verified, nil
}
