package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/siwes-portal-api/internal/models"
)

// WeeklyReportRepository handles weekly logbook persistence. Every status
// transition is a conditional update on the expected current status, so a
// stale writer sees zero rows affected instead of silently clobbering a
// concurrent transition.
type WeeklyReportRepository struct {
	db *sqlx.DB
}

// NewWeeklyReportRepository creates a new weekly report repository.
func NewWeeklyReportRepository(db *sqlx.DB) *WeeklyReportRepository {
	return &WeeklyReportRepository{db: db}
}

const weeklyReportColumns = `id, student_id, week_number, monday_activity, tuesday_activity,
        wednesday_activity, thursday_activity, friday_activity, saturday_activity,
        status, score, school_supervisor_comments, rejection_reason, forwarded_to_school,
        submitted_at, approved_at, created_at, updated_at`

// FindByID returns the report with the given ID.
func (r *WeeklyReportRepository) FindByID(ctx context.Context, id string) (*models.WeeklyReport, error) {
	var report models.WeeklyReport
	query := fmt.Sprintf(`SELECT %s FROM weekly_reports WHERE id = $1`, weeklyReportColumns)
	if err := r.db.GetContext(ctx, &report, query, id); err != nil {
		return nil, err
	}
	return &report, nil
}

// FindByStudentAndWeek returns the row for (student, week) if it exists.
func (r *WeeklyReportRepository) FindByStudentAndWeek(ctx context.Context, studentID string, weekNumber int) (*models.WeeklyReport, error) {
	var report models.WeeklyReport
	query := fmt.Sprintf(`SELECT %s FROM weekly_reports WHERE student_id = $1 AND week_number = $2`, weeklyReportColumns)
	if err := r.db.GetContext(ctx, &report, query, studentID, weekNumber); err != nil {
		return nil, err
	}
	return &report, nil
}

// List returns reports matching the filter ordered by week number.
func (r *WeeklyReportRepository) List(ctx context.Context, filter models.WeeklyReportFilter) ([]models.WeeklyReport, error) {
	query := fmt.Sprintf(`SELECT %s FROM weekly_reports WHERE 1=1`, weeklyReportColumns)
	var args []interface{}
	if filter.StudentID != "" {
		query += fmt.Sprintf(" AND student_id = $%d", len(args)+1)
		args = append(args, filter.StudentID)
	}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, filter.Status)
	}
	if filter.WeekNumber > 0 {
		query += fmt.Sprintf(" AND week_number = $%d", len(args)+1)
		args = append(args, filter.WeekNumber)
	}
	query += " ORDER BY week_number ASC"
	var reports []models.WeeklyReport
	if err := r.db.SelectContext(ctx, &reports, query, args...); err != nil {
		return nil, fmt.Errorf("list weekly reports: %w", err)
	}
	return reports, nil
}

// UpsertDraft inserts or updates the free-text content of a week the
// student may still edit. Rows in DRAFT or REJECTED status are writable; a
// rejected week re-enters DRAFT on save while keeping its rejection reason.
// Submitted or approved weeks are immutable through this path.
func (r *WeeklyReportRepository) UpsertDraft(ctx context.Context, report *models.WeeklyReport) (bool, error) {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if report.CreatedAt.IsZero() {
		report.CreatedAt = now
	}
	report.UpdatedAt = now
	report.Status = models.ReportStatusDraft
	const query = `INSERT INTO weekly_reports (id, student_id, week_number, monday_activity, tuesday_activity,
        wednesday_activity, thursday_activity, friday_activity, saturday_activity,
        status, forwarded_to_school, created_at, updated_at)
        VALUES (:id, :student_id, :week_number, :monday_activity, :tuesday_activity,
        :wednesday_activity, :thursday_activity, :friday_activity, :saturday_activity,
        :status, :forwarded_to_school, :created_at, :updated_at)
        ON CONFLICT (student_id, week_number) DO UPDATE SET
        monday_activity = EXCLUDED.monday_activity,
        tuesday_activity = EXCLUDED.tuesday_activity,
        wednesday_activity = EXCLUDED.wednesday_activity,
        thursday_activity = EXCLUDED.thursday_activity,
        friday_activity = EXCLUDED.friday_activity,
        saturday_activity = EXCLUDED.saturday_activity,
        status = EXCLUDED.status,
        updated_at = EXCLUDED.updated_at
        WHERE weekly_reports.status IN ('DRAFT', 'REJECTED')`
	res, err := r.db.NamedExecContext(ctx, query, report)
	if err != nil {
		return false, fmt.Errorf("upsert draft: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("upsert draft affected rows: %w", err)
	}
	return affected > 0, nil
}

// MarkSubmitted moves a report from DRAFT or REJECTED into SUBMITTED.
// Returns false when the report was no longer in a submittable status.
func (r *WeeklyReportRepository) MarkSubmitted(ctx context.Context, reportID string, submittedAt time.Time) (bool, error) {
	const query = `UPDATE weekly_reports SET status = $2, submitted_at = $3,
        forwarded_to_school = true, updated_at = $3
        WHERE id = $1 AND status IN ($4, $5)`
	res, err := r.db.ExecContext(ctx, query, reportID, models.ReportStatusSubmitted, submittedAt,
		models.ReportStatusDraft, models.ReportStatusRejected)
	if err != nil {
		return false, fmt.Errorf("mark submitted: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark submitted affected rows: %w", err)
	}
	return affected > 0, nil
}

// MarkApproved moves a SUBMITTED report into APPROVED with an optional
// per-week score and supervisor comments.
func (r *WeeklyReportRepository) MarkApproved(ctx context.Context, reportID string, score *float64, comments *string, approvedAt time.Time) (bool, error) {
	const query = `UPDATE weekly_reports SET status = $2, score = COALESCE($3, score),
        school_supervisor_comments = COALESCE($4, school_supervisor_comments),
        approved_at = $5, updated_at = $5
        WHERE id = $1 AND status = $6`
	res, err := r.db.ExecContext(ctx, query, reportID, models.ReportStatusApproved, score, comments,
		approvedAt, models.ReportStatusSubmitted)
	if err != nil {
		return false, fmt.Errorf("mark approved: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark approved affected rows: %w", err)
	}
	return affected > 0, nil
}

// MarkRejected moves a SUBMITTED report into REJECTED and stores the
// reason. The previous reason is only ever overwritten here.
func (r *WeeklyReportRepository) MarkRejected(ctx context.Context, reportID, reason string, rejectedAt time.Time) (bool, error) {
	const query = `UPDATE weekly_reports SET status = $2, rejection_reason = $3, updated_at = $4
        WHERE id = $1 AND status = $5`
	res, err := r.db.ExecContext(ctx, query, reportID, models.ReportStatusRejected, reason,
		rejectedAt, models.ReportStatusSubmitted)
	if err != nil {
		return false, fmt.Errorf("mark rejected: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark rejected affected rows: %w", err)
	}
	return affected > 0, nil
}

// Counts aggregates submitted and approved week counts for grading.
// A week counts as submitted once it has left DRAFT.
func (r *WeeklyReportRepository) Counts(ctx context.Context, studentID string) (*models.WeeklyReportCounts, error) {
	var counts models.WeeklyReportCounts
	const query = `SELECT
        COUNT(*) FILTER (WHERE status <> 'DRAFT') AS submitted_weeks,
        COUNT(*) FILTER (WHERE status = 'APPROVED') AS approved_weeks
        FROM weekly_reports WHERE student_id = $1`
	if err := r.db.GetContext(ctx, &counts, query, studentID); err != nil {
		return nil, fmt.Errorf("count weekly reports: %w", err)
	}
	return &counts, nil
}
