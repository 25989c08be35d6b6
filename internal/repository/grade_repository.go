package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/siwes-portal-api/internal/models"
)

// GradeRepository handles supervisor grade persistence.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository creates a new grade repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// FindByStudent returns the committed grade for the student, if any.
func (r *GradeRepository) FindByStudent(ctx context.Context, studentID string) (*models.SupervisorGrade, error) {
	var grade models.SupervisorGrade
	const query = `SELECT id, student_id, graded_by, attendance_score, weekly_reports_score,
        supervisor_approval_score, total_score, grade, remarks, created_at, updated_at
        FROM supervisor_grades WHERE student_id = $1`
	if err := r.db.GetContext(ctx, &grade, query, studentID); err != nil {
		return nil, err
	}
	return &grade, nil
}

// Upsert inserts or replaces the student's committed grade. Replacement
// only happens on re-grading after an explicit unlock.
func (r *GradeRepository) Upsert(ctx context.Context, grade *models.SupervisorGrade) error {
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if grade.CreatedAt.IsZero() {
		grade.CreatedAt = now
	}
	grade.UpdatedAt = now
	const query = `INSERT INTO supervisor_grades (id, student_id, graded_by, attendance_score,
        weekly_reports_score, supervisor_approval_score, total_score, grade, remarks, created_at, updated_at)
        VALUES (:id, :student_id, :graded_by, :attendance_score,
        :weekly_reports_score, :supervisor_approval_score, :total_score, :grade, :remarks, :created_at, :updated_at)
        ON CONFLICT (student_id) DO UPDATE SET
        graded_by = EXCLUDED.graded_by,
        attendance_score = EXCLUDED.attendance_score,
        weekly_reports_score = EXCLUDED.weekly_reports_score,
        supervisor_approval_score = EXCLUDED.supervisor_approval_score,
        total_score = EXCLUDED.total_score,
        grade = EXCLUDED.grade,
        remarks = EXCLUDED.remarks,
        updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, grade); err != nil {
		return fmt.Errorf("upsert supervisor grade: %w", err)
	}
	return nil
}
