package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/siwes-portal-api/internal/models"
)

// StudentRepository handles student persistence.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository creates a new student repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `id, user_id, full_name, matric_number, department, faculty,
        organisation_name, organisation_address, industry_supervisor_id, school_supervisor_id,
        active, siwes_locked, created_at, updated_at`

// FindByID returns the student with the given ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	var student models.Student
	query := fmt.Sprintf(`SELECT %s FROM students WHERE id = $1`, studentColumns)
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByUserID returns the student owned by the given user account.
func (r *StudentRepository) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	var student models.Student
	query := fmt.Sprintf(`SELECT %s FROM students WHERE user_id = $1`, studentColumns)
	if err := r.db.GetContext(ctx, &student, query, userID); err != nil {
		return nil, err
	}
	return &student, nil
}

// List returns students matching the filter together with the total count.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	base := `FROM students WHERE 1=1`
	var args []interface{}
	if filter.SchoolSupervisorID != "" {
		base += fmt.Sprintf(" AND school_supervisor_id = $%d", len(args)+1)
		args = append(args, filter.SchoolSupervisorID)
	}
	if filter.Department != "" {
		base += fmt.Sprintf(" AND department = $%d", len(args)+1)
		args = append(args, filter.Department)
	}
	if filter.Active != nil {
		base += fmt.Sprintf(" AND active = $%d", len(args)+1)
		args = append(args, *filter.Active)
	}
	if filter.Locked != nil {
		base += fmt.Sprintf(" AND siwes_locked = $%d", len(args)+1)
		args = append(args, *filter.Locked)
	}
	if filter.Search != "" {
		base += fmt.Sprintf(" AND (full_name ILIKE $%d OR matric_number ILIKE $%d)", len(args)+1, len(args)+1)
		args = append(args, "%"+filter.Search+"%")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d",
		studentColumns, base, pageSize, (page-1)*pageSize)

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}
	return students, total, nil
}

// Create inserts a student row.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, user_id, full_name, matric_number, department, faculty,
        organisation_name, organisation_address, industry_supervisor_id, school_supervisor_id,
        active, siwes_locked, created_at, updated_at)
        VALUES (:id, :user_id, :full_name, :matric_number, :department, :faculty,
        :organisation_name, :organisation_address, :industry_supervisor_id, :school_supervisor_id,
        :active, :siwes_locked, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update replaces the student's editable fields.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET full_name = :full_name, matric_number = :matric_number,
        department = :department, faculty = :faculty, organisation_name = :organisation_name,
        organisation_address = :organisation_address, active = :active, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// AssignSupervisors sets the school and/or industry supervisor references.
func (r *StudentRepository) AssignSupervisors(ctx context.Context, studentID string, schoolSupervisorID, industrySupervisorID *string) error {
	const query = `UPDATE students SET
        school_supervisor_id = COALESCE($2, school_supervisor_id),
        industry_supervisor_id = COALESCE($3, industry_supervisor_id),
        updated_at = $4
        WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, studentID, schoolSupervisorID, industrySupervisorID, time.Now().UTC()); err != nil {
		return fmt.Errorf("assign supervisors: %w", err)
	}
	return nil
}

// SetLocked flips the siwes_locked flag only when it currently holds the
// opposite value. Returns true when a row actually changed, so callers can
// distinguish an idempotent no-op from a fresh lock.
func (r *StudentRepository) SetLocked(ctx context.Context, studentID string, locked bool) (bool, error) {
	const query = `UPDATE students SET siwes_locked = $2, updated_at = $3
        WHERE id = $1 AND siwes_locked = $4`
	res, err := r.db.ExecContext(ctx, query, studentID, locked, time.Now().UTC(), !locked)
	if err != nil {
		return false, fmt.Errorf("set siwes lock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set siwes lock affected rows: %w", err)
	}
	return affected > 0, nil
}

// Delete removes the student and all dependent rows in one transaction.
func (r *StudentRepository) Delete(ctx context.Context, studentID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	for _, query := range []string{
		`DELETE FROM weekly_reports WHERE student_id = $1`,
		`DELETE FROM attendance_records WHERE student_id = $1`,
		`DELETE FROM preregistrations WHERE student_id = $1`,
		`DELETE FROM supervisor_grades WHERE student_id = $1`,
		`DELETE FROM students WHERE id = $1`,
	} {
		if _, err := tx.ExecContext(ctx, query, studentID); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("delete student: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit student delete: %w", err)
	}
	return nil
}
