package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/siwes-portal-api/internal/models"
)

// PreRegistrationRepository handles pre-registration persistence.
type PreRegistrationRepository struct {
	db *sqlx.DB
}

// NewPreRegistrationRepository creates a new pre-registration repository.
func NewPreRegistrationRepository(db *sqlx.DB) *PreRegistrationRepository {
	return &PreRegistrationRepository{db: db}
}

const preRegColumns = `id, student_id, session_id, organisation_name, organisation_address,
        status, remark, reviewed_by, reviewed_at, created_at, updated_at`

// FindByID returns the pre-registration with the given ID.
func (r *PreRegistrationRepository) FindByID(ctx context.Context, id string) (*models.PreRegistration, error) {
	var prereg models.PreRegistration
	query := fmt.Sprintf(`SELECT %s FROM preregistrations WHERE id = $1`, preRegColumns)
	if err := r.db.GetContext(ctx, &prereg, query, id); err != nil {
		return nil, err
	}
	return &prereg, nil
}

// FindByStudentAndSession returns the row for (student, session).
func (r *PreRegistrationRepository) FindByStudentAndSession(ctx context.Context, studentID, sessionID string) (*models.PreRegistration, error) {
	var prereg models.PreRegistration
	query := fmt.Sprintf(`SELECT %s FROM preregistrations WHERE student_id = $1 AND session_id = $2`, preRegColumns)
	if err := r.db.GetContext(ctx, &prereg, query, studentID, sessionID); err != nil {
		return nil, err
	}
	return &prereg, nil
}

// ListByStatus returns pre-registrations in the given status, newest first.
func (r *PreRegistrationRepository) ListByStatus(ctx context.Context, status models.PreRegistrationStatus) ([]models.PreRegistration, error) {
	query := fmt.Sprintf(`SELECT %s FROM preregistrations WHERE status = $1 ORDER BY created_at DESC`, preRegColumns)
	var preregs []models.PreRegistration
	if err := r.db.SelectContext(ctx, &preregs, query, status); err != nil {
		return nil, fmt.Errorf("list preregistrations: %w", err)
	}
	return preregs, nil
}

// Create inserts a pending pre-registration.
func (r *PreRegistrationRepository) Create(ctx context.Context, prereg *models.PreRegistration) error {
	if prereg.ID == "" {
		prereg.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	prereg.CreatedAt = now
	prereg.UpdatedAt = now
	prereg.Status = models.PreRegistrationPending
	const query = `INSERT INTO preregistrations (id, student_id, session_id, organisation_name,
        organisation_address, status, created_at, updated_at)
        VALUES (:id, :student_id, :session_id, :organisation_name,
        :organisation_address, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, prereg); err != nil {
		return fmt.Errorf("create preregistration: %w", err)
	}
	return nil
}

// SetStatus transitions a PENDING pre-registration to the review outcome.
// Returns false when the row was not pending anymore.
func (r *PreRegistrationRepository) SetStatus(ctx context.Context, id string, status models.PreRegistrationStatus, remark *string, reviewerID string) (bool, error) {
	now := time.Now().UTC()
	const query = `UPDATE preregistrations SET status = $2, remark = $3, reviewed_by = $4,
        reviewed_at = $5, updated_at = $5
        WHERE id = $1 AND status = $6`
	res, err := r.db.ExecContext(ctx, query, id, status, remark, reviewerID, now, models.PreRegistrationPending)
	if err != nil {
		return false, fmt.Errorf("set preregistration status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set preregistration status affected rows: %w", err)
	}
	return affected > 0, nil
}

// Resubmit returns a REJECTED pre-registration to PENDING with refreshed
// placement fields, clearing the rejection remark.
func (r *PreRegistrationRepository) Resubmit(ctx context.Context, id, organisationName, organisationAddress string) (bool, error) {
	const query = `UPDATE preregistrations SET status = $2, organisation_name = $3,
        organisation_address = $4, remark = NULL, reviewed_by = NULL, reviewed_at = NULL, updated_at = $5
        WHERE id = $1 AND status = $6`
	res, err := r.db.ExecContext(ctx, query, id, models.PreRegistrationPending, organisationName,
		organisationAddress, time.Now().UTC(), models.PreRegistrationRejected)
	if err != nil {
		return false, fmt.Errorf("resubmit preregistration: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("resubmit preregistration affected rows: %w", err)
	}
	return affected > 0, nil
}
