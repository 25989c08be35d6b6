package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/siwes-portal-api/internal/models"
	appErrors "github.com/noah-isme/siwes-portal-api/pkg/errors"
)

type preRegistrationRepo interface {
	FindByID(ctx context.Context, id string) (*models.PreRegistration, error)
	FindByStudentAndSession(ctx context.Context, studentID, sessionID string) (*models.PreRegistration, error)
	ListByStatus(ctx context.Context, status models.PreRegistrationStatus) ([]models.PreRegistration, error)
	Create(ctx context.Context, prereg *models.PreRegistration) error
	SetStatus(ctx context.Context, id string, status models.PreRegistrationStatus, remark *string, reviewerID string) (bool, error)
	Resubmit(ctx context.Context, id, organisationName, organisationAddress string) (bool, error)
}

// CreatePreRegistrationRequest opens the intake record for a session.
type CreatePreRegistrationRequest struct {
	StudentID           string `json:"student_id" validate:"required"`
	SessionID           string `json:"session_id" validate:"required"`
	OrganisationName    string `json:"organisation_name" validate:"required"`
	OrganisationAddress string `json:"organisation_address" validate:"required"`
}

// ReviewPreRegistrationRequest approves or rejects a pending record.
type ReviewPreRegistrationRequest struct {
	PreRegistrationID string  `json:"preregistration_id" validate:"required"`
	Remark            *string `json:"remark"`
}

// ResubmitPreRegistrationRequest returns a rejected record to pending with
// amended placement details.
type ResubmitPreRegistrationRequest struct {
	PreRegistrationID   string `json:"preregistration_id" validate:"required"`
	OrganisationName    string `json:"organisation_name" validate:"required"`
	OrganisationAddress string `json:"organisation_address" validate:"required"`
}

// PreRegistrationService governs the intake gate in front of the weekly
// report workflow.
type PreRegistrationService struct {
	preregs   preRegistrationRepo
	students  studentReader
	audit     auditEmitter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPreRegistrationService constructs PreRegistrationService.
func NewPreRegistrationService(preregs preRegistrationRepo, students studentReader, audit auditEmitter, validate *validator.Validate, logger *zap.Logger) *PreRegistrationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PreRegistrationService{preregs: preregs, students: students, audit: audit, validator: validate, logger: logger}
}

// CanEnterReportWorkflow reports whether the student's pre-registration for
// the session has been approved. Missing records simply gate entry.
func (s *PreRegistrationService) CanEnterReportWorkflow(ctx context.Context, studentID, sessionID string) (bool, error) {
	prereg, err := s.preregs.FindByStudentAndSession(ctx, studentID, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load preregistration")
	}
	return prereg.Status == models.PreRegistrationApproved, nil
}

// Get returns one pre-registration.
func (s *PreRegistrationService) Get(ctx context.Context, id string) (*models.PreRegistration, error) {
	prereg, err := s.preregs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "preregistration not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load preregistration")
	}
	return prereg, nil
}

// ListPending returns pre-registrations awaiting review.
func (s *PreRegistrationService) ListPending(ctx context.Context) ([]models.PreRegistration, error) {
	preregs, err := s.preregs.ListByStatus(ctx, models.PreRegistrationPending)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list preregistrations")
	}
	return preregs, nil
}

// Create opens a pending pre-registration for (student, session). At most
// one record exists per pair; duplicates conflict.
func (s *PreRegistrationService) Create(ctx context.Context, actor *models.JWTClaims, req CreatePreRegistrationRequest) (*models.PreRegistration, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid preregistration payload")
	}
	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin && (actor.Role != models.RoleStudent || student.UserID != actor.UserID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "preregistration belongs to another student")
	}
	if student.SiwesLocked {
		return nil, appErrors.Clone(appErrors.ErrLocked, "student records are locked")
	}

	if existing, err := s.preregs.FindByStudentAndSession(ctx, req.StudentID, req.SessionID); err == nil && existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "preregistration already exists for session")
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check preregistration")
	}

	prereg := &models.PreRegistration{
		StudentID:           req.StudentID,
		SessionID:           req.SessionID,
		OrganisationName:    req.OrganisationName,
		OrganisationAddress: req.OrganisationAddress,
	}
	if err := s.preregs.Create(ctx, prereg); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create preregistration")
	}
	return s.Get(ctx, prereg.ID)
}

// Approve moves a pending pre-registration to APPROVED.
func (s *PreRegistrationService) Approve(ctx context.Context, actor *models.JWTClaims, req ReviewPreRegistrationRequest) (*models.PreRegistration, error) {
	return s.review(ctx, actor, req, models.PreRegistrationApproved, models.AuditActionPreRegApprove)
}

// Reject moves a pending pre-registration to REJECTED. A remark is
// mandatory so the student knows what to amend.
func (s *PreRegistrationService) Reject(ctx context.Context, actor *models.JWTClaims, req ReviewPreRegistrationRequest) (*models.PreRegistration, error) {
	if req.Remark == nil || strings.TrimSpace(*req.Remark) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rejection remark is required")
	}
	return s.review(ctx, actor, req, models.PreRegistrationRejected, models.AuditActionPreRegReject)
}

// Resubmit returns a rejected pre-registration to PENDING with amended
// placement fields, clearing the reviewer remark.
func (s *PreRegistrationService) Resubmit(ctx context.Context, actor *models.JWTClaims, req ResubmitPreRegistrationRequest) (*models.PreRegistration, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid resubmit payload")
	}
	prereg, err := s.Get(ctx, req.PreRegistrationID)
	if err != nil {
		return nil, err
	}
	student, err := s.students.FindByID(ctx, prereg.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin && (actor.Role != models.RoleStudent || student.UserID != actor.UserID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "preregistration belongs to another student")
	}
	if student.SiwesLocked {
		return nil, appErrors.Clone(appErrors.ErrLocked, "student records are locked")
	}
	if prereg.Status != models.PreRegistrationRejected {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "only rejected preregistrations can be resubmitted")
	}

	ok, err := s.preregs.Resubmit(ctx, prereg.ID, req.OrganisationName, req.OrganisationAddress)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resubmit preregistration")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrConflict, "preregistration changed status while resubmitting")
	}
	return s.Get(ctx, prereg.ID)
}

func (s *PreRegistrationService) review(ctx context.Context, actor *models.JWTClaims, req ReviewPreRegistrationRequest, outcome models.PreRegistrationStatus, action string) (*models.PreRegistration, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins review preregistrations")
	}
	prereg, err := s.Get(ctx, req.PreRegistrationID)
	if err != nil {
		return nil, err
	}
	if prereg.Status != models.PreRegistrationPending {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "preregistration is not pending")
	}

	ok, err := s.preregs.SetStatus(ctx, prereg.ID, outcome, req.Remark, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to review preregistration")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrConflict, "preregistration was reviewed by someone else")
	}
	if s.audit != nil {
		s.audit.Record(AuditEntry{
			ActorID:    actor.UserID,
			Action:     action,
			Resource:   "preregistrations",
			ResourceID: prereg.ID,
			Old:        map[string]interface{}{"status": prereg.Status},
			New:        map[string]interface{}{"status": outcome},
		})
	}
	return s.Get(ctx, prereg.ID)
}
