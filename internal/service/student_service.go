package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/siwes-portal-api/internal/models"
	appErrors "github.com/noah-isme/siwes-portal-api/pkg/errors"
)

type studentRepo interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	AssignSupervisors(ctx context.Context, studentID string, schoolSupervisorID, industrySupervisorID *string) error
	SetLocked(ctx context.Context, studentID string, locked bool) (bool, error)
	Delete(ctx context.Context, studentID string) error
}

// CreateStudentRequest registers a student profile for an existing user.
type CreateStudentRequest struct {
	UserID              string `json:"user_id" validate:"required"`
	FullName            string `json:"full_name" validate:"required"`
	MatricNumber        string `json:"matric_number" validate:"required"`
	Department          string `json:"department" validate:"required"`
	Faculty             string `json:"faculty" validate:"required"`
	OrganisationName    string `json:"organisation_name"`
	OrganisationAddress string `json:"organisation_address"`
}

// UpdateStudentRequest replaces the editable profile fields.
type UpdateStudentRequest struct {
	StudentID           string `json:"student_id" validate:"required"`
	FullName            string `json:"full_name" validate:"required"`
	MatricNumber        string `json:"matric_number" validate:"required"`
	Department          string `json:"department" validate:"required"`
	Faculty             string `json:"faculty" validate:"required"`
	OrganisationName    string `json:"organisation_name"`
	OrganisationAddress string `json:"organisation_address"`
	Active              bool   `json:"active"`
}

// AssignSupervisorsRequest links a student to supervisors. Nil fields keep
// the current assignment.
type AssignSupervisorsRequest struct {
	StudentID            string  `json:"student_id" validate:"required"`
	SchoolSupervisorID   *string `json:"school_supervisor_id"`
	IndustrySupervisorID *string `json:"industry_supervisor_id"`
}

// StudentService manages student profiles and their supervisor links.
type StudentService struct {
	students  studentRepo
	audit     auditEmitter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs StudentService.
func NewStudentService(students studentRepo, audit auditEmitter, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{students: students, audit: audit, validator: validate, logger: logger}
}

// Get returns one student profile.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// GetByUser returns the profile owned by a user account. Students resolve
// their own profile through this.
func (s *StudentService) GetByUser(ctx context.Context, userID string) (*models.Student, error) {
	student, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// List returns students matching the filter with a total count for
// pagination.
func (s *StudentService) List(ctx context.Context, actor *models.JWTClaims, filter models.StudentFilter) ([]models.Student, int, error) {
	if actor == nil {
		return nil, 0, appErrors.ErrUnauthorized
	}
	// School supervisors only see their own cohort.
	if actor.Role == models.RoleSchoolSupervisor {
		filter.SchoolSupervisorID = actor.UserID
	}
	students, total, err := s.students.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, total, nil
}

// Create registers a student profile. Admin only.
func (s *StudentService) Create(ctx context.Context, actor *models.JWTClaims, req CreateStudentRequest) (*models.Student, error) {
	if err := s.requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if existing, err := s.students.FindByUserID(ctx, req.UserID); err == nil && existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "user already has a student profile")
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check student profile")
	}

	student := &models.Student{
		UserID:              req.UserID,
		FullName:            req.FullName,
		MatricNumber:        req.MatricNumber,
		Department:          req.Department,
		Faculty:             req.Faculty,
		OrganisationName:    req.OrganisationName,
		OrganisationAddress: req.OrganisationAddress,
		Active:              true,
	}
	if err := s.students.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	s.emit(actor, models.AuditActionStudentCreate, student.ID, nil, student)
	return student, nil
}

// Update replaces profile fields. Locked students stay read-only.
func (s *StudentService) Update(ctx context.Context, actor *models.JWTClaims, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student, err := s.Get(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	if student.SiwesLocked {
		return nil, appErrors.Clone(appErrors.ErrLocked, "student records are locked")
	}

	before := *student
	student.FullName = req.FullName
	student.MatricNumber = req.MatricNumber
	student.Department = req.Department
	student.Faculty = req.Faculty
	student.OrganisationName = req.OrganisationName
	student.OrganisationAddress = req.OrganisationAddress
	student.Active = req.Active
	if err := s.students.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	s.emit(actor, models.AuditActionStudentUpdate, student.ID, &before, student)
	return student, nil
}

// AssignSupervisors links the student to school/industry supervisors.
func (s *StudentService) AssignSupervisors(ctx context.Context, actor *models.JWTClaims, req AssignSupervisorsRequest) (*models.Student, error) {
	if err := s.requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	if req.SchoolSupervisorID == nil && req.IndustrySupervisorID == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one supervisor is required")
	}
	student, err := s.Get(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	if student.SiwesLocked {
		return nil, appErrors.Clone(appErrors.ErrLocked, "student records are locked")
	}

	if err := s.students.AssignSupervisors(ctx, req.StudentID, req.SchoolSupervisorID, req.IndustrySupervisorID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign supervisors")
	}
	updated, err := s.Get(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	s.emit(actor, models.AuditActionSupervisorAssign, req.StudentID, student, updated)
	return updated, nil
}

// Lock flags the student's records as finalized.
func (s *StudentService) Lock(ctx context.Context, actor *models.JWTClaims, studentID string) error {
	return s.setLocked(ctx, actor, studentID, true, models.AuditActionStudentLock)
}

// Unlock clears the finalized flag so records can change again.
func (s *StudentService) Unlock(ctx context.Context, actor *models.JWTClaims, studentID string) error {
	return s.setLocked(ctx, actor, studentID, false, models.AuditActionStudentUnlock)
}

// Delete removes the student with all dependent records. Admin only; the
// cascade runs in one transaction.
func (s *StudentService) Delete(ctx context.Context, actor *models.JWTClaims, studentID string) error {
	if err := s.requireAdmin(actor); err != nil {
		return err
	}
	student, err := s.Get(ctx, studentID)
	if err != nil {
		return err
	}
	if err := s.students.Delete(ctx, studentID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	s.emit(actor, models.AuditActionStudentDelete, studentID, student, nil)
	return nil
}

func (s *StudentService) setLocked(ctx context.Context, actor *models.JWTClaims, studentID string, locked bool, action string) error {
	if err := s.requireAdmin(actor); err != nil {
		return err
	}
	if _, err := s.Get(ctx, studentID); err != nil {
		return err
	}
	changed, err := s.students.SetLocked(ctx, studentID, locked)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to change lock state")
	}
	if changed {
		s.emit(actor, action, studentID, nil, map[string]interface{}{"siwes_locked": locked})
	}
	return nil
}

func (s *StudentService) requireAdmin(actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "admin access required")
	}
	return nil
}

func (s *StudentService) emit(actor *models.JWTClaims, action, resourceID string, old, new interface{}) {
	if s.audit == nil {
		return
	}
	s.audit.Record(AuditEntry{
		ActorID:    actor.UserID,
		Action:     action,
		Resource:   "students",
		ResourceID: resourceID,
		Old:        old,
		New:        new,
	})
}
