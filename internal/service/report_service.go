package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/siwes-portal-api/internal/models"
	appErrors "github.com/noah-isme/siwes-portal-api/pkg/errors"
)

type weeklyReportRepo interface {
	FindByID(ctx context.Context, id string) (*models.WeeklyReport, error)
	FindByStudentAndWeek(ctx context.Context, studentID string, weekNumber int) (*models.WeeklyReport, error)
	List(ctx context.Context, filter models.WeeklyReportFilter) ([]models.WeeklyReport, error)
	UpsertDraft(ctx context.Context, report *models.WeeklyReport) (bool, error)
	MarkSubmitted(ctx context.Context, reportID string, submittedAt time.Time) (bool, error)
	MarkApproved(ctx context.Context, reportID string, score *float64, comments *string, approvedAt time.Time) (bool, error)
	MarkRejected(ctx context.Context, reportID, reason string, rejectedAt time.Time) (bool, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
}

type preRegGate interface {
	CanEnterReportWorkflow(ctx context.Context, studentID, sessionID string) (bool, error)
}

type auditEmitter interface {
	Record(entry AuditEntry)
}

type transitionRecorder interface {
	RecordReportTransition(outcome string)
}

// SaveDraftRequest carries the free-text logbook content for one week.
type SaveDraftRequest struct {
	StudentID         string `json:"student_id" validate:"required"`
	WeekNumber        int    `json:"week_number" validate:"required,min=1,max=24"`
	MondayActivity    string `json:"monday_activity"`
	TuesdayActivity   string `json:"tuesday_activity"`
	WednesdayActivity string `json:"wednesday_activity"`
	ThursdayActivity  string `json:"thursday_activity"`
	FridayActivity    string `json:"friday_activity"`
	SaturdayActivity  string `json:"saturday_activity"`
}

// SubmitReportRequest submits a week for supervisor review.
type SubmitReportRequest struct {
	ReportID  string `json:"report_id" validate:"required"`
	SessionID string `json:"session_id" validate:"required"`
}

// ApproveReportRequest approves a submitted week.
type ApproveReportRequest struct {
	ReportID string   `json:"report_id" validate:"required"`
	Score    *float64 `json:"score" validate:"omitempty,min=0,max=100"`
	Comments *string  `json:"comments"`
}

// RejectReportRequest rejects a submitted week. A reason is mandatory.
type RejectReportRequest struct {
	ReportID string `json:"report_id" validate:"required"`
	Reason   string `json:"reason" validate:"required"`
}

// ReportService governs the weekly report lifecycle. Transition legality
// is checked here and enforced again at the database level through
// conditional updates, so two racing reviewers cannot both win.
type ReportService struct {
	reports   weeklyReportRepo
	students  studentReader
	gate      preRegGate
	audit     auditEmitter
	metrics   transitionRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReportService constructs ReportService.
func NewReportService(reports weeklyReportRepo, students studentReader, gate preRegGate, audit auditEmitter, validate *validator.Validate, logger *zap.Logger) *ReportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{reports: reports, students: students, gate: gate, audit: audit, validator: validate, logger: logger}
}

// WithMetrics enables transition counters on the service.
func (s *ReportService) WithMetrics(metrics transitionRecorder) *ReportService {
	s.metrics = metrics
	return s
}

// Get returns one weekly report, lazily creating nothing.
func (s *ReportService) Get(ctx context.Context, reportID string) (*models.WeeklyReport, error) {
	report, err := s.reports.FindByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report")
	}
	return report, nil
}

// List returns weekly reports matching the filter.
func (s *ReportService) List(ctx context.Context, filter models.WeeklyReportFilter) ([]models.WeeklyReport, error) {
	reports, err := s.reports.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reports")
	}
	return reports, nil
}

// SaveDraft persists logbook content for a week still in draft. The row is
// created lazily on the student's first save for that week.
func (s *ReportService) SaveDraft(ctx context.Context, actor *models.JWTClaims, req SaveDraftRequest) (*models.WeeklyReport, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid draft payload")
	}
	student, err := s.loadStudent(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwner(actor, student); err != nil {
		return nil, err
	}
	if student.SiwesLocked {
		return nil, appErrors.Clone(appErrors.ErrLocked, "student records are locked")
	}

	existing, err := s.reports.FindByStudentAndWeek(ctx, req.StudentID, req.WeekNumber)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load week")
	}
	if existing != nil && existing.Status != models.ReportStatusDraft && existing.Status != models.ReportStatusRejected {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "week is no longer editable")
	}
	// A rejected week is edited in place; it re-enters DRAFT on save so the
	// student can revise before resubmitting. The rejection reason stays on
	// the row as history.
	report := &models.WeeklyReport{
		StudentID:         req.StudentID,
		WeekNumber:        req.WeekNumber,
		MondayActivity:    req.MondayActivity,
		TuesdayActivity:   req.TuesdayActivity,
		WednesdayActivity: req.WednesdayActivity,
		ThursdayActivity:  req.ThursdayActivity,
		FridayActivity:    req.FridayActivity,
		SaturdayActivity:  req.SaturdayActivity,
	}
	if existing != nil {
		report.ID = existing.ID
		report.CreatedAt = existing.CreatedAt
	}
	updated, err := s.reports.UpsertDraft(ctx, report)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save draft")
	}
	if !updated {
		return nil, appErrors.Clone(appErrors.ErrConflict, "week changed status while saving")
	}
	return s.Get(ctx, report.ID)
}

// Submit moves a draft or rejected week into SUBMITTED, provided the
// student is unlocked and the session's pre-registration is approved.
func (s *ReportService) Submit(ctx context.Context, actor *models.JWTClaims, req SubmitReportRequest) (*models.WeeklyReport, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submit payload")
	}
	report, err := s.Get(ctx, req.ReportID)
	if err != nil {
		return nil, err
	}
	student, err := s.loadStudent(ctx, report.StudentID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwner(actor, student); err != nil {
		return nil, err
	}
	if student.SiwesLocked {
		return nil, appErrors.Clone(appErrors.ErrLocked, "student records are locked")
	}
	if !models.CanTransition(report.Status, models.ReportStatusSubmitted) {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "report cannot be submitted from its current status")
	}
	allowed, err := s.gate.CanEnterReportWorkflow(ctx, student.ID, req.SessionID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "pre-registration has not been approved")
	}

	ok, err := s.reports.MarkSubmitted(ctx, report.ID, time.Now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit report")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrConflict, "report changed status while submitting")
	}
	s.countTransition("submitted")
	return s.Get(ctx, report.ID)
}

// Approve moves a submitted week into APPROVED. Only the assigned school
// supervisor or an admin may act.
func (s *ReportService) Approve(ctx context.Context, actor *models.JWTClaims, req ApproveReportRequest) (*models.WeeklyReport, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid approve payload")
	}
	report, student, err := s.loadForReview(ctx, actor, req.ReportID)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(report.Status, models.ReportStatusApproved) {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "only submitted reports can be approved")
	}

	ok, err := s.reports.MarkApproved(ctx, report.ID, req.Score, req.Comments, time.Now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve report")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrConflict, "report was reviewed by someone else")
	}
	s.emitReview(actor, models.AuditActionReportApprove, report, student)
	s.countTransition("approved")
	return s.Get(ctx, report.ID)
}

// Reject moves a submitted week into REJECTED with a mandatory reason.
func (s *ReportService) Reject(ctx context.Context, actor *models.JWTClaims, req RejectReportRequest) (*models.WeeklyReport, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reject payload")
	}
	if strings.TrimSpace(req.Reason) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required")
	}
	report, student, err := s.loadForReview(ctx, actor, req.ReportID)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(report.Status, models.ReportStatusRejected) {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "only submitted reports can be rejected")
	}

	ok, err := s.reports.MarkRejected(ctx, report.ID, req.Reason, time.Now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject report")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrConflict, "report was reviewed by someone else")
	}
	s.emitReview(actor, models.AuditActionReportReject, report, student)
	s.countTransition("rejected")
	return s.Get(ctx, report.ID)
}

func (s *ReportService) loadStudent(ctx context.Context, studentID string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// loadForReview resolves the report plus its owner and checks the actor is
// the assigned school supervisor or an admin, and the student is unlocked.
func (s *ReportService) loadForReview(ctx context.Context, actor *models.JWTClaims, reportID string) (*models.WeeklyReport, *models.Student, error) {
	report, err := s.Get(ctx, reportID)
	if err != nil {
		return nil, nil, err
	}
	student, err := s.loadStudent(ctx, report.StudentID)
	if err != nil {
		return nil, nil, err
	}
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		if actor.Role != models.RoleSchoolSupervisor {
			return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "only school supervisors may review reports")
		}
		if student.SchoolSupervisorID == nil || *student.SchoolSupervisorID != actor.UserID {
			return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "student is not assigned to you")
		}
	}
	if student.SiwesLocked {
		return nil, nil, appErrors.Clone(appErrors.ErrLocked, "student records are locked")
	}
	return report, student, nil
}

func (s *ReportService) requireOwner(actor *models.JWTClaims, student *models.Student) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role == models.RoleAdmin {
		return nil
	}
	if actor.Role != models.RoleStudent || student.UserID != actor.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "report belongs to another student")
	}
	return nil
}

func (s *ReportService) countTransition(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordReportTransition(outcome)
	}
}

func (s *ReportService) emitReview(actor *models.JWTClaims, action string, report *models.WeeklyReport, student *models.Student) {
	if s.audit == nil {
		return
	}
	s.audit.Record(AuditEntry{
		ActorID:    actor.UserID,
		Action:     action,
		Resource:   "weekly_reports",
		ResourceID: report.ID,
		Old:        map[string]interface{}{"status": report.Status, "week": report.WeekNumber},
		New:        map[string]interface{}{"student_id": student.ID, "week": report.WeekNumber},
	})
}
